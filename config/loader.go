package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the WSMUX_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Durations accept Go
// syntax ("1500ms") or a bare number of seconds.

// ConfigFileFromEnv returns the config file named by WSMUX_CONFIG.
func ConfigFileFromEnv() string {
	return os.Getenv("WSMUX_CONFIG")
}

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := envInt("WSMUX_INBOX_SIZE"); v > 0 {
		cfg.InboxSize = v
	}
	if v := envInt("WSMUX_OUTBOX_SIZE"); v > 0 {
		cfg.OutboxSize = v
	}

	// Connection
	if v := os.Getenv("WSMUX_ORIGIN"); v != "" {
		cfg.Origin = v
	}
	if v, ok := envDuration("WSMUX_DIAL_TIMEOUT"); ok {
		cfg.DialTimeout = v
	}
	if v := envInt("WSMUX_DIAL_ATTEMPTS"); v > 0 {
		cfg.DialAttempts = v
	}
	if v, ok := envDuration("WSMUX_WRITE_TIMEOUT"); ok {
		cfg.WriteTimeout = v
	}
	if v := envInt("WSMUX_MAX_FRAME_BYTES"); v > 0 {
		cfg.MaxFrameBytes = v
	}
	if envBool("WSMUX_INSECURE") {
		cfg.Insecure = true
	}

	// SSH tunnel
	if v := os.Getenv("WSMUX_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("WSMUX_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("WSMUX_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("WSMUX_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("WSMUX_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("WSMUX_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Observability / output
	if v := os.Getenv("WSMUX_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := envInt("WSMUX_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
	if envBool("WSMUX_TIMESTAMPS") {
		cfg.Timestamps = true
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second, true
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}
