package config

// file.go - configuration loading from a TOML file.
//
// The file is read once at startup and never written back.  Keys that
// are absent leave the current value alone, so the file layers cleanly
// over defaults.go.

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"wsmux/internal/session"
)

type fileConfig struct {
	InboxSize     int    `toml:"inbox_size"`
	OutboxSize    int    `toml:"outbox_size"`
	Origin        string `toml:"origin"`
	DialTimeout   string `toml:"dial_timeout"`
	DialAttempts  int    `toml:"dial_attempts"`
	WriteTimeout  string `toml:"write_timeout"`
	MaxFrameBytes int    `toml:"max_frame_bytes"`
	Insecure      bool   `toml:"insecure"`
	MetricsAddr   string `toml:"metrics_addr"`
	Verbose       int    `toml:"verbose"`
	Timestamps    bool   `toml:"timestamps"`

	Tunnel  fileTunnel    `toml:"tunnel"`
	Session []fileSession `toml:"session"`
}

type fileTunnel struct {
	Spec          string `toml:"spec"`
	Key           string `toml:"key"`
	Password      bool   `toml:"password"`
	Agent         bool   `toml:"agent"`
	StrictHostKey bool   `toml:"strict_host_key"`
	KnownHosts    string `toml:"known_hosts"`
}

type fileSession struct {
	ID  uint32 `toml:"id"`
	URL string `toml:"url"`
}

// LoadFile overlays the TOML file at path onto cfg.  Unknown keys are
// rejected so typos do not silently fall back to defaults.
func LoadFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if meta.IsDefined("inbox_size") {
		cfg.InboxSize = raw.InboxSize
	}
	if meta.IsDefined("outbox_size") {
		cfg.OutboxSize = raw.OutboxSize
	}
	if meta.IsDefined("origin") {
		cfg.Origin = strings.TrimSpace(raw.Origin)
	}
	if meta.IsDefined("dial_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.DialTimeout))
		if err != nil {
			return fmt.Errorf("parse dial_timeout: %w", err)
		}
		cfg.DialTimeout = d
	}
	if meta.IsDefined("dial_attempts") {
		cfg.DialAttempts = raw.DialAttempts
	}
	if meta.IsDefined("write_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.WriteTimeout))
		if err != nil {
			return fmt.Errorf("parse write_timeout: %w", err)
		}
		cfg.WriteTimeout = d
	}
	if meta.IsDefined("max_frame_bytes") {
		cfg.MaxFrameBytes = raw.MaxFrameBytes
	}
	if meta.IsDefined("insecure") {
		cfg.Insecure = raw.Insecure
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}
	if meta.IsDefined("timestamps") {
		cfg.Timestamps = raw.Timestamps
	}

	// SSH tunnel
	if meta.IsDefined("tunnel", "spec") {
		cfg.TunnelSpec = strings.TrimSpace(raw.Tunnel.Spec)
	}
	if meta.IsDefined("tunnel", "key") {
		cfg.SSHKeyPath = strings.TrimSpace(raw.Tunnel.Key)
	}
	if meta.IsDefined("tunnel", "password") {
		cfg.SSHPassword = raw.Tunnel.Password
	}
	if meta.IsDefined("tunnel", "agent") {
		cfg.UseSSHAgent = raw.Tunnel.Agent
	}
	if meta.IsDefined("tunnel", "strict_host_key") {
		cfg.StrictHostKey = raw.Tunnel.StrictHostKey
	}
	if meta.IsDefined("tunnel", "known_hosts") {
		cfg.KnownHostsPath = strings.TrimSpace(raw.Tunnel.KnownHosts)
	}

	// Startup sessions
	for i, s := range raw.Session {
		if s.ID == 0 {
			return fmt.Errorf("session #%d: id is required and must be positive", i+1)
		}
		url := strings.TrimSpace(s.URL)
		if url == "" {
			return fmt.Errorf("session %d: url is required", s.ID)
		}
		cfg.Sessions = append(cfg.Sessions, SessionSpec{ID: session.ID(s.ID), URL: url})
	}

	cfg.ConfigFile = path
	return nil
}
