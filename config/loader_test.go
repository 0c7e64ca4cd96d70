package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_Mailboxes(t *testing.T) {
	t.Setenv("WSMUX_INBOX_SIZE", "4")
	t.Setenv("WSMUX_OUTBOX_SIZE", "64")
	cfg := New()
	LoadFromEnv(cfg)
	if cfg.InboxSize != 4 || cfg.OutboxSize != 64 {
		t.Errorf("mailboxes = %d/%d, want 4/64", cfg.InboxSize, cfg.OutboxSize)
	}
}

func TestLoadFromEnv_InvalidIntIgnored(t *testing.T) {
	t.Setenv("WSMUX_INBOX_SIZE", "many")
	cfg := New()
	LoadFromEnv(cfg)
	if cfg.InboxSize != DefaultInboxSize {
		t.Errorf("InboxSize = %d, want default", cfg.InboxSize)
	}
}

func TestLoadFromEnv_Durations(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"3", 3 * time.Second},
		{"1500ms", 1500 * time.Millisecond},
		{"0", 0},
		{"soon", DefaultDialTimeout},
		{"-2s", DefaultDialTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("WSMUX_DIAL_TIMEOUT", tt.value)
			cfg := New()
			LoadFromEnv(cfg)
			if cfg.DialTimeout != tt.want {
				t.Errorf("DialTimeout = %v, want %v", cfg.DialTimeout, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	tests := []struct {
		key    string
		values []string
		get    func(*Config) bool
	}{
		{"WSMUX_INSECURE", []string{"1", "true", "yes", "TRUE", "Yes"}, func(c *Config) bool { return c.Insecure }},
		{"WSMUX_SSH_PASSWORD", []string{"1", "true"}, func(c *Config) bool { return c.SSHPassword }},
		{"WSMUX_SSH_AGENT", []string{"true"}, func(c *Config) bool { return c.UseSSHAgent }},
		{"WSMUX_STRICT_HOSTKEY", []string{"1"}, func(c *Config) bool { return c.StrictHostKey }},
		{"WSMUX_TIMESTAMPS", []string{"yes"}, func(c *Config) bool { return c.Timestamps }},
	}

	for _, tt := range tests {
		for _, v := range tt.values {
			t.Run(tt.key+"="+v, func(t *testing.T) {
				t.Setenv(tt.key, v)
				cfg := New()
				LoadFromEnv(cfg)
				if !tt.get(cfg) {
					t.Errorf("%s=%s did not enable the setting", tt.key, v)
				}
			})
		}
	}
}

func TestLoadFromEnv_FalseyBoolean(t *testing.T) {
	t.Setenv("WSMUX_INSECURE", "no")
	cfg := New()
	LoadFromEnv(cfg)
	if cfg.Insecure {
		t.Error("Insecure should stay false")
	}
}

func TestLoadFromEnv_Strings(t *testing.T) {
	t.Setenv("WSMUX_ORIGIN", "http://me/")
	t.Setenv("WSMUX_TUNNEL", "admin@gw:2222")
	t.Setenv("WSMUX_SSH_KEY", "/tmp/key")
	t.Setenv("WSMUX_KNOWN_HOSTS", "/tmp/kh")
	t.Setenv("WSMUX_METRICS_ADDR", ":9101")
	t.Setenv("WSMUX_CONFIG", "/etc/wsmux.toml")

	cfg := New()
	LoadFromEnv(cfg)

	if cfg.Origin != "http://me/" {
		t.Errorf("Origin = %q", cfg.Origin)
	}
	if cfg.TunnelSpec != "admin@gw:2222" {
		t.Errorf("TunnelSpec = %q", cfg.TunnelSpec)
	}
	if cfg.SSHKeyPath != "/tmp/key" || cfg.KnownHostsPath != "/tmp/kh" {
		t.Errorf("ssh paths = %q %q", cfg.SSHKeyPath, cfg.KnownHostsPath)
	}
	if cfg.MetricsAddr != ":9101" {
		t.Errorf("MetricsAddr = %q", cfg.MetricsAddr)
	}
	if got := ConfigFileFromEnv(); got != "/etc/wsmux.toml" {
		t.Errorf("ConfigFileFromEnv = %q", got)
	}
}

func TestLoadFromEnv_EmptyKeepsDefaults(t *testing.T) {
	cfg := New()
	LoadFromEnv(cfg)
	want := New()
	if cfg.InboxSize != want.InboxSize || cfg.DialTimeout != want.DialTimeout || cfg.Verbose != want.Verbose {
		t.Errorf("empty environment changed defaults: %+v", cfg)
	}
}
