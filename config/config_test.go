package config

import (
	"errors"
	"math"
	"testing"

	wserr "wsmux/internal/errors"
)

// ── ParseTunnelSpec ──────────────────────────────────────────────────

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"full", "admin@bastion.example.com:2222", "admin", "bastion.example.com", 2222, false},
		{"no port", "root@gateway", "root", "gateway", 22, false},
		{"no user", "jump-host:2200", "", "jump-host", 2200, false},
		{"host only", "gateway.local", "", "gateway.local", 22, false},
		{"bad port", "user@host:999999", "", "", 0, true},
		{"empty", "", "", "", 0, true},
		{"colon only", ":", "", "", 0, true},
		{"double at", "a@b@c", "", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestApplyTunnelSpec(t *testing.T) {
	t.Setenv("USER", "fallback")

	cfg := New()
	cfg.TunnelSpec = "bastion:2200"
	if err := cfg.ApplyTunnelSpec(); err != nil {
		t.Fatal(err)
	}
	if !cfg.TunnelEnabled || cfg.TunnelHost != "bastion" || cfg.TunnelPort != 2200 {
		t.Errorf("tunnel = %v %q %d", cfg.TunnelEnabled, cfg.TunnelHost, cfg.TunnelPort)
	}
	if cfg.TunnelUser != "fallback" {
		t.Errorf("TunnelUser = %q, want $USER", cfg.TunnelUser)
	}

	cfg.TunnelSpec = ""
	if err := cfg.ApplyTunnelSpec(); err != nil {
		t.Fatal(err)
	}
	if cfg.TunnelEnabled {
		t.Error("empty spec should disable the tunnel")
	}

	cfg.TunnelSpec = "bad:port:spec"
	if err := cfg.ApplyTunnelSpec(); err == nil {
		t.Error("expected error for malformed spec")
	}
}

// ── Defaults and sessions ────────────────────────────────────────────

func TestNew_Defaults(t *testing.T) {
	cfg := New()
	if cfg.InboxSize != 12 || cfg.OutboxSize != 200 {
		t.Errorf("mailboxes = %d/%d, want 12/200", cfg.InboxSize, cfg.OutboxSize)
	}
	if cfg.DialAttempts != 1 {
		t.Errorf("DialAttempts = %d, want 1", cfg.DialAttempts)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestAddSessions_Numbering(t *testing.T) {
	cfg := New()
	if err := cfg.AddSessions("ws://a/", "ws://b/"); err != nil {
		t.Fatal(err)
	}
	if len(cfg.Sessions) != 2 || cfg.Sessions[0].ID != 1 || cfg.Sessions[1].ID != 2 {
		t.Fatalf("sessions = %+v", cfg.Sessions)
	}

	cfg = New()
	cfg.Sessions = []SessionSpec{{ID: 7, URL: "ws://file/"}}
	if err := cfg.AddSessions("ws://cli/"); err != nil {
		t.Fatal(err)
	}
	if cfg.Sessions[1].ID != 8 {
		t.Errorf("next id = %d, want 8", cfg.Sessions[1].ID)
	}
}

func TestAddSessions_IDExhausted(t *testing.T) {
	cfg := New()
	cfg.Sessions = []SessionSpec{{ID: math.MaxUint32, URL: "ws://file/"}}

	err := cfg.AddSessions("ws://cli/")
	var ce *wserr.ConfigError
	if !errors.As(err, &ce) || ce.Field != "session" {
		t.Fatalf("expected session ConfigError, got %v", err)
	}
	if len(cfg.Sessions) != 1 {
		t.Errorf("nothing should be added, sessions = %+v", cfg.Sessions)
	}

	// The last id is still usable.
	cfg.Sessions = []SessionSpec{{ID: math.MaxUint32 - 1, URL: "ws://file/"}}
	if err := cfg.AddSessions("ws://cli/"); err != nil {
		t.Fatal(err)
	}
	if cfg.Sessions[1].ID != math.MaxUint32 {
		t.Errorf("next id = %d, want %d", cfg.Sessions[1].ID, uint32(math.MaxUint32))
	}

	// No urls never fails.
	if err := cfg.AddSessions(); err != nil {
		t.Errorf("empty AddSessions: %v", err)
	}
}
