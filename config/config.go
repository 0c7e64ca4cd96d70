// Package config defines the runtime configuration for wsmux and the
// helpers that parse tunnel specifications and startup sessions.
package config

import (
	"fmt"
	"math"
	"net"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"

	wserr "wsmux/internal/errors"
	"wsmux/internal/session"
	"wsmux/util"
)

// Config holds every tuneable for a wsmux process.
type Config struct {
	// ── Multiplexer ──────────────────────────────────────────────────
	InboxSize  int
	OutboxSize int
	Sessions   []SessionSpec // opened at startup, in order

	// ── Connection ───────────────────────────────────────────────────
	Origin        string
	DialTimeout   time.Duration
	DialAttempts  int
	WriteTimeout  time.Duration
	MaxFrameBytes int
	Insecure      bool // skip TLS certificate verification

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw [user@]host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Observability ────────────────────────────────────────────────
	MetricsAddr string // empty disables the HTTP endpoint

	// ── Output ───────────────────────────────────────────────────────
	Verbose    int
	Timestamps bool
	ConfigFile string
}

// SessionSpec names a session to open at startup.
type SessionSpec struct {
	ID  session.ID
	URL string
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		InboxSize:     DefaultInboxSize,
		OutboxSize:    DefaultOutboxSize,
		DialTimeout:   DefaultDialTimeout,
		DialAttempts:  DefaultDialAttempts,
		WriteTimeout:  DefaultWriteTimeout,
		MaxFrameBytes: DefaultMaxFrameBytes,
		TunnelPort:    DefaultSSHPort,
		Verbose:       1,
	}
}

// AddSessions appends startup sessions for urls, numbering them after
// the highest id already present (1..N on an empty config).  Nothing is
// added when the ids would run past the largest session id.
func (c *Config) AddSessions(urls ...string) error {
	var next session.ID
	for _, s := range c.Sessions {
		if s.ID > next {
			next = s.ID
		}
	}
	if len(urls) > 0 && uint64(next)+uint64(len(urls)) > math.MaxUint32 {
		return &wserr.ConfigError{Field: "session", Value: next,
			Message: fmt.Sprintf("no session ids left after %d for %d more url(s)", next, len(urls)),
			Hint:    "use smaller ids for [[session]] entries"}
	}
	for _, u := range urls {
		next++
		c.Sessions = append(c.Sessions, SessionSpec{ID: next, URL: u})
	}
	return nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:@]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	return user, host, port, nil
}

// ApplyTunnelSpec resolves TunnelSpec into the individual tunnel
// fields.  An empty spec disables the tunnel.  A missing user falls
// back to $USER.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		c.TunnelEnabled = false
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &wserr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "use -T user@host[:port]",
		}
	}
	if user == "" {
		user = os.Getenv("USER")
	}
	c.TunnelEnabled = true
	c.TunnelUser, c.TunnelHost, c.TunnelPort = user, host, port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.InboxSize < 1 {
		return &wserr.ConfigError{Field: "inbox-size", Value: c.InboxSize,
			Message: "must be at least 1"}
	}
	if c.OutboxSize < 1 {
		return &wserr.ConfigError{Field: "outbox-size", Value: c.OutboxSize,
			Message: "must be at least 1"}
	}
	if c.DialAttempts < 1 {
		return &wserr.ConfigError{Field: "dial-attempts", Value: c.DialAttempts,
			Message: "must be at least 1"}
	}
	if c.DialTimeout < 0 {
		return &wserr.ConfigError{Field: "dial-timeout", Value: c.DialTimeout,
			Message: "must not be negative", Hint: "use 0 to wait indefinitely"}
	}
	if c.WriteTimeout < 0 {
		return &wserr.ConfigError{Field: "write-timeout", Value: c.WriteTimeout,
			Message: "must not be negative", Hint: "use 0 to wait indefinitely"}
	}
	if c.MaxFrameBytes < 0 {
		return &wserr.ConfigError{Field: "max-frame-bytes", Value: c.MaxFrameBytes,
			Message: "must not be negative"}
	}

	if c.Origin != "" {
		if _, err := url.ParseRequestURI(c.Origin); err != nil {
			return &wserr.ConfigError{Field: "origin", Value: c.Origin,
				Message: "not a valid URL", Hint: "e.g. --origin http://localhost/"}
		}
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return &wserr.ConfigError{Field: "tunnel", Message: "tunnel host is required"}
	}

	if c.MetricsAddr != "" {
		if _, _, err := net.SplitHostPort(c.MetricsAddr); err != nil {
			return &wserr.ConfigError{Field: "metrics-addr", Value: c.MetricsAddr,
				Message: "expected host:port", Hint: "e.g. --metrics-addr 127.0.0.1:9101"}
		}
	}

	seen := make(map[session.ID]bool, len(c.Sessions))
	for _, s := range c.Sessions {
		if seen[s.ID] {
			return &wserr.ConfigError{Field: "session", Value: s.ID,
				Message: "duplicate session id"}
		}
		seen[s.ID] = true

		u, err := url.Parse(s.URL)
		if err == nil {
			_, _, err = util.EndpointAddr(u)
		}
		if err != nil {
			return &wserr.ConfigError{Field: "session", Value: s.URL,
				Message: err.Error(), Hint: "session URLs look like ws://host[:port]/path"}
		}
	}

	return nil
}
