// Package core is the orchestration layer.  It turns a validated Config
// into a ready-to-run dispatcher: the stream dialer (direct TCP or an
// SSH gateway), the WebSocket connector on top of it, and the mailbox
// and metrics options.
//
// Architecture layers (bottom → top):
//
//	transport  →  session  →  mux  →  core  →  cmd (CLI)
//
// Build is the single place where configuration becomes wiring, so the
// CLI and the tests assemble the stack the same way.
package core

import (
	"crypto/tls"

	"wsmux/config"
	"wsmux/internal/metrics"
	"wsmux/internal/mux"
	"wsmux/internal/transport"
	"wsmux/tunnel"
	"wsmux/util"
)

// Stack is an assembled dispatcher together with the resources it
// borrows.  Close releases the dialer once the dispatcher has stopped.
type Stack struct {
	Dispatcher *mux.Dispatcher
	Connector  *transport.Connector
	Dialer     transport.Dialer
	Metrics    *metrics.Collector
}

// Close tears down the dialer (and with it any SSH tunnel).
func (s *Stack) Close() error {
	if s.Dialer == nil {
		return nil
	}
	return s.Dialer.Close()
}

// Build constructs the dispatcher described by cfg.  A nil collector
// gets a fresh one.
func Build(cfg *config.Config, logger *util.Logger, collector *metrics.Collector) (*Stack, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if collector == nil {
		collector = metrics.New()
	}

	dialer := buildDialer(cfg, logger)
	connector := buildConnector(cfg, dialer, logger)

	d := mux.New(connector,
		mux.WithInboxSize(cfg.InboxSize),
		mux.WithOutboxSize(cfg.OutboxSize),
		mux.WithLogger(logger),
		mux.WithMetrics(collector),
	)

	return &Stack{
		Dispatcher: d,
		Connector:  connector,
		Dialer:     dialer,
		Metrics:    collector,
	}, nil
}

// ── shared helpers ───────────────────────────────────────────────────

// buildDialer creates the right transport.Dialer for the given config.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if !cfg.TunnelEnabled {
		return &transport.TCPDialer{Timeout: cfg.DialTimeout}
	}
	return transport.NewSSHDialer(&tunnel.SSHConfig{
		User:          cfg.TunnelUser,
		Host:          cfg.TunnelHost,
		Port:          cfg.TunnelPort,
		KeyPath:       cfg.SSHKeyPath,
		PromptPass:    cfg.SSHPassword,
		UseAgent:      cfg.UseSSHAgent,
		StrictHostKey: cfg.StrictHostKey,
		KnownHosts:    cfg.KnownHostsPath,
		ConnTimeout:   config.DefaultSSHConnTimeout,
	}, logger)
}

func buildConnector(cfg *config.Config, dialer transport.Dialer, logger *util.Logger) *transport.Connector {
	c := &transport.Connector{
		Dialer:        dialer,
		Origin:        cfg.Origin,
		DialTimeout:   cfg.DialTimeout,
		Attempts:      cfg.DialAttempts,
		MaxFrameBytes: cfg.MaxFrameBytes,
		WriteTimeout:  cfg.WriteTimeout,
		Logger:        logger,
	}
	if cfg.Insecure {
		//nolint:gosec // user asked to skip verification
		c.TLSConfig = &tls.Config{InsecureSkipVerify: true, MinVersion: tls.VersionTLS12}
	}
	return c
}
