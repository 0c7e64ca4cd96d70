package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultInboxSize is the capacity of the command mailbox feeding
	// the dispatcher.
	DefaultInboxSize = 12

	// DefaultOutboxSize is the capacity of the event mailbox the
	// dispatcher and session readers publish into.
	DefaultOutboxSize = 200

	// DefaultDialTimeout bounds dial, TLS and handshake for one attempt.
	DefaultDialTimeout = 10 * time.Second

	// DefaultDialAttempts is how many times an open is tried before it
	// is reported as failed.
	DefaultDialAttempts = 1

	// DefaultWriteTimeout bounds a single outbound frame write.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultMaxFrameBytes rejects inbound frames above 16 MiB.
	DefaultMaxFrameBytes = 16 << 20

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultSSHConnTimeout bounds the SSH gateway dial and handshake.
	DefaultSSHConnTimeout = 30 * time.Second

	// DefaultShutdownGrace is how long the metrics server gets to drain.
	DefaultShutdownGrace = 5 * time.Second
)
