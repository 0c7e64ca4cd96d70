package mux

import (
	"wsmux/internal/metrics"
	"wsmux/util"
)

const (
	defaultInboxSize  = 12
	defaultOutboxSize = 200
)

// Option configures a [Dispatcher].
type Option func(*Dispatcher)

// WithInboxSize sets the command mailbox capacity.  Values below 1 keep
// the default of 12.
func WithInboxSize(n int) Option {
	return func(d *Dispatcher) {
		if n >= 1 {
			d.inboxSize = n
		}
	}
}

// WithOutboxSize sets the event mailbox capacity.  Values below 1 keep
// the default of 200.
func WithOutboxSize(n int) Option {
	return func(d *Dispatcher) {
		if n >= 1 {
			d.outboxSize = n
		}
	}
}

// WithLogger sets the logger.  Without it the dispatcher is silent.
func WithLogger(l *util.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithMetrics records session and frame counters into c.
func WithMetrics(c *metrics.Collector) Option {
	return func(d *Dispatcher) { d.metrics = c }
}
