package mux

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	wserr "wsmux/internal/errors"
	"wsmux/internal/metrics"
	"wsmux/internal/session"
	"wsmux/util"
)

// ErrStopped is returned by [Dispatcher.Submit] once the dispatcher no
// longer accepts commands.
var ErrStopped = wserr.ErrStopped

// Connector establishes sessions.  It must not retain conn-specific
// state between calls; the dispatcher may call it for any address.
type Connector interface {
	Connect(ctx context.Context, address string) (session.Conn, error)
}

// Dispatcher is the session actor.  Create it with [New], start it with
// [Dispatcher.Run] and drain [Dispatcher.Events] until it is closed.
type Dispatcher struct {
	connector Connector
	logger    *util.Logger
	metrics   *metrics.Collector

	inboxSize  int
	outboxSize int

	inbox   chan Command
	outbox  chan Event
	notices chan notice   // reader → dispatcher termination reports
	stopped chan struct{} // closed when Run returns

	// mu guards closing inbox against concurrent Submit.
	mu     sync.RWMutex
	closed bool

	started  atomic.Bool
	sessions registry
	readers  sync.WaitGroup
}

// notice is a reader reporting that its session ended on its own.
type notice struct {
	h      *handle
	reason CloseReason
	err    error
}

// New returns a dispatcher that opens sessions through connector.
func New(connector Connector, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		connector:  connector,
		inboxSize:  defaultInboxSize,
		outboxSize: defaultOutboxSize,
		sessions:   make(registry),
		notices:    make(chan notice),
		stopped:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.inbox = make(chan Command, d.inboxSize)
	d.outbox = make(chan Event, d.outboxSize)
	return d
}

// Events returns the outbound mailbox.  It is closed after Run returns
// and every reader has exited.
func (d *Dispatcher) Events() <-chan Event { return d.outbox }

// Submit queues cmd, blocking while the inbound mailbox is full.
func (d *Dispatcher) Submit(ctx context.Context, cmd Command) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return ErrStopped
	}
	select {
	case <-d.stopped:
		return ErrStopped
	default:
	}
	select {
	case d.inbox <- cmd:
		return nil
	case <-d.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting commands.  Commands already queued are still
// applied; then Run closes every session and returns.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.closed {
		d.closed = true
		close(d.inbox)
	}
}

// Run applies commands until [Dispatcher.Close] drains the inbox (nil
// error) or ctx is cancelled (ctx.Err()).  Every live session is closed
// before Run returns.  Run must be called once.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return errors.New("mux: Run called more than once")
	}
	defer close(d.stopped)
	defer close(d.outbox)

	d.logger.Debug("dispatcher running (inbox=%d outbox=%d)", d.inboxSize, d.outboxSize)

	for {
		select {
		case <-ctx.Done():
			d.shutdown(ctx)
			return ctx.Err()

		case cmd, ok := <-d.inbox:
			if !ok {
				d.shutdown(ctx)
				return nil
			}
			d.apply(ctx, cmd)

		case n := <-d.notices:
			d.reap(ctx, n)
		}
	}
}

func (d *Dispatcher) apply(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case OpenSession:
		d.open(ctx, c)
	case SendMessage:
		d.send(ctx, c)
	case CloseSession:
		d.close(ctx, c)
	default:
		d.logger.Warn("ignoring unsupported command %T", cmd)
	}
}

// ── Commands ─────────────────────────────────────────────────────────

func (d *Dispatcher) open(ctx context.Context, c OpenSession) {
	log := d.logger.With("session", c.ID)

	if _, ok := d.sessions.get(c.ID); ok {
		log.Warn("open %s: id already in use", c.Address)
		d.emit(ctx, SessionFailed{ID: c.ID, Reason: AlreadyOpen, Err: wserr.ErrAlreadyOpen})
		return
	}

	log.Verbose("connecting to %s", c.Address)
	conn, err := d.connector.Connect(ctx, c.Address)
	if err != nil {
		log.Warn("open %s: %v", c.Address, err)
		d.metrics.OpenFailed()
		d.metrics.RecordError(err.Error())
		d.emit(ctx, SessionFailed{ID: c.ID, Reason: ConnectError, Err: err})
		return
	}

	h := newHandle(c.ID, conn)
	d.sessions.put(h)
	d.metrics.SessionOpened(c.ID)
	log.Info("opened %s", c.Address)

	// Opened goes out before the reader starts so it precedes every
	// MessageReceived for this session.
	d.emit(ctx, SessionOpened{ID: c.ID})

	d.readers.Add(1)
	go d.read(h, conn, log)
}

func (d *Dispatcher) send(ctx context.Context, c SendMessage) {
	h, ok := d.sessions.get(c.ID)
	if !ok {
		d.emit(ctx, SessionFailed{ID: c.ID, Reason: UnknownSession, Err: wserr.ErrUnknownSession})
		return
	}

	if err := h.writer.WriteFrame(c.Payload); err != nil {
		d.logger.With("session", c.ID).Warn("write failed, closing: %v", err)
		d.metrics.RecordError(err.Error())
		d.sessions.remove(c.ID)
		d.teardown(h)
		d.emit(ctx, SessionClosed{ID: c.ID, Reason: ReadError, Err: err})
		return
	}
	d.metrics.FrameSent(c.ID, c.Payload.Len())
}

func (d *Dispatcher) close(ctx context.Context, c CloseSession) {
	h, ok := d.sessions.get(c.ID)
	if !ok {
		d.emit(ctx, SessionClosed{ID: c.ID, Reason: RequestedByLocal})
		return
	}

	d.sessions.remove(c.ID)
	d.teardown(h)
	d.logger.With("session", c.ID).Info("closed")
	d.emit(ctx, SessionClosed{ID: c.ID, Reason: RequestedByLocal})
}

// reap handles a reader that ended on its own.  A notice for a handle
// that already left the registry is stale and dropped.
func (d *Dispatcher) reap(ctx context.Context, n notice) {
	if !d.sessions.owns(n.h) {
		return
	}
	log := d.logger.With("session", n.h.id)
	if n.err != nil {
		log.Warn("read failed: %v", n.err)
		d.metrics.RecordError(n.err.Error())
	} else {
		log.Info("closed by remote")
	}

	d.sessions.remove(n.h.id)
	d.teardown(n.h)
	d.emit(ctx, SessionClosed{ID: n.h.id, Reason: n.reason, Err: n.err})
}

// ── Lifecycle helpers ────────────────────────────────────────────────

// teardown releases h's reader and transport and waits for the reader
// to exit, so no MessageReceived for h can follow the caller's
// SessionClosed.  Close errors are expected here and only logged.
func (d *Dispatcher) teardown(h *handle) {
	close(h.stop)
	if err := h.writer.Close(); err != nil && !util.IsHarmless(err) {
		d.logger.With("session", h.id).Debug("close: %v", err)
	}
	<-h.done
	d.metrics.SessionClosed(h.id)
}

// shutdown closes every live session.  Closures are reported only while
// ctx is still live; after cancellation nobody is expected to listen.
func (d *Dispatcher) shutdown(ctx context.Context) {
	ids := d.sessions.ids()
	if len(ids) > 0 {
		d.logger.Verbose("shutting down %d session(s)", len(ids))
	}
	for _, id := range ids {
		h, _ := d.sessions.get(id)
		d.sessions.remove(id)
		d.teardown(h)
		if ctx.Err() == nil {
			d.emit(ctx, SessionClosed{ID: id, Reason: RequestedByLocal})
		}
	}
	d.readers.Wait()
}

// emit publishes ev, blocking while the outbound mailbox is full.  The
// event is dropped if ctx ends first.
func (d *Dispatcher) emit(ctx context.Context, ev Event) {
	select {
	case d.outbox <- ev:
	case <-ctx.Done():
		d.logger.Debug("dropped %T for session %d: %v", ev, ev.SessionID(), ctx.Err())
	}
}
