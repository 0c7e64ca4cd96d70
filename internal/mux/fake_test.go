package mux

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	wserr "wsmux/internal/errors"
	"wsmux/internal/session"
)

// ── In-memory session ────────────────────────────────────────────────

// fakeConn is a session.Conn whose inbound side is driven by the test.
type fakeConn struct {
	address string
	in      chan session.Frame
	readErr chan error
	closed  chan struct{}

	closeOnce  sync.Once
	closeCalls atomic.Int32

	mu       sync.Mutex
	written  []session.Frame
	writeErr error
}

func newFakeConn(address string) *fakeConn {
	return &fakeConn{
		address: address,
		in:      make(chan session.Frame, 256),
		readErr: make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrame() (session.Frame, error) {
	select {
	case f := <-c.in:
		return f, nil
	case err := <-c.readErr:
		return session.Frame{}, err
	case <-c.closed:
		return session.Frame{}, net.ErrClosed
	}
}

func (c *fakeConn) WriteFrame(f session.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	select {
	case <-c.closed:
		return net.ErrClosed
	default:
	}
	c.written = append(c.written, f)
	return nil
}

func (c *fakeConn) Close() error {
	c.closeCalls.Add(1)
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) failWrites(err error) {
	c.mu.Lock()
	c.writeErr = err
	c.mu.Unlock()
}

func (c *fakeConn) frames() []session.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]session.Frame(nil), c.written...)
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// fakeConnector hands out fakeConns.  Addresses starting with "fail:"
// are refused.
type fakeConnector struct {
	calls   atomic.Int32
	created chan *fakeConn
}

func newFakeConnector() *fakeConnector {
	return &fakeConnector{created: make(chan *fakeConn, 64)}
}

func (f *fakeConnector) Connect(_ context.Context, address string) (session.Conn, error) {
	f.calls.Add(1)
	if strings.HasPrefix(address, "fail:") {
		return nil, wserr.Wrap("dial", address, errors.New("connection refused"))
	}
	c := newFakeConn(address)
	f.created <- c
	return c, nil
}

func (f *fakeConnector) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-f.created:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no connection was created")
		return nil
	}
}

// ── Harness ──────────────────────────────────────────────────────────

type harness struct {
	t      *testing.T
	d      *Dispatcher
	cancel context.CancelFunc
	result chan error
}

func start(t *testing.T, c Connector, opts ...Option) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{t: t, d: New(c, opts...), cancel: cancel, result: make(chan error, 1)}
	go func() { h.result <- h.d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-h.result:
		case <-time.After(5 * time.Second):
			t.Error("dispatcher did not stop")
		}
	})
	return h
}

func (h *harness) submit(cmds ...Command) {
	h.t.Helper()
	for _, cmd := range cmds {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := h.d.Submit(ctx, cmd)
		cancel()
		require.NoError(h.t, err)
	}
}

func (h *harness) next() Event {
	h.t.Helper()
	select {
	case ev, ok := <-h.d.Events():
		require.True(h.t, ok, "event mailbox closed unexpectedly")
		return ev
	case <-time.After(2 * time.Second):
		h.t.Fatal("timed out waiting for event")
		return nil
	}
}

// quiet asserts that no event arrives for a short while.
func (h *harness) quiet() {
	h.t.Helper()
	select {
	case ev := <-h.d.Events():
		h.t.Fatalf("unexpected event %#v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// drain collects events until the mailbox closes.
func (h *harness) drain() []Event {
	h.t.Helper()
	var out []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-h.d.Events():
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timeout:
			h.t.Fatal("event mailbox never closed")
			return out
		}
	}
}

func (h *harness) wait() error {
	h.t.Helper()
	select {
	case err := <-h.result:
		h.result <- err
		return err
	case <-time.After(5 * time.Second):
		h.t.Fatal("Run did not return")
		return nil
	}
}
