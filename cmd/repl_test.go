package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wsmux/internal/metrics"
	"wsmux/internal/mux"
	"wsmux/internal/session"
)

type recorder struct {
	cmds []mux.Command
	err  error
}

func (r *recorder) Submit(_ context.Context, cmd mux.Command) error {
	if r.err != nil {
		return r.err
	}
	r.cmds = append(r.cmds, cmd)
	return nil
}

func TestConsole_Exec(t *testing.T) {
	tests := []struct {
		line string
		want mux.Command
	}{
		{"open 1 ws://localhost:8080/", mux.OpenSession{ID: 1, Address: "ws://localhost:8080/"}},
		{"  OPEN 2   wss://x/  ", mux.OpenSession{ID: 2, Address: "wss://x/"}},
		{"send 3 hello  world", mux.SendMessage{ID: 3, Payload: session.Text("hello  world")}},
		{"send 3", mux.SendMessage{ID: 3, Payload: session.Text("")}},
		{"sendhex 4 de ad be ef", mux.SendMessage{ID: 4, Payload: session.Frame{Data: []byte{0xde, 0xad, 0xbe, 0xef}, Binary: true}}},
		{"close 5", mux.CloseSession{ID: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			r := &recorder{}
			c := &console{d: r, out: io.Discard}
			require.NoError(t, c.exec(context.Background(), tt.line))
			require.Len(t, r.cmds, 1)
			assert.Equal(t, tt.want, r.cmds[0])
		})
	}
}

func TestConsole_ExecErrors(t *testing.T) {
	tests := []struct {
		line    string
		wantSub string
	}{
		{"open", "missing session id"},
		{"open 1", "usage: open"},
		{"send x hi", "invalid session id"},
		{"close -1", "invalid session id"},
		{"sendhex 1 zz", "sendhex"},
		{"frobnicate", "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			r := &recorder{}
			c := &console{d: r, out: io.Discard}
			err := c.exec(context.Background(), tt.line)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantSub)
			assert.Empty(t, r.cmds)
		})
	}
}

func TestConsole_LocalCommands(t *testing.T) {
	var out bytes.Buffer
	m := metrics.New()
	m.SessionOpened(1)
	m.FrameSent(1, 3)
	c := &console{d: &recorder{}, out: &out, metrics: m}

	require.NoError(t, c.exec(context.Background(), "# comment"))
	require.NoError(t, c.exec(context.Background(), ""))
	require.NoError(t, c.exec(context.Background(), "help"))
	require.NoError(t, c.exec(context.Background(), "stats"))
	assert.ErrorIs(t, c.exec(context.Background(), "quit"), errQuit)

	assert.Contains(t, out.String(), "open <id> <url>")
	assert.Contains(t, out.String(), "sessions 1 active / 1 opened / 0 failed")
	assert.Contains(t, out.String(), "bytes 0 in / 3 out")
	assert.Contains(t, out.String(), "[1] 3 B out / 0 B in  (1 / 0 frames)")
}

func TestConsole_Run(t *testing.T) {
	r := &recorder{}
	var out bytes.Buffer
	c := &console{d: r, out: &out}

	in := strings.NewReader("open 1 ws://a/\nbogus\nclose 1\nquit\nclose 2\n")
	require.NoError(t, c.run(context.Background(), in))

	assert.Equal(t, []mux.Command{
		mux.OpenSession{ID: 1, Address: "ws://a/"},
		mux.CloseSession{ID: 1},
	}, r.cmds)
	assert.Contains(t, out.String(), `error: unknown command "bogus"`)
}

func TestConsole_RunStopsWhenDispatcherStops(t *testing.T) {
	c := &console{d: &recorder{err: mux.ErrStopped}, out: io.Discard}
	require.NoError(t, c.run(context.Background(), strings.NewReader("close 1\nclose 2\n")))
}

func TestConsole_RunScanError(t *testing.T) {
	c := &console{d: &recorder{}, out: io.Discard}
	err := c.run(context.Background(), io.MultiReader(strings.NewReader("close 1\n"), errReader{}))
	assert.ErrorIs(t, err, errBoom)
}

var errBoom = errors.New("boom")

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errBoom }

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		ev   mux.Event
		want string
	}{
		{mux.SessionOpened{ID: 1}, "[1] opened"},
		{mux.SessionFailed{ID: 1, Reason: mux.UnknownSession}, "[1] failed: unknown-session"},
		{mux.SessionFailed{ID: 2, Reason: mux.ConnectError, Err: errors.New("refused")}, "[2] failed: connect-error: refused"},
		{mux.MessageReceived{ID: 1, Payload: session.Text("hi"), ByteCount: 2}, "[1] <- hi (2 bytes)"},
		{mux.MessageReceived{ID: 1, Payload: session.Text("a\nb"), ByteCount: 3}, `[1] <- a\nb (3 bytes)`},
		{mux.MessageReceived{ID: 3, Payload: session.Frame{Data: []byte{0xca, 0xfe}, Binary: true}, ByteCount: 2}, "[3] <- 0xcafe (2 bytes, binary)"},
		{mux.SessionClosed{ID: 1, Reason: mux.RequestedByLocal}, "[1] closed: requested-by-local"},
		{mux.SessionClosed{ID: 4, Reason: mux.ReadError, Err: errors.New("reset")}, "[4] closed: read-error: reset"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatEvent(tt.ev))
	}
}

func TestPrintEvents(t *testing.T) {
	ch := make(chan mux.Event, 2)
	ch <- mux.SessionOpened{ID: 1}
	ch <- mux.SessionClosed{ID: 1, Reason: mux.RemoteClosed}
	close(ch)

	var out bytes.Buffer
	printEvents(&out, ch)
	assert.Equal(t, "[1] opened\n[1] closed: remote-closed\n", out.String())
}
