package mux

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"wsmux/internal/session"
	"wsmux/internal/testutil"
	"wsmux/internal/transport"
	"wsmux/util"
)

func TestWebSocket_EchoRoundTrip(t *testing.T) {
	srv := testutil.NewWSServer(t, testutil.EchoHandler)
	h := start(t, &transport.Connector{DialTimeout: 2 * time.Second})

	h.submit(OpenSession{ID: 1, Address: srv.URL("/echo")})
	require.Equal(t, SessionOpened{ID: 1}, h.next())

	h.submit(SendMessage{ID: 1, Payload: session.Text("hello")})
	assert.Equal(t, MessageReceived{ID: 1, Payload: session.Text("hello"), ByteCount: 5}, h.next())

	bin := session.Frame{Data: []byte{0xde, 0xad, 0xbe, 0xef}, Binary: true}
	h.submit(SendMessage{ID: 1, Payload: bin})
	assert.Equal(t, MessageReceived{ID: 1, Payload: bin, ByteCount: 4}, h.next())

	h.submit(CloseSession{ID: 1})
	assert.Equal(t, SessionClosed{ID: 1, Reason: RequestedByLocal}, h.next())
	h.quiet()
}

func TestWebSocket_IndependentSessions(t *testing.T) {
	srv := testutil.NewWSServer(t, testutil.EchoHandler)
	h := start(t, &transport.Connector{})

	h.submit(OpenSession{ID: 1, Address: srv.URL("/a")}, OpenSession{ID: 2, Address: srv.URL("/b")})
	require.Equal(t, SessionOpened{ID: 1}, h.next())
	require.Equal(t, SessionOpened{ID: 2}, h.next())

	h.submit(SendMessage{ID: 2, Payload: session.Text("two")})
	assert.Equal(t, MessageReceived{ID: 2, Payload: session.Text("two"), ByteCount: 3}, h.next())

	h.submit(CloseSession{ID: 2})
	assert.Equal(t, SessionClosed{ID: 2, Reason: RequestedByLocal}, h.next())

	h.submit(SendMessage{ID: 1, Payload: session.Text("one")})
	assert.Equal(t, MessageReceived{ID: 1, Payload: session.Text("one"), ByteCount: 3}, h.next())
}

func TestWebSocket_RemoteClose(t *testing.T) {
	srv := testutil.NewWSServer(t, func(ws *websocket.Conn) {
		testutil.Send(ws, testutil.Message{Data: []byte("bye")}) //nolint:errcheck
		ws.Close()
	})
	h := start(t, &transport.Connector{})

	h.submit(OpenSession{ID: 7, Address: srv.URL("/")})
	require.Equal(t, SessionOpened{ID: 7}, h.next())
	assert.Equal(t, MessageReceived{ID: 7, Payload: session.Text("bye"), ByteCount: 3}, h.next())
	assert.Equal(t, SessionClosed{ID: 7, Reason: RemoteClosed}, h.next())
}

func TestWebSocket_ConnectError(t *testing.T) {
	port, err := util.FindFreePort()
	require.NoError(t, err)
	h := start(t, &transport.Connector{DialTimeout: time.Second})

	h.submit(OpenSession{ID: 1, Address: "ws://127.0.0.1:" + strconv.Itoa(port) + "/"})
	ev := h.next()
	failed, ok := ev.(SessionFailed)
	require.True(t, ok, "got %#v", ev)
	assert.Equal(t, ConnectError, failed.Reason)
	assert.Error(t, failed.Err)
}

func TestWebSocket_ShutdownClosesSessions(t *testing.T) {
	closed := make(chan struct{})
	srv := testutil.NewWSServer(t, func(ws *websocket.Conn) {
		defer close(closed)
		for {
			if _, err := testutil.Receive(ws); err != nil {
				return
			}
		}
	})
	h := start(t, &transport.Connector{})

	h.submit(OpenSession{ID: 1, Address: srv.URL("/")})
	require.Equal(t, SessionOpened{ID: 1}, h.next())

	h.d.Close()
	assert.Equal(t, []Event{SessionClosed{ID: 1, Reason: RequestedByLocal}}, h.drain())

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the session close")
	}
}
