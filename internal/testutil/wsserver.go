// Package testutil provides in-process network peers for tests: a
// WebSocket server with pluggable behaviour and an SSH gateway that
// forwards direct-tcpip channels.
package testutil

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/net/websocket"
)

// Message is one WebSocket data frame as seen by a test peer.
type Message struct {
	Data   []byte
	Binary bool
}

var messageCodec = websocket.Codec{
	Marshal: func(v interface{}) ([]byte, byte, error) {
		m := v.(Message)
		if m.Binary {
			return m.Data, websocket.BinaryFrame, nil
		}
		return m.Data, websocket.TextFrame, nil
	},
	Unmarshal: func(data []byte, payloadType byte, v interface{}) error {
		m := v.(*Message)
		m.Data = data
		m.Binary = payloadType == websocket.BinaryFrame
		return nil
	},
}

// Send writes m to ws, preserving its frame type.
func Send(ws *websocket.Conn, m Message) error { return messageCodec.Send(ws, m) }

// Receive reads the next data frame from ws.
func Receive(ws *websocket.Conn) (Message, error) {
	var m Message
	err := messageCodec.Receive(ws, &m)
	return m, err
}

// EchoHandler sends every received frame straight back with the same
// frame type until the peer goes away.
func EchoHandler(ws *websocket.Conn) {
	for {
		m, err := Receive(ws)
		if err != nil {
			return
		}
		if err := Send(ws, m); err != nil {
			return
		}
	}
}

// WSServer is an httptest server speaking WebSocket on every path.
type WSServer struct {
	*httptest.Server
}

// NewWSServer starts a plain ws:// server running h for each connection.
// The server is closed when the test ends.
func NewWSServer(t testing.TB, h func(*websocket.Conn)) *WSServer {
	t.Helper()
	srv := httptest.NewServer(wsHandler(h))
	t.Cleanup(srv.Close)
	return &WSServer{Server: srv}
}

// NewTLSWSServer starts a wss:// server running h for each connection.
func NewTLSWSServer(t testing.TB, h func(*websocket.Conn)) *WSServer {
	t.Helper()
	srv := httptest.NewTLSServer(wsHandler(h))
	t.Cleanup(srv.Close)
	return &WSServer{Server: srv}
}

// URL returns the ws:// (or wss://) URL for path.
func (s *WSServer) URL(path string) string {
	if strings.HasPrefix(s.Server.URL, "https") {
		return "wss" + strings.TrimPrefix(s.Server.URL, "https") + path
	}
	return "ws" + strings.TrimPrefix(s.Server.URL, "http") + path
}

// ClientTLS returns a client TLS config trusting the server certificate.
func (s *WSServer) ClientTLS() *tls.Config {
	pool := x509.NewCertPool()
	if cert := s.Certificate(); cert != nil {
		pool.AddCert(cert)
	}
	return &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
}

func wsHandler(h func(*websocket.Conn)) http.Handler {
	return websocket.Server{
		// Accept any Origin; tests dial from arbitrary origins.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   h,
	}
}
