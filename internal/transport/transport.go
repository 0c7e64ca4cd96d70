// Package transport establishes WebSocket sessions.  A [Dialer] decides
// how bytes reach the endpoint (direct TCP or forwarded through an SSH
// gateway); the [Connector] layers TLS and the WebSocket handshake on
// top and hands back a [session.Conn].
package transport

import (
	"context"
	"net"
)

// Dialer opens the raw stream a session runs over.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH connection).  Stateless dialers return nil.
	Close() error
}
