package util

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// EndpointAddr returns the host:port to dial for a ws:// or wss:// URL,
// filling in the scheme's default port, and whether TLS is required.
func EndpointAddr(u *url.URL) (addr string, secure bool, err error) {
	var defPort string
	switch u.Scheme {
	case "ws":
		defPort = "80"
	case "wss":
		defPort = "443"
		secure = true
	default:
		return "", false, fmt.Errorf("unsupported scheme %q (want ws or wss)", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return "", false, fmt.Errorf("missing host in %q", u.String())
	}
	port := u.Port()
	if port == "" {
		port = defPort
	}
	return net.JoinHostPort(host, port), secure, nil
}

// FormatAddr returns "host:port".
func FormatAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// FindFreePort returns an available TCP port on 127.0.0.1.
func FindFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
