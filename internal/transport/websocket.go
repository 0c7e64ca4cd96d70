package transport

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"

	wserr "wsmux/internal/errors"
	"wsmux/internal/retry"
	"wsmux/internal/session"
	"wsmux/util"
)

// closeGrace bounds how long Close waits to flush the close frame to a
// peer that stopped reading.
const closeGrace = time.Second

// Connector opens WebSocket sessions.  The zero value dials directly
// over TCP with a single attempt and the library's default frame limit.
type Connector struct {
	// Dialer carries the raw stream.  Nil means direct TCP.
	Dialer Dialer
	// Origin is sent in the opening handshake.  Empty derives
	// http(s)://host from the target URL.
	Origin string
	// TLSConfig is used for wss:// targets.  ServerName defaults to the
	// URL host.
	TLSConfig *tls.Config
	// DialTimeout bounds each attempt: dial, TLS and handshake together.
	DialTimeout time.Duration
	// Attempts is the per-open retry budget.  Values below 1 mean one.
	Attempts int
	// MaxFrameBytes rejects inbound frames larger than this.  Zero keeps
	// the library default (32 MiB).
	MaxFrameBytes int
	// WriteTimeout bounds a single outbound frame write.  Zero blocks
	// until the peer accepts the data.
	WriteTimeout time.Duration

	Logger *util.Logger
}

// Connect dials address (ws:// or wss://), completes the handshake and
// returns the established session.  Failures carry a
// [wserr.NetworkError] whose Op names the failing stage.
func (c *Connector) Connect(ctx context.Context, address string) (session.Conn, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, &wserr.NetworkError{Op: "dial", Addr: address, Err: err}
	}
	hostport, secure, err := util.EndpointAddr(u)
	if err != nil {
		return nil, &wserr.NetworkError{Op: "dial", Addr: address, Err: err}
	}
	cfg, err := websocket.NewConfig(address, c.origin(u))
	if err != nil {
		return nil, &wserr.NetworkError{Op: "dial", Addr: address, Err: err}
	}

	policy := retry.DialBackoff(c.Attempts)
	policy.Retryable = wserr.IsRetryable
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		c.Logger.Verbose("connect %s: attempt %d failed: %v (retrying in %v)",
			address, attempt, err, wait.Round(time.Millisecond))
	}

	var conn *wsConn
	err = policy.Do(ctx, func(int) error {
		var err error
		conn, err = c.connectOnce(ctx, cfg, address, hostport, secure, u.Hostname())
		return err
	})
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("connected %s via %s", address, hostport)
	return conn, nil
}

func (c *Connector) connectOnce(ctx context.Context, cfg *websocket.Config, address, hostport string, secure bool, serverName string) (*wsConn, error) {
	if c.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.DialTimeout)
		defer cancel()
	}

	raw, err := c.dialer().Dial(ctx, "tcp", hostport)
	if err != nil {
		return nil, wserr.Wrap("dial", address, err)
	}

	// Neither the TLS client nor the WebSocket handshake below watch
	// ctx directly; closing the stream aborts them.
	stop := context.AfterFunc(ctx, func() { raw.Close() })
	defer stop()

	var rwc net.Conn = raw
	if secure {
		tlsConn := tls.Client(raw, c.tlsConfig(serverName))
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			raw.Close()
			return nil, wserr.Wrap("tls", address, ctxErr(ctx, err))
		}
		rwc = tlsConn
	}

	ws, err := websocket.NewClient(cfg, rwc)
	if err != nil {
		rwc.Close()
		return nil, wserr.Wrap("handshake", address, ctxErr(ctx, err))
	}
	if !stop() {
		ws.Close()
		return nil, wserr.Wrap("handshake", address, ctx.Err())
	}

	if c.MaxFrameBytes > 0 {
		ws.MaxPayloadBytes = c.MaxFrameBytes
	}
	return &wsConn{
		ws:           ws,
		stream:       rwc,
		addr:         address,
		writeTimeout: c.WriteTimeout,
		logger:       c.Logger,
	}, nil
}

func (c *Connector) dialer() Dialer {
	if c.Dialer != nil {
		return c.Dialer
	}
	return &TCPDialer{Timeout: c.DialTimeout}
}

func (c *Connector) origin(u *url.URL) string {
	if c.Origin != "" {
		return c.Origin
	}
	scheme := "http"
	if u.Scheme == "wss" {
		scheme = "https"
	}
	return scheme + "://" + u.Host
}

func (c *Connector) tlsConfig(serverName string) *tls.Config {
	var cfg *tls.Config
	if c.TLSConfig != nil {
		cfg = c.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = serverName
	}
	return cfg
}

// ctxErr prefers the context's error when it caused err.
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// ── established session ──────────────────────────────────────────────

// frameCodec moves session frames verbatim, keeping the text/binary
// distinction in both directions.
var frameCodec = websocket.Codec{
	Marshal: func(v interface{}) ([]byte, byte, error) {
		f := v.(session.Frame)
		if f.Binary {
			return f.Data, websocket.BinaryFrame, nil
		}
		return f.Data, websocket.TextFrame, nil
	},
	Unmarshal: func(data []byte, payloadType byte, v interface{}) error {
		f := v.(*session.Frame)
		f.Data = data
		f.Binary = payloadType == websocket.BinaryFrame
		return nil
	},
}

// wsConn adapts a client-side *websocket.Conn to [session.Conn].
//
// Write and close timeouts use the stream's write deadline.  Streams
// forwarded through an SSH tunnel reject deadlines, so for those a timer
// closes the stream instead, which fails the pending write.
type wsConn struct {
	ws           *websocket.Conn
	stream       net.Conn // carries ws; closed by the fallback timer
	addr         string
	writeTimeout time.Duration
	logger       *util.Logger

	noDeadlines atomic.Bool
	closeOnce   sync.Once
	closeErr    error
}

// ReadFrame returns the next data frame.  A close frame from the peer
// surfaces as io.EOF.
func (c *wsConn) ReadFrame() (session.Frame, error) {
	var f session.Frame
	if err := frameCodec.Receive(c.ws, &f); err != nil {
		if util.IsHarmless(err) {
			return session.Frame{}, err
		}
		return session.Frame{}, wserr.Wrap("read", c.addr, err)
	}
	return f, nil
}

// WriteFrame sends f as a single text or binary frame.
func (c *wsConn) WriteFrame(f session.Frame) error {
	var expired func() bool
	if c.writeTimeout > 0 {
		expired = c.bound(c.writeTimeout)
	}
	err := frameCodec.Send(c.ws, f)
	if expired != nil && expired() {
		err = os.ErrDeadlineExceeded
	}
	if err != nil {
		return wserr.Wrap("write", c.addr, err)
	}
	return nil
}

// Close sends a close frame and releases the stream, unblocking any
// pending ReadFrame.  Repeated calls return the first result.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		expired := c.bound(closeGrace)
		c.closeErr = c.ws.Close()
		expired()
	})
	return c.closeErr
}

// bound limits the next write to d.  The returned func stops the
// fallback timer and reports whether it fired; it must be called once
// the write returns.
func (c *wsConn) bound(d time.Duration) (expired func() bool) {
	if !c.noDeadlines.Load() {
		err := c.ws.SetWriteDeadline(time.Now().Add(d))
		if err == nil {
			return func() bool { return false }
		}
		c.noDeadlines.Store(true)
		c.logger.Debug("%s: write deadlines unsupported, using a timer: %v", c.addr, err)
	}

	var fired atomic.Bool
	t := time.AfterFunc(d, func() {
		fired.Store(true)
		c.stream.Close()
	})
	return func() bool {
		t.Stop()
		return fired.Load()
	}
}
