// Package session defines what a single duplex session looks like to
// the rest of wsmux: its caller-assigned identity, the unit of data
// moved over it, and the transport contract an established session
// satisfies.
//
// Sessions decouple the multiplexer from concrete transports: the
// dispatcher doesn't need to know whether a frame travels over a
// WebSocket, an SSH-forwarded WebSocket or an in-memory test pipe.
package session

import (
	"strconv"
	"unicode/utf8"
)

// ID identifies a session.  IDs are chosen by the caller and must be
// unique among currently open sessions; wsmux never generates them.
type ID uint32

func (id ID) String() string { return strconv.FormatUint(uint64(id), 10) }

// ParseID parses a decimal session id.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return ID(n), nil
}

// Frame is one discrete unit of data read from or written to a session.
// Data is forwarded verbatim; Binary selects a binary frame on the wire
// instead of a text frame.
type Frame struct {
	Data   []byte
	Binary bool
}

// Text returns a text frame carrying s.
func Text(s string) Frame { return Frame{Data: []byte(s)} }

// Len returns the payload size in bytes.
func (f Frame) Len() int { return len(f.Data) }

// IsText reports whether the frame is a text frame with valid UTF-8.
func (f Frame) IsText() bool { return !f.Binary && utf8.Valid(f.Data) }

// Writer is the write-capable half of an established session.
type Writer interface {
	// WriteFrame sends one frame.  It may block while the transport
	// buffer is full.
	WriteFrame(f Frame) error

	// Close sends a best-effort close frame and releases the transport.
	// It also unblocks a pending ReadFrame on the paired Reader.
	Close() error
}

// Reader is the read-capable half of an established session.
type Reader interface {
	// ReadFrame blocks for the next data frame.  It returns io.EOF
	// (possibly wrapped) when the remote end closed the session.
	ReadFrame() (Frame, error)
}

// Conn is an established duplex session.  Implementations must allow
// one goroutine in ReadFrame concurrently with another in WriteFrame or
// Close.
type Conn interface {
	Reader
	Writer
}
