package mux

import "wsmux/internal/session"

// Event reports something that happened to a session.  The set is
// closed: [SessionOpened], [SessionFailed], [MessageReceived] and
// [SessionClosed].
type Event interface {
	SessionID() session.ID
	isEvent()
}

// SessionOpened follows a successful [OpenSession].
type SessionOpened struct {
	ID session.ID
}

// SessionFailed reports a command that could not be applied.  The
// registry is unchanged.
type SessionFailed struct {
	ID     session.ID
	Reason FailReason
	Err    error
}

// MessageReceived carries one inbound frame.
type MessageReceived struct {
	ID        session.ID
	Payload   session.Frame
	ByteCount int
}

// SessionClosed is emitted exactly once when a session leaves the
// registry, and for a [CloseSession] naming an unknown id.
type SessionClosed struct {
	ID     session.ID
	Reason CloseReason
	Err    error // set for ReadError
}

func (e SessionOpened) SessionID() session.ID   { return e.ID }
func (e SessionFailed) SessionID() session.ID   { return e.ID }
func (e MessageReceived) SessionID() session.ID { return e.ID }
func (e SessionClosed) SessionID() session.ID   { return e.ID }

func (SessionOpened) isEvent()   {}
func (SessionFailed) isEvent()   {}
func (MessageReceived) isEvent() {}
func (SessionClosed) isEvent()   {}

// ── Reasons ──────────────────────────────────────────────────────────

// CloseReason says why a session closed.
type CloseReason int

const (
	RequestedByLocal CloseReason = iota
	RemoteClosed
	ReadError
)

func (r CloseReason) String() string {
	switch r {
	case RequestedByLocal:
		return "requested-by-local"
	case RemoteClosed:
		return "remote-closed"
	case ReadError:
		return "read-error"
	default:
		return "unknown"
	}
}

// FailReason says why a command was rejected.
type FailReason int

const (
	AlreadyOpen FailReason = iota
	ConnectError
	UnknownSession
)

func (r FailReason) String() string {
	switch r {
	case AlreadyOpen:
		return "already-open"
	case ConnectError:
		return "connect-error"
	case UnknownSession:
		return "unknown-session"
	default:
		return "unknown"
	}
}
