package mux

import "wsmux/internal/session"

// Command is a request for the dispatcher.  The set is closed:
// [OpenSession], [SendMessage] and [CloseSession].
type Command interface {
	SessionID() session.ID
	isCommand()
}

// OpenSession establishes a session to Address under ID.
type OpenSession struct {
	ID      session.ID
	Address string
}

// SendMessage writes Payload to the session as one frame.
type SendMessage struct {
	ID      session.ID
	Payload session.Frame
}

// CloseSession closes the session.  Closing an unknown id is not an
// error.
type CloseSession struct {
	ID session.ID
}

func (c OpenSession) SessionID() session.ID  { return c.ID }
func (c SendMessage) SessionID() session.ID  { return c.ID }
func (c CloseSession) SessionID() session.ID { return c.ID }

func (OpenSession) isCommand()  {}
func (SendMessage) isCommand()  {}
func (CloseSession) isCommand() {}
