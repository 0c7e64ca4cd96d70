// Package mux multiplexes independent WebSocket sessions behind a
// single actor.
//
// A [Dispatcher] owns every live session.  Callers [Dispatcher.Submit]
// commands into a bounded inbound mailbox; the dispatcher goroutine
// applies them strictly in arrival order and reports outcomes as events
// on a bounded outbound mailbox ([Dispatcher.Events]).  Each open
// session has its own reader goroutine that pushes inbound frames into
// the same outbound mailbox, so a slow consumer throttles readers
// instead of growing memory.
//
// Session state lives only in the dispatcher goroutine.  Readers never
// touch it; when one ends on its own it notifies the dispatcher, which
// removes the session and emits the one [SessionClosed] for it.
package mux
