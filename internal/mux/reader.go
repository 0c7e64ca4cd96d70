package mux

import (
	"errors"
	"io"

	"wsmux/internal/session"
	"wsmux/util"
)

// read pumps frames from r into the outbound mailbox until the session
// ends.  It reports its own termination to the dispatcher; when the
// dispatcher stopped it, it exits silently.
func (d *Dispatcher) read(h *handle, r session.Reader, log *util.Logger) {
	defer d.readers.Done()
	defer close(h.done)

	for {
		f, err := r.ReadFrame()
		if err != nil {
			d.report(h, err, log)
			return
		}

		d.metrics.FrameReceived(h.id, f.Len())
		log.Debug("<- %d bytes", f.Len())

		select {
		case d.outbox <- MessageReceived{ID: h.id, Payload: f, ByteCount: f.Len()}:
		case <-h.stop:
			return
		}
	}
}

// report hands the terminal reason to the dispatcher unless it already
// owns the closure.
func (d *Dispatcher) report(h *handle, err error, log *util.Logger) {
	select {
	case <-h.stop:
		return
	default:
	}

	n := notice{h: h, reason: ReadError, err: err}
	if errors.Is(err, io.EOF) {
		n.reason, n.err = RemoteClosed, nil
	}
	log.Debug("reader ended: %s", n.reason)

	select {
	case d.notices <- n:
	case <-h.stop:
	}
}
