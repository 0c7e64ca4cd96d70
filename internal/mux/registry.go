package mux

import (
	"maps"
	"slices"

	"wsmux/internal/session"
)

// handle is the dispatcher's grip on one live session.
type handle struct {
	id     session.ID
	writer session.Writer
	stop   chan struct{} // closed by the dispatcher to release the reader
	done   chan struct{} // closed by the reader on exit
}

func newHandle(id session.ID, w session.Writer) *handle {
	return &handle{
		id:     id,
		writer: w,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// registry maps ids to live sessions.  Only the dispatcher goroutine
// touches it.
type registry map[session.ID]*handle

func (r registry) get(id session.ID) (*handle, bool) {
	h, ok := r[id]
	return h, ok
}

func (r registry) put(h *handle) { r[h.id] = h }

func (r registry) remove(id session.ID) { delete(r, id) }

// owns reports whether h is still the live entry for its id.
func (r registry) owns(h *handle) bool {
	cur, ok := r[h.id]
	return ok && cur == h
}

// ids returns the live ids in ascending order.
func (r registry) ids() []session.ID {
	return slices.Sorted(maps.Keys(r))
}
