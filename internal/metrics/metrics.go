// Package metrics provides lightweight, lock-free counters and gauges
// for tracking runtime statistics of a wsmux process.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"wsmux/internal/session"
)

// Collector tracks runtime metrics across every multiplexed session.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	sessionsActive atomic.Int64
	sessionsTotal  atomic.Int64
	openFailures   atomic.Int64
	framesIn       atomic.Int64
	framesOut      atomic.Int64
	bytesIn        atomic.Int64
	bytesOut       atomic.Int64
	errorsTotal    atomic.Int64

	mu           sync.RWMutex
	sessions     map[session.ID]*sessionCounters
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a metrics collector with the start time set to now.
func New() *Collector {
	return &Collector{
		sessions:  make(map[session.ID]*sessionCounters),
		startTime: time.Now(),
	}
}

// sessionCounters is the traffic of one live session.
type sessionCounters struct {
	framesIn  atomic.Int64
	framesOut atomic.Int64
	bytesIn   atomic.Int64
	bytesOut  atomic.Int64
}

func (c *Collector) session(id session.ID) *sessionCounters {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions[id]
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionOpened increments both the active and total counters and
// starts per-session accounting for id from zero.
func (c *Collector) SessionOpened(id session.ID) {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)

	c.mu.Lock()
	if c.sessions == nil {
		c.sessions = make(map[session.ID]*sessionCounters)
	}
	c.sessions[id] = &sessionCounters{}
	c.mu.Unlock()
}

// SessionClosed decrements the active session counter and drops the
// per-session counters for id.
func (c *Collector) SessionClosed(id session.ID) {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)

	c.mu.Lock()
	delete(c.sessions, id)
	c.mu.Unlock()
}

// OpenFailed records a session that could not be established.
func (c *Collector) OpenFailed() {
	if c == nil {
		return
	}
	c.openFailures.Add(1)
}

// ActiveSessions returns the current number of open sessions.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// TotalSessions returns the lifetime count of opened sessions.
func (c *Collector) TotalSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsTotal.Load()
}

// OpenFailures returns the number of failed session opens.
func (c *Collector) OpenFailures() int64 {
	if c == nil {
		return 0
	}
	return c.openFailures.Load()
}

// ── Frame metrics ────────────────────────────────────────────────────

// FrameReceived records one inbound frame of n bytes on session id.
func (c *Collector) FrameReceived(id session.ID, n int) {
	if c == nil {
		return
	}
	c.framesIn.Add(1)
	c.bytesIn.Add(int64(n))
	if sc := c.session(id); sc != nil {
		sc.framesIn.Add(1)
		sc.bytesIn.Add(int64(n))
	}
}

// FrameSent records one outbound frame of n bytes on session id.
func (c *Collector) FrameSent(id session.ID, n int) {
	if c == nil {
		return
	}
	c.framesOut.Add(1)
	c.bytesOut.Add(int64(n))
	if sc := c.session(id); sc != nil {
		sc.framesOut.Add(1)
		sc.bytesOut.Add(int64(n))
	}
}

// Session returns the traffic of the live session id.  The second
// result is false once the session has closed.
func (c *Collector) Session(id session.ID) (SessionStats, bool) {
	if c == nil {
		return SessionStats{}, false
	}
	sc := c.session(id)
	if sc == nil {
		return SessionStats{}, false
	}
	return sc.stats(id), true
}

// TotalBytesIn returns total payload bytes received.
func (c *Collector) TotalBytesIn() int64 {
	if c == nil {
		return 0
	}
	return c.bytesIn.Load()
}

// TotalBytesOut returns total payload bytes sent.
func (c *Collector) TotalBytesOut() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOut.Load()
}

// TotalFramesIn returns the number of frames received.
func (c *Collector) TotalFramesIn() int64 {
	if c == nil {
		return 0
	}
	return c.framesIn.Load()
}

// TotalFramesOut returns the number of frames sent.
func (c *Collector) TotalFramesOut() int64 {
	if c == nil {
		return 0
	}
	return c.framesOut.Load()
}

// ── Error metrics ────────────────────────────────────────────────────

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// Uptime returns the time since the collector was created.
func (c *Collector) Uptime() time.Duration {
	if c == nil {
		return 0
	}
	return time.Since(c.startTime)
}

// ── Snapshot ─────────────────────────────────────────────────────────

// SessionStats is the traffic of one live session.
type SessionStats struct {
	ID        session.ID `json:"id"`
	FramesIn  int64      `json:"frames_in"`
	FramesOut int64      `json:"frames_out"`
	BytesIn   int64      `json:"bytes_in"`
	BytesOut  int64      `json:"bytes_out"`
}

func (sc *sessionCounters) stats(id session.ID) SessionStats {
	return SessionStats{
		ID:        id,
		FramesIn:  sc.framesIn.Load(),
		FramesOut: sc.framesOut.Load(),
		BytesIn:   sc.bytesIn.Load(),
		BytesOut:  sc.bytesOut.Load(),
	}
}

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionsActive   int64  `json:"sessions_active"`
	SessionsTotal    int64  `json:"sessions_total"`
	OpenFailures     int64  `json:"open_failures"`
	FramesIn         int64  `json:"frames_in"`
	FramesOut        int64  `json:"frames_out"`
	BytesIn          int64  `json:"bytes_in"`
	BytesOut         int64  `json:"bytes_out"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`

	Sessions []SessionStats `json:"sessions,omitempty"` // live sessions, by id
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:         time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsActive: c.sessionsActive.Load(),
		SessionsTotal:  c.sessionsTotal.Load(),
		OpenFailures:   c.openFailures.Load(),
		FramesIn:       c.framesIn.Load(),
		FramesOut:      c.framesOut.Load(),
		BytesIn:        c.bytesIn.Load(),
		BytesOut:       c.bytesOut.Load(),
		ErrorsTotal:    c.errorsTotal.Load(),
	}
	for _, id := range slices.Sorted(maps.Keys(c.sessions)) {
		s.Sessions = append(s.Sessions, c.sessions[id].stats(id))
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
