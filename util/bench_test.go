package util

import (
	"io"
	"testing"
)

// BenchmarkLogger_Filtered measures the cost of a log call that the
// current verbosity discards, the common case on the frame hot path.
func BenchmarkLogger_Filtered(b *testing.B) {
	l := NewLogger(1)
	l.SetOutput(io.Discard)
	for i := 0; i < b.N; i++ {
		l.Debug("frame %d", i)
	}
}

// BenchmarkLogger_Session measures an emitted line carrying a session field.
func BenchmarkLogger_Session(b *testing.B) {
	l := NewLogger(2)
	l.SetOutput(io.Discard)
	sl := l.With("session", 7)
	for i := 0; i < b.N; i++ {
		sl.Verbose("frame %d", i)
	}
}
