package nbio

import (
	"io"
	"sync"

	"github.com/sedwards2009/ptymuxd/internal/activity"
	"github.com/sedwards2009/ptymuxd/internal/utf16len"
)

// Writer drains a queue of strings to an underlying io.Writer on a
// dedicated goroutine, producing one "credit" per string once it has been
// fully written: the credit is the string's length in UTF-16 code units,
// the unit the controlling process uses for its own buffer accounting
// (spec.md §4.D, §9).
type Writer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []string
	credits []int
	closed  bool

	dst      io.Writer
	activity *activity.Signal
}

// NewWriter starts a background writer over dst.
func NewWriter(dst io.Writer, sig *activity.Signal) *Writer {
	w := &Writer{dst: dst, activity: sig}
	w.cond = sync.NewCond(&w.mu)
	go w.run()
	return w
}

// Write enqueues s to be written; it never blocks and never fails
// synchronously. An underlying I/O error stops the writer's goroutine
// without reporting it: strings queued after that are never written and
// produce no credit.
func (w *Writer) Write(s string) {
	w.mu.Lock()
	w.pending = append(w.pending, s)
	w.cond.Signal()
	w.mu.Unlock()
}

// Close tells the writer goroutine to exit once it has drained whatever is
// currently pending. It does not close the underlying destination — the
// session owns that file's lifetime.
func (w *Writer) Close() {
	w.mu.Lock()
	w.closed = true
	w.cond.Signal()
	w.mu.Unlock()
}

// NextCharsWritten returns and removes the oldest pending credit, or
// (0, false) if none is available.
func (w *Writer) NextCharsWritten() (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.credits) == 0 {
		return 0, false
	}
	n := w.credits[0]
	w.credits = w.credits[1:]
	return n, true
}

func (w *Writer) run() {
	for {
		w.mu.Lock()
		for len(w.pending) == 0 && !w.closed {
			w.cond.Wait()
		}
		if w.closed && len(w.pending) == 0 {
			w.mu.Unlock()
			return
		}
		s := w.pending[0]
		w.pending = w.pending[1:]
		w.mu.Unlock()

		if _, err := io.WriteString(w.dst, s); err != nil {
			// Treat as EOF for this direction: stop the worker. The
			// session's liveness check (platform.IsAlive) is what
			// ultimately causes the session to be reaped and "closed"
			// emitted; this goroutine has nothing further to contribute.
			return
		}

		w.mu.Lock()
		w.credits = append(w.credits, utf16len.Len(s))
		w.mu.Unlock()
		w.activity.Raise()
	}
}
