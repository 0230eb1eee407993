// Package nbio provides the background reader/writer workers that let the
// single-threaded supervisor loop drive many blocking file descriptors
// without ever blocking itself.
package nbio

import (
	"io"
	"sync"

	"github.com/sedwards2009/ptymuxd/internal/activity"
)

// ByteReader runs a dedicated goroutine that performs blocking reads on an
// underlying io.Reader in chunks of at most chunkSize bytes and at most the
// current permit, subject to a credit ("permit") valve: the goroutine
// blocks before each read while the permit is non-positive. This is the credit-based backpressure scheme described in
// spec.md §4.B — it lets the controller throttle a noisy PTY without
// requiring non-blocking I/O on the descriptor itself.
type ByteReader struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    [][]byte
	permit int
	eof    bool

	src       io.Reader
	chunkSize int
	activity  *activity.Signal
}

// NewByteReader starts a background reader over src. chunkSize bounds the
// size of each blocking Read call (and therefore each buffered chunk); the
// permit starts at 0 (valve closed) until PermitDataSize is called.
func NewByteReader(src io.Reader, chunkSize int, sig *activity.Signal) *ByteReader {
	r := &ByteReader{
		src:       src,
		chunkSize: chunkSize,
		activity:  sig,
	}
	r.cond = sync.NewCond(&r.mu)
	go r.run()
	return r
}

// Read returns the oldest buffered chunk and true, or (nil, false) if
// nothing is currently buffered. It never merges or splits chunks and never
// blocks.
func (r *ByteReader) Read() ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) == 0 {
		return nil, false
	}
	chunk := r.buf[0]
	r.buf = r.buf[1:]
	return chunk, true
}

// IsEOF reports whether the buffer is empty and the underlying source has
// signalled end of stream. Once true, it stays true.
func (r *ByteReader) IsEOF() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf) == 0 && r.eof
}

// PermitDataSize sets the permit to n. n > 0 opens the valve (the worker is
// allowed to perform reads, consuming from this budget as it goes); n <= 0
// closes it. The controller is expected to send absolute values, not
// deltas — this call always replaces the previous permit outright.
func (r *ByteReader) PermitDataSize(n int) {
	r.mu.Lock()
	r.permit = n
	if n > 0 {
		r.cond.Broadcast()
	}
	r.mu.Unlock()
}

func (r *ByteReader) run() {
	buf := make([]byte, r.chunkSize)
	for {
		r.mu.Lock()
		for r.permit <= 0 {
			r.cond.Wait()
		}
		want := len(buf)
		if r.permit < want {
			want = r.permit
		}
		r.mu.Unlock()

		n, err := r.src.Read(buf[:want])
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])

			r.mu.Lock()
			r.buf = append(r.buf, chunk)
			// The permit can still go negative if the controller lowered
			// it while this read was in progress; that is allowed (see
			// spec.md §3) and simply means the valve closes again until
			// the controller grants more.
			r.permit -= n
			r.mu.Unlock()
			r.activity.Raise()
		}
		if err != nil {
			// Any read error, including a genuine EOF, terminates this
			// reader. There is no retry; the controller owns recovery.
			r.mu.Lock()
			r.eof = true
			r.mu.Unlock()
			r.activity.Raise()
			return
		}
	}
}
