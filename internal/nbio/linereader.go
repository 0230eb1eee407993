package nbio

import (
	"bufio"
	"io"
	"sync"

	"github.com/sedwards2009/ptymuxd/internal/activity"
)

// LineReader is a NonblockingFileReader variant used solely for the control
// channel: the valve is permanently open (there is no credit scheme for
// control input — it is cheap and line-delimited) and each buffered unit is
// one complete line, newline included.
type LineReader struct {
	mu  sync.Mutex
	buf []string
	eof bool

	src      *bufio.Reader
	activity *activity.Signal
}

// NewLineReader starts a background reader over src, delimiting on '\n'.
func NewLineReader(src io.Reader, sig *activity.Signal) *LineReader {
	return NewLineReaderSize(src, sig, 0)
}

// NewLineReaderSize is NewLineReader with an explicit internal bufio.Reader
// buffer size (bufferSize <= 0 uses bufio's default).
func NewLineReaderSize(src io.Reader, sig *activity.Signal, bufferSize int) *LineReader {
	br := bufio.NewReader(src)
	if bufferSize > 0 {
		br = bufio.NewReaderSize(src, bufferSize)
	}
	r := &LineReader{
		src:      br,
		activity: sig,
	}
	go r.run()
	return r
}

// Read returns the oldest buffered line and true, or ("", false) if none is
// currently available. Never blocks.
func (r *LineReader) Read() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.buf) == 0 {
		return "", false
	}
	line := r.buf[0]
	r.buf = r.buf[1:]
	return line, true
}

// IsEOF reports whether the buffer is empty and the source has reached end
// of stream.
func (r *LineReader) IsEOF() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buf) == 0 && r.eof
}

// PermitDataSize is a no-op for LineReader: the control channel's valve is
// always open, per spec.md §4.C.
func (r *LineReader) PermitDataSize(int) {}

func (r *LineReader) run() {
	for {
		line, err := r.src.ReadString('\n')
		if len(line) > 0 {
			r.mu.Lock()
			r.buf = append(r.buf, line)
			r.mu.Unlock()
			r.activity.Raise()
		}
		if err != nil {
			r.mu.Lock()
			r.eof = true
			r.mu.Unlock()
			r.activity.Raise()
			return
		}
	}
}
