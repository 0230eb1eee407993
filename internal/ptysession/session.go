// Package ptysession implements the PTY Session component (spec.md §4.F):
// one running child process plus the reader, writer, and decoder attached
// to its PTY master.
package ptysession

import (
	"github.com/sedwards2009/ptymuxd/internal/activity"
	"github.com/sedwards2009/ptymuxd/internal/nbio"
	"github.com/sedwards2009/ptymuxd/internal/platform"
	"github.com/sedwards2009/ptymuxd/internal/utf8stream"
)

// Session owns one spawned child and the plumbing attached to its PTY:
// a credit-gated byte reader, a crediting writer, and a per-session
// incremental UTF-8 decoder. Grounded on the teacher's
// internal/process.Instance, generalized from a tmux-attached, scrollback
// -buffered process to a session whose output is relayed as protocol
// events instead.
type Session struct {
	ID int

	child   *platform.Child
	Reader  *nbio.ByteReader
	Writer  *nbio.Writer
	Decoder *utf8stream.Decoder
}

// Start spawns argv under a new PTY and wires up its reader/writer/decoder.
// chunkSize bounds each blocking read on the PTY master (spec.md §4.B: "for
// real PTYs, at most 1024 bytes — a tunable per instance").
func Start(id int, argv []string, rows, columns int, env []string, chunkSize int, sig *activity.Signal) (*Session, error) {
	child, err := platform.Spawn(argv, rows, columns, env, sig)
	if err != nil {
		return nil, err
	}

	return &Session{
		ID:      id,
		child:   child,
		Reader:  nbio.NewByteReader(child.PTY, chunkSize, sig),
		Writer:  nbio.NewWriter(child.PTY, sig),
		Decoder: utf8stream.New(),
	}, nil
}

// Resize changes the PTY's window size.
func (s *Session) Resize(rows, columns int) error {
	return platform.Resize(s.child, rows, columns)
}

// Terminate asks the child to exit (SIGHUP, escalating to SIGKILL) and
// opens the reader's valve wide so any output already sitting in the
// kernel's PTY buffer can still drain out as `output` events before the
// session is reaped.
func (s *Session) Terminate() {
	platform.Terminate(s.child)
	s.Reader.PermitDataSize(1 << 30)
}

// IsAlive reports whether the child process is still running.
func (s *Session) IsAlive() bool {
	return platform.IsAlive(s.child)
}

// PermitDataSize forwards to the session's reader.
func (s *Session) PermitDataSize(n int) {
	s.Reader.PermitDataSize(n)
}

// Close releases the session's PTY master file descriptor. Call only after
// the child has been observed non-alive.
func (s *Session) Close() error {
	s.Writer.Close()
	return s.child.PTY.Close()
}
