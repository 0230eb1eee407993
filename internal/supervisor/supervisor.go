// Package supervisor implements the Supervisor Loop (spec.md §4.J): the
// single-threaded heart of the server, the only component that touches the
// session registry.
package supervisor

import (
	"strings"

	"github.com/sedwards2009/ptymuxd/internal/activity"
	"github.com/sedwards2009/ptymuxd/internal/nbio"
	"github.com/sedwards2009/ptymuxd/internal/protocol"
	"github.com/sedwards2009/ptymuxd/internal/ptysession"
	"github.com/sedwards2009/ptymuxd/internal/registry"
)

// Supervisor ties the Activity Signal, the control line reader, the
// Command Dispatcher, the Session Registry, and the Event Emitter
// together. Grounded on ptyserver2.py's main(): WaitOnIOActivity, drain
// control input with priority, one chunk per PTY per pass, drain credits,
// reap dead sessions, repeat while there is more work.
type Supervisor struct {
	activity   *activity.Signal
	control    *nbio.LineReader
	dispatcher *protocol.Dispatcher
	registry   *registry.Registry
	emitter    *protocol.Emitter

	running bool
}

// New builds a Supervisor. control is typically a LineReader over os.Stdin.
func New(sig *activity.Signal, control *nbio.LineReader, dispatcher *protocol.Dispatcher, reg *registry.Registry, emitter *protocol.Emitter) *Supervisor {
	return &Supervisor{
		activity:   sig,
		control:    control,
		dispatcher: dispatcher,
		registry:   reg,
		emitter:    emitter,
		running:    true,
	}
}

// Run blocks until shutdown is complete: either the control channel hit
// EOF, or a terminate command was dispatched, and every registered session
// has since been reaped. Per spec.md §9's resolution of the "running
// propagation" open question, control input stops being accepted the
// moment either trigger fires, but existing sessions keep draining their
// output and credits, and get a closed event, before the loop exits — so
// spec.md §8 property 1 (every session's event sequence ends with closed)
// holds even for a terminate-triggered shutdown.
func (s *Supervisor) Run() {
	for {
		if !s.running && s.registry.Len() == 0 {
			return
		}

		s.activity.Wait()

		for {
			worked := s.drainControl()
			worked = s.drainSessions() || worked
			worked = s.reapSessions() || worked
			if !worked {
				break
			}
		}

		if !s.running && s.registry.Len() == 0 {
			return
		}
	}
}

func (s *Supervisor) drainControl() bool {
	if !s.running {
		return false
	}

	worked := false
	if s.control.IsEOF() {
		s.running = false
	}

	for {
		line, ok := s.control.Read()
		if !ok {
			break
		}
		worked = true
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			continue
		}
		if !s.dispatcher.Dispatch(trimmed) {
			s.running = false
			break
		}
	}
	return worked
}

func (s *Supervisor) drainSessions() bool {
	worked := false
	for _, sess := range s.registry.All() {
		// One chunk per session per pass: this is the fairness mechanism
		// (spec.md §4.J, §9) — draining a reader fully before moving on
		// would let one noisy session starve the others.
		if chunk, ok := sess.Reader.Read(); ok {
			data := sess.Decoder.Decode(chunk)
			s.emitter.Emit(protocol.NewOutput(sess.ID, data))
			worked = true
		}

		total := 0
		any := false
		for {
			n, ok := sess.Writer.NextCharsWritten()
			if !ok {
				break
			}
			total += n
			any = true
			worked = true
		}
		if any && total != 0 {
			s.emitter.Emit(protocol.NewOutputWritten(sess.ID, total))
		}
	}
	return worked
}

func (s *Supervisor) reapSessions() bool {
	worked := false
	// Snapshot before iterating: Remove mutates the registry's backing
	// slice in place, and ranging directly over s.registry.All() while
	// calling Remove from inside the loop body corrupts the in-progress
	// range (a removed element shifts later elements down into indices
	// the range has not visited yet, or re-visits them).
	for _, sess := range append([]*ptysession.Session(nil), s.registry.All()...) {
		if sess.IsAlive() {
			continue
		}
		// Drain any last buffered output before closing the session's
		// descriptors, so trailing bytes the child wrote just before
		// exiting are not silently dropped.
		for {
			chunk, ok := sess.Reader.Read()
			if !ok {
				break
			}
			data := sess.Decoder.Decode(chunk)
			s.emitter.Emit(protocol.NewOutput(sess.ID, data))
		}

		s.registry.Remove(sess.ID)
		sess.Close()
		s.emitter.Emit(protocol.NewClosed(sess.ID))
		worked = true
	}
	return worked
}
