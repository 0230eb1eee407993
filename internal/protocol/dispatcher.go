package protocol

import (
	"encoding/json"
	"log"

	"github.com/sedwards2009/ptymuxd/internal/activity"
	"github.com/sedwards2009/ptymuxd/internal/platform"
	"github.com/sedwards2009/ptymuxd/internal/ptysession"
	"github.com/sedwards2009/ptymuxd/internal/registry"
)

// Dispatcher parses one JSON command per call and mutates the session
// registry accordingly (spec.md §4.H). Grounded on ptyserver2.py's
// process_command dispatch table, generalized from Python's duck-typed
// dict access to a single optional-everything command struct.
type Dispatcher struct {
	reg       *registry.Registry
	emitter   *Emitter
	activity  *activity.Signal
	chunkSize int
}

// NewDispatcher builds a Dispatcher over the given registry/emitter/signal,
// using the default PTY chunk size (1024 bytes, spec.md §4.B). Use
// NewDispatcherWithChunkSize to override it from ambient configuration.
func NewDispatcher(reg *registry.Registry, emitter *Emitter, sig *activity.Signal) *Dispatcher {
	return NewDispatcherWithChunkSize(reg, emitter, sig, 1024)
}

// NewDispatcherWithChunkSize builds a Dispatcher whose created sessions read
// their PTY master in chunks of chunkSize bytes.
func NewDispatcherWithChunkSize(reg *registry.Registry, emitter *Emitter, sig *activity.Signal, chunkSize int) *Dispatcher {
	return &Dispatcher{reg: reg, emitter: emitter, activity: sig, chunkSize: chunkSize}
}

// Dispatch parses and acts on one line of input. It returns false only for
// a successfully-parsed terminate command — every other outcome (malformed
// JSON, unknown type, unknown id, missing field) is logged to standard
// error and otherwise ignored, per spec.md §7.
func (d *Dispatcher) Dispatch(line string) bool {
	var cmd command
	if err := json.Unmarshal([]byte(line), &cmd); err != nil {
		log.Printf("protocol: malformed command %q: %v", line, err)
		return true
	}

	switch cmd.Type {
	case cmdCreate:
		d.handleCreate(cmd)
	case cmdWrite:
		d.handleWrite(cmd)
	case cmdResize:
		d.handleResize(cmd)
	case cmdPermitDataSize:
		d.handlePermitDataSize(cmd)
	case cmdTerminate:
		return d.handleTerminate()
	default:
		log.Printf("protocol: unknown command type %q", cmd.Type)
	}
	return true
}

func (d *Dispatcher) handleCreate(cmd command) {
	if len(cmd.Argv) == 0 || cmd.Rows <= 0 || cmd.Columns <= 0 {
		log.Printf("protocol: create command missing required fields: %+v", cmd)
		return
	}

	env := platform.MergeEnv(cmd.Env, cmd.ExtraEnv)

	id := d.reg.NextID()
	sess, err := ptysession.Start(id, cmd.Argv, cmd.Rows, cmd.Columns, env, d.chunkSize, d.activity)
	if err != nil {
		// Spawn failure: no created event, no crash, just a log line
		// (spec.md §7's recommended graceful behavior, in place of the
		// original's exception-propagating one).
		log.Printf("protocol: failed to spawn session for %v: %v", cmd.Argv, err)
		return
	}

	d.reg.Insert(sess)
	if err := d.emitter.Emit(NewCreated(id)); err != nil {
		log.Printf("protocol: failed to emit created event: %v", err)
	}
}

func (d *Dispatcher) handleWrite(cmd command) {
	sess, ok := d.reg.Get(cmd.ID)
	if !ok {
		log.Printf("protocol: write for unknown session id %d", cmd.ID)
		return
	}
	sess.Writer.Write(cmd.Data)
}

func (d *Dispatcher) handleResize(cmd command) {
	if cmd.Rows <= 0 || cmd.Columns <= 0 {
		log.Printf("protocol: resize command missing required fields: %+v", cmd)
		return
	}
	sess, ok := d.reg.Get(cmd.ID)
	if !ok {
		log.Printf("protocol: resize for unknown session id %d", cmd.ID)
		return
	}
	if err := sess.Resize(cmd.Rows, cmd.Columns); err != nil {
		log.Printf("protocol: resize failed for session %d: %v", cmd.ID, err)
	}
}

func (d *Dispatcher) handlePermitDataSize(cmd command) {
	sess, ok := d.reg.Get(cmd.ID)
	if !ok {
		log.Printf("protocol: permit-data-size for unknown session id %d", cmd.ID)
		return
	}
	sess.PermitDataSize(cmd.Size)
}

func (d *Dispatcher) handleTerminate() bool {
	for _, sess := range d.reg.All() {
		sess.Terminate()
	}
	return false
}
