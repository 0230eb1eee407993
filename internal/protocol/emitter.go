package protocol

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Emitter serializes outbound events to the controller as one
// newline-terminated JSON object per line, flushed immediately — spec.md
// §4.I and §6. Grounded on the teacher's internal/ipc.Server.sendResponse
// (json.Marshal, append '\n', write under a lock), retargeted from a
// per-connection writer to the single shared stdout stream.
type Emitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEmitter wraps w (typically os.Stdout).
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Emit marshals ev and writes it as one flushed line. ev must be one of the
// event structs in this package (Created, Output, OutputWritten, Closed).
func (e *Emitter) Emit(ev any) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	data = append(data, '\n')

	e.mu.Lock()
	defer e.mu.Unlock()
	_, err = e.w.Write(data)
	return err
}
