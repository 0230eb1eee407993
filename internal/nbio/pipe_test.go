package nbio

import (
	"os"
	"testing"
)

// newPipe returns a connected (*os.File, *os.File) read/write pair,
// following the teacher's preference (internal/process/controller_test.go)
// for exercising real OS-level file descriptors over interface fakes.
func newPipe(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	t.Cleanup(func() {
		r.Close()
		w.Close()
	})
	return r, w
}
