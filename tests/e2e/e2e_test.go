// Package e2e_test drives a real ptymuxd binary over its stdin/stdout wire
// protocol, exercising the end-to-end scenarios from spec.md §8 (E1-E7)
// against the actual server process rather than its internal packages.
package e2e_test

import (
	"bufio"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"
)

var (
	buildOnce  sync.Once
	buildPath  string
	buildErr   error
	moduleRoot string
)

func init() {
	_, file, _, ok := runtime.Caller(0)
	if ok {
		moduleRoot = filepath.Join(filepath.Dir(file), "..", "..")
	}
}

// binary returns the path to a ptymuxd binary built once per test process.
func binary(t testing.TB) string {
	t.Helper()
	buildOnce.Do(func() {
		dir, err := os.MkdirTemp("", "ptymuxd-e2e-bin-*")
		if err != nil {
			buildErr = err
			return
		}
		buildPath = filepath.Join(dir, "ptymuxd")
		cmd := exec.Command("go", "build", "-o", buildPath, "./cmd/ptymuxd")
		cmd.Dir = moduleRoot
		cmd.Env = os.Environ()
		if out, err := cmd.CombinedOutput(); err != nil {
			buildErr = err
			t.Logf("build output: %s", out)
		}
	})
	if buildErr != nil {
		t.Fatalf("failed to build ptymuxd: %v", buildErr)
	}
	return buildPath
}

// harness wraps a running ptymuxd process, its JSON-line stdin writer, and
// a background goroutine draining decoded stdout events into a channel.
type harness struct {
	t      testing.TB
	cmd    *exec.Cmd
	stdin  *bufio.Writer
	events chan map[string]any
}

func startHarness(t testing.TB) *harness {
	t.Helper()
	cmd := exec.Command(binary(t))
	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.Fatal(err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.Fatal(err)
	}
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start ptymuxd: %v", err)
	}

	h := &harness{t: t, cmd: cmd, stdin: bufio.NewWriter(stdin), events: make(chan map[string]any, 256)}

	go func() {
		sc := bufio.NewScanner(stdout)
		sc.Buffer(make([]byte, 64*1024), 1<<20)
		for sc.Scan() {
			var m map[string]any
			if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
				continue
			}
			h.events <- m
		}
		close(h.events)
	}()

	t.Cleanup(func() {
		cmd.Process.Kill()
		cmd.Wait()
	})

	return h
}

func (h *harness) send(v map[string]any) {
	h.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		h.t.Fatal(err)
	}
	h.stdin.Write(data)
	h.stdin.WriteByte('\n')
	if err := h.stdin.Flush(); err != nil {
		h.t.Fatal(err)
	}
}

// next waits for the next event of any of the given types (ignoring any
// others in between), or fails the test after timeout.
func (h *harness) next(timeout time.Duration, types ...string) map[string]any {
	h.t.Helper()
	deadline := time.After(timeout)
	want := map[string]bool{}
	for _, ty := range types {
		want[ty] = true
	}
	for {
		select {
		case ev, ok := <-h.events:
			if !ok {
				h.t.Fatalf("event stream closed while waiting for %v", types)
			}
			if len(want) == 0 || want[ev["type"].(string)] {
				return ev
			}
		case <-deadline:
			h.t.Fatalf("timed out waiting for one of %v", types)
		}
	}
}

// TestE1EchoRoundTrip sends create + permit-data-size for `echo hi` and
// checks the created/output/closed sequence and concatenated payload.
func TestE1EchoRoundTrip(t *testing.T) {
	h := startHarness(t)

	h.send(map[string]any{"type": "create", "argv": []string{"/bin/echo", "hi"}, "rows": 24, "columns": 80})
	created := h.next(5*time.Second, "created")
	if created["id"] != float64(1) {
		t.Fatalf("expected id 1, got %v", created)
	}

	h.send(map[string]any{"type": "permit-data-size", "id": 1, "size": 1048576})

	var data string
	for {
		ev := h.next(5*time.Second, "output", "closed")
		if ev["type"] == "output" {
			data += ev["data"].(string)
			continue
		}
		break
	}
	if data != "hi\n" {
		t.Fatalf("expected concatenated output %q, got %q", "hi\n", data)
	}
}

// TestE2NonASCIICreditIsUTF16Units checks that writing "é" (one UTF-16
// code unit) produces chars:1, not its UTF-8 byte length of 2.
func TestE2NonASCIICreditIsUTF16Units(t *testing.T) {
	h := startHarness(t)
	h.send(map[string]any{"type": "create", "argv": []string{"/bin/cat"}, "rows": 24, "columns": 80})
	h.next(5*time.Second, "created")
	h.send(map[string]any{"type": "write", "id": 1, "data": "é"})

	ev := h.next(5*time.Second, "output-written")
	if ev["chars"] != float64(1) {
		t.Fatalf("expected chars:1 for a BMP character, got %v", ev)
	}
}

// TestE3SurrogatePairCreditIsTwo checks U+1D11E (outside the BMP) costs 2
// UTF-16 code units, not 1 code point.
func TestE3SurrogatePairCreditIsTwo(t *testing.T) {
	h := startHarness(t)
	h.send(map[string]any{"type": "create", "argv": []string{"/bin/cat"}, "rows": 24, "columns": 80})
	h.next(5*time.Second, "created")
	h.send(map[string]any{"type": "write", "id": 1, "data": "\U0001D11E"})

	ev := h.next(5*time.Second, "output-written")
	if ev["chars"] != float64(2) {
		t.Fatalf("expected chars:2 for a non-BMP character, got %v", ev)
	}
}

// TestE5TerminateClosesEverySession sends terminate and expects a closed
// event per open session plus a clean process exit.
func TestE5TerminateClosesEverySession(t *testing.T) {
	h := startHarness(t)
	h.send(map[string]any{"type": "create", "argv": []string{"/bin/sleep", "30"}, "rows": 24, "columns": 80})
	h.next(5*time.Second, "created")
	h.send(map[string]any{"type": "create", "argv": []string{"/bin/sleep", "30"}, "rows": 24, "columns": 80})
	h.next(5*time.Second, "created")

	h.send(map[string]any{"type": "terminate"})

	closed := map[float64]bool{}
	for len(closed) < 2 {
		ev := h.next(5*time.Second, "closed")
		closed[ev["id"].(float64)] = true
	}

	done := make(chan error, 1)
	go func() { done <- h.cmd.Wait() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit after terminate")
	}
}

// TestE6UnknownSessionIDIgnored sends a write for a session id that was
// never created and expects no event and no crash.
func TestE6UnknownSessionIDIgnored(t *testing.T) {
	h := startHarness(t)
	h.send(map[string]any{"type": "write", "id": 999, "data": "x"})

	select {
	case ev, ok := <-h.events:
		if ok {
			t.Fatalf("expected no event for an unknown session id, got %v", ev)
		}
	case <-time.After(300 * time.Millisecond):
		// No event arrived before the timeout: the expected outcome.
	}

	h.send(map[string]any{"type": "create", "argv": []string{"/bin/echo", "alive"}, "rows": 24, "columns": 80})
	h.next(5*time.Second, "created")
}

// TestE7MalformedLineIgnored sends a syntactically invalid line and
// expects the server to keep running and accept a subsequent good command.
func TestE7MalformedLineIgnored(t *testing.T) {
	h := startHarness(t)
	h.stdin.WriteString("{not json\n")
	h.stdin.Flush()

	h.send(map[string]any{"type": "create", "argv": []string{"/bin/echo", "ok"}, "rows": 24, "columns": 80})
	created := h.next(5*time.Second, "created")
	if created["id"] != float64(1) {
		t.Fatalf("expected session to still be created after a malformed line, got %v", created)
	}
}

// TestE4BackpressureLimitsChunk sets a small permit and checks no further
// output arrives until another permit-data-size is issued.
func TestE4BackpressureLimitsChunk(t *testing.T) {
	h := startHarness(t)
	h.send(map[string]any{"type": "create", "argv": []string{"/bin/cat"}, "rows": 24, "columns": 80})
	h.next(5*time.Second, "created")

	h.send(map[string]any{"type": "permit-data-size", "id": 1, "size": 4})
	h.send(map[string]any{"type": "write", "id": 1, "data": "0123456789012345678901234567890123456789"})

	ev := h.next(5*time.Second, "output")
	if len(ev["data"].(string)) > 4 {
		t.Fatalf("expected at most 4 bytes decoded under a permit of 4, got %q", ev["data"])
	}

	select {
	case ev, ok := <-h.events:
		if ok && ev["type"] == "output" {
			t.Fatalf("expected no further output before another permit-data-size, got %v", ev)
		}
	case <-time.After(300 * time.Millisecond):
	}
}
