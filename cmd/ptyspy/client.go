// Command ptyspy is the diagnostic harness named in spec.md §1 as one of
// the "trivial... not specified" PTY helper tools: it spawns a ptymuxd
// server, creates one session for the argv given on its own command line,
// and renders that session's live output in a small full-screen viewer so
// a developer can watch the multiplexer work without a full GUI
// controller attached.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"sync"
)

// event mirrors the subset of internal/protocol's wire events this harness
// cares about. It is deliberately a standalone, loosely-typed copy rather
// than an import of internal/protocol's event structs:
// ptyspy is a client of ptymuxd's wire protocol, the same arm's-length
// relationship the controlling GUI terminal has to it (spec.md §1).
type event struct {
	Type  string `json:"type"`
	ID    int    `json:"id"`
	Data  string `json:"data"`
	Chars int    `json:"chars"`
}

// client drives one ptymuxd child process over its stdin/stdout pipes.
type client struct {
	cmd *exec.Cmd

	mu     sync.Mutex
	stdin  io.Writer
	events chan event
}

// startClient launches ptymuxdPath (a path, or a bare name looked up on
// PATH) as a child process and begins decoding its stdout event stream in
// the background.
func startClient(ptymuxdPath string) (*client, error) {
	cmd := exec.Command(ptymuxdPath)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("ptyspy: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ptyspy: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ptyspy: start ptymuxd: %w", err)
	}

	c := &client{cmd: cmd, stdin: stdin, events: make(chan event, 256)}
	go c.readEvents(stdout)
	return c, nil
}

func (c *client) readEvents(stdout io.Reader) {
	defer close(c.events)
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		var ev event
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			continue
		}
		c.events <- ev
	}
}

// send marshals v as one JSON line and writes it to ptymuxd's stdin.
func (c *client) send(v map[string]any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.stdin.Write(data)
	return err
}

func (c *client) createSession(argv []string, rows, columns int) error {
	return c.send(map[string]any{"type": "create", "argv": argv, "rows": rows, "columns": columns})
}

func (c *client) writeSession(id int, data string) error {
	return c.send(map[string]any{"type": "write", "id": id, "data": data})
}

func (c *client) resizeSession(id, rows, columns int) error {
	return c.send(map[string]any{"type": "resize", "id": id, "rows": rows, "columns": columns})
}

func (c *client) permitDataSize(id, size int) error {
	return c.send(map[string]any{"type": "permit-data-size", "id": id, "size": size})
}

func (c *client) terminate() error {
	return c.send(map[string]any{"type": "terminate"})
}

func (c *client) close() {
	c.cmd.Process.Kill()
	c.cmd.Wait()
}
