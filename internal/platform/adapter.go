// Package platform isolates the OS-specific halves of the PTY session:
// spawning a child under a controlling terminal, resizing it, terminating
// it, checking liveness without blocking the supervisor, and (on the one
// platform where it matters) fixing up PATH for a child that expects
// POSIX-style paths while running atop a Windows environment.
package platform

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"github.com/sedwards2009/ptymuxd/internal/activity"
)

// Child is a spawned PTY child process: the master side of the PTY plus the
// exec.Cmd handle needed for resize/terminate/liveness.
type Child struct {
	PTY *os.File
	cmd *exec.Cmd
	pid int

	alive atomic.Bool
}

// Spawn starts argv under a new PTY sized to (rows, columns) with the given
// environment (already merged by the caller — see protocol's create
// handler), and puts the PTY master into raw mode. Grounded on the
// teacher's Controller.StartProcess (internal/process/controller.go):
// pty.Start, pty.Setsize, then a background goroutine that reaps the child
// via cmd.Wait() so liveness checks never block the supervisor.
func Spawn(argv []string, rows, columns int, env []string, sig *activity.Signal) (*Child, error) {
	if len(argv) == 0 {
		return nil, errors.New("argv must not be empty")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = env

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(rows),
		Cols: uint16(columns),
	})
	if err != nil {
		return nil, fmt.Errorf("spawn: %w", err)
	}

	if err := setRawMode(ptmx); err != nil {
		log.Printf("spawn: failed to set PTY master to raw mode: %v", err)
	}

	c := &Child{PTY: ptmx, cmd: cmd, pid: cmd.Process.Pid}
	c.alive.Store(true)

	go func() {
		waitErr := cmd.Wait()
		log.Printf("process %d exited: %v", c.pid, waitErr)
		c.alive.Store(false)
		// Wake the supervisor so it reaps this session promptly even if no
		// reader/writer activity happens to signal around the same time.
		sig.Raise()
	}()

	return c, nil
}

// PID returns the spawned process's id.
func (c *Child) PID() int { return c.pid }

// Resize changes the PTY's window size.
func Resize(c *Child, rows, columns int) error {
	return pty.Setsize(c.PTY, &pty.Winsize{Rows: uint16(rows), Cols: uint16(columns)})
}

// IsAlive reports whether the child is still running. It never blocks: the
// actual wait4/waitpid happens once, in the background goroutine started by
// Spawn, so this is just an atomic load.
func IsAlive(c *Child) bool {
	return c.alive.Load()
}

// Terminate sends SIGHUP, then escalates to SIGKILL if the child has not
// exited shortly after — the "SIGHUP then SIGKILL" semantics spec.md §4.K
// calls for. It does not block: the escalation check runs on its own
// goroutine so the supervisor's dispatch of a terminate command returns
// immediately.
func Terminate(c *Child) {
	if c.cmd.Process == nil {
		return
	}
	if err := c.cmd.Process.Signal(syscall.SIGHUP); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Printf("process %d: SIGHUP failed: %v", c.pid, err)
	}

	go func() {
		time.Sleep(200 * time.Millisecond)
		if !IsAlive(c) {
			return
		}
		if err := c.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			log.Printf("process %d: SIGKILL failed: %v", c.pid, err)
		}
	}()
}
