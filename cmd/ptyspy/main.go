package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

func main() {
	var ptymuxdPath string
	var raw bool
	flag.StringVar(&ptymuxdPath, "ptymuxd", "ptymuxd", "path to the ptymuxd binary to spawn")
	flag.BoolVar(&raw, "raw", false, "skip the TUI viewer and attach stdin/stdout directly to one session")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] -- argv...\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Spawns ptymuxd and creates one session running argv, for manual inspection.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	argv := flag.Args()
	if len(argv) == 0 {
		argv = []string{"/bin/sh"}
	}

	c, err := startClient(ptymuxdPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ptyspy:", err)
		os.Exit(1)
	}
	defer c.close()

	if raw {
		if err := runRaw(c, argv); err != nil {
			fmt.Fprintln(os.Stderr, "ptyspy:", err)
			os.Exit(1)
		}
		return
	}

	m := newModel(c)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if err := c.createSession(argv, 24, 80); err != nil {
		fmt.Fprintln(os.Stderr, "ptyspy: create session:", err)
		os.Exit(1)
	}
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "ptyspy:", err)
		os.Exit(1)
	}
}

// runRaw is the non-interactive counterpart to the bubbletea viewer: it
// puts the harness's own stdin into raw mode (golang.org/x/term, the same
// role the teacher's internal/process/pty.go MakeRawInput plays for its
// primary server's stdin) and pipes one session's bytes straight through,
// for scripting or for comparing against a real terminal emulator without
// the TUI layer in the way.
func runRaw(c *client, argv []string) error {
	fd := int(os.Stdin.Fd())
	var restore func()
	if term.IsTerminal(fd) {
		prev, err := term.MakeRaw(fd)
		if err != nil {
			return fmt.Errorf("set raw mode: %w", err)
		}
		restore = func() { term.Restore(fd, prev) }
		defer restore()
	}

	if err := c.createSession(argv, 24, 80); err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	var sessionID int
	for sessionID == 0 {
		ev, ok := <-c.events
		if !ok {
			return fmt.Errorf("ptymuxd exited before created event")
		}
		if ev.Type == "created" {
			sessionID = ev.ID
		}
	}
	c.permitDataSize(sessionID, 1<<20)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	g := new(errgroup.Group)

	g.Go(func() error {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				c.writeSession(sessionID, string(buf[:n]))
			}
			if err != nil {
				return nil
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case ev, ok := <-c.events:
				if !ok {
					return nil
				}
				switch ev.Type {
				case "output":
					os.Stdout.WriteString(ev.Data)
				case "closed":
					if ev.ID == sessionID {
						return nil
					}
				}
			case <-sigCh:
				c.terminate()
			}
		}
	})

	return g.Wait()
}
