package platform

import (
	"bufio"
	"testing"
	"time"

	"github.com/sedwards2009/ptymuxd/internal/activity"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSpawnEchoAndReap(t *testing.T) {
	sig := activity.New()
	c, err := Spawn([]string{"/bin/echo", "hi"}, 24, 80, MergeEnv(nil, nil), sig)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer c.PTY.Close()

	br := bufio.NewReader(c.PTY)
	line, _ := br.ReadString('\n')
	if line != "hi\r\n" && line != "hi\n" {
		t.Fatalf("got %q", line)
	}

	waitFor(t, func() bool { return !IsAlive(c) })
}

func TestTerminateKillsLongRunningChild(t *testing.T) {
	sig := activity.New()
	c, err := Spawn([]string{"/bin/sleep", "30"}, 24, 80, MergeEnv(nil, nil), sig)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	defer c.PTY.Close()

	if !IsAlive(c) {
		t.Fatal("expected child to be alive immediately after spawn")
	}

	Terminate(c)
	waitFor(t, func() bool { return !IsAlive(c) })
}
