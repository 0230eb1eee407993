package nbio

import (
	"bufio"
	"testing"

	"github.com/sedwards2009/ptymuxd/internal/activity"
)

func TestWriterCreditsUTF16Units(t *testing.T) {
	pr, pw := newPipe(t)
	sig := activity.New()
	w := NewWriter(pw, sig)

	w.Write("é")  // 1 UTF-16 unit
	w.Write("𝄞") // 2 UTF-16 units (surrogate pair)

	var got []int
	waitFor(t, func() bool {
		n, ok := w.NextCharsWritten()
		if ok {
			got = append(got, n)
		}
		return len(got) == 2
	})

	if got[0] != 1 || got[1] != 2 {
		t.Fatalf("got credits %v, want [1 2]", got)
	}

	pw.Close()
	br := bufio.NewReader(pr)
	line, _ := br.ReadString(0)
	if line == "" {
		t.Fatal("expected bytes to have reached the pipe")
	}
}

func TestWriterCloseDrainsPending(t *testing.T) {
	pr, pw := newPipe(t)
	_ = pr
	sig := activity.New()
	w := NewWriter(pw, sig)

	w.Write("abc")
	w.Close()

	waitFor(t, func() bool {
		n, ok := w.NextCharsWritten()
		return ok && n == 3
	})
}
