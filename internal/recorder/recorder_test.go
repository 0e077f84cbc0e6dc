package recorder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"

	"pkt.systems/ttyplay/internal/ttyrec"
)

func TestRecordCapturesOutput(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	clock := time.Unix(1700000000, 0)
	var dst bytes.Buffer
	stats, err := Record(context.Background(), &dst, Options{
		Command: []string{"sh", "-c", "printf hello; exit 3"},
		In:      strings.NewReader(""),
		Now: func() time.Time {
			clock = clock.Add(250 * time.Millisecond)
			return clock
		},
	})
	if err != nil {
		if strings.Contains(err.Error(), "start sh") {
			t.Skipf("pty unavailable: %v", err)
		}
		t.Fatalf("record: %v", err)
	}
	if stats.ExitCode != 3 {
		t.Fatalf("expected exit code 3, got %d", stats.ExitCode)
	}

	r := ttyrec.NewReader(&dst)
	var out bytes.Buffer
	var prev ttyrec.Timeval
	n := 0
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("read back: %v", err)
		}
		if n > 0 && rec.Time.Less(prev) {
			t.Fatalf("timestamps went backwards: %v after %v", rec.Time, prev)
		}
		prev = rec.Time
		out.Write(rec.Payload)
		n++
	}
	if n != stats.Records || !strings.Contains(out.String(), "hello") {
		t.Fatalf("unexpected recording: %d records (stats %d), output %q", n, stats.Records, out.String())
	}
}
