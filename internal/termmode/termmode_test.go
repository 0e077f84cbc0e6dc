package termmode

import (
	"os"
	"testing"
)

func TestEnableOnNonTerminalIsNoop(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "not-a-tty")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer func() { _ = f.Close() }()
	m, err := Enable(int(f.Fd()))
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	if m.Active() {
		t.Fatalf("expected inactive mode for a regular file")
	}
	if err := m.Restore(); err != nil {
		t.Fatalf("restore: %v", err)
	}
	var nilMode *Mode
	if err := nilMode.Restore(); err != nil {
		t.Fatalf("nil restore: %v", err)
	}
}
