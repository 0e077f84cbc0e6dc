// Package termmode switches a terminal to single-keystroke input without echo
// for the duration of playback.
package termmode

import (
	"sync"

	"golang.org/x/term"
)

// Mode remembers the terminal settings to restore.
type Mode struct {
	fd      int
	restore func() error
	once    sync.Once
	err     error
}

// Enable turns off canonical input and echo on fd. Non-terminals are left
// alone and yield an inactive Mode.
func Enable(fd int) (*Mode, error) {
	if !term.IsTerminal(fd) {
		return &Mode{fd: fd}, nil
	}
	restore, err := enable(fd)
	if err != nil {
		return nil, err
	}
	return &Mode{fd: fd, restore: restore}, nil
}

// Active reports whether Enable changed the terminal.
func (m *Mode) Active() bool {
	return m != nil && m.restore != nil
}

// Restore puts back the saved settings. It is safe to call more than once.
func (m *Mode) Restore() error {
	if !m.Active() {
		return nil
	}
	m.once.Do(func() {
		m.err = m.restore()
	})
	return m.err
}
