package sshserver

import (
	"io"
)

const (
	clearScreen  = "\x1b[H\x1b[2J"
	restoreState = "\x1b[0m\x1b[?25h"
)

// screen brackets a playback on a viewer's terminal. Recordings may end with
// the cursor hidden or colours set, so the viewer gets both back on exit.
type screen struct {
	out io.Writer
}

func newScreen(out io.Writer) *screen {
	return &screen{out: out}
}

func (s *screen) Begin() error {
	_, err := io.WriteString(s.out, clearScreen)
	return err
}

func (s *screen) End() error {
	_, err := io.WriteString(s.out, restoreState)
	return err
}
