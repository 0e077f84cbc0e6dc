//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package termmode

import "golang.org/x/term"

// Without termios the closest mode is raw input.
func enable(fd int) (func() error, error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() error { return term.Restore(fd, state) }, nil
}
