//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package termmode

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func enable(fd int) (func() error, error) {
	saved, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		return nil, fmt.Errorf("termmode: read termios: %w", err)
	}
	mode := *saved
	mode.Lflag &^= unix.ICANON | unix.ECHO | unix.ECHONL
	mode.Cc[unix.VMIN] = 1
	mode.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, &mode); err != nil {
		return nil, fmt.Errorf("termmode: set termios: %w", err)
	}
	return func() error {
		if err := unix.IoctlSetTermios(fd, ioctlSetTermios, saved); err != nil {
			return fmt.Errorf("termmode: restore termios: %w", err)
		}
		return nil
	}, nil
}
