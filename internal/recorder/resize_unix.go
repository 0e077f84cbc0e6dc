//go:build !windows

package recorder

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/creack/pty"
	"pkt.systems/pslog"
)

func watchResize(tty, ptmx *os.File, logger pslog.Logger) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ch:
				if err := pty.InheritSize(tty, ptmx); err != nil {
					logger.Warn("pty resize failed", "err", err)
				}
			}
		}
	}()
	return func() {
		signal.Stop(ch)
		close(done)
	}
}
