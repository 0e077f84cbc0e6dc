// Package recorder captures a command running on a pseudo-terminal into a
// ttyrec stream.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
	"golang.org/x/term"
	"pkt.systems/pslog"
	"pkt.systems/ttyplay/internal/ttyrec"
)

// Options configures a recording.
type Options struct {
	// Command is the program and arguments to run. Defaults to $SHELL.
	Command []string
	Env     []string
	// In is forwarded to the command. When it is a terminal it is put in raw
	// mode and its window size is mirrored onto the pty.
	In io.Reader
	// Out receives a live copy of the command output. May be nil.
	Out    io.Writer
	Now    func() time.Time
	Logger pslog.Logger
}

// Stats summarizes a finished recording.
type Stats struct {
	Records  int
	Bytes    int64
	Duration time.Duration
	ExitCode int
}

// Record runs the command and writes its output to dst as ttyrec records
// stamped with wall-clock time. A non-zero exit status is reported in Stats,
// not as an error.
func Record(ctx context.Context, dst io.Writer, opts Options) (Stats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	args := opts.Command
	if len(args) == 0 {
		shell := os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		args = []string{shell}
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = append(os.Environ(), opts.Env...)
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return Stats{}, fmt.Errorf("start %s: %w", args[0], err)
	}
	defer func() { _ = ptmx.Close() }()
	logger.Info("recording started", "command", args[0], "pid", cmd.Process.Pid)

	if in, ok := opts.In.(*os.File); ok && term.IsTerminal(int(in.Fd())) {
		if err := pty.InheritSize(in, ptmx); err != nil {
			logger.Warn("pty resize failed", "err", err)
		}
		stop := watchResize(in, ptmx, logger)
		defer stop()
		state, err := term.MakeRaw(int(in.Fd()))
		if err != nil {
			return Stats{}, fmt.Errorf("raw mode: %w", err)
		}
		defer func() { _ = term.Restore(int(in.Fd()), state) }()
	}
	if opts.In != nil {
		go func() { _, _ = io.Copy(ptmx, opts.In) }()
	}

	start := now()
	w := ttyrec.NewWriter(dst)
	var stats Stats
	buf := make([]byte, ttyrec.DefaultMaxPayload)
	for {
		n, rerr := ptmx.Read(buf)
		if n > 0 {
			if err := w.WriteRecord(ttyrec.FromTime(now()), buf[:n]); err != nil {
				_ = cmd.Process.Kill()
				_ = cmd.Wait()
				return stats, fmt.Errorf("write record: %w", err)
			}
			stats.Records++
			stats.Bytes += int64(n)
			if opts.Out != nil {
				_, _ = opts.Out.Write(buf[:n])
			}
		}
		if rerr != nil {
			// The pty master reports EIO once the child side is closed.
			break
		}
	}
	err = cmd.Wait()
	stats.Duration = now().Sub(start)
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		stats.ExitCode = exitErr.ExitCode()
	default:
		return stats, fmt.Errorf("wait %s: %w", args[0], err)
	}
	logger.Info("recording finished", "records", stats.Records, "bytes", stats.Bytes, "duration", stats.Duration, "exit_code", stats.ExitCode)
	return stats, nil
}
