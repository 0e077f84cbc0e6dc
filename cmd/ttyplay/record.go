package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/ttyplay/internal/recorder"
)

func newRecordCmd() *cobra.Command {
	var command string
	var appendMode bool
	cmd := &cobra.Command{
		Use:   "record [flags] FILE",
		Short: "Record a terminal session into a ttyrec file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			argv, err := recordCommand(command)
			if err != nil {
				return err
			}
			flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			if appendMode {
				flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
			}
			f, err := os.OpenFile(args[0], flags, 0o644)
			if err != nil {
				return err
			}
			stats, err := recorder.Record(cmd.Context(), f, recorder.Options{
				Command: argv,
				In:      cmd.InOrStdin(),
				Out:     cmd.OutOrStdout(),
				Logger:  logger.With("file", args[0]),
			})
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			if stats.ExitCode != 0 {
				return fmt.Errorf("recorded command exited with status %d", stats.ExitCode)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&command, "command", "c", "", "command line to record (default $SHELL)")
	cmd.Flags().BoolVarP(&appendMode, "append", "a", false, "append to an existing recording")
	return cmd
}

// recordCommand splits a shell-style command line. An empty line leaves the
// choice of shell to the recorder.
func recordCommand(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}
	argv, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("parse command: %w", err)
	}
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	return argv, nil
}
