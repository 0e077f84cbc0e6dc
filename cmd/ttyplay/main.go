package main

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pkt.systems/psi"
	"pkt.systems/pslog"
)

func main() {
	psi.Run(submain)
}

func submain(ctx context.Context) int {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvWriter(os.Stderr),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeConsole}),
	)
	ctx = pslog.ContextWithLogger(ctx, logger)
	log.SetOutput(pslog.LogLogger(logger).Writer())
	log.SetFlags(0)

	args := applyArgv0Alias(os.Args)
	root := newRootCmd()
	root.SetArgs(args[1:])

	if err := root.ExecuteContext(ctx); err != nil {
		pslog.Ctx(ctx).With("err", err).Error("ttyplay command failed")
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &playOptions{}
	root := &cobra.Command{
		Use:   "ttyplay [flags] [FILE...]",
		Short: "Replay ttyrec terminal recordings with seeking",
		Long: `Replay ttyrec recordings with their original timing.

Keys: + and - double or halve the speed, 1 resets it, p pauses, q quits.
With files: f/d next or previous file, c/x next or previous screen clear,
arrows, PgUp/PgDn, Home and End seek.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, opts, args)
		},
	}
	bindPlayFlags(root, opts)

	root.AddCommand(newPlayCmd())
	root.AddCommand(newIndexCmd())
	root.AddCommand(newRecordCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func argv0Alias(base string) string {
	switch base {
	case "ttyrec":
		return "record"
	case "ttyplay-serve":
		return "serve"
	default:
		return ""
	}
}

func applyArgv0Alias(args []string) []string {
	if len(args) == 0 {
		return args
	}
	alias := argv0Alias(filepath.Base(args[0]))
	if alias == "" {
		return args
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, args[0], alias)
	out = append(out, args[1:]...)
	return out
}
