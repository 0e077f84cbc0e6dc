package main

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/pslog"
	"pkt.systems/ttyplay/internal/appconfig"
	"pkt.systems/ttyplay/internal/bookmark"
	"pkt.systems/ttyplay/internal/index"
	"pkt.systems/ttyplay/internal/player"
	"pkt.systems/ttyplay/internal/seek"
	"pkt.systems/ttyplay/internal/tail"
	"pkt.systems/ttyplay/internal/termmode"
)

// controlTTY is where keys are read from when stdin carries the recording.
var controlTTY = "/dev/tty"

type playOptions struct {
	cfgPath string
	speed   float64
	noWait  bool
	peek    bool
	resume  bool
}

func bindPlayFlags(cmd *cobra.Command, o *playOptions) {
	flags := cmd.Flags()
	flags.StringVarP(&o.cfgPath, "config", "c", "", "path to config file")
	flags.Float64VarP(&o.speed, "speed", "s", 1, "playback speed multiplier; negative starts paused")
	flags.BoolVarP(&o.noWait, "no-wait", "n", false, "ignore recorded delays")
	flags.BoolVarP(&o.peek, "peek", "p", false, "follow a recording that is still being written")
	flags.BoolVar(&o.resume, "resume", false, "continue from the saved position")
}

func newPlayCmd() *cobra.Command {
	opts := &playOptions{}
	cmd := &cobra.Command{
		Use:   "play [flags] [FILE...]",
		Short: "Play recordings (stdin when no files are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, opts, args)
		},
	}
	bindPlayFlags(cmd, opts)
	return cmd
}

func runPlay(cmd *cobra.Command, o *playOptions, args []string) error {
	logger := pslog.Ctx(cmd.Context())
	cfg, err := appconfig.Load(o.cfgPath)
	if err != nil {
		return err
	}
	speedSet := cmd.Flags().Changed("speed")
	speed := cfg.Playback.Speed
	if speedSet {
		speed = o.speed
	}
	if err := player.CheckSpeed(speed); err != nil {
		return err
	}
	if o.peek && len(args) != 1 {
		return errors.New("peek follows exactly one file")
	}
	if o.resume && len(args) == 0 {
		return errors.New("resume needs recording files")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	keys, closeKeys := openKeys(ctx, len(args) == 0, cmd.InOrStdin(), logger)
	defer closeKeys()

	opts := player.Options{
		Speed:        speed,
		NoWait:       o.noWait || o.peek,
		Controls:     cfg.Playback.Controls(),
		PollInterval: cfg.Playback.PollInterval(),
		Logger:       logger,
	}
	out := cmd.OutOrStdout()
	switch {
	case o.peek:
		return ignoreInterrupt(peek(ctx, args[0], out, keys, opts, cfg))
	case len(args) == 0:
		src := player.NewStream(cmd.InOrStdin(), cfg.Playback.MaxRecordBytes)
		return ignoreInterrupt(player.New(src, out, keys, opts).Run(ctx))
	}
	return playFiles(ctx, args, out, keys, opts, cfg, o.resume, speedSet)
}

// openKeys starts reading keys from the terminal in cbreak mode. Without a
// usable terminal it returns a nil channel.
func openKeys(ctx context.Context, stdinIsData bool, stdin io.Reader, logger pslog.Logger) (<-chan byte, func()) {
	src, err := os.Open(controlTTY)
	owned := err == nil
	if err != nil {
		f, ok := stdin.(*os.File)
		if stdinIsData || !ok || !term.IsTerminal(int(f.Fd())) {
			logger.Debug("playback without keyboard", "err", err)
			return nil, func() {}
		}
		src = f
	}
	mode, err := termmode.Enable(int(src.Fd()))
	if err != nil {
		logger.Warn("terminal mode unavailable", "err", err)
	}
	keys := make(chan byte, 64)
	go player.ReadKeys(ctx, src, keys)
	return keys, func() {
		if err := mode.Restore(); err != nil {
			logger.Warn("terminal restore failed", "err", err)
		}
		if owned {
			_ = src.Close()
		}
	}
}

func peek(ctx context.Context, path string, out io.Writer, keys <-chan byte, opts player.Options, cfg appconfig.Config) error {
	f, err := tail.Open(ctx, path, tail.Options{MaxPayload: cfg.Playback.MaxRecordBytes, Logger: opts.Logger})
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	skipped, err := f.Skip()
	if err != nil {
		return err
	}
	opts.Logger.Debug("peek following", "file", path, "skipped", skipped)
	return player.New(f, out, keys, opts).Run(ctx)
}

func playFiles(ctx context.Context, paths []string, out io.Writer, keys <-chan byte, opts player.Options, cfg appconfig.Config, resume, speedSet bool) error {
	logger := opts.Logger
	ix, err := index.Build(ctx, paths, index.Options{
		Marker:     []byte(cfg.Playback.Marker),
		MaxPayload: cfg.Playback.MaxRecordBytes,
		Logger:     logger,
	})
	if err != nil {
		return err
	}
	store, err := bookmark.NewStore(filepath.Join(cfg.StateDir, "bookmarks"), logger)
	if err != nil {
		return err
	}

	var start *bookmark.Bookmark
	if resume {
		bm, ok, err := store.Load(paths)
		if err != nil {
			return err
		}
		if ok {
			start = &bm
			if !speedSet && bm.Speed != 0 {
				opts.Speed = math.Abs(bm.Speed)
			}
		}
	}

	cur := seek.NewCursor(ctx, ix, seek.Options{MaxPayload: cfg.Playback.MaxRecordBytes, Logger: logger})
	defer func() { _ = cur.Close() }()
	p := player.New(cur, out, keys, opts)
	if start != nil {
		logger.Info("resuming playback", "elapsed", start.Elapsed().String(), "segment", start.Segment)
		p.Queue(player.Request{Kind: player.RequestSeekTo, Target: start.Elapsed()})
	}

	runErr := p.Run(ctx)
	interrupted := errors.Is(runErr, context.Canceled)
	if runErr != nil && !interrupted {
		return runErr
	}
	st := p.State()
	if st.Quit || interrupted {
		err := store.Save(bookmark.Bookmark{
			Paths:         paths,
			ElapsedMicros: st.Elapsed.Micros(),
			Segment:       st.Segment,
			Landmark:      st.Landmark,
			Speed:         st.Speed,
		})
		if err != nil {
			logger.Warn("bookmark save failed", "err", err)
		}
		return nil
	}
	if err := store.Delete(paths); err != nil {
		logger.Warn("bookmark delete failed", "err", err)
	}
	return nil
}

func ignoreInterrupt(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
