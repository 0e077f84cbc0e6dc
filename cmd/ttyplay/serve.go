package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/ttyplay"
	"pkt.systems/ttyplay/httpapi"
	"pkt.systems/ttyplay/internal/appconfig"
	"pkt.systems/ttyplay/internal/index"
	"pkt.systems/ttyplay/internal/player"
	"pkt.systems/ttyplay/internal/seek"
	"pkt.systems/ttyplay/sshserver"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	var sshAddr string
	var httpAddr string
	var basePath string
	var speed float64
	cmd := &cobra.Command{
		Use:   "serve [flags] FILE...",
		Short: "Serve recordings to SSH and WebSocket viewers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("ssh") {
				cfg.Serve.SSHAddr = sshAddr
			}
			if cmd.Flags().Changed("http") {
				cfg.Serve.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("speed") {
				cfg.Serve.Speed = speed
			}
			if err := player.CheckSpeed(cfg.Serve.Speed); err != nil {
				return err
			}

			ix, err := index.Build(cmd.Context(), args, index.Options{
				Marker:     []byte(cfg.Playback.Marker),
				MaxPayload: cfg.Playback.MaxRecordBytes,
				Logger:     logger,
			})
			if err != nil {
				return err
			}
			logger.Info("recording indexed", "segments", len(ix.Segments), "landmarks", len(ix.Landmarks), "duration", ix.End().String())

			var opts []ttyplay.ServerOption
			if cfg.Serve.SSHAddr != "" {
				opts = append(opts, ttyplay.WithSSH())
			}
			if cfg.Serve.HTTPAddr != "" {
				opts = append(opts, ttyplay.WithHTTP())
			}
			server, err := ttyplay.New(ttyplay.ServerConfig{
				HTTP: httpapi.Config{Addr: cfg.Serve.HTTPAddr, BasePath: basePath},
				SSH: sshserver.Config{
					Addr:           cfg.Serve.SSHAddr,
					HostKeyPath:    cfg.Serve.HostKeyPath,
					AuthorizedKeys: cfg.Serve.AuthorizedKeys,
				},
				Player: player.Options{
					Speed:        cfg.Serve.Speed,
					Controls:     cfg.Playback.Controls(),
					PollInterval: cfg.Playback.PollInterval(),
				},
				Cursor: seek.Options{MaxPayload: cfg.Playback.MaxRecordBytes},
			}, ix, opts...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&sshAddr, "ssh", "", "SSH listen address; empty disables SSH")
	cmd.Flags().StringVar(&httpAddr, "http", "", "HTTP listen address; empty disables WebSocket viewers")
	cmd.Flags().StringVar(&basePath, "base-path", "", "HTTP path prefix")
	cmd.Flags().Float64VarP(&speed, "speed", "s", 1, "initial playback speed for viewers")
	return cmd
}
