// Package ttyplay composes the SSH and WebSocket watch servers around one
// shared recording index.
package ttyplay

import (
	"context"
	"errors"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"

	"pkt.systems/pslog"
	"pkt.systems/ttyplay/httpapi"
	"pkt.systems/ttyplay/internal/index"
	"pkt.systems/ttyplay/internal/player"
	"pkt.systems/ttyplay/internal/seek"
	"pkt.systems/ttyplay/sshserver"
)

// Server runs the enabled watch servers until stopped or one of them fails.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	HTTP   httpapi.Config
	SSH    sshserver.Config
	Player player.Options
	Cursor seek.Options
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP   bool
	enableSSH    bool
	httpListener net.Listener
	sshListener  net.Listener
}

// WithHTTP enables the WebSocket watch server.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithSSH enables the SSH watch server.
func WithSSH() ServerOption {
	return func(o *serverOptions) { o.enableSSH = true }
}

// WithHTTPListener enables the HTTP server on an existing listener.
func WithHTTPListener(ln net.Listener) ServerOption {
	return func(o *serverOptions) {
		o.enableHTTP = true
		o.httpListener = ln
	}
}

// WithSSHListener enables the SSH server on an existing listener.
func WithSSHListener(ln net.Listener) ServerOption {
	return func(o *serverOptions) {
		o.enableSSH = true
		o.sshListener = ln
	}
}

// New constructs a watch server for ix.
func New(cfg ServerConfig, ix *index.Index, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableSSH {
		return nil, errors.New("no services enabled")
	}
	if ix == nil {
		return nil, errors.New("index is required")
	}
	s := &compositeServer{cfg: cfg, options: options}
	if options.enableHTTP {
		s.httpSrv = httpapi.NewServer(cfg.HTTP, ix, cfg.Player, cfg.Cursor)
	}
	if options.enableSSH {
		s.sshSrv = sshserver.New(cfg.SSH, ix, cfg.Player, cfg.Cursor)
		s.sshSrv.Listener = options.sshListener
	}
	return s, nil
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	httpSrv *httpapi.Server
	sshSrv  *sshserver.Server
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"ssh", s.options.enableSSH,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_path", s.cfg.HTTP.BasePath,
		"ssh_addr", s.cfg.SSH.Addr,
	)
	group, gctx := errgroup.WithContext(s.ctx)
	if s.httpSrv != nil {
		group.Go(func() error {
			if err := httpapi.ListenAndServe(gctx, s.cfg.HTTP.Addr, s.options.httpListener, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				return err
			}
			return nil
		})
	}
	if s.sshSrv != nil {
		group.Go(func() error {
			if err := s.sshSrv.ListenAndServe(gctx); err != nil {
				log.Error("ssh server failed", "err", err)
				return err
			}
			return nil
		})
	}
	go func() {
		err := group.Wait()
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		s.cancel()
		close(s.done)
	}()
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	done := s.done
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}
	<-done
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		s.logger.Error("server stopped", "err", s.err)
	}
	return s.err
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	log.Info("server stop requested")
	cancel()
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-done:
		log.Info("server stopped")
		return nil
	}
}
