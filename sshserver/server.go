// Package sshserver lets SSH clients watch a recording. Every session gets its
// own player over the shared index and is controlled from the client's keys.
package sshserver

import (
	"context"
	"errors"
	"io"
	"net"

	gliderssh "github.com/gliderlabs/ssh"
	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"

	"pkt.systems/pslog"
	"pkt.systems/ttyplay/internal/index"
	"pkt.systems/ttyplay/internal/logx"
	"pkt.systems/ttyplay/internal/player"
	"pkt.systems/ttyplay/internal/seek"
)

// Server exposes recordings over SSH.
type Server struct {
	Addr           string
	HostKeyPath    string
	AuthorizedKeys string
	Listener       net.Listener
	Index          *index.Index
	Player         player.Options
	Cursor         seek.Options
	logger         pslog.Logger
	allowed        []gliderssh.PublicKey
}

// New returns a Server for ix configured from cfg.
func New(cfg Config, ix *index.Index, opts player.Options, cursor seek.Options) *Server {
	return &Server{
		Addr:           cfg.Addr,
		HostKeyPath:    cfg.HostKeyPath,
		AuthorizedKeys: cfg.AuthorizedKeys,
		Index:          ix,
		Player:         opts,
		Cursor:         cursor,
	}
}

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if s.Index == nil {
		return errors.New("ssh server needs an index")
	}

	signer, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}

	server := &gliderssh.Server{
		Addr:    s.Addr,
		Handler: s.handleSession,
	}
	if s.AuthorizedKeys != "" {
		s.allowed, err = LoadAuthorizedKeys(s.AuthorizedKeys)
		if err != nil {
			return err
		}
		server.PublicKeyHandler = s.handlePublicKey
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()
	s.logger.Info("ssh server listening", "addr", s.listenAddr(), "restricted", len(s.allowed) > 0, "fingerprint", ssh.FingerprintSHA256(signer.PublicKey()))

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, gliderssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) listenAddr() string {
	if s.Listener != nil {
		return s.Listener.Addr().String()
	}
	return s.Addr
}

func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	log := s.logger.With("user", ctx.User(), "remote", remoteAddr(ctx), "fingerprint", ssh.FingerprintSHA256(key))
	for _, allowed := range s.allowed {
		if gliderssh.KeysEqual(allowed, key) {
			log.Info("ssh pubkey accepted")
			return true
		}
	}
	log.Warn("ssh pubkey rejected", "reason", "no matching key")
	return false
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

func (s *Server) handleSession(sess gliderssh.Session) {
	viewer := uuid.NewString()
	ctx := pslog.ContextWithLogger(sess.Context(), s.logger)
	log := logx.WithViewer(ctx, viewer).With("user", sess.User(), "remote", sess.RemoteAddr().String())
	ctx, cancel := context.WithCancel(logx.ContextWithViewerLogger(ctx, log, viewer))
	defer cancel()

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		_ = sess.Exit(1)
		return
	}
	log.Info("ssh session opened", "term", pty.Term, "width", pty.Window.Width, "height", pty.Window.Height)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case win, ok := <-winCh:
				if !ok {
					return
				}
				log.Debug("ssh window change", "width", win.Width, "height", win.Height)
			}
		}
	}()

	keys := make(chan byte, 64)
	go player.ReadKeys(ctx, sess, keys)

	opts := s.Player
	opts.Logger = log
	scr := newScreen(sess)
	if err := scr.Begin(); err != nil {
		log.Debug("ssh screen setup failed", "err", err)
	}
	err := player.PlayIndex(ctx, s.Index, sess, keys, opts, s.Cursor)
	_ = scr.End()
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("ssh playback failed", "err", err)
		_ = sess.Exit(1)
		return
	}
	log.Info("ssh session closed")
	_ = sess.Exit(0)
}
