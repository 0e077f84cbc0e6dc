// Package httpapi serves recordings to browser viewers over WebSocket.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"pkt.systems/pslog"
	"pkt.systems/ttyplay/internal/index"
	"pkt.systems/ttyplay/internal/logx"
	"pkt.systems/ttyplay/internal/player"
	"pkt.systems/ttyplay/internal/seek"
)

// Server serves the watch endpoints.
type Server struct {
	cfg      Config
	ix       *index.Index
	player   player.Options
	cursor   seek.Options
	basePath string
	upgrader websocket.Upgrader
}

// NewServer constructs an HTTP server playing ix to every viewer.
func NewServer(cfg Config, ix *index.Index, opts player.Options, cursor seek.Options) *Server {
	return &Server{
		cfg:      cfg,
		ix:       ix,
		player:   opts,
		cursor:   cursor,
		basePath: normalizeBasePath(cfg.BasePath),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/play", s.handlePlay)

	handler := withRequestLogging(mux)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	return root
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// handlePlay streams one private playback. Binary frames carry output; every
// byte of an incoming frame is a key press.
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	opts := s.player
	if raw := r.URL.Query().Get("speed"); raw != "" {
		speed, err := strconv.ParseFloat(raw, 64)
		if err == nil {
			err = player.CheckSpeed(speed)
		}
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid speed %q", raw), http.StatusBadRequest)
			return
		}
		opts.Speed = speed
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		pslog.Ctx(r.Context()).Warn("websocket upgrade failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	viewer := uuid.NewString()
	log := logx.WithViewer(r.Context(), viewer)
	ctx, cancel := context.WithCancel(logx.ContextWithViewerLogger(r.Context(), log, viewer))
	defer cancel()
	log.Info("websocket viewer connected", "speed", opts.Speed)

	keys := make(chan byte, 64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		readKeys(ctx, conn, keys)
	}()

	opts.Logger = log
	err = player.PlayIndex(ctx, s.ix, &frameWriter{conn: conn}, keys, opts, s.cursor)
	switch {
	case err == nil:
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "end of recording")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		log.Info("websocket viewer finished")
	case errors.Is(err, context.Canceled):
		log.Info("websocket viewer disconnected")
	default:
		log.Warn("websocket playback failed", "err", err)
	}
	cancel()
	_ = conn.Close()
	wg.Wait()
}

// readKeys forwards incoming frame bytes until the connection closes.
func readKeys(ctx context.Context, conn *websocket.Conn, keys chan<- byte) {
	defer close(keys)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		for _, b := range data {
			select {
			case keys <- b:
			case <-ctx.Done():
				return
			}
		}
	}
}

type frameWriter struct {
	conn *websocket.Conn
}

func (f *frameWriter) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if err := f.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}
