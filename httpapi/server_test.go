package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"pkt.systems/ttyplay/internal/index"
	"pkt.systems/ttyplay/internal/player"
	"pkt.systems/ttyplay/internal/seek"
	"pkt.systems/ttyplay/internal/ttyrec"
)

func newTestServer(t *testing.T, cfg Config, opts player.Options) *httptest.Server {
	t.Helper()
	var buf bytes.Buffer
	w := ttyrec.NewWriter(&buf)
	for i, payload := range []string{"hello ", "\x1b[2J", "world\r\n"} {
		if err := w.WriteRecord(ttyrec.FromSeconds(float64(i)), []byte(payload)); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "demo.ttyrec")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	ix, err := index.Build(context.Background(), []string{path}, index.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	ts := httptest.NewServer(NewServer(cfg, ix, opts, seek.Options{}).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

// readAll collects binary frames until the server closes the connection.
func readAll(t *testing.T, conn *websocket.Conn) (string, error) {
	t.Helper()
	var out bytes.Buffer
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return out.String(), err
		}
		if kind != websocket.BinaryMessage {
			t.Fatalf("unexpected frame type %d", kind)
		}
		out.Write(data)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, Config{}, player.Options{Speed: 1, NoWait: true})
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok\n" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}
}

func TestPlayStreamsRecording(t *testing.T) {
	ts := newTestServer(t, Config{}, player.Options{Speed: 1, NoWait: true})
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/play"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	out, err := readAll(t, conn)
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
	if out != "hello \x1b[2Jworld\r\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestPlayTakesKeys(t *testing.T) {
	// Paused from the start: the first record plays, the second waits for keys.
	ts := newTestServer(t, Config{}, player.Options{Speed: -1})
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/play"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	kind, data, err := conn.ReadMessage()
	if err != nil || kind != websocket.BinaryMessage || string(data) != "hello " {
		t.Fatalf("unexpected first frame %d %q %v", kind, data, err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte("q")); err != nil {
		t.Fatalf("send key: %v", err)
	}
	out, err := readAll(t, conn)
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal close, got %v", err)
	}
	if out != "\x1b[2J" {
		t.Fatalf("expected the waiting record before quitting, got %q", out)
	}
}

func TestPlayRejectsBadSpeed(t *testing.T) {
	ts := newTestServer(t, Config{}, player.Options{Speed: 1, NoWait: true})
	for _, raw := range []string{"fast", "0", "NaN", "5000"} {
		_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/play?speed="+raw), nil)
		if err == nil {
			t.Fatalf("speed %q: expected dial to fail", raw)
		}
		if resp == nil || resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("speed %q: expected 400, got %+v", raw, resp)
		}
	}
}

func TestBasePathMountsRoutes(t *testing.T) {
	ts := newTestServer(t, Config{BasePath: "/tty/"}, player.Options{Speed: 1, NoWait: true})
	resp, err := http.Get(ts.URL + "/tty/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected mounted healthz, got %d", resp.StatusCode)
	}
	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected unmounted path to 404, got %d", resp.StatusCode)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ListenAndServe(ctx, "127.0.0.1:0", nil, http.NotFoundHandler()) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("listen: %v", err)
		}
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatalf("server did not stop")
	}
}
