package appconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pkt.systems/ttyplay/internal/ttyrec"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Playback.Speed != 1 || cfg.Playback.Marker != "\x1b[2J" || cfg.Playback.MaxRecordBytes != 8192 {
		t.Fatalf("unexpected defaults %+v", cfg.Playback)
	}
}

func TestLoadRequiresConfigVersion(t *testing.T) {
	path := writeConfig(t, `
playback:
  speed: 2
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "config_version is required") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadRejectsUnsupportedConfigVersion(t *testing.T) {
	path := writeConfig(t, `
config_version: 3
`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "unsupported config_version") {
		t.Fatalf("expected config_version error, got %v", err)
	}
}

func TestLoadOverridesPlayback(t *testing.T) {
	t.Setenv("TTYPLAY_TEST_HOME", "/srv/tty")
	path := writeConfig(t, `
config_version: 1
state_dir: $TTYPLAY_TEST_HOME/state
playback:
  speed: 4
  jump_base_seconds: 5
  peek_poll_millis: 40
serve:
  ssh_addr: 127.0.0.1:2022
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StateDir != "/srv/tty/state" {
		t.Fatalf("expected expanded state dir, got %q", cfg.StateDir)
	}
	if cfg.Playback.Speed != 4 || cfg.Serve.SSHAddr != "127.0.0.1:2022" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Playback.JumpScale != 10 || cfg.Serve.HTTPAddr != ":8080" {
		t.Fatalf("expected defaults for unset keys, got %+v", cfg)
	}
	controls := cfg.Playback.Controls()
	if controls.JumpBase != ttyrec.FromSeconds(5) || controls.SwitchLatency != ttyrec.FromSeconds(10) {
		t.Fatalf("unexpected controls %+v", controls)
	}
	if cfg.Playback.PollInterval() != 40*time.Millisecond {
		t.Fatalf("unexpected poll interval %v", cfg.Playback.PollInterval())
	}
}

func TestLoadRejectsInvalidPlayback(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "zero speed", body: "playback:\n  speed: 0\n", want: "playback.speed"},
		{name: "fast speed", body: "playback:\n  speed: 5000\n", want: "magnitude must be within"},
		{name: "nan speed", body: "playback:\n  speed: .nan\n", want: "playback.speed"},
		{name: "nan serve speed", body: "serve:\n  speed: .nan\n", want: "serve.speed"},
		{name: "nan jump scale", body: "playback:\n  jump_scale: .nan\n", want: "jump settings"},
		{name: "record size", body: "playback:\n  max_record_bytes: 0\n", want: "max_record_bytes"},
		{name: "marker", body: "playback:\n  marker: \"\"\n", want: "playback.marker"},
	}
	for _, tc := range tests {
		path := writeConfig(t, "config_version: 1\n"+tc.body)
		if _, err := Load(path); err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected %q error, got %v", tc.name, tc.want, err)
		}
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("FOO", "bar")
	value := expandEnv("$FOO/$UID/$GID/$MISSING")
	if !strings.HasPrefix(value, "bar/") {
		t.Fatalf("expected env expansion, got %q", value)
	}
	if strings.Contains(value, "$UID") || strings.Contains(value, "$GID") {
		t.Fatalf("expected UID/GID expansion, got %q", value)
	}
	if !strings.HasSuffix(value, "/$MISSING") {
		t.Fatalf("expected missing vars to remain, got %q", value)
	}
}

func TestWriteDefaultRespectsOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	written, err := WriteDefault(path, false)
	if err != nil {
		t.Fatalf("write default: %v", err)
	}
	if written != path {
		t.Fatalf("expected path %q, got %q", path, written)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config to exist: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected error when config exists")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("expected overwrite to succeed: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load written default: %v", err)
	}
	if cfg.ConfigVersion != CurrentConfigVersion || cfg.Playback.Marker != "\x1b[2J" {
		t.Fatalf("unexpected round trip %+v", cfg)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(content)+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
