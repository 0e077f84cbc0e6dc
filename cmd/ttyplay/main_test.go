package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"pkt.systems/ttyplay/internal/bookmark"
	"pkt.systems/ttyplay/internal/index"
	"pkt.systems/ttyplay/internal/ttyrec"
)

func writeRecording(t *testing.T, dir, name string, payloads ...string) string {
	t.Helper()
	var buf bytes.Buffer
	w := ttyrec.NewWriter(&buf)
	for i, payload := range payloads {
		if err := w.WriteRecord(ttyrec.FromSeconds(float64(i)), []byte(payload)); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

// runRoot executes the CLI with no terminal attached.
func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := controlTTY
	controlTTY = filepath.Join(t.TempDir(), "no-tty")
	t.Cleanup(func() { controlTTY = prev })

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestApplyArgv0Alias(t *testing.T) {
	cases := []struct {
		in   []string
		want []string
	}{
		{in: nil, want: nil},
		{in: []string{"/usr/bin/ttyplay", "a.tty"}, want: []string{"/usr/bin/ttyplay", "a.tty"}},
		{in: []string{"/usr/local/bin/ttyrec", "out.tty"}, want: []string{"/usr/local/bin/ttyrec", "record", "out.tty"}},
		{in: []string{"ttyplay-serve", "--ssh", ":2222"}, want: []string{"ttyplay-serve", "serve", "--ssh", ":2222"}},
	}
	for _, tc := range cases {
		got := applyArgv0Alias(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("applyArgv0Alias(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRootHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"play", "index", "record", "serve", "config", "version"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Fatalf("missing subcommand %q: %v", name, err)
		}
	}
}

func TestRecordCommand(t *testing.T) {
	cases := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{line: "", want: nil},
		{line: "   ", want: nil},
		{line: "vim notes.txt", want: []string{"vim", "notes.txt"}},
		{line: `sh -c "echo 'hi there'"`, want: []string{"sh", "-c", "echo 'hi there'"}},
		{line: "# only a comment", wantErr: true},
	}
	for _, tc := range cases {
		got, err := recordCommand(tc.line)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("recordCommand(%q): expected error", tc.line)
			}
			continue
		}
		if err != nil {
			t.Fatalf("recordCommand(%q): %v", tc.line, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("recordCommand(%q) = %q, want %q", tc.line, got, tc.want)
		}
	}
}

func TestPrintIndex(t *testing.T) {
	dir := t.TempDir()
	path := writeRecording(t, dir, "demo.ttyrec", "hello ", "\x1b[2J", "world\r\n")
	ix, err := index.Build(context.Background(), []string{path}, index.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var buf bytes.Buffer
	if err := printIndex(&buf, ix, true); err != nil {
		t.Fatalf("print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"SEGMENT", "LANDMARK", path, "total 2.000000s in 1 segments, 1 markers"} {
		if !strings.Contains(out, want) {
			t.Fatalf("index output missing %q:\n%s", want, out)
		}
	}
}

func TestPlayFilesNoWait(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := t.TempDir()
	first := writeRecording(t, dir, "a.ttyrec", "one ", "two ")
	second := writeRecording(t, dir, "b.ttyrec", "three\r\n")

	out, err := runRoot(t, "-n", "-c", filepath.Join(home, "missing.yaml"), first, second)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if out != "one two three\r\n" {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestPlayFromStdin(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	var buf bytes.Buffer
	w := ttyrec.NewWriter(&buf)
	for _, payload := range []string{"a", "b"} {
		if err := w.WriteRecord(ttyrec.Timeval{}, []byte(payload)); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}

	prev := controlTTY
	controlTTY = filepath.Join(t.TempDir(), "no-tty")
	t.Cleanup(func() { controlTTY = prev })
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(&buf)
	root.SetArgs([]string{"play", "-n"})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("play: %v", err)
	}
	if out.String() != "ab" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestPlayRejectsBadFlags(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := t.TempDir()
	path := writeRecording(t, dir, "a.ttyrec", "x")
	cases := [][]string{
		{"-s", "0", path},
		{"-s", "NaN", path},
		{"serve", "--http", "127.0.0.1:0", "-s", "NaN", path},
		{"-p", path, path},
		{"--resume"},
	}
	for _, args := range cases {
		if _, err := runRoot(t, args...); err == nil {
			t.Fatalf("expected %q to fail", args)
		}
	}
}

func TestResumeFinishesAndForgetsBookmark(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := t.TempDir()
	path := writeRecording(t, dir, "demo.ttyrec", "hello ", "\x1b[2J", "world\r\n")

	store, err := bookmark.NewStore(filepath.Join(home, ".ttyplay", "state", "bookmarks"), nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	paths := []string{path}
	if err := store.Save(bookmark.Bookmark{Paths: paths, ElapsedMicros: 1_500_000, Speed: 2}); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := runRoot(t, "-n", "--resume", path)
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if !strings.HasSuffix(out, "world\r\n") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, ok, err := store.Load(paths); err != nil || ok {
		t.Fatalf("expected bookmark removed at end, ok=%v err=%v", ok, err)
	}
}

func TestConfigInitWritesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "cfg", "config.yaml")
	out, err := runRoot(t, "config", "init", "-c", path)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if strings.TrimSpace(out) != path {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := runRoot(t, "config", "init", "-c", path); err == nil {
		t.Fatalf("expected existing config to be refused")
	}
	out, err = runRoot(t, "config", "show", "-c", path)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "config_version: 1") {
		t.Fatalf("unexpected config %q", out)
	}
}
