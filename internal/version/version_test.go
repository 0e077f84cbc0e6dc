package version

import (
	"runtime/debug"
	"strings"
	"testing"
	"time"
)

func TestCurrentPrefersBuildVersion(t *testing.T) {
	old := buildVersion
	buildVersion = "v1.2.3+dirty"
	t.Cleanup(func() { buildVersion = old })

	if got := Current(); got != "v1.2.3" {
		t.Fatalf("expected build version without dirty suffix, got %q", got)
	}
	if got := CurrentWithDirty(); got != "v1.2.3+dirty" {
		t.Fatalf("expected dirty build version, got %q", got)
	}
}

func TestPseudoVersion(t *testing.T) {
	ts := time.Date(2025, time.January, 2, 3, 4, 5, 0, time.UTC)
	info := fromBuildInfo(&debug.BuildInfo{
		Main: debug.Module{Path: "example.com/tty"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "1234567890abcdef"},
			{Key: "vcs.time", Value: ts.Format(time.RFC3339)},
			{Key: "vcs.modified", Value: "true"},
		},
	})
	if info.Module != "example.com/tty" || !info.Dirty || !info.Time.Equal(ts) {
		t.Fatalf("unexpected info %+v", info)
	}
	if got := pseudoVersion(info, true); got != "v0.0.0-20250102030405-1234567890ab+dirty" {
		t.Fatalf("unexpected pseudo version %q", got)
	}
	if got := pseudoVersion(info, false); got != "v0.0.0-20250102030405-1234567890ab" {
		t.Fatalf("unexpected clean pseudo version %q", got)
	}
	if pseudoVersion(fromBuildInfo(nil), true) != "" {
		t.Fatalf("expected empty version for nil build info")
	}
}

func TestInfoString(t *testing.T) {
	info := Info{
		Module:    defaultModule,
		Version:   "v1.0.0",
		Revision:  "abc",
		Time:      time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		GoVersion: "go1.25.2",
	}
	got := info.String()
	if got != "pkt.systems/ttyplay v1.0.0 (abc 2025-03-01T00:00:00Z) go1.25.2" {
		t.Fatalf("unexpected string %q", got)
	}
	if s := (Info{Module: "m", Version: "v", GoVersion: "g"}).String(); !strings.HasPrefix(s, "m v g") {
		t.Fatalf("unexpected short string %q", s)
	}
}
