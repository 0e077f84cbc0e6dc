// Package version reports the ttyplay build version.
package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const defaultModule = "pkt.systems/ttyplay"

// buildVersion is set via -ldflags "-X pkt.systems/ttyplay/internal/version.buildVersion=...".
var buildVersion = ""

// Info describes the running binary.
type Info struct {
	Module    string
	Version   string
	Revision  string
	Time      time.Time
	Dirty     bool
	GoVersion string
}

// String formats the info for the version command.
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Module)
	b.WriteByte(' ')
	b.WriteString(i.Version)
	if i.Revision != "" {
		b.WriteString(" (")
		b.WriteString(i.Revision)
		if !i.Time.IsZero() {
			b.WriteByte(' ')
			b.WriteString(i.Time.UTC().Format(time.RFC3339))
		}
		b.WriteByte(')')
	}
	b.WriteByte(' ')
	b.WriteString(i.GoVersion)
	return b.String()
}

// Read collects version details from the build.
func Read() Info {
	info, _ := debug.ReadBuildInfo()
	out := fromBuildInfo(info)
	out.Version = CurrentWithDirty()
	return out
}

// Current returns the best available version string (without dirty suffix).
func Current() string {
	return currentFromBuildInfo(false)
}

// CurrentWithDirty returns the best available version string (including dirty suffix when available).
func CurrentWithDirty() string {
	return currentFromBuildInfo(true)
}

// Module returns the module path from build info when available.
func Module() string {
	info, _ := debug.ReadBuildInfo()
	return fromBuildInfo(info).Module
}

func currentFromBuildInfo(includeDirty bool) string {
	if strings.TrimSpace(buildVersion) != "" {
		return normalizeVersion(buildVersion, includeDirty)
	}
	info, ok := debug.ReadBuildInfo()
	if ok {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return normalizeVersion(v, includeDirty)
		}
		if v := pseudoVersion(fromBuildInfo(info), includeDirty); v != "" {
			return v
		}
	}
	return "v0.0.0-unknown"
}

func normalizeVersion(v string, includeDirty bool) string {
	value := strings.TrimSpace(v)
	if includeDirty {
		return value
	}
	return strings.TrimSuffix(value, "+dirty")
}

func fromBuildInfo(info *debug.BuildInfo) Info {
	out := Info{Module: defaultModule, GoVersion: runtime.Version()}
	if info == nil {
		return out
	}
	if path := strings.TrimSpace(info.Main.Path); path != "" {
		out.Module = path
	}
	if info.GoVersion != "" {
		out.GoVersion = info.GoVersion
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			out.Revision = setting.Value
		case "vcs.time":
			if parsed, err := time.Parse(time.RFC3339, setting.Value); err == nil {
				out.Time = parsed
			}
		case "vcs.modified":
			out.Dirty = setting.Value == "true"
		}
	}
	return out
}

// pseudoVersion builds a Go pseudo-version from VCS stamps.
func pseudoVersion(info Info, includeDirty bool) string {
	if info.Revision == "" || info.Time.IsZero() {
		return ""
	}
	rev := info.Revision
	if len(rev) > 12 {
		rev = rev[:12]
	}
	ver := "v0.0.0-" + info.Time.UTC().Format("20060102150405") + "-" + rev
	if info.Dirty && includeDirty {
		ver += "+dirty"
	}
	return ver
}
