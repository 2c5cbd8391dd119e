// Package version identifies the running jslibsig build.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const Version = "0.3.0"

// FeatureSchema is bumped whenever the walker emits a different feature
// stream for the same source. Signatures from different schemas never match.
const FeatureSchema = 1

// Release builds set these with
// -ldflags "-X github.com/standardbeagle/jslibsig/internal/version.Commit=...".
var (
	Commit = ""
	Date   = ""
)

// Build describes the binary.
type Build struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
	Modified  bool
	ID        string
}

var (
	current     Build
	currentOnce sync.Once
)

// Current returns the build description, falling back to the VCS stamps the
// Go toolchain embeds when the ldflags were not set.
func Current() Build {
	currentOnce.Do(func() {
		current = readBuild(debug.ReadBuildInfo())
	})
	return current
}

func readBuild(info *debug.BuildInfo, ok bool) Build {
	b := Build{Version: Version, Commit: Commit, Date: Date}
	h := xxhash.New()
	fmt.Fprintf(h, "%s|%d", Version, FeatureSchema)
	if ok {
		b.GoVersion = info.GoVersion
		fmt.Fprintf(h, "|%s|%s|%s", info.GoVersion, info.Main.Path, info.Main.Version)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if b.Commit == "" {
					b.Commit = s.Value
				}
			case "vcs.time":
				if b.Date == "" {
					b.Date = s.Value
				}
			case "vcs.modified":
				b.Modified = s.Value == "true"
			default:
				continue
			}
			fmt.Fprintf(h, "|%s=%s", s.Key, s.Value)
		}
	}
	if b.Commit == "" {
		b.Commit = "unknown"
	}
	if b.Date == "" {
		b.Date = "development"
	}
	b.ID = fmt.Sprintf("%016x", h.Sum64())
	return b
}

// BuildID is a short fingerprint of the binary, used as a metrics label so
// textfiles from different builds can be told apart.
func BuildID() string {
	return Current().ID
}

// FullInfo is the version line shown by --version.
func FullInfo() string {
	b := Current()
	commit := b.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (commit %s", b.Version, commit)
	if b.Modified {
		sb.WriteString("+dirty")
	}
	fmt.Fprintf(&sb, ", built %s, feature schema %d, build %s)", b.Date, FeatureSchema, b.ID)
	return sb.String()
}
