// Package version reports which loadermcp build is running. Release builds
// stamp it with ldflags:
//
//	-X github.com/martin-papy/qdrant-loader-mcp-server/pkg/version.Version=$(VERSION)
//	-X github.com/martin-papy/qdrant-loader-mcp-server/pkg/version.Commit=$(COMMIT)
//	-X github.com/martin-papy/qdrant-loader-mcp-server/pkg/version.Date=$(DATE)
//
// Binaries built with go install carry the module version and VCS stamp
// instead, which Get falls back to.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

const unknown = "unknown"

// Stamped at link time.
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// Info describes the running build.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`

	// ProtocolVersions is filled in by callers that know the wire protocol.
	ProtocolVersions []string `json:"protocol_versions,omitempty"`
}

var current = sync.OnceValue(func() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info = fromBuildInfo(info, bi)
	}
	return info
})

// Get returns the running build, preferring link-time stamps.
func Get() Info {
	return current()
}

// fromBuildInfo fills the fields ldflags left unset from the embedded
// module and VCS metadata.
func fromBuildInfo(info Info, bi *debug.BuildInfo) Info {
	if bi.GoVersion != "" {
		info.GoVersion = bi.GoVersion
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == unknown {
				info.Commit = shortRevision(s.Value)
			}
		case "vcs.time":
			if info.Date == unknown {
				info.Date = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}

// String is the one-line description printed by the version command.
func (i Info) String() string {
	commit := i.Commit
	if i.Modified {
		commit += "+dirty"
	}
	s := fmt.Sprintf("loadermcp %s (commit: %s, built: %s, %s, %s)",
		i.Version, commit, i.Date, i.GoVersion, i.Platform)
	if len(i.ProtocolVersions) > 0 {
		s += fmt.Sprintf("\nprotocol versions: %v", i.ProtocolVersions)
	}
	return s
}

// UserAgent identifies the server to the embedding backends it calls.
func UserAgent() string {
	return "loadermcp/" + Get().Version
}
