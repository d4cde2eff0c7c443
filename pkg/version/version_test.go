package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromBuildInfo(t *testing.T) {
	vcs := []debug.BuildSetting{
		{Key: "vcs.revision", Value: "0123456789abcdef0123"},
		{Key: "vcs.time", Value: "2026-10-01T12:00:00Z"},
		{Key: "vcs.modified", Value: "true"},
	}

	tests := []struct {
		name        string
		stamped     Info
		mainVersion string
		want        Info
	}{
		{
			name:        "go install build",
			stamped:     Info{Version: "dev", Commit: unknown, Date: unknown},
			mainVersion: "v1.4.0",
			want:        Info{Version: "v1.4.0", Commit: "0123456789ab", Date: "2026-10-01T12:00:00Z", Modified: true},
		},
		{
			name:        "local checkout",
			stamped:     Info{Version: "dev", Commit: unknown, Date: unknown},
			mainVersion: "(devel)",
			want:        Info{Version: "dev", Commit: "0123456789ab", Date: "2026-10-01T12:00:00Z", Modified: true},
		},
		{
			name:        "ldflags win",
			stamped:     Info{Version: "v2.0.0", Commit: "abc1234", Date: "2026-09-30"},
			mainVersion: "v1.4.0",
			want:        Info{Version: "v2.0.0", Commit: "abc1234", Date: "2026-09-30", Modified: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: embedded build metadata
			bi := &debug.BuildInfo{GoVersion: "go1.25.5", Settings: vcs}
			bi.Main.Version = tt.mainVersion

			// When: merging it with the link-time stamp
			got := fromBuildInfo(tt.stamped, bi)

			// Then: stamped fields are kept and the rest are filled in
			assert.Equal(t, tt.want.Version, got.Version)
			assert.Equal(t, tt.want.Commit, got.Commit)
			assert.Equal(t, tt.want.Date, got.Date)
			assert.Equal(t, tt.want.Modified, got.Modified)
			assert.Equal(t, "go1.25.5", got.GoVersion)
		})
	}
}

func TestInfo_String(t *testing.T) {
	info := Info{Version: "v1.4.0", Commit: "0123456789ab", Date: "2026-10-01", Modified: true,
		GoVersion: "go1.25.5", Platform: "linux/amd64"}

	assert.Equal(t, "loadermcp v1.4.0 (commit: 0123456789ab+dirty, built: 2026-10-01, go1.25.5, linux/amd64)", info.String())

	info.ProtocolVersions = []string{"2025-06-18"}
	assert.True(t, strings.HasSuffix(info.String(), "\nprotocol versions: [2025-06-18]"))
}

func TestGet_DescribesRuntime(t *testing.T) {
	info := Get()

	assert.NotEmpty(t, info.Version)
	assert.NotEmpty(t, info.GoVersion)
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
}

func TestUserAgent(t *testing.T) {
	assert.Equal(t, "loadermcp/"+Get().Version, UserAgent())
}
