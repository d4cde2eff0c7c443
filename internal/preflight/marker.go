package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// MarkerFile records the last successful preflight run in the data
// directory as "<RFC3339 time> <version>". serve skips the full check while
// the marker matches the running version.
const MarkerFile = ".preflight-passed"

// NeedsCheck reports whether serve should run preflight checks: no marker,
// an unreadable one, or one written by a different version.
func NeedsCheck(dataDir, version string) bool {
	_, v, ok := readMarker(dataDir)
	return !ok || v != version
}

// MarkPassed records a successful run for version.
func MarkPassed(dataDir, version string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create marker directory: %w", err)
	}
	content := time.Now().UTC().Format(time.RFC3339) + " " + version
	return os.WriteFile(filepath.Join(dataDir, MarkerFile), []byte(content), 0o644)
}

// ClearMarker removes the marker file, forcing a re-check on next run.
func ClearMarker(dataDir string) error {
	err := os.Remove(filepath.Join(dataDir, MarkerFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove marker file: %w", err)
	}
	return nil
}

// MarkerAge returns how long ago the preflight check passed, or zero.
func MarkerAge(dataDir string) time.Duration {
	t, _, ok := readMarker(dataDir)
	if !ok {
		return 0
	}
	return time.Since(t)
}

func readMarker(dataDir string) (time.Time, string, bool) {
	content, err := os.ReadFile(filepath.Join(dataDir, MarkerFile))
	if err != nil {
		return time.Time{}, "", false
	}
	stamp, version, _ := strings.Cut(strings.TrimSpace(string(content)), " ")
	t, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return time.Time{}, "", false
	}
	return t, version, true
}
