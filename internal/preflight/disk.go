package preflight

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/config"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/logging"
)

// diskSlackBytes is kept free on every volume on top of the computed need.
const diskSlackBytes = 16 * 1024 * 1024

// diskNeed is what one consumer expects to write under dir.
type diskNeed struct {
	label string
	dir   string
	bytes uint64
}

// logRotationBytes is the most the rotating server log can occupy: the
// active file plus every kept backup.
func logRotationBytes(cfg logging.Config) uint64 {
	files := max(cfg.MaxFiles, 1) + 1
	return uint64(max(cfg.MaxSizeMB, 1)) * 1024 * 1024 * uint64(files)
}

// catalogBytes is the catalog's size with its WAL and shared-memory files.
func catalogBytes(path string) uint64 {
	var total uint64
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if info, err := os.Stat(p); err == nil {
			total += uint64(info.Size())
		}
	}
	return total
}

// diskNeeds lists the writers of a server configured by cfg. A loader
// refreshing the catalog in place needs its current size again.
func diskNeeds(cfg *config.Config, logCfg logging.Config) []diskNeed {
	return []diskNeed{
		{label: "logs", dir: filepath.Dir(logCfg.FilePath), bytes: logRotationBytes(logCfg)},
		{label: "catalog", dir: filepath.Dir(cfg.Store.CatalogPath), bytes: 2 * catalogBytes(cfg.Store.CatalogPath)},
	}
}

// existingDir walks up from dir to the nearest directory that exists, so
// space can be checked before the data directory is created.
func existingDir(dir string) string {
	for {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}

// volume groups the needs that land on one filesystem.
type volume struct {
	dir    string
	avail  uint64
	need   uint64
	labels []string
}

// CheckDiskSpace checks that every filesystem the server writes to can hold
// a full log rotation plus a refreshed catalog.
func (c *Checker) CheckDiskSpace(cfg *config.Config) CheckResult {
	return c.checkDiskNeeds(diskNeeds(cfg, logging.DefaultConfig()))
}

func (c *Checker) checkDiskNeeds(needs []diskNeed) CheckResult {
	result := CheckResult{
		Name:     "disk_space",
		Required: true,
	}

	volumes := make(map[syscall.Fsid]*volume)
	for _, n := range needs {
		dir := existingDir(n.dir)
		var stat syscall.Statfs_t
		if err := syscall.Statfs(dir, &stat); err != nil {
			result.Status = StatusFail
			result.Message = fmt.Sprintf("failed to check disk space for %s: %v", n.label, err)
			return result
		}
		v, ok := volumes[stat.Fsid]
		if !ok {
			v = &volume{dir: dir, avail: stat.Bavail * uint64(stat.Bsize), need: diskSlackBytes}
			volumes[stat.Fsid] = v
		}
		v.need += n.bytes
		v.labels = append(v.labels, fmt.Sprintf("%s %s", n.label, formatBytes(n.bytes)))
	}

	ordered := make([]*volume, 0, len(volumes))
	for _, v := range volumes {
		ordered = append(ordered, v)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].dir < ordered[j].dir })

	result.Status = StatusPass
	msgs := make([]string, 0, len(ordered))
	for _, v := range ordered {
		msgs = append(msgs, fmt.Sprintf("%s: %s free, %s needed", v.dir, formatBytes(v.avail), formatBytes(v.need)))
		if v.avail < v.need {
			result.Status = StatusFail
			result.Details = fmt.Sprintf("Free space on %s or lower log retention (%s)", v.dir, strings.Join(v.labels, ", "))
		}
	}
	result.Message = strings.Join(msgs, "; ")
	return result
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(bytes uint64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
