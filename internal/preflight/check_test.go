package preflight

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/config"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/logging"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/store"
)

type fakeProber struct{ up bool }

func (f fakeProber) Available(context.Context) bool { return f.up }
func (f fakeProber) ModelName() string              { return "nomic-embed-text" }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Store.CatalogPath = filepath.Join(t.TempDir(), "catalog.db")
	return cfg
}

func seedCatalog(t *testing.T, path string, docs int) {
	t.Helper()
	c, err := store.OpenCatalog(path)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()
	for i := 0; i < docs; i++ {
		require.NoError(t, c.Put(context.Background(), store.Document{
			ID:         string(rune('a' + i)),
			Text:       "oauth setup",
			SourceType: store.SourceWiki,
		}, nil))
	}
}

func names(results []CheckResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Name
	}
	return out
}

func TestCheckStatus_String(t *testing.T) {
	assert.Equal(t, "PASS", StatusPass.String())
	assert.Equal(t, "WARN", StatusWarn.String())
	assert.Equal(t, "FAIL", StatusFail.String())
	assert.Equal(t, "UNKNOWN", CheckStatus(7).String())
}

func TestCheckResult_IsCritical(t *testing.T) {
	tests := []struct {
		name     string
		result   CheckResult
		expected bool
	}{
		{"required pass", CheckResult{Status: StatusPass, Required: true}, false},
		{"required fail", CheckResult{Status: StatusFail, Required: true}, true},
		{"optional fail", CheckResult{Status: StatusFail}, false},
		{"required warn", CheckResult{Status: StatusWarn, Required: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsCritical())
		})
	}
}

func TestChecker_RunAll(t *testing.T) {
	tests := []struct {
		name      string
		opts      []Option
		wantNames []string
	}{
		{
			name:      "local checks only",
			wantNames: []string{"config", "write_permissions", "disk_space", "file_descriptors", "catalog"},
		},
		{
			name:      "with probes",
			opts:      []Option{WithEmbedder(fakeProber{up: true}), WithVectorStore(fakePinger{})},
			wantNames: []string{"config", "write_permissions", "disk_space", "file_descriptors", "catalog", "embedder", "vector_store"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			seedCatalog(t, cfg.Store.CatalogPath, 2)

			results := New(tt.opts...).RunAll(context.Background(), cfg)

			assert.Equal(t, tt.wantNames, names(results))
		})
	}
}

func TestChecker_CheckConfig(t *testing.T) {
	cfg := config.NewConfig()
	assert.Equal(t, StatusPass, New().CheckConfig(cfg).Status)

	cfg.Search.SemanticWeight = 3
	result := New().CheckConfig(cfg)
	assert.Equal(t, StatusFail, result.Status)
	assert.True(t, result.IsCritical())
	assert.Contains(t, result.Message, "semantic_weight")
}

func TestChecker_CheckCatalog(t *testing.T) {
	tests := []struct {
		name       string
		docs       int
		create     bool
		wantStatus CheckStatus
		wantMsg    string
	}{
		{"missing", 0, false, StatusFail, "not found"},
		{"empty", 0, true, StatusWarn, "empty"},
		{"populated", 3, true, StatusPass, "3 documents"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "catalog.db")
			if tt.create {
				seedCatalog(t, path, tt.docs)
			}

			result := New().CheckCatalog(context.Background(), path)

			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Contains(t, result.Message, tt.wantMsg)
			assert.True(t, result.Required)
		})
	}
}

func TestChecker_CheckEmbedder_WarnsWhenDown(t *testing.T) {
	// Given: an unreachable provider
	checker := New(WithEmbedder(fakeProber{up: false}), WithTimeout(time.Second))

	// When: probing
	result := checker.CheckEmbedder(context.Background())

	// Then: a warning, never a critical failure
	assert.Equal(t, StatusWarn, result.Status)
	assert.False(t, result.IsCritical())
	assert.Contains(t, result.Message, "keyword-ranked")

	up := New(WithEmbedder(fakeProber{up: true})).CheckEmbedder(context.Background())
	assert.Equal(t, StatusPass, up.Status)
}

func TestChecker_CheckVectorStore(t *testing.T) {
	down := New(WithVectorStore(fakePinger{err: errors.New("connection refused")})).
		CheckVectorStore(context.Background(), "redis")
	assert.True(t, down.IsCritical())
	assert.Contains(t, down.Message, "redis unreachable")

	up := New(WithVectorStore(fakePinger{})).CheckVectorStore(context.Background(), "hnsw")
	assert.Equal(t, StatusPass, up.Status)
}

func TestChecker_CheckWritePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	result := New().CheckWritePermissions(dir)

	assert.Equal(t, StatusPass, result.Status)
	assert.DirExists(t, dir)
}

func TestChecker_CheckWritePermissions_ReadOnly(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	readOnlyDir := filepath.Join(t.TempDir(), "readonly")
	require.NoError(t, os.Mkdir(readOnlyDir, 0o555))
	defer func() { _ = os.Chmod(readOnlyDir, 0o755) }()

	result := New().CheckWritePermissions(readOnlyDir)

	assert.Equal(t, StatusFail, result.Status)
	assert.Contains(t, result.Message, "permission denied")
}

func TestChecker_SummaryAndPrint(t *testing.T) {
	results := []CheckResult{
		{Name: "catalog", Status: StatusPass, Message: "12 documents", Required: true},
		{Name: "embedder", Status: StatusWarn, Message: "unreachable", Details: "check host"},
		{Name: "vector_store", Status: StatusFail, Message: "redis unreachable", Required: true},
	}
	buf := &bytes.Buffer{}
	checker := New(WithOutput(buf), WithVerbose(true))

	checker.PrintResults(results)

	out := buf.String()
	assert.Contains(t, out, "[PASS] catalog: 12 documents")
	assert.Contains(t, out, "[WARN] embedder")
	assert.Contains(t, out, "check host")
	assert.Contains(t, out, "Status: FAILED")
	assert.Contains(t, out, "1 error(s)")
	assert.True(t, checker.HasCriticalFailures(results))
	assert.Equal(t, "ready_with_warnings", checker.SummaryStatus(results[:2]))
	assert.Equal(t, "ready", checker.SummaryStatus(results[:1]))
}

func TestLogRotationBytes(t *testing.T) {
	tests := []struct {
		name string
		cfg  logging.Config
		want uint64
	}{
		{"defaults", logging.DefaultConfig(), 60 * 1024 * 1024},
		{"single backup", logging.Config{MaxSizeMB: 1, MaxFiles: 1}, 2 * 1024 * 1024},
		{"unset sizes", logging.Config{}, 2 * 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, logRotationBytes(tt.cfg))
		})
	}
}

func TestCatalogBytes_CountsWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	require.NoError(t, os.WriteFile(path, make([]byte, 1000), 0o644))
	require.NoError(t, os.WriteFile(path+"-wal", make([]byte, 24), 0o644))

	assert.Equal(t, uint64(1024), catalogBytes(path))
	assert.Zero(t, catalogBytes(filepath.Join(t.TempDir(), "missing.db")))
}

func TestChecker_CheckDiskNeeds(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name       string
		needs      []diskNeed
		wantStatus CheckStatus
	}{
		{
			name:       "small need",
			needs:      []diskNeed{{label: "logs", dir: dir, bytes: 1024}},
			wantStatus: StatusPass,
		},
		{
			name:       "directory not created yet",
			needs:      []diskNeed{{label: "catalog", dir: filepath.Join(dir, "a", "b"), bytes: 1024}},
			wantStatus: StatusPass,
		},
		{
			name: "needs on one volume add up",
			needs: []diskNeed{
				{label: "logs", dir: dir, bytes: 1 << 61},
				{label: "catalog", dir: dir, bytes: 1 << 61},
			},
			wantStatus: StatusFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New().checkDiskNeeds(tt.needs)

			assert.Equal(t, "disk_space", result.Name)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.NotContains(t, result.Message, ";", "one volume reported once")
			if tt.wantStatus == StatusFail {
				assert.True(t, result.IsCritical())
				assert.Contains(t, result.Details, "logs")
				assert.Contains(t, result.Details, "catalog")
			}
		})
	}
}

func TestChecker_CheckDiskSpace(t *testing.T) {
	cfg := testConfig(t)
	seedCatalog(t, cfg.Store.CatalogPath, 2)

	result := New().CheckDiskSpace(cfg)

	assert.Equal(t, "disk_space", result.Name)
	assert.Contains(t, result.Message, "needed")
}

func TestFDRequirement(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		backend     string
		redisAddrs  []string
		want        uint64
	}{
		{"hnsw defaults", 8, "hnsw", nil, (64 + 16) * 2},
		{"redis nodes count", 8, "redis", []string{"a:6379", "b:6379"}, (64 + 16 + 10) * 2},
		{"redis addrs ignored for hnsw", 8, "hnsw", []string{"a:6379"}, (64 + 16) * 2},
		{"high concurrency", 500, "hnsw", nil, (64 + 1000) * 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewConfig()
			cfg.Server.MaxConcurrency = tt.concurrency
			cfg.Store.Backend = tt.backend
			cfg.Store.RedisAddrs = tt.redisAddrs

			assert.Equal(t, tt.want, fdRequirement(cfg))
		})
	}
}

func TestCheckFileLimit(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Server.MaxConcurrency = 100
	need := fdRequirement(cfg)

	tests := []struct {
		name       string
		limit      uint64
		wantStatus CheckStatus
	}{
		{"above need", need * 4, StatusPass},
		{"exactly need", need, StatusPass},
		{"below need", need - 1, StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := checkFileLimit(cfg, tt.limit)

			assert.Equal(t, "file_descriptors", result.Name)
			assert.Equal(t, tt.wantStatus, result.Status)
			if tt.wantStatus == StatusFail {
				assert.Contains(t, result.Details, "ulimit -n")
				assert.Contains(t, result.Details, "100 concurrent searches 200")
			}
		})
	}
}
