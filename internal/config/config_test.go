package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points user config lookups at an empty temp dir.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// =============================================================================
// Defaults
// =============================================================================

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownGrace)
	assert.True(t, cfg.Server.Streaming)

	assert.Equal(t, 0.5, cfg.Search.SemanticWeight)
	assert.Equal(t, 0.5, cfg.Search.LexicalWeight)
	assert.Equal(t, 4, cfg.Search.OverfetchFactor)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 50, cfg.Search.MaxLimit)
	assert.Equal(t, 1.2, cfg.Search.BM25K1)
	assert.Equal(t, 0.75, cfg.Search.BM25B)

	assert.Equal(t, 1536, cfg.Embeddings.Dimensions)
	assert.Equal(t, "hnsw", cfg.Store.Backend)
	assert.Equal(t, "loadermcp", cfg.Metrics.Namespace)

	require.NoError(t, cfg.Validate())
}

// =============================================================================
// Layering
// =============================================================================

func TestLoad_NoFiles_ReturnsDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Search, cfg.Search)
}

func TestLoad_ProjectOverridesUser(t *testing.T) {
	// Given: a user config and a project config both setting weights
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	writeFile(t, filepath.Join(xdg, "loadermcp", "config.yaml"), `
search:
  semantic_weight: 0.9
  lexical_weight: 0.1
  overfetch_factor: 6
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), `
search:
  semantic_weight: 0.3
  lexical_weight: 0.7
`)

	// When: loading
	cfg, err := Load(dir)

	// Then: project values win, user-only values survive
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.Search.SemanticWeight)
	assert.Equal(t, 0.7, cfg.Search.LexicalWeight)
	assert.Equal(t, 6, cfg.Search.OverfetchFactor)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
}

func TestLoad_ExplicitZeroWeightIsKept(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), `
search:
  semantic_weight: 0
  lexical_weight: 1
`)

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Search.SemanticWeight)
	assert.Equal(t, 1.0, cfg.Search.LexicalWeight)
}

func TestLoad_YmlFallbackAndDurations(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigAltName), `
server:
  shutdown_grace: 3s
embeddings:
  provider: static
  timeout: 250ms
`)

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownGrace)
	assert.Equal(t, 250*time.Millisecond, cfg.Embeddings.Timeout)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	// Given: a project config and env overrides
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), `
search:
  semantic_weight: 0.3
  lexical_weight: 0.7
`)
	t.Setenv("LOADERMCP_SEMANTIC_WEIGHT", "0.8")
	t.Setenv("LOADERMCP_LEXICAL_WEIGHT", "0.2")
	t.Setenv("LOADERMCP_TRANSPORT", "http")
	t.Setenv("LOADERMCP_REDIS_ADDRS", "a:6379, b:6379")
	t.Setenv("LOADERMCP_STREAMING", "false")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 0.8, cfg.Search.SemanticWeight)
	assert.Equal(t, 0.2, cfg.Search.LexicalWeight)
	assert.Equal(t, TransportHTTP, cfg.Server.Transport)
	assert.Equal(t, []string{"a:6379", "b:6379"}, cfg.Store.RedisAddrs)
	assert.False(t, cfg.Server.Streaming)
}

func TestLoad_MalformedEnvNumber(t *testing.T) {
	isolate(t)
	t.Setenv("LOADERMCP_OVERFETCH_FACTOR", "lots")

	_, err := Load(t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOADERMCP_OVERFETCH_FACTOR")
}

func TestLoad_OpenAIKeyFromConventionalEnv(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.Embeddings.OpenAIAPIKey)
}

func TestLoad_InvalidYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigName), "search: [unclosed")

	_, err := Load(dir)

	assert.Error(t, err)
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"weight above one", func(c *Config) { c.Search.SemanticWeight = 1.5 }, "semantic_weight"},
		{"negative weight", func(c *Config) { c.Search.LexicalWeight = -0.1 }, "lexical_weight"},
		{"both weights zero", func(c *Config) { c.Search.SemanticWeight = 0; c.Search.LexicalWeight = 0 }, "both be 0"},
		{"overfetch zero", func(c *Config) { c.Search.OverfetchFactor = 0 }, "overfetch_factor"},
		{"overfetch too large", func(c *Config) { c.Search.OverfetchFactor = 21 }, "overfetch_factor"},
		{"default above max", func(c *Config) { c.Search.DefaultLimit = 60 }, "default_limit"},
		{"max above fifty", func(c *Config) { c.Search.MaxLimit = 51 }, "max_limit"},
		{"unknown transport", func(c *Config) { c.Server.Transport = "grpc" }, "server.transport"},
		{"unknown provider", func(c *Config) { c.Embeddings.Provider = "mlx" }, "embeddings.provider"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "qdrant" }, "store.backend"},
		{"redis without addrs", func(c *Config) { c.Store.Backend = "redis"; c.Store.RedisAddrs = nil }, "redis_addrs"},
		{"zero grace", func(c *Config) { c.Server.ShutdownGrace = 0 }, "shutdown_grace"},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "trace" }, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// =============================================================================
// Persistence
// =============================================================================

func TestWriteYAML_BacksUpExisting(t *testing.T) {
	// Given: an existing config file
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ProjectConfigName)
	writeFile(t, path, "version: 1\n")

	cfg := NewConfig()
	cfg.Search.SemanticWeight = 0.7
	cfg.Search.LexicalWeight = 0.3

	// When: writing over it
	require.NoError(t, cfg.WriteYAML(path))

	// Then: the old content is in .bak and the new file loads back
	bak, err := os.ReadFile(path + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "version: 1\n", string(bak))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0.7, loaded.Search.SemanticWeight)
}

func TestGetUserConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	assert.Equal(t, filepath.Join("/tmp/xdg", "loadermcp", "config.yaml"), GetUserConfigPath())
}
