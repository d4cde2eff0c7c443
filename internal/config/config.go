// Package config loads loadermcp configuration from defaults, YAML files and
// LOADERMCP_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Project and user config file names.
const (
	ProjectConfigName    = ".loadermcp.yaml"
	ProjectConfigAltName = ".loadermcp.yml"
	EnvPrefix            = "LOADERMCP_"
)

// Transports accepted by server.transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
	TransportMCP   = "mcp"
)

// Config is the complete loadermcp configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Server     ServerConfig     `yaml:"server" json:"server"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Store      StoreConfig      `yaml:"store" json:"store"`
	Metrics    MetricsConfig    `yaml:"metrics" json:"metrics"`
}

// ServerConfig configures the protocol server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Host      string `yaml:"host" json:"host"`
	Port      int    `yaml:"port" json:"port"`
	LogLevel  string `yaml:"log_level" json:"log_level"`

	// ShutdownGrace bounds how long shutdown waits for in-flight searches.
	ShutdownGrace time.Duration `yaml:"shutdown_grace" json:"shutdown_grace"`

	// MaxConcurrency bounds in-flight searches per session.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`

	// Streaming is the server-side default; clients may opt out during initialize.
	Streaming bool `yaml:"streaming" json:"streaming"`

	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`
}

// SearchConfig configures ranking.
// Weights are configurable via:
//  1. User config (~/.config/loadermcp/config.yaml)
//  2. Project config (.loadermcp.yaml)
//  3. Env vars (LOADERMCP_SEMANTIC_WEIGHT, LOADERMCP_LEXICAL_WEIGHT)
type SearchConfig struct {
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
	LexicalWeight  float64 `yaml:"lexical_weight" json:"lexical_weight"`

	// OverfetchFactor multiplies the limit when querying the vector store.
	OverfetchFactor int `yaml:"overfetch_factor" json:"overfetch_factor"`

	DefaultLimit  int           `yaml:"default_limit" json:"default_limit"`
	MaxLimit      int           `yaml:"max_limit" json:"max_limit"`
	SearchTimeout time.Duration `yaml:"search_timeout" json:"search_timeout"`

	BM25K1 float64 `yaml:"bm25_k1" json:"bm25_k1"`
	BM25B  float64 `yaml:"bm25_b" json:"bm25_b"`

	// StopWords toggles stop word removal for both corpus build and queries.
	StopWords bool `yaml:"stop_words" json:"stop_words"`

	QueryExpansion bool `yaml:"query_expansion" json:"query_expansion"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`

	OllamaHost    string `yaml:"ollama_host" json:"ollama_host"`
	OpenAIBaseURL string `yaml:"openai_base_url" json:"openai_base_url"`
	OpenAIAPIKey  string `yaml:"openai_api_key" json:"-"`

	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	CacheSize  int           `yaml:"cache_size" json:"cache_size"`

	BreakerFailures int           `yaml:"breaker_failures" json:"breaker_failures"`
	BreakerReset    time.Duration `yaml:"breaker_reset" json:"breaker_reset"`
}

// StoreConfig configures the vector store and the document catalog.
type StoreConfig struct {
	Backend     string `yaml:"backend" json:"backend"`
	CatalogPath string `yaml:"catalog_path" json:"catalog_path"`
	Collection  string `yaml:"collection" json:"collection"`

	RedisAddrs    []string `yaml:"redis_addrs" json:"redis_addrs"`
	RedisUsername string   `yaml:"redis_username" json:"redis_username"`
	RedisPassword string   `yaml:"redis_password" json:"-"`
	RedisDB       int      `yaml:"redis_db" json:"redis_db"`
	RedisIndex    string   `yaml:"redis_index" json:"redis_index"`

	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`

	HNSWM        int `yaml:"hnsw_m" json:"hnsw_m"`
	HNSWEfSearch int `yaml:"hnsw_ef_search" json:"hnsw_ef_search"`
}

// MetricsConfig configures Prometheus exposition.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Path      string `yaml:"path" json:"path"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			Transport:      TransportStdio,
			Host:           "0.0.0.0",
			Port:           8000,
			LogLevel:       "info",
			ShutdownGrace:  10 * time.Second,
			MaxConcurrency: 8,
			Streaming:      true,
			CORSOrigins:    []string{"*"},
		},
		Search: SearchConfig{
			SemanticWeight:  0.5,
			LexicalWeight:   0.5,
			OverfetchFactor: 4,
			DefaultLimit:    10,
			MaxLimit:        50,
			SearchTimeout:   30 * time.Second,
			BM25K1:          1.2,
			BM25B:           0.75,
			StopWords:       true,
			QueryExpansion:  true,
		},
		Embeddings: EmbeddingsConfig{
			Provider:        "openai",
			Model:           "text-embedding-3-small",
			Dimensions:      1536,
			OllamaHost:      "http://localhost:11434",
			Timeout:         10 * time.Second,
			MaxRetries:      2,
			CacheSize:       1000,
			BreakerFailures: 5,
			BreakerReset:    30 * time.Second,
		},
		Store: StoreConfig{
			Backend:      "hnsw",
			CatalogPath:  filepath.Join(DataDir(), "catalog.db"),
			Collection:   "documents",
			RedisAddrs:   []string{"localhost:6379"},
			RedisIndex:   "idx:documents",
			FetchTimeout: 5 * time.Second,
			HNSWM:        16,
			HNSWEfSearch: 64,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "loadermcp",
		},
	}
}

// DataDir returns ~/.loadermcp, falling back to the temp dir.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".loadermcp")
	}
	return filepath.Join(home, ".loadermcp")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/loadermcp/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/loadermcp/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "loadermcp", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "loadermcp", "config.yaml")
	}
	return filepath.Join(home, ".config", "loadermcp", "config.yaml")
}

// Load loads configuration for the given project directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User config (~/.config/loadermcp/config.yaml)
//  3. Project config (.loadermcp.yaml in dir)
//  4. Environment variables (LOADERMCP_*)
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if path := ProjectConfigPath(dir); path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, or "" if none.
// .yaml takes precedence over .yml.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{ProjectConfigName, ProjectConfigAltName} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// loadYAML decodes path on top of the current values. Keys absent from the
// file keep their current value; keys present replace it, including zeros.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies LOADERMCP_* environment variable overrides.
// Malformed numeric values are reported rather than ignored.
func (c *Config) applyEnvOverrides() error {
	floats := map[string]*float64{
		"SEMANTIC_WEIGHT": &c.Search.SemanticWeight,
		"LEXICAL_WEIGHT":  &c.Search.LexicalWeight,
	}
	for key, dst := range floats {
		if v, ok := lookupEnv(key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = f
		}
	}

	ints := map[string]*int{
		"OVERFETCH_FACTOR": &c.Search.OverfetchFactor,
		"PORT":             &c.Server.Port,
		"MAX_CONCURRENCY":  &c.Server.MaxConcurrency,
		"DIMENSIONS":       &c.Embeddings.Dimensions,
	}
	for key, dst := range ints {
		if v, ok := lookupEnv(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	strs := map[string]*string{
		"TRANSPORT":           &c.Server.Transport,
		"HOST":                &c.Server.Host,
		"LOG_LEVEL":           &c.Server.LogLevel,
		"EMBEDDINGS_PROVIDER": &c.Embeddings.Provider,
		"EMBEDDINGS_MODEL":    &c.Embeddings.Model,
		"OLLAMA_HOST":         &c.Embeddings.OllamaHost,
		"OPENAI_BASE_URL":     &c.Embeddings.OpenAIBaseURL,
		"STORE_BACKEND":       &c.Store.Backend,
		"CATALOG_PATH":        &c.Store.CatalogPath,
		"REDIS_PASSWORD":      &c.Store.RedisPassword,
		"REDIS_INDEX":         &c.Store.RedisIndex,
	}
	for key, dst := range strs {
		if v, ok := lookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := lookupEnv("REDIS_ADDRS"); ok {
		c.Store.RedisAddrs = splitList(v)
	}
	if v, ok := lookupEnv("STREAMING"); ok {
		c.Server.Streaming = parseBool(v)
	}

	// The conventional OpenAI variable is honoured when no explicit key is set.
	if c.Embeddings.OpenAIAPIKey == "" {
		c.Embeddings.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v, ok := lookupEnv("OPENAI_API_KEY"); ok {
		c.Embeddings.OpenAIAPIKey = v
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	s := c.Search
	if s.SemanticWeight < 0 || s.SemanticWeight > 1 {
		return fmt.Errorf("semantic_weight must be between 0 and 1, got %g", s.SemanticWeight)
	}
	if s.LexicalWeight < 0 || s.LexicalWeight > 1 {
		return fmt.Errorf("lexical_weight must be between 0 and 1, got %g", s.LexicalWeight)
	}
	if s.SemanticWeight == 0 && s.LexicalWeight == 0 {
		return fmt.Errorf("semantic_weight and lexical_weight cannot both be 0")
	}
	if s.OverfetchFactor < 1 || s.OverfetchFactor > 20 {
		return fmt.Errorf("overfetch_factor must be between 1 and 20, got %d", s.OverfetchFactor)
	}
	if s.MaxLimit < 1 || s.MaxLimit > 50 {
		return fmt.Errorf("max_limit must be between 1 and 50, got %d", s.MaxLimit)
	}
	if s.DefaultLimit < 1 || s.DefaultLimit > s.MaxLimit {
		return fmt.Errorf("default_limit must be between 1 and max_limit (%d), got %d", s.MaxLimit, s.DefaultLimit)
	}
	if s.SearchTimeout <= 0 {
		return fmt.Errorf("search_timeout must be positive")
	}
	if s.BM25K1 < 0 || s.BM25B < 0 || s.BM25B > 1 {
		return fmt.Errorf("bm25_k1 must be >= 0 and bm25_b within [0,1]")
	}

	if !oneOf(c.Server.Transport, TransportStdio, TransportHTTP, TransportMCP) {
		return fmt.Errorf("server.transport must be 'stdio', 'http' or 'mcp', got %s", c.Server.Transport)
	}
	if !oneOf(c.Server.LogLevel, "debug", "info", "warn", "error") {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.MaxConcurrency < 1 {
		return fmt.Errorf("server.max_concurrency must be at least 1")
	}
	if c.Server.ShutdownGrace <= 0 {
		return fmt.Errorf("server.shutdown_grace must be positive")
	}

	if !oneOf(c.Embeddings.Provider, "ollama", "openai", "static") {
		return fmt.Errorf("embeddings.provider must be 'ollama', 'openai' or 'static', got %s", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimensions < 0 {
		return fmt.Errorf("embeddings.dimensions must be non-negative")
	}
	if c.Embeddings.Timeout <= 0 {
		return fmt.Errorf("embeddings.timeout must be positive")
	}

	if !oneOf(c.Store.Backend, "hnsw", "redis") {
		return fmt.Errorf("store.backend must be 'hnsw' or 'redis', got %s", c.Store.Backend)
	}
	if c.Store.Backend == "redis" && len(c.Store.RedisAddrs) == 0 {
		return fmt.Errorf("store.redis_addrs is required for the redis backend")
	}
	if c.Store.FetchTimeout <= 0 {
		return fmt.Errorf("store.fetch_timeout must be positive")
	}
	return nil
}

func oneOf(v string, allowed ...string) bool {
	v = strings.ToLower(v)
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// WriteYAML writes the configuration to path. An existing file is kept as
// path.bak first.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if fileExists(path) {
		prev, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read existing config: %w", err)
		}
		if err := os.WriteFile(path+".bak", prev, 0o600); err != nil {
			return fmt.Errorf("failed to back up existing config: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
