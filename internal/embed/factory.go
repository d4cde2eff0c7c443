package embed

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/config"
	lerrors "github.com/martin-papy/qdrant-loader-mcp-server/internal/errors"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/metrics"
)

// NewProvider builds the bare provider named by cfg.Provider.
func NewProvider(cfg config.EmbeddingsConfig) (Embedder, error) {
	switch ProviderType(strings.ToLower(cfg.Provider)) {
	case ProviderOllama:
		return NewOllamaEmbedder(OllamaConfig{
			Host:       cfg.OllamaHost,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case ProviderOpenAI:
		return NewOpenAIEmbedder(OpenAIConfig{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.OpenAIBaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})
	case ProviderStatic:
		return NewStaticEmbedder(cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q (want ollama, openai or static)", cfg.Provider)
	}
}

// New builds the provider and wraps it as Cached(Guarded(provider)), so cache
// hits never count against the circuit breaker. m may be nil.
func New(cfg config.EmbeddingsConfig, m *metrics.Metrics) (Embedder, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	retry := lerrors.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries

	guarded := NewGuardedEmbedder(provider, GuardConfig{
		Provider:        strings.ToLower(cfg.Provider),
		Timeout:         cfg.Timeout,
		Retry:           retry,
		BreakerFailures: cfg.BreakerFailures,
		BreakerReset:    cfg.BreakerReset,
	}, m)

	slog.Debug("embedder_created",
		slog.String("provider", cfg.Provider),
		slog.String("model", provider.ModelName()),
		slog.Int("dimensions", provider.Dimensions()),
		slog.Duration("timeout", cfg.Timeout),
		slog.Int("cache_size", cfg.CacheSize))

	if cfg.CacheSize <= 0 {
		return guarded, nil
	}
	return NewCachedEmbedder(guarded, cfg.CacheSize, m), nil
}
