package embed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	lerrors "github.com/martin-papy/qdrant-loader-mcp-server/internal/errors"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/metrics"
)

// GuardConfig bounds how long and how often a provider is tried.
type GuardConfig struct {
	Provider        string
	Timeout         time.Duration
	Retry           lerrors.RetryConfig
	BreakerFailures int
	BreakerReset    time.Duration
}

// GuardedEmbedder applies a timeout, retries and a circuit breaker to an
// inner embedder. Every provider failure surfaces as
// errors.ErrEmbeddingUnavailable; cancellation of the caller's context is
// returned unchanged.
type GuardedEmbedder struct {
	inner   Embedder
	cfg     GuardConfig
	breaker *lerrors.CircuitBreaker
	metrics *metrics.Metrics
}

// NewGuardedEmbedder wraps inner. m may be nil.
func NewGuardedEmbedder(inner Embedder, cfg GuardConfig, m *metrics.Metrics) *GuardedEmbedder {
	if cfg.Provider == "" {
		cfg.Provider = inner.ModelName()
	}
	var opts []lerrors.CircuitBreakerOption
	if cfg.BreakerFailures > 0 {
		opts = append(opts, lerrors.WithMaxFailures(cfg.BreakerFailures))
	}
	if cfg.BreakerReset > 0 {
		opts = append(opts, lerrors.WithResetTimeout(cfg.BreakerReset))
	}

	retry := cfg.Retry
	retry.ShouldRetry = func(err error) bool {
		return !errors.Is(err, lerrors.ErrCircuitOpen) &&
			!errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded)
	}
	cfg.Retry = retry

	return &GuardedEmbedder{
		inner:   inner,
		cfg:     cfg,
		breaker: lerrors.NewCircuitBreaker("embed-"+cfg.Provider, opts...),
		metrics: m,
	}
}

// Embed implements Embedder.
func (g *GuardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()

	callCtx := ctx
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	vec, err := lerrors.RetryWithResult(callCtx, g.cfg.Retry, func() ([]float32, error) {
		return lerrors.CircuitExecute(g.breaker, func() ([]float32, error) {
			return g.inner.Embed(callCtx, text)
		})
	})
	if err == nil {
		g.metrics.ObserveEmbedding(g.cfg.Provider, "success", time.Since(start))
		return vec, nil
	}

	// The caller gave up; that is not a provider failure.
	if ctxErr := ctx.Err(); ctxErr != nil {
		g.metrics.ObserveEmbedding(g.cfg.Provider, "cancelled", time.Since(start))
		return nil, ctxErr
	}

	status := "error"
	switch {
	case errors.Is(err, lerrors.ErrCircuitOpen):
		status = "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		status = "timeout"
	}
	g.metrics.ObserveEmbedding(g.cfg.Provider, status, time.Since(start))
	slog.Warn("embedding_failed",
		slog.String("provider", g.cfg.Provider),
		slog.String("status", status),
		slog.String("error", err.Error()))

	return nil, lerrors.EmbeddingUnavailable(err).WithDetail("provider", g.cfg.Provider)
}

// BreakerState reports the circuit breaker state.
func (g *GuardedEmbedder) BreakerState() lerrors.State { return g.breaker.State() }

// Dimensions implements Embedder.
func (g *GuardedEmbedder) Dimensions() int { return g.inner.Dimensions() }

// ModelName implements Embedder.
func (g *GuardedEmbedder) ModelName() string { return g.inner.ModelName() }

// Available is false while the breaker is open.
func (g *GuardedEmbedder) Available(ctx context.Context) bool {
	if g.breaker.State() == lerrors.StateOpen {
		return false
	}
	return g.inner.Available(ctx)
}

// Close implements Embedder.
func (g *GuardedEmbedder) Close() error { return g.inner.Close() }

var _ Embedder = (*GuardedEmbedder)(nil)
