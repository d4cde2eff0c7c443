package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/config"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/embed"
	lerrors "github.com/martin-papy/qdrant-loader-mcp-server/internal/errors"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/metrics"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/store"
)

// EngineConfig holds the tunables of the search pipeline.
type EngineConfig struct {
	Weights         Weights
	OverfetchFactor int
	DefaultLimit    int
	MaxLimit        int
	SearchTimeout   time.Duration
	FetchTimeout    time.Duration
	QueryExpansion  bool
}

// DefaultEngineConfig returns equal weights and a 4x over-fetch.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Weights:         DefaultWeights(),
		OverfetchFactor: 4,
		DefaultLimit:    DefaultLimit,
		MaxLimit:        MaxLimitBound,
		SearchTimeout:   30 * time.Second,
		FetchTimeout:    5 * time.Second,
		QueryExpansion:  true,
	}
}

// EngineConfigFrom maps loaded configuration onto the engine.
func EngineConfigFrom(cfg *config.Config) EngineConfig {
	return EngineConfig{
		Weights: Weights{
			Semantic: cfg.Search.SemanticWeight,
			Lexical:  cfg.Search.LexicalWeight,
		},
		OverfetchFactor: cfg.Search.OverfetchFactor,
		DefaultLimit:    cfg.Search.DefaultLimit,
		MaxLimit:        cfg.Search.MaxLimit,
		SearchTimeout:   cfg.Search.SearchTimeout,
		FetchTimeout:    cfg.Store.FetchTimeout,
		QueryExpansion:  cfg.Search.QueryExpansion,
	}
}

// Engine is the top-level query-to-results operation. It holds explicit
// handles to its collaborators and no per-query state, so one Engine serves
// any number of concurrent searches.
type Engine struct {
	embedder   embed.Embedder
	corpus     *store.CorpusIndex
	classifier *IntentClassifier
	expander   *QueryExpander
	fetcher    *CandidateFetcher
	scorer     *LexicalScorer
	ranker     *FusionRanker
	fallback   *FusionRanker
	cfg        EngineConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// EngineOption configures optional Engine behavior.
type EngineOption func(*Engine)

// WithMetrics records search outcomes on m.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithClassifier replaces the default intent classifier.
func WithClassifier(c *IntentClassifier) EngineOption {
	return func(e *Engine) { e.classifier = c }
}

// WithQueryExpander replaces the default expander. Ignored when expansion
// is disabled in the config.
func WithQueryExpander(x *QueryExpander) EngineOption {
	return func(e *Engine) { e.expander = x }
}

// WithKeywordIndex makes degraded searches draw their candidates from k
// instead of a store scroll.
func WithKeywordIndex(k KeywordSource) EngineOption {
	return func(e *Engine) { e.fetcher.keywords = k }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine wires the pipeline.
func NewEngine(embedder embed.Embedder, vs store.VectorStore, corpus *store.CorpusIndex, cfg EngineConfig, opts ...EngineOption) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if vs == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if corpus == nil {
		return nil, fmt.Errorf("corpus index is required")
	}
	if cfg.Weights.Semantic < 0 || cfg.Weights.Lexical < 0 || cfg.Weights.Semantic+cfg.Weights.Lexical == 0 {
		return nil, fmt.Errorf("invalid fusion weights %+v", cfg.Weights)
	}
	if cfg.OverfetchFactor < 1 {
		cfg.OverfetchFactor = 1
	}
	if cfg.MaxLimit <= 0 || cfg.MaxLimit > MaxLimitBound {
		cfg.MaxLimit = MaxLimitBound
	}
	if cfg.DefaultLimit <= 0 || cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = min(DefaultLimit, cfg.MaxLimit)
	}

	e := &Engine{
		embedder:   embedder,
		corpus:     corpus,
		classifier: NewIntentClassifier(),
		fetcher:    NewCandidateFetcher(vs, cfg.FetchTimeout),
		scorer:     NewLexicalScorer(corpus),
		ranker:     NewFusionRanker(cfg.Weights),
		fallback:   NewFusionRanker(LexicalOnly()),
		cfg:        cfg,
		logger:     slog.Default(),
	}
	if cfg.QueryExpansion {
		e.expander = NewQueryExpander()
	}
	for _, opt := range opts {
		opt(e)
	}
	if !cfg.QueryExpansion {
		e.expander = nil
	}
	return e, nil
}

// Config returns the effective engine configuration.
func (e *Engine) Config() EngineConfig { return e.cfg }

// ParseQuery validates raw request fields against the engine's limits.
func (e *Engine) ParseQuery(text string, sourceTypes []string, limit int) (Query, error) {
	return NewQuery(text, sourceTypes, limit, e.cfg.DefaultLimit, e.cfg.MaxLimit)
}

// Search runs the full pipeline for q.
//
// If the embedder fails the search degrades to lexical-only ranking over
// the most keyword-relevant documents (or a store scroll by query terms
// when no keyword index is configured). If the store fails the
// search fails with errors.ErrRetrievalUnavailable. Caller cancellation is
// returned as the context error.
func (e *Engine) Search(ctx context.Context, q Query) (*Response, error) {
	start := time.Now()
	if e.cfg.SearchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.SearchTimeout)
		defer cancel()
	}

	resp, err := e.search(ctx, q)
	elapsed := time.Since(start)

	if err != nil {
		outcome := "error"
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			outcome = "cancelled"
		}
		e.metrics.ObserveSearch(outcome, elapsed, 0)
		e.logger.Warn("search_failed",
			slog.String("outcome", outcome),
			slog.String("error_code", lerrors.GetCode(err)),
			slog.Duration("duration", elapsed))
		return nil, err
	}

	outcome := "success"
	if resp.Degraded {
		outcome = "degraded"
	}
	e.metrics.ObserveSearch(outcome, elapsed, resp.Candidates)
	e.logger.Debug("search_complete",
		slog.Int("results", len(resp.Results)),
		slog.Int("candidates", resp.Candidates),
		slog.Bool("degraded", resp.Degraded),
		slog.Bool("truncated", resp.Truncated),
		slog.Any("filter", resp.Filter.Strings()),
		slog.Duration("duration", elapsed))
	return resp, nil
}

func (e *Engine) search(ctx context.Context, q Query) (*Response, error) {
	filter := q.Filter
	if !q.Explicit() {
		filter = store.NewFilter(e.classifier.Classify(q.Text)...)
	}
	fetchCount := q.Limit * e.cfg.OverfetchFactor

	embedText := q.Text
	if e.expander != nil {
		embedText = e.expander.Expand(q.Text)
	}

	vec, embedErr := e.embedder.Embed(ctx, embedText)
	if embedErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return e.degradedSearch(ctx, q, filter, fetchCount, embedErr)
	}

	cands, err := e.fetcher.Fetch(ctx, vec, filter, fetchCount)
	if err != nil {
		return nil, err
	}

	docs := make([]store.Document, len(cands))
	for i, c := range cands {
		docs[i] = c.Document
	}
	lexical := e.scorer.Score(q.Text, docs)

	scored := make([]ScoredCandidate, len(cands))
	for i, c := range cands {
		scored[i] = ScoredCandidate{Document: c.Document, Semantic: c.SemanticScore, Lexical: lexical[c.ID]}
	}

	results, truncated := e.ranker.Rank(scored, q.Limit)
	return &Response{
		Results:    results,
		Truncated:  truncated,
		Filter:     filter,
		Candidates: len(scored),
	}, nil
}

func (e *Engine) degradedSearch(ctx context.Context, q Query, filter store.Filter, fetchCount int, cause error) (*Response, error) {
	e.metrics.SearchDegraded()
	e.logger.Warn("embedding_degraded",
		slog.String("error_code", lerrors.GetCode(cause)),
		slog.String("error", cause.Error()))

	terms := e.corpus.Analyzer().UniqueTerms(q.Text)
	docs, err := e.fetcher.Fallback(ctx, q.Text, terms, filter, fetchCount)
	if err != nil {
		return nil, err
	}

	lexical := e.scorer.Score(q.Text, docs)
	scored := make([]ScoredCandidate, len(docs))
	for i, d := range docs {
		scored[i] = ScoredCandidate{Document: d, Lexical: lexical[d.ID]}
	}

	results, truncated := e.fallback.Rank(scored, q.Limit)
	return &Response{
		Results:    results,
		Truncated:  truncated,
		Degraded:   true,
		Filter:     filter,
		Candidates: len(scored),
	}, nil
}
