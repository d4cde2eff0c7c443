package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/config"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/embed"
	lerrors "github.com/martin-papy/qdrant-loader-mcp-server/internal/errors"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/metrics"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/search"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/store"
)

// backend is everything a search needs, opened once per process.
type backend struct {
	catalog  *store.Catalog
	vectors  store.VectorStore
	corpus   *store.CorpusIndex
	keywords *store.KeywordIndex
	embedder embed.Embedder
	engine   *search.Engine
}

// openBackend opens the vector store, builds the corpus statistics and the
// keyword index, and wires the engine. With the hnsw backend the catalog
// feeds the graph, the statistics and the keyword index, which load
// concurrently. m may be nil.
func openBackend(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*backend, error) {
	start := time.Now()
	b := &backend{}

	analyzer, err := store.NewAnalyzer(store.AnalyzerOptions{StopWords: cfg.Search.StopWords})
	if err != nil {
		return nil, lerrors.InternalError("failed to build analyzer", err)
	}
	params := store.BM25Params{K1: cfg.Search.BM25K1, B: cfg.Search.BM25B}

	switch cfg.Store.Backend {
	case "redis":
		rs, err := store.NewRedisStore(store.RedisConfig{
			Addrs:    cfg.Store.RedisAddrs,
			Username: cfg.Store.RedisUsername,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			Index:    cfg.Store.RedisIndex,
		})
		if err != nil {
			return nil, lerrors.RetrievalUnavailable(err)
		}
		b.vectors = rs
		if b.corpus, err = store.LoadCorpusIndex(ctx, rs, analyzer, params); err != nil {
			b.Close()
			return nil, lerrors.RetrievalUnavailable(err)
		}
		if b.keywords, err = store.LoadKeywordIndex(ctx, rs, analyzer); err != nil {
			b.Close()
			return nil, lerrors.RetrievalUnavailable(err)
		}

	default:
		if _, err := os.Stat(cfg.Store.CatalogPath); errors.Is(err, os.ErrNotExist) {
			return nil, lerrors.New(lerrors.ErrCodeCatalogMissing,
				fmt.Sprintf("catalog not found at %s", cfg.Store.CatalogPath), err)
		}
		catalog, err := store.OpenCatalog(cfg.Store.CatalogPath)
		if err != nil {
			return nil, lerrors.New(lerrors.ErrCodeCorruptIndex, "failed to open catalog", err)
		}
		b.catalog = catalog

		var hs *store.HNSWStore
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			hs, err = store.LoadHNSWStore(gctx, catalog, store.HNSWConfig{
				Dimensions: cfg.Embeddings.Dimensions,
				M:          cfg.Store.HNSWM,
				EfSearch:   cfg.Store.HNSWEfSearch,
			})
			return err
		})
		g.Go(func() error {
			var err error
			b.corpus, err = store.LoadCorpusIndex(gctx, catalog, analyzer, params)
			return err
		})
		g.Go(func() error {
			var err error
			b.keywords, err = store.LoadKeywordIndex(gctx, catalog, analyzer)
			return err
		})
		if err := g.Wait(); err != nil {
			if hs != nil {
				_ = hs.Close()
			}
			b.Close()
			return nil, lerrors.New(lerrors.ErrCodeCorruptIndex, "failed to load corpus", err)
		}
		b.vectors = hs
	}

	b.embedder, err = embed.New(cfg.Embeddings, m)
	if err != nil {
		b.Close()
		return nil, lerrors.ConfigError("failed to create embedder", err)
	}

	b.engine, err = search.NewEngine(b.embedder, b.vectors, b.corpus, search.EngineConfigFrom(cfg),
		search.WithMetrics(m), search.WithKeywordIndex(b.keywords))
	if err != nil {
		b.Close()
		return nil, lerrors.ConfigError("failed to create search engine", err)
	}

	slog.Info("backend_ready",
		slog.String("store", cfg.Store.Backend),
		slog.String("embedder", b.embedder.ModelName()),
		slog.Int("documents", b.corpus.DocCount()),
		slog.Int("vocabulary", b.corpus.VocabularySize()),
		slog.Duration("duration", time.Since(start)))
	return b, nil
}

// Close releases every opened handle. Safe on a partially built backend.
func (b *backend) Close() {
	if b.embedder != nil {
		_ = b.embedder.Close()
	}
	if b.vectors != nil {
		_ = b.vectors.Close()
	}
	if b.keywords != nil {
		_ = b.keywords.Close()
	}
	if b.catalog != nil {
		_ = b.catalog.Close()
	}
}
