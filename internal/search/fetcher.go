package search

import (
	"context"
	"time"

	lerrors "github.com/martin-papy/qdrant-loader-mcp-server/internal/errors"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/store"
)

// CandidateFetcher retrieves the over-fetched candidate set from the vector
// store. An empty slice is a valid answer; any store failure is
// errors.ErrRetrievalUnavailable.
type CandidateFetcher struct {
	store    store.VectorStore
	keywords KeywordSource
	timeout  time.Duration
}

// KeywordSource ranks the corpus by term relevance without a query vector.
// *store.KeywordIndex implements it.
type KeywordSource interface {
	Search(ctx context.Context, text string, filter store.Filter, limit int) ([]store.Document, error)
}

// NewCandidateFetcher creates a fetcher. A zero timeout means the caller's
// context is the only bound.
func NewCandidateFetcher(vs store.VectorStore, timeout time.Duration) *CandidateFetcher {
	return &CandidateFetcher{store: vs, timeout: timeout}
}

// Fetch returns up to count candidates nearest to vector under filter,
// semantic score clamped to [0,1].
func (f *CandidateFetcher) Fetch(ctx context.Context, vector []float32, filter store.Filter, count int) ([]store.Candidate, error) {
	fctx, cancel := f.bound(ctx)
	defer cancel()

	cands, err := f.store.Query(fctx, vector, filter, count)
	if err != nil {
		return nil, f.wrap(ctx, err)
	}
	if cands == nil {
		cands = []store.Candidate{}
	}
	for i := range cands {
		cands[i].SemanticScore = clamp01(cands[i].SemanticScore)
	}
	return cands, nil
}

// Fallback returns up to count documents for text with no semantic
// ranking. Used when the query could not be embedded. With a keyword source
// the documents are the count most relevant ones; otherwise the store is
// scrolled for documents containing any of terms.
func (f *CandidateFetcher) Fallback(ctx context.Context, text string, terms []string, filter store.Filter, count int) ([]store.Document, error) {
	fctx, cancel := f.bound(ctx)
	defer cancel()

	var (
		docs []store.Document
		err  error
	)
	if f.keywords != nil {
		docs, err = f.keywords.Search(fctx, text, filter, count)
	} else {
		docs, err = f.store.Scroll(fctx, terms, filter, count)
	}
	if err != nil {
		return nil, f.wrap(ctx, err)
	}
	if docs == nil {
		docs = []store.Document{}
	}
	return docs, nil
}

func (f *CandidateFetcher) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.timeout)
}

// wrap keeps caller cancellation distinct from store failure.
func (f *CandidateFetcher) wrap(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return lerrors.RetrievalUnavailable(err)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
