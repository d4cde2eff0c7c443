package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/metrics"
)

// DefaultEmbeddingCacheSize is the number of query embeddings kept in memory.
const DefaultEmbeddingCacheSize = 1000

// CachedEmbedder keeps recent query embeddings in an LRU. Errors are never cached.
type CachedEmbedder struct {
	inner   Embedder
	cache   *lru.Cache[string, []float32]
	metrics *metrics.Metrics
}

// NewCachedEmbedder wraps inner with a cache of cacheSize entries.
// m may be nil.
func NewCachedEmbedder(inner Embedder, cacheSize int, m *metrics.Metrics) *CachedEmbedder {
	if cacheSize <= 0 {
		cacheSize = DefaultEmbeddingCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	return &CachedEmbedder{inner: inner, cache: cache, metrics: m}
}

// cacheKey includes the model so a model switch never serves stale vectors.
func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text + "\x00" + c.inner.ModelName()))
	return hex.EncodeToString(sum[:])
}

// Embed implements Embedder. The returned slice is a copy.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		c.metrics.EmbeddingCache(true)
		return append([]float32(nil), vec...), nil
	}
	c.metrics.EmbeddingCache(false)

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, append([]float32(nil), vec...))
	return vec, nil
}

// Len returns the number of cached entries.
func (c *CachedEmbedder) Len() int { return c.cache.Len() }

// Purge drops every cached entry.
func (c *CachedEmbedder) Purge() { c.cache.Purge() }

// Dimensions implements Embedder.
func (c *CachedEmbedder) Dimensions() int { return c.inner.Dimensions() }

// ModelName implements Embedder.
func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

// Available implements Embedder.
func (c *CachedEmbedder) Available(ctx context.Context) bool { return c.inner.Available(ctx) }

// Close purges the cache and closes the inner embedder.
func (c *CachedEmbedder) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}

var _ Embedder = (*CachedEmbedder)(nil)
