package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"
)

// DefaultStaticDimensions is used when no dimension is configured.
const DefaultStaticDimensions = 256

const (
	tokenWeight   = 0.7
	trigramWeight = 0.3
)

// StaticEmbedder produces deterministic embeddings by hashing tokens and
// character trigrams into a fixed number of buckets. Quality is far below a
// neural model but it needs no network, which makes it the provider for
// tests, offline demos and catalogs built the same way.
type StaticEmbedder struct {
	dims int

	mu     sync.RWMutex
	closed bool
}

// NewStaticEmbedder creates a static embedder with the given dimension.
func NewStaticEmbedder(dims int) *StaticEmbedder {
	if dims <= 0 {
		dims = DefaultStaticDimensions
	}
	return &StaticEmbedder{dims: dims}
}

// Embed implements Embedder.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, fmt.Errorf("static: embedder is closed")
	}

	vec := make([]float32, e.dims)
	tokens := staticTokens(text)
	if len(tokens) == 0 {
		return vec, nil
	}

	for _, tok := range tokens {
		vec[hashToIndex(tok, e.dims)] += tokenWeight
		for _, tri := range trigrams(tok) {
			vec[hashToIndex("#"+tri, e.dims)] += trigramWeight
		}
	}
	return normalizeVector(vec), nil
}

// staticTokens lowercases and splits on anything that is not a letter or digit.
func staticTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// trigrams returns the character trigrams of a padded token.
func trigrams(tok string) []string {
	runes := []rune("^" + tok + "$")
	if len(runes) < 3 {
		return nil
	}
	out := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		out = append(out, string(runes[i:i+3]))
	}
	return out
}

func hashToIndex(s string, size int) int {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum64() % uint64(size))
}

// Dimensions implements Embedder.
func (e *StaticEmbedder) Dimensions() int { return e.dims }

// ModelName implements Embedder.
func (e *StaticEmbedder) ModelName() string { return "static" }

// Available implements Embedder.
func (e *StaticEmbedder) Available(_ context.Context) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return !e.closed
}

// Close implements Embedder.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

var _ Embedder = (*StaticEmbedder)(nil)
