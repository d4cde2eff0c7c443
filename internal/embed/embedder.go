// Package embed turns query text into dense vectors.
//
// Providers (Ollama, OpenAI, static hashing) implement Embedder. The factory
// composes them with an LRU cache and a retry/circuit-breaker guard so that
// callers see a single failure kind, errors.ErrEmbeddingUnavailable, when the
// provider cannot answer in time.
package embed

import (
	"context"
	"math"
)

// Embedder generates vector embeddings for query text.
type Embedder interface {
	// Embed generates an L2-normalized embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Available reports whether the provider can currently serve requests.
	Available(ctx context.Context) bool

	// Close releases resources.
	Close() error
}

// ProviderType names an embedding provider.
type ProviderType string

const (
	// ProviderOllama calls a local or remote Ollama server.
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI calls the OpenAI (or compatible) embeddings API.
	ProviderOpenAI ProviderType = "openai"

	// ProviderStatic uses deterministic hash embeddings. No network.
	ProviderStatic ProviderType = "static"
)

// normalizeVector scales v to unit length in place. Zero vectors are left as is.
func normalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, x := range in {
		out[i] = float32(x)
	}
	return out
}
