package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures the OpenAI embedder.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
}

// OpenAIEmbedder calls the OpenAI embeddings API, or any server that speaks it.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int

	mu     sync.RWMutex
	closed bool
}

// NewOpenAIEmbedder creates an OpenAI-compatible embedder.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("openai: model is required")
	}
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, fmt.Errorf("openai: api key is required (set OPENAI_API_KEY or LOADERMCP_OPENAI_API_KEY)")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
	}, nil
}

// Embed implements Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.isClosed() {
		return nil, fmt.Errorf("openai: embedder is closed")
	}

	req := openai.EmbeddingRequest{
		Input:          []string{text},
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return nil, parseAPIError(err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai: empty embedding response")
	}

	vec := append([]float32(nil), resp.Data[0].Embedding...)
	if e.dimensions > 0 && len(vec) != e.dimensions {
		return nil, fmt.Errorf("openai: model %s returned %d dimensions, expected %d", e.model, len(vec), e.dimensions)
	}
	return normalizeVector(vec), nil
}

// Dimensions implements Embedder.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName implements Embedder.
func (e *OpenAIEmbedder) ModelName() string {
	return string(e.model)
}

// Available lists models, which costs nothing.
func (e *OpenAIEmbedder) Available(ctx context.Context) bool {
	if e.isClosed() {
		return false
	}
	_, err := e.client.ListModels(ctx)
	return err == nil
}

// Close implements Embedder.
func (e *OpenAIEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *OpenAIEmbedder) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

// parseAPIError turns client errors into a readable message.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("openai: api error %d: %s", reqErr.HTTPStatusCode, detail)
		}
		return fmt.Errorf("openai: api error %d: %w", reqErr.HTTPStatusCode, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("openai: api error %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
	}

	return fmt.Errorf("openai: request failed: %w", err)
}

// extractDetail reads the "detail" field some compatible servers return.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		return parsed.Detail
	}
	return ""
}

var _ Embedder = (*OpenAIEmbedder)(nil)
