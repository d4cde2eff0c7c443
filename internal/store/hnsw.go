package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coder/hnsw"
)

// HNSWConfig configures the in-process graph.
type HNSWConfig struct {
	// Dimensions of stored vectors; 0 adopts the first vector's length.
	Dimensions int
	M          int
	EfSearch   int
}

// HNSWStore is an in-process VectorStore over coder/hnsw with cosine
// distance. Source-type filters are applied after the graph search, which
// is widened until enough matching neighbours are found.
type HNSWStore struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	config HNSWConfig
	docs   []Document
	keys   map[string]uint64

	// scroller answers text-only lookups; nil means scan docs in memory.
	scroller interface {
		Scroll(ctx context.Context, terms []string, filter Filter, count int) ([]Document, error)
	}
	closed bool
}

// NewHNSWStore creates an empty store.
func NewHNSWStore(cfg HNSWConfig) *HNSWStore {
	if cfg.M <= 0 {
		cfg.M = 16
	}
	if cfg.EfSearch <= 0 {
		cfg.EfSearch = 64
	}

	g := hnsw.NewGraph[uint64]()
	g.Distance = hnsw.CosineDistance
	g.M = cfg.M
	g.EfSearch = cfg.EfSearch
	g.Ml = 0.25

	return &HNSWStore{
		graph:  g,
		config: cfg,
		keys:   make(map[string]uint64),
	}
}

// LoadHNSWStore builds a store from every embedded document in the catalog.
// Text-only scrolls are delegated to the catalog.
func LoadHNSWStore(ctx context.Context, catalog *Catalog, cfg HNSWConfig) (*HNSWStore, error) {
	start := time.Now()
	s := NewHNSWStore(cfg)
	s.scroller = catalog

	err := catalog.Embeddings(ctx, func(doc Document, vec []float32) error {
		return s.Add(doc, vec)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}

	slog.Info("hnsw_store_loaded",
		slog.Int("vectors", s.Count()),
		slog.Int("dimensions", s.Dimensions()),
		slog.Duration("duration", time.Since(start)))
	return s, nil
}

// Add inserts doc with its vector. Re-adding an id is rejected; the corpus
// is immutable once loaded.
func (s *HNSWStore) Add(doc Document, vec []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("store is closed")
	}
	if _, dup := s.keys[doc.ID]; dup {
		return fmt.Errorf("duplicate document id %q", doc.ID)
	}
	if s.config.Dimensions == 0 {
		s.config.Dimensions = len(vec)
	}
	if len(vec) != s.config.Dimensions {
		return ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(vec)}
	}

	key := uint64(len(s.docs))
	s.docs = append(s.docs, doc)
	s.keys[doc.ID] = key
	s.graph.Add(hnsw.MakeNode(key, normalize(vec)))
	return nil
}

// Query returns the count nearest documents passing filter.
func (s *HNSWStore) Query(ctx context.Context, vector []float32, filter Filter, count int) ([]Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	if count <= 0 || len(s.docs) == 0 {
		return []Candidate{}, nil
	}
	if len(vector) != s.config.Dimensions {
		return nil, ErrDimensionMismatch{Expected: s.config.Dimensions, Got: len(vector)}
	}

	q := normalize(vector)
	total := len(s.docs)
	k := count
	if !filter.IsEmpty() {
		k = count * 4
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if k > total {
			k = total
		}

		nodes := s.graph.Search(q, k)
		out := make([]Candidate, 0, count)
		for _, n := range nodes {
			doc := s.docs[n.Key]
			if !filter.Matches(doc.SourceType) {
				continue
			}
			d := float64(s.graph.Distance(q, n.Value))
			out = append(out, Candidate{Document: doc, SemanticScore: similarityFromCosineDistance(d)})
		}

		if len(out) >= count || k >= total {
			sortCandidates(out)
			if len(out) > count {
				out = out[:count]
			}
			return out, nil
		}
		k *= 2
	}
}

// Scroll returns documents containing any of terms.
func (s *HNSWStore) Scroll(ctx context.Context, terms []string, filter Filter, count int) ([]Document, error) {
	s.mu.RLock()
	closed, scroller := s.closed, s.scroller
	s.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("store is closed")
	}
	if scroller != nil {
		return scroller.Scroll(ctx, terms, filter, count)
	}
	return s.scrollMemory(terms, filter, count), nil
}

func (s *HNSWStore) scrollMemory(terms []string, filter Filter, count int) []Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Document, 0, count)
	for _, doc := range s.docs {
		if len(out) >= count {
			break
		}
		if filter.Matches(doc.SourceType) && containsAnyFold(doc.Text, terms) {
			out = append(out, doc)
		}
	}
	return out
}

// Documents streams the in-memory documents in insertion order.
func (s *HNSWStore) Documents(ctx context.Context, fn func(Document) error) error {
	s.mu.RLock()
	docs := s.docs
	s.mu.RUnlock()

	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return err
		}
	}
	return nil
}

// Ping reports whether the store is open.
func (s *HNSWStore) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	return nil
}

// Count returns the number of stored vectors.
func (s *HNSWStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Dimensions returns the vector length.
func (s *HNSWStore) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Dimensions
}

// Close releases the graph. The catalog, if any, is owned by the caller.
func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.graph = nil
	s.docs = nil
	return nil
}

var _ VectorStore = (*HNSWStore)(nil)

func containsAnyFold(text string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
