package store

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// BM25Params are the Okapi BM25 tuning constants.
type BM25Params struct {
	K1 float64
	B  float64
}

// DefaultBM25Params returns k1=1.2, b=0.75.
func DefaultBM25Params() BM25Params {
	return BM25Params{K1: 1.2, B: 0.75}
}

// CorpusIndex holds corpus-wide term statistics. It is built once at
// startup and never modified, so concurrent readers need no locking.
type CorpusIndex struct {
	analyzer  *Analyzer
	params    BM25Params
	docCount  int
	avgDocLen float64
	docFreq   map[string]int
}

// CorpusBuilder accumulates statistics for a CorpusIndex.
type CorpusBuilder struct {
	analyzer *Analyzer
	params   BM25Params
	docCount int
	totalLen int
	docFreq  map[string]int
}

// NewCorpusBuilder starts an empty corpus analysed by a.
func NewCorpusBuilder(a *Analyzer, params BM25Params) *CorpusBuilder {
	return &CorpusBuilder{analyzer: a, params: params, docFreq: make(map[string]int)}
}

// Add records one document's text.
func (b *CorpusBuilder) Add(text string) {
	tf, n := b.analyzer.TermFrequencies(text)
	b.docCount++
	b.totalLen += n
	for term := range tf {
		b.docFreq[term]++
	}
}

// Build freezes the statistics. The builder must not be used afterwards.
func (b *CorpusBuilder) Build() *CorpusIndex {
	idx := &CorpusIndex{
		analyzer: b.analyzer,
		params:   b.params,
		docCount: b.docCount,
		docFreq:  b.docFreq,
	}
	if b.docCount > 0 {
		idx.avgDocLen = float64(b.totalLen) / float64(b.docCount)
	}
	b.docFreq = nil
	return idx
}

// LoadCorpusIndex streams every document from src into a new index.
func LoadCorpusIndex(ctx context.Context, src DocumentSource, a *Analyzer, params BM25Params) (*CorpusIndex, error) {
	start := time.Now()
	b := NewCorpusBuilder(a, params)
	err := src.Documents(ctx, func(d Document) error {
		b.Add(d.Text)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load corpus: %w", err)
	}
	idx := b.Build()

	slog.Info("corpus_index_loaded",
		slog.Int("documents", idx.docCount),
		slog.Int("terms", len(idx.docFreq)),
		slog.Float64("avg_doc_len", idx.avgDocLen),
		slog.Duration("duration", time.Since(start)))
	return idx, nil
}

// Analyzer returns the analyzer the statistics were built with.
func (c *CorpusIndex) Analyzer() *Analyzer { return c.analyzer }

// Params returns the BM25 constants.
func (c *CorpusIndex) Params() BM25Params { return c.params }

// DocCount returns the number of documents in the corpus.
func (c *CorpusIndex) DocCount() int { return c.docCount }

// AvgDocLen returns the mean document length in terms.
func (c *CorpusIndex) AvgDocLen() float64 { return c.avgDocLen }

// DocFreq returns how many documents contain term.
func (c *CorpusIndex) DocFreq(term string) int { return c.docFreq[term] }

// VocabularySize returns the number of distinct terms.
func (c *CorpusIndex) VocabularySize() int { return len(c.docFreq) }

// IDF returns the BM25 inverse document frequency of term, always >= 0.
func (c *CorpusIndex) IDF(term string) float64 {
	n := float64(c.docCount)
	df := float64(c.docFreq[term])
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}
