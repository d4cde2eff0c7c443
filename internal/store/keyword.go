package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	keywordContentField = "content"
	keywordSourceField  = "source_type"

	keywordBatchSize = 500
)

// KeywordIndex is an in-memory bleve index over the corpus text. It ranks
// the whole corpus by term relevance and supplies the candidate set when no
// query embedding is available. Terms come from the same analysis chain as
// the Analyzer it was built with.
type KeywordIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	docs   map[string]Document
	closed bool
}

// keywordDocument is the indexed shape of a Document.
type keywordDocument struct {
	Content    string `json:"content"`
	SourceType string `json:"source_type"`
}

// NewKeywordIndex creates an empty index analysed like a.
func NewKeywordIndex(a *Analyzer) (*KeywordIndex, error) {
	im, err := keywordMapping(a.Options())
	if err != nil {
		return nil, fmt.Errorf("failed to create keyword mapping: %w", err)
	}
	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create keyword index: %w", err)
	}
	return &KeywordIndex{index: idx, docs: make(map[string]Document)}, nil
}

func keywordMapping(opts AnalyzerOptions) (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	if err := im.AddCustomAnalyzer(analyzerName, analyzerConfig(opts)); err != nil {
		return nil, err
	}
	im.DefaultAnalyzer = analyzerName

	content := bleve.NewTextFieldMapping()
	content.Analyzer = analyzerName
	content.Store = false
	content.IncludeInAll = false
	content.IncludeTermVectors = false

	source := bleve.NewKeywordFieldMapping()
	source.Store = false
	source.IncludeInAll = false

	dm := bleve.NewDocumentStaticMapping()
	dm.AddFieldMappingsAt(keywordContentField, content)
	dm.AddFieldMappingsAt(keywordSourceField, source)
	im.DefaultMapping = dm
	return im, nil
}

// LoadKeywordIndex streams every document from src into a new index.
func LoadKeywordIndex(ctx context.Context, src DocumentSource, a *Analyzer) (*KeywordIndex, error) {
	start := time.Now()
	k, err := NewKeywordIndex(a)
	if err != nil {
		return nil, err
	}

	pending := make([]Document, 0, keywordBatchSize)
	err = src.Documents(ctx, func(d Document) error {
		pending = append(pending, d)
		if len(pending) < keywordBatchSize {
			return nil
		}
		err := k.Add(pending...)
		pending = pending[:0]
		return err
	})
	if err == nil {
		err = k.Add(pending...)
	}
	if err != nil {
		_ = k.Close()
		return nil, fmt.Errorf("failed to load keyword index: %w", err)
	}

	slog.Info("keyword_index_loaded",
		slog.Int("documents", k.DocCount()),
		slog.Duration("duration", time.Since(start)))
	return k, nil
}

// Add indexes docs in one batch. A repeated id replaces the earlier document.
func (k *KeywordIndex) Add(docs ...Document) error {
	if len(docs) == 0 {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return fmt.Errorf("index is closed")
	}

	batch := k.index.NewBatch()
	for _, d := range docs {
		if err := batch.Index(d.ID, keywordDocument{Content: d.Text, SourceType: string(d.SourceType)}); err != nil {
			return fmt.Errorf("failed to index document %s: %w", d.ID, err)
		}
	}
	if err := k.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	for _, d := range docs {
		k.docs[d.ID] = d
	}
	return nil
}

// Search returns up to limit documents under filter ordered by descending
// relevance to text, ties broken by ascending id. A query with no indexable
// terms matches nothing.
func (k *KeywordIndex) Search(ctx context.Context, text string, filter Filter, limit int) ([]Document, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return nil, fmt.Errorf("index is closed")
	}
	if limit <= 0 || strings.TrimSpace(text) == "" {
		return []Document{}, nil
	}

	match := bleve.NewMatchQuery(text)
	match.SetField(keywordContentField)

	var q query.Query = match
	if !filter.IsEmpty() {
		types := make([]query.Query, len(filter.SourceTypes))
		for i, st := range filter.SourceTypes {
			tq := bleve.NewTermQuery(string(st))
			tq.SetField(keywordSourceField)
			types[i] = tq
		}
		bq := bleve.NewBooleanQuery()
		bq.AddMust(match)
		bq.AddFilter(bleve.NewDisjunctionQuery(types...))
		q = bq
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.SortBy([]string{"-_score", "_id"})

	res, err := k.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}

	out := make([]Document, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if d, ok := k.docs[hit.ID]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// DocCount returns the number of indexed documents.
func (k *KeywordIndex) DocCount() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.docs)
}

// Close releases the index. Safe to call twice.
func (k *KeywordIndex) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}
	k.closed = true
	return k.index.Close()
}
