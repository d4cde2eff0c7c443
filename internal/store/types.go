// Package store holds the read side of the document corpus: the shared
// Analyzer, the immutable CorpusIndex used for BM25 statistics, the SQLite
// Catalog, and the vector stores (in-process HNSW and Redis) that answer
// filtered nearest-neighbour queries.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// SourceType is the origin class of a document.
type SourceType string

const (
	SourceIssue SourceType = "issue"
	SourceWiki  SourceType = "wiki"
	SourceCode  SourceType = "code"
	SourceDoc   SourceType = "doc"
)

// AllSourceTypes lists the canonical source types in a fixed order.
var AllSourceTypes = []SourceType{SourceIssue, SourceWiki, SourceCode, SourceDoc}

// sourceAliases maps accepted spellings to canonical types. The empty
// string marks "unspecified" (no restriction).
var sourceAliases = map[string]SourceType{
	"issue":       SourceIssue,
	"issues":      SourceIssue,
	"jira":        SourceIssue,
	"wiki":        SourceWiki,
	"confluence":  SourceWiki,
	"page":        SourceWiki,
	"code":        SourceCode,
	"git":         SourceCode,
	"github":      SourceCode,
	"repo":        SourceCode,
	"doc":         SourceDoc,
	"docs":        SourceDoc,
	"localfile":   SourceDoc,
	"publicdocs":  SourceDoc,
	"unspecified": "",
}

// ParseSourceType normalises name. It returns ("", true) for "unspecified"
// and false for names it does not know.
func ParseSourceType(name string) (SourceType, bool) {
	st, ok := sourceAliases[strings.ToLower(strings.TrimSpace(name))]
	return st, ok
}

// Document is one indexed text span with its provenance.
type Document struct {
	ID          string            `json:"id"`
	Text        string            `json:"text"`
	SourceType  SourceType        `json:"source_type"`
	SourceTitle string            `json:"source_title"`
	SourceURL   string            `json:"source_url,omitempty"`
	FilePath    string            `json:"file_path,omitempty"`
	RepoName    string            `json:"repo_name,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Candidate is a document returned by a vector query with its similarity
// in [0,1].
type Candidate struct {
	Document
	SemanticScore float64
}

// Filter restricts a query to a set of source types. An empty filter
// matches every document.
type Filter struct {
	SourceTypes []SourceType
}

// NewFilter builds a filter with duplicates removed and a stable order.
func NewFilter(types ...SourceType) Filter {
	seen := make(map[SourceType]struct{}, len(types))
	out := make([]SourceType, 0, len(types))
	for _, t := range types {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return Filter{SourceTypes: out}
}

// IsEmpty reports whether the filter matches everything.
func (f Filter) IsEmpty() bool {
	return len(f.SourceTypes) == 0
}

// Matches reports whether t passes the filter.
func (f Filter) Matches(t SourceType) bool {
	if f.IsEmpty() {
		return true
	}
	for _, st := range f.SourceTypes {
		if st == t {
			return true
		}
	}
	return false
}

// Strings returns the filter's source types as strings.
func (f Filter) Strings() []string {
	out := make([]string, len(f.SourceTypes))
	for i, st := range f.SourceTypes {
		out[i] = string(st)
	}
	return out
}

// VectorStore answers filtered nearest-neighbour queries.
type VectorStore interface {
	// Query returns up to count candidates ordered by descending similarity.
	Query(ctx context.Context, vector []float32, filter Filter, count int) ([]Candidate, error)

	// Scroll returns up to count documents containing any of terms, without
	// semantic ranking. Used when no query embedding is available.
	Scroll(ctx context.Context, terms []string, filter Filter, count int) ([]Document, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// DocumentSource streams every document in the corpus once.
type DocumentSource interface {
	Documents(ctx context.Context, fn func(Document) error) error
}

// ErrDimensionMismatch is returned when a vector's length differs from the
// store's dimensionality.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// similarityFromCosineDistance maps a cosine distance (0 identical, 2
// opposite) to a similarity clamped to [0,1].
func similarityFromCosineDistance(d float64) float64 {
	s := 1 - d
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}

// sortCandidates orders by descending score, then ascending id.
func sortCandidates(c []Candidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].SemanticScore != c[j].SemanticScore {
			return c[i].SemanticScore > c[j].SemanticScore
		}
		return c[i].ID < c[j].ID
	})
}
