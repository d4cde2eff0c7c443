// Package search ranks documents for a query by fusing semantic similarity
// from a vector store with BM25 lexical relevance.
//
// The pipeline is: classify intent, expand the query for embedding, embed,
// fetch an over-fetched candidate set, score lexically, fuse and truncate.
// Every stage is a separate type so it can be tested without the others.
package search

import (
	"fmt"
	"strconv"
	"strings"

	lerrors "github.com/martin-papy/qdrant-loader-mcp-server/internal/errors"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/store"
)

// Limits bound the per-request result limit.
const (
	DefaultLimit  = 10
	MaxLimitBound = 50
)

// Query is a validated search request. It is immutable once built.
type Query struct {
	Text   string
	Filter store.Filter
	Limit  int
}

// Explicit reports whether the caller restricted source types.
func (q Query) Explicit() bool {
	return !q.Filter.IsEmpty()
}

// NewQuery validates raw request fields. A zero limit takes defaultLimit;
// source type names are normalised through store.ParseSourceType.
func NewQuery(text string, sourceTypes []string, limit, defaultLimit, maxLimit int) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, lerrors.New(lerrors.ErrCodeQueryEmpty, "query must not be empty", nil)
	}

	if maxLimit <= 0 || maxLimit > MaxLimitBound {
		maxLimit = MaxLimitBound
	}
	if defaultLimit <= 0 || defaultLimit > maxLimit {
		defaultLimit = min(DefaultLimit, maxLimit)
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if limit < 1 || limit > maxLimit {
		return Query{}, lerrors.New(lerrors.ErrCodeLimitOutOfRange, fmt.Sprintf("limit must be between 1 and %d", maxLimit), nil).
			WithDetail("limit", strconv.Itoa(limit))
	}

	types := make([]store.SourceType, 0, len(sourceTypes))
	for _, name := range sourceTypes {
		st, ok := store.ParseSourceType(name)
		if !ok {
			return Query{}, lerrors.New(lerrors.ErrCodeUnknownSourceType, "unknown source type", nil).
				WithDetail("source_type", name)
		}
		types = append(types, st)
	}

	return Query{Text: text, Filter: store.NewFilter(types...), Limit: limit}, nil
}

// Weights are the fusion coefficients for semantic and normalized lexical scores.
type Weights struct {
	Semantic float64
	Lexical  float64
}

// DefaultWeights weighs both signals equally.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.5, Lexical: 0.5}
}

// LexicalOnly is used when no query embedding is available.
func LexicalOnly() Weights {
	return Weights{Semantic: 0, Lexical: 1}
}

// ScoredCandidate is a candidate with its per-query scores. It lives only for
// the duration of one search.
type ScoredCandidate struct {
	store.Document
	Semantic float64
	Lexical  float64
}

// SearchResult is the externally visible part of a ranked candidate.
type SearchResult struct {
	ID          string  `json:"-"`
	Score       float64 `json:"score"`
	Text        string  `json:"text"`
	SourceType  string  `json:"source_type"`
	SourceTitle string  `json:"source_title"`
	SourceURL   string  `json:"source_url,omitempty"`
	FilePath    string  `json:"file_path,omitempty"`
	RepoName    string  `json:"repo_name,omitempty"`

	// Component scores, for explain output only.
	Semantic          float64 `json:"-"`
	LexicalNormalized float64 `json:"-"`
}

// Response is the outcome of one search.
type Response struct {
	Results []SearchResult

	// Truncated is true when more candidates were ranked than the limit let through.
	Truncated bool

	// Degraded is true when ranking fell back to lexical-only.
	Degraded bool

	// Filter is the source-type filter that was applied, explicit or inferred.
	Filter store.Filter

	// Candidates is the size of the candidate set that was ranked.
	Candidates int
}
