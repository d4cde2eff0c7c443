package search

import (
	"sort"
	"strings"
)

// QueryExpander appends domain synonyms to a query. The expanded text is
// meant for the embedding request only; lexical scoring must see the raw query.
//
// Example:
//
//	Input:  "product requirements for API"
//	Output: "product requirements for API PRD specification requirements document specification spec API endpoint interface"
type QueryExpander struct {
	synonyms map[string]string
	keys     []string
}

// QueryExpanderOption configures the query expander.
type QueryExpanderOption func(*QueryExpander)

// WithCustomSynonyms adds or replaces synonym mappings.
func WithCustomSynonyms(synonyms map[string]string) QueryExpanderOption {
	return func(e *QueryExpander) {
		for k, v := range synonyms {
			e.synonyms[strings.ToLower(k)] = v
		}
	}
}

// NewQueryExpander creates an expander seeded with DefaultSynonyms.
func NewQueryExpander(opts ...QueryExpanderOption) *QueryExpander {
	e := &QueryExpander{synonyms: make(map[string]string, len(DefaultSynonyms))}
	for k, v := range DefaultSynonyms {
		e.synonyms[k] = v
	}
	for _, opt := range opts {
		opt(e)
	}

	e.keys = make([]string, 0, len(e.synonyms))
	for k := range e.synonyms {
		e.keys = append(e.keys, k)
	}
	// Longer phrases first, then alphabetical, so output order is stable.
	sort.Slice(e.keys, func(i, j int) bool {
		if len(e.keys[i]) != len(e.keys[j]) {
			return len(e.keys[i]) > len(e.keys[j])
		}
		return e.keys[i] < e.keys[j]
	})
	return e
}

// Expand returns query followed by the expansions of every recognised phrase.
// A query with no recognised phrase is returned unchanged.
func (e *QueryExpander) Expand(query string) string {
	padded := " " + strings.Join(splitWords(strings.ToLower(query)), " ") + " "

	var extra []string
	seen := make(map[string]bool)
	for _, key := range e.keys {
		if !strings.Contains(padded, " "+key+" ") {
			continue
		}
		exp := e.synonyms[key]
		if seen[exp] {
			continue
		}
		seen[exp] = true
		extra = append(extra, exp)
	}

	if len(extra) == 0 {
		return query
	}
	return query + " " + strings.Join(extra, " ")
}
