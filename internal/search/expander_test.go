package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryExpander_Expand(t *testing.T) {
	e := NewQueryExpander()

	tests := []struct {
		name     string
		query    string
		contains []string
	}{
		{"phrase and word", "product requirements for API", []string{"PRD", "endpoint"}},
		{"case insensitive", "OAuth setup", []string{"authentication"}},
		{"punctuation around words", "(api)?", []string{"endpoint"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Expand(tt.query)
			assert.True(t, strings.HasPrefix(got, tt.query))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestQueryExpander_RepeatsAPIForEmbedding(t *testing.T) {
	got := NewQueryExpander().Expand("product requirements for API")

	assert.Greater(t, strings.Count(strings.ToLower(got), "api"), 1)
}

func TestQueryExpander_NoMatchUnchanged(t *testing.T) {
	e := NewQueryExpander()

	assert.Equal(t, "rotate signing keys", e.Expand("rotate signing keys"))
	// "api" inside another word is not a match.
	assert.Equal(t, "rapid apiary", e.Expand("rapid apiary"))
}

func TestQueryExpander_CustomSynonyms(t *testing.T) {
	e := NewQueryExpander(WithCustomSynonyms(map[string]string{"SLO": "service level objective"}))

	assert.Equal(t, "SLO burn rate service level objective", e.Expand("SLO burn rate"))
}

func TestQueryExpander_StableOrder(t *testing.T) {
	e := NewQueryExpander()
	q := "auth api db config"

	first := e.Expand(q)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, e.Expand(q))
	}
}
