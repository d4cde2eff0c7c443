package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/store"
)

func buildCorpus(t *testing.T, stopWords bool, docs []store.Document) *store.CorpusIndex {
	t.Helper()
	a, err := store.NewAnalyzer(store.AnalyzerOptions{StopWords: stopWords})
	require.NoError(t, err)
	b := store.NewCorpusBuilder(a, store.DefaultBM25Params())
	for _, d := range docs {
		b.Add(d.Text)
	}
	return b.Build()
}

func buildKeywordIndex(t *testing.T, docs []store.Document) *store.KeywordIndex {
	t.Helper()
	a, err := store.NewAnalyzer(store.AnalyzerOptions{StopWords: true})
	require.NoError(t, err)
	k, err := store.NewKeywordIndex(a)
	require.NoError(t, err)
	require.NoError(t, k.Add(docs...))
	t.Cleanup(func() { _ = k.Close() })
	return k
}

func TestLexicalScorer_Score(t *testing.T) {
	docs := []store.Document{
		{ID: "match-twice", Text: "token refresh flow: refresh the token before expiry"},
		{ID: "match-once", Text: "the token is stored in the session cookie"},
		{ID: "no-match", Text: "deployment pipeline for staging"},
	}
	s := NewLexicalScorer(buildCorpus(t, true, docs))

	scores := s.Score("refresh token", docs)

	require.Len(t, scores, 3)
	assert.Zero(t, scores["no-match"])
	assert.Greater(t, scores["match-once"], 0.0)
	assert.Greater(t, scores["match-twice"], scores["match-once"])
}

func TestLexicalScorer_StopWordOnlyQueryScoresZero(t *testing.T) {
	docs := []store.Document{{ID: "d", Text: "the and of"}}
	s := NewLexicalScorer(buildCorpus(t, true, docs))

	assert.Equal(t, map[string]float64{"d": 0}, s.Score("the of", docs))
}

func TestLexicalScorer_UsesIndexAnalyzerForQueries(t *testing.T) {
	// Given: identifiers that only match when query and documents are split
	// the same way
	docs := []store.Document{
		{ID: "camel", Text: "func parseHTTPRequest(r io.Reader)"},
		{ID: "other", Text: "render the dashboard"},
	}
	s := NewLexicalScorer(buildCorpus(t, true, docs))

	// When: the query uses the natural-language form
	scores := s.Score("parse http request", docs)

	// Then: the camelCase identifier is found
	assert.Greater(t, scores["camel"], 0.0)
	assert.Zero(t, scores["other"])
}

func TestLexicalScorer_CandidateOutsideCorpus(t *testing.T) {
	corpus := buildCorpus(t, true, []store.Document{{ID: "a", Text: "alpha beta"}})
	s := NewLexicalScorer(corpus)

	scores := s.Score("gamma", []store.Document{{ID: "new", Text: "gamma ray"}})

	assert.Greater(t, scores["new"], 0.0)
}
