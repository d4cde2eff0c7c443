package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixtureHNSW(t *testing.T) *HNSWStore {
	t.Helper()
	s, err := LoadHNSWStore(context.Background(), newFixtureCatalog(t), HNSWConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadHNSWStore(t *testing.T) {
	s := newFixtureHNSW(t)

	assert.Equal(t, 4, s.Count())
	assert.Equal(t, 3, s.Dimensions())
	assert.NoError(t, s.Ping(context.Background()))
}

func TestHNSWStore_Query_OrderedBySimilarity(t *testing.T) {
	s := newFixtureHNSW(t)

	got, err := s.Query(context.Background(), []float32{1, 0, 0}, Filter{}, 3)

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "wiki-1", got[0].ID)
	assert.InDelta(t, 1.0, got[0].SemanticScore, 1e-5)
	assert.Equal(t, "code-1", got[1].ID)
	assert.Equal(t, "issue-1", got[2].ID)
	for _, c := range got {
		assert.GreaterOrEqual(t, c.SemanticScore, 0.0)
		assert.LessOrEqual(t, c.SemanticScore, 1.0)
	}
}

func TestHNSWStore_Query_Filter(t *testing.T) {
	s := newFixtureHNSW(t)

	got, err := s.Query(context.Background(), []float32{1, 0, 0}, NewFilter(SourceWiki), 5)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "wiki-1", got[0].ID)
	assert.Equal(t, "wiki-2", got[1].ID)
	assert.InDelta(t, 0.0, got[1].SemanticScore, 1e-5)
}

func TestHNSWStore_Query_Errors(t *testing.T) {
	s := newFixtureHNSW(t)
	ctx := context.Background()

	_, err := s.Query(ctx, []float32{1, 0}, Filter{}, 3)
	var dim ErrDimensionMismatch
	assert.ErrorAs(t, err, &dim)

	got, err := s.Query(ctx, []float32{1, 0, 0}, Filter{}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Close())
	_, err = s.Query(ctx, []float32{1, 0, 0}, Filter{}, 3)
	assert.Error(t, err)
	assert.Error(t, s.Ping(ctx))
}

func TestHNSWStore_Add_RejectsDuplicatesAndBadDims(t *testing.T) {
	s := NewHNSWStore(HNSWConfig{Dimensions: 2})

	require.NoError(t, s.Add(Document{ID: "a"}, []float32{1, 0}))
	assert.Error(t, s.Add(Document{ID: "a"}, []float32{0, 1}))
	assert.ErrorAs(t, s.Add(Document{ID: "b"}, []float32{1, 0, 0}), &ErrDimensionMismatch{})
}

func TestHNSWStore_Scroll(t *testing.T) {
	// Given: a store without a catalog, scrolled in memory
	s := NewHNSWStore(HNSWConfig{})
	for _, d := range fixtureDocs() {
		require.NoError(t, s.Add(d, fixtureVectors()[d.ID]))
	}

	docs, err := s.Scroll(context.Background(), []string{"oauth"}, NewFilter(SourceIssue, SourceWiki), 10)

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "issue-1", docs[0].ID)
	assert.Equal(t, "wiki-1", docs[1].ID)
}

func TestHNSWStore_ScrollDelegatesToCatalog(t *testing.T) {
	s := newFixtureHNSW(t)

	docs, err := s.Scroll(context.Background(), []string{"release"}, Filter{}, 10)

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "wiki-2", docs[0].ID)
}
