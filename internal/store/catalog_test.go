package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureDocs() []Document {
	return []Document{
		{ID: "code-1", Text: "func configureOAuth(client *http.Client)", SourceType: SourceCode, SourceTitle: "oauth.go", FilePath: "auth/oauth.go", RepoName: "gateway"},
		{ID: "issue-1", Text: "Bug: OAuth login fails after token refresh", SourceType: SourceIssue, SourceTitle: "AUTH-42", SourceURL: "https://jira.example.com/AUTH-42"},
		{ID: "wiki-1", Text: "How to configure OAuth for the gateway", SourceType: SourceWiki, SourceTitle: "OAuth setup", SourceURL: "https://wiki.example.com/oauth", Metadata: map[string]string{"space": "ENG"}},
		{ID: "wiki-2", Text: "Release process and versioning", SourceType: SourceWiki, SourceTitle: "Releases"},
	}
}

func fixtureVectors() map[string][]float32 {
	return map[string][]float32{
		"code-1":  {0.9, 0.1, 0.0},
		"issue-1": {0.7, 0.7, 0.0},
		"wiki-1":  {1.0, 0.0, 0.0},
		"wiki-2":  {0.0, 0.0, 1.0},
	}
}

func newFixtureCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := OpenCatalog(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	vecs := fixtureVectors()
	for _, d := range fixtureDocs() {
		require.NoError(t, c.Put(context.Background(), d, vecs[d.ID]))
	}
	return c
}

func TestCatalog_PutAndDocuments(t *testing.T) {
	c := newFixtureCatalog(t)
	ctx := context.Background()

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	var got []Document
	require.NoError(t, c.Documents(ctx, func(d Document) error {
		got = append(got, d)
		return nil
	}))

	require.Len(t, got, 4)
	assert.Equal(t, "code-1", got[0].ID)
	assert.Equal(t, "gateway", got[0].RepoName)
	assert.Equal(t, map[string]string{"space": "ENG"}, got[2].Metadata)
	assert.Nil(t, got[3].Metadata)
}

func TestCatalog_PutReplaces(t *testing.T) {
	c := newFixtureCatalog(t)
	ctx := context.Background()

	updated := fixtureDocs()[3]
	updated.Text = "Release train"
	require.NoError(t, c.Put(ctx, updated, nil))

	n, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	docs, err := c.Scroll(ctx, []string{"train"}, Filter{}, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "wiki-2", docs[0].ID)
}

func TestCatalog_Embeddings(t *testing.T) {
	c := newFixtureCatalog(t)

	got := map[string][]float32{}
	require.NoError(t, c.Embeddings(context.Background(), func(d Document, v []float32) error {
		got[d.ID] = v
		return nil
	}))

	assert.Equal(t, fixtureVectors(), got)
}

func TestCatalog_Scroll(t *testing.T) {
	c := newFixtureCatalog(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		terms  []string
		filter Filter
		count  int
		want   []string
	}{
		{"any term, case-insensitive", []string{"OAUTH"}, Filter{}, 10, []string{"code-1", "issue-1", "wiki-1"}},
		{"filtered", []string{"oauth"}, NewFilter(SourceWiki), 10, []string{"wiki-1"}},
		{"count respected", []string{"oauth"}, Filter{}, 2, []string{"code-1", "issue-1"}},
		{"no terms returns filtered docs", nil, NewFilter(SourceWiki), 10, []string{"wiki-1", "wiki-2"}},
		{"like wildcards are literal", []string{"%"}, Filter{}, 10, nil},
		{"zero count", []string{"oauth"}, Filter{}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := c.Scroll(ctx, tt.terms, tt.filter, tt.count)
			require.NoError(t, err)

			var ids []string
			for _, d := range docs {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestOpenCatalog_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "catalog.db")

	c, err := OpenCatalog(path)
	require.NoError(t, err)
	require.NoError(t, c.Put(context.Background(), Document{ID: "x", Text: "t", SourceType: SourceDoc}, nil))
	require.NoError(t, c.Close())

	reopened, err := OpenCatalog(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	n, err := reopened.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, path, reopened.Path())
}
