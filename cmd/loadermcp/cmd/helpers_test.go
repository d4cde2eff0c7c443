package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/embed"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/store"
)

const testDims = 64

// isolateEnv points every user-level path at temp dirs and selects the
// offline static embedder.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LOADERMCP_EMBEDDINGS_PROVIDER", "static")
	t.Setenv("LOADERMCP_DIMENSIONS", "64")
	return home
}

// seedCorpus writes a small embedded catalog and points the config at it.
func seedCorpus(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	t.Setenv("LOADERMCP_CATALOG_PATH", path)

	catalog, err := store.OpenCatalog(path)
	require.NoError(t, err)
	defer func() { _ = catalog.Close() }()

	emb := embed.NewStaticEmbedder(testDims)
	docs := []store.Document{
		{ID: "wiki-1", Text: "How to configure OAuth for the gateway", SourceType: store.SourceWiki, SourceTitle: "OAuth setup"},
		{ID: "code-1", Text: "func Login(w http.ResponseWriter) validates the session token", SourceType: store.SourceCode, SourceTitle: "auth.go", FilePath: "auth/auth.go", RepoName: "gateway"},
		{ID: "issue-1", Text: "Release pipeline fails on tag push", SourceType: store.SourceIssue, SourceTitle: "CI release bug"},
	}
	for _, d := range docs {
		vec, err := emb.Embed(context.Background(), d.Text)
		require.NoError(t, err)
		require.NoError(t, catalog.Put(context.Background(), d, vec))
	}
	return path
}

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return buf.String(), err
}
