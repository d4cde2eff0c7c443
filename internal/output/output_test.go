package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/search"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/store"
)

func sampleResponse() *search.Response {
	return &search.Response{
		Results: []search.SearchResult{
			{Score: 0.91, Text: "Configure   OAuth\nfor the gateway", SourceType: "wiki", SourceTitle: "OAuth setup", SourceURL: "https://wiki.example.com/oauth", Semantic: 0.8, LexicalNormalized: 1},
			{Score: 0.42, Text: "func Login()", SourceType: "code", SourceTitle: "auth.go", FilePath: "auth/auth.go", RepoName: "gateway"},
		},
		Truncated: true,
		Filter:    store.NewFilter(store.SourceWiki, store.SourceCode),
	}
}

func TestWriter_StatusIcons(t *testing.T) {
	tests := []struct {
		name  string
		write func(w *Writer)
		want  string
	}{
		{"success", func(w *Writer) { w.Successf("%d documents", 3) }, "✓ 3 documents"},
		{"warning", func(w *Writer) { w.Warning("embedder down") }, "! embedder down"},
		{"error", func(w *Writer) { w.Errorf("catalog %s", "missing") }, "✗ catalog missing"},
		{"no icon", func(w *Writer) { w.Status("", "indented") }, "   indented"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.write(NewPlain(buf))
			assert.Equal(t, tt.want+"\n", buf.String())
		})
	}
}

func TestNew_BufferIsPlain(t *testing.T) {
	// Given: a non-terminal writer
	buf := &bytes.Buffer{}

	// When: writing a success line
	New(buf).Success("ok")

	// Then: no escape sequences are emitted
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.False(t, IsTTY(buf))
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{"", FormatText, false},
		{"yaml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchResults_Text(t *testing.T) {
	buf := &bytes.Buffer{}

	err := NewPlain(buf).SearchResults("oauth", sampleResponse(), FormatText, true)

	require.NoError(t, err)
	out := buf.String()
	assert.Contains(t, out, `2 result(s) for "oauth" in code, wiki`)
	assert.Contains(t, out, " 1. [0.910] OAuth setup (wiki)")
	assert.Contains(t, out, "https://wiki.example.com/oauth")
	assert.Contains(t, out, "gateway:auth/auth.go")
	assert.Contains(t, out, "semantic=0.800 lexical=1.000")
	assert.Contains(t, out, "Configure OAuth for the gateway")
	assert.Contains(t, out, "raise --limit")
	assert.NotContains(t, out, "keyword-ranked")
}

func TestSearchResults_Empty(t *testing.T) {
	buf := &bytes.Buffer{}

	require.NoError(t, NewPlain(buf).SearchResults("nothing", &search.Response{}, FormatText, false))

	assert.Equal(t, "No results for \"nothing\"\n", buf.String())
}

func TestSearchResults_DegradedWarning(t *testing.T) {
	resp := sampleResponse()
	resp.Degraded = true
	buf := &bytes.Buffer{}

	require.NoError(t, NewPlain(buf).SearchResults("oauth", resp, FormatText, false))

	assert.Contains(t, buf.String(), "keyword-ranked")
	assert.NotContains(t, buf.String(), "semantic=")
}

func TestSearchResults_JSON(t *testing.T) {
	// Given: a truncated response
	buf := &bytes.Buffer{}

	// When: rendering as JSON
	require.NoError(t, NewPlain(buf).SearchResults("oauth", sampleResponse(), FormatJSON, false))

	// Then: the flattened result set round-trips with component scores hidden
	var rs map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rs))
	assert.Equal(t, "oauth", rs["query"])
	assert.Equal(t, float64(2), rs["count"])
	assert.Equal(t, true, rs["truncated"])
	assert.Equal(t, []any{"code", "wiki"}, rs["source_types"])
	first := rs["results"].([]any)[0].(map[string]any)
	assert.Equal(t, "OAuth setup", first["source_title"])
	assert.NotContains(t, first, "Semantic")
}

func TestNewResultSet_NilResponse(t *testing.T) {
	rs := NewResultSet("q", nil)

	assert.NotNil(t, rs.Results)
	assert.Zero(t, rs.Count)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b", snippet(" a \n b ", 10))
	long := strings.Repeat("x", 20)
	assert.Equal(t, strings.Repeat("x", 5)+"…", snippet(long, 5))
}
