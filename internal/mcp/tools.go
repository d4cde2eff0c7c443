package mcp

import "github.com/martin-papy/qdrant-loader-mcp-server/internal/search"

// SearchInput defines the input schema for the search tool.
type SearchInput struct {
	Query       string   `json:"query" jsonschema:"natural-language search query"`
	SourceTypes []string `json:"source_types,omitempty" jsonschema:"restrict to source types: issue, wiki, code, doc; inferred from the query when omitted"`
	Limit       int      `json:"limit,omitempty" jsonschema:"maximum number of results, 1 to 50, default 10"`
}

// SearchOutput defines the output schema for the search tool.
type SearchOutput struct {
	Results   []search.SearchResult `json:"results" jsonschema:"results ordered by descending score"`
	Count     int                   `json:"count" jsonschema:"number of results returned"`
	Truncated bool                  `json:"truncated" jsonschema:"true when more candidates matched than the limit allowed"`
	Degraded  bool                  `json:"degraded,omitempty" jsonschema:"true when ranking fell back to keyword-only"`
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}
