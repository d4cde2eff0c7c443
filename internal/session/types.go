package session

import (
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/jsonrpc"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/search"
)

// SupportedProtocolVersions are the protocol revisions this server speaks,
// newest first.
var SupportedProtocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

// InitializeParams is the initialize request payload.
type InitializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

// ClientCapabilities are the capabilities a client may request.
type ClientCapabilities struct {
	// Streaming false asks for one response per search instead of partial frames.
	Streaming *bool `json:"streaming,omitempty"`
}

// Implementation names a client or server.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the initialize response.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	SessionID       string             `json:"sessionId"`
}

// ServerCapabilities is the negotiated capability set.
type ServerCapabilities struct {
	Tools     map[string]any `json:"tools"`
	Streaming bool           `json:"streaming"`
}

// SearchParams are the search method parameters.
type SearchParams struct {
	Query       string   `json:"query"`
	SourceTypes []string `json:"source_types,omitempty"`
	Limit       *int     `json:"limit,omitempty"`
}

// PartialParams is the payload of a search/partial notification.
type PartialParams struct {
	ID     jsonrpc.ID          `json:"id"`
	Rank   int                 `json:"rank"`
	Result search.SearchResult `json:"result"`
}

// Completion is the final result of a streamed search.
type Completion struct {
	Count     int  `json:"count"`
	Truncated bool `json:"truncated"`
	Degraded  bool `json:"degraded,omitempty"`
}

// SearchResponse is the single result of a non-streamed search.
type SearchResponse struct {
	Results   []search.SearchResult `json:"results"`
	Count     int                   `json:"count"`
	Truncated bool                  `json:"truncated"`
	Degraded  bool                  `json:"degraded,omitempty"`
}

// CancelParams covers both cancel notifications: $/cancelRequest sends
// {id}, notifications/cancelled sends {requestId}.
type CancelParams struct {
	ID        *jsonrpc.ID `json:"id,omitempty"`
	RequestID *jsonrpc.ID `json:"requestId,omitempty"`
	Reason    string      `json:"reason,omitempty"`
}

// Tool describes a callable tool for tools/list.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// SearchTool is the only tool this server offers.
var SearchTool = Tool{
	Name:        "search",
	Description: "Hybrid semantic and keyword search over issues, wiki pages, code and docs.",
	InputSchema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "Natural-language search query.",
			},
			"source_types": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string", "enum": []string{"issue", "wiki", "code", "doc", "unspecified"}},
				"description": "Restrict results to these source types. Inferred from the query when omitted.",
			},
			"limit": map[string]any{
				"type":    "integer",
				"minimum": 1,
				"maximum": search.MaxLimitBound,
				"default": search.DefaultLimit,
			},
		},
		"required": []string{"query"},
	},
}
