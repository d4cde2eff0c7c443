package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/session"
	"github.com/martin-papy/qdrant-loader-mcp-server/pkg/version"
)

const searchToolName = "search"

const searchToolDescription = "Hybrid semantic and keyword search over issues, wiki pages, code and docs. " +
	"Source types are inferred from the query (\"jira ticket\", \"confluence page\", \"main.go\") unless given."

// Server is the MCP server. It shares the search engine with the JSON-RPC
// session transports.
type Server struct {
	mcp    *mcp.Server
	engine session.Searcher
	logger *slog.Logger
}

// NewServer creates an MCP server with the search tool registered.
func NewServer(engine session.Searcher) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}

	s := &Server{
		engine: engine,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "loadermcp",
			Version: version.Get().Version,
		},
		nil,
	)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        searchToolName,
		Description: searchToolDescription,
	}, s.mcpSearchHandler)
	s.logger.Debug("mcp_tool_registered", slog.String("name", searchToolName))

	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	return []ToolInfo{{Name: searchToolName, Description: searchToolDescription}}
}

// CallTool invokes a tool by name with raw arguments, bypassing the wire.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (SearchOutput, error) {
	if name != searchToolName {
		return SearchOutput{}, MapError(ErrToolNotFound)
	}

	data, err := json.Marshal(args)
	if err != nil {
		return SearchOutput{}, NewValidationError("arguments are not valid JSON")
	}
	var input SearchInput
	if err := json.Unmarshal(data, &input); err != nil {
		return SearchOutput{}, NewValidationError("arguments have the wrong shape")
	}
	return s.search(ctx, input)
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult,
	SearchOutput,
	error,
) {
	out, err := s.search(ctx, input)
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: FormatSearchResults(input.Query, out)}},
	}, out, nil
}

func (s *Server) search(ctx context.Context, input SearchInput) (SearchOutput, error) {
	if input.Limit < 0 {
		return SearchOutput{}, NewValidationError("limit must be between 1 and 50")
	}

	q, err := s.engine.ParseQuery(input.Query, input.SourceTypes, input.Limit)
	if err != nil {
		return SearchOutput{}, MapError(err)
	}

	resp, err := s.engine.Search(ctx, q)
	if err != nil {
		s.logger.Warn("mcp_search_failed", slog.String("error", err.Error()))
		return SearchOutput{}, MapError(err)
	}

	return SearchOutput{
		Results:   resp.Results,
		Count:     len(resp.Results),
		Truncated: resp.Truncated,
		Degraded:  resp.Degraded,
	}, nil
}

// Serve runs the MCP server over stdio until ctx is cancelled or the client
// disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_started", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}
