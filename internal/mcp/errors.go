// Package mcp exposes the search engine as a Model Context Protocol tool.
package mcp

import (
	"errors"
	"fmt"

	lerrors "github.com/martin-papy/qdrant-loader-mcp-server/internal/errors"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/jsonrpc"
)

// ErrToolNotFound indicates the requested tool does not exist.
var ErrToolNotFound = errors.New("tool not found")

// MCPError is a tool error with a JSON-RPC code and a caller-safe message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors using the same code
// table as the JSON-RPC session. Suggestions are appended to the message.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrToolNotFound) {
		return &MCPError{Code: jsonrpc.CodeMethodNotFound, Message: "Tool not found."}
	}

	wire := jsonrpc.FromError(err)
	message := wire.Message

	var le *lerrors.LoaderError
	if errors.As(err, &le) && le.Suggestion != "" && wire.Code != jsonrpc.CodeInternalError {
		message = fmt.Sprintf("%s. %s", message, le.Suggestion)
	}
	return &MCPError{Code: wire.Code, Message: message}
}

// NewValidationError creates an error for search arguments that cannot be
// accepted, whether malformed or out of range.
func NewValidationError(msg string) *MCPError {
	return &MCPError{Code: jsonrpc.CodeValidation, Message: msg}
}
