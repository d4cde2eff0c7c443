package jsonrpc

import (
	"context"
	"errors"
	"fmt"

	lerrors "github.com/martin-papy/qdrant-loader-mcp-server/internal/errors"
)

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Server-defined error codes.
const (
	CodeInvalidSessionState  = -32001
	CodeRetrievalUnavailable = -32002
	CodeEmbeddingUnavailable = -32003
	CodeValidation           = -32004
	CodeRequestCancelled     = -32005
)

// Error is a JSON-RPC error object.
type Error struct {
	Code    int        `json:"code"`
	Message string     `json:"message"`
	Data    *ErrorData `json:"data,omitempty"`
}

// ErrorData is the structured part of an error. It never holds raw causes.
type ErrorData struct {
	Code   string            `json:"code"`
	Detail map[string]string `json:"detail,omitempty"`
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func newError(code int, message, errCode string) *Error {
	return &Error{Code: code, Message: message, Data: &ErrorData{Code: errCode}}
}

// ParseError is returned for unparseable input.
func ParseError() *Error {
	return newError(CodeParseError, "parse error", lerrors.ErrCodeParse)
}

// InvalidRequest is returned for structurally invalid messages.
func InvalidRequest(message string) *Error {
	return newError(CodeInvalidRequest, "invalid request: "+message, lerrors.ErrCodeInvalidRequest)
}

// MethodNotFound is returned for unknown methods.
func MethodNotFound(method string) *Error {
	e := newError(CodeMethodNotFound, "method not found", lerrors.ErrCodeMethodNotFound)
	e.Data.Detail = map[string]string{"method": method}
	return e
}

// InvalidParams is returned when params cannot be decoded.
func InvalidParams(message string) *Error {
	return newError(CodeInvalidParams, "invalid params: "+message, lerrors.ErrCodeInvalidInput)
}

// FromError maps any error onto a wire error. Only the caller-safe message
// and details of a LoaderError reach the wire; other errors become a generic
// internal error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	switch {
	case errors.Is(err, context.Canceled):
		return newError(CodeRequestCancelled, "request cancelled", lerrors.ErrCodeRequestCancelled)
	case errors.Is(err, context.DeadlineExceeded):
		return newError(CodeRetrievalUnavailable, "request timed out", lerrors.ErrCodeUpstreamTimeout)
	}

	var le *lerrors.LoaderError
	if !errors.As(err, &le) {
		return newError(CodeInternalError, "internal error", lerrors.ErrCodeInternal)
	}

	out := &Error{Code: codeFor(le), Message: le.Message, Data: &ErrorData{Code: le.Code}}
	if out.Code == CodeInternalError {
		out.Message = "internal error"
	} else if len(le.Details) > 0 {
		out.Data.Detail = make(map[string]string, len(le.Details))
		for k, v := range le.Details {
			out.Data.Detail[k] = v
		}
	}
	return out
}

func codeFor(le *lerrors.LoaderError) int {
	switch le.Code {
	case lerrors.ErrCodeParse:
		return CodeParseError
	case lerrors.ErrCodeInvalidRequest:
		return CodeInvalidRequest
	case lerrors.ErrCodeMethodNotFound:
		return CodeMethodNotFound
	case lerrors.ErrCodeUnsupportedVersion:
		return CodeInvalidParams
	case lerrors.ErrCodeInvalidSessionState:
		return CodeInvalidSessionState
	case lerrors.ErrCodeRequestCancelled:
		return CodeRequestCancelled
	case lerrors.ErrCodeRetrievalUnavailable, lerrors.ErrCodeUpstreamTimeout:
		return CodeRetrievalUnavailable
	case lerrors.ErrCodeEmbeddingUnavailable:
		return CodeEmbeddingUnavailable
	}
	if le.Category == lerrors.CategoryValidation {
		return CodeValidation
	}
	return CodeInternalError
}
