package session

import (
	"encoding/json"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/jsonrpc"
)

// FrameKind classifies outgoing frames.
type FrameKind string

const (
	FrameResult  FrameKind = "result"
	FramePartial FrameKind = "partial"
	FrameError   FrameKind = "error"
)

// Frame is one outgoing wire message. Message is a jsonrpc.Response or a
// jsonrpc.Notification; Final marks the last frame for RequestID.
type Frame struct {
	Kind      FrameKind
	RequestID jsonrpc.ID
	Final     bool
	Message   any
}

// MarshalJSON encodes the wire message only.
func (f Frame) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Message)
}

// Sink receives frames. Emit must be safe for concurrent use; frames of one
// request are emitted from a single goroutine in order.
type Sink interface {
	Emit(f Frame) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Frame) error

// Emit implements Sink.
func (fn SinkFunc) Emit(f Frame) error { return fn(f) }

func resultFrame(id jsonrpc.ID, result any) Frame {
	return Frame{Kind: FrameResult, RequestID: id, Final: true, Message: jsonrpc.NewResult(id, result)}
}

func errorFrame(id jsonrpc.ID, err *jsonrpc.Error) Frame {
	return Frame{Kind: FrameError, RequestID: id, Final: true, Message: jsonrpc.NewErrorResponse(id, err)}
}

func partialFrame(id jsonrpc.ID, params PartialParams) Frame {
	return Frame{Kind: FramePartial, RequestID: id, Message: jsonrpc.NewNotification(jsonrpc.MethodSearchPartial, params)}
}
