// Package jsonrpc implements the JSON-RPC 2.0 wire format: message parsing
// and validation, responses, notifications and error codes.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Version is the only accepted "jsonrpc" value.
const Version = "2.0"

// Method names.
const (
	MethodInitialize        = "initialize"
	MethodInitialized       = "initialized"
	MethodInitializedNotify = "notifications/initialized"
	MethodSearch            = "search"
	MethodShutdown          = "shutdown"
	MethodExit              = "exit"
	MethodPing              = "ping"
	MethodToolsList         = "tools/list"
	MethodCancelRequest     = "$/cancelRequest"
	MethodCancelled         = "notifications/cancelled"
	MethodSearchPartial     = "search/partial"
)

type idKind uint8

const (
	idNull idKind = iota
	idString
	idInt
)

// ID is a request identifier: a string or an integer. The zero value is
// null, which is what error responses carry when the request id is unknown.
// ID is comparable and can key a map.
type ID struct {
	kind idKind
	str  string
	num  int64
}

// StringID returns a string identifier.
func StringID(s string) ID { return ID{kind: idString, str: s} }

// IntID returns an integer identifier.
func IntID(n int64) ID { return ID{kind: idInt, num: n} }

// IsNull reports whether the id is null.
func (id ID) IsNull() bool { return id.kind == idNull }

// String is for logs.
func (id ID) String() string {
	switch id.kind {
	case idString:
		return strconv.Quote(id.str)
	case idInt:
		return strconv.FormatInt(id.num, 10)
	default:
		return "null"
	}
}

// MarshalJSON implements json.Marshaler.
func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idString:
		return json.Marshal(id.str)
	case idInt:
		return []byte(strconv.FormatInt(id.num, 10)), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a string or an integer. Null, fractional numbers,
// booleans, arrays and objects are rejected.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty id")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		n, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return fmt.Errorf("id must be an integer")
		}
		*id = IntID(n)
		return nil
	default:
		return fmt.Errorf("id must be a string or an integer")
	}
}

// Request is a validated incoming message. A Request without an id is a
// notification and never gets a response.
type Request struct {
	ID     ID
	HasID  bool
	Method string
	Params json.RawMessage
}

// IsNotification reports whether no response is expected.
func (r Request) IsNotification() bool { return !r.HasID }

// Response is a success or error reply to a request.
type Response struct {
	ID     ID
	Result any
	Error  *Error
}

// NewResult creates a success response.
func NewResult(id ID, result any) Response {
	return Response{ID: id, Result: result}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(id ID, err *Error) Response {
	return Response{ID: id, Error: err}
}

// MarshalJSON writes exactly one of result or error. A nil result is
// written as null, an empty map as {}.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			JSONRPC string `json:"jsonrpc"`
			ID      ID     `json:"id"`
			Error   *Error `json:"error"`
		}{Version, r.ID, r.Error})
	}
	return json.Marshal(struct {
		JSONRPC string `json:"jsonrpc"`
		ID      ID     `json:"id"`
		Result  any    `json:"result"`
	}{Version, r.ID, r.Result})
}

// Notification is a server-to-client message without an id.
type Notification struct {
	Method string
	Params any
}

// NewNotification creates a notification.
func NewNotification(method string, params any) Notification {
	return Notification{Method: method, Params: params}
}

// MarshalJSON implements json.Marshaler.
func (n Notification) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		JSONRPC string `json:"jsonrpc"`
		Method  string `json:"method"`
		Params  any    `json:"params,omitempty"`
	}{Version, n.Method, n.Params})
}

// Parse validates one framed message.
//
// On failure the returned Request carries the id if one could be read, so
// the error response can echo it; otherwise the id is null.
func Parse(data []byte) (Request, *Error) {
	data = bytes.TrimSpace(data)
	if !json.Valid(data) {
		return Request{}, ParseError()
	}
	if len(data) > 0 && data[0] == '[' {
		return Request{}, InvalidRequest("batch requests are not supported")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Request{}, InvalidRequest("request must be a JSON object")
	}

	var req Request
	if rawID, ok := raw["id"]; ok {
		if err := req.ID.UnmarshalJSON(rawID); err != nil {
			return Request{}, InvalidRequest("id must be a string or an integer")
		}
		req.HasID = true
	}

	var version string
	if err := json.Unmarshal(raw["jsonrpc"], &version); err != nil || version != Version {
		return req, InvalidRequest(`jsonrpc must be "2.0"`)
	}

	if err := json.Unmarshal(raw["method"], &req.Method); err != nil || req.Method == "" {
		return req, InvalidRequest("method must be a non-empty string")
	}

	if params, ok := raw["params"]; ok {
		params = bytes.TrimSpace(params)
		if len(params) == 0 || (params[0] != '{' && params[0] != '[') {
			return req, InvalidRequest("params must be an object or an array")
		}
		req.Params = params
	}

	return req, nil
}

// DecodeParams unmarshals object params into v. Absent params decode as {}.
func DecodeParams(params json.RawMessage, v any) *Error {
	if len(params) == 0 {
		return nil
	}
	if params[0] != '{' {
		return InvalidParams("params must be an object")
	}
	if err := json.Unmarshal(params, v); err != nil {
		return InvalidParams("params have the wrong shape")
	}
	return nil
}
