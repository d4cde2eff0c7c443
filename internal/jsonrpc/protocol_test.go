package jsonrpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Valid(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		wantID    ID
		hasID     bool
		method    string
		hasParams bool
	}{
		{"string id", `{"jsonrpc":"2.0","id":"a1","method":"search","params":{"query":"x"}}`, StringID("a1"), true, "search", true},
		{"int id", `{"jsonrpc":"2.0","id":7,"method":"ping"}`, IntID(7), true, "ping", false},
		{"negative id", `{"jsonrpc":"2.0","id":-3,"method":"ping"}`, IntID(-3), true, "ping", false},
		{"notification", `{"jsonrpc":"2.0","method":"initialized"}`, ID{}, false, "initialized", false},
		{"array params", `{"jsonrpc":"2.0","id":1,"method":"m","params":[1,2]}`, IntID(1), true, "m", true},
		{"surrounding whitespace", "  {\"jsonrpc\":\"2.0\",\"id\":1,\"method\":\"m\"}\n", IntID(1), true, "m", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rpcErr := Parse([]byte(tt.in))

			require.Nil(t, rpcErr)
			assert.Equal(t, tt.wantID, req.ID)
			assert.Equal(t, tt.hasID, req.HasID)
			assert.Equal(t, !tt.hasID, req.IsNotification())
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.hasParams, len(req.Params) > 0)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantCode int
		wantID   ID
	}{
		{"not json", `{"jsonrpc":`, CodeParseError, ID{}},
		{"empty", ``, CodeParseError, ID{}},
		{"batch", `[{"jsonrpc":"2.0","id":1,"method":"ping"}]`, CodeInvalidRequest, ID{}},
		{"scalar", `"hello"`, CodeInvalidRequest, ID{}},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, CodeInvalidRequest, IntID(1)},
		{"missing version", `{"id":"x","method":"ping"}`, CodeInvalidRequest, StringID("x")},
		{"missing method", `{"jsonrpc":"2.0","id":1}`, CodeInvalidRequest, IntID(1)},
		{"empty method", `{"jsonrpc":"2.0","id":1,"method":""}`, CodeInvalidRequest, IntID(1)},
		{"numeric method", `{"jsonrpc":"2.0","id":1,"method":5}`, CodeInvalidRequest, IntID(1)},
		{"null id", `{"jsonrpc":"2.0","id":null,"method":"ping"}`, CodeInvalidRequest, ID{}},
		{"float id", `{"jsonrpc":"2.0","id":1.5,"method":"ping"}`, CodeInvalidRequest, ID{}},
		{"bool id", `{"jsonrpc":"2.0","id":true,"method":"ping"}`, CodeInvalidRequest, ID{}},
		{"scalar params", `{"jsonrpc":"2.0","id":2,"method":"ping","params":"x"}`, CodeInvalidRequest, IntID(2)},
		{"null params", `{"jsonrpc":"2.0","id":2,"method":"ping","params":null}`, CodeInvalidRequest, IntID(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rpcErr := Parse([]byte(tt.in))

			require.NotNil(t, rpcErr)
			assert.Equal(t, tt.wantCode, rpcErr.Code)
			assert.Equal(t, tt.wantID, req.ID)
		})
	}
}

func TestResponse_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		resp Response
		want string
	}{
		{"empty object result", NewResult(IntID(1), map[string]any{}), `{"jsonrpc":"2.0","id":1,"result":{}}`},
		{"nil result", NewResult(StringID("a"), nil), `{"jsonrpc":"2.0","id":"a","result":null}`},
		{"error with null id", NewErrorResponse(ID{}, ParseError()), `{"jsonrpc":"2.0","id":null,"error":{"code":-32700,"message":"parse error","data":{"code":"ERR_201_PARSE"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.resp)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestNotification_MarshalJSON(t *testing.T) {
	got, err := json.Marshal(NewNotification(MethodSearchPartial, map[string]any{"id": IntID(4), "rank": 1}))

	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"search/partial","params":{"id":4,"rank":1}}`, string(got))
}

func TestID_String(t *testing.T) {
	assert.Equal(t, `"a"`, StringID("a").String())
	assert.Equal(t, "12", IntID(12).String())
	assert.Equal(t, "null", ID{}.String())
	assert.True(t, ID{}.IsNull())
}

func TestDecodeParams(t *testing.T) {
	var p struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}

	require.Nil(t, DecodeParams(nil, &p))
	require.Nil(t, DecodeParams(json.RawMessage(`{"query":"q","limit":3}`), &p))
	assert.Equal(t, "q", p.Query)
	assert.Equal(t, 3, p.Limit)

	rpcErr := DecodeParams(json.RawMessage(`{"limit":"three"}`), &p)
	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeInvalidParams, rpcErr.Code)

	rpcErr = DecodeParams(json.RawMessage(`["q"]`), &p)
	require.NotNil(t, rpcErr)
	assert.Equal(t, CodeInvalidParams, rpcErr.Code)
}
