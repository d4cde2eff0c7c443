package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderError_Unwrap_PreservesCause(t *testing.T) {
	// Given: an upstream failure
	cause := errors.New("dial tcp 127.0.0.1:6379: connection refused")

	// When: wrapping it as a retrieval failure
	err := RetrievalUnavailable(cause)

	// Then: the cause is reachable through the chain
	require.NotNil(t, err)
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestLoaderError_Error_Format(t *testing.T) {
	err := New(ErrCodeQueryEmpty, "query must not be empty", nil)
	assert.Equal(t, "[ERR_402_QUERY_EMPTY] query must not be empty", err.Error())
}

func TestLoaderError_Is_MatchesSentinelByCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		want     bool
	}{
		{"embedding", EmbeddingUnavailable(errors.New("x")), ErrEmbeddingUnavailable, true},
		{"retrieval", RetrievalUnavailable(nil), ErrRetrievalUnavailable, true},
		{"session state", InvalidSessionState("search", "Uninitialized"), ErrInvalidSessionState, true},
		{"validation", ValidationError("bad", nil), ErrValidation, true},
		{"wrapped with fmt", fmt.Errorf("fetch: %w", RetrievalUnavailable(nil)), ErrRetrievalUnavailable, true},
		{"different code", RetrievalUnavailable(nil), ErrEmbeddingUnavailable, false},
		{"plain error", errors.New("boom"), ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeParse, CategoryProtocol},
		{ErrCodeInvalidSessionState, CategoryProtocol},
		{ErrCodeEmbeddingUnavailable, CategoryEmbedding},
		{ErrCodeRetrievalUnavailable, CategoryRetrieval},
		{ErrCodeUpstreamTimeout, CategoryRetrieval},
		{ErrCodeLimitOutOfRange, CategoryValidation},
		{ErrCodeRankingFailed, CategoryInternal},
		{"bad", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.category, New(tt.code, "m", nil).Category)
		})
	}
}

func TestRetryableAndSeverity(t *testing.T) {
	assert.True(t, IsRetryable(RetrievalUnavailable(nil)))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", EmbeddingUnavailable(nil))))
	assert.False(t, IsRetryable(ValidationError("bad", nil)))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))

	assert.Equal(t, SeverityWarning, EmbeddingUnavailable(nil).Severity)
	assert.True(t, IsFatal(New(ErrCodeCatalogMissing, "missing", nil)))
	assert.False(t, IsFatal(RetrievalUnavailable(nil)))
}

func TestIsValidation_AllValidationCodes(t *testing.T) {
	for _, code := range []string{ErrCodeInvalidInput, ErrCodeQueryEmpty, ErrCodeLimitOutOfRange, ErrCodeUnknownSourceType} {
		assert.True(t, IsValidation(New(code, "m", nil)), code)
	}
	assert.False(t, IsValidation(InternalError("x", nil)))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, GetCode(fmt.Errorf("outer: %w", InternalError("x", nil))))
	assert.Empty(t, GetCode(errors.New("plain")))
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestFormatForCLI(t *testing.T) {
	out := FormatForCLI(RetrievalUnavailable(errors.New("secret host detail")))

	assert.Contains(t, out, "vector store unavailable")
	assert.Contains(t, out, "Hint:")
	assert.Contains(t, out, ErrCodeRetrievalUnavailable)
	assert.NotContains(t, out, "secret host detail")
	assert.Empty(t, FormatForCLI(nil))
}

func TestLogAttrs_IncludesCause(t *testing.T) {
	attrs := LogAttrs(EmbeddingUnavailable(errors.New("timeout")).WithDetail("provider", "ollama"))

	keys := make(map[string]string)
	for _, a := range attrs {
		keys[a.Key] = a.Value.String()
	}
	assert.Equal(t, ErrCodeEmbeddingUnavailable, keys["error_code"])
	assert.Equal(t, "timeout", keys["cause"])
	assert.Equal(t, "ollama", keys["detail_provider"])

	plain := LogAttrs(errors.New("boom"))
	require.Len(t, plain, 1)
	assert.Equal(t, "error", plain[0].Key)
}
