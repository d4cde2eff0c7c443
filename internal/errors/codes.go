// Package errors provides structured error handling for loadermcp.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Protocol errors (framing, lifecycle)
//   - 3XX: Upstream errors (embedding provider, vector store)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryProtocol indicates malformed frames, unknown methods or wrong session state.
	CategoryProtocol Category = "PROTOCOL"
	// CategoryEmbedding indicates the embedding provider could not serve a request.
	CategoryEmbedding Category = "EMBEDDING"
	// CategoryRetrieval indicates the vector store could not serve a request.
	CategoryRetrieval Category = "RETRIEVAL"
	// CategoryValidation indicates bad request parameters.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal faults.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeCatalogMissing = "ERR_103_CATALOG_MISSING"

	// Protocol errors (200-299)
	ErrCodeParse               = "ERR_201_PARSE"
	ErrCodeInvalidRequest      = "ERR_202_INVALID_REQUEST"
	ErrCodeMethodNotFound      = "ERR_203_METHOD_NOT_FOUND"
	ErrCodeInvalidSessionState = "ERR_204_INVALID_SESSION_STATE"
	ErrCodeUnsupportedVersion  = "ERR_205_UNSUPPORTED_VERSION"
	ErrCodeRequestCancelled    = "ERR_206_REQUEST_CANCELLED"

	// Upstream errors (300-399)
	ErrCodeEmbeddingUnavailable = "ERR_301_EMBEDDING_UNAVAILABLE"
	ErrCodeRetrievalUnavailable = "ERR_302_RETRIEVAL_UNAVAILABLE"
	ErrCodeUpstreamTimeout      = "ERR_303_UPSTREAM_TIMEOUT"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty        = "ERR_402_QUERY_EMPTY"
	ErrCodeLimitOutOfRange   = "ERR_403_LIMIT_OUT_OF_RANGE"
	ErrCodeUnknownSourceType = "ERR_404_UNKNOWN_SOURCE_TYPE"
	ErrCodeDimensionMismatch = "ERR_405_DIMENSION_MISMATCH"

	// Internal errors (500-599)
	ErrCodeInternal      = "ERR_501_INTERNAL"
	ErrCodeRankingFailed = "ERR_502_RANKING_FAILED"
	ErrCodeCorruptIndex  = "ERR_503_CORRUPT_INDEX"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code {
	case ErrCodeEmbeddingUnavailable:
		return CategoryEmbedding
	case ErrCodeRetrievalUnavailable, ErrCodeUpstreamTimeout:
		return CategoryRetrieval
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryProtocol
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeCorruptIndex, ErrCodeCatalogMissing:
		return SeverityFatal
	case ErrCodeEmbeddingUnavailable:
		// Search degrades to lexical-only ranking.
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports whether the caller may retry after this error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbeddingUnavailable, ErrCodeRetrievalUnavailable, ErrCodeUpstreamTimeout:
		return true
	default:
		return false
	}
}
