package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var le *LoaderError
	if !errors.As(err, &le) {
		le = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", le.Message)
	if le.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", le.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", le.Code)
	return sb.String()
}

// LogAttrs returns slog attributes describing err, including the cause.
// For logs only; the cause text must never reach a protocol client.
func LogAttrs(err error) []slog.Attr {
	if err == nil {
		return nil
	}

	var le *LoaderError
	if !errors.As(err, &le) {
		return []slog.Attr{slog.String("error", err.Error())}
	}

	attrs := []slog.Attr{
		slog.String("error_code", le.Code),
		slog.String("error", le.Message),
		slog.String("category", string(le.Category)),
		slog.Bool("retryable", le.Retryable),
	}
	if le.Cause != nil {
		attrs = append(attrs, slog.String("cause", le.Cause.Error()))
	}
	for k, v := range le.Details {
		attrs = append(attrs, slog.String("detail_"+k, v))
	}
	return attrs
}
