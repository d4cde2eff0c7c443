// Package output formats CLI output: status lines and ranked search results,
// as styled text for terminals or as JSON for scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/search"
)

// Format selects how results are rendered.
type Format string

// Formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" and "json"; anything else is an error.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// Writer provides formatted output for CLI.
type Writer struct {
	out    io.Writer
	styles Styles
}

// New creates a Writer that colors output only when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	if IsTTY(out) && !DetectNoColor() {
		return &Writer{out: out, styles: DefaultStyles()}
	}
	return NewPlain(out)
}

// NewPlain creates a Writer that never emits escape sequences.
func NewPlain(out io.Writer) *Writer {
	return &Writer{out: out, styles: NoColorStyles()}
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// ResultSet is the JSON shape of a CLI search.
type ResultSet struct {
	Query       string                `json:"query"`
	SourceTypes []string              `json:"source_types,omitempty"`
	Results     []search.SearchResult `json:"results"`
	Count       int                   `json:"count"`
	Truncated   bool                  `json:"truncated"`
	Degraded    bool                  `json:"degraded"`
}

// NewResultSet flattens an engine response for output.
func NewResultSet(query string, resp *search.Response) ResultSet {
	rs := ResultSet{Query: query, Results: []search.SearchResult{}}
	if resp == nil {
		return rs
	}
	if resp.Results != nil {
		rs.Results = resp.Results
	}
	rs.SourceTypes = resp.Filter.Strings()
	rs.Count = len(resp.Results)
	rs.Truncated = resp.Truncated
	rs.Degraded = resp.Degraded
	return rs
}

// SearchResults renders a response in the given format. explain adds the
// component scores to text output.
func (w *Writer) SearchResults(query string, resp *search.Response, format Format, explain bool) error {
	rs := NewResultSet(query, resp)
	if format == FormatJSON {
		return w.JSON(rs)
	}

	if rs.Count == 0 {
		_, _ = fmt.Fprintf(w.out, "No results for %q\n", query)
		return nil
	}

	header := fmt.Sprintf("%d result(s) for %q", rs.Count, query)
	if len(rs.SourceTypes) > 0 {
		header += " in " + strings.Join(rs.SourceTypes, ", ")
	}
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(header))
	w.Newline()

	for i, r := range rs.Results {
		title := r.SourceTitle
		if title == "" {
			title = "(untitled)"
		}
		_, _ = fmt.Fprintf(w.out, "%2d. %s %s %s\n", i+1,
			w.styles.Score.Render(fmt.Sprintf("[%.3f]", r.Score)),
			title,
			w.styles.Label.Render("("+r.SourceType+")"))
		if ref := reference(r); ref != "" {
			_, _ = fmt.Fprintf(w.out, "    %s\n", w.styles.Dim.Render(ref))
		}
		if explain {
			_, _ = fmt.Fprintf(w.out, "    semantic=%.3f lexical=%.3f\n", r.Semantic, r.LexicalNormalized)
		}
		_, _ = fmt.Fprintf(w.out, "    %s\n", snippet(r.Text, 160))
	}

	if rs.Truncated {
		w.Newline()
		_, _ = fmt.Fprintln(w.out, w.styles.Dim.Render("More results matched; raise --limit to see them."))
	}
	if rs.Degraded {
		w.Warning("Embeddings unavailable; results are keyword-ranked only.")
	}
	return nil
}

func reference(r search.SearchResult) string {
	switch {
	case r.FilePath != "" && r.RepoName != "":
		return r.RepoName + ":" + r.FilePath
	case r.FilePath != "":
		return r.FilePath
	default:
		return r.SourceURL
	}
}

// snippet collapses whitespace and cuts text at max runes.
func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}
