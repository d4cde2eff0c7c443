package mcp

import (
	"fmt"
	"strings"
)

// FormatSearchResults renders a search response as markdown for clients
// that only read text content.
func FormatSearchResults(query string, out SearchOutput) string {
	if len(out.Results) == 0 {
		return fmt.Sprintf("No results found for \"%s\"", query)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Search Results for \"%s\"\n\n", query))
	sb.WriteString(fmt.Sprintf("Found %d result", out.Count))
	if out.Count != 1 {
		sb.WriteString("s")
	}
	if out.Truncated {
		sb.WriteString(" (more available, raise the limit)")
	}
	sb.WriteString("\n\n")
	if out.Degraded {
		sb.WriteString("> Semantic ranking unavailable; results are keyword-ranked.\n\n")
	}

	for i, r := range out.Results {
		title := r.SourceTitle
		if title == "" {
			title = "untitled"
		}
		sb.WriteString(fmt.Sprintf("### %d. %s (%s, score %.3f)\n\n", i+1, title, r.SourceType, r.Score))

		var refs []string
		if r.SourceURL != "" {
			refs = append(refs, r.SourceURL)
		}
		if r.FilePath != "" {
			ref := r.FilePath
			if r.RepoName != "" {
				ref = r.RepoName + ":" + ref
			}
			refs = append(refs, "`"+ref+"`")
		}
		if len(refs) > 0 {
			sb.WriteString(strings.Join(refs, " | "))
			sb.WriteString("\n\n")
		}

		sb.WriteString(quote(r.Text))
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// quote prefixes every line with "> ".
func quote(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, l := range lines {
		lines[i] = "> " + l
	}
	return strings.Join(lines, "\n")
}
