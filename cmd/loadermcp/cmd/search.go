package cmd

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/output"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit       int
	sourceTypes []string
	format      string
	explain     bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the corpus from the shell",
		Long: `Run one hybrid search against the configured corpus and print the
ranked results. Ranking is identical to the server's.

When the embedding provider is unreachable the results are ranked by
keyword relevance only and a warning is printed.`,
		Example: `  loadermcp search "oauth setup"
  loadermcp search "login handler" --type code --limit 5
  loadermcp search "release process" --type wiki --type doc --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default from config)")
	cmd.Flags().StringSliceVarP(&opts.sourceTypes, "type", "t", nil, "Restrict to source types: wiki, code, issue, doc (repeatable)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "Show semantic and lexical component scores")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	b, err := openBackend(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer b.Close()

	q, err := b.engine.ParseQuery(query, opts.sourceTypes, opts.limit)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := b.engine.Search(ctx, q)
	if err != nil {
		return err
	}
	slog.Info("search_complete",
		slog.String("mode", "cli"),
		slog.Int("results", len(resp.Results)),
		slog.Bool("degraded", resp.Degraded),
		slog.Duration("duration", time.Since(start)))

	return output.New(cmd.OutOrStdout()).SearchResults(query, resp, format, opts.explain)
}
