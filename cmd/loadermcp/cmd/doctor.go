package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/config"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/embed"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/preflight"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/store"
)

func newDoctorCmd() *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check system requirements and diagnose issues",
		Long: `Run system diagnostics to ensure loadermcp can serve searches.

Checks:
  - Configuration validity
  - Write permissions and disk space in the data directory
  - File descriptor limits (1024 minimum)
  - Catalog presence and document count
  - Vector store reachability
  - Embedding provider reachability

Note: the embedder check is a non-critical warning. Without embeddings
searches are ranked by keyword relevance only.`,
		Example: `  # Run diagnostics
  loadermcp doctor

  # JSON output for scripting
  loadermcp doctor --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd.Context(), cmd, verbose, jsonOutput)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runDoctor(ctx context.Context, cmd *cobra.Command, verbose, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := []preflight.Option{
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	}

	if embedder, err := embed.NewProvider(cfg.Embeddings); err == nil {
		defer func() { _ = embedder.Close() }()
		opts = append(opts, preflight.WithEmbedder(embedder))
	}
	if cfg.Store.Backend == "redis" {
		rs, err := store.NewRedisStore(store.RedisConfig{
			Addrs:    cfg.Store.RedisAddrs,
			Username: cfg.Store.RedisUsername,
			Password: cfg.Store.RedisPassword,
			DB:       cfg.Store.RedisDB,
			Index:    cfg.Store.RedisIndex,
		})
		if err == nil {
			defer func() { _ = rs.Close() }()
			opts = append(opts, preflight.WithVectorStore(rs))
		}
	}

	checker := preflight.New(opts...)
	results := checker.RunAll(ctx, cfg)

	if jsonOutput {
		if err := outputJSON(cmd, checker, results); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
		if age := preflight.MarkerAge(config.DataDir()); age > 0 {
			cmd.Printf("\nLast successful check: %s ago\n", formatDuration(age.Hours()))
		}
	}

	if checker.HasCriticalFailures(results) {
		return &doctorError{message: "system check failed"}
	}
	return nil
}

// doctorError is a custom error for doctor command failures.
type doctorError struct {
	message string
}

func (e *doctorError) Error() string {
	return e.message
}

// JSONOutput is the structure for JSON output.
type JSONOutput struct {
	Status   string            `json:"status"`
	Checks   []JSONCheckResult `json:"checks"`
	Warnings []string          `json:"warnings,omitempty"`
	Errors   []string          `json:"errors,omitempty"`
}

// JSONCheckResult is a single check result for JSON output.
type JSONCheckResult struct {
	Name     string `json:"name"`
	Status   string `json:"status"`
	Message  string `json:"message"`
	Required bool   `json:"required"`
	Details  string `json:"details,omitempty"`
}

func outputJSON(cmd *cobra.Command, checker *preflight.Checker, results []preflight.CheckResult) error {
	out := JSONOutput{
		Status: checker.SummaryStatus(results),
		Checks: make([]JSONCheckResult, len(results)),
	}

	for i, r := range results {
		out.Checks[i] = JSONCheckResult{
			Name:     r.Name,
			Status:   statusToString(r.Status),
			Message:  r.Message,
			Required: r.Required,
			Details:  r.Details,
		}

		if r.IsCritical() {
			out.Errors = append(out.Errors, r.Name+": "+r.Message)
		} else if r.Status == preflight.StatusWarn {
			out.Warnings = append(out.Warnings, r.Name+": "+r.Message)
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func statusToString(s preflight.CheckStatus) string {
	switch s {
	case preflight.StatusPass:
		return "pass"
	case preflight.StatusWarn:
		return "warn"
	case preflight.StatusFail:
		return "fail"
	default:
		return "unknown"
	}
}

func formatDuration(hours float64) string {
	switch {
	case hours < 1:
		return "less than 1 hour"
	case hours < 2:
		return "1 hour"
	case hours < 24:
		return fmt.Sprintf("%d hours", int(hours))
	case hours < 48:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", int(hours/24))
	}
}
