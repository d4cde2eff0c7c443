// Package cmd provides the CLI commands for loadermcp.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/config"
	lerrors "github.com/martin-papy/qdrant-loader-mcp-server/internal/errors"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/logging"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/profiling"
	"github.com/martin-papy/qdrant-loader-mcp-server/pkg/version"
)

// Global flags
var (
	debugMode      bool
	projectDir     string
	profileOpts    profiling.Options
	profiler       *profiling.Profiler
	loggingCleanup func()
)

// NewRootCmd creates the root command for the loadermcp CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loadermcp",
		Short: "Hybrid search server for documents ingested by the loader",
		Long: `loadermcp answers search requests over a document corpus prepared by
the external loader. Results are ranked by fusing semantic similarity from
a vector store with BM25 keyword relevance.

The server speaks JSON-RPC 2.0 over stdio or HTTP, or MCP over stdio.

Run 'loadermcp serve' to start the server, or 'loadermcp search' to query
the corpus from the shell.`,
		Version:       version.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("loadermcp version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.loadermcp/logs/")
	cmd.PersistentFlags().StringVar(&projectDir, "dir", ".", "Directory holding the project .loadermcp.yaml")

	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts any requested profiles and installs file
// logging at debug level when --debug is set. serve installs its own logger.
func startProfilingAndLogging(cmd *cobra.Command, _ []string) error {
	if profileOpts.Enabled() {
		p, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profiler = p
	}

	if !debugMode || cmd.Name() == "serve" {
		return nil
	}
	cfg := logging.DefaultConfig()
	cfg.Level = "debug"
	cfg.WriteToStderr = false
	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.Info("Debug logging enabled",
		slog.String("log_file", cfg.FilePath),
		slog.String("version", version.Get().Version))
	return nil
}

// stopProfilingAndLogging flushes profiles and closes the debug log.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	err := profiler.Stop()
	profiler = nil

	if loggingCleanup != nil {
		slog.Info("Debug logging stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	if err != nil {
		return fmt.Errorf("failed to write profiles: %w", err)
	}
	return nil
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, lerrors.FormatForCLI(err))
	}
	return err
}

// loadConfig loads configuration layered onto defaults for --dir.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, lerrors.ConfigError("failed to load configuration", err)
	}
	return cfg, nil
}
