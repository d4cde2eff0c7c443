package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/config"
	lerrors "github.com/martin-papy/qdrant-loader-mcp-server/internal/errors"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/logging"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/mcp"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/metrics"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/preflight"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/session"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/transport"
	"github.com/martin-papy/qdrant-loader-mcp-server/pkg/version"
)

type serveOptions struct {
	transport   string
	port        int
	noStreaming bool
	skipCheck   bool

	in  io.Reader
	out io.Writer
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the search server",
		Long: `Start the search server on the configured transport.

Transports:
  stdio  JSON-RPC 2.0, one message per line on stdin/stdout (default)
  http   JSON-RPC 2.0 over HTTP POST /mcp, frames streamed as NDJSON
  mcp    Model Context Protocol over stdio, exposing the search tool

On stdio transports stdout carries protocol messages only; logs go to
~/.loadermcp/logs/server.log.`,
		Example: `  # Serve over stdio
  loadermcp serve

  # Serve over HTTP on port 9000
  loadermcp serve --transport http --port 9000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.in = cmd.InOrStdin()
			opts.out = cmd.OutOrStdout()
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.transport, "transport", "", "Transport: stdio, http, mcp (default from config)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "HTTP port (default from config)")
	cmd.Flags().BoolVar(&opts.noStreaming, "no-streaming", false, "Answer searches with a single response")
	cmd.Flags().BoolVar(&opts.skipCheck, "skip-check", false, "Skip first-start system checks")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.transport != "" {
		cfg.Server.Transport = opts.transport
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}
	if opts.noStreaming {
		cfg.Server.Streaming = false
	}
	if err := cfg.Validate(); err != nil {
		return lerrors.ConfigError("invalid serve options", err)
	}

	level := cfg.Server.LogLevel
	if debugMode {
		level = "debug"
	}
	// Nothing but protocol messages may reach stdout on stdio transports.
	var cleanup func()
	if cfg.Server.Transport == config.TransportHTTP {
		logCfg := logging.DefaultConfig()
		logCfg.Level = level
		cleanup, err = logging.SetupDefault(logCfg)
	} else {
		cleanup, err = logging.SetupStdioMode(level)
	}
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()

	dataDir := config.DataDir()
	if !opts.skipCheck && preflight.NeedsCheck(dataDir, version.Get().Version) {
		checker := preflight.New(preflight.WithOutput(io.Discard))
		results := checker.RunAll(ctx, cfg)
		for _, r := range results {
			slog.Debug("preflight_check",
				slog.String("name", r.Name),
				slog.String("status", r.Status.String()),
				slog.String("message", r.Message))
		}
		if checker.HasCriticalFailures(results) {
			slog.Error("System check failed - run 'loadermcp doctor' for diagnostics")
			return fmt.Errorf("system check failed; run 'loadermcp doctor'")
		}
		if err := preflight.MarkPassed(dataDir, version.Get().Version); err != nil {
			slog.Debug("Failed to mark preflight as passed", slog.String("error", err.Error()))
		}
	}

	var (
		reg = prometheus.NewRegistry()
		m   *metrics.Metrics
	)
	if cfg.Metrics.Enabled {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(cfg.Metrics.Namespace, reg)
	}

	b, err := openBackend(ctx, cfg, m)
	if err != nil {
		slog.LogAttrs(ctx, slog.LevelError, "backend_failed", lerrors.LogAttrs(err)...)
		return err
	}
	defer b.Close()

	slog.Info("server_starting",
		slog.String("transport", cfg.Server.Transport),
		slog.String("version", version.Get().Version),
		slog.Bool("streaming", cfg.Server.Streaming))

	if cfg.Server.Transport == config.TransportMCP {
		srv, err := mcp.NewServer(b.engine)
		if err != nil {
			return err
		}
		return srv.Serve(ctx)
	}

	sess, err := session.New(b.engine, session.Config{
		ServerName:     "loadermcp",
		ServerVersion:  version.Get().Version,
		MaxConcurrency: cfg.Server.MaxConcurrency,
		ShutdownGrace:  cfg.Server.ShutdownGrace,
		Streaming:      cfg.Server.Streaming,
	}, session.WithMetrics(m))
	if err != nil {
		return err
	}
	defer func() { _ = sess.Close() }()

	if cfg.Server.Transport == config.TransportHTTP {
		return serveHTTP(ctx, cfg, sess, reg, m)
	}
	return transport.NewStdio(sess, opts.in, opts.out).Serve(ctx)
}

// serveHTTP holds a per-port lock so a second server on the same port fails
// fast with a clear message instead of a bind error.
func serveHTTP(ctx context.Context, cfg *config.Config, sess *session.Session, reg *prometheus.Registry, m *metrics.Metrics) error {
	lockPath := filepath.Join(config.DataDir(), fmt.Sprintf("server-%d.lock", cfg.Server.Port))
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire server lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another loadermcp server holds port %d (lock %s)", cfg.Server.Port, lockPath)
	}
	defer func() { _ = lock.Unlock() }()

	httpCfg := transport.HTTPConfig{
		Addr:        net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		CORSOrigins: cfg.Server.CORSOrigins,
		Metrics:     m,
	}
	if cfg.Metrics.Enabled {
		httpCfg.MetricsPath = cfg.Metrics.Path
		httpCfg.Gatherer = reg
	}
	return transport.NewHTTPServer(sess, httpCfg).ListenAndServe(ctx)
}
