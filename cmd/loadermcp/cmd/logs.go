package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/logging"
)

type logsOptions struct {
	lines   int
	level   string
	filter  string
	logFile string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the server log",
		Long: `Print the last lines of the server log (~/.loadermcp/logs/server.log).

Records are JSON lines; --level keeps records at or above a level and
--filter keeps records matching a regular expression.`,
		Example: `  loadermcp logs -n 100
  loadermcp logs --level warn
  loadermcp logs --filter session_state_changed`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Filter by pattern (regex)")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Path to log file")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.logFile)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		pattern, err = regexp.Compile(opts.filter)
		if err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	// Ring buffer of the last n matching lines.
	n := max(opts.lines, 1)
	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !keepLogLine(line, opts.level, pattern) {
			continue
		}
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}

	for _, line := range ring {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return err
		}
	}
	return nil
}

// keepLogLine applies the level and pattern filters. Lines that are not JSON
// records pass the level filter.
func keepLogLine(line, level string, pattern *regexp.Regexp) bool {
	if pattern != nil && !pattern.MatchString(line) {
		return false
	}
	if level == "" {
		return true
	}
	var rec struct {
		Level string `json:"level"`
	}
	if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Level == "" {
		return true
	}
	return logging.ParseLevel(strings.ToLower(rec.Level)) >= logging.ParseLevel(level)
}
