package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/martin-papy/qdrant-loader-mcp-server/internal/session"
	"github.com/martin-papy/qdrant-loader-mcp-server/pkg/version"
)

// newVersionCmd creates the version command.
func newVersionCmd() *cobra.Command {
	var jsonOutput bool
	var shortOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print the build version, commit and date, plus the protocol revisions
clients may request during initialize.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			info.ProtocolVersions = session.SupportedProtocolVersions

			switch {
			case shortOutput:
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info.Version)
				return err
			case jsonOutput:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			default:
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info)
				return err
			}
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	cmd.Flags().BoolVar(&shortOutput, "short", false, "Output only the version number")

	return cmd
}
