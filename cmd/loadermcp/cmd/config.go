package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/martin-papy/qdrant-loader-mcp-server/configs"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/config"
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Inspect and create loadermcp configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/loadermcp/config.yaml)
  3. Project config (.loadermcp.yaml in --dir)
  4. Environment variables (LOADERMCP_*)`,
		Example: `  # Create user config with defaults
  loadermcp config init

  # Show effective configuration
  loadermcp config show

  # Print user config file path
  loadermcp config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var (
		force   bool
		project bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with defaults",
		Long: `Write the annotated default configuration to the user config file, or
with --project the plain defaults to .loadermcp.yaml in --dir. An existing file is kept unless
--force is given, in which case it is backed up to <file>.bak first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force, project)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().BoolVar(&project, "project", false, "Write the project config instead of the user config")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		Long: `Show the effective configuration after merging all sources.
Secrets (API keys, passwords) are never printed.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print user config file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}

func runConfigInit(cmd *cobra.Command, force, project bool) error {
	out := output.New(cmd.OutOrStdout())

	path := config.GetUserConfigPath()
	if project {
		path = filepath.Join(projectDir, config.ProjectConfigName)
	}

	if _, err := os.Stat(path); err == nil && !force {
		out.Warning("Configuration already exists")
		out.Statusf("", "Location: %s", path)
		out.Status("", "Use --force to overwrite (the old file is kept as .bak)")
		return nil
	}

	if project {
		if err := config.NewConfig().WriteYAML(path); err != nil {
			return err
		}
	} else if err := writeUserTemplate(path); err != nil {
		return err
	}

	out.Success("Created configuration")
	out.Statusf("", "Location: %s", path)
	return nil
}

// writeUserTemplate writes the annotated template, keeping any previous
// file as .bak.
func writeUserTemplate(path string) error {
	if prev, err := os.ReadFile(path); err == nil {
		if err := os.WriteFile(path+".bak", prev, 0o600); err != nil {
			return fmt.Errorf("failed to back up existing config: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configs.UserConfigTemplate), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	redacted := *cfg
	redacted.Embeddings.OpenAIAPIKey = ""
	redacted.Store.RedisPassword = ""
	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
