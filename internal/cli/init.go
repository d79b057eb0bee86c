package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/shipyard/internal/config"
	"github.com/mrz1836/shipyard/internal/domain"
	"github.com/mrz1836/shipyard/internal/errors"
)

// InitFlags holds flags specific to the init command.
type InitFlags struct {
	// Global writes ~/.shipyard/config.yaml instead of the project file.
	Global bool
	// Force overwrites an existing file after backing it up.
	Force bool
}

// AddInitCommand adds the init command to the root command.
func AddInitCommand(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newInitCmd())
}

func newInitCmd() *cobra.Command {
	initFlags := &InitFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Write a starter configuration with the built-in defaults and one example
target to .shipyard/config.yaml, or ~/.shipyard/config.yaml with --global.

Secrets are left empty. Supply them with SHIPYARD_SECRET_KEY and
SHIPYARD_MONGO_URI rather than writing them to disk.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := initConfigPath(initFlags.Global)
			if err != nil {
				return err
			}
			if err := writeStarterConfig(path, initFlags.Force); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&initFlags.Global, "global", false, "write the global config in ~/.shipyard")
	cmd.Flags().BoolVar(&initFlags.Force, "force", false, "overwrite an existing config file")

	return cmd
}

func initConfigPath(global bool) (string, error) {
	if global {
		return config.GlobalConfigPath()
	}
	return config.ProjectConfigPath(), nil
}

// starterConfig is the default configuration with a sample target.
func starterConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.SSH.User = "deploy"
	cfg.SSH.KeyPath = "~/.ssh/id_ed25519"
	cfg.Deploy.AppDir = "/srv/app"
	cfg.Targets = []domain.DeploymentTarget{
		{Name: "web1", Host: "203.0.113.10"},
	}
	return cfg
}

// writeStarterConfig writes the starter configuration to path. An existing
// file is only replaced with force, and is copied to path.backup first.
func writeStarterConfig(path string, force bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, statErr := os.Stat(path); statErr == nil {
		if !force {
			return errors.Wrapf(errors.ErrConfigExists, "%s", path)
		}
		backupPath := path + ".backup"
		if copyErr := copyFile(path, backupPath); copyErr != nil {
			logger := GetLogger()
			logger.Warn().
				Err(copyErr).
				Str("backup_path", backupPath).
				Msg("failed to create config backup")
		}
	}

	data, err := yaml.Marshal(starterConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := fmt.Sprintf("# SHIPYARD Configuration\n# Generated by shipyard init on %s\n\n",
		time.Now().Format(time.RFC3339))

	if err := os.WriteFile(path, []byte(header+string(data)), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src) //nolint:gosec // Source is the config file
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o600)
}
