// Package cli provides the command-line interface for shipyard.
package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/tui"
)

// BuildInfo contains version information set at build time via ldflags.
type BuildInfo struct {
	// Version is the semantic version (e.g., "1.0.0").
	Version string
	// Commit is the git commit hash.
	Commit string
	// Date is the build date.
	Date string
}

// globalLogger stores the initialized logger for use by subcommands.
// It is set during PersistentPreRunE and read via GetLogger.
var (
	globalLogger   zerolog.Logger //nolint:gochecknoglobals // CLI logger requires global access
	globalLoggerMu sync.RWMutex   //nolint:gochecknoglobals // Protects globalLogger
)

// GetLogger returns the initialized logger for use by subcommands.
//
// It must only be called after the root command's PersistentPreRunE has
// run. Before that it returns a zero-value logger that discards output.
func GetLogger() zerolog.Logger {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

// newRootCmd creates the root command wired to the real SSH executor.
func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	return newRootCmdWithServices(flags, info, defaultServices())
}

// newRootCmdWithServices creates the root command. Tests pass services that
// replace the SSH executor, clock and sleeps.
func newRootCmdWithServices(flags *GlobalFlags, info BuildInfo, svc *services) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "shipyard",
		Short: "SHIPYARD - deploy a revision to remote hosts and verify it",
		Long: `SHIPYARD deploys a git revision of a systemd-managed web application to
one or more hosts over SSH, verifies it over HTTP, and publishes the build
artifact to a shared git repository.

Each target moves through INIT, SYNCING, CONFIGURING, RESTARTING and
VERIFYING. A target only succeeds when every health endpoint passes in
the same round.`,
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := BindGlobalFlags(v, cmd); err != nil {
				return fmt.Errorf("failed to bind flags: %w", err)
			}
			flags.Output = v.GetString("output")
			flags.Verbose = v.GetBool("verbose")
			flags.Quiet = v.GetBool("quiet")
			flags.ConfigPath = v.GetString("config")

			if !IsValidOutputFormat(flags.Output) {
				return fmt.Errorf("%w: %q must be one of %v",
					errors.ErrInvalidOutputFormat, flags.Output, ValidOutputFormats())
			}

			globalLoggerMu.Lock()
			if svc.logWriter != nil {
				globalLogger = InitLoggerWithWriter(flags.Verbose, flags.Quiet, svc.logWriter)
			} else {
				globalLogger = InitLogger(flags.Verbose, flags.Quiet)
			}
			globalLoggerMu.Unlock()

			return nil
		},
		// Execute renders errors through tui.Output.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	AddGlobalFlags(cmd, flags)

	AddDeployCommand(cmd, flags, svc)
	AddVerifyCommand(cmd, flags, svc)
	AddPublishCommand(cmd, flags, svc)
	AddInitCommand(cmd)
	AddVersionCommand(cmd, flags, info)

	return cmd
}

// formatVersion creates the version string from build info.
func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// Execute runs the root command with the provided context and build info.
func Execute(ctx context.Context, info BuildInfo) error {
	defer CloseLogFile()

	flags := &GlobalFlags{}
	//nolint:contextcheck // Cobra command pattern uses cmd.Context() internally
	cmd := newRootCmd(flags, info)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		renderError(cmd.ErrOrStderr(), flags.Output, err)
	}
	return err
}

// renderError prints err once, in JSON when requested and valid.
func renderError(w io.Writer, format string, err error) {
	if !IsValidOutputFormat(format) {
		format = OutputText
	}
	tui.NewOutput(w, format).Error(err)
}
