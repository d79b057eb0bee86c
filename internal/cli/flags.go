package cli

import (
	stderrors "errors"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/tui"
)

// Exit codes for the CLI.
const (
	// ExitSuccess indicates every target deployed and verified.
	ExitSuccess = 0
	// ExitError indicates a fatal phase failure or other runtime error.
	ExitError = 1
	// ExitInvalidInput indicates invalid user input or configuration.
	ExitInvalidInput = 2
)

// Output format constants.
const (
	// OutputText is the default human-readable output format.
	OutputText = tui.FormatText
	// OutputJSON is the machine-readable JSON output format.
	OutputJSON = tui.FormatJSON
)

// GlobalFlags holds flags available to all commands.
type GlobalFlags struct {
	// Output specifies the output format (text or json).
	Output string
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet suppresses non-essential output (warn level only).
	Quiet bool
	// ConfigPath replaces .shipyard/config.yaml when set.
	ConfigPath string
}

// AddGlobalFlags adds global flags to a command.
// These flags are available to all subcommands via PersistentFlags.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputText, "output format (text|json)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress non-essential output")
	cmd.PersistentFlags().StringVarP(&flags.ConfigPath, "config", "c", "", "config file (default .shipyard/config.yaml)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// BindGlobalFlags binds global flags to Viper so SHIPYARD_OUTPUT,
// SHIPYARD_VERBOSE and SHIPYARD_QUIET are honored.
func BindGlobalFlags(v *viper.Viper, cmd *cobra.Command) error {
	// Root().PersistentFlags() finds root flags from a subcommand's PersistentPreRunE.
	rootFlags := cmd.Root().PersistentFlags()

	for _, name := range []string{"output", "verbose", "quiet", "config"} {
		if err := v.BindPFlag(name, rootFlags.Lookup(name)); err != nil {
			return err
		}
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.AutomaticEnv()

	return nil
}

// ValidOutputFormats returns the list of valid output format values.
func ValidOutputFormats() []string {
	return []string{OutputText, OutputJSON}
}

// IsValidOutputFormat checks if the given format is a valid output format.
func IsValidOutputFormat(format string) bool {
	for _, valid := range ValidOutputFormats() {
		if format == valid {
			return true
		}
	}
	return false
}

// invalidInputErrors are sentinels caused by what the user supplied rather
// than by a failed deployment.
//
//nolint:gochecknoglobals // read-only lookup table
var invalidInputErrors = []error{
	errors.ErrInvalidOutputFormat,
	errors.ErrInvalidRevision,
	errors.ErrUnknownTarget,
	errors.ErrNoTargets,
	errors.ErrMissingSecret,
	errors.ErrConfigNil,
	errors.ErrConfigNotFound,
	errors.ErrConfigInvalidTarget,
	errors.ErrConfigInvalidHealth,
	errors.ErrConfigInvalidPublish,
	errors.ErrConfigInvalidDeploy,
	errors.ErrValueOutOfRange,
	errors.ErrConfigExists,
}

// ExitCodeForError returns the exit code for err: ExitSuccess for nil,
// ExitInvalidInput for user input and configuration errors, ExitError for
// everything else, including failed deployments.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.IsExitCode2Error(err) {
		return ExitInvalidInput
	}

	for _, sentinel := range invalidInputErrors {
		if stderrors.Is(err, sentinel) {
			return ExitInvalidInput
		}
	}

	// Cobra flag parsing errors (mutually exclusive flags, unknown flags, etc.)
	if isInvalidInputError(err.Error()) {
		return ExitInvalidInput
	}

	return ExitError
}

// isInvalidInputError checks if an error message indicates invalid user input.
// This catches Cobra's built-in flag validation errors.
func isInvalidInputError(errMsg string) bool {
	invalidInputPatterns := []string{
		"unknown flag",
		"unknown shorthand flag",
		"flag needs an argument",
		"invalid argument",
		"if any flags in the group",
		"required flag",
		"unknown command",
	}

	for _, pattern := range invalidInputPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}
	return false
}
