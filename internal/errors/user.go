package errors

import "errors"

// ErrorInfo holds user-facing message and suggested action for an error.
type ErrorInfo struct {
	// Message is the user-friendly error description.
	Message string
	// Action is a suggested action to resolve the issue (empty if none).
	Action string
}

// errorEntry pairs a sentinel error with its user-facing info.
type errorEntry struct {
	err  error
	info ErrorInfo
}

// errorInfoEntries maps sentinel errors to their user-facing messages.
// Using a slice (not a map) because errors.Is() requires proper error chain traversal.
//
//nolint:gochecknoglobals // Pre-built mapping for efficiency
var errorInfoEntries = []errorEntry{
	// ===================
	// Remote host
	// ===================
	{
		err: ErrConnection,
		info: ErrorInfo{
			Message: "Could not open an SSH session to the target host.",
			Action:  "Check the host address, SSH user, key path, and that port 22 is reachable.",
		},
	},
	{
		err: ErrServiceNotFound,
		info: ErrorInfo{
			Message: "The managed service unit is not installed on the target.",
			Action:  "Install the systemd unit (e.g. blog-app.service) on the host before deploying.",
		},
	},
	{
		err: ErrServiceStart,
		info: ErrorInfo{
			Message: "The service did not become active after restart.",
			Action:  "Inspect the attached journal excerpt or run 'journalctl -u <unit>' on the host.",
		},
	},
	{
		err: ErrSyncFailed,
		info: ErrorInfo{
			Message: "The application checkout could not be reset to the requested revision.",
			Action:  "Verify the revision exists on the remote and the app directory is a git checkout.",
		},
	},
	{
		err: ErrDependencyInstall,
		info: ErrorInfo{
			Message: "Installing application dependencies on the target failed.",
			Action:  "Check requirements.txt and the package index reachability from the host.",
		},
	},
	{
		err: ErrConfigureFailed,
		info: ErrorInfo{
			Message: "Writing the application environment on the target failed.",
			Action:  "Check write permissions on the application directory.",
		},
	},
	{
		err: ErrHealthCheckFailed,
		info: ErrorInfo{
			Message: "Health verification failed: not every endpoint was healthy in the same round.",
			Action:  "Review the last round diagnostics and the service log excerpt.",
		},
	},

	// ===================
	// Publishing
	// ===================
	{
		err: ErrPublishExhausted,
		info: ErrorInfo{
			Message: "Artifact publication gave up after the maximum number of attempts.",
			Action:  "Re-run 'shipyard publish' for the same revision once the repository is quiet.",
		},
	},
	{
		err: ErrLockHeld,
		info: ErrorInfo{
			Message: "Another run on this machine is publishing to the same repository.",
			Action:  "Wait for the other run to finish and retry.",
		},
	},
	{
		err: ErrForeignConflict,
		info: ErrorInfo{
			Message: "A rebase conflict touched files outside the artifact directory.",
			Action:  "Resolve the conflicting commit in the shared repository manually.",
		},
	},

	// ===================
	// Configuration & input
	// ===================
	{
		err: ErrNoTargets,
		info: ErrorInfo{
			Message: "No deployment target is configured.",
			Action:  "Add a target under 'targets:' in .shipyard/config.yaml or pass --host.",
		},
	},
	{
		err: ErrUnknownTarget,
		info: ErrorInfo{
			Message: "The requested target is not defined in the configuration.",
			Action:  "Run 'shipyard deploy --help' and check the names under 'targets:'.",
		},
	},
	{
		err: ErrMissingSecret,
		info: ErrorInfo{
			Message: "A required secret is missing.",
			Action:  "Set SHIPYARD_APP_SECRET_KEY and SHIPYARD_APP_MONGO_URI in the pipeline environment.",
		},
	},
	{
		err: ErrInvalidRevision,
		info: ErrorInfo{
			Message: "The revision to deploy is missing or malformed.",
			Action:  "Pass a commit hash with --revision.",
		},
	},
	{
		err: ErrInvalidOutputFormat,
		info: ErrorInfo{
			Message: "Invalid output format.",
			Action:  "Use --output text or --output json.",
		},
	},
	{
		err: ErrConfigNotFound,
		info: ErrorInfo{
			Message: "The configuration file was not found.",
			Action:  "Run 'shipyard init' to create one.",
		},
	},
	{
		err: ErrConfigExists,
		info: ErrorInfo{
			Message: "A configuration file already exists.",
			Action:  "Re-run with --force to overwrite it. The old file is kept as config.yaml.backup.",
		},
	},

	// ===================
	// Cancellation (no action)
	// ===================
	{
		err: ErrOperationCanceled,
		info: ErrorInfo{
			Message: "Operation canceled.",
		},
	},
}

// errorInfoMap provides O(1) lookup for direct sentinel error matches.
//
//nolint:gochecknoglobals // Pre-built mapping for O(1) lookup performance
var errorInfoMap = buildErrorInfoMap()

// buildErrorInfoMap creates a map from the errorInfoEntries slice.
func buildErrorInfoMap() map[error]ErrorInfo {
	m := make(map[error]ErrorInfo, len(errorInfoEntries))
	for _, entry := range errorInfoEntries {
		m[entry.err] = entry.info
	}
	return m
}

// getErrorInfo looks up the ErrorInfo for a given error.
// It first tries direct map lookup for unwrapped sentinel errors,
// then falls back to errors.Is() traversal for wrapped errors.
func getErrorInfo(err error) ErrorInfo {
	if info, ok := errorInfoMap[err]; ok {
		return info
	}

	for _, entry := range errorInfoEntries {
		if errors.Is(err, entry.err) {
			return entry.info
		}
	}

	return ErrorInfo{Message: err.Error()}
}

// UserMessage returns a user-friendly message for common errors.
// For unrecognized errors, it returns the error's original message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	return getErrorInfo(err).Message
}

// Actionable returns a user-friendly error message along with a suggested
// action. The action is empty when there is nothing useful to suggest.
func Actionable(err error) (message, action string) {
	if err == nil {
		return "", ""
	}
	info := getErrorInfo(err)
	return info.Message, info.Action
}
