// Package errors provides centralized error handling for SHIPYARD.
//
// This package defines sentinel errors used for programmatic error categorization
// throughout the application. All error types can be checked using errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import "errors"

// Sentinel errors for error categorization.
// These allow callers to check error types with errors.Is().
// All errors use lowercase descriptions per Go conventions.
var (
	// ErrConnection indicates the SSH channel to a target could not be opened
	// (dial timeout, refused connection, or authentication failure). Fatal.
	ErrConnection = errors.New("remote connection failed")

	// ErrRemoteCommand indicates a remote script exited non-zero.
	ErrRemoteCommand = errors.New("remote command failed")

	// ErrServiceNotFound indicates the managed unit is not defined on the target. Fatal.
	ErrServiceNotFound = errors.New("service unit not found")

	// ErrServiceStart indicates a unit was not active after a (re)start.
	ErrServiceStart = errors.New("service failed to start")

	// ErrSyncFailed indicates the application checkout could not be reset to the revision.
	ErrSyncFailed = errors.New("code sync failed")

	// ErrDependencyInstall indicates dependency installation failed on the target. Fatal.
	ErrDependencyInstall = errors.New("dependency install failed")

	// ErrConfigureFailed indicates the environment file could not be written.
	ErrConfigureFailed = errors.New("target configuration failed")

	// ErrHealthCheckFailed indicates verification exhausted its rounds.
	ErrHealthCheckFailed = errors.New("health verification failed")

	// ErrPublishExhausted indicates every publish attempt failed. Never fatal to a deployment.
	ErrPublishExhausted = errors.New("artifact publish retries exhausted")

	// ErrRebaseConflict indicates a rebase stopped on conflicting changes.
	ErrRebaseConflict = errors.New("rebase has conflicts")

	// ErrForeignConflict indicates a rebase conflict touched paths the publisher does not own.
	ErrForeignConflict = errors.New("conflict outside owned paths")

	// ErrPushRejected indicates the remote rejected a push because it moved ahead.
	ErrPushRejected = errors.New("push rejected by remote")

	// ErrGitOperation indicates that a git command failed during execution.
	ErrGitOperation = errors.New("git operation failed")

	// ErrNotGitRepo indicates the path is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrLockHeld indicates another local run holds the publish repository lock.
	ErrLockHeld = errors.New("publish repository is locked")

	// ErrArchiveFailed indicates the artifact archive could not be written.
	ErrArchiveFailed = errors.New("artifact archive failed")

	// ErrCommandFailed indicates that a local command execution failed.
	ErrCommandFailed = errors.New("command failed")

	// ErrCommandTimeout indicates a local command exceeded its timeout.
	ErrCommandTimeout = errors.New("command timeout exceeded")

	// ErrWebhookFailed indicates the notification endpoint rejected the summary.
	ErrWebhookFailed = errors.New("webhook notification failed")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigNotFound indicates that the configuration file was not found.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalidTarget indicates an invalid target definition.
	ErrConfigInvalidTarget = errors.New("invalid target configuration")

	// ErrConfigInvalidHealth indicates an invalid health configuration value.
	ErrConfigInvalidHealth = errors.New("invalid health configuration")

	// ErrConfigInvalidPublish indicates an invalid publish configuration value.
	ErrConfigInvalidPublish = errors.New("invalid publish configuration")

	// ErrConfigInvalidDeploy indicates an invalid deploy configuration value.
	ErrConfigInvalidDeploy = errors.New("invalid deploy configuration")

	// ErrMissingSecret indicates a required secret (secret key, database URI) is empty.
	ErrMissingSecret = errors.New("required secret not provided")

	// ErrNoTargets indicates no deployment target was configured or selected.
	ErrNoTargets = errors.New("no deployment targets")

	// ErrUnknownTarget indicates a --target value matched no configured target.
	ErrUnknownTarget = errors.New("unknown target")

	// ErrInvalidRevision indicates the revision is empty or malformed.
	ErrInvalidRevision = errors.New("invalid revision")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrEmptyValue indicates that a required value was empty.
	ErrEmptyValue = errors.New("value cannot be empty")

	// ErrValueOutOfRange indicates that a value is outside the allowed range.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrConfigExists indicates init would overwrite an existing config file.
	ErrConfigExists = errors.New("config file already exists")

	// ErrDeploymentFailed is returned by the CLI when at least one target failed.
	ErrDeploymentFailed = errors.New("deployment failed")

	// ErrOperationCanceled indicates the run was interrupted.
	ErrOperationCanceled = errors.New("operation canceled by user")
)

// ExitCode2Error wraps an error to indicate exit code 2 should be used.
// It marks invalid user input as opposed to a failed deployment.
type ExitCode2Error struct {
	Err error
}

// NewExitCode2Error wraps an error to indicate exit code 2.
func NewExitCode2Error(err error) *ExitCode2Error {
	return &ExitCode2Error{Err: err}
}

// Error implements the error interface.
func (e *ExitCode2Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCode2Error) Unwrap() error {
	return e.Err
}

// IsExitCode2Error checks if an error should result in exit code 2.
func IsExitCode2Error(err error) bool {
	var e *ExitCode2Error
	return errors.As(err, &e)
}
