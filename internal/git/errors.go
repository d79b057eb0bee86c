// This file provides error sentinel re-exports from internal/errors.
package git

import (
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
)

// ErrGitOperation is re-exported from internal/errors for convenience.
var ErrGitOperation = shipyarderrors.ErrGitOperation

// ErrNotGitRepo is returned when the path is not a git repository.
var ErrNotGitRepo = shipyarderrors.ErrNotGitRepo

// ErrRebaseConflict is returned when a rebase stops on conflicts.
var ErrRebaseConflict = shipyarderrors.ErrRebaseConflict

// ErrPushRejected is returned when the remote refuses a non-fast-forward push.
var ErrPushRejected = shipyarderrors.ErrPushRejected
