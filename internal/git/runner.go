// This file defines the Runner interface for git CLI operations.
package git

import "context"

// Runner defines the git operations the publisher needs.
// All operations run in the runner's working directory.
//
// During a rebase git swaps the usual meaning of sides: "ours" is the
// upstream being rebased onto and "theirs" is the local commit being replayed.
type Runner interface {
	// Fetch downloads objects and refs from remote.
	Fetch(ctx context.Context, remote string) error

	// Rebase replays local commits onto onto. Returns ErrRebaseConflict when it stops on conflicts.
	Rebase(ctx context.Context, onto string) error

	// RebaseContinue resumes a stopped rebase. Returns ErrRebaseConflict when the
	// next commit conflicts as well.
	RebaseContinue(ctx context.Context) error

	// RebaseAbort cancels an in-progress rebase. It is a no-op when none is running.
	RebaseAbort(ctx context.Context) error

	// RebaseInProgress reports whether a rebase is stopped in the working tree.
	RebaseInProgress(ctx context.Context) (bool, error)

	// ConflictedFiles lists unmerged paths.
	ConflictedFiles(ctx context.Context) ([]string, error)

	// CheckoutTheirs takes the replayed commit's version of paths during a rebase.
	CheckoutTheirs(ctx context.Context, paths []string) error

	// Add stages paths. An empty list is rejected.
	Add(ctx context.Context, paths []string) error

	// HasStagedChanges reports whether the index differs from HEAD.
	HasStagedChanges(ctx context.Context) (bool, error)

	// Commit creates a commit with message.
	Commit(ctx context.Context, message string) error

	// Push pushes branch to remote. Returns ErrPushRejected on non-fast-forward.
	Push(ctx context.Context, remote, branch string) error

	// ResetHard moves HEAD, index and working tree to ref.
	ResetHard(ctx context.Context, ref string) error

	// HeadCommit returns the full hash of HEAD.
	HeadCommit(ctx context.Context) (string, error)

	// CurrentBranch returns the checked out branch name.
	CurrentBranch(ctx context.Context) (string, error)

	// CommitCount returns the number of commits reachable from ref.
	CommitCount(ctx context.Context, ref string) (int, error)
}
