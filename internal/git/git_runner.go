// This file implements the CLIRunner which wraps git CLI commands.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mrz1836/shipyard/internal/ctxutil"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
)

// CLIRunner implements Runner using the git CLI.
type CLIRunner struct {
	workDir string
}

// Compile-time interface check.
var _ Runner = (*CLIRunner)(nil)

// NewRunner creates a CLIRunner for workDir.
// Returns an error if the directory is not a git repository.
func NewRunner(ctx context.Context, workDir string) (*CLIRunner, error) {
	if workDir == "" {
		return nil, fmt.Errorf("work directory cannot be empty: %w", shipyarderrors.ErrEmptyValue)
	}

	r := &CLIRunner{workDir: workDir}

	if _, err := r.runGitCommand(ctx, "rev-parse", "--git-dir"); err != nil {
		return nil, fmt.Errorf("%w: %w", shipyarderrors.ErrNotGitRepo, err)
	}

	return r, nil
}

// WorkDir returns the repository directory.
func (r *CLIRunner) WorkDir() string {
	return r.workDir
}

// Fetch downloads objects and refs from a remote repository.
func (r *CLIRunner) Fetch(ctx context.Context, remote string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if remote == "" {
		remote = "origin"
	}

	if _, err := r.runGitCommand(ctx, "fetch", "--quiet", remote); err != nil {
		return fmt.Errorf("failed to fetch from %s: %w", remote, err)
	}
	return nil
}

// Rebase replays commits on top of onto.
func (r *CLIRunner) Rebase(ctx context.Context, onto string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if onto == "" {
		return fmt.Errorf("rebase target cannot be empty: %w", shipyarderrors.ErrEmptyValue)
	}

	if _, err := r.runGitCommand(ctx, "rebase", onto); err != nil {
		if isConflict(err) {
			return fmt.Errorf("rebase onto %s has conflicts: %w", onto, shipyarderrors.ErrRebaseConflict)
		}
		return fmt.Errorf("failed to rebase onto %s: %w", onto, err)
	}
	return nil
}

// RebaseContinue resumes a stopped rebase. A commit whose changes are
// already upstream after resolution is skipped.
func (r *CLIRunner) RebaseContinue(ctx context.Context) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	_, err := r.runGitCommand(ctx, "-c", "core.editor=true", "rebase", "--continue")
	if err == nil {
		return nil
	}
	if isEmptyCommit(err) {
		_, err = r.runGitCommand(ctx, "rebase", "--skip")
		if err == nil {
			return nil
		}
	}
	if isConflict(err) {
		return fmt.Errorf("rebase stopped again: %w", shipyarderrors.ErrRebaseConflict)
	}
	return fmt.Errorf("failed to continue rebase: %w", err)
}

// RebaseAbort cancels an in-progress rebase operation.
func (r *CLIRunner) RebaseAbort(ctx context.Context) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if _, err := r.runGitCommand(ctx, "rebase", "--abort"); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "no rebase in progress") {
			return nil
		}
		return fmt.Errorf("failed to abort rebase: %w", err)
	}
	return nil
}

// RebaseInProgress reports whether a rebase is stopped in the working tree.
func (r *CLIRunner) RebaseInProgress(ctx context.Context) (bool, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return false, err
	}

	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		p, err := r.runGitCommand(ctx, "rev-parse", "--git-path", dir)
		if err != nil {
			return false, fmt.Errorf("failed to locate %s: %w", dir, err)
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(r.workDir, p)
		}
		_, statErr := os.Stat(p)
		if statErr == nil {
			return true, nil
		}
		if !errors.Is(statErr, os.ErrNotExist) {
			return false, statErr
		}
	}
	return false, nil
}

// ConflictedFiles lists unmerged paths relative to the repository root.
func (r *CLIRunner) ConflictedFiles(ctx context.Context) ([]string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return nil, err
	}

	output, err := r.runGitCommand(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}
	return splitLines(output), nil
}

// CheckoutTheirs takes the replayed commit's version of paths.
func (r *CLIRunner) CheckoutTheirs(ctx context.Context, paths []string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}

	args := append([]string{"checkout", "--theirs", "--"}, paths...)
	if _, err := r.runGitCommand(ctx, args...); err != nil {
		return fmt.Errorf("failed to check out local side: %w", err)
	}
	return nil
}

// Add stages paths for commit.
func (r *CLIRunner) Add(ctx context.Context, paths []string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if len(paths) == 0 {
		return fmt.Errorf("no paths to add: %w", shipyarderrors.ErrEmptyValue)
	}
	args := append([]string{"add", "--"}, paths...)

	if _, err := r.runGitCommand(ctx, args...); err != nil {
		return fmt.Errorf("failed to add files: %w", err)
	}
	return nil
}

// HasStagedChanges reports whether the index differs from HEAD.
func (r *CLIRunner) HasStagedChanges(ctx context.Context) (bool, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return false, err
	}

	output, err := r.runGitCommand(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return false, fmt.Errorf("failed to diff index: %w", err)
	}
	return output != "", nil
}

// Commit creates a commit with the given message.
func (r *CLIRunner) Commit(ctx context.Context, message string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if message == "" {
		return fmt.Errorf("commit message cannot be empty: %w", shipyarderrors.ErrEmptyValue)
	}

	if _, err := r.runGitCommand(ctx, "commit", "--quiet", "-m", message, "--cleanup=strip"); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Push pushes branch to remote.
func (r *CLIRunner) Push(ctx context.Context, remote, branch string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if branch == "" {
		return fmt.Errorf("branch name cannot be empty: %w", shipyarderrors.ErrEmptyValue)
	}

	if _, err := r.runGitCommand(ctx, "push", remote, "HEAD:refs/heads/"+branch); err != nil {
		if ClassifyError(err.Error()) == ErrorTypeNonFastForward {
			return fmt.Errorf("push to %s/%s rejected: %w: %w", remote, branch, shipyarderrors.ErrPushRejected, err)
		}
		return fmt.Errorf("failed to push: %w", err)
	}
	return nil
}

// ResetHard moves HEAD, index and working tree to ref.
func (r *CLIRunner) ResetHard(ctx context.Context, ref string) error {
	if err := ctxutil.Canceled(ctx); err != nil {
		return err
	}

	if _, err := r.runGitCommand(ctx, "reset", "--hard", "--quiet", ref); err != nil {
		return fmt.Errorf("failed to reset to %s: %w", ref, err)
	}
	return nil
}

// HeadCommit returns the full hash of HEAD.
func (r *CLIRunner) HeadCommit(ctx context.Context) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}

	output, err := r.runGitCommand(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}
	return output, nil
}

// ResolveRevision returns the full hash of the commit rev names.
// Branches, tags and abbreviated hashes are accepted.
func (r *CLIRunner) ResolveRevision(ctx context.Context, rev string) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}

	if rev == "" || strings.HasPrefix(rev, "-") {
		return "", fmt.Errorf("%q: %w", rev, shipyarderrors.ErrInvalidRevision)
	}
	output, err := r.runGitCommand(ctx, "rev-parse", "--verify", "--quiet", rev+"^{commit}")
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("%q does not name a commit: %w: %w", rev, shipyarderrors.ErrInvalidRevision, err)
	}
	return output, nil
}

// CurrentBranch returns the name of the currently checked out branch.
func (r *CLIRunner) CurrentBranch(ctx context.Context) (string, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return "", err
	}

	output, err := r.runGitCommand(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to get current branch: %w", err)
	}
	if output == "HEAD" {
		return "", fmt.Errorf("detached HEAD: %w", shipyarderrors.ErrGitOperation)
	}
	return output, nil
}

// CommitCount returns the number of commits reachable from ref.
func (r *CLIRunner) CommitCount(ctx context.Context, ref string) (int, error) {
	if err := ctxutil.Canceled(ctx); err != nil {
		return 0, err
	}

	if ref == "" {
		ref = "HEAD"
	}
	output, err := r.runGitCommand(ctx, "rev-list", "--count", ref)
	if err != nil {
		return 0, fmt.Errorf("failed to count commits: %w", err)
	}
	n, err := strconv.Atoi(output)
	if err != nil {
		return 0, fmt.Errorf("unexpected rev-list output %q: %w", output, shipyarderrors.ErrGitOperation)
	}
	return n, nil
}

// runGitCommand runs git in the runner's working directory.
func (r *CLIRunner) runGitCommand(ctx context.Context, args ...string) (string, error) {
	return RunCommand(ctx, r.workDir, args...)
}

func isConflict(err error) bool {
	return conflictPatterns.Matches(err.Error())
}

func isEmptyCommit(err error) bool {
	return emptyCommitPatterns.Matches(err.Error())
}

func splitLines(output string) []string {
	if output == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
