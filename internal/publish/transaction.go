package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mrz1836/shipyard/internal/constants"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/git"
)

// transaction holds the state shared by the attempts of one Publish call.
type transaction struct {
	publisher *Publisher
	runner    git.Runner
	files     []string
	ownedDir  string
	message   string
	upstream  string
}

// attempt runs one fetch/rebase/push cycle and returns the pushed commit.
func (tx *transaction) attempt(ctx context.Context, attempt int) (string, error) {
	p := tx.publisher
	log := p.logger.With().Int("attempt", attempt).Logger()

	if inProgress, err := tx.runner.RebaseInProgress(ctx); err != nil {
		return "", err
	} else if inProgress {
		log.Warn().Msg("aborting leftover rebase")
		if err := tx.runner.RebaseAbort(ctx); err != nil {
			return "", err
		}
	}

	if err := tx.commitOwned(ctx); err != nil {
		return "", err
	}

	if err := tx.runner.Fetch(ctx, p.cfg.Remote); err != nil {
		return "", err
	}

	if err := tx.rebase(ctx); err != nil {
		if errors.Is(err, shipyarderrors.ErrForeignConflict) {
			log.Warn().Err(err).Msg("rebuilding publish commit on remote tip")
			if rebuildErr := tx.rebuild(ctx); rebuildErr != nil {
				return "", rebuildErr
			}
		}
		return "", err
	}

	if err := tx.runner.Push(ctx, p.cfg.Remote, p.cfg.Branch); err != nil {
		log.Warn().Err(err).Msg("push failed")
		return "", err
	}

	return tx.runner.HeadCommit(ctx)
}

// rebase rebases onto the upstream, resolving owned-path conflicts with the
// local side. A conflict touching any other path, or one git reports without
// naming a path, aborts the rebase.
func (tx *transaction) rebase(ctx context.Context) error {
	err := tx.runner.Rebase(ctx, tx.upstream)
	for i := 0; errors.Is(err, shipyarderrors.ErrRebaseConflict); i++ {
		if i >= constants.MaxRebaseContinues {
			_ = tx.runner.RebaseAbort(ctx)
			return fmt.Errorf("gave up after %d rebase steps: %w", i, shipyarderrors.ErrRebaseConflict)
		}

		conflicts, listErr := tx.runner.ConflictedFiles(ctx)
		if listErr != nil {
			_ = tx.runner.RebaseAbort(ctx)
			return listErr
		}
		if !isOwned(conflicts, tx.ownedDir) {
			if abortErr := tx.runner.RebaseAbort(ctx); abortErr != nil {
				return abortErr
			}
			return fmt.Errorf("%v: %w", conflicts, shipyarderrors.ErrForeignConflict)
		}

		tx.publisher.logger.Info().
			Strs("paths", conflicts).
			Msg("resolving owned-path conflict with local files")

		if resolveErr := tx.runner.CheckoutTheirs(ctx, conflicts); resolveErr != nil {
			_ = tx.runner.RebaseAbort(ctx)
			return resolveErr
		}
		if addErr := tx.runner.Add(ctx, conflicts); addErr != nil {
			_ = tx.runner.RebaseAbort(ctx)
			return addErr
		}
		err = tx.runner.RebaseContinue(ctx)
	}
	return err
}

// rebuild discards local commits, resets to the fetched upstream and
// re-applies the owned files as a single new commit.
func (tx *transaction) rebuild(ctx context.Context) error {
	if err := tx.runner.ResetHard(ctx, tx.upstream); err != nil {
		return err
	}
	return tx.commitOwned(ctx)
}

// commitOwned copies the files into the owned directory and commits them when
// they differ from HEAD.
func (tx *transaction) commitOwned(ctx context.Context) error {
	dest := filepath.Join(tx.publisher.cfg.RepoDir, filepath.FromSlash(tx.ownedDir))
	for _, src := range tx.files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyPath(src, filepath.Join(dest, filepath.Base(src))); err != nil {
			return fmt.Errorf("stage %s: %w", src, err)
		}
	}

	if err := tx.runner.Add(ctx, []string{tx.ownedDir}); err != nil {
		return err
	}
	staged, err := tx.runner.HasStagedChanges(ctx)
	if err != nil {
		return err
	}
	if !staged {
		return nil
	}
	return tx.runner.Commit(ctx, tx.message)
}

// copyPath copies a file or directory tree from src to dst.
func copyPath(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst)
	}
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o750)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	in, err := os.Open(src) //#nosec G304 -- publish inputs come from the build
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644) //#nosec G302 G304 -- committed artifact
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
