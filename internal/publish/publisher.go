// Package publish persists built artifacts into a shared git repository.
//
// Each publisher owns one directory per revision (<artifacts_dir>/<shortrev>/).
// Publication is a transactional append: commit the owned files locally,
// fetch, rebase onto the remote branch, push. Conflicts restricted to owned
// paths are resolved in favor of the local files; conflicts anywhere else
// abort the rebase, rebuild the commit on the fresh remote tip and retry the
// attempt from a new fetch. The whole procedure is bounded by MaxAttempts.
package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mrz1836/shipyard/internal/constants"
	"github.com/mrz1836/shipyard/internal/ctxutil"
	"github.com/mrz1836/shipyard/internal/domain"
	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
	"github.com/mrz1836/shipyard/internal/flock"
	"github.com/mrz1836/shipyard/internal/git"
	"github.com/mrz1836/shipyard/internal/retry"
)

// Config configures a Publisher.
type Config struct {
	// RepoDir is the local clone of the shared repository.
	RepoDir string
	// RepoURL is cloned into RepoDir when the clone does not exist yet.
	RepoURL string
	// Remote and Branch name the push destination.
	Remote string
	Branch string
	// ArtifactsDir is the repository-relative parent of the owned directories.
	ArtifactsDir string
	// MaxAttempts bounds the number of full fetch/rebase/push attempts.
	MaxAttempts int
	// Delay is the fixed wait between attempts.
	Delay time.Duration
}

func (c *Config) applyDefaults() {
	if c.Remote == "" {
		c.Remote = constants.DefaultPublishRemote
	}
	if c.Branch == "" {
		c.Branch = constants.DefaultPublishBranch
	}
	if c.ArtifactsDir == "" {
		c.ArtifactsDir = constants.ArtifactsDir
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = constants.DefaultPublishAttempts
	}
	if c.Delay <= 0 {
		c.Delay = constants.DefaultPublishDelay
	}
}

// RunnerFactory opens a git.Runner on a directory.
type RunnerFactory func(ctx context.Context, dir string) (git.Runner, error)

// Publisher writes artifacts into the shared repository.
type Publisher struct {
	cfg       Config
	newRunner RunnerFactory
	sleep     ctxutil.SleepFunc
	onAttempt func(attempt int, err error)
	logger    zerolog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithRunnerFactory replaces how the git runner is created.
func WithRunnerFactory(f RunnerFactory) Option {
	return func(p *Publisher) {
		p.newRunner = f
	}
}

// WithSleep replaces the context-aware sleep between attempts.
func WithSleep(sleep ctxutil.SleepFunc) Option {
	return func(p *Publisher) {
		p.sleep = sleep
	}
}

// WithAttemptHook is called after every attempt with its error (nil on success).
func WithAttemptHook(hook func(attempt int, err error)) Option {
	return func(p *Publisher) {
		p.onAttempt = hook
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// New creates a Publisher.
func New(cfg Config, opts ...Option) *Publisher {
	cfg.applyDefaults()
	p := &Publisher{
		cfg: cfg,
		newRunner: func(ctx context.Context, dir string) (git.Runner, error) {
			return git.NewRunner(ctx, dir)
		},
		sleep:  ctxutil.Sleep,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// OwnedDir returns the repository-relative directory owned for m.
func (p *Publisher) OwnedDir(m *domain.ArtifactManifest) string {
	return path.Join(filepath.ToSlash(p.cfg.ArtifactsDir), m.ShortRevision())
}

// Publish copies files into the owned directory for m and appends them to the
// shared branch. The returned result is always non-nil. Exhausted retries
// return an error wrapping ErrPublishExhausted.
func (p *Publisher) Publish(ctx context.Context, files []string, m *domain.ArtifactManifest) (*domain.PublishResult, error) {
	result := &domain.PublishResult{}
	fail := func(err error) (*domain.PublishResult, error) {
		result.Err = err
		result.Error = err.Error()
		return result, err
	}

	if err := ctxutil.Canceled(ctx); err != nil {
		return fail(err)
	}
	if p.cfg.RepoDir == "" {
		return fail(fmt.Errorf("publish repository: %w", shipyarderrors.ErrEmptyValue))
	}

	if err := p.ensureClone(ctx); err != nil {
		return fail(err)
	}

	lock, err := flock.Acquire(filepath.Join(p.cfg.RepoDir, ".git", constants.LockFileName))
	if err != nil {
		return fail(err)
	}
	defer func() { _ = lock.Release() }()

	if err := git.CleanupStaleLockFiles(ctx, filepath.Join(p.cfg.RepoDir, ".git"), git.DefaultLockStalenessThreshold, p.logger); err != nil && !errors.Is(err, git.ErrLockNotStale) {
		p.logger.Warn().Err(err).Msg("git lock cleanup failed")
	}

	runner, err := p.newRunner(ctx, p.cfg.RepoDir)
	if err != nil {
		return fail(err)
	}

	tx := &transaction{
		publisher: p,
		runner:    runner,
		files:     files,
		ownedDir:  p.OwnedDir(m),
		message:   fmt.Sprintf("publish %s %s (%s)", m.Name, m.Version, m.ShortRevision()),
		upstream:  p.cfg.Remote + "/" + p.cfg.Branch,
	}
	result.ArchivePath = path.Join(tx.ownedDir, m.ArchiveName())

	op := &retry.SimpleOperation[string]{
		AttemptFunc: func(ctx context.Context, attempt int) (string, bool, error) {
			commit, attemptErr := tx.attempt(ctx, attempt)
			if p.onAttempt != nil {
				p.onAttempt(attempt, attemptErr)
			}
			return commit, attemptErr == nil, attemptErr
		},
		ShouldRetryFunc: retryable,
		OnRetryWaitFunc: func(attempt int, delay time.Duration) {
			p.logger.Info().
				Int("next_attempt", attempt+1).
				Int("max_attempts", p.cfg.MaxAttempts).
				Dur("delay", delay).
				Msg("retrying publish")
		},
	}

	commit, attempts, err := retry.Execute(ctx, retry.Fixed(p.cfg.MaxAttempts, p.cfg.Delay), op, p.sleep)
	result.Attempts = attempts
	if err != nil {
		if ctx.Err() != nil {
			return fail(ctx.Err())
		}
		if retryable(err) {
			return fail(fmt.Errorf("after %d attempts: %w: %w", attempts, shipyarderrors.ErrPublishExhausted, err))
		}
		return fail(err)
	}

	result.Published = true
	result.Commit = commit
	p.logger.Info().
		Str("commit", domain.ShortRevision(commit)).
		Str("path", tx.ownedDir).
		Int("attempts", attempts).
		Msg("artifact published")
	return result, nil
}

func (p *Publisher) ensureClone(ctx context.Context) error {
	_, err := os.Stat(filepath.Join(p.cfg.RepoDir, ".git"))
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("inspect %s: %w", p.cfg.RepoDir, err)
	}
	if p.cfg.RepoURL == "" {
		return fmt.Errorf("%s: %w", p.cfg.RepoDir, shipyarderrors.ErrNotGitRepo)
	}

	p.logger.Info().
		Str("dir", p.cfg.RepoDir).
		Msg("cloning publish repository")
	if err := os.MkdirAll(filepath.Dir(p.cfg.RepoDir), 0o750); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(p.cfg.RepoDir), err)
	}
	return git.Clone(ctx, p.cfg.RepoURL, p.cfg.RepoDir, p.cfg.Branch)
}

// retryable reports whether a failed attempt should be retried from a fresh fetch.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, shipyarderrors.ErrForeignConflict) ||
		errors.Is(err, shipyarderrors.ErrPushRejected) ||
		errors.Is(err, shipyarderrors.ErrRebaseConflict) {
		return true
	}
	return errors.Is(err, shipyarderrors.ErrGitOperation) && git.ClassifyError(err.Error()) == git.ErrorTypeNetwork
}

// isOwned reports whether paths is non-empty and every path lies under ownedDir.
func isOwned(paths []string, ownedDir string) bool {
	if len(paths) == 0 {
		return false
	}
	prefix := strings.TrimSuffix(ownedDir, "/") + "/"
	for _, p := range paths {
		if !strings.HasPrefix(filepath.ToSlash(p), prefix) {
			return false
		}
	}
	return true
}
