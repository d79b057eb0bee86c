// This file removes git lock files left behind by crashed publish runs.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLockStalenessThreshold is the age after which a git lock file is
// considered abandoned. Normal git operations finish in seconds.
const DefaultLockStalenessThreshold = 60 * time.Second

// ErrLockNotStale indicates a lock file is not old enough to be removed.
var ErrLockNotStale = errors.New("lock file is not stale")

// ErrInvalidGitdirFormat indicates a .git file has an invalid format.
var ErrInvalidGitdirFormat = errors.New("invalid gitdir file format")

// resolveGitDir follows a .git file to the real git directory.
func resolveGitDir(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return path, nil
	}

	content, err := os.ReadFile(path) //#nosec G304 -- path is the repository's .git entry
	if err != nil {
		return "", err
	}

	line := strings.TrimSpace(string(content))
	if gitdir, ok := strings.CutPrefix(line, "gitdir: "); ok {
		return gitdir, nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidGitdirFormat, path)
}

// DetectStaleLockFile reports whether lockPath exists and is older than threshold.
func DetectStaleLockFile(lockPath string, threshold time.Duration) (bool, error) {
	info, err := os.Stat(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat lock file %s: %w", lockPath, err)
	}
	return time.Since(info.ModTime()) > threshold, nil
}

// RemoveStaleLockFile removes lockPath when it is older than threshold.
// A missing file is not an error; a fresh one returns ErrLockNotStale.
func RemoveStaleLockFile(ctx context.Context, lockPath string, threshold time.Duration, logger zerolog.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat lock file %s: %w", lockPath, err)
	}

	age := time.Since(info.ModTime())
	if age <= threshold {
		return fmt.Errorf("%w: %s (age: %s, threshold: %s)", ErrLockNotStale, lockPath, age, threshold)
	}

	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale lock file %s: %w", lockPath, err)
	}

	logger.Warn().
		Str("path", lockPath).
		Dur("age", age).
		Msg("removed stale git lock file")
	return nil
}

// CleanupStaleLockFiles removes stale index.lock and branch ref locks under gitDir.
// Errors for individual files are logged and the last one is returned.
func CleanupStaleLockFiles(ctx context.Context, gitDir string, threshold time.Duration, logger zerolog.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	resolvedDir, err := resolveGitDir(gitDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to resolve git directory %s: %w", gitDir, err)
	}

	lockPaths := []string{filepath.Join(resolvedDir, "index.lock")}

	refsHeadsDir := filepath.Join(resolvedDir, "refs", "heads")
	if entries, readErr := os.ReadDir(refsHeadsDir); readErr == nil {
		for _, entry := range entries {
			if !entry.IsDir() && filepath.Ext(entry.Name()) == ".lock" {
				lockPaths = append(lockPaths, filepath.Join(refsHeadsDir, entry.Name()))
			}
		}
	}

	var lastErr error
	for _, lockPath := range lockPaths {
		if err := RemoveStaleLockFile(ctx, lockPath, threshold, logger); err != nil {
			logger.Debug().
				Err(err).
				Str("path", lockPath).
				Msg("lock file left in place")
			lastErr = err
		}
	}
	return lastErr
}
