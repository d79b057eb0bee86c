package flock

import (
	"fmt"
	"os"

	shipyarderrors "github.com/mrz1836/shipyard/internal/errors"
)

// Lock is an acquired exclusive lock on a file.
type Lock struct {
	file *os.File
}

// Acquire opens (creating if needed) the file at path and takes an exclusive,
// non-blocking lock on it. Returns ErrLockHeld when another holder exists.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) //#nosec G304 -- path is built from configuration
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := Exclusive(f.Fd()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, shipyarderrors.ErrLockHeld)
	}

	return &Lock{file: f}, nil
}

// Release unlocks and closes the lock file. Safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	unlockErr := Unlock(l.file.Fd())
	closeErr := l.file.Close()
	l.file = nil
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}
