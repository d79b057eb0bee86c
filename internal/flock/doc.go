// Package flock provides cross-platform file locking utilities.
//
// The publisher holds an exclusive lock on a file inside its local clone of the
// shared repository so that two runs on one machine never rebase the same
// working tree at once.
//
// Usage:
//
//	lock, err := flock.Acquire(filepath.Join(repoDir, ".shipyard.lock"))
//	if err != nil {
//	    // another run holds the repository
//	}
//	defer lock.Release()
package flock
