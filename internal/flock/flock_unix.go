//go:build unix

package flock

import "golang.org/x/sys/unix"

// Exclusive takes an exclusive non-blocking flock(2) on fd.
// It fails immediately with EWOULDBLOCK when another descriptor holds the lock.
func Exclusive(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_EX|unix.LOCK_NB)
}

// Unlock releases the flock(2) held on fd.
func Unlock(fd uintptr) error {
	return unix.Flock(int(fd), unix.LOCK_UN)
}
