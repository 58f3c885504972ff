// Unix/Darwin instance locking using flock(2).
//
// flock locks belong to the open file description, so two opens of the same
// path conflict even inside one process. The kernel drops the lock when the
// descriptor is closed, which also covers crashes.

//go:build !windows

package instance

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ///////////////////////////////////////////////
// File Locking
// ///////////////////////////////////////////////

// tryLock takes an exclusive, non-blocking flock on f. It reports false
// without error when another holder is present (EWOULDBLOCK).
func tryLock(f *os.File) (bool, error) {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, unix.EWOULDBLOCK) {
		return false, nil
	}
	return false, fmt.Errorf("lock file %s: %w", f.Name(), err)
}

// unlockFile releases the flock held on f.
func unlockFile(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("unlock file %s: %w", f.Name(), err)
	}
	return nil
}
