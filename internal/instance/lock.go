// Package instance guarantees that only one dropsminer process runs at a time.
//
// The guard is an exclusive, non-blocking OS file lock on a fixed path. A
// second process that fails to take the lock exits immediately; it never waits
// or retries. The lock file itself is left on disk between runs, only the
// lock on it matters.
package instance

import (
	"fmt"
	"os"
	"sync"
)

// ///////////////////////////////////////////////
// Lock
// ///////////////////////////////////////////////

// Lock represents exclusive ownership of the instance lock. It is released
// exactly once by [Lock.Release], no matter how many times that is called.
type Lock struct {
	// f keeps the locked file open for the lifetime of the process.
	f *os.File
	// once guards the unlock-and-close sequence.
	once sync.Once
	// err records the outcome of the first release.
	err error
}

// Acquire tries to take the instance lock at path, creating the file if
// needed. ok is false when another live process already holds the lock; err
// is reserved for failures to open the file or unexpected lock errors.
func Acquire(path string) (l *Lock, ok bool, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, false, fmt.Errorf("open lock file: %w", err)
	}
	locked, err := tryLock(f)
	if err != nil || !locked {
		f.Close()
		return nil, false, err
	}
	return &Lock{f: f}, true, nil
}

// Path returns the file name of the held lock.
func (l *Lock) Path() string {
	if l == nil || l.f == nil {
		return ""
	}
	return l.f.Name()
}

// Release unlocks and closes the lock file. It is safe to call on a nil Lock,
// more than once, and from deferred code running while a panic unwinds.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	l.once.Do(func() {
		unlockErr := unlockFile(l.f)
		closeErr := l.f.Close()
		if unlockErr != nil {
			l.err = unlockErr
			return
		}
		if closeErr != nil {
			l.err = fmt.Errorf("close lock file: %w", closeErr)
		}
	})
	return l.err
}
