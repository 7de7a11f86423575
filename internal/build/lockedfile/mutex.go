// Package lockedfile provides an inter-process mutex backed by an
// advisory lock on a file.
package lockedfile

import (
	"fmt"
	"os"
)

// Mutex is a mutual-exclusion lock held on the file at Path. Two ccbuild
// processes sharing an output directory serialize on it.
type Mutex struct {
	Path string
}

// MutexAt returns a Mutex for the lock file at path.
func MutexAt(path string) *Mutex {
	if path == "" {
		panic("lockedfile.MutexAt: empty path")
	}
	return &Mutex{Path: path}
}

// Lock blocks until the lock is held and returns the function that
// releases it.
func (mu *Mutex) Lock() (release func(), err error) {
	f, err := os.OpenFile(mu.Path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	if err := lock(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", mu.Path, err)
	}
	return func() {
		unlock(f)
		f.Close()
	}, nil
}
