//go:build !unix && !windows

package lockedfile

import "os"

// Platforms without advisory locks (js, wasip1, plan9) run unlocked.
func lock(*os.File) error   { return nil }
func unlock(*os.File) error { return nil }
