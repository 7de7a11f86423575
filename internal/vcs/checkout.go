// Package vcs inspects the version control state of a source tree.
package vcs

import (
	"os"
	"path/filepath"
)

// marker is the directory whose presence identifies a git working tree.
const marker = ".git"

// IsCheckout reports whether dir is the root of a git working tree.
func IsCheckout(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, marker))
	return err == nil
}
