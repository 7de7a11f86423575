// Package audit verifies that every header and compilable source under the
// audited roots is declared in the manifest.
//
// The walk and the policy are separate: Collect gathers paths from any
// fs.FS, Check decides membership on a plain list.
package audit

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/goplus/ccbuild/internal/manifest"
)

// ErrUntracked is wrapped by every UntrackedError.
var ErrUntracked = errors.New("files not tracked by the manifest")

// UntrackedError lists every file found on disk but missing from the
// manifest, sorted.
type UntrackedError struct {
	Paths []string
}

func (e *UntrackedError) Error() string {
	return fmt.Sprintf("%s (%s): %s", ErrUntracked, manifestName, strings.Join(e.Paths, ", "))
}

func (e *UntrackedError) Unwrap() error { return ErrUntracked }

const manifestName = manifest.FileName

// Collect returns the slash-separated paths of all regular files under
// roots in fsys. Roots that do not exist are skipped.
func Collect(fsys fs.FS, roots []string) ([]string, error) {
	var out []string
	for _, root := range roots {
		err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == root && errors.Is(err, fs.ErrNotExist) {
					return fs.SkipDir
				}
				return err
			}
			if d.Type().IsRegular() {
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// class is how the audit policy treats a file extension.
type class int

const (
	exempt class = iota
	header
	source
)

func classify(p string) class {
	switch path.Ext(p) {
	case ".h", ".inl":
		return header
	case ".c", ".S", ".asm", ".pl":
		return source
	}
	return exempt
}

// Check returns an UntrackedError naming every header missing from the
// manifest's includes and every source missing from all of its libraries.
// The verdict does not depend on the order of paths.
func Check(paths []string, m *manifest.Manifest) error {
	includes := make(map[string]bool, len(m.Includes))
	for _, p := range m.Includes {
		includes[p] = true
	}
	sources := m.Sources()

	var untracked []string
	for _, p := range paths {
		switch classify(p) {
		case header:
			if !includes[p] {
				untracked = append(untracked, p)
			}
		case source:
			if !sources[p] {
				untracked = append(untracked, p)
			}
		}
	}
	if len(untracked) == 0 {
		return nil
	}
	sort.Strings(untracked)
	return &UntrackedError{Paths: slices.Compact(untracked)}
}

// Run collects files under the manifest's audit roots and checks them.
func Run(fsys fs.FS, m *manifest.Manifest) error {
	paths, err := Collect(fsys, m.AuditRoots)
	if err != nil {
		return err
	}
	return Check(paths, m)
}
