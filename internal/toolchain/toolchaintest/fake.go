// Package toolchaintest provides a Runner that stands in for real
// compilers and archivers in tests.
package toolchaintest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goplus/ccbuild/internal/toolchain"
)

// Runner records commands and writes the output file each one would have
// produced. It is safe for concurrent use.
type Runner struct {
	// Fail, when set, is consulted before each command; a non-nil result is
	// returned without producing output.
	Fail func(toolchain.Command) error

	// Clock, when set, stamps every produced file. Tests use it to keep
	// produced files strictly newer than their inputs.
	Clock func() time.Time

	mu   sync.Mutex
	cmds []toolchain.Command
}

func (r *Runner) Run(ctx context.Context, c toolchain.Command) error {
	r.mu.Lock()
	r.cmds = append(r.cmds, c)
	r.mu.Unlock()
	if r.Fail != nil {
		if err := r.Fail(c); err != nil {
			return err
		}
	}
	out := Output(c)
	if out == "" {
		return nil
	}
	if err := os.WriteFile(out, []byte(c.String()), 0o644); err != nil {
		return err
	}
	if r.Clock != nil {
		mt := r.Clock()
		return os.Chtimes(out, mt, mt)
	}
	return nil
}

// Commands returns a copy of every command run so far.
func (r *Runner) Commands() []toolchain.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]toolchain.Command(nil), r.cmds...)
}

// Count returns how many commands ran whose tool base name is one of tools;
// with no tools it counts everything.
func (r *Runner) Count(tools ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.cmds {
		if len(tools) == 0 {
			n++
			continue
		}
		base := filepath.Base(c.Path)
		for _, t := range tools {
			if base == t {
				n++
				break
			}
		}
	}
	return n
}

// Reset forgets recorded commands.
func (r *Runner) Reset() {
	r.mu.Lock()
	r.cmds = nil
	r.mu.Unlock()
}

// Output returns the file c writes, or "" if it cannot be determined.
func Output(c toolchain.Command) string {
	switch strings.TrimSuffix(filepath.Base(c.Path), ".exe") {
	case "ar", "llvm-ar":
		if len(c.Args) > 1 {
			return c.Args[1]
		}
		return ""
	}
	for i, a := range c.Args {
		switch {
		case a == "-o":
			if i+1 < len(c.Args) {
				return c.Args[i+1]
			}
		case strings.HasPrefix(a, "/OUT:"):
			return a[len("/OUT:"):]
		case strings.HasPrefix(a, "/Fo"):
			return a[len("/Fo"):]
		case strings.HasPrefix(a, "-o"):
			return a[len("-o"):]
		}
	}
	return ""
}

// NewClock returns a clock that starts at start and advances one second per
// call, so every produced file is strictly newer than the previous one.
func NewClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	now := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}
