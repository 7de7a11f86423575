package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/exec"
	"slices"
	"strings"
)

// ErrCommand is wrapped by every CommandError.
var ErrCommand = errors.New("toolchain command failed")

// CommandError reports a subprocess that could not be launched or exited
// with a non-zero status. ExitCode is -1 when the process never started.
type CommandError struct {
	Cmd      string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("%s: failed to launch %q: %v", ErrCommand, e.Cmd, e.Err)
	}
	return fmt.Sprintf("%s: %q exited with status %d", ErrCommand, e.Cmd, e.ExitCode)
}

func (e *CommandError) Unwrap() []error { return []error{ErrCommand, e.Err} }

// Command is a single tool invocation. Env entries override the inherited
// environment.
type Command struct {
	Path string
	Args []string
	Env  map[string]string

	Stdout io.Writer
	Stderr io.Writer
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Runner executes commands synchronously.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
}

// ExecRunner runs commands as subprocesses. Tool output goes to Output
// (os.Stderr when nil) unless the command sets its own writers; stdout of
// ccbuild itself is reserved for linker directives.
type ExecRunner struct {
	Output io.Writer
}

func (r ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	out := r.Output
	if out == nil {
		out = os.Stderr
	}
	cmd.Stdout, cmd.Stderr = out, out
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	}
	if c.Stderr != nil {
		cmd.Stderr = c.Stderr
	}
	if len(c.Env) > 0 {
		cmd.Env = mergeEnv(os.Environ(), c.Env)
	}
	err := cmd.Run()
	if err == nil {
		return nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return &CommandError{Cmd: c.String(), ExitCode: ee.ExitCode(), Err: err}
	}
	return &CommandError{Cmd: c.String(), ExitCode: -1, Err: err}
}

// mergeEnv drops base entries that override replaces and appends the
// overrides in key order.
func mergeEnv(base []string, override map[string]string) []string {
	out := make([]string, 0, len(base)+len(override))
	for _, kv := range base {
		k, _, _ := strings.Cut(kv, "=")
		if _, ok := override[k]; !ok {
			out = append(out, kv)
		}
	}
	for _, k := range slices.Sorted(maps.Keys(override)) {
		out = append(out, k+"="+override[k])
	}
	return out
}
