// Package compile turns one compilation unit into one object file.
package compile

import (
	"context"
	"os"
	"path/filepath"

	"github.com/goplus/ccbuild/internal/flags"
	"github.com/goplus/ccbuild/internal/staleness"
	"github.com/goplus/ccbuild/internal/target"
	"github.com/goplus/ccbuild/internal/toolchain"
	"github.com/goplus/ccbuild/internal/unit"
	"github.com/qiniu/x/log"
)

// Invoker compiles units for a single target. All fields are fixed for the
// duration of a run; Compile is safe for concurrent use as long as each
// unit's object path is distinct.
type Invoker struct {
	Target            target.Target
	Tools             toolchain.Tools
	Compiler          toolchain.Compiler
	IncludeDir        string
	OptLevel          string
	WarningsAreErrors bool
	NoStdlibIncDefine string

	Checker staleness.Checker
	Runner  toolchain.Runner
}

// Compile returns the object path for u, running the compiler only when the
// object is stale. Pre-built objects are returned unchanged.
func (iv *Invoker) Compile(ctx context.Context, u unit.Unit) (obj string, ran bool, err error) {
	if u.Kind == unit.Object {
		return u.Object, false, nil
	}
	stale, err := iv.Checker.NeedsRebuild(u.Source, u.Object)
	if err != nil {
		return "", false, err
	}
	if !stale {
		log.Debugf("up to date: %s", u.Object)
		return u.Object, false, nil
	}
	cmd, err := iv.Command(u)
	if err != nil {
		return "", false, err
	}
	if err := os.MkdirAll(filepath.Dir(u.Object), 0o755); err != nil {
		return "", false, err
	}
	log.Debugf("compile: %s", cmd)
	if err := iv.Runner.Run(ctx, cmd); err != nil {
		return "", false, err
	}
	if err := iv.Checker.Done(u.Object, u.Source); err != nil {
		return "", false, err
	}
	return u.Object, true, nil
}

// Command builds the tool invocation for u without running it.
func (iv *Invoker) Command(u unit.Unit) (toolchain.Command, error) {
	if u.Kind == unit.PlatformAssembly && iv.Target.OS == target.Windows {
		return iv.nasm(u), nil
	}
	fl, err := flags.Compile(flags.Options{
		Target:            iv.Target,
		Kind:              u.Kind,
		Path:              u.Source,
		WarningsAreErrors: iv.WarningsAreErrors,
		OptLevel:          iv.OptLevel,
		Compiler:          iv.Compiler,
		NoStdlibIncDefine: iv.NoStdlibIncDefine,
	})
	if err != nil {
		return toolchain.Command{}, err
	}
	args := make([]string, 0, len(fl)+4)
	if iv.IncludeDir != "" {
		args = append(args, "-I"+iv.IncludeDir)
	}
	args = append(args, fl...)
	args = append(args, "-c", iv.Target.ObjFlag+u.Object, u.Source)
	return toolchain.Command{Path: iv.Tools.CC, Args: args}, nil
}

func (iv *Invoker) nasm(u unit.Unit) toolchain.Command {
	format := "win64"
	if iv.Target.Arch == "x86" {
		format = "win32"
	}
	var args []string
	args = append(args, "-o", u.Object, "-f", format, "-Xgnu", "-gcv8")
	if iv.IncludeDir != "" {
		args = append(args, "-i", iv.IncludeDir+"/")
	}
	args = append(args, u.Source)
	return toolchain.Command{Path: iv.Tools.NASM, Args: args}
}
