// Package build drives one orchestration run: it builds every declared
// library for the target and emits the directives that tell the outer
// linker where the archives are.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goplus/ccbuild/internal/build/lockedfile"
	"github.com/goplus/ccbuild/internal/compile"
	"github.com/goplus/ccbuild/internal/flags"
	"github.com/goplus/ccbuild/internal/library"
	"github.com/goplus/ccbuild/internal/manifest"
	"github.com/goplus/ccbuild/internal/staleness"
	"github.com/goplus/ccbuild/internal/target"
	"github.com/goplus/ccbuild/internal/toolchain"
	"github.com/qiniu/x/log"
)

// Options configures a Builder. Everything a run depends on is carried here
// explicitly; nothing is read from the process environment later.
type Options struct {
	Target   target.Target
	Manifest *manifest.Manifest

	RootDir string // project root, manifest paths are relative to it
	OutDir  string // absolute output directory

	OptLevel string

	// WasmFeature enables native compilation for wasm32.
	WasmFeature bool

	Tools  toolchain.Tools
	Runner toolchain.Runner

	// Jobs bounds concurrent compilations within a library.
	Jobs int

	// ContentHash replaces modification time staleness with the
	// (digest, output) record kept in the output directory.
	ContentHash bool

	// Stdout receives directives as they are produced.
	Stdout io.Writer
}

// Builder runs orchestrations.
type Builder struct {
	opts Options
}

// Result summarizes one run.
type Result struct {
	// Skipped is set when the target is not built natively.
	Skipped    bool
	Libraries  []*library.Result
	Directives []Directive
}

// NewBuilder validates opts and fills defaults.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Manifest == nil {
		return nil, errors.New("build: no manifest")
	}
	if opts.OutDir == "" {
		return nil, errors.New("build: no output directory")
	}
	if opts.Runner == nil {
		opts.Runner = toolchain.ExecRunner{}
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.OptLevel == "" {
		opts.OptLevel = "0"
	}
	return &Builder{opts: opts}, nil
}

// Build performs the run. Any error aborts it; archives from earlier
// libraries stay valid since each is only replaced after all of its
// objects compiled.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	o := &b.opts
	res := &Result{}

	if o.Target.Arch == target.Wasm32 && !o.WasmFeature {
		msg := "building for wasm32 without the wasm32_c feature; C code is not compiled"
		log.Warnf("%s", msg)
		b.emit(res, Directive{Kind: Warning, Value: msg})
		res.Skipped = true
		return res, nil
	}

	if err := os.MkdirAll(o.OutDir, 0o755); err != nil {
		return nil, err
	}
	unlock, err := lockedfile.MutexAt(filepath.Join(o.OutDir, lockFile)).Lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	tracked := make([]string, 0, len(o.Manifest.Tracked()))
	for _, p := range o.Manifest.Tracked() {
		tracked = append(tracked, filepath.Join(o.RootDir, filepath.FromSlash(p)))
	}
	checker, hashed, err := b.checker(tracked)
	if err != nil {
		return nil, err
	}

	var cc toolchain.Compiler
	if flags.WantsNoStdlibInc(o.Target) {
		cc = toolchain.Detect(ctx, o.Runner, o.Tools.CC, o.Target)
	} else {
		cc = toolchain.Compiler{Path: o.Tools.CC}
	}

	includeDir := ""
	if o.Manifest.IncludeDir != "" {
		includeDir = filepath.Join(o.RootDir, filepath.FromSlash(o.Manifest.IncludeDir))
	}
	inv := &compile.Invoker{
		Target:            o.Target,
		Tools:             o.Tools,
		Compiler:          cc,
		IncludeDir:        includeDir,
		OptLevel:          o.OptLevel,
		WarningsAreErrors: o.Target.IsSourceCheckout,
		NoStdlibIncDefine: o.Manifest.NoStdlibIncDefine,
		Checker:           checker,
		Runner:            o.Runner,
	}
	lb := &library.Builder{
		Target:    o.Target,
		OutDir:    o.OutDir,
		Invoker:   inv,
		Checker:   checker,
		Archiver:  library.ToolArchiver{Path: o.Tools.AR, MSVC: o.Target.IsMSVC(), Runner: o.Runner},
		LinkFlags: o.Manifest.LinkFlags,
		Jobs:      o.Jobs,
	}

	for _, spec := range o.Manifest.Specs(o.RootDir, o.Target.Arch, o.OutDir, o.Target.ObjExt) {
		lr, err := lb.Build(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("library %s: %w", spec.Name, err)
		}
		res.Libraries = append(res.Libraries, lr)
		b.emit(res, Directive{Kind: LinkLib, Value: spec.Name})
	}
	b.emit(res, Directive{Kind: LinkSearch, Value: o.OutDir})

	if hashed != nil {
		if err := saveCache(o.OutDir, hashed.Record()); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// checker computes the staleness floor over tracked files and returns the
// configured Checker. hashed is non-nil only in content-hash mode.
func (b *Builder) checker(tracked []string) (c staleness.Checker, hashed *staleness.Hashed, err error) {
	if !b.opts.ContentHash {
		floor, err := staleness.Floor(tracked...)
		if err != nil {
			return nil, nil, err
		}
		log.Debugf("staleness floor %v over %d files", floor, len(tracked))
		return staleness.MTime{Floor: floor}, nil, nil
	}
	prev, err := loadCache(b.opts.OutDir)
	if err != nil {
		return nil, nil, fmt.Errorf("hash cache: %w", err)
	}
	h, err := staleness.NewHashed(prev, tracked...)
	if err != nil {
		return nil, nil, err
	}
	return h, h, nil
}

func (b *Builder) emit(res *Result, d Directive) {
	res.Directives = append(res.Directives, d)
	fmt.Fprintln(b.opts.Stdout, d.String())
}
