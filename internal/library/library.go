// Package library compiles the units of a named library and archives the
// resulting objects into a static library.
package library

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"github.com/goplus/ccbuild/internal/compile"
	"github.com/goplus/ccbuild/internal/flags"
	"github.com/goplus/ccbuild/internal/staleness"
	"github.com/goplus/ccbuild/internal/target"
	"github.com/goplus/ccbuild/internal/unit"
	"github.com/qiniu/x/log"
	"golang.org/x/sync/errgroup"
)

// Spec is a named group of units archived together.
type Spec struct {
	Name      string
	Primary   []unit.Unit
	Auxiliary []unit.Unit
}

// Units returns the units in build order: auxiliary units first, then
// primary units, each in declaration order.
func (s Spec) Units() []unit.Unit {
	out := make([]unit.Unit, 0, len(s.Auxiliary)+len(s.Primary))
	out = append(out, s.Auxiliary...)
	return append(out, s.Primary...)
}

// Result describes what Build did for one library.
type Result struct {
	Name     string
	Archive  string
	Objects  []string
	Compiled int
	Rebuilt  bool
}

// Builder builds libraries for one target into OutDir.
type Builder struct {
	Target    target.Target
	OutDir    string
	Invoker   *compile.Invoker
	Checker   staleness.Checker
	Archiver  Archiver
	LinkFlags []string // base flags, before platform flags

	// Jobs bounds concurrent compilations; values below 2 compile serially.
	Jobs int
}

// Build compiles every unit of spec that is stale and re-archives the
// library when any object is newer than the archive. On MSVC, assembly
// units are not supported and are left out.
func (b *Builder) Build(ctx context.Context, spec Spec) (*Result, error) {
	var units []unit.Unit
	for _, u := range spec.Units() {
		if b.Target.IsMSVC() && u.Kind == unit.Assembly {
			log.Debugf("%s: skipping %s on msvc", spec.Name, u.Source)
			continue
		}
		units = append(units, u)
	}

	res := &Result{
		Name:    spec.Name,
		Archive: filepath.Join(b.OutDir, b.Target.LibName(spec.Name)),
	}
	objs, compiled, err := b.compileAll(ctx, units)
	if err != nil {
		return nil, err
	}
	res.Objects, res.Compiled = objs, compiled

	rebuild, err := b.needsArchive(res.Archive, objs)
	if err != nil {
		return nil, err
	}
	if !rebuild {
		log.Infof("%s: archive up to date", spec.Name)
		return res, nil
	}
	log.Infof("%s: archiving %d objects", spec.Name, len(objs))
	if err := b.Archiver.Archive(ctx, res.Archive, objs, flags.Link(b.Target, b.LinkFlags)); err != nil {
		return nil, err
	}
	if err := b.Checker.Done(res.Archive, objs...); err != nil {
		return nil, err
	}
	res.Rebuilt = true
	return res, nil
}

func (b *Builder) compileAll(ctx context.Context, units []unit.Unit) ([]string, int, error) {
	objs := make([]string, len(units))
	var compiled atomic.Int32
	one := func(ctx context.Context, i int) error {
		obj, ran, err := b.Invoker.Compile(ctx, units[i])
		if err != nil {
			return err
		}
		objs[i] = obj
		if ran {
			compiled.Add(1)
		}
		return nil
	}

	if b.Jobs < 2 {
		for i := range units {
			if err := one(ctx, i); err != nil {
				return nil, 0, err
			}
		}
		return objs, int(compiled.Load()), nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.Jobs)
	for i := range units {
		g.Go(func() error { return one(gctx, i) })
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return objs, int(compiled.Load()), nil
}

// needsArchive reports whether the archive is missing, predates the floor,
// or is older than any of objs. The floor check alone covers a library
// whose units were all filtered out.
func (b *Builder) needsArchive(archive string, objs []string) (bool, error) {
	outdated, err := b.Checker.Outdated(archive)
	if err != nil || outdated {
		return outdated, err
	}
	for _, o := range objs {
		stale, err := b.Checker.NeedsRebuild(o, archive)
		if err != nil {
			return false, err
		}
		if stale {
			return true, nil
		}
	}
	return false, nil
}
