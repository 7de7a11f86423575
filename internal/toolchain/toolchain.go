// Package toolchain locates the compiler, archiver and assembler for a
// target and identifies the compiler family.
package toolchain

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/goplus/ccbuild/internal/env"
	"github.com/goplus/ccbuild/internal/target"
	"github.com/qiniu/x/log"
	"golang.org/x/mod/semver"
)

// Tools names the executables used for one target.
type Tools struct {
	CC   string
	AR   string
	NASM string
}

// Resolve picks tool paths from the environment, falling back to the
// target's conventional defaults.
func Resolve(in *env.Inputs, t target.Target) Tools {
	tools := Tools{CC: "cc", AR: "ar", NASM: "nasm"}
	if t.IsMSVC() {
		tools.CC, tools.AR = "cl.exe", "lib.exe"
	}
	if in.CC != "" {
		tools.CC = in.CC
	}
	if in.AR != "" {
		tools.AR = in.AR
	}
	if in.NASM != "" {
		tools.NASM = in.NASM
	}
	return tools
}

// Family is a compiler family.
type Family int

const (
	Unknown Family = iota
	GNU
	Clang
	AppleClang
	MSVC
)

func (f Family) String() string {
	switch f {
	case GNU:
		return "gnu"
	case Clang:
		return "clang"
	case AppleClang:
		return "apple-clang"
	case MSVC:
		return "msvc"
	}
	return "unknown"
}

// Compiler is a detected C compiler.
type Compiler struct {
	Path    string
	Family  Family
	Version string // semver form, e.g. "v15.0.7"; empty if unknown
}

// IsClangLike reports whether the compiler accepts clang's driver flags.
func (c Compiler) IsClangLike() bool {
	return c.Family == Clang || c.Family == AppleClang
}

// AtLeast reports whether the detected version is known and >= min.
func (c Compiler) AtLeast(min string) bool {
	if !semver.IsValid(c.Version) {
		return false
	}
	return semver.Compare(c.Version, min) >= 0
}

var versionRE = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// Detect runs "<cc> --version" and classifies the output. MSVC is never
// probed. A compiler that cannot be run is reported as Unknown; the
// compile step will surface the real failure.
func Detect(ctx context.Context, r Runner, path string, t target.Target) Compiler {
	if t.IsMSVC() {
		return Compiler{Path: path, Family: MSVC}
	}
	var out bytes.Buffer
	// ParseVersion matches the untranslated banner.
	err := r.Run(ctx, Command{
		Path:   path,
		Args:   []string{"--version"},
		Env:    map[string]string{"LC_ALL": "C"},
		Stdout: &out,
		Stderr: &out,
	})
	if err != nil {
		log.Debugf("probe %s: %v", path, err)
		return Compiler{Path: path}
	}
	c := ParseVersion(out.String())
	c.Path = path
	log.Debugf("detected %s compiler %s at %s", c.Family, c.Version, path)
	return c
}

// ParseVersion classifies "--version" output.
func ParseVersion(output string) Compiler {
	first, _, _ := strings.Cut(output, "\n")
	var c Compiler
	switch {
	case strings.Contains(first, "Apple clang"):
		c.Family = AppleClang
	case strings.Contains(first, "clang"):
		c.Family = Clang
	case strings.Contains(first, "gcc"), strings.Contains(first, "GCC"),
		strings.Contains(output, "Free Software Foundation"):
		c.Family = GNU
	default:
		return c
	}
	if m := versionRE.FindStringSubmatch(first); m != nil {
		patch := m[3]
		if patch == "" {
			patch = "0"
		}
		c.Version = semver.Canonical("v" + m[1] + "." + m[2] + "." + patch)
	}
	return c
}
