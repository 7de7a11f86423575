// Package flags selects compiler and archive flags for a target.
//
// Selection is pure: the same Options always produce the same ordered list.
package flags

import (
	"errors"
	"fmt"

	"github.com/goplus/ccbuild/internal/target"
	"github.com/goplus/ccbuild/internal/toolchain"
	"github.com/goplus/ccbuild/internal/unit"
)

// ErrUnsupported is wrapped by every UnsupportedError.
var ErrUnsupported = errors.New("unsupported file kind")

// UnsupportedError reports a file with no compile rule.
type UnsupportedError struct {
	Path string
	Kind unit.Kind
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s (%v)", ErrUnsupported, e.Path, e.Kind)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// DefaultNoStdlibIncDefine is defined to 1 when -nostdlibinc is passed.
const DefaultNoStdlibIncDefine = "CCBUILD_NOSTDLIBINC"

// minNoStdlibInc is the oldest clang known to accept -nostdlibinc.
const minNoStdlibInc = "v3.0.0"

// Options are the inputs to flag selection.
type Options struct {
	Target            target.Target
	Kind              unit.Kind
	Path              string // for error reporting only
	WarningsAreErrors bool
	OptLevel          string
	Compiler          toolchain.Compiler
	NoStdlibIncDefine string
}

var nonMSVCCFlags = []string{
	"-std=c1x", // GCC 4.6 requires "c1x" instead of "c11"
	"-Wbad-function-cast",
	"-Wnested-externs",
	"-Wstrict-prototypes",
}

var nonMSVCFlags = []string{
	"-pedantic",
	"-pedantic-errors",
	"-Wall",
	"-Wextra",
	"-Wcast-align",
	"-Wcast-qual",
	"-Wconversion",
	"-Wenum-compare",
	"-Wfloat-equal",
	"-Wformat=2",
	"-Winline",
	"-Winvalid-pch",
	"-Wmissing-field-initializers",
	"-Wmissing-include-dirs",
	"-Wredundant-decls",
	"-Wshadow",
	"-Wsign-compare",
	"-Wsign-conversion",
	"-Wundef",
	"-Wuninitialized",
	"-Wwrite-strings",
	"-fno-strict-aliasing",
	"-fvisibility=hidden",
}

var msvcFlags = []string{
	"/GS",   // buffer security checks
	"/Gy",   // function-level linking
	"/EHsc", // C++ exceptions only, only in C++
	"/GR-",  // no RTTI
	"/Zc:wchar_t",
	"/Zc:forScope",
	"/Zc:inline",
	"/Zc:rvalueCast",
	"/sdl",
	"/Wall",
	"/wd4127", // conditional expression is constant
	"/wd4464", // relative include path contains '..'
	"/wd4514", // unreferenced inline function has been removed
	"/wd4710", // function not inlined
	"/wd4711", // function selected for inline expansion
	"/wd4820", // bytes padding added
	"/wd5045", // Spectre mitigation notice
}

// CFlags returns the C-only flags for t.
func CFlags(t target.Target) []string {
	if t.IsMSVC() {
		return nil
	}
	return nonMSVCCFlags
}

// CompilerFlags returns the general strictness and hardening flags for t.
func CompilerFlags(t target.Target) []string {
	if t.IsMSVC() {
		return msvcFlags
	}
	return nonMSVCFlags
}

// WantsNoStdlibInc reports whether t is a target that is built without
// system headers when the compiler allows it. Callers use it to decide
// whether probing the compiler is worthwhile.
func WantsNoStdlibInc(t target.Target) bool {
	return (t.Arch == target.Wasm32 && !t.HasSysroot()) ||
		(t.OS == target.Linux && t.IsMusl() && t.Arch != target.X86_64)
}

// Compile returns the ordered flag list for one compile command, excluding
// include paths and input/output arguments.
func Compile(o Options) ([]string, error) {
	t := o.Target
	switch o.Kind {
	case unit.Source, unit.Assembly:
	default:
		return nil, &UnsupportedError{Path: o.Path, Kind: o.Kind}
	}

	var out []string
	out = append(out, driverDefaults(t, o.OptLevel)...)
	if o.Kind == unit.Source {
		out = append(out, CFlags(t)...)
	}
	out = append(out, CompilerFlags(t)...)

	switch t.OS {
	case "none", "redox", target.Windows:
	default:
		if t.Arch != target.Wasm32 {
			out = append(out, "-fstack-protector")
		}
	}

	switch {
	case t.IsApple():
		out = append(out, "-gfull") // required for Darwin's -dead_strip
	case t.IsMSVC():
	default:
		out = append(out, "-g3")
	}

	if !t.IsDebug {
		out = append(out, "-DNDEBUG")
	}

	if t.IsMSVC() {
		if o.OptLevel == "0" {
			// runtime checks: (s)tack frames, (u)ninitialized variables
			out = append(out, "/Od", "/RTCsu")
		} else {
			out = append(out, "/Ox")
		}
	}

	if WantsNoStdlibInc(t) && o.Compiler.IsClangLike() && o.Compiler.AtLeast(minNoStdlibInc) {
		def := o.NoStdlibIncDefine
		if def == "" {
			def = DefaultNoStdlibIncDefine
		}
		out = append(out, "-nostdlibinc", "-D"+def+"=1")
	}

	if o.WarningsAreErrors {
		if t.IsMSVC() {
			out = append(out, "/WX")
		} else {
			out = append(out, "-Werror")
		}
	}

	// musl does not support _FORTIFY_SOURCE, which some toolchains enable by default.
	if t.IsMusl() {
		out = append(out, "-U_FORTIFY_SOURCE")
	}
	return out, nil
}

// driverDefaults are the flags a compiler driver wrapper applies before
// any project flags.
func driverDefaults(t target.Target, optLevel string) []string {
	if t.IsMSVC() {
		return []string{"-nologo"}
	}
	if optLevel == "" {
		optLevel = "0"
	}
	out := []string{"-O" + optLevel, "-ffunction-sections", "-fdata-sections"}
	if t.OS != target.Windows {
		out = append(out, "-fPIC")
	}
	return out
}

// Link returns the flags handed to the archive step: base followed by the
// platform's dead-code stripping flags.
func Link(t target.Target, base []string) []string {
	out := append([]string(nil), base...)
	if t.IsApple() {
		return append(out, "-fPIC", "-Wl,-dead_strip_dylibs")
	}
	return append(out, "-Wl,--gc-sections")
}
