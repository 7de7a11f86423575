// Package target describes the platform a build compiles for.
package target

import (
	"strings"

	"github.com/goplus/ccbuild/internal/env"
	"github.com/goplus/ccbuild/internal/vcs"
)

// Well-known component values.
const (
	MSVC    = "msvc"
	Windows = "windows"
	Wasm32  = "wasm32"
	X86_64  = "x86_64"
	Linux   = "linux"
)

// Target is the immutable description of one compilation target.
// It is built once per run and passed explicitly to every component.
type Target struct {
	Arch string
	OS   string
	Env  string

	// ObjExt and ObjFlag depend on Env alone.
	ObjExt  string
	ObjFlag string

	IsSourceCheckout bool
	IsDebug          bool
}

// New derives a Target from the build tool's inputs.
func New(in *env.Inputs) Target {
	checkout := vcs.IsCheckout(in.RootDir)
	return Make(in.Arch, in.OS, in.Env, checkout, checkout && in.Debug != "false")
}

// Make builds a Target from explicit values.
func Make(arch, os, environment string, checkout, debug bool) Target {
	ext, flag := objectPairing(environment)
	return Target{
		Arch:             arch,
		OS:               os,
		Env:              environment,
		ObjExt:           ext,
		ObjFlag:          flag,
		IsSourceCheckout: checkout,
		IsDebug:          checkout && debug,
	}
}

func objectPairing(environment string) (ext, flag string) {
	if environment == MSVC {
		return "obj", "/Fo"
	}
	return "o", "-o"
}

// IsMSVC reports whether the target uses the MSVC toolchain family.
func (t Target) IsMSVC() bool { return t.Env == MSVC }

// IsMusl reports whether the target links against musl libc.
func (t Target) IsMusl() bool { return strings.HasPrefix(t.Env, "musl") }

// IsApple reports whether the target OS is one of Apple's.
func (t Target) IsApple() bool {
	switch t.OS {
	case "macos", "ios", "tvos", "watchos", "visionos":
		return true
	}
	return false
}

// HasSysroot reports whether a target system root is expected to exist.
// wasm32-unknown-unknown is routinely cross-compiled without one.
func (t Target) HasSysroot() bool {
	return !(t.Arch == Wasm32 && t.OS == "unknown")
}

// LibName returns the archive file name for a static library.
func (t Target) LibName(name string) string {
	if t.IsMSVC() {
		return name + ".lib"
	}
	return "lib" + name + ".a"
}

func (t Target) String() string {
	return t.Arch + "-" + t.OS + "-" + t.Env
}
