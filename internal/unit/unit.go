// Package unit maps declared source files to the object files they produce.
package unit

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Kind classifies a source file by extension.
type Kind int

const (
	Unsupported Kind = iota
	Source            // .c
	Assembly          // .S, assembled by the C compiler
	PlatformAssembly  // .asm, assembled by nasm on Windows
	Object            // .obj, pre-built
	Generator         // .pl, emits assembly and is never compiled itself
)

var kindNames = [...]string{
	Unsupported:      "unsupported",
	Source:           "source",
	Assembly:         "assembly",
	PlatformAssembly: "platform-assembly",
	Object:           "object",
	Generator:        "generator",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// KindOf returns the Kind for path based on its extension.
func KindOf(path string) Kind {
	switch filepath.Ext(path) {
	case ".c":
		return Source
	case ".S":
		return Assembly
	case ".asm":
		return PlatformAssembly
	case ".obj":
		return Object
	case ".pl":
		return Generator
	}
	return Unsupported
}

// Unit is one source file mapped to one derived object file.
type Unit struct {
	Source string
	Object string
	Kind   Kind
}

// New derives the Unit for the source at rel under root. Objects mirror the
// source's directory under outDir, so sources sharing a base name in
// different directories never share an object. A pre-built object is its
// own output.
func New(root, rel, outDir, objExt string) Unit {
	rel = filepath.Clean(filepath.FromSlash(rel))
	src := filepath.Join(root, rel)
	k := KindOf(src)
	if k == Object {
		return Unit{Source: src, Object: src, Kind: k}
	}
	return Unit{
		Source: src,
		Object: filepath.Join(outDir, ObjectName(rel, objExt)),
		Kind:   k,
	}
}

// ObjectName returns the object path for rel relative to the output
// directory. A path that is absolute or leaves the root keeps only its base
// name.
func ObjectName(rel, objExt string) string {
	if !filepath.IsLocal(rel) {
		rel = filepath.Base(rel)
	}
	return strings.TrimSuffix(rel, filepath.Ext(rel)) + "." + objExt
}
