// Package env reads the inputs that the invoking build tool passes to
// ccbuild through environment variables.
package env

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Keys set by the invoking build tool.
const (
	KeyArch        = "CARGO_CFG_TARGET_ARCH"
	KeyOS          = "CARGO_CFG_TARGET_OS"
	KeyEnv         = "CARGO_CFG_TARGET_ENV"
	KeyOutDir      = "OUT_DIR"
	KeyOptLevel    = "OPT_LEVEL"
	KeyDebug       = "DEBUG"
	KeyManifestDir = "CARGO_MANIFEST_DIR"
	KeyWasmFeature = "CARGO_FEATURE_WASM32_C"
	KeyCC          = "CC"
	KeyTargetCC    = "TARGET_CC"
	KeyAR          = "AR"
	KeyTargetAR    = "TARGET_AR"
	KeyNASM        = "NASM"
)

// ErrMissing is wrapped by every MissingError.
var ErrMissing = errors.New("required environment variable not set")

// MissingError reports a required input that the build tool did not provide.
type MissingError struct {
	Key string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissing, e.Key)
}

func (e *MissingError) Unwrap() error { return ErrMissing }

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Inputs is the raw environment of one orchestration run.
type Inputs struct {
	Arch string
	OS   string
	Env  string

	OutDir   string
	OptLevel string
	Debug    string

	// RootDir is the project root; .git and the manifest are resolved against it.
	RootDir string

	// WasmFeature reports whether native compilation for wasm32 was requested.
	WasmFeature bool

	CC   string
	AR   string
	NASM string
}

// Load reads Inputs using lookup. The target triple components are required;
// everything else has a default.
func Load(lookup LookupFunc) (*Inputs, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	in := &Inputs{}
	for _, req := range []struct {
		key string
		dst *string
	}{
		{KeyArch, &in.Arch},
		{KeyOS, &in.OS},
		{KeyEnv, &in.Env},
	} {
		v, ok := lookup(req.key)
		if !ok {
			return nil, &MissingError{Key: req.key}
		}
		*req.dst = v
	}

	in.OutDir, _ = lookup(KeyOutDir)
	in.Debug, _ = lookup(KeyDebug)
	in.OptLevel = "0"
	if v, ok := lookup(KeyOptLevel); ok && v != "" {
		in.OptLevel = v
	}
	_, in.WasmFeature = lookup(KeyWasmFeature)

	in.CC = first(lookup, KeyTargetCC, KeyCC)
	in.AR = first(lookup, KeyTargetAR, KeyAR)
	in.NASM = first(lookup, KeyNASM)

	if v, ok := lookup(KeyManifestDir); ok && v != "" {
		in.RootDir = v
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		in.RootDir = wd
	}
	return in, nil
}

// RequireOutDir returns the output directory as an absolute path, or a
// MissingError when the build tool did not set one.
func (in *Inputs) RequireOutDir() (string, error) {
	if in.OutDir == "" {
		return "", &MissingError{Key: KeyOutDir}
	}
	return filepath.Abs(in.OutDir)
}

func first(lookup LookupFunc, keys ...string) string {
	for _, k := range keys {
		if v, ok := lookup(k); ok && v != "" {
			return v
		}
	}
	return ""
}

// Map adapts a map to a LookupFunc.
func Map(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}
