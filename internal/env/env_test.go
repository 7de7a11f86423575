package env

import (
	"errors"
	"path/filepath"
	"testing"
)

func baseEnv() map[string]string {
	return map[string]string{
		KeyArch:        "x86_64",
		KeyOS:          "linux",
		KeyEnv:         "gnu",
		KeyManifestDir: "/src/project",
	}
}

func TestLoadMissingRequired(t *testing.T) {
	for _, key := range []string{KeyArch, KeyOS, KeyEnv} {
		t.Run(key, func(t *testing.T) {
			m := baseEnv()
			delete(m, key)
			_, err := Load(Map(m))
			if !errors.Is(err, ErrMissing) {
				t.Fatalf("Load() error = %v, want ErrMissing", err)
			}
			var me *MissingError
			if !errors.As(err, &me) || me.Key != key {
				t.Fatalf("Load() error = %#v, want MissingError{%s}", err, key)
			}
		})
	}
}

func TestLoadEmptyEnvIsAccepted(t *testing.T) {
	// CARGO_CFG_TARGET_ENV is legitimately empty on many targets.
	m := baseEnv()
	m[KeyEnv] = ""
	in, err := Load(Map(m))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if in.Env != "" {
		t.Errorf("Env = %q, want empty", in.Env)
	}
}

func TestLoadDefaults(t *testing.T) {
	in, err := Load(Map(baseEnv()))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if in.OptLevel != "0" {
		t.Errorf("OptLevel = %q, want %q", in.OptLevel, "0")
	}
	if in.WasmFeature {
		t.Error("WasmFeature = true, want false")
	}
	if in.RootDir != "/src/project" {
		t.Errorf("RootDir = %q, want %q", in.RootDir, "/src/project")
	}
	if _, err := in.RequireOutDir(); !errors.Is(err, ErrMissing) {
		t.Errorf("RequireOutDir() error = %v, want ErrMissing", err)
	}
}

func TestLoadToolOverrides(t *testing.T) {
	m := baseEnv()
	m[KeyCC] = "gcc"
	m[KeyTargetCC] = "clang"
	m[KeyAR] = "llvm-ar"
	m[KeyWasmFeature] = "1"
	m[KeyOptLevel] = "3"

	in, err := Load(Map(m))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if in.CC != "clang" {
		t.Errorf("CC = %q, want TARGET_CC to win", in.CC)
	}
	if in.AR != "llvm-ar" {
		t.Errorf("AR = %q, want %q", in.AR, "llvm-ar")
	}
	if !in.WasmFeature {
		t.Error("WasmFeature = false, want true")
	}
	if in.OptLevel != "3" {
		t.Errorf("OptLevel = %q, want %q", in.OptLevel, "3")
	}
}

func TestRequireOutDirAbsolute(t *testing.T) {
	m := baseEnv()
	m[KeyOutDir] = "out"
	in, err := Load(Map(m))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	dir, err := in.RequireOutDir()
	if err != nil {
		t.Fatalf("RequireOutDir() failed: %v", err)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("RequireOutDir() = %q, want absolute path", dir)
	}
}
