package audit

import (
	"errors"
	"io/fs"
	"math/rand"
	"testing"
	"testing/fstest"

	"github.com/goplus/ccbuild/internal/manifest"
	"github.com/google/go-cmp/cmp"
)

func testManifest() *manifest.Manifest {
	return &manifest.Manifest{
		Includes: []string{"include/base.h", "crypto/internal.h", "crypto/tables.inl"},
		Libraries: []manifest.Library{
			{
				Name: "core",
				Sources: []manifest.Entry{
					{Path: "crypto/mem.c"},
					{Path: "crypto/aes/asm/aes-x86_64.pl", Arch: []string{"x86_64"}},
				},
				Auxiliary: []manifest.Entry{
					{Path: "pregenerated/aes-nasm.asm", Arch: []string{"x86_64"}},
				},
			},
			{Name: "test", Sources: []manifest.Entry{{Path: "crypto/constant_time_test.c"}}},
		},
		AuditRoots: []string{"crypto", "include", "pregenerated", "third_party"},
	}
}

func TestCheckTracked(t *testing.T) {
	paths := []string{
		"crypto/mem.c",
		"crypto/internal.h",
		"crypto/tables.inl",
		"crypto/aes/asm/aes-x86_64.pl",
		"crypto/constant_time_test.c",
		"include/base.h",
		"pregenerated/aes-nasm.asm",
		"crypto/README.md",
		"crypto/aes/CMakeLists.txt",
	}
	if err := Check(paths, testManifest()); err != nil {
		t.Fatalf("Check failed: %v", err)
	}
}

func TestCheckUntracked(t *testing.T) {
	paths := []string{
		"crypto/mem.c",
		"crypto/new.c",
		"include/extra.h",
		"crypto/sha/sha-armv8.S",
		"pregenerated/sha-nasm.asm",
		"crypto/notes.txt",
	}
	err := Check(paths, testManifest())
	if !errors.Is(err, ErrUntracked) {
		t.Fatalf("Check error = %v, want ErrUntracked", err)
	}
	var ue *UntrackedError
	if !errors.As(err, &ue) {
		t.Fatalf("Check error = %T, want *UntrackedError", err)
	}
	want := []string{"crypto/new.c", "crypto/sha/sha-armv8.S", "include/extra.h", "pregenerated/sha-nasm.asm"}
	if diff := cmp.Diff(want, ue.Paths); diff != "" {
		t.Errorf("Paths mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckHeaderMustBeInIncludes(t *testing.T) {
	// A header listed only as a source is still untracked.
	m := testManifest()
	m.Libraries[0].Sources = append(m.Libraries[0].Sources, manifest.Entry{Path: "crypto/other.h"})
	if err := Check([]string{"crypto/other.h"}, m); !errors.Is(err, ErrUntracked) {
		t.Errorf("Check error = %v, want ErrUntracked", err)
	}
}

func TestCheckOrderIndependent(t *testing.T) {
	paths := []string{"crypto/mem.c", "crypto/b.c", "crypto/a.c", "include/z.h", "include/base.h"}
	first := Check(paths, testManifest())
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), paths...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got := Check(shuffled, testManifest())
		if diff := cmp.Diff(first.Error(), got.Error()); diff != "" {
			t.Fatalf("verdict depends on order (-first +got):\n%s", diff)
		}
	}
}

func TestCollect(t *testing.T) {
	fsys := fstest.MapFS{
		"crypto/mem.c":            {},
		"crypto/aes/aes.c":        {},
		"include/base.h":          {},
		"outside/ignored.c":       {},
		"crypto/aes/empty":        {Mode: fs.ModeDir | 0o755},
		"third_party/fiat/p256.c": {},
	}
	got, err := Collect(fsys, []string{"crypto", "include", "missing"})
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	want := []string{"crypto/aes/aes.c", "crypto/mem.c", "include/base.h"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Collect mismatch (-want +got):\n%s", diff)
	}
}

func TestRun(t *testing.T) {
	fsys := fstest.MapFS{
		"crypto/mem.c":                {},
		"crypto/constant_time_test.c": {},
		"include/base.h":              {},
	}
	m := testManifest()
	if err := Run(fsys, m); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	fsys["third_party/fiat/curve25519.c"] = &fstest.MapFile{}
	if err := Run(fsys, m); !errors.Is(err, ErrUntracked) {
		t.Errorf("Run error = %v, want ErrUntracked", err)
	}
}
