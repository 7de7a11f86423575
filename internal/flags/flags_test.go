package flags

import (
	"errors"
	"slices"
	"testing"

	"github.com/goplus/ccbuild/internal/target"
	"github.com/goplus/ccbuild/internal/toolchain"
	"github.com/goplus/ccbuild/internal/unit"
	"github.com/google/go-cmp/cmp"
)

var (
	linuxGNU   = target.Make("x86_64", "linux", "gnu", false, false)
	windowsMSV = target.Make("x86_64", "windows", "msvc", false, false)
	macos      = target.Make("aarch64", "macos", "", false, false)
	armMusl    = target.Make("aarch64", "linux", "musl", false, false)
	wasm       = target.Make("wasm32", "unknown", "", false, false)
	clang17    = toolchain.Compiler{Family: toolchain.Clang, Version: "v17.0.1"}
)

func mustCompile(t *testing.T, o Options) []string {
	t.Helper()
	got, err := Compile(o)
	if err != nil {
		t.Fatalf("Compile(%+v) failed: %v", o, err)
	}
	return got
}

func TestCompileLinuxSource(t *testing.T) {
	got := mustCompile(t, Options{Target: linuxGNU, Kind: unit.Source, OptLevel: "2"})

	var want []string
	want = append(want, "-O2", "-ffunction-sections", "-fdata-sections", "-fPIC")
	want = append(want, nonMSVCCFlags...)
	want = append(want, nonMSVCFlags...)
	want = append(want, "-fstack-protector", "-g3", "-DNDEBUG")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compile() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileAssemblyOmitsCFlags(t *testing.T) {
	got := mustCompile(t, Options{Target: linuxGNU, Kind: unit.Assembly})
	for _, f := range nonMSVCCFlags {
		if slices.Contains(got, f) {
			t.Errorf("assembly flags contain C-only flag %q", f)
		}
	}
	if !slices.Contains(got, "-Wall") {
		t.Error("assembly flags missing general flags")
	}
}

func TestCompileMSVC(t *testing.T) {
	debug := target.Make("x86_64", "windows", "msvc", true, true)
	got := mustCompile(t, Options{Target: debug, Kind: unit.Source, OptLevel: "0", WarningsAreErrors: true})

	var want []string
	want = append(want, "-nologo")
	want = append(want, msvcFlags...)
	want = append(want, "/Od", "/RTCsu", "/WX")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Compile() mismatch (-want +got):\n%s", diff)
	}

	got = mustCompile(t, Options{Target: windowsMSV, Kind: unit.Source, OptLevel: "3"})
	if !slices.Contains(got, "/Ox") || slices.Contains(got, "/Od") {
		t.Errorf("optimized MSVC flags = %v, want /Ox without /Od", got)
	}
	if !slices.Contains(got, "-DNDEBUG") {
		t.Error("release MSVC flags missing -DNDEBUG")
	}
}

func TestCompileConditionalFlags(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		want    []string
		notWant []string
	}{
		{
			name:    "apple debug symbols",
			opts:    Options{Target: macos, Kind: unit.Source},
			want:    []string{"-gfull", "-fstack-protector"},
			notWant: []string{"-g3"},
		},
		{
			name:    "no stack protector on bare metal",
			opts:    Options{Target: target.Make("thumbv7em", "none", "eabi", false, false), Kind: unit.Source},
			notWant: []string{"-fstack-protector"},
		},
		{
			name:    "no stack protector on windows gnu",
			opts:    Options{Target: target.Make("x86_64", "windows", "gnu", false, false), Kind: unit.Source},
			notWant: []string{"-fstack-protector", "-fPIC"},
		},
		{
			name:    "debug build keeps asserts",
			opts:    Options{Target: target.Make("x86_64", "linux", "gnu", true, true), Kind: unit.Source},
			notWant: []string{"-DNDEBUG"},
		},
		{
			name: "warnings are errors",
			opts: Options{Target: linuxGNU, Kind: unit.Source, WarningsAreErrors: true},
			want: []string{"-Werror"},
		},
		{
			name: "musl clang without sysroot headers",
			opts: Options{Target: armMusl, Kind: unit.Source, Compiler: clang17},
			want: []string{"-nostdlibinc", "-D" + DefaultNoStdlibIncDefine + "=1", "-U_FORTIFY_SOURCE"},
		},
		{
			name:    "musl gcc keeps system headers",
			opts:    Options{Target: armMusl, Kind: unit.Source, Compiler: toolchain.Compiler{Family: toolchain.GNU, Version: "v12.0.0"}},
			want:    []string{"-U_FORTIFY_SOURCE"},
			notWant: []string{"-nostdlibinc"},
		},
		{
			name:    "musl x86_64 has a sysroot",
			opts:    Options{Target: target.Make("x86_64", "linux", "musl", false, false), Kind: unit.Source, Compiler: clang17},
			notWant: []string{"-nostdlibinc"},
		},
		{
			name:    "wasm32 without sysroot",
			opts:    Options{Target: wasm, Kind: unit.Source, Compiler: clang17, NoStdlibIncDefine: "RING_CORE_NOSTDLIBINC"},
			want:    []string{"-nostdlibinc", "-DRING_CORE_NOSTDLIBINC=1"},
			notWant: []string{"-fstack-protector"},
		},
		{
			name:    "clang version unknown",
			opts:    Options{Target: wasm, Kind: unit.Source, Compiler: toolchain.Compiler{Family: toolchain.Clang}},
			notWant: []string{"-nostdlibinc"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustCompile(t, tt.opts)
			for _, f := range tt.want {
				if !slices.Contains(got, f) {
					t.Errorf("flags missing %q: %v", f, got)
				}
			}
			for _, f := range tt.notWant {
				if slices.Contains(got, f) {
					t.Errorf("flags unexpectedly contain %q: %v", f, got)
				}
			}
		})
	}
}

func TestCompileDeterministic(t *testing.T) {
	o := Options{Target: armMusl, Kind: unit.Source, OptLevel: "3", WarningsAreErrors: true, Compiler: clang17}
	first := mustCompile(t, o)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, mustCompile(t, o)); diff != "" {
			t.Fatalf("call %d differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestCompileUnsupported(t *testing.T) {
	for _, k := range []unit.Kind{unit.Unsupported, unit.PlatformAssembly, unit.Object, unit.Generator} {
		_, err := Compile(Options{Target: linuxGNU, Kind: k, Path: "x"})
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("Compile(kind %v) error = %v, want ErrUnsupported", k, err)
		}
	}
}

func TestLink(t *testing.T) {
	if diff := cmp.Diff([]string{"-fPIC", "-Wl,-dead_strip_dylibs"}, Link(macos, nil)); diff != "" {
		t.Errorf("Link(macos) mismatch (-want +got):\n%s", diff)
	}
	base := []string{"-static"}
	if diff := cmp.Diff([]string{"-static", "-Wl,--gc-sections"}, Link(linuxGNU, base)); diff != "" {
		t.Errorf("Link(linux) mismatch (-want +got):\n%s", diff)
	}
	if len(base) != 1 {
		t.Errorf("Link mutated base: %v", base)
	}
}
