// Package manifest loads the declared build definition: tracked headers,
// per-architecture sources grouped into libraries, build-definition files,
// and the roots checked by the auditor.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/goplus/ccbuild/internal/library"
	"github.com/goplus/ccbuild/internal/unit"
	"gopkg.in/yaml.v3"
)

// FileName is the conventional build definition file name.
const FileName = "ccbuild.yaml"

// Entry is one declared source file. An empty Arch applies to every
// architecture.
type Entry struct {
	Arch []string `yaml:"arch,omitempty"`
	Path string   `yaml:"path"`
}

// UnmarshalYAML accepts either a bare path or a mapping.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Arch = nil
		return node.Decode(&e.Path)
	}
	type plain Entry
	return node.Decode((*plain)(e))
}

// AppliesTo reports whether e is built for arch.
func (e Entry) AppliesTo(arch string) bool {
	return len(e.Arch) == 0 || slices.Contains(e.Arch, arch)
}

// Library declares one static library.
type Library struct {
	Name      string  `yaml:"name"`
	Sources   []Entry `yaml:"sources"`
	Auxiliary []Entry `yaml:"auxiliary,omitempty"`
}

// Manifest is the whole build definition. Paths are slash-separated and
// relative to the project root.
type Manifest struct {
	IncludeDir        string    `yaml:"include_dir,omitempty"`
	Includes          []string  `yaml:"includes"`
	BuildFiles        []string  `yaml:"build_files,omitempty"`
	Libraries         []Library `yaml:"libraries"`
	AuditRoots        []string  `yaml:"audit_roots,omitempty"`
	LinkFlags         []string  `yaml:"link_flags,omitempty"`
	NoStdlibIncDefine string    `yaml:"nostdlibinc_define,omitempty"`

	// Path is the file the manifest was loaded from, relative to the root.
	Path string `yaml:"-"`
}

// Load reads and validates the manifest at root/name.
func Load(root, name string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(root, name))
	if err != nil {
		return nil, err
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	m.Path = filepath.ToSlash(name)
	return m, nil
}

// Parse decodes a manifest. Unknown fields are rejected.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if len(m.Libraries) == 0 {
		return errors.New("no libraries declared")
	}
	seen := make(map[string]bool)
	objects := make(map[string]string) // object name -> source
	for _, lib := range m.Libraries {
		if lib.Name == "" {
			return errors.New("library without a name")
		}
		if seen[lib.Name] {
			return fmt.Errorf("library %q declared twice", lib.Name)
		}
		seen[lib.Name] = true
		declared := make(map[string]bool)
		for _, e := range append(slices.Clip(lib.Sources), lib.Auxiliary...) {
			if e.Path == "" {
				return fmt.Errorf("library %q: entry without a path", lib.Name)
			}
			p := path.Clean(e.Path)
			if !filepath.IsLocal(filepath.FromSlash(p)) {
				return fmt.Errorf("library %q: %s is not inside the project root", lib.Name, e.Path)
			}
			if declared[p] {
				return fmt.Errorf("library %q: %s declared twice", lib.Name, e.Path)
			}
			declared[p] = true
			switch unit.KindOf(p) {
			case unit.Object, unit.Generator:
				continue
			}
			obj := unit.ObjectName(filepath.FromSlash(p), "o")
			if other, ok := objects[obj]; ok && other != p {
				return fmt.Errorf("%s and %s compile to the same object", other, p)
			}
			objects[obj] = p
		}
	}
	return nil
}

// Tracked returns every file whose modification must invalidate all build
// outputs: the includes, the extra build files, and the manifest itself.
func (m *Manifest) Tracked() []string {
	out := make([]string, 0, len(m.Includes)+len(m.BuildFiles)+1)
	out = append(out, m.Includes...)
	out = append(out, m.BuildFiles...)
	if m.Path != "" && !slices.Contains(out, m.Path) {
		out = append(out, m.Path)
	}
	return out
}

// Sources returns the set of every declared source path of any library and
// any architecture.
func (m *Manifest) Sources() map[string]bool {
	set := make(map[string]bool)
	for _, lib := range m.Libraries {
		for _, e := range lib.Sources {
			set[e.Path] = true
		}
		for _, e := range lib.Auxiliary {
			set[e.Path] = true
		}
	}
	return set
}

// Specs resolves the declared libraries into library specs for arch.
// Source paths are joined to root; objects are placed in outDir with
// objExt. Assembly generators are not compilation units and are dropped.
func (m *Manifest) Specs(root, arch, outDir, objExt string) []library.Spec {
	units := func(entries []Entry) []unit.Unit {
		var out []unit.Unit
		for _, e := range entries {
			if !e.AppliesTo(arch) || unit.KindOf(e.Path) == unit.Generator {
				continue
			}
			out = append(out, unit.New(root, e.Path, outDir, objExt))
		}
		return out
	}
	specs := make([]library.Spec, 0, len(m.Libraries))
	for _, lib := range m.Libraries {
		specs = append(specs, library.Spec{
			Name:      lib.Name,
			Primary:   units(lib.Sources),
			Auxiliary: units(lib.Auxiliary),
		})
	}
	return specs
}
