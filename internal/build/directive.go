package build

import "fmt"

// DirectiveKind is the kind of instruction handed to the outer linker.
type DirectiveKind int

const (
	LinkSearch DirectiveKind = iota
	LinkLib
	Warning
)

// Directive is one line of output consumed by the packaging layer.
type Directive struct {
	Kind  DirectiveKind
	Value string
}

func (d Directive) String() string {
	switch d.Kind {
	case LinkSearch:
		return "cargo:rustc-link-search=native=" + d.Value
	case LinkLib:
		return "cargo:rustc-link-lib=static=" + d.Value
	case Warning:
		return "cargo:warning=" + d.Value
	}
	return fmt.Sprintf("cargo:unknown(%d)=%s", int(d.Kind), d.Value)
}
