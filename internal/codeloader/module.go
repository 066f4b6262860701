// Package codeloader makes a content-addressed code tree appear as a
// module namespace to the resolver (spec.md §4.5). Per spec.md §9's design
// note, it is rendered as a registry-backed loader rather than a dynamic
// language interpreter: leaf modules "run" by invoking a pre-registered Go
// Factory instead of executing interpreted source.
package codeloader

import "context"

// Module is one loaded, cached module: an attribute table a Factory
// populated during Init, addressable by the fully-qualified name that
// produced it.
type Module struct {
	Name  string
	attrs map[string]any
}

// Attr looks up an exported attribute by name.
func (m *Module) Attr(name string) (any, bool) {
	v, ok := m.attrs[name]
	return v, ok
}

// Factory initializes a module's attribute table from its init blob's DSL
// content. The host pre-registers one Factory per recognized init content
// string, mirroring how the Python loader executes a package's __init__.
type Factory func(ctx context.Context, fqn string) (map[string]any, error)
