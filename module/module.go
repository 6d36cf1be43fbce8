package module

import (
	"fmt"
	"strings"
	"sync"

	"github.com/yaramod/yaramod-go/symbol"
)

// Module is a named schema loadable by `import "name"`, lazily built from
// zero or more schema documents the first time it is looked up.
type Module struct {
	name string

	once sync.Once
	root *symbol.Structure
	err  error

	docs []SchemaNode
}

// Name returns the module's name, as used in `import "name"`.
func (m *Module) Name() string { return m.name }

// Root returns the module's root Structure, building it from its schema
// documents on first access. Loading is idempotent: subsequent calls
// return the same Structure without re-parsing.
func (m *Module) Root() (*symbol.Structure, error) {
	m.once.Do(func() {
		root := symbol.NewStructureBody()
		refs := map[string]*symbol.Symbol{}

		// A top-level struct document describes the module itself: its
		// attributes become the root's attributes.
		var nodes []SchemaNode
		for _, doc := range m.docs {
			if doc.Kind == "struct" {
				nodes = append(nodes, doc.Attributes...)
			} else {
				nodes = append(nodes, doc)
			}
		}
		for _, doc := range nodes {
			sym, err := buildSymbol(doc)
			if err != nil {
				m.err = err
				return
			}
			if sym.Kind() == symbol.KindReference {
				refs[sym.Name()] = sym
			}
			if err := root.AddAttr(sym); err != nil {
				m.err = fmt.Errorf("module %s: %w", m.name, err)
				return
			}
		}

		for _, ref := range refs {
			target, err := resolvePath(root, ref.RefPath())
			if err != nil {
				m.err = fmt.Errorf("module %s: reference %q: %w", m.name, ref.Name(), err)
				return
			}
			ref.Resolve(target)
		}

		m.root = root
	})
	return m.root, m.err
}

// resolvePath walks a dotted path ("pe.sections") against root, resolving
// through nested structures and dereferencing intermediate references.
func resolvePath(root *symbol.Structure, path string) (*symbol.Symbol, error) {
	parts := strings.Split(path, ".")
	cur := root
	var sym *symbol.Symbol
	for i, part := range parts {
		s, ok := cur.Attr(part)
		if !ok {
			return nil, fmt.Errorf("unresolved reference path component %q", part)
		}
		sym = s
		if i < len(parts)-1 {
			cur = s.Structure()
			if cur == nil {
				return nil, fmt.Errorf("path component %q does not name a structure", part)
			}
		}
	}
	return sym, nil
}
