package ast

import "github.com/yaramod/yaramod-go/internal/trie"

// StringTable is a rule's strings section: a prefix trie keyed by string
// identifier (without the leading "$") so that wildcarded references
// ($prefix*) resolve by longest-common-prefix lookup, per spec.md §3 Rule.
type StringTable struct {
	t     trie.Trie[*String]
	order []string
}

// NewStringTable returns an empty StringTable.
func NewStringTable() *StringTable { return &StringTable{} }

// Add registers s under its own identifier. It is an error (reported by
// the caller, typically the parser) to add two strings with the same
// identifier in one rule.
func (t *StringTable) Add(s *String) {
	t.t.Insert(s.Identifier, s)
	t.order = append(t.order, s.Identifier)
}

// Get resolves an exact identifier to its String.
func (t *StringTable) Get(id string) (*String, bool) {
	return t.t.Get(id)
}

// ResolveWildcard resolves a "$prefix*" reference to every String whose
// identifier begins with prefix. A wildcard that matches nothing is an
// error the caller must report (spec.md §4.6).
func (t *StringTable) ResolveWildcard(prefix string) []*String {
	matches := t.t.WithPrefix(prefix)
	out := make([]*String, len(matches))
	for i, m := range matches {
		out[i] = m.Value
	}
	return out
}

// All returns every string definition, in declaration order.
func (t *StringTable) All() []*String {
	out := make([]*String, 0, len(t.order))
	for _, id := range t.order {
		s, _ := t.t.Get(id)
		out = append(out, s)
	}
	return out
}
