package ast

import (
	"fmt"

	"github.com/yaramod/yaramod-go/literal"
	"github.com/yaramod/yaramod-go/symbol"
	"github.com/yaramod/yaramod-go/token"
)

// Import is one `import "name"` statement.
type Import struct {
	Name  string
	Token token.Token
}

// YaraFile is the top-level container: an ordered, de-duplicated import
// list, an ordered rule list, the single shared token.Stream backing every
// Rule and Expr in the file, and the globally-available symbols (built-in
// keyword variables and antivirus-verdict-style file metadata).
type YaraFile struct {
	Stream  *token.Stream
	Imports []Import
	Rules   []*Rule

	// Globals holds symbols available in every rule's condition without an
	// import: antivirus verdict variables and file-level metadata, keyed
	// by name.
	Globals map[string]*symbol.Symbol
}

// NewYaraFile returns an empty YaraFile with a fresh token stream.
func NewYaraFile() *YaraFile {
	return &YaraFile{Stream: token.New(), Globals: map[string]*symbol.Symbol{}}
}

// AddImport appends name to the import list unless already present,
// returning whether it was newly added.
func (f *YaraFile) AddImport(name string) bool {
	for _, imp := range f.Imports {
		if imp.Name == name {
			return false
		}
	}
	tok := f.Stream.EmplaceBack(token.KwImport, literal.Literal{})
	f.Stream.EmplaceBack(token.StringLiteral, literal.NewString(name, true))
	f.Stream.EmplaceBack(token.Newline, literal.Literal{})
	f.Imports = append(f.Imports, Import{Name: name, Token: tok})
	return true
}

// RemoveImport removes name from the import list, if present.
func (f *YaraFile) RemoveImport(name string) {
	for i, imp := range f.Imports {
		if imp.Name == name {
			f.Imports = append(f.Imports[:i], f.Imports[i+1:]...)
			return
		}
	}
}

// InsertRule inserts rule at position i (appending if i >= len(Rules)).
func (f *YaraFile) InsertRule(i int, rule *Rule) {
	if i < 0 || i > len(f.Rules) {
		i = len(f.Rules)
	}
	f.Rules = append(f.Rules, nil)
	copy(f.Rules[i+1:], f.Rules[i:])
	f.Rules[i] = rule
}

// AddRule appends rule to the end of the file.
func (f *YaraFile) AddRule(rule *Rule) { f.Rules = append(f.Rules, rule) }

// RemoveRule removes the named rule, if present, returning whether it was
// found.
func (f *YaraFile) RemoveRule(name string) bool {
	for i, r := range f.Rules {
		if r.Name == name {
			f.Rules = append(f.Rules[:i], f.Rules[i+1:]...)
			return true
		}
	}
	return false
}

// FindRule returns the named rule, if present.
func (f *YaraFile) FindRule(name string) (*Rule, bool) {
	for _, r := range f.Rules {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// FindSymbol resolves name first against rule names (returned as a
// symbol.Bool value), then against Globals. Imported modules' root
// structures are not searched.
func (f *YaraFile) FindSymbol(name string) (*symbol.Symbol, error) {
	if _, ok := f.FindRule(name); ok {
		return symbol.NewValue(name, symbol.Bool), nil
	}
	if g, ok := f.Globals[name]; ok {
		return g, nil
	}
	return nil, fmt.Errorf("ast: unresolved symbol %q", name)
}
