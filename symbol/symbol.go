// Package symbol implements the typed module-schema catalogue that
// condition expressions resolve identifiers against: values, arrays,
// dictionaries, overloaded functions, structures, and cross-module
// references.
package symbol

import "fmt"

// Type is the value type a Symbol resolves to in a condition expression.
type Type int

const (
	Undefined Type = iota
	Bool
	Int
	String
	Regexp
	Object
	Float
)

func (t Type) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case String:
		return "string"
	case Regexp:
		return "regexp"
	case Object:
		return "object"
	case Float:
		return "float"
	default:
		return "undefined"
	}
}

// Kind distinguishes which Symbol variant a value is.
type Kind int

const (
	KindValue Kind = iota
	KindArray
	KindDictionary
	KindFunction
	KindStructure
	KindReference
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindArray:
		return "array"
	case KindDictionary:
		return "dictionary"
	case KindFunction:
		return "function"
	case KindStructure:
		return "structure"
	case KindReference:
		return "reference"
	default:
		return "unknown"
	}
}

// Symbol is a discriminated union over the six kinds of schema entries a
// module (or a nested structure) can carry.
type Symbol struct {
	name string
	kind Kind

	// KindValue
	valueType Type

	// KindArray / KindDictionary
	elementType Type
	elementStruct *Structure // non-nil iff elementType == Object

	// KindFunction
	returnType Type
	overloads  []Overload

	// KindStructure
	structure *Structure

	// KindReference
	refPath string
	resolved *Symbol
}

// Name returns the symbol's bound name.
func (s *Symbol) Name() string { return s.name }

// Kind returns which variant s is.
func (s *Symbol) Kind() Kind { return s.kind }

// NewValue constructs a KindValue Symbol of the given type.
func NewValue(name string, typ Type) *Symbol {
	return &Symbol{name: name, kind: KindValue, valueType: typ}
}

// ValueType returns the type of a KindValue Symbol.
func (s *Symbol) ValueType() Type { return s.valueType }

// NewArray constructs a KindArray Symbol whose elements have the given
// type. If elemType is Object, elemStruct describes the element shape.
func NewArray(name string, elemType Type, elemStruct *Structure) *Symbol {
	return &Symbol{name: name, kind: KindArray, elementType: elemType, elementStruct: elemStruct}
}

// NewDictionary constructs a KindDictionary Symbol analogous to NewArray.
func NewDictionary(name string, elemType Type, elemStruct *Structure) *Symbol {
	return &Symbol{name: name, kind: KindDictionary, elementType: elemType, elementStruct: elemStruct}
}

// ElementType returns the element type of a KindArray/KindDictionary Symbol.
func (s *Symbol) ElementType() Type { return s.elementType }

// ElementStructure returns the element shape of a KindArray/KindDictionary
// Symbol whose ElementType is Object, or nil.
func (s *Symbol) ElementStructure() *Structure { return s.elementStruct }

// Argument is one named, typed parameter of a function Overload.
type Argument struct {
	Name string // may be empty
	Type Type
}

// Overload is one signature of an overloaded Function symbol.
type Overload struct {
	Arguments []Argument
	Doc       string
}

// sameArgs reports whether two overloads have identical argument-type
// vectors (names are not significant to overload identity).
func sameArgs(a, b []Argument) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type {
			return false
		}
	}
	return true
}

// NewFunction constructs a KindFunction Symbol with the given return type
// and overloads. It panics if two overloads share an identical
// argument-type vector, since spec.md requires overload equality to be
// checked on the argument-type vector alone (§3 Symbol, §8).
func NewFunction(name string, returnType Type, overloads ...Overload) *Symbol {
	for i := range overloads {
		for j := i + 1; j < len(overloads); j++ {
			if sameArgs(overloads[i].Arguments, overloads[j].Arguments) {
				panic(fmt.Sprintf("symbol: function %q has duplicate overload", name))
			}
		}
	}
	return &Symbol{name: name, kind: KindFunction, returnType: returnType, overloads: append([]Overload(nil), overloads...)}
}

// ReturnType returns the return type of a KindFunction Symbol.
func (s *Symbol) ReturnType() Type { return s.returnType }

// Overloads returns the overload list of a KindFunction Symbol.
func (s *Symbol) Overloads() []Overload { return s.overloads }

// AddOverload appends a new overload to a KindFunction Symbol. It returns
// an error if the new argument-type vector duplicates an existing one. It
// does not compare return types; Structure.AddAttr checks those before it
// merges overloads.
func (s *Symbol) AddOverload(o Overload) error {
	for _, existing := range s.overloads {
		if sameArgs(existing.Arguments, o.Arguments) {
			return fmt.Errorf("symbol: overload for %q with this argument vector already exists", s.name)
		}
	}
	s.overloads = append(s.overloads, o)
	return nil
}

// ResolveOverload returns the overload whose argument types are pairwise
// assignable from argTypes, or ok=false if no overload matches.
func (s *Symbol) ResolveOverload(argTypes []Type) (Overload, bool) {
outer:
	for _, o := range s.overloads {
		if len(o.Arguments) != len(argTypes) {
			continue
		}
		for i, a := range o.Arguments {
			if !assignable(argTypes[i], a.Type) {
				continue outer
			}
		}
		return o, true
	}
	return Overload{}, false
}

func assignable(have, want Type) bool {
	if have == want {
		return true
	}
	// Int widens to Float.
	return have == Int && want == Float
}

// NewStructure constructs an empty KindStructure Symbol.
func NewStructure(name string) *Symbol {
	return &Symbol{name: name, kind: KindStructure, structure: NewStructureBody()}
}

// Structure returns the attribute map of a KindStructure Symbol, or of a
// KindReference Symbol once resolved.
func (s *Symbol) Structure() *Structure {
	if s.kind == KindReference && s.resolved != nil {
		return s.resolved.Structure()
	}
	return s.structure
}

// NewReference constructs a KindReference Symbol pointing at refPath (a
// dotted path resolved against the owning module's root Structure).
func NewReference(name, refPath string) *Symbol {
	return &Symbol{name: name, kind: KindReference, refPath: refPath}
}

// RefPath returns the dotted path of a KindReference Symbol.
func (s *Symbol) RefPath() string { return s.refPath }

// Resolve binds a KindReference Symbol to the Symbol it names.
func (s *Symbol) Resolve(target *Symbol) { s.resolved = target }

// Resolved returns the Symbol a KindReference Symbol has been bound to, or
// nil if unresolved.
func (s *Symbol) Resolved() *Symbol { return s.resolved }

// Structure is a name -> Symbol attribute map enforcing name uniqueness,
// except that adding a Function attribute whose name matches an existing
// Function merges overloads when the return types agree (spec.md §4.3).
type Structure struct {
	attrs map[string]*Symbol
	order []string

	// seen is not read by any method. AddAttr rejects a second
	// non-function attribute under an existing name, so a structure that
	// a second schema document describes again is an error, not an
	// extension of the first.
	seen map[*Structure]bool
}

// NewStructureBody returns an empty Structure.
func NewStructureBody() *Structure {
	return &Structure{attrs: make(map[string]*Symbol)}
}

// Attr looks up an attribute by name.
func (s *Structure) Attr(name string) (*Symbol, bool) {
	sym, ok := s.attrs[name]
	return sym, ok
}

// Attrs returns every attribute, in the order they were added.
func (s *Structure) Attrs() []*Symbol {
	out := make([]*Symbol, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.attrs[name])
	}
	return out
}

// AddAttr adds sym as an attribute of s. It fails unless the name is
// unused, or sym and the existing attribute are both KindFunction symbols
// with matching return types -- in which case the new overloads are
// merged into the existing Function symbol and sym itself is discarded.
func (s *Structure) AddAttr(sym *Symbol) error {
	existing, ok := s.attrs[sym.name]
	if !ok {
		s.attrs[sym.name] = sym
		s.order = append(s.order, sym.name)
		return nil
	}

	if existing.kind != KindFunction || sym.kind != KindFunction {
		return fmt.Errorf("symbol: attribute %q already defined with kind %s", sym.name, existing.kind)
	}
	if existing.returnType != sym.returnType {
		return fmt.Errorf("symbol: function %q redeclared with different return type %s (was %s)", sym.name, sym.returnType, existing.returnType)
	}
	for _, o := range sym.overloads {
		if err := existing.AddOverload(o); err != nil {
			return err
		}
	}
	return nil
}
