package module

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yaramod/yaramod-go/symbol"
)

// SchemaNode is the common intermediate representation that both the JSON
// and YAML module-schema front ends decode into, so the rest of the loader
// never has to care which format a given document was written in (spec.md
// §4.4/§6 and SPEC_FULL.md §4.4).
type SchemaNode struct {
	Kind       string       `json:"kind" yaml:"kind"`
	Name       string       `json:"name" yaml:"name"`
	Type       string       `json:"type" yaml:"type"`
	Deprecated string       `json:"deprecated" yaml:"deprecated"`
	Path       string       `json:"path" yaml:"path"`
	Attributes []SchemaNode `json:"attributes" yaml:"attributes"`
	ReturnType string       `json:"return_type" yaml:"return_type"`
	Overloads  []schemaOverload `json:"overloads" yaml:"overloads"`
	// Version is a module-root document's minimum required yaramod-go
	// version, e.g. "1.2.0" (SPEC_FULL.md §4.11). Only meaningful on the
	// top-level struct node; ignored on nested attribute nodes.
	Version string `json:"version" yaml:"version"`
	// Element describes the element type for array/dictionary kinds. When
	// the element type is "object", ElementStructure gives its shape.
	Element          string       `json:"element_type" yaml:"element_type"`
	ElementStructure []SchemaNode `json:"element_structure" yaml:"element_structure"`
}

type schemaOverload struct {
	Arguments []schemaArgument `json:"arguments" yaml:"arguments"`
	Doc       string           `json:"doc" yaml:"doc"`
}

type schemaArgument struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// decodeSchema parses a module schema document, sniffing JSON vs YAML from
// the file extension.
func decodeSchema(path string, data []byte) (SchemaNode, error) {
	var root SchemaNode
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &root); err != nil {
			return SchemaNode{}, fmt.Errorf("module: parsing %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &root); err != nil {
			return SchemaNode{}, fmt.Errorf("module: parsing %s: %w", path, err)
		}
	}
	return root, nil
}

func parseType(s string) (symbol.Type, error) {
	switch s {
	case "", "undefined":
		return symbol.Undefined, nil
	case "bool":
		return symbol.Bool, nil
	case "int":
		return symbol.Int, nil
	case "string":
		return symbol.String, nil
	case "regexp":
		return symbol.Regexp, nil
	case "object":
		return symbol.Object, nil
	case "float":
		return symbol.Float, nil
	default:
		return symbol.Undefined, fmt.Errorf("module: unknown type %q", s)
	}
}

// buildSymbol converts one SchemaNode (and, recursively, its attributes)
// into a *symbol.Symbol. References are returned unresolved; resolving
// them against the owning module's root is the caller's job (see
// Module.Root, which resolves them through resolvePath), since a reference
// may point forward to
// an attribute not yet built.
func buildSymbol(n SchemaNode) (*symbol.Symbol, error) {
	switch n.Kind {
	case "value":
		typ, err := parseType(n.Type)
		if err != nil {
			return nil, err
		}
		return symbol.NewValue(n.Name, typ), nil

	case "array", "dictionary":
		elemType, err := parseType(n.Element)
		if err != nil {
			return nil, err
		}
		var elemStruct *symbol.Structure
		if elemType == symbol.Object {
			elemStruct = symbol.NewStructureBody()
			for _, a := range n.ElementStructure {
				attr, err := buildSymbol(a)
				if err != nil {
					return nil, err
				}
				if err := elemStruct.AddAttr(attr); err != nil {
					return nil, fmt.Errorf("module: %s: %w", n.Name, err)
				}
			}
		}
		if n.Kind == "array" {
			return symbol.NewArray(n.Name, elemType, elemStruct), nil
		}
		return symbol.NewDictionary(n.Name, elemType, elemStruct), nil

	case "function":
		retType, err := parseType(n.ReturnType)
		if err != nil {
			return nil, err
		}
		overloads := make([]symbol.Overload, 0, len(n.Overloads))
		for _, ov := range n.Overloads {
			args := make([]symbol.Argument, 0, len(ov.Arguments))
			for _, a := range ov.Arguments {
				t, err := parseType(a.Type)
				if err != nil {
					return nil, err
				}
				args = append(args, symbol.Argument{Name: a.Name, Type: t})
			}
			overloads = append(overloads, symbol.Overload{Arguments: args, Doc: ov.Doc})
		}
		var sym *symbol.Symbol
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("module: %v", r)
				}
			}()
			sym = symbol.NewFunction(n.Name, retType, overloads...)
		}()
		if err != nil {
			return nil, err
		}
		return sym, nil

	case "struct":
		s := symbol.NewStructure(n.Name)
		for _, a := range n.Attributes {
			attr, err := buildSymbol(a)
			if err != nil {
				return nil, err
			}
			if err := s.Structure().AddAttr(attr); err != nil {
				return nil, fmt.Errorf("module: %s: %w", n.Name, err)
			}
		}
		return s, nil

	case "reference":
		return symbol.NewReference(n.Name, n.Path), nil

	default:
		return nil, fmt.Errorf("module: unknown schema kind %q", n.Kind)
	}
}
