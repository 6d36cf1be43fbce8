// Package literal implements the Literal value used throughout yaramod-go:
// a small tagged union of the scalar types that can appear in rule metadata,
// string definitions, and conditions, plus an optional formatted-text
// override that preserves how a value was spelled in source (0x2A vs 42,
// 100KB vs 102400, 1.5e3 vs 1500).
package literal

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

// foldCaser performs Unicode-aware case folding, used to normalize string
// literals for the condition language's case-insensitive text predicates
// (iequals/icontains/istartswith/iendswith). cases.Fold is locale-neutral
// and handles multi-byte case pairs (e.g. Turkish dotless i, German ß)
// correctly where a byte-wise strings.ToLower would not.
var foldCaser = cases.Fold()

// FoldCase returns s normalized for case-insensitive comparison.
func FoldCase(s string) string {
	return foldCaser.String(s)
}

// Kind identifies which variant of Literal is populated.
type Kind byte

const (
	// Invalid is the zero Kind; no Literal should ever report this.
	Invalid Kind = iota
	String
	Bool
	Int
	UInt
	Float
	Symbol
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case UInt:
		return "uint"
	case Float:
		return "float"
	case Symbol:
		return "symbol"
	default:
		return fmt.Sprintf("literal.Kind(%d)", int(k))
	}
}

// WrongKind is returned by the typed accessors when a Literal is queried as
// the wrong variant.
type WrongKind struct {
	Want, Have Kind
}

func (e *WrongKind) Error() string {
	return fmt.Sprintf("literal: wrong value kind: want %s, have %s", e.Want, e.Have)
}

// Literal is a tagged union of {string, bool, int64, uint64, float64,
// symbol} with an optional formatted-text override.
//
// The zero Literal is not valid; construct one with one of the New*
// functions.
type Literal struct {
	kind     Kind
	str      string
	b        bool
	i        int64
	u        uint64
	f        float64
	escaped  bool
	override *string
}

// NewString returns a string Literal. escaped indicates that str is the
// escaped form as it appeared in source (e.g. contains literal backslash-n),
// as opposed to the unescaped bytes the rule actually matches.
func NewString(str string, escaped bool) Literal {
	return Literal{kind: String, str: str, escaped: escaped}
}

// NewBool returns a bool Literal.
func NewBool(b bool) Literal { return Literal{kind: Bool, b: b} }

// NewInt returns a signed-integer Literal.
func NewInt(i int64) Literal { return Literal{kind: Int, i: i} }

// NewUInt returns an unsigned-integer Literal.
func NewUInt(u uint64) Literal { return Literal{kind: UInt, u: u} }

// NewFloat returns a floating-point Literal.
func NewFloat(f float64) Literal { return Literal{kind: Float, f: f} }

// NewSymbol returns a Literal that refers to a bound name (an identifier,
// module name, or rule name) rather than holding a scalar value itself.
func NewSymbol(name string) Literal { return Literal{kind: Symbol, str: name} }

// WithFormattedText returns a copy of l carrying an explicit formatted-text
// override, used to reproduce the exact syntactic form of a source literal.
func (l Literal) WithFormattedText(text string) Literal {
	l.override = &text
	return l
}

// Kind reports which variant l holds.
func (l Literal) Kind() Kind { return l.kind }

// IsString reports whether l holds a string.
func (l Literal) IsString() bool { return l.kind == String }

// IsBool reports whether l holds a bool.
func (l Literal) IsBool() bool { return l.kind == Bool }

// IsInt reports whether l holds a signed integer.
func (l Literal) IsInt() bool { return l.kind == Int }

// IsUInt reports whether l holds an unsigned integer.
func (l Literal) IsUInt() bool { return l.kind == UInt }

// IsFloat reports whether l holds a float.
func (l Literal) IsFloat() bool { return l.kind == Float }

// IsSymbol reports whether l holds a bound symbol name.
func (l Literal) IsSymbol() bool { return l.kind == Symbol }

// IsIntegral reports whether l holds any numeric variant (int, uint, or
// float).
func (l Literal) IsIntegral() bool {
	return l.kind == Int || l.kind == UInt || l.kind == Float
}

// StringValue returns the underlying string, or an error if l is not a
// string or symbol Literal.
func (l Literal) StringValue() (string, error) {
	if l.kind != String && l.kind != Symbol {
		return "", &WrongKind{Want: String, Have: l.kind}
	}
	return l.str, nil
}

// IsEscaped reports whether a string Literal's bytes are the escaped source
// form rather than the unescaped match bytes. Only meaningful for String.
func (l Literal) IsEscaped() bool { return l.escaped }

// BoolValue returns the underlying bool, or an error if l is not a bool.
func (l Literal) BoolValue() (bool, error) {
	if l.kind != Bool {
		return false, &WrongKind{Want: Bool, Have: l.kind}
	}
	return l.b, nil
}

// IntValue returns the underlying signed integer, or an error if l is not
// an Int.
func (l Literal) IntValue() (int64, error) {
	if l.kind != Int {
		return 0, &WrongKind{Want: Int, Have: l.kind}
	}
	return l.i, nil
}

// UIntValue returns the underlying unsigned integer, or an error if l is
// not a UInt.
func (l Literal) UIntValue() (uint64, error) {
	if l.kind != UInt {
		return 0, &WrongKind{Want: UInt, Have: l.kind}
	}
	return l.u, nil
}

// FloatValue returns the underlying float, or an error if l is not a Float.
func (l Literal) FloatValue() (float64, error) {
	if l.kind != Float {
		return 0, &WrongKind{Want: Float, Have: l.kind}
	}
	return l.f, nil
}

// AsFloat64 returns the numeric value of l widened to float64, for any
// integral variant.
func (l Literal) AsFloat64() (float64, error) {
	switch l.kind {
	case Int:
		return float64(l.i), nil
	case UInt:
		return float64(l.u), nil
	case Float:
		return l.f, nil
	default:
		return 0, &WrongKind{Want: Float, Have: l.kind}
	}
}

// Text returns the human-readable emission form of l: the formatted-text
// override when present, otherwise a canonical rendering.
func (l Literal) Text() string {
	if l.override != nil {
		return *l.override
	}
	return l.canonicalText(true)
}

// PureText is like Text but never wraps a string value in quotes.
func (l Literal) PureText() string {
	if l.override != nil && l.kind != String {
		return *l.override
	}
	return l.canonicalText(false)
}

func (l Literal) canonicalText(quoteStrings bool) string {
	switch l.kind {
	case String:
		if !quoteStrings {
			return l.str
		}
		return quoteString(l.str)
	case Bool:
		if l.b {
			return "true"
		}
		return "false"
	case Int:
		return strconv.FormatInt(l.i, 10)
	case UInt:
		return strconv.FormatUint(l.u, 10)
	case Float:
		return formatFloat(l.f)
	case Symbol:
		return l.str
	default:
		return ""
	}
}

// formatFloat guarantees a fractional point is present, per spec.
func formatFloat(f float64) string {
	if math.Trunc(f) == f && !math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func quoteString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
