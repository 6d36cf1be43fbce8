package ast

import (
	"strings"

	"github.com/yaramod/yaramod-go/hexstring"
	"github.com/yaramod/yaramod-go/regexp"
	"github.com/yaramod/yaramod-go/token"
)

// Modifier is the bitmask of flags a string definition may carry.
type Modifier uint16

const (
	ModAscii Modifier = 1 << iota
	ModWide
	ModNocase
	ModFullword
	ModXor
	ModBase64
	ModBase64Wide
	ModPrivate
)

func (m Modifier) Has(f Modifier) bool { return m&f != 0 }

// StringKind discriminates the three sibling string representations.
type StringKind int

const (
	Plain StringKind = iota
	Hex
	Regexp
)

// String is a named pattern definition from a rule's strings section: one
// of the three sibling representations (plain/hex/regexp) sharing a common
// modifier set.
type String struct {
	Identifier string // without the leading "$"
	Kind       StringKind

	// Plain
	Text    string // unescaped match bytes
	Escaped string // bytes as spelled in source

	// Hex
	HexUnits []hexstring.Unit

	// Regexp
	Pattern *regexp.Node
	// RegexFlags is the "i"/"s" suffix spelled directly after the closing
	// "/", as opposed to a modifier keyword.
	RegexFlags string

	Modifiers Modifier

	// XorKey / XorLow / XorHigh: set when Modifiers.Has(ModXor). If no
	// explicit key/range was given, all are zero and the xor is over the
	// full byte range (the YARA default).
	XorKey           *byte
	XorLow, XorHigh  int
	XorHasRange      bool

	// Base64Alphabet is set when Modifiers.Has(ModBase64 | ModBase64Wide)
	// and an explicit alphabet literal was supplied.
	Base64Alphabet string

	// ModifierTokens records, in source order, the tokens that spelled out
	// each modifier, so the printer can reproduce the exact modifier
	// order and any interleaved comments (spec.md §4.5, Open Questions).
	ModifierTokens []token.Token

	First, Last token.Token
}

// HexLength returns the hex string's minimum byte length (spec.md §4.5,
// §8 scenario 4). Only meaningful when Kind == Hex.
func (s *String) HexLength() int {
	return hexstring.Length(s.HexUnits)
}

// PatternText renders the string definition's pattern (the part after
// `$id =`) without its modifiers: the quoted text, the braced hex units, or
// the slash-delimited regexp followed by its flags.
func (s *String) PatternText() string {
	switch s.Kind {
	case Plain:
		return quotePlain(s.Escaped)
	case Hex:
		return "{ " + hexstring.Text(s.HexUnits) + " }"
	case Regexp:
		return "/" + s.Pattern.SourceText() + "/" + s.RegexFlags
	default:
		return ""
	}
}

func quotePlain(escaped string) string {
	var b strings.Builder
	b.WriteByte('"')
	b.WriteString(escaped)
	b.WriteByte('"')
	return b.String()
}

// ModifierText renders the modifier suffix, e.g. " wide nocase".
func (s *String) ModifierText() string {
	var parts []string
	add := func(f Modifier, name string) {
		if s.Modifiers.Has(f) {
			parts = append(parts, name)
		}
	}
	add(ModAscii, "ascii")
	add(ModWide, "wide")
	add(ModNocase, "nocase")
	add(ModFullword, "fullword")
	if s.Modifiers.Has(ModXor) {
		parts = append(parts, "xor")
	}
	add(ModBase64, "base64")
	add(ModBase64Wide, "base64wide")
	add(ModPrivate, "private")
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

// Text renders the full definition: `$id = pattern modifiers`.
func (s *String) Text() string {
	return "$" + s.Identifier + " = " + s.PatternText() + s.ModifierText()
}
