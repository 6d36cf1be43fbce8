package token

import "fmt"

// Kind identifies what a Token represents: every terminal and every
// syntactically-distinct punctuation variant the grammar needs in order to
// drive layout purely off of kind (so the printer never has to inspect
// surrounding context to decide whether, say, a "(" opens a function call
// or an enumeration).
type Kind int

const (
	Invalid Kind = iota

	// Structural keywords.
	KwRule
	KwPrivate
	KwGlobal
	KwImport
	KwInclude
	KwMeta
	KwStrings
	KwCondition

	// String-modifier keywords.
	KwAscii
	KwWide
	KwNocase
	KwFullword
	KwXor
	KwBase64
	KwBase64Wide
	KwPrivateString

	// Condition keywords.
	KwAnd
	KwOr
	KwNot
	KwAny
	KwAll
	KwNone
	KwThem
	KwThis
	KwFor
	KwIn
	KwOf
	KwEntrypoint
	KwFilesize
	KwMatches
	KwContains
	KwIContains
	KwStartswith
	KwIStartswith
	KwEndswith
	KwIEndswith
	KwIEquals
	KwAt
	KwTrue
	KwFalse
	KwIntN
	KwUIntN
	KwDefined

	// Literals.
	Identifier
	StringLiteral
	RegexpLiteral
	HexStringStart
	IntLiteral
	DoubleLiteral
	StringID       // $id
	StringIDWild   // $id*
	StringLength   // !id
	StringCount    // #id
	StringOffset   // @id
	TagValue
	IncludePath

	// Punctuation — split by formatting role so layout can be driven by
	// kind alone.
	LParen           // "(" of a parenthesized group
	LParenCall       // "(" opening a function-call argument list
	LParenEnum       // "(" opening an enumeration e.g. of-expr set
	RParen
	RParenCall
	RParenEnum
	LBrace           // "{" opening a rule body
	RBrace
	LBracket         // "[" of array access / hex jump
	RBracket
	LBraceHex        // "{" opening a hex string
	RBraceHex
	Comma
	Colon
	Dot
	Semicolon
	Assign
	Minus
	Plus
	Star
	Slash
	Percent
	Tilde
	Caret
	Amp
	Pipe
	Shl
	Shr
	Eq
	Neq
	Lt
	Le
	Gt
	Ge
	Hash
	Bang
	Dollar
	DotDot // ".." range operator

	// Hex string units.
	HexNibble
	HexWildcard
	HexJumpOpen
	HexJumpClose
	HexAltPipe

	// Regexp body text, emitted as raw source without spacing.
	RegexpBody

	// Whitespace / comment / structure.
	Newline
	LineComment
	BlockComment

	// End of input.
	EOF
)

var names = [...]string{
	Invalid:         "Invalid",
	KwRule:          "rule",
	KwPrivate:       "private",
	KwGlobal:        "global",
	KwImport:        "import",
	KwInclude:       "include",
	KwMeta:          "meta",
	KwStrings:       "strings",
	KwCondition:     "condition",
	KwAscii:         "ascii",
	KwWide:          "wide",
	KwNocase:        "nocase",
	KwFullword:      "fullword",
	KwXor:           "xor",
	KwBase64:        "base64",
	KwBase64Wide:    "base64wide",
	KwPrivateString: "private",
	KwAnd:           "and",
	KwOr:            "or",
	KwNot:           "not",
	KwAny:           "any",
	KwAll:           "all",
	KwNone:          "none",
	KwThem:          "them",
	KwThis:          "this",
	KwFor:           "for",
	KwIn:            "in",
	KwOf:            "of",
	KwEntrypoint:    "entrypoint",
	KwFilesize:      "filesize",
	KwMatches:       "matches",
	KwContains:      "contains",
	KwIContains:     "icontains",
	KwStartswith:    "startswith",
	KwIStartswith:   "istartswith",
	KwEndswith:      "endswith",
	KwIEndswith:     "iendswith",
	KwIEquals:       "iequals",
	KwAt:            "at",
	KwTrue:          "true",
	KwFalse:         "false",
	KwIntN:          "intN",
	KwUIntN:         "uintN",
	KwDefined:       "defined",
	Identifier:      "identifier",
	StringLiteral:   "string-literal",
	RegexpLiteral:   "regexp-literal",
	HexStringStart:  "hex-string",
	IntLiteral:      "int-literal",
	DoubleLiteral:   "double-literal",
	StringID:        "$id",
	StringIDWild:    "$id*",
	StringLength:    "!id",
	StringCount:     "#id",
	StringOffset:    "@id",
	TagValue:        "tag",
	IncludePath:     "include-path",
	LParen:          "(",
	LParenCall:      "(",
	LParenEnum:      "(",
	RParen:          ")",
	RParenCall:      ")",
	RParenEnum:      ")",
	LBrace:          "{",
	RBrace:          "}",
	LBracket:        "[",
	RBracket:        "]",
	LBraceHex:       "{",
	RBraceHex:       "}",
	Comma:           ",",
	Colon:           ":",
	Dot:             ".",
	Semicolon:       ";",
	Assign:          "=",
	Minus:           "-",
	Plus:            "+",
	Star:            "*",
	Slash:           "/",
	Percent:         "%",
	Tilde:           "~",
	Caret:           "^",
	Amp:             "&",
	Pipe:            "|",
	Shl:             "<<",
	Shr:             ">>",
	Eq:              "==",
	Neq:             "!=",
	Lt:              "<",
	Le:              "<=",
	Gt:              ">",
	Ge:              ">=",
	Hash:            "#",
	Bang:            "!",
	Dollar:          "$",
	DotDot:          "..",
	HexNibble:       "hex-nibble",
	HexWildcard:     "??",
	HexJumpOpen:     "[",
	HexJumpClose:    "]",
	HexAltPipe:      "|",
	RegexpBody:      "regexp-body",
	Newline:         "\n",
	LineComment:     "//-comment",
	BlockComment:    "/*-comment",
	EOF:             "EOF",
}

// String implements fmt.Stringer. Every Kind used by the lexer/parser has
// an entry in the table above; an unrecognized value indicates a bug.
func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(names) && names[k] != "" {
		return names[k]
	}
	return fmt.Sprintf("token.Kind(%d)", int(k))
}

// IsSkippable reports whether this kind is insignificant to grammar
// analysis (whitespace/comments), matching the IsSkippable predicate the
// scanner/parser boundary uses to decide which tokens the grammar sees
// directly versus which are only used for formatting and comment
// attribution.
func (k Kind) IsSkippable() bool {
	return k == Newline || k == LineComment || k == BlockComment
}

// IsOpenBracket reports whether k opens a bracketed region that the
// formatter's auto-format pass tracks as a potential new-line sector.
func (k Kind) IsOpenBracket() bool {
	switch k {
	case LParen, LParenCall, LParenEnum, LBrace, LBraceHex, LBracket:
		return true
	default:
		return false
	}
}

// MatchingClose returns the close-bracket Kind paired with an open-bracket
// Kind, and whether k was in fact an open bracket.
func (k Kind) MatchingClose() (Kind, bool) {
	switch k {
	case LParen:
		return RParen, true
	case LParenCall:
		return RParenCall, true
	case LParenEnum:
		return RParenEnum, true
	case LBrace:
		return RBrace, true
	case LBraceHex:
		return RBraceHex, true
	case LBracket:
		return RBracket, true
	default:
		return Invalid, false
	}
}
