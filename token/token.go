package token

import (
	"fmt"

	"github.com/yaramod/yaramod-go/literal"
)

// Pos identifies a location in a source file, following the same
// line/column bookkeeping model taught by protocompile's FileInfo.SourcePos.
type Pos struct {
	File string
	Line int // 1-indexed
	Col  int // 1-indexed
}

func (p Pos) String() string {
	if p.Line <= 0 {
		return p.File
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

// Flag carries per-token formatting hints that aren't captured by Kind
// alone (e.g. "this left-paren should force a new-line sector").
type Flag uint8

const (
	// FlagNewlineSector marks an open bracket whose matching close bracket
	// should each sit on their own line, as decided by the printer's mark
	// pass (spec.md §4.2 Auto-format).
	FlagNewlineSector Flag = 1 << iota
	// FlagHadNewlineBefore records that, in the original source, there was
	// a line break between this token and its predecessor. Used to decide
	// whether re-indentation on insertion should add a line or not.
	FlagHadNewlineBefore
)

// node is the linked-list cell backing a Token handle. Arena-allocated so
// that *node pointers (which are what Token actually wraps) never move,
// even while the stream keeps growing or splicing.
type node struct {
	stream *Stream
	prev, next *node

	kind    Kind
	lit     literal.Literal
	pos     Pos
	indent  int
	flags   Flag

	// subStream holds an included file's token stream, when this token is
	// the synthetic "include" token standing in for the whole sub-file.
	subStream *Stream
}

// Token is a handle to one lexeme inside a Stream. It remains valid for the
// lifetime of the Stream, even across insertions and erasures elsewhere in
// that Stream -- the defining property token-linked AST nodes rely on.
type Token struct {
	n *node
}

// Zero is the invalid Token handle.
var Zero Token

// Valid reports whether t refers to a live node.
func (t Token) Valid() bool { return t.n != nil }

// Kind returns the token's classification.
func (t Token) Kind() Kind { return t.n.kind }

// Literal returns the scalar value carried by the token, if any.
func (t Token) Literal() literal.Literal { return t.n.lit }

// SetLiteral overwrites the token's literal value in place. Used by visitors
// that replace a leaf value without needing a full splice (e.g. the classic
// "bump every IntLiteral(10) to IntLiteral(111)" rewrite).
func (t Token) SetLiteral(l literal.Literal) { t.n.lit = l }

// Pos returns the token's source position.
func (t Token) Pos() Pos { return t.n.pos }

// Indent returns the indentation hint computed for this token by the last
// auto-format pass (0 if none has run).
func (t Token) Indent() int { return t.n.indent }

// Flags returns the formatting flags attached to this token.
func (t Token) Flags() Flag { return t.n.flags }

// HasFlag reports whether f is set on this token.
func (t Token) HasFlag(f Flag) bool { return t.n.flags&f != 0 }

// SetFlag sets f on this token.
func (t Token) SetFlag(f Flag) { t.n.flags |= f }

// ClearFlag clears f on this token.
func (t Token) ClearFlag(f Flag) { t.n.flags &^= f }

// SetIndent overwrites the indentation hint.
func (t Token) SetIndent(n int) { t.n.indent = n }

// SubStream returns the token's attached sub-stream (for an include
// directive standing in for an entire included file), or nil.
func (t Token) SubStream() *Stream { return t.n.subStream }

// SetSubStream attaches an included file's stream to this token.
func (t Token) SetSubStream(s *Stream) { t.n.subStream = s }

// Text returns the emission text for this token: the literal's formatted
// text for literal-bearing kinds, otherwise the canonical spelling of kind.
func (t Token) Text() string {
	switch t.n.kind {
	case Identifier, TagValue, IncludePath, RegexpBody, HexNibble, HexWildcard, LineComment, BlockComment:
		return t.n.lit.PureText()
	case StringLiteral, RegexpLiteral:
		return t.n.lit.Text()
	case IntLiteral, DoubleLiteral:
		return t.n.lit.Text()
	case StringID:
		return "$" + t.n.lit.PureText()
	case StringIDWild:
		return "$" + t.n.lit.PureText() + "*"
	case StringCount:
		return "#" + t.n.lit.PureText()
	case StringOffset:
		return "@" + t.n.lit.PureText()
	case StringLength:
		return "!" + t.n.lit.PureText()
	default:
		return t.n.kind.String()
	}
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", t.n.kind, t.Text(), t.n.pos)
}

// Stream containing t, or nil if t is the zero Token.
func (t Token) Stream() *Stream {
	if t.n == nil {
		return nil
	}
	return t.n.stream
}

// Equal reports whether t and o refer to the exact same token.
func (t Token) Equal(o Token) bool { return t.n == o.n }
