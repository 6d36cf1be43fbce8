// Package ast implements the typed condition-expression tree, the String
// variants (plain/hex/regexp) that a rule's strings section defines, and
// the Rule/YaraFile containers that tie a parsed file together.
//
// Every node is cross-linked into the token.Stream that produced it: each
// Expr knows the first and last token.Token that spell it out in source,
// so a visitor can locate (and, via the visitor package, replace) exactly
// the source text backing any subtree.
package ast

import (
	"github.com/yaramod/yaramod-go/symbol"
	"github.com/yaramod/yaramod-go/token"
)

// Expr is the sealed interface implemented by every condition-expression
// node. Concrete node types are exported structs grouped by shape (e.g.
// all six relational operators share BinaryExpr, discriminated by Op) --
// dispatch is a type switch over this closed set, never an open-ended
// virtual call chain.
type Expr interface {
	// FirstToken and LastToken return the outermost tokens this node owns;
	// together they form the closed token range [FirstToken, LastToken]
	// that this node's Text() must reproduce (up to whitespace).
	FirstToken() token.Token
	LastToken() token.Token

	// Type returns the expression's static type, as set by the parser's
	// semantic actions (or by a visitor that replaced this node).
	Type() symbol.Type
	SetType(symbol.Type)

	// Text renders the node back to its condition-language source form.
	Text() string

	isExpr()
}

type base struct {
	first, last token.Token
	typ         symbol.Type
}

func (b *base) FirstToken() token.Token { return b.first }
func (b *base) LastToken() token.Token  { return b.last }
func (b *base) Type() symbol.Type       { return b.typ }
func (b *base) SetType(t symbol.Type)   { b.typ = t }
func (*base) isExpr()                   {}

// SetSpan sets the token range owned by an Expr. Used by the parser when
// constructing a node and by the visitor framework when splicing a
// replacement node's tokens into a new position.
func SetSpan(e Expr, first, last token.Token) {
	if b, ok := e.(interface{ setSpan(token.Token, token.Token) }); ok {
		b.setSpan(first, last)
	}
}

func (b *base) setSpan(first, last token.Token) { b.first, b.last = first, last }

// BinaryOp enumerates every two-operand operator in the condition
// language: logical, relational, text predicates, arithmetic, and
// bitwise.
type BinaryOp int

const (
	And BinaryOp = iota
	Or
	Eq
	Neq
	Lt
	Le
	Gt
	Ge
	Contains
	IContains
	Matches
	StartsWith
	IStartsWith
	EndsWith
	IEndsWith
	IEquals
	Add
	Sub
	Mul
	Div
	Mod
	BitXor
	BitAnd
	BitOr
	Shl
	Shr
)

func (op BinaryOp) String() string {
	switch op {
	case And:
		return "and"
	case Or:
		return "or"
	case Eq:
		return "=="
	case Neq:
		return "!="
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	case Contains:
		return "contains"
	case IContains:
		return "icontains"
	case Matches:
		return "matches"
	case StartsWith:
		return "startswith"
	case IStartsWith:
		return "istartswith"
	case EndsWith:
		return "endswith"
	case IEndsWith:
		return "iendswith"
	case IEquals:
		return "iequals"
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "\\"
	case Mod:
		return "%"
	case BitXor:
		return "^"
	case BitAnd:
		return "&"
	case BitOr:
		return "|"
	case Shl:
		return "<<"
	case Shr:
		return ">>"
	default:
		return "?"
	}
}

// UnaryOp enumerates the three one-operand operators.
type UnaryOp int

const (
	Not UnaryOp = iota
	Negate
	BitNot
)

func (op UnaryOp) String() string {
	switch op {
	case Not:
		return "not "
	case Negate:
		return "-"
	case BitNot:
		return "~"
	default:
		return "?"
	}
}
