package ast

import (
	"fmt"
	"strings"

	"github.com/yaramod/yaramod-go/literal"
	"github.com/yaramod/yaramod-go/regexp"
	"github.com/yaramod/yaramod-go/symbol"
	"github.com/yaramod/yaramod-go/token"
)

// LiteralExpr is a bool, int, float, string, or regexp literal appearing
// directly in a condition.
type LiteralExpr struct {
	base
	Value literal.Literal
	// Regexp is non-nil only when this literal is a regexp body (as in
	// `$a matches /foo/i`); Value then carries the flags as a string.
	Regexp *regexp.Node
}

func NewLiteralExpr(v literal.Literal, typ symbol.Type, first, last token.Token) *LiteralExpr {
	e := &LiteralExpr{Value: v}
	e.typ = typ
	e.first, e.last = first, last
	return e
}

func (e *LiteralExpr) Text() string {
	if e.Regexp != nil {
		return "/" + e.Regexp.SourceText() + "/"
	}
	return e.Value.Text()
}

// StringRefKind distinguishes the eight ways a condition refers to a string
// identifier.
type StringRefKind int

const (
	RefPlain      StringRefKind = iota // $a
	RefWildcard                        // $a*
	RefAt                              // $a at expr
	RefIn                              // $a in (lo..hi)
	RefCount                           // #a
	RefOffset                          // @a or @a[i]
	RefLength                          // !a or !a[i]
	RefAnonymous                       // $ (inside a string for-loop)
)

// StringRefExpr covers every expression whose leading token is a string
// identifier sigil ($, #, @, !).
type StringRefExpr struct {
	base
	Kind  StringRefKind
	Name  string // "" for RefAnonymous
	At    Expr   // RefAt
	Lo,Hi Expr   // RefIn
	Index Expr   // RefOffset / RefLength, when an explicit [i] is given
}

func (e *StringRefExpr) Text() string {
	switch e.Kind {
	case RefPlain:
		return "$" + e.Name
	case RefWildcard:
		return "$" + e.Name + "*"
	case RefAt:
		return "$" + e.Name + " at " + e.At.Text()
	case RefIn:
		return "$" + e.Name + " in (" + e.Lo.Text() + ".." + e.Hi.Text() + ")"
	case RefCount:
		return "#" + e.Name
	case RefOffset:
		if e.Index != nil {
			return "@" + e.Name + "[" + e.Index.Text() + "]"
		}
		return "@" + e.Name
	case RefLength:
		if e.Index != nil {
			return "!" + e.Name + "[" + e.Index.Text() + "]"
		}
		return "!" + e.Name
	case RefAnonymous:
		return "$"
	default:
		return ""
	}
}

// UnaryExpr is `not x`, `-x`, or `~x`.
type UnaryExpr struct {
	base
	Op      UnaryOp
	Operand Expr
}

func (e *UnaryExpr) Text() string { return e.Op.String() + e.Operand.Text() }

// BinaryExpr covers every two-operand operator: logical and/or, the six
// relational operators, the text predicates, arithmetic, and bitwise.
type BinaryExpr struct {
	base
	Op          BinaryOp
	Left, Right Expr
}

func (e *BinaryExpr) Text() string {
	return e.Left.Text() + " " + e.Op.String() + " " + e.Right.Text()
}

// ConstantFold evaluates a case-insensitive text predicate (iequals/
// icontains/istartswith/iendswith) when both operands are string literals,
// normalizing each side with literal.FoldCase before comparing. It reports
// ok=false for every other operator, or when either operand isn't a
// constant string, leaving evaluation to whatever consumes the tree.
func (e *BinaryExpr) ConstantFold() (value bool, ok bool) {
	switch e.Op {
	case IEquals, IContains, IStartsWith, IEndsWith:
	default:
		return false, false
	}
	left, lok := e.Left.(*LiteralExpr)
	right, rok := e.Right.(*LiteralExpr)
	if !lok || !rok || left.Regexp != nil || right.Regexp != nil {
		return false, false
	}
	if !left.Value.IsString() || !right.Value.IsString() {
		return false, false
	}
	a, err := left.Value.StringValue()
	if err != nil {
		return false, false
	}
	b, err := right.Value.StringValue()
	if err != nil {
		return false, false
	}
	a, b = literal.FoldCase(a), literal.FoldCase(b)
	switch e.Op {
	case IEquals:
		return a == b, true
	case IContains:
		return strings.Contains(a, b), true
	case IStartsWith:
		return strings.HasPrefix(a, b), true
	case IEndsWith:
		return strings.HasSuffix(a, b), true
	default:
		return false, false
	}
}

// IterableKind discriminates what a for-expression or of-expression
// iterates over.
type IterableKind int

const (
	IterIntSet IterableKind = iota
	IterIntRange
	IterStringSet
	IterArray
	IterDictionary
)

// Iterable describes the set a ForExpr or OfExpr ranges over.
type Iterable struct {
	Kind IterableKind

	// IterIntSet
	Ints []Expr

	// IterIntRange
	Lo, Hi Expr

	// IterStringSet: either Them (all defined strings) or an explicit,
	// possibly-wildcarded, list of string references.
	Them    bool
	Strings []*StringRefExpr

	// IterArray / IterDictionary
	Container Expr
}

func (it Iterable) Text() string {
	switch it.Kind {
	case IterIntSet:
		parts := make([]string, len(it.Ints))
		for i, e := range it.Ints {
			parts[i] = e.Text()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case IterIntRange:
		return "(" + it.Lo.Text() + ".." + it.Hi.Text() + ")"
	case IterStringSet:
		if it.Them {
			return "them"
		}
		parts := make([]string, len(it.Strings))
		for i, s := range it.Strings {
			parts[i] = s.Text()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case IterArray, IterDictionary:
		return it.Container.Text()
	default:
		return ""
	}
}

// Quantifier is the `N`, `any`, `all`, `none`, or `N%` that introduces a
// for- or of-expression.
type Quantifier struct {
	All, Any, None bool
	Count          Expr // set when none of All/Any/None
	Percent        bool // Count is a percentage (suffixed with "%")
}

func (q Quantifier) Text() string {
	switch {
	case q.All:
		return "all"
	case q.Any:
		return "any"
	case q.None:
		return "none"
	case q.Percent:
		return q.Count.Text() + "%"
	default:
		return q.Count.Text()
	}
}

// ForExpr is `for <quantifier> <vars> in <iterable> : (<body>)`.
type ForExpr struct {
	base
	Quantifier Quantifier
	Vars       []string // one variable for int-set/range/array/string-set, two for dictionary
	Iterable   Iterable
	Body       Expr
}

func (e *ForExpr) Text() string {
	if len(e.Vars) == 0 {
		return fmt.Sprintf("for %s of %s : (%s)", e.Quantifier.Text(), e.Iterable.Text(), e.Body.Text())
	}
	return fmt.Sprintf("for %s %s in %s : (%s)",
		e.Quantifier.Text(), strings.Join(e.Vars, ", "), e.Iterable.Text(), e.Body.Text())
}

// OfExpr is `<quantifier> of <string-set>`, optionally followed by
// `in (lo..hi)`.
type OfExpr struct {
	base
	Quantifier Quantifier
	Iterable   Iterable // always IterStringSet
	InLo, InHi Expr     // set when followed by `in (lo..hi)`
}

func (e *OfExpr) Text() string {
	s := e.Quantifier.Text() + " of " + e.Iterable.Text()
	if e.InLo != nil {
		s += " in (" + e.InLo.Text() + ".." + e.InHi.Text() + ")"
	}
	return s
}

// Identifier is a bare name resolved against the rule's strings/variables,
// the file's rules, or an imported module's root structure.
type Identifier struct {
	base
	Name   string
	Symbol *symbol.Symbol // resolved during/after parsing; nil until then
}

func (e *Identifier) Text() string { return e.Name }

// StructAccessExpr is `base.field`.
type StructAccessExpr struct {
	base
	Target Expr
	Field  string
	Symbol *symbol.Symbol
}

func (e *StructAccessExpr) Text() string { return e.Target.Text() + "." + e.Field }

// ArrayAccessExpr is `base[index]`.
type ArrayAccessExpr struct {
	base
	Target Expr
	Index  Expr
}

func (e *ArrayAccessExpr) Text() string {
	return e.Target.Text() + "[" + e.Index.Text() + "]"
}

// FunctionCallExpr is `base(args...)`.
type FunctionCallExpr struct {
	base
	Target Expr
	Args   []Expr
}

func (e *FunctionCallExpr) Text() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.Text()
	}
	return e.Target.Text() + "(" + strings.Join(parts, ", ") + ")"
}

// Keyword enumerates the zero-argument keyword primaries.
type Keyword int

const (
	KwFilesize Keyword = iota
	KwEntrypoint
	KwAll
	KwAny
	KwNone
	KwThem
	KwThis
)

func (k Keyword) String() string {
	switch k {
	case KwFilesize:
		return "filesize"
	case KwEntrypoint:
		return "entrypoint"
	case KwAll:
		return "all"
	case KwAny:
		return "any"
	case KwNone:
		return "none"
	case KwThem:
		return "them"
	case KwThis:
		return "this"
	default:
		return "?"
	}
}

// KeywordExpr is one of the bare keyword primaries: filesize, entrypoint,
// all, any, none, them, this.
type KeywordExpr struct {
	base
	Keyword Keyword
}

func (e *KeywordExpr) Text() string { return e.Keyword.String() }

// ParenExpr is a parenthesized sub-expression, carrying a hint for whether
// the printer should force a line break inside the parens.
type ParenExpr struct {
	base
	Inner     Expr
	LineBreak bool
}

func (e *ParenExpr) Text() string { return "(" + e.Inner.Text() + ")" }

// IntReaderFunc identifies one of the int8/16/32/64, unsigned, big/little
// endian reader primitives: intN/uintN[be](expr).
type IntReaderFunc struct {
	Bits     int  // 8, 16, 32, 64
	Unsigned bool
	BigEndian bool
}

func (f IntReaderFunc) String() string {
	name := "int"
	if f.Unsigned {
		name = "uint"
	}
	name += fmt.Sprint(f.Bits)
	if f.BigEndian {
		name += "be"
	}
	return name
}

// IntReaderExpr is `intN/uintN[be](offset)`.
type IntReaderExpr struct {
	base
	Func   IntReaderFunc
	Offset Expr
}

func (e *IntReaderExpr) Text() string { return e.Func.String() + "(" + e.Offset.Text() + ")" }

// WithBinding is one `name = expr` pair introduced by a with-expression.
type WithBinding struct {
	Name  string
	Value Expr
}

// WithExpr is `with name1 = expr1, name2 = expr2 : (body)`, scoping local
// bindings over Body.
type WithExpr struct {
	base
	Bindings []WithBinding
	Body     Expr
}

func (e *WithExpr) Text() string {
	parts := make([]string, len(e.Bindings))
	for i, b := range e.Bindings {
		parts[i] = b.Name + " = " + b.Value.Text()
	}
	return "with " + strings.Join(parts, ", ") + " : (" + e.Body.Text() + ")"
}
