package builder

import (
	"github.com/yaramod/yaramod-go/ast"
	"github.com/yaramod/yaramod-go/errs"
	"github.com/yaramod/yaramod-go/literal"
	"github.com/yaramod/yaramod-go/parser"
	"github.com/yaramod/yaramod-go/symbol"
	"github.com/yaramod/yaramod-go/token"
)

// YaraExpressionBuilder fluently assembles a condition-expression tree.
// Every combinator takes its receiver (and any operand builders) by value
// and returns the updated value. The *token.Stream a value carries is
// shared, not copied, and combinators append tokens to it, so an
// intermediate result cannot serve as the base of more than one
// continuation.
//
// A builder that went wrong (a malformed operand, an empty Get) remembers
// the first error and surfaces it lazily: every later combinator just
// passes the error along, so a long chain only needs to be checked once,
// at Get.
type YaraExpressionBuilder struct {
	stream *token.Stream
	expr   ast.Expr
	err    error
}

// Get finalizes the builder, returning the assembled expression.
func (b YaraExpressionBuilder) Get() (ast.Expr, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.expr == nil {
		return nil, errs.NewBuilderError("expression builder produced no expression")
	}
	return b.expr, nil
}

func exprLeaf(kind token.Kind, lit literal.Literal, typ symbol.Type) YaraExpressionBuilder {
	s := token.New()
	tok := s.EmplaceBackPos(kind, lit, syntheticPos())
	return YaraExpressionBuilder{stream: s, expr: ast.NewLiteralExpr(lit, typ, tok, tok)}
}

// IntLit is a signed integer literal.
func IntLit(v int64) YaraExpressionBuilder {
	return exprLeaf(token.IntLiteral, literal.NewInt(v), symbol.Int)
}

// FloatLit is a floating-point literal.
func FloatLit(v float64) YaraExpressionBuilder {
	return exprLeaf(token.DoubleLiteral, literal.NewFloat(v), symbol.Float)
}

// BoolLit is the `true`/`false` literal.
func BoolLit(v bool) YaraExpressionBuilder {
	kind := token.KwFalse
	if v {
		kind = token.KwTrue
	}
	return exprLeaf(kind, literal.NewBool(v), symbol.Bool)
}

// StringLit is a double-quoted text literal. s is the raw, unescaped match
// bytes; escaping for the printed form is applied on emission.
func StringLit(s string) YaraExpressionBuilder {
	return exprLeaf(token.StringLiteral, literal.NewString(s, false), symbol.String)
}

// RegexpLit is a `/body/flags` regexp literal, legal only as the right
// operand of `matches`. body is parsed the same way a string definition's
// regexp pattern is, so a malformed body is rejected here rather than
// deferred to a later parse of the built rule.
func RegexpLit(body, flags string) YaraExpressionBuilder {
	node, err := parser.ParseRegexPattern(body)
	if err != nil {
		return YaraExpressionBuilder{err: errs.NewBuilderError("invalid regexp literal: %v", err)}
	}
	s := token.New()
	lit := literal.NewString(body, true).WithFormattedText("/" + body + "/" + flags)
	tok := s.EmplaceBackPos(token.RegexpLiteral, lit, syntheticPos())
	e := ast.NewLiteralExpr(literal.NewString(flags, true), symbol.Regexp, tok, tok)
	e.Regexp = node
	return YaraExpressionBuilder{stream: s, expr: e}
}

// Ident references a bare name: a rule, an imported module root, a
// with-bound local, or a loop variable. Its Symbol is left unresolved,
// exactly as the parser leaves an Identifier before semantic analysis
// binds it.
func Ident(name string) YaraExpressionBuilder {
	s := token.New()
	tok := s.EmplaceBackPos(token.Identifier, literal.NewSymbol(name), syntheticPos())
	id := &ast.Identifier{Name: name}
	ast.SetSpan(id, tok, tok)
	return YaraExpressionBuilder{stream: s, expr: id}
}

func keywordExpr(kind token.Kind, kw ast.Keyword, typ symbol.Type) YaraExpressionBuilder {
	s := token.New()
	tok := s.EmplaceBackPos(kind, literal.Literal{}, syntheticPos())
	e := &ast.KeywordExpr{Keyword: kw}
	e.SetType(typ)
	ast.SetSpan(e, tok, tok)
	return YaraExpressionBuilder{stream: s, expr: e}
}

// Filesize is the `filesize` keyword primary.
func Filesize() YaraExpressionBuilder { return keywordExpr(token.KwFilesize, ast.KwFilesize, symbol.Int) }

// Entrypoint is the `entrypoint` keyword primary.
func Entrypoint() YaraExpressionBuilder {
	return keywordExpr(token.KwEntrypoint, ast.KwEntrypoint, symbol.Int)
}

// This is the `this` keyword primary (the enclosing module structure).
func This() YaraExpressionBuilder { return keywordExpr(token.KwThis, ast.KwThis, symbol.Object) }

// AllKw, AnyKw, NoneKw, and ThemKw are the bare "all"/"any"/"none"/"them"
// keyword primaries, distinct from the same-spelled quantifier/iterable
// constructors (QAll/QAny/QNone/ThemSet) used to build of-/for-expressions.
func AllKw() YaraExpressionBuilder  { return keywordExpr(token.KwAll, ast.KwAll, symbol.Bool) }
func AnyKw() YaraExpressionBuilder  { return keywordExpr(token.KwAny, ast.KwAny, symbol.Bool) }
func NoneKw() YaraExpressionBuilder { return keywordExpr(token.KwNone, ast.KwNone, symbol.Bool) }
func ThemKw() YaraExpressionBuilder { return keywordExpr(token.KwThem, ast.KwThem, symbol.Bool) }

func stringRef(kind ast.StringRefKind, name string, tokKind token.Kind, typ symbol.Type) YaraExpressionBuilder {
	s := token.New()
	tok := s.EmplaceBackPos(tokKind, literal.NewSymbol(name), syntheticPos())
	e := &ast.StringRefExpr{Kind: kind, Name: name}
	e.SetType(typ)
	ast.SetSpan(e, tok, tok)
	return YaraExpressionBuilder{stream: s, expr: e}
}

// StringRef is a plain string reference, `$a`.
func StringRef(name string) YaraExpressionBuilder {
	return stringRef(ast.RefPlain, name, token.StringID, symbol.Bool)
}

// StringRefWildcard is a wildcarded string reference, `$a*`, legal only
// inside a string-set iterable.
func StringRefWildcard(prefix string) YaraExpressionBuilder {
	return stringRef(ast.RefWildcard, prefix, token.StringIDWild, symbol.Bool)
}

// StringCountRef is `#a`, the number of matches of string $a.
func StringCountRef(name string) YaraExpressionBuilder {
	return stringRef(ast.RefCount, name, token.StringCount, symbol.Int)
}

// Anonymous is the bare `$` reference, legal only inside a string
// for-expression's body.
func Anonymous() YaraExpressionBuilder {
	return stringRef(ast.RefAnonymous, "", token.Dollar, symbol.Bool)
}

func indexedStringRef(kind ast.StringRefKind, name string, tokKind token.Kind, index []YaraExpressionBuilder) YaraExpressionBuilder {
	s := token.New()
	tok := s.EmplaceBackPos(tokKind, literal.NewSymbol(name), syntheticPos())
	e := &ast.StringRefExpr{Kind: kind, Name: name}
	e.SetType(symbol.Int)
	last := tok
	if len(index) == 1 {
		idx := index[0]
		if idx.err != nil {
			return YaraExpressionBuilder{err: idx.err}
		}
		s.EmplaceBack(token.LBracket, literal.Literal{})
		s.SpliceAppend(idx.stream)
		last = s.EmplaceBack(token.RBracket, literal.Literal{})
		e.Index = idx.expr
	} else if len(index) > 1 {
		return YaraExpressionBuilder{err: errs.NewBuilderError("at most one index expression is allowed")}
	}
	ast.SetSpan(e, tok, last)
	return YaraExpressionBuilder{stream: s, expr: e}
}

// StringOffsetRef is `@a` or, with an explicit occurrence index, `@a[i]`.
func StringOffsetRef(name string, index ...YaraExpressionBuilder) YaraExpressionBuilder {
	return indexedStringRef(ast.RefOffset, name, token.StringOffset, index)
}

// StringLengthRef is `!a` or, with an explicit occurrence index, `!a[i]`.
func StringLengthRef(name string, index ...YaraExpressionBuilder) YaraExpressionBuilder {
	return indexedStringRef(ast.RefLength, name, token.StringLength, index)
}

// StringAt is `$a at expr`.
func StringAt(name string, at YaraExpressionBuilder) YaraExpressionBuilder {
	if at.err != nil {
		return at
	}
	s := token.New()
	tok := s.EmplaceBackPos(token.StringID, literal.NewSymbol(name), syntheticPos())
	s.EmplaceBack(token.KwAt, literal.Literal{})
	s.SpliceAppend(at.stream)
	e := &ast.StringRefExpr{Kind: ast.RefAt, Name: name, At: at.expr}
	e.SetType(symbol.Bool)
	ast.SetSpan(e, tok, e.At.LastToken())
	return YaraExpressionBuilder{stream: s, expr: e}
}

// StringIn is `$a in (lo..hi)`.
func StringIn(name string, lo, hi YaraExpressionBuilder) YaraExpressionBuilder {
	if lo.err != nil {
		return lo
	}
	if hi.err != nil {
		return hi
	}
	s := token.New()
	tok := s.EmplaceBackPos(token.StringID, literal.NewSymbol(name), syntheticPos())
	s.EmplaceBack(token.KwIn, literal.Literal{})
	s.EmplaceBack(token.LParen, literal.Literal{})
	s.SpliceAppend(lo.stream)
	s.EmplaceBack(token.DotDot, literal.Literal{})
	s.SpliceAppend(hi.stream)
	last := s.EmplaceBack(token.RParen, literal.Literal{})
	e := &ast.StringRefExpr{Kind: ast.RefIn, Name: name, Lo: lo.expr, Hi: hi.expr}
	e.SetType(symbol.Bool)
	ast.SetSpan(e, tok, last)
	return YaraExpressionBuilder{stream: s, expr: e}
}

func intReader(f ast.IntReaderFunc, offset YaraExpressionBuilder) YaraExpressionBuilder {
	if offset.err != nil {
		return offset
	}
	s := token.New()
	kind := token.KwIntN
	if f.Unsigned {
		kind = token.KwUIntN
	}
	first := s.EmplaceBackPos(kind, literal.NewSymbol(f.String()), syntheticPos())
	s.EmplaceBack(token.LParenCall, literal.Literal{})
	s.SpliceAppend(offset.stream)
	last := s.EmplaceBack(token.RParenCall, literal.Literal{})
	e := &ast.IntReaderExpr{Func: f, Offset: offset.expr}
	e.SetType(symbol.Int)
	ast.SetSpan(e, first, last)
	return YaraExpressionBuilder{stream: s, expr: e}
}

// Int8/UInt8/Int16/UInt16/Int32/UInt32 read a little-endian signed/unsigned
// integer of the given width at offset. The Be variants read big-endian.
func Int8(offset YaraExpressionBuilder) YaraExpressionBuilder { return intReader(ast.IntReaderFunc{Bits: 8}, offset) }
func UInt8(offset YaraExpressionBuilder) YaraExpressionBuilder {
	return intReader(ast.IntReaderFunc{Bits: 8, Unsigned: true}, offset)
}
func Int16(offset YaraExpressionBuilder) YaraExpressionBuilder { return intReader(ast.IntReaderFunc{Bits: 16}, offset) }
func UInt16(offset YaraExpressionBuilder) YaraExpressionBuilder {
	return intReader(ast.IntReaderFunc{Bits: 16, Unsigned: true}, offset)
}
func Int32(offset YaraExpressionBuilder) YaraExpressionBuilder { return intReader(ast.IntReaderFunc{Bits: 32}, offset) }
func UInt32(offset YaraExpressionBuilder) YaraExpressionBuilder {
	return intReader(ast.IntReaderFunc{Bits: 32, Unsigned: true}, offset)
}
func Int16Be(offset YaraExpressionBuilder) YaraExpressionBuilder {
	return intReader(ast.IntReaderFunc{Bits: 16, BigEndian: true}, offset)
}
func UInt16Be(offset YaraExpressionBuilder) YaraExpressionBuilder {
	return intReader(ast.IntReaderFunc{Bits: 16, Unsigned: true, BigEndian: true}, offset)
}
func Int32Be(offset YaraExpressionBuilder) YaraExpressionBuilder {
	return intReader(ast.IntReaderFunc{Bits: 32, BigEndian: true}, offset)
}
func UInt32Be(offset YaraExpressionBuilder) YaraExpressionBuilder {
	return intReader(ast.IntReaderFunc{Bits: 32, Unsigned: true, BigEndian: true}, offset)
}

func binaryResultType(op ast.BinaryOp) symbol.Type {
	switch op {
	case ast.Add, ast.Sub, ast.Mul, ast.Div, ast.Mod, ast.BitXor, ast.BitAnd, ast.BitOr, ast.Shl, ast.Shr:
		return symbol.Int
	default:
		return symbol.Bool
	}
}

func (b YaraExpressionBuilder) binary(op ast.BinaryOp, kind token.Kind, other YaraExpressionBuilder) YaraExpressionBuilder {
	if b.err != nil {
		return b
	}
	if other.err != nil {
		return other
	}
	b.stream.EmplaceBack(kind, literal.Literal{})
	b.stream.SpliceAppend(other.stream)
	e := &ast.BinaryExpr{Op: op, Left: b.expr, Right: other.expr}
	e.SetType(binaryResultType(op))
	ast.SetSpan(e, b.expr.FirstToken(), other.expr.LastToken())
	b.expr = e
	return b
}

func (b YaraExpressionBuilder) And(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.And, token.KwAnd, other)
}
func (b YaraExpressionBuilder) Or(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Or, token.KwOr, other)
}
func (b YaraExpressionBuilder) Eq(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Eq, token.Eq, other)
}
func (b YaraExpressionBuilder) Neq(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Neq, token.Neq, other)
}
func (b YaraExpressionBuilder) Lt(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Lt, token.Lt, other)
}
func (b YaraExpressionBuilder) Le(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Le, token.Le, other)
}
func (b YaraExpressionBuilder) Gt(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Gt, token.Gt, other)
}
func (b YaraExpressionBuilder) Ge(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Ge, token.Ge, other)
}
func (b YaraExpressionBuilder) Contains(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Contains, token.KwContains, other)
}
func (b YaraExpressionBuilder) IContains(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.IContains, token.KwIContains, other)
}
func (b YaraExpressionBuilder) Matches(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Matches, token.KwMatches, other)
}
func (b YaraExpressionBuilder) StartsWith(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.StartsWith, token.KwStartswith, other)
}
func (b YaraExpressionBuilder) IStartsWith(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.IStartsWith, token.KwIStartswith, other)
}
func (b YaraExpressionBuilder) EndsWith(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.EndsWith, token.KwEndswith, other)
}
func (b YaraExpressionBuilder) IEndsWith(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.IEndsWith, token.KwIEndswith, other)
}
func (b YaraExpressionBuilder) IEquals(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.IEquals, token.KwIEquals, other)
}
func (b YaraExpressionBuilder) Add(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Add, token.Plus, other)
}
func (b YaraExpressionBuilder) Sub(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Sub, token.Minus, other)
}
func (b YaraExpressionBuilder) Mul(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Mul, token.Star, other)
}
func (b YaraExpressionBuilder) Div(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Div, token.Slash, other)
}
func (b YaraExpressionBuilder) Mod(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Mod, token.Percent, other)
}
func (b YaraExpressionBuilder) BitXor(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.BitXor, token.Caret, other)
}
func (b YaraExpressionBuilder) BitAnd(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.BitAnd, token.Amp, other)
}
func (b YaraExpressionBuilder) BitOr(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.BitOr, token.Pipe, other)
}
func (b YaraExpressionBuilder) Shl(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Shl, token.Shl, other)
}
func (b YaraExpressionBuilder) Shr(other YaraExpressionBuilder) YaraExpressionBuilder {
	return b.binary(ast.Shr, token.Shr, other)
}

func (b YaraExpressionBuilder) unary(op ast.UnaryOp, kind token.Kind, typ symbol.Type) YaraExpressionBuilder {
	if b.err != nil {
		return b
	}
	ns := token.New()
	first := ns.EmplaceBackPos(kind, literal.Literal{}, syntheticPos())
	ns.SpliceAppend(b.stream)
	b.stream = ns
	e := &ast.UnaryExpr{Op: op, Operand: b.expr}
	e.SetType(typ)
	ast.SetSpan(e, first, b.expr.LastToken())
	b.expr = e
	return b
}

// Not negates a boolean expression.
func (b YaraExpressionBuilder) Not() YaraExpressionBuilder { return b.unary(ast.Not, token.KwNot, symbol.Bool) }

// Neg arithmetically negates an integer/float expression.
func (b YaraExpressionBuilder) Neg() YaraExpressionBuilder { return b.unary(ast.Negate, token.Minus, symbol.Int) }

// BitNot computes the bitwise complement of an integer expression.
func (b YaraExpressionBuilder) BitNot() YaraExpressionBuilder {
	return b.unary(ast.BitNot, token.Tilde, symbol.Int)
}

// Paren wraps b in an explicit parenthesized group.
func (b YaraExpressionBuilder) Paren() YaraExpressionBuilder {
	if b.err != nil {
		return b
	}
	ns := token.New()
	first := ns.EmplaceBackPos(token.LParen, literal.Literal{}, syntheticPos())
	ns.SpliceAppend(b.stream)
	last := ns.EmplaceBack(token.RParen, literal.Literal{})
	e := &ast.ParenExpr{Inner: b.expr}
	e.SetType(b.expr.Type())
	ast.SetSpan(e, first, last)
	b.stream = ns
	b.expr = e
	return b
}

// Dot accesses field on b, e.g. pe.Dot("number_of_sections").
func (b YaraExpressionBuilder) Dot(field string) YaraExpressionBuilder {
	if b.err != nil {
		return b
	}
	b.stream.EmplaceBack(token.Dot, literal.Literal{})
	last := b.stream.EmplaceBackPos(token.Identifier, literal.NewSymbol(field), syntheticPos())
	e := &ast.StructAccessExpr{Target: b.expr, Field: field}
	ast.SetSpan(e, b.expr.FirstToken(), last)
	b.expr = e
	return b
}

// Index accesses b[idx].
func (b YaraExpressionBuilder) Index(idx YaraExpressionBuilder) YaraExpressionBuilder {
	if b.err != nil {
		return b
	}
	if idx.err != nil {
		return idx
	}
	b.stream.EmplaceBack(token.LBracket, literal.Literal{})
	b.stream.SpliceAppend(idx.stream)
	last := b.stream.EmplaceBack(token.RBracket, literal.Literal{})
	e := &ast.ArrayAccessExpr{Target: b.expr, Index: idx.expr}
	ast.SetSpan(e, b.expr.FirstToken(), last)
	b.expr = e
	return b
}

// Call invokes b as a function with args, e.g. pe.Dot("imports").Call(...).
func (b YaraExpressionBuilder) Call(args ...YaraExpressionBuilder) YaraExpressionBuilder {
	if b.err != nil {
		return b
	}
	b.stream.EmplaceBack(token.LParenCall, literal.Literal{})
	exprs := make([]ast.Expr, 0, len(args))
	for i, a := range args {
		if a.err != nil {
			return a
		}
		if i > 0 {
			b.stream.EmplaceBack(token.Comma, literal.Literal{})
		}
		b.stream.SpliceAppend(a.stream)
		exprs = append(exprs, a.expr)
	}
	last := b.stream.EmplaceBack(token.RParenCall, literal.Literal{})
	e := &ast.FunctionCallExpr{Target: b.expr, Args: exprs}
	ast.SetSpan(e, b.expr.FirstToken(), last)
	b.expr = e
	return b
}
