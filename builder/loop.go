package builder

import (
	"github.com/yaramod/yaramod-go/ast"
	"github.com/yaramod/yaramod-go/errs"
	"github.com/yaramod/yaramod-go/literal"
	"github.com/yaramod/yaramod-go/symbol"
	"github.com/yaramod/yaramod-go/token"
)

// quantifierBuilder assembles the `all`/`any`/`none`/`N`/`N%` that
// introduces a for- or of-expression.
type quantifierBuilder struct {
	stream      *token.Stream
	first, last token.Token
	q           ast.Quantifier
	err         error
}

func qKeyword(kind token.Kind, q ast.Quantifier) quantifierBuilder {
	s := token.New()
	tok := s.EmplaceBackPos(kind, literal.Literal{}, syntheticPos())
	return quantifierBuilder{stream: s, first: tok, last: tok, q: q}
}

// QAll is the `all` quantifier.
func QAll() quantifierBuilder { return qKeyword(token.KwAll, ast.Quantifier{All: true}) }

// QAny is the `any` quantifier.
func QAny() quantifierBuilder { return qKeyword(token.KwAny, ast.Quantifier{Any: true}) }

// QNone is the `none` quantifier.
func QNone() quantifierBuilder { return qKeyword(token.KwNone, ast.Quantifier{None: true}) }

// QCount is an explicit integer-expression quantifier, `N of ...`.
func QCount(n YaraExpressionBuilder) quantifierBuilder {
	if n.err != nil {
		return quantifierBuilder{err: n.err}
	}
	return quantifierBuilder{stream: n.stream, first: n.expr.FirstToken(), last: n.expr.LastToken(), q: ast.Quantifier{Count: n.expr}}
}

// QPercent is a percentage quantifier, `N% of ...`.
func QPercent(n YaraExpressionBuilder) quantifierBuilder {
	if n.err != nil {
		return quantifierBuilder{err: n.err}
	}
	last := n.stream.EmplaceBack(token.Percent, literal.Literal{})
	return quantifierBuilder{stream: n.stream, first: n.expr.FirstToken(), last: last, q: ast.Quantifier{Count: n.expr, Percent: true}}
}

// iterableBuilder assembles the set a for- or of-expression ranges over.
type iterableBuilder struct {
	stream      *token.Stream
	first, last token.Token
	it          ast.Iterable
	err         error
}

// ThemSet is the `them` iterable: every string defined in the enclosing
// rule.
func ThemSet() iterableBuilder {
	s := token.New()
	tok := s.EmplaceBackPos(token.KwThem, literal.Literal{}, syntheticPos())
	return iterableBuilder{stream: s, first: tok, last: tok, it: ast.Iterable{Kind: ast.IterStringSet, Them: true}}
}

// StringSet is an explicit, parenthesized list of string references, e.g.
// `($a, $b*)`. Every member must have been built by StringRef or
// StringRefWildcard.
func StringSet(refs ...YaraExpressionBuilder) iterableBuilder {
	s := token.New()
	first := s.EmplaceBackPos(token.LParenEnum, literal.Literal{}, syntheticPos())
	strs := make([]*ast.StringRefExpr, 0, len(refs))
	for i, r := range refs {
		if r.err != nil {
			return iterableBuilder{err: r.err}
		}
		sr, ok := r.expr.(*ast.StringRefExpr)
		if !ok {
			return iterableBuilder{err: errs.NewBuilderError("string set member must be a string reference, got %T", r.expr)}
		}
		if i > 0 {
			s.EmplaceBack(token.Comma, literal.Literal{})
		}
		s.SpliceAppend(r.stream)
		strs = append(strs, sr)
	}
	last := s.EmplaceBack(token.RParenEnum, literal.Literal{})
	return iterableBuilder{stream: s, first: first, last: last, it: ast.Iterable{Kind: ast.IterStringSet, Strings: strs}}
}

// IntSet is an explicit, parenthesized list of integer expressions.
func IntSet(ints ...YaraExpressionBuilder) iterableBuilder {
	s := token.New()
	first := s.EmplaceBackPos(token.LParenEnum, literal.Literal{}, syntheticPos())
	exprs := make([]ast.Expr, 0, len(ints))
	for i, v := range ints {
		if v.err != nil {
			return iterableBuilder{err: v.err}
		}
		if i > 0 {
			s.EmplaceBack(token.Comma, literal.Literal{})
		}
		s.SpliceAppend(v.stream)
		exprs = append(exprs, v.expr)
	}
	last := s.EmplaceBack(token.RParenEnum, literal.Literal{})
	return iterableBuilder{stream: s, first: first, last: last, it: ast.Iterable{Kind: ast.IterIntSet, Ints: exprs}}
}

// IntRange is a `(lo..hi)` iterable.
func IntRange(lo, hi YaraExpressionBuilder) iterableBuilder {
	if lo.err != nil {
		return iterableBuilder{err: lo.err}
	}
	if hi.err != nil {
		return iterableBuilder{err: hi.err}
	}
	s := token.New()
	first := s.EmplaceBackPos(token.LParen, literal.Literal{}, syntheticPos())
	s.SpliceAppend(lo.stream)
	s.EmplaceBack(token.DotDot, literal.Literal{})
	s.SpliceAppend(hi.stream)
	last := s.EmplaceBack(token.RParen, literal.Literal{})
	return iterableBuilder{stream: s, first: first, last: last, it: ast.Iterable{Kind: ast.IterIntRange, Lo: lo.expr, Hi: hi.expr}}
}

// Container is an array/dictionary iterable, e.g. `pe.sections`.
func Container(target YaraExpressionBuilder) iterableBuilder {
	if target.err != nil {
		return iterableBuilder{err: target.err}
	}
	return iterableBuilder{
		stream: target.stream,
		first:  target.expr.FirstToken(),
		last:   target.expr.LastToken(),
		it:     ast.Iterable{Kind: ast.IterArray, Container: target.expr},
	}
}

// Of builds `<quantifier> of <string-set>`.
func Of(q quantifierBuilder, set iterableBuilder) YaraExpressionBuilder {
	if q.err != nil {
		return YaraExpressionBuilder{err: q.err}
	}
	if set.err != nil {
		return YaraExpressionBuilder{err: set.err}
	}
	q.stream.EmplaceBack(token.KwOf, literal.Literal{})
	q.stream.SpliceAppend(set.stream)
	e := &ast.OfExpr{Quantifier: q.q, Iterable: set.it}
	e.SetType(symbol.Bool)
	ast.SetSpan(e, q.first, set.last)
	return YaraExpressionBuilder{stream: q.stream, expr: e}
}

// OfIn is Of, additionally constrained to `in (lo..hi)`.
func OfIn(q quantifierBuilder, set iterableBuilder, lo, hi YaraExpressionBuilder) YaraExpressionBuilder {
	base := Of(q, set)
	if base.err != nil {
		return base
	}
	if lo.err != nil {
		return lo
	}
	if hi.err != nil {
		return hi
	}
	base.stream.EmplaceBack(token.KwIn, literal.Literal{})
	base.stream.EmplaceBack(token.LParen, literal.Literal{})
	base.stream.SpliceAppend(lo.stream)
	base.stream.EmplaceBack(token.DotDot, literal.Literal{})
	base.stream.SpliceAppend(hi.stream)
	last := base.stream.EmplaceBack(token.RParen, literal.Literal{})
	e := base.expr.(*ast.OfExpr)
	e.InLo, e.InHi = lo.expr, hi.expr
	ast.SetSpan(e, e.FirstToken(), last)
	return base
}

// For builds `for <quantifier> <vars> in <iterable> : (<body>)`, or, when
// vars is empty, `for <quantifier> of <iterable> : (<body>)`. body is
// built referencing vars via Ident/Anonymous as appropriate for the
// iterable's kind.
func For(q quantifierBuilder, vars []string, it iterableBuilder, body YaraExpressionBuilder) YaraExpressionBuilder {
	if q.err != nil {
		return YaraExpressionBuilder{err: q.err}
	}
	if it.err != nil {
		return YaraExpressionBuilder{err: it.err}
	}
	if body.err != nil {
		return body
	}
	s := q.stream
	kw := token.KwOf
	if len(vars) > 0 {
		kw = token.KwIn
		for i, v := range vars {
			if i > 0 {
				s.EmplaceBack(token.Comma, literal.Literal{})
			}
			s.EmplaceBackPos(token.Identifier, literal.NewSymbol(v), syntheticPos())
		}
	}
	s.EmplaceBack(kw, literal.Literal{})
	s.SpliceAppend(it.stream)
	s.EmplaceBack(token.Colon, literal.Literal{})
	s.EmplaceBack(token.LParen, literal.Literal{})
	s.SpliceAppend(body.stream)
	last := s.EmplaceBack(token.RParen, literal.Literal{})
	e := &ast.ForExpr{Quantifier: q.q, Vars: vars, Iterable: it.it, Body: body.expr}
	e.SetType(symbol.Bool)
	ast.SetSpan(e, q.first, last)
	return YaraExpressionBuilder{stream: s, expr: e}
}

// withBindingBuilder is one `name = expr` pair for With.
type withBindingBuilder struct {
	name string
	val  YaraExpressionBuilder
}

// Bind constructs one with-expression binding.
func Bind(name string, val YaraExpressionBuilder) withBindingBuilder {
	return withBindingBuilder{name: name, val: val}
}

// With builds `with name1 = expr1, ... : (body)`. "with" is a contextual
// keyword in the grammar (lexed as a plain identifier and dispatched on by
// the driver), so the opening token here is an Identifier carrying the
// symbol "with", matching how the parser emits it.
func With(body YaraExpressionBuilder, bindings ...withBindingBuilder) YaraExpressionBuilder {
	if len(bindings) == 0 {
		return YaraExpressionBuilder{err: errs.NewBuilderError("with-expression needs at least one binding")}
	}
	if body.err != nil {
		return body
	}
	s := token.New()
	first := s.EmplaceBackPos(token.Identifier, literal.NewSymbol("with"), syntheticPos())
	wb := make([]ast.WithBinding, 0, len(bindings))
	for i, b := range bindings {
		if b.val.err != nil {
			return b.val
		}
		if i > 0 {
			s.EmplaceBack(token.Comma, literal.Literal{})
		}
		s.EmplaceBackPos(token.Identifier, literal.NewSymbol(b.name), syntheticPos())
		s.EmplaceBack(token.Assign, literal.Literal{})
		s.SpliceAppend(b.val.stream)
		wb = append(wb, ast.WithBinding{Name: b.name, Value: b.val.expr})
	}
	s.EmplaceBack(token.Colon, literal.Literal{})
	s.EmplaceBack(token.LParen, literal.Literal{})
	s.SpliceAppend(body.stream)
	last := s.EmplaceBack(token.RParen, literal.Literal{})
	e := &ast.WithExpr{Bindings: wb, Body: body.expr}
	e.SetType(symbol.Bool)
	ast.SetSpan(e, first, last)
	return YaraExpressionBuilder{stream: s, expr: e}
}
