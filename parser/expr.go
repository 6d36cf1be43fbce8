package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yaramod/yaramod-go/ast"
	"github.com/yaramod/yaramod-go/literal"
	"github.com/yaramod/yaramod-go/symbol"
	"github.com/yaramod/yaramod-go/token"
)

// parseExpr parses one full condition expression, following the precedence
// table `or < and < not < relational < bitor < bitxor < bitand < shift <
// additive < multiplicative < unary` (spec.md §4.7). Each precedence level
// below is a single left-recursive cascade into the next-tighter level,
// the classic precedence-climbing shape.
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.KwOr) {
		if _, err := p.emit(token.KwOr); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binary(ast.Or, left, right)
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(token.KwAnd) {
		if _, err := p.emit(token.KwAnd); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = binary(ast.And, left, right)
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expr, error) {
	if p.at(token.KwNot) {
		tok, err := p.emit(token.KwNot)
		if err != nil {
			return nil, err
		}
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		e := &ast.UnaryExpr{Op: ast.Not, Operand: operand}
		ast.SetSpan(e, tok, operand.LastToken())
		e.SetType(symbol.Bool)
		return e, nil
	}
	if p.at(token.KwDefined) {
		tok, err := p.emit(token.KwDefined)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.LParen); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		rparen, err := p.expect(token.RParen)
		if err != nil {
			return nil, err
		}
		e := &ast.ParenExpr{Inner: inner}
		ast.SetSpan(e, tok, rparen)
		e.SetType(symbol.Bool)
		return e, nil
	}
	return p.parseRelational()
}

var relOps = map[token.Kind]ast.BinaryOp{
	token.Eq:            ast.Eq,
	token.Neq:            ast.Neq,
	token.Lt:             ast.Lt,
	token.Le:             ast.Le,
	token.Gt:             ast.Gt,
	token.Ge:             ast.Ge,
	token.KwContains:     ast.Contains,
	token.KwIContains:    ast.IContains,
	token.KwMatches:      ast.Matches,
	token.KwStartswith:   ast.StartsWith,
	token.KwIStartswith:  ast.IStartsWith,
	token.KwEndswith:     ast.EndsWith,
	token.KwIEndswith:    ast.IEndsWith,
	token.KwIEquals:      ast.IEquals,
}

func (p *Parser) parseRelational() (ast.Expr, error) {
	left, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	s, err := p.peek()
	if err != nil {
		return nil, err
	}
	op, ok := relOps[s.kind]
	if !ok {
		return left, nil
	}
	if _, err := p.emit(s.kind); err != nil {
		return nil, err
	}
	// "matches" always takes a regexp literal as its right operand; switch
	// the scanner into regex mode before the lookahead for that operand is
	// fetched, mirroring parseStringDef's '/' handling, so the "/" starts a
	// RegexpLiteral instead of lexing as division.
	if op == ast.Matches {
		p.sc.mode = modeRegex
	}
	right, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	e := binary(op, left, right)
	e.SetType(symbol.Bool)
	return e, nil
}

func (p *Parser) parseBitOr() (ast.Expr, error) {
	left, err := p.parseBitXor()
	if err != nil {
		return nil, err
	}
	for p.at(token.Pipe) {
		if _, err := p.emit(token.Pipe); err != nil {
			return nil, err
		}
		right, err := p.parseBitXor()
		if err != nil {
			return nil, err
		}
		left = binary(ast.BitOr, left, right)
	}
	return left, nil
}

func (p *Parser) parseBitXor() (ast.Expr, error) {
	left, err := p.parseBitAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.Caret) {
		if _, err := p.emit(token.Caret); err != nil {
			return nil, err
		}
		right, err := p.parseBitAnd()
		if err != nil {
			return nil, err
		}
		left = binary(ast.BitXor, left, right)
	}
	return left, nil
}

func (p *Parser) parseBitAnd() (ast.Expr, error) {
	left, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	for p.at(token.Amp) {
		if _, err := p.emit(token.Amp); err != nil {
			return nil, err
		}
		right, err := p.parseShift()
		if err != nil {
			return nil, err
		}
		left = binary(ast.BitAnd, left, right)
	}
	return left, nil
}

func (p *Parser) parseShift() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.at(token.Shl) || p.at(token.Shr) {
		s, _ := p.peek()
		op := ast.Shl
		if s.kind == token.Shr {
			op = ast.Shr
		}
		if _, err := p.emit(s.kind); err != nil {
			return nil, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = binary(op, left, right)
	}
	return left, nil
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.at(token.Plus) || p.at(token.Minus) {
		s, _ := p.peek()
		op := ast.Add
		if s.kind == token.Minus {
			op = ast.Sub
		}
		if _, err := p.emit(s.kind); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = binary(op, left, right)
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(token.Star) || p.at(token.Slash) || p.at(token.Percent) {
		s, _ := p.peek()
		var op ast.BinaryOp
		switch s.kind {
		case token.Star:
			op = ast.Mul
		case token.Slash:
			op = ast.Div
		case token.Percent:
			op = ast.Mod
		}
		if _, err := p.emit(s.kind); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binary(op, left, right)
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	s, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch s.kind {
	case token.Minus:
		tok, err := p.emit(token.Minus)
		if err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		e := &ast.UnaryExpr{Op: ast.Negate, Operand: operand}
		ast.SetSpan(e, tok, operand.LastToken())
		e.SetType(operand.Type())
		return e, nil
	case token.Tilde:
		tok, err := p.emit(token.Tilde)
		if err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		e := &ast.UnaryExpr{Op: ast.BitNot, Operand: operand}
		ast.SetSpan(e, tok, operand.LastToken())
		e.SetType(symbol.Int)
		return e, nil
	default:
		return p.parsePostfix()
	}
}

func binary(op ast.BinaryOp, left, right ast.Expr) *ast.BinaryExpr {
	e := &ast.BinaryExpr{Op: op, Left: left, Right: right}
	ast.SetSpan(e, left.FirstToken(), right.LastToken())
	return e
}

// parsePostfix parses a primary expression followed by any chain of
// ".field", "[index]", or "(args)" postfix operators.
func (p *Parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		s, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch s.kind {
		case token.Dot:
			if _, err := p.emit(token.Dot); err != nil {
				return nil, err
			}
			fs, err := p.peek()
			if err != nil {
				return nil, err
			}
			if fs.kind != token.Identifier {
				return nil, p.errorf(fs.pos, "expected field name after '.'")
			}
			field, _ := fs.lit.StringValue()
			if _, err := p.emit(token.Identifier); err != nil {
				return nil, err
			}
			sym := resolveField(e, field)
			access := &ast.StructAccessExpr{Target: e, Field: field, Symbol: sym}
			ast.SetSpan(access, e.FirstToken(), p.stream.Last())
			if sym != nil {
				access.SetType(symbolValueType(sym))
			}
			e = access

		case token.LBracket:
			if _, err := p.emit(token.LBracket); err != nil {
				return nil, err
			}
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			rb, err := p.expect(token.RBracket)
			if err != nil {
				return nil, err
			}
			access := &ast.ArrayAccessExpr{Target: e, Index: idx}
			ast.SetSpan(access, e.FirstToken(), rb)
			e = access

		case token.LParen:
			if _, err := p.emit(token.LParenCall); err != nil {
				return nil, err
			}
			var args []ast.Expr
			if !p.at(token.RParen) {
				for {
					a, err := p.parseExpr()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if !p.at(token.Comma) {
						break
					}
					if _, err := p.emit(token.Comma); err != nil {
						return nil, err
					}
				}
			}
			rp, err := p.expectRetag(token.RParen, token.RParenCall)
			if err != nil {
				return nil, err
			}
			call := &ast.FunctionCallExpr{Target: e, Args: args}
			ast.SetSpan(call, e.FirstToken(), rp)
			e = call

		default:
			return e, nil
		}
	}
}

// resolveField looks up field against the structure target's static type
// resolved to, if target is a module/struct-valued expression. Identifiers
// that don't yet carry a resolved Symbol resolve to nil, leaving the
// attribute unresolved for a later semantic pass rather than failing the
// parse outright.
func resolveField(target ast.Expr, field string) *symbol.Symbol {
	var structure *symbol.Structure
	switch t := target.(type) {
	case *ast.Identifier:
		if t.Symbol != nil {
			structure = t.Symbol.Structure()
		}
	case *ast.StructAccessExpr:
		if t.Symbol != nil {
			structure = t.Symbol.Structure()
		}
	}
	if structure == nil {
		return nil
	}
	sym, _ := structure.Attr(field)
	return sym
}

func symbolValueType(sym *symbol.Symbol) symbol.Type {
	switch sym.Kind() {
	case symbol.KindValue:
		return sym.ValueType()
	case symbol.KindFunction:
		return sym.ReturnType()
	default:
		return symbol.Object
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	s, err := p.peek()
	if err != nil {
		return nil, err
	}
	switch s.kind {
	case token.KwTrue, token.KwFalse:
		val := s.kind == token.KwTrue
		tok, err := p.emit(s.kind)
		if err != nil {
			return nil, err
		}
		return ast.NewLiteralExpr(literal.NewBool(val), symbol.Bool, tok, tok), nil

	case token.IntLiteral:
		return p.parseIntLiteralOrQuantifier()

	case token.DoubleLiteral:
		lit := s.lit
		tok, err := p.emit(token.DoubleLiteral)
		if err != nil {
			return nil, err
		}
		return ast.NewLiteralExpr(lit, symbol.Float, tok, tok), nil

	case token.StringLiteral:
		lit := s.lit
		tok, err := p.emit(token.StringLiteral)
		if err != nil {
			return nil, err
		}
		return ast.NewLiteralExpr(lit, symbol.String, tok, tok), nil

	case token.RegexpLiteral:
		body, _ := s.lit.StringValue()
		node, err := ParseRegexPattern(body)
		if err != nil {
			return nil, p.errorf(s.pos, "%v", err)
		}
		tok, err := p.emit(token.RegexpLiteral)
		if err != nil {
			return nil, err
		}
		e := ast.NewLiteralExpr(literal.NewString(s.extra, true), symbol.Regexp, tok, tok)
		e.Regexp = node
		return e, nil

	case token.KwFilesize:
		return p.parseKeywordPrimary(token.KwFilesize, ast.KwFilesize, symbol.Int)
	case token.KwEntrypoint:
		return p.parseKeywordPrimary(token.KwEntrypoint, ast.KwEntrypoint, symbol.Int)
	case token.KwThis:
		return p.parseKeywordPrimary(token.KwThis, ast.KwThis, symbol.Object)

	case token.KwIntN, token.KwUIntN:
		return p.parseIntReader()

	case token.KwAny, token.KwAll, token.KwNone:
		q, tok, err := p.parseQuantifierKeyword()
		if err != nil {
			return nil, err
		}
		return p.finishOfExpr(q, tok)

	case token.StringID, token.StringIDWild:
		return p.parseStringRef()
	case token.StringCount:
		return p.parseStringCountRef()
	case token.StringOffset:
		return p.parseStringOffsetRef()
	case token.StringLength:
		return p.parseStringLengthRef()

	case token.KwFor:
		return p.parseForExpr()

	case token.LParen:
		return p.parseParenExpr()

	case token.Identifier:
		return p.parseIdentifierPrimary()

	default:
		return nil, p.errorf(s.pos, "unexpected token %s in expression", s.kind)
	}
}

func (p *Parser) parseKeywordPrimary(kind token.Kind, kw ast.Keyword, typ symbol.Type) (ast.Expr, error) {
	tok, err := p.emit(kind)
	if err != nil {
		return nil, err
	}
	e := &ast.KeywordExpr{Keyword: kw}
	ast.SetSpan(e, tok, tok)
	e.SetType(typ)
	return e, nil
}

// parseIntLiteralOrQuantifier disambiguates a leading integer literal: it
// is either a plain arithmetic literal, or the count head of an of-
// expression ("N of (...)" / "N% of (...)"). Both readings share the same
// leading token, so the integer is always consumed first and the decision
// made from what follows -- the lazy lookahead cache makes this free.
func (p *Parser) parseIntLiteralOrQuantifier() (ast.Expr, error) {
	s, err := p.peek()
	if err != nil {
		return nil, err
	}
	lit := s.lit
	tok, err := p.emit(token.IntLiteral)
	if err != nil {
		return nil, err
	}
	litExpr := ast.NewLiteralExpr(lit, symbol.Int, tok, tok)

	if p.at(token.Percent) {
		if _, err := p.emit(token.Percent); err != nil {
			return nil, err
		}
		return p.finishOfExpr(ast.Quantifier{Count: litExpr, Percent: true}, tok)
	}
	if p.at(token.KwOf) {
		return p.finishOfExpr(ast.Quantifier{Count: litExpr}, tok)
	}
	return litExpr, nil
}

// parseQuantifierKeyword consumes a bare any/all/none quantifier keyword.
func (p *Parser) parseQuantifierKeyword() (ast.Quantifier, token.Token, error) {
	s, err := p.peek()
	if err != nil {
		return ast.Quantifier{}, token.Zero, err
	}
	switch s.kind {
	case token.KwAll:
		tok, err := p.emit(token.KwAll)
		return ast.Quantifier{All: true}, tok, err
	case token.KwAny:
		tok, err := p.emit(token.KwAny)
		return ast.Quantifier{Any: true}, tok, err
	case token.KwNone:
		tok, err := p.emit(token.KwNone)
		return ast.Quantifier{None: true}, tok, err
	default:
		return ast.Quantifier{}, token.Zero, p.errorf(s.pos, "expected any/all/none")
	}
}

// finishOfExpr parses the "of <string-set> [in (lo..hi)]" tail shared by
// every of-expression, given its already-consumed quantifier head.
func (p *Parser) finishOfExpr(q ast.Quantifier, startTok token.Token) (ast.Expr, error) {
	if _, err := p.expect(token.KwOf); err != nil {
		return nil, err
	}
	iterable, err := p.parseStringSetIterable()
	if err != nil {
		return nil, err
	}
	e := &ast.OfExpr{Quantifier: q, Iterable: iterable}
	last := p.stream.Last()
	if p.at(token.KwIn) {
		if _, err := p.emit(token.KwIn); err != nil {
			return nil, err
		}
		if _, err := p.expectRetag(token.LParen, token.LParenEnum); err != nil {
			return nil, err
		}
		lo, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.DotDot); err != nil {
			return nil, err
		}
		hi, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		rp, err := p.expectRetag(token.RParen, token.RParenEnum)
		if err != nil {
			return nil, err
		}
		e.InLo, e.InHi = lo, hi
		last = rp
	}
	ast.SetSpan(e, startTok, last)
	e.SetType(symbol.Bool)
	return e, nil
}

// parseStringSetIterable2 parses "of <string-set>" for the variable-less
// for-loop shape ("for <q> of <string-set> : (body)").
func (p *Parser) parseStringSetIterable2() (ast.Iterable, error) {
	if _, err := p.expect(token.KwOf); err != nil {
		return ast.Iterable{}, err
	}
	return p.parseStringSetIterable()
}

// parseStringSetIterable parses "them" or a parenthesized list of string
// references ("$a, $b*, ...") -- the iterable an of-expression always
// ranges over.
func (p *Parser) parseStringSetIterable() (ast.Iterable, error) {
	if p.at(token.KwThem) {
		if _, err := p.emit(token.KwThem); err != nil {
			return ast.Iterable{}, err
		}
		return ast.Iterable{Kind: ast.IterStringSet, Them: true}, nil
	}
	if _, err := p.expectRetag(token.LParen, token.LParenEnum); err != nil {
		return ast.Iterable{}, err
	}
	var refs []*ast.StringRefExpr
	for {
		ref, err := p.parseStringSetMember()
		if err != nil {
			return ast.Iterable{}, err
		}
		refs = append(refs, ref)
		if !p.at(token.Comma) {
			break
		}
		if _, err := p.emit(token.Comma); err != nil {
			return ast.Iterable{}, err
		}
	}
	if _, err := p.expectRetag(token.RParen, token.RParenEnum); err != nil {
		return ast.Iterable{}, err
	}
	return ast.Iterable{Kind: ast.IterStringSet, Strings: refs}, nil
}

func (p *Parser) parseStringSetMember() (*ast.StringRefExpr, error) {
	s, err := p.peek()
	if err != nil {
		return nil, err
	}
	if s.kind != token.StringID && s.kind != token.StringIDWild {
		return nil, p.errorf(s.pos, "expected string identifier in string set")
	}
	e, err := p.parseStringRef()
	if err != nil {
		return nil, err
	}
	ref, ok := e.(*ast.StringRefExpr)
	if !ok {
		return nil, p.errorf(s.pos, "expected string identifier in string set")
	}
	return ref, nil
}

// parseStringRef parses a "$id", "$id*", or bare "$" reference, optionally
// followed by "at expr" or "in (lo..hi)".
func (p *Parser) parseStringRef() (ast.Expr, error) {
	s, err := p.peek()
	if err != nil {
		return nil, err
	}
	name, _ := s.lit.StringValue()
	kind := ast.RefPlain
	emitKind := token.StringID
	if s.kind == token.StringIDWild {
		kind = ast.RefWildcard
		emitKind = token.StringIDWild
	}
	tok, err := p.emit(emitKind)
	if err != nil {
		return nil, err
	}
	if name == "" && kind == ast.RefPlain {
		kind = ast.RefAnonymous
	}
	e := &ast.StringRefExpr{Kind: kind, Name: name}
	last := tok
	if kind == ast.RefPlain || kind == ast.RefAnonymous {
		switch {
		case p.at(token.KwAt):
			if _, err := p.emit(token.KwAt); err != nil {
				return nil, err
			}
			at, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			e.Kind = ast.RefAt
			e.At = at
			last = p.stream.Last()
		case p.at(token.KwIn):
			if _, err := p.emit(token.KwIn); err != nil {
				return nil, err
			}
			if _, err := p.expectRetag(token.LParen, token.LParenEnum); err != nil {
				return nil, err
			}
			lo, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.DotDot); err != nil {
				return nil, err
			}
			hi, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			rp, err := p.expectRetag(token.RParen, token.RParenEnum)
			if err != nil {
				return nil, err
			}
			e.Kind = ast.RefIn
			e.Lo, e.Hi = lo, hi
			last = rp
		}
	}
	ast.SetSpan(e, tok, last)
	e.SetType(symbol.Bool)
	return e, nil
}

func (p *Parser) parseStringCountRef() (ast.Expr, error) {
	s, err := p.peek()
	if err != nil {
		return nil, err
	}
	name, _ := s.lit.StringValue()
	tok, err := p.emit(token.StringCount)
	if err != nil {
		return nil, err
	}
	e := &ast.StringRefExpr{Kind: ast.RefCount, Name: name}
	ast.SetSpan(e, tok, tok)
	e.SetType(symbol.Int)
	return e, nil
}

func (p *Parser) parseStringOffsetRef() (ast.Expr, error) {
	return p.parseStringIndexedRef(token.StringOffset, ast.RefOffset)
}

func (p *Parser) parseStringLengthRef() (ast.Expr, error) {
	return p.parseStringIndexedRef(token.StringLength, ast.RefLength)
}

// parseStringIndexedRef parses "@id"/"!id", each with an optional "[index]"
// suffix carried directly on the StringRefExpr rather than wrapped in an
// ArrayAccessExpr (spec.md's string-reference grammar treats the index as
// part of the reference, not a generic postfix operator).
func (p *Parser) parseStringIndexedRef(kind token.Kind, refKind ast.StringRefKind) (ast.Expr, error) {
	s, err := p.peek()
	if err != nil {
		return nil, err
	}
	name, _ := s.lit.StringValue()
	tok, err := p.emit(kind)
	if err != nil {
		return nil, err
	}
	e := &ast.StringRefExpr{Kind: refKind, Name: name}
	last := tok
	if p.at(token.LBracket) {
		if _, err := p.emit(token.LBracket); err != nil {
			return nil, err
		}
		idx, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		rb, err := p.expect(token.RBracket)
		if err != nil {
			return nil, err
		}
		e.Index = idx
		last = rb
	}
	ast.SetSpan(e, tok, last)
	e.SetType(symbol.Int)
	return e, nil
}

// parseIntReader parses "intN/uintN[be](offset)".
func (p *Parser) parseIntReader() (ast.Expr, error) {
	s, err := p.peek()
	if err != nil {
		return nil, err
	}
	word, _ := s.lit.StringValue()
	kind := s.kind
	tok, err := p.emit(kind)
	if err != nil {
		return nil, err
	}
	f, ferr := decodeIntReaderWord(word)
	if ferr != nil {
		return nil, p.errorf(tok.Pos(), "%v", ferr)
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	offset, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	rp, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	e := &ast.IntReaderExpr{Func: f, Offset: offset}
	ast.SetSpan(e, tok, rp)
	e.SetType(symbol.Int)
	return e, nil
}

func decodeIntReaderWord(word string) (ast.IntReaderFunc, error) {
	w := word
	unsigned := strings.HasPrefix(w, "u")
	w = strings.TrimPrefix(w, "u")
	big := strings.HasSuffix(w, "be")
	w = strings.TrimSuffix(w, "be")
	w = strings.TrimPrefix(w, "int")
	bits, err := strconv.Atoi(w)
	if err != nil {
		return ast.IntReaderFunc{}, fmt.Errorf("malformed int reader %q", word)
	}
	return ast.IntReaderFunc{Bits: bits, Unsigned: unsigned, BigEndian: big}, nil
}

// parseParenExpr parses a parenthesized sub-expression.
func (p *Parser) parseParenExpr() (ast.Expr, error) {
	lp, err := p.expect(token.LParen)
	if err != nil {
		return nil, err
	}
	inner, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	rp, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	e := &ast.ParenExpr{Inner: inner}
	ast.SetSpan(e, lp, rp)
	e.SetType(inner.Type())
	return e, nil
}

// parseIdentifierPrimary parses a bare identifier, special-casing the
// contextual "with" keyword (the lexer never tags "with" specially -- it
// is an ordinary Identifier that the grammar only treats as introducing a
// with-expression when it leads a primary).
func (p *Parser) parseIdentifierPrimary() (ast.Expr, error) {
	s, err := p.peek()
	if err != nil {
		return nil, err
	}
	name, _ := s.lit.StringValue()
	if name == "with" {
		return p.parseWithExpr()
	}
	tok, err := p.emit(token.Identifier)
	if err != nil {
		return nil, err
	}
	sym := p.resolveIdentifier(name)
	e := &ast.Identifier{Name: name, Symbol: sym}
	ast.SetSpan(e, tok, tok)
	if sym != nil {
		e.SetType(symbolValueType(sym))
	} else {
		e.SetType(symbol.Undefined)
	}
	return e, nil
}

// resolveIdentifier resolves name against, in order: the current rule's
// for/with-bound locals, the file's rule names, imported modules' root
// structures, and the file's globals. Best-effort: an unresolved name
// returns nil rather than failing the parse, deferring full resolution to
// a later semantic pass.
func (p *Parser) resolveIdentifier(name string) *symbol.Symbol {
	if typ, ok := p.locals[name]; ok {
		return symbol.NewValue(name, typ)
	}
	if _, ok := p.file.FindRule(name); ok {
		return symbol.NewValue(name, symbol.Bool)
	}
	if p.pool != nil {
		for _, imp := range p.file.Imports {
			if imp.Name != name {
				continue
			}
			root, err := p.pool.Resolve(name)
			if err != nil {
				return nil
			}
			sym := symbol.NewStructure(name)
			for _, a := range root.Attrs() {
				if err := sym.Structure().AddAttr(a); err != nil {
					return nil
				}
			}
			return sym
		}
	}
	if g, ok := p.file.Globals[name]; ok {
		return g
	}
	return nil
}

// parseForExpr parses "for <quantifier> <vars> in <iterable> : (<body>)" and
// its variable-less sibling "for <quantifier> of <string-set> : (<body>)".
func (p *Parser) parseForExpr() (ast.Expr, error) {
	forTok, err := p.expect(token.KwFor)
	if err != nil {
		return nil, err
	}
	q, err := p.parseForQuantifier()
	if err != nil {
		return nil, err
	}

	// YARA has two for-loop shapes: "for <q> <vars> in <iterable> : (body)"
	// binds named variables; "for <q> of <string-set> : (body)" has no
	// variables at all and the body refers to the current string via a
	// bare "$". Disambiguate on whether "of" or an identifier follows the
	// quantifier.
	var vars []string
	var iterable ast.Iterable
	if p.at(token.KwOf) {
		iterable, err = p.parseStringSetIterable2()
		if err != nil {
			return nil, err
		}
	} else {
		vars, err = p.parseForVars()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.KwIn); err != nil {
			return nil, err
		}
		iterable, err = p.parseForIterable()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.Colon); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}

	savedLocals := p.locals
	p.locals = make(map[string]symbol.Type, len(savedLocals)+len(vars))
	for k, v := range savedLocals {
		p.locals[k] = v
	}
	for _, v := range vars {
		p.locals[v] = forVarType(iterable)
	}

	body, err := p.parseExpr()
	p.locals = savedLocals
	if err != nil {
		return nil, err
	}
	rp, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	e := &ast.ForExpr{Quantifier: q, Vars: vars, Iterable: iterable, Body: body}
	ast.SetSpan(e, forTok, rp)
	e.SetType(symbol.Bool)
	return e, nil
}

// forVarType approximates the loop variable's type from its iterable; a
// dictionary's two variables (key, value) are both left Undefined since
// their individual types depend on the dictionary's element structure,
// resolved later if the body accesses fields off of them.
func forVarType(it ast.Iterable) symbol.Type {
	switch it.Kind {
	case ast.IterIntSet, ast.IterIntRange:
		return symbol.Int
	case ast.IterStringSet:
		return symbol.Bool
	default:
		return symbol.Undefined
	}
}

// parseForQuantifier parses the quantifier immediately following "for":
// any/all/none, or an integer (optionally percentage) count. Unlike
// parseIntLiteralOrQuantifier, no lookahead disambiguation is needed here --
// this position is always a quantifier.
func (p *Parser) parseForQuantifier() (ast.Quantifier, error) {
	s, err := p.peek()
	if err != nil {
		return ast.Quantifier{}, err
	}
	switch s.kind {
	case token.KwAll:
		_, err := p.emit(token.KwAll)
		return ast.Quantifier{All: true}, err
	case token.KwAny:
		_, err := p.emit(token.KwAny)
		return ast.Quantifier{Any: true}, err
	case token.KwNone:
		_, err := p.emit(token.KwNone)
		return ast.Quantifier{None: true}, err
	case token.IntLiteral:
		lit := s.lit
		tok, err := p.emit(token.IntLiteral)
		if err != nil {
			return ast.Quantifier{}, err
		}
		litExpr := ast.NewLiteralExpr(lit, symbol.Int, tok, tok)
		if p.at(token.Percent) {
			if _, err := p.emit(token.Percent); err != nil {
				return ast.Quantifier{}, err
			}
			return ast.Quantifier{Count: litExpr, Percent: true}, nil
		}
		return ast.Quantifier{Count: litExpr}, nil
	default:
		return ast.Quantifier{}, p.errorf(s.pos, "expected any/all/none/integer quantifier after 'for'")
	}
}

func (p *Parser) parseForVars() ([]string, error) {
	var vars []string
	for {
		s, err := p.peek()
		if err != nil {
			return nil, err
		}
		if s.kind != token.Identifier {
			return nil, p.errorf(s.pos, "expected loop variable name")
		}
		name, _ := s.lit.StringValue()
		if _, err := p.emit(token.Identifier); err != nil {
			return nil, err
		}
		vars = append(vars, name)
		if !p.at(token.Comma) {
			break
		}
		if _, err := p.emit(token.Comma); err != nil {
			return nil, err
		}
	}
	return vars, nil
}

// parseForIterable parses a for-expression's iterable: "them", a
// parenthesized string set, an integer set/range, or a bare array/
// dictionary-valued expression (e.g. a module attribute).
func (p *Parser) parseForIterable() (ast.Iterable, error) {
	if p.at(token.KwThem) {
		if _, err := p.emit(token.KwThem); err != nil {
			return ast.Iterable{}, err
		}
		return ast.Iterable{Kind: ast.IterStringSet, Them: true}, nil
	}
	if p.at(token.LParen) {
		if _, err := p.expectRetag(token.LParen, token.LParenEnum); err != nil {
			return ast.Iterable{}, err
		}
		if p.at(token.StringID) || p.at(token.StringIDWild) {
			var refs []*ast.StringRefExpr
			for {
				ref, err := p.parseStringSetMember()
				if err != nil {
					return ast.Iterable{}, err
				}
				refs = append(refs, ref)
				if !p.at(token.Comma) {
					break
				}
				if _, err := p.emit(token.Comma); err != nil {
					return ast.Iterable{}, err
				}
			}
			if _, err := p.expectRetag(token.RParen, token.RParenEnum); err != nil {
				return ast.Iterable{}, err
			}
			return ast.Iterable{Kind: ast.IterStringSet, Strings: refs}, nil
		}
		first, err := p.parseExpr()
		if err != nil {
			return ast.Iterable{}, err
		}
		if p.at(token.DotDot) {
			if _, err := p.emit(token.DotDot); err != nil {
				return ast.Iterable{}, err
			}
			hi, err := p.parseExpr()
			if err != nil {
				return ast.Iterable{}, err
			}
			if _, err := p.expectRetag(token.RParen, token.RParenEnum); err != nil {
				return ast.Iterable{}, err
			}
			return ast.Iterable{Kind: ast.IterIntRange, Lo: first, Hi: hi}, nil
		}
		ints := []ast.Expr{first}
		for p.at(token.Comma) {
			if _, err := p.emit(token.Comma); err != nil {
				return ast.Iterable{}, err
			}
			e, err := p.parseExpr()
			if err != nil {
				return ast.Iterable{}, err
			}
			ints = append(ints, e)
		}
		if _, err := p.expectRetag(token.RParen, token.RParenEnum); err != nil {
			return ast.Iterable{}, err
		}
		return ast.Iterable{Kind: ast.IterIntSet, Ints: ints}, nil
	}

	container, err := p.parseExpr()
	if err != nil {
		return ast.Iterable{}, err
	}
	kind := ast.IterArray
	if container.Type() == symbol.Object {
		kind = ast.IterDictionary
	}
	return ast.Iterable{Kind: kind, Container: container}, nil
}

// parseWithExpr parses "with name1 = expr1, name2 = expr2 : (body)",
// binding each name in p.locals for the duration of Body.
func (p *Parser) parseWithExpr() (ast.Expr, error) {
	withTok, err := p.emit(token.Identifier)
	if err != nil {
		return nil, err
	}

	savedLocals := p.locals
	p.locals = make(map[string]symbol.Type, len(savedLocals))
	for k, v := range savedLocals {
		p.locals[k] = v
	}

	var bindings []ast.WithBinding
	for {
		s, err := p.peek()
		if err != nil {
			p.locals = savedLocals
			return nil, err
		}
		if s.kind != token.Identifier {
			p.locals = savedLocals
			return nil, p.errorf(s.pos, "expected bound variable name in with-expression")
		}
		name, _ := s.lit.StringValue()
		if _, err := p.emit(token.Identifier); err != nil {
			p.locals = savedLocals
			return nil, err
		}
		if _, err := p.expect(token.Assign); err != nil {
			p.locals = savedLocals
			return nil, err
		}
		val, err := p.parseExpr()
		if err != nil {
			p.locals = savedLocals
			return nil, err
		}
		bindings = append(bindings, ast.WithBinding{Name: name, Value: val})
		p.locals[name] = val.Type()
		if !p.at(token.Comma) {
			break
		}
		if _, err := p.emit(token.Comma); err != nil {
			p.locals = savedLocals
			return nil, err
		}
	}

	if _, err := p.expect(token.Colon); err != nil {
		p.locals = savedLocals
		return nil, err
	}
	if _, err := p.expect(token.LParen); err != nil {
		p.locals = savedLocals
		return nil, err
	}
	body, err := p.parseExpr()
	p.locals = savedLocals
	if err != nil {
		return nil, err
	}
	rp, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	e := &ast.WithExpr{Bindings: bindings, Body: body}
	ast.SetSpan(e, withTok, rp)
	e.SetType(symbol.Bool)
	return e, nil
}
