package token_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/literal"
	"github.com/yaramod/yaramod-go/token"
)

func collect(s *token.Stream) []string {
	var out []string
	for t := range s.All() {
		out = append(out, t.Text())
	}
	return out
}

func TestStreamEmplaceBackOrder(t *testing.T) {
	s := token.New()
	s.EmplaceBack(token.KwRule, literal.Literal{})
	s.EmplaceBackPos(token.Identifier, literal.NewSymbol("r"), token.Pos{File: "x.yar", Line: 1, Col: 6})
	s.EmplaceBack(token.LBrace, literal.Literal{})
	s.EmplaceBack(token.RBrace, literal.Literal{})

	require.Equal(t, []string{"rule", "r", "{", "}"}, collect(s))
	require.True(t, s.First().Kind() == token.KwRule)
	require.True(t, s.Last().Kind() == token.RBrace)
}

func TestStreamEmplaceBeforeAndAfter(t *testing.T) {
	s := token.New()
	lbrace := s.EmplaceBack(token.LBrace, literal.Literal{})
	rbrace := s.EmplaceBack(token.RBrace, literal.Literal{})

	mid := s.EmplaceBefore(rbrace, token.Identifier, literal.NewSymbol("mid"))
	first := s.EmplaceAfter(lbrace, token.Identifier, literal.NewSymbol("first"))

	require.Equal(t, []string{"{", "first", "mid", "}"}, collect(s))
	require.True(t, token.Next(lbrace).Equal(first))
	require.True(t, token.Prev(rbrace).Equal(mid))
}

func TestStreamEraseSingleAndRange(t *testing.T) {
	s := token.New()
	a := s.EmplaceBack(token.Identifier, literal.NewSymbol("a"))
	b := s.EmplaceBack(token.Identifier, literal.NewSymbol("b"))
	c := s.EmplaceBack(token.Identifier, literal.NewSymbol("c"))
	d := s.EmplaceBack(token.Identifier, literal.NewSymbol("d"))

	next := s.Erase(b)
	require.True(t, next.Equal(c))
	require.Equal(t, []string{"a", "c", "d"}, collect(s))

	after := s.EraseRange(c, d)
	require.False(t, after.Valid())
	require.Equal(t, []string{"a"}, collect(s))
	require.True(t, s.Last().Equal(a))
}

func TestStreamSpliceAppend(t *testing.T) {
	dst := token.New()
	dst.EmplaceBack(token.Identifier, literal.NewSymbol("a"))

	src := token.New()
	bTok := src.EmplaceBack(token.Identifier, literal.NewSymbol("b"))
	src.EmplaceBack(token.Identifier, literal.NewSymbol("c"))

	dst.SpliceAppend(src)

	require.Equal(t, []string{"a", "b", "c"}, collect(dst))
	require.True(t, src.Empty())
	require.True(t, bTok.Stream() == dst)
}

func TestStreamSpliceBefore(t *testing.T) {
	dst := token.New()
	dst.EmplaceBack(token.Identifier, literal.NewSymbol("a"))
	tail := dst.EmplaceBack(token.Identifier, literal.NewSymbol("z"))

	src := token.New()
	src.EmplaceBack(token.Identifier, literal.NewSymbol("b"))

	dst.SpliceBefore(tail, src)
	require.Equal(t, []string{"a", "b", "z"}, collect(dst))
}

func TestStreamSpliceRangeBeforeMovesAcrossStreams(t *testing.T) {
	dst := token.New()
	header := dst.EmplaceBack(token.KwCondition, literal.Literal{})
	dst.EmplaceBack(token.Colon, literal.Literal{})

	exprStream := token.New()
	exFirst := exprStream.EmplaceBack(token.KwTrue, literal.Literal{})

	dst.SpliceRangeBefore(token.Zero, exFirst, exFirst)
	require.Equal(t, []string{"condition", ":", "true"}, collect(dst))
	require.True(t, exFirst.Stream() == dst)
	_ = header
}

func TestStreamFindAndFindBackwards(t *testing.T) {
	s := token.New()
	s.EmplaceBack(token.Identifier, literal.NewSymbol("a"))
	target := s.EmplaceBack(token.KwAnd, literal.Literal{})
	s.EmplaceBack(token.Identifier, literal.NewSymbol("b"))

	found := s.Find(token.KwAnd, token.Zero, token.Zero)
	require.True(t, found.Equal(target))

	foundBack := s.FindBackwards(token.KwAnd, token.Zero, token.Zero)
	require.True(t, foundBack.Equal(target))

	notFound := s.Find(token.KwOr, token.Zero, token.Zero)
	require.False(t, notFound.Valid())
}

func TestStreamRangeIterator(t *testing.T) {
	s := token.New()
	a := s.EmplaceBack(token.Identifier, literal.NewSymbol("a"))
	s.EmplaceBack(token.Identifier, literal.NewSymbol("b"))
	c := s.EmplaceBack(token.Identifier, literal.NewSymbol("c"))

	var out []string
	for t := range token.Range(a, c) {
		out = append(out, t.Text())
	}
	require.Equal(t, []string{"a", "b", "c"}, out)
}

func TestStreamNewlineStyleAndFormatted(t *testing.T) {
	s := token.New()
	require.Equal(t, token.LF, s.NewlineStyle())
	s.SetNewlineStyle(token.CRLF)
	require.Equal(t, token.CRLF, s.NewlineStyle())

	require.False(t, s.Formatted())
	s.SetFormatted(true)
	require.True(t, s.Formatted())
}

func TestStreamEmptyStream(t *testing.T) {
	s := token.New()
	require.True(t, s.Empty())
	require.False(t, s.First().Valid())
	require.False(t, s.Last().Valid())
}
