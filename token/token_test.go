package token_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/literal"
	"github.com/yaramod/yaramod-go/token"
)

func TestTokenTextSigilForms(t *testing.T) {
	s := token.New()
	tests := []struct {
		kind token.Kind
		name string
		want string
	}{
		{token.StringID, "a", "$a"},
		{token.StringIDWild, "a", "$a*"},
		{token.StringCount, "a", "#a"},
		{token.StringOffset, "a", "@a"},
		{token.StringLength, "a", "!a"},
	}
	for _, tc := range tests {
		tok := s.EmplaceBack(tc.kind, literal.NewSymbol(tc.name))
		require.Equal(t, tc.want, tok.Text())
	}
}

func TestTokenTextHexWildcardPreservesShape(t *testing.T) {
	s := token.New()
	for _, shape := range []string{"??", "?F", "2?"} {
		tok := s.EmplaceBack(token.HexWildcard, literal.NewSymbol(shape))
		require.Equal(t, shape, tok.Text())
	}
}

func TestTokenTextRegexpLiteral(t *testing.T) {
	s := token.New()
	lit := literal.NewString("foo.*bar", true).WithFormattedText("/foo.*bar/i")
	tok := s.EmplaceBack(token.RegexpLiteral, lit)
	require.Equal(t, "/foo.*bar/i", tok.Text())
}

func TestTokenTextDefaultKindSpelling(t *testing.T) {
	s := token.New()
	tok := s.EmplaceBack(token.LBrace, literal.Literal{})
	require.Equal(t, token.LBrace.String(), tok.Text())
}

func TestTokenFlagsAndIndent(t *testing.T) {
	s := token.New()
	tok := s.EmplaceBack(token.Identifier, literal.NewSymbol("x"))
	require.False(t, tok.HasFlag(token.FlagNewlineSector))
	tok.SetFlag(token.FlagNewlineSector)
	require.True(t, tok.HasFlag(token.FlagNewlineSector))
	tok.ClearFlag(token.FlagNewlineSector)
	require.False(t, tok.HasFlag(token.FlagNewlineSector))

	require.Equal(t, 0, tok.Indent())
	tok.SetIndent(2)
	require.Equal(t, 2, tok.Indent())
}

func TestTokenSetLiteral(t *testing.T) {
	s := token.New()
	tok := s.EmplaceBack(token.IntLiteral, literal.NewInt(10))
	require.Equal(t, "10", tok.Text())
	tok.SetLiteral(literal.NewInt(111))
	require.Equal(t, "111", tok.Text())
}

func TestTokenZeroIsInvalid(t *testing.T) {
	require.False(t, token.Zero.Valid())
	require.Nil(t, token.Zero.Stream())
}

func TestPosStringFormatting(t *testing.T) {
	require.Equal(t, "rule.yar:3:7", token.Pos{File: "rule.yar", Line: 3, Col: 7}.String())
	require.Equal(t, "builder:abc", token.Pos{File: "builder:abc"}.String())
}
