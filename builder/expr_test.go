package builder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/ast"
	"github.com/yaramod/yaramod-go/builder"
)

func TestExpressionBuilderLiterals(t *testing.T) {
	e, err := builder.IntLit(42).Get()
	require.NoError(t, err)
	require.Equal(t, "42", e.Text())

	e, err = builder.StringLit("abc").Get()
	require.NoError(t, err)
	require.IsType(t, &ast.LiteralExpr{}, e)
}

func TestExpressionBuilderBinaryAndUnary(t *testing.T) {
	e, err := builder.IntLit(1).Add(builder.IntLit(2)).Gt(builder.IntLit(0)).Get()
	require.NoError(t, err)
	bin, ok := e.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.Gt, bin.Op)

	neg, err := builder.IntLit(5).Neg().Get()
	require.NoError(t, err)
	un, ok := neg.(*ast.UnaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.Negate, un.Op)
}

func TestExpressionBuilderStringRefs(t *testing.T) {
	e, err := builder.StringRef("a").Get()
	require.NoError(t, err)
	ref, ok := e.(*ast.StringRefExpr)
	require.True(t, ok)
	require.Equal(t, "a", ref.Name)
	require.Equal(t, ast.RefPlain, ref.Kind)
}

func TestExpressionBuilderDotIndexChain(t *testing.T) {
	e, err := builder.Ident("pe").
		Dot("sections").
		Index(builder.IntLit(0)).
		Dot("name").
		Get()
	require.NoError(t, err)
	_, ok := e.(*ast.StructAccessExpr)
	require.True(t, ok)
}

func TestExpressionBuilderFunctionCall(t *testing.T) {
	e, err := builder.Ident("pe").
		Dot("imports").
		Call(builder.StringLit("kernel32.dll")).
		Get()
	require.NoError(t, err)
	call, ok := e.(*ast.FunctionCallExpr)
	require.True(t, ok)
	require.Len(t, call.Args, 1)
}

func TestExpressionBuilderIntReaders(t *testing.T) {
	e, err := builder.UInt32(builder.IntLit(0)).Eq(builder.IntLit(0x5A4D)).Get()
	require.NoError(t, err)
	bin := e.(*ast.BinaryExpr)
	reader, ok := bin.Left.(*ast.IntReaderExpr)
	require.True(t, ok)
	require.Equal(t, 32, reader.Func.Bits)
}

func TestExpressionBuilderRegexpLitMatches(t *testing.T) {
	e, err := builder.StringLit("abc123").Matches(builder.RegexpLit("[a-z]+[0-9]+", "i")).Get()
	require.NoError(t, err)
	bin, ok := e.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.Matches, bin.Op)

	rhs, ok := bin.Right.(*ast.LiteralExpr)
	require.True(t, ok)
	require.NotNil(t, rhs.Regexp)
	require.Equal(t, "/[a-z]+[0-9]+/", rhs.Text())
}

func TestExpressionBuilderRegexpLitRejectsMalformedBody(t *testing.T) {
	_, err := builder.RegexpLit("[a-z", "").Get()
	require.Error(t, err)
}

func TestExpressionBuilderPropagatesErrorFromOperand(t *testing.T) {
	bad := builder.StringOffsetRef("a", builder.IntLit(0), builder.IntLit(1))
	_, err := builder.IntLit(1).Add(bad).Get()
	require.Error(t, err)
}

func TestExpressionBuilderKeywordPrimaries(t *testing.T) {
	for _, tc := range []struct {
		name string
		b    builder.YaraExpressionBuilder
		kw   ast.Keyword
	}{
		{"all", builder.AllKw(), ast.KwAll},
		{"any", builder.AnyKw(), ast.KwAny},
		{"none", builder.NoneKw(), ast.KwNone},
		{"them", builder.ThemKw(), ast.KwThem},
	} {
		t.Run(tc.name, func(t *testing.T) {
			e, err := tc.b.Get()
			require.NoError(t, err)
			kwExpr, ok := e.(*ast.KeywordExpr)
			require.True(t, ok)
			require.Equal(t, tc.kw, kwExpr.Keyword)
		})
	}
}
