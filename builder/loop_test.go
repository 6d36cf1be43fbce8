package builder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/ast"
	"github.com/yaramod/yaramod-go/builder"
)

func TestLoopBuilderOfStringSet(t *testing.T) {
	e, err := builder.Of(
		builder.QAll(),
		builder.StringSet(builder.StringRef("a"), builder.StringRefWildcard("b")),
	).Get()
	require.NoError(t, err)
	of, ok := e.(*ast.OfExpr)
	require.True(t, ok)
	require.True(t, of.Quantifier.All)
	require.True(t, of.Iterable.Strings != nil)
	require.Len(t, of.Iterable.Strings, 2)
}

func TestLoopBuilderOfThem(t *testing.T) {
	e, err := builder.Of(builder.QCount(builder.IntLit(3)), builder.ThemSet()).Get()
	require.NoError(t, err)
	of := e.(*ast.OfExpr)
	require.True(t, of.Iterable.Them)
}

func TestLoopBuilderOfInRange(t *testing.T) {
	e, err := builder.OfIn(
		builder.QAny(),
		builder.ThemSet(),
		builder.IntLit(0),
		builder.Filesize(),
	).Get()
	require.NoError(t, err)
	of := e.(*ast.OfExpr)
	require.NotNil(t, of.InLo)
	require.NotNil(t, of.InHi)
}

func TestLoopBuilderForOverIntRange(t *testing.T) {
	e, err := builder.For(
		builder.QAll(),
		[]string{"i"},
		builder.IntRange(builder.IntLit(0), builder.IntLit(10)),
		builder.Ident("i").Gt(builder.IntLit(0)),
	).Get()
	require.NoError(t, err)
	forExpr, ok := e.(*ast.ForExpr)
	require.True(t, ok)
	require.Equal(t, []string{"i"}, forExpr.Vars)
}

func TestLoopBuilderForOverContainer(t *testing.T) {
	e, err := builder.For(
		builder.QPercent(builder.IntLit(50)),
		nil,
		builder.Container(builder.Ident("pe").Dot("sections")),
		builder.BoolLit(true),
	).Get()
	require.NoError(t, err)
	forExpr := e.(*ast.ForExpr)
	require.Empty(t, forExpr.Vars)
	require.True(t, forExpr.Quantifier.Percent)
}

func TestLoopBuilderWith(t *testing.T) {
	e, err := builder.With(
		builder.Ident("x").Gt(builder.IntLit(0)),
		builder.Bind("x", builder.IntLit(5)),
	).Get()
	require.NoError(t, err)
	with, ok := e.(*ast.WithExpr)
	require.True(t, ok)
	require.Len(t, with.Bindings, 1)
	require.Equal(t, "x", with.Bindings[0].Name)
}

func TestLoopBuilderWithRequiresBinding(t *testing.T) {
	_, err := builder.With(builder.BoolLit(true)).Get()
	require.Error(t, err)
}

func TestLoopBuilderStringSetRejectsNonStringRef(t *testing.T) {
	_, err := builder.Of(builder.QAll(), builder.StringSet(builder.IntLit(1))).Get()
	require.Error(t, err)
}

func TestLoopBuilderPropagatesOperandError(t *testing.T) {
	bad := builder.StringOffsetRef("a", builder.IntLit(0), builder.IntLit(1))
	_, err := builder.Of(builder.QCount(bad), builder.ThemSet()).Get()
	require.Error(t, err)
}
