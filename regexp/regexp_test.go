package regexp_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/regexp"
)

func TestTextAndClassSourceText(t *testing.T) {
	require.Equal(t, "abc", regexp.NewText("abc").SourceText())

	cls := regexp.NewClass(false, "a-z0-9")
	require.Equal(t, "[a-z0-9]", cls.SourceText())
	require.False(t, cls.Negated())
	require.Equal(t, "a-z0-9", cls.ClassChars())

	neg := regexp.NewClass(true, "0-9")
	require.Equal(t, "[^0-9]", neg.SourceText())
	require.True(t, neg.Negated())
}

func TestAnchorsAndMetacharacters(t *testing.T) {
	require.Equal(t, "^", regexp.NewAnchor(false).SourceText())
	require.Equal(t, "$", regexp.NewAnchor(true).SourceText())

	cases := []struct {
		kind regexp.NodeKind
		want string
	}{
		{regexp.MetaAny, "."},
		{regexp.MetaWord, `\w`},
		{regexp.MetaNotWord, `\W`},
		{regexp.MetaSpace, `\s`},
		{regexp.MetaNotSpace, `\S`},
		{regexp.MetaDigit, `\d`},
		{regexp.MetaNotDigit, `\D`},
		{regexp.MetaWordBoundary, `\b`},
		{regexp.MetaNotWordBoundary, `\B`},
	}
	for _, c := range cases {
		n := regexp.NewMeta(c.kind)
		require.Equal(t, c.kind, n.Kind())
		require.Equal(t, c.want, n.SourceText())
	}
}

func TestOperationSuffixes(t *testing.T) {
	child := regexp.NewText("a")

	star, err := regexp.NewOperation(child, '*', true, 0, 0, false, false)
	require.NoError(t, err)
	require.Equal(t, "a*", star.SourceText())

	lazyPlus, err := regexp.NewOperation(child, '+', false, 0, 0, false, false)
	require.NoError(t, err)
	require.Equal(t, "a+?", lazyPlus.SourceText())

	opt, err := regexp.NewOperation(child, '?', true, 0, 0, false, false)
	require.NoError(t, err)
	require.Equal(t, "a?", opt.SourceText())
}

func TestOperationBoundedRanges(t *testing.T) {
	child := regexp.NewText("a")

	exact, err := regexp.NewOperation(child, '{', true, 3, 3, true, true)
	require.NoError(t, err)
	require.Equal(t, "a{3,3}", exact.SourceText())

	openHigh, err := regexp.NewOperation(child, '{', true, 2, 0, true, false)
	require.NoError(t, err)
	require.Equal(t, "a{2,}", openHigh.SourceText())

	openLow, err := regexp.NewOperation(child, '{', true, 0, 5, false, true)
	require.NoError(t, err)
	require.Equal(t, "a{,5}", openLow.SourceText())

	min, max, hasMin, hasMax := exact.Bounds()
	require.Equal(t, 3, min)
	require.Equal(t, 3, max)
	require.True(t, hasMin)
	require.True(t, hasMax)
}

func TestOperationRejectsEmptyOrInvertedRange(t *testing.T) {
	child := regexp.NewText("a")

	_, err := regexp.NewOperation(child, '{', true, 0, 0, false, false)
	require.Error(t, err)

	_, err = regexp.NewOperation(child, '{', true, 5, 2, true, true)
	require.Error(t, err)
}

func TestAlternationConcatAndGroup(t *testing.T) {
	alt := regexp.NewAlternation(regexp.NewText("a"), regexp.NewText("b"), regexp.NewText("c"))
	require.Equal(t, "a|b|c", alt.SourceText())
	require.Len(t, alt.Children(), 3)

	concat := regexp.NewConcat(regexp.NewText("a"), regexp.NewText("b"))
	require.Equal(t, "ab", concat.SourceText())

	group := regexp.NewGroup(alt)
	require.Equal(t, "(a|b|c)", group.SourceText())
	require.Same(t, alt, group.Inner())
}

func TestOperationChildAndGreedyAccessors(t *testing.T) {
	child := regexp.NewText("x")
	op, err := regexp.NewOperation(child, '*', false, 0, 0, false, false)
	require.NoError(t, err)
	require.Same(t, child, op.Child())
	require.False(t, op.Greedy())
	require.Equal(t, byte('*'), op.Op())
}
