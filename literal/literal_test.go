package literal_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/literal"
)

func TestFoldCaseASCII(t *testing.T) {
	require.Equal(t, "abcdef", literal.FoldCase("AbCdEf"))
}

func TestFoldCaseUnicode(t *testing.T) {
	require.Equal(t, literal.FoldCase("STRASSE"), literal.FoldCase("straße"))
}

func TestIntLiteralRoundTrip(t *testing.T) {
	l := literal.NewInt(42)
	v, err := l.IntValue()
	require.NoError(t, err)
	require.Equal(t, int64(42), v)
	require.True(t, l.IsInt())
	require.True(t, l.IsIntegral())
}

func TestStringLiteralFormattedTextPreserved(t *testing.T) {
	l := literal.NewString("abc", false).WithFormattedText(`"abc"`)
	require.Equal(t, `"abc"`, l.Text())
	v, err := l.StringValue()
	require.NoError(t, err)
	require.Equal(t, "abc", v)
}

func TestWrongKindErrors(t *testing.T) {
	l := literal.NewInt(1)
	_, err := l.StringValue()
	require.Error(t, err)
}
