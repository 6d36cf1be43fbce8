package hexstring_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/hexstring"
)

func TestNibbleAndWildcardText(t *testing.T) {
	units := []hexstring.Unit{
		hexstring.NewNibble(0x1A),
		hexstring.NewWildcard(),
		hexstring.NewWildcardLow(0xF),
		hexstring.NewWildcardHigh(0x2),
	}
	require.Equal(t, "1A ?? ?F 2?", hexstring.Text(units))
	require.Equal(t, 4, hexstring.Length(units))
}

func TestJumpVariantsText(t *testing.T) {
	cases := []struct {
		low, high      int
		hasLow, hasHigh bool
		want           string
	}{
		{4, 6, true, true, "[4-6]"},
		{4, 4, true, true, "[4]"},
		{3, 0, true, false, "[3-]"},
		{0, 3, false, true, "[-3]"},
		{0, 0, false, false, "[-]"},
	}
	for _, c := range cases {
		u, err := hexstring.NewJump(c.low, c.high, c.hasLow, c.hasHigh)
		require.NoError(t, err)
		require.Equal(t, c.want, u.Text())
	}
}

func TestJumpRejectsInvertedRange(t *testing.T) {
	_, err := hexstring.NewJump(6, 4, true, true)
	require.Error(t, err)
}

func TestJumpLength(t *testing.T) {
	bounded, _ := hexstring.NewJump(4, 6, true, true)
	require.Equal(t, 4, hexstring.Length([]hexstring.Unit{bounded}))

	unboundedLow, _ := hexstring.NewJump(0, 3, false, true)
	require.Equal(t, 0, hexstring.Length([]hexstring.Unit{unboundedLow}))
}

func TestAlternationTextAndLength(t *testing.T) {
	alt := hexstring.NewAlternation(
		[]hexstring.Unit{hexstring.NewNibble(0x22)},
		[]hexstring.Unit{hexstring.NewNibble(0x33), hexstring.NewNibble(0x44)},
	)
	units := []hexstring.Unit{hexstring.NewNibble(0x11), alt}
	require.Equal(t, "11 (22 | 33 44)", hexstring.Text(units))
	// Length takes the minimum over alternatives: 1 (for "22") plus the
	// leading "11" nibble.
	require.Equal(t, 2, hexstring.Length(units))
}

func TestAlternationAlternativesAccessor(t *testing.T) {
	alt := hexstring.NewAlternation(
		[]hexstring.Unit{hexstring.NewNibble(0x22)},
		[]hexstring.Unit{hexstring.NewNibble(0x33)},
	)
	require.Len(t, alt.Alternatives(), 2)
}
