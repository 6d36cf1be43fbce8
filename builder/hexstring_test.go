package builder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/builder"
	"github.com/yaramod/yaramod-go/hexstring"
)

func TestHexStringBuilderBasic(t *testing.T) {
	units, err := builder.NewHexString().
		Byte(0x1A).
		Wildcard().
		WildcardLow(0xF).
		WildcardHigh(0x2).
		Get()
	require.NoError(t, err)
	require.Equal(t, "1A ?? ?F 2?", hexstring.Text(units))
}

func TestHexStringBuilderJumps(t *testing.T) {
	units, err := builder.NewHexString().
		Byte(0x10).
		Jump(4, 6).
		JumpOpenLow(3).
		JumpOpenHigh(2).
		JumpUnbounded().
		Get()
	require.NoError(t, err)
	require.Equal(t, "10 [4-6] [-3] [2-] [-]", hexstring.Text(units))
}

func TestHexStringBuilderSingleValueJump(t *testing.T) {
	units, err := builder.NewHexString().Jump(4, 4).Get()
	require.NoError(t, err)
	require.Equal(t, "[4]", hexstring.Text(units))
}

func TestHexStringBuilderInvalidJumpRange(t *testing.T) {
	_, err := builder.NewHexString().Jump(6, 4).Get()
	require.Error(t, err)
}

func TestHexStringBuilderAlternation(t *testing.T) {
	units, err := builder.NewHexString().
		Byte(0x11).
		Alt(
			builder.NewHexString().Byte(0x22),
			builder.NewHexString().Byte(0x33).Byte(0x44),
		).
		Get()
	require.NoError(t, err)
	require.Equal(t, "11 (22 | 33 44)", hexstring.Text(units))
}

func TestHexStringBuilderAlternationNeedsTwoBranches(t *testing.T) {
	_, err := builder.NewHexString().
		Alt(builder.NewHexString().Byte(0x22)).
		Get()
	require.Error(t, err)
}

func TestHexStringBuilderEmptyIsError(t *testing.T) {
	_, err := builder.NewHexString().Get()
	require.Error(t, err)
}

func TestHexStringBuilderSticksOnFirstError(t *testing.T) {
	_, err := builder.NewHexString().Jump(6, 4).Byte(0x11).Wildcard().Get()
	require.Error(t, err)
}
