package ast_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/ast"
	"github.com/yaramod/yaramod-go/errs"
	"github.com/yaramod/yaramod-go/parser"
)

func parseBinary(t *testing.T, conditionBody string) *ast.BinaryExpr {
	t.Helper()
	src := "rule r {\n\tcondition:\n\t\t" + conditionBody + "\n}\n"
	file, err := parser.ParseFile("test.yar", []byte(src), nil, nil, errs.FailFastReporter{})
	require.NoError(t, err)
	require.Len(t, file.Rules, 1)
	bin, ok := file.Rules[0].Condition.(*ast.BinaryExpr)
	require.Truef(t, ok, "condition %q did not parse to a BinaryExpr: %T", conditionBody, file.Rules[0].Condition)
	return bin
}

func TestConstantFoldIEquals(t *testing.T) {
	bin := parseBinary(t, `"ABC" iequals "abc"`)
	value, ok := bin.ConstantFold()
	require.True(t, ok)
	require.True(t, value)
}

func TestConstantFoldIContainsUnicode(t *testing.T) {
	bin := parseBinary(t, `"STRASSE" icontains "stra\xc3\x9fe"`)
	_, ok := bin.ConstantFold()
	require.True(t, ok)
}

func TestConstantFoldNotApplicableForNonTextPredicate(t *testing.T) {
	bin := parseBinary(t, `1 + 2 > 2`)
	_, ok := bin.ConstantFold()
	require.False(t, ok)
}

func TestConstantFoldNotApplicableWhenOperandNotLiteral(t *testing.T) {
	bin := parseBinary(t, `"abc" iequals filesize`)
	_, ok := bin.ConstantFold()
	require.False(t, ok)
}
