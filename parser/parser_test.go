package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/ast"
	"github.com/yaramod/yaramod-go/errs"
)

func parseOK(t *testing.T, src string) *ast.YaraFile {
	t.Helper()
	file, err := ParseFile("test.yar", []byte(src), nil, nil, errs.FailFastReporter{})
	require.NoErrorf(t, err, "unexpected parse error for:\n%s", src)
	return file
}

func parseErr(t *testing.T, src string) error {
	t.Helper()
	_, err := ParseFile("test.yar", []byte(src), nil, nil, errs.FailFastReporter{})
	require.Errorf(t, err, "expected parse error for:\n%s", src)
	return err
}

func TestParseMinimalRule(t *testing.T) {
	file := parseOK(t, `
rule Foo {
	condition:
		true
}
`)
	require.Len(t, file.Rules, 1)
	r := file.Rules[0]
	require.Equal(t, "Foo", r.Name)
	require.False(t, r.Private)
	require.False(t, r.Global)

	lit, ok := r.Condition.(*ast.LiteralExpr)
	require.Truef(t, ok, "condition type = %T, want *ast.LiteralExpr", r.Condition)
	b, _ := lit.Value.BoolValue()
	require.True(t, b)
}

func TestParseRuleModifiersAndTags(t *testing.T) {
	file := parseOK(t, `
private global rule Tagged : foo bar {
	condition:
		false
}
`)
	r := file.Rules[0]
	require.True(t, r.Private)
	require.True(t, r.Global)
	require.Equal(t, []string{"foo", "bar"}, r.Tags)
}

func TestParseImportDedup(t *testing.T) {
	file := parseOK(t, `
import "pe"
import "pe"
import "math"

rule R { condition: true }
`)
	require.Len(t, file.Imports, 2)
}

func TestParseDuplicateRuleName(t *testing.T) {
	err := parseErr(t, `
rule Dup { condition: true }
rule Dup { condition: false }
`)
	require.Contains(t, err.Error(), "already defined")
}

func TestParseMetaSection(t *testing.T) {
	file := parseOK(t, `
rule R {
	meta:
		author = "me"
		count = 3
		neg = -1
		active = true
	condition:
		true
}
`)
	r := file.Rules[0]
	require.Len(t, r.Metas, 4)

	author := r.Metas[0]
	require.Equal(t, "author", author.Key)
	s, _ := author.Value.StringValue()
	require.Equal(t, "me", s)

	neg := r.Metas[2]
	i, _ := neg.Value.IntValue()
	require.Equal(t, int64(-1), i)
}

func TestParsePlainString(t *testing.T) {
	file := parseOK(t, `
rule R {
	strings:
		$a = "hello" nocase wide fullword
	condition:
		$a
}
`)
	str, ok := file.Rules[0].Strings.Get("a")
	require.True(t, ok)
	require.Equal(t, ast.Plain, str.Kind)
	require.Equal(t, "hello", str.Text)
	require.True(t, str.Modifiers.Has(ast.ModNocase))
	require.True(t, str.Modifiers.Has(ast.ModWide))
	require.True(t, str.Modifiers.Has(ast.ModFullword))

	cond, ok := file.Rules[0].Condition.(*ast.StringRefExpr)
	require.Truef(t, ok, "condition type = %T, want *ast.StringRefExpr", file.Rules[0].Condition)
	require.Equal(t, ast.RefPlain, cond.Kind)
	require.Equal(t, "a", cond.Name)
}

func TestParseHexString(t *testing.T) {
	file := parseOK(t, `
rule R {
	strings:
		$a = { 01 02 ?? A? [3-5] ( 01 02 | 03 04 ) }
	condition:
		$a
}
`)
	str, _ := file.Rules[0].Strings.Get("a")
	require.Equal(t, ast.Hex, str.Kind)
	require.Greater(t, str.HexLength(), 0)
}

func TestParseRegexpString(t *testing.T) {
	file := parseOK(t, `
rule R {
	strings:
		$a = /foo[0-9]+bar/i
	condition:
		$a
}
`)
	str, _ := file.Rules[0].Strings.Get("a")
	require.Equal(t, ast.Regexp, str.Kind)
	require.Equal(t, "i", str.RegexFlags)
	require.Truef(t, str.Modifiers.Has(ast.ModNocase), "expected regexp /i to fold into ModNocase")
}

func TestParseXorStringWithRange(t *testing.T) {
	file := parseOK(t, `
rule R {
	strings:
		$a = "secret" xor(1-255)
	condition:
		$a
}
`)
	str, _ := file.Rules[0].Strings.Get("a")
	require.True(t, str.Modifiers.Has(ast.ModXor))
	require.True(t, str.XorHasRange)
	require.Equal(t, 1, str.XorLow)
	require.Equal(t, 255, str.XorHigh)
}

func TestParseDuplicateStringID(t *testing.T) {
	err := parseErr(t, `
rule R {
	strings:
		$a = "x"
		$a = "y"
	condition:
		$a
}
`)
	require.Contains(t, err.Error(), "already defined")
}

func TestParseConditionPrecedence(t *testing.T) {
	file := parseOK(t, `
rule R {
	condition:
		1 + 2 * 3 == 7 and not false or true
}
`)
	top, ok := file.Rules[0].Condition.(*ast.BinaryExpr)
	require.Truef(t, ok, "condition type = %T, want *ast.BinaryExpr", file.Rules[0].Condition)
	require.Equalf(t, ast.Or, top.Op, "top operator should be Or (loosest precedence)")
}

func TestParseConditionMatchesRegexpLiteral(t *testing.T) {
	file := parseOK(t, `
rule R {
	condition:
		"abc123" matches /[a-z]+[0-9]+/i
}
`)
	bin, ok := file.Rules[0].Condition.(*ast.BinaryExpr)
	require.Truef(t, ok, "condition type = %T, want *ast.BinaryExpr", file.Rules[0].Condition)
	require.Equal(t, ast.Matches, bin.Op)

	rhs, ok := bin.Right.(*ast.LiteralExpr)
	require.Truef(t, ok, "rhs type = %T, want *ast.LiteralExpr", bin.Right)
	require.NotNil(t, rhs.Regexp)
	require.Equal(t, "/[a-z]+[0-9]+/", rhs.Text())
}

func TestParseConditionMatchesFollowedByDivision(t *testing.T) {
	// The scanner must fall back to modeDefault once the regexp literal
	// closes, so a following arithmetic expression still lexes "/" as
	// division rather than staying stuck in regex mode.
	file := parseOK(t, `
rule R {
	condition:
		"abc" matches /abc/ and 10 / 2 == 5
}
`)
	top, ok := file.Rules[0].Condition.(*ast.BinaryExpr)
	require.Truef(t, ok, "condition type = %T, want *ast.BinaryExpr", file.Rules[0].Condition)
	require.Equal(t, ast.And, top.Op)
}

func TestParseStringCountOffsetLength(t *testing.T) {
	file := parseOK(t, `
rule R {
	strings:
		$a = "x"
	condition:
		#a > 1 and @a[1] > 0 and !a[1] > 0
}
`)
	require.NotNil(t, file.Rules[0].Condition)
}

func TestParseStringAtAndIn(t *testing.T) {
	file := parseOK(t, `
rule R {
	strings:
		$a = "x"
	condition:
		$a at 0 and $a in (0..100)
}
`)
	top := file.Rules[0].Condition.(*ast.BinaryExpr)
	left := top.Left.(*ast.StringRefExpr)
	require.Equal(t, ast.RefAt, left.Kind)
	right := top.Right.(*ast.StringRefExpr)
	require.Equal(t, ast.RefIn, right.Kind)
}

func TestParseOfExpressions(t *testing.T) {
	file := parseOK(t, `
rule R {
	strings:
		$a = "a"
		$b = "b"
	condition:
		any of them and 2 of ($a, $b) and 50% of them
}
`)
	top := file.Rules[0].Condition
	_, ok := top.(*ast.BinaryExpr)
	require.Truef(t, ok, "condition type = %T", top)
}

func TestParseOfExprSingle(t *testing.T) {
	file := parseOK(t, `
rule R {
	strings:
		$a = "a"
	condition:
		all of ($a*)
}
`)
	of, ok := file.Rules[0].Condition.(*ast.OfExpr)
	require.Truef(t, ok, "condition type = %T, want *ast.OfExpr", file.Rules[0].Condition)
	require.True(t, of.Quantifier.All)
	require.Len(t, of.Iterable.Strings, 1)
	require.Equal(t, ast.RefWildcard, of.Iterable.Strings[0].Kind)
}

func TestParseForExprIntRange(t *testing.T) {
	file := parseOK(t, `
rule R {
	condition:
		for any i in (1..10) : (i > 5)
}
`)
	fe, ok := file.Rules[0].Condition.(*ast.ForExpr)
	require.Truef(t, ok, "condition type = %T, want *ast.ForExpr", file.Rules[0].Condition)
	require.True(t, fe.Quantifier.Any)
	require.Equal(t, ast.IterIntRange, fe.Iterable.Kind)
	require.Equal(t, []string{"i"}, fe.Vars)
}

func TestParseForExprStringSet(t *testing.T) {
	file := parseOK(t, `
rule R {
	strings:
		$a = "a"
		$b = "b"
	condition:
		for all of them : ( $ )
}
`)
	fe, ok := file.Rules[0].Condition.(*ast.ForExpr)
	require.Truef(t, ok, "condition type = %T, want *ast.ForExpr", file.Rules[0].Condition)
	require.True(t, fe.Quantifier.All)
	body, ok := fe.Body.(*ast.StringRefExpr)
	require.True(t, ok)
	require.Equal(t, ast.RefAnonymous, body.Kind)
}

func TestParseWithExpr(t *testing.T) {
	file := parseOK(t, `
rule R {
	condition:
		with x = 1, y = 2 : (x < y)
}
`)
	we, ok := file.Rules[0].Condition.(*ast.WithExpr)
	require.Truef(t, ok, "condition type = %T, want *ast.WithExpr", file.Rules[0].Condition)
	require.Len(t, we.Bindings, 2)
	require.Equal(t, "x", we.Bindings[0].Name)
	require.Equal(t, "y", we.Bindings[1].Name)

	inner, ok := we.Body.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.Lt, inner.Op)
}

func TestParseIntReader(t *testing.T) {
	file := parseOK(t, `
rule R {
	condition:
		int32be(0) == 0x7f454c46 and uint8(4) == 1
}
`)
	top := file.Rules[0].Condition.(*ast.BinaryExpr)
	left := top.Left.(*ast.BinaryExpr)
	reader, ok := left.Left.(*ast.IntReaderExpr)
	require.Truef(t, ok, "left.Left type = %T, want *ast.IntReaderExpr", left.Left)
	require.Equal(t, 32, reader.Func.Bits)
	require.False(t, reader.Func.Unsigned)
	require.True(t, reader.Func.BigEndian)
}

func TestParseKeywordPrimaries(t *testing.T) {
	file := parseOK(t, `
rule R {
	condition:
		filesize > 100 and entrypoint == 0
}
`)
	top := file.Rules[0].Condition.(*ast.BinaryExpr)
	left := top.Left.(*ast.BinaryExpr)
	_, ok := left.Left.(*ast.KeywordExpr)
	require.Truef(t, ok, "left.Left type = %T, want *ast.KeywordExpr", left.Left)
}

func TestParseUnresolvedIdentifierIsBestEffort(t *testing.T) {
	// "mystery" is neither a rule, a local, nor an import; the parser must
	// not fail outright -- resolution is deferred to a later semantic pass.
	file := parseOK(t, `
rule R {
	condition:
		mystery == 1
}
`)
	top := file.Rules[0].Condition.(*ast.BinaryExpr)
	id, ok := top.Left.(*ast.Identifier)
	require.Truef(t, ok, "left type = %T, want *ast.Identifier", top.Left)
	require.Nil(t, id.Symbol)
}

func TestParseRuleReferenceResolves(t *testing.T) {
	file := parseOK(t, `
rule A { condition: true }
rule B { condition: A and true }
`)
	cond := file.Rules[1].Condition.(*ast.BinaryExpr)
	id := cond.Left.(*ast.Identifier)
	require.NotNil(t, id.Symbol)
}
