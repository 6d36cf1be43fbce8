package builder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/ast"
	"github.com/yaramod/yaramod-go/builder"
)

func TestRuleBuilderRequiresCondition(t *testing.T) {
	_, err := builder.NewRule("r").Get()
	require.Error(t, err)
}

func TestRuleBuilderBasic(t *testing.T) {
	r, err := builder.NewRule("silent_banker").
		Tag("banker").
		MetaString("author", "jdoe").
		MetaBool("is_malware", true).
		PlainString("a", "foo").
		Condition(builder.StringRef("a")).
		Get()
	require.NoError(t, err)
	require.Equal(t, "silent_banker", r.Name)
	require.Len(t, r.Tags, 1)
	require.Equal(t, "banker", r.Tags[0])
	require.Len(t, r.Metas, 2)
	require.Len(t, r.Strings.All(), 1)
	require.NotNil(t, r.Condition)
}

func TestRuleBuilderModifiers(t *testing.T) {
	r, err := builder.NewRule("r").
		Private().
		Condition(builder.BoolLit(true)).
		Get()
	require.NoError(t, err)
	require.True(t, r.Private)
	require.False(t, r.Global)
}

func TestRuleBuilderHexString(t *testing.T) {
	hex := builder.NewHexString().Byte(0x1A).Wildcard()
	r, err := builder.NewRule("r").
		HexString("a", hex).
		Condition(builder.StringRef("a")).
		Get()
	require.NoError(t, err)
	require.Len(t, r.Strings.All(), 1)
	require.Equal(t, ast.Hex, r.Strings.All()[0].Kind)
}

func TestRuleBuilderRegexpString(t *testing.T) {
	r, err := builder.NewRule("r").
		RegexpString("a", "foo.*bar", "i").
		Condition(builder.StringRef("a")).
		Get()
	require.NoError(t, err)
	require.Equal(t, ast.Regexp, r.Strings.All()[0].Kind)
	require.Equal(t, "i", r.Strings.All()[0].RegexFlags)
}

func TestRuleBuilderRoundTrips(t *testing.T) {
	rb := builder.NewRule("silent_banker").
		Tag("banker").
		MetaString("author", "jdoe").
		PlainString("a", "foo").
		Condition(builder.StringRef("a"))

	file, text, err := builder.NewFile().WithRule(rb).BuildAndValidate()
	require.NoError(t, err)
	require.Contains(t, text, "rule silent_banker")
	require.Contains(t, text, "$a")
	rule, ok := file.FindRule("silent_banker")
	require.True(t, ok)
	require.Equal(t, "silent_banker", rule.Name)
}

func TestRuleBuilderMultipleStringsPreserveOrder(t *testing.T) {
	r, err := builder.NewRule("r").
		PlainString("a", "foo").
		PlainString("b", "bar").
		Condition(builder.StringRef("a").And(builder.StringRef("b"))).
		Get()
	require.NoError(t, err)
	all := r.Strings.All()
	require.Len(t, all, 2)
	require.Equal(t, "a", all[0].Identifier)
	require.Equal(t, "b", all[1].Identifier)
}

func TestRuleBuilderPropagatesConditionError(t *testing.T) {
	bad := builder.StringOffsetRef("a", builder.IntLit(0), builder.IntLit(1))
	_, err := builder.NewRule("r").Condition(bad).Get()
	require.Error(t, err)
}
