package builder_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/builder"
)

func TestFileBuilderRequiresAtLeastOneRule(t *testing.T) {
	_, err := builder.NewFile().Build()
	require.Error(t, err)
}

func TestFileBuilderSingleRuleRoundTrips(t *testing.T) {
	file, text, err := builder.NewFile().
		WithImport("pe").
		WithRule(
			builder.NewRule("example").
				MetaString("author", "jdoe").
				PlainString("a", "foo").
				Condition(builder.StringRef("a")),
		).
		BuildAndValidate()
	require.NoError(t, err)
	require.Contains(t, text, `import "pe"`)
	require.Contains(t, text, "rule example")
	require.Len(t, file.Rules, 1)
}

func TestFileBuilderMultipleRules(t *testing.T) {
	file, err := builder.NewFile().
		WithRule(builder.NewRule("a").Condition(builder.BoolLit(true))).
		WithRule(builder.NewRule("b").Condition(builder.BoolLit(false))).
		Build()
	require.NoError(t, err)
	require.Len(t, file.Rules, 2)
	require.Equal(t, "a", file.Rules[0].Name)
	require.Equal(t, "b", file.Rules[1].Name)
}

func TestFileBuilderRejectsDuplicateRuleNames(t *testing.T) {
	_, err := builder.NewFile().
		WithRule(builder.NewRule("a").Condition(builder.BoolLit(true))).
		WithRule(builder.NewRule("a").Condition(builder.BoolLit(true))).
		Build()
	require.Error(t, err)
}

func TestFileBuilderPropagatesRuleError(t *testing.T) {
	_, err := builder.NewFile().
		WithRule(builder.NewRule("a")). // no condition set
		Build()
	require.Error(t, err)
}

func TestFileBuilderCrossRuleCondition(t *testing.T) {
	_, text, err := builder.NewFile().
		WithRule(
			builder.NewRule("helper").Condition(builder.BoolLit(true)),
		).
		WithRule(
			builder.NewRule("main").Condition(builder.Ident("helper")),
		).
		BuildAndValidate()
	require.NoError(t, err)
	require.Contains(t, text, "rule helper")
	require.Contains(t, text, "rule main")
}
