package errs_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/errs"
	"github.com/yaramod/yaramod-go/token"
)

func TestCategoryString(t *testing.T) {
	cases := map[errs.Category]string{
		errs.Lexical:   "lexical",
		errs.Syntactic: "syntactic",
		errs.Semantic:  "semantic",
		errs.Module:    "module",
		errs.Builder:   "builder",
		errs.Visitor:   "visitor",
	}
	for cat, want := range cases {
		require.Equal(t, want, cat.String())
	}
	require.Equal(t, "unknown", errs.Category(99).String())
}

func TestErrorFormattingWithAndWithoutPosition(t *testing.T) {
	pos := token.Pos{File: "rule.yar", Line: 4, Col: 2}
	withPos := errs.New(errs.Syntactic, pos, "unexpected %s", "}")
	require.Equal(t, "rule.yar:4:2: syntactic: unexpected }", withPos.Error())
	require.Equal(t, pos, withPos.Position())

	noPos := errs.NewBuilderError("condition required")
	require.Equal(t, "builder: condition required", noPos.Error())
}

func TestWrapPreservesUnderlyingError(t *testing.T) {
	underlying := errors.New("boom")
	wrapped := errs.Wrap(errs.Module, token.Pos{}, underlying)
	require.True(t, errors.Is(wrapped, underlying))
	require.Equal(t, "boom", wrapped.Message)
}

func TestTypedErrorConstructors(t *testing.T) {
	pos := token.Pos{File: "x.yar", Line: 1, Col: 1}

	parseErr := errs.NewParseError(errs.Lexical, pos, "bad token")
	require.Equal(t, errs.Lexical, parseErr.Category)

	semErr := errs.NewSemanticError(pos, "undefined identifier %q", "foo")
	require.Equal(t, errs.Semantic, semErr.Category)
	require.Contains(t, semErr.Error(), "undefined identifier \"foo\"")

	modErr := errs.NewModuleError(pos, "schema not found")
	require.Equal(t, errs.Module, modErr.Category)

	buildErr := errs.NewBuilderError("missing condition")
	require.Equal(t, errs.Builder, buildErr.Category)

	visErr := errs.NewVisitorResultError(pos, "illegal delete")
	require.Equal(t, errs.Visitor, visErr.Category)
}

func TestCollectingReporterAccumulatesAndNeverAborts(t *testing.T) {
	r := &errs.CollectingReporter{}
	e1 := errs.New(errs.Semantic, token.Pos{}, "first")
	e2 := errs.New(errs.Semantic, token.Pos{}, "second")

	require.NoError(t, r.Error(e1))
	require.NoError(t, r.Error(e2))
	r.Warning(errs.New(errs.Semantic, token.Pos{}, "warn"))

	require.Len(t, r.Errors, 2)
	require.Len(t, r.Warnings, 1)
}

func TestFailFastReporterAbortsOnFirstError(t *testing.T) {
	r := errs.FailFastReporter{}
	e := errs.New(errs.Syntactic, token.Pos{}, "bad")
	err := r.Error(e)
	require.Error(t, err)
	require.Same(t, e, err)
}

func TestHandlerStopsReportingAfterAbort(t *testing.T) {
	h := errs.NewHandler(errs.FailFastReporter{})
	require.Nil(t, h.Err())

	first := errs.New(errs.Syntactic, token.Pos{}, "first error")
	err := h.Handle(first)
	require.Error(t, err)
	require.Equal(t, err, h.Err())

	second := errs.New(errs.Syntactic, token.Pos{}, "second error")
	err2 := h.Handle(second)
	require.Equal(t, err, err2, "handler should keep returning the first abort error")
}

func TestHandlerDefaultsToFailFastWhenReporterNil(t *testing.T) {
	h := errs.NewHandler(nil)
	err := h.Handle(errs.New(errs.Lexical, token.Pos{}, "boom"))
	require.Error(t, err)
}

func TestHandlerWithCollectingReporterNeverAborts(t *testing.T) {
	r := &errs.CollectingReporter{}
	h := errs.NewHandler(r)

	require.NoError(t, h.Handle(errs.New(errs.Semantic, token.Pos{}, "one")))
	require.NoError(t, h.Handle(errs.New(errs.Semantic, token.Pos{}, "two")))
	require.Nil(t, h.Err())
	require.Len(t, r.Errors, 2)
}
