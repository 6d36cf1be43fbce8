package printer_test

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/errs"
	"github.com/yaramod/yaramod-go/parser"
	"github.com/yaramod/yaramod-go/printer"
)

func TestMain(m *testing.M) {
	v := m.Run()
	snaps.Clean(m)
	_ = v
}

func TestFormatSimpleRuleSnapshot(t *testing.T) {
	src := `rule Foo : bar {
	meta:
		author = "me"
	strings:
		$a = "hello" nocase
		$b = { 01 02 ?? [2-4] ( 03 | 04 ) }
	condition:
		$a and $b
}
`
	file, err := parser.ParseFile("test.yar", []byte(src), nil, nil, errs.FailFastReporter{})
	require.NoError(t, err)

	snaps.MatchSnapshot(t, printer.Format(file))
}

func TestFormatIsIdempotent(t *testing.T) {
	src := `rule Foo {
	condition:
		true and (false or true)
}
`
	file, err := parser.ParseFile("test.yar", []byte(src), nil, nil, errs.FailFastReporter{})
	require.NoError(t, err)

	once := printer.Format(file)

	file2, err := parser.ParseFile("test.yar", []byte(once), nil, nil, errs.FailFastReporter{})
	require.NoError(t, err)
	twice := printer.Format(file2)

	require.Equal(t, once, twice)
}

func TestCompactCollapsesWhitespace(t *testing.T) {
	src := `rule Foo {


	condition:
		true
}
`
	file, err := parser.ParseFile("test.yar", []byte(src), nil, nil, errs.FailFastReporter{})
	require.NoError(t, err)

	compact := printer.Compact(file)
	require.NotContains(t, compact, "\n\n\n")
}

func TestFormatPreservesTrailingComment(t *testing.T) {
	src := `rule Foo {
	condition:
		true // always matches
}
`
	file, err := parser.ParseFile("test.yar", []byte(src), nil, nil, errs.FailFastReporter{})
	require.NoError(t, err)

	out := printer.Format(file)
	require.Contains(t, out, "always matches")
}
