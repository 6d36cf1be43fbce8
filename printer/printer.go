// Package printer replays a token.Stream back into source text: the
// formatted pretty-printer (bracket-aware line breaks, aligned trailing
// comments) and a compact variant that favors minimal whitespace.
package printer

import (
	"github.com/yaramod/yaramod-go/ast"
)

// Options configures Format's indentation unit.
type Options struct {
	// IndentUnit is repeated once per nesting level at the start of each
	// line. Defaults to a single tab, matching the teacher corpus's own
	// YARA fixtures.
	IndentUnit string
}

func (o Options) withDefaults() Options {
	if o.IndentUnit == "" {
		o.IndentUnit = "\t"
	}
	return o
}

// Format renders file through the full pretty-printer: auto-format (which
// decides bracket-aware line breaks and physically splices Newline tokens
// into file.Stream where they're missing) followed by comment-column
// alignment. Format is idempotent: AutoFormat no-ops on a stream that is
// already marked formatted, so calling Format twice reproduces the same
// text (spec.md §8's emit_formatted(parse(emit_formatted(parse(T)))) ==
// emit_formatted(parse(T)) fixed-point property).
func Format(file *ast.YaraFile) string {
	return FormatOpts(file, Options{})
}

// FormatOpts is Format with explicit Options.
func FormatOpts(file *ast.YaraFile, opts Options) string {
	opts = opts.withDefaults()
	if !file.Stream.Formatted() {
		AutoFormat(file.Stream)
	}
	targets := alignComments(file.Stream)
	return emit(file.Stream, opts, targets, false)
}

// Compact renders file with minimal whitespace: spacing is driven purely by
// token.SpaceBetween, there is no indentation and no comment-column
// alignment, and runs of blank lines collapse to a single newline. Compact
// never mutates file.Stream -- unlike Format, it does not run auto-format.
func Compact(file *ast.YaraFile) string {
	return emit(file.Stream, Options{}, nil, true)
}
