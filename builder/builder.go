// Package builder implements the fluent construction API: value-type
// builders that let a caller assemble a YaraFile, a Rule, a condition
// expression, or a hex string entirely in Go, without hand-writing YARA
// source text.
//
// Each builder owns a private token.Stream of its own. Combinator calls
// mint fresh tokens into that stream and splice in any operand builder's
// stream, so the fragment a builder produces is already a fully formed,
// printer-ready slice of a token.Stream by the time it's attached to a
// Rule or YaraFile -- exactly the same token-linked shape the parser
// itself would have produced.
package builder

import (
	"github.com/oklog/ulid/v2"

	"github.com/yaramod/yaramod-go/token"
)

// syntheticPos returns a Pos for a token minted by a builder rather than
// scanned from real source. The ULID gives every synthetic position a
// sortable, collision-free identity, which is all a synthetic Pos needs:
// there is no source file or line/column for a builder-minted token to
// honestly report (errs.NewBuilderError uses the same zero-line
// convention to mark a position as synthetic).
func syntheticPos() token.Pos {
	return token.Pos{File: "builder:" + ulid.Make().String()}
}
