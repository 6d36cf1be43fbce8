package printer

import (
	"github.com/rivo/uniseg"

	"github.com/yaramod/yaramod-go/token"
)

// alignComments implements spec.md §4.2's comment-alignment contract: a dry
// pass records, for every line, the widest column reached by non-comment
// content; the result maps each trailing comment token on that line to its
// target column, one past that width, so emit can pad up to it.
//
// Columns are counted in grapheme clusters via uniseg rather than bytes or
// runes, so combining marks in e.g. a meta string don't throw off
// alignment the way a naive len() would.
//
// Spacing within a line is estimated with token.SpaceBetween in Default
// mode; a trailing comment inside a hex string or an of-expression's
// parenthesized set is rare enough in practice that the Default-mode
// estimate is accepted as a known simplification (see DESIGN.md).
func alignComments(s *token.Stream) map[token.Token]int {
	targets := map[token.Token]int{}

	col := 0
	maxCol := 0
	var pending []token.Token
	var prevKind token.Kind
	havePrev := false

	flushLine := func() {
		for _, c := range pending {
			targets[c] = maxCol + 1
		}
		pending = pending[:0]
		col, maxCol = 0, 0
		havePrev = false
	}

	for tok := range s.All() {
		k := tok.Kind()
		if k == token.Newline {
			flushLine()
			continue
		}

		if havePrev && token.SpaceBetween(token.Default, prevKind, k) {
			col++
		}
		prevKind, havePrev = k, true

		switch k {
		case token.LineComment, token.BlockComment:
			pending = append(pending, tok)
		default:
			col += uniseg.GraphemeClusterCount(tok.Text())
			if col > maxCol {
				maxCol = col
			}
		}
	}
	flushLine()

	return targets
}
