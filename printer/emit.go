package printer

import (
	"strings"

	"github.com/rivo/uniseg"

	"github.com/yaramod/yaramod-go/token"
)

// emit replays s into text. targets (from alignComments) may be nil; when
// non-nil, it supplies a padding column for specific trailing-comment
// tokens. When collapseBlank is true, runs of consecutive Newline tokens
// collapse to one and indentation is suppressed -- the compact variant.
func emit(s *token.Stream, opts Options, targets map[token.Token]int, collapseBlank bool) string {
	opts = opts.withDefaults()
	if collapseBlank {
		opts.IndentUnit = ""
	}

	var b strings.Builder
	mode := token.Default
	var modeStack []token.Mode

	atLineStart := true
	col := 0
	var prevKind token.Kind
	havePrev := false
	blankRun := 0

	for tok := range s.All() {
		k := tok.Kind()

		if k == token.Newline {
			blankRun++
			if collapseBlank && blankRun > 1 {
				continue
			}
			b.WriteByte('\n')
			atLineStart = true
			col = 0
			havePrev = false
			continue
		}
		blankRun = 0

		if atLineStart {
			if opts.IndentUnit != "" && tok.Indent() > 0 {
				pad := strings.Repeat(opts.IndentUnit, tok.Indent())
				b.WriteString(pad)
				col += uniseg.GraphemeClusterCount(pad)
			}
			atLineStart = false
		} else if havePrev && token.SpaceBetween(mode, prevKind, k) {
			b.WriteByte(' ')
			col++
		}

		if target, ok := targets[tok]; ok && col < target {
			b.WriteString(strings.Repeat(" ", target-col))
			col = target
		}

		text := tok.Text()
		b.WriteString(text)
		col += uniseg.GraphemeClusterCount(text)
		prevKind, havePrev = k, true

		switch k {
		case token.LBraceHex:
			modeStack = append(modeStack, mode)
			mode = token.Hex
		case token.RBraceHex:
			mode = popMode(&modeStack, mode)
		case token.LParenEnum:
			modeStack = append(modeStack, mode)
			mode = token.Enum
		case token.RParenEnum:
			mode = popMode(&modeStack, mode)
		}
	}

	return b.String()
}

func popMode(stack *[]token.Mode, cur token.Mode) token.Mode {
	if len(*stack) == 0 {
		return cur
	}
	n := len(*stack) - 1
	m := (*stack)[n]
	*stack = (*stack)[:n]
	return m
}
