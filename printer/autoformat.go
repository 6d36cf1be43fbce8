package printer

import (
	"github.com/yaramod/yaramod-go/literal"
	"github.com/yaramod/yaramod-go/token"
)

// AutoFormat runs the two-pass transformation from spec.md §4.2: a mark
// pass decides which bracket pairs open a "new-line sector" (their matching
// brackets each get their own line), then an insert pass splices Newline
// tokens into any such sector that doesn't already have one and stamps
// every token with the indent level its line prints at (token.Token.Indent,
// consumed by emit).
//
// AutoFormat is a no-op if s is already marked formatted, so running it
// twice is safe and idempotent.
func AutoFormat(s *token.Stream) {
	if s.Formatted() {
		return
	}
	markSectors(s)
	insertSectors(s)
	s.SetFormatted(true)
}

// isCloseBracket reports whether k is one of the close-bracket kinds
// token.Kind.MatchingClose maps an open bracket to.
func isCloseBracket(k token.Kind) bool {
	switch k {
	case token.RParen, token.RParenCall, token.RParenEnum, token.RBrace, token.RBraceHex, token.RBracket:
		return true
	default:
		return false
	}
}

// markSectors traverses forward, maintaining a stack of open-bracket
// tokens. A newline while a bracket is open marks that bracket (its
// contents already span multiple lines in the source, so the formatter
// should keep them that way); a close bracket inherits its matching open
// bracket's mark.
func markSectors(s *token.Stream) {
	var stack []token.Token
	for tok := range s.All() {
		switch {
		case tok.Kind() == token.Newline:
			if len(stack) > 0 {
				stack[len(stack)-1].SetFlag(token.FlagNewlineSector)
			}
		case tok.Kind().IsOpenBracket():
			stack = append(stack, tok)
		case isCloseBracket(tok.Kind()):
			if len(stack) == 0 {
				continue
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if open.HasFlag(token.FlagNewlineSector) {
				tok.SetFlag(token.FlagNewlineSector)
			}
		}
	}
}

// insertSectors is the insert pass: it walks the stream once more, pushing
// an indent level on every marked open bracket and popping it on the
// matching close, inserting a Newline token around the bracket wherever the
// sector requires one but none is already present.
func insertSectors(s *token.Stream) {
	type frame struct{ indent int }
	var stack []frame
	indent := 0

	tok := s.First()
	for tok.Valid() {
		next := token.Next(tok)
		k := tok.Kind()

		isOpen := k.IsOpenBracket() && tok.HasFlag(token.FlagNewlineSector)
		isClose := isCloseBracket(k) && tok.HasFlag(token.FlagNewlineSector)

		if isClose && len(stack) > 0 {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			indent = top.indent
			if prev := token.Prev(tok); prev.Valid() && prev.Kind() != token.Newline {
				s.EmplaceBefore(tok, token.Newline, literal.Literal{})
			}
		}

		tok.SetIndent(indent)

		if isOpen {
			stack = append(stack, frame{indent: indent})
			indent++
			if next.Valid() && next.Kind() != token.Newline {
				next = s.EmplaceAfter(tok, token.Newline, literal.Literal{})
			}
		}

		tok = next
	}
}
