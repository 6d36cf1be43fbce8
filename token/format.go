package token

// Mode selects which emission-ordering cascade SpaceBetween should apply.
// The printer tracks which mode it is in as it walks the token stream
// (entering Hex at an LBraceHex and Enum inside an of-expression's
// parenthesized set) and asks SpaceBetween at every adjacent token pair.
// A regexp is a single RegexpLiteral token, and the printer never enters
// Regex.
type Mode int

const (
	Default Mode = iota
	Hex
	Regex
	Enum
)

// SpaceBetween reports whether a single space should separate cur and next
// when emitting them back to back, under the given Mode. This is the
// core's definition of canonical whitespace (spec.md §4.2): it is a pure
// function of the adjacent token kinds and the current mode, never of
// surrounding context beyond that pair.
func SpaceBetween(mode Mode, cur, next Kind) bool {
	if next == Newline {
		return false
	}

	switch mode {
	case Hex:
		switch next {
		case Comma, Newline, HexJumpClose, RBraceHex:
			return false
		}
		switch cur {
		case HexJumpOpen:
			return false
		}
		return true

	case Regex:
		return false

	case Enum:
		switch next {
		case Comma, RParenEnum:
			return false
		}
		return true

	default:
		switch next {
		case Comma, RParen, RParenCall, RParenEnum, RBracket, RBrace, Dot, Semicolon, Colon:
			return false
		}
		switch cur {
		case Dot, LParenCall, LBracket, LParen, LParenEnum, Hash, Bang, Dollar:
			return false
		}
		return true
	}
}
