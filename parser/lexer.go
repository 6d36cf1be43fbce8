// Package parser implements the grammar-driven scanner and recursive
// descent/precedence-climbing driver that turns YARA rule source into a
// token.Stream and a fully linked ast.YaraFile.
package parser

import (
	"strconv"
	"strings"

	"github.com/yaramod/yaramod-go/errs"
	"github.com/yaramod/yaramod-go/literal"
	"github.com/yaramod/yaramod-go/token"
)

// lexMode is the scanner's current state. The driver sets it at
// mode-changing terminals ("{" after "strings:" style context enters Hex,
// "/" in an expression position enters Regex, after "include" enters
// IncludePath); the scanner's token-producing logic branches on mode,
// mirroring the stateful scanner design taught by the teacher's
// hand-written lexer (spec.md §4.7, SPEC_FULL.md §4.7).
type lexMode int

const (
	modeDefault lexMode = iota
	modeHex
	modeRegex
	modeIncludePath
)

// scanner is the stateful lexer. It does not itself decide when to switch
// modes for hex/regex/include; the parser driver does, because only the
// driver knows the grammatical position it is in.
type scanner struct {
	src      []byte
	filename string
	offset   int
	line     int
	col      int
	mode     lexMode
}

func newScanner(filename string, src []byte) *scanner {
	return &scanner{src: src, filename: filename, line: 1, col: 1}
}

func (s *scanner) pos() token.Pos {
	return token.Pos{File: s.filename, Line: s.line, Col: s.col}
}

func (s *scanner) eof() bool { return s.offset >= len(s.src) }

func (s *scanner) peek() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.offset]
}

func (s *scanner) peekAt(n int) byte {
	if s.offset+n >= len(s.src) {
		return 0
	}
	return s.src[s.offset+n]
}

func (s *scanner) advance() byte {
	c := s.src[s.offset]
	s.offset++
	if c == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return c
}

// scanned is one lexeme produced by the scanner, ready for the driver to
// push onto the token.Stream.
type scanned struct {
	kind Kind
	lit  literal.Literal
	pos  token.Pos
	// extra carries auxiliary data a single Literal can't hold, e.g. a
	// regexp literal's trailing i/s flags alongside its body text.
	extra string
}

// Kind aliases token.Kind for readability within this package.
type Kind = token.Kind

func (s *scanner) skipSkippable(push func(scanned)) {
	for !s.eof() {
		c := s.peek()
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			s.advance()
		case c == '\n':
			pos := s.pos()
			s.advance()
			push(scanned{kind: token.Newline, pos: pos})
		case c == '/' && s.peekAt(1) == '/':
			pos := s.pos()
			start := s.offset
			for !s.eof() && s.peek() != '\n' {
				s.advance()
			}
			push(scanned{kind: token.LineComment, lit: literal.NewString(string(s.src[start:s.offset]), true), pos: pos})
		case c == '/' && s.peekAt(1) == '*':
			pos := s.pos()
			start := s.offset
			s.advance()
			s.advance()
			for !s.eof() && !(s.peek() == '*' && s.peekAt(1) == '/') {
				s.advance()
			}
			if !s.eof() {
				s.advance()
				s.advance()
			}
			push(scanned{kind: token.BlockComment, lit: literal.NewString(string(s.src[start:s.offset]), true), pos: pos})
		default:
			return
		}
	}
}

var keywords = map[string]Kind{
	"rule":        token.KwRule,
	"private":     token.KwPrivate,
	"global":      token.KwGlobal,
	"import":      token.KwImport,
	"include":     token.KwInclude,
	"meta":        token.KwMeta,
	"strings":     token.KwStrings,
	"condition":   token.KwCondition,
	"ascii":       token.KwAscii,
	"wide":        token.KwWide,
	"nocase":      token.KwNocase,
	"fullword":    token.KwFullword,
	"xor":         token.KwXor,
	"base64":      token.KwBase64,
	"base64wide":  token.KwBase64Wide,
	"and":         token.KwAnd,
	"or":          token.KwOr,
	"not":         token.KwNot,
	"any":         token.KwAny,
	"all":         token.KwAll,
	"none":        token.KwNone,
	"them":        token.KwThem,
	"this":        token.KwThis,
	"for":         token.KwFor,
	"in":          token.KwIn,
	"of":          token.KwOf,
	"entrypoint":  token.KwEntrypoint,
	"filesize":    token.KwFilesize,
	"matches":     token.KwMatches,
	"contains":    token.KwContains,
	"icontains":   token.KwIContains,
	"startswith":  token.KwStartswith,
	"istartswith": token.KwIStartswith,
	"endswith":    token.KwEndswith,
	"iendswith":   token.KwIEndswith,
	"iequals":     token.KwIEquals,
	"at":          token.KwAt,
	"true":        token.KwTrue,
	"false":       token.KwFalse,
	"defined":     token.KwDefined,
	"with":        token.Identifier, // `with` is contextual; handled by driver
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentCont(c byte) bool { return isIdentStart(c) || (c >= '0' && c <= '9') }
func isDigit(c byte) bool     { return c >= '0' && c <= '9' }
func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// next returns the next grammar-significant lexeme (skippable tokens are
// reported through push so the driver can still record them into the
// stream for faithful round-tripping, but next never returns one).
func (s *scanner) next(push func(scanned)) (scanned, error) {
	s.skipSkippable(push)
	if s.eof() {
		return scanned{kind: token.EOF, pos: s.pos()}, nil
	}

	if s.mode == modeIncludePath {
		return s.scanIncludePath()
	}
	if s.mode == modeRegex {
		return s.scanRegexBody()
	}
	if s.mode == modeHex {
		return s.scanHexToken()
	}

	pos := s.pos()
	c := s.peek()

	switch {
	case isIdentStart(c):
		start := s.offset
		for !s.eof() && isIdentCont(s.peek()) {
			s.advance()
		}
		word := string(s.src[start:s.offset])
		if kind, ok := keywords[word]; ok && word != "with" {
			return scanned{kind: kind, pos: pos}, nil
		}
		if len(word) >= 4 && (strings.HasPrefix(word, "int") || strings.HasPrefix(word, "uint")) {
			if kind, ok := intReaderKind(word); ok {
				return scanned{kind: kind, lit: literal.NewSymbol(word), pos: pos}, nil
			}
		}
		return scanned{kind: token.Identifier, lit: literal.NewSymbol(word), pos: pos}, nil

	case c == '$':
		return s.scanStringSigil(pos, token.Dollar)
	case c == '#':
		return s.scanStringSigil(pos, token.Hash)
	case c == '@':
		return s.scanStringSigil(pos, token.KwAt)
	case c == '!':
		if isIdentStart(s.peekAt(1)) {
			return s.scanStringSigil(pos, token.Bang)
		}
		s.advance()
		if s.peek() == '=' {
			s.advance()
			return scanned{kind: token.Neq, pos: pos}, nil
		}
		return scanned{kind: token.Bang, pos: pos}, nil

	case c == '"':
		return s.scanString(pos)

	case isDigit(c):
		return s.scanNumber(pos)

	case c == '{':
		s.advance()
		return scanned{kind: token.LBrace, pos: pos}, nil
	case c == '}':
		s.advance()
		return scanned{kind: token.RBrace, pos: pos}, nil
	case c == '(':
		s.advance()
		return scanned{kind: token.LParen, pos: pos}, nil
	case c == ')':
		s.advance()
		return scanned{kind: token.RParen, pos: pos}, nil
	case c == '[':
		s.advance()
		return scanned{kind: token.LBracket, pos: pos}, nil
	case c == ']':
		s.advance()
		return scanned{kind: token.RBracket, pos: pos}, nil
	case c == ',':
		s.advance()
		return scanned{kind: token.Comma, pos: pos}, nil
	case c == ':':
		s.advance()
		return scanned{kind: token.Colon, pos: pos}, nil
	case c == '.':
		s.advance()
		if s.peek() == '.' {
			s.advance()
			return scanned{kind: token.DotDot, pos: pos}, nil
		}
		return scanned{kind: token.Dot, pos: pos}, nil
	case c == '=':
		s.advance()
		if s.peek() == '=' {
			s.advance()
			return scanned{kind: token.Eq, pos: pos}, nil
		}
		return scanned{kind: token.Assign, pos: pos}, nil
	case c == '<':
		s.advance()
		switch s.peek() {
		case '=':
			s.advance()
			return scanned{kind: token.Le, pos: pos}, nil
		case '<':
			s.advance()
			return scanned{kind: token.Shl, pos: pos}, nil
		}
		return scanned{kind: token.Lt, pos: pos}, nil
	case c == '>':
		s.advance()
		switch s.peek() {
		case '=':
			s.advance()
			return scanned{kind: token.Ge, pos: pos}, nil
		case '>':
			s.advance()
			return scanned{kind: token.Shr, pos: pos}, nil
		}
		return scanned{kind: token.Gt, pos: pos}, nil
	case c == '+':
		s.advance()
		return scanned{kind: token.Plus, pos: pos}, nil
	case c == '-':
		s.advance()
		return scanned{kind: token.Minus, pos: pos}, nil
	case c == '*':
		s.advance()
		return scanned{kind: token.Star, pos: pos}, nil
	case c == '\\':
		s.advance()
		return scanned{kind: token.Slash, pos: pos}, nil
	case c == '%':
		s.advance()
		return scanned{kind: token.Percent, pos: pos}, nil
	case c == '^':
		s.advance()
		return scanned{kind: token.Caret, pos: pos}, nil
	case c == '&':
		s.advance()
		return scanned{kind: token.Amp, pos: pos}, nil
	case c == '|':
		s.advance()
		return scanned{kind: token.Pipe, pos: pos}, nil
	case c == '~':
		s.advance()
		return scanned{kind: token.Tilde, pos: pos}, nil
	case c == ';':
		s.advance()
		return scanned{kind: token.Semicolon, pos: pos}, nil
	case c == '/':
		// Only reached when the driver hasn't switched to regex mode,
		// i.e. this "/" is a division -- unreachable in valid YARA syntax
		// outside of an already-handled comment, but scanned defensively.
		s.advance()
		return scanned{kind: token.Slash, pos: pos}, nil

	default:
		return scanned{}, errs.NewParseError(errs.Lexical, pos, "unrecognized character %q", c)
	}
}

func intReaderKind(word string) (Kind, bool) {
	w := strings.TrimSuffix(word, "be")
	switch w {
	case "int8", "int16", "int32", "uint8", "uint16", "uint32":
		if strings.HasPrefix(word, "u") {
			return token.KwUIntN, true
		}
		return token.KwIntN, true
	}
	return 0, false
}

func (s *scanner) scanStringSigil(pos token.Pos, sigil Kind) (scanned, error) {
	s.advance() // sigil
	if !isIdentStart(s.peek()) && s.peek() != '*' {
		// Anonymous "$" inside a string for-loop.
		if sigil == token.Dollar {
			return scanned{kind: token.StringID, lit: literal.NewSymbol(""), pos: pos}, nil
		}
		return scanned{}, errs.NewParseError(errs.Lexical, pos, "bare %q with no identifier", sigil)
	}
	start := s.offset
	for !s.eof() && isIdentCont(s.peek()) {
		s.advance()
	}
	name := string(s.src[start:s.offset])
	wild := false
	if sigil == token.Dollar && s.peek() == '*' {
		s.advance()
		wild = true
	}

	kind := map[Kind]Kind{
		token.Dollar: token.StringID,
		token.Hash:   token.StringCount,
		token.KwAt:   token.StringOffset,
		token.Bang:   token.StringLength,
	}[sigil]
	if wild {
		kind = token.StringIDWild
	}
	return scanned{kind: kind, lit: literal.NewSymbol(name), pos: pos}, nil
}

func (s *scanner) scanString(pos token.Pos) (scanned, error) {
	s.advance() // opening quote
	var raw strings.Builder
	var unescaped strings.Builder
	for {
		if s.eof() {
			return scanned{}, errs.NewParseError(errs.Lexical, pos, "unterminated string literal")
		}
		c := s.peek()
		if c == '"' {
			s.advance()
			break
		}
		if c == '\\' {
			raw.WriteByte(c)
			s.advance()
			if s.eof() {
				return scanned{}, errs.NewParseError(errs.Lexical, pos, "unterminated escape sequence")
			}
			e := s.peek()
			raw.WriteByte(e)
			s.advance()
			switch e {
			case 'n':
				unescaped.WriteByte('\n')
			case 't':
				unescaped.WriteByte('\t')
			case '\\':
				unescaped.WriteByte('\\')
			case '"':
				unescaped.WriteByte('"')
			case 'x':
				if s.offset+2 > len(s.src) || !isHexDigit(s.peek()) || !isHexDigit(s.peekAt(1)) {
					return scanned{}, errs.NewParseError(errs.Lexical, pos, "invalid \\x escape")
				}
				hx := string(s.src[s.offset : s.offset+2])
				raw.WriteString(hx)
				s.advance()
				s.advance()
				v, _ := strconv.ParseUint(hx, 16, 8)
				unescaped.WriteByte(byte(v))
			default:
				return scanned{}, errs.NewParseError(errs.Lexical, pos, "invalid escape sequence \\%c", e)
			}
			continue
		}
		raw.WriteByte(c)
		unescaped.WriteByte(c)
		s.advance()
	}
	lit := literal.NewString(unescaped.String(), false).WithFormattedText(`"` + raw.String() + `"`)
	return scanned{kind: token.StringLiteral, lit: lit, pos: pos}, nil
}

func (s *scanner) scanNumber(pos token.Pos) (scanned, error) {
	start := s.offset
	if s.peek() == '0' && (s.peekAt(1) == 'x' || s.peekAt(1) == 'X') {
		s.advance()
		s.advance()
		for !s.eof() && isHexDigit(s.peek()) {
			s.advance()
		}
		text := string(s.src[start:s.offset])
		v, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			return scanned{}, errs.NewParseError(errs.Lexical, pos, "invalid hex literal %q", text)
		}
		lit := literal.NewInt(int64(v)).WithFormattedText(text)
		return scanned{kind: token.IntLiteral, lit: lit, pos: pos}, nil
	}

	for !s.eof() && isDigit(s.peek()) {
		s.advance()
	}
	isFloat := false
	if s.peek() == '.' && isDigit(s.peekAt(1)) {
		isFloat = true
		s.advance()
		for !s.eof() && isDigit(s.peek()) {
			s.advance()
		}
	}
	if (s.peek() == 'e' || s.peek() == 'E') && (isDigit(s.peekAt(1)) || ((s.peekAt(1) == '+' || s.peekAt(1) == '-') && isDigit(s.peekAt(2)))) {
		isFloat = true
		s.advance()
		if s.peek() == '+' || s.peek() == '-' {
			s.advance()
		}
		for !s.eof() && isDigit(s.peek()) {
			s.advance()
		}
	}

	text := string(s.src[start:s.offset])
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return scanned{}, errs.NewParseError(errs.Lexical, pos, "invalid float literal %q", text)
		}
		return scanned{kind: token.DoubleLiteral, lit: literal.NewFloat(f), pos: pos}, nil
	}

	// Multipliers KB/MB are preserved and converted to their underlying
	// value for arithmetic, but the formatted text keeps the suffix
	// (spec.md §8 boundary behavior).
	mult := int64(1)
	suffix := ""
	if strings.HasPrefix(strings.ToUpper(string(s.src[s.offset:min(s.offset+2, len(s.src))])), "KB") {
		mult, suffix = 1024, s.consume(2)
	} else if strings.HasPrefix(strings.ToUpper(string(s.src[s.offset:min(s.offset+2, len(s.src))])), "MB") {
		mult, suffix = 1024*1024, s.consume(2)
	}

	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return scanned{}, errs.NewParseError(errs.Lexical, pos, "invalid integer literal %q", text)
	}
	lit := literal.NewInt(v * mult)
	if suffix != "" {
		lit = lit.WithFormattedText(text + suffix)
	}
	return scanned{kind: token.IntLiteral, lit: lit, pos: pos}, nil
}

func (s *scanner) consume(n int) string {
	start := s.offset
	for i := 0; i < n && !s.eof(); i++ {
		s.advance()
	}
	return string(s.src[start:s.offset])
}

func (s *scanner) scanIncludePath() (scanned, error) {
	pos := s.pos()
	if s.peek() != '"' {
		return scanned{}, errs.NewParseError(errs.Lexical, pos, "expected quoted include path")
	}
	s.advance()
	start := s.offset
	for !s.eof() && s.peek() != '"' {
		s.advance()
	}
	if s.eof() {
		return scanned{}, errs.NewParseError(errs.Lexical, pos, "unterminated include path")
	}
	path := string(s.src[start:s.offset])
	s.advance()
	s.mode = modeDefault
	return scanned{kind: token.IncludePath, lit: literal.NewString(path, false), pos: pos}, nil
}

// scanRegexBody scans the full `/pattern/flags` as a single token; the
// parser hands the pattern text to the regexp package for a nested parse.
func (s *scanner) scanRegexBody() (scanned, error) {
	pos := s.pos()
	if s.peek() != '/' {
		return scanned{}, errs.NewParseError(errs.Lexical, pos, "expected '/' to begin regexp")
	}
	s.advance()
	start := s.offset
	inClass := false
	for !s.eof() {
		c := s.peek()
		if c == '\\' {
			s.advance()
			if !s.eof() {
				s.advance()
			}
			continue
		}
		if c == '[' {
			inClass = true
		} else if c == ']' {
			inClass = false
		} else if c == '/' && !inClass {
			break
		} else if c == '\n' {
			return scanned{}, errs.NewParseError(errs.Lexical, pos, "unterminated regexp literal")
		}
		s.advance()
	}
	if s.eof() {
		return scanned{}, errs.NewParseError(errs.Lexical, pos, "unterminated regexp literal")
	}
	body := string(s.src[start:s.offset])
	s.advance() // closing /
	flagsStart := s.offset
	for !s.eof() && (s.peek() == 'i' || s.peek() == 's') {
		s.advance()
	}
	flags := string(s.src[flagsStart:s.offset])
	s.mode = modeDefault
	return scanned{kind: token.RegexpLiteral, lit: literal.NewString(body, true), extra: flags, pos: pos}, nil
}

func (s *scanner) scanHexToken() (scanned, error) {
	pos := s.pos()
	c := s.peek()
	switch {
	case c == '{':
		s.advance()
		return scanned{kind: token.LBraceHex, pos: pos}, nil
	case c == '}':
		s.advance()
		s.mode = modeDefault
		return scanned{kind: token.RBraceHex, pos: pos}, nil
	case c == '(':
		s.advance()
		return scanned{kind: token.LParenEnum, pos: pos}, nil
	case c == ')':
		s.advance()
		return scanned{kind: token.RParenEnum, pos: pos}, nil
	case c == '|':
		s.advance()
		return scanned{kind: token.HexAltPipe, pos: pos}, nil
	case c == '[':
		s.advance()
		return scanned{kind: token.HexJumpOpen, pos: pos}, nil
	case c == ']':
		s.advance()
		return scanned{kind: token.HexJumpClose, pos: pos}, nil
	case c == '-':
		s.advance()
		return scanned{kind: token.Minus, pos: pos}, nil
	case c == '?':
		s.advance()
		if s.peek() == '?' {
			s.advance()
			return scanned{kind: token.HexWildcard, lit: literal.NewSymbol("??"), pos: pos}, nil
		}
		nibble := s.peek()
		s.advance()
		return scanned{kind: token.HexWildcard, lit: literal.NewSymbol("?" + string(nibble)), pos: pos}, nil
	case isHexDigit(c):
		// A digit run directly after '[' or '-' is a decimal jump bound,
		// not a byte.
		prev := s.offset - 1
		for prev >= 0 && (s.src[prev] == ' ' || s.src[prev] == '\t') {
			prev--
		}
		if isDigit(c) && prev >= 0 && (s.src[prev] == '[' || s.src[prev] == '-') {
			start := s.offset
			for !s.eof() && isDigit(s.peek()) {
				s.advance()
			}
			v, _ := strconv.ParseInt(string(s.src[start:s.offset]), 10, 64)
			return scanned{kind: token.IntLiteral, lit: literal.NewInt(v), pos: pos}, nil
		}
		hi := s.peek()
		s.advance()
		if s.peek() == '?' {
			s.advance()
			return scanned{kind: token.HexWildcard, lit: literal.NewSymbol(string(hi) + "?"), pos: pos}, nil
		}
		lo := s.peek()
		if !isHexDigit(lo) {
			return scanned{}, errs.NewParseError(errs.Lexical, pos, "invalid hex nibble pair")
		}
		s.advance()
		v, _ := strconv.ParseUint(string([]byte{hi, lo}), 16, 8)
		lit := literal.NewInt(int64(v)).WithFormattedText(strings.ToUpper(string([]byte{hi, lo})))
		return scanned{kind: token.HexNibble, lit: lit, pos: pos}, nil
	default:
		return scanned{}, errs.NewParseError(errs.Lexical, pos, "invalid character %q in hex string", c)
	}
}
