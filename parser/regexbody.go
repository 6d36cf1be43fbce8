package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yaramod/yaramod-go/regexp"
)

// regexReader parses the raw pattern text captured between the slashes of a
// RegexpLiteral token into the regexp package's node tree. This is a nested,
// string-level parse independent of the token.Stream grammar driver, since a
// regex pattern is opaque to the rest of the condition grammar.
type regexReader struct {
	src []rune
	pos int
}

// ParseRegexPattern parses the body of a `/pattern/flags` literal (without
// the slashes or trailing flags) into a regexp.Node tree.
func ParseRegexPattern(pattern string) (*regexp.Node, error) {
	r := &regexReader{src: []rune(pattern)}
	node, err := r.parseAlternation()
	if err != nil {
		return nil, err
	}
	if !r.eof() {
		return nil, fmt.Errorf("regexp: unexpected %q at offset %d", r.peek(), r.pos)
	}
	return node, nil
}

func (r *regexReader) eof() bool   { return r.pos >= len(r.src) }
func (r *regexReader) peek() rune {
	if r.eof() {
		return 0
	}
	return r.src[r.pos]
}
func (r *regexReader) peekAt(n int) rune {
	if r.pos+n >= len(r.src) {
		return 0
	}
	return r.src[r.pos+n]
}
func (r *regexReader) advance() rune {
	c := r.src[r.pos]
	r.pos++
	return c
}

func (r *regexReader) parseAlternation() (*regexp.Node, error) {
	first, err := r.parseConcat()
	if err != nil {
		return nil, err
	}
	if r.peek() != '|' {
		return first, nil
	}
	branches := []*regexp.Node{first}
	for r.peek() == '|' {
		r.advance()
		next, err := r.parseConcat()
		if err != nil {
			return nil, err
		}
		branches = append(branches, next)
	}
	return regexp.NewAlternation(branches...), nil
}

func (r *regexReader) parseConcat() (*regexp.Node, error) {
	var nodes []*regexp.Node
	for !r.eof() && r.peek() != '|' && r.peek() != ')' {
		n, err := r.parseRepeated()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	switch len(nodes) {
	case 0:
		return regexp.NewText(""), nil
	case 1:
		return nodes[0], nil
	default:
		return regexp.NewConcat(nodes...), nil
	}
}

func (r *regexReader) parseRepeated() (*regexp.Node, error) {
	atom, err := r.parseAtom()
	if err != nil {
		return nil, err
	}
	for {
		switch r.peek() {
		case '*', '+', '?':
			op := byte(r.advance())
			greedy := true
			if r.peek() == '?' {
				r.advance()
				greedy = false
			}
			atom, err = regexp.NewOperation(atom, op, greedy, 0, 0, false, false)
			if err != nil {
				return nil, err
			}
		case '{':
			if !looksLikeBoundedRepeat(r.src[r.pos:]) {
				return atom, nil
			}
			r.advance()
			lo, hasLo, hi, hasHi, err := r.parseBounds()
			if err != nil {
				return nil, err
			}
			if r.peek() != '}' {
				return nil, fmt.Errorf("regexp: expected '}' to close bounded repeat")
			}
			r.advance()
			greedy := true
			if r.peek() == '?' {
				r.advance()
				greedy = false
			}
			atom, err = regexp.NewOperation(atom, '{', greedy, lo, hi, hasLo, hasHi)
			if err != nil {
				return nil, err
			}
		default:
			return atom, nil
		}
	}
}

// looksLikeBoundedRepeat peeks ahead to tell a genuine "{m,n}" quantifier
// from a literal "{" that starts neither digit nor comma (YARA, like PCRE,
// treats those braces as literal text).
func looksLikeBoundedRepeat(rest []rune) bool {
	i := 1
	sawDigitOrComma := false
	for i < len(rest) && rest[i] != '}' {
		if rest[i] >= '0' && rest[i] <= '9' || rest[i] == ',' {
			sawDigitOrComma = true
			i++
			continue
		}
		return false
	}
	return i < len(rest) && sawDigitOrComma
}

func (r *regexReader) parseBounds() (lo int, hasLo bool, hi int, hasHi bool, err error) {
	start := r.pos
	for !r.eof() && r.peek() >= '0' && r.peek() <= '9' {
		r.advance()
	}
	if r.pos > start {
		lo, _ = strconv.Atoi(string(r.src[start:r.pos]))
		hasLo = true
	}
	if r.peek() != ',' {
		// "{m}" shorthand for "{m,m}".
		if !hasLo {
			return 0, false, 0, false, fmt.Errorf("regexp: empty bound in {%s}", string(r.src[start:r.pos]))
		}
		return lo, true, lo, true, nil
	}
	r.advance()
	start = r.pos
	for !r.eof() && r.peek() >= '0' && r.peek() <= '9' {
		r.advance()
	}
	if r.pos > start {
		hi, _ = strconv.Atoi(string(r.src[start:r.pos]))
		hasHi = true
	}
	return lo, hasLo, hi, hasHi, nil
}

func (r *regexReader) parseAtom() (*regexp.Node, error) {
	c := r.peek()
	switch c {
	case '(':
		r.advance()
		if r.peek() == '?' && r.peekAt(1) == ':' {
			r.advance()
			r.advance()
		}
		inner, err := r.parseAlternation()
		if err != nil {
			return nil, err
		}
		if r.peek() != ')' {
			return nil, fmt.Errorf("regexp: unterminated group")
		}
		r.advance()
		return regexp.NewGroup(inner), nil
	case '[':
		return r.parseClass()
	case '^':
		r.advance()
		return regexp.NewAnchor(false), nil
	case '$':
		r.advance()
		return regexp.NewAnchor(true), nil
	case '.':
		r.advance()
		return regexp.NewMeta(regexp.MetaAny), nil
	case '\\':
		return r.parseEscape()
	case 0:
		return nil, fmt.Errorf("regexp: unexpected end of pattern")
	default:
		r.advance()
		return regexp.NewText(string(c)), nil
	}
}

func (r *regexReader) parseClass() (*regexp.Node, error) {
	r.advance() // '['
	negated := false
	if r.peek() == '^' {
		negated = true
		r.advance()
	}
	var b strings.Builder
	// A literal "]" immediately after "[" or "[^" is allowed and does not
	// close the class.
	if r.peek() == ']' {
		b.WriteRune(r.advance())
	}
	for !r.eof() && r.peek() != ']' {
		if r.peek() == '\\' {
			b.WriteRune(r.advance())
			if !r.eof() {
				b.WriteRune(r.advance())
			}
			continue
		}
		b.WriteRune(r.advance())
	}
	if r.eof() {
		return nil, fmt.Errorf("regexp: unterminated character class")
	}
	r.advance() // ']'
	return regexp.NewClass(negated, b.String()), nil
}

func (r *regexReader) parseEscape() (*regexp.Node, error) {
	r.advance() // backslash
	if r.eof() {
		return nil, fmt.Errorf("regexp: trailing backslash")
	}
	c := r.advance()
	switch c {
	case 'w':
		return regexp.NewMeta(regexp.MetaWord), nil
	case 'W':
		return regexp.NewMeta(regexp.MetaNotWord), nil
	case 's':
		return regexp.NewMeta(regexp.MetaSpace), nil
	case 'S':
		return regexp.NewMeta(regexp.MetaNotSpace), nil
	case 'd':
		return regexp.NewMeta(regexp.MetaDigit), nil
	case 'D':
		return regexp.NewMeta(regexp.MetaNotDigit), nil
	case 'b':
		return regexp.NewMeta(regexp.MetaWordBoundary), nil
	case 'B':
		return regexp.NewMeta(regexp.MetaNotWordBoundary), nil
	default:
		return regexp.NewText(`\` + string(c)), nil
	}
}
