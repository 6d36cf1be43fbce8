// Package token implements the token stream: the ordered, mutable record
// of every lexeme, comment, and formatting decision in a parsed file. AST
// nodes never own source text directly; they own Token handles into a
// Stream, and the Stream is the single point of truth for what the
// corresponding source text actually is.
package token

import (
	"iter"

	"github.com/yaramod/yaramod-go/internal/arena"
	"github.com/yaramod/yaramod-go/literal"
)

// NewlineStyle controls which line terminator the printer emits.
type NewlineStyle int

const (
	LF NewlineStyle = iota
	CRLF
)

// Stream is an ordered, doubly linked sequence of tokens. Unlike a plain
// slice, inserting or erasing tokens anywhere in a Stream does not move any
// other token, so a Token handle obtained before a mutation remains valid
// (and correctly positioned) after it -- the property every AST node
// depends on to keep pointing at "its" tokens across edits made elsewhere
// in the file.
//
// Nodes are allocated from an arena so their addresses are stable for the
// life of the Stream; the forward/backward links between nodes are what
// give Stream its O(1) insert/erase, not the arena itself (the arena never
// reclaims or moves storage -- it only guarantees a stable home for each
// node while the doubly linked list does the actual splicing).
type Stream struct {
	nodes arena.Arena[node]
	head, tail *node

	newlines  NewlineStyle
	formatted bool
}

// New returns an empty token stream.
func New() *Stream {
	return &Stream{}
}

// NewlineStyle reports which line terminator this stream uses on emission.
func (s *Stream) NewlineStyle() NewlineStyle { return s.newlines }

// SetNewlineStyle overrides the line terminator used on emission.
func (s *Stream) SetNewlineStyle(style NewlineStyle) { s.newlines = style }

// Formatted reports whether auto-format has already been applied to this
// stream.
func (s *Stream) Formatted() bool { return s.formatted }

// SetFormatted records that auto-format has (or has not) been applied.
func (s *Stream) SetFormatted(v bool) { s.formatted = v }

// Empty reports whether the stream has no tokens.
func (s *Stream) Empty() bool { return s.head == nil }

// First returns the first token in the stream, or the zero Token if empty.
func (s *Stream) First() Token {
	if s.head == nil {
		return Zero
	}
	return Token{s.head}
}

// Last returns the last token in the stream, or the zero Token if empty.
func (s *Stream) Last() Token {
	if s.tail == nil {
		return Zero
	}
	return Token{s.tail}
}

func (s *Stream) alloc(kind Kind, lit literal.Literal) *node {
	n := s.nodes.New()
	n.stream = s
	n.kind = kind
	n.lit = lit
	return n
}

// EmplaceBackPos is EmplaceBack, additionally recording the token's source
// position (used by the parser, which always knows where a token came
// from; hand-built tokens from builders leave this at the zero Pos).
func (s *Stream) EmplaceBackPos(kind Kind, lit literal.Literal, pos Pos) Token {
	n := s.alloc(kind, lit)
	n.pos = pos
	s.link(s.tail, n, n)
	return Token{n}
}

// link splices the detached chain [first..last] so it sits immediately
// after `after` (or at the head, if after is nil).
func (s *Stream) link(after *node, first, last *node) {
	var before *node
	if after == nil {
		before = s.head
	} else {
		before = after.next
	}

	first.prev = after
	last.next = before

	if after != nil {
		after.next = first
	} else {
		s.head = first
	}
	if before != nil {
		before.prev = last
	} else {
		s.tail = last
	}
}

// EmplaceBack appends a newly minted token to the end of the stream.
func (s *Stream) EmplaceBack(kind Kind, lit literal.Literal) Token {
	n := s.alloc(kind, lit)
	s.link(s.tail, n, n)
	return Token{n}
}

// EmplaceBefore inserts a newly minted token immediately before at.
// If at is the zero Token, the new token is appended to the stream.
func (s *Stream) EmplaceBefore(at Token, kind Kind, lit literal.Literal) Token {
	n := s.alloc(kind, lit)
	if !at.Valid() {
		s.link(s.tail, n, n)
		return Token{n}
	}
	s.link(at.n.prev, n, n)
	return Token{n}
}

// EmplaceAfter inserts a newly minted token immediately after at.
func (s *Stream) EmplaceAfter(at Token, kind Kind, lit literal.Literal) Token {
	n := s.alloc(kind, lit)
	s.link(at.n, n, n)
	return Token{n}
}

// Erase removes the single token at from the stream and returns the token
// that followed it (the zero Token if at was last).
func (s *Stream) Erase(at Token) Token {
	return s.EraseRange(at, at)
}

// EraseRange removes every token in the closed range [first, last] from
// the stream and returns the token that immediately followed last (the
// zero Token if last was the final token).
func (s *Stream) EraseRange(first, last Token) Token {
	if !first.Valid() || !last.Valid() {
		return Zero
	}

	before := first.n.prev
	after := last.n.next

	if before != nil {
		before.next = after
	} else {
		s.head = after
	}
	if after != nil {
		after.prev = before
	} else {
		s.tail = before
	}

	first.n.prev = nil
	last.n.next = nil

	if after == nil {
		return Zero
	}
	return Token{after}
}

// SpliceAppend moves every token out of other and appends them, in order,
// to the end of s. After this call other is empty.
func (s *Stream) SpliceAppend(other *Stream) {
	s.SpliceBefore(Zero, other)
}

// SpliceBefore moves every token out of other and inserts them, in order,
// immediately before at in s (or at the end of s, if at is the zero
// Token). After this call other is empty.
func (s *Stream) SpliceBefore(at Token, other *Stream) {
	if other == nil || other.head == nil {
		return
	}

	first, last := other.head, other.tail
	for n := first; n != nil; n = n.next {
		n.stream = s
	}
	other.head, other.tail = nil, nil

	var after *node
	if at.Valid() {
		after = at.n.prev
	} else {
		after = s.tail
	}
	s.link(after, first, last)
}

// SpliceRangeBefore moves the closed range [first, last] out of their
// current stream (which may be s itself) and inserts them immediately
// before at.
func (s *Stream) SpliceRangeBefore(at Token, first, last Token) {
	src := first.Stream()
	src.EraseRange(first, last)

	for n := first.n; ; n = n.next {
		n.stream = s
		if n == last.n {
			break
		}
	}

	var after *node
	if at.Valid() {
		after = at.n.prev
	} else {
		after = s.tail
	}
	s.link(after, first.n, last.n)
}

// Find scans forward starting at from (inclusive) up to, but not including,
// to, returning the first token of the given kind. If from is the zero
// Token, scanning starts at the beginning of the stream. If to is the zero
// Token, scanning runs to the end of the stream.
func (s *Stream) Find(kind Kind, from, to Token) Token {
	n := s.head
	if from.Valid() {
		n = from.n
	}
	var stop *node
	if to.Valid() {
		stop = to.n
	}
	for n != nil && n != stop {
		if n.kind == kind {
			return Token{n}
		}
		n = n.next
	}
	return Zero
}

// FindBackwards scans backward starting at from (inclusive) down to, but
// not including, to, returning the first token of the given kind
// encountered. If from is the zero Token, scanning starts at the end of the
// stream. If to is the zero Token, scanning runs to the beginning.
func (s *Stream) FindBackwards(kind Kind, from, to Token) Token {
	n := s.tail
	if from.Valid() {
		n = from.n
	}
	var stop *node
	if to.Valid() {
		stop = to.n
	}
	for n != nil && n != stop {
		if n.kind == kind {
			return Token{n}
		}
		n = n.prev
	}
	return Zero
}

// Next returns the token following t, or the zero Token if t is last.
func Next(t Token) Token {
	if !t.Valid() || t.n.next == nil {
		return Zero
	}
	return Token{t.n.next}
}

// Prev returns the token preceding t, or the zero Token if t is first.
func Prev(t Token) Token {
	if !t.Valid() || t.n.prev == nil {
		return Zero
	}
	return Token{t.n.prev}
}

// All iterates over every token in the stream, in order.
func (s *Stream) All() iter.Seq[Token] {
	return func(yield func(Token) bool) {
		for n := s.head; n != nil; n = n.next {
			if !yield(Token{n}) {
				return
			}
		}
	}
}

// Range iterates over every token in the closed range [first, last], in
// order. If first or last is invalid, Range yields nothing.
func Range(first, last Token) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		if !first.Valid() || !last.Valid() {
			return
		}
		for n := first.n; ; n = n.next {
			if !yield(Token{n}) {
				return
			}
			if n == last.n {
				return
			}
		}
	}
}
