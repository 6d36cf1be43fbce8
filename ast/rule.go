package ast

import (
	"fmt"

	"github.com/yaramod/yaramod-go/hexstring"
	"github.com/yaramod/yaramod-go/literal"
	"github.com/yaramod/yaramod-go/symbol"
	"github.com/yaramod/yaramod-go/token"
)

// Meta is one `key = value` pair from a rule's meta: section.
type Meta struct {
	Key        string
	Value      literal.Literal
	KeyToken   token.Token
	EqToken    token.Token
	ValueToken token.Token
}

// Variable is a local symbol introduced by a with-expression or loop at
// rule scope and still live when the condition is examined as a whole
// (spec.md §3 Rule).
type Variable struct {
	Name string
	Type symbol.Type
}

// Rule is one `rule name : tags { meta: ... strings: ... condition: ... }`
// block. Rule owns no tokens directly; it holds iterators into the
// YaraFile's shared token.Stream, exactly like every Expr it contains.
type Rule struct {
	stream *token.Stream

	NameToken token.Token
	Name      string

	Private bool
	Global  bool

	Tags      []string
	TagTokens []token.Token

	Metas []*Meta
	// MetaHeader is the `meta:` keyword token, or the zero Token if the
	// rule has no meta section.
	MetaHeader token.Token

	Strings *StringTable
	// StringsHeader is the `strings:` keyword token, or the zero Token if
	// the rule has no strings section.
	StringsHeader token.Token

	Variables []Variable

	Condition Expr
	// ConditionHeader is the `:` token that follows the `condition` keyword.
	ConditionHeader token.Token

	LBrace, RBrace token.Token
	First, Last    token.Token
}

// NewRule returns an empty Rule bound to the given shared stream.
func NewRule(stream *token.Stream) *Rule {
	return &Rule{stream: stream, Strings: NewStringTable()}
}

// SetName renames the rule. Setting a rule's name to its current name is a
// no-op on the token stream (spec.md §8).
func (r *Rule) SetName(name string) {
	if name == r.Name {
		return
	}
	r.Name = name
	if r.NameToken.Valid() {
		r.NameToken.SetLiteral(literal.NewSymbol(name))
	}
}

// AddTag appends a tag, inserting a leading ":" header the first time a
// rule gains a tag.
func (r *Rule) AddTag(name string) {
	if len(r.Tags) == 0 && r.stream != nil && r.NameToken.Valid() {
		colon := r.stream.EmplaceAfter(r.NameToken, token.Colon, literal.Literal{})
		tagTok := r.stream.EmplaceAfter(colon, token.TagValue, literal.NewSymbol(name))
		r.TagTokens = append(r.TagTokens, tagTok)
	} else if r.stream != nil {
		last := r.TagTokens[len(r.TagTokens)-1]
		tagTok := r.stream.EmplaceAfter(last, token.TagValue, literal.NewSymbol(name))
		r.TagTokens = append(r.TagTokens, tagTok)
	}
	r.Tags = append(r.Tags, name)
}

// RemoveTag removes the named tag. If it was the last tag, the leading ":"
// that introduced the tag list is removed too.
func (r *Rule) RemoveTag(name string) {
	for i, t := range r.Tags {
		if t != name {
			continue
		}
		if r.stream != nil && i < len(r.TagTokens) {
			tagTok := r.TagTokens[i]
			if len(r.Tags) == 1 {
				colon := token.Prev(tagTok)
				if colon.Valid() && colon.Kind() == token.Colon {
					r.stream.EraseRange(colon, tagTok)
				} else {
					r.stream.Erase(tagTok)
				}
			} else {
				r.stream.Erase(tagTok)
			}
			r.TagTokens = append(r.TagTokens[:i], r.TagTokens[i+1:]...)
		}
		r.Tags = append(r.Tags[:i], r.Tags[i+1:]...)
		return
	}
}

// AddMeta appends a metadata entry, inserting a `meta:` header the first
// time a rule gains one and minting the `key = value` tokens that spell it
// out, anchored after the previous entry (or the header itself, for the
// first one) so repeated calls stay in declaration order regardless of
// what else has been built on the rule in the meantime.
func (r *Rule) AddMeta(key string, value literal.Literal) *Meta {
	m := &Meta{Key: key, Value: value}
	if r.stream == nil {
		r.Metas = append(r.Metas, m)
		return m
	}

	var tail token.Token
	if len(r.Metas) == 0 {
		anchor := r.anchorForNewSection()
		header := r.stream.EmplaceAfter(anchor, token.KwMeta, literal.Literal{})
		colon := r.stream.EmplaceAfter(header, token.Colon, literal.Literal{})
		tail = r.stream.EmplaceAfter(colon, token.Newline, literal.Literal{})
		r.MetaHeader = header
	} else {
		prev := r.Metas[len(r.Metas)-1]
		tail = prev.ValueToken
		if nl := token.Next(tail); nl.Valid() && nl.Kind() == token.Newline {
			tail = nl
		}
	}

	keyTok := r.stream.EmplaceAfter(tail, token.Identifier, literal.NewSymbol(key))
	eqTok := r.stream.EmplaceAfter(keyTok, token.Assign, literal.Literal{})
	valTok := r.emplaceMetaValue(eqTok, value)
	r.stream.EmplaceAfter(valTok, token.Newline, literal.Literal{})

	m.KeyToken, m.EqToken, m.ValueToken = keyTok, eqTok, valTok
	r.Metas = append(r.Metas, m)
	return m
}

// emplaceMetaValue mints the token spelling out a meta value: a bare
// true/false keyword for bools, the numeric literal kinds for ints/floats,
// and a quoted string otherwise.
func (r *Rule) emplaceMetaValue(after token.Token, v literal.Literal) token.Token {
	switch v.Kind() {
	case literal.Bool:
		b, _ := v.BoolValue()
		if b {
			return r.stream.EmplaceAfter(after, token.KwTrue, literal.Literal{})
		}
		return r.stream.EmplaceAfter(after, token.KwFalse, literal.Literal{})
	case literal.Int, literal.UInt:
		return r.stream.EmplaceAfter(after, token.IntLiteral, v)
	case literal.Float:
		return r.stream.EmplaceAfter(after, token.DoubleLiteral, v)
	default:
		return r.stream.EmplaceAfter(after, token.StringLiteral, v)
	}
}

// RemoveMeta removes the metadata entry with the given key, if present. If
// it was the only metadata entry, the `meta:` header is removed too;
// otherwise only that entry's own key/value/newline tokens are erased.
func (r *Rule) RemoveMeta(key string) {
	for i, m := range r.Metas {
		if m.Key != key {
			continue
		}
		removingLast := len(r.Metas) == 1
		if r.stream != nil && m.KeyToken.Valid() && !removingLast {
			end := m.ValueToken
			if nl := token.Next(end); nl.Valid() && nl.Kind() == token.Newline {
				end = nl
			}
			r.stream.EraseRange(m.KeyToken, end)
		}
		r.Metas = append(r.Metas[:i], r.Metas[i+1:]...)
		if removingLast && r.stream != nil && r.MetaHeader.Valid() {
			next := r.StringsHeader
			if !next.Valid() {
				next = r.ConditionHeader
				// ConditionHeader is the colon; stop before its keyword.
				if kw := token.Prev(next); kw.Valid() && kw.Kind() == token.KwCondition {
					next = kw
				}
			}
			if next.Valid() {
				r.stream.EraseRange(r.MetaHeader, token.Prev(next))
			}
			r.MetaHeader = token.Zero
		}
		return
	}
}

// anchorForNewSection returns the token after which a brand-new section
// header (meta:/strings:) should be inserted: just inside the opening brace
// when the rule has one, else after the last tag, else after the rule name.
func (r *Rule) anchorForNewSection() token.Token {
	if r.LBrace.Valid() {
		return r.LBrace
	}
	if len(r.TagTokens) > 0 {
		return r.TagTokens[len(r.TagTokens)-1]
	}
	return r.NameToken
}

// SetCondition splices expr's tokens into the rule's body just after the
// `condition:` token, replacing whatever condition was previously there.
func (r *Rule) SetCondition(expr Expr) {
	if r.Condition != nil && r.stream != nil {
		r.stream.EraseRange(r.Condition.FirstToken(), r.Condition.LastToken())
	}
	if r.stream != nil && expr != nil {
		r.stream.SpliceRangeBefore(token.Next(r.ConditionHeader), expr.FirstToken(), expr.LastToken())
	}
	r.Condition = expr
}

// RemoveVariables clears the rule's recorded local-variable bindings. This
// does not affect the condition's token span; it only drops the bookkeeping
// used for shadowing checks during a later re-parse or visit.
func (r *Rule) RemoveVariables() {
	r.Variables = nil
}

// Rebind updates the rule's cached stream pointer after its tokens have
// been spliced into a different stream. Token handles already resolve
// correctly via their own Stream() once spliced (Stream.SpliceAppend and
// friends reassign each moved token's owner); Rebind only needs to follow
// for mutator methods, like AddMeta and AddString, that cache the stream
// directly instead of deriving it from a token.
func (r *Rule) Rebind(stream *token.Stream) {
	r.stream = stream
}

// stringsAnchor returns the token after which a brand-new `strings:`
// header should be inserted: after the last meta entry if the rule has a
// meta section, else wherever a new section header goes generally.
func (r *Rule) stringsAnchor() token.Token {
	if len(r.Metas) > 0 {
		last := r.Metas[len(r.Metas)-1]
		tail := last.ValueToken
		if nl := token.Next(tail); nl.Valid() && nl.Kind() == token.Newline {
			return nl
		}
		return tail
	}
	return r.anchorForNewSection()
}

// AddString appends a string definition, inserting a `strings:` header the
// first time a rule gains one.
func (r *Rule) AddString(s *String) {
	if r.stream == nil {
		r.Strings.Add(s)
		return
	}

	var tail token.Token
	if len(r.Strings.All()) == 0 {
		anchor := r.stringsAnchor()
		header := r.stream.EmplaceAfter(anchor, token.KwStrings, literal.Literal{})
		colon := r.stream.EmplaceAfter(header, token.Colon, literal.Literal{})
		tail = r.stream.EmplaceAfter(colon, token.Newline, literal.Literal{})
		r.StringsHeader = header
	} else {
		all := r.Strings.All()
		tail = all[len(all)-1].Last
		if nl := token.Next(tail); nl.Valid() && nl.Kind() == token.Newline {
			tail = nl
		}
	}

	idTok := r.stream.EmplaceAfter(tail, token.StringID, literal.NewSymbol(s.Identifier))
	eqTok := r.stream.EmplaceAfter(idTok, token.Assign, literal.Literal{})
	last := r.emplacePattern(eqTok, s)
	last = r.emplaceModifiers(last, s)
	r.stream.EmplaceAfter(last, token.Newline, literal.Literal{})

	s.First, s.Last = idTok, last
	r.Strings.Add(s)
}

// emplacePattern mints the tokens for a string definition's right-hand
// side: a quoted literal, a hex unit sequence, or a regexp literal,
// matching the one of the three sibling kinds s.Kind names.
func (r *Rule) emplacePattern(after token.Token, s *String) token.Token {
	switch s.Kind {
	case Hex:
		open := r.stream.EmplaceAfter(after, token.LBraceHex, literal.Literal{})
		tail := r.emplaceHexUnits(open, s.HexUnits)
		return r.stream.EmplaceAfter(tail, token.RBraceHex, literal.Literal{})
	case Regexp:
		body := ""
		if s.Pattern != nil {
			body = s.Pattern.SourceText()
		}
		lit := literal.NewString(body, true).WithFormattedText("/" + body + "/" + s.RegexFlags)
		return r.stream.EmplaceAfter(after, token.RegexpLiteral, lit)
	default: // Plain
		lit := literal.NewString(s.Escaped, true).WithFormattedText(quotePlain(s.Escaped))
		return r.stream.EmplaceAfter(after, token.StringLiteral, lit)
	}
}

// emplaceHexUnits mints the token sequence for a run of hex units (either a
// string's whole body, or one branch of an alternation), returning the
// last token minted.
func (r *Rule) emplaceHexUnits(after token.Token, units []hexstring.Unit) token.Token {
	tail := after
	for _, u := range units {
		tail = r.emplaceHexUnit(tail, u)
	}
	return tail
}

// emplaceHexUnit mints the tokens for one hex unit, following the exact
// kind sequence parseHexUnitSequence/parseHexJump/parseHexAlternation
// expect: a HexNibble/HexWildcard leaf, a HexJumpOpen..HexJumpClose jump
// (IntLiteral bounds around an optional Minus), or a LParenEnum..RParenEnum
// alternation of HexAltPipe-separated branches.
func (r *Rule) emplaceHexUnit(after token.Token, u hexstring.Unit) token.Token {
	switch u.Kind() {
	case hexstring.Nibble:
		lit := literal.NewInt(int64(u.Value())).WithFormattedText(fmt.Sprintf("%02X", u.Value()))
		return r.stream.EmplaceAfter(after, token.HexNibble, lit)
	case hexstring.Wildcard:
		return r.stream.EmplaceAfter(after, token.HexWildcard, literal.NewSymbol("??"))
	case hexstring.WildcardLow:
		return r.stream.EmplaceAfter(after, token.HexWildcard, literal.NewSymbol(fmt.Sprintf("?%X", u.Value())))
	case hexstring.WildcardHigh:
		return r.stream.EmplaceAfter(after, token.HexWildcard, literal.NewSymbol(fmt.Sprintf("%X?", u.Value())))
	case hexstring.Jump:
		tail := r.stream.EmplaceAfter(after, token.HexJumpOpen, literal.Literal{})
		low, high, hasLow, hasHigh := u.Bounds()
		switch {
		case hasLow && hasHigh && low == high:
			tail = r.stream.EmplaceAfter(tail, token.IntLiteral, literal.NewInt(int64(low)))
		case hasLow && hasHigh:
			tail = r.stream.EmplaceAfter(tail, token.IntLiteral, literal.NewInt(int64(low)))
			tail = r.stream.EmplaceAfter(tail, token.Minus, literal.Literal{})
			tail = r.stream.EmplaceAfter(tail, token.IntLiteral, literal.NewInt(int64(high)))
		case hasLow:
			tail = r.stream.EmplaceAfter(tail, token.IntLiteral, literal.NewInt(int64(low)))
			tail = r.stream.EmplaceAfter(tail, token.Minus, literal.Literal{})
		case hasHigh:
			tail = r.stream.EmplaceAfter(tail, token.Minus, literal.Literal{})
			tail = r.stream.EmplaceAfter(tail, token.IntLiteral, literal.NewInt(int64(high)))
		default:
			tail = r.stream.EmplaceAfter(tail, token.Minus, literal.Literal{})
		}
		return r.stream.EmplaceAfter(tail, token.HexJumpClose, literal.Literal{})
	case hexstring.Alternation:
		tail := r.stream.EmplaceAfter(after, token.LParenEnum, literal.Literal{})
		for i, alt := range u.Alternatives() {
			if i > 0 {
				tail = r.stream.EmplaceAfter(tail, token.HexAltPipe, literal.Literal{})
			}
			tail = r.emplaceHexUnits(tail, alt)
		}
		return r.stream.EmplaceAfter(tail, token.RParenEnum, literal.Literal{})
	default:
		return after
	}
}

// emplaceModifiers mints the trailing modifier keyword tokens for a string
// definition, in the fixed canonical order spec.md §4.5 Text/ModifierText
// renders them in.
func (r *Rule) emplaceModifiers(after token.Token, s *String) token.Token {
	tail := after
	add := func(f Modifier, kind token.Kind) {
		if !s.Modifiers.Has(f) {
			return
		}
		tok := r.stream.EmplaceAfter(tail, kind, literal.Literal{})
		tail = tok
		s.ModifierTokens = append(s.ModifierTokens, tok)
	}
	add(ModAscii, token.KwAscii)
	add(ModWide, token.KwWide)
	add(ModNocase, token.KwNocase)
	add(ModFullword, token.KwFullword)
	add(ModXor, token.KwXor)
	add(ModBase64, token.KwBase64)
	add(ModBase64Wide, token.KwBase64Wide)
	add(ModPrivate, token.KwPrivateString)
	return tail
}
