package builder

import (
	"github.com/yaramod/yaramod-go/ast"
	"github.com/yaramod/yaramod-go/errs"
	"github.com/yaramod/yaramod-go/literal"
	"github.com/yaramod/yaramod-go/parser"
	"github.com/yaramod/yaramod-go/token"
)

// YaraRuleBuilder assembles one `rule name : tags { ... }` block. It owns a
// private token.Stream exactly like YaraExpressionBuilder, and wraps an
// *ast.Rule bound to that stream so ast.Rule's own Add*/Set* mutators
// handle all the token bookkeeping.
type YaraRuleBuilder struct {
	stream *token.Stream
	rule   *ast.Rule
	err    error
}

// NewRule starts a rule builder with the given name.
func NewRule(name string) YaraRuleBuilder {
	s := token.New()
	kwTok := s.EmplaceBackPos(token.KwRule, literal.Literal{}, syntheticPos())
	nameTok := s.EmplaceBack(token.Identifier, literal.NewSymbol(name))
	lbrace := s.EmplaceBack(token.LBrace, literal.Literal{})
	rbrace := s.EmplaceBack(token.RBrace, literal.Literal{})

	r := ast.NewRule(s)
	r.Name = name
	r.NameToken = nameTok
	r.LBrace = lbrace
	r.RBrace = rbrace
	r.First, r.Last = kwTok, rbrace
	return YaraRuleBuilder{stream: s, rule: r}
}

// Tag appends a tag to the rule.
func (b YaraRuleBuilder) Tag(name string) YaraRuleBuilder {
	if b.err != nil {
		return b
	}
	b.rule.AddTag(name)
	return b
}

// Private marks the rule private, prepending the `private` keyword ahead
// of whatever tokens the rule already has. Minted into a fresh stream so
// the keyword lands before the existing `rule` token without needing an
// insert-before-head primitive: the old stream's tokens are appended after
// it, then the builder's stream field is swapped to the new one.
func (b YaraRuleBuilder) Private() YaraRuleBuilder {
	return b.prependModifier(token.KwPrivate)
}

// Global marks the rule global, same mechanics as Private.
func (b YaraRuleBuilder) Global() YaraRuleBuilder {
	return b.prependModifier(token.KwGlobal)
}

func (b YaraRuleBuilder) prependModifier(kind token.Kind) YaraRuleBuilder {
	if b.err != nil {
		return b
	}
	s := token.New()
	s.EmplaceBackPos(kind, literal.Literal{}, syntheticPos())
	s.SpliceAppend(b.stream)
	b.stream = s
	b.rule.Rebind(s)
	switch kind {
	case token.KwPrivate:
		b.rule.Private = true
	case token.KwGlobal:
		b.rule.Global = true
	}
	return b
}

// Meta appends a `key = value` metadata entry.
func (b YaraRuleBuilder) Meta(key string, value literal.Literal) YaraRuleBuilder {
	if b.err != nil {
		return b
	}
	b.rule.AddMeta(key, value)
	return b
}

// MetaString is Meta for a string-valued entry.
func (b YaraRuleBuilder) MetaString(key, value string) YaraRuleBuilder {
	return b.Meta(key, literal.NewString(value, false))
}

// MetaInt is Meta for an integer-valued entry.
func (b YaraRuleBuilder) MetaInt(key string, value int64) YaraRuleBuilder {
	return b.Meta(key, literal.NewInt(value))
}

// MetaBool is Meta for a bool-valued entry.
func (b YaraRuleBuilder) MetaBool(key string, value bool) YaraRuleBuilder {
	return b.Meta(key, literal.NewBool(value))
}

// PlainString adds a plain text string definition, e.g. `$a = "foo"`.
func (b YaraRuleBuilder) PlainString(id, text string) YaraRuleBuilder {
	return b.PlainStringMod(id, text, 0)
}

// PlainStringMod is PlainString with explicit modifier flags.
func (b YaraRuleBuilder) PlainStringMod(id, text string, mods ast.Modifier) YaraRuleBuilder {
	if b.err != nil {
		return b
	}
	b.rule.AddString(&ast.String{
		Identifier: id,
		Kind:       ast.Plain,
		Text:       text,
		Escaped:    text,
		Modifiers:  mods,
	})
	return b
}

// HexString adds a hex string definition built by a YaraHexStringBuilder.
func (b YaraRuleBuilder) HexString(id string, hex YaraHexStringBuilder) YaraRuleBuilder {
	if b.err != nil {
		return b
	}
	units, err := hex.Get()
	if err != nil {
		return YaraRuleBuilder{err: err}
	}
	b.rule.AddString(&ast.String{
		Identifier: id,
		Kind:       ast.Hex,
		HexUnits:   units,
	})
	return b
}

// RegexpString adds a regexp string definition, e.g. `$a = /foo/i`. flags
// is the raw suffix spelled after the closing "/" (e.g. "i", "s", "is").
func (b YaraRuleBuilder) RegexpString(id, pattern, flags string) YaraRuleBuilder {
	if b.err != nil {
		return b
	}
	node, err := parser.ParseRegexPattern(pattern)
	if err != nil {
		return YaraRuleBuilder{err: errs.NewBuilderError("invalid regexp pattern %q: %v", pattern, err)}
	}
	s := &ast.String{
		Identifier: id,
		Kind:       ast.Regexp,
		Pattern:    node,
		RegexFlags: flags,
	}
	b.rule.AddString(s)
	return b
}

// Condition splices a condition expression into the rule.
func (b YaraRuleBuilder) Condition(expr YaraExpressionBuilder) YaraRuleBuilder {
	if b.err != nil {
		return b
	}
	if expr.err != nil {
		return YaraRuleBuilder{err: expr.err}
	}
	if !b.rule.ConditionHeader.Valid() {
		anchor := b.conditionAnchor()
		header := b.stream.EmplaceAfter(anchor, token.KwCondition, literal.Literal{})
		colon := b.stream.EmplaceAfter(header, token.Colon, literal.Literal{})
		b.stream.EmplaceAfter(colon, token.Newline, literal.Literal{})
		// ConditionHeader anchors off the Colon, not the keyword, matching
		// the parser's own convention (parser.go sets it right after
		// emitting ":"): Rule.SetCondition splices a new condition in just
		// after this token.
		b.rule.ConditionHeader = colon
	}
	e, getErr := expr.Get()
	if getErr != nil {
		return YaraRuleBuilder{err: getErr}
	}
	b.rule.SetCondition(e)
	return b
}

// conditionAnchor returns the token after which the `condition:` header
// should be inserted: right before the closing brace, after whatever
// meta/strings sections already exist.
func (b YaraRuleBuilder) conditionAnchor() token.Token {
	if prev := token.Prev(b.rule.RBrace); prev.Valid() {
		return prev
	}
	return b.rule.LBrace
}

// Get finalizes the builder, returning an error if no condition was set or
// if any combinator call along the way failed.
func (b YaraRuleBuilder) Get() (*ast.Rule, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.rule.Condition == nil {
		return nil, errs.NewBuilderError("rule %q has no condition", b.rule.Name)
	}
	return b.rule, nil
}
