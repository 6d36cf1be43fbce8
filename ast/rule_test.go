package ast_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/ast"
	"github.com/yaramod/yaramod-go/literal"
	"github.com/yaramod/yaramod-go/token"
)

// newBoundRule mints a minimal `rule name { }` skeleton bound to a live
// stream, the same shape YaraRuleBuilder.NewRule sets up, so AddMeta/
// AddString exercise their real token-splicing paths rather than the
// nil-stream bookkeeping-only fallback.
func newBoundRule(name string) *ast.Rule {
	s := token.New()
	s.EmplaceBack(token.KwRule, literal.Literal{})
	nameTok := s.EmplaceBack(token.Identifier, literal.NewSymbol(name))
	lbrace := s.EmplaceBack(token.LBrace, literal.Literal{})
	rbrace := s.EmplaceBack(token.RBrace, literal.Literal{})

	r := ast.NewRule(s)
	r.Name = name
	r.NameToken = nameTok
	r.LBrace = lbrace
	r.RBrace = rbrace
	return r
}

func TestRuleAddMetaInsertsHeaderOnce(t *testing.T) {
	r := newBoundRule("r")
	m1 := r.AddMeta("author", literal.NewString("me", true))
	require.True(t, r.MetaHeader.Valid())
	require.Equal(t, "author", m1.Key)

	m2 := r.AddMeta("version", literal.NewInt(2))
	require.Len(t, r.Metas, 2)
	require.True(t, token.Next(m1.ValueToken).Valid())
	require.Equal(t, "version", m2.Key)

	// Second entry's key token comes strictly after the first's value
	// token in source order.
	require.True(t, token.Prev(token.Prev(m2.KeyToken)).Equal(m1.ValueToken))
}

func TestRuleRemoveMetaDropsHeaderWhenLastEntryRemoved(t *testing.T) {
	r := newBoundRule("r")
	r.AddMeta("author", literal.NewString("me", true))
	require.True(t, r.MetaHeader.Valid())

	r.RemoveMeta("author")
	require.Empty(t, r.Metas)
	require.False(t, r.MetaHeader.Valid())
}

func TestRuleRemoveMetaKeepsHeaderWhenOtherEntriesRemain(t *testing.T) {
	r := newBoundRule("r")
	r.AddMeta("author", literal.NewString("me", true))
	r.AddMeta("version", literal.NewInt(2))

	r.RemoveMeta("author")
	require.Len(t, r.Metas, 1)
	require.Equal(t, "version", r.Metas[0].Key)
	require.True(t, r.MetaHeader.Valid())
}

func TestRuleRemoveMetaUnknownKeyIsNoop(t *testing.T) {
	r := newBoundRule("r")
	r.AddMeta("author", literal.NewString("me", true))
	r.RemoveMeta("nonexistent")
	require.Len(t, r.Metas, 1)
}

func TestRuleAddMetaWithoutStreamOnlyBookkeeps(t *testing.T) {
	r := ast.NewRule(nil)
	r.Name = "r"
	m := r.AddMeta("author", literal.NewString("me", true))
	require.Equal(t, "author", m.Key)
	require.False(t, m.KeyToken.Valid())
	require.Len(t, r.Metas, 1)
}

func TestRuleAddStringInsertsHeaderOnceAndPreservesOrder(t *testing.T) {
	r := newBoundRule("r")
	s1 := &ast.String{Identifier: "a", Kind: ast.Plain, Text: "foo", Escaped: `"foo"`}
	r.AddString(s1)
	require.True(t, r.StringsHeader.Valid())

	s2 := &ast.String{Identifier: "b", Kind: ast.Plain, Text: "bar", Escaped: `"bar"`}
	r.AddString(s2)

	all := r.Strings.All()
	require.Len(t, all, 2)
	require.Equal(t, "a", all[0].Identifier)
	require.Equal(t, "b", all[1].Identifier)
	require.True(t, token.Prev(s2.First).Valid())
}

func TestRuleAddStringWithoutStreamOnlyBookkeeps(t *testing.T) {
	r := ast.NewRule(nil)
	s := &ast.String{Identifier: "a", Kind: ast.Plain, Text: "foo", Escaped: `"foo"`}
	r.AddString(s)
	require.False(t, s.First.Valid())
	require.Len(t, r.Strings.All(), 1)
}

func TestRuleRebindUpdatesStreamUsedByLaterMutators(t *testing.T) {
	r := newBoundRule("r")

	// Rebind only needs to redirect mutators that cache the stream
	// directly (AddMeta, AddString); confirm a subsequent AddMeta mints
	// tokens against the newly bound stream rather than the original one.
	fresh := token.New()
	fresh.EmplaceBack(token.KwRule, literal.Literal{})
	r.Rebind(fresh)
	m := r.AddMeta("author", literal.NewString("me", true))
	require.True(t, m.KeyToken.Valid())
	require.True(t, m.KeyToken.Stream() == fresh)
}

func TestRuleAddTagInsertsColonHeaderOnce(t *testing.T) {
	r := newBoundRule("r")
	r.AddTag("foo")
	require.Len(t, r.TagTokens, 1)
	require.Equal(t, token.Colon, token.Prev(r.TagTokens[0]).Kind())

	r.AddTag("bar")
	require.Equal(t, []string{"foo", "bar"}, r.Tags)
}

func TestRuleRemoveTagDropsColonWhenLastTagRemoved(t *testing.T) {
	r := newBoundRule("r")
	r.AddTag("foo")
	r.RemoveTag("foo")
	require.Empty(t, r.Tags)
	require.Empty(t, r.TagTokens)
}
