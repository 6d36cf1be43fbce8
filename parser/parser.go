package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/petermattis/goid"

	"github.com/yaramod/yaramod-go/ast"
	"github.com/yaramod/yaramod-go/errs"
	"github.com/yaramod/yaramod-go/hexstring"
	"github.com/yaramod/yaramod-go/literal"
	"github.com/yaramod/yaramod-go/module"
	"github.com/yaramod/yaramod-go/symbol"
	"github.com/yaramod/yaramod-go/token"
)

// IncludeResolver reads the source of an `include "path"` directive's
// target, resolving path relative to the file that contains the directive.
type IncludeResolver interface {
	Resolve(fromFile, path string) (filename string, src []byte, err error)
}

// FileIncludeResolver resolves include paths against the local filesystem,
// relative to the including file's directory.
type FileIncludeResolver struct{}

func (FileIncludeResolver) Resolve(fromFile, path string) (string, []byte, error) {
	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(filepath.Dir(fromFile), path)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", nil, err
	}
	return full, data, nil
}

// Parser is the grammar driver: a stateful scanner feeding a recursive
// descent / precedence-climbing parser that builds an ast.YaraFile while
// appending every token it consumes -- including whitespace and comments --
// to the file's shared token.Stream.
type Parser struct {
	sc       *scanner
	stream   *token.Stream
	have     bool
	look     scanned
	handler  *errs.Handler
	pool     *module.Pool
	resolver IncludeResolver

	file         *ast.YaraFile
	includeStack map[string]bool
	ruleNames    map[string]bool

	// Per-rule parsing context (spec.md §4.7 Parser context), reset at the
	// start of every rule.
	curStrings       *ast.StringTable
	locals           map[string]symbol.Type
	insideStringLoop bool

	// goroutineID is captured at construction and checked by
	// assertSingleGoroutine: a Parser is not safe for concurrent use
	// (spec.md §5), and this turns an accidental cross-goroutine reuse into
	// an immediate panic instead of a data race that only shows up under
	// -race.
	goroutineID int64
}

// New constructs a Parser over src, appending tokens to stream and accruing
// rules into file as they are parsed.
func New(filename string, src []byte, file *ast.YaraFile, pool *module.Pool, resolver IncludeResolver, reporter errs.Reporter) *Parser {
	if resolver == nil {
		resolver = FileIncludeResolver{}
	}
	return &Parser{
		sc:           newScanner(filename, src),
		stream:       file.Stream,
		handler:      errs.NewHandler(reporter),
		pool:         pool,
		resolver:     resolver,
		file:         file,
		includeStack: map[string]bool{filename: true},
		ruleNames:    map[string]bool{},
		goroutineID:  goid.Get(),
	}
}

// assertSingleGoroutine panics if p is being driven from a goroutine other
// than the one that constructed it, the same non-concurrent-use guard
// protocompile wires petermattis/goid in for.
func (p *Parser) assertSingleGoroutine() {
	if got := goid.Get(); got != p.goroutineID {
		panic(fmt.Sprintf("parser: Parser used from goroutine %d, but was constructed on goroutine %d", got, p.goroutineID))
	}
}

// ParseFile is the top-level convenience entry point: it parses filename's
// full contents -- rules, imports, and includes -- into a fresh YaraFile.
func ParseFile(filename string, src []byte, pool *module.Pool, resolver IncludeResolver, reporter errs.Reporter) (*ast.YaraFile, error) {
	file := ast.NewYaraFile()
	p := New(filename, src, file, pool, resolver, reporter)
	if err := p.parseTopLevel(); err != nil {
		return file, err
	}
	return file, nil
}

// --- token plumbing -------------------------------------------------------

func (p *Parser) pushSkippable(s scanned) {
	p.stream.EmplaceBackPos(s.kind, s.lit, s.pos)
}

func (p *Parser) peek() (scanned, error) {
	if !p.have {
		s, err := p.sc.next(p.pushSkippable)
		if err != nil {
			return scanned{}, p.reportErr(err)
		}
		p.look, p.have = s, true
	}
	return p.look, nil
}

func (p *Parser) advance() (scanned, error) {
	cur, err := p.peek()
	if err != nil {
		return scanned{}, err
	}
	p.have = false
	return cur, nil
}

func (p *Parser) at(k token.Kind) bool {
	s, err := p.peek()
	return err == nil && s.kind == k
}

func (p *Parser) reportErr(err error) error {
	if pe, ok := err.(*errs.ParseError); ok {
		return p.handler.Handle(pe.Error)
	}
	return err
}

func (p *Parser) errorf(pos token.Pos, format string, args ...any) error {
	return p.reportErr(errs.NewParseError(errs.Syntactic, pos, format, args...))
}

// emit consumes the current lookahead token and appends it to the stream
// under kind, which may differ from the scanner's own classification (used
// to retag an ambiguous "(" / ")" as a call or enumeration bracket once the
// driver knows which it is).
func (p *Parser) emit(kind token.Kind) (token.Token, error) {
	s, err := p.advance()
	if err != nil {
		return token.Zero, err
	}
	return p.stream.EmplaceBackPos(kind, s.lit, s.pos), nil
}

func (p *Parser) expect(kind token.Kind) (token.Token, error) {
	s, err := p.peek()
	if err != nil {
		return token.Zero, err
	}
	if s.kind != kind {
		return token.Zero, p.errorf(s.pos, "expected %s, got %s", kind, s.kind)
	}
	return p.emit(kind)
}

// expectRetag is like expect but accepts a token scanned as raw and emits it
// into the stream tagged as as instead, for punctuation whose grammatical
// role (and therefore layout behavior) the scanner can't tell apart from
// spelling alone -- e.g. a "(" opening a function call versus an
// enumeration versus a plain grouping.
func (p *Parser) expectRetag(raw, as token.Kind) (token.Token, error) {
	s, err := p.peek()
	if err != nil {
		return token.Zero, err
	}
	if s.kind != raw {
		return token.Zero, p.errorf(s.pos, "expected %s, got %s", raw, s.kind)
	}
	return p.emit(as)
}

func (p *Parser) accept(kind token.Kind) (token.Token, bool, error) {
	if !p.at(kind) {
		return token.Zero, false, nil
	}
	t, err := p.emit(kind)
	return t, err == nil, err
}

// --- top level -------------------------------------------------------------

func (p *Parser) parseTopLevel() error {
	p.assertSingleGoroutine()
	for {
		s, err := p.peek()
		if err != nil {
			return err
		}
		switch s.kind {
		case token.EOF:
			_, err := p.advance()
			return err
		case token.KwInclude:
			if err := p.parseInclude(); err != nil {
				return err
			}
		case token.KwImport:
			if err := p.parseImport(); err != nil {
				return err
			}
		case token.KwPrivate, token.KwGlobal, token.KwRule:
			if err := p.parseRule(); err != nil {
				return err
			}
		default:
			return p.errorf(s.pos, "expected 'rule', 'import', or 'include', got %s", s.kind)
		}
	}
}

func (p *Parser) parseImport() error {
	if _, err := p.expect(token.KwImport); err != nil {
		return err
	}
	s, err := p.peek()
	if err != nil {
		return err
	}
	if s.kind != token.StringLiteral {
		return p.errorf(s.pos, "expected module name string after 'import'")
	}
	name, _ := s.lit.StringValue()
	if _, err := p.emit(token.StringLiteral); err != nil {
		return err
	}
	for _, imp := range p.file.Imports {
		if imp.Name == name {
			return nil
		}
	}
	p.file.Imports = append(p.file.Imports, ast.Import{Name: name})
	return nil
}

func (p *Parser) parseInclude() error {
	includeTok, err := p.expect(token.KwInclude)
	if err != nil {
		return err
	}
	p.sc.mode = modeIncludePath
	s, err := p.peek()
	if err != nil {
		return err
	}
	path, _ := s.lit.StringValue()
	if _, err := p.emit(token.IncludePath); err != nil {
		return err
	}

	fromFile := p.sc.filename
	resolved, data, err := p.resolver.Resolve(fromFile, path)
	if err != nil {
		return p.errorf(includeTok.Pos(), "include %q: %v", path, err)
	}
	if p.includeStack[resolved] {
		return p.errorf(includeTok.Pos(), "circular include of %q", resolved)
	}

	sub := New(resolved, data, p.file, p.pool, p.resolver, handlerReporter{p.handler})
	sub.includeStack = p.includeStack
	sub.includeStack[resolved] = true
	sub.ruleNames = p.ruleNames
	if err := sub.parseTopLevel(); err != nil {
		return err
	}
	delete(sub.includeStack, resolved)
	return nil
}

// handlerReporter adapts an existing Handler so a sub-parser handling an
// included file reports through the same Handler/Reporter chain as its
// parent, rather than starting a fresh one.
type handlerReporter struct{ h *errs.Handler }

func (r handlerReporter) Error(e *errs.Error) error { return r.h.Handle(e) }
func (r handlerReporter) Warning(e *errs.Error)      { r.h.Warn(e) }

// --- rule --------------------------------------------------------------

func (p *Parser) parseRule() error {
	r := ast.NewRule(p.stream)
	p.curStrings = r.Strings
	p.locals = map[string]symbol.Type{}

	for {
		s, err := p.peek()
		if err != nil {
			return err
		}
		if s.kind == token.KwPrivate {
			if _, err := p.emit(token.KwPrivate); err != nil {
				return err
			}
			r.Private = true
			continue
		}
		if s.kind == token.KwGlobal {
			if _, err := p.emit(token.KwGlobal); err != nil {
				return err
			}
			r.Global = true
			continue
		}
		break
	}

	if _, err := p.expect(token.KwRule); err != nil {
		return err
	}

	s, err := p.peek()
	if err != nil {
		return err
	}
	if s.kind != token.Identifier {
		return p.errorf(s.pos, "expected rule name, got %s", s.kind)
	}
	name, _ := s.lit.StringValue()
	if p.ruleNames[name] {
		return p.errorf(s.pos, "rule %q already defined", name)
	}
	nameTok, err := p.emit(token.Identifier)
	if err != nil {
		return err
	}
	r.Name, r.NameToken = name, nameTok
	p.ruleNames[name] = true

	if p.at(token.Colon) {
		if _, err := p.emit(token.Colon); err != nil {
			return err
		}
		for p.at(token.Identifier) {
			ts, _ := p.peek()
			tag, _ := ts.lit.StringValue()
			tagTok, err := p.emit(token.TagValue)
			if err != nil {
				return err
			}
			r.Tags = append(r.Tags, tag)
			r.TagTokens = append(r.TagTokens, tagTok)
		}
	}

	lbrace, err := p.expect(token.LBrace)
	if err != nil {
		return err
	}
	r.LBrace = lbrace
	r.First = r.NameToken

	if p.at(token.KwMeta) {
		if err := p.parseMetaSection(r); err != nil {
			return err
		}
	}
	if p.at(token.KwStrings) {
		if err := p.parseStringsSection(r); err != nil {
			return err
		}
	}
	if _, err := p.expect(token.KwCondition); err != nil {
		return err
	}
	if _, err := p.expect(token.Colon); err != nil {
		return err
	}
	r.ConditionHeader = p.stream.Last()

	cond, err := p.parseExpr()
	if err != nil {
		return err
	}
	r.Condition = cond

	rbrace, err := p.expect(token.RBrace)
	if err != nil {
		return err
	}
	r.RBrace = rbrace
	r.Last = rbrace

	p.file.Rules = append(p.file.Rules, r)
	return nil
}

func (p *Parser) parseMetaSection(r *ast.Rule) error {
	header, err := p.expect(token.KwMeta)
	if err != nil {
		return err
	}
	r.MetaHeader = header
	if _, err := p.expect(token.Colon); err != nil {
		return err
	}
	for p.at(token.Identifier) {
		ks, _ := p.peek()
		key, _ := ks.lit.StringValue()
		keyTok, err := p.emit(token.Identifier)
		if err != nil {
			return err
		}
		eqTok, err := p.expect(token.Assign)
		if err != nil {
			return err
		}
		val, err := p.parseMetaValue()
		if err != nil {
			return err
		}
		r.Metas = append(r.Metas, &ast.Meta{Key: key, Value: val, KeyToken: keyTok, EqToken: eqTok, ValueToken: p.stream.Last()})
	}
	return nil
}

func (p *Parser) parseMetaValue() (literal.Literal, error) {
	s, err := p.peek()
	if err != nil {
		return literal.Literal{}, err
	}
	switch s.kind {
	case token.StringLiteral, token.IntLiteral:
		lit := s.lit
		if _, err := p.emit(s.kind); err != nil {
			return literal.Literal{}, err
		}
		return lit, nil
	case token.KwTrue, token.KwFalse:
		val := s.kind == token.KwTrue
		if _, err := p.emit(s.kind); err != nil {
			return literal.Literal{}, err
		}
		return literal.NewBool(val), nil
	case token.Minus:
		p.advance()
		ns, err := p.peek()
		if err != nil {
			return literal.Literal{}, err
		}
		if ns.kind != token.IntLiteral {
			return literal.Literal{}, p.errorf(ns.pos, "expected integer after '-' in meta value")
		}
		i, _ := ns.lit.IntValue()
		tok := p.stream.EmplaceBackPos(token.IntLiteral, literal.NewInt(-i).WithFormattedText("-"+ns.lit.Text()), ns.pos)
		p.advance()
		return tok.Literal(), nil
	default:
		return literal.Literal{}, p.errorf(s.pos, "expected string, integer, or boolean meta value, got %s", s.kind)
	}
}

func (p *Parser) parseStringsSection(r *ast.Rule) error {
	header, err := p.expect(token.KwStrings)
	if err != nil {
		return err
	}
	r.StringsHeader = header
	if _, err := p.expect(token.Colon); err != nil {
		return err
	}
	for p.at(token.StringID) {
		str, err := p.parseStringDef()
		if err != nil {
			return err
		}
		if _, exists := r.Strings.Get(str.Identifier); exists {
			return p.errorf(str.First.Pos(), "string $%s already defined", str.Identifier)
		}
		r.Strings.Add(str)
	}
	return nil
}

func (p *Parser) parseStringDef() (*ast.String, error) {
	ids, _ := p.peek()
	id, _ := ids.lit.StringValue()
	idTok, err := p.emit(token.StringID)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Assign); err != nil {
		return nil, err
	}

	str := &ast.String{Identifier: id, First: idTok}

	p.sc.skipSkippable(p.pushSkippable)
	switch p.sc.peek() {
	case '"':
		if err := p.parsePlainStringBody(str); err != nil {
			return nil, err
		}
	case '{':
		p.sc.mode = modeHex
		if err := p.parseHexStringBody(str); err != nil {
			return nil, err
		}
	case '/':
		p.sc.mode = modeRegex
		if err := p.parseRegexpStringBody(str); err != nil {
			return nil, err
		}
	default:
		return nil, p.errorf(p.sc.pos(), "expected string, hex, or regexp pattern after '$%s ='", id)
	}

	if err := p.parseStringModifiers(str); err != nil {
		return nil, err
	}
	str.Last = p.stream.Last()
	return str, nil
}

func (p *Parser) parsePlainStringBody(str *ast.String) error {
	s, err := p.peek()
	if err != nil {
		return err
	}
	str.Kind = ast.Plain
	str.Text, _ = s.lit.StringValue()
	str.Escaped = s.lit.Text()
	str.Escaped = strings.TrimSuffix(strings.TrimPrefix(str.Escaped, `"`), `"`)
	if _, err := p.emit(token.StringLiteral); err != nil {
		return err
	}
	return nil
}

func (p *Parser) parseRegexpStringBody(str *ast.String) error {
	s, err := p.peek()
	if err != nil {
		return err
	}
	body, _ := s.lit.StringValue()
	node, err := ParseRegexPattern(body)
	if err != nil {
		return p.errorf(s.pos, "%v", err)
	}
	str.Kind = ast.Regexp
	str.Pattern = node
	str.RegexFlags = s.extra
	if strings.Contains(s.extra, "i") {
		str.Modifiers |= ast.ModNocase
	}
	lit := s.lit.WithFormattedText("/" + body + "/" + s.extra)
	if _, err := p.advance(); err != nil {
		return err
	}
	p.stream.EmplaceBackPos(token.RegexpLiteral, lit, s.pos)
	return nil
}

func (p *Parser) parseHexStringBody(str *ast.String) error {
	if _, err := p.expect(token.LBraceHex); err != nil {
		return err
	}
	units, err := p.parseHexUnitSequence(token.RBraceHex)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.RBraceHex); err != nil {
		return err
	}
	str.Kind = ast.Hex
	str.HexUnits = units
	return nil
}

// parseHexUnitSequence parses a run of hex units up to (but not including) a
// token of kind stop, used both for a string's top-level body and for each
// branch of a parenthesized alternation.
func (p *Parser) parseHexUnitSequence(stop token.Kind) ([]hexstring.Unit, error) {
	var units []hexstring.Unit
	for {
		s, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch s.kind {
		case stop, token.HexAltPipe, token.RParenEnum:
			return units, nil
		case token.HexNibble:
			v, _ := s.lit.IntValue()
			p.emit(token.HexNibble)
			units = append(units, hexstring.NewNibble(byte(v)))
		case token.HexWildcard:
			sym, _ := s.lit.StringValue()
			p.emit(token.HexWildcard)
			units = append(units, decodeHexWildcard(sym))
		case token.HexJumpOpen:
			u, err := p.parseHexJump()
			if err != nil {
				return nil, err
			}
			units = append(units, u)
		case token.LParenEnum:
			u, err := p.parseHexAlternation()
			if err != nil {
				return nil, err
			}
			units = append(units, u)
		default:
			return nil, p.errorf(s.pos, "unexpected %s in hex string", s.kind)
		}
	}
}

func decodeHexWildcard(sym string) hexstring.Unit {
	switch sym {
	case "??":
		return hexstring.NewWildcard()
	default:
		if sym[0] == '?' {
			var v byte
			fmt.Sscanf(sym[1:], "%X", &v)
			return hexstring.NewWildcardLow(v)
		}
		var v byte
		fmt.Sscanf(sym[:1], "%X", &v)
		return hexstring.NewWildcardHigh(v)
	}
}

func (p *Parser) parseHexJump() (hexstring.Unit, error) {
	if _, err := p.expect(token.HexJumpOpen); err != nil {
		return hexstring.Unit{}, err
	}
	var lo, hi int
	var hasLo, hasHi bool
	if s, _ := p.peek(); s.kind == token.HexNibble || isHexIntLiteral(s) {
		v, err := p.parseHexJumpInt()
		if err != nil {
			return hexstring.Unit{}, err
		}
		lo, hasLo = v, true
	}
	if p.at(token.Minus) {
		p.emit(token.Minus)
		if s, _ := p.peek(); s.kind == token.HexNibble || isHexIntLiteral(s) {
			v, err := p.parseHexJumpInt()
			if err != nil {
				return hexstring.Unit{}, err
			}
			hi, hasHi = v, true
		}
	} else {
		hi, hasHi = lo, hasLo
	}
	if _, err := p.expect(token.HexJumpClose); err != nil {
		return hexstring.Unit{}, err
	}
	u, err := hexstring.NewJump(lo, hi, hasLo, hasHi)
	if err != nil {
		return hexstring.Unit{}, p.errorf(token.Pos{}, "%v", err)
	}
	return u, nil
}

func isHexIntLiteral(s scanned) bool { return s.kind == token.IntLiteral }

// parseHexJumpInt consumes a decimal jump bound. In hex mode the scanner
// reads a digit run that directly follows '[' or '-' as a decimal
// IntLiteral, so a jump bound arrives as IntLiteral; its integer value is
// taken as the bound.
func (p *Parser) parseHexJumpInt() (int, error) {
	s, err := p.peek()
	if err != nil {
		return 0, err
	}
	v, _ := s.lit.IntValue()
	p.emit(s.kind)
	return int(v), nil
}

func (p *Parser) parseHexAlternation() (hexstring.Unit, error) {
	if _, err := p.expect(token.LParenEnum); err != nil {
		return hexstring.Unit{}, err
	}
	var alts [][]hexstring.Unit
	first, err := p.parseHexUnitSequence(token.RParenEnum)
	if err != nil {
		return hexstring.Unit{}, err
	}
	alts = append(alts, first)
	for p.at(token.HexAltPipe) {
		p.emit(token.HexAltPipe)
		next, err := p.parseHexUnitSequence(token.RParenEnum)
		if err != nil {
			return hexstring.Unit{}, err
		}
		alts = append(alts, next)
	}
	if _, err := p.expect(token.RParenEnum); err != nil {
		return hexstring.Unit{}, err
	}
	return hexstring.NewAlternation(alts...), nil
}

func (p *Parser) parseStringModifiers(str *ast.String) error {
	for {
		s, err := p.peek()
		if err != nil {
			return err
		}
		switch s.kind {
		case token.KwAscii:
			if _, err := p.emit(token.KwAscii); err != nil {
				return err
			}
			str.Modifiers |= ast.ModAscii
		case token.KwWide:
			if _, err := p.emit(token.KwWide); err != nil {
				return err
			}
			str.Modifiers |= ast.ModWide
		case token.KwNocase:
			if _, err := p.emit(token.KwNocase); err != nil {
				return err
			}
			str.Modifiers |= ast.ModNocase
		case token.KwFullword:
			if _, err := p.emit(token.KwFullword); err != nil {
				return err
			}
			str.Modifiers |= ast.ModFullword
		case token.KwPrivateString:
			if _, err := p.emit(token.KwPrivateString); err != nil {
				return err
			}
			str.Modifiers |= ast.ModPrivate
		case token.KwXor:
			if _, err := p.emit(token.KwXor); err != nil {
				return err
			}
			str.Modifiers |= ast.ModXor
			if p.at(token.LParen) {
				if _, err := p.emit(token.LParen); err != nil {
					return err
				}
				if err := p.parseXorRange(str); err != nil {
					return err
				}
				if _, err := p.expect(token.RParen); err != nil {
					return err
				}
			}
		case token.KwBase64:
			if _, err := p.emit(token.KwBase64); err != nil {
				return err
			}
			str.Modifiers |= ast.ModBase64
			if err := p.parseOptionalAlphabet(str); err != nil {
				return err
			}
		case token.KwBase64Wide:
			if _, err := p.emit(token.KwBase64Wide); err != nil {
				return err
			}
			str.Modifiers |= ast.ModBase64Wide
			if err := p.parseOptionalAlphabet(str); err != nil {
				return err
			}
		default:
			return nil
		}
		str.ModifierTokens = append(str.ModifierTokens, p.stream.Last())
	}
}

func (p *Parser) parseXorRange(str *ast.String) error {
	s, err := p.peek()
	if err != nil {
		return err
	}
	if s.kind != token.IntLiteral {
		return p.errorf(s.pos, "expected integer xor key/bound")
	}
	lo, _ := s.lit.IntValue()
	p.emit(token.IntLiteral)
	if p.at(token.Minus) {
		p.emit(token.Minus)
		hs, err := p.peek()
		if err != nil {
			return err
		}
		hi, _ := hs.lit.IntValue()
		p.emit(hs.kind)
		str.XorLow, str.XorHigh, str.XorHasRange = int(lo), int(hi), true
		return nil
	}
	b := byte(lo)
	str.XorKey = &b
	return nil
}

func (p *Parser) parseOptionalAlphabet(str *ast.String) error {
	if !p.at(token.LParen) {
		return nil
	}
	if _, err := p.emit(token.LParen); err != nil {
		return err
	}
	s, err := p.peek()
	if err != nil {
		return err
	}
	if s.kind != token.StringLiteral {
		return p.errorf(s.pos, "expected base64 alphabet string")
	}
	alpha, _ := s.lit.StringValue()
	str.Base64Alphabet = alpha
	p.emit(token.StringLiteral)
	_, err = p.expect(token.RParen)
	return err
}
