package builder

import (
	"github.com/yaramod/yaramod-go/ast"
	"github.com/yaramod/yaramod-go/errs"
	"github.com/yaramod/yaramod-go/parser"
	"github.com/yaramod/yaramod-go/printer"
)

// YaraFileBuilder assembles a whole YaraFile: an import list plus an
// ordered sequence of rules, each built by its own YaraRuleBuilder and
// spliced into the file's single shared stream on attachment.
type YaraFileBuilder struct {
	file *ast.YaraFile
	err  error
}

// NewFile starts an empty file.
func NewFile() YaraFileBuilder {
	return YaraFileBuilder{file: ast.NewYaraFile()}
}

// WithImport adds a module import, e.g. `import "pe"`.
func (b YaraFileBuilder) WithImport(name string) YaraFileBuilder {
	if b.err != nil {
		return b
	}
	b.file.AddImport(name)
	return b
}

// WithRule finalizes rule and appends it to the file, splicing its private
// stream into the file's shared one and rebinding the rule to follow.
func (b YaraFileBuilder) WithRule(rule YaraRuleBuilder) YaraFileBuilder {
	if b.err != nil {
		return b
	}
	r, err := rule.Get()
	if err != nil {
		return YaraFileBuilder{err: err}
	}
	if _, dup := b.file.FindRule(r.Name); dup {
		return YaraFileBuilder{err: errs.NewBuilderError("duplicate rule name %q", r.Name)}
	}
	b.file.Stream.SpliceAppend(rule.stream)
	r.Rebind(b.file.Stream)
	b.file.AddRule(r)
	return b
}

// Build finalizes the file, running the printer's auto-format pass over the
// assembled token stream so layout (newlines, indentation, section
// spacing) comes out the same as a file the parser produced from real
// source text (spec.md §4.2 Auto-format).
func (b YaraFileBuilder) Build() (*ast.YaraFile, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.file.Rules) == 0 {
		return nil, errs.NewBuilderError("file has no rules")
	}
	printer.AutoFormat(b.file.Stream)
	return b.file, nil
}

// BuildAndValidate is Build, followed by printing the file back out to text
// and re-parsing it, to catch a malformed token sequence the individual
// builders' own checks missed. It returns the reparsed (not the originally
// built) *ast.YaraFile, along with the rendered text, since a successful
// round trip is the only guarantee that both are equivalent.
func (b YaraFileBuilder) BuildAndValidate() (*ast.YaraFile, string, error) {
	file, err := b.Build()
	if err != nil {
		return nil, "", err
	}
	text := printer.Format(file)
	reparsed, err := parser.ParseFile("builder-output.yar", []byte(text), nil, nil, errs.FailFastReporter{})
	if err != nil {
		return nil, text, errs.NewBuilderError("built file does not round-trip through the parser: %v", err)
	}
	return reparsed, text, nil
}
