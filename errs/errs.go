// Package errs implements the typed error hierarchy surfaced across
// yaramod-go: every error a caller can observe carries a source position
// (or a synthetic one, for builder-originated failures) and is one of a
// small closed set of kinds, mirroring the ErrorWithPos/Handler pair
// protocompile's reporter package uses to thread positioned diagnostics
// out of a parse.
package errs

import (
	"fmt"

	"github.com/yaramod/yaramod-go/token"
)

// Category distinguishes the six error families from spec.md §7.
type Category int

const (
	Lexical Category = iota
	Syntactic
	Semantic
	Module
	Builder
	Visitor
)

func (c Category) String() string {
	switch c {
	case Lexical:
		return "lexical"
	case Syntactic:
		return "syntactic"
	case Semantic:
		return "semantic"
	case Module:
		return "module"
	case Builder:
		return "builder"
	case Visitor:
		return "visitor"
	default:
		return "unknown"
	}
}

// Error is a single positioned diagnostic.
type Error struct {
	Category Category
	Pos      token.Pos
	Message  string
	// Expected lists the token kinds the parser would have accepted at
	// this position, for Syntactic errors produced by the grammar driver.
	Expected []token.Kind
	wrapped  error
}

func (e *Error) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Category, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Position implements the positioned-error contract relied on by callers
// that want to report diagnostics against source text.
func (e *Error) Position() token.Pos { return e.Pos }

func (e *Error) Unwrap() error { return e.wrapped }

// New constructs a positioned Error.
func New(cat Category, pos token.Pos, format string, args ...any) *Error {
	return &Error{Category: cat, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs a positioned Error around an existing error.
func Wrap(cat Category, pos token.Pos, err error) *Error {
	return &Error{Category: cat, Pos: pos, Message: err.Error(), wrapped: err}
}

// ParseError is returned by the grammar driver for lexical and syntactic
// failures. Parsing does not attempt error recovery: the driver stops at
// the first ParseError.
type ParseError struct{ *Error }

func NewParseError(cat Category, pos token.Pos, format string, args ...any) *ParseError {
	return &ParseError{New(cat, pos, format, args...)}
}

// SemanticError reports a failure to type-check or resolve an already
// syntactically valid construct (undefined identifier, redefinition, type
// mismatch, failed overload resolution, ...).
type SemanticError struct{ *Error }

func NewSemanticError(pos token.Pos, format string, args ...any) *SemanticError {
	e := New(Semantic, pos, format, args...)
	return &SemanticError{e}
}

// ModuleError reports a failure loading a module schema document.
type ModuleError struct{ *Error }

func NewModuleError(pos token.Pos, format string, args ...any) *ModuleError {
	e := New(Module, pos, format, args...)
	return &ModuleError{e}
}

// BuilderError reports an attempt to construct an ill-formed fragment
// through one of the fluent builders.
type BuilderError struct{ *Error }

func NewBuilderError(format string, args ...any) *BuilderError {
	e := New(Builder, token.Pos{}, format, args...)
	return &BuilderError{e}
}

// VisitorResultError reports that a ModifyingVisitor returned a Result
// shape that is not legal at the position being visited (e.g. Delete on a
// node whose parent requires exactly one child).
type VisitorResultError struct{ *Error }

func NewVisitorResultError(pos token.Pos, format string, args ...any) *VisitorResultError {
	e := New(Visitor, pos, format, args...)
	return &VisitorResultError{e}
}

// Reporter receives diagnostics as they are discovered.
//
// Returning a non-nil error from Error aborts the operation immediately
// with that error, mirroring protocompile's ErrorReporter contract:
// returning nil allows the operation to continue and accumulate further
// diagnostics.
type Reporter interface {
	Error(*Error) error
	Warning(*Error)
}

// CollectingReporter implements Reporter by accumulating every diagnostic
// and never aborting.
type CollectingReporter struct {
	Errors   []*Error
	Warnings []*Error
}

func (r *CollectingReporter) Error(e *Error) error {
	r.Errors = append(r.Errors, e)
	return nil
}

func (r *CollectingReporter) Warning(e *Error) {
	r.Warnings = append(r.Warnings, e)
}

// FailFastReporter implements Reporter by returning the first error it
// sees, used by the grammar driver which does not attempt recovery.
type FailFastReporter struct{}

func (FailFastReporter) Error(e *Error) error { return e }
func (FailFastReporter) Warning(*Error)       {}

// Handler wraps a Reporter, remembering whether the operation has already
// aborted so later callers don't need to re-derive that from error values.
type Handler struct {
	reporter Reporter
	err      error
}

func NewHandler(r Reporter) *Handler {
	if r == nil {
		r = &FailFastReporter{}
	}
	return &Handler{reporter: r}
}

// Handle reports e through the underlying Reporter. If the handler has
// already aborted, it returns that same error without reporting e again.
func (h *Handler) Handle(e *Error) error {
	if h.err != nil {
		return h.err
	}
	if err := h.reporter.Error(e); err != nil {
		h.err = err
	}
	return h.err
}

// Warn reports a non-fatal diagnostic.
func (h *Handler) Warn(e *Error) { h.reporter.Warning(e) }

// Err returns the error the operation aborted with, if any.
func (h *Handler) Err() error { return h.err }
