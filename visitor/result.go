// Package visitor implements the observing and modifying traversals over a
// condition expression tree. Both mirror walk.go's enter/exit callback
// pattern, adapted from protobuf-descriptor walking to yaramod-go's sealed
// Expr union: traversal order is fixed (depth-first, left-to-right over a
// node's structural children), and the modifying variant keeps the token
// stream in lockstep with every Replace/Delete it applies.
package visitor

import "github.com/yaramod/yaramod-go/ast"

type resultKind int

const (
	keepResult resultKind = iota
	replaceResult
	deleteResult
)

// Result is what a ModifyingVisitor's callback returns for the node it was
// just handed. The zero Result is Keep.
type Result struct {
	kind        resultKind
	replacement ast.Expr
}

// Keep leaves the visited node unchanged.
func Keep() Result { return Result{kind: keepResult} }

// Replace swaps the visited node for expr. The framework erases the old
// node's token range from the shared stream and splices expr's tokens into
// its place.
func Replace(expr ast.Expr) Result { return Result{kind: replaceResult, replacement: expr} }

// Delete removes the visited node. Its parent applies a variant-specific
// default: deleting one side of and/or returns the other side; deleting
// both sides (or a required single child) deletes the parent in turn;
// deleting a for/of iterand deletes the whole iterating expression.
func Delete() Result { return Result{kind: deleteResult} }
