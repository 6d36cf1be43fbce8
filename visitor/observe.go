package visitor

import "github.com/yaramod/yaramod-go/ast"

// ObservingVisitor is a pure post-order walk: Visit is called on every
// descendant before being called on that descendant's parent, and its
// return value (there is none) cannot affect the tree. A nil Visit field
// makes Walk a no-op, matching "default visit does nothing" for callers
// that only care about a subset of node kinds and check the type inside
// their callback.
type ObservingVisitor struct {
	Visit func(ast.Expr)
}

// Walk runs v over root and every structural descendant, post-order.
func Walk(root ast.Expr, v *ObservingVisitor) {
	if root == nil || v == nil {
		return
	}
	walkChildren(root, v)
	if v.Visit != nil {
		v.Visit(root)
	}
}

func walkChildren(n ast.Expr, v *ObservingVisitor) {
	for _, child := range children(n) {
		Walk(child, v)
	}
}

// children returns n's direct structural Expr children, in source order.
// Leaf nodes (literals, identifiers, keywords) return nil.
func children(n ast.Expr) []ast.Expr {
	switch e := n.(type) {
	case *ast.UnaryExpr:
		return []ast.Expr{e.Operand}
	case *ast.BinaryExpr:
		return []ast.Expr{e.Left, e.Right}
	case *ast.ParenExpr:
		return []ast.Expr{e.Inner}
	case *ast.StructAccessExpr:
		return []ast.Expr{e.Target}
	case *ast.ArrayAccessExpr:
		return []ast.Expr{e.Target, e.Index}
	case *ast.FunctionCallExpr:
		out := make([]ast.Expr, 0, len(e.Args)+1)
		out = append(out, e.Target)
		return append(out, e.Args...)
	case *ast.IntReaderExpr:
		return []ast.Expr{e.Offset}
	case *ast.StringRefExpr:
		var out []ast.Expr
		if e.At != nil {
			out = append(out, e.At)
		}
		if e.Lo != nil {
			out = append(out, e.Lo, e.Hi)
		}
		if e.Index != nil {
			out = append(out, e.Index)
		}
		return out
	case *ast.ForExpr:
		out := append(iterableChildren(e.Iterable), e.Body)
		return out
	case *ast.OfExpr:
		out := iterableChildren(e.Iterable)
		if e.InLo != nil {
			out = append(out, e.InLo, e.InHi)
		}
		return out
	case *ast.WithExpr:
		out := make([]ast.Expr, 0, len(e.Bindings)+1)
		for _, b := range e.Bindings {
			out = append(out, b.Value)
		}
		return append(out, e.Body)
	default:
		// LiteralExpr, Identifier, KeywordExpr: no children.
		return nil
	}
}

func iterableChildren(it ast.Iterable) []ast.Expr {
	switch it.Kind {
	case ast.IterIntSet:
		return append([]ast.Expr(nil), it.Ints...)
	case ast.IterIntRange:
		return []ast.Expr{it.Lo, it.Hi}
	case ast.IterStringSet:
		out := make([]ast.Expr, 0, len(it.Strings))
		for _, s := range it.Strings {
			out = append(out, s)
		}
		return out
	case ast.IterArray, ast.IterDictionary:
		return []ast.Expr{it.Container}
	default:
		return nil
	}
}
