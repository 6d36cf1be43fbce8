package visitor

import (
	"github.com/yaramod/yaramod-go/ast"
	"github.com/yaramod/yaramod-go/errs"
	"github.com/yaramod/yaramod-go/token"
)

// ModifyingVisitor rewrites an expression tree in place. Modify is called
// post-order on each node (children have already been rebuilt, replaced, or
// deleted by the time their parent is visited) and its Result decides what
// happens at that position. A nil Modify field makes Walk a no-op.
type ModifyingVisitor struct {
	Modify func(ast.Expr) Result
}

// Walk runs v over root, which must belong to stream, and returns the
// (possibly different) root node. It fails if root itself is deleted: there
// is no parent position for the framework to collapse into.
func (v *ModifyingVisitor) Walk(root ast.Expr, stream *token.Stream) (ast.Expr, error) {
	if root == nil || v == nil {
		return root, nil
	}
	newRoot, deleted, err := v.descend(root, stream)
	if err != nil {
		return nil, err
	}
	if deleted {
		return nil, errs.NewVisitorResultError(root.FirstToken().Pos(),
			"modifying visitor deleted the root expression, which has no parent to fall back to")
	}
	return newRoot, nil
}

// descend rebuilds node's children, then applies v.Modify to the rebuilt
// node. It returns (nil, true, nil) when node is to be deleted, leaving the
// parent to apply its own variant-specific default.
//
// A variant default (the and/or collapse in descendBinary, most notably)
// can substitute an already-visited descendant for node itself; in that
// case descendChildren reports final=true and Modify is not invoked a
// second time on a position that was already resolved.
func (v *ModifyingVisitor) descend(node ast.Expr, stream *token.Stream) (ast.Expr, bool, error) {
	rebuilt, deleted, final, err := v.descendChildren(node, stream)
	if err != nil || deleted || final {
		return rebuilt, deleted, err
	}
	if v.Modify == nil {
		return rebuilt, false, nil
	}
	res := v.Modify(rebuilt)
	switch res.kind {
	case replaceResult:
		spliceReplace(stream, rebuilt, res.replacement)
		return res.replacement, false, nil
	case deleteResult:
		return nil, true, nil
	default:
		return rebuilt, false, nil
	}
}

// visitChild recurses into a single child position.
func (v *ModifyingVisitor) visitChild(child ast.Expr, stream *token.Stream) (ast.Expr, bool, error) {
	if child == nil {
		return nil, false, nil
	}
	return v.descend(child, stream)
}

// descendChildren rebuilds node's structural children in place and reports
// (result, deleted, final, err). final is true only when result is an
// already-fully-visited descendant substituted in for node by a variant
// default (so the caller must not run Modify on it again).
func (v *ModifyingVisitor) descendChildren(node ast.Expr, stream *token.Stream) (ast.Expr, bool, bool, error) {
	switch e := node.(type) {
	case *ast.UnaryExpr:
		operand, del, err := v.visitChild(e.Operand, stream)
		if err != nil || del {
			return nil, del, false, err
		}
		e.Operand = operand
		return e, false, false, nil

	case *ast.BinaryExpr:
		return v.descendBinary(e, stream)

	case *ast.ParenExpr:
		inner, del, err := v.visitChild(e.Inner, stream)
		if err != nil || del {
			return nil, del, false, err
		}
		e.Inner = inner
		return e, false, false, nil

	case *ast.StructAccessExpr:
		target, del, err := v.visitChild(e.Target, stream)
		if err != nil || del {
			return nil, del, false, err
		}
		e.Target = target
		return e, false, false, nil

	case *ast.ArrayAccessExpr:
		target, tdel, err := v.visitChild(e.Target, stream)
		if err != nil {
			return nil, false, false, err
		}
		index, idel, err := v.visitChild(e.Index, stream)
		if err != nil {
			return nil, false, false, err
		}
		if tdel || idel {
			return nil, true, false, nil
		}
		e.Target, e.Index = target, index
		return e, false, false, nil

	case *ast.FunctionCallExpr:
		target, tdel, err := v.visitChild(e.Target, stream)
		if err != nil {
			return nil, false, false, err
		}
		if tdel {
			return nil, true, false, nil
		}
		e.Target = target
		newArgs := make([]ast.Expr, 0, len(e.Args))
		for i, a := range e.Args {
			child, del, err := v.visitChild(a, stream)
			if err != nil {
				return nil, false, false, err
			}
			if del {
				eraseListMember(stream, e.Args, i)
				continue
			}
			newArgs = append(newArgs, child)
		}
		e.Args = newArgs
		return e, false, false, nil

	case *ast.IntReaderExpr:
		offset, del, err := v.visitChild(e.Offset, stream)
		if err != nil || del {
			return nil, del, false, err
		}
		e.Offset = offset
		return e, false, false, nil

	case *ast.StringRefExpr:
		result, del, err := v.descendStringRef(e, stream)
		return result, del, false, err

	case *ast.ForExpr:
		iterDeleted, err := v.descendIterable(&e.Iterable, stream)
		if err != nil {
			return nil, false, false, err
		}
		body, bdel, err := v.visitChild(e.Body, stream)
		if err != nil {
			return nil, false, false, err
		}
		if iterDeleted || bdel {
			return nil, true, false, nil
		}
		e.Body = body
		return e, false, false, nil

	case *ast.OfExpr:
		iterDeleted, err := v.descendIterable(&e.Iterable, stream)
		if err != nil {
			return nil, false, false, err
		}
		if iterDeleted {
			return nil, true, false, nil
		}
		if e.InLo != nil {
			lo, ldel, err := v.visitChild(e.InLo, stream)
			if err != nil {
				return nil, false, false, err
			}
			hi, hdel, err := v.visitChild(e.InHi, stream)
			if err != nil {
				return nil, false, false, err
			}
			if ldel || hdel {
				return nil, false, false, errs.NewVisitorResultError(e.InLo.FirstToken().Pos(),
					"the in-range bounds of an of-expression cannot be deleted; replace the whole of-expression instead")
			}
			e.InLo, e.InHi = lo, hi
		}
		return e, false, false, nil

	case *ast.WithExpr:
		result, del, err := v.descendWith(e, stream)
		return result, del, false, err

	default:
		// LiteralExpr, Identifier, KeywordExpr: leaves, nothing to descend.
		return node, false, false, nil
	}
}

// descendBinary implements the and/or collapse rule: deleting one operand
// of a logical connective returns the other; deleting both, or deleting an
// operand of any non-logical operator, deletes the whole expression.
func (v *ModifyingVisitor) descendBinary(e *ast.BinaryExpr, stream *token.Stream) (ast.Expr, bool, bool, error) {
	left, leftDel, err := v.visitChild(e.Left, stream)
	if err != nil {
		return nil, false, false, err
	}
	right, rightDel, err := v.visitChild(e.Right, stream)
	if err != nil {
		return nil, false, false, err
	}

	switch {
	case leftDel && rightDel:
		return nil, true, false, nil

	case leftDel:
		if e.Op != ast.And && e.Op != ast.Or {
			return nil, false, false, errs.NewVisitorResultError(e.Left.FirstToken().Pos(),
				"cannot delete an operand of %s", e.Op.String())
		}
		eraseRange(stream, e.FirstToken(), token.Prev(right.FirstToken()))
		return right, false, true, nil

	case rightDel:
		if e.Op != ast.And && e.Op != ast.Or {
			return nil, false, false, errs.NewVisitorResultError(e.Right.FirstToken().Pos(),
				"cannot delete an operand of %s", e.Op.String())
		}
		eraseRange(stream, token.Next(left.LastToken()), e.LastToken())
		return left, false, true, nil

	default:
		e.Left, e.Right = left, right
		return e, false, false, nil
	}
}

// descendStringRef handles the optional At/Lo-Hi/Index children a string
// reference may carry. Deleting a required component (At, or either end of
// an in-range) deletes the whole reference; deleting an explicit [index]
// collapses @a[i]/!a[i] back to the bare @a/!a form.
func (v *ModifyingVisitor) descendStringRef(e *ast.StringRefExpr, stream *token.Stream) (ast.Expr, bool, error) {
	if e.At != nil {
		at, del, err := v.visitChild(e.At, stream)
		if err != nil || del {
			return nil, del, err
		}
		e.At = at
	}
	if e.Lo != nil {
		lo, ldel, err := v.visitChild(e.Lo, stream)
		if err != nil {
			return nil, false, err
		}
		hi, hdel, err := v.visitChild(e.Hi, stream)
		if err != nil {
			return nil, false, err
		}
		if ldel || hdel {
			return nil, true, nil
		}
		e.Lo, e.Hi = lo, hi
	}
	if e.Index != nil {
		idx, del, err := v.visitChild(e.Index, stream)
		if err != nil {
			return nil, false, err
		}
		if del {
			lbracket := token.Prev(e.Index.FirstToken())
			newLast := token.Prev(lbracket)
			eraseRange(stream, lbracket, e.LastToken())
			e.Index = nil
			ast.SetSpan(e, e.FirstToken(), newLast)
		} else {
			e.Index = idx
		}
	}
	return e, false, nil
}

// descendIterable walks the members of a for/of iterable. Per the
// for/of-expression contract, deleting any single member (an int-set entry,
// a string-set member, a range bound, or the backing array/dictionary)
// deletes the whole iterating expression rather than shrinking the set.
func (v *ModifyingVisitor) descendIterable(it *ast.Iterable, stream *token.Stream) (bool, error) {
	switch it.Kind {
	case ast.IterIntSet:
		for i, elem := range it.Ints {
			child, del, err := v.visitChild(elem, stream)
			if err != nil {
				return false, err
			}
			if del {
				return true, nil
			}
			it.Ints[i] = child
		}
	case ast.IterIntRange:
		lo, ldel, err := v.visitChild(it.Lo, stream)
		if err != nil {
			return false, err
		}
		hi, hdel, err := v.visitChild(it.Hi, stream)
		if err != nil {
			return false, err
		}
		if ldel || hdel {
			return true, nil
		}
		it.Lo, it.Hi = lo, hi
	case ast.IterStringSet:
		for i, s := range it.Strings {
			child, del, err := v.visitChild(s, stream)
			if err != nil {
				return false, err
			}
			if del {
				return true, nil
			}
			ref, ok := child.(*ast.StringRefExpr)
			if !ok {
				return false, errs.NewVisitorResultError(child.FirstToken().Pos(),
					"replacement for a string-set member must be a string reference")
			}
			it.Strings[i] = ref
		}
	case ast.IterArray, ast.IterDictionary:
		container, del, err := v.visitChild(it.Container, stream)
		if err != nil {
			return false, err
		}
		if del {
			return true, nil
		}
		it.Container = container
	}
	return false, nil
}

// descendWith handles a with-expression's bindings and body. Deleting the
// body deletes the whole with-expression; deleting a binding's value is
// refused with a VisitorResultError.
func (v *ModifyingVisitor) descendWith(e *ast.WithExpr, stream *token.Stream) (ast.Expr, bool, error) {
	body, bdel, err := v.visitChild(e.Body, stream)
	if err != nil {
		return nil, false, err
	}
	if bdel {
		return nil, true, nil
	}

	newBindings := make([]ast.WithBinding, 0, len(e.Bindings))
	for _, b := range e.Bindings {
		val, del, err := v.visitChild(b.Value, stream)
		if err != nil {
			return nil, false, err
		}
		if del {
			// The "name =" prefix isn't tracked as its own token span, so a
			// precise partial erase isn't possible here; refuse instead of
			// guessing at the boundary.
			return nil, false, errs.NewVisitorResultError(b.Value.FirstToken().Pos(),
				"a with-binding cannot be deleted on its own; replace its value or the whole with-expression instead")
		}
		newBindings = append(newBindings, ast.WithBinding{Name: b.Name, Value: val})
	}
	e.Bindings = newBindings
	e.Body = body
	return e, false, nil
}

// eraseListMember removes the token range of members[i] together with
// whichever adjacent comma separated it from its neighbors.
func eraseListMember(stream *token.Stream, members []ast.Expr, i int) {
	first, last := members[i].FirstToken(), members[i].LastToken()
	switch {
	case i < len(members)-1:
		last = token.Prev(members[i+1].FirstToken())
	case i > 0:
		first = token.Next(members[i-1].LastToken())
	}
	eraseRange(stream, first, last)
}

func eraseRange(stream *token.Stream, first, last token.Token) {
	stream.EraseRange(first, last)
}

// spliceReplace erases old's token range and splices new's in its place,
// the same erase-then-splice sequence Rule.SetCondition uses to swap a
// rule's condition.
func spliceReplace(stream *token.Stream, old, repl ast.Expr) {
	after := stream.EraseRange(old.FirstToken(), old.LastToken())
	stream.SpliceRangeBefore(after, repl.FirstToken(), repl.LastToken())
}
