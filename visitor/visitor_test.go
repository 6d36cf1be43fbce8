package visitor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaramod/yaramod-go/ast"
	"github.com/yaramod/yaramod-go/errs"
	"github.com/yaramod/yaramod-go/literal"
	"github.com/yaramod/yaramod-go/parser"
	"github.com/yaramod/yaramod-go/symbol"
	"github.com/yaramod/yaramod-go/token"
	"github.com/yaramod/yaramod-go/visitor"
)

func parseCondition(t *testing.T, body string) (*ast.YaraFile, *ast.Rule) {
	t.Helper()
	src := "rule r {\n\tcondition:\n\t\t" + body + "\n}\n"
	file, err := parser.ParseFile("test.yar", []byte(src), nil, nil, errs.FailFastReporter{})
	require.NoError(t, err)
	require.Len(t, file.Rules, 1)
	return file, file.Rules[0]
}

func TestWalkObservingVisitsPostOrder(t *testing.T) {
	_, rule := parseCondition(t, "10 + 10 > 5")

	var order []string
	visitor.Walk(rule.Condition, &visitor.ObservingVisitor{
		Visit: func(e ast.Expr) {
			order = append(order, e.Text())
		},
	})

	require.Equal(t, []string{"10", "10", "10 + 10", "5", "10 + 10 > 5"}, order)
}

func TestModifyingVisitorReplacesLiterals(t *testing.T) {
	file, rule := parseCondition(t, "10 + 10 > 5")

	v := &visitor.ModifyingVisitor{
		Modify: func(e ast.Expr) visitor.Result {
			lit, ok := e.(*ast.LiteralExpr)
			if !ok || !lit.Value.IsInt() {
				return visitor.Keep()
			}
			n, err := lit.Value.IntValue()
			require.NoError(t, err)
			if n != 10 {
				return visitor.Keep()
			}
			tok := file.Stream.EmplaceBack(token.IntLiteral, literal.NewInt(111))
			return visitor.Replace(ast.NewLiteralExpr(literal.NewInt(111), symbol.Int, tok, tok))
		},
	}

	newRoot, err := v.Walk(rule.Condition, file.Stream)
	require.NoError(t, err)
	rule.Condition = newRoot

	require.Equal(t, "111 + 111 > 5", rule.Condition.Text())

	for tok := range file.Stream.All() {
		if tok.Kind() != token.IntLiteral {
			continue
		}
		n, err := tok.Literal().IntValue()
		require.NoError(t, err)
		require.NotEqual(t, int64(10), n)
	}
}

func TestModifyingVisitorDeleteCollapsesAndOr(t *testing.T) {
	file, rule := parseCondition(t, "true and false")

	v := &visitor.ModifyingVisitor{
		Modify: func(e ast.Expr) visitor.Result {
			lit, ok := e.(*ast.LiteralExpr)
			if !ok || !lit.Value.IsBool() {
				return visitor.Keep()
			}
			b, err := lit.Value.BoolValue()
			require.NoError(t, err)
			if !b {
				return visitor.Delete()
			}
			return visitor.Keep()
		},
	}

	newRoot, err := v.Walk(rule.Condition, file.Stream)
	require.NoError(t, err)
	require.Equal(t, "true", newRoot.Text())
}

func TestModifyingVisitorDeleteBothSidesDeletesRoot(t *testing.T) {
	file, rule := parseCondition(t, "true and false")

	v := &visitor.ModifyingVisitor{
		Modify: func(e ast.Expr) visitor.Result {
			if _, ok := e.(*ast.LiteralExpr); ok {
				return visitor.Delete()
			}
			return visitor.Keep()
		},
	}

	_, err := v.Walk(rule.Condition, file.Stream)
	require.Error(t, err)
	var visitErr *errs.VisitorResultError
	require.ErrorAs(t, err, &visitErr)
}

func TestModifyingVisitorRejectsDeleteOfNonLogicalOperand(t *testing.T) {
	file, rule := parseCondition(t, "10 + 10 > 5")

	v := &visitor.ModifyingVisitor{
		Modify: func(e ast.Expr) visitor.Result {
			lit, ok := e.(*ast.LiteralExpr)
			if ok && lit.Text() == "5" {
				return visitor.Delete()
			}
			return visitor.Keep()
		},
	}

	_, err := v.Walk(rule.Condition, file.Stream)
	require.Error(t, err)
}

func TestObservingVisitorWalksForExprIterable(t *testing.T) {
	_, rule := parseCondition(t, "for any i in (1, 2, 3) : ( i > 1 )")

	count := 0
	visitor.Walk(rule.Condition, &visitor.ObservingVisitor{
		Visit: func(e ast.Expr) { count++ },
	})

	// 3 int-set members + (i, 1) inside the body's BinaryExpr + the
	// BinaryExpr itself + the ForExpr root = 7.
	require.Equal(t, 7, count)
}
