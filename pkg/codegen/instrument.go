package codegen

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"github.com/recera/rill/pkg/analyze"
	"github.com/recera/rill/pkg/script"
)

// invalidateFn is the runtime notifier. It takes the value of the wrapped
// expression followed by binding indices, marks them changed and returns
// the value unchanged.
const invalidateFn = "$$invalidate"

// instrumenter rewrites writes to observed module bindings so they notify
// the dispatcher
type instrumenter struct {
	result   *analyze.Result
	bindings *Bindings
}

// rewrite records on buf a wrapper around every assignment or update
// expression inside node whose target is an observed module binding. src
// locates node in the buffer's text.
func (in *instrumenter) rewrite(buf *script.Buffer, src script.Source, node ast.Node) {
	in.rewriteIn(buf, src, node, in.result.Root)
}

func (in *instrumenter) rewriteIn(buf *script.Buffer, src script.Source, node ast.Node, within *analyze.Scope) {
	in.result.InspectIn(node, within, func(n ast.Node, scope *analyze.Scope) bool {
		var target ast.Expression
		switch n := n.(type) {
		case *ast.AssignExpression:
			target = n.Left
		case *ast.UnaryExpression:
			if n.Operator != token.INCREMENT && n.Operator != token.DECREMENT {
				return true
			}
			target = n.Operand
		case *ast.ForInStatement:
			return !in.rewriteLoop(buf, src, n.Into, n.Source, n.Body, scope)
		case *ast.ForOfStatement:
			return !in.rewriteLoop(buf, src, n.Into, n.Source, n.Body, scope)
		default:
			return true
		}

		ids := in.notified(target, scope)
		if len(ids) == 0 {
			return true
		}

		// Inner writes are recorded first so their wrappers close first
		if assign, ok := n.(*ast.AssignExpression); ok {
			in.rewriteIn(buf, src, assign.Right, scope)
		}
		start, end := span(src, n)
		buf.Wrap(start, end, invalidateFn+"(", ", "+joinInts(ids)+")")
		return false
	})
}

// rewriteLoop makes a for-in or for-of loop whose target is an observed
// module binding notify at the start of every iteration. It reports whether
// it handled the loop.
func (in *instrumenter) rewriteLoop(buf *script.Buffer, src script.Source, into ast.ForInto, source ast.Expression, body ast.Statement, scope *analyze.Scope) bool {
	target, ok := into.(*ast.ForIntoExpression)
	if !ok {
		return false
	}
	ids := in.notified(target.Expression, scope)
	if len(ids) == 0 {
		return false
	}

	in.rewriteIn(buf, src, source, scope)

	start, end := src.Span(body)
	start, end = script.Balance(src.Text, start, end)
	end = skipSemicolon(src.Text, end)
	buf.Insert(start, "{ "+invalidateFn+"(undefined, "+joinInts(ids)+"); ")
	in.rewriteIn(buf, src, body, scope)
	buf.Insert(end, " }")
	return true
}

// notified returns the binding indices a write to target must report
func (in *instrumenter) notified(target ast.Expression, scope *analyze.Scope) []int {
	var ids []int
	seen := make(map[int]bool)
	for _, id := range script.TargetNames(target) {
		name := string(id.Name)
		if !in.result.ResolvesToRoot(name, scope) || !in.result.Observed.Has(name) {
			continue
		}
		if i, ok := in.bindings.Index(name); ok && !seen[i] {
			seen[i] = true
			ids = append(ids, i)
		}
	}
	return ids
}

// span returns the balanced source range of n. Postfix updates are located
// by scanning for the operator, since whitespace may separate it from the
// operand.
func span(src script.Source, n ast.Node) (int, int) {
	text := src.Text
	if u, ok := n.(*ast.UnaryExpression); ok && u.Postfix {
		start, end := script.Balance(text, src.Offset(u.Operand.Idx0()), src.Offset(u.Operand.Idx1()))
		j := end
		for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
			j++
		}
		if j+2 <= len(text) && (text[j:j+2] == "++" || text[j:j+2] == "--") {
			end = j + 2
		}
		return script.Balance(text, start, end)
	}

	start, end := src.Span(n)
	return script.Balance(text, start, end)
}
