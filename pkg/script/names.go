package script

import "github.com/dop251/goja/ast"

// RootIdentifier returns the leftmost identifier of a member chain, so that
// `a.b[c].d` yields `a`. It returns nil when the chain does not start with
// an identifier.
func RootIdentifier(e ast.Expression) *ast.Identifier {
	for {
		switch n := e.(type) {
		case *ast.Identifier:
			return n
		case *ast.DotExpression:
			e = n.Left
		case *ast.PrivateDotExpression:
			e = n.Left
		case *ast.BracketExpression:
			e = n.Left
		case *ast.CallExpression:
			e = n.Callee
		case *ast.OptionalChain:
			e = n.Expression
		case *ast.Optional:
			e = n.Expression
		default:
			return nil
		}
	}
}

// TargetNames returns the identifiers written by an assignment or binding
// target. Destructuring patterns contribute every name they bind; member
// targets contribute their root identifier.
func TargetNames(target ast.Expression) []*ast.Identifier {
	var out []*ast.Identifier
	collectTargets(target, &out)
	return out
}

func collectTargets(e ast.Expression, out *[]*ast.Identifier) {
	switch n := e.(type) {
	case nil:
	case *ast.Identifier:
		*out = append(*out, n)
	case *ast.Binding:
		collectTargets(n.Target, out)
	case *ast.AssignExpression:
		// Default value inside a pattern: `[a = 1] = list`.
		collectTargets(n.Left, out)
	case *ast.ArrayPattern:
		for _, el := range n.Elements {
			collectTargets(el, out)
		}
		collectTargets(n.Rest, out)
	case *ast.ObjectPattern:
		for _, p := range n.Properties {
			switch p := p.(type) {
			case *ast.PropertyShort:
				name := p.Name
				*out = append(*out, &name)
			case *ast.PropertyKeyed:
				collectTargets(p.Value, out)
			case *ast.SpreadElement:
				collectTargets(p.Expression, out)
			}
		}
		collectTargets(n.Rest, out)
	case *ast.SpreadElement:
		collectTargets(n.Expression, out)
	default:
		if root := RootIdentifier(e); root != nil {
			*out = append(*out, root)
		}
	}
}

// References returns every identifier n references, in source order.
// Bindings introduced inside n are included; callers that care about scope
// resolve the names themselves.
func References(n ast.Node) []*ast.Identifier {
	var out []*ast.Identifier
	Inspect(n, func(node ast.Node) bool {
		if id, ok := node.(*ast.Identifier); ok {
			out = append(out, id)
		}
		return true
	})
	return out
}
