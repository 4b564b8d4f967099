package analyze

import (
	"github.com/dop251/goja/ast"

	"github.com/recera/rill/pkg/script"
	"github.com/recera/rill/pkg/template"
)

// FunctionTable maps module-level function names to their bodies
type FunctionTable map[string]ast.Node

// collectFunctions records function declarations and const/let/var
// bindings initialized with a function or arrow literal.
func collectFunctions(program *ast.Program) FunctionTable {
	table := FunctionTable{}

	addBinding := func(b *ast.Binding) {
		id, ok := b.Target.(*ast.Identifier)
		if !ok {
			return
		}
		switch fn := b.Initializer.(type) {
		case *ast.FunctionLiteral:
			if fn.Body != nil {
				table[string(id.Name)] = fn.Body
			}
		case *ast.ArrowFunctionLiteral:
			if fn.Body != nil {
				table[string(id.Name)] = fn.Body
			}
		}
	}

	for _, stmt := range program.Body {
		switch s := stmt.(type) {
		case *ast.FunctionDeclaration:
			if s.Function != nil && s.Function.Name != nil && s.Function.Body != nil {
				table[string(s.Function.Name.Name)] = s.Function.Body
			}
		case *ast.LexicalDeclaration:
			for _, b := range s.List {
				addBinding(b)
			}
		case *ast.VariableStatement:
			for _, b := range s.List {
				addBinding(b)
			}
		}
	}
	return table
}

// collectTemplateUsage adds to out the names the markup reads: for each
// element its attributes, then its children.
func collectTemplateUsage(fragments []template.Fragment, functions FunctionTable, out *NameSet) {
	for _, f := range fragments {
		switch f := f.(type) {
		case *template.Element:
			for _, attr := range f.Attributes {
				if !attr.IsExpression() {
					continue
				}
				if root := script.RootIdentifier(attr.Expr.Node); root != nil {
					out.Add(string(root.Name))
				}
				ReferencedNames(attr.Expr.Node, functions, out)
			}
			collectTemplateUsage(f.Children, functions, out)
		case *template.Expression:
			ReferencedNames(f.Expr.Node, functions, out)
		}
	}
}

// ReferencedNames adds every identifier node references to out. A call
// whose callee names an entry of functions also contributes every
// identifier in that function's body, transitively. The result over-
// approximates: names local to the called function are included.
func ReferencedNames(node ast.Node, functions FunctionTable, out *NameSet) {
	harvest(node, functions, make(map[string]bool), out)
}

func harvest(node ast.Node, functions FunctionTable, visited map[string]bool, out *NameSet) {
	script.Inspect(node, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.Identifier:
			out.Add(string(n.Name))
		case *ast.CallExpression:
			callee, ok := n.Callee.(*ast.Identifier)
			if !ok {
				break
			}
			name := string(callee.Name)
			if body, ok := functions[name]; ok && !visited[name] {
				visited[name] = true
				harvest(body, functions, visited, out)
			}
		}
		return true
	})
}
