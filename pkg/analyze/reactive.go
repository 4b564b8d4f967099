package analyze

import (
	"github.com/dop251/goja/ast"

	"github.com/recera/rill/pkg/script"
)

// ReactiveLabel is the statement label that marks a reactive declaration
const ReactiveLabel = "$"

// ReactiveDeclaration is a top-level `$: target = expr` statement
type ReactiveDeclaration struct {
	Assignees    []string
	Dependencies []string
	Statement    *ast.LabelledStatement
	Assign       *ast.AssignExpression
	// Position among the reactive declarations in source order
	Index int
}

// reactiveAssignment returns the assignment of a reactive declaration, or
// nil when stmt is not one.
func reactiveAssignment(stmt ast.Statement) (*ast.LabelledStatement, *ast.AssignExpression) {
	labelled, ok := stmt.(*ast.LabelledStatement)
	if !ok || labelled.Label == nil || string(labelled.Label.Name) != ReactiveLabel {
		return nil, nil
	}
	body, ok := labelled.Statement.(*ast.ExpressionStatement)
	if !ok {
		return nil, nil
	}
	assign, ok := body.Expression.(*ast.AssignExpression)
	if !ok {
		return nil, nil
	}
	return labelled, assign
}

// extractReactive removes reactive declarations from the program body and
// returns them in source order. Scopes must already be built.
func extractReactive(program *ast.Program, scopes map[ast.Node]*Scope, root *Scope) []*ReactiveDeclaration {
	var decls []*ReactiveDeclaration
	kept := program.Body[:0:0]

	for _, stmt := range program.Body {
		labelled, assign := reactiveAssignment(stmt)
		if assign == nil {
			kept = append(kept, stmt)
			continue
		}

		assignees := NewNameSet()
		for _, id := range script.TargetNames(assign.Left) {
			assignees.Add(string(id.Name))
		}

		deps := NewNameSet()
		script.Walk(&scopedVisitor{scopes: scopes, scope: root, fn: func(n ast.Node, s *Scope) bool {
			if id, ok := n.(*ast.Identifier); ok {
				name := string(id.Name)
				if owner := s.Lookup(name); owner == nil || owner == root {
					deps.Add(name)
				}
			}
			return true
		}}, assign.Right)

		decls = append(decls, &ReactiveDeclaration{
			Assignees:    assignees.Names(),
			Dependencies: deps.Names(),
			Statement:    labelled,
			Assign:       assign,
			Index:        len(decls),
		})
	}

	program.Body = kept
	return decls
}

// addCallDependencies extends each declaration's dependencies with the
// module bindings read by module-level functions its right-hand side
// calls. Must run once every implicit assignee is declared on root.
func addCallDependencies(decls []*ReactiveDeclaration, functions FunctionTable, scopes map[ast.Node]*Scope, root *Scope) {
	for _, d := range decls {
		harvested := NewNameSet()
		script.Walk(&scopedVisitor{scopes: scopes, scope: root, fn: func(n ast.Node, s *Scope) bool {
			call, ok := n.(*ast.CallExpression)
			if !ok {
				return true
			}
			callee, ok := call.Callee.(*ast.Identifier)
			if !ok || s.Lookup(string(callee.Name)) != root {
				return true
			}
			if body, ok := functions[string(callee.Name)]; ok {
				ReferencedNames(body, functions, harvested)
			}
			return true
		}}, d.Assign.Right)

		if harvested.Len() == 0 {
			continue
		}
		deps := NewNameSet(d.Dependencies...)
		for _, name := range harvested.Names() {
			if root.Owns(name) {
				deps.Add(name)
			}
		}
		d.Dependencies = deps.Names()
	}
}
