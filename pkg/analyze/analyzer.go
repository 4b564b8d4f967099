// Package analyze builds the scope tree of a parsed template and computes
// which bindings change, which the markup reads, and the execution order
// of reactive declarations.
package analyze

import (
	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/token"

	"github.com/recera/rill/pkg/script"
	"github.com/recera/rill/pkg/template"
)

// Result holds everything the code generator needs to know about a template
type Result struct {
	Root   *Scope
	Scopes map[ast.Node]*Scope

	// Module-level declarations, in declaration order
	Declared *NameSet
	// Reactive assignees the script never declares
	Implicit *NameSet
	// Identifiers that resolve to no scope
	Globals *NameSet

	WillChange        *NameSet
	WillUseInTemplate *NameSet
	// Names whose assignments notify the dispatcher: WillUseInTemplate plus
	// every reactive dependency
	Observed *NameSet

	// Reactive declarations in execution order
	Reactive []*ReactiveDeclaration
	// Module-level functions by name, consulted when a template calls one
	Functions FunctionTable
}

// Analyze computes the Result for doc. Reactive declarations are removed
// from the script's program body.
func Analyze(doc *template.Document) (*Result, error) {
	r := &Result{
		Root:              newScope(ModuleScope, nil),
		Scopes:            make(map[ast.Node]*Scope),
		Implicit:          NewNameSet(),
		Globals:           NewNameSet(),
		WillChange:        NewNameSet(),
		WillUseInTemplate: NewNameSet(),
		Observed:          NewNameSet(),
		Functions:         FunctionTable{},
	}

	var program *ast.Program
	if doc.Script != nil {
		program = doc.Script.Code.Program
	}

	builder := newScopeBuilder(r.Scopes)
	if program != nil {
		builder.build(program, r.Root)
	}
	exprs := TemplateExpressions(doc.Fragments)
	for _, expr := range exprs {
		builder.build(expr.Node, r.Root)
	}

	var decls []*ReactiveDeclaration
	if program != nil {
		r.Functions = collectFunctions(program)
		decls = extractReactive(program, r.Scopes, r.Root)
	}
	for _, d := range decls {
		for _, name := range d.Assignees {
			if r.Root.Lookup(name) == nil {
				r.Root.Declare(name)
				r.Implicit.Add(name)
			}
			r.WillChange.Add(name)
		}
	}
	addCallDependencies(decls, r.Functions, r.Scopes, r.Root)
	r.Declared = NewNameSet(r.Root.Names()...)

	if program != nil {
		r.collectChanges(program)
	}
	for _, d := range decls {
		r.collectChanges(d.Statement)
	}
	for _, expr := range exprs {
		r.collectChanges(expr.Node)
	}

	collectTemplateUsage(doc.Fragments, r.Functions, r.WillUseInTemplate)
	for _, name := range r.WillUseInTemplate.Names() {
		r.Observed.Add(name)
	}
	for _, d := range decls {
		for _, name := range d.Dependencies {
			r.Observed.Add(name)
		}
	}

	ordered, err := orderReactive(decls)
	if err != nil {
		return nil, err
	}
	r.Reactive = ordered

	return r, nil
}

// Inspect walks node calling fn with each node and its innermost scope.
// Nodes outside any recorded scope resolve against the root.
func (r *Result) Inspect(node ast.Node, fn func(ast.Node, *Scope) bool) {
	r.InspectIn(node, r.Root, fn)
}

// InspectIn is Inspect for a node nested inside scope
func (r *Result) InspectIn(node ast.Node, scope *Scope, fn func(ast.Node, *Scope) bool) {
	script.Walk(&scopedVisitor{scopes: r.Scopes, scope: scope, fn: fn}, node)
}

// ResolvesToRoot reports whether name, seen from scope, is a module binding
func (r *Result) ResolvesToRoot(name string, scope *Scope) bool {
	return scope.Lookup(name) == r.Root
}

// collectChanges adds to WillChange every module binding or free name that
// node assigns or increments, and records free identifiers.
func (r *Result) collectChanges(node ast.Node) {
	r.Inspect(node, func(n ast.Node, s *Scope) bool {
		switch n := n.(type) {
		case *ast.AssignExpression:
			r.markChanged(script.TargetNames(n.Left), s)
		case *ast.UnaryExpression:
			if n.Operator == token.INCREMENT || n.Operator == token.DECREMENT {
				r.markChanged(script.TargetNames(n.Operand), s)
			}
		case *ast.ForIntoExpression:
			r.markChanged(script.TargetNames(n.Expression), s)
		case *ast.Identifier:
			if s.Lookup(string(n.Name)) == nil {
				r.Globals.Add(string(n.Name))
			}
		}
		return true
	})
}

func (r *Result) markChanged(ids []*ast.Identifier, s *Scope) {
	for _, id := range ids {
		name := string(id.Name)
		if owner := s.Lookup(name); owner == nil || owner == r.Root {
			r.WillChange.Add(name)
		}
	}
}

// TemplateExpressions returns every script expression in the markup, in
// traversal order: attributes before children.
func TemplateExpressions(fragments []template.Fragment) []*script.Expr {
	var out []*script.Expr
	template.Walk(fragments, func(f template.Fragment) bool {
		switch f := f.(type) {
		case *template.Element:
			for _, attr := range f.Attributes {
				if attr.IsExpression() {
					out = append(out, attr.Expr)
				}
			}
		case *template.Expression:
			out = append(out, f.Expr)
		}
		return true
	})
	return out
}
