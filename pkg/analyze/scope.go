package analyze

import (
	"github.com/dop251/goja/ast"

	"github.com/recera/rill/pkg/script"
)

// ScopeKind distinguishes module, function and block scopes
type ScopeKind int

const (
	ModuleScope ScopeKind = iota
	FunctionScope
	BlockScope
)

// Scope is a node in the lexical scope tree. Parent is used for lookup
// only; scopes do not own their children.
type Scope struct {
	Kind     ScopeKind
	Parent   *Scope
	declared *NameSet
}

func newScope(kind ScopeKind, parent *Scope) *Scope {
	return &Scope{Kind: kind, Parent: parent, declared: NewNameSet()}
}

// Declare adds name to this scope
func (s *Scope) Declare(name string) {
	s.declared.Add(name)
}

// Owns reports whether name is declared directly in this scope
func (s *Scope) Owns(name string) bool {
	return s.declared.Has(name)
}

// Names returns the names declared in this scope in declaration order
func (s *Scope) Names() []string {
	return s.declared.Names()
}

// Lookup returns the nearest scope declaring name, or nil for a free name
func (s *Scope) Lookup(name string) *Scope {
	for scope := s; scope != nil; scope = scope.Parent {
		if scope.declared.Has(name) {
			return scope
		}
	}
	return nil
}

// varScope returns the scope `var` declarations hoist to
func (s *Scope) varScope() *Scope {
	scope := s
	for scope.Kind == BlockScope && scope.Parent != nil {
		scope = scope.Parent
	}
	return scope
}

// scopeBuilder walks a script AST creating scopes and declarations
type scopeBuilder struct {
	scopes map[ast.Node]*Scope
	// Function bodies share the scope of their parameters
	bodies map[*ast.BlockStatement]bool
	// Literals belonging to a FunctionDeclaration; their name binds outside
	declared map[*ast.FunctionLiteral]bool
}

func newScopeBuilder(scopes map[ast.Node]*Scope) *scopeBuilder {
	return &scopeBuilder{
		scopes:   scopes,
		bodies:   make(map[*ast.BlockStatement]bool),
		declared: make(map[*ast.FunctionLiteral]bool),
	}
}

// build records scopes for node and everything below it, with scope as the
// enclosing scope.
func (b *scopeBuilder) build(node ast.Node, scope *Scope) {
	script.Walk(&scopeVisitor{b: b, scope: scope}, node)
}

type scopeVisitor struct {
	b     *scopeBuilder
	scope *Scope
}

func (v *scopeVisitor) Visit(node ast.Node) script.Visitor {
	if node == nil {
		return nil
	}
	b := v.b

	switch n := node.(type) {
	case *ast.Program:
		b.scopes[n] = v.scope

	case *ast.FunctionDeclaration:
		if n.Function != nil && n.Function.Name != nil {
			v.scope.Declare(string(n.Function.Name.Name))
			b.declared[n.Function] = true
		}

	case *ast.ClassDeclaration:
		if n.Class != nil && n.Class.Name != nil {
			v.scope.Declare(string(n.Class.Name.Name))
		}

	case *ast.FunctionLiteral:
		fn := newScope(FunctionScope, v.scope)
		if n.Name != nil && !b.declared[n] {
			fn.Declare(string(n.Name.Name))
		}
		declareParams(fn, n.ParameterList)
		if n.Body != nil {
			b.bodies[n.Body] = true
		}
		b.scopes[n] = fn
		return &scopeVisitor{b: b, scope: fn}

	case *ast.ArrowFunctionLiteral:
		fn := newScope(FunctionScope, v.scope)
		declareParams(fn, n.ParameterList)
		if body, ok := n.Body.(*ast.BlockStatement); ok {
			b.bodies[body] = true
		}
		b.scopes[n] = fn
		return &scopeVisitor{b: b, scope: fn}

	case *ast.BlockStatement:
		if b.bodies[n] {
			b.scopes[n] = v.scope
			return v
		}
		return v.push(n, BlockScope)

	case *ast.ForStatement, *ast.ForInStatement, *ast.ForOfStatement, *ast.SwitchStatement:
		return v.push(n, BlockScope)

	case *ast.CatchStatement:
		child := v.push(n, BlockScope)
		declareTarget(child.scope, n.Parameter)
		return child

	case *ast.VariableStatement:
		declareBindings(v.scope.varScope(), n.List)
	case *ast.ForLoopInitializerVarDeclList:
		declareBindings(v.scope.varScope(), n.List)
	case *ast.ForIntoVar:
		if n.Binding != nil {
			declareTarget(v.scope.varScope(), n.Binding.Target)
		}
	case *ast.LexicalDeclaration:
		declareBindings(v.scope, n.List)
	case *ast.ForDeclaration:
		declareTarget(v.scope, n.Target)
	}

	return v
}

func (v *scopeVisitor) push(node ast.Node, kind ScopeKind) *scopeVisitor {
	child := newScope(kind, v.scope)
	v.b.scopes[node] = child
	return &scopeVisitor{b: v.b, scope: child}
}

func declareParams(scope *Scope, params *ast.ParameterList) {
	if params == nil {
		return
	}
	declareBindings(scope, params.List)
	declareTarget(scope, params.Rest)
}

func declareBindings(scope *Scope, list []*ast.Binding) {
	for _, binding := range list {
		if binding != nil {
			declareTarget(scope, binding.Target)
		}
	}
}

func declareTarget(scope *Scope, target ast.Expression) {
	for _, id := range script.TargetNames(target) {
		scope.Declare(string(id.Name))
	}
}

// scopedVisitor tracks the innermost scope while walking a tree whose scopes
// were already built.
type scopedVisitor struct {
	scopes map[ast.Node]*Scope
	scope  *Scope
	fn     func(ast.Node, *Scope) bool
}

func (v *scopedVisitor) Visit(node ast.Node) script.Visitor {
	if node == nil {
		return nil
	}
	scope := v.scope
	if s, ok := v.scopes[node]; ok {
		scope = s
	}
	if !v.fn(node, scope) {
		return nil
	}
	if scope != v.scope {
		return &scopedVisitor{scopes: v.scopes, scope: scope, fn: v.fn}
	}
	return v
}
