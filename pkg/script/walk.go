package script

import "github.com/dop251/goja/ast"

// A Visitor's Visit method is invoked for each node encountered by Walk.
// If the result visitor w is not nil, Walk visits each of the children of
// node with w, followed by a call of w.Visit(nil).
type Visitor interface {
	Visit(node ast.Node) (w Visitor)
}

// Walk traverses an AST in depth-first order. Identifiers are visited only
// where they name a binding or a reference: member names after '.',
// non-computed property and method keys, and statement labels are skipped.
func Walk(v Visitor, node ast.Node) {
	if v = v.Visit(node); v == nil {
		return
	}

	switch n := node.(type) {
	case *ast.Program:
		walkStatements(v, n.Body)

	// Statements
	case *ast.BlockStatement:
		walkStatements(v, n.List)
	case *ast.ExpressionStatement:
		walkExpr(v, n.Expression)
	case *ast.LabelledStatement:
		walkStmt(v, n.Statement)
	case *ast.VariableStatement:
		walkBindings(v, n.List)
	case *ast.LexicalDeclaration:
		walkBindings(v, n.List)
	case *ast.FunctionDeclaration:
		if n.Function != nil {
			Walk(v, n.Function)
		}
	case *ast.ClassDeclaration:
		if n.Class != nil {
			Walk(v, n.Class)
		}
	case *ast.IfStatement:
		walkExpr(v, n.Test)
		walkStmt(v, n.Consequent)
		walkStmt(v, n.Alternate)
	case *ast.ForStatement:
		if n.Initializer != nil {
			Walk(v, n.Initializer)
		}
		walkExpr(v, n.Test)
		walkExpr(v, n.Update)
		walkStmt(v, n.Body)
	case *ast.ForLoopInitializerExpression:
		walkExpr(v, n.Expression)
	case *ast.ForLoopInitializerVarDeclList:
		walkBindings(v, n.List)
	case *ast.ForLoopInitializerLexicalDecl:
		Walk(v, &n.LexicalDeclaration)
	case *ast.ForInStatement:
		walkInto(v, n.Into)
		walkExpr(v, n.Source)
		walkStmt(v, n.Body)
	case *ast.ForOfStatement:
		walkInto(v, n.Into)
		walkExpr(v, n.Source)
		walkStmt(v, n.Body)
	case *ast.ForIntoVar:
		if n.Binding != nil {
			Walk(v, n.Binding)
		}
	case *ast.ForDeclaration:
		walkExpr(v, n.Target)
	case *ast.ForIntoExpression:
		walkExpr(v, n.Expression)
	case *ast.WhileStatement:
		walkExpr(v, n.Test)
		walkStmt(v, n.Body)
	case *ast.DoWhileStatement:
		walkStmt(v, n.Body)
		walkExpr(v, n.Test)
	case *ast.ReturnStatement:
		walkExpr(v, n.Argument)
	case *ast.ThrowStatement:
		walkExpr(v, n.Argument)
	case *ast.SwitchStatement:
		walkExpr(v, n.Discriminant)
		for _, c := range n.Body {
			if c != nil {
				Walk(v, c)
			}
		}
	case *ast.CaseStatement:
		walkExpr(v, n.Test)
		walkStatements(v, n.Consequent)
	case *ast.TryStatement:
		if n.Body != nil {
			Walk(v, n.Body)
		}
		if n.Catch != nil {
			Walk(v, n.Catch)
		}
		if n.Finally != nil {
			Walk(v, n.Finally)
		}
	case *ast.CatchStatement:
		walkExpr(v, n.Parameter)
		if n.Body != nil {
			Walk(v, n.Body)
		}
	case *ast.WithStatement:
		walkExpr(v, n.Object)
		walkStmt(v, n.Body)

	// Bindings and functions
	case *ast.Binding:
		walkExpr(v, n.Target)
		walkExpr(v, n.Initializer)
	case *ast.ParameterList:
		walkBindings(v, n.List)
		walkExpr(v, n.Rest)
	case *ast.FunctionLiteral:
		if n.Name != nil {
			Walk(v, n.Name)
		}
		if n.ParameterList != nil {
			Walk(v, n.ParameterList)
		}
		if n.Body != nil {
			Walk(v, n.Body)
		}
	case *ast.ArrowFunctionLiteral:
		if n.ParameterList != nil {
			Walk(v, n.ParameterList)
		}
		if n.Body != nil {
			Walk(v, n.Body)
		}
	case *ast.ExpressionBody:
		walkExpr(v, n.Expression)
	case *ast.ClassLiteral:
		if n.Name != nil {
			Walk(v, n.Name)
		}
		walkExpr(v, n.SuperClass)
		for _, el := range n.Body {
			if el != nil {
				Walk(v, el)
			}
		}
	case *ast.FieldDefinition:
		if n.Computed {
			walkExpr(v, n.Key)
		}
		walkExpr(v, n.Initializer)
	case *ast.MethodDefinition:
		if n.Computed {
			walkExpr(v, n.Key)
		}
		if n.Body != nil {
			Walk(v, n.Body)
		}
	case *ast.ClassStaticBlock:
		if n.Block != nil {
			Walk(v, n.Block)
		}

	// Expressions
	case *ast.ArrayLiteral:
		walkExprs(v, n.Value)
	case *ast.ArrayPattern:
		walkExprs(v, n.Elements)
		walkExpr(v, n.Rest)
	case *ast.ObjectLiteral:
		for _, p := range n.Value {
			walkExpr(v, p)
		}
	case *ast.ObjectPattern:
		for _, p := range n.Properties {
			walkExpr(v, p)
		}
		walkExpr(v, n.Rest)
	case *ast.PropertyShort:
		Walk(v, &n.Name)
		walkExpr(v, n.Initializer)
	case *ast.PropertyKeyed:
		if n.Computed {
			walkExpr(v, n.Key)
		}
		walkExpr(v, n.Value)
	case *ast.SpreadElement:
		walkExpr(v, n.Expression)
	case *ast.AssignExpression:
		walkExpr(v, n.Left)
		walkExpr(v, n.Right)
	case *ast.BinaryExpression:
		walkExpr(v, n.Left)
		walkExpr(v, n.Right)
	case *ast.UnaryExpression:
		walkExpr(v, n.Operand)
	case *ast.ConditionalExpression:
		walkExpr(v, n.Test)
		walkExpr(v, n.Consequent)
		walkExpr(v, n.Alternate)
	case *ast.SequenceExpression:
		walkExprs(v, n.Sequence)
	case *ast.CallExpression:
		walkExpr(v, n.Callee)
		walkExprs(v, n.ArgumentList)
	case *ast.NewExpression:
		walkExpr(v, n.Callee)
		walkExprs(v, n.ArgumentList)
	case *ast.DotExpression:
		walkExpr(v, n.Left)
	case *ast.PrivateDotExpression:
		walkExpr(v, n.Left)
	case *ast.BracketExpression:
		walkExpr(v, n.Left)
		walkExpr(v, n.Member)
	case *ast.OptionalChain:
		walkExpr(v, n.Expression)
	case *ast.Optional:
		walkExpr(v, n.Expression)
	case *ast.TemplateLiteral:
		walkExpr(v, n.Tag)
		walkExprs(v, n.Expressions)
	case *ast.AwaitExpression:
		walkExpr(v, n.Argument)
	case *ast.YieldExpression:
		walkExpr(v, n.Argument)
	}

	v.Visit(nil)
}

func walkStatements(v Visitor, list []ast.Statement) {
	for _, s := range list {
		walkStmt(v, s)
	}
}

func walkStmt(v Visitor, s ast.Statement) {
	if s != nil {
		Walk(v, s)
	}
}

func walkExprs(v Visitor, list []ast.Expression) {
	for _, e := range list {
		walkExpr(v, e)
	}
}

func walkExpr(v Visitor, e ast.Expression) {
	if e != nil {
		Walk(v, e)
	}
}

func walkBindings(v Visitor, list []*ast.Binding) {
	for _, b := range list {
		if b != nil {
			Walk(v, b)
		}
	}
}

func walkInto(v Visitor, into ast.ForInto) {
	if into != nil {
		Walk(v, into)
	}
}

type inspector func(ast.Node) bool

func (f inspector) Visit(node ast.Node) Visitor {
	if f(node) {
		return f
	}
	return nil
}

// Inspect traverses an AST in depth-first order: It starts by calling
// f(node); node must not be nil. If f returns true, Inspect invokes f
// recursively for each of the non-nil children of node, followed by a
// call of f(nil).
func Inspect(node ast.Node, f func(ast.Node) bool) {
	Walk(inspector(f), node)
}
