package template

import "github.com/recera/rill/pkg/script"

// AST node types for rill templates

// Document is the root node of a parsed template
type Document struct {
	Filename  string
	Fragments []Fragment
	Script    *Script
}

// Pos is a location in the template source
type Pos struct {
	Offset int
	Line   int
	Col    int
}

// Fragment is the interface for all markup nodes
type Fragment interface {
	Position() Pos
	fragment()
}

// Element represents an HTML element
type Element struct {
	Tag        string
	Attributes []*Attribute
	Children   []Fragment
	Pos        Pos
}

// Attribute is either a literal (name="v") or an expression (name={expr})
type Attribute struct {
	Name    string
	Literal string
	Expr    *script.Expr
	Pos     Pos
}

// IsExpression reports whether the attribute value is a script expression
func (a *Attribute) IsExpression() bool {
	return a.Expr != nil
}

// Text represents plain text content. Whitespace-only runs are never stored.
type Text struct {
	Value string
	Pos   Pos
}

// Expression represents an interpolated {expr}
type Expression struct {
	Expr *script.Expr
	Pos  Pos
}

// Script is the single <script> block of a template
type Script struct {
	Code *script.Script
	// Offset of the first script character in the template
	Offset int
	Pos    Pos
}

func (e *Element) Position() Pos    { return e.Pos }
func (t *Text) Position() Pos       { return t.Pos }
func (x *Expression) Position() Pos { return x.Pos }

func (*Element) fragment()    {}
func (*Text) fragment()       {}
func (*Expression) fragment() {}

// Walk calls fn for each fragment in depth-first order. Children of an
// element are skipped when fn returns false.
func Walk(fragments []Fragment, fn func(Fragment) bool) {
	for _, f := range fragments {
		if !fn(f) {
			continue
		}
		if el, ok := f.(*Element); ok {
			Walk(el.Children, fn)
		}
	}
}
