package codegen

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"

	"github.com/recera/rill/pkg/analyze"
	"github.com/recera/rill/pkg/script"
	"github.com/recera/rill/pkg/template"
)

const (
	// targetVar holds the host node between create() and destroy()
	targetVar = "$$target"
	// hostParam is the parameter create() receives the host node in
	hostParam = "$$host"
	// dirtyVar holds the change-set words inside update and $$reactive
	dirtyVar = "$$d"
)

// Fragments is the generated code for a template's markup and reactive
// declarations, as statement lists.
type Fragments struct {
	Variables []string
	Create    []string
	Update    []string
	Destroy   []string
	Reactive  []string
}

type fragmentBuilder struct {
	result      *analyze.Result
	bindings    *Bindings
	names       *Counter
	inst        *instrumenter
	eventPrefix string
	out         *Fragments
}

// BuildFragments walks the markup depth-first and emits the create, update
// and destroy statements for every fragment
func BuildFragments(doc *template.Document, result *analyze.Result, bindings *Bindings, names *Counter, eventPrefix string) *Fragments {
	b := &fragmentBuilder{
		result:      result,
		bindings:    bindings,
		names:       names,
		inst:        &instrumenter{result: result, bindings: bindings},
		eventPrefix: eventPrefix,
		out:         &Fragments{},
	}
	for _, f := range doc.Fragments {
		b.fragment(f, targetVar)
	}
	return b.out
}

func (b *fragmentBuilder) fragment(f template.Fragment, parent string) {
	switch f := f.(type) {
	case *template.Element:
		b.element(f, parent)
	case *template.Text:
		b.text(f, parent)
	case *template.Expression:
		b.expression(f, parent)
	}
}

func (b *fragmentBuilder) element(el *template.Element, parent string) {
	v := b.variable(elementPrefix(el.Tag))
	b.create("%s = document.createElement(%s);", v, jsString(el.Tag))

	for _, attr := range el.Attributes {
		b.attribute(v, attr)
	}
	for _, child := range el.Children {
		b.fragment(child, v)
	}

	b.create("%s.appendChild(%s);", parent, v)
	b.destroy("%s.removeChild(%s);", parent, v)
}

func (b *fragmentBuilder) attribute(v string, attr *template.Attribute) {
	if !attr.IsExpression() {
		b.create("%s.setAttribute(%s, %s);", v, jsString(attr.Name), jsString(attr.Literal))
		return
	}

	code := b.expr(attr.Expr)
	if event, ok := strings.CutPrefix(attr.Name, b.eventPrefix); ok && b.eventPrefix != "" {
		handler := code
		if _, isIdent := attr.Expr.Node.(*ast.Identifier); !isIdent {
			handler = b.variable("h")
			b.create("%s = %s;", handler, code)
		}
		b.create("%s.addEventListener(%s, %s);", v, jsString(event), handler)
		b.destroy("%s.removeEventListener(%s, %s);", v, jsString(event), handler)
		return
	}

	b.create("%s.setAttribute(%s, %s);", v, jsString(attr.Name), code)
	if guard := b.guard(attr.Expr); guard != "" {
		b.update("if (%s) %s.setAttribute(%s, %s);", guard, v, jsString(attr.Name), code)
	}
}

func (b *fragmentBuilder) text(t *template.Text, parent string) {
	v := b.variable("t")
	b.create("%s = document.createTextNode(%s);", v, jsString(t.Value))
	b.create("%s.appendChild(%s);", parent, v)
	if parent == targetVar {
		b.destroy("%s.removeChild(%s);", parent, v)
	}
}

func (b *fragmentBuilder) expression(x *template.Expression, parent string) {
	v := b.variable("t")
	code := b.expr(x.Expr)
	b.create("%s = document.createTextNode(%s);", v, code)
	b.create("%s.appendChild(%s);", parent, v)
	if guard := b.guard(x.Expr); guard != "" {
		b.update("if (%s) %s.data = %s;", guard, v, code)
	}
	if parent == targetVar {
		b.destroy("%s.removeChild(%s);", parent, v)
	}
}

// guard renders the update condition for expr, or "" when nothing it
// references can change
func (b *fragmentBuilder) guard(expr *script.Expr) string {
	refs := analyze.NewNameSet()
	analyze.ReferencedNames(expr.Node, b.result.Functions, refs)
	return b.bindings.Guard(dirtyVar, refs.Intersect(b.result.WillChange))
}

// expr renders an embedded expression with instrumentation applied
func (b *fragmentBuilder) expr(expr *script.Expr) string {
	buf := script.NewBuffer(expr.Text)
	b.inst.rewrite(buf, expr.Source, expr.Node)
	return wrapExpression(expr.Node, strings.TrimSpace(buf.String()))
}

// wrapExpression parenthesizes code where splicing it into a larger
// statement could change its meaning
func wrapExpression(node ast.Expression, code string) string {
	if strings.Contains(code, "//") {
		return "(" + code + "\n)"
	}
	switch node.(type) {
	case *ast.SequenceExpression, *ast.ObjectLiteral:
		return "(" + code + ")"
	}
	return code
}

func (b *fragmentBuilder) variable(prefix string) string {
	v := b.names.Next(prefix)
	b.out.Variables = append(b.out.Variables, v)
	return v
}

func (b *fragmentBuilder) create(format string, args ...interface{}) {
	b.out.Create = append(b.out.Create, fmt.Sprintf(format, args...))
}

func (b *fragmentBuilder) update(format string, args ...interface{}) {
	b.out.Update = append(b.out.Update, fmt.Sprintf(format, args...))
}

func (b *fragmentBuilder) destroy(format string, args ...interface{}) {
	b.out.Destroy = append(b.out.Destroy, fmt.Sprintf(format, args...))
}

// jsString quotes s as a JavaScript string literal
func jsString(s string) string {
	out, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(out)
}
