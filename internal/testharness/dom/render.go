package dom

import (
	"html"
	"strconv"
	"strings"

	"github.com/dop251/goja"
)

const (
	elementNode = 1
	textNode    = 3
)

// voidElements are HTML elements that cannot have children
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// Render serializes a shim node to HTML
func Render(node *goja.Object) string {
	var b strings.Builder
	renderNode(&b, node)
	return b.String()
}

// RenderChildren serializes the children of a shim node
func RenderChildren(node *goja.Object) string {
	var b strings.Builder
	for _, child := range children(node) {
		renderNode(&b, child)
	}
	return b.String()
}

func renderNode(b *strings.Builder, node *goja.Object) {
	switch node.Get("nodeType").ToInteger() {
	case textNode:
		b.WriteString(html.EscapeString(node.Get("data").String()))
	case elementNode:
		renderElement(b, node)
	}
}

func renderElement(b *strings.Builder, node *goja.Object) {
	tag := node.Get("tagName").String()
	b.WriteString("<")
	b.WriteString(tag)

	attrs, _ := node.Get("attributes").(*goja.Object)
	for _, name := range stringList(node.Get("attributeNames")) {
		if attrs == nil {
			break
		}
		b.WriteString(" ")
		b.WriteString(name)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(attrs.Get(name).String()))
		b.WriteString(`"`)
	}
	b.WriteString(">")

	// Void elements don't have closing tags or children
	if voidElements[tag] {
		return
	}

	for _, child := range children(node) {
		renderNode(b, child)
	}
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">")
}

// FindAll returns the descendant elements of node with the given tag, in
// document order
func FindAll(node *goja.Object, tag string) []*goja.Object {
	var out []*goja.Object
	for _, child := range children(node) {
		if child.Get("nodeType").ToInteger() != elementNode {
			continue
		}
		if child.Get("tagName").String() == tag {
			out = append(out, child)
		}
		out = append(out, FindAll(child, tag)...)
	}
	return out
}

func children(node *goja.Object) []*goja.Object {
	list, ok := node.Get("childNodes").(*goja.Object)
	if !ok {
		return nil
	}
	n := int(list.Get("length").ToInteger())
	out := make([]*goja.Object, 0, n)
	for i := 0; i < n; i++ {
		if child, ok := list.Get(strconv.Itoa(i)).(*goja.Object); ok {
			out = append(out, child)
		}
	}
	return out
}

func stringList(v goja.Value) []string {
	list, ok := v.(*goja.Object)
	if !ok {
		return nil
	}
	n := int(list.Get("length").ToInteger())
	out := make([]string, n)
	for i := range out {
		out[i] = list.Get(strconv.Itoa(i)).String()
	}
	return out
}
