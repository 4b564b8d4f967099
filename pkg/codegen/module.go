// Package codegen turns an analysed template into a JavaScript module whose
// default export is a component factory returning {create, update, destroy}.
package codegen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/recera/rill/pkg/analyze"
	"github.com/recera/rill/pkg/script"
	"github.com/recera/rill/pkg/template"
)

// Format selects the module system of the generated code
type Format string

const (
	// ESM emits `export default function Name() {...}`
	ESM Format = "esm"
	// CJS emits `module.exports = function Name() {...};`
	CJS Format = "cjs"
)

// DefaultEventPrefix marks attributes that attach event listeners
const DefaultEventPrefix = "on:"

// Options configures code generation
type Options struct {
	// Name of the exported factory; derived from the filename when empty
	Name        string
	Format      Format
	EventPrefix string
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

func (o Options) withDefaults(filename string) Options {
	if o.Name == "" {
		o.Name = ComponentName(filename)
	}
	if o.Format == "" {
		o.Format = ESM
	}
	if o.EventPrefix == "" {
		o.EventPrefix = DefaultEventPrefix
	}
	return o
}

// Generate assembles the module for doc. result must come from analysing
// the same document.
func Generate(doc *template.Document, result *analyze.Result, opts Options) (string, error) {
	opts = opts.withDefaults(doc.Filename)
	if opts.Format != ESM && opts.Format != CJS {
		return "", fmt.Errorf("unknown module format %q", opts.Format)
	}
	if !identifierPattern.MatchString(opts.Name) {
		return "", fmt.Errorf("invalid component name %q", opts.Name)
	}

	bindings := NewBindings(result)
	names := NewCounter(func(name string) bool {
		return result.Root.Owns(name) || result.Globals.Has(name)
	})
	inst := &instrumenter{result: result, bindings: bindings}

	frags := BuildFragments(doc, result, bindings, names, opts.EventPrefix)
	frags.Reactive = reactiveBlocks(doc, result, bindings, inst)
	body := instrumentScript(doc, result, inst)

	return assemble(opts, frags, result, bindings, body), nil
}

// instrumentScript renders the script with reactive declarations removed
// and writes to observed bindings instrumented
func instrumentScript(doc *template.Document, result *analyze.Result, inst *instrumenter) string {
	if doc.Script == nil {
		return ""
	}
	code := doc.Script.Code
	buf := script.NewBuffer(code.Text)

	for _, d := range result.Reactive {
		start, end := code.Span(d.Statement)
		start, end = script.Balance(code.Text, start, end)
		buf.Remove(start, skipSemicolon(code.Text, end))
	}
	inst.rewrite(buf, code.Source, code.Program)

	return strings.Trim(buf.String(), "\r\n")
}

// reactiveBlocks renders one guarded block per reactive declaration, in
// execution order. The assignment itself always notifies its assignees.
func reactiveBlocks(doc *template.Document, result *analyze.Result, bindings *Bindings, inst *instrumenter) []string {
	if doc.Script == nil {
		return nil
	}
	code := doc.Script.Code

	blocks := make([]string, 0, len(result.Reactive))
	for _, d := range result.Reactive {
		buf := script.NewBuffer(code.Text)
		inst.rewrite(buf, code.Source, d.Assign.Right)

		start, end := code.Span(d.Assign)
		start, end = script.Balance(code.Text, start, end)
		buf.Wrap(start, end, invalidateFn+"(", ", "+joinInts(bindings.Indices(d.Assignees))+")")

		// A declaration without dependencies runs on the initial pass only
		deps := d.Dependencies
		if len(deps) == 0 {
			deps = d.Assignees
		}
		guard := bindings.Guard(dirtyVar, deps)
		blocks = append(blocks, fmt.Sprintf("if (%s) {\n\t%s;\n}", guard, buf.Render(start, end)))
	}
	return blocks
}

// skipSemicolon extends end over whitespace and one trailing ';'
func skipSemicolon(text string, end int) int {
	j := end
	for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
		j++
	}
	if j < len(text) && text[j] == ';' {
		return j + 1
	}
	return end
}

const dispatcher = `function $$mask(names) {
	const d = %[1]s;
	for (let k = 0; k < names.length; k++) {
		const i = $$bindings.indexOf(names[k]);
		if (i >= 0) d[i >> 5] |= 1 << (i & 31);
	}
	return d;
}

function $$names(d) {
	const names = [];
	for (let i = 0; i < $$bindings.length; i++) {
		if (d[i >> 5] & (1 << (i & 31))) names.push($$bindings[i]);
	}
	return names;
}

function $$invalidate(value, ...ids) {
	for (let k = 0; k < ids.length; k++) {
		const i = ids[k];
		$$pending[i >> 5] |= 1 << (i & 31);
	}
	$$flush();
	return value;
}

function $$flush() {
	if ($$flushing) return;
	$$flushing = true;
	$$reactive($$pending);
	const changed = $$pending;
	$$pending = %[1]s;
	$$flushing = false;
	if ($$mounted && changed.some(w => w !== 0)) $$lifecycle.update($$names(changed));
}`

// assemble writes the module text
func assemble(opts Options, frags *Fragments, result *analyze.Result, bindings *Bindings, body string) string {
	var code strings.Builder

	code.WriteString("// Code generated by rill. DO NOT EDIT.\n\n")
	switch opts.Format {
	case CJS:
		fmt.Fprintf(&code, "module.exports = function %s() {\n", opts.Name)
	default:
		fmt.Fprintf(&code, "export default function %s() {\n", opts.Name)
	}

	if len(frags.Variables) > 0 {
		fmt.Fprintf(&code, "\tlet %s;\n", strings.Join(frags.Variables, ", "))
	}
	if result.Implicit.Len() > 0 {
		fmt.Fprintf(&code, "\tlet %s;\n", strings.Join(result.Implicit.Names(), ", "))
	}
	code.WriteString("\n")

	quoted := make([]string, bindings.Len())
	for i, name := range bindings.Names() {
		quoted[i] = jsString(name)
	}
	fmt.Fprintf(&code, "\tconst $$bindings = [%s];\n", strings.Join(quoted, ", "))
	fmt.Fprintf(&code, "\tlet $$pending = %s;\n", bindings.zeroWords())
	// Writes made while the script body runs wait for the initial pass
	code.WriteString("\tlet $$flushing = true;\n")
	code.WriteString("\tlet $$mounted = false;\n")
	fmt.Fprintf(&code, "\tlet %s;\n", targetVar)
	code.WriteString("\tlet $$lifecycle;\n\n")
	writeIndented(&code, 1, fmt.Sprintf(dispatcher, bindings.zeroWords()))
	code.WriteString("\n")

	if body != "" {
		code.WriteString(body)
		code.WriteString("\n\n")
	}

	fmt.Fprintf(&code, "\tfunction $$reactive(%s) {\n", dirtyVar)
	for _, block := range frags.Reactive {
		writeIndented(&code, 2, block)
	}
	code.WriteString("\t}\n\n")

	// Initial pass: every binding counts as changed
	code.WriteString("\t$$flushing = false;\n")
	all := make([]int, bindings.Len())
	for i := range all {
		all[i] = i
	}
	if len(all) > 0 {
		fmt.Fprintf(&code, "\t%s(undefined, %s);\n\n", invalidateFn, joinInts(all))
	} else {
		code.WriteString("\t$$flush();\n\n")
	}

	code.WriteString("\t$$lifecycle = {\n")
	fmt.Fprintf(&code, "\t\tcreate(%s) {\n", hostParam)
	fmt.Fprintf(&code, "\t\t\t%s = %s;\n", targetVar, hostParam)
	writeStatements(&code, 3, frags.Create)
	code.WriteString("\t\t\t$$mounted = true;\n")
	code.WriteString("\t\t},\n")
	code.WriteString("\t\tupdate($$changed) {\n")
	if len(frags.Update) > 0 {
		fmt.Fprintf(&code, "\t\t\tconst %s = $$mask($$changed);\n", dirtyVar)
		writeStatements(&code, 3, frags.Update)
	}
	code.WriteString("\t\t},\n")
	code.WriteString("\t\tdestroy() {\n")
	writeStatements(&code, 3, frags.Destroy)
	code.WriteString("\t\t\t$$mounted = false;\n")
	fmt.Fprintf(&code, "\t\t\t%s = undefined;\n", targetVar)
	code.WriteString("\t\t}\n")
	code.WriteString("\t};\n")
	code.WriteString("\treturn $$lifecycle;\n")

	switch opts.Format {
	case CJS:
		code.WriteString("};\n")
	default:
		code.WriteString("}\n")
	}
	return code.String()
}

func writeStatements(code *strings.Builder, depth int, stmts []string) {
	for _, stmt := range stmts {
		writeIndented(code, depth, stmt)
	}
}

// writeIndented writes each line of text prefixed with depth tabs
func writeIndented(code *strings.Builder, depth int, text string) {
	indent := strings.Repeat("\t", depth)
	for _, line := range strings.Split(text, "\n") {
		if line == "" {
			code.WriteString("\n")
			continue
		}
		code.WriteString(indent)
		code.WriteString(line)
		code.WriteString("\n")
	}
}
