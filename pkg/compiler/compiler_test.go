package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/recera/rill/internal/testharness/dom"
	"github.com/recera/rill/pkg/analyze"
	"github.com/recera/rill/pkg/codegen"
	"github.com/recera/rill/pkg/template"
)

// mount compiles source as CommonJS and mounts it in a fresh harness
func mount(t *testing.T, source string) (*dom.Component, *Output) {
	t.Helper()
	out, err := Compile("test.rill", source, Options{Format: codegen.CJS})
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	config := dom.DefaultConfig()
	config.OutputWriter = &strings.Builder{}
	h, err := dom.New(config)
	if err != nil {
		t.Fatalf("dom.New() failed: %v", err)
	}
	c, err := h.Load("test.rill.js", out.Code)
	if err != nil {
		t.Fatalf("Load() failed: %v\n%s", err, out.Code)
	}
	if err := c.Mount(); err != nil {
		t.Fatalf("Mount() failed: %v\n%s", err, out.Code)
	}
	return c, out
}

func click(t *testing.T, c *dom.Component, tag string, index int) {
	t.Helper()
	if err := c.Click(tag, index); err != nil {
		t.Fatalf("Click(%s, %d) failed: %v", tag, index, err)
	}
}

func expectHTML(t *testing.T, c *dom.Component, expected string) {
	t.Helper()
	if got := c.HTML(); got != expected {
		t.Errorf("Expected HTML %q, got %q", expected, got)
	}
}

func TestCompile_RoundTrip(t *testing.T) {
	c, _ := mount(t, `<script>let x = 1;</script><p>{x}</p>`)
	expectHTML(t, c, "<p>1</p>")

	if err := c.Destroy(); err != nil {
		t.Fatalf("Destroy() failed: %v", err)
	}
	expectHTML(t, c, "")
}

func element(t *testing.T, c *dom.Component, tag string, index int) *dom.Element {
	t.Helper()
	el, err := c.Element(tag, index)
	if err != nil {
		t.Fatalf("Element(%s, %d) failed: %v", tag, index, err)
	}
	return el
}

func listeners(t *testing.T, el *dom.Element, eventType string) int {
	t.Helper()
	n, err := el.Listeners(eventType)
	if err != nil {
		t.Fatalf("Listeners(%s) failed: %v", eventType, err)
	}
	return n
}

func TestCompile_Destroy(t *testing.T) {
	c, _ := mount(t, `<script>
	let n = 0;
	function inc() { n += 1; }
</script>
<div class="box"><button on:click={inc}>{n}</button><span on:click={() => n = 0}>reset</span></div>
done {n}`)

	div := element(t, c, "div", 0)
	button := element(t, c, "button", 0)
	span := element(t, c, "span", 0)
	if got := listeners(t, button, "click"); got != 1 {
		t.Errorf("Expected 1 listener on button, got %d", got)
	}
	if got := listeners(t, span, "click"); got != 1 {
		t.Errorf("Expected 1 listener on span, got %d", got)
	}

	if err := c.Destroy(); err != nil {
		t.Fatalf("Destroy() failed: %v", err)
	}
	expectHTML(t, c, "")

	if got := listeners(t, button, "click"); got != 0 {
		t.Errorf("Expected the named handler to be removed, got %d listeners", got)
	}
	if got := listeners(t, span, "click"); got != 0 {
		t.Errorf("Expected the generated handler to be removed, got %d listeners", got)
	}
	for name, el := range map[string]*dom.Element{"div": div, "button": button, "span": span} {
		if el.Attached() {
			t.Errorf("Expected <%s> to be detached", name)
		}
	}
}

func TestCompile_ParenthesizedReactive(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		initial string
		clicked string
	}{
		{
			name: "grouped right-hand side",
			source: `<script>
	let a = 1;
	let b = 2;
	$: d = a * (a + b);
	function set() { b = 3; }
</script><p>{d}</p><button on:click={set}>set</button>`,
			initial: "<p>3</p><button>set</button>",
			clicked: "<p>4</p><button>set</button>",
		},
		{
			name: "destructuring assignment",
			source: `<script>
	let obj = { a: 1, b: 2 };
	$: ({ a, b } = obj);
	function set() { obj = { a: 3, b: 4 }; }
</script><p>{a}-{b}</p><button on:click={set}>set</button>`,
			initial: "<p>1-2</p><button>set</button>",
			clicked: "<p>3-4</p><button>set</button>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := mount(t, tt.source)
			expectHTML(t, c, tt.initial)
			click(t, c, "button", 0)
			expectHTML(t, c, tt.clicked)
		})
	}
}

func TestCompile_WriteBeforeLaterDeclaration(t *testing.T) {
	c, _ := mount(t, `<script>
	let a = 1;
	a = 2;
	let b = 3;
	$: c = a + b;
</script><p>{c}</p>`)

	expectHTML(t, c, "<p>5</p>")
	if updates := c.Updates(); len(updates) != 0 {
		t.Errorf("Expected no updates before mount, got %v", updates)
	}
}

func TestCompile_ForOfTarget(t *testing.T) {
	c, _ := mount(t, `<script>
	let last = "none";
	function run() {
		for (last of ["x", "y"]) {}
	}
</script><p>{last}</p><button on:click={run}>run</button>`)

	expectHTML(t, c, "<p>none</p><button>run</button>")
	click(t, c, "button", 0)
	expectHTML(t, c, "<p>y</p><button>run</button>")

	if diff := cmp.Diff([][]string{{"last"}, {"last"}}, c.Updates()); diff != "" {
		t.Errorf("Updates() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_ReactiveCallsFunction(t *testing.T) {
	c, _ := mount(t, `<script>
	let a = 1;
	function compute() { return a * 2; }
	$: y = compute();
	function set() { a = 5; }
</script><p>{y}</p><button on:click={set}>set</button>`)

	expectHTML(t, c, "<p>2</p><button>set</button>")
	click(t, c, "button", 0)
	expectHTML(t, c, "<p>10</p><button>set</button>")
}

func TestCompile_Counter(t *testing.T) {
	source := `<script>
	let n = 0;
	function inc() {
		n += 1;
	}
</script>

<button on:click={inc}>Clicked {n} times</button>`

	c, out := mount(t, source)
	if !out.Analysis.WillChange.Has("n") {
		t.Errorf("Expected n in WillChange, got %v", out.Analysis.WillChange.Names())
	}
	if !strings.Contains(out.Code, "/* n */) t") {
		t.Errorf("Expected an update guarded on n, got:\n%s", out.Code)
	}

	expectHTML(t, c, "<button>Clicked 0 times</button>")
	click(t, c, "button", 0)
	click(t, c, "button", 0)
	expectHTML(t, c, "<button>Clicked 2 times</button>")

	if diff := cmp.Diff([][]string{{"n"}, {"n"}}, c.Updates()); diff != "" {
		t.Errorf("Updates() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_InlineHandler(t *testing.T) {
	c, _ := mount(t, `<script>let count = 0;</script>
<button on:click={() => count += 1}>Count: {count}</button>`)

	expectHTML(t, c, "<button>Count: 0</button>")
	click(t, c, "button", 0)
	expectHTML(t, c, "<button>Count: 1</button>")

	listeners, err := c.Listeners("button", 0, "click")
	if err != nil {
		t.Fatalf("Listeners() failed: %v", err)
	}
	if listeners != 1 {
		t.Errorf("Expected 1 listener, got %d", listeners)
	}
}

func TestCompile_ReactiveOrder(t *testing.T) {
	source := `<script>
	let a = 1;
	$: c = b + 1;
	$: b = a * 2;
	function set() { a = 5; }
</script>
<p>{c}</p>
<button on:click={set}>set</button>`

	c, out := mount(t, source)

	var order []string
	for _, d := range out.Analysis.Reactive {
		order = append(order, d.Assignees...)
	}
	if diff := cmp.Diff([]string{"b", "c"}, order); diff != "" {
		t.Errorf("reactive order mismatch (-want +got):\n%s", diff)
	}

	expectHTML(t, c, "<p>3</p><button>set</button>")
	click(t, c, "button", 0)
	expectHTML(t, c, "<p>11</p><button>set</button>")

	// The whole chain is reported in a single update
	if diff := cmp.Diff([][]string{{"c", "b", "a"}}, c.Updates()); diff != "" {
		t.Errorf("Updates() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompile_Reentrancy(t *testing.T) {
	source := `<script>
	let a = 1;
	$: b = a + 1;
	$: c = b + 1;
	$: d = c + b;
	function bump() { a += 1; }
</script>
<p>{d}</p>
<button on:click={bump}>+</button>`

	c, _ := mount(t, source)
	expectHTML(t, c, "<p>5</p><button>+</button>")

	click(t, c, "button", 0)
	expectHTML(t, c, "<p>7</p><button>+</button>")
	if got := len(c.Updates()); got != 1 {
		t.Errorf("Expected exactly 1 update per trigger, got %d: %v", got, c.Updates())
	}
}

func TestCompile_NoUpdateWithoutChanges(t *testing.T) {
	source := `<script>
	let shown = "a";
	let hidden = 0;
	function poke() { hidden += 1; }
</script>
<p>{shown}</p>
<button on:click={poke}>poke</button>`

	c, _ := mount(t, source)
	click(t, c, "button", 0)
	if len(c.Updates()) != 0 {
		t.Errorf("Expected no updates, got %v", c.Updates())
	}

	if err := c.Update(); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if err := c.Update("unknown"); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	expectHTML(t, c, "<p>a</p><button>poke</button>")
}

func TestCompile_AttributeUpdate(t *testing.T) {
	source := `<script>
	let cls = "off";
	function toggle() { cls = cls === "off" ? "on" : "off"; }
</script>
<div class={cls} id="box"></div>
<button on:click={toggle}>toggle</button>`

	c, _ := mount(t, source)
	expectHTML(t, c, `<div class="off" id="box"></div><button>toggle</button>`)
	click(t, c, "button", 0)
	expectHTML(t, c, `<div class="on" id="box"></div><button>toggle</button>`)
}

func TestCompile_CallSpecialCase(t *testing.T) {
	source := `<script>
	let n = 1;
	function double() { return n * 2; }
	function inc() { n += 1; }
</script>
<p>{double()}</p>
<button on:click={inc}>+</button>`

	c, out := mount(t, source)
	if !out.Analysis.WillUseInTemplate.Has("n") {
		t.Errorf("Expected n to be used through double(), got %v", out.Analysis.WillUseInTemplate.Names())
	}

	expectHTML(t, c, "<p>2</p><button>+</button>")
	click(t, c, "button", 0)
	expectHTML(t, c, "<p>4</p><button>+</button>")
}

func TestCompile_MemberMutation(t *testing.T) {
	source := `<script>
	let todos = [];
	function add() {
		todos.push("x");
		todos = todos;
	}
</script>
<ul><li>{todos.length} items</li></ul>
<button on:click={add}>add</button>`

	c, _ := mount(t, source)
	expectHTML(t, c, "<ul><li>0 items</li></ul><button>add</button>")
	click(t, c, "button", 0)
	click(t, c, "button", 0)
	expectHTML(t, c, "<ul><li>2 items</li></ul><button>add</button>")
}

func TestCompile_Globals(t *testing.T) {
	c, out := mount(t, `<p>{Math.max(1, 2)}</p>`)
	expectHTML(t, c, "<p>2</p>")
	if !out.Analysis.Globals.Has("Math") {
		t.Errorf("Expected Math in Globals, got %v", out.Analysis.Globals.Names())
	}
}

func TestCompile_StaticElimination(t *testing.T) {
	c, out := mount(t, `<script>const title = "Hello";</script><h1>{title}</h1>`)
	expectHTML(t, c, "<h1>Hello</h1>")
	if strings.Contains(out.Code, ".data =") {
		t.Errorf("Expected no update statement for a constant, got:\n%s", out.Code)
	}
}

func TestCompile_Instances(t *testing.T) {
	source := `<script>let n = 0; function inc() { n += 1; }</script><button on:click={inc}>{n}</button>`
	out, err := Compile("test.rill", source, Options{Format: codegen.CJS})
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}

	config := dom.DefaultConfig()
	config.OutputWriter = &strings.Builder{}
	h, err := dom.New(config)
	if err != nil {
		t.Fatalf("dom.New() failed: %v", err)
	}

	var instances []*dom.Component
	for i := 0; i < 2; i++ {
		c, err := h.Load("test.rill.js", out.Code)
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}
		if err := c.Mount(); err != nil {
			t.Fatalf("Mount() failed: %v", err)
		}
		instances = append(instances, c)
	}

	click(t, instances[0], "button", 0)
	expectHTML(t, instances[0], "<button>1</button>")
	expectHTML(t, instances[1], "<button>0</button>")
}

func TestCompile_Errors(t *testing.T) {
	t.Run("mismatched closing tag", func(t *testing.T) {
		_, err := Compile("bad.rill", "<div><span></div>", Options{})
		var perr *template.ParseError
		if !errors.As(err, &perr) {
			t.Fatalf("Expected a ParseError, got %v", err)
		}
		if perr.Pos.Line != 1 || perr.Pos.Col != 12 {
			t.Errorf("Expected error at 1:12, got %d:%d", perr.Pos.Line, perr.Pos.Col)
		}
	})

	t.Run("reactive cycle", func(t *testing.T) {
		_, err := Compile("cycle.rill", `<script>$: a = b + 1; $: b = a + 1;</script><p>{a}</p>`, Options{})
		var cerr *analyze.CycleError
		if !errors.As(err, &cerr) {
			t.Fatalf("Expected a CycleError, got %v", err)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := Compile("x.rill", "<p>x</p>", Options{Format: "amd"})
		if err == nil || !strings.Contains(err.Error(), "failed to generate code") {
			t.Errorf("Expected a generation error, got %v", err)
		}
	})
}

func TestCompileFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello-world.rill")
	if err := os.WriteFile(path, []byte("<p>hi</p>"), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := CompileFile(path, Options{})
	if err != nil {
		t.Fatalf("CompileFile() failed: %v", err)
	}
	if !strings.Contains(out.Code, "export default function HelloWorld() {") {
		t.Errorf("Expected a HelloWorld export, got:\n%s", out.Code)
	}

	if _, err := CompileFile(filepath.Join(dir, "missing.rill"), Options{}); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestOutputPath(t *testing.T) {
	tests := []struct {
		path     string
		expected string
		template bool
	}{
		{"counter.rill", "counter.rill.js", true},
		{"src/app/todo-list.rill", "src/app/todo-list.rill.js", true},
		{"counter.rill.js", "counter.rill.js.rill.js", false},
	}

	for _, tt := range tests {
		if got := OutputPath(tt.path); tt.template && got != tt.expected {
			t.Errorf("OutputPath(%q): expected %q, got %q", tt.path, tt.expected, got)
		}
		if got := IsTemplate(tt.path); got != tt.template {
			t.Errorf("IsTemplate(%q): expected %v, got %v", tt.path, tt.template, got)
		}
	}
}
