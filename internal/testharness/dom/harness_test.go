package dom

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const clicker = `module.exports = function Clicker() {
	let p, t;
	let n = 0;
	const bump = () => {
		n++;
		lifecycle.update(["n"]);
	};
	const lifecycle = {
		create(target) {
			p = document.createElement("p");
			p.setAttribute("class", "x");
			t = document.createTextNode(n);
			p.appendChild(t);
			p.addEventListener("click", bump);
			target.appendChild(p);
		},
		update(changed) {
			if (changed.indexOf("n") >= 0) t.data = n;
		},
		destroy() {
			p.removeEventListener("click", bump);
			p.parentNode.removeChild(p);
		},
	};
	return lifecycle;
};`

func newHarness(t *testing.T) (*Harness, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	config := DefaultConfig()
	config.OutputWriter = &out
	h, err := New(config)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return h, &out
}

func TestHarness_Lifecycle(t *testing.T) {
	h, _ := newHarness(t)
	c, err := h.Load("clicker.js", clicker)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if err := c.Mount(); err != nil {
		t.Fatalf("Mount() failed: %v", err)
	}
	if got := c.HTML(); got != `<p class="x">0</p>` {
		t.Errorf("Expected initial render, got %q", got)
	}

	if err := c.Click("p", 0); err != nil {
		t.Fatalf("Click() failed: %v", err)
	}
	if got := c.HTML(); got != `<p class="x">1</p>` {
		t.Errorf("Expected updated render, got %q", got)
	}
	if diff := cmp.Diff([][]string{{"n"}}, c.Updates()); diff != "" {
		t.Errorf("Updates() mismatch (-want +got):\n%s", diff)
	}

	count, err := c.Listeners("p", 0, "click")
	if err != nil {
		t.Fatalf("Listeners() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 click listener, got %d", count)
	}

	if err := c.Destroy(); err != nil {
		t.Fatalf("Destroy() failed: %v", err)
	}
	if got := c.HTML(); got != "" {
		t.Errorf("Expected empty host after destroy, got %q", got)
	}
}

func TestHarness_UpdateFromGo(t *testing.T) {
	h, _ := newHarness(t)
	c, err := h.Load("clicker.js", clicker)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if err := c.Mount(); err != nil {
		t.Fatalf("Mount() failed: %v", err)
	}

	if err := c.Update("other"); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if err := c.Update(); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	if diff := cmp.Diff([][]string{{"other"}, {}}, c.Updates()); diff != "" {
		t.Errorf("Updates() mismatch (-want +got):\n%s", diff)
	}

	c.ResetUpdates()
	if len(c.Updates()) != 0 {
		t.Errorf("Expected no updates after reset, got %v", c.Updates())
	}
}

func TestHarness_Dispatch_Errors(t *testing.T) {
	h, _ := newHarness(t)
	c, err := h.Load("clicker.js", clicker)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if err := c.Click("p", 0); err == nil {
		t.Error("Expected an error before mount")
	}
	if err := c.Mount(); err != nil {
		t.Fatalf("Mount() failed: %v", err)
	}
	if err := c.Click("button", 0); err == nil {
		t.Error("Expected an error for a missing element")
	}
}

func TestHarness_Load_Errors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{
			name: "syntax error",
			code: `module.exports = function (`,
			want: "failed to compile",
		},
		{
			name: "no factory",
			code: `module.exports = 42;`,
			want: "does not export a component factory",
		},
		{
			name: "factory throws",
			code: `module.exports = function () { throw new Error("boom"); };`,
			want: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newHarness(t)
			_, err := h.Load("bad.js", tt.code)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestHarness_Timeout(t *testing.T) {
	config := DefaultConfig()
	config.Timeout = 50 * time.Millisecond
	config.OutputWriter = &bytes.Buffer{}
	h, err := New(config)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	_, err = h.Eval(`for (;;) {}`)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}

	// The runtime stays usable after an interrupt
	v, err := h.Eval(`1 + 1`)
	if err != nil {
		t.Fatalf("Eval() failed: %v", err)
	}
	if v.ToInteger() != 2 {
		t.Errorf("Expected 2, got %v", v)
	}
}

func TestHarness_Console(t *testing.T) {
	h, out := newHarness(t)
	if _, err := h.Eval(`console.log("hello", 42)`); err != nil {
		t.Fatalf("Eval() failed: %v", err)
	}
	if got := out.String(); got != "hello 42\n" {
		t.Errorf("Expected console output, got %q", got)
	}
}

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		script   string
		expected string
	}{
		{
			name:     "text with HTML entities",
			script:   `document.createTextNode("<b>&</b>")`,
			expected: "&lt;b&gt;&amp;&lt;/b&gt;",
		},
		{
			name: "attributes keep insertion order",
			script: `(() => {
				const el = document.createElement("a");
				el.setAttribute("href", "/x?a=1&b=2");
				el.setAttribute("class", "link");
				el.setAttribute("href", "/y");
				return el;
			})()`,
			expected: `<a href="/y" class="link"></a>`,
		},
		{
			name: "void element",
			script: `(() => {
				const el = document.createElement("input");
				el.setAttribute("type", "text");
				return el;
			})()`,
			expected: `<input type="text">`,
		},
		{
			name: "nested",
			script: `(() => {
				const ul = document.createElement("ul");
				for (const item of ["a", "b"]) {
					const li = document.createElement("li");
					li.appendChild(document.createTextNode(item));
					ul.appendChild(li);
				}
				return ul;
			})()`,
			expected: `<ul><li>a</li><li>b</li></ul>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newHarness(t)
			v, err := h.Eval(tt.script)
			if err != nil {
				t.Fatalf("Eval() failed: %v", err)
			}
			got := Render(v.ToObject(h.vm))
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
