package codegen

import (
	"strconv"
	"strings"
	"unicode"
)

// Counter hands out generated variable names. One counter is threaded
// through the whole markup traversal, so every name it returns is unique
// within the module.
type Counter struct {
	next     int
	reserved func(string) bool
	issued   map[string]bool
}

// NewCounter creates a counter that skips any name reserved reports true for
func NewCounter(reserved func(string) bool) *Counter {
	return &Counter{reserved: reserved, issued: make(map[string]bool)}
}

// Next returns a fresh name starting with prefix
func (c *Counter) Next(prefix string) string {
	for {
		name := prefix + strconv.Itoa(c.next)
		c.next++
		if c.issued[name] || (c.reserved != nil && c.reserved(name)) {
			continue
		}
		c.issued[name] = true
		return name
	}
}

// ComponentName derives an exported function name from a template file
// name: "todo-list.rill" becomes "TodoList".
func ComponentName(filename string) string {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}

	var out strings.Builder
	upper := true
	for _, r := range base {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		out.WriteRune(r)
	}

	name := out.String()
	if name == "" || unicode.IsDigit(rune(name[0])) {
		name = "Component" + name
	}
	return name
}

// elementPrefix turns a tag name into a variable name prefix
func elementPrefix(tag string) string {
	return strings.ReplaceAll(tag, "-", "_")
}
