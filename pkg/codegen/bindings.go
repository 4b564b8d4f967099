package codegen

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/recera/rill/pkg/analyze"
)

// Bindings assigns each reactive binding a compile-time index. At runtime a
// change set is an array of 32-bit words where bit i&31 of word i>>5 marks
// binding i as changed.
type Bindings struct {
	names []string
	index map[string]int
}

// NewBindings indexes every name that can change plus every name a reactive
// declaration depends on
func NewBindings(r *analyze.Result) *Bindings {
	set := analyze.NewNameSet(r.WillChange.Names()...)
	for _, d := range r.Reactive {
		for _, name := range d.Dependencies {
			set.Add(name)
		}
	}

	b := &Bindings{index: make(map[string]int)}
	for _, name := range set.Names() {
		b.index[name] = len(b.names)
		b.names = append(b.names, name)
	}
	return b
}

// Names returns the bound names by index
func (b *Bindings) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Len returns the number of bindings
func (b *Bindings) Len() int {
	return len(b.names)
}

// Index returns the index of name
func (b *Bindings) Index(name string) (int, bool) {
	i, ok := b.index[name]
	return i, ok
}

// Indices returns the indices of the bound names among names, in order
func (b *Bindings) Indices(names []string) []int {
	var out []int
	for _, name := range names {
		if i, ok := b.index[name]; ok {
			out = append(out, i)
		}
	}
	return out
}

// Words returns the length of a change-set array
func (b *Bindings) Words() int {
	if len(b.names) == 0 {
		return 1
	}
	return (len(b.names) + 31) / 32
}

// Guard renders a membership test of names against the change set held
// in variable v, e.g. `d[0] & 5 /* a, b */`. It returns "" when none of
// the names is bound.
func (b *Bindings) Guard(v string, names []string) string {
	masks := make(map[int]uint32)
	var bound []string
	for _, name := range names {
		i, ok := b.index[name]
		if !ok {
			continue
		}
		masks[i>>5] |= 1 << uint(i&31)
		bound = append(bound, name)
	}
	if len(bound) == 0 {
		return ""
	}

	words := make([]int, 0, len(masks))
	for w := range masks {
		words = append(words, w)
	}
	sort.Ints(words)

	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = fmt.Sprintf("%s[%d] & %d", v, w, masks[w])
	}
	return fmt.Sprintf("%s /* %s */", strings.Join(parts, " || "), strings.Join(bound, ", "))
}

// zeroWords renders an empty change-set literal
func (b *Bindings) zeroWords() string {
	zeros := make([]string, b.Words())
	for i := range zeros {
		zeros[i] = "0"
	}
	return "[" + strings.Join(zeros, ", ") + "]"
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
