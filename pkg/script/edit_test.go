package script

import "testing"

func TestBuffer(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		apply func(b *Buffer)
		want  string
	}{
		{
			name:  "no edits",
			text:  "let a = 1;",
			apply: func(b *Buffer) {},
			want:  "let a = 1;",
		},
		{
			name: "wrap",
			text: "n += 1;",
			apply: func(b *Buffer) {
				b.Wrap(0, 6, "$$invalidate(", ", 0)")
			},
			want: "$$invalidate(n += 1, 0);",
		},
		{
			name: "remove",
			text: "a = 1;\n$: b = a;\nc = 2;",
			apply: func(b *Buffer) {
				b.Remove(7, 16)
			},
			want: "a = 1;\n\nc = 2;",
		},
		{
			name: "insertions keep order",
			text: "x",
			apply: func(b *Buffer) {
				b.Insert(0, "a")
				b.Insert(0, "b")
			},
			want: "abx",
		},
		{
			name: "overlapping edit dropped",
			text: "abcdef",
			apply: func(b *Buffer) {
				b.Replace(1, 4, "X")
				b.Replace(2, 3, "Y")
			},
			want: "aXef",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuffer(tt.text)
			tt.apply(b)
			if got := b.String(); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestBuffer_Render(t *testing.T) {
	b := NewBuffer("a = 1; b = a + 1;")
	b.Wrap(7, 16, "f(", ")")
	b.Replace(0, 1, "z")

	if got := b.Render(7, 17); got != "f(b = a + 1);" {
		t.Errorf("Expected %q, got %q", "f(b = a + 1);", got)
	}
	if got := b.Original(); got != "a = 1; b = a + 1;" {
		t.Errorf("Original text changed: %q", got)
	}
}

func TestBalance(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		start, end int
		want       string
	}{
		{name: "balanced", text: "a + b", start: 0, end: 5, want: "a + b"},
		{name: "leading paren", text: "(n) += 1", start: 1, end: 8, want: "(n) += 1"},
		{name: "trailing paren", text: "x = (a + b);", start: 0, end: 9, want: "x = (a + b)"},
		{name: "both sides", text: "((a + b) * (c + d))", start: 2, end: 17, want: "(a + b) * (c + d)"},
		{name: "paren in string", text: `f(")")`, start: 0, end: 6, want: `f(")")`},
		{name: "spaces", text: "( a )", start: 2, end: 3, want: "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := Balance(tt.text, tt.start, tt.end)
			if got := tt.text[start:end]; got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
