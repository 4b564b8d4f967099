package script

import (
	"errors"
	"sort"
	"testing"

	"github.com/dop251/goja/ast"
	"github.com/google/go-cmp/cmp"
)

func TestParseExpression(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(ast.Expression) bool
		slice string
	}{
		{
			name:  "identifier",
			input: "count",
			check: func(e ast.Expression) bool { _, ok := e.(*ast.Identifier); return ok },
			slice: "count",
		},
		{
			name:  "binary",
			input: " a + b ",
			check: func(e ast.Expression) bool { _, ok := e.(*ast.BinaryExpression); return ok },
			slice: "a + b",
		},
		{
			name:  "object literal",
			input: "{a: 1}",
			check: func(e ast.Expression) bool { _, ok := e.(*ast.ObjectLiteral); return ok },
			slice: "{a: 1}",
		},
		{
			name:  "arrow function",
			input: "() => n += 1",
			check: func(e ast.Expression) bool { _, ok := e.(*ast.ArrowFunctionLiteral); return ok },
			slice: "() => n += 1",
		},
		{
			name:  "trailing comment",
			input: "x // note",
			check: func(e ast.Expression) bool { _, ok := e.(*ast.Identifier); return ok },
			slice: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseExpression(tt.input)
			if err != nil {
				t.Fatalf("ParseExpression() failed: %v", err)
			}
			if !tt.check(expr.Node) {
				t.Errorf("Unexpected node type %T", expr.Node)
			}
			if got := expr.Slice(expr.Node); got != tt.slice {
				t.Errorf("Expected slice %q, got %q", tt.slice, got)
			}
		})
	}
}

func TestParseExpression_Errors(t *testing.T) {
	for _, input := range []string{"", "   ", "a; b", "a +", "let x = 1"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseExpression(input)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Errorf("Expected *SyntaxError, got %T", err)
			}
		})
	}
}

func TestParseExpressionAt(t *testing.T) {
	src := `<p title={a + b}>`
	expr, end, err := ParseExpressionAt(src, 10)
	if err != nil {
		t.Fatalf("ParseExpressionAt() failed: %v", err)
	}
	if src[end] != '}' {
		t.Errorf("Expected cursor on '}', got %q", src[end])
	}
	if expr.Text != "a + b" {
		t.Errorf("Expected text %q, got %q", "a + b", expr.Text)
	}

	_, _, err = ParseExpressionAt("<p>{a +}</p>", 4)
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("Expected *SyntaxError, got %v", err)
	}
	if syntaxErr.Offset < 4 {
		t.Errorf("Expected offset relative to the template, got %d", syntaxErr.Offset)
	}
}

func TestParseScript_Spans(t *testing.T) {
	src := "let n = 0;\nn += 1;\nconst total = (n + 1) * 2;"
	s, err := ParseScript("test.rill", src)
	if err != nil {
		t.Fatalf("ParseScript() failed: %v", err)
	}
	if len(s.Program.Body) != 3 {
		t.Fatalf("Expected 3 statements, got %d", len(s.Program.Body))
	}

	stmt := s.Program.Body[1].(*ast.ExpressionStatement)
	start, end := s.Span(stmt.Expression)
	if start != 11 || end != 17 {
		t.Errorf("Expected span [11,17), got [%d,%d)", start, end)
	}

	decl := s.Program.Body[2].(*ast.LexicalDeclaration)
	if got := s.Slice(decl.List[0].Initializer); got != "(n + 1) * 2" {
		t.Errorf("Expected balanced slice %q, got %q", "(n + 1) * 2", got)
	}
}

func TestParseScript_Error(t *testing.T) {
	_, err := ParseScript("test.rill", "let a = 1;\nlet = ;")
	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) {
		t.Fatalf("Expected *SyntaxError, got %v", err)
	}
	if syntaxErr.Offset < 11 {
		t.Errorf("Expected error on second line, got offset %d", syntaxErr.Offset)
	}
}

func TestReferences(t *testing.T) {
	expr, err := ParseExpression("a.b + c[d] + fn({e: f, g})")
	if err != nil {
		t.Fatalf("ParseExpression() failed: %v", err)
	}

	var got []string
	for _, id := range References(expr.Node) {
		got = append(got, string(id.Name))
	}
	want := []string{"a", "c", "d", "fn", "f", "g"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("References() mismatch (-want +got):\n%s", diff)
	}
}

func TestTargetNames(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "identifier", input: "a = 1", want: []string{"a"}},
		{name: "member", input: "obj.items[0].done = true", want: []string{"obj"}},
		{name: "array pattern", input: "[a, , ...rest] = list", want: []string{"a", "rest"}},
		{name: "object pattern", input: "({b, c: d} = src)", want: []string{"b", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseExpression(tt.input)
			if err != nil {
				t.Fatalf("ParseExpression() failed: %v", err)
			}
			assign, ok := expr.Node.(*ast.AssignExpression)
			if !ok {
				t.Fatalf("Expected *ast.AssignExpression, got %T", expr.Node)
			}

			var got []string
			for _, id := range TargetNames(assign.Left) {
				got = append(got, string(id.Name))
			}
			sort.Strings(got)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("TargetNames() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRootIdentifier(t *testing.T) {
	expr, err := ParseExpression("a.b().c[d]")
	if err != nil {
		t.Fatalf("ParseExpression() failed: %v", err)
	}
	root := RootIdentifier(expr.Node)
	if root == nil || root.Name != "a" {
		t.Errorf("Expected root identifier a, got %v", root)
	}

	lit, _ := ParseExpression("'x'.length")
	if RootIdentifier(lit.Node) != nil {
		t.Error("Expected nil root for literal chain")
	}
}
