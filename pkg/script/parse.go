// Package script wraps the goja ECMAScript parser for code embedded in
// templates: parsing module scripts and single expressions, walking the
// resulting AST, and rewriting source text by node spans.
package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/file"
	"github.com/dop251/goja/parser"
)

// SyntaxError reports malformed script. Offset is relative to the text that
// was handed to the parse function.
type SyntaxError struct {
	Offset  int
	Message string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Message)
}

// Source is parsed text together with the base goja numbered it from.
type Source struct {
	Text string
	base int
}

// Offset converts a goja position into a byte offset into Text.
func (s Source) Offset(idx file.Idx) int {
	off := int(idx) - s.base
	if off < 0 {
		return 0
	}
	if off > len(s.Text) {
		return len(s.Text)
	}
	return off
}

// Span returns the byte range of n in Text.
func (s Source) Span(n ast.Node) (int, int) {
	return s.Offset(n.Idx0()), s.Offset(n.Idx1())
}

// Slice returns the text of n with enclosing parentheses balanced.
func (s Source) Slice(n ast.Node) string {
	start, end := s.Span(n)
	start, end = Balance(s.Text, start, end)
	return s.Text[start:end]
}

// Script is a parsed module-level script block.
type Script struct {
	Source
	Program *ast.Program
}

// ParseScript parses a complete script.
func ParseScript(filename, text string) (*Script, error) {
	program, err := parser.ParseFile(nil, filename, text, 0, parser.WithDisableSourceMaps)
	if err != nil {
		return nil, convertError(text, 0, err)
	}
	return &Script{Source: Source{Text: text, base: 1}, Program: program}, nil
}

// Expr is a single parsed expression and the exact text it came from.
type Expr struct {
	Source
	Node ast.Expression
}

const exprOpen = "("

// ParseExpression parses text as exactly one expression.
func ParseExpression(text string) (*Expr, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &SyntaxError{Offset: 0, Message: "expected expression"}
	}

	// The closing parenthesis goes on its own line so a trailing line
	// comment cannot swallow it.
	wrapped := exprOpen + text + "\n)"
	program, err := parser.ParseFile(nil, "", wrapped, 0, parser.WithDisableSourceMaps)
	if err != nil {
		return nil, convertError(wrapped, len(exprOpen), err)
	}
	if len(program.Body) != 1 {
		return nil, &SyntaxError{Offset: 0, Message: "expected a single expression"}
	}
	stmt, ok := program.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return nil, &SyntaxError{Offset: 0, Message: "expected a single expression"}
	}

	return &Expr{
		Source: Source{Text: text, base: 1 + len(exprOpen)},
		Node:   stmt.Expression,
	}, nil
}

// ParseExpressionAt parses the expression starting at offset in src and
// running to its closing '}'. It returns the expression and the offset of
// that brace. Error offsets are relative to src.
func ParseExpressionAt(src string, offset int) (*Expr, int, error) {
	end, err := ScanExpression(src, offset)
	if err != nil {
		return nil, 0, err
	}
	expr, err := ParseExpression(src[offset:end])
	if err != nil {
		var syntaxErr *SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, 0, &SyntaxError{Offset: offset + syntaxErr.Offset, Message: syntaxErr.Message}
		}
		return nil, 0, err
	}
	return expr, end, nil
}

// convertError maps the first goja parse error to a SyntaxError. shift is
// subtracted from the computed offset to undo any wrapping of the text.
func convertError(text string, shift int, err error) error {
	var list parser.ErrorList
	if !errors.As(err, &list) || len(list) == 0 {
		return &SyntaxError{Offset: 0, Message: err.Error()}
	}

	first := list[0]
	off := lineColOffset(text, first.Position.Line, first.Position.Column) - shift
	if off < 0 {
		off = 0
	}
	if limit := len(text) - shift; off > limit && limit >= 0 {
		off = limit
	}
	return &SyntaxError{Offset: off, Message: first.Message}
}

// lineColOffset converts a 1-based line and byte column into an offset.
func lineColOffset(text string, line, col int) int {
	off := 0
	for l := 1; l < line; l++ {
		i := strings.IndexByte(text[off:], '\n')
		if i < 0 {
			return len(text)
		}
		off += i + 1
	}
	off += col - 1
	if off > len(text) {
		return len(text)
	}
	return off
}
