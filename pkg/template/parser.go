// Package template parses rill templates: markup interleaved with {expr}
// interpolations and at most one <script> block.
package template

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/recera/rill/pkg/script"
)

// Parser is a recursive descent parser for rill templates
type Parser struct {
	input    string
	pos      int
	line     int
	col      int
	filename string
	doc      *Document
}

// NewParser creates a new template parser
func NewParser(filename, input string) *Parser {
	return &Parser{
		input:    input,
		pos:      0,
		line:     1,
		col:      1,
		filename: filename,
	}
}

// Parse parses source into a Document
func Parse(filename, source string) (*Document, error) {
	return NewParser(filename, source).Parse()
}

// Parse parses the entire template
func (p *Parser) Parse() (*Document, error) {
	p.doc = &Document{Filename: p.filename}

	fragments, err := p.parseFragments()
	if err != nil {
		return nil, err
	}

	// parseFragments only stops early on a closing tag nobody opened
	if p.pos < len(p.input) {
		return nil, p.errorExpected("end of input", p.describe())
	}

	p.doc.Fragments = fragments
	return p.doc, nil
}

// parseFragments parses a sequence of fragments up to a closing tag or EOF
func (p *Parser) parseFragments() ([]Fragment, error) {
	var fragments []Fragment

	for p.pos < len(p.input) {
		if p.peekScript() {
			if err := p.parseScript(); err != nil {
				return nil, err
			}
		} else if p.peek("</") {
			// Closing tag for the parent element
			break
		} else if p.peek("<") {
			el, err := p.parseElement()
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, el)
		} else if p.peek("{") {
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			fragments = append(fragments, expr)
		} else {
			if text := p.parseText(); text != nil {
				fragments = append(fragments, text)
			}
		}
	}

	return fragments, nil
}

func (p *Parser) peekScript() bool {
	if !p.peek("<script") {
		return false
	}
	next := p.pos + len("<script")
	return next < len(p.input) && (p.input[next] == '>' || unicode.IsSpace(rune(p.input[next])))
}

// parseScript parses the <script> block and stores it on the document
func (p *Parser) parseScript() error {
	start := p.position()
	if p.doc.Script != nil {
		return p.errorExpected("a single <script> block", "a second <script>")
	}

	p.consume("<script")
	p.skipWhitespace()
	if !p.consume(">") {
		return p.errorExpected("'>'", p.describe())
	}

	offset := p.pos
	end := strings.Index(p.input[offset:], "</script>")
	if end < 0 {
		p.advanceTo(len(p.input))
		return p.errorExpected("</script>", "end of input")
	}
	end += offset

	code, err := script.ParseScript(p.filename, p.input[offset:end])
	if err != nil {
		return p.scriptError(offset, err)
	}

	p.advanceTo(end)
	p.consume("</script>")

	p.doc.Script = &Script{Code: code, Offset: offset, Pos: start}
	return nil
}

// parseExpression parses an interpolation {expr}
func (p *Parser) parseExpression() (*Expression, error) {
	start := p.position()
	expr, err := p.parseBraced()
	if err != nil {
		return nil, err
	}
	return &Expression{Expr: expr, Pos: start}, nil
}

// parseBraced parses '{' expr '}' and leaves the cursor after the brace
func (p *Parser) parseBraced() (*script.Expr, error) {
	if !p.consume("{") {
		return nil, p.errorExpected("'{'", p.describe())
	}

	expr, end, err := script.ParseExpressionAt(p.input, p.pos)
	if err != nil {
		return nil, p.scriptError(0, err)
	}

	p.advanceTo(end)
	if !p.consume("}") {
		return nil, p.errorExpected("'}'", p.describe())
	}
	return expr, nil
}

// parseElement parses an element and its children
func (p *Parser) parseElement() (*Element, error) {
	start := p.position()
	if !p.consume("<") {
		return nil, p.errorExpected("'<'", p.describe())
	}

	tagName := p.parseTagName()
	if tagName == "" {
		return nil, p.errorExpected("tag name", p.describe())
	}

	attributes, err := p.parseAttributes()
	if err != nil {
		return nil, err
	}

	if !p.consume(">") {
		return nil, p.errorExpected("'>'", p.describe())
	}

	children, err := p.parseFragments()
	if err != nil {
		return nil, err
	}

	if !p.peek("</") {
		return nil, p.errorExpected(fmt.Sprintf("</%s>", tagName), p.describe())
	}
	closeStart := p.position()
	p.consume("</")
	closingTag := p.parseTagName()
	if closingTag != tagName {
		return nil, &ParseError{
			Filename: p.filename,
			Pos:      closeStart,
			Expected: fmt.Sprintf("</%s>", tagName),
			Found:    fmt.Sprintf("</%s>", closingTag),
		}
	}

	p.skipWhitespace()
	if !p.consume(">") {
		return nil, p.errorExpected("'>'", p.describe())
	}

	return &Element{
		Tag:        tagName,
		Attributes: attributes,
		Children:   children,
		Pos:        start,
	}, nil
}

// parseAttributes parses name={expr} and name="literal" pairs
func (p *Parser) parseAttributes() ([]*Attribute, error) {
	var attributes []*Attribute

	for {
		p.skipWhitespace()

		if p.pos >= len(p.input) || p.peek(">") {
			break
		}

		start := p.position()
		name := p.parseAttributeName()
		if name == "" {
			return nil, p.errorExpected("attribute name or '>'", p.describe())
		}

		p.skipWhitespace()
		if !p.consume("=") {
			return nil, p.errorExpected("'='", p.describe())
		}
		p.skipWhitespace()

		attr := &Attribute{Name: name, Pos: start}
		switch {
		case p.peek("{"):
			expr, err := p.parseBraced()
			if err != nil {
				return nil, err
			}
			attr.Expr = expr
		case p.consume("\""):
			value := p.parseUntil("\"")
			if !p.consume("\"") {
				return nil, p.errorExpected("'\"'", "end of input")
			}
			attr.Literal = value
		default:
			return nil, p.errorExpected("'{' or '\"'", p.describe())
		}

		attributes = append(attributes, attr)
	}

	return attributes, nil
}

// parseText parses plain text until the next element or expression
func (p *Parser) parseText() *Text {
	start := p.position()

	for p.pos < len(p.input) {
		if p.peek("{") || p.peek("<") {
			break
		}
		p.advance()
	}

	value := p.input[start.Offset:p.pos]
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &Text{Value: value, Pos: start}
}

// Helper methods

func (p *Parser) peek(s string) bool {
	if p.pos+len(s) > len(p.input) {
		return false
	}
	return p.input[p.pos:p.pos+len(s)] == s
}

func (p *Parser) consume(s string) bool {
	if p.peek(s) {
		for i := 0; i < len(s); i++ {
			p.advance()
		}
		return true
	}
	return false
}

func (p *Parser) advance() {
	if p.pos < len(p.input) {
		if p.input[p.pos] == '\n' {
			p.line++
			p.col = 1
		} else {
			p.col++
		}
		p.pos++
	}
}

func (p *Parser) advanceTo(offset int) {
	for p.pos < offset && p.pos < len(p.input) {
		p.advance()
	}
}

func (p *Parser) skipWhitespace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.advance()
	}
}

func (p *Parser) parseUntil(delimiter string) string {
	start := p.pos

	for p.pos < len(p.input) {
		if p.peek(delimiter) {
			return p.input[start:p.pos]
		}
		p.advance()
	}

	return p.input[start:p.pos]
}

// parseTagName parses a lowercase tag name; digits and hyphens may follow
// the first letter (h1, my-widget)
func (p *Parser) parseTagName() string {
	start := p.pos

	if p.pos >= len(p.input) || !isLower(p.input[p.pos]) {
		return ""
	}
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if !isLower(ch) && !(ch >= '0' && ch <= '9') && ch != '-' {
			break
		}
		p.advance()
	}

	return p.input[start:p.pos]
}

func (p *Parser) parseAttributeName() string {
	start := p.pos

	// Parse attribute name (letters, digits, hyphens, colons)
	for p.pos < len(p.input) {
		ch := rune(p.input[p.pos])
		if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '-' && ch != ':' {
			break
		}
		p.advance()
	}

	return p.input[start:p.pos]
}

func isLower(ch byte) bool {
	return ch >= 'a' && ch <= 'z'
}

func (p *Parser) position() Pos {
	return Pos{Offset: p.pos, Line: p.line, Col: p.col}
}

// positionAt computes the position of an arbitrary offset
func (p *Parser) positionAt(offset int) Pos {
	pos := Pos{Offset: offset, Line: 1, Col: 1}
	for i := 0; i < offset && i < len(p.input); i++ {
		if p.input[i] == '\n' {
			pos.Line++
			pos.Col = 1
		} else {
			pos.Col++
		}
	}
	return pos
}

// describe renders the input at the cursor for error messages
func (p *Parser) describe() string {
	if p.pos >= len(p.input) {
		return "end of input"
	}
	if p.peek("</") {
		end := strings.IndexByte(p.input[p.pos:], '>')
		if end > 0 && end < 32 {
			return p.input[p.pos : p.pos+end+1]
		}
	}
	return fmt.Sprintf("%q", p.input[p.pos])
}

func (p *Parser) errorExpected(expected, found string) error {
	return &ParseError{
		Filename: p.filename,
		Pos:      p.position(),
		Expected: expected,
		Found:    found,
	}
}

// scriptError converts an embedded script syntax error. base is added to
// the error offset to make it template-relative.
func (p *Parser) scriptError(base int, err error) error {
	var syntaxErr *script.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return fmt.Errorf("%s: %w", p.filename, err)
	}
	return &ParseError{
		Filename: p.filename,
		Pos:      p.positionAt(base + syntaxErr.Offset),
		Message:  syntaxErr.Message,
	}
}
