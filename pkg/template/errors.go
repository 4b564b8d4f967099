package template

import "fmt"

// ParseError is a fatal syntax error in a template. Nothing is generated
// for a template that fails to parse.
type ParseError struct {
	Filename string
	Pos      Pos
	Expected string
	Found    string
	// Message replaces the expected/found pair for embedded script errors
	Message string
}

func (e *ParseError) Error() string {
	filename := e.Filename
	if filename == "" {
		filename = "<input>"
	}
	if e.Message != "" {
		return fmt.Sprintf("%s:%d:%d: %s", filename, e.Pos.Line, e.Pos.Col, e.Message)
	}
	return fmt.Sprintf("%s:%d:%d: expected %s, found %s", filename, e.Pos.Line, e.Pos.Col, e.Expected, e.Found)
}
