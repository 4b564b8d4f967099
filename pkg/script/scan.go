package script

// ScanExpression finds the end of an embedded expression. start is the
// offset of the first character after the opening '{'; the returned offset
// is the position of the '}' that closes it. Strings, template literals and
// comments are skipped so braces inside them do not count.
//
// Regular expression literals are not recognized; a regex containing an
// unbalanced brace or quote must be wrapped in a RegExp constructor call.
func ScanExpression(src string, start int) (int, error) {
	s := &scanner{src: src, pos: start}
	return s.balanced()
}

type scanner struct {
	src string
	pos int
}

// balanced consumes input until a '}' that is not matched by an opener
// seen during this call, and returns its offset.
func (s *scanner) balanced() (int, error) {
	var stack []byte
	for s.pos < len(s.src) {
		c := s.src[s.pos]
		switch c {
		case '"', '\'':
			if err := s.skipString(c); err != nil {
				return 0, err
			}
			continue
		case '`':
			if err := s.skipTemplate(); err != nil {
				return 0, err
			}
			continue
		case '/':
			if s.peekAt(1) == '/' {
				s.skipLineComment()
				continue
			}
			if s.peekAt(1) == '*' {
				if err := s.skipBlockComment(); err != nil {
					return 0, err
				}
				continue
			}
		case '(', '[', '{':
			stack = append(stack, c)
		case ')', ']':
			if len(stack) == 0 || stack[len(stack)-1] != opener(c) {
				return 0, &SyntaxError{Offset: s.pos, Message: "unexpected '" + string(c) + "'"}
			}
			stack = stack[:len(stack)-1]
		case '}':
			if len(stack) == 0 {
				return s.pos, nil
			}
			if stack[len(stack)-1] != '{' {
				return 0, &SyntaxError{Offset: s.pos, Message: "unexpected '}'"}
			}
			stack = stack[:len(stack)-1]
		}
		s.pos++
	}
	return 0, &SyntaxError{Offset: len(s.src), Message: "unexpected end of input, expected '}'"}
}

func (s *scanner) peekAt(n int) byte {
	if s.pos+n < len(s.src) {
		return s.src[s.pos+n]
	}
	return 0
}

func (s *scanner) skipString(quote byte) error {
	start := s.pos
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case '\n':
			return &SyntaxError{Offset: start, Message: "unterminated string literal"}
		case quote:
			s.pos++
			return nil
		}
		s.pos++
	}
	return &SyntaxError{Offset: start, Message: "unterminated string literal"}
}

func (s *scanner) skipTemplate() error {
	start := s.pos
	s.pos++
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case '`':
			s.pos++
			return nil
		case '$':
			if s.peekAt(1) == '{' {
				s.pos += 2
				end, err := s.balanced()
				if err != nil {
					return err
				}
				s.pos = end + 1
				continue
			}
		}
		s.pos++
	}
	return &SyntaxError{Offset: start, Message: "unterminated template literal"}
}

func (s *scanner) skipLineComment() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.pos++
	}
}

func (s *scanner) skipBlockComment() error {
	start := s.pos
	s.pos += 2
	for s.pos+1 < len(s.src) {
		if s.src[s.pos] == '*' && s.src[s.pos+1] == '/' {
			s.pos += 2
			return nil
		}
		s.pos++
	}
	return &SyntaxError{Offset: start, Message: "unterminated comment"}
}

func opener(c byte) byte {
	switch c {
	case ')':
		return '('
	case ']':
		return '['
	}
	return '{'
}
