package script

// Balance widens [start, end) over the parentheses the parser dropped from
// node positions, so that the returned range holds as many '(' as ')' and
// never closes a group it did not open.
func Balance(text string, start, end int) (int, int) {
	depth, low := parenDepth(text[start:end])
	needOpen := -low
	needClose := depth + needOpen

	for i := 0; i < needOpen; i++ {
		j := start
		for j > 0 && isSpace(text[j-1]) {
			j--
		}
		if j == 0 || text[j-1] != '(' {
			break
		}
		start = j - 1
	}
	for i := 0; i < needClose; i++ {
		j := end
		for j < len(text) && isSpace(text[j]) {
			j++
		}
		if j == len(text) || text[j] != ')' {
			break
		}
		end = j + 1
	}
	return start, end
}

// parenDepth returns the final parenthesis depth of s and the lowest depth
// reached, skipping strings, template literals and comments.
func parenDepth(s string) (depth, low int) {
	sc := &scanner{src: s}
	for sc.pos < len(s) {
		switch c := s[sc.pos]; c {
		case '"', '\'':
			if sc.skipString(c) != nil {
				return depth, low
			}
			continue
		case '`':
			if sc.skipTemplate() != nil {
				return depth, low
			}
			continue
		case '/':
			if sc.peekAt(1) == '/' {
				sc.skipLineComment()
				continue
			}
			if sc.peekAt(1) == '*' {
				if sc.skipBlockComment() != nil {
					return depth, low
				}
				continue
			}
		case '(':
			depth++
		case ')':
			depth--
			if depth < low {
				low = depth
			}
		}
		sc.pos++
	}
	return depth, low
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
