package lsp

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/recera/rill/pkg/analyze"
	"github.com/recera/rill/pkg/compiler"
)

const maxCompletionItems = 100

func (s *Server) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	uri := params.TextDocument.URI

	s.mu.Lock()
	text, ok := s.docs[uri]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	// A document being edited rarely compiles, so fall back to the last
	// analysis that did
	var result *analyze.Result
	if out, err := compiler.Compile(filenameFromURI(uri), text, s.options); err == nil {
		result = out.Analysis
		s.mu.Lock()
		s.analyses[uri] = result
		s.mu.Unlock()
	} else {
		s.mu.Lock()
		result = s.analyses[uri]
		s.mu.Unlock()
	}
	if result == nil {
		return nil, nil
	}

	return complete(result, extractPrefix(text, params.Position)), nil
}

// complete lists module bindings matching prefix, best matches first
func complete(r *analyze.Result, prefix string) []protocol.CompletionItem {
	names := moduleNames(r)

	var matches []string
	if prefix == "" {
		matches = names
	} else {
		ranks := fuzzy.RankFindFold(prefix, names)
		sort.Stable(ranks)
		for _, rank := range ranks {
			matches = append(matches, rank.Target)
		}
	}
	if len(matches) > maxCompletionItems {
		matches = matches[:maxCompletionItems]
	}

	items := make([]protocol.CompletionItem, 0, len(matches))
	for _, name := range matches {
		kind := protocol.CompletionItemKindVariable
		if _, ok := r.Functions[name]; ok {
			kind = protocol.CompletionItemKindFunction
		}
		detail := bindingKind(r, name)
		label := name
		items = append(items, protocol.CompletionItem{
			Label:      label,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &label,
		})
	}
	return items
}

// moduleNames returns declared and implicit module bindings in order
func moduleNames(r *analyze.Result) []string {
	seen := make(map[string]bool)
	var names []string
	for _, list := range [][]string{r.Root.Names(), r.Implicit.Names()} {
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

func bindingKind(r *analyze.Result, name string) string {
	for _, d := range r.Reactive {
		for _, assignee := range d.Assignees {
			if assignee == name {
				return "reactive"
			}
		}
	}
	if _, ok := r.Functions[name]; ok {
		return "function"
	}
	if r.WillChange.Has(name) {
		return "mutable"
	}
	return "static"
}

// extractPrefix returns the identifier characters before the cursor
func extractPrefix(text string, pos protocol.Position) string {
	line := lineAt(text, int(pos.Line))
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}
	start := col
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	return line[start:col]
}
