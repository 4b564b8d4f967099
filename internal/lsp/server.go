// Package lsp serves template diagnostics and binding information to
// editors over the Language Server Protocol.
package lsp

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/recera/rill/pkg/analyze"
	"github.com/recera/rill/pkg/compiler"
	"github.com/recera/rill/pkg/template"
)

const lspName = "rill-lsp"

var log = commonlog.GetLogger("rill.lsp")

// Server bridges editor requests to the compiler
type Server struct {
	mu       sync.Mutex
	docs     map[string]string          // URI → full document content
	analyses map[string]*analyze.Result // URI → last analysis that succeeded

	options compiler.Options
	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// New creates a language server compiling with the given options
func New(options compiler.Options, version string) *Server {
	s := &Server{
		docs:     make(map[string]string),
		analyses: make(map[string]*analyze.Result),
		options:  options,
		version:  version,
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentHover:      s.textDocumentHover,
		TextDocumentCompletion: s.textDocumentCompletion,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)
	return s
}

// RunStdio serves on stdin/stdout until the client disconnects
func (s *Server) RunStdio() error {
	return s.server.RunStdio()
}

// RunTCP serves on a TCP address
func (s *Server) RunTCP(address string) error {
	return s.server.RunTCP(address)
}

// RunWebSocket serves on a websocket address
func (s *Server) RunWebSocket(address string) error {
	return s.server.RunWebSocket(address)
}

func (s *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Info("initializing", "version", s.version)

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"{"},
	}
	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(ctx *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[uri] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) == 0 {
		return nil
	}
	last := params.ContentChanges[len(params.ContentChanges)-1]
	whole, ok := last.(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.docs[uri] = whole.Text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, whole.Text)
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, uri)
	delete(s.analyses, uri)
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *Server) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.mu.Lock()
	text, ok := s.docs[params.TextDocument.URI]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	out, err := compiler.Compile(filenameFromURI(params.TextDocument.URI), text, s.options)
	if err != nil {
		return nil, nil
	}

	info := describeBinding(out.Analysis, word)
	if info == "" {
		return nil, nil
	}
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: info,
		},
	}, nil
}

func (s *Server) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := Diagnostics(filenameFromURI(uri), text, s.options)
	log.Debug("publishing diagnostics", "uri", uri, "count", len(diagnostics))

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// Diagnostics compiles text and reports its errors
func Diagnostics(filename, text string, options compiler.Options) []protocol.Diagnostic {
	_, err := compiler.Compile(filename, text, options)
	if err == nil {
		return []protocol.Diagnostic{}
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	diagnostic := protocol.Diagnostic{
		Severity: &severity,
		Source:   &source,
		Message:  err.Error(),
	}

	var perr *template.ParseError
	var cerr *analyze.CycleError
	switch {
	case errors.As(err, &perr):
		diagnostic.Message = parseErrorMessage(perr)
		start := protocol.Position{Line: lineIndex(perr.Pos.Line), Character: lineIndex(perr.Pos.Col)}
		width := len(perr.Found)
		if width == 0 {
			width = 1
		}
		diagnostic.Range = protocol.Range{
			Start: start,
			End:   protocol.Position{Line: start.Line, Character: start.Character + protocol.UInteger(width)},
		}
	case errors.As(err, &cerr):
		diagnostic.Message = cerr.Error()
		diagnostic.Range = cycleRange(text, cerr.Names)
	}
	return []protocol.Diagnostic{diagnostic}
}

// parseErrorMessage drops the file position, which the range already carries
func parseErrorMessage(err *template.ParseError) string {
	if err.Message != "" {
		return err.Message
	}
	return fmt.Sprintf("expected %s, found %s", err.Expected, err.Found)
}

// cycleRange points at the first reactive declaration of the cycle
func cycleRange(text string, names []string) protocol.Range {
	for _, name := range names {
		pattern := regexp.MustCompile(`\$\s*:\s*` + regexp.QuoteMeta(name) + `\b`)
		if loc := pattern.FindStringIndex(text); loc != nil {
			return protocol.Range{Start: position(text, loc[0]), End: position(text, loc[1])}
		}
	}
	return protocol.Range{}
}

// position converts a byte offset into a zero-based line and column
func position(text string, offset int) protocol.Position {
	before := text[:offset]
	line := strings.Count(before, "\n")
	col := offset - (strings.LastIndex(before, "\n") + 1)
	return protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(col)}
}

func lineIndex(n int) protocol.UInteger {
	if n <= 0 {
		return 0
	}
	return protocol.UInteger(n - 1)
}

// describeBinding renders hover text for a module-level name
func describeBinding(r *analyze.Result, name string) string {
	for _, d := range r.Reactive {
		for _, assignee := range d.Assignees {
			if assignee != name {
				continue
			}
			if len(d.Dependencies) == 0 {
				return fmt.Sprintf("`%s` reactive declaration, computed once", name)
			}
			return fmt.Sprintf("`%s` reactive declaration, recomputed when %s change", name, strings.Join(d.Dependencies, ", "))
		}
	}

	switch {
	case r.WillChange.Has(name) && r.WillUseInTemplate.Has(name):
		return fmt.Sprintf("`%s` reactive binding, updates the markup when assigned", name)
	case r.WillChange.Has(name):
		return fmt.Sprintf("`%s` mutable binding, not read by the markup", name)
	case r.Declared.Has(name) && r.WillUseInTemplate.Has(name):
		return fmt.Sprintf("`%s` static binding, rendered once", name)
	case r.Globals.Has(name):
		return fmt.Sprintf("`%s` global", name)
	}
	return ""
}

// extractWord returns the identifier under the cursor
func extractWord(text string, pos protocol.Position) string {
	line := lineAt(text, int(pos.Line))
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start, end := col, col
	for start > 0 && isIdentByte(line[start-1]) {
		start--
	}
	for end < len(line) && isIdentByte(line[end]) {
		end++
	}
	return line[start:end]
}

func lineAt(text string, n int) string {
	lines := strings.Split(text, "\n")
	if n < 0 || n >= len(lines) {
		return ""
	}
	return lines[n]
}

func isIdentByte(c byte) bool {
	r := rune(c)
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$'
}

func filenameFromURI(uri protocol.DocumentUri) string {
	return strings.TrimPrefix(uri, "file://")
}

func boolPtr(b bool) *bool {
	return &b
}
