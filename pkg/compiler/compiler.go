// Package compiler runs the full template pipeline: parse, analyse and
// generate.
package compiler

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tliron/commonlog"

	"github.com/recera/rill/pkg/analyze"
	"github.com/recera/rill/pkg/codegen"
	"github.com/recera/rill/pkg/template"
)

const (
	// Extension marks template source files
	Extension = ".rill"
	// OutputExtension is appended in place of Extension for generated modules
	OutputExtension = ".rill.js"
)

var log = commonlog.GetLogger("rill.compiler")

// Options configures a compilation
type Options struct {
	Format      codegen.Format
	Name        string
	EventPrefix string
}

// Output is the result of compiling one template
type Output struct {
	Filename string
	Code     string
	Document *template.Document
	Analysis *analyze.Result
	Elapsed  time.Duration
}

// Compile turns template source into a JavaScript module
func Compile(filename, source string, opts Options) (*Output, error) {
	start := time.Now()

	doc, err := template.Parse(filename, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	result, err := analyze.Analyze(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze template: %w", err)
	}

	code, err := codegen.Generate(doc, result, codegen.Options{
		Name:        opts.Name,
		Format:      opts.Format,
		EventPrefix: opts.EventPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate code: %w", err)
	}

	out := &Output{
		Filename: filename,
		Code:     code,
		Document: doc,
		Analysis: result,
		Elapsed:  time.Since(start),
	}
	log.Debug("compiled template",
		"file", filename,
		"changing", result.WillChange.Len(),
		"reactive", len(result.Reactive),
		"elapsed", out.Elapsed)
	return out, nil
}

// CompileFile reads and compiles a template file
func CompileFile(path string, opts Options) (*Output, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Compile(path, string(source), opts)
}

// OutputPath returns the module path written for a template path
func OutputPath(path string) string {
	return strings.TrimSuffix(path, Extension) + OutputExtension
}

// IsTemplate reports whether path names a template source file
func IsTemplate(path string) bool {
	return strings.HasSuffix(path, Extension)
}
