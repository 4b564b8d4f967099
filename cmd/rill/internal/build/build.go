// Package build compiles template files to disk for the rill commands.
package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tliron/commonlog"

	"github.com/recera/rill/internal/cache"
	"github.com/recera/rill/internal/config"
	"github.com/recera/rill/pkg/codegen"
	"github.com/recera/rill/pkg/compiler"
)

var log = commonlog.GetLogger("rill.build")

// Result describes one compiled template
type Result struct {
	Source  string
	Output  string
	Err     error
	Elapsed time.Duration
	Cached  bool
}

// Summary counts the outcome of a batch
type Summary struct {
	Compiled int
	Failed   int
}

// Builder compiles templates according to the project configuration.
// Builds are serialized.
type Builder struct {
	mu    sync.Mutex
	cfg   *config.Config
	opts  compiler.Options
	cache *cache.Cache
}

// New creates a builder for cfg
func New(cfg *config.Config) *Builder {
	return &Builder{
		cfg: cfg,
		opts: compiler.Options{
			Format:      codegen.Format(cfg.Format),
			EventPrefix: cfg.EventPrefix,
		},
	}
}

// WithCache reuses modules stored in c for templates that have not changed
func (b *Builder) WithCache(c *cache.Cache) *Builder {
	b.cache = c
	return b
}

// OutputPath returns where the module for a template is written
func (b *Builder) OutputPath(path string) string {
	return b.cfg.OutputPath(path, compiler.OutputExtension)
}

// File compiles one template and writes its module
func (b *Builder) File(path string) Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file(path)
}

func (b *Builder) file(path string) Result {
	result := Result{Source: path, Output: b.OutputPath(path)}

	source, err := os.ReadFile(path)
	if err != nil {
		result.Err = fmt.Errorf("failed to read file: %w", err)
		log.Error("compile failed", "source", path, "error", result.Err)
		return result
	}

	code, err := b.compile(path, string(source), &result)
	if err != nil {
		result.Err = err
		log.Error("compile failed", "source", path, "error", err)
		return result
	}

	if err := os.MkdirAll(filepath.Dir(result.Output), 0755); err != nil {
		result.Err = fmt.Errorf("failed to create output directory: %w", err)
		return result
	}
	if err := os.WriteFile(result.Output, code, 0644); err != nil {
		result.Err = fmt.Errorf("failed to write output file: %w", err)
		return result
	}

	log.Info("compiled", "source", path, "output", result.Output, "cached", result.Cached)
	return result
}

// compile returns the module for source, from the cache when possible. The
// file name is part of the key since it names the component.
func (b *Builder) compile(path, source string, result *Result) ([]byte, error) {
	var key string
	if b.cache != nil {
		key = cache.Key(filepath.Base(path), string(b.opts.Format), b.opts.EventPrefix, source)
		if code, ok := b.cache.Get(key); ok {
			result.Cached = true
			return code, nil
		}
	}

	out, err := compiler.Compile(path, source, b.opts)
	if err != nil {
		return nil, err
	}
	result.Elapsed = out.Elapsed

	code := []byte(out.Code)
	if b.cache != nil {
		if err := b.cache.Put(key, path, code); err != nil {
			log.Warning("failed to cache module", "source", path, "error", err)
		}
	}
	return code, nil
}

// Files compiles each path in order
func (b *Builder) Files(paths []string) []Result {
	b.mu.Lock()
	defer b.mu.Unlock()

	results := make([]Result, 0, len(paths))
	for _, path := range paths {
		results = append(results, b.file(path))
	}
	return results
}

// Dir compiles every template under dir
func (b *Builder) Dir(dir string) ([]Result, error) {
	paths, err := FindTemplates(dir, b.cfg.Ignored)
	if err != nil {
		return nil, err
	}
	return b.Files(paths), nil
}

// Remove deletes the module generated for a template that no longer exists
func (b *Builder) Remove(path string) error {
	err := os.Remove(b.OutputPath(path))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// FindTemplates walks dir for template files, skipping directories ignored
// reports true for
func FindTemplates(dir string, ignored func(name string) bool) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && ignored != nil && ignored(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if compiler.IsTemplate(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find template files: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// Summarize counts successes and failures
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
		} else {
			s.Compiled++
		}
	}
	return s
}
