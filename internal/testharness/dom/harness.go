// Package dom implements a test harness that mounts compiled components in
// an embedded JavaScript runtime backed by a minimal DOM.
package dom

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

//go:embed shim.js
var shim string

// Harness owns a JavaScript runtime with the DOM shim installed
type Harness struct {
	mu           sync.Mutex
	vm           *goja.Runtime
	timeout      time.Duration
	outputWriter io.Writer
	verbose      bool
}

// Config holds harness configuration
type Config struct {
	Verbose      bool          // Log lifecycle calls to OutputWriter
	Timeout      time.Duration // Limit for a single call into JavaScript (default: 5 seconds)
	OutputWriter io.Writer     // Where console.log and verbose output go (default: os.Stdout)
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Verbose:      false,
		Timeout:      5 * time.Second,
		OutputWriter: os.Stdout,
	}
}

// ErrTimeout is returned when JavaScript runs longer than the configured timeout
var ErrTimeout = errors.New("javascript execution timed out")

// New creates a harness with a fresh runtime
func New(config Config) (*Harness, error) {
	if config.OutputWriter == nil {
		config.OutputWriter = os.Stdout
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}

	h := &Harness{
		vm:           goja.New(),
		timeout:      config.Timeout,
		outputWriter: config.OutputWriter,
		verbose:      config.Verbose,
	}

	console := h.vm.NewObject()
	if err := console.Set("log", h.consoleLog); err != nil {
		return nil, err
	}
	if err := h.vm.Set("console", console); err != nil {
		return nil, err
	}
	if _, err := h.vm.RunScript("shim.js", shim); err != nil {
		return nil, fmt.Errorf("failed to install DOM shim: %w", err)
	}
	return h, nil
}

func (h *Harness) consoleLog(call goja.FunctionCall) goja.Value {
	parts := make([]string, len(call.Arguments))
	for i, arg := range call.Arguments {
		parts[i] = arg.String()
	}
	fmt.Fprintln(h.outputWriter, strings.Join(parts, " "))
	return goja.Undefined()
}

func (h *Harness) logf(format string, args ...interface{}) {
	if h.verbose {
		fmt.Fprintf(h.outputWriter, format+"\n", args...)
	}
}

// run executes fn with the runtime locked and interrupted after the timeout
func (h *Harness) run(fn func() (goja.Value, error)) (goja.Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	timer := time.AfterFunc(h.timeout, func() {
		h.vm.Interrupt(ErrTimeout)
	})
	defer timer.Stop()

	v, err := fn()
	h.vm.ClearInterrupt()

	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return nil, ErrTimeout
	}
	return v, err
}

// Load evaluates a CommonJS module and instantiates the component factory
// it exports
func (h *Harness) Load(filename, code string) (*Component, error) {
	prog, err := goja.Compile(filename, "(function (module, exports) {\n"+code+"\n})", false)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", filename, err)
	}

	v, err := h.run(func() (goja.Value, error) {
		wrapper, err := h.vm.RunProgram(prog)
		if err != nil {
			return nil, err
		}
		load, ok := goja.AssertFunction(wrapper)
		if !ok {
			return nil, fmt.Errorf("module wrapper is not a function")
		}

		module := h.vm.NewObject()
		exports := h.vm.NewObject()
		if err := module.Set("exports", exports); err != nil {
			return nil, err
		}
		if _, err := load(goja.Undefined(), module, exports); err != nil {
			return nil, err
		}

		factory, ok := goja.AssertFunction(module.Get("exports"))
		if !ok {
			return nil, fmt.Errorf("%s does not export a component factory", filename)
		}
		return factory(goja.Undefined())
	})
	if err != nil {
		return nil, err
	}

	c := &Component{h: h, lifecycle: v.ToObject(h.vm)}
	if err := c.trackUpdates(); err != nil {
		return nil, err
	}
	h.logf("loaded %s", filename)
	return c, nil
}

// Eval runs a script in the harness runtime
func (h *Harness) Eval(code string) (goja.Value, error) {
	return h.run(func() (goja.Value, error) {
		return h.vm.RunString(code)
	})
}
