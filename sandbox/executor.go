package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	starjson "go.starlark.net/lib/json"
	starmath "go.starlark.net/lib/math"
	startime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
)

// FailKind classifies an execution failure.
type FailKind string

const (
	FailNone       FailKind = ""
	FailValidation FailKind = "validation"
	FailTimeout    FailKind = "timeout"
	FailRuntime    FailKind = "runtime"
)

// Default limits.
const (
	DefaultTimeout        = 10 * time.Second
	DefaultMaxOutputChars = 16 * 1024
)

const truncationMarker = "\n...[output truncated]"

// DefaultBuiltins is the builtin allow-list applied when Options leaves
// AllowedBuiltins nil.
var DefaultBuiltins = []string{
	"print", "len", "range", "str", "int", "float", "bool", "list", "dict",
	"tuple", "set", "enumerate", "zip", "sorted", "reversed", "min", "max",
	"abs", "any", "all", "repr", "type", "hash", "fail", "True", "False", "None",
}

// guestModules maps loadable module names to their implementations. Only
// names that also appear in AllowedModules are served to guest code.
var guestModules = map[string]starlark.StringDict{
	"math": {"math": starmath.Module},
	"time": {"time": startime.Module},
	"json": {"json": starjson.Module},
}

// Outcome is the result of one sandboxed execution.
type Outcome struct {
	Success    bool          `json:"success"`
	Kind       FailKind      `json:"kind,omitempty"`
	Result     any           `json:"result,omitempty"`
	Stdout     string        `json:"stdout,omitempty"`
	Truncated  bool          `json:"truncated,omitempty"`
	Violations []Violation   `json:"violations,omitempty"`
	Error      string        `json:"error,omitempty"`
	Traceback  string        `json:"traceback,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// Options configures an Executor.
type Options struct {
	// AllowedModules lists guest modules load() may name.
	AllowedModules []string

	// AllowedBuiltins lists the builtin names guest code may reference.
	// Nil means DefaultBuiltins.
	AllowedBuiltins []string

	// Timeout bounds the wall-clock time of one execution.
	// Default: 10s.
	Timeout time.Duration

	// MaxOutputChars bounds captured print output; excess is dropped and
	// marked with a truncation marker. Default: 16384.
	MaxOutputChars int
}

func (o *Options) applyDefaults() {
	if o.AllowedBuiltins == nil {
		o.AllowedBuiltins = DefaultBuiltins
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxOutputChars == 0 {
		o.MaxOutputChars = DefaultMaxOutputChars
	}
}

// Executor runs validated code in an isolated Starlark thread.
// The interpreter itself exposes no filesystem, network or process surface;
// validation plus the load hook and builtin allow-list narrow it further.
type Executor struct {
	opts        Options
	predeclared starlark.StringDict
}

// NewExecutor creates an executor with defaults applied.
func NewExecutor(opts Options) *Executor {
	opts.applyDefaults()
	return &Executor{opts: opts, predeclared: restrictUniverse(opts.AllowedBuiltins)}
}

// restrictUniverse shadows every universe builtin outside the allow-list
// with a stub that fails on call. The executor then enforces the builtin
// restriction itself instead of relying on the static pass alone.
func restrictUniverse(allowed []string) starlark.StringDict {
	set := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		set[name] = true
	}
	dict := make(starlark.StringDict)
	for name := range starlark.Universe {
		if set[name] {
			continue
		}
		dict[name] = starlark.NewBuiltin(name, func(_ *starlark.Thread, b *starlark.Builtin, _ starlark.Tuple, _ []starlark.Tuple) (starlark.Value, error) {
			return nil, fmt.Errorf("builtin %q is not allowed", b.Name())
		})
	}
	return dict
}

// Execute validates code and, when clean, runs it under the configured
// limits. The conventionally named global `result` becomes Outcome.Result;
// its absence is not an error. Execute never returns a Go error: every
// failure mode is reported in the Outcome.
func (e *Executor) Execute(ctx context.Context, code string) Outcome {
	start := time.Now()
	out := e.execute(ctx, code)
	out.Duration = time.Since(start)
	return out
}

func (e *Executor) execute(ctx context.Context, code string) Outcome {
	if vs := Validate(code, e.opts.AllowedModules, e.opts.AllowedBuiltins); len(vs) > 0 {
		msgs := make([]string, len(vs))
		for i, v := range vs {
			msgs[i] = v.String()
		}
		return Outcome{
			Kind:       FailValidation,
			Violations: vs,
			Error:      "validation failed: " + strings.Join(msgs, "; "),
		}
	}

	stdout := &boundedBuffer{limit: e.opts.MaxOutputChars}
	thread := &starlark.Thread{
		Name:  "sandbox",
		Print: func(_ *starlark.Thread, msg string) { stdout.writeLine(msg) },
		Load:  e.load,
	}

	timeout := e.opts.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < timeout {
			timeout = rem
		}
	}
	var timedOut atomic.Bool
	timer := time.AfterFunc(timeout, func() {
		timedOut.Store(true)
		thread.Cancel("timeout")
	})
	defer timer.Stop()
	stopCancel := context.AfterFunc(ctx, func() { thread.Cancel("context cancelled") })
	defer stopCancel()

	globals, err := starlark.ExecFile(thread, "sandbox.star", code, e.predeclared)
	captured, truncated := stdout.contents()
	if err != nil {
		if timedOut.Load() || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Outcome{
				Kind:      FailTimeout,
				Error:     fmt.Sprintf("execution timed out after %s", timeout),
				Stdout:    captured,
				Truncated: truncated,
			}
		}
		out := Outcome{Kind: FailRuntime, Error: err.Error(), Stdout: captured, Truncated: truncated}
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			out.Error = evalErr.Msg
			out.Traceback = evalErr.Backtrace()
		}
		return out
	}

	var result any
	if v, ok := globals["result"]; ok {
		result = FromStarlark(v)
	}
	return Outcome{Success: true, Result: result, Stdout: captured, Truncated: truncated}
}

// load serves only allow-listed guest modules.
func (e *Executor) load(_ *starlark.Thread, module string) (starlark.StringDict, error) {
	for _, name := range e.opts.AllowedModules {
		if name != module {
			continue
		}
		if dict, ok := guestModules[module]; ok {
			return dict, nil
		}
		break
	}
	return nil, fmt.Errorf("module %q is not available in the sandbox", module)
}

// boundedBuffer collects print output up to a fixed size.
type boundedBuffer struct {
	mu        sync.Mutex
	b         strings.Builder
	limit     int
	truncated bool
}

func (bb *boundedBuffer) writeLine(s string) {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	if bb.truncated {
		return
	}
	line := s + "\n"
	if remaining := bb.limit - bb.b.Len(); len(line) > remaining {
		if remaining > 0 {
			bb.b.WriteString(line[:remaining])
		}
		bb.b.WriteString(truncationMarker)
		bb.truncated = true
		return
	}
	bb.b.WriteString(line)
}

func (bb *boundedBuffer) contents() (string, bool) {
	bb.mu.Lock()
	defer bb.mu.Unlock()
	return bb.b.String(), bb.truncated
}
