// Package testutil provides shared fakes for registry, flow and planner tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/wrm3/toolflow"
	"github.com/wrm3/toolflow/planner"
)

// StaticTool returns a tool that always succeeds with value.
func StaticTool(name string, value any) toolflow.Tool {
	return toolflow.NewTool(name, "returns a fixed value", nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			return value, nil
		})
}

// FailingTool returns a tool that always fails with msg.
func FailingTool(name, msg string) toolflow.Tool {
	return toolflow.NewTool(name, "always fails", nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New(msg)
		})
}

// FlakyTool fails its first `failures` calls, then succeeds with value.
type FlakyTool struct {
	name     string
	failures int
	value    any
	calls    atomic.Int32
}

func NewFlakyTool(name string, failures int, value any) *FlakyTool {
	return &FlakyTool{name: name, failures: failures, value: value}
}

func (t *FlakyTool) Spec() toolflow.ToolSpec {
	return toolflow.ToolSpec{Name: t.name, Description: "fails then succeeds"}
}

func (t *FlakyTool) Run(ctx context.Context, args map[string]any) (any, error) {
	n := t.calls.Add(1)
	if int(n) <= t.failures {
		return nil, fmt.Errorf("transient failure %d", n)
	}
	return t.value, nil
}

// Calls reports how many times the tool ran.
func (t *FlakyTool) Calls() int {
	return int(t.calls.Load())
}

// Recorder tracks the order in which its tools ran.
type Recorder struct {
	mu    sync.Mutex
	names []string
}

// Tool wraps a static outcome and records each invocation.
func (r *Recorder) Tool(name string, value any, err error) toolflow.Tool {
	return toolflow.NewTool(name, "records invocations", nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			r.mu.Lock()
			r.names = append(r.names, name)
			r.mu.Unlock()
			return value, err
		})
}

// Names returns the recorded invocation order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// ScriptedBackend returns canned completions in order and remembers the
// prompts it was given. It satisfies planner.Backend.
type ScriptedBackend struct {
	mu        sync.Mutex
	Responses []string
	Err       error
	prompts   []string
	calls     int
}

func (b *ScriptedBackend) Name() string { return "scripted" }

func (b *ScriptedBackend) Complete(ctx context.Context, req planner.CompletionRequest) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prompts = append(b.prompts, req.Prompt)
	if b.Err != nil {
		return "", b.Err
	}
	if b.calls >= len(b.Responses) {
		return "", errors.New("scripted backend: no responses left")
	}
	resp := b.Responses[b.calls]
	b.calls++
	return resp, nil
}

// Prompts returns every prompt the backend received.
func (b *ScriptedBackend) Prompts() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.prompts))
	copy(out, b.prompts)
	return out
}
