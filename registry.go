package toolflow

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
)

// Registry holds the named tools of one orchestration session.
// It never raises to its caller for a missing or failing tool: lookup
// misses, tool errors and tool panics all come back as failed ToolResults.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
	trace *TraceLogger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryTrace attaches a trace logger recording every tool run.
func WithRegistryTrace(t *TraceLogger) RegistryOption {
	return func(r *Registry) { r.trace = t }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores a tool under its spec name. Re-registering a name silently
// replaces the prior entry; the name keeps its original List position.
func (r *Registry) Register(t Tool) {
	name := t.Spec().Name
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = t
}

// Unregister removes a tool; it is a no-op for unknown names.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		return
	}
	delete(r.tools, name)
	if i := slices.Index(r.order, name); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Has checks whether a tool is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// List returns all tool names in registration order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Schemas returns the spec of every registered tool, keyed by name,
// suitable for advertising capabilities to a planner.
func (r *Registry) Schemas() map[string]ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]ToolSpec, len(r.tools))
	for name, t := range r.tools {
		out[name] = t.Spec()
	}
	return out
}

// Run executes a tool by name and always returns a ToolResult.
func (r *Registry) Run(ctx context.Context, name string, args map[string]any) ToolResult {
	start := time.Now()
	res := r.run(ctx, name, args)
	res.Duration = time.Since(start)
	r.trace.Log(TraceRecord{
		Type: "tool_run",
		Tool: name,
		Data: map[string]any{"success": res.Success, "error": res.Error, "duration_ms": res.Duration.Milliseconds()},
	})
	return res
}

func (r *Registry) run(ctx context.Context, name string, args map[string]any) (res ToolResult) {
	tool, ok := r.Get(name)
	if !ok {
		return ToolResult{ToolName: name, Error: fmt.Sprintf("%s: %s", ErrToolNotFound, name)}
	}
	defer func() {
		if p := recover(); p != nil {
			res = ToolResult{ToolName: name, Error: fmt.Sprintf("tool %s panicked: %v", name, p)}
		}
	}()
	value, err := tool.Run(ctx, args)
	if err != nil {
		return ToolResult{ToolName: name, Error: err.Error()}
	}
	return ToolResult{ToolName: name, Success: true, Result: value}
}

// ChainStep pairs a tool name with its arguments for RunChain.
type ChainStep struct {
	ToolName string         `json:"tool_name"`
	Args     map[string]any `json:"args,omitempty"`
}

// RunChain runs each step in order, continuing past failures. The chain as a
// whole never fails; each entry stands alone in the returned slice.
func (r *Registry) RunChain(ctx context.Context, steps []ChainStep) []ToolResult {
	results := make([]ToolResult, 0, len(steps))
	for _, s := range steps {
		results = append(results, r.Run(ctx, s.ToolName, s.Args))
	}
	return results
}
