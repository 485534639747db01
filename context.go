package toolflow

import (
	"context"
	"sync"
)

// ExecutionContext is the mutable key/value state shared by every step of one
// flow invocation. It is created fresh per ExecuteFlow call and discarded
// when the flow returns. Access is guarded because PARALLEL flows touch it
// from several goroutines; steps that run in parallel should still write
// disjoint keys. For concurrent same-key writes the last writer wins.
type ExecutionContext struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewExecutionContext seeds a context from caller data. The seed map is
// copied so the caller's map is never mutated by the flow.
func NewExecutionContext(seed map[string]any) *ExecutionContext {
	values := make(map[string]any, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &ExecutionContext{values: values}
}

// Get returns the value stored under key.
func (c *ExecutionContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Set stores value under key.
func (c *ExecutionContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Delete removes key.
func (c *ExecutionContext) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}

// Len returns the number of stored keys.
func (c *ExecutionContext) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Snapshot returns a shallow copy of the current values.
func (c *ExecutionContext) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// appendResult accumulates a step result under the conventional "results"
// key so later steps and conditions can read prior outcomes.
func (c *ExecutionContext) appendResult(res ToolResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, _ := c.values["results"].([]ToolResult)
	c.values["results"] = append(prev, res)
}

type ecKey struct{}

func withExecutionContext(ctx context.Context, ec *ExecutionContext) context.Context {
	return context.WithValue(ctx, ecKey{}, ec)
}

// ContextFrom returns the flow's ExecutionContext when ctx originates from a
// flow invocation, or nil for direct tool runs.
func ContextFrom(ctx context.Context) *ExecutionContext {
	ec, _ := ctx.Value(ecKey{}).(*ExecutionContext)
	return ec
}
