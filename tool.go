package toolflow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ParamSpec describes a single declared tool parameter.
type ParamSpec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// ToolSpec is the declarative tool schema advertised to callers and planners.
type ToolSpec struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Parameters  map[string]ParamSpec `json:"parameters,omitempty"`
}

// Tool is an executable capability. Run reports failure through the error
// return; the registry converts it into a failed ToolResult at the boundary.
type Tool interface {
	Spec() ToolSpec
	Run(ctx context.Context, args map[string]any) (any, error)
}

// ToolResult is the normalized outcome of one tool invocation.
// Exactly one of Result and Error is meaningful, selected by Success.
type ToolResult struct {
	ToolName string        `json:"tool_name"`
	Success  bool          `json:"success"`
	Result   any           `json:"result,omitempty"`
	Error    string        `json:"error,omitempty"`
	Skipped  bool          `json:"skipped,omitempty"`
	Attempts int           `json:"attempts,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// OK reports whether the invocation ran and succeeded.
func (r ToolResult) OK() bool { return r.Success && !r.Skipped }

// Handler is the function signature for function-backed tools.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// NewTool wraps a plain function as a Tool. Parameters marked Required are
// checked before the handler runs.
func NewTool(name, description string, params map[string]ParamSpec, fn Handler) Tool {
	return &funcTool{
		spec: ToolSpec{Name: name, Description: description, Parameters: params},
		fn:   fn,
	}
}

type funcTool struct {
	spec ToolSpec
	fn   Handler
}

func (t *funcTool) Spec() ToolSpec { return t.spec }

func (t *funcTool) Run(ctx context.Context, args map[string]any) (any, error) {
	if err := checkRequired(t.spec, args); err != nil {
		return nil, err
	}
	return t.fn(ctx, args)
}

// checkRequired reports every declared-required parameter absent from args.
func checkRequired(spec ToolSpec, args map[string]any) error {
	var missing []string
	for name, p := range spec.Parameters {
		if !p.Required {
			continue
		}
		if _, ok := args[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return fmt.Errorf("missing parameter: %s", strings.Join(missing, ", "))
}
