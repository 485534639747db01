// Package tools provides builtin tools for the registry.
package tools

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wrm3/toolflow"
	"github.com/wrm3/toolflow/sandbox"
)

// Code executes a sandboxed code snippet and returns its result variable
// together with captured output.
type Code struct {
	exec *sandbox.Executor
}

// NewCode wraps a sandbox executor as the "code_execute" tool.
func NewCode(exec *sandbox.Executor) *Code {
	return &Code{exec: exec}
}

func (c *Code) Spec() toolflow.ToolSpec {
	return toolflow.ToolSpec{
		Name:        "code_execute",
		Description: "Execute a sandboxed code snippet; assign to `result` to return a value",
		Parameters: map[string]toolflow.ParamSpec{
			"code":            {Type: "string", Description: "Source code to execute", Required: true},
			"timeout_seconds": {Type: "number", Description: "Per-call timeout override"},
		},
	}
}

func (c *Code) Run(ctx context.Context, args map[string]any) (any, error) {
	code, _ := args["code"].(string)
	if code == "" {
		return nil, errors.New("missing parameter: code")
	}
	if secs := asSeconds(args["timeout_seconds"]); secs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(secs*float64(time.Second)))
		defer cancel()
	}
	out := c.exec.Execute(ctx, code)
	if !out.Success {
		return nil, fmt.Errorf("%s: %s", out.Kind, out.Error)
	}
	res := map[string]any{
		"result": out.Result,
		"stdout": out.Stdout,
	}
	if out.Truncated {
		res["truncated"] = true
	}
	return res, nil
}

// asSeconds accepts the numeric types JSON and YAML decoding produce.
func asSeconds(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
