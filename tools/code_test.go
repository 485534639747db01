package tools_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrm3/toolflow/sandbox"
	"github.com/wrm3/toolflow/tools"
)

func newCodeTool() *tools.Code {
	return tools.NewCode(sandbox.NewExecutor(sandbox.Options{
		AllowedModules: []string{"math"},
		Timeout:        5 * time.Second,
	}))
}

func TestCodeRun(t *testing.T) {
	tool := newCodeTool()
	out, err := tool.Run(context.Background(), map[string]any{"code": `
print("working")
result = 6 * 7
`})
	require.NoError(t, err)
	got, ok := out.(map[string]any)
	require.True(t, ok, "result is %T", out)
	assert.Equal(t, int64(42), got["result"])
	assert.Equal(t, "working\n", got["stdout"])
	_, hasTruncated := got["truncated"]
	assert.False(t, hasTruncated)
}

func TestCodeRunRequiresCode(t *testing.T) {
	tool := newCodeTool()
	_, err := tool.Run(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing parameter: code")
}

func TestCodeRunValidationFailure(t *testing.T) {
	tool := newCodeTool()
	_, err := tool.Run(context.Background(), map[string]any{"code": `result = open("/etc/passwd")`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestCodeRunRuntimeFailure(t *testing.T) {
	tool := newCodeTool()
	_, err := tool.Run(context.Background(), map[string]any{"code": `result = 1 // 0`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "division by zero")
}

func TestCodeRunAllowedModule(t *testing.T) {
	tool := newCodeTool()
	out, err := tool.Run(context.Background(), map[string]any{"code": `
load("math", "math")
result = math.sqrt(81.0)
`})
	require.NoError(t, err)
	got := out.(map[string]any)
	assert.Equal(t, 9.0, got["result"])
}

func TestCodeRunTimeoutOverride(t *testing.T) {
	tool := newCodeTool()
	_, err := tool.Run(context.Background(), map[string]any{
		"code": `
x = 0
for i in range(1000000000):
    x += 1
result = x
`,
		"timeout_seconds": 0.05,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestCodeSpec(t *testing.T) {
	spec := newCodeTool().Spec()
	assert.Equal(t, "code_execute", spec.Name)
	require.Contains(t, spec.Parameters, "code")
	assert.True(t, spec.Parameters["code"].Required)
}
