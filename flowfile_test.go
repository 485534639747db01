package toolflow_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrm3/toolflow"
)

const sampleFlow = `
name: nightly-report
description: fetch data and summarize it
type: retry
steps:
  - tool: http_fetch
    parameters:
      url: https://example.com/data
    max_retries: 2
    retry_delay: 500ms
  - tool: summarize
    parameters:
      source: "${{ results }}"
    condition: "count > 0"
`

func TestParseFlowFile(t *testing.T) {
	f, err := toolflow.ParseFlowFile([]byte(sampleFlow))
	require.NoError(t, err)

	ft, err := f.FlowType()
	require.NoError(t, err)
	assert.Equal(t, toolflow.FlowRetry, ft)
	assert.Equal(t, "nightly-report", f.Name)

	require.Len(t, f.Steps, 2)
	assert.Equal(t, "http_fetch", f.Steps[0].ToolName)
	assert.Equal(t, 2, f.Steps[0].MaxRetries)
	assert.Equal(t, 500*time.Millisecond, f.Steps[0].RetryDelay)
	assert.Equal(t, "https://example.com/data", f.Steps[0].Parameters["url"])
	assert.Equal(t, "count > 0", f.Steps[1].Condition)
}

func TestParseFlowFileErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bad yaml", "steps: [", "parsing flow file"},
		{"bad type", "type: spiral\nsteps:\n  - tool: x", "unknown flow type"},
		{"no steps", "type: sequential\nsteps: []", "no steps"},
		{"step without tool", "type: sequential\nsteps:\n  - parameters: {}", "has no tool"},
		{"bad retry delay", "type: retry\nsteps:\n  - tool: x\n    retry_delay: fast", "retry_delay"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := toolflow.ParseFlowFile([]byte(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
