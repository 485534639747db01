package toolflow

import (
	"fmt"
	"strings"
	"time"
)

// FlowType selects the execution semantics of a flow.
type FlowType string

const (
	FlowSequential  FlowType = "sequential"
	FlowParallel    FlowType = "parallel"
	FlowConditional FlowType = "conditional"
	FlowRetry       FlowType = "retry"
	FlowPlanning    FlowType = "planning"
)

// ParseFlowType normalizes a flow type string.
func ParseFlowType(s string) (FlowType, error) {
	switch ft := FlowType(strings.ToLower(strings.TrimSpace(s))); ft {
	case FlowSequential, FlowParallel, FlowConditional, FlowRetry, FlowPlanning:
		return ft, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrBadFlowType, s)
	}
}

// FlowStep is one instruction inside a flow. Condition applies only to
// CONDITIONAL flows; MaxRetries and RetryDelay only to RETRY flows.
type FlowStep struct {
	ToolName   string         `json:"tool_name"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Condition  string         `json:"condition,omitempty"`
	MaxRetries int            `json:"max_retries,omitempty"`
	RetryDelay time.Duration  `json:"retry_delay,omitempty"`
}

// FlowResult is the outcome of an entire flow. Results holds one entry per
// step attempted, in execution order for sequential flavors and in
// step-definition order for PARALLEL. Error carries the first failing
// step's error when Success is false.
type FlowResult struct {
	RunID   string       `json:"run_id,omitempty"`
	Success bool         `json:"success"`
	Results []ToolResult `json:"results"`
	Error   string       `json:"error,omitempty"`
}
