package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wrm3/toolflow"
)

var (
	ErrNoBackend = errors.New("planner: backend is required")
	ErrNoManager = errors.New("planner: flow manager is required")
	ErrNoGoal    = errors.New("planner: goal is required")
	ErrPlanParse = errors.New("planner: unusable plan")
)

const systemPrompt = `You are a planning assistant. Given a goal and a list of available tools, produce an ordered plan.
Respond with a single JSON object of the form:
{"reasoning": "...", "steps": [{"tool_name": "...", "parameters": {...}, "description": "...", "reasoning": "..."}]}
Only use tools from the provided list. Do not include any text outside the JSON object.`

// Planner generates executable plans from goals and hands them to a flow
// manager for sequential execution.
type Planner struct {
	backend   Backend
	manager   *toolflow.FlowManager
	maxTokens int
}

// Option is a functional option for a Planner.
type Option func(*Planner)

// WithMaxTokens caps the completion size used for plan generation.
func WithMaxTokens(n int) Option {
	return func(p *Planner) { p.maxTokens = n }
}

// New creates a Planner backed by a reasoning service. The manager may be
// nil when only GeneratePlan is needed; ExecutePlan then reports the
// missing manager in its result.
func New(backend Backend, manager *toolflow.FlowManager, opts ...Option) (*Planner, error) {
	if backend == nil {
		return nil, ErrNoBackend
	}
	p := &Planner{backend: backend, manager: manager, maxTokens: 4096}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// GeneratePlan asks the backend for an ordered plan toward goal using only
// the given tools. The response is validated before a Plan is returned:
// unparseable output, an empty step list, or a step naming an unavailable
// tool all yield an error wrapping ErrPlanParse, never a malformed Plan.
func (p *Planner) GeneratePlan(ctx context.Context, goal string, available map[string]toolflow.ToolSpec, ec *toolflow.ExecutionContext) (*toolflow.Plan, error) {
	if strings.TrimSpace(goal) == "" {
		return nil, ErrNoGoal
	}
	prompt, err := buildPrompt(goal, available, ec)
	if err != nil {
		return nil, err
	}
	raw, err := p.backend.Complete(ctx, CompletionRequest{
		System:    systemPrompt,
		Prompt:    prompt,
		MaxTokens: p.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("planner: backend %s: %w", p.backend.Name(), err)
	}
	return parsePlan(goal, raw, available)
}

// ExecutePlan runs the plan's steps as a sequential flow.
func (p *Planner) ExecutePlan(ctx context.Context, plan *toolflow.Plan, ec *toolflow.ExecutionContext) toolflow.FlowResult {
	if p.manager == nil {
		return toolflow.FlowResult{Error: ErrNoManager.Error()}
	}
	return p.manager.ExecuteFlow(ctx, toolflow.FlowSequential, plan.FlowSteps(), ec)
}
