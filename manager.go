package toolflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FlowManager executes flow step lists against a registry under one of the
// five FlowType semantics. Step-level failures are reported through the
// returned FlowResult, never as a Go error.
type FlowManager struct {
	registry *Registry
	trace    *TraceLogger
}

// ManagerOption configures a FlowManager.
type ManagerOption func(*FlowManager)

// WithTrace attaches a trace logger recording flow lifecycle events.
func WithTrace(t *TraceLogger) ManagerOption {
	return func(m *FlowManager) { m.trace = t }
}

// NewFlowManager creates a manager resolving tools from registry.
func NewFlowManager(registry *Registry, opts ...ManagerOption) *FlowManager {
	m := &FlowManager{registry: registry}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ExecuteFlow runs steps under flowType semantics. A nil ec starts from an
// empty context; the context is shared by reference across all steps and
// reachable from tools via ContextFrom.
func (m *FlowManager) ExecuteFlow(ctx context.Context, flowType FlowType, steps []FlowStep, ec *ExecutionContext) FlowResult {
	if ec == nil {
		ec = NewExecutionContext(nil)
	}
	runID := uuid.NewString()
	ctx = withExecutionContext(ctx, ec)

	m.trace.Log(TraceRecord{Type: "flow_start", RunID: runID, Data: map[string]any{"flow_type": flowType, "steps": len(steps)}})

	var result FlowResult
	switch flowType {
	case FlowSequential:
		result = m.runSequential(ctx, steps, ec, false)
	case FlowConditional:
		result = m.runSequential(ctx, steps, ec, true)
	case FlowRetry:
		result = m.runRetry(ctx, steps, ec)
	case FlowParallel:
		result = m.runParallel(ctx, steps, ec)
	case FlowPlanning:
		result = m.runPlanning(ctx, steps, ec)
	default:
		result = FlowResult{Error: fmt.Sprintf("unknown flow type: %q", flowType)}
	}
	result.RunID = runID

	m.trace.Log(TraceRecord{Type: "flow_end", RunID: runID, Data: map[string]any{"success": result.Success, "error": result.Error, "results": len(result.Results)}})
	return result
}

// runStep resolves the step's parameters against the context and invokes the
// tool through the registry boundary.
func (m *FlowManager) runStep(ctx context.Context, step FlowStep, ec *ExecutionContext) ToolResult {
	args, err := resolveParams(step.Parameters, ec)
	if err != nil {
		return ToolResult{ToolName: step.ToolName, Error: err.Error()}
	}
	return m.registry.Run(ctx, step.ToolName, args)
}

func (m *FlowManager) runSequential(ctx context.Context, steps []FlowStep, ec *ExecutionContext, conditional bool) FlowResult {
	results := make([]ToolResult, 0, len(steps))
	for _, step := range steps {
		if conditional && step.Condition != "" {
			ok, err := evalCondition(step.Condition, ec)
			if err != nil {
				res := ToolResult{ToolName: step.ToolName, Error: fmt.Sprintf("condition %q: %v", step.Condition, err)}
				results = append(results, res)
				return FlowResult{Results: results, Error: res.Error}
			}
			if !ok {
				results = append(results, ToolResult{ToolName: step.ToolName, Skipped: true})
				continue
			}
		}
		res := m.runStep(ctx, step, ec)
		results = append(results, res)
		ec.appendResult(res)
		if !res.Success {
			return FlowResult{Results: results, Error: res.Error}
		}
	}
	return FlowResult{Success: true, Results: results}
}

func (m *FlowManager) runRetry(ctx context.Context, steps []FlowStep, ec *ExecutionContext) FlowResult {
	results := make([]ToolResult, 0, len(steps))
	for _, step := range steps {
		res := m.runStepWithRetry(ctx, step, ec)
		results = append(results, res)
		ec.appendResult(res)
		if !res.Success {
			return FlowResult{Results: results, Error: res.Error}
		}
	}
	return FlowResult{Success: true, Results: results}
}

// runStepWithRetry attempts a step up to 1+MaxRetries times, waiting
// RetryDelay between attempts. The returned result carries the total
// attempt count.
func (m *FlowManager) runStepWithRetry(ctx context.Context, step FlowStep, ec *ExecutionContext) ToolResult {
	attempts := 0
	for {
		attempts++
		res := m.runStep(ctx, step, ec)
		res.Attempts = attempts
		if res.Success || attempts > step.MaxRetries {
			return res
		}
		m.trace.Log(TraceRecord{Type: "step_retry", Tool: step.ToolName, Data: map[string]any{"attempt": attempts, "error": res.Error}})
		if step.RetryDelay > 0 {
			timer := time.NewTimer(step.RetryDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				res.Error = fmt.Sprintf("retry interrupted: %v", ctx.Err())
				return res
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			res.Error = fmt.Sprintf("retry interrupted: %v", ctx.Err())
			return res
		}
	}
}

// runParallel dispatches every step concurrently and waits for all of them.
// Results keep step-definition order so callers can correlate by index.
func (m *FlowManager) runParallel(ctx context.Context, steps []FlowStep, ec *ExecutionContext) FlowResult {
	results := make([]ToolResult, len(steps))
	var wg sync.WaitGroup
	for i, step := range steps {
		wg.Go(func() {
			results[i] = m.runStep(ctx, step, ec)
		})
	}
	wg.Wait()

	out := FlowResult{Success: true, Results: results}
	for _, res := range results {
		ec.appendResult(res)
		if !res.Success && !res.Skipped {
			out.Success = false
			if out.Error == "" {
				out.Error = res.Error
			}
		}
	}
	return out
}

// runPlanning treats the first step as a planning tool whose result is a
// *Plan, then macro-expands the plan (plus any trailing steps) into a
// sequential run sharing the same context.
func (m *FlowManager) runPlanning(ctx context.Context, steps []FlowStep, ec *ExecutionContext) FlowResult {
	if len(steps) == 0 {
		return FlowResult{Error: ErrNoSteps.Error()}
	}
	planRes := m.runStep(ctx, steps[0], ec)
	if !planRes.Success {
		return FlowResult{Results: []ToolResult{planRes}, Error: planRes.Error}
	}
	plan, ok := planRes.Result.(*Plan)
	if !ok {
		if v, isValue := planRes.Result.(Plan); isValue {
			plan, ok = &v, true
		}
	}
	if !ok {
		err := fmt.Sprintf("planning step %q did not produce a plan", steps[0].ToolName)
		return FlowResult{Results: []ToolResult{planRes}, Error: err}
	}

	expandedSteps := append(plan.FlowSteps(), steps[1:]...)
	m.trace.Log(TraceRecord{Type: "plan_expanded", Tool: steps[0].ToolName, Data: map[string]any{"goal": plan.Goal, "steps": len(expandedSteps)}})

	result := m.runSequential(ctx, expandedSteps, ec, false)
	result.Results = append([]ToolResult{planRes}, result.Results...)
	return result
}
