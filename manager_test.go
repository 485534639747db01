package toolflow_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wrm3/toolflow"
	"github.com/wrm3/toolflow/internal/testutil"
)

func newManager(reg *toolflow.Registry) *toolflow.FlowManager {
	return toolflow.NewFlowManager(reg)
}

func TestSequentialFlowStopsOnFailure(t *testing.T) {
	rec := &testutil.Recorder{}
	reg := toolflow.NewRegistry()
	reg.Register(testutil.FailingTool("a", "a failed"))
	reg.Register(rec.Tool("b", "ok", nil))

	res := newManager(reg).ExecuteFlow(context.Background(), toolflow.FlowSequential,
		[]toolflow.FlowStep{{ToolName: "a"}, {ToolName: "b"}}, nil)

	require.False(t, res.Success)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "a failed", res.Error)
	assert.Empty(t, rec.Names(), "b must never run after a fails")
	assert.NotEmpty(t, res.RunID)
}

func TestSequentialFlowThreadsContext(t *testing.T) {
	reg := toolflow.NewRegistry()
	reg.Register(toolflow.NewTool("produce", "writes a context key", nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			toolflow.ContextFrom(ctx).Set("greeting", "hello")
			return "done", nil
		}))
	reg.Register(toolflow.NewTool("consume", "echoes its message", nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			return args["message"], nil
		}))

	ec := toolflow.NewExecutionContext(map[string]any{"name": "world"})
	res := newManager(reg).ExecuteFlow(context.Background(), toolflow.FlowSequential,
		[]toolflow.FlowStep{
			{ToolName: "produce"},
			{ToolName: "consume", Parameters: map[string]any{"message": "${{ greeting }} ${{ name }}"}},
		}, ec)

	require.True(t, res.Success, "flow failed: %s", res.Error)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "hello world", res.Results[1].Result)

	// Prior results accumulate under the conventional "results" key.
	accumulated, ok := ec.Get("results")
	require.True(t, ok)
	assert.Len(t, accumulated, 2)
}

func TestParallelFlowPreservesOrderAndAggregatesFailure(t *testing.T) {
	reg := toolflow.NewRegistry()
	reg.Register(toolflow.NewTool("slow-fail", "fails slowly", nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			time.Sleep(30 * time.Millisecond)
			return nil, assert.AnError
		}))
	reg.Register(testutil.StaticTool("fast-ok", "fast"))

	res := newManager(reg).ExecuteFlow(context.Background(), toolflow.FlowParallel,
		[]toolflow.FlowStep{{ToolName: "slow-fail"}, {ToolName: "fast-ok"}}, nil)

	require.Len(t, res.Results, 2, "all steps run despite the failure")
	assert.False(t, res.Success, "one failure fails the whole flow")
	// Results stay in step-definition order, not completion order.
	assert.Equal(t, "slow-fail", res.Results[0].ToolName)
	assert.Equal(t, "fast-ok", res.Results[1].ToolName)
	assert.False(t, res.Results[0].Success)
	assert.True(t, res.Results[1].Success)
	assert.Equal(t, res.Results[0].Error, res.Error)
}

func TestParallelFlowDisjointContextWrites(t *testing.T) {
	reg := toolflow.NewRegistry()
	var wg sync.WaitGroup // ensure steps overlap
	wg.Add(2)
	writer := func(key string) toolflow.Handler {
		return func(ctx context.Context, args map[string]any) (any, error) {
			wg.Done()
			wg.Wait()
			toolflow.ContextFrom(ctx).Set(key, key)
			return key, nil
		}
	}
	reg.Register(toolflow.NewTool("left", "writes left", nil, writer("left")))
	reg.Register(toolflow.NewTool("right", "writes right", nil, writer("right")))

	ec := toolflow.NewExecutionContext(nil)
	res := newManager(reg).ExecuteFlow(context.Background(), toolflow.FlowParallel,
		[]toolflow.FlowStep{{ToolName: "left"}, {ToolName: "right"}}, ec)

	require.True(t, res.Success)
	l, _ := ec.Get("left")
	r, _ := ec.Get("right")
	assert.Equal(t, "left", l)
	assert.Equal(t, "right", r)
}

func TestConditionalFlowSkipsFalseConditions(t *testing.T) {
	rec := &testutil.Recorder{}
	reg := toolflow.NewRegistry()
	reg.Register(rec.Tool("always", "ran", nil))
	reg.Register(rec.Tool("gated", "ran", nil))

	ec := toolflow.NewExecutionContext(map[string]any{"count": 2})
	res := newManager(reg).ExecuteFlow(context.Background(), toolflow.FlowConditional,
		[]toolflow.FlowStep{
			{ToolName: "always"},
			{ToolName: "gated", Condition: "count > 5"},
			{ToolName: "always", Condition: "count == 2"},
		}, ec)

	require.True(t, res.Success, "skipped steps must not fail the flow: %s", res.Error)
	require.Len(t, res.Results, 3)
	assert.True(t, res.Results[1].Skipped, "false condition must record a skip")
	assert.Empty(t, res.Results[1].Error)
	assert.Equal(t, []string{"always", "always"}, rec.Names())
}

func TestConditionalFlowBadConditionFailsStep(t *testing.T) {
	reg := toolflow.NewRegistry()
	reg.Register(testutil.StaticTool("x", 1))

	res := newManager(reg).ExecuteFlow(context.Background(), toolflow.FlowConditional,
		[]toolflow.FlowStep{{ToolName: "x", Condition: "count >"}}, nil)

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "condition")
}

func TestRetryFlowSucceedsAfterRetries(t *testing.T) {
	flaky := testutil.NewFlakyTool("flaky", 2, "finally")
	reg := toolflow.NewRegistry()
	reg.Register(flaky)

	res := newManager(reg).ExecuteFlow(context.Background(), toolflow.FlowRetry,
		[]toolflow.FlowStep{{ToolName: "flaky", MaxRetries: 2, RetryDelay: time.Millisecond}}, nil)

	require.True(t, res.Success, "flow failed: %s", res.Error)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "finally", res.Results[0].Result)
	assert.Equal(t, 3, res.Results[0].Attempts, "two retries after the initial attempt")
	assert.Equal(t, 3, flaky.Calls())
}

func TestRetryFlowExhaustsRetries(t *testing.T) {
	flaky := testutil.NewFlakyTool("flaky", 5, "never")
	reg := toolflow.NewRegistry()
	reg.Register(flaky)

	res := newManager(reg).ExecuteFlow(context.Background(), toolflow.FlowRetry,
		[]toolflow.FlowStep{{ToolName: "flaky", MaxRetries: 2}}, nil)

	require.False(t, res.Success)
	require.Len(t, res.Results, 1)
	assert.Equal(t, 3, res.Results[0].Attempts)
	assert.Contains(t, res.Error, "transient failure")
}

func TestFlowToolNotFoundIsAResultNotACrash(t *testing.T) {
	reg := toolflow.NewRegistry()
	res := newManager(reg).ExecuteFlow(context.Background(), toolflow.FlowSequential,
		[]toolflow.FlowStep{{ToolName: "ghost"}}, nil)

	require.False(t, res.Success)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "tool not found: ghost", res.Results[0].Error)
}

func TestPlanningFlowExpandsPlan(t *testing.T) {
	rec := &testutil.Recorder{}
	reg := toolflow.NewRegistry()
	reg.Register(rec.Tool("fetch", "data", nil))
	reg.Register(rec.Tool("summarize", "summary", nil))
	reg.Register(toolflow.NewTool("plan", "plans", nil,
		func(ctx context.Context, args map[string]any) (any, error) {
			return &toolflow.Plan{
				Goal: "summarize the data",
				Steps: []toolflow.PlanStep{
					{ToolName: "fetch"},
					{ToolName: "summarize"},
				},
			}, nil
		}))

	res := newManager(reg).ExecuteFlow(context.Background(), toolflow.FlowPlanning,
		[]toolflow.FlowStep{{ToolName: "plan", Parameters: map[string]any{"goal": "summarize the data"}}}, nil)

	require.True(t, res.Success, "flow failed: %s", res.Error)
	// Planning result plus the two expanded steps.
	require.Len(t, res.Results, 3)
	assert.Equal(t, "plan", res.Results[0].ToolName)
	assert.Equal(t, []string{"fetch", "summarize"}, rec.Names())
}

func TestPlanningFlowRejectsNonPlanResult(t *testing.T) {
	reg := toolflow.NewRegistry()
	reg.Register(testutil.StaticTool("plan", "not a plan"))

	res := newManager(reg).ExecuteFlow(context.Background(), toolflow.FlowPlanning,
		[]toolflow.FlowStep{{ToolName: "plan"}}, nil)

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "did not produce a plan")
}

func TestPlanningFlowRequiresSteps(t *testing.T) {
	reg := toolflow.NewRegistry()
	res := newManager(reg).ExecuteFlow(context.Background(), toolflow.FlowPlanning, nil, nil)
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "no steps")
}

func TestUnknownFlowType(t *testing.T) {
	reg := toolflow.NewRegistry()
	res := newManager(reg).ExecuteFlow(context.Background(), toolflow.FlowType("zigzag"), nil, nil)
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "unknown flow type")
}
