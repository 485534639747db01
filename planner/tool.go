package planner

import (
	"context"
	"errors"

	"github.com/wrm3/toolflow"
)

// PlanTool exposes the planner as a registry tool named "plan" so PLANNING
// flows can macro-expand a goal into executable steps.
type PlanTool struct {
	planner  *Planner
	registry *toolflow.Registry
}

// NewPlanTool wraps a planner and the registry whose tools plans may use.
func NewPlanTool(p *Planner, registry *toolflow.Registry) *PlanTool {
	return &PlanTool{planner: p, registry: registry}
}

func (t *PlanTool) Spec() toolflow.ToolSpec {
	return toolflow.ToolSpec{
		Name:        "plan",
		Description: "Generate an ordered tool plan for a goal using the registered tools",
		Parameters: map[string]toolflow.ParamSpec{
			"goal": {Type: "string", Description: "Natural-language goal to plan for", Required: true},
		},
	}
}

// Run generates a plan for args["goal"]. The result is a *toolflow.Plan,
// which the flow manager expands when running a PLANNING flow.
func (t *PlanTool) Run(ctx context.Context, args map[string]any) (any, error) {
	goal, _ := args["goal"].(string)
	if goal == "" {
		return nil, errors.New("missing parameter: goal")
	}
	available := t.registry.Schemas()
	// A generated plan must not recurse into planning.
	delete(available, t.Spec().Name)
	return t.planner.GeneratePlan(ctx, goal, available, toolflow.ContextFrom(ctx))
}
