package toolflow

// Plan is a goal-derived, ordered list of steps produced by a planning
// component. Plans are immutable once generated.
type Plan struct {
	Goal      string     `json:"goal"`
	Reasoning string     `json:"reasoning,omitempty"`
	Steps     []PlanStep `json:"steps"`
}

// PlanStep is one planned tool invocation with its rationale.
type PlanStep struct {
	ToolName    string         `json:"tool_name"`
	Parameters  map[string]any `json:"parameters,omitempty"`
	Description string         `json:"description,omitempty"`
	Reasoning   string         `json:"reasoning,omitempty"`
}

// FlowSteps converts the plan into executable flow steps.
func (p *Plan) FlowSteps() []FlowStep {
	steps := make([]FlowStep, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = FlowStep{ToolName: s.ToolName, Parameters: s.Parameters}
	}
	return steps
}
