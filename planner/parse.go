package planner

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/wrm3/toolflow"
)

// parsePlan extracts and validates the plan JSON from a model response.
func parsePlan(goal, raw string, available map[string]toolflow.ToolSpec) (*toolflow.Plan, error) {
	doc := extractJSON(raw)
	if !gjson.Valid(doc) {
		return nil, fmt.Errorf("%w: response is not valid JSON", ErrPlanParse)
	}
	root := gjson.Parse(doc)

	stepsNode := root.Get("steps")
	if !stepsNode.IsArray() {
		return nil, fmt.Errorf("%w: missing steps array", ErrPlanParse)
	}
	stepNodes := stepsNode.Array()
	if len(stepNodes) == 0 {
		return nil, fmt.Errorf("%w: empty step list", ErrPlanParse)
	}

	plan := &toolflow.Plan{Goal: goal, Reasoning: root.Get("reasoning").String()}
	for i, node := range stepNodes {
		name := node.Get("tool_name").String()
		if name == "" {
			return nil, fmt.Errorf("%w: step %d has no tool_name", ErrPlanParse, i)
		}
		if _, ok := available[name]; !ok {
			return nil, fmt.Errorf("%w: step %d references unknown tool %q", ErrPlanParse, i, name)
		}
		params := map[string]any{}
		if pn := node.Get("parameters"); pn.IsObject() {
			if m, ok := pn.Value().(map[string]any); ok {
				params = m
			}
		}
		plan.Steps = append(plan.Steps, toolflow.PlanStep{
			ToolName:    name,
			Parameters:  params,
			Description: node.Get("description").String(),
			Reasoning:   node.Get("reasoning").String(),
		})
	}
	return plan, nil
}

// extractJSON strips a markdown code fence around the response if present,
// then falls back to the outermost JSON object.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		return strings.TrimSpace(s)
	}
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			return s[i : j+1]
		}
	}
	return s
}
