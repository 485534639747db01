package planner

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/tidwall/sjson"
	"github.com/wrm3/toolflow"
)

// buildPrompt renders the planning request as a JSON document: the goal, the
// available tool schemas, and the keys already present in the execution
// context. Tools are emitted in name order so prompts are deterministic.
func buildPrompt(goal string, available map[string]toolflow.ToolSpec, ec *toolflow.ExecutionContext) (string, error) {
	payload, err := sjson.Set("{}", "goal", goal)
	if err != nil {
		return "", fmt.Errorf("planner: building prompt: %w", err)
	}

	for _, name := range sortedNames(available) {
		raw, err := json.Marshal(available[name])
		if err != nil {
			return "", fmt.Errorf("planner: encoding spec %q: %w", name, err)
		}
		if payload, err = sjson.SetRaw(payload, "tools.-1", string(raw)); err != nil {
			return "", fmt.Errorf("planner: building prompt: %w", err)
		}
	}

	if ec != nil {
		keys := make([]string, 0, ec.Len())
		for k := range ec.Snapshot() {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if payload, err = sjson.Set(payload, "context_keys.-1", k); err != nil {
				return "", fmt.Errorf("planner: building prompt: %w", err)
			}
		}
	}
	return payload, nil
}

func sortedNames(specs map[string]toolflow.ToolSpec) []string {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
