package toolflow

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// evalCondition evaluates a step condition as a boolean against the current
// context values. Unknown keys are allowed at compile time so conditions can
// reference keys written by earlier steps.
func evalCondition(cond string, ec *ExecutionContext) (bool, error) {
	program, err := expr.Compile(cond, expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile: %w", err)
	}
	out, err := expr.Run(program, ec.Snapshot())
	if err != nil {
		return false, fmt.Errorf("eval: %w", err)
	}
	b, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("result %v is not a boolean", out)
	}
	return b, nil
}
