package toolflow

import (
	"fmt"
	"regexp"

	"github.com/expr-lang/expr"
)

var exprPattern = regexp.MustCompile(`\$\{\{\s*(.+?)\s*\}\}`)

// resolveParams resolves ${{ expression }} references in step parameters
// against the current context values, recursing into nested maps and lists.
func resolveParams(params map[string]any, ec *ExecutionContext) (map[string]any, error) {
	env := ec.Snapshot()
	out := make(map[string]any, len(params))
	for k, v := range params {
		resolved, err := resolveValue(v, env)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", k, err)
		}
		out[k] = resolved
	}
	return out, nil
}

func resolveValue(v any, env map[string]any) (any, error) {
	switch val := v.(type) {
	case string:
		return resolveString(val, env)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			resolved, err := resolveValue(item, env)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			resolved, err := resolveValue(item, env)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return v, nil
	}
}

// resolveString replaces ${{ ... }} expressions. A string that is exactly one
// expression keeps the raw value type; otherwise matches are interpolated.
func resolveString(s string, env map[string]any) (any, error) {
	match := exprPattern.FindStringSubmatch(s)
	if match == nil {
		return s, nil
	}
	if match[0] == s {
		return evalExpr(match[1], env)
	}

	var evalErr error
	result := exprPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := exprPattern.FindStringSubmatch(m)
		val, err := evalExpr(sub[1], env)
		if err != nil {
			evalErr = err
			return m
		}
		return fmt.Sprintf("%v", val)
	})
	return result, evalErr
}

func evalExpr(code string, env map[string]any) (any, error) {
	program, err := expr.Compile(code, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", code, err)
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("eval %q: %w", code, err)
	}
	return out, nil
}
