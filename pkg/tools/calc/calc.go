// Package calc evaluates arithmetic expressions for the calculator task
// path.
package calc

import (
	"errors"
	"fmt"
	"strings"

	starmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"
)

// Evaluate computes a math expression and formats the result the way the
// shell front-end expects. Failures come back as user-facing text rather
// than an error so a bad expression still produces a reply.
func Evaluate(expression string) string {
	expression = normalize(expression)
	if expression == "" {
		return "Error in calculation: empty expression"
	}

	env := starlark.StringDict{"math": starmath.Module}
	for name, member := range starmath.Module.Members {
		env[name] = member
	}

	thread := &starlark.Thread{Name: "calc"}
	value, err := starlark.Eval(thread, "expr", expression, env)
	if err != nil {
		return fmt.Sprintf("Error in calculation: %v", evalError(err))
	}

	return "Result: " + formatValue(value)
}

// normalize maps common textual operators onto starlark syntax.
func normalize(expression string) string {
	expression = strings.TrimSpace(expression)
	expression = strings.ReplaceAll(expression, "^", "**")
	return expression
}

func formatValue(value starlark.Value) string {
	if f, ok := starlark.AsFloat(value); ok {
		// Integral floats read better without the trailing ".0".
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%g", f)
	}

	return value.String()
}

func evalError(err error) string {
	var evalErr *starlark.EvalError
	if errors.As(err, &evalErr) {
		return evalErr.Msg
	}

	return err.Error()
}
