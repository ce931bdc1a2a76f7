// Package plot renders function-plot payloads for the kernel GUI from
// natural-language requests like "plot sin(x) from 0 to 6".
package plot

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	starmath "go.starlark.net/lib/math"
	"go.starlark.net/starlark"

	"agentbridge/pkg/config"
)

const (
	PayloadPrefix = "GUI_PLOT:"

	defaultSamples = 50
	defaultXMin    = -3.14
	defaultXMax    = 3.14
)

var (
	whitespaceRE = regexp.MustCompile(`\s+`)
	leadVerbRE   = regexp.MustCompile(`(?i)^(plot|graph|draw)\s+`)
	leadYeqRE    = regexp.MustCompile(`(?i)^y\s*=\s*`)
)

type payload struct {
	Title   string    `json:"title"`
	XValues []float64 `json:"x_values"`
	YValues []float64 `json:"y_values"`
}

// Tool samples a single-variable expression over a range and emits the
// tagged GUI payload the kernel plot window understands.
type Tool struct {
	samples int
}

func New(cfg config.PlotConfig) *Tool {
	samples := cfg.Samples
	if samples <= 0 {
		samples = defaultSamples
	}
	// The step divides by samples-1, so one sample cannot span a range.
	if samples < 2 {
		samples = 2
	}

	return &Tool{samples: samples}
}

// Render parses the request, evaluates the expression per sample and
// returns the tagged payload, or a usage hint when the request is too
// short to be a function.
func (t *Tool) Render(instructions string) (string, error) {
	funcExpr, xMin, xMax := parseRequest(instructions)
	if len(funcExpr) < 2 {
		return "Use: plot sin(x) from 0 to 6", nil
	}

	xs := make([]float64, t.samples)
	ys := make([]float64, t.samples)
	step := (xMax - xMin) / float64(t.samples-1)
	for i := 0; i < t.samples; i++ {
		x := xMin + float64(i)*step
		y, err := evalAt(funcExpr, x)
		if err != nil {
			return "", fmt.Errorf("evaluate %q: %w", funcExpr, err)
		}
		xs[i] = x
		ys[i] = y
	}

	body, err := json.Marshal(payload{
		Title:   "y = " + funcExpr,
		XValues: xs,
		YValues: ys,
	})
	if err != nil {
		return "", err
	}

	return PayloadPrefix + string(body), nil
}

// parseRequest strips leading plot verbs and splits an optional
// "from A to B" range suffix off the expression.
func parseRequest(instructions string) (expr string, xMin float64, xMax float64) {
	text := whitespaceRE.ReplaceAllString(strings.TrimSpace(instructions), " ")
	text = leadVerbRE.ReplaceAllString(text, "")
	text = leadYeqRE.ReplaceAllString(text, "")

	xMin, xMax = defaultXMin, defaultXMax

	lower := strings.ToLower(text)
	idx := strings.Index(lower, " from ")
	if idx < 0 {
		return strings.TrimSpace(text), xMin, xMax
	}

	expr = strings.TrimSpace(text[:idx])
	rangeStr := strings.TrimSpace(text[idx+len(" from "):])
	lo, hi, ok := parseRange(rangeStr)
	if ok {
		xMin, xMax = lo, hi
	}

	return expr, xMin, xMax
}

func parseRange(rangeStr string) (float64, float64, bool) {
	parts := strings.SplitN(strings.ToLower(rangeStr), " to ", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}

	lo, errLo := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	hi, errHi := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLo != nil || errHi != nil || lo >= hi {
		return 0, 0, false
	}

	return lo, hi, true
}

// evalAt evaluates the expression with x bound, using the starlark math
// module members as bare names so "sin(x)" works without qualification.
func evalAt(expr string, x float64) (float64, error) {
	env := starlark.StringDict{
		"x":    starlark.Float(x),
		"math": starmath.Module,
	}
	for name, member := range starmath.Module.Members {
		env[name] = member
	}

	thread := &starlark.Thread{Name: "plot"}
	value, err := starlark.Eval(thread, "expr", expr, env)
	if err != nil {
		return 0, err
	}

	result, ok := starlark.AsFloat(value)
	if !ok {
		return 0, errors.New("expression did not evaluate to a number")
	}

	return result, nil
}
