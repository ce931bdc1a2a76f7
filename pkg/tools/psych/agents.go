package psych

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const finalAnswerMarker = "FINAL ANSWER:"

var intRE = regexp.MustCompile(`\d+`)

// contestant is one agent under evaluation: a fixed profile plus a solve
// strategy. Scores accumulate per game key ("game1".."game3").
type contestant struct {
	name         string
	architecture string
	strengths    []string
	scores       map[string]int

	solve func(ctx context.Context, ask AskFunc, problem string, maxTurns int) (answer string, reasoning string)
}

func (c *contestant) total() int {
	sum := 0
	for _, score := range c.scores {
		sum += score
	}
	return sum
}

func (c *contestant) gamesWonAgainst(other *contestant) int {
	wins := 0
	for key, score := range c.scores {
		if score > other.scores[key] {
			wins++
		}
	}
	return wins
}

func newContestants() (*contestant, *contestant) {
	a := &contestant{
		name:         "Agent A",
		architecture: "ReAct (iterative)",
		strengths:    []string{"Tool emulation", "structured loops", "iterative solving"},
		scores:       map[string]int{},
		solve:        solveIterative,
	}
	b := &contestant{
		name:         "Agent B",
		architecture: "Chain-of-Thought",
		strengths:    []string{"Depth", "Linear Logic", "Completeness"},
		scores:       map[string]int{},
		solve:        solveChained,
	}
	return a, b
}

// solveIterative runs a think/act loop: each turn the model either commits
// to a final answer or names an action, which is answered with a simulated
// observation before the next turn.
func solveIterative(ctx context.Context, ask AskFunc, problem string, maxTurns int) (string, string) {
	instructions := `Analyze the situation.
You have access to a simulated calculator tool if needed (just ask).

Output your THOUGHT process.
If you have enough info, output FINAL ANSWER: [answer].
If you need to act, output ACTION: [action description].`

	transcript := "Problem: " + problem
	var reasoning strings.Builder

	for turn := 0; turn < maxTurns; turn++ {
		thought, err := ask(ctx, instructions+"\n\n"+transcript)
		if err != nil {
			return "Error", err.Error()
		}

		fmt.Fprintf(&reasoning, "\n[Thought]: %s...", clip(thought, 100))

		if idx := strings.Index(thought, finalAnswerMarker); idx >= 0 {
			answer := strings.TrimSpace(thought[idx+len(finalAnswerMarker):])
			return answer, reasoning.String()
		}

		observation := simulateAction(thought)
		transcript += "\n" + thought + "\nOBSERVATION: " + observation
	}

	return "Analysis incomplete.", reasoning.String()
}

// simulateAction stands in for real tool execution: a calculation request
// gets the sum of the first two integers it mentions, anything else a
// generic acknowledgement.
func simulateAction(request string) string {
	if strings.Contains(strings.ToLower(request), "calculate") {
		nums := intRE.FindAllString(request, 2)
		if len(nums) == 2 {
			a, errA := strconv.Atoi(nums[0])
			b, errB := strconv.Atoi(nums[1])
			if errA == nil && errB == nil {
				return fmt.Sprintf("Calculated: %d (Simulated)", a+b)
			}
		}
	}

	return "Simulating action..."
}

// solveChained walks a fixed reasoning chain: analyze, apply, verify, then
// conclude from the accumulated steps.
func solveChained(ctx context.Context, ask AskFunc, problem string, _ int) (string, string) {
	step1, err := ask(ctx, fmt.Sprintf("Problem: %s\n\nStep 1: Analyze the key terms and constraints.", problem))
	if err != nil {
		return "Error", err.Error()
	}

	step2, err := ask(ctx, fmt.Sprintf("Based on: %s\n\nStep 2: Apply logical rules or mathematical operations.", step1))
	if err != nil {
		return "Error", err.Error()
	}

	step3, err := ask(ctx, fmt.Sprintf("Based on: %s\n\nStep 3: Verify and refine.", step2))
	if err != nil {
		return "Error", err.Error()
	}

	steps := fmt.Sprintf("1. %s\n2. %s\n3. %s", step1, step2, step3)
	conclusion, err := ask(ctx, fmt.Sprintf("Based on these steps:\n%s\n\nGive the FINAL ANSWER.", steps))
	if err != nil {
		return "Error", err.Error()
	}

	reasoning := fmt.Sprintf("Step 1: %s...\nStep 2: %s...", clip(step1, 50), clip(step2, 50))
	return conclusion, reasoning
}

func clip(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
