package psych

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const maxGameScore = 150

// answerKey is what a game holds back to judge the agents with.
type answerKey struct {
	expected string
	insight  string
}

// logicGame generates one fresh problem per run and scores free-text
// answers against its key. Generation and judging both lean on the model;
// every game keeps a static fallback so a bad generation never aborts the
// evaluation.
type logicGame interface {
	title() string
	generate(ctx context.Context, ask AskFunc) (string, answerKey)
	evaluate(ctx context.Context, ask AskFunc, answer string, reasoning string, key answerKey) (int, string)
}

func allGames() []logicGame {
	return []logicGame{patternGame{}, deductionGame{}, strategyGame{}}
}

// patternGame asks for the next number in a generated sequence.
type patternGame struct{}

func (patternGame) title() string { return "Pattern Recognition" }

func (patternGame) generate(ctx context.Context, ask AskFunc) (string, answerKey) {
	prompt := `Generate a unique pattern recognition problem involving a sequence of numbers.
The pattern should be moderately challenging (e.g., combination of alternating, geometric, or fibonacci-like).

OUTPUT FORMAT ONLY (JSON):
{
    "sequence": [1, 2, 4, 8, 16],
    "next_number": 32,
    "pattern_description": "Powers of 2",
    "explanation": "Each number is double the previous one."
}`

	var data struct {
		Sequence    []json.Number `json:"sequence"`
		NextNumber  json.Number   `json:"next_number"`
		Description string        `json:"pattern_description"`
	}
	if err := askJSON(ctx, ask, prompt, &data); err != nil || len(data.Sequence) == 0 {
		return "Fallback Sequence: 2, 4, 6, 8. What is next?", answerKey{expected: "10", insight: "Even numbers"}
	}

	parts := make([]string, len(data.Sequence))
	for i, n := range data.Sequence {
		parts[i] = n.String()
	}

	problem := fmt.Sprintf(`PATTERN RECOGNITION CHALLENGE

Observe the following sequence:
%s

Question: What number comes next in this sequence?

Instructions:
1. Identify the pattern
2. Explain the pattern
3. Give the next number`, strings.Join(parts, ", "))

	return problem, answerKey{expected: data.NextNumber.String(), insight: data.Description}
}

func (patternGame) evaluate(_ context.Context, _ AskFunc, answer string, reasoning string, key answerKey) (int, string) {
	score := 0
	var feedback []string

	if key.expected != "" && strings.Contains(answer, key.expected) {
		score += 100
		feedback = append(feedback, "✓ Correct answer!")
	} else {
		feedback = append(feedback, "✗ Expected "+key.expected)
	}

	if len(reasoning) > 20 {
		score += 50
		feedback = append(feedback, "✓ Reasoning provided")
	}

	if score > maxGameScore {
		score = maxGameScore
	}
	return score, strings.Join(feedback, " | ")
}

// deductionGame poses a generated syllogism or logic puzzle and has the
// model judge the answer semantically.
type deductionGame struct{}

func (deductionGame) title() string { return "Logical Deduction" }

func (deductionGame) generate(ctx context.Context, ask AskFunc) (string, answerKey) {
	prompt := `Generate a unique logical deduction puzzle with premises and a question.
It can be a syllogism, a spatial logic puzzle, or a truth-teller/liar puzzle.

OUTPUT FORMAT ONLY (JSON):
{
    "premises": ["Premise 1", "Premise 2"],
    "question": "The specific question asked",
    "answer": "The correct answer",
    "logical_rule": "Modus Ponens/Transitivity/etc"
}`

	var data struct {
		Premises    []string `json:"premises"`
		Question    string   `json:"question"`
		Answer      string   `json:"answer"`
		LogicalRule string   `json:"logical_rule"`
	}
	if err := askJSON(ctx, ask, prompt, &data); err != nil || len(data.Premises) == 0 {
		return "All men are mortal. Socrates is a man. Is Socrates mortal?", answerKey{expected: "Yes", insight: "Syllogism"}
	}

	premises := make([]string, len(data.Premises))
	for i, p := range data.Premises {
		premises[i] = "  • " + p
	}

	problem := fmt.Sprintf(`LOGICAL DEDUCTION CHALLENGE

Given the following premises:
%s

Question: %s

Instructions:
1. Analyze each premise carefully
2. Apply logical rules
3. State your conclusion with reasoning`, strings.Join(premises, "\n"), data.Question)

	return problem, answerKey{expected: data.Answer, insight: data.LogicalRule}
}

func (deductionGame) evaluate(ctx context.Context, ask AskFunc, answer string, _ string, key answerKey) (int, string) {
	prompt := fmt.Sprintf(`Compare the User Answer to the Correct Answer.
Context: %s
Correct Answer: %s
User Answer: %s

Is the User Answer correct? (YES/NO/PARTIAL)`, key.insight, key.expected, answer)

	verdict, err := ask(ctx, prompt)
	if err != nil {
		return 20, "✗ Judge unavailable. Expected: " + key.expected
	}

	switch upper := strings.ToUpper(verdict); {
	case strings.Contains(upper, "YES"):
		return maxGameScore, "✓ Correct conclusion verified by Judge"
	case strings.Contains(upper, "PARTIAL"):
		return 75, "~ Partially correct"
	default:
		return 20, "✗ Incorrect. Expected: " + key.expected
	}
}

// strategyGame poses a generated optimization scenario and has the model
// score the answer's strategic depth numerically.
type strategyGame struct{}

var scoreRE = regexp.MustCompile(`\d+`)

func (strategyGame) title() string { return "Strategic Planning" }

func (strategyGame) generate(ctx context.Context, ask AskFunc) (string, answerKey) {
	prompt := `Generate a short strategic planning or optimization scenario (e.g., scheduling, river crossing, knapsack problem).

OUTPUT FORMAT ONLY (JSON):
{
    "scenario": "Description of the situation and constraints",
    "question": "What is the optimal solution?",
    "optimal_solution": "The best answer",
    "key_insight": "The trick or method to solve it"
}`

	var data struct {
		Scenario        string `json:"scenario"`
		Question        string `json:"question"`
		OptimalSolution string `json:"optimal_solution"`
		KeyInsight      string `json:"key_insight"`
	}
	if err := askJSON(ctx, ask, prompt, &data); err != nil || data.Scenario == "" {
		return "Optimization failed. Default task.", answerKey{expected: "N/A", insight: "None"}
	}

	problem := fmt.Sprintf(`STRATEGIC PLANNING CHALLENGE

Scenario: %s

Question: %s

Instructions:
1. Identify all constraints
2. Consider different approaches
3. Find the optimal solution
4. Explain your strategy`, data.Scenario, data.Question)

	return problem, answerKey{expected: data.OptimalSolution, insight: data.KeyInsight}
}

func (strategyGame) evaluate(ctx context.Context, ask AskFunc, answer string, reasoning string, key answerKey) (int, string) {
	prompt := fmt.Sprintf(`Evaluate the strategic quality of this answer.
Scenario Solution: %s
Key Insight: %s

User Answer: %s
User Reasoning: %s

Score from 0 to 150 based on correctness and strategic depth. Output ONLY the number.`, key.expected, key.insight, answer, reasoning)

	verdict, err := ask(ctx, prompt)
	if err == nil {
		if match := scoreRE.FindString(verdict); match != "" {
			score, convErr := strconv.Atoi(match)
			if convErr == nil {
				if score > maxGameScore {
					score = maxGameScore
				}
				return score, fmt.Sprintf("Judge Score: %d/%d", score, maxGameScore)
			}
		}
	}

	return 70, "Judge evaluation failed, default score."
}

// askJSON prompts for structured output and parses the reply, tolerating a
// markdown code fence around the JSON body.
func askJSON(ctx context.Context, ask AskFunc, prompt string, out any) error {
	response, err := ask(ctx, prompt)
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(stripCodeFence(response)), out)
}

func stripCodeFence(text string) string {
	if idx := strings.Index(text, "```json"); idx >= 0 {
		text = text[idx+len("```json"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+len("```"):]
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}

	return strings.TrimSpace(text)
}
