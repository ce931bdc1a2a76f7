// Package psych runs a head-to-head reasoning evaluation between two agent
// architectures and streams live progress to the kernel shell while the
// games play out.
package psych

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"agentbridge/pkg/bridge"
	"agentbridge/pkg/config"
	"agentbridge/pkg/wire"
)

const (
	defaultStepDelay = 300 * time.Millisecond
	defaultMaxTurns  = 5
)

// AskFunc sends one standalone prompt to the model and returns its text.
type AskFunc func(ctx context.Context, prompt string) (string, error)

type gameResult struct {
	number int
	name   string
	winner string
	scoreA int
	scoreB int
}

// Tool orchestrates the evaluation: both contestants play every game, the
// games judge the answers, and the run ends with a leaderboard, SWOT
// analysis and recommendation. A nil AskFunc disables the tool.
type Tool struct {
	ask       AskFunc
	stepDelay time.Duration
	maxTurns  int

	nextStreamID int
}

func New(cfg config.PsychConfig, ask AskFunc) *Tool {
	stepDelay := time.Duration(cfg.StepDelayMs) * time.Millisecond
	if cfg.StepDelayMs <= 0 {
		stepDelay = defaultStepDelay
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}

	return &Tool{ask: ask, stepDelay: stepDelay, maxTurns: maxTurns}
}

// Run plays all games to completion and returns the formatted report. When
// the context carries a stream sender, every stage goes out live as plain
// response text for the kernel shell.
func (t *Tool) Run(ctx context.Context) (string, error) {
	if t.ask == nil {
		return "Agent evaluation requires a configured model provider.", nil
	}

	divider := strings.Repeat("=", 60)
	t.stream(ctx, fmt.Sprintf("\n%s\n   🧠 AGENT PSYCHOLOGY TEST 🧠\n   Evaluating Agent Reasoning Capabilities\n%s\n", divider, divider))

	agentA, agentB := newContestants()
	t.stream(ctx, fmt.Sprintf("\n📋 Agents Initiated:\n   Agent A: %s\n   Agent B: %s\n", agentA.architecture, agentB.architecture))

	var results []gameResult
	for idx, game := range allGames() {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		number := idx + 1
		key := fmt.Sprintf("game%d", number)

		problem, answer := game.generate(ctx, t.ask)
		t.stream(ctx, fmt.Sprintf("\n%s\n   GAME %d: %s\n%s\n\n%s...\n", divider, number, strings.ToUpper(game.title()), divider, clip(problem, 200)))

		scoreA := t.runContestant(ctx, agentA, game, problem, answer, key)
		scoreB := t.runContestant(ctx, agentB, game, problem, answer, key)

		winner := "TIE"
		switch {
		case scoreA > scoreB:
			winner = agentA.name
			t.stream(ctx, fmt.Sprintf("\n   🏆 Game %d Winner: %s (+%d)\n", number, winner, scoreA-scoreB))
		case scoreB > scoreA:
			winner = agentB.name
			t.stream(ctx, fmt.Sprintf("\n   🏆 Game %d Winner: %s (+%d)\n", number, winner, scoreB-scoreA))
		default:
			t.stream(ctx, fmt.Sprintf("\n   🤝 Game %d: TIE\n", number))
		}

		results = append(results, gameResult{number: number, name: game.title(), winner: winner, scoreA: scoreA, scoreB: scoreB})

		if err := sleepFor(ctx, t.stepDelay); err != nil {
			return "", err
		}
	}

	return renderReport(agentA, agentB, results), nil
}

func (t *Tool) runContestant(ctx context.Context, c *contestant, game logicGame, problem string, answer answerKey, key string) int {
	t.stream(ctx, fmt.Sprintf("\n>>> %s (%s) thinking...", c.name, c.architecture))
	_ = sleepFor(ctx, t.stepDelay)

	given, reasoning := c.solve(ctx, t.ask, problem, t.maxTurns)
	score, feedback := game.evaluate(ctx, t.ask, given, reasoning, answer)
	c.scores[key] = score

	t.stream(ctx, fmt.Sprintf("   Answer: %s...\n   Score: %d/%d\n   Feedback: %s\n", clip(given, 50), score, maxGameScore, feedback))
	return score
}

// stream pushes one progress message through the context sender when one
// is present. These go out as plain responses for the shell console, not
// GUI payloads; a lost message only costs one progress line.
func (t *Tool) stream(ctx context.Context, text string) {
	sender, ok := bridge.SenderFromContext(ctx)
	if !ok {
		return
	}

	_ = sender(wire.Envelope{
		ID:      t.nextStreamID,
		Target:  wire.TargetShell,
		MsgType: wire.MsgTypeResponse,
		Content: text,
	})
	t.nextStreamID++
}

func sleepFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func sortKeys(scores map[string]int) []string {
	keys := make([]string, 0, len(scores))
	for key := range scores {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
