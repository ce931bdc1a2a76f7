package psych

import (
	"fmt"
	"strings"
)

// renderReport formats the final tabular summary: leaderboard, per-game
// performance, SWOT analysis and the recommendation.
func renderReport(a *contestant, b *contestant, results []gameResult) string {
	var out strings.Builder

	out.WriteString("\n🧠 AGENT PSYCHOLOGY TEST COMPLETE 🧠\n\n")

	winner, loser := a, b
	if b.total() > a.total() {
		winner, loser = b, a
	}
	tied := a.total() == b.total()

	out.WriteString(boxTop(56))
	out.WriteString(boxRow("                   🏆 LEADERBOARD", 56))
	out.WriteString("├──────┬──────────────┬──────────────────┬───────────────┤\n")
	out.WriteString("│ Rank │ Agent        │ Architecture     │ Score         │\n")
	out.WriteString("├──────┼──────────────┼──────────────────┼───────────────┤\n")
	if tied {
		out.WriteString(fmt.Sprintf("│ #%-3d │ %-12s │ %-16s │ %5d pts    │\n", 1, "TIE", "Both", a.total()))
	} else {
		out.WriteString(fmt.Sprintf("│ #%-3d │ %-12s │ %-16s │ %5d pts    │\n", 1, winner.name, clip(winner.architecture, 16), winner.total()))
		out.WriteString(fmt.Sprintf("│ #%-3d │ %-12s │ %-16s │ %5d pts    │\n", 2, loser.name, clip(loser.architecture, 16), loser.total()))
	}
	out.WriteString("└──────┴──────────────┴──────────────────┴───────────────┘\n\n")

	out.WriteString(boxTop(56))
	out.WriteString(boxRow("                 🎮 STAGE PERFORMANCE", 56))
	out.WriteString("├──────────┬──────────────────────┬─────────────┬────────┤\n")
	out.WriteString("│ Stage    │ Game                 │ Winner      │ Margin │\n")
	out.WriteString("├──────────┼──────────────────────┼─────────────┼────────┤\n")
	for _, result := range results {
		margin := result.scoreA - result.scoreB
		if margin < 0 {
			margin = -margin
		}
		out.WriteString(fmt.Sprintf("│ Game %-3d │ %-20s │ %-11s │ +%-5d │\n", result.number, clip(result.name, 20), result.winner, margin))
	}
	out.WriteString("└──────────┴──────────────────────┴─────────────┴────────┘\n\n")

	out.WriteString(renderSWOT(a, b))
	out.WriteString("\n")

	findings, recommendation := keyFindings(a, b)
	out.WriteString(boxTop(56))
	out.WriteString(boxRow("                 🧠 REASON OF CHOICE", 56))
	out.WriteString("├────────────────────────────────────────────────────────┤\n")
	out.WriteString("│ Key Findings:                                          │\n")
	for _, finding := range findings {
		out.WriteString(fmt.Sprintf("│ • %-52s │\n", clip(finding, 52)))
	}
	out.WriteString("├────────────────────────────────────────────────────────┤\n")
	out.WriteString("│ Recommendation:                                        │\n")
	out.WriteString(fmt.Sprintf("│ %-54s │\n", clip(recommendation, 54)))
	out.WriteString("└────────────────────────────────────────────────────────┘")

	return out.String()
}

func keyFindings(a *contestant, b *contestant) ([]string, string) {
	switch {
	case a.total() > b.total():
		return []string{
			fmt.Sprintf("%s (%s) outperformed by %d points", a.name, a.architecture, a.total()-b.total()),
			"The iterative approach proved effective",
		}, "Use the iterative architecture for similar reasoning tasks"
	case b.total() > a.total():
		return []string{
			fmt.Sprintf("%s (%s) outperformed by %d points", b.name, b.architecture, b.total()-a.total()),
			"Chain-of-Thought's structured reasoning excelled",
		}, "Use the CoT architecture for similar reasoning tasks"
	default:
		return []string{"Both architectures performed equally"}, "Either architecture suitable for this task type"
	}
}

type swot struct {
	strengths     []string
	weaknesses    []string
	opportunities []string
	threats       []string
}

// analyzeContestant derives a SWOT from per-game scores relative to the
// opponent. Thresholds mirror the scoring scale: 150 max per game.
func analyzeContestant(c *contestant, opponent *contestant) swot {
	result := swot{strengths: append([]string(nil), c.strengths...)}

	for _, key := range sortKeys(c.scores) {
		score := c.scores[key]
		opponentScore := opponent.scores[key]
		gameName := strings.Replace(key, "game", "Game ", 1)

		if score >= 120 {
			result.strengths = append(result.strengths, fmt.Sprintf("Excellence in %s (>120)", gameName))
		} else if score > opponentScore+20 {
			result.strengths = append(result.strengths, fmt.Sprintf("Dominated %s", gameName))
		}

		if score < 100 {
			result.weaknesses = append(result.weaknesses, fmt.Sprintf("Struggled in %s (<100)", gameName))
		}

		if score >= 100 && score < 120 {
			result.opportunities = append(result.opportunities, fmt.Sprintf("Optimize %s performance", gameName))
		}
		if score < opponentScore && score > opponentScore-15 {
			result.opportunities = append(result.opportunities, fmt.Sprintf("Close gap in %s", gameName))
		}

		if score < 80 {
			result.threats = append(result.threats, fmt.Sprintf("Failure risk in %s", gameName))
		}
	}

	if len(result.weaknesses) == 0 {
		result.weaknesses = []string{"None detected"}
	}
	if len(result.opportunities) == 0 {
		result.opportunities = []string{"Maintain current performance"}
	}
	if len(result.threats) == 0 {
		result.threats = []string{"Robust performance"}
	}

	return result
}

func renderSWOT(a *contestant, b *contestant) string {
	swotA := analyzeContestant(a, b)
	swotB := analyzeContestant(b, a)

	var out strings.Builder
	out.WriteString(boxTop(56))
	out.WriteString(boxRow("                   📊 SWOT ANALYSIS", 56))
	out.WriteString("├───────────────────────────┬────────────────────────────┤\n")
	out.WriteString(fmt.Sprintf("│ %-25s │ %-26s │\n", a.name, b.name))

	sections := []struct {
		title string
		left  []string
		right []string
	}{
		{"STRENGTHS", swotA.strengths, swotB.strengths},
		{"WEAKNESSES", swotA.weaknesses, swotB.weaknesses},
		{"OPPORTUNITIES", swotA.opportunities, swotB.opportunities},
		{"THREATS", swotA.threats, swotB.threats},
	}

	for _, section := range sections {
		out.WriteString("├───────────────────────────┼────────────────────────────┤\n")
		out.WriteString(fmt.Sprintf("│ %-25s │ %-26s │\n", section.title, section.title))

		rows := len(section.left)
		if len(section.right) > rows {
			rows = len(section.right)
		}
		for i := 0; i < rows; i++ {
			left, right := "", ""
			if i < len(section.left) {
				left = "• " + clip(section.left[i], 23)
			}
			if i < len(section.right) {
				right = "• " + clip(section.right[i], 24)
			}
			out.WriteString(fmt.Sprintf("│ %-25s │ %-26s │\n", left, right))
		}
	}
	out.WriteString("└───────────────────────────┴────────────────────────────┘\n")

	return out.String()
}

func boxTop(width int) string {
	return "┌" + strings.Repeat("─", width) + "┐\n"
}

func boxRow(text string, width int) string {
	return fmt.Sprintf("│%-*s│\n", width, text)
}
