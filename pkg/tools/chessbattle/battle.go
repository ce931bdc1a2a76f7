// Package chessbattle orchestrates a heuristic AI-vs-AI chess game and
// streams live board updates to the kernel GUI while it runs.
package chessbattle

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/notnil/chess"

	"agentbridge/pkg/bridge"
	"agentbridge/pkg/config"
	"agentbridge/pkg/wire"
)

const (
	PayloadPrefix = "GUI_CHESS:"

	defaultMaxMoves  = 30
	defaultMoveDelay = 300 * time.Millisecond
)

type moveRecord struct {
	MoveNum  int    `json:"move_num"`
	HalfMove int    `json:"half_move"`
	Player   string `json:"player"`
	Move     string `json:"move"`
	Reason   string `json:"reason"`
	Score    int    `json:"score"`
}

type turningPoint struct {
	Move        int    `json:"move"`
	Player      string `json:"player"`
	Description string `json:"description"`
}

type gameAnalysis struct {
	TotalMoves    int            `json:"total_moves"`
	Winner        string         `json:"winner"`
	WinningMargin string         `json:"winning_margin"`
	KeyMoves      []string       `json:"key_moves"`
	WhiteStrategy []string       `json:"white_strategy"`
	BlackStrategy []string       `json:"black_strategy"`
	TurningPoints []turningPoint `json:"turning_points"`
}

type boardPayload struct {
	Board      [][]string    `json:"board"`
	Turn       string        `json:"turn"`
	MoveCount  int           `json:"move_count"`
	LastMove   string        `json:"last_move,omitempty"`
	GameOver   bool          `json:"game_over"`
	Result     string        `json:"result,omitempty"`
	InCheck    bool          `json:"in_check"`
	Event      string        `json:"event"`
	MoveNumber int           `json:"move_number,omitempty"`
	HalfMove   int           `json:"half_move,omitempty"`
	Move       string        `json:"move,omitempty"`
	Player     string        `json:"player,omitempty"`
	Reasoning  string        `json:"reasoning,omitempty"`
	Score      int           `json:"score,omitempty"`
	Analysis   *gameAnalysis `json:"analysis,omitempty"`
	History    []string      `json:"move_history,omitempty"`
}

type Tool struct {
	maxMoves  int
	moveDelay time.Duration
	rng       *rand.Rand

	nextStreamID int
}

func New(cfg config.ChessConfig) *Tool {
	maxMoves := cfg.MaxMoves
	if maxMoves <= 0 {
		maxMoves = defaultMaxMoves
	}

	moveDelay := time.Duration(cfg.MoveDelayMs) * time.Millisecond
	if cfg.MoveDelayMs <= 0 {
		moveDelay = defaultMoveDelay
	}

	return &Tool{
		maxMoves:  maxMoves,
		moveDelay: moveDelay,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run plays the battle to completion or to the move cap. When the
// context carries a stream sender, every position goes out as a live
// gui_chess update; the returned text ends with the tagged final
// payload for the reply path.
func (t *Tool) Run(ctx context.Context) (string, error) {
	game := chess.NewGame()
	var log []moveRecord

	t.stream(ctx, boardPayload{
		Board:     boardArray(game.Position().Board()),
		Turn:      colorName(game.Position().Turn()),
		MoveCount: 0,
		Event:     "game_start",
	})

	halfMoves := 0
	maxHalfMoves := t.maxMoves * 2
	inCheck := false

	for game.Outcome() == chess.NoOutcome && halfMoves < maxHalfMoves {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		turn := colorName(game.Position().Turn())
		move, reasoning := pickMove(game, halfMoves, t.rng)
		if move == nil {
			break
		}

		if err := game.Move(move); err != nil {
			return "", fmt.Errorf("apply move %s: %w", move, err)
		}
		halfMoves++
		inCheck = move.HasTag(chess.Check)

		moveNum := (halfMoves-1)/2 + 1
		notation := move.S1().String() + "-" + move.S2().String()
		score := materialScore(game.Position().Board())

		record := moveRecord{
			MoveNum:  moveNum,
			HalfMove: halfMoves,
			Player:   turn,
			Move:     notation,
			Reason:   reasoning,
			Score:    score,
		}
		log = append(log, record)

		t.stream(ctx, boardPayload{
			Board:      boardArray(game.Position().Board()),
			Turn:       colorName(game.Position().Turn()),
			MoveCount:  halfMoves,
			LastMove:   notation,
			GameOver:   game.Outcome() != chess.NoOutcome,
			Result:     resultText(game, halfMoves, maxHalfMoves),
			InCheck:    inCheck,
			Event:      "move",
			MoveNumber: moveNum,
			HalfMove:   halfMoves,
			Move:       notation,
			Player:     turn,
			Reasoning:  reasoning,
			Score:      score,
		})

		if err := sleepFor(ctx, t.moveDelay); err != nil {
			return "", err
		}
	}

	analysis := analyze(game, log)
	history := make([]string, len(log))
	for i, record := range log {
		history[i] = record.Move
	}

	final := boardPayload{
		Board:     boardArray(game.Position().Board()),
		Turn:      colorName(game.Position().Turn()),
		MoveCount: halfMoves,
		GameOver:  true,
		Result:    resultText(game, halfMoves, maxHalfMoves),
		InCheck:   inCheck,
		Event:     "game_end",
		Analysis:  &analysis,
		History:   history,
	}
	if len(log) > 0 {
		final.LastMove = log[len(log)-1].Move
	}
	t.stream(ctx, final)

	body, err := json.Marshal(final)
	if err != nil {
		return "", err
	}

	return summaryText(analysis) + "\n\n" + PayloadPrefix + string(body), nil
}

// stream pushes one live update through the context sender when one is
// present. Stream failures are deliberately dropped: a lost frame only
// costs the GUI one intermediate position.
func (t *Tool) stream(ctx context.Context, payload boardPayload) {
	sender, ok := bridge.SenderFromContext(ctx)
	if !ok {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	_ = sender(wire.Envelope{
		ID:      t.nextStreamID,
		Target:  wire.TargetKernel,
		MsgType: wire.MsgTypeGUIChess,
		Content: string(body),
	})
	t.nextStreamID++
}

func resultText(game *chess.Game, halfMoves int, maxHalfMoves int) string {
	if game.Outcome() != chess.NoOutcome {
		return outcomeText(game)
	}
	if halfMoves >= maxHalfMoves {
		return "Draw - Move limit reached"
	}

	return ""
}

func analyze(game *chess.Game, log []moveRecord) gameAnalysis {
	analysis := gameAnalysis{
		TotalMoves:    len(log),
		WinningMargin: "equal",
		KeyMoves:      []string{},
		WhiteStrategy: []string{},
		BlackStrategy: []string{},
		TurningPoints: []turningPoint{},
	}

	switch game.Outcome() {
	case chess.WhiteWon:
		analysis.Winner = "White"
	case chess.BlackWon:
		analysis.Winner = "Black"
	case chess.Draw:
		analysis.Winner = "Draw"
	default:
		score := materialScore(game.Position().Board())
		switch {
		case score > 300:
			analysis.Winner = "White (by material)"
			analysis.WinningMargin = "decisive"
		case score > 100:
			analysis.Winner = "White (slight advantage)"
			analysis.WinningMargin = "slight"
		case score < -300:
			analysis.Winner = "Black (by material)"
			analysis.WinningMargin = "decisive"
		case score < -100:
			analysis.Winner = "Black (slight advantage)"
			analysis.WinningMargin = "slight"
		default:
			analysis.Winner = "Draw (equal position)"
		}
	}

	prevScore := 0
	for _, record := range log {
		reasonLower := strings.ToLower(record.Reason)

		if strings.Contains(reasonLower, "check") {
			entry := fmt.Sprintf("Move %d: Aggressive check with %s", record.MoveNum, record.Move)
			if record.Player == "White" {
				analysis.WhiteStrategy = append(analysis.WhiteStrategy, entry)
			} else {
				analysis.BlackStrategy = append(analysis.BlackStrategy, entry)
			}
		}
		if strings.Contains(reasonLower, "capture") {
			entry := fmt.Sprintf("Move %d: Material gain with %s", record.MoveNum, record.Move)
			if record.Player == "White" {
				analysis.WhiteStrategy = append(analysis.WhiteStrategy, entry)
			} else {
				analysis.BlackStrategy = append(analysis.BlackStrategy, entry)
			}
		}

		scoreChange := record.Score - prevScore
		if scoreChange > 200 || scoreChange < -200 {
			analysis.TurningPoints = append(analysis.TurningPoints, turningPoint{
				Move:        record.MoveNum,
				Player:      record.Player,
				Description: fmt.Sprintf("%s caused major shift (%+d)", record.Move, scoreChange),
			})
			analysis.KeyMoves = append(analysis.KeyMoves,
				fmt.Sprintf("Move %d: %s's %s - %s", record.MoveNum, record.Player, record.Move, record.Reason))
		}
		prevScore = record.Score
	}

	analysis.KeyMoves = clampList(analysis.KeyMoves, 5)
	analysis.WhiteStrategy = clampList(analysis.WhiteStrategy, 5)
	analysis.BlackStrategy = clampList(analysis.BlackStrategy, 5)

	return analysis
}

func summaryText(analysis gameAnalysis) string {
	winnerColor := "Black"
	if strings.Contains(analysis.Winner, "White") {
		winnerColor = "White"
	}

	strategy := analysis.WhiteStrategy
	if winnerColor == "Black" {
		strategy = analysis.BlackStrategy
	}
	if len(strategy) == 0 {
		strategy = []string{"Solid positional play", "Controlled center squares", "Active piece development"}
	}

	keyMoves := analysis.KeyMoves
	if len(keyMoves) > 3 {
		keyMoves = keyMoves[:3]
	}
	if len(keyMoves) == 0 {
		keyMoves = []string{"Consistent pressure throughout"}
	}

	var b strings.Builder
	b.WriteString("GAME COMPLETE!\n\n")
	fmt.Fprintf(&b, "Winner: %s\n", analysis.Winner)
	fmt.Fprintf(&b, "Total Moves: %d\n\n", analysis.TotalMoves)
	fmt.Fprintf(&b, "%s Agent demonstrated superior strategy with:\n", winnerColor)
	for _, s := range strategy {
		fmt.Fprintf(&b, "- %s\n", s)
	}
	b.WriteString("\nKey tactical moments:\n")
	for _, km := range keyMoves {
		fmt.Fprintf(&b, "- %s\n", km)
	}

	return strings.TrimRight(b.String(), "\n")
}

func clampList(list []string, max int) []string {
	if len(list) > max {
		return list[:max]
	}

	return list
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
