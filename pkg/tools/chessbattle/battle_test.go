package chessbattle

import (
	"context"
	"encoding/json"
	"math/rand"
	"strings"
	"testing"

	"github.com/notnil/chess"

	"agentbridge/pkg/bridge"
	"agentbridge/pkg/config"
	"agentbridge/pkg/wire"
)

func newTestTool(maxMoves int) *Tool {
	tool := New(config.ChessConfig{MaxMoves: maxMoves, MoveDelayMs: 1})
	tool.rng = rand.New(rand.NewSource(7))
	return tool
}

func decodeFinalPayload(t *testing.T, result string) boardPayload {
	t.Helper()

	idx := strings.Index(result, PayloadPrefix)
	if idx < 0 {
		t.Fatalf("result missing %s marker", PayloadPrefix)
	}

	var payload boardPayload
	if err := json.Unmarshal([]byte(result[idx+len(PayloadPrefix):]), &payload); err != nil {
		t.Fatalf("decode final payload: %v", err)
	}

	return payload
}

func TestRunProducesTaggedFinalPayload(t *testing.T) {
	tool := newTestTool(3)

	result, err := tool.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if !strings.Contains(result, "GAME COMPLETE!") {
		t.Fatalf("missing summary: %q", result)
	}

	payload := decodeFinalPayload(t, result)
	if payload.Event != "game_end" {
		t.Fatalf("event = %q, want game_end", payload.Event)
	}
	if !payload.GameOver {
		t.Fatal("final payload must mark the game over")
	}
	if len(payload.Board) != 8 || len(payload.Board[0]) != 8 {
		t.Fatalf("board shape = %dx%d, want 8x8", len(payload.Board), len(payload.Board[0]))
	}
	if payload.Analysis == nil {
		t.Fatal("final payload missing analysis")
	}
	if payload.MoveCount > 6 {
		t.Fatalf("move count = %d, want <= 6 with max 3 moves per side", payload.MoveCount)
	}
	if len(payload.History) != payload.MoveCount {
		t.Fatalf("history length = %d, want %d", len(payload.History), payload.MoveCount)
	}
}

func TestRunStreamsLiveUpdates(t *testing.T) {
	tool := newTestTool(2)

	var sent []wire.Envelope
	ctx := bridge.WithSender(context.Background(), func(env wire.Envelope) error {
		sent = append(sent, env)
		return nil
	})

	if _, err := tool.Run(ctx); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	// game_start, one frame per half-move, game_end.
	if len(sent) < 3 {
		t.Fatalf("stream frames = %d, want >= 3", len(sent))
	}
	for i, env := range sent {
		if env.Target != wire.TargetKernel {
			t.Fatalf("frame %d target = %q, want kernel", i, env.Target)
		}
		if env.MsgType != wire.MsgTypeGUIChess {
			t.Fatalf("frame %d msg_type = %q", i, env.MsgType)
		}
		if env.ID != i {
			t.Fatalf("frame %d id = %d, want sequential", i, env.ID)
		}
	}

	var first boardPayload
	if err := json.Unmarshal([]byte(sent[0].Content), &first); err != nil {
		t.Fatalf("decode first frame: %v", err)
	}
	if first.Event != "game_start" {
		t.Fatalf("first frame event = %q, want game_start", first.Event)
	}

	var last boardPayload
	if err := json.Unmarshal([]byte(sent[len(sent)-1].Content), &last); err != nil {
		t.Fatalf("decode last frame: %v", err)
	}
	if last.Event != "game_end" {
		t.Fatalf("last frame event = %q, want game_end", last.Event)
	}
}

func TestRunWithoutSenderStillCompletes(t *testing.T) {
	tool := newTestTool(1)

	result, err := tool.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !strings.Contains(result, PayloadPrefix) {
		t.Fatal("expected tagged payload without a stream sender")
	}
}

func TestRunHonorsContextCancellation(t *testing.T) {
	tool := newTestTool(30)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tool.Run(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestBoardArrayInitialPosition(t *testing.T) {
	grid := boardArray(chess.NewGame().Position().Board())

	if got := strings.Join(grid[0], ""); got != "rnbqkbnr" {
		t.Fatalf("rank 8 = %q", got)
	}
	if got := strings.Join(grid[7], ""); got != "RNBQKBNR" {
		t.Fatalf("rank 1 = %q", got)
	}
	if got := strings.Join(grid[4], ""); got != "........" {
		t.Fatalf("rank 4 = %q", got)
	}
}

func TestMaterialScoreStartsEqual(t *testing.T) {
	if score := materialScore(chess.NewGame().Position().Board()); score != 0 {
		t.Fatalf("initial material score = %d, want 0", score)
	}
}
