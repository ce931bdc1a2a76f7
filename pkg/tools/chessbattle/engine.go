package chessbattle

import (
	"math/rand"

	"github.com/notnil/chess"
)

var miniValues = map[chess.PieceType]float64{
	chess.Pawn:   1,
	chess.Knight: 3,
	chess.Bishop: 3,
	chess.Rook:   5,
	chess.Queen:  9,
	chess.King:   0,
}

var centerSquares = map[chess.Square]struct{}{
	chess.D4: {},
	chess.D5: {},
	chess.E4: {},
	chess.E5: {},
}

// pickMove scores every legal move with a material-first heuristic:
// checkmate, then MVV-LVA captures, checks, center control and early
// development, with a small random tiebreaker.
func pickMove(game *chess.Game, halfMoves int, rng *rand.Rand) (*chess.Move, string) {
	moves := game.ValidMoves()
	if len(moves) == 0 {
		return nil, "No legal moves"
	}

	board := game.Position().Board()

	var best *chess.Move
	bestScore := -1.0
	bestReason := "Positional play"

	for _, move := range moves {
		if game.Position().Update(move).Status() == chess.Checkmate {
			return move, "CHECKMATE!"
		}

		score := 0.0
		reason := ""

		if move.HasTag(chess.Check) {
			score += 50
			reason = "Gives check"
		}

		if move.HasTag(chess.Capture) {
			victim := board.Piece(move.S2())
			attacker := board.Piece(move.S1())
			if victim != chess.NoPiece && attacker != chess.NoPiece {
				score += miniValues[victim.Type()]*10 - miniValues[attacker.Type()]
				reason = "Captures " + pieceLetters[victim.Type()]
			}
		}

		if _, ok := centerSquares[move.S2()]; ok {
			score += 5
			if reason == "" {
				reason = "Controls center"
			}
		}

		if halfMoves < 10 {
			piece := board.Piece(move.S1())
			if piece != chess.NoPiece && (piece.Type() == chess.Knight || piece.Type() == chess.Bishop) {
				homeRank := chess.Rank1
				if piece.Color() == chess.Black {
					homeRank = chess.Rank8
				}
				if move.S1().Rank() == homeRank {
					score += 3
					if reason == "" {
						reason = "Develops piece"
					}
				}
			}
		}

		score += rng.Float64() * 0.1

		if reason == "" {
			reason = "Positional play"
		}

		if score > bestScore {
			bestScore = score
			best = move
			bestReason = reason
		}
	}

	return best, bestReason
}
