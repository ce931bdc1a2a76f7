package chessbattle

import (
	"strings"

	"github.com/notnil/chess"
)

var pieceValues = map[chess.PieceType]int{
	chess.Pawn:   100,
	chess.Knight: 320,
	chess.Bishop: 330,
	chess.Rook:   500,
	chess.Queen:  900,
	chess.King:   0,
}

var pieceLetters = map[chess.PieceType]string{
	chess.Pawn:   "p",
	chess.Knight: "n",
	chess.Bishop: "b",
	chess.Rook:   "r",
	chess.Queen:  "q",
	chess.King:   "k",
}

// boardArray renders the position as an 8x8 grid of FEN letters, rank 8
// first, empty squares as ".".
func boardArray(board *chess.Board) [][]string {
	grid := make([][]string, 8)
	for rank := 7; rank >= 0; rank-- {
		row := make([]string, 8)
		for file := 0; file < 8; file++ {
			piece := board.Piece(chess.Square(rank*8 + file))
			if piece == chess.NoPiece {
				row[file] = "."
				continue
			}

			letter := pieceLetters[piece.Type()]
			if piece.Color() == chess.White {
				letter = strings.ToUpper(letter)
			}
			row[file] = letter
		}
		grid[7-rank] = row
	}

	return grid
}

// materialScore is a simple centipawn count, positive when White is
// ahead.
func materialScore(board *chess.Board) int {
	score := 0
	for sq := 0; sq < 64; sq++ {
		piece := board.Piece(chess.Square(sq))
		if piece == chess.NoPiece {
			continue
		}

		value := pieceValues[piece.Type()]
		if piece.Color() == chess.White {
			score += value
		} else {
			score -= value
		}
	}

	return score
}

func colorName(color chess.Color) string {
	if color == chess.White {
		return "White"
	}

	return "Black"
}

func outcomeText(game *chess.Game) string {
	switch game.Outcome() {
	case chess.WhiteWon:
		return "White wins!"
	case chess.BlackWon:
		return "Black wins!"
	case chess.Draw:
		switch game.Method() {
		case chess.Stalemate:
			return "Stalemate - Draw"
		case chess.InsufficientMaterial:
			return "Draw - Insufficient material"
		default:
			return "Draw"
		}
	default:
		return "Draw - Move limit reached"
	}
}
