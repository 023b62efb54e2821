// Package engine implements the search: iterative deepening negamax with a
// transposition table, move ordering, quiescence and a static evaluation.
package engine

import (
	"github.com/leafchess/leaf/internal/board"
)

// Material values in centipawns.
const (
	PawnValue   = 100
	KnightValue = 320
	BishopValue = 330
	RookValue   = 500
	QueenValue  = 900
	KingValue   = 20000
)

var pieceValues = [7]int{PawnValue, KnightValue, BishopValue, RookValue, QueenValue, KingValue, 0}

// Pawn structure penalties, applied per file.
const (
	doubledPawnPenalty  = -15
	isolatedPawnPenalty = -20
)

// Piece-square tables are laid out from White's side, a1 first. Black
// looks them up through the vertically mirrored square.

var pawnPST = [64]int{
	0, 0, 0, 0, 0, 0, 0, 0,
	5, 10, 10, -20, -20, 10, 10, 5,
	5, -5, -10, 0, 0, -10, -5, 5,
	0, 0, 0, 20, 20, 0, 0, 0,
	5, 5, 10, 25, 25, 10, 5, 5,
	10, 10, 20, 30, 30, 20, 10, 10,
	50, 50, 50, 50, 50, 50, 50, 50,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var knightPST = [64]int{
	-50, -40, -30, -30, -30, -30, -40, -50,
	-40, -20, 0, 5, 5, 0, -20, -40,
	-30, 5, 10, 15, 15, 10, 5, -30,
	-30, 0, 15, 20, 20, 15, 0, -30,
	-30, 5, 15, 20, 20, 15, 5, -30,
	-30, 0, 10, 15, 15, 10, 0, -30,
	-40, -20, 0, 0, 0, 0, -20, -40,
	-50, -40, -30, -30, -30, -30, -40, -50,
}

var bishopPST = [64]int{
	-20, -10, -10, -10, -10, -10, -10, -20,
	-10, 5, 0, 0, 0, 0, 5, -10,
	-10, 10, 10, 10, 10, 10, 10, -10,
	-10, 0, 10, 10, 10, 10, 0, -10,
	-10, 5, 5, 10, 10, 5, 5, -10,
	-10, 0, 5, 10, 10, 5, 0, -10,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-20, -10, -10, -10, -10, -10, -10, -20,
}

var rookPST = [64]int{
	0, 0, 0, 5, 5, 0, 0, 0,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	-5, 0, 0, 0, 0, 0, 0, -5,
	5, 10, 10, 10, 10, 10, 10, 5,
	0, 0, 0, 0, 0, 0, 0, 0,
}

var queenPST = [64]int{
	-20, -10, -10, -5, -5, -10, -10, -20,
	-10, 0, 5, 0, 0, 0, 0, -10,
	-10, 5, 5, 5, 5, 5, 0, -10,
	0, 0, 5, 5, 5, 5, 0, -5,
	-5, 0, 5, 5, 5, 5, 0, -5,
	-10, 0, 5, 5, 5, 5, 0, -10,
	-10, 0, 0, 0, 0, 0, 0, -10,
	-20, -10, -10, -5, -5, -10, -10, -20,
}

var kingPST = [64]int{
	20, 30, 10, 0, 0, 10, 30, 20,
	20, 20, 0, 0, 0, 0, 20, 20,
	-10, -20, -20, -20, -20, -20, -20, -10,
	-20, -30, -30, -40, -40, -30, -30, -20,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
	-30, -40, -40, -50, -50, -40, -40, -30,
}

var psts = [6]*[64]int{&pawnPST, &knightPST, &bishopPST, &rookPST, &queenPST, &kingPST}

// Evaluate returns the static score of the position in centipawns from the
// side to move's point of view.
func Evaluate(b *board.Board) int {
	score := 0
	for c := board.White; c <= board.Black; c++ {
		sign := 1
		if c == board.Black {
			sign = -1
		}
		for pt := board.Pawn; pt <= board.King; pt++ {
			for bb := b.Pieces(board.MakePiece(c, pt)); bb != 0; {
				sq := bb.PopLSB()
				if c == board.Black {
					sq = sq.Mirror()
				}
				score += sign * (pieceValues[pt] + psts[pt][sq])
			}
		}
		score += sign * pawnStructure(b.Pieces(board.MakePiece(c, board.Pawn)))
	}

	if b.SideToMove() == board.Black {
		return -score
	}
	return score
}

// EvaluateMaterial returns the material balance from the side to move's
// point of view.
func EvaluateMaterial(b *board.Board) int {
	score := 0
	for pt := board.Pawn; pt < board.King; pt++ {
		score += pieceValues[pt] * (b.PieceCount(board.White, pt) - b.PieceCount(board.Black, pt))
	}
	if b.SideToMove() == board.Black {
		return -score
	}
	return score
}

// pawnStructure scores one side's pawns: every extra pawn on a file is
// doubled, and every pawn with no friendly pawn on a neighbouring file is
// isolated.
func pawnStructure(pawns board.Bitboard) int {
	score := 0
	for file := 0; file < 8; file++ {
		n := (pawns & board.FileBB(file)).Count()
		if n == 0 {
			continue
		}
		if n > 1 {
			score += (n - 1) * doubledPawnPenalty
		}
		var adjacent board.Bitboard
		if file > 0 {
			adjacent |= board.FileBB(file - 1)
		}
		if file < 7 {
			adjacent |= board.FileBB(file + 1)
		}
		if pawns&adjacent == 0 {
			score += n * isolatedPawnPenalty
		}
	}
	return score
}
