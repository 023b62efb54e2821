package engine

import (
	"github.com/leafchess/leaf/internal/board"
)

// DrawScore is the value of a drawn position for either side.
const DrawScore = 0

// fiftyMoveLimit is the half-move clock value at which the fifty-move rule
// applies.
const fiftyMoveLimit = 100

// DrawGame reports whether the position is drawn by the fifty-move rule,
// insufficient material or threefold repetition.
func DrawGame(b *board.Board) bool {
	if b.HalfMoveClock() >= fiftyMoveLimit {
		return true
	}
	if InsufficientMaterial(b) {
		return true
	}
	return Repetition(b)
}

// InsufficientMaterial reports whether neither side has pawns, rooks or
// queens and each side has at most one minor piece.
func InsufficientMaterial(b *board.Board) bool {
	for c := board.White; c <= board.Black; c++ {
		for _, pt := range [...]board.PieceType{board.Pawn, board.Rook, board.Queen} {
			if b.PieceCount(c, pt) != 0 {
				return false
			}
		}
	}
	minors := func(c board.Color) int {
		return b.PieceCount(c, board.Knight) + b.PieceCount(c, board.Bishop)
	}
	return minors(board.White) <= 1 && minors(board.Black) <= 1
}

// Repetition reports whether the current position is on the board for the
// third time. The history is scanned backward and the scan stops at the
// last move that reset the half-move clock, since no earlier position can
// recur.
func Repetition(b *board.Board) bool {
	key := b.Key()
	history := b.History()
	seen := 0
	for i := len(history) - 1; i >= 0; i-- {
		st := history[i]
		if st.Key == key {
			seen++
			if seen == 2 {
				return true
			}
		}
		if st.HalfMove == 0 {
			break
		}
	}
	return false
}
