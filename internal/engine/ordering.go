package engine

import (
	"github.com/leafchess/leaf/internal/board"
)

// Move ordering tiers, highest searched first. Within the capture tiers
// MVV-LVA breaks ties.
const (
	TTMoveScore      = 10000000
	PVMoveScore      = 9000000
	KillerScore1     = 8000000
	KillerScore2     = 7000000
	GoodCaptureBase  = 6000000
	CheckScore       = 5000000
	BadCaptureBase   = 4000000
	PromotionBase    = 3000000
	EnPassantScore   = 2000000
	QuietScore       = 0
	mvvLvaMultiplier = 100
)

// Killers holds the two most recent quiet moves that caused a beta cutoff
// at each ply.
type Killers [MaxPly][2]board.Move

// Clear forgets every killer move.
func (k *Killers) Clear() {
	*k = Killers{}
}

// Update records m as the first killer at ply, shifting the previous first
// killer into the second slot.
func (k *Killers) Update(m board.Move, ply int) {
	if ply >= MaxPly || k[ply][0] == m {
		return
	}
	k[ply][1] = k[ply][0]
	k[ply][0] = m
}

// isGoodCapture is the cheap exchange test: the capture does not lose
// material if the victim plus a pawn is worth at least the attacker.
func isGoodCapture(attacker, victim board.PieceType) bool {
	return pieceValues[victim]+PawnValue >= pieceValues[attacker]
}

// scoreMove returns the ordering score for one legal move.
func scoreMove(b *board.Board, m board.Move, ttMove, pvMove board.Move, killers *[2]board.Move) int {
	switch m {
	case ttMove:
		return TTMoveScore
	case pvMove:
		return PVMoveScore
	case killers[0]:
		return KillerScore1
	case killers[1]:
		return KillerScore2
	}

	attacker := b.PieceAt(m.From()).Type()
	if m.Kind() != board.EnPassant && b.IsCapture(m) {
		victim := b.CapturedType(m)
		mvvLva := pieceValues[victim]*mvvLvaMultiplier/PawnValue - int(attacker)
		if isGoodCapture(attacker, victim) {
			return GoodCaptureBase + mvvLva
		}
		if b.GivesCheck(m) {
			return CheckScore
		}
		return BadCaptureBase + mvvLva
	}
	if b.GivesCheck(m) {
		return CheckScore
	}
	switch m.Kind() {
	case board.Promotion:
		return PromotionBase + int(m.Promo())
	case board.EnPassant:
		return EnPassantScore
	}
	return QuietScore
}

// OrderMoves sorts moves in place by descending ordering score.
func OrderMoves(b *board.Board, moves *board.MoveList, ttMove, pvMove board.Move, killers *[2]board.Move) {
	var scores [board.MaxMoves]int
	for i, m := range moves.Slice() {
		scores[i] = scoreMove(b, m, ttMove, pvMove, killers)
	}
	SortMoves(moves, scores[:moves.Len()])
}

// SortMoves sorts moves by their scores (descending) with a selection sort.
func SortMoves(moves *board.MoveList, scores []int) {
	n := moves.Len()
	for i := 0; i < n-1; i++ {
		best := i
		for j := i + 1; j < n; j++ {
			if scores[j] > scores[best] {
				best = j
			}
		}
		if best != i {
			moves.Swap(i, best)
			scores[i], scores[best] = scores[best], scores[i]
		}
	}
}
