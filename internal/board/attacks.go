package board

import "golang.org/x/exp/constraints"

// Precomputed geometry, filled once by init and read-only afterwards.
var (
	distance      [64][64]uint8
	knightAttacks [64]Bitboard
	kingAttacks   [64]Bitboard
	pawnAttacks   [2][64]Bitboard // [Color][Square]
)

var (
	knightSteps = []int{17, 15, 10, 6, -6, -10, -15, -17}
	kingSteps   = []int{9, 8, 7, 1, -1, -7, -8, -9}
)

func init() {
	initDistance()
	initStepAttacks()
	initPawnAttacks()
	initMagics()
	initZobrist()
}

func abs[T constraints.Signed](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

func maxOf[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

func initDistance() {
	for a := A1; a <= H8; a++ {
		for b := A1; b <= H8; b++ {
			d := maxOf(abs(a.File()-b.File()), abs(a.Rank()-b.Rank()))
			distance[a][b] = uint8(d)
		}
	}
}

// safeDestination returns the target of stepping from sq by step, or
// NoSquare if it leaves the board or wraps around a file edge. A wrapped
// step always lands more than two king steps away.
func safeDestination(sq Square, step int) Square {
	to := int(sq) + step
	if to < 0 || to > 63 || Distance(sq, Square(to)) > 2 {
		return NoSquare
	}
	return Square(to)
}

func initStepAttacks() {
	for sq := A1; sq <= H8; sq++ {
		for _, step := range knightSteps {
			if to := safeDestination(sq, step); to != NoSquare {
				knightAttacks[sq] |= SquareBB(to)
			}
		}
		for _, step := range kingSteps {
			if to := safeDestination(sq, step); to != NoSquare {
				kingAttacks[sq] |= SquareBB(to)
			}
		}
	}
}

func initPawnAttacks() {
	for sq := A1; sq <= H8; sq++ {
		bb := SquareBB(sq)
		pawnAttacks[White][sq] = Shift(bb, NorthEast) | Shift(bb, NorthWest)
		pawnAttacks[Black][sq] = Shift(bb, SouthEast) | Shift(bb, SouthWest)
	}
}

// KnightAttacks returns the squares a knight on sq attacks.
func KnightAttacks(sq Square) Bitboard { return knightAttacks[sq] }

// KingAttacks returns the squares a king on sq attacks.
func KingAttacks(sq Square) Bitboard { return kingAttacks[sq] }

// PawnAttacks returns the squares a pawn of color c on sq attacks.
func PawnAttacks(sq Square, c Color) Bitboard { return pawnAttacks[c][sq] }

// BishopAttacks returns the diagonal attacks from sq given occupancy occ.
func BishopAttacks(sq Square, occ Bitboard) Bitboard {
	return bishopMagics[sq].attacks(bishopTable[:], occ)
}

// RookAttacks returns the orthogonal attacks from sq given occupancy occ.
func RookAttacks(sq Square, occ Bitboard) Bitboard {
	return rookMagics[sq].attacks(rookTable[:], occ)
}

// QueenAttacks is the union of bishop and rook attacks.
func QueenAttacks(sq Square, occ Bitboard) Bitboard {
	return BishopAttacks(sq, occ) | RookAttacks(sq, occ)
}

// AttackersTo returns every piece of either color that attacks sq when the
// board is occupied by occ.
func (b *Board) AttackersTo(sq Square, occ Bitboard) Bitboard {
	bishops := b.pieces[WhiteBishop] | b.pieces[BlackBishop] | b.pieces[WhiteQueen] | b.pieces[BlackQueen]
	rooks := b.pieces[WhiteRook] | b.pieces[BlackRook] | b.pieces[WhiteQueen] | b.pieces[BlackQueen]
	return knightAttacks[sq]&(b.pieces[WhiteKnight]|b.pieces[BlackKnight]) |
		kingAttacks[sq]&(b.pieces[WhiteKing]|b.pieces[BlackKing]) |
		pawnAttacks[Black][sq]&b.pieces[WhitePawn] |
		pawnAttacks[White][sq]&b.pieces[BlackPawn] |
		BishopAttacks(sq, occ)&bishops |
		RookAttacks(sq, occ)&rooks
}

// SquareAttacked reports whether any square in targets is attacked by a
// piece of color by, against the current occupancy.
func (b *Board) SquareAttacked(by Color, targets Bitboard) bool {
	occ := b.occupancy[bothColors]
	for targets != 0 {
		if b.AttackersTo(targets.PopLSB(), occ)&b.occupancy[by] != 0 {
			return true
		}
	}
	return false
}

// KingInCheck reports whether the king of color c is attacked.
func (b *Board) KingInCheck(c Color) bool {
	return b.SquareAttacked(c.Other(), b.pieces[MakePiece(c, King)])
}

// InCheck reports whether the side to move is in check.
func (b *Board) InCheck() bool {
	return b.KingInCheck(b.side)
}
