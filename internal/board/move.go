package board

import (
	"errors"
	"fmt"
)

// MoveKind is the closed set of move shapes. Each kind has its own entry in
// the make/unmake dispatch table.
type MoveKind uint8

const (
	Normal MoveKind = iota
	Promotion
	EnPassant
	Castling
)

func (k MoveKind) String() string {
	return [...]string{"normal", "promotion", "en-passant", "castling"}[k&3]
}

// Move packs a move into 16 bits:
//
//	bits 0-5   from square
//	bits 6-11  to square
//	bits 12-13 promotion piece, knight = 0 .. queen = 3
//	bits 14-15 MoveKind
//
// A move carries no capture or legality information; it only makes sense
// against the board it was generated from.
type Move uint16

// NoMove is the "none" sentinel. It never encodes a playable move.
const NoMove Move = 0

// MaxMoves bounds the number of moves in any reachable position.
const MaxMoves = 256

var (
	ErrInvalidMove = errors.New("invalid move text")
	ErrIllegalMove = errors.New("illegal move")
)

// NewMove builds a move of the given kind. promo is ignored unless kind is
// Promotion.
func NewMove(from, to Square, kind MoveKind, promo PieceType) Move {
	m := Move(from) | Move(to)<<6 | Move(kind)<<14
	if kind == Promotion {
		m |= Move(promo-Knight) << 12
	}
	return m
}

func (m Move) From() Square { return Square(m & 0x3F) }
func (m Move) To() Square { return Square(m >> 6 & 0x3F) }
func (m Move) Kind() MoveKind { return MoveKind(m >> 14) }
func (m Move) Promo() PieceType { return Knight + PieceType(m>>12&3) }

// String renders the move in coordinate form: e2e4, e7e8q. NoMove is "0000".
func (m Move) String() string {
	if m == NoMove {
		return "0000"
	}
	s := m.From().String() + m.To().String()
	if m.Kind() == Promotion {
		s += string("nbrq"[m.Promo()-Knight])
	}
	return s
}

// ParseMove resolves coordinate move text against the legal moves of the
// current position.
func (b *Board) ParseMove(s string) (Move, error) {
	if len(s) != 4 && len(s) != 5 {
		return NoMove, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return NoMove, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	promo := NoPieceType
	if len(s) == 5 {
		switch s[4] {
		case 'n':
			promo = Knight
		case 'b':
			promo = Bishop
		case 'r':
			promo = Rook
		case 'q':
			promo = Queen
		default:
			return NoMove, fmt.Errorf("%w: %q", ErrInvalidMove, s)
		}
	}

	var list MoveList
	b.LegalMoves(&list)
	for _, m := range list.Slice() {
		if m.From() != from || m.To() != to {
			continue
		}
		if (m.Kind() == Promotion) != (promo != NoPieceType) {
			continue
		}
		if promo != NoPieceType && m.Promo() != promo {
			continue
		}
		return m, nil
	}
	return NoMove, fmt.Errorf("%w: %s", ErrIllegalMove, s)
}

// MoveList is a fixed-capacity move buffer that lives on the stack.
type MoveList struct {
	moves [MaxMoves]Move
	count int
}

func (ml *MoveList) Add(m Move) {
	ml.moves[ml.count] = m
	ml.count++
}

func (ml *MoveList) Len() int { return ml.count }
func (ml *MoveList) Get(i int) Move { return ml.moves[i] }
func (ml *MoveList) Swap(i, j int) { ml.moves[i], ml.moves[j] = ml.moves[j], ml.moves[i] }
func (ml *MoveList) Clear() { ml.count = 0 }
func (ml *MoveList) Slice() []Move { return ml.moves[:ml.count] }

// Contains reports whether m is in the list.
func (ml *MoveList) Contains(m Move) bool {
	for _, x := range ml.Slice() {
		if x == m {
			return true
		}
	}
	return false
}
