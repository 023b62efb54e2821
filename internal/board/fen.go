package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard starting position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrInvalidFEN wraps every FEN parse failure.
var ErrInvalidFEN = errors.New("invalid FEN")

// LoadFEN replaces the position with the one described by fen. The
// half-move clock and full-move number fields are optional. On error the
// board is left unchanged.
func (b *Board) LoadFEN(fen string) error {
	fields := strings.Fields(fen)
	if len(fields) < 4 || len(fields) > 6 {
		return fmt.Errorf("%w: want 4 to 6 fields, got %d", ErrInvalidFEN, len(fields))
	}

	nb := Board{history: b.history}
	nb.clear()

	if err := nb.placePieces(fields[0]); err != nil {
		return err
	}

	switch fields[1] {
	case "w":
		nb.side = White
	case "b":
		nb.side = Black
	default:
		return fmt.Errorf("%w: side to move %q", ErrInvalidFEN, fields[1])
	}

	if fields[2] != "-" {
		for _, c := range fields[2] {
			i := strings.IndexRune("KQkq", c)
			if i < 0 {
				return fmt.Errorf("%w: castling %q", ErrInvalidFEN, fields[2])
			}
			nb.castling |= 1 << i
		}
	}

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil || !nb.validEnPassant(sq) {
			return fmt.Errorf("%w: en passant %q", ErrInvalidFEN, fields[3])
		}
		nb.enPassant = sq
	}

	if len(fields) > 4 {
		n, err := strconv.Atoi(fields[4])
		if err != nil || n < 0 {
			return fmt.Errorf("%w: half-move clock %q", ErrInvalidFEN, fields[4])
		}
		nb.halfMove = n
	}
	if len(fields) > 5 {
		n, err := strconv.Atoi(fields[5])
		if err != nil || n < 1 {
			return fmt.Errorf("%w: full-move number %q", ErrInvalidFEN, fields[5])
		}
		nb.fullMove = n
	}

	nb.key = nb.ComputeHash()
	*b = nb
	return nil
}

// validEnPassant reports whether sq can be the target of the double push
// just played: it lies behind an enemy pawn and both it and the pawn's
// origin square are empty.
func (b *Board) validEnPassant(sq Square) bool {
	them := b.side.Other()
	var pawnSq, origin Square
	if b.side == White {
		if sq.Rank() != 5 {
			return false
		}
		pawnSq, origin = sq-8, sq+8
	} else {
		if sq.Rank() != 2 {
			return false
		}
		pawnSq, origin = sq+8, sq-8
	}
	return b.mailbox[pawnSq] == MakePiece(them, Pawn) &&
		b.mailbox[sq] == NoPiece && b.mailbox[origin] == NoPiece
}

func (b *Board) placePieces(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: want 8 ranks, got %d", ErrInvalidFEN, len(ranks))
	}
	for i, row := range ranks {
		rank, file := 7-i, 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			p := PieceFromChar(c)
			if p == NoPiece || file > 7 {
				return fmt.Errorf("%w: rank %d %q", ErrInvalidFEN, rank+1, row)
			}
			b.setPiece(p, NewSquare(file, rank))
			file++
		}
		if file != 8 {
			return fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, rank+1, file)
		}
	}
	if b.pieces[WhiteKing].Count() != 1 || b.pieces[BlackKing].Count() != 1 {
		return fmt.Errorf("%w: each side needs exactly one king", ErrInvalidFEN)
	}
	if (b.pieces[WhitePawn]|b.pieces[BlackPawn])&(Rank1|Rank8) != 0 {
		return fmt.Errorf("%w: pawn on a back rank", ErrInvalidFEN)
	}
	return nil
}

// FEN renders the position.
func (b *Board) FEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p := b.mailbox[NewSquare(file, rank)]
			if p == NoPiece {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteString(p.String())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	side := "w"
	if b.side == Black {
		side = "b"
	}
	fmt.Fprintf(&sb, " %s %s %s %d %d", side, b.castling, b.enPassant, b.halfMove, b.fullMove)
	return sb.String()
}
