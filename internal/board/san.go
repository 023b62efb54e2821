package board

import "strings"

const sanPieceLetters = "PNBRQK"

// SAN renders a legal move in standard algebraic notation, including the
// check or mate suffix.
func (b *Board) SAN(m Move) string {
	if m == NoMove {
		return "--"
	}
	from, to := m.From(), m.To()
	pt := b.mailbox[from].Type()
	if pt == NoPieceType {
		return m.String()
	}

	var sb strings.Builder
	switch {
	case m.Kind() == Castling && to.File() == 6:
		sb.WriteString("O-O")
	case m.Kind() == Castling:
		sb.WriteString("O-O-O")
	default:
		capture := b.IsCapture(m)
		if pt == Pawn {
			if capture {
				sb.WriteByte(byte('a' + from.File()))
			}
		} else {
			sb.WriteByte(sanPieceLetters[pt])
			sb.WriteString(b.disambiguation(m, pt))
		}
		if capture {
			sb.WriteByte('x')
		}
		sb.WriteString(to.String())
		if m.Kind() == Promotion {
			sb.WriteByte('=')
			sb.WriteByte(sanPieceLetters[m.Promo()])
		}
	}

	b.MakeMove(m)
	if b.InCheck() {
		if b.HasLegalMoves() {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('#')
		}
	}
	b.UnmakeMove(m)
	return sb.String()
}

// disambiguation returns the origin file, rank or square needed to tell m
// apart from other legal moves of the same piece type to the same square.
func (b *Board) disambiguation(m Move, pt PieceType) string {
	from := m.From()
	var list MoveList
	b.LegalMoves(&list)

	var others []Square
	for _, o := range list.Slice() {
		if o.To() == m.To() && o.From() != from && b.mailbox[o.From()].Type() == pt {
			others = append(others, o.From())
		}
	}
	if len(others) == 0 {
		return ""
	}

	sameFile, sameRank := false, false
	for _, sq := range others {
		sameFile = sameFile || sq.File() == from.File()
		sameRank = sameRank || sq.Rank() == from.Rank()
	}
	switch {
	case !sameFile:
		return from.String()[:1]
	case !sameRank:
		return from.String()[1:]
	default:
		return from.String()
	}
}

// MovesToSAN renders a line of moves played from the current position. The
// board is restored before returning.
func (b *Board) MovesToSAN(moves []Move) []string {
	out := make([]string, 0, len(moves))
	played := 0
	for _, m := range moves {
		out = append(out, b.SAN(m))
		b.MakeMove(m)
		played++
	}
	for i := played - 1; i >= 0; i-- {
		b.UnmakeMove(moves[i])
	}
	return out
}
