package board

// targetFunc returns every square a piece of type pt standing on from may
// move to, before friendly-occupied squares are masked out.
type targetFunc func(b *Board, from Square, us Color) Bitboard

// pieceTargets is the per-piece-type capability table used by generation.
var pieceTargets = [6]targetFunc{
	Pawn:   pawnTargets,
	Knight: func(_ *Board, from Square, _ Color) Bitboard { return knightAttacks[from] },
	Bishop: func(b *Board, from Square, _ Color) Bitboard { return BishopAttacks(from, b.occupancy[bothColors]) },
	Rook:   func(b *Board, from Square, _ Color) Bitboard { return RookAttacks(from, b.occupancy[bothColors]) },
	Queen:  func(b *Board, from Square, _ Color) Bitboard { return QueenAttacks(from, b.occupancy[bothColors]) },
	King:   kingTargets,
}

var (
	pawnPush        = [2]Direction{North, South}
	doublePushRank  = [2]Bitboard{RankBB(2), RankBB(5)}
	kingHome        = [2]Square{E1, E8}
	promotionPieces = [4]PieceType{Knight, Bishop, Rook, Queen}
)

func pawnTargets(b *Board, from Square, us Color) Bitboard {
	empty := ^b.occupancy[bothColors]
	single := Shift(SquareBB(from), pawnPush[us]) & empty
	double := Shift(single&doublePushRank[us], pawnPush[us]) & empty

	victims := b.occupancy[us.Other()]
	if b.enPassant != NoSquare {
		victims |= SquareBB(b.enPassant)
	}
	return single | double | pawnAttacks[us][from]&victims
}

func kingTargets(b *Board, from Square, us Color) Bitboard {
	targets := kingAttacks[from]
	if from == kingHome[us] {
		targets |= b.castlingTargets(us)
	}
	return targets
}

// castlePath describes one castling option: the squares that must be empty
// and the king squares that must not be attacked.
type castlePath struct {
	right  CastlingRights
	rook   Square
	empty  Bitboard
	safe   Bitboard
	target Square
}

var castlePaths = [2][2]castlePath{
	White: {
		{WhiteKingSide, H1, SquareBB(F1) | SquareBB(G1), SquareBB(E1) | SquareBB(F1) | SquareBB(G1), G1},
		{WhiteQueenSide, A1, SquareBB(B1) | SquareBB(C1) | SquareBB(D1), SquareBB(E1) | SquareBB(D1) | SquareBB(C1), C1},
	},
	Black: {
		{BlackKingSide, H8, SquareBB(F8) | SquareBB(G8), SquareBB(E8) | SquareBB(F8) | SquareBB(G8), G8},
		{BlackQueenSide, A8, SquareBB(B8) | SquareBB(C8) | SquareBB(D8), SquareBB(E8) | SquareBB(D8) | SquareBB(C8), C8},
	},
}

func (b *Board) castlingTargets(us Color) Bitboard {
	var targets Bitboard
	for _, cp := range castlePaths[us] {
		if b.castling&cp.right == 0 || b.mailbox[cp.rook] != MakePiece(us, Rook) {
			continue
		}
		if b.occupancy[bothColors]&cp.empty != 0 {
			continue
		}
		if b.SquareAttacked(us.Other(), cp.safe) {
			continue
		}
		targets |= SquareBB(cp.target)
	}
	return targets
}

// PseudoMoves appends every pseudo-legal move of the side to move to list.
// Moves may leave the mover's own king in check.
func (b *Board) PseudoMoves(list *MoveList) {
	us := b.side
	own := b.occupancy[us]
	for pt := Pawn; pt <= King; pt++ {
		for pcs := b.pieces[MakePiece(us, pt)]; pcs != 0; {
			from := pcs.PopLSB()
			targets := pieceTargets[pt](b, from, us) &^ own
			for targets != 0 {
				b.addMoves(list, pt, from, targets.PopLSB())
			}
		}
	}
}

func (b *Board) addMoves(list *MoveList, pt PieceType, from, to Square) {
	switch {
	case pt == Pawn && (to.Rank() == 0 || to.Rank() == 7):
		for _, promo := range promotionPieces {
			list.Add(NewMove(from, to, Promotion, promo))
		}
	case pt == Pawn && to == b.enPassant:
		list.Add(NewMove(from, to, EnPassant, NoPieceType))
	case pt == King && Distance(from, to) == 2:
		list.Add(NewMove(from, to, Castling, NoPieceType))
	default:
		list.Add(NewMove(from, to, Normal, NoPieceType))
	}
}

// LegalMoves fills list with the legal moves of the side to move. Each
// pseudo-legal move is made, the mover's king is tested and the move is
// taken back.
func (b *Board) LegalMoves(list *MoveList) {
	var pseudo MoveList
	b.PseudoMoves(&pseudo)
	list.Clear()
	us := b.side
	for _, m := range pseudo.Slice() {
		b.MakeMove(m)
		if !b.KingInCheck(us) {
			list.Add(m)
		}
		b.UnmakeMove(m)
	}
}

// HasLegalMoves reports whether the side to move has at least one legal move.
func (b *Board) HasLegalMoves() bool {
	var pseudo MoveList
	b.PseudoMoves(&pseudo)
	us := b.side
	for _, m := range pseudo.Slice() {
		b.MakeMove(m)
		legal := !b.KingInCheck(us)
		b.UnmakeMove(m)
		if legal {
			return true
		}
	}
	return false
}

// IsCapture reports whether m takes a piece.
func (b *Board) IsCapture(m Move) bool {
	return m.Kind() == EnPassant || b.mailbox[m.To()] != NoPiece
}

// CapturedType returns the type of the piece m takes, NoPieceType if none.
func (b *Board) CapturedType(m Move) PieceType {
	if m.Kind() == EnPassant {
		return Pawn
	}
	return b.mailbox[m.To()].Type()
}

// GivesCheck reports whether m puts the opponent in check.
func (b *Board) GivesCheck(m Move) bool {
	b.MakeMove(m)
	check := b.InCheck()
	b.UnmakeMove(m)
	return check
}
