package board

// kindOps moves the pieces for one MoveKind. apply runs after any capture
// on the destination square has been removed; revert runs before the
// captured piece is put back.
type kindOps struct {
	apply  func(b *Board, m Move, p Piece)
	revert func(b *Board, m Move, p Piece)
}

var moveKinds = [4]kindOps{
	Normal: {
		apply:  func(b *Board, m Move, p Piece) { b.movePiece(p, m.From(), m.To()) },
		revert: func(b *Board, m Move, p Piece) { b.movePiece(p, m.To(), m.From()) },
	},
	Promotion: {
		apply: func(b *Board, m Move, p Piece) {
			b.removePiece(p, m.From())
			b.setPiece(MakePiece(p.Color(), m.Promo()), m.To())
		},
		revert: func(b *Board, m Move, p Piece) {
			b.removePiece(p, m.To())
			b.setPiece(MakePiece(p.Color(), Pawn), m.From())
		},
	},
	EnPassant: {
		apply: func(b *Board, m Move, p Piece) {
			b.movePiece(p, m.From(), m.To())
			b.removePiece(MakePiece(p.Color().Other(), Pawn), enPassantVictim(m))
		},
		revert: func(b *Board, m Move, p Piece) {
			b.movePiece(p, m.To(), m.From())
			b.setPiece(MakePiece(p.Color().Other(), Pawn), enPassantVictim(m))
		},
	},
	Castling: {
		apply: func(b *Board, m Move, p Piece) {
			b.movePiece(p, m.From(), m.To())
			r := castlingRookMoves[m.To()]
			b.movePiece(MakePiece(p.Color(), Rook), r.from, r.to)
		},
		revert: func(b *Board, m Move, p Piece) {
			r := castlingRookMoves[m.To()]
			b.movePiece(MakePiece(p.Color(), Rook), r.to, r.from)
			b.movePiece(p, m.To(), m.From())
		},
	},
}

// enPassantVictim is the square of the pawn taken en passant: the
// destination file on the origin rank.
func enPassantVictim(m Move) Square {
	return NewSquare(m.To().File(), m.From().Rank())
}

// castlingRookMoves maps a castling king destination to its rook's move.
var castlingRookMoves = [64]struct{ from, to Square }{
	G1: {H1, F1},
	C1: {A1, D1},
	G8: {H8, F8},
	C8: {A8, D8},
}

// rookHomeRights is the right lost when a move starts or ends on a rook's
// home square.
var rookHomeRights = [64]CastlingRights{
	A1: WhiteQueenSide,
	H1: WhiteKingSide,
	A8: BlackQueenSide,
	H8: BlackKingSide,
}

// MakeMove applies m, which must be pseudo-legal for the side to move, and
// returns the snapshot it pushed onto the history.
func (b *Board) MakeMove(m Move) StateInfo {
	from, to := m.From(), m.To()
	p := b.mailbox[from]
	if p == NoPiece || p.Color() != b.side {
		invariant("MakeMove %s: no %s piece on %s", m, b.side, from)
	}
	us := b.side

	st := StateInfo{
		Key:       b.key,
		Castling:  b.castling,
		EnPassant: b.enPassant,
		HalfMove:  b.halfMove,
		Captured:  NoPiece,
	}

	b.halfMove++
	if victim := b.mailbox[to]; victim != NoPiece {
		st.Captured = victim
		b.removePiece(victim, to)
		b.halfMove = 0
	}

	cr := b.castling
	if p.Type() == King {
		cr &^= colorCastling[us]
	}
	cr &^= rookHomeRights[from] | rookHomeRights[to]
	if cr != b.castling {
		b.setCastling(cr)
	}

	moveKinds[m.Kind()].apply(b, m, p)

	if b.enPassant != NoSquare {
		b.key ^= epFileKeys[b.enPassant.File()]
		b.enPassant = NoSquare
	}
	if p.Type() == Pawn {
		b.halfMove = 0
		if abs(int(to)-int(from)) == 16 {
			b.enPassant = (from + to) / 2
			b.key ^= epFileKeys[b.enPassant.File()]
		}
	}

	b.history = append(b.history, st)
	if us == Black {
		b.fullMove++
	}
	b.key ^= sideKey
	b.side = us.Other()
	return st
}

// UnmakeMove takes back m, which must be the last move made. The
// irreversible fields and the key come back verbatim from the snapshot.
func (b *Board) UnmakeMove(m Move) {
	n := len(b.history)
	if n == 0 {
		invariant("UnmakeMove %s with empty history", m)
	}
	st := b.history[n-1]
	b.history = b.history[:n-1]

	b.side = b.side.Other()
	if b.side == Black {
		b.fullMove--
	}

	moveKinds[m.Kind()].revert(b, m, b.mailbox[m.To()])
	if st.Captured != NoPiece {
		b.setPiece(st.Captured, m.To())
	}

	b.key = st.Key
	b.castling = st.Castling
	b.enPassant = st.EnPassant
	b.halfMove = st.HalfMove
}

// MakeNullMove passes the turn without moving a piece.
func (b *Board) MakeNullMove() {
	b.history = append(b.history, StateInfo{
		Key:       b.key,
		Castling:  b.castling,
		EnPassant: b.enPassant,
		HalfMove:  b.halfMove,
		Captured:  NoPiece,
	})
	if b.enPassant != NoSquare {
		b.key ^= epFileKeys[b.enPassant.File()]
		b.enPassant = NoSquare
	}
	b.halfMove++
	b.key ^= sideKey
	b.side = b.side.Other()
}

// UnmakeNullMove reverts MakeNullMove.
func (b *Board) UnmakeNullMove() {
	n := len(b.history)
	if n == 0 {
		invariant("UnmakeNullMove with empty history")
	}
	st := b.history[n-1]
	b.history = b.history[:n-1]
	b.side = b.side.Other()
	b.key = st.Key
	b.enPassant = st.EnPassant
	b.halfMove = st.HalfMove
}
