package board

import (
	"reflect"
	"testing"
)

const (
	kiwipeteFEN  = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	position3FEN = "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1"
	position4FEN = "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1"
	position5FEN = "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8"
)

func mustLoad(t testing.TB, fen string) *Board {
	t.Helper()
	b := &Board{}
	if err := b.LoadFEN(fen); err != nil {
		t.Fatalf("LoadFEN(%q): %v", fen, err)
	}
	return b
}

// snapshot copies everything but the history stack.
func snapshot(b *Board) Board {
	s := *b
	s.history = nil
	return s
}

func TestMakeUnmakeRoundTrip(t *testing.T) {
	fens := []string{
		StartFEN,
		kiwipeteFEN,
		position3FEN,
		position4FEN,
		position5FEN,
		"rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
		"r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 5 20",
	}

	for _, fen := range fens {
		t.Run(fen, func(t *testing.T) {
			b := mustLoad(t, fen)
			var list MoveList
			b.LegalMoves(&list)
			for _, m := range list.Slice() {
				before := snapshot(b)
				depth := len(b.history)

				st := b.MakeMove(m)
				if st.Key != before.key || st.HalfMove != before.halfMove || st.Castling != before.castling {
					t.Fatalf("%s: snapshot %+v does not match prior state", m, st)
				}
				if err := b.Validate(); err != nil {
					t.Fatalf("after %s: %v", m, err)
				}
				b.UnmakeMove(m)

				if len(b.history) != depth {
					t.Fatalf("%s: history depth %d, want %d", m, len(b.history), depth)
				}
				if after := snapshot(b); !reflect.DeepEqual(before, after) {
					t.Fatalf("%s: board differs after unmake\nbefore %s\nafter  %s", m, before.FEN(), after.FEN())
				}
			}
		})
	}
}

// walk plays a deterministic line of length plies, checking the incremental
// key against a full recomputation after every make and unmake.
func walk(t *testing.T, b *Board, plies int) {
	t.Helper()
	var played []Move
	for ply := 0; ply < plies; ply++ {
		var list MoveList
		b.LegalMoves(&list)
		if list.Len() == 0 {
			break
		}
		m := list.Get((ply*7 + 3) % list.Len())
		b.MakeMove(m)
		played = append(played, m)
		if b.Key() != b.ComputeHash() {
			t.Fatalf("ply %d after %s: key %016x, recomputed %016x", ply, m, b.Key(), b.ComputeHash())
		}
	}
	for i := len(played) - 1; i >= 0; i-- {
		b.UnmakeMove(played[i])
		if err := b.Validate(); err != nil {
			t.Fatalf("unmaking %s: %v", played[i], err)
		}
	}
}

func TestIncrementalHashMatchesRecomputation(t *testing.T) {
	for _, fen := range []string{StartFEN, kiwipeteFEN, position4FEN, position5FEN} {
		t.Run(fen, func(t *testing.T) {
			b := mustLoad(t, fen)
			start := snapshot(b)
			walk(t, b, 120)
			if !reflect.DeepEqual(start, snapshot(b)) {
				t.Fatalf("board not restored: %s", b.FEN())
			}
		})
	}
}

func TestEqualPositionsHashEqual(t *testing.T) {
	// Same position reached by two move orders.
	a := New()
	for _, s := range []string{"g1f3", "g8f6", "b1c3", "b8c6"} {
		m, err := a.ParseMove(s)
		if err != nil {
			t.Fatal(err)
		}
		a.MakeMove(m)
	}
	b := New()
	for _, s := range []string{"b1c3", "b8c6", "g1f3", "g8f6"} {
		m, err := b.ParseMove(s)
		if err != nil {
			t.Fatal(err)
		}
		b.MakeMove(m)
	}
	if a.Key() != b.Key() {
		t.Errorf("transposed positions hash differently: %016x vs %016x", a.Key(), b.Key())
	}

	fromFEN := mustLoad(t, a.FEN())
	if fromFEN.Key() != a.Key() {
		t.Errorf("FEN reload hashes differently: %016x vs %016x", fromFEN.Key(), a.Key())
	}
}

func TestCastlingRightsUpdate(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		want CastlingRights
	}{
		{"king move", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1e2", BlackKingSide | BlackQueenSide},
		{"castle", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1g1", BlackKingSide | BlackQueenSide},
		{"rook move", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "h1h5", WhiteQueenSide | BlackKingSide | BlackQueenSide},
		{"rook captured", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "a1a8", WhiteKingSide | BlackKingSide},
		{"black queen side", "r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1", "e8c8", WhiteKingSide | WhiteQueenSide},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := mustLoad(t, tc.fen)
			m, err := b.ParseMove(tc.move)
			if err != nil {
				t.Fatal(err)
			}
			b.MakeMove(m)
			if b.Castling() != tc.want {
				t.Errorf("rights %s, want %s", b.Castling(), tc.want)
			}
			if err := b.Validate(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestCastlingMovesRook(t *testing.T) {
	b := mustLoad(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	m, err := b.ParseMove("e1c1")
	if err != nil {
		t.Fatal(err)
	}
	if m.Kind() != Castling {
		t.Fatalf("e1c1 parsed as %s", m.Kind())
	}
	b.MakeMove(m)
	if b.PieceAt(D1) != WhiteRook || b.PieceAt(A1) != NoPiece || b.PieceAt(C1) != WhiteKing {
		t.Errorf("unexpected placement after O-O-O:\n%s", b)
	}
}

func TestEnPassantCaptureAndClock(t *testing.T) {
	b := mustLoad(t, "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3")
	m, err := b.ParseMove("e5f6")
	if err != nil {
		t.Fatal(err)
	}
	if m.Kind() != EnPassant {
		t.Fatalf("e5f6 parsed as %s", m.Kind())
	}
	b.MakeMove(m)
	if b.PieceAt(F5) != NoPiece || b.PieceAt(F6) != WhitePawn {
		t.Errorf("en passant left the board wrong:\n%s", b)
	}
	if b.EnPassant() != NoSquare {
		t.Errorf("en passant square %s, want none", b.EnPassant())
	}
	if b.HalfMoveClock() != 0 {
		t.Errorf("half-move clock %d after pawn capture", b.HalfMoveClock())
	}
}

func TestDoublePushSetsEnPassant(t *testing.T) {
	b := New()
	m, err := b.ParseMove("e2e4")
	if err != nil {
		t.Fatal(err)
	}
	b.MakeMove(m)
	if b.EnPassant() != E3 {
		t.Errorf("en passant %s, want e3", b.EnPassant())
	}
	m, _ = b.ParseMove("g8f6")
	b.MakeMove(m)
	if b.EnPassant() != NoSquare || b.HalfMoveClock() != 1 {
		t.Errorf("after knight move: ep %s clock %d", b.EnPassant(), b.HalfMoveClock())
	}
	if b.FullMoveNumber() != 2 {
		t.Errorf("full move %d, want 2", b.FullMoveNumber())
	}
}

func TestPromotionRoundTrip(t *testing.T) {
	b := mustLoad(t, "1n5k/P7/8/8/8/8/8/K7 w - - 0 1")
	var list MoveList
	b.LegalMoves(&list)
	promos := 0
	for _, m := range list.Slice() {
		if m.Kind() == Promotion {
			promos++
		}
	}
	// a8 push and axb8 capture, four pieces each.
	if promos != 8 {
		t.Fatalf("%d promotions, want 8", promos)
	}

	m, err := b.ParseMove("a7b8n")
	if err != nil {
		t.Fatal(err)
	}
	before := snapshot(b)
	st := b.MakeMove(m)
	if st.Captured != BlackKnight || b.PieceAt(B8) != WhiteKnight {
		t.Fatalf("captured %s, b8 holds %s", st.Captured, b.PieceAt(B8))
	}
	b.UnmakeMove(m)
	if !reflect.DeepEqual(before, snapshot(b)) {
		t.Fatal("promotion capture not reverted")
	}
}

func TestNullMove(t *testing.T) {
	b := mustLoad(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1")
	before := snapshot(b)
	b.MakeNullMove()
	if b.SideToMove() != White || b.EnPassant() != NoSquare {
		t.Fatalf("null move: side %s ep %s", b.SideToMove(), b.EnPassant())
	}
	if b.Key() != b.ComputeHash() {
		t.Fatal("null move key out of sync")
	}
	b.UnmakeNullMove()
	if !reflect.DeepEqual(before, snapshot(b)) {
		t.Fatal("null move not reverted")
	}
}

func TestUnmakeWithoutHistoryPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	New().UnmakeMove(NewMove(E2, E4, Normal, NoPieceType))
}

func TestCloneIsIndependent(t *testing.T) {
	b := New()
	c := b.Clone()
	m, _ := c.ParseMove("d2d4")
	c.MakeMove(m)
	if b.PieceAt(D2) != WhitePawn || b.Ply() != 0 {
		t.Error("clone shares state with original")
	}
}
