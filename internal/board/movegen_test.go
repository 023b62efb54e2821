package board

import (
	"sort"
	"testing"

	"github.com/notnil/chess"
)

func legalStrings(b *Board) []string {
	var list MoveList
	b.LegalMoves(&list)
	out := make([]string, 0, list.Len())
	for _, m := range list.Slice() {
		out = append(out, m.String())
	}
	sort.Strings(out)
	return out
}

func TestCheckmateDetected(t *testing.T) {
	tests := []struct {
		name string
		fen  string
	}{
		{"back rank", "R6k/6pp/8/8/8/8/8/K7 b - - 0 1"},
		{"queen and king", "7k/7Q/6K1/8/8/8/8/8 b - - 0 1"},
		{"smothered", "6rk/5Npp/8/8/8/8/8/K7 b - - 0 1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := mustLoad(t, tc.fen)
			if !b.InCheck() {
				t.Fatal("side to move should be in check")
			}
			if moves := legalStrings(b); len(moves) != 0 {
				t.Fatalf("legal moves in a mate: %v", moves)
			}
			if b.HasLegalMoves() {
				t.Fatal("HasLegalMoves disagrees with LegalMoves")
			}
		})
	}
}

func TestNotCheckmate(t *testing.T) {
	// The king must take the unprotected rook.
	b := mustLoad(t, "6Rk/7p/8/8/8/8/8/K7 b - - 0 1")
	if !b.InCheck() {
		t.Fatal("expected check")
	}
	moves := legalStrings(b)
	if len(moves) != 1 || moves[0] != "h8g8" {
		t.Errorf("legal moves %v, want [h8g8]", moves)
	}
}

func TestStalemate(t *testing.T) {
	b := mustLoad(t, "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1")
	if b.InCheck() {
		t.Fatal("stalemate position reports check")
	}
	if b.HasLegalMoves() {
		t.Fatal("stalemate position has moves")
	}
}

func TestCastlingRestrictions(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		want bool
	}{
		{"free king side", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1g1", true},
		{"free queen side", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1c1", true},
		{"no right", "r3k2r/8/8/8/8/8/8/R3K2R w Qkq - 0 1", "e1g1", false},
		{"blocked", "r3k2r/8/8/8/8/8/8/R3KB1R w KQkq - 0 1", "e1g1", false},
		{"b1 occupied", "r3k2r/8/8/8/8/8/8/RN2K2R w KQkq - 0 1", "e1c1", false},
		{"in check", "r3k2r/8/8/8/8/8/4r3/R3K2R w KQkq - 0 1", "e1g1", false},
		{"through check", "r3k2r/8/8/8/8/8/5r2/R3K2R w KQkq - 0 1", "e1g1", false},
		{"into check", "r3k2r/8/8/8/8/8/6r1/R3K2R w KQkq - 0 1", "e1g1", false},
		{"b1 attacked is fine", "r3k2r/8/8/8/8/8/1r6/R3K2R w KQkq - 0 1", "e1c1", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := mustLoad(t, tc.fen)
			_, err := b.ParseMove(tc.move)
			if got := err == nil; got != tc.want {
				t.Errorf("%s legal = %v, want %v (err %v)", tc.move, got, tc.want, err)
			}
		})
	}
}

func TestEnPassantPin(t *testing.T) {
	b := mustLoad(t, "8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1")
	var list MoveList
	b.LegalMoves(&list)
	for _, m := range list.Slice() {
		if m.Kind() == EnPassant {
			t.Errorf("en passant %s exposes the king", m)
		}
	}
}

func TestMoveListCapacity(t *testing.T) {
	// One of the positions with the most legal moves known.
	b := mustLoad(t, "R6R/3Q4/1Q4Q1/4Q3/2Q4Q/Q4Q2/pp1Q4/kBNN1KB1 w - - 0 1")
	var list MoveList
	b.LegalMoves(&list)
	if list.Len() != 218 {
		t.Errorf("%d legal moves, want 218", list.Len())
	}
}

// TestLegalMovesAgreeWithReference plays deterministic lines and compares
// the legal move set at every ply with an independent generator.
func TestLegalMovesAgreeWithReference(t *testing.T) {
	for _, fen := range []string{StartFEN, kiwipeteFEN, position3FEN, position4FEN, position5FEN} {
		t.Run(fen, func(t *testing.T) {
			b := mustLoad(t, fen)
			fenOpt, err := chess.FEN(fen)
			if err != nil {
				t.Fatal(err)
			}
			game := chess.NewGame(fenOpt, chess.UseNotation(chess.UCINotation{}))

			for ply := 0; ply < 40; ply++ {
				ours := legalStrings(b)

				var ref []string
				for _, m := range game.ValidMoves() {
					ref = append(ref, chess.UCINotation{}.Encode(game.Position(), m))
				}
				sort.Strings(ref)

				if len(ours) != len(ref) {
					t.Fatalf("ply %d %s: %d moves, reference %d\nours %v\nref  %v", ply, b.FEN(), len(ours), len(ref), ours, ref)
				}
				for i := range ours {
					if ours[i] != ref[i] {
						t.Fatalf("ply %d %s: move sets differ\nours %v\nref  %v", ply, b.FEN(), ours, ref)
					}
				}
				if len(ours) == 0 {
					return
				}

				pick := ours[(ply*11+5)%len(ours)]
				m, err := b.ParseMove(pick)
				if err != nil {
					t.Fatal(err)
				}
				b.MakeMove(m)
				if err := game.MoveStr(pick); err != nil {
					t.Fatalf("reference rejected %s: %v", pick, err)
				}
			}
		})
	}
}

func TestGivesCheckAndCapture(t *testing.T) {
	b := mustLoad(t, "4k3/8/8/8/8/8/8/R2nK3 w - - 0 1")
	check, _ := b.ParseMove("a1a8")
	quiet, _ := b.ParseMove("a1a2")
	if !b.GivesCheck(check) || b.GivesCheck(quiet) {
		t.Error("GivesCheck wrong")
	}
	if b.IsCapture(check) {
		t.Error("a1a8 is not a capture")
	}
	take, err := b.ParseMove("a1d1")
	if err != nil {
		t.Fatal(err)
	}
	if !b.IsCapture(take) || b.CapturedType(take) != Knight {
		t.Error("a1d1 takes the knight")
	}
}
