package board

import (
	"fmt"
	"testing"
)

func TestPerft(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		nodes []uint64 // indexed by depth-1
		slow  int      // depths at or above this are skipped with -short
	}{
		{"start", StartFEN, []uint64{20, 400, 8902, 197281}, 4},
		{"kiwipete", kiwipeteFEN, []uint64{48, 2039, 97862}, 3},
		{"position3", position3FEN, []uint64{14, 191, 2812, 43238}, 5},
		{"position4", position4FEN, []uint64{6, 264, 9467}, 4},
		{"position5", position5FEN, []uint64{44, 1486, 62379}, 3},
		{"en passant pin", "8/8/8/8/k2Pp2R/8/8/4K3 b - d3 0 1", []uint64{6, 94}, 3},
	}

	for _, tc := range tests {
		for i, want := range tc.nodes {
			depth := i + 1
			t.Run(fmt.Sprintf("%s/%d", tc.name, depth), func(t *testing.T) {
				if testing.Short() && depth >= tc.slow {
					t.Skip("slow perft depth")
				}
				b := mustLoad(t, tc.fen)
				if got := b.Perft(depth); got != want {
					t.Errorf("perft(%d) = %d, want %d", depth, got, want)
				}
			})
		}
	}
}

func TestDivideSumsToPerft(t *testing.T) {
	b := mustLoad(t, kiwipeteFEN)
	var total uint64
	for _, e := range b.Divide(2) {
		total += e.Nodes
	}
	if total != 2039 {
		t.Errorf("divide total %d, want 2039", total)
	}
}
