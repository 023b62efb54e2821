package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/leafchess/leaf/internal/board"
)

const kiwipeteFEN = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"

func mustBoard(t *testing.T, fen string) *board.Board {
	t.Helper()
	b := board.New()
	if err := b.LoadFEN(fen); err != nil {
		t.Fatalf("LoadFEN(%q): %v", fen, err)
	}
	return b
}

func mustMove(t *testing.T, b *board.Board, s string) board.Move {
	t.Helper()
	m, err := b.ParseMove(s)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", s, err)
	}
	return m
}

func TestSearchBasic(t *testing.T) {
	b := board.New()
	eng := NewEngine(16)

	before := b.FEN()
	res := eng.Search(context.Background(), b, Limits{Depth: 3})
	if res.Move == board.NoMove {
		t.Fatal("Search returned NoMove for starting position")
	}
	var legal board.MoveList
	b.LegalMoves(&legal)
	if !legal.Contains(res.Move) {
		t.Errorf("best move %s is not legal", res.Move)
	}
	if b.FEN() != before {
		t.Errorf("board changed by search: %s", b.FEN())
	}
	if res.Depth != 3 {
		t.Errorf("completed depth = %d, want 3", res.Depth)
	}
	t.Logf("Best move: %s score %d nodes %d", res.Move, res.Score, res.Nodes)
}

func TestSearchDeterministic(t *testing.T) {
	fens := []string{board.StartFEN, kiwipeteFEN}
	for _, fen := range fens {
		var moves []board.Move
		var scores []int
		for i := 0; i < 2; i++ {
			eng := NewEngine(8)
			res := eng.Search(context.Background(), mustBoard(t, fen), Limits{Depth: 3})
			moves = append(moves, res.Move)
			scores = append(scores, res.Score)
		}
		if moves[0] != moves[1] || scores[0] != scores[1] {
			t.Errorf("%s: runs disagree: %s/%d vs %s/%d", fen, moves[0], scores[0], moves[1], scores[1])
		}
	}
}

func TestMateInOne(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want string
	}{
		{"back rank", "6k1/5ppp/8/8/8/8/5PPP/R5K1 w - - 0 1", "a1a8"},
		{"queen and king", "7k/8/6K1/8/8/8/8/5Q2 w - - 0 1", "f1f8"},
		{"black to move", "r5k1/8/8/8/8/8/5PPP/6K1 b - - 0 1", "a8a1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBoard(t, tt.fen)
			res := NewEngine(8).Search(context.Background(), b, Limits{Depth: 3})
			if got := res.Move.String(); got != tt.want {
				t.Errorf("best move = %s, want %s", got, tt.want)
			}
			if !IsMateScore(res.Score) || MateIn(res.Score) != 1 {
				t.Errorf("score = %d (%s), want mate in 1", res.Score, ScoreToString(res.Score))
			}
		})
	}
}

func TestTerminalPositions(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want int
	}{
		{"checkmated", "R5k1/5ppp/8/8/8/8/5PPP/6K1 b - - 0 1", -MateScore},
		{"stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", DrawScore},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustBoard(t, tt.fen)
			sc := NewSearchContext(context.Background(), NewTranspositionTable(1), 0, zerolog.Nop())
			if got := NegaMax(sc, b, 3, 0, -Infinity, Infinity); got != tt.want {
				t.Errorf("NegaMax = %d, want %d", got, tt.want)
			}
			res := NewEngine(1).Search(context.Background(), b, Limits{Depth: 3})
			if res.Move != board.NoMove {
				t.Errorf("Search = %s, want NoMove", res.Move)
			}
		})
	}
}

func TestMateScoreDecaysWithPly(t *testing.T) {
	b := mustBoard(t, "R5k1/5ppp/8/8/8/8/5PPP/6K1 b - - 0 1")
	sc := NewSearchContext(context.Background(), NewTranspositionTable(1), 0, zerolog.Nop())
	if got := NegaMax(sc, b, 1, 4, -Infinity, Infinity); got != -MateScore+4 {
		t.Errorf("NegaMax at ply 4 = %d, want %d", got, -MateScore+4)
	}
}

func TestSearchCancelled(t *testing.T) {
	b := board.New()
	eng := NewEngine(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := eng.Search(ctx, b, Limits{Infinite: true})
	if res.Move != board.NoMove {
		t.Errorf("cancelled search returned %s, want NoMove", res.Move)
	}
}

func TestSearchStop(t *testing.T) {
	b := board.New()
	eng := NewEngine(4)

	firstDepth := make(chan struct{}, 1)
	eng.OnInfo = func(SearchInfo) {
		select {
		case firstDepth <- struct{}{}:
		default:
		}
	}

	done := make(chan Result)
	go func() {
		done <- eng.Search(context.Background(), b, Limits{Infinite: true})
	}()

	select {
	case <-firstDepth:
	case <-time.After(10 * time.Second):
		t.Fatal("no depth completed")
	}
	eng.Stop()

	select {
	case res := <-done:
		if res.Move == board.NoMove {
			t.Error("stopped search returned NoMove")
		}
		if res.Depth < 1 {
			t.Errorf("completed depth = %d", res.Depth)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("search did not stop")
	}
}

func TestSearchMoveTime(t *testing.T) {
	b := mustBoard(t, kiwipeteFEN)
	eng := NewEngine(4)

	start := time.Now()
	res := eng.Search(context.Background(), b, Limits{Depth: 64, MoveTime: 200 * time.Millisecond})
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("search took %v with a 200ms budget", elapsed)
	}
	if res.Move == board.NoMove {
		t.Error("timed search returned NoMove")
	}
}

func TestOnInfo(t *testing.T) {
	eng := NewEngine(4)
	var depths []int
	eng.OnInfo = func(info SearchInfo) {
		depths = append(depths, info.Depth)
		if len(info.PV) == 0 {
			t.Errorf("depth %d reported an empty PV", info.Depth)
		}
	}
	eng.Search(context.Background(), board.New(), Limits{Depth: 3})
	if len(depths) != 3 || depths[0] != 1 || depths[2] != 3 {
		t.Errorf("info depths = %v, want [1 2 3]", depths)
	}
}

func TestTranspositionReplacement(t *testing.T) {
	tt := NewTranspositionTable(1)
	key := uint64(0x1234)
	other := key + tt.Size() // same slot, different key
	m := board.NewMove(board.E2, board.E4, board.Normal, board.NoPieceType)

	if _, ok := tt.Probe(key); ok {
		t.Fatal("probe hit on empty table")
	}

	tt.Store(key, 5, 42, TTExact, m)
	e, ok := tt.Probe(key)
	if !ok || e.Depth != 5 || e.Score != 42 || e.BestMove != m || e.Flag != TTExact {
		t.Fatalf("probe after store = %+v, %v", e, ok)
	}

	tt.Store(other, 3, 7, TTLowerBound, board.NoMove)
	if _, ok := tt.Probe(other); ok {
		t.Error("shallower entry evicted a deeper one")
	}
	if _, ok := tt.Probe(key); !ok {
		t.Error("deeper entry lost")
	}

	tt.Store(other, 5, 7, TTUpperBound, board.NoMove)
	if e, ok := tt.Probe(other); !ok || e.Flag != TTUpperBound {
		t.Error("equal-depth entry did not replace")
	}
	if _, ok := tt.Probe(key); ok {
		t.Error("replaced key still probes")
	}

	tt.Clear()
	if _, ok := tt.Probe(other); ok {
		t.Error("probe hit after Clear")
	}
	if tt.HashFull() != 0 {
		t.Errorf("HashFull after Clear = %d", tt.HashFull())
	}
}

func TestTranspositionResize(t *testing.T) {
	tt := NewTranspositionTable(1)
	if tt.Size() != 1<<16 {
		t.Errorf("1MB table has %d entries, want %d", tt.Size(), 1<<16)
	}
	tt.Store(1, 1, 1, TTExact, board.NoMove)
	tt.Resize(2)
	if tt.Size() != 1<<17 {
		t.Errorf("2MB table has %d entries, want %d", tt.Size(), 1<<17)
	}
	if _, ok := tt.Probe(1); ok {
		t.Error("entry survived Resize")
	}
}

func TestMateScoreTTAdjust(t *testing.T) {
	for _, score := range []int{MateScore - 3, -MateScore + 5, 150, -20, 0} {
		for _, ply := range []int{0, 1, 7} {
			if got := AdjustScoreFromTT(AdjustScoreToTT(score, ply), ply); got != score {
				t.Errorf("round trip of %d at ply %d = %d", score, ply, got)
			}
		}
	}
	// Mated in 5 plies from the root, stored at ply 2: 3 plies from the node.
	if got := AdjustScoreToTT(-MateScore+5, 2); got != -MateScore+3 {
		t.Errorf("AdjustScoreToTT = %d, want %d", got, -MateScore+3)
	}
}

func TestThreefoldRepetition(t *testing.T) {
	b := board.New()
	shuffle := []string{"g1f3", "g8f6", "f3g1", "f6g8"}

	play := func(s string) {
		t.Helper()
		b.MakeMove(mustMove(t, b, s))
	}

	for _, s := range shuffle {
		play(s)
		if DrawGame(b) {
			t.Fatalf("draw after %s in the first cycle", s)
		}
	}
	// The start position is now on the board for the second time.
	for i, s := range shuffle {
		play(s)
		if i < len(shuffle)-1 && DrawGame(b) {
			t.Fatalf("draw after %s in the second cycle", s)
		}
	}
	if !DrawGame(b) {
		t.Error("third occurrence not detected")
	}
}

func TestRepetitionStopsAtIrreversibleMove(t *testing.T) {
	b := board.New()
	for _, s := range []string{"g1f3", "g8f6", "f3g1", "f6g8", "e2e4", "e7e5"} {
		b.MakeMove(mustMove(t, b, s))
	}
	for _, s := range []string{"g1f3", "g8f6", "f3g1", "f6g8"} {
		b.MakeMove(mustMove(t, b, s))
		if Repetition(b) {
			t.Fatalf("repetition after %s", s)
		}
	}
}

func TestFiftyMoveRule(t *testing.T) {
	tests := []struct {
		fen  string
		want bool
	}{
		{"4k3/4p3/8/8/8/8/4P3/4K3 w - - 99 80", false},
		{"4k3/4p3/8/8/8/8/4P3/4K3 w - - 100 80", true},
		{"4k3/4p3/8/8/8/8/4P3/4K3 w - - 50 80", false},
	}
	for _, tt := range tests {
		if got := DrawGame(mustBoard(t, tt.fen)); got != tt.want {
			t.Errorf("DrawGame(%s) = %v, want %v", tt.fen, got, tt.want)
		}
	}
}

func TestInsufficientMaterial(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want bool
	}{
		{"bare kings", "8/8/8/4k3/8/8/8/4K3 w - - 0 1", true},
		{"knight", "8/8/8/4k3/8/8/8/4KN2 w - - 0 1", true},
		{"black bishop", "8/8/8/4kb2/8/8/8/4K3 w - - 0 1", true},
		{"minor each", "8/8/8/4kb2/8/8/8/4KN2 w - - 0 1", true},
		{"two knights", "8/8/8/4k3/8/8/8/3NKN2 w - - 0 1", false},
		{"rook", "8/8/8/4k3/8/8/8/4KR2 w - - 0 1", false},
		{"pawn", "8/8/8/4k3/8/8/4P3/4K3 w - - 0 1", false},
		{"queen", "8/8/8/4kq2/8/8/8/4K3 w - - 0 1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InsufficientMaterial(mustBoard(t, tt.fen)); got != tt.want {
				t.Errorf("InsufficientMaterial = %v, want %v", got, tt.want)
			}
		})
	}
}

// mirrorFEN flips the board vertically and swaps the colours.
func mirrorFEN(fen string) string {
	f := strings.Fields(fen)
	ranks := strings.Split(f[0], "/")
	for i, j := 0, len(ranks)-1; i < j; i, j = i+1, j-1 {
		ranks[i], ranks[j] = ranks[j], ranks[i]
	}
	swap := func(s string) string {
		return strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z':
				return r - 'a' + 'A'
			case r >= 'A' && r <= 'Z':
				return r - 'A' + 'a'
			}
			return r
		}, s)
	}
	f[0] = swap(strings.Join(ranks, "/"))
	if f[1] == "w" {
		f[1] = "b"
	} else {
		f[1] = "w"
	}
	if f[2] != "-" {
		f[2] = swap(f[2])
	}
	if f[3] != "-" {
		f[3] = f[3][:1] + string("87654321"[f[3][1]-'1'])
	}
	return strings.Join(f, " ")
}

func TestEvaluateSymmetry(t *testing.T) {
	fens := []string{
		board.StartFEN,
		kiwipeteFEN,
		"8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
		"rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8",
	}
	for _, fen := range fens {
		a := Evaluate(mustBoard(t, fen))
		b := Evaluate(mustBoard(t, mirrorFEN(fen)))
		if a != b {
			t.Errorf("%s: eval %d, mirrored %d", fen, a, b)
		}
	}
	if got := Evaluate(board.New()); got != 0 {
		t.Errorf("start position eval = %d, want 0", got)
	}
}

func TestEvaluateSideToMove(t *testing.T) {
	w := Evaluate(mustBoard(t, "4k3/8/8/8/8/8/8/3QK3 w - - 0 1"))
	bl := Evaluate(mustBoard(t, "4k3/8/8/8/8/8/8/3QK3 b - - 0 1"))
	if w <= 0 || w != -bl {
		t.Errorf("eval white=%d black=%d, want opposite signs with white ahead", w, bl)
	}
}

func TestPawnStructure(t *testing.T) {
	tests := []struct {
		name  string
		pawns []board.Square
		want  int
	}{
		{"connected", []board.Square{board.D2, board.E2}, 0},
		{"isolated", []board.Square{board.A2}, isolatedPawnPenalty},
		{"doubled", []board.Square{board.D2, board.D3, board.E2}, doubledPawnPenalty},
		{"doubled isolated", []board.Square{board.A2, board.A3}, doubledPawnPenalty + 2*isolatedPawnPenalty},
	}
	for _, tt := range tests {
		var bb board.Bitboard
		for _, sq := range tt.pawns {
			bb |= board.SquareBB(sq)
		}
		if got := pawnStructure(bb); got != tt.want {
			t.Errorf("%s: pawnStructure = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestOrderMovesTiers(t *testing.T) {
	// White can take the rook with the pawn (good capture), take the
	// defended pawn with the queen (losing capture), give check or play
	// quiet moves.
	b := mustBoard(t, "4k3/3p4/4p3/3r4/4P3/8/8/3QK3 w - - 0 1")
	var moves board.MoveList
	b.LegalMoves(&moves)

	ttMove := mustMove(t, b, "e1f1")
	killer := mustMove(t, b, "d1c2")
	killers := [2]board.Move{killer, board.NoMove}
	OrderMoves(b, &moves, ttMove, board.NoMove, &killers)

	got := moves.Slice()
	if got[0] != ttMove {
		t.Errorf("first move = %s, want TT move %s", got[0], ttMove)
	}
	if got[1] != killer {
		t.Errorf("second move = %s, want killer %s", got[1], killer)
	}
	if want := mustMove(t, b, "e4d5"); got[2] != want {
		t.Errorf("third move = %s, want good capture %s", got[2], want)
	}

	index := func(s string) int {
		m := mustMove(t, b, s)
		for i, x := range got {
			if x == m {
				return i
			}
		}
		t.Fatalf("%s not in list", s)
		return -1
	}
	check, losing, quiet := index("d1h5"), index("d1d5"), index("d1b3")
	if !(check < losing && losing < quiet) {
		t.Errorf("order check=%d losing=%d quiet=%d, want check < losing < quiet", check, losing, quiet)
	}
}

func TestKillersUpdate(t *testing.T) {
	var k Killers
	a := board.NewMove(board.A2, board.A3, board.Normal, board.NoPieceType)
	c := board.NewMove(board.B2, board.B3, board.Normal, board.NoPieceType)

	k.Update(a, 3)
	k.Update(a, 3)
	if k[3][0] != a || k[3][1] != board.NoMove {
		t.Errorf("repeated killer shifted: %v", k[3])
	}
	k.Update(c, 3)
	if k[3][0] != c || k[3][1] != a {
		t.Errorf("killers = %v, want [%s %s]", k[3], c, a)
	}
	k.Clear()
	if k[3][0] != board.NoMove {
		t.Error("Clear kept killers")
	}
}

func TestClockBudget(t *testing.T) {
	c := Clock{
		Time: [2]time.Duration{60 * time.Second, 10 * time.Second},
		Inc:  [2]time.Duration{time.Second, 0},
	}
	w := c.Budget(board.White, 0)
	bl := c.Budget(board.Black, 0)
	if w <= bl {
		t.Errorf("white budget %v should exceed black budget %v", w, bl)
	}
	if w > 54*time.Second {
		t.Errorf("white budget %v exceeds 90%% of the clock", w)
	}
	if got := (Clock{}).Budget(board.White, 0); got != 0 {
		t.Errorf("budget without a clock = %v, want 0", got)
	}
	low := Clock{Time: [2]time.Duration{5 * time.Millisecond, 0}}
	if got := low.Budget(board.White, 0); got != minMoveTime {
		t.Errorf("budget on a nearly empty clock = %v, want %v", got, minMoveTime)
	}
}

func TestScoreToString(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "0.00"},
		{125, "1.25"},
		{-40, "-0.40"},
		{MateScore - 1, "Mate in 1"},
		{MateScore - 3, "Mate in 2"},
		{-MateScore + 2, "Mated in 1"},
	}
	for _, tt := range tests {
		if got := ScoreToString(tt.score); got != tt.want {
			t.Errorf("ScoreToString(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestReducible(t *testing.T) {
	b := mustBoard(t, "4k3/3p4/4p3/3r4/4P3/8/8/3QK3 w - - 0 1")
	quiet := mustMove(t, b, "d1b3")
	other := mustMove(t, b, "e1f1")
	killers := [2]board.Move{mustMove(t, b, "d1c2"), board.NoMove}

	tests := []struct {
		name   string
		m      board.Move
		i      int
		tt, pv board.Move
		want   bool
	}{
		{"late quiet", quiet, lmrMinMoveIndex, other, other, true},
		{"early quiet", quiet, lmrMinMoveIndex - 1, other, other, false},
		{"pv move", quiet, lmrMinMoveIndex, other, quiet, false},
		{"hash move", quiet, lmrMinMoveIndex, quiet, other, false},
		{"killer", killers[0], lmrMinMoveIndex, other, other, false},
		{"capture", mustMove(t, b, "e4d5"), lmrMinMoveIndex, other, other, false},
		{"check", mustMove(t, b, "d1h5"), lmrMinMoveIndex, other, other, false},
	}
	for _, tt := range tests {
		if got := reducible(b, tt.m, tt.i, tt.tt, tt.pv, &killers); got != tt.want {
			t.Errorf("%s: reducible = %v, want %v", tt.name, got, tt.want)
		}
	}
}
