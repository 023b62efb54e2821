package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/leafchess/leaf/internal/board"
)

// Search constants
const (
	Infinity  = 30000
	MateScore = 29000
	MaxPly    = 128
)

// lmrMinMoveIndex is the first move index eligible for late-move reduction.
const lmrMinMoveIndex = 3

// timeCheckMask sets how often the wall clock is sampled, in nodes.
const timeCheckMask = 1023

// PVTable stores the principal variation found at each ply.
type PVTable struct {
	length [MaxPly + 1]int
	moves  [MaxPly + 1][MaxPly + 1]board.Move
}

// Clear empties every line.
func (pv *PVTable) Clear() {
	*pv = PVTable{}
}

// Line returns the principal variation from the given ply.
func (pv *PVTable) Line(ply int) []board.Move {
	return pv.moves[ply][:pv.length[ply]]
}

func (pv *PVTable) reset(ply int) {
	pv.length[ply] = 0
}

// update makes m followed by the child ply's line the line at ply.
func (pv *PVTable) update(ply int, m board.Move) {
	pv.moves[ply][0] = m
	n := copy(pv.moves[ply][1:], pv.moves[ply+1][:pv.length[ply+1]])
	pv.length[ply] = n + 1
}

// move returns the first move of the line at ply, or NoMove.
func (pv *PVTable) move(ply int) board.Move {
	if pv.length[ply] == 0 {
		return board.NoMove
	}
	return pv.moves[ply][0]
}

// SearchContext owns the state of one search invocation. The stop flag is
// the only field that may be touched from another goroutine. Cancelling
// the context.Context it was created with also stops the search, and
// unlike the flag it survives a reset.
type SearchContext struct {
	ctx     context.Context
	tt      *TranspositionTable
	log     zerolog.Logger
	pv      PVTable
	killers Killers

	nodes    uint64
	start    time.Time
	deadline time.Time
	stop     atomic.Bool
}

// NewSearchContext returns a context that searches with tt. A zero budget
// means no time limit.
func NewSearchContext(ctx context.Context, tt *TranspositionTable, budget time.Duration, log zerolog.Logger) *SearchContext {
	sc := &SearchContext{ctx: ctx, tt: tt, log: log}
	sc.reset(budget)
	return sc
}

// reset prepares the context for a fresh iterative deepening run.
func (sc *SearchContext) reset(budget time.Duration) {
	sc.pv.Clear()
	sc.killers.Clear()
	sc.nodes = 0
	sc.stop.Store(false)
	sc.start = time.Now()
	sc.deadline = time.Time{}
	if budget > 0 {
		sc.deadline = sc.start.Add(budget)
	}
}

// Stop asks the search to return as soon as possible. It is safe to call
// from any goroutine.
func (sc *SearchContext) Stop() {
	sc.stop.Store(true)
}

// Stopped reports whether the search has been asked to stop.
func (sc *SearchContext) Stopped() bool {
	return sc.stop.Load()
}

// Nodes returns the number of nodes visited so far.
func (sc *SearchContext) Nodes() uint64 {
	return sc.nodes
}

// Elapsed returns the time since the search started.
func (sc *SearchContext) Elapsed() time.Duration {
	return time.Since(sc.start)
}

// PV returns the principal variation of the last root search.
func (sc *SearchContext) PV() []board.Move {
	return sc.pv.Line(0)
}

// aborted polls the deadline and the context and reports whether the
// search must unwind.
func (sc *SearchContext) aborted() bool {
	if sc.nodes&timeCheckMask == 0 {
		if !sc.deadline.IsZero() && time.Now().After(sc.deadline) {
			sc.stop.Store(true)
		}
		if sc.ctx.Err() != nil {
			sc.stop.Store(true)
		}
	}
	return sc.stop.Load()
}

// NegaMax searches b to depth and returns its score from the side to
// move's point of view. An aborted subtree returns 0; callers discard
// results from a depth that did not complete.
func NegaMax(sc *SearchContext, b *board.Board, depth, ply, alpha, beta int) int {
	sc.nodes++
	if sc.aborted() {
		return 0
	}
	pvMove := sc.pv.move(ply)
	sc.pv.reset(ply)

	ttMove := board.NoMove
	if e, ok := sc.tt.Probe(b.Key()); ok {
		ttMove = e.BestMove
		if int(e.Depth) >= depth {
			score := AdjustScoreFromTT(int(e.Score), ply)
			switch {
			case e.Flag == TTExact,
				e.Flag == TTLowerBound && score >= beta,
				e.Flag == TTUpperBound && score <= alpha:
				return score
			}
		}
	}

	if DrawGame(b) {
		return DrawScore
	}

	var moves board.MoveList
	b.LegalMoves(&moves)
	if moves.Len() == 0 {
		if b.InCheck() {
			return -MateScore + ply
		}
		return DrawScore
	}

	if depth <= 0 || ply >= MaxPly-1 {
		return quiescence(sc, b, ply, 0, alpha, beta)
	}

	killers := &sc.killers[ply]
	OrderMoves(b, &moves, ttMove, pvMove, killers)

	alphaOrig := alpha
	bestScore := -Infinity
	bestMove := board.NoMove
	for i, m := range moves.Slice() {
		newDepth := depth - 1
		if newDepth > 0 && reducible(b, m, i, ttMove, pvMove, killers) {
			newDepth--
		}

		b.MakeMove(m)
		score := -NegaMax(sc, b, newDepth, ply+1, -beta, -alpha)
		b.UnmakeMove(m)

		if sc.stop.Load() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = m
		}
		if score > alpha {
			alpha = score
			sc.pv.update(ply, m)
		}
		if score >= beta {
			sc.tt.Store(b.Key(), depth, AdjustScoreToTT(bestScore, ply), TTLowerBound, bestMove)
			if quiet {
				sc.killers.Update(m, ply)
			}
			return bestScore
		}
	}

	flag := TTExact
	if bestScore <= alphaOrig {
		flag = TTUpperBound
	}
	sc.tt.Store(b.Key(), depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)
	return bestScore
}

// quiescenceCheckPlies is how many quiescence plies also try quiet checks.
// Deeper plies only look at captures and promotions.
const quiescenceCheckPlies = 2

// Quiescence extends the search along captures, checks and promotions
// until the position is quiet, using the static evaluation as a stand-pat
// lower bound.
func Quiescence(sc *SearchContext, b *board.Board, ply, alpha, beta int) int {
	return quiescence(sc, b, ply, 0, alpha, beta)
}

func quiescence(sc *SearchContext, b *board.Board, ply, qPly, alpha, beta int) int {
	sc.nodes++
	if sc.aborted() {
		return 0
	}

	standPat := Evaluate(b)
	if ply >= MaxPly-1 {
		return standPat
	}
	if standPat >= beta {
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}

	var legal, noisy board.MoveList
	b.LegalMoves(&legal)
	checks := qPly < quiescenceCheckPlies
	for _, m := range legal.Slice() {
		if b.IsCapture(m) || m.Kind() == board.Promotion || checks && b.GivesCheck(m) {
			noisy.Add(m)
		}
	}
	OrderMoves(b, &noisy, board.NoMove, board.NoMove, &[2]board.Move{})

	for _, m := range noisy.Slice() {
		b.MakeMove(m)
		score := -quiescence(sc, b, ply+1, qPly+1, -beta, -alpha)
		b.UnmakeMove(m)

		if sc.stop.Load() {
			return 0
		}
		if score >= beta {
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha
}

// FindBestMove searches every root move to depth. The stop flag is checked
// between siblings; complete is false when the depth was cut short, in
// which case the move must not be used.
func FindBestMove(sc *SearchContext, b *board.Board, depth int) (best board.Move, score int, complete bool) {
	var moves board.MoveList
	b.LegalMoves(&moves)
	if moves.Len() == 0 {
		return board.NoMove, 0, true
	}

	pvMove := sc.pv.move(0)
	sc.pv.reset(0)
	OrderMoves(b, &moves, sc.tt.BestMove(b.Key()), pvMove, &sc.killers[0])

	alpha, beta := -Infinity, Infinity
	best, score = board.NoMove, -Infinity
	for _, m := range moves.Slice() {
		if sc.stop.Load() || sc.ctx.Err() != nil {
			sc.stop.Store(true)
			return best, score, false
		}
		b.MakeMove(m)
		s := -NegaMax(sc, b, depth-1, 1, -beta, -alpha)
		b.UnmakeMove(m)
		if sc.stop.Load() {
			return best, score, false
		}
		if s > score {
			score, best = s, m
		}
		if s > alpha {
			alpha = s
			sc.pv.update(0, m)
		}
	}
	sc.tt.Store(b.Key(), depth, AdjustScoreToTT(score, 0), TTExact, best)
	return best, score, true
}

// Iteration describes one completed iterative deepening depth.
type Iteration struct {
	Depth int
	Move  board.Move
	Score int
	Nodes uint64
	Time  time.Duration
	PV    []board.Move
}

// SearchMove runs iterative deepening from depth 1 to maxDepth and returns
// the best move of the last depth that completed. It returns NoMove when
// there is no legal move or depth 1 did not complete. onIteration, if not
// nil, is called after every completed depth.
func SearchMove(sc *SearchContext, b *board.Board, maxDepth int, budget time.Duration, onIteration func(Iteration)) (board.Move, int) {
	sc.reset(budget)
	if maxDepth < 1 {
		maxDepth = 1
	}
	if maxDepth > MaxPly-1 {
		maxDepth = MaxPly - 1
	}

	best, bestScore := board.NoMove, 0
	for depth := 1; depth <= maxDepth; depth++ {
		m, score, complete := FindBestMove(sc, b, depth)
		if !complete {
			sc.log.Debug().Int("depth", depth).Uint64("nodes", sc.nodes).Msg("depth abandoned")
			break
		}
		if m == board.NoMove {
			break
		}
		best, bestScore = m, score

		it := Iteration{
			Depth: depth,
			Move:  m,
			Score: score,
			Nodes: sc.nodes,
			Time:  sc.Elapsed(),
			PV:    append([]board.Move(nil), sc.PV()...),
		}
		sc.log.Debug().
			Int("depth", depth).
			Int("score", score).
			Str("move", m.String()).
			Uint64("nodes", sc.nodes).
			Dur("elapsed", it.Time).
			Msg("depth complete")
		if onIteration != nil {
			onIteration(it)
		}

		if score > MateScore-MaxPly || score < -MateScore+MaxPly {
			if MateScore-abs(score) <= depth {
				break
			}
		}
	}
	return best, bestScore
}

// abs returns the absolute value of an integer.
// reducible reports whether late move reduction applies to the i-th
// ordered move: a late quiet move that is not a hash, PV or killer move
// and gives no check.
func reducible(b *board.Board, m board.Move, i int, ttMove, pvMove board.Move, killers *[2]board.Move) bool {
	if i < lmrMinMoveIndex || b.IsCapture(m) || m.Kind() == board.Promotion {
		return false
	}
	if m == ttMove || m == pvMove || m == killers[0] || m == killers[1] {
		return false
	}
	return !b.GivesCheck(m)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
