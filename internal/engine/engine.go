package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/leafchess/leaf/internal/board"
)

// DefaultMaxDepth is used when Limits carries no depth.
const DefaultMaxDepth = 20

// SearchInfo contains information about a completed depth.
type SearchInfo struct {
	Depth    int
	Score    int
	Nodes    uint64
	Time     time.Duration
	PV       []board.Move
	HashFull int // Permille of hash table used
}

// Limits specifies constraints on the search.
type Limits struct {
	Depth    int           // Maximum depth (0 = DefaultMaxDepth)
	MoveTime time.Duration // Time for this move (0 = no limit)
	Infinite bool          // Search until stopped
}

// Result is the outcome of a search.
type Result struct {
	Move  board.Move
	Score int
	Depth int
	Nodes uint64
	Time  time.Duration
	PV    []board.Move
}

// Engine owns the transposition table and runs one search at a time.
type Engine struct {
	tt  *TranspositionTable
	log zerolog.Logger

	mu      sync.Mutex
	current *SearchContext

	// OnInfo is called after every completed depth.
	OnInfo func(SearchInfo)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for search diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates a new chess engine with the given transposition table size in MB.
func NewEngine(ttSizeMB int, opts ...Option) *Engine {
	e := &Engine{
		tt:  NewTranspositionTable(ttSizeMB),
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs iterative deepening on b within limits until the limits are
// reached, ctx is cancelled or Stop is called. The board is returned to its
// original state. Result.Move is NoMove when there is no legal move or the
// first depth did not complete.
func (e *Engine) Search(ctx context.Context, b *board.Board, limits Limits) Result {
	maxDepth := limits.Depth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	budget := limits.MoveTime
	if limits.Infinite {
		budget = 0
		if limits.Depth <= 0 {
			maxDepth = MaxPly - 1
		}
	}

	sc := NewSearchContext(ctx, e.tt, budget, e.log)
	e.mu.Lock()
	e.current = sc
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.current = nil
		e.mu.Unlock()
	}()

	var res Result
	move, score := SearchMove(sc, b, maxDepth, budget, func(it Iteration) {
		res.Depth = it.Depth
		res.PV = it.PV
		if e.OnInfo != nil {
			e.OnInfo(SearchInfo{
				Depth:    it.Depth,
				Score:    it.Score,
				Nodes:    it.Nodes,
				Time:     it.Time,
				PV:       it.PV,
				HashFull: e.tt.HashFull(),
			})
		}
	})
	res.Move = move
	res.Score = score
	res.Nodes = sc.Nodes()
	res.Time = sc.Elapsed()

	e.log.Info().
		Str("fen", b.FEN()).
		Str("move", move.String()).
		Int("score", score).
		Int("depth", res.Depth).
		Uint64("nodes", res.Nodes).
		Dur("elapsed", res.Time).
		Float64("tt_hit_rate", e.tt.HitRate()).
		Msg("search finished")
	return res
}

// Stop stops the current search, if any.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		e.current.Stop()
	}
}

// Clear clears the transposition table.
func (e *Engine) Clear() {
	e.tt.Clear()
}

// SetHashSize reallocates the transposition table. It must not be called
// while a search runs.
func (e *Engine) SetHashSize(sizeMB int) {
	e.tt.Resize(sizeMB)
	e.log.Debug().Int("mb", sizeMB).Uint64("entries", e.tt.Size()).Msg("hash resized")
}

// HashFull returns the permille of the transposition table in use.
func (e *Engine) HashFull() int {
	return e.tt.HashFull()
}

// Perft counts leaf nodes of the legal move tree (for debugging move generation).
func (e *Engine) Perft(b *board.Board, depth int) uint64 {
	return b.Perft(depth)
}

// Evaluate returns the static evaluation of a position.
func (e *Engine) Evaluate(b *board.Board) int {
	return Evaluate(b)
}

// IsMateScore reports whether score encodes a forced mate.
func IsMateScore(score int) bool {
	return score > MateScore-MaxPly || score < -MateScore+MaxPly
}

// MateIn converts a mate score to moves until mate; negative when the side
// to move is being mated.
func MateIn(score int) int {
	if score > 0 {
		return (MateScore - score + 1) / 2
	}
	return -(MateScore + score + 1) / 2
}

// ScoreToString converts a score to a human-readable string.
func ScoreToString(score int) string {
	if IsMateScore(score) {
		n := MateIn(score)
		if n > 0 {
			return fmt.Sprintf("Mate in %d", n)
		}
		return fmt.Sprintf("Mated in %d", -n)
	}
	sign := ""
	if score < 0 {
		sign = "-"
		score = -score
	}
	return fmt.Sprintf("%s%d.%02d", sign, score/100, score%100)
}
