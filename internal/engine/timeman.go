package engine

import (
	"time"

	"github.com/leafchess/leaf/internal/board"
)

// Clock holds the game clock parameters of a UCI go command.
type Clock struct {
	Time      [2]time.Duration // wtime, btime (remaining time for each color)
	Inc       [2]time.Duration // winc, binc (increment per move)
	MovesToGo int              // moves until next time control (0 = sudden death)
}

const (
	minMoveTime   = 10 * time.Millisecond
	moveOverhead  = 20 * time.Millisecond
	maxTimeFactor = 90 // percent of the remaining time a move may use
)

// Budget reduces the clock to the flat per-move time the search runs
// with. It returns 0 when us has no clock time, meaning no limit. ply is
// the number of half-moves played so far.
func (c Clock) Budget(us board.Color, ply int) time.Duration {
	timeLeft := c.Time[us]
	if timeLeft <= 0 {
		return 0
	}

	mtg := c.MovesToGo
	if mtg <= 0 {
		// Sudden death: expect fewer moves as the game goes on.
		mtg = min(max(50-ply/4, 10), 50)
	}

	budget := timeLeft/time.Duration(mtg) + c.Inc[us]*9/10 - moveOverhead
	budget = min(budget, timeLeft*maxTimeFactor/100)
	return max(budget, minMoveTime)
}
