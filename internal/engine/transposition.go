package engine

import (
	"github.com/leafchess/leaf/internal/board"
)

// TTFlag indicates the type of bound stored in the transposition table.
type TTFlag uint8

const (
	TTExact      TTFlag = iota // Exact score
	TTLowerBound               // Failed high (beta cutoff)
	TTUpperBound               // Failed low
)

func (f TTFlag) String() string {
	switch f {
	case TTExact:
		return "exact"
	case TTLowerBound:
		return "lower"
	case TTUpperBound:
		return "upper"
	}
	return "?"
}

// TTEntry represents an entry in the transposition table.
type TTEntry struct {
	Key      uint64     // Full 64-bit Zobrist key for verification
	BestMove board.Move // Best move found
	Score    int16      // Score (bounded by flag), mate scores relative to the node
	Depth    int8       // Search depth
	Flag     TTFlag     // Type of bound
}

// TranspositionTable is a flat, power-of-two sized hash table indexed by
// key & mask. It is not safe for concurrent use; a search owns it while it
// runs.
type TranspositionTable struct {
	entries []TTEntry
	size    uint64
	mask    uint64

	hits   uint64
	probes uint64
}

const ttEntrySize = 16

// NewTranspositionTable creates a transposition table with the given size in MB.
func NewTranspositionTable(sizeMB int) *TranspositionTable {
	tt := &TranspositionTable{}
	tt.Resize(sizeMB)
	return tt
}

// Resize reallocates the table for sizeMB megabytes, dropping every entry.
// Sizes below 1 MB are raised to 1 MB.
func (tt *TranspositionTable) Resize(sizeMB int) {
	if sizeMB < 1 {
		sizeMB = 1
	}
	numEntries := roundDownToPowerOf2(uint64(sizeMB) * 1024 * 1024 / ttEntrySize)
	tt.entries = make([]TTEntry, numEntries)
	tt.size = numEntries
	tt.mask = numEntries - 1
	tt.hits, tt.probes = 0, 0
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

// Probe looks up a position. The entry is returned only when its full key
// matches.
func (tt *TranspositionTable) Probe(key uint64) (TTEntry, bool) {
	tt.probes++
	entry := tt.entries[key&tt.mask]
	if entry.Key == key && key != 0 {
		tt.hits++
		return entry, true
	}
	return TTEntry{}, false
}

// Store saves a search result. An occupied slot is overwritten only when
// the new depth is at least the stored depth, so shallow results never
// evict deeper ones.
func (tt *TranspositionTable) Store(key uint64, depth int, score int, flag TTFlag, bestMove board.Move) {
	entry := &tt.entries[key&tt.mask]
	if entry.Key != 0 && depth < int(entry.Depth) {
		return
	}
	*entry = TTEntry{
		Key:      key,
		BestMove: bestMove,
		Score:    int16(score),
		Depth:    int8(depth),
		Flag:     flag,
	}
}

// BestMove returns the stored move for key, or NoMove.
func (tt *TranspositionTable) BestMove(key uint64) board.Move {
	if e, ok := tt.Probe(key); ok {
		return e.BestMove
	}
	return board.NoMove
}

// Clear empties the table.
func (tt *TranspositionTable) Clear() {
	clear(tt.entries)
	tt.hits, tt.probes = 0, 0
}

// HashFull returns the permille of the first thousand slots in use.
func (tt *TranspositionTable) HashFull() int {
	sampleSize := 1000
	if uint64(sampleSize) > tt.size {
		sampleSize = int(tt.size)
	}
	used := 0
	for i := 0; i < sampleSize; i++ {
		if tt.entries[i].Key != 0 {
			used++
		}
	}
	return used * 1000 / sampleSize
}

// HitRate returns the probe hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	if tt.probes == 0 {
		return 0
	}
	return float64(tt.hits) / float64(tt.probes) * 100
}

// Size returns the number of entries in the table.
func (tt *TranspositionTable) Size() uint64 {
	return tt.size
}

// AdjustScoreFromTT converts a stored mate score, which counts plies from
// the stored node, back into a score relative to the root.
func AdjustScoreFromTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score - ply
	}
	if score < -MateScore+MaxPly {
		return score + ply
	}
	return score
}

// AdjustScoreToTT adjusts a score for storage in the transposition table.
func AdjustScoreToTT(score int, ply int) int {
	if score > MateScore-MaxPly {
		return score + ply
	}
	if score < -MateScore+MaxPly {
		return score - ply
	}
	return score
}
