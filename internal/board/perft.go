package board

// Perft counts the leaf nodes of the legal move tree to the given depth.
func (b *Board) Perft(depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	var list MoveList
	b.LegalMoves(&list)
	if depth == 1 {
		return uint64(list.Len())
	}
	var nodes uint64
	for _, m := range list.Slice() {
		b.MakeMove(m)
		nodes += b.Perft(depth - 1)
		b.UnmakeMove(m)
	}
	return nodes
}

// DivideEntry is the perft count below one root move.
type DivideEntry struct {
	Move  Move
	Nodes uint64
}

// Divide runs perft below every legal root move, in generation order.
func (b *Board) Divide(depth int) []DivideEntry {
	var list MoveList
	b.LegalMoves(&list)
	out := make([]DivideEntry, 0, list.Len())
	for _, m := range list.Slice() {
		b.MakeMove(m)
		out = append(out, DivideEntry{Move: m, Nodes: b.Perft(depth - 1)})
		b.UnmakeMove(m)
	}
	return out
}
