package board

// Zobrist keys. They are drawn from a fixed seed so that hashes, and with
// them search results, are identical from run to run.
var (
	pieceKeys    [12][64]uint64
	castlingKeys [16]uint64
	epFileKeys   [8]uint64
	sideKey      uint64
)

const zobristSeed = 0xCAFEBABE

// xorshift64star is a small deterministic generator for the key tables.
type xorshift64star uint64

func (x *xorshift64star) next() uint64 {
	s := uint64(*x)
	s ^= s >> 12
	s ^= s << 25
	s ^= s >> 27
	*x = xorshift64star(s)
	return s * 0x2545F4914F6CDD1D
}

func initZobrist() {
	rng := xorshift64star(zobristSeed)
	for p := WhitePawn; p < NoPiece; p++ {
		for sq := A1; sq <= H8; sq++ {
			pieceKeys[p][sq] = rng.next()
		}
	}
	for i := range castlingKeys {
		castlingKeys[i] = rng.next()
	}
	for f := range epFileKeys {
		epFileKeys[f] = rng.next()
	}
	sideKey = rng.next()
}

// ComputeHash rebuilds the position key from scratch. The incrementally
// maintained key must always equal it.
func (b *Board) ComputeHash() uint64 {
	var key uint64
	for sq := A1; sq <= H8; sq++ {
		if p := b.mailbox[sq]; p != NoPiece {
			key ^= pieceKeys[p][sq]
		}
	}
	key ^= castlingKeys[b.castling]
	if b.enPassant != NoSquare {
		key ^= epFileKeys[b.enPassant.File()]
	}
	if b.side == Black {
		key ^= sideKey
	}
	return key
}
