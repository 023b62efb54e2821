package board

import (
	"encoding/binary"
	"math/bits"

	"lukechampine.com/frand"
)

// Magic indexes the shared sliding-attack table for one square:
// table[Offset + ((occ & Mask) * Magic) >> Shift].
type Magic struct {
	Mask   Bitboard
	Magic  uint64
	Shift  uint8
	Offset uint32
}

func (m *Magic) index(occ Bitboard) uint32 {
	return m.Offset + uint32((uint64(occ&m.Mask)*m.Magic)>>m.Shift)
}

func (m *Magic) attacks(table []Bitboard, occ Bitboard) Bitboard {
	return table[m.index(occ)]
}

const (
	rookTableSize   = 0x19000
	bishopTableSize = 0x1480
)

var (
	rookMagics   [64]Magic
	bishopMagics [64]Magic
	rookTable    [rookTableSize]Bitboard
	bishopTable  [bishopTableSize]Bitboard

	rookDirections   = [4]Direction{North, South, East, West}
	bishopDirections = [4]Direction{NorthEast, NorthWest, SouthEast, SouthWest}
)

// magicSeed fixes the candidate stream so every process builds the same tables.
var magicSeed = [32]byte{'l', 'e', 'a', 'f', '-', 'm', 'a', 'g', 'i', 'c'}

func initMagics() {
	rng := frand.NewCustom(magicSeed[:], 1024, 12)
	buildMagics(rng, &rookMagics, rookTable[:], rookDirections)
	buildMagics(rng, &bishopMagics, bishopTable[:], bishopDirections)
}

// slidingAttacks ray-casts from sq in each direction, stopping on the first
// occupied square (included) or at the board edge.
func slidingAttacks(dirs [4]Direction, sq Square, occ Bitboard) Bitboard {
	var att Bitboard
	for _, d := range dirs {
		for s := SquareBB(sq); ; {
			s = Shift(s, d)
			if s == 0 {
				break
			}
			att |= s
			if s&occ != 0 {
				break
			}
		}
	}
	return att
}

// relevantMask drops board edges from the empty-board attack set. A slider
// standing on an edge keeps the far squares of its own rank or file.
func relevantMask(dirs [4]Direction, sq Square) Bitboard {
	edges := (Rank1|Rank8)&^RankBB(sq.Rank()) | (FileA|FileH)&^FileBB(sq.File())
	return slidingAttacks(dirs, sq, 0) &^ edges
}

func randomUint64(rng *frand.RNG) uint64 {
	var buf [8]byte
	rng.Read(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

func buildMagics(rng *frand.RNG, magics *[64]Magic, table []Bitboard, dirs [4]Direction) {
	var (
		occupancy [4096]Bitboard
		reference [4096]Bitboard
		stamp     [4096]int
		epoch     int
		offset    uint32
	)

	for sq := A1; sq <= H8; sq++ {
		m := &magics[sq]
		m.Mask = relevantMask(dirs, sq)
		m.Shift = uint8(64 - m.Mask.Count())
		m.Offset = offset

		// Carry-rippler walk over every subset of the mask.
		size := 0
		for b := Bitboard(0); ; {
			occupancy[size] = b
			reference[size] = slidingAttacks(dirs, sq, b)
			size++
			b = (b - m.Mask) & m.Mask
			if b == 0 {
				break
			}
		}

		for {
			m.Magic = randomUint64(rng) & randomUint64(rng) & randomUint64(rng)
			if bits.OnesCount64((uint64(m.Mask)*m.Magic)>>56) < 6 {
				continue
			}

			epoch++
			ok := true
			for i := 0; i < size; i++ {
				idx := (uint64(occupancy[i]) * m.Magic) >> m.Shift
				if stamp[idx] < epoch {
					stamp[idx] = epoch
					table[offset+uint32(idx)] = reference[i]
				} else if table[offset+uint32(idx)] != reference[i] {
					ok = false
					break
				}
			}
			if ok {
				break
			}
		}
		offset += uint32(size)
	}
}
