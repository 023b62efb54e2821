package board

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// logger receives invariant violations before the package panics.
var logger = zerolog.Nop()

// SetLogger installs the logger used to report internal invariant
// violations.
func SetLogger(l zerolog.Logger) {
	logger = l.With().Str("component", "board").Logger()
}

// invariant logs a broken internal invariant and panics.
func invariant(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Error().Msg(msg)
	panic("board: " + msg)
}

// CastlingRights is a 4-bit set of the remaining castling options.
type CastlingRights uint8

const (
	WhiteKingSide CastlingRights = 1 << iota
	WhiteQueenSide
	BlackKingSide
	BlackQueenSide

	NoCastling  CastlingRights = 0
	AllCastling                = WhiteKingSide | WhiteQueenSide | BlackKingSide | BlackQueenSide
)

// colorCastling is every right belonging to one side.
var colorCastling = [2]CastlingRights{WhiteKingSide | WhiteQueenSide, BlackKingSide | BlackQueenSide}

func (cr CastlingRights) String() string {
	if cr == NoCastling {
		return "-"
	}
	var sb strings.Builder
	for i, c := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(c)
		}
	}
	return sb.String()
}

// Indexes into Board.occupancy.
const (
	whiteOccupancy = iota
	blackOccupancy
	bothColors
)

// StateInfo is the irreversible part of a position, pushed on every
// MakeMove and restored verbatim by UnmakeMove.
type StateInfo struct {
	Key       uint64
	Castling  CastlingRights
	EnPassant Square
	HalfMove  int
	Captured  Piece
}

// Board is a chess position with its move history.
//
// The piece bitboards are disjoint, the occupancy sets are their unions, the
// mailbox mirrors them square by square and key is the Zobrist hash of the
// whole. Every mutation goes through setPiece/removePiece so that all four
// stay in step. A Board is not safe for concurrent use.
type Board struct {
	pieces    [12]Bitboard
	occupancy [3]Bitboard
	mailbox   [64]Piece

	key       uint64
	side      Color
	castling  CastlingRights
	enPassant Square
	halfMove  int
	fullMove  int

	history []StateInfo
}

// New returns a board set to the standard starting position.
func New() *Board {
	b := &Board{}
	b.Init()
	return b
}

// Init resets the board to the standard starting position.
func (b *Board) Init() {
	if err := b.LoadFEN(StartFEN); err != nil {
		invariant("start position rejected: %v", err)
	}
}

// clear empties the board, keeping the history buffer's capacity.
func (b *Board) clear() {
	hist := b.history[:0]
	*b = Board{history: hist, enPassant: NoSquare, fullMove: 1}
	for sq := range b.mailbox {
		b.mailbox[sq] = NoPiece
	}
}

// Clone returns a deep copy, history included.
func (b *Board) Clone() *Board {
	c := *b
	c.history = append(make([]StateInfo, 0, cap(b.history)), b.history...)
	return &c
}

func (b *Board) setPiece(p Piece, sq Square) {
	if p >= NoPiece || sq >= NoSquare {
		invariant("setPiece(%d, %d) out of range", p, sq)
	}
	bb := SquareBB(sq)
	b.pieces[p] |= bb
	b.occupancy[p.Color()] |= bb
	b.occupancy[bothColors] |= bb
	b.mailbox[sq] = p
	b.key ^= pieceKeys[p][sq]
}

func (b *Board) removePiece(p Piece, sq Square) {
	if p >= NoPiece || sq >= NoSquare {
		invariant("removePiece(%d, %d) out of range", p, sq)
	}
	bb := SquareBB(sq)
	b.pieces[p] &^= bb
	b.occupancy[p.Color()] &^= bb
	b.occupancy[bothColors] &^= bb
	b.mailbox[sq] = NoPiece
	b.key ^= pieceKeys[p][sq]
}

func (b *Board) movePiece(p Piece, from, to Square) {
	b.removePiece(p, from)
	b.setPiece(p, to)
}

// setCastling replaces the castling rights and folds the change into key.
func (b *Board) setCastling(cr CastlingRights) {
	b.key ^= castlingKeys[b.castling] ^ castlingKeys[cr]
	b.castling = cr
}

// Accessors.

func (b *Board) Key() uint64 { return b.key }
func (b *Board) SideToMove() Color { return b.side }
func (b *Board) Castling() CastlingRights { return b.castling }
func (b *Board) EnPassant() Square { return b.enPassant }
func (b *Board) HalfMoveClock() int { return b.halfMove }
func (b *Board) FullMoveNumber() int { return b.fullMove }
func (b *Board) PieceAt(sq Square) Piece { return b.mailbox[sq] }
func (b *Board) Pieces(p Piece) Bitboard { return b.pieces[p] }
func (b *Board) Occupancy(c Color) Bitboard { return b.occupancy[c] }
func (b *Board) AllOccupancy() Bitboard { return b.occupancy[bothColors] }
func (b *Board) History() []StateInfo { return b.history }
func (b *Board) Ply() int { return len(b.history) }
func (b *Board) PieceCount(c Color, pt PieceType) int {
	return b.pieces[MakePiece(c, pt)].Count()
}

// KingSquare returns the square of c's king, NoSquare if it has none.
func (b *Board) KingSquare(c Color) Square {
	return b.pieces[MakePiece(c, King)].LSB()
}

// Validate checks the internal consistency of the board: disjoint piece
// sets, occupancy unions, mailbox agreement and the incremental key.
func (b *Board) Validate() error {
	var white, black Bitboard
	for p := WhitePawn; p < NoPiece; p++ {
		for q := p + 1; q < NoPiece; q++ {
			if b.pieces[p]&b.pieces[q] != 0 {
				return fmt.Errorf("pieces %s and %s overlap", p, q)
			}
		}
		if p.Color() == White {
			white |= b.pieces[p]
		} else {
			black |= b.pieces[p]
		}
	}
	if white != b.occupancy[whiteOccupancy] || black != b.occupancy[blackOccupancy] {
		return fmt.Errorf("color occupancy out of sync")
	}
	if b.occupancy[bothColors] != white|black {
		return fmt.Errorf("all occupancy out of sync")
	}
	for sq := A1; sq <= H8; sq++ {
		p := b.mailbox[sq]
		if p == NoPiece {
			if b.occupancy[bothColors].Has(sq) {
				return fmt.Errorf("mailbox empty at occupied %s", sq)
			}
			continue
		}
		if !b.pieces[p].Has(sq) {
			return fmt.Errorf("mailbox has %s at %s, bitboard does not", p, sq)
		}
	}
	if b.key != b.ComputeHash() {
		return fmt.Errorf("key %016x, recomputed %016x", b.key, b.ComputeHash())
	}
	return nil
}

// String draws the board, rank 8 first, followed by the FEN and key.
func (b *Board) String() string {
	var sb strings.Builder
	sb.WriteString(" +-----------------+\n")
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d|", rank+1)
		for file := 0; file < 8; file++ {
			sb.WriteByte(' ')
			sb.WriteString(b.mailbox[NewSquare(file, rank)].String())
		}
		sb.WriteString(" |\n")
	}
	sb.WriteString(" +-----------------+\n")
	sb.WriteString("   a b c d e f g h\n")
	fmt.Fprintf(&sb, "Fen: %s\nKey: %016X\n", b.FEN(), b.key)
	return sb.String()
}
