package storage

import (
	"fmt"

	"github.com/notnil/chess"
)

const standardStartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ExportPGN renders a game record as PGN. The moves are replayed with an
// independent move generator, so a record holding an illegal move is
// reported as an error.
func ExportPGN(g *Game) (string, error) {
	var opts []func(*chess.Game)
	custom := g.StartFEN != "" && g.StartFEN != standardStartFEN
	if custom {
		fen, err := chess.FEN(g.StartFEN)
		if err != nil {
			return "", fmt.Errorf("game %s: start position: %w", g.ID, err)
		}
		opts = append(opts, fen)
	}

	game := chess.NewGame(opts...)
	for i, s := range g.Moves {
		m, err := chess.UCINotation{}.Decode(game.Position(), s)
		if err != nil {
			return "", fmt.Errorf("game %s: move %d %q: %w", g.ID, i+1, s, err)
		}
		if err := game.Move(m); err != nil {
			return "", fmt.Errorf("game %s: move %d %q: %w", g.ID, i+1, s, err)
		}
	}

	game.AddTagPair("Event", "leaf game")
	game.AddTagPair("Site", "?")
	game.AddTagPair("Date", g.Created.Format("2006.01.02"))
	game.AddTagPair("Round", "-")
	game.AddTagPair("White", "?")
	game.AddTagPair("Black", "?")
	game.AddTagPair("Result", g.Result)
	game.AddTagPair("GameId", g.ID.String())
	if custom {
		game.AddTagPair("SetUp", "1")
		game.AddTagPair("FEN", g.StartFEN)
	}
	return game.String(), nil
}
