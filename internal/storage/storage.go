// Package storage persists search results and game records in BadgerDB.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Key prefixes
const (
	analysisPrefix = "analysis/"
	gamePrefix     = "game/"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Analysis is a completed search result for one position.
type Analysis struct {
	Key     uint64    `json:"key"`
	FEN     string    `json:"fen"`
	Depth   int       `json:"depth"`
	Move    string    `json:"move"`
	Score   int       `json:"score"`
	PV      []string  `json:"pv,omitempty"`
	Nodes   uint64    `json:"nodes"`
	Updated time.Time `json:"updated"`
}

// Game is the record of one game played through the engine.
type Game struct {
	ID       uuid.UUID `json:"id"`
	StartFEN string    `json:"start_fen"`
	Moves    []string  `json:"moves"`
	Result   string    `json:"result"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}

// NewGame returns an unsaved record starting from fen.
func NewGame(fen string) *Game {
	now := time.Now().UTC()
	return &Game{
		ID:       uuid.New(),
		StartFEN: fen,
		Result:   "*",
		Created:  now,
		Updated:  now,
	}
}

// Store wraps BadgerDB for persistent storage.
type Store struct {
	db  *badger.DB
	log zerolog.Logger
}

// Open opens or creates the database in dir.
func Open(dir string, log zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{log: log.With().Str("component", "badger").Logger()})
	return open(opts, log)
}

// OpenInMemory opens a database that lives only as long as the Store.
func OpenInMemory(log zerolog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return open(opts, log)
}

func open(opts badger.Options, log zerolog.Logger) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", opts.Dir, err)
	}
	log.Debug().Str("dir", opts.Dir).Bool("in_memory", opts.InMemory).Msg("storage opened")
	return &Store{db: db, log: log}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func analysisKey(key uint64) []byte {
	return []byte(fmt.Sprintf("%s%016x", analysisPrefix, key))
}

func gameKey(id uuid.UUID) []byte {
	return []byte(gamePrefix + id.String())
}

func (s *Store) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *Store) get(key []byte, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		return getTxn(txn, key, v)
	})
}

func getTxn(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// SaveAnalysis stores a search result. A stored result for the same
// position from a deeper search is kept.
func (s *Store) SaveAnalysis(a Analysis) error {
	a.Updated = time.Now().UTC()
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	key := analysisKey(a.Key)
	return s.db.Update(func(txn *badger.Txn) error {
		var old Analysis
		err := getTxn(txn, key, &old)
		switch {
		case err == nil && old.FEN == a.FEN && old.Depth > a.Depth:
			return nil
		case err != nil && !errors.Is(err, ErrNotFound):
			return err
		}
		return txn.Set(key, data)
	})
}

// LoadAnalysis returns the stored result for the position with the given
// key and FEN. A stored record whose FEN differs is a key collision and is
// reported as ErrNotFound.
func (s *Store) LoadAnalysis(key uint64, fen string) (Analysis, error) {
	var a Analysis
	if err := s.get(analysisKey(key), &a); err != nil {
		return Analysis{}, err
	}
	if a.FEN != fen {
		s.log.Debug().Str("fen", fen).Str("stored_fen", a.FEN).Msg("analysis key collision")
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

// SaveGame writes a game record.
func (s *Store) SaveGame(g *Game) error {
	g.Updated = time.Now().UTC()
	return s.put(gameKey(g.ID), g)
}

// LoadGame reads the game with the given id.
func (s *Store) LoadGame(id uuid.UUID) (*Game, error) {
	g := &Game{}
	if err := s.get(gameKey(id), g); err != nil {
		return nil, err
	}
	return g, nil
}

// DeleteGame removes a game record.
func (s *Store) DeleteGame(id uuid.UUID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(gameKey(id))
	})
}

// Games returns every stored game record, ordered by id.
func (s *Store) Games() ([]*Game, error) {
	var games []*Game
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(gamePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			g := &Game{}
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, g)
			}); err != nil {
				return err
			}
			games = append(games, g)
		}
		return nil
	})
	return games, err
}

// badgerLogger routes badger's internal logging through zerolog.
type badgerLogger struct {
	log zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Trace().Msgf(format, args...)
}
