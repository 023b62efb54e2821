// Package uci implements the Universal Chess Interface protocol on top of
// the engine, over any line-oriented stream.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/leafchess/leaf/internal/board"
	"github.com/leafchess/leaf/internal/engine"
	"github.com/leafchess/leaf/internal/storage"
)

const (
	engineName   = "leaf"
	engineAuthor = "the leaf authors"
)

// Config holds the tunable session settings. setoption changes them at
// runtime.
type Config struct {
	Hash          int           // transposition table size in MB
	MaxDepth      int           // depth limit when go carries none
	MoveTime      time.Duration // budget when go carries no time limit
	AnalysisCache bool          // answer go from stored analysis when deep enough
}

// DefaultConfig returns the settings used when none are given.
func DefaultConfig() Config {
	return Config{
		Hash:     64,
		MaxDepth: engine.DefaultMaxDepth,
		MoveTime: 25 * time.Second,
	}
}

// errQuit ends the command loop after a quit command.
var errQuit = errors.New("quit")

// Session is one UCI conversation: it owns the current position and runs
// at most one search at a time.
type Session struct {
	eng   *engine.Engine
	store *storage.Store
	log   zerolog.Logger
	cfg   Config

	in    io.Reader
	outMu sync.Mutex
	out   io.Writer

	board *board.Board
	game  *storage.Game

	group    *errgroup.Group
	cancel   context.CancelFunc
	running  chan struct{}
	infinite bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithStore enables the analysis cache and game records.
func WithStore(st *storage.Store) Option {
	return func(s *Session) { s.store = st }
}

// WithConfig replaces the default settings.
func WithConfig(cfg Config) Option {
	return func(s *Session) { s.cfg = cfg }
}

// NewSession creates a session that reads commands from in and writes
// responses to out.
func NewSession(eng *engine.Engine, in io.Reader, out io.Writer, opts ...Option) *Session {
	s := &Session{
		eng:   eng,
		log:   zerolog.Nop(),
		cfg:   DefaultConfig(),
		in:    in,
		out:   out,
		board: board.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run processes commands until quit, end of input or ctx is cancelled.
// Any running search is stopped before Run returns.
func (s *Session) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	s.group = g

	// The reader is not part of the group: a blocked read on stdin cannot
	// be interrupted, and it exits on its own at end of input.
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(s.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	g.Go(func() error {
		defer s.stopSearch()
		for {
			select {
			case <-ctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					// End of input lets a bounded search finish and
					// report its bestmove.
					if !s.infinite {
						s.waitSearch()
					}
					select {
					case err := <-readErr:
						return err
					default:
						return nil
					}
				}
				if err := s.execute(ctx, line); err != nil {
					return err
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, errQuit) {
		return nil
	}
	return err
}

// execute handles one command line. It returns errQuit for quit.
func (s *Session) execute(ctx context.Context, line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	cmd, args := parts[0], parts[1:]
	s.log.Debug().Str("cmd", cmd).Strs("args", args).Msg("command")

	switch cmd {
	case "uci":
		s.handleUCI()
	case "isready":
		s.println("readyok")
	case "ucinewgame":
		s.handleNewGame()
	case "position":
		s.handlePosition(args)
	case "go":
		s.handleGo(ctx, args)
	case "stop":
		s.stopSearch()
	case "quit":
		s.stopSearch()
		return errQuit
	case "setoption":
		s.handleSetOption(args)
	// Debug commands
	case "d":
		s.handleDisplay()
	case "perft":
		s.handlePerft(args)
	case "eval":
		s.handleEval()
	default:
		s.infoString("unknown command: %s", cmd)
	}
	return nil
}

func (s *Session) println(a ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintln(s.out, a...)
}

func (s *Session) printf(format string, a ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, a...)
}

func (s *Session) infoString(format string, a ...any) {
	s.printf("info string "+format+"\n", a...)
}

// handleUCI responds to the "uci" command.
func (s *Session) handleUCI() {
	s.printf("id name %s\n", engineName)
	s.printf("id author %s\n", engineAuthor)
	s.println()
	s.printf("option name Hash type spin default %d min 1 max 4096\n", s.cfg.Hash)
	s.printf("option name Depth type spin default %d min 1 max %d\n", s.cfg.MaxDepth, engine.MaxPly-1)
	s.printf("option name MoveTime type spin default %d min 1 max 3600000\n", s.cfg.MoveTime.Milliseconds())
	s.printf("option name AnalysisCache type check default %t\n", s.cfg.AnalysisCache)
	s.println("option name Clear Hash type button")
	s.println("uciok")
}

// handleNewGame resets the engine and opens a new game record.
func (s *Session) handleNewGame() {
	s.waitSearch()
	s.eng.Clear()
	s.board = board.New()
	s.game = nil
	s.openGame(board.StartFEN)
}

func (s *Session) openGame(fen string) {
	if s.store == nil {
		return
	}
	s.game = storage.NewGame(fen)
	if err := s.store.SaveGame(s.game); err != nil {
		s.log.Error().Err(err).Msg("save game")
		return
	}
	s.log.Info().Str("game", s.game.ID.String()).Msg("new game")
}

// handlePosition parses and sets up a position. On any error the previous
// position is kept.
// Formats:
//   - position startpos
//   - position startpos moves e2e4 e7e5
//   - position fen <fen>
//   - position fen <fen> moves e2e4
func (s *Session) handlePosition(args []string) {
	b, fen, moves, err := parsePosition(args)
	if err != nil {
		s.infoString("%v", err)
		s.log.Warn().Err(err).Strs("args", args).Msg("position rejected")
		return
	}
	s.waitSearch()
	s.board = b
	s.recordGame(fen, moves)
}

func parsePosition(args []string) (*board.Board, string, []string, error) {
	if len(args) == 0 {
		return nil, "", nil, errors.New("position: missing startpos or fen")
	}

	movesAt := len(args)
	for i, arg := range args {
		if arg == "moves" {
			movesAt = i
			break
		}
	}

	var fen string
	switch args[0] {
	case "startpos":
		fen = board.StartFEN
	case "fen":
		fen = strings.Join(args[1:movesAt], " ")
	default:
		return nil, "", nil, fmt.Errorf("position: unknown keyword %q", args[0])
	}

	b := board.New()
	if err := b.LoadFEN(fen); err != nil {
		return nil, "", nil, err
	}
	start := b.FEN()

	var moves []string
	if movesAt < len(args) {
		for _, text := range args[movesAt+1:] {
			m, err := b.ParseMove(text)
			if err != nil {
				return nil, "", nil, err
			}
			b.MakeMove(m)
			moves = append(moves, m.String())
		}
	}
	return b, start, moves, nil
}

// recordGame stores the current move list in the open game record.
func (s *Session) recordGame(fen string, moves []string) {
	if s.store == nil {
		return
	}
	if s.game == nil || s.game.StartFEN != fen {
		s.openGame(fen)
		if s.game == nil {
			return
		}
	}
	s.game.Moves = moves
	s.game.Result = gameResult(s.board)
	if err := s.store.SaveGame(s.game); err != nil {
		s.log.Error().Err(err).Str("game", s.game.ID.String()).Msg("save game")
	}
}

// gameResult returns the PGN result of the position.
func gameResult(b *board.Board) string {
	if !b.HasLegalMoves() {
		switch {
		case !b.InCheck():
			return "1/2-1/2"
		case b.SideToMove() == board.White:
			return "0-1"
		default:
			return "1-0"
		}
	}
	if engine.DrawGame(b) {
		return "1/2-1/2"
	}
	return "*"
}

// GoOptions holds parsed "go" command options.
type GoOptions struct {
	Depth     int
	MoveTime  time.Duration
	Infinite  bool
	WTime     time.Duration
	BTime     time.Duration
	WInc      time.Duration
	BInc      time.Duration
	MovesToGo int
}

// parseGoOptions parses "go" command arguments.
func parseGoOptions(args []string) (GoOptions, error) {
	var opts GoOptions
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }

	for i := 0; i < len(args); i++ {
		if args[i] == "infinite" {
			opts.Infinite = true
			continue
		}
		if i+1 >= len(args) {
			return opts, fmt.Errorf("go: %s needs a value", args[i])
		}
		v, err := strconv.Atoi(args[i+1])
		if err != nil || v < 0 {
			return opts, fmt.Errorf("go: bad %s value %q", args[i], args[i+1])
		}
		switch args[i] {
		case "depth":
			opts.Depth = v
		case "movetime":
			opts.MoveTime = ms(v)
		case "wtime":
			opts.WTime = ms(v)
		case "btime":
			opts.BTime = ms(v)
		case "winc":
			opts.WInc = ms(v)
		case "binc":
			opts.BInc = ms(v)
		case "movestogo":
			opts.MovesToGo = v
		default:
			return opts, fmt.Errorf("go: unknown parameter %q", args[i])
		}
		i++
	}
	return opts, nil
}

// limits reduces the go options to the engine's flat limits.
func (s *Session) limits(opts GoOptions) engine.Limits {
	limits := engine.Limits{Depth: opts.Depth, Infinite: opts.Infinite}
	if opts.Infinite {
		return limits
	}
	if limits.Depth <= 0 {
		limits.Depth = s.cfg.MaxDepth
	}

	switch {
	case opts.MoveTime > 0:
		limits.MoveTime = opts.MoveTime
	case opts.WTime > 0 || opts.BTime > 0:
		clock := engine.Clock{
			Time:      [2]time.Duration{opts.WTime, opts.BTime},
			Inc:       [2]time.Duration{opts.WInc, opts.BInc},
			MovesToGo: opts.MovesToGo,
		}
		limits.MoveTime = clock.Budget(s.board.SideToMove(), s.board.Ply())
	case opts.Depth <= 0:
		limits.MoveTime = s.cfg.MoveTime
	}
	return limits
}

// handleGo starts a search on its own goroutine.
func (s *Session) handleGo(ctx context.Context, args []string) {
	opts, err := parseGoOptions(args)
	if err != nil {
		s.infoString("%v", err)
		return
	}
	s.waitSearch()
	limits := s.limits(opts)

	if s.answerFromCache(limits) {
		return
	}

	searchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.running, s.infinite = cancel, done, limits.Infinite

	b := s.board.Clone()
	root := s.board.Clone()
	s.eng.OnInfo = func(info engine.SearchInfo) {
		s.sendInfo(root, info)
	}

	s.log.Debug().Int("depth", limits.Depth).Dur("movetime", limits.MoveTime).Bool("infinite", limits.Infinite).Msg("search started")
	s.group.Go(func() error {
		defer close(done)
		defer cancel()
		res := s.eng.Search(searchCtx, b, limits)
		if res.Move == board.NoMove {
			// Stopped before the first depth finished: any legal move
			// beats a null bestmove.
			var legal board.MoveList
			root.LegalMoves(&legal)
			if legal.Len() > 0 {
				res.Move = legal.Get(0)
				res.Depth = 0
			}
		}
		s.printf("bestmove %s\n", res.Move)
		s.saveAnalysis(root, res)
		return nil
	})
}

// answerFromCache replies to go from the analysis cache when a stored
// result is at least as deep as requested and its move is still legal.
func (s *Session) answerFromCache(limits engine.Limits) bool {
	if !s.cfg.AnalysisCache || s.store == nil || limits.Infinite {
		return false
	}
	a, err := s.store.LoadAnalysis(s.board.Key(), s.board.FEN())
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Error().Err(err).Msg("load analysis")
		}
		return false
	}
	if a.Depth < limits.Depth {
		return false
	}
	m, err := s.board.ParseMove(a.Move)
	if err != nil {
		s.log.Warn().Err(err).Str("move", a.Move).Msg("cached move rejected")
		return false
	}
	info := fmt.Sprintf("info depth %d %s nodes %d", a.Depth, scoreString(a.Score), a.Nodes)
	if len(a.PV) > 0 {
		info += " pv " + strings.Join(a.PV, " ")
	}
	s.println(info)
	s.infoString("cached analysis")
	s.printf("bestmove %s\n", m)
	return true
}

func (s *Session) saveAnalysis(root *board.Board, res engine.Result) {
	if s.store == nil || res.Move == board.NoMove || res.Depth < 1 {
		return
	}
	pv := make([]string, len(res.PV))
	for i, m := range res.PV {
		pv[i] = m.String()
	}
	err := s.store.SaveAnalysis(storage.Analysis{
		Key:   root.Key(),
		FEN:   root.FEN(),
		Depth: res.Depth,
		Move:  res.Move.String(),
		Score: res.Score,
		PV:    pv,
		Nodes: res.Nodes,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("save analysis")
	}
}

func scoreString(score int) string {
	if engine.IsMateScore(score) {
		return fmt.Sprintf("score mate %d", engine.MateIn(score))
	}
	return fmt.Sprintf("score cp %d", score)
}

// sendInfo outputs search info in UCI format. The PV is cut at the first
// move that is not legal from root.
func (s *Session) sendInfo(root *board.Board, info engine.SearchInfo) {
	parts := []string{
		fmt.Sprintf("depth %d", info.Depth),
		scoreString(info.Score),
		fmt.Sprintf("nodes %d", info.Nodes),
		fmt.Sprintf("time %d", info.Time.Milliseconds()),
	}
	if info.Time > 0 {
		parts = append(parts, fmt.Sprintf("nps %d", uint64(float64(info.Nodes)/info.Time.Seconds())))
	}
	if info.HashFull > 0 {
		parts = append(parts, fmt.Sprintf("hashfull %d", info.HashFull))
	}

	if len(info.PV) > 0 {
		pos := root.Clone()
		valid := make([]string, 0, len(info.PV))
		var legal board.MoveList
		for _, m := range info.PV {
			pos.LegalMoves(&legal)
			if !legal.Contains(m) {
				break
			}
			valid = append(valid, m.String())
			pos.MakeMove(m)
		}
		if len(valid) > 0 {
			parts = append(parts, "pv "+strings.Join(valid, " "))
		}
	}

	s.printf("info %s\n", strings.Join(parts, " "))
}

// stopSearch stops the current search and waits for its bestmove.
func (s *Session) stopSearch() {
	if s.cancel != nil {
		s.cancel()
	}
	s.waitSearch()
}

// waitSearch blocks until the running search, if any, has finished. An
// infinite search never finishes on its own, so it is stopped first.
func (s *Session) waitSearch() {
	if s.running == nil {
		return
	}
	if s.infinite {
		s.cancel()
	}
	<-s.running
	s.running, s.cancel, s.infinite = nil, nil, false
}

// handleSetOption processes "setoption name <name> [value <value>]".
func (s *Session) handleSetOption(args []string) {
	var name, value []string
	var target *[]string
	for _, arg := range args {
		switch arg {
		case "name":
			target = &name
		case "value":
			target = &value
		default:
			if target != nil {
				*target = append(*target, arg)
			}
		}
	}
	if err := s.setOption(strings.Join(name, " "), strings.Join(value, " ")); err != nil {
		s.infoString("%v", err)
	}
}

func (s *Session) setOption(name, value string) error {
	spin := func(lo, hi int) (int, error) {
		v, err := strconv.Atoi(value)
		if err != nil || v < lo || v > hi {
			return 0, fmt.Errorf("setoption %s: value %q not in [%d, %d]", name, value, lo, hi)
		}
		return v, nil
	}

	switch strings.ToLower(name) {
	case "hash":
		v, err := spin(1, 4096)
		if err != nil {
			return err
		}
		s.waitSearch()
		s.cfg.Hash = v
		s.eng.SetHashSize(v)
	case "depth":
		v, err := spin(1, engine.MaxPly-1)
		if err != nil {
			return err
		}
		s.cfg.MaxDepth = v
	case "movetime":
		v, err := spin(1, 3600000)
		if err != nil {
			return err
		}
		s.cfg.MoveTime = time.Duration(v) * time.Millisecond
	case "analysiscache":
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("setoption %s: value %q is not a boolean", name, value)
		}
		if v && s.store == nil {
			return errors.New("setoption AnalysisCache: storage is disabled")
		}
		s.cfg.AnalysisCache = v
	case "clear hash":
		s.waitSearch()
		s.eng.Clear()
	default:
		return fmt.Errorf("setoption: unknown option %q", name)
	}
	s.log.Info().Str("option", name).Str("value", value).Msg("option set")
	return nil
}

// handleDisplay prints the board and a few derived facts.
func (s *Session) handleDisplay() {
	b := s.board
	var legal board.MoveList
	b.LegalMoves(&legal)

	s.printf("%s", b.String())
	s.printf("Side to move: %s\n", b.SideToMove())
	s.printf("In check: %t\n", b.InCheck())
	s.printf("Legal moves: %d\n", legal.Len())

	nb := b.Clone()
	nb.MakeNullMove()
	s.printf("Null-move key: %016X\n", nb.Key())
}

// handlePerft runs a perft divide from the current position.
func (s *Session) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			s.infoString("perft: bad depth %q", args[0])
			return
		}
		depth = v
	}
	s.waitSearch()

	start := time.Now()
	var total uint64
	for _, e := range s.board.Divide(depth) {
		s.printf("%s: %d\n", e.Move, e.Nodes)
		total += e.Nodes
	}
	elapsed := time.Since(start)

	s.printf("\nNodes searched: %d\n", total)
	s.log.Info().Int("depth", depth).Uint64("nodes", total).Dur("elapsed", elapsed).Msg("perft")
}

// handleEval prints the static evaluation from the side to move.
func (s *Session) handleEval() {
	score := s.eng.Evaluate(s.board)
	s.printf("Evaluation: %s (%s to move)\n", engine.ScoreToString(score), s.board.SideToMove())
}
