package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/leafchess/leaf/internal/board"
	"github.com/leafchess/leaf/internal/engine"
	"github.com/leafchess/leaf/internal/storage"
	"github.com/leafchess/leaf/internal/uci"
)

var (
	hashMB     = flag.Int("hash", envInt("LEAF_HASH", 64), "transposition table size in MB")
	listenAddr = flag.String("listen", os.Getenv("LEAF_LISTEN"), "serve UCI over TCP on this address instead of stdin")
	dbDir      = flag.String("db", os.Getenv("LEAF_DB"), `badger directory ("off" disables storage)`)
	maxDepth   = flag.Int("depth", envInt("LEAF_DEPTH", engine.DefaultMaxDepth), "search depth when go carries none")
	moveTime   = flag.Duration("movetime", envDuration("LEAF_MOVETIME", 25*time.Second), "search time when go carries no limit")
	logLevel   = flag.String("log-level", envString("LEAF_LOG_LEVEL", "info"), "log level")
	logFormat  = flag.String("log-format", envString("LEAF_LOG_FORMAT", "auto"), "log format: auto, console or json")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func main() {
	flag.Parse()

	log, err := newLogger(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("leaf-uci")
	}
}

func newLogger(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("-log-level: %w", err)
	}
	var w io.Writer = os.Stderr
	switch format {
	case "console":
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	case "auto":
		if isatty.IsTerminal(os.Stderr.Fd()) {
			w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
		}
	case "json":
	default:
		return zerolog.Logger{}, fmt.Errorf("-log-format: unknown format %q", format)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func run(log zerolog.Logger) error {
	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			return fmt.Errorf("create cpu profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("start cpu profile: %w", err)
		}
		defer pprof.StopCPUProfile()
		log.Info().Str("path", profilePath).Msg("cpu profiling enabled")
	}

	board.SetLogger(log)

	store, err := openStore(log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	eng := engine.NewEngine(*hashMB, engine.WithLogger(log.With().Str("component", "engine").Logger()))
	cfg := uci.DefaultConfig()
	cfg.Hash = *hashMB
	cfg.MaxDepth = *maxDepth
	cfg.MoveTime = *moveTime

	opts := []uci.Option{
		uci.WithConfig(cfg),
		uci.WithLogger(log.With().Str("component", "uci").Logger()),
	}
	if store != nil {
		opts = append(opts, uci.WithStore(store))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *listenAddr == "" {
		return uci.NewSession(eng, os.Stdin, os.Stdout, opts...).Run(ctx)
	}
	return serve(ctx, log, eng, opts)
}

func openStore(log zerolog.Logger) (*storage.Store, error) {
	dir := *dbDir
	if dir == "off" {
		return nil, nil
	}
	if dir == "" {
		var err error
		if dir, err = storage.GetDatabaseDir(); err != nil {
			return nil, fmt.Errorf("database directory: %w", err)
		}
	}
	return storage.Open(dir, log.With().Str("component", "storage").Logger())
}

// serve accepts UCI clients one at a time. The engine and its hash table
// are shared between consecutive connections.
func serve(ctx context.Context, log zerolog.Logger, eng *engine.Engine, opts []uci.Option) error {
	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		return err
	}
	log.Info().Str("addr", ln.Addr().String()).Msg("listening")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return ln.Close()
	})
	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}
			remote := conn.RemoteAddr().String()
			log.Info().Str("remote", remote).Msg("client connected")
			err = uci.NewSession(eng, conn, conn, opts...).Run(ctx)
			conn.Close()
			if err != nil {
				log.Warn().Err(err).Str("remote", remote).Msg("session ended")
				continue
			}
			log.Info().Str("remote", remote).Msg("client disconnected")
		}
	})
	return g.Wait()
}
