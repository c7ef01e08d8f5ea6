// Package ingest replays PGN game collections and records, for every
// position reached, the smallest ply at which it occurred. The result seeds
// the distance-to-root entries of a packed store.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/freeeve/pgn/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/fen"
)

// Config configures a Worker.
type Config struct {
	RatingMin int            // both players at least this rating, 0 = any
	MaxPly    int            // stop replaying a game after this many plies, 0 = whole game
	Workers   int            // files ingested in parallel, default 1
	Logger    zerolog.Logger // Logger
}

// Worker ingests PGN files into a PlyIndex.
type Worker struct {
	cfg   Config
	index *PlyIndex
	log   zerolog.Logger
}

// NewWorker creates a worker filling index.
func NewWorker(cfg Config, index *PlyIndex) *Worker {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Worker{
		cfg:   cfg,
		index: index,
		log:   cfg.Logger.With().Str("component", "ingest").Logger(),
	}
}

// FindFiles lists the .pgn and .pgn.zst files of dir in name order.
func FindFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && isPGNFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Run ingests paths, up to cfg.Workers at a time.
func (w *Worker) Run(ctx context.Context, paths []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Workers)
	for _, path := range paths {
		g.Go(func() error {
			if err := w.ProcessFile(ctx, path); err != nil {
				return fmt.Errorf("ingest %s: %w", path, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// ProcessFile ingests a single PGN file.
func (w *Worker) ProcessFile(ctx context.Context, path string) error {
	w.log.Info().Str("path", path).Msg("starting file ingest")

	startTime := time.Now()
	var gamesProcessed, positions, gamesSkipped int64
	lastLog := time.Now()

	parser := pgn.Games(path)

	stopped := false
gameLoop:
	for game := range parser.Games {
		select {
		case <-ctx.Done():
			if !stopped {
				parser.Stop()
				stopped = true
			}
			break gameLoop
		default:
		}

		// Check rating filter
		whiteRating := parseRating(game.Tags["WhiteElo"])
		blackRating := parseRating(game.Tags["BlackElo"])
		if whiteRating < w.cfg.RatingMin || blackRating < w.cfg.RatingMin {
			gamesSkipped++
			continue
		}

		n, err := w.processGame(game)
		if err != nil {
			w.log.Debug().Err(err).Msg("game skipped")
			gamesSkipped++
			continue
		}
		positions += int64(n)
		gamesProcessed++

		// Periodic logging
		if time.Since(lastLog) > 10*time.Second {
			elapsed := time.Since(startTime)
			w.log.Info().
				Str("file", filepath.Base(path)).
				Int64("games", gamesProcessed).
				Int64("skipped", gamesSkipped).
				Int64("positions", positions).
				Float64("games_per_sec", float64(gamesProcessed)/elapsed.Seconds()).
				Msg("ingest progress")
			lastLog = time.Now()
		}
	}
	if stopped {
		return ctx.Err()
	}
	if err := parser.Err(); err != nil {
		return err
	}
	w.index.addGames(gamesProcessed, gamesSkipped)

	elapsed := time.Since(startTime)
	w.log.Info().
		Str("file", filepath.Base(path)).
		Int64("games", gamesProcessed).
		Int64("skipped", gamesSkipped).
		Int64("positions", positions).
		Dur("elapsed", elapsed).
		Msg("file ingest complete")
	return nil
}

// processGame replays a game and returns the number of positions recorded.
// The start position is recorded at ply 0.
func (w *Worker) processGame(game *pgn.Game) (int, error) {
	pos := pgn.NewStartingPosition()
	positions := 0
	for ply := 0; ; ply++ {
		p, err := fen.ParsePosition(pos.ToFEN())
		if err != nil {
			return positions, err
		}
		if err := w.index.Observe(fen.NormalizeEnPassant(p), ply); err != nil {
			return positions, err
		}
		positions++

		if ply >= len(game.Moves) || (w.cfg.MaxPly > 0 && ply >= w.cfg.MaxPly) {
			return positions, nil
		}
		if err := pgn.ApplyMove(pos, game.Moves[ply]); err != nil {
			return positions, fmt.Errorf("apply move %d: %w", ply+1, err)
		}
	}
}

// PlyIndex maps store keys to the smallest ply seen. It is safe for
// concurrent use.
type PlyIndex struct {
	mu      sync.Mutex
	plies   map[string]int
	games   int64
	skipped int64
}

// NewPlyIndex creates an empty index.
func NewPlyIndex() *PlyIndex {
	return &PlyIndex{plies: make(map[string]int)}
}

// Observe records that p was reached after ply half-moves.
func (ix *PlyIndex) Observe(p fen.Position, ply int) error {
	key, _, err := cdb.CanonicalKey(p)
	if err != nil {
		return err
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if old, ok := ix.plies[string(key)]; !ok || ply < old {
		ix.plies[string(key)] = ply
	}
	return nil
}

// Ply returns the smallest ply recorded for key.
func (ix *PlyIndex) Ply(key []byte) (int, bool) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ply, ok := ix.plies[string(key)]
	return ply, ok
}

// Len is the number of distinct positions.
func (ix *PlyIndex) Len() int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return len(ix.plies)
}

// Games returns the number of games ingested and skipped.
func (ix *PlyIndex) Games() (ingested, skipped int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.games, ix.skipped
}

func (ix *PlyIndex) addGames(ingested, skipped int64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.games += ingested
	ix.skipped += skipped
}

// Each calls fn for every key in ascending order.
func (ix *PlyIndex) Each(fn func(key []byte, ply int) error) error {
	ix.mu.Lock()
	keys := make([]string, 0, len(ix.plies))
	for k := range ix.plies {
		keys = append(keys, k)
	}
	ix.mu.Unlock()
	sort.Strings(keys)

	for _, k := range keys {
		ply, _ := ix.Ply([]byte(k))
		if err := fn([]byte(k), ply); err != nil {
			return err
		}
	}
	return nil
}

func isPGNFile(name string) bool {
	ext := filepath.Ext(name)
	if ext == ".pgn" {
		return true
	}
	if ext == ".zst" {
		// Check for .pgn.zst
		base := name[:len(name)-4]
		return filepath.Ext(base) == ".pgn"
	}
	return false
}

func parseRating(s string) int {
	if s == "" || s == "?" || s == "-" {
		return 0
	}
	r, _ := strconv.Atoi(s)
	return r
}
