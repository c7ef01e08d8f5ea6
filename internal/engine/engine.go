// Package engine evaluates positions the database does not know with a UCI
// engine such as Stockfish.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/freeeve/uci"
	"github.com/rs/zerolog"

	"github.com/freeeve/cdbdirect/internal/fen"
)

// mateBase matches the database scale: a mate n plies away scores
// mateBase-n for the winning side.
const mateBase = 30000

// ErrNoPath is returned when no engine executable is configured.
var ErrNoPath = errors.New("engine path required")

// Config configures engine processes.
type Config struct {
	Path    string
	Depth   int // search depth, default 20
	HashMB  int // default 64
	Threads int // default 1
	Nice    int // 0 = unchanged, clamped to 19
	Logger  zerolog.Logger
}

func (cfg *Config) defaults() {
	if cfg.Depth == 0 {
		cfg.Depth = 20
	}
	if cfg.HashMB == 0 {
		cfg.HashMB = 64
	}
	if cfg.Threads == 0 {
		cfg.Threads = 1
	}
}

// Eval is an engine score from the side to move's point of view.
type Eval struct {
	Score int  `json:"score"` // centipawns, or moves to mate when Mate
	Mate  bool `json:"mate"`
	Depth int  `json:"depth"`
}

// CDBScore converts the evaluation to the database score scale.
func (e Eval) CDBScore() int {
	if !e.Mate {
		return e.Score
	}
	switch {
	case e.Score > 0:
		return mateBase - (2*e.Score - 1)
	case e.Score < 0:
		return -(mateBase + 2*e.Score)
	default:
		return -mateBase
	}
}

// Evaluator wraps one engine process. Calls are serialized.
type Evaluator struct {
	mu    sync.Mutex
	eng   *uci.Engine
	depth int
	log   zerolog.Logger
}

// New starts an engine process and applies the options in cfg.
func New(cfg Config) (*Evaluator, error) {
	if cfg.Path == "" {
		return nil, ErrNoPath
	}
	cfg.defaults()
	log := cfg.Logger.With().Str("component", "engine").Logger()

	eng, err := uci.NewEngine(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}
	opts := uci.Options{
		Hash:    cfg.HashMB,
		Threads: cfg.Threads,
		MultiPV: 1,
		Ponder:  false,
		OwnBook: false,
	}
	if err := eng.SetOptions(opts); err != nil {
		eng.Close()
		return nil, fmt.Errorf("set options: %w", err)
	}
	if cfg.Nice > 0 {
		nice := min(cfg.Nice, 19)
		if err := eng.SetNice(nice); err != nil {
			log.Warn().Err(err).Int("nice", nice).Msg("failed to set nice value")
		}
	}
	return &Evaluator{eng: eng, depth: cfg.Depth, log: log}, nil
}

// Evaluate searches p to the configured depth.
func (e *Evaluator) Evaluate(ctx context.Context, p fen.Position) (Eval, error) {
	if err := ctx.Err(); err != nil {
		return Eval{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.eng.SetFEN(p.FullFEN()); err != nil {
		return Eval{}, fmt.Errorf("set FEN: %w", err)
	}
	results, err := e.eng.GoDepth(e.depth, uci.HighestDepthOnly)
	if err != nil {
		return Eval{}, fmt.Errorf("go depth %d: %w", e.depth, err)
	}
	if len(results.Results) == 0 {
		return Eval{}, fmt.Errorf("no results from engine")
	}

	best := results.Results[0]
	for _, r := range results.Results {
		if r.Depth > best.Depth {
			best = r
		}
	}
	ev := Eval{Score: int(best.Score), Mate: best.Mate, Depth: int(best.Depth)}
	e.log.Debug().Str("fen", p.String()).Int("score", ev.Score).Bool("mate", ev.Mate).Msg("evaluated")
	return ev, nil
}

// Close stops the engine process.
func (e *Evaluator) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.eng == nil {
		return nil
	}
	e.eng.Close()
	e.eng = nil
	return nil
}
