// Package scanstats accumulates statistics over a full database scan: entry
// counts, min-ply and best-score histograms and periodic progress reports.
package scanstats

import (
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/fen"
)

const (
	// Buckets is the size of each histogram.
	Buckets = 1 << 16
	// ScoreOffset shifts scores into the non-negative bucket range.
	ScoreOffset = 1 << 15

	// DefaultMax caps a scan when no limit is given.
	DefaultMax uint64 = 1_000_000_000
	// DefaultProgressEvery is the number of entries between progress logs.
	DefaultProgressEvery uint64 = 10_000_000
)

// Config controls a Collector.
type Config struct {
	// Max is the number of entries to count. Zero counts nothing.
	Max uint64
	// ProgressEvery defaults to DefaultProgressEvery.
	ProgressEvery uint64
	Logger        zerolog.Logger
}

// Collector counts scan entries. Visit is safe for concurrent use.
type Collector struct {
	max   uint64
	every uint64
	log   zerolog.Logger
	start time.Time

	seen       atomic.Uint64
	haveMinPly atomic.Uint64
	haveSingle atomic.Uint64
	moves      atomic.Uint64

	minPly [Buckets]atomic.Uint64
	score  [Buckets]atomic.Uint64
}

// New creates a collector. The clock starts immediately.
func New(cfg Config) *Collector {
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}
	return &Collector{
		max:   cfg.Max,
		every: cfg.ProgressEvery,
		log:   cfg.Logger.With().Str("component", "scanstats").Logger(),
		start: time.Now(),
	}
}

// Visit counts one entry and reports whether the scan should continue. Its
// signature matches cdb.Visitor. Entries past Max are not counted.
func (c *Collector) Visit(_ fen.Position, scored []cdb.ScoredMove) bool {
	n := c.seen.Add(1)
	if n > c.max {
		return false
	}
	if len(scored) == 0 {
		return n < c.max
	}

	ply := scored[len(scored)-1].Score
	c.minPly[clamp(ply)].Add(1)
	c.score[clamp(scored[0].Score+ScoreOffset)].Add(1)

	if ply > cdb.UnknownPly {
		c.haveMinPly.Add(1)
	}
	if len(scored) == 2 {
		c.haveSingle.Add(1)
	}
	c.moves.Add(uint64(len(scored) - 1))

	if n%c.every == 0 {
		c.logProgress(n)
	}
	return n < c.max
}

func (c *Collector) logProgress(n uint64) {
	s := c.Snapshot()
	elapsed := s.Elapsed.Seconds()
	ev := c.log.Info().
		Uint64("counted", n).
		Uint64("max", c.max).
		Uint64("have_min_ply", s.HaveMinPly).
		Uint64("have_single", s.HaveSingle).
		Uint64("scored_moves", s.Moves).
		Float64("elapsed_s", elapsed)
	if elapsed > 0 {
		rate := float64(n) / elapsed
		ev = ev.Float64("nps", rate).
			Float64("eta_s", float64(c.max-n)/rate)
	}
	ev.Msg("scan progress")
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v >= Buckets {
		return Buckets - 1
	}
	return v
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Total      uint64        `json:"total"`
	HaveMinPly uint64        `json:"have_min_ply"`
	HaveSingle uint64        `json:"have_single"`
	Moves      uint64        `json:"scored_moves"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Snapshot returns the current counters.
func (c *Collector) Snapshot() Snapshot {
	total := c.seen.Load()
	if total > c.max {
		total = c.max
	}
	return Snapshot{
		Total:      total,
		HaveMinPly: c.haveMinPly.Load(),
		HaveSingle: c.haveSingle.Load(),
		Moves:      c.moves.Load(),
		Elapsed:    time.Since(c.start),
	}
}

// ErrInvalidLimit is returned by ParseLimit for unusable arguments.
var ErrInvalidLimit = errors.New("invalid scan limit")

// ParseLimit turns a command-line limit into an entry count. An integer
// above one (or exactly "1") is an absolute count; anything else is read as
// a fraction of size, so "1.0" scans the whole database. An empty argument
// means DefaultMax. The result never exceeds size.
func ParseLimit(arg string, size uint64) (uint64, error) {
	limit := DefaultMax
	if arg != "" {
		n, err := strconv.ParseUint(arg, 10, 64)
		if err == nil && (n > 1 || arg == "1") {
			limit = n
		} else {
			f, ferr := strconv.ParseFloat(arg, 64)
			if ferr != nil || f < 0 {
				return 0, fmt.Errorf("%w: %q", ErrInvalidLimit, arg)
			}
			limit = uint64(f * float64(size))
		}
	}
	return min(limit, size), nil
}
