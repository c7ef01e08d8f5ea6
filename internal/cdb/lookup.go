package cdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/freeeve/cdbdirect/internal/fen"
	"github.com/freeeve/cdbdirect/internal/kv"
)

// Client answers position queries against a read-only store. It is safe for
// concurrent use when the store is.
type Client struct {
	store kv.Reader
}

// NewClient wraps store.
func NewClient(store kv.Reader) *Client {
	return &Client{store: store}
}

// Store returns the underlying reader.
func (c *Client) Store() kv.Reader { return c.store }

// Get returns the scored moves of p sorted best first, always ending with the
// sentinel move. A position missing from the store is not an error: the
// result is the sentinel alone with MissPly.
func (c *Client) Get(ctx context.Context, p fen.Position) ([]ScoredMove, error) {
	r, err := c.Probe(ctx, p)
	if err != nil {
		return nil, err
	}
	return r.Scored, nil
}

// Probe is Get with the key details kept for reporting.
func (c *Client) Probe(ctx context.Context, p fen.Position) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	key, natural, err := CanonicalKey(p)
	if err != nil {
		return Result{}, fmt.Errorf("canonical key for %q: %w", p.String(), err)
	}

	value, err := c.store.Get(key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		value = nil
	case err != nil:
		return Result{}, fmt.Errorf("get %x: %w", key, err)
	}

	scored, _ := ValueToScoredMoves(value, natural)
	return Result{Position: p, Key: key, Natural: natural, Scored: scored}, nil
}

// Result is the answer to one position query.
type Result struct {
	Position fen.Position
	Key      []byte
	Natural  bool
	// Scored holds the moves best first followed by the sentinel.
	Scored []ScoredMove
}

// Ply is the distance to root, UnknownPly when not recorded or MissPly when
// the position is absent.
func (r Result) Ply() int {
	if len(r.Scored) == 0 {
		return MissPly
	}
	return r.Scored[len(r.Scored)-1].Score
}

// Found reports whether the store holds the position.
func (r Result) Found() bool { return r.Ply() != MissPly }

// Moves returns the scored moves without the sentinel.
func (r Result) Moves() []ScoredMove {
	if len(r.Scored) == 0 {
		return nil
	}
	return r.Scored[:len(r.Scored)-1]
}

// Best returns the highest scored move.
func (r Result) Best() (ScoredMove, bool) {
	moves := r.Moves()
	if len(moves) == 0 {
		return ScoredMove{}, false
	}
	return moves[0], true
}
