package cdb

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/freeeve/cdbdirect/internal/fen"
	"github.com/freeeve/cdbdirect/internal/kv"
)

// Visitor receives each scanned position with its scored moves. Returning
// false stops the calling worker only. Visitors are called concurrently from
// different workers.
type Visitor func(p fen.Position, moves []ScoredMove) bool

// Scan iterates every range on its own goroutine and waits for all of them.
// Positions are decoded in their stored orientation. A corrupt key or an
// iterator error cancels the remaining workers and is returned.
func (c *Client) Scan(ctx context.Context, ranges []kv.Range, visit Visitor) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range ranges {
		g.Go(func() error {
			return c.scanRange(ctx, r, visit)
		})
	}
	return g.Wait()
}

// Apply plans ranges for up to workers goroutines and scans the whole store.
func (c *Client) Apply(ctx context.Context, workers int, visit Visitor) error {
	ranges, err := PlanRanges(c.store, workers)
	if err != nil {
		return err
	}
	return c.Scan(ctx, ranges, visit)
}

func (c *Client) scanRange(ctx context.Context, r kv.Range, visit Visitor) (err error) {
	it := c.store.NewIterator()
	defer func() {
		if cerr := it.Close(); err == nil {
			err = cerr
		}
	}()

	if r.Start == nil {
		it.SeekToFirst()
	} else {
		it.Seek(r.Start)
	}
	for ; it.Valid(); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		key := it.Key()
		if r.End != nil && kv.Compare(key, r.End) >= 0 {
			break
		}
		p, err := KeyToPosition(key, true)
		if err != nil {
			return fmt.Errorf("scan key %x: %w", key, err)
		}
		moves, _ := ValueToScoredMoves(it.Value(), true)
		if !visit(p, moves) {
			return nil
		}
	}
	return it.Err()
}

// StopAll makes a false return from visit stop every worker the next time it
// reaches an entry, not only the one that returned it.
func StopAll(visit Visitor) Visitor {
	var stopped atomic.Bool
	return func(p fen.Position, moves []ScoredMove) bool {
		if stopped.Load() {
			return false
		}
		if !visit(p, moves) {
			stopped.Store(true)
			return false
		}
		return true
	}
}
