package main

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/engine"
	"github.com/freeeve/cdbdirect/internal/epd"
	"github.com/freeeve/cdbdirect/internal/fen"
)

// chunksPerWorker splits the input finer than the worker count so slow
// chunks do not hold up the pool.
const chunksPerWorker = 20

type evaluator interface {
	Evaluate(ctx context.Context, p fen.Position) (engine.Eval, error)
}

type batch struct {
	client  *cdb.Client
	eval    evaluator // nil disables the engine fallback
	workers int

	known    atomic.Int64
	unknown  atomic.Int64
	scored   atomic.Int64
	engineOK atomic.Int64
}

// run probes every entry and returns the output lines in input order.
func (b *batch) run(ctx context.Context, entries []epd.Entry) ([]string, error) {
	out := make([]string, len(entries))
	workers := max(b.workers, 1)
	chunk := max(len(entries)/(workers*chunksPerWorker), 1)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < len(entries); lo += chunk {
		hi := min(lo+chunk, len(entries))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				line, err := b.annotate(ctx, entries[i])
				if err != nil {
					return err
				}
				out[i] = line
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *batch) annotate(ctx context.Context, e epd.Entry) (string, error) {
	if e.Err != nil {
		b.unknown.Add(1)
		return e.Line, nil
	}
	r, err := b.client.Probe(ctx, e.Position)
	if err != nil {
		return "", err
	}
	b.scored.Add(int64(len(r.Moves())))
	if r.Found() {
		b.known.Add(1)
		return epd.AnnotateResult(e.Line, r), nil
	}
	b.unknown.Add(1)

	if b.eval == nil {
		return e.Line, nil
	}
	ev, err := b.eval.Evaluate(ctx, e.Position)
	if err != nil {
		return "", err
	}
	b.engineOK.Add(1)
	return epd.AnnotateEngine(e.Line, ev.CDBScore()), nil
}
