package engine

import (
	"context"
	"errors"

	"github.com/freeeve/cdbdirect/internal/fen"
)

// Pool shares a fixed set of engine processes between goroutines.
type Pool struct {
	free chan *Evaluator
	all  []*Evaluator
}

// NewPool starts n engines, at least one.
func NewPool(cfg Config, n int) (*Pool, error) {
	n = max(n, 1)
	p := &Pool{free: make(chan *Evaluator, n)}
	for range n {
		e, err := New(cfg)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.all = append(p.all, e)
		p.free <- e
	}
	return p, nil
}

// Size is the number of engines.
func (p *Pool) Size() int { return len(p.all) }

// Evaluate runs p on the first free engine, waiting for one unless ctx ends.
func (p *Pool) Evaluate(ctx context.Context, pos fen.Position) (Eval, error) {
	var e *Evaluator
	select {
	case e = <-p.free:
	case <-ctx.Done():
		return Eval{}, ctx.Err()
	}
	defer func() { p.free <- e }()
	return e.Evaluate(ctx, pos)
}

// Close stops every engine.
func (p *Pool) Close() error {
	var errs []error
	for _, e := range p.all {
		errs = append(errs, e.Close())
	}
	return errors.Join(errs...)
}
