package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/engine"
	"github.com/freeeve/cdbdirect/internal/epd"
	"github.com/freeeve/cdbdirect/internal/fen"
	"github.com/freeeve/cdbdirect/internal/kv"
)

type fakeEngine struct{ err error }

func (f fakeEngine) Evaluate(context.Context, fen.Position) (engine.Eval, error) {
	return engine.Eval{Score: 2, Mate: true}, f.err
}

const input = `rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1
8/8/8/8/8/8/8/K6k w - - id "unknown";
short line
8/8/8/8/8/8/8/K6k q - -
`

func newBatch(t *testing.T) (*batch, []epd.Entry) {
	t.Helper()
	key, _, err := cdb.CanonicalKey(fen.StartPosition)
	if err != nil {
		t.Fatal(err)
	}
	value, err := cdb.EncodeValue([]cdb.RawRecord{{Move: "e2e4", Score: -35}, {Move: "d2d4", Score: -30}, {Move: cdb.SentinelMove, Score: 0}})
	if err != nil {
		t.Fatal(err)
	}
	entries, _, err := epd.ReadAll(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	client := cdb.NewClient(kv.NewMemStore([]kv.Record{{Key: key, Value: value}}))
	return &batch{client: client, workers: 3}, entries
}

func TestBatch_Run(t *testing.T) {
	b, entries := newBatch(t)
	lines, err := b.run(context.Background(), entries)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1 ; cdb eval: 35, ply: 0;",
		`8/8/8/8/8/8/8/K6k w - - id "unknown";`,
		"8/8/8/8/8/8/8/K6k q - -",
	}
	if strings.Join(lines, "\n") != strings.Join(want, "\n") {
		t.Errorf("lines:\n%s\nwant:\n%s", strings.Join(lines, "\n"), strings.Join(want, "\n"))
	}
	if b.known.Load() != 1 || b.unknown.Load() != 2 || b.scored.Load() != 2 {
		t.Errorf("known=%d unknown=%d scored=%d", b.known.Load(), b.unknown.Load(), b.scored.Load())
	}

	var buf bytes.Buffer
	printSummary(&buf, b, len(entries), 0)
	if !strings.Contains(buf.String(), "known fens:              1  ( 33.33% )") {
		t.Errorf("summary:\n%s", buf.String())
	}
}

func TestBatch_EngineFallback(t *testing.T) {
	b, entries := newBatch(t)
	b.eval = fakeEngine{}
	lines, err := b.run(context.Background(), entries)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := `8/8/8/8/8/8/8/K6k w - - id "unknown"; ; engine eval: M3;`; lines[1] != want {
		t.Errorf("line = %q, want %q", lines[1], want)
	}
	if b.engineOK.Load() != 1 {
		t.Errorf("engine evals = %d", b.engineOK.Load())
	}

	b, entries = newBatch(t)
	boom := errors.New("engine crashed")
	b.eval = fakeEngine{err: boom}
	if _, err := b.run(context.Background(), entries); !errors.Is(err, boom) {
		t.Errorf("run error = %v", err)
	}
}
