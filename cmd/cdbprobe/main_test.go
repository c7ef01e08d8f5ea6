package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/kv"
)

var errBroken = errors.New("broken segment")

// failingStore answers the first ok lookups from an empty store and fails
// every one after.
type failingStore struct {
	*kv.MemStore
	ok int
}

func (s *failingStore) Get(key []byte) ([]byte, error) {
	if s.ok == 0 {
		return nil, errBroken
	}
	s.ok--
	return s.MemStore.Get(key)
}

func TestWriteResult(t *testing.T) {
	tests := []struct {
		name   string
		scored []cdb.ScoredMove
		want   string
	}{
		{
			"known",
			[]cdb.ScoredMove{{Move: "e2e4", Score: 50}, {Move: "d2d4", Score: 45}, {Move: "a0a0", Score: 0}},
			"    e2e4 : 50\n    d2d4 : 45\n    Distance to startpos equal or less than 0\n",
		},
		{
			"unknown ply",
			[]cdb.ScoredMove{{Move: "g1f3", Score: -3}, {Move: "a0a0", Score: cdb.UnknownPly}},
			"    g1f3 : -3\n    Distance to startpos unknown\n",
		},
		{
			"missing",
			[]cdb.ScoredMove{{Move: "a0a0", Score: cdb.MissPly}},
			"Fen not found in DB!\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			writeResult(&buf, cdb.Result{Scored: tt.scored})
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestProbeEPD_KeepsOutputBeforeFailure(t *testing.T) {
	input := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - id start\n" +
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - id e4\n"
	client := cdb.NewClient(&failingStore{MemStore: kv.NewMemStore(nil), ok: 1})

	var buf bytes.Buffer
	err := probeEPD(context.Background(), &buf, client, strings.NewReader(input), zerolog.Nop())
	if !errors.Is(err, errBroken) {
		t.Fatalf("probeEPD error = %v, want %v", err, errBroken)
	}
	out := buf.String()
	if !strings.Contains(out, "Probing: rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -\nFen not found in DB!\n") {
		t.Errorf("first result missing from output:\n%s", out)
	}
}

func TestProbeLine(t *testing.T) {
	client := cdb.NewClient(kv.NewMemStore(nil))

	var buf bytes.Buffer
	if err := probeLine(context.Background(), &buf, client, "1. e4 e5"); err != nil {
		t.Fatalf("probeLine: %v", err)
	}
	if n := strings.Count(buf.String(), "Probing: "); n != 3 {
		t.Errorf("probed %d positions, want 3", n)
	}

	buf.Reset()
	if err := probeLine(context.Background(), &buf, client, "1. e4 Ke7"); err == nil {
		t.Error("probeLine accepted an illegal move")
	}
	if buf.Len() != 0 {
		t.Errorf("illegal line produced output %q", buf.String())
	}
}
