package eco_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/freeeve/cdbdirect/internal/eco"
	"github.com/freeeve/cdbdirect/internal/fen"
)

const openingsTSV = "eco\tname\tpgn\n" +
	"B00\tKing's Pawn Game\t1. e4\n" +
	"C50\tItalian Game\t1. e4 e5 2. Nf3 Nc6 3. Bc4\n" +
	"A00\tBroken\t1. e4 e4\n" +
	"A00\tIllegal\t1. e4 Ke7\n" +
	"not a row\n"

func TestLoadAndLookup(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.tsv"), []byte(openingsTSV), 0o644); err != nil {
		t.Fatal(err)
	}

	db := eco.NewDatabase()
	if err := db.LoadDir(dir); err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if db.Count() != 2 || db.Skipped() != 2 {
		t.Errorf("Count = %d, Skipped = %d", db.Count(), db.Skipped())
	}

	// 1. e4 leaves e3 uncapturable, so lookups with or without it match.
	for _, s := range []string{
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq -",
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3",
	} {
		o, ok := db.Lookup(fen.MustParsePosition(s))
		if !ok || o.ECO != "B00" {
			t.Errorf("Lookup(%q) = %+v, %v", s, o, ok)
		}
	}

	if _, ok := db.Lookup(fen.StartPosition); ok {
		t.Error("start position has an opening name")
	}
}

func TestLoadDir_Empty(t *testing.T) {
	if err := eco.NewDatabase().LoadDir(t.TempDir()); err == nil {
		t.Error("LoadDir of an empty directory succeeded")
	}
}

func TestReplay(t *testing.T) {
	l, err := eco.Replay("1. e4 e5 2. Nf3 Nc6 3. Bc4 Bc5 4. O-O Nf6 *")
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(l.SAN) != 8 || len(l.Positions) != 9 {
		t.Fatalf("Replay gave %d moves, %d positions", len(l.SAN), len(l.Positions))
	}
	if l.Positions[0] != fen.StartPosition {
		t.Errorf("first position = %q", l.Positions[0].String())
	}
	want := "r1bqk2r/pppp1ppp/2n2n2/2b1p3/2B1P3/5N2/PPPP1PPP/RNBQ1RK1 w kq -"
	if got := l.Final().String(); got != want {
		t.Errorf("final = %q, want %q", got, want)
	}
	if l.InCheck() {
		t.Error("final position reported in check")
	}
}

func TestReplay_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		moves string
	}{
		{"king onto own pawn", "1. e4 Ke7"},
		{"king into check", "1. f3 e5 2. Kf2 Qh4+ 3. Kg3"},
		{"pinned pawn", "1. d4 e6 2. c3 Bb4 3. c4"},
		{"queen onto own king", "1. e4 e5 2. Qe2 Nc6 3. Qe1"},
		{"pawn onto occupied square", "1. e4 e5 2. e5"},
		{"no such piece", "1. Bc4"},
		{"illegal after legal prefix", "1. e4 Ke7 2. Kxe8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if l, err := eco.Replay(tt.moves); err == nil {
				t.Errorf("Replay(%q) succeeded with final %q", tt.moves, l.Final().String())
			}
		})
	}
}

func TestReplayN(t *testing.T) {
	const line = "1. e4 e5 2. Nf3 Nc6 3. Bb5 a6 1-0"
	if _, err := eco.ReplayN(line, 6); err != nil {
		t.Fatalf("ReplayN at the limit: %v", err)
	}
	if _, err := eco.ReplayN(line, 5); !errors.Is(err, eco.ErrLineTooLong) {
		t.Errorf("ReplayN over the limit error = %v, want %v", err, eco.ErrLineTooLong)
	}
	// The bound is checked before moves are applied.
	if _, err := eco.ReplayN("1. e4 Ke7 2. Nf3", 2); !errors.Is(err, eco.ErrLineTooLong) {
		t.Errorf("ReplayN of a long illegal line error = %v, want %v", err, eco.ErrLineTooLong)
	}
}

func TestLine_Children(t *testing.T) {
	l, err := eco.Replay("")
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	children, err := l.Children()
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	if len(children) != 20 {
		t.Errorf("start position has %d children, want 20", len(children))
	}
	for _, c := range children {
		if c.WhiteToMove {
			t.Errorf("child %q has white to move", c.String())
		}
		if c.EnPassant != "-" {
			t.Errorf("child %q keeps an uncapturable en-passant square", c.String())
		}
	}
}
