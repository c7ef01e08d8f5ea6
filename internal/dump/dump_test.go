package dump_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/dump"
	"github.com/freeeve/cdbdirect/internal/fen"
)

func TestParseLine(t *testing.T) {
	e, err := dump.ParseLine("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -\te2e4:50, d2d4:45,a0a0:0")
	if err != nil {
		t.Fatalf("ParseLine: %v", err)
	}
	if e.Position != fen.StartPosition {
		t.Errorf("position = %q", e.Position.String())
	}
	want := []cdb.ScoredMove{{Move: "e2e4", Score: 50}, {Move: "d2d4", Score: 45}, {Move: "a0a0", Score: 0}}
	if !reflect.DeepEqual(e.Moves, want) || e.Ply() != 0 {
		t.Errorf("moves = %v, ply %d", e.Moves, e.Ply())
	}

	e, err = dump.ParseLine("4k3/8/8/8/8/8/4P3/4K3 w - -")
	if err != nil || len(e.Moves) != 0 || e.Ply() != cdb.UnknownPly {
		t.Errorf("bare position = %+v, %v", e, err)
	}
}

func TestParseLine_Errors(t *testing.T) {
	for _, line := range []string{
		"not a position",
		"4k3/8/8/8/8/8/4P3/4K3 w - -\te2e4",
		"4k3/8/8/8/8/8/4P3/4K3 w - -\te2e4:x",
		"4k3/8/8/8/8/8/4P3/4K3 w - -\t:5",
	} {
		if _, err := dump.ParseLine(line); err == nil {
			t.Errorf("ParseLine(%q) succeeded", line)
		}
	}
	if _, err := dump.ParseLine("4k3/8/8/8/8/8/4P3/4K3 w - -\te2e4"); !errors.Is(err, dump.ErrSyntax) {
		t.Errorf("error = %v", err)
	}
}

func TestFormatLine(t *testing.T) {
	p := fen.MustParsePosition("4k3/8/8/8/8/8/4P3/4K3 w - -")
	got := dump.FormatLine(p, []cdb.ScoredMove{{Move: "e2e4", Score: 120}, {Move: "a0a0", Score: cdb.UnknownPly}})
	if want := "4k3/8/8/8/8/8/4P3/4K3 w - -\te2e4:120"; got != want {
		t.Errorf("FormatLine = %q, want %q", got, want)
	}
	e, err := dump.ParseLine(dump.FormatLine(p, []cdb.ScoredMove{{Move: "e2e4", Score: 1}, {Move: "a0a0", Score: 9}}))
	if err != nil || e.Ply() != 9 {
		t.Errorf("reparsed = %+v, %v", e, err)
	}
}

func TestReader(t *testing.T) {
	in := "# comment\n\n4k3/8/8/8/8/8/4P3/4K3 w - -\te2e4:1\n8/8/8/8/8/8/8/K6k w - -\t\nbroken line here\n4k3/8/8/8/8/8/4P3/4K3 b - -\n"
	r := dump.NewReader(strings.NewReader(in))
	n := 0
	for r.Next() {
		n++
	}
	if n != 2 {
		t.Errorf("read %d entries, want 2", n)
	}
	if err := r.Err(); err == nil || !strings.Contains(err.Error(), "line 5") {
		t.Errorf("Err = %v", err)
	}
}
