package fen_test

import (
	"errors"
	"testing"

	"github.com/freeeve/cdbdirect/internal/fen"
)

func TestParsePosition_StripsCounters(t *testing.T) {
	inputs := []string{
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		"  rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR   w KQkq - bm e4; id \"start\";",
	}
	for _, in := range inputs {
		p, err := fen.ParsePosition(in)
		if err != nil {
			t.Fatalf("ParsePosition(%q): %v", in, err)
		}
		if p != fen.StartPosition {
			t.Errorf("ParsePosition(%q) = %q, want startpos", in, p.String())
		}
	}
}

func TestParsePosition_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP w KQkq -",
		"rnbqkbnr/pppppppp/9/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		"rnbqkbnr/ppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		"rnbqkbnr/pppppppp/44/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNX w KQkq -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w kqKQ -",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e4",
		"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq z3",
	}
	for _, in := range inputs {
		if _, err := fen.ParsePosition(in); !errors.Is(err, fen.ErrInvalidPosition) {
			t.Errorf("ParsePosition(%q) error = %v, want ErrInvalidPosition", in, err)
		}
	}
}

func TestPosition_String(t *testing.T) {
	p := fen.MustParsePosition("8/8/8/8/8/8/8/4K2k b - - 12 40")
	if got := p.String(); got != "8/8/8/8/8/8/8/4K2k b - -" {
		t.Errorf("String() = %q", got)
	}
	if got := p.FullFEN(); got != "8/8/8/8/8/8/8/4K2k b - - 0 1" {
		t.Errorf("FullFEN() = %q", got)
	}
}
