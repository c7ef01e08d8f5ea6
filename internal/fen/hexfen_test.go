package fen_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/freeeve/cdbdirect/internal/fen"
)

const (
	startHexFen = "645795463333333384848484aaaaaaaadbcefcbd0abcd9"
	afterE4Hex  = "64579546333333338484" + "80a2" + "84" + "aaaa0aaa" + "dbcefcbd" + "1" + "abcd953"
)

func TestEncodeHexFen_Known(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		want string
	}{
		{"startpos", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -", startHexFen},
		{"after e4", "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3", afterE4Hex},
		{"kings only", "8/8/8/8/8/8/8/4K2k w - -", "84848484848484" + "80f19" + "0" + "09"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fen.EncodeHexFen(fen.MustParsePosition(tt.fen))
			if err != nil {
				t.Fatalf("EncodeHexFen: %v", err)
			}
			if got != tt.want {
				t.Errorf("EncodeHexFen(%q) = %s, want %s", tt.fen, got, tt.want)
			}
			if len(got)%2 != 0 {
				t.Errorf("hexfen %s has odd length", got)
			}
		})
	}
}

func TestHexFen_RoundTrip(t *testing.T) {
	var fens []string

	// every castling-rights combination, with and without en passant
	rights := []string{"K", "Q", "k", "q"}
	for mask := 0; mask < 16; mask++ {
		castling := ""
		for i, r := range rights {
			if mask&(1<<i) != 0 {
				castling += r
			}
		}
		if castling == "" {
			castling = "-"
		}
		fens = append(fens,
			"r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w "+castling+" -",
			"r3k2r/ppp1pppp/8/8/3pP3/8/PPPP1PPP/R3K2R b "+castling+" e3",
			"r3k2r/pppp1ppp/8/3Pp3/8/8/PPP1PPPP/R3K2R w "+castling+" e6",
		)
	}
	fens = append(fens,
		"8/8/8/8/8/8/8/8 w - -",
		"1k6/8/8/8/8/8/8/6K1 b - -",
		"k7/1p1p1p1p/8/3N4/8/8/P1P1P1P1/7K w - -",
		"qqqqqqqq/QQQQQQQQ/8/8/8/8/nnnnnnnn/kK6 b - -",
		"rn2k1r1/ppp1pp1p/3p2p1/5bn1/P7/2N2B2/1PPPPP2/2BNK1RR w Gkq -",
		"bbqrnkrn/pppppppp/8/8/8/8/PPPPPPPP/BBQRNKRN w GDgd -",
		"2r1k2r/8/8/8/8/8/8/R3K1R1 w GAhc -",
	)

	for _, s := range fens {
		p := fen.MustParsePosition(s)
		h, err := fen.EncodeHexFen(p)
		if err != nil {
			t.Fatalf("EncodeHexFen(%q): %v", s, err)
		}
		got, err := fen.DecodeHexFen(h)
		if err != nil {
			t.Fatalf("DecodeHexFen(%s) for %q: %v", h, s, err)
		}
		if got != p {
			t.Errorf("round trip failed: %q -> %s -> %q", s, h, got.String())
		}

		bin, err := fen.HexToBin(h)
		if err != nil {
			t.Fatalf("HexToBin(%s): %v", h, err)
		}
		if back := fen.BinToHex(bin); back != h {
			t.Errorf("BinToHex(HexToBin(%s)) = %s", h, back)
		}
	}
}

func TestHexFen_EmptyRunsUseTwoDigitForm(t *testing.T) {
	for n := 4; n <= 8; n++ {
		rank := string(rune('0' + n))
		if n < 8 {
			rank += strings.Repeat("p", 8-n)
		}
		s := rank + "/8/8/8/8/8/8/8 w - -"
		h, err := fen.EncodeHexFen(fen.MustParsePosition(s))
		if err != nil {
			t.Fatalf("EncodeHexFen(%q): %v", s, err)
		}
		want := "8" + string(rune('0'+n-4))
		if !strings.HasPrefix(h, want) {
			t.Errorf("run of %d encoded as %s, want prefix %s", n, h[:2], want)
		}
	}
}

func TestDecodeHexFen_MissingEnPassantField(t *testing.T) {
	// Dropping the trailing "0" of an absent en-passant field leaves a valid hexfen.
	p, err := fen.DecodeHexFen(startHexFen)
	if err != nil {
		t.Fatalf("DecodeHexFen: %v", err)
	}
	if p.EnPassant != "-" {
		t.Errorf("EnPassant = %q, want -", p.EnPassant)
	}

	// An explicit "0" decodes the same way.
	p2, err := fen.DecodeHexFen(startHexFen + "0")
	if err != nil {
		t.Fatalf("DecodeHexFen with explicit field: %v", err)
	}
	if p2 != p {
		t.Errorf("explicit en-passant digit changed the position: %v vs %v", p2, p)
	}
}

func TestDecodeHexFen_Corrupt(t *testing.T) {
	tests := []struct {
		name string
		hex  string
	}{
		{"empty", ""},
		{"truncated board", "6457954633"},
		{"bad run length", "85" + startHexFen[2:]},
		{"run crosses rank", "6" + "84" + startHexFen[8:]},
		{"unknown board digit", "x" + startHexFen[1:]},
		{"bad side", startHexFen[:40] + "7abcd9"},
		{"missing separator", startHexFen[:40] + "0abcd"},
		{"bad en passant rank", startHexFen[:40] + "0abcd957"},
		{"trailing digits", afterE4Hex + "00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fen.DecodeHexFen(tt.hex)
			if !errors.Is(err, fen.ErrCorruptHexFen) {
				t.Errorf("DecodeHexFen(%q) error = %v, want ErrCorruptHexFen", tt.hex, err)
			}
		})
	}
}

func TestHexToBin_Odd(t *testing.T) {
	if _, err := fen.HexToBin("abc"); !errors.Is(err, fen.ErrCorruptHexFen) {
		t.Errorf("HexToBin(odd) error = %v, want ErrCorruptHexFen", err)
	}
}

func TestBinToHex_ZeroPads(t *testing.T) {
	if got := fen.BinToHex([]byte{0x00, 0x0a, 0xff}); got != "000aff" {
		t.Errorf("BinToHex = %s, want 000aff", got)
	}
}
