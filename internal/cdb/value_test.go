package cdb_test

import (
	"reflect"
	"testing"

	"github.com/freeeve/cdbdirect/internal/cdb"
)

func TestBackpropScore(t *testing.T) {
	tests := []struct {
		raw, want int
	}{
		{cdb.SentinelDraw, 0},
		{15000, -14999},
		{-15000, 14999},
		{100, -100},
		{-100, 100},
		{0, 0},
		{14999, -14999},
		{-14999, 14999},
		{29000, -28999},
		{-29000, 28999},
	}
	for _, tt := range tests {
		if got := cdb.BackpropScore(tt.raw); got != tt.want {
			t.Errorf("BackpropScore(%d) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestBackpropScore_ShiftsMateByOnePly(t *testing.T) {
	for raw := 15000; raw <= 30000; raw += 250 {
		for _, r := range []int{raw, -raw} {
			got := cdb.BackpropScore(r)
			if diff := abs(got) - abs(r); diff != -1 {
				t.Errorf("BackpropScore(%d) = %d, magnitude changed by %d", r, got, diff)
			}
			if (got > 0) == (r > 0) {
				t.Errorf("BackpropScore(%d) = %d did not flip sign", r, got)
			}
		}
	}
}

func TestDecodeValue_WireFormat(t *testing.T) {
	value := []byte{
		40, 22, 0xCE, 0xFF, // e2e4 -50
		0x84, 67, 0x2C, 0x01, // e7e8q 300
		0x9B, 18, 0x10, 0x00, // a2a1n 16
		0, 0, 3, 0, // a0a0 3
	}
	want := []cdb.RawRecord{
		{Move: "e2e4", Score: -50},
		{Move: "e7e8q", Score: 300},
		{Move: "a2a1n", Score: 16},
		{Move: "a0a0", Score: 3},
	}
	got := cdb.DecodeValue(value)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DecodeValue = %+v, want %+v", got, want)
	}

	encoded, err := cdb.EncodeValue(want)
	if err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	if !reflect.DeepEqual(encoded, value) {
		t.Errorf("EncodeValue = %v, want %v", encoded, value)
	}
}

func TestDecodeValue_SkipsInvalidRecords(t *testing.T) {
	value := []byte{
		0x84, 49, 1, 0, // promotion flag from e5
		40, 95, 1, 0, // source square off the board
		0xC4, 63 + 4, 1, 0, // promotion piece index 4
		40, 22, 7, 0, // e2e4 7
	}
	got := cdb.DecodeValue(value)
	want := []cdb.RawRecord{{Move: "e2e4", Score: 7}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DecodeValue = %+v, want %+v", got, want)
	}
}

func TestDecodeValue_BadLength(t *testing.T) {
	if got := cdb.DecodeValue([]byte{40, 22, 7, 0, 1}); len(got) != 0 {
		t.Errorf("DecodeValue(5 bytes) = %+v, want none", got)
	}
}

func TestEncodeRecord_Invalid(t *testing.T) {
	for _, move := range []string{"", "e2", "e2e4qq", "j2j4", "e5e6q", "e7e8k", "e7e1q"} {
		if _, err := cdb.EncodeRecord(nil, move, 0); err == nil {
			t.Errorf("EncodeRecord(%q) succeeded", move)
		}
	}
}

func TestValueToScoredMoves(t *testing.T) {
	tests := []struct {
		name    string
		records []cdb.RawRecord
		natural bool
		want    []cdb.ScoredMove
		ply     int
	}{
		{
			name:    "negated score and ply",
			records: []cdb.RawRecord{{"e2e4", -50}, {"a0a0", 3}},
			natural: true,
			want:    []cdb.ScoredMove{{"e2e4", 50}, {"a0a0", 3}},
			ply:     3,
		},
		{
			name:    "draw",
			records: []cdb.RawRecord{{"g1f3", cdb.SentinelDraw}},
			natural: true,
			want:    []cdb.ScoredMove{{"g1f3", 0}, {"a0a0", cdb.UnknownPly}},
			ply:     cdb.UnknownPly,
		},
		{
			name:    "sorted best first",
			records: []cdb.RawRecord{{"a2a3", 10}, {"e2e4", -40}, {"d2d4", -40}, {"g2g4", 200}},
			natural: true,
			want: []cdb.ScoredMove{
				{"e2e4", 40}, {"d2d4", 40}, {"a2a3", -10}, {"g2g4", -200}, {"a0a0", cdb.UnknownPly},
			},
			ply: cdb.UnknownPly,
		},
		{
			name:    "mirrored orientation",
			records: []cdb.RawRecord{{"e2e4", 10}, {"d2d4", -20}, {"a0a0", 0}},
			natural: false,
			want:    []cdb.ScoredMove{{"d7d5", 20}, {"e7e5", -10}, {"a0a0", 0}},
			ply:     0,
		},
		{
			name:    "last ply record wins",
			records: []cdb.RawRecord{{"a0a0", 9}, {"e2e4", 0}, {"a0a0", 4}},
			natural: true,
			want:    []cdb.ScoredMove{{"e2e4", 0}, {"a0a0", 4}},
			ply:     4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, err := cdb.EncodeValue(tt.records)
			if err != nil {
				t.Fatalf("EncodeValue: %v", err)
			}
			got, ply := cdb.ValueToScoredMoves(value, tt.natural)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("moves = %v, want %v", got, tt.want)
			}
			if ply != tt.ply {
				t.Errorf("ply = %d, want %d", ply, tt.ply)
			}
		})
	}
}

func TestValueToScoredMoves_Miss(t *testing.T) {
	for _, natural := range []bool{true, false} {
		got, ply := cdb.ValueToScoredMoves(nil, natural)
		want := []cdb.ScoredMove{{Move: "a0a0", Score: -2}}
		if !reflect.DeepEqual(got, want) || ply != cdb.MissPly {
			t.Errorf("ValueToScoredMoves(nil, %v) = %v, %d", natural, got, ply)
		}
	}
}

func TestValueToScoredMoves_NoValidRecords(t *testing.T) {
	got, ply := cdb.ValueToScoredMoves([]byte{1, 2, 3}, true)
	want := []cdb.ScoredMove{{Move: "a0a0", Score: cdb.UnknownPly}}
	if !reflect.DeepEqual(got, want) || ply != cdb.UnknownPly {
		t.Errorf("ValueToScoredMoves(malformed) = %v, %d", got, ply)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestRawScore_InvertsBackprop(t *testing.T) {
	for _, score := range []int{0, 1, -1, 250, -250, 14998, 14999, -14999, 15000, -15000, 29995, -29990, 32767} {
		raw, err := cdb.RawScore(score)
		if err != nil {
			t.Errorf("RawScore(%d): %v", score, err)
			continue
		}
		if got := cdb.BackpropScore(int(raw)); got != score {
			t.Errorf("BackpropScore(RawScore(%d)) = %d", score, got)
		}
	}
	if _, err := cdb.RawScore(-32768); err == nil {
		t.Error("RawScore(-32768) accepted")
	}
}

func TestEncodeScoredMoves(t *testing.T) {
	moves := []cdb.ScoredMove{{Move: "e2e4", Score: 40}, {Move: "g1f3", Score: 29995}, {Move: "a0a0", Score: 7}}
	for _, natural := range []bool{true, false} {
		value, err := cdb.EncodeScoredMoves(moves, natural)
		if err != nil {
			t.Fatalf("EncodeScoredMoves: %v", err)
		}
		got, ply := cdb.ValueToScoredMoves(value, natural)
		want := []cdb.ScoredMove{{Move: "g1f3", Score: 29995}, {Move: "e2e4", Score: 40}, {Move: "a0a0", Score: 7}}
		if ply != 7 || !reflect.DeepEqual(got, want) {
			t.Errorf("natural=%v: got %v ply %d", natural, got, ply)
		}
	}

	value, err := cdb.EncodeScoredMoves([]cdb.ScoredMove{{Move: "e2e4", Score: 1}, {Move: "a0a0", Score: cdb.UnknownPly}}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(value) != cdb.RecordSize {
		t.Errorf("unknown ply kept: %d bytes", len(value))
	}
}
