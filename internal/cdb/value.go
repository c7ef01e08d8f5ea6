package cdb

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/freeeve/cdbdirect/internal/fen"
)

// Record layout: 2 bytes move code, 2 bytes signed raw score, little endian.
const RecordSize = 4

// Reserved score values.
const (
	// SentinelDraw is the raw score of tablebase draws and stalemates.
	SentinelDraw = -30001

	// MissPly is the sentinel score when the position is not in the store.
	MissPly = -2
	// UnknownPly is the sentinel score when the position is stored without a
	// distance to root.
	UnknownPly = -1

	// winThreshold marks mate and tablebase scores that lose one ply when
	// seen from the parent.
	winThreshold = 15000
)

// RawRecord is one decoded record before score transformation.
type RawRecord struct {
	Move  string
	Score int16
}

// ScoredMove is a move with its score from the side to move's point of view.
// The sentinel move carries the ply instead.
type ScoredMove struct {
	Move  string `json:"move"`
	Score int    `json:"score"`
}

// IsSentinel reports whether m is the distance-to-root carrier.
func (m ScoredMove) IsSentinel() bool { return m.Move == SentinelMove }

// DecodeValue splits a stored value into raw records. A value whose length
// is not a multiple of RecordSize yields no records. Records with an
// undecodable move code are skipped.
func DecodeValue(b []byte) []RawRecord {
	if len(b)%RecordSize != 0 {
		return nil
	}
	out := make([]RawRecord, 0, len(b)/RecordSize)
	for off := 0; off < len(b); off += RecordSize {
		code := binary.LittleEndian.Uint16(b[off:])
		move, ok := decodeMove(code)
		if !ok {
			continue
		}
		out = append(out, RawRecord{
			Move:  move,
			Score: int16(binary.LittleEndian.Uint16(b[off+2:])),
		})
	}
	return out
}

// EncodeRecord appends one record to dst.
func EncodeRecord(dst []byte, move string, raw int16) ([]byte, error) {
	code, err := encodeMove(move)
	if err != nil {
		return dst, err
	}
	dst = binary.LittleEndian.AppendUint16(dst, code)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(raw))
	return dst, nil
}

// EncodeValue packs records into a store value.
func EncodeValue(records []RawRecord) ([]byte, error) {
	out := make([]byte, 0, len(records)*RecordSize)
	for _, r := range records {
		var err error
		if out, err = EncodeRecord(out, r.Move, r.Score); err != nil {
			return nil, fmt.Errorf("encode value: %w", err)
		}
	}
	return out, nil
}

// BackpropScore converts a child's raw score into the parent's view: the sign
// flips and scores beyond the win threshold move one ply further from mate.
func BackpropScore(raw int) int {
	switch {
	case raw == SentinelDraw:
		return 0
	case raw >= winThreshold:
		return -raw + 1
	case raw <= -winThreshold:
		return -raw - 1
	default:
		return -raw
	}
}

// ValueToScoredMoves decodes a stored value into moves sorted best first,
// followed by the sentinel. An empty value means the key was not found.
// Moves are mirrored back when natural is false.
func ValueToScoredMoves(b []byte, natural bool) ([]ScoredMove, int) {
	if len(b) == 0 {
		return []ScoredMove{{Move: SentinelMove, Score: MissPly}}, MissPly
	}

	records := DecodeValue(b)
	ply := UnknownPly
	moves := make([]ScoredMove, 0, len(records)+1)
	for _, r := range records {
		if r.Move == SentinelMove {
			ply = int(r.Score)
			continue
		}
		moves = append(moves, ScoredMove{
			Move:  OrientMove(r.Move, natural),
			Score: BackpropScore(int(r.Score)),
		})
	}
	sort.SliceStable(moves, func(i, j int) bool { return moves[i].Score > moves[j].Score })
	return append(moves, ScoredMove{Move: SentinelMove, Score: ply}), ply
}

// OrientMove maps a stored move into the orientation that was queried.
func OrientMove(move string, natural bool) string {
	if natural {
		return move
	}
	return fen.MirrorMove(move)
}

// RawScore is the inverse of BackpropScore: the child's raw score that reads
// back as score from the parent's side.
func RawScore(score int) (int16, error) {
	var raw int
	switch {
	case score >= winThreshold:
		raw = -score - 1
	case score <= -winThreshold:
		raw = -score + 1
	default:
		raw = -score
	}
	if raw < math.MinInt16 || raw > math.MaxInt16 {
		return 0, fmt.Errorf("score %d out of range", score)
	}
	return int16(raw), nil
}

// EncodeScoredMoves builds the stored value that ValueToScoredMoves reads
// back as moves. A sentinel entry carries the ply and is dropped when the
// ply is unknown.
func EncodeScoredMoves(moves []ScoredMove, natural bool) ([]byte, error) {
	out := make([]byte, 0, len(moves)*RecordSize)
	for _, m := range moves {
		var raw int16
		if m.IsSentinel() {
			if m.Score < 0 {
				continue
			}
			if m.Score > math.MaxInt16 {
				return nil, fmt.Errorf("ply %d out of range", m.Score)
			}
			raw = int16(m.Score)
		} else {
			var err error
			if raw, err = RawScore(m.Score); err != nil {
				return nil, err
			}
		}
		var err error
		if out, err = EncodeRecord(out, OrientMove(m.Move, natural), raw); err != nil {
			return nil, err
		}
	}
	return out, nil
}
