package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/dump"
	"github.com/freeeve/cdbdirect/internal/segstore"
)

// packEntry keeps moves in the orientation they were read in.
type packEntry struct {
	natural bool
	moves   []cdb.ScoredMove
	ply     int
}

type entrySet struct {
	byKey map[string]*packEntry
}

func newEntrySet() *entrySet {
	return &entrySet{byKey: make(map[string]*packEntry)}
}

// readDump adds every dump line. A later line for the same key replaces the
// moves of an earlier one; plies keep their minimum.
func (s *entrySet) readDump(r io.Reader) (int, error) {
	rd := dump.NewReader(r)
	n := 0
	for rd.Next() {
		e := rd.Entry()
		key, natural, err := cdb.CanonicalKey(e.Position)
		if err != nil {
			return n, fmt.Errorf("%s: %w", e.Position.String(), err)
		}
		var moves []cdb.ScoredMove
		for _, m := range e.Moves {
			if !m.IsSentinel() {
				moves = append(moves, m)
			}
		}
		pe := &packEntry{natural: natural, moves: moves, ply: cdb.UnknownPly}
		if old, ok := s.byKey[string(key)]; ok {
			pe.ply = old.ply
		}
		s.byKey[string(key)] = pe
		s.setPly(pe, e.Ply())
		n++
	}
	return n, rd.Err()
}

// mergePly records a distance to root, creating a move-less entry for keys
// not in the dump.
func (s *entrySet) mergePly(key []byte, ply int) error {
	pe, ok := s.byKey[string(key)]
	if !ok {
		pe = &packEntry{natural: true, ply: cdb.UnknownPly}
		s.byKey[string(key)] = pe
	}
	s.setPly(pe, ply)
	return nil
}

func (s *entrySet) setPly(pe *packEntry, ply int) {
	if ply >= 0 && (pe.ply < 0 || ply < pe.ply) {
		pe.ply = ply
	}
}

// writeTo adds every entry to b in key order. Entries with neither moves nor
// a ply would read back as missing and are left out.
func (s *entrySet) writeTo(b *segstore.Builder) error {
	keys := make([]string, 0, len(s.byKey))
	for k := range s.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		pe := s.byKey[k]
		moves := append(pe.moves[:len(pe.moves):len(pe.moves)], cdb.ScoredMove{Move: cdb.SentinelMove, Score: pe.ply})
		value, err := cdb.EncodeScoredMoves(moves, pe.natural)
		if err != nil {
			return fmt.Errorf("encode %x: %w", k, err)
		}
		if len(value) == 0 {
			continue
		}
		if err := b.Add([]byte(k), value); err != nil {
			return err
		}
	}
	return nil
}
