// Package eco names opening positions and replays SAN move lines into
// positions that can be looked up in the database.
package eco

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/freeeve/pgn/v3"

	"github.com/freeeve/cdbdirect/internal/fen"
)

// Opening represents an ECO opening classification.
type Opening struct {
	ECO  string `json:"eco"`
	Name string `json:"name"`
}

// Database holds ECO opening data indexed by position.
type Database struct {
	byPosition map[fen.Position]Opening
	count      int
	skipped    int
}

// NewDatabase creates an empty ECO database.
func NewDatabase() *Database {
	return &Database{
		byPosition: make(map[fen.Position]Opening),
	}
}

var results = map[string]bool{"1-0": true, "0-1": true, "1/2-1/2": true, "*": true}

// moveNumberRegex matches move numbers like "1." or "12..."
var moveNumberRegex = regexp.MustCompile(`\d+\.+\s*`)

// LoadDir loads all .tsv files from a directory.
func (db *Database) LoadDir(dir string) error {
	files, err := filepath.Glob(filepath.Join(dir, "*.tsv"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .tsv files found in %s", dir)
	}

	for _, file := range files {
		if err := db.LoadFile(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// LoadFile loads a single TSV file of eco, name and pgn columns.
func (db *Database) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		// Skip header
		if lineNum == 1 && strings.HasPrefix(line, "eco\t") {
			continue
		}

		parts := strings.SplitN(line, "\t", 3)
		if len(parts) != 3 {
			continue
		}

		l, err := Replay(parts[2])
		if err != nil {
			db.skipped++
			continue
		}
		db.byPosition[l.Final()] = Opening{ECO: parts[0], Name: parts[1]}
		db.count++
	}

	return scanner.Err()
}

// Lookup returns the opening reached at p.
func (db *Database) Lookup(p fen.Position) (Opening, bool) {
	o, ok := db.byPosition[fen.NormalizeEnPassant(p)]
	return o, ok
}

// Count returns the number of openings loaded.
func (db *Database) Count() int {
	return db.count
}

// Skipped returns the number of lines whose moves did not replay.
func (db *Database) Skipped() int {
	return db.skipped
}

// Line is a replayed sequence of moves from the starting position.
type Line struct {
	// SAN holds the moves as given, without check marks.
	SAN []string
	// Positions has one more entry than SAN: the start position first.
	Positions []fen.Position

	final pgn.PackedPosition
}

// Final returns the position at the end of the line.
func (l *Line) Final() fen.Position {
	return l.Positions[len(l.Positions)-1]
}

// ErrLineTooLong is returned by ReplayN when a line has more moves than
// allowed.
var ErrLineTooLong = errors.New("line too long")

// Replay parses and applies PGN moves like "1. e4 e5 2. Nf3 Nc6".
func Replay(pgnMoves string) (*Line, error) {
	return ReplayN(pgnMoves, 0)
}

// ReplayN is Replay with a bound on the number of moves, checked before any
// move is applied. maxPlies <= 0 means no bound.
func ReplayN(pgnMoves string, maxPlies int) (*Line, error) {
	// Remove move numbers: "1. e4 e5 2. Nf3" -> "e4 e5 Nf3"
	cleaned := moveNumberRegex.ReplaceAllString(pgnMoves, "")
	var moves []string
	for _, san := range strings.Fields(cleaned) {
		// Skip annotations and results
		if san[0] == '$' || san[0] == '{' || results[san] {
			continue
		}
		moves = append(moves, san)
	}
	if maxPlies > 0 && len(moves) > maxPlies {
		return nil, fmt.Errorf("%w: %d moves, at most %d", ErrLineTooLong, len(moves), maxPlies)
	}

	pos := pgn.NewStartingPosition()
	start, err := positionOf(pos)
	if err != nil {
		return nil, err
	}
	l := &Line{Positions: []fen.Position{start}}

	for _, san := range moves {
		san = strings.TrimSuffix(san, "+")
		san = strings.TrimSuffix(san, "#")

		mv, err := pgn.ParseSAN(pos, san)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", san, err)
		}
		// ParseSAN does not check legality.
		if !isLegal(pos, mv) {
			return nil, fmt.Errorf("illegal move %q", san)
		}
		if err := pgn.ApplyMove(pos, mv); err != nil {
			return nil, fmt.Errorf("apply %q: %w", san, err)
		}
		p, err := positionOf(pos)
		if err != nil {
			return nil, err
		}
		l.SAN = append(l.SAN, san)
		l.Positions = append(l.Positions, p)
	}
	l.final = pos.Pack()
	return l, nil
}

// Children returns the positions reachable by one legal move from the end of
// the line.
func (l *Line) Children() ([]fen.Position, error) {
	pos := l.final.Unpack()
	if pos == nil {
		return nil, fmt.Errorf("unpack final position")
	}
	moves := pgn.GenerateLegalMoves(pos)
	out := make([]fen.Position, 0, len(moves))
	for _, mv := range moves {
		child := l.final.Unpack()
		if child == nil {
			continue
		}
		if err := pgn.ApplyMove(child, mv); err != nil {
			continue
		}
		p, err := positionOf(child)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// InCheck reports whether the side to move at the end of the line is in
// check.
func (l *Line) InCheck() bool {
	pos := l.final.Unpack()
	return pos != nil && pos.IsInCheck()
}

func isLegal(pos *pgn.GameState, mv pgn.Mv) bool {
	for _, legal := range pgn.GenerateLegalMoves(pos) {
		if legal == mv {
			return true
		}
	}
	return false
}

func positionOf(gs *pgn.GameState) (fen.Position, error) {
	p, err := fen.ParsePosition(gs.ToFEN())
	if err != nil {
		return fen.Position{}, err
	}
	return fen.NormalizeEnPassant(p), nil
}
