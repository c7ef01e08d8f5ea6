// Package dump reads and writes the text form of database entries, one
// position per line:
//
//	<fen>\t<move>:<score>[,<move>:<score>...]
//
// Moves and scores are given as lookups return them: in the orientation of
// the fen and from the side to move's point of view. The sentinel move
// a0a0 carries the distance to root.
package dump

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/fen"
)

// ErrSyntax marks a malformed dump line.
var ErrSyntax = errors.New("dump syntax")

// Entry is one dumped position.
type Entry struct {
	Position fen.Position
	Moves    []cdb.ScoredMove // may end with the sentinel
}

// Ply returns the sentinel's ply, or cdb.UnknownPly.
func (e Entry) Ply() int {
	for _, m := range e.Moves {
		if m.IsSentinel() {
			return m.Score
		}
	}
	return cdb.UnknownPly
}

// ParseLine parses one dump line.
func ParseLine(line string) (Entry, error) {
	fenPart, movesPart, _ := strings.Cut(line, "\t")
	p, err := fen.ParsePosition(fenPart)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{Position: p}
	movesPart = strings.TrimSpace(movesPart)
	if movesPart == "" {
		return e, nil
	}
	for _, item := range strings.Split(movesPart, ",") {
		move, score, ok := strings.Cut(strings.TrimSpace(item), ":")
		if !ok || move == "" {
			return Entry{}, fmt.Errorf("%w: move %q", ErrSyntax, item)
		}
		n, err := strconv.Atoi(score)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: score %q", ErrSyntax, item)
		}
		e.Moves = append(e.Moves, cdb.ScoredMove{Move: move, Score: n})
	}
	return e, nil
}

// FormatLine renders an entry. Sentinels with a negative ply are omitted.
func FormatLine(p fen.Position, moves []cdb.ScoredMove) string {
	var b strings.Builder
	b.WriteString(p.String())
	b.WriteByte('\t')
	first := true
	for _, m := range moves {
		if m.IsSentinel() && m.Score < 0 {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.WriteString(m.Move)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(m.Score))
	}
	return b.String()
}

// Reader reads dump entries. Blank lines and lines starting with # are
// skipped.
type Reader struct {
	sc     *bufio.Scanner
	lineNo int
	entry  Entry
	err    error
}

// NewReader reads from r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	return &Reader{sc: sc}
}

// Next advances to the next entry. It stops at the first malformed line.
func (r *Reader) Next() bool {
	if r.err != nil {
		return false
	}
	for r.sc.Scan() {
		r.lineNo++
		line := strings.TrimRight(r.sc.Text(), "\r")
		if line == "" || line[0] == '#' {
			continue
		}
		e, err := ParseLine(line)
		if err != nil {
			r.err = fmt.Errorf("line %d: %w", r.lineNo, err)
			return false
		}
		r.entry = e
		return true
	}
	r.err = r.sc.Err()
	return false
}

// Entry returns the current entry.
func (r *Reader) Entry() Entry { return r.entry }

// Err returns the first read or syntax error.
func (r *Reader) Err() error { return r.err }
