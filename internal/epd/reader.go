// Package epd reads EPD/FEN position files line by line and writes the
// database evaluation back as an EPD operation.
package epd

import (
	"bufio"
	"io"
	"strings"

	"github.com/freeeve/cdbdirect/internal/fen"
)

// maxLineBytes bounds a single EPD line; long operation lists are allowed.
const maxLineBytes = 1 << 20

// Entry is one line carrying at least four fields.
type Entry struct {
	LineNo   int
	Line     string
	Position fen.Position
	// Err is set when the four fields do not form a position. The line is
	// still yielded so output files keep it.
	Err error
}

// Reader yields the entries of an EPD stream in order.
type Reader struct {
	sc      *bufio.Scanner
	lineNo  int
	entry   Entry
	short   int
	invalid int
}

// NewReader reads entries from r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Reader{sc: sc}
}

// Next advances to the next entry, skipping lines with fewer than four
// fields. It returns false at the end of input or on a read error.
func (r *Reader) Next() bool {
	for r.sc.Scan() {
		r.lineNo++
		line := strings.TrimRight(r.sc.Text(), "\r")
		if len(strings.Fields(line)) < 4 {
			r.short++
			continue
		}
		p, err := fen.ParsePosition(line)
		if err != nil {
			r.invalid++
		}
		r.entry = Entry{LineNo: r.lineNo, Line: line, Position: p, Err: err}
		return true
	}
	return false
}

// Entry returns the current entry.
func (r *Reader) Entry() Entry { return r.entry }

// Err returns the first read error.
func (r *Reader) Err() error { return r.sc.Err() }

// Short is the number of lines skipped for having fewer than four fields.
func (r *Reader) Short() int { return r.short }

// Invalid is the number of yielded entries whose position did not parse.
func (r *Reader) Invalid() int { return r.invalid }

// ReadAll collects every entry of r.
func ReadAll(r io.Reader) ([]Entry, *Reader, error) {
	rd := NewReader(r)
	var out []Entry
	for rd.Next() {
		out = append(out, rd.Entry())
	}
	return out, rd, rd.Err()
}
