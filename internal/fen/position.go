package fen

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPosition is returned when a FEN/EPD line cannot be turned into a Position.
var ErrInvalidPosition = errors.New("invalid position")

// Position is a 4-field FEN: piece placement, side to move, castling rights
// and en-passant target. Move counters carry no information for lookups and
// are never part of a Position.
type Position struct {
	Placement   string // e.g. "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"
	WhiteToMove bool
	Castling    string // "KQkq", "-", or Shredder-style rook files
	EnPassant   string // "-" or a square such as "e3"
}

// StartPosition is the standard initial position.
var StartPosition = Position{
	Placement:   "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR",
	WhiteToMove: true,
	Castling:    "KQkq",
	EnPassant:   "-",
}

// ParsePosition parses a FEN or EPD line. Only the first four fields are
// kept; anything after them (move counters, EPD operations) is dropped.
func ParsePosition(s string) (Position, error) {
	fields := strings.Fields(s)
	if len(fields) < 4 {
		return Position{}, fmt.Errorf("%w: need 4 fields, got %d in %q", ErrInvalidPosition, len(fields), s)
	}

	p := Position{
		Placement: fields[0],
		Castling:  fields[2],
		EnPassant: fields[3],
	}
	switch fields[1] {
	case "w":
		p.WhiteToMove = true
	case "b":
		p.WhiteToMove = false
	default:
		return Position{}, fmt.Errorf("%w: side to move %q", ErrInvalidPosition, fields[1])
	}

	if err := p.Validate(); err != nil {
		return Position{}, err
	}
	return p, nil
}

// MustParsePosition is ParsePosition for literals known to be valid.
func MustParsePosition(s string) Position {
	p, err := ParsePosition(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Validate checks the structural shape of the position: eight ranks of
// eight squares using known piece letters, a castling field and an
// en-passant field the hexfen tables can represent. It is not a legality check.
func (p Position) Validate() error {
	ranks := strings.Split(p.Placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: %d ranks in %q", ErrInvalidPosition, len(ranks), p.Placement)
	}
	for _, rank := range ranks {
		squares := 0
		prevDigit := false
		for i := 0; i < len(rank); i++ {
			c := rank[i]
			switch {
			case c >= '1' && c <= '8':
				if prevDigit {
					return fmt.Errorf("%w: adjacent empty runs in rank %q", ErrInvalidPosition, rank)
				}
				squares += int(c - '0')
				prevDigit = true
				continue
			case strings.IndexByte("pnbrqkPNBRQK", c) >= 0:
				squares++
			default:
				return fmt.Errorf("%w: piece %q", ErrInvalidPosition, c)
			}
			prevDigit = false
		}
		if squares != 8 {
			return fmt.Errorf("%w: rank %q has %d squares", ErrInvalidPosition, rank, squares)
		}
	}

	if p.Castling == "" {
		return fmt.Errorf("%w: empty castling field", ErrInvalidPosition)
	}
	if p.Castling != "-" {
		seenLower := false
		for i := 0; i < len(p.Castling); i++ {
			c := p.Castling[i]
			if !(c >= 'a' && c <= 'h') && !(c >= 'A' && c <= 'H') && strings.IndexByte("KQkq", c) < 0 {
				return fmt.Errorf("%w: castling %q", ErrInvalidPosition, p.Castling)
			}
			// white rights first, so Mirror stays an involution
			upper := c >= 'A' && c <= 'Z'
			if upper && seenLower {
				return fmt.Errorf("%w: castling %q lists black before white", ErrInvalidPosition, p.Castling)
			}
			seenLower = seenLower || !upper
		}
	}

	if p.EnPassant != "-" {
		ep := p.EnPassant
		if len(ep) != 2 || ep[0] < 'a' || ep[0] > 'h' || (ep[1] != '3' && ep[1] != '6') {
			return fmt.Errorf("%w: en passant %q", ErrInvalidPosition, ep)
		}
	}
	return nil
}

// Side returns "w" or "b".
func (p Position) Side() string {
	if p.WhiteToMove {
		return "w"
	}
	return "b"
}

// String renders the 4-field FEN.
func (p Position) String() string {
	return p.Placement + " " + p.Side() + " " + p.Castling + " " + p.EnPassant
}

// FullFEN renders a 6-field FEN with neutral move counters, for consumers
// that require them (engines, move generators).
func (p Position) FullFEN() string {
	return p.String() + " 0 1"
}
