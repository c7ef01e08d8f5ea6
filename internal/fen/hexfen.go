package fen

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCorruptHexFen is returned when a hexfen does not decode to a position.
// It means the encoder and decoder disagree or the stored key is damaged, so
// callers should treat it as fatal rather than as a per-query miss.
var ErrCorruptHexFen = errors.New("corrupt hexfen")

// Hexfen layout:
//
//	board:  one digit per piece, 0/1/2 for runs of 1..3 empty squares,
//	        "8" + (n-4) for runs of 4..8 empty squares, ranks 8..1, no separators
//	side:   0 = white, 1 = black
//	extra:  castling field, separator "9", en-passant field, digit by digit
//	pad:    an odd digit count drops a trailing "0" (absent en passant) or
//	        appends one
const (
	runMarker  = '8'
	sideWhite  = '0'
	sideBlack  = '1'
	extraSep   = '9'
	chess960   = 'e'
	padDigit   = '0'
	maxHexFen  = 93
	emptyRun3  = '2'
	squareSize = 64
)

var boardDigit = [128]byte{
	'1': '0', '2': '1', '3': '2',
	'p': '3', 'n': '4', 'b': '5', 'r': '6', 'q': '7', 'k': '9',
	'P': 'a', 'N': 'b', 'B': 'c', 'R': 'd', 'Q': 'e', 'K': 'f',
}

var digitPiece = [128]byte{
	'3': 'p', '4': 'n', '5': 'b', '6': 'r', '7': 'q', '9': 'k',
	'a': 'P', 'b': 'N', 'c': 'B', 'd': 'R', 'e': 'Q', 'f': 'K',
}

var extraDigit = [128]byte{
	'-': '0',
	'a': '1', 'b': '2', 'c': '3', 'd': '4', 'e': '5', 'f': '6', 'g': '7', 'h': '8',
	' ': '9',
	'K': 'a', 'Q': 'b', 'k': 'c', 'q': 'd',
}

var digitExtra = [128]byte{
	'0': '-',
	'1': 'a', '2': 'b', '3': 'c', '4': 'd', '5': 'e', '6': 'f', '7': 'g', '8': 'h',
	'9': ' ',
	'a': 'K', 'b': 'Q', 'c': 'k', 'd': 'q',
}

// EncodeHexFen encodes a position as a hexfen string.
func EncodeHexFen(p Position) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}

	digits := make([]byte, 0, maxHexFen)
	for i := 0; i < len(p.Placement); i++ {
		c := p.Placement[i]
		switch {
		case c == '/':
			continue
		case c >= '4' && c <= '8':
			digits = append(digits, runMarker, c-4)
		default:
			digits = append(digits, boardDigit[c])
		}
	}

	if p.WhiteToMove {
		digits = append(digits, sideWhite)
	} else {
		digits = append(digits, sideBlack)
	}

	extra := p.Castling + " " + p.EnPassant
	for i := 0; i < len(extra); i++ {
		c := extra[i]
		switch {
		case c >= 'A' && c <= 'H':
			// Chess960 rook file: marker digit, then the file.
			digits = append(digits, chess960, extraDigit[c-'A'+'a'])
		case extraDigit[c] != 0:
			digits = append(digits, extraDigit[c])
		default:
			// en-passant rank digits are stored as themselves
			digits = append(digits, c)
		}
	}

	if len(digits)%2 == 1 {
		if digits[len(digits)-1] == padDigit {
			digits = digits[:len(digits)-1]
		} else {
			digits = append(digits, padDigit)
		}
	}
	return string(digits), nil
}

type digitReader struct {
	s   string
	pos int
}

func (r *digitReader) next() (byte, bool) {
	if r.pos >= len(r.s) {
		return 0, false
	}
	c := r.s[r.pos]
	r.pos++
	return c, true
}

func (r *digitReader) rest() string {
	return r.s[r.pos:]
}

func corrupt(h string, format string, args ...any) error {
	return fmt.Errorf("%w %q: %s", ErrCorruptHexFen, h, fmt.Sprintf(format, args...))
}

// DecodeHexFen decodes a hexfen back into a position. It consumes exactly
// the digits EncodeHexFen produces; anything else is ErrCorruptHexFen.
func DecodeHexFen(h string) (Position, error) {
	r := &digitReader{s: h}
	var board strings.Builder
	board.Grow(71)

	for sq := 0; sq < squareSize; {
		if sq > 0 && sq%8 == 0 {
			board.WriteByte('/')
		}
		d, ok := r.next()
		if !ok {
			return Position{}, corrupt(h, "truncated board at square %d", sq)
		}

		n := 1
		switch {
		case d >= '0' && d <= emptyRun3:
			n = int(d-'0') + 1
			board.WriteByte(byte('0' + n))
		case d == runMarker:
			l, ok := r.next()
			if !ok || l < '0' || l > '4' {
				return Position{}, corrupt(h, "bad empty run length at square %d", sq)
			}
			n = int(l-'0') + 4
			board.WriteByte(byte('0' + n))
		default:
			if d >= 128 || digitPiece[d] == 0 {
				return Position{}, corrupt(h, "unknown board digit %q", d)
			}
			board.WriteByte(digitPiece[d])
		}
		if sq%8+n > 8 {
			return Position{}, corrupt(h, "empty run crosses rank at square %d", sq)
		}
		sq += n
	}

	p := Position{Placement: board.String()}
	switch side, _ := r.next(); side {
	case sideWhite:
		p.WhiteToMove = true
	case sideBlack:
		p.WhiteToMove = false
	default:
		return Position{}, corrupt(h, "bad side digit %q", side)
	}

	var castling strings.Builder
	for {
		d, ok := r.next()
		if !ok {
			return Position{}, corrupt(h, "missing field separator")
		}
		if d == chess960 {
			f, ok := r.next()
			if !ok || f < '1' || f > '8' {
				return Position{}, corrupt(h, "bad chess960 file")
			}
			castling.WriteByte(digitExtra[f] - 'a' + 'A')
			continue
		}
		if d >= 128 || digitExtra[d] == 0 {
			return Position{}, corrupt(h, "unknown castling digit %q", d)
		}
		c := digitExtra[d]
		if c == ' ' {
			break
		}
		castling.WriteByte(c)
	}
	if castling.Len() == 0 {
		return Position{}, corrupt(h, "empty castling field")
	}
	p.Castling = castling.String()

	// A trailing, absent en-passant field may have been dropped by the pad rule.
	p.EnPassant = "-"
	if d, ok := r.next(); ok {
		if d >= 128 {
			return Position{}, corrupt(h, "bad en-passant digit %q", d)
		}
		switch c := digitExtra[d]; {
		case c == '-':
		case c >= 'a' && c <= 'h':
			rank, ok := r.next()
			if !ok || (rank != '3' && rank != '6') {
				return Position{}, corrupt(h, "bad en-passant rank")
			}
			p.EnPassant = string([]byte{c, rank})
			if rest := r.rest(); rest != "" && rest != string(padDigit) {
				return Position{}, corrupt(h, "trailing digits %q", rest)
			}
			return p, nil
		default:
			return Position{}, corrupt(h, "bad en-passant digit %q", d)
		}
	}
	if rest := r.rest(); rest != "" {
		return Position{}, corrupt(h, "trailing digits %q", rest)
	}
	return p, nil
}
