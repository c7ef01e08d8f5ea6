package fen

import "strings"

// mirrorRank maps a rank character to its colour-mirrored rank.
var mirrorRank = [128]byte{
	'1': '8', '2': '7', '3': '6', '4': '5',
	'5': '4', '6': '3', '7': '2', '8': '1',
}

func swapCase(c byte) byte {
	switch {
	case c >= 'a' && c <= 'z':
		return c - 'a' + 'A'
	case c >= 'A' && c <= 'Z':
		return c - 'A' + 'a'
	}
	return c
}

// Mirror returns the colour-flipped twin of p: ranks reversed, piece colours
// swapped, castling rights and en-passant square re-derived for the other
// side, side to move flipped. Mirror(Mirror(p)) == p.
func Mirror(p Position) Position {
	ranks := strings.Split(p.Placement, "/")
	flipped := make([]string, len(ranks))
	for i, rank := range ranks {
		b := []byte(rank)
		for j := range b {
			b[j] = swapCase(b[j])
		}
		flipped[len(ranks)-1-i] = string(b)
	}

	// Black's rights (now white's) come first, then white's.
	castling := p.Castling
	if castling != "-" {
		var upper, lower []byte
		for i := 0; i < len(castling); i++ {
			c := castling[i]
			if c >= 'A' && c <= 'Z' {
				lower = append(lower, swapCase(c))
			} else {
				upper = append(upper, swapCase(c))
			}
		}
		castling = string(upper) + string(lower)
	}

	return Position{
		Placement:   strings.Join(flipped, "/"),
		WhiteToMove: !p.WhiteToMove,
		Castling:    castling,
		EnPassant:   mirrorSquares(p.EnPassant, len(p.EnPassant)),
	}
}

// MirrorMove mirrors the ranks of a move in coordinate notation. Only the
// first four characters are touched; a promotion piece passes through.
func MirrorMove(move string) string {
	return mirrorSquares(move, 4)
}

func mirrorSquares(s string, limit int) string {
	b := []byte(s)
	for i := 0; i < len(b) && i < limit; i++ {
		if b[i] < 128 && mirrorRank[b[i]] != 0 {
			b[i] = mirrorRank[b[i]]
		}
	}
	return string(b)
}
