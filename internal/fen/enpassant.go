package fen

import "strings"

// NormalizeEnPassant clears an en-passant square no pawn of the side to move
// could capture on. Stored keys only carry capturable squares, so positions
// produced by move replay must go through this before lookup. Pins are not
// considered.
func NormalizeEnPassant(p Position) Position {
	if p.EnPassant == "-" || len(p.EnPassant) != 2 {
		return p
	}
	file := int(p.EnPassant[0] - 'a')
	rank := p.EnPassant[1]

	var pawnRow int // board row of the pawn that just moved, 0 = rank 8
	var mover, capturer byte
	switch {
	case rank == '6' && p.WhiteToMove:
		pawnRow, mover, capturer = 3, 'p', 'P'
	case rank == '3' && !p.WhiteToMove:
		pawnRow, mover, capturer = 4, 'P', 'p'
	default:
		p.EnPassant = "-"
		return p
	}

	board := expandBoard(p.Placement)
	if board == nil || board[pawnRow][file] != mover {
		p.EnPassant = "-"
		return p
	}
	for _, f := range []int{file - 1, file + 1} {
		if f >= 0 && f < 8 && board[pawnRow][f] == capturer {
			return p
		}
	}
	p.EnPassant = "-"
	return p
}

// expandBoard returns the placement as 8 rows of 8 squares, '.' for empty,
// or nil when the placement is malformed.
func expandBoard(placement string) [][]byte {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return nil
	}
	board := make([][]byte, 8)
	for i, rank := range ranks {
		row := make([]byte, 0, 8)
		for j := 0; j < len(rank); j++ {
			c := rank[j]
			if c >= '1' && c <= '8' {
				for k := byte(0); k < c-'0'; k++ {
					row = append(row, '.')
				}
				continue
			}
			row = append(row, c)
		}
		if len(row) != 8 {
			return nil
		}
		board[i] = row
	}
	return board
}
