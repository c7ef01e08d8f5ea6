package cdb

import "fmt"

// Move code encoding (uint16, little endian on disk):
//
//	bits 0-6:  destination square (0-89)
//	bit  7:    promotion flag
//	bits 8-15: source square (0-89)
//
// Squares index the 9x10 board the database shares with xiangqi:
// file = sq % 9 ('a'..'i'), rank = sq / 9 ('0'..'9'). Chess squares use files
// a..h and ranks 1..8, so rank 0 never appears in a real move.
//
// For promotions the destination rank is implied by the source rank (7 -> 8
// for white, 2 -> 1 for black) and the encoded destination rank selects the
// piece instead.
const (
	boardFiles   = 9
	boardSquares = 90

	moveDstMask   = 0x7F
	movePromoFlag = 0x80
	moveSrcShift  = 8
)

// SentinelMove is the reserved move whose score carries the distance to the
// root position. It is square a0 to a0, which no chess move can be.
const SentinelMove = "a0a0"

var promoPieces = [4]byte{'q', 'r', 'b', 'n'}

func squareFile(sq int) byte { return byte('a' + sq%boardFiles) }
func squareRank(sq int) byte { return byte('0' + sq/boardFiles) }

func squareIndex(file, rank byte) (int, bool) {
	if file < 'a' || file >= 'a'+boardFiles || rank < '0' || rank > '9' {
		return 0, false
	}
	return int(rank-'0')*boardFiles + int(file-'a'), true
}

// decodeMove turns a move code into coordinate notation. ok is false for
// codes no valid record can carry.
func decodeMove(code uint16) (move string, ok bool) {
	src := int(code >> moveSrcShift)
	dst := int(code & moveDstMask)
	if src >= boardSquares || dst >= boardSquares {
		return "", false
	}

	if code&movePromoFlag == 0 {
		return string([]byte{squareFile(src), squareRank(src), squareFile(dst), squareRank(dst)}), true
	}

	var toRank byte
	switch squareRank(src) {
	case '7':
		toRank = '8'
	case '2':
		toRank = '1'
	default:
		return "", false
	}
	piece := int(squareRank(dst) - '0')
	if piece >= len(promoPieces) {
		return "", false
	}
	return string([]byte{squareFile(src), squareRank(src), squareFile(dst), toRank, promoPieces[piece]}), true
}

// encodeMove is the inverse of decodeMove.
func encodeMove(move string) (uint16, error) {
	if len(move) != 4 && len(move) != 5 {
		return 0, fmt.Errorf("move %q: want 4 or 5 characters", move)
	}
	src, ok := squareIndex(move[0], move[1])
	if !ok {
		return 0, fmt.Errorf("move %q: bad source square", move)
	}
	if len(move) == 4 {
		dst, ok := squareIndex(move[2], move[3])
		if !ok {
			return 0, fmt.Errorf("move %q: bad destination square", move)
		}
		return uint16(src)<<moveSrcShift | uint16(dst), nil
	}

	if !(move[1] == '7' && move[3] == '8') && !(move[1] == '2' && move[3] == '1') {
		return 0, fmt.Errorf("move %q: promotion must go 7->8 or 2->1", move)
	}
	piece := -1
	for i, p := range promoPieces {
		if move[4] == p {
			piece = i
		}
	}
	if piece < 0 {
		return 0, fmt.Errorf("move %q: bad promotion piece", move)
	}
	dst, ok := squareIndex(move[2], byte('0'+piece))
	if !ok {
		return 0, fmt.Errorf("move %q: bad destination file", move)
	}
	return uint16(src)<<moveSrcShift | movePromoFlag | uint16(dst), nil
}
