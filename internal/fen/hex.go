package fen

import (
	"encoding/hex"
	"fmt"
)

// HexToBin packs two hex digits per byte. A hexfen always has an even
// number of digits, so odd input is rejected.
func HexToBin(h string) ([]byte, error) {
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHexFen, err)
	}
	return b, nil
}

// BinToHex expands each byte into exactly two lower-case hex digits.
func BinToHex(b []byte) string {
	return hex.EncodeToString(b)
}
