package cdb

import (
	"fmt"

	"github.com/freeeve/cdbdirect/internal/fen"
)

// KeyTag prefixes every position key in the store.
const KeyTag byte = 'h'

// CanonicalKey returns the store key for p. A position and its colour mirror
// share one key; natural is true when p itself is the stored orientation.
func CanonicalKey(p fen.Position) (key []byte, natural bool, err error) {
	hexfen, err := fen.EncodeHexFen(p)
	if err != nil {
		return nil, false, err
	}
	bwHexfen, err := fen.EncodeHexFen(fen.Mirror(p))
	if err != nil {
		return nil, false, err
	}

	natural = hexfen <= bwHexfen
	smaller := hexfen
	if !natural {
		smaller = bwHexfen
	}
	bin, err := fen.HexToBin(smaller)
	if err != nil {
		return nil, false, err
	}
	key = make([]byte, 0, len(bin)+1)
	key = append(key, KeyTag)
	return append(key, bin...), natural, nil
}

// KeyToPosition decodes a store key back into a position. With natural true
// the stored orientation is returned, otherwise its mirror.
func KeyToPosition(key []byte, natural bool) (fen.Position, error) {
	if len(key) < 2 || key[0] != KeyTag {
		return fen.Position{}, fmt.Errorf("%w: key %x has no position tag", fen.ErrCorruptHexFen, key)
	}
	hexfen := fen.BinToHex(key[1:])
	p, err := fen.DecodeHexFen(hexfen)
	if err != nil {
		return fen.Position{}, err
	}

	mirrored := fen.Mirror(p)
	bwHexfen, err := fen.EncodeHexFen(mirrored)
	if err != nil {
		return fen.Position{}, err
	}
	ownHexfen, err := fen.EncodeHexFen(p)
	if err != nil {
		return fen.Position{}, err
	}
	if (ownHexfen <= bwHexfen) == natural {
		return p, nil
	}
	return mirrored, nil
}
