// Package kv describes the ordered, immutable key-value store the
// knowledge base is read from. Keys compare byte-lexicographically.
package kv

import (
	"bytes"
	"errors"
)

// ErrNotFound is returned by Reader.Get when a key is absent.
var ErrNotFound = errors.New("not found")

// Reader is a read-only ordered key-value store. Implementations must be
// safe for concurrent use; iterators are not and belong to one goroutine.
type Reader interface {
	Get(key []byte) ([]byte, error)
	NewIterator() Iterator
}

// Iterator is a forward cursor over keys in ascending order.
type Iterator interface {
	Seek(key []byte)
	SeekToFirst()
	SeekToLast()
	Valid() bool
	Key() []byte
	Value() []byte
	Next()
	Err() error
	Close() error
}

// Segment is the key span of one immutable on-disk segment. Both bounds are
// inclusive.
type Segment struct {
	Smallest []byte
	Largest  []byte
}

// SegmentLister is implemented by stores that can report their immutable
// segments. It is optional; stores without it are scanned as one range.
type SegmentLister interface {
	Segments() []Segment
}

// Range is the half-open key interval [Start, End). A nil Start begins at
// the first key and a nil End is unbounded.
type Range struct {
	Start []byte
	End   []byte
}

// Contains reports whether key falls inside the range.
func (r Range) Contains(key []byte) bool {
	if r.Start != nil && Compare(key, r.Start) < 0 {
		return false
	}
	return r.End == nil || Compare(key, r.End) < 0
}

// Compare is the store's key ordering.
func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}
