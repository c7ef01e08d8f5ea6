package cdb

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/freeeve/cdbdirect/internal/kv"
)

// FullRange covers the whole key space.
var FullRange = kv.Range{}

// BuildRanges splits the key space spanned by segments into at most workers
// disjoint ranges. Each segment contributes [its smallest key, next segment's
// smallest key); the last one ends just past lastKey. The segment ranges are
// then dealt out by count, the first len%workers partitions taking one extra.
//
// With no segments the result is the single FullRange.
func BuildRanges(segments []kv.Segment, lastKey []byte, workers int) []kv.Range {
	if len(segments) == 0 {
		return []kv.Range{FullRange}
	}
	if workers < 1 {
		workers = 1
	}

	starts := make([][]byte, 0, len(segments))
	for _, s := range segments {
		starts = append(starts, s.Smallest)
	}
	sort.Slice(starts, func(i, j int) bool { return kv.Compare(starts[i], starts[j]) < 0 })

	// Overlapping segments can share a smallest key; keep one range per start.
	uniq := starts[:1]
	for _, s := range starts[1:] {
		if !bytes.Equal(s, uniq[len(uniq)-1]) {
			uniq = append(uniq, s)
		}
	}

	if lastKey == nil {
		for _, s := range segments {
			if kv.Compare(s.Largest, lastKey) > 0 {
				lastKey = s.Largest
			}
		}
	}
	end := append(bytes.Clone(lastKey), 0x00)

	merged := make([]kv.Range, len(uniq))
	for i, s := range uniq {
		merged[i].Start = s
		if i+1 < len(uniq) {
			merged[i].End = uniq[i+1]
		} else {
			merged[i].End = end
		}
	}

	k := min(workers, len(merged))
	base, rem := len(merged)/k, len(merged)%k
	out := make([]kv.Range, 0, k)
	next := 0
	for i := 0; i < k; i++ {
		n := base
		if i < rem {
			n++
		}
		out = append(out, kv.Range{Start: merged[next].Start, End: merged[next+n-1].End})
		next += n
	}
	return out
}

// PlanRanges builds scan ranges for store. Stores that cannot list their
// segments, and empty stores, are scanned as one FullRange.
func PlanRanges(store kv.Reader, workers int) ([]kv.Range, error) {
	it := store.NewIterator()
	it.SeekToLast()
	var lastKey []byte
	if it.Valid() {
		lastKey = bytes.Clone(it.Key())
	}
	err := it.Err()
	if cerr := it.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("find last key: %w", err)
	}
	if lastKey == nil {
		return []kv.Range{FullRange}, nil
	}

	lister, ok := store.(kv.SegmentLister)
	if !ok {
		return []kv.Range{FullRange}, nil
	}
	return BuildRanges(lister.Segments(), lastKey, workers), nil
}
