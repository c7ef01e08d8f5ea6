package segstore

import (
	"bytes"
	"container/heap"
)

// cursor walks one segment. Until it reaches the top of the merge heap its
// body is not loaded and bound stands in for its first key.
type cursor struct {
	info  *segmentInfo
	data  *segmentData
	pos   int
	bound []byte
}

func (c *cursor) key() []byte {
	if c.data == nil {
		return c.bound
	}
	return c.data.key(c.pos)
}

// cursorHeap orders cursors by key. On equal keys, unloaded cursors come
// first so they are loaded before a decision is made, then newer segments
// before older ones.
type cursorHeap []*cursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	if c := bytes.Compare(h[i].key(), h[j].key()); c != 0 {
		return c < 0
	}
	if (h[i].data == nil) != (h[j].data == nil) {
		return h[i].data == nil
	}
	return h[i].info.header.Seq > h[j].info.header.Seq
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x any) {
	*h = append(*h, x.(*cursor))
}

func (h *cursorHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// mergeIterator is a k-way merge over the segments of a store. Only the
// newest version of each key is yielded.
type mergeIterator struct {
	s    *Store
	heap cursorHeap
	err  error
}

func newMergeIterator(s *Store) *mergeIterator {
	return &mergeIterator{s: s}
}

// Seek positions the iterator at the first key >= key.
func (it *mergeIterator) Seek(key []byte) {
	it.heap = it.heap[:0]
	it.err = nil
	if it.s.closed.Load() {
		it.err = ErrClosed
		return
	}
	for _, info := range it.s.segments {
		if bytes.Compare(info.maxKey, key) < 0 {
			continue
		}
		bound := key
		if bytes.Compare(info.minKey, key) > 0 {
			bound = info.minKey
		}
		it.heap = append(it.heap, &cursor{info: info, bound: bound})
	}
	heap.Init(&it.heap)
	it.settle()
}

func (it *mergeIterator) SeekToFirst() { it.Seek(nil) }

// SeekToLast positions the iterator at the largest key of the store.
func (it *mergeIterator) SeekToLast() {
	last := it.s.lastKey()
	if last == nil {
		it.heap = it.heap[:0]
		return
	}
	it.Seek(last)
}

// settle loads cursors until the top of the heap has a real key.
func (it *mergeIterator) settle() {
	for len(it.heap) > 0 && it.heap[0].data == nil {
		c := it.heap[0]
		d, err := it.s.body(c.info)
		if err != nil {
			it.err = err
			it.heap = it.heap[:0]
			return
		}
		c.data = d
		c.pos = d.search(c.bound)
		c.bound = nil
		if c.pos >= d.count() {
			heap.Pop(&it.heap)
		} else {
			heap.Fix(&it.heap, 0)
		}
	}
}

func (it *mergeIterator) Valid() bool {
	return it.err == nil && len(it.heap) > 0
}

func (it *mergeIterator) Key() []byte { return it.heap[0].key() }

func (it *mergeIterator) Value() []byte {
	c := it.heap[0]
	return c.data.value(c.pos)
}

// Next advances past the current key in every segment holding it.
func (it *mergeIterator) Next() {
	if !it.Valid() {
		return
	}
	current := it.Key()
	for {
		it.settle()
		if !it.Valid() {
			return
		}
		top := it.heap[0]
		if !bytes.Equal(top.key(), current) {
			return
		}
		top.pos++
		if top.pos >= top.data.count() {
			heap.Pop(&it.heap)
		} else {
			heap.Fix(&it.heap, 0)
		}
	}
}

func (it *mergeIterator) Err() error { return it.err }

func (it *mergeIterator) Close() error {
	it.heap = nil
	return nil
}
