package kv

import (
	"bytes"
	"sort"
)

// Record is one key-value pair.
type Record struct {
	Key   []byte
	Value []byte
}

// MemStore is an in-memory Reader over a fixed, sorted record set. It reports
// its records as segments of SegmentSize records each, so range planning can
// be exercised without files.
type MemStore struct {
	records     []Record
	SegmentSize int
}

// NewMemStore copies records, sorts them by key and keeps the last value
// given for a duplicate key.
func NewMemStore(records []Record) *MemStore {
	rs := make([]Record, len(records))
	copy(rs, records)
	sort.SliceStable(rs, func(i, j int) bool { return Compare(rs[i].Key, rs[j].Key) < 0 })

	out := rs[:0]
	for _, r := range rs {
		if len(out) > 0 && bytes.Equal(out[len(out)-1].Key, r.Key) {
			out[len(out)-1] = r
			continue
		}
		out = append(out, r)
	}
	return &MemStore{records: out}
}

// Len returns the number of records.
func (m *MemStore) Len() int { return len(m.records) }

func (m *MemStore) search(key []byte) int {
	return sort.Search(len(m.records), func(i int) bool {
		return Compare(m.records[i].Key, key) >= 0
	})
}

// Get returns the value stored under key or ErrNotFound.
func (m *MemStore) Get(key []byte) ([]byte, error) {
	i := m.search(key)
	if i < len(m.records) && bytes.Equal(m.records[i].Key, key) {
		return m.records[i].Value, nil
	}
	return nil, ErrNotFound
}

// Segments splits the records into chunks of SegmentSize. A SegmentSize of
// zero reports one segment.
func (m *MemStore) Segments() []Segment {
	if len(m.records) == 0 {
		return nil
	}
	size := m.SegmentSize
	if size <= 0 {
		size = len(m.records)
	}
	var segs []Segment
	for i := 0; i < len(m.records); i += size {
		j := min(i+size, len(m.records)) - 1
		segs = append(segs, Segment{Smallest: m.records[i].Key, Largest: m.records[j].Key})
	}
	return segs
}

// NewIterator returns an unpositioned iterator.
func (m *MemStore) NewIterator() Iterator {
	return &memIterator{records: m.records, pos: -1}
}

type memIterator struct {
	records []Record
	pos     int
}

func (it *memIterator) Seek(key []byte) {
	it.pos = sort.Search(len(it.records), func(i int) bool {
		return Compare(it.records[i].Key, key) >= 0
	})
}

func (it *memIterator) SeekToFirst() { it.pos = 0 }
func (it *memIterator) SeekToLast()  { it.pos = len(it.records) - 1 }
func (it *memIterator) Valid() bool  { return it.pos >= 0 && it.pos < len(it.records) }
func (it *memIterator) Key() []byte  { return it.records[it.pos].Key }
func (it *memIterator) Value() []byte {
	return it.records[it.pos].Value
}
func (it *memIterator) Next()        { it.pos++ }
func (it *memIterator) Err() error   { return nil }
func (it *memIterator) Close() error { return nil }
