package segstore

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/freeeve/cdbdirect/internal/kv"
)

// Config configures a Store.
type Config struct {
	Dir string
	// FileCacheSize is the number of decompressed segment bodies kept in
	// memory, default 16.
	FileCacheSize int
	// ValueCacheBytes sizes the point lookup cache, default 64MB. Negative
	// disables it.
	ValueCacheBytes int64
	Logger          zerolog.Logger
}

// Store is a read-only kv.Reader over the segments of one directory. It is
// safe for concurrent use.
type Store struct {
	dir      string
	segments []*segmentInfo // sorted by min key, then seq
	bySeq    []*segmentInfo // newest first
	decoder  *zstd.Decoder
	files    *FileCache
	values   *ValueCache
	loads    singleflight.Group
	log      zerolog.Logger

	reads      uint64
	bodyLoads  uint64
	loadMicros uint64
	closed     atomic.Bool
}

var (
	_ kv.Reader        = (*Store)(nil)
	_ kv.SegmentLister = (*Store)(nil)
)

// Open reads the headers of every segment in cfg.Dir. Bodies are loaded on
// first use.
func Open(cfg Config) (*Store, error) {
	if cfg.FileCacheSize == 0 {
		cfg.FileCacheSize = 16
	}
	if cfg.ValueCacheBytes == 0 {
		cfg.ValueCacheBytes = 64 << 20
	}

	entries, err := os.ReadDir(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger.With().Str("component", "segstore").Str("dir", cfg.Dir).Logger()
	s := &Store{
		dir:     cfg.Dir,
		decoder: decoder,
		files:   NewFileCache(cfg.FileCacheSize),
		values:  NewValueCache(cfg.ValueCacheBytes),
		log:     log,
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Ext {
			continue
		}
		info, err := readSegmentInfo(filepath.Join(cfg.Dir, entry.Name()))
		if err != nil {
			decoder.Close()
			return nil, err
		}
		s.segments = append(s.segments, info)
	}

	sort.Slice(s.segments, func(i, j int) bool {
		if c := bytes.Compare(s.segments[i].minKey, s.segments[j].minKey); c != 0 {
			return c < 0
		}
		return s.segments[i].header.Seq < s.segments[j].header.Seq
	})
	s.bySeq = make([]*segmentInfo, len(s.segments))
	copy(s.bySeq, s.segments)
	sort.SliceStable(s.bySeq, func(i, j int) bool {
		return s.bySeq[i].header.Seq > s.bySeq[j].header.Seq
	})

	log.Info().Int("segments", len(s.segments)).Uint64("records", s.Count()).Msg("store opened")
	return s, nil
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// body returns the decompressed body of a segment, loading it at most once
// concurrently.
func (s *Store) body(info *segmentInfo) (*segmentData, error) {
	if d, ok := s.files.Get(info.path); ok {
		return d, nil
	}
	v, err, _ := s.loads.Do(info.path, func() (any, error) {
		if d, ok := s.files.Get(info.path); ok {
			return d, nil
		}
		start := time.Now()
		d, err := loadSegment(info, s.decoder)
		if err != nil {
			return nil, err
		}
		elapsed := time.Since(start)
		atomic.AddUint64(&s.bodyLoads, 1)
		atomic.AddUint64(&s.loadMicros, uint64(elapsed.Microseconds()))
		s.files.Put(info.path, d)
		s.log.Debug().
			Str("segment", filepath.Base(info.path)).
			Uint32("records", info.header.RecordCount).
			Dur("took", elapsed).
			Msg("segment loaded")
		return d, nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("segment", info.path).Msg("segment load failed")
		return nil, err
	}
	return v.(*segmentData), nil
}

// Get returns the newest value stored under key, or kv.ErrNotFound.
func (s *Store) Get(key []byte) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	atomic.AddUint64(&s.reads, 1)

	if v, ok := s.values.Get(key); ok {
		if v == nil {
			return nil, kv.ErrNotFound
		}
		return v, nil
	}

	for _, info := range s.bySeq {
		if !info.contains(key) {
			continue
		}
		d, err := s.body(info)
		if err != nil {
			return nil, err
		}
		if v, ok := d.get(key); ok {
			s.values.Put(key, v)
			return v, nil
		}
	}
	s.values.Put(key, nil)
	return nil, kv.ErrNotFound
}

// NewIterator returns an unpositioned iterator merging every segment.
func (s *Store) NewIterator() kv.Iterator {
	return newMergeIterator(s)
}

// Segments reports the key bounds of every segment, sorted by smallest key.
func (s *Store) Segments() []kv.Segment {
	out := make([]kv.Segment, len(s.segments))
	for i, info := range s.segments {
		out[i] = kv.Segment{Smallest: info.minKey, Largest: info.maxKey}
	}
	return out
}

// Count sums the record counts of the segment headers. Keys shadowed by a
// newer segment are counted once per segment holding them.
func (s *Store) Count() uint64 {
	var total uint64
	for _, info := range s.segments {
		total += uint64(info.header.RecordCount)
	}
	return total
}

// lastKey is the largest key of any segment.
func (s *Store) lastKey() []byte {
	var last []byte
	for _, info := range s.segments {
		if last == nil || bytes.Compare(info.maxKey, last) > 0 {
			last = info.maxKey
		}
	}
	return last
}

// Stats is a snapshot of store counters.
type Stats struct {
	Dir              string  `json:"dir"`
	Segments         int     `json:"segments"`
	Records          uint64  `json:"records"`
	DiskBytes        int64   `json:"disk_bytes"`
	Reads            uint64  `json:"reads"`
	BodyLoads        uint64  `json:"body_loads"`
	AvgLoadMillis    float64 `json:"avg_load_ms"`
	FilesCached      int     `json:"files_cached"`
	ValueCacheHits   uint64  `json:"value_cache_hits"`
	ValueCacheMisses uint64  `json:"value_cache_misses"`
	ValueCacheItems  int     `json:"value_cache_items"`
}

// Stats returns current counters.
func (s *Store) Stats() Stats {
	st := Stats{
		Dir:         s.dir,
		Segments:    len(s.segments),
		Records:     s.Count(),
		Reads:       atomic.LoadUint64(&s.reads),
		BodyLoads:   atomic.LoadUint64(&s.bodyLoads),
		FilesCached: s.files.Size(),
	}
	for _, info := range s.segments {
		st.DiskBytes += info.size
	}
	if st.BodyLoads > 0 {
		st.AvgLoadMillis = float64(atomic.LoadUint64(&s.loadMicros)) / float64(st.BodyLoads) / 1000
	}
	st.ValueCacheHits, st.ValueCacheMisses, st.ValueCacheItems = s.values.Stats()
	return st
}

// Close releases the decoder and cached bodies. Iterators must not be used
// after Close.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.files.Clear()
	s.decoder.Close()
	s.log.Info().Msg("store closed")
	return nil
}
