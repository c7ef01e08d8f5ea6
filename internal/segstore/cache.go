package segstore

import (
	"sync"
	"sync/atomic"
)

// ValueCache is a sharded FIFO cache of point lookup results, keyed by the
// full store key. Shards are picked by hash because every position key
// starts with the same tag byte.
type ValueCache struct {
	shards      [256]*valueCacheShard
	maxPerShard int
	hits        uint64
	misses      uint64
}

type valueCacheShard struct {
	mu    sync.RWMutex
	cache map[string][]byte
	order []string // FIFO order for eviction
}

// NewValueCache creates a cache holding roughly maxBytes of entries. A
// non-positive size returns nil, which disables caching.
func NewValueCache(maxBytes int64) *ValueCache {
	if maxBytes <= 0 {
		return nil
	}
	// key ~25 bytes + value ~40 bytes + map and slice overhead
	const bytesPerEntry = 128
	maxPerShard := int(maxBytes / bytesPerEntry / 256)
	if maxPerShard < 16 {
		maxPerShard = 16
	}

	vc := &ValueCache{maxPerShard: maxPerShard}
	for i := range vc.shards {
		vc.shards[i] = &valueCacheShard{
			cache: make(map[string][]byte),
			order: make([]string, 0, maxPerShard),
		}
	}
	return vc
}

func (vc *ValueCache) shard(key []byte) *valueCacheShard {
	return vc.shards[fnvHash(key, 0)&0xff]
}

// Get returns the cached value for key. A nil cache always misses.
func (vc *ValueCache) Get(key []byte) ([]byte, bool) {
	if vc == nil {
		return nil, false
	}
	shard := vc.shard(key)

	shard.mu.RLock()
	v, ok := shard.cache[string(key)]
	shard.mu.RUnlock()

	if ok {
		atomic.AddUint64(&vc.hits, 1)
		return v, true
	}
	atomic.AddUint64(&vc.misses, 1)
	return nil, false
}

// Put caches value under key, evicting the oldest entries of the shard when
// it is full.
func (vc *ValueCache) Put(key, value []byte) {
	if vc == nil {
		return
	}
	shard := vc.shard(key)
	k := string(key)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	if _, exists := shard.cache[k]; exists {
		shard.cache[k] = value
		return
	}
	for len(shard.cache) >= vc.maxPerShard && len(shard.order) > 0 {
		oldest := shard.order[0]
		shard.order = shard.order[1:]
		delete(shard.cache, oldest)
	}
	shard.cache[k] = value
	shard.order = append(shard.order, k)
}

// Stats returns hit and miss counts and the number of cached entries.
func (vc *ValueCache) Stats() (hits, misses uint64, size int) {
	if vc == nil {
		return 0, 0, 0
	}
	hits = atomic.LoadUint64(&vc.hits)
	misses = atomic.LoadUint64(&vc.misses)
	for _, shard := range vc.shards {
		shard.mu.RLock()
		size += len(shard.cache)
		shard.mu.RUnlock()
	}
	return
}

// FileCache keeps a bounded number of decompressed segment bodies.
type FileCache struct {
	mu       sync.RWMutex
	cache    map[string]*segmentData
	order    []string
	maxFiles int
}

// NewFileCache creates a file cache. With maxFiles 0 nothing is kept.
func NewFileCache(maxFiles int) *FileCache {
	return &FileCache{
		cache:    make(map[string]*segmentData),
		order:    make([]string, 0, maxFiles),
		maxFiles: maxFiles,
	}
}

// Get returns the cached body of the segment at path.
func (fc *FileCache) Get(path string) (*segmentData, bool) {
	fc.mu.RLock()
	d, ok := fc.cache[path]
	fc.mu.RUnlock()
	return d, ok
}

// Put adds a body, evicting the oldest if the cache is full.
func (fc *FileCache) Put(path string, d *segmentData) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if _, exists := fc.cache[path]; exists {
		fc.cache[path] = d
		return
	}
	if fc.maxFiles == 0 {
		return
	}
	for len(fc.cache) >= fc.maxFiles && len(fc.order) > 0 {
		oldest := fc.order[0]
		fc.order = fc.order[1:]
		delete(fc.cache, oldest)
	}
	fc.cache[path] = d
	fc.order = append(fc.order, path)
}

// Clear drops every cached body.
func (fc *FileCache) Clear() {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.cache = make(map[string]*segmentData)
	fc.order = fc.order[:0]
}

// Size returns the number of cached bodies.
func (fc *FileCache) Size() int {
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return len(fc.cache)
}

// fnvHash computes FNV-1a hash with a seed
func fnvHash(data []byte, seed uint64) uint64 {
	const prime = 1099511628211
	h := uint64(14695981039346656037) ^ seed
	for _, b := range data {
		h ^= uint64(b)
		h *= prime
	}
	return h
}
