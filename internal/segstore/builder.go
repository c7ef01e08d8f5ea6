package segstore

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"

	"github.com/freeeve/cdbdirect/internal/kv"
)

// DefaultTargetSegmentBytes is the uncompressed body size at which Builder
// starts a new segment.
const DefaultTargetSegmentBytes = 64 << 20

// Builder writes an ascending stream of records into a directory of
// segments, cutting a new segment whenever the target size is reached.
type Builder struct {
	dir     string
	target  int
	seq     uint64
	encoder *zstd.Encoder
	log     zerolog.Logger

	pending      []kv.Record
	pendingBytes int
	last         []byte
	written      int
	segments     int
}

// NewBuilder creates a builder writing into dir, numbering segments from
// firstSeq. A non-positive target uses DefaultTargetSegmentBytes.
func NewBuilder(dir string, target int, firstSeq uint64, log zerolog.Logger) (*Builder, error) {
	if target <= 0 {
		target = DefaultTargetSegmentBytes
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return nil, err
	}
	return &Builder{
		dir:     dir,
		target:  target,
		seq:     firstSeq,
		encoder: encoder,
		log:     log.With().Str("component", "segstore.builder").Logger(),
	}, nil
}

// Add appends a record. Keys must be strictly ascending across calls.
func (b *Builder) Add(key, value []byte) error {
	if b.last != nil && bytes.Compare(b.last, key) >= 0 {
		return fmt.Errorf("key %x not after %x", key, b.last)
	}
	k := bytes.Clone(key)
	b.pending = append(b.pending, kv.Record{Key: k, Value: bytes.Clone(value)})
	b.pendingBytes += 6 + len(key) + len(value)
	b.last = k
	if b.pendingBytes >= b.target {
		return b.flush()
	}
	return nil
}

func (b *Builder) flush() error {
	if len(b.pending) == 0 {
		return nil
	}
	path := filepath.Join(b.dir, SegmentName(b.seq))
	if err := WriteSegment(path, b.pending, b.seq, b.encoder); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	b.log.Info().
		Str("segment", filepath.Base(path)).
		Int("records", len(b.pending)).
		Int("bytes", b.pendingBytes).
		Msg("segment written")
	b.written += len(b.pending)
	b.segments++
	b.seq++
	b.pending = b.pending[:0]
	b.pendingBytes = 0
	return nil
}

// Close writes the last partial segment.
func (b *Builder) Close() error {
	err := b.flush()
	if cerr := b.encoder.Close(); err == nil {
		err = cerr
	}
	return err
}

// Written returns the number of records and segments written so far.
func (b *Builder) Written() (records, segments int) {
	return b.written, b.segments
}
