package segstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"

	"github.com/freeeve/cdbdirect/internal/kv"
)

const (
	Magic      = "CDBS"
	Version    = 1
	HeaderSize = 48
	Ext        = ".cdbs"
)

var (
	// ErrChecksum means a segment body does not match its header.
	ErrChecksum = errors.New("segment checksum mismatch")
	// ErrFormat means a file is not a readable segment.
	ErrFormat = errors.New("bad segment file")
)

// Header is the fixed-size segment file header.
type Header struct {
	Magic       [4]byte
	Version     uint16
	Flags       uint16
	RecordCount uint32
	Checksum    uint32 // CRC32 (IEEE) of the uncompressed body
	KeyBytes    uint64
	ValueBytes  uint64
	MinKeyLen   uint16
	MaxKeyLen   uint16
	Seq         uint64
	Reserved    uint32
}

func (h *Header) bodySize() uint64 {
	n := uint64(h.RecordCount)
	return n*2 + n*4 + h.KeyBytes + h.ValueBytes
}

func encodeHeader(h *Header) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	binary.LittleEndian.PutUint16(buf[6:8], h.Flags)
	binary.LittleEndian.PutUint32(buf[8:12], h.RecordCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.Checksum)
	binary.LittleEndian.PutUint64(buf[16:24], h.KeyBytes)
	binary.LittleEndian.PutUint64(buf[24:32], h.ValueBytes)
	binary.LittleEndian.PutUint16(buf[32:34], h.MinKeyLen)
	binary.LittleEndian.PutUint16(buf[34:36], h.MaxKeyLen)
	binary.LittleEndian.PutUint64(buf[36:44], h.Seq)
	binary.LittleEndian.PutUint32(buf[44:48], h.Reserved)
	return buf
}

func decodeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: header too short", ErrFormat)
	}
	h := &Header{}
	copy(h.Magic[:], buf[0:4])
	if string(h.Magic[:]) != Magic {
		return nil, fmt.Errorf("%w: invalid magic %q", ErrFormat, h.Magic)
	}
	h.Version = binary.LittleEndian.Uint16(buf[4:6])
	if h.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, h.Version)
	}
	h.Flags = binary.LittleEndian.Uint16(buf[6:8])
	h.RecordCount = binary.LittleEndian.Uint32(buf[8:12])
	h.Checksum = binary.LittleEndian.Uint32(buf[12:16])
	h.KeyBytes = binary.LittleEndian.Uint64(buf[16:24])
	h.ValueBytes = binary.LittleEndian.Uint64(buf[24:32])
	h.MinKeyLen = binary.LittleEndian.Uint16(buf[32:34])
	h.MaxKeyLen = binary.LittleEndian.Uint16(buf[34:36])
	h.Seq = binary.LittleEndian.Uint64(buf[36:44])
	h.Reserved = binary.LittleEndian.Uint32(buf[44:48])
	return h, nil
}

// SegmentName is the file name of the segment with sequence number seq.
func SegmentName(seq uint64) string {
	return fmt.Sprintf("%08d%s", seq, Ext)
}

// WriteSegment writes records to a new segment file. Records must be sorted
// by key without duplicates.
func WriteSegment(path string, records []kv.Record, seq uint64, encoder *zstd.Encoder) error {
	if len(records) == 0 {
		return errors.New("no records to write")
	}
	if uint64(len(records)) > math.MaxUint32 {
		return fmt.Errorf("too many records for one segment: %d", len(records))
	}

	var keyBytes, valueBytes uint64
	for i, r := range records {
		if i > 0 && bytes.Compare(records[i-1].Key, r.Key) >= 0 {
			return errors.New("records not sorted or contain duplicates")
		}
		if len(r.Key) == 0 || len(r.Key) > math.MaxUint16 {
			return fmt.Errorf("record %d: key length %d out of range", i, len(r.Key))
		}
		if uint64(len(r.Value)) > math.MaxUint32 {
			return fmt.Errorf("record %d: value too large", i)
		}
		keyBytes += uint64(len(r.Key))
		valueBytes += uint64(len(r.Value))
	}

	n := len(records)
	body := make([]byte, 0, uint64(n)*6+keyBytes+valueBytes)
	for _, r := range records {
		body = binary.LittleEndian.AppendUint16(body, uint16(len(r.Key)))
	}
	for _, r := range records {
		body = binary.LittleEndian.AppendUint32(body, uint32(len(r.Value)))
	}
	for _, r := range records {
		body = append(body, r.Key...)
	}
	for _, r := range records {
		body = append(body, r.Value...)
	}

	minKey, maxKey := records[0].Key, records[n-1].Key
	header := Header{
		Version:     Version,
		RecordCount: uint32(n),
		Checksum:    crc32.ChecksumIEEE(body),
		KeyBytes:    keyBytes,
		ValueBytes:  valueBytes,
		MinKeyLen:   uint16(len(minKey)),
		MaxKeyLen:   uint16(len(maxKey)),
		Seq:         seq,
	}
	copy(header.Magic[:], Magic)

	compressed := encoder.EncodeAll(body, nil)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	for _, chunk := range [][]byte{encodeHeader(&header), minKey, maxKey, compressed} {
		if _, err := f.Write(chunk); err != nil {
			f.Close()
			os.Remove(tmp)
			return err
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// segmentInfo is what Open keeps in memory for every segment: the header and
// key bounds, not the body.
type segmentInfo struct {
	path       string
	header     Header
	minKey     []byte
	maxKey     []byte
	bodyOffset int64
	size       int64
}

func (s *segmentInfo) contains(key []byte) bool {
	return bytes.Compare(key, s.minKey) >= 0 && bytes.Compare(key, s.maxKey) <= 0
}

// readSegmentInfo reads the header and key bounds of a segment file.
func readSegmentInfo(path string) (*segmentInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormat, path, err)
	}
	h, err := decodeHeader(buf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if h.RecordCount == 0 || h.MinKeyLen == 0 || h.MaxKeyLen == 0 {
		return nil, fmt.Errorf("%w: %s: empty segment", ErrFormat, path)
	}
	bounds := make([]byte, int(h.MinKeyLen)+int(h.MaxKeyLen))
	if _, err := io.ReadFull(f, bounds); err != nil {
		return nil, fmt.Errorf("%w: %s: key bounds: %v", ErrFormat, path, err)
	}
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}

	return &segmentInfo{
		path:       path,
		header:     *h,
		minKey:     bounds[:h.MinKeyLen],
		maxKey:     bounds[h.MinKeyLen:],
		bodyOffset: int64(HeaderSize + len(bounds)),
		size:       st.Size(),
	}, nil
}

// segmentData is a decompressed segment body.
type segmentData struct {
	keyOff []int // n+1 offsets into keys
	valOff []int // n+1 offsets into values
	keys   []byte
	values []byte
}

// loadSegment reads and verifies the body of a segment.
func loadSegment(info *segmentInfo, decoder *zstd.Decoder) (*segmentData, error) {
	data, err := os.ReadFile(info.path)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) < info.bodyOffset {
		return nil, fmt.Errorf("%w: %s: file too small", ErrFormat, info.path)
	}

	body, err := decoder.DecodeAll(data[info.bodyOffset:], nil)
	if err != nil {
		return nil, fmt.Errorf("%s: decompress: %w", info.path, err)
	}
	h := &info.header
	if crc32.ChecksumIEEE(body) != h.Checksum {
		return nil, fmt.Errorf("%w: %s", ErrChecksum, info.path)
	}
	if uint64(len(body)) != h.bodySize() {
		return nil, fmt.Errorf("%w: %s: body size %d, want %d", ErrFormat, info.path, len(body), h.bodySize())
	}

	n := int(h.RecordCount)
	keysStart := n * 6
	valuesStart := keysStart + int(h.KeyBytes)
	d := &segmentData{
		keyOff: make([]int, n+1),
		valOff: make([]int, n+1),
		keys:   body[keysStart:valuesStart],
		values: body[valuesStart:],
	}
	for i := 0; i < n; i++ {
		d.keyOff[i+1] = d.keyOff[i] + int(binary.LittleEndian.Uint16(body[i*2:]))
		d.valOff[i+1] = d.valOff[i] + int(binary.LittleEndian.Uint32(body[n*2+i*4:]))
	}
	if uint64(d.keyOff[n]) != h.KeyBytes || uint64(d.valOff[n]) != h.ValueBytes {
		return nil, fmt.Errorf("%w: %s: length columns disagree with header", ErrFormat, info.path)
	}
	return d, nil
}

func (d *segmentData) count() int { return len(d.keyOff) - 1 }

func (d *segmentData) key(i int) []byte {
	return d.keys[d.keyOff[i]:d.keyOff[i+1]:d.keyOff[i+1]]
}

func (d *segmentData) value(i int) []byte {
	return d.values[d.valOff[i]:d.valOff[i+1]:d.valOff[i+1]]
}

// search returns the index of the first key >= key.
func (d *segmentData) search(key []byte) int {
	return sort.Search(d.count(), func(i int) bool {
		return bytes.Compare(d.key(i), key) >= 0
	})
}

func (d *segmentData) get(key []byte) ([]byte, bool) {
	i := d.search(key)
	if i < d.count() && bytes.Equal(d.key(i), key) {
		return d.value(i), true
	}
	return nil, false
}

func (d *segmentData) sizeBytes() int {
	return len(d.keys) + len(d.values) + 16*len(d.keyOff)
}
