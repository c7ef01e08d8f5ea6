// Package segstore is a read-only ordered key-value store over a directory of
// immutable, sorted segment files.
//
// Segment format (.cdbs):
//   - Header (48 bytes) followed by the smallest and largest key
//   - zstd-compressed body: all key lengths (u16), all value lengths (u32),
//     keys concatenated, values concatenated
//
// Segment key ranges may overlap. When more than one segment holds a key, the
// segment with the highest sequence number wins, both for point lookups and
// for iteration.
//
// Bodies are decompressed on first use and kept in a bounded file cache;
// point lookups are fronted by a sharded value cache.
package segstore
