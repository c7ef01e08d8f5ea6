package scanstats

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
)

// MinPlyHistogram returns the min-ply bucket counts. Unknown plies fall in
// bucket zero.
func (c *Collector) MinPlyHistogram() []uint64 {
	return load(&c.minPly)
}

// ScoreHistogram returns the best-score bucket counts; bucket i holds score
// i-ScoreOffset.
func (c *Collector) ScoreHistogram() []uint64 {
	return load(&c.score)
}

func load(h *[Buckets]atomic.Uint64) []uint64 {
	out := make([]uint64, Buckets)
	for i := range h {
		out[i] = h[i].Load()
	}
	return out
}

// WriteHistogram writes one "<value> <count>" line per bucket, value being
// the bucket index plus offset.
func WriteHistogram(w io.Writer, counts []uint64, offset int) error {
	bw := bufio.NewWriter(w)
	for i, n := range counts {
		if _, err := fmt.Fprintf(bw, "%d %d\n", i+offset, n); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteHistograms writes min_ply_histogram.txt and score_histogram.txt into
// dir.
func (c *Collector) WriteHistograms(dir string) error {
	files := []struct {
		name   string
		counts []uint64
		offset int
	}{
		{"min_ply_histogram.txt", c.MinPlyHistogram(), 0},
		{"score_histogram.txt", c.ScoreHistogram(), -ScoreOffset},
	}
	for _, f := range files {
		if err := writeFile(dir, f.name, f.counts, f.offset); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(dir, name string, counts []uint64, offset int) error {
	out, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	if err := WriteHistogram(out, counts, offset); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return out.Close()
}
