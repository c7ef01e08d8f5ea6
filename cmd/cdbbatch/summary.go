package main

import (
	"fmt"
	"io"
	"time"
)

func printSummary(w io.Writer, b *batch, total int, elapsed time.Duration) {
	n := float64(max(total, 1))
	known, unknown, scored := b.known.Load(), b.unknown.Load(), b.scored.Load()
	fmt.Fprintf(w, "known fens:   %12d  ( %5.2f%% )\n", known, float64(known)*100/n)
	fmt.Fprintf(w, "unknown fens: %12d  ( %5.2f%% )\n", unknown, float64(unknown)*100/n)
	fmt.Fprintf(w, "scored moves: %12d  ( %5.2f per known fen )\n", scored, float64(scored)/float64(max(known, 1)))
	if b.eval != nil {
		fmt.Fprintf(w, "engine evals: %12d\n", b.engineOK.Load())
	}
	fmt.Fprintf(w, "time:         %12.2f s\n", elapsed.Seconds())
	if s := elapsed.Seconds(); s > 0 {
		fmt.Fprintf(w, "fens/s:       %12.0f\n", float64(total)/s)
	}
}
