package epd

import (
	"strconv"

	"github.com/freeeve/cdbdirect/internal/cdb"
)

// Scores beyond mateThreshold encode a mate in mateBase-|score| plies.
const (
	mateThreshold = 25000
	mateBase      = 30000
)

// FormatScore renders a score, mates as "M<n>" or "-M<n>".
func FormatScore(score int) string {
	abs := score
	if abs < 0 {
		abs = -abs
	}
	if abs <= mateThreshold {
		return strconv.Itoa(score)
	}
	if score < 0 {
		return "-M" + strconv.Itoa(mateBase-abs)
	}
	return "M" + strconv.Itoa(mateBase-abs)
}

// FormatEval renders the "cdb eval" operation. A negative ply is omitted.
func FormatEval(score, ply int) string {
	s := "; cdb eval: " + FormatScore(score)
	if ply >= 0 {
		s += ", ply: " + strconv.Itoa(ply)
	}
	return s + ";"
}

// Annotate appends the evaluation to an EPD line.
func Annotate(line string, score, ply int) string {
	return line + " " + FormatEval(score, ply)
}

// AnnotateResult appends the best move score of r to line. Lines whose
// position is unknown or has no scored move are returned unchanged.
func AnnotateResult(line string, r cdb.Result) string {
	best, ok := r.Best()
	if !r.Found() || !ok {
		return line
	}
	return Annotate(line, best.Score, r.Ply())
}

// AnnotateEngine appends an engine evaluation for a position the database
// does not know.
func AnnotateEngine(line string, score int) string {
	return line + " ; engine eval: " + FormatScore(score) + ";"
}
