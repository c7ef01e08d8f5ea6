package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/eco"
	"github.com/freeeve/cdbdirect/internal/epd"
	"github.com/freeeve/cdbdirect/internal/fen"
)

// PositionResponse is the JSON-friendly response for a position query.
type PositionResponse struct {
	FEN     string         `json:"fen"`
	Key     string         `json:"key"` // hex store key
	Natural bool           `json:"natural"`
	Found   bool           `json:"found"`
	Ply     int            `json:"ply"` // -1 unknown, -2 not in the database
	Moves   []MoveResponse `json:"moves"`
	Opening *eco.Opening   `json:"opening,omitempty"`
}

type MoveResponse struct {
	UCI   string `json:"uci"`
	Score int    `json:"score"`
	Eval  string `json:"eval"` // score with mates as M<n>
}

// LineResponse describes every position along a move line and the
// database coverage of the final position's children.
type LineResponse struct {
	Moves     []string           `json:"moves"`
	Positions []PositionResponse `json:"positions"`
	InCheck   bool               `json:"in_check"`
	Children  ChildrenResponse   `json:"children"`
}

type ChildrenResponse struct {
	Total int             `json:"total"`
	Known int             `json:"known"`
	Items []ChildResponse `json:"items"`
}

type ChildResponse struct {
	FEN   string        `json:"fen"`
	Found bool          `json:"found"`
	Ply   int           `json:"ply"`
	Best  *MoveResponse `json:"best,omitempty"`
}

func toMoveResponse(m cdb.ScoredMove) MoveResponse {
	return MoveResponse{UCI: m.Move, Score: m.Score, Eval: epd.FormatScore(m.Score)}
}

// ToPositionResponse converts a probe result to a JSON-friendly response.
func ToPositionResponse(r cdb.Result, ecoDB *eco.Database) PositionResponse {
	resp := PositionResponse{
		FEN:     r.Position.String(),
		Key:     fen.BinToHex(r.Key),
		Natural: r.Natural,
		Found:   r.Found(),
		Ply:     r.Ply(),
		Moves:   make([]MoveResponse, 0, len(r.Moves())),
	}
	for _, m := range r.Moves() {
		resp.Moves = append(resp.Moves, toMoveResponse(m))
	}
	if ecoDB != nil {
		if o, ok := ecoDB.Lookup(r.Position); ok {
			resp.Opening = &o
		}
	}
	return resp
}

func toChildResponse(r cdb.Result) ChildResponse {
	c := ChildResponse{FEN: r.Position.String(), Found: r.Found(), Ply: r.Ply()}
	if best, ok := r.Best(); ok {
		mr := toMoveResponse(best)
		c.Best = &mr
	}
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
	// Don't call http.Error after setting headers - it causes "superfluous WriteHeader"
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg, RequestID: GetRequestID(r.Context())})
}
