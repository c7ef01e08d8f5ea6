package httpapi

import (
	"net/http"
	"net/http/pprof"

	"github.com/rs/zerolog"

	"github.com/freeeve/cdbdirect/internal/cdb"
	"github.com/freeeve/cdbdirect/internal/eco"
	"github.com/freeeve/cdbdirect/internal/fen"
	"github.com/freeeve/cdbdirect/internal/segstore"
)

// maxLinePlies bounds /v1/line requests.
const maxLinePlies = 400

// StatsSource reports store statistics.
type StatsSource interface {
	Stats() segstore.Stats
}

// Handler serves position lookups from the database.
type Handler struct {
	client *cdb.Client
	stats  StatsSource
	ecoDB  *eco.Database
	log    zerolog.Logger
}

// NewRouter creates the HTTP router. stats and ecoDB are optional; without
// ecoDB responses carry no opening names.
func NewRouter(log zerolog.Logger, client *cdb.Client, stats StatsSource, ecoDB *eco.Database) http.Handler {
	h := &Handler{
		client: client,
		stats:  stats,
		ecoDB:  ecoDB,
		log:    log,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /readyz", h.ready)
	mux.HandleFunc("GET /v1/position", h.position)
	mux.HandleFunc("GET /v1/line", h.line)
	mux.HandleFunc("GET /v1/stats", h.statsHandler)

	// pprof endpoints
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	return CORS(RequestID(AccessLog(log, mux)))
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ready probes the start position so a broken store fails the check.
func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if _, err := h.client.Probe(r.Context(), fen.StartPosition); err != nil {
		h.log.Warn().Err(err).Msg("readiness probe failed")
		writeError(w, r, http.StatusServiceUnavailable, "store not ready")
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) statsHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{}
	if h.stats != nil {
		resp["store"] = h.stats.Stats()
	}
	if h.ecoDB != nil {
		resp["openings"] = h.ecoDB.Count()
	}
	writeJSON(w, resp)
}

// position answers GET /v1/position?fen=<fen or epd>. Uncapturable
// en-passant squares are cleared before the lookup.
func (h *Handler) position(w http.ResponseWriter, r *http.Request) {
	s := r.URL.Query().Get("fen")
	if s == "" {
		writeError(w, r, http.StatusBadRequest, "missing fen parameter")
		return
	}
	p, err := fen.ParsePosition(s)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.client.Probe(r.Context(), fen.NormalizeEnPassant(p))
	if err != nil {
		h.log.Error().Err(err).Str("fen", s).Msg("probe failed")
		writeError(w, r, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, ToPositionResponse(res, h.ecoDB))
}

// line answers GET /v1/line?moves=1. e4 e5 2. Nf3 with every position along
// the line and the children of the last one.
func (h *Handler) line(w http.ResponseWriter, r *http.Request) {
	l, err := eco.ReplayN(r.URL.Query().Get("moves"), maxLinePlies)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	resp := LineResponse{
		Moves:     l.SAN,
		Positions: make([]PositionResponse, 0, len(l.Positions)),
		InCheck:   l.InCheck(),
	}
	for _, p := range l.Positions {
		res, err := h.client.Probe(ctx, p)
		if err != nil {
			h.log.Error().Err(err).Str("fen", p.String()).Msg("probe failed")
			writeError(w, r, http.StatusInternalServerError, "lookup failed")
			return
		}
		resp.Positions = append(resp.Positions, ToPositionResponse(res, h.ecoDB))
	}

	children, err := l.Children()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	resp.Children.Total = len(children)
	resp.Children.Items = make([]ChildResponse, 0, len(children))
	for _, c := range children {
		res, err := h.client.Probe(ctx, c)
		if err != nil {
			h.log.Error().Err(err).Str("fen", c.String()).Msg("probe failed")
			writeError(w, r, http.StatusInternalServerError, "lookup failed")
			return
		}
		if res.Found() {
			resp.Children.Known++
		}
		resp.Children.Items = append(resp.Children.Items, toChildResponse(res))
	}
	writeJSON(w, resp)
}
