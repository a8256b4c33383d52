package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/faoswatch/faoswatch/listener/internal/alerts"
	"github.com/faoswatch/faoswatch/listener/internal/config"
	"github.com/faoswatch/faoswatch/listener/internal/session"
)

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	store   *session.Store
	history *alerts.History
	cfg     config.TrackerConfig
	mux     *http.ServeMux
	now     func() time.Time
}

// New creates a Handler reading sessions from st and alerts from hist.
func New(st *session.Store, hist *alerts.History, cfg config.TrackerConfig) *Handler {
	h := &Handler{store: st, history: hist, cfg: cfg, mux: http.NewServeMux(), now: time.Now}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/sessions", h.listSessions)
	h.mux.HandleFunc("/api/v1/sessions/", h.getSession) // subtree: extracts {name}
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Snapshot renders the current state, as served by /api/v1/snapshot.
func (h *Handler) Snapshot() SnapshotResponse {
	return BuildSnapshot(h.store, h.history, h.cfg, h.now())
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sessions := h.store.List()
	resp := HealthResponse{SessionCount: len(sessions), AlertCount: h.history.Len()}
	for _, s := range sessions {
		switch s.State(h.cfg.RequiredConsistentSamples) {
		case session.StateFresh:
			resp.FreshCount++
		case session.StateTracking:
			resp.TrackingCount++
		case session.StateSynced:
			resp.SyncedCount++
		case session.StateAlerted:
			resp.AlertedCount++
		}
	}

	switch {
	case resp.SessionCount == 0:
		resp.State = "idle"
	case resp.SyncedCount+resp.AlertedCount > 0:
		resp.State = "synced"
	default:
		resp.State = "tracking"
	}
	jsonResp(w, http.StatusOK, resp)
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, toSessionResponses(h.store.List(), h.cfg, h.now()))
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/")
	if name == "" {
		h.listSessions(w, r)
		return
	}

	s, ok := h.store.Get(name)
	if !ok {
		jsonErr(w, http.StatusNotFound, "session not found")
		return
	}
	jsonResp(w, http.StatusOK, toSessionResponse(s, h.cfg, h.now()))
}

func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.history.Recent())
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.Snapshot())
}

// BuildSnapshot renders every session and the alert history as of now.
func BuildSnapshot(st *session.Store, hist *alerts.History, cfg config.TrackerConfig, now time.Time) SnapshotResponse {
	return SnapshotResponse{
		Sessions:    toSessionResponses(st.List(), cfg, now),
		Alerts:      hist.Recent(),
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

func toSessionResponses(sessions []session.Session, cfg config.TrackerConfig, now time.Time) []SessionResponse {
	out := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionResponse(s, cfg, now))
	}
	return out
}

func toSessionResponse(s session.Session, cfg config.TrackerConfig, now time.Time) SessionResponse {
	resp := SessionResponse{
		Name:        s.Name,
		State:       string(s.State(cfg.RequiredConsistentSamples)),
		Status:      string(s.Status(cfg.RequiredConsistentSamples)),
		Azimuth:     s.Azimuth,
		Confidence:  s.Confidence,
		Required:    cfg.RequiredConsistentSamples,
		Verdict:     string(s.Verdict),
		Samples:     s.Samples,
		Alerted:     s.Alerted,
		Diagnostics: computeDiagnostics(s, cfg, now),
	}
	if s.HasTTG {
		ttg := s.LastTTG
		resp.TTG = &ttg
		resp.TTGDisplay = alerts.FormatMMSS(ttg)
	}
	if !s.AlertedAt.IsZero() {
		resp.AlertedAt = s.AlertedAt.UTC().Format(time.RFC3339)
	}
	if !s.LastSeen.IsZero() {
		resp.LastSeen = s.LastSeen.UTC().Format(time.RFC3339)
	}
	return resp
}
