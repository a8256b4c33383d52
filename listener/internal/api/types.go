package api

import "github.com/faoswatch/faoswatch/listener/internal/tracker"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	// State is "idle" with no sessions, "synced" when any source is
	// realtime-trusted, otherwise "tracking".
	State         string `json:"state"`
	SessionCount  int    `json:"session_count"`
	FreshCount    int    `json:"fresh_count"`
	TrackingCount int    `json:"tracking_count"`
	SyncedCount   int    `json:"synced_count"`
	AlertedCount  int    `json:"alerted_count"`
	AlertCount    int    `json:"alert_count"`
}

// SessionResponse is one source in GET /api/v1/sessions.
type SessionResponse struct {
	Name string `json:"name"`
	// State is fresh | tracking | synced | alerted; Status omits alerted.
	State  string `json:"state"`
	Status string `json:"status"`
	// TTG is null until the first sample.
	TTG         *int             `json:"ttg"`
	TTGDisplay  string           `json:"ttg_display,omitempty"`
	Azimuth     float64          `json:"azimuth"`
	Confidence  int              `json:"confidence"`
	Required    int              `json:"required"`
	Verdict     string           `json:"verdict,omitempty"`
	Samples     int              `json:"samples"`
	Alerted     bool             `json:"alerted"`
	AlertedAt   string           `json:"alerted_at,omitempty"`
	LastSeen    string           `json:"last_seen,omitempty"`
	Diagnostics []DiagnosticHint `json:"diagnostics"`
}

// SnapshotResponse is the payload for GET /api/v1/snapshot.
type SnapshotResponse struct {
	Sessions    []SessionResponse    `json:"sessions"`
	Alerts      []tracker.AlertEvent `json:"alerts"`
	GeneratedAt string               `json:"generated_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
