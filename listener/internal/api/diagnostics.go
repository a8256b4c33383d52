package api

import (
	"fmt"
	"sort"
	"time"

	"github.com/faoswatch/faoswatch/listener/internal/config"
	"github.com/faoswatch/faoswatch/listener/internal/session"
	"github.com/faoswatch/faoswatch/listener/internal/tracker"
)

// DiagnosticHint is one human-readable note about a source's tracking state.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning".
	Level string `json:"level"`
	// Title is the short chip label; Detail the full explanation.
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

var levelRank = map[string]int{"warning": 0, "info": 1, "ok": 2}

// computeDiagnostics derives hints from a session as of now, warnings first.
func computeDiagnostics(s session.Session, cfg config.TrackerConfig, now time.Time) []DiagnosticHint {
	hints := []DiagnosticHint{}
	if !s.HasTTG {
		return hints
	}
	req := cfg.RequiredConsistentSamples

	if idle := now.Sub(s.LastSeen); idle >= time.Duration(cfg.GapResyncSeconds)*time.Second {
		hints = append(hints, DiagnosticHint{
			Key:   "stale",
			Level: "warning",
			Title: "No recent samples",
			Detail: fmt.Sprintf(
				"Nothing has arrived from this source for %s. The next sample will start "+
					"synchronisation over instead of being compared with the old countdown.",
				idle.Truncate(time.Second)),
		})
	}

	switch s.Verdict {
	case session.VerdictFirst:
		hints = append(hints, DiagnosticHint{
			Key:   "warming_up",
			Level: "info",
			Title: "Warming up",
			Detail: fmt.Sprintf(
				"Only the first sample of this pass has been seen. The countdown is trusted "+
					"after %d samples whose decrease matches the wall clock.", req),
		})
	case session.VerdictInconsistent:
		hints = append(hints, DiagnosticHint{
			Key:   "burst_rejected",
			Level: "warning",
			Title: "Countdown out of step",
			Detail: fmt.Sprintf(
				"The last countdown change did not match the time elapsed since the previous "+
					"sample by more than %ds. This usually means buffered or replayed samples "+
					"arrived in a burst; confidence was reset.", cfg.ToleranceSeconds),
		})
	case session.VerdictGapResync:
		hints = append(hints, DiagnosticHint{
			Key:   "gap_resync",
			Level: "info",
			Title: "Resynchronising",
			Detail: fmt.Sprintf(
				"The source went quiet for at least %ds, so the countdown is being "+
					"re-established from scratch.", cfg.GapResyncSeconds),
		})
	case session.VerdictConsistent:
		if s.Confidence < req {
			hints = append(hints, DiagnosticHint{
				Key:    "syncing",
				Level:  "info",
				Title:  fmt.Sprintf("Syncing %d/%d", s.Confidence, req),
				Detail: "Samples agree with the wall clock so far; a few more are needed.",
			})
		}
	}

	if tracker.IsRealtimeTrusted(s, cfg) {
		if s.Alerted {
			hints = append(hints, DiagnosticHint{
				Key:    "alerted",
				Level:  "ok",
				Title:  "Alert sent",
				Detail: fmt.Sprintf("The rise alert for this pass fired at %s.", s.AlertedAt.UTC().Format(time.RFC3339)),
			})
		} else {
			hints = append(hints, DiagnosticHint{
				Key:   "synced",
				Level: "ok",
				Title: "Realtime",
				Detail: fmt.Sprintf("The countdown is trusted. An alert fires once it reaches %ds.",
					cfg.AlertThresholdSeconds),
			})
		}
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return levelRank[hints[i].Level] < levelRank[hints[j].Level]
	})
	return hints
}
