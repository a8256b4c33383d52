package tracker

import (
	"math"
	"time"

	"github.com/faoswatch/faoswatch/listener/internal/config"
	"github.com/faoswatch/faoswatch/listener/internal/session"
)

// Score returns the confidence and verdict for a sample with ttg received at
// now, measured against the baseline in prev (its LastTTG and LastSeen).
// prev is not modified; the caller updates the baseline afterwards.
func Score(prev session.Session, ttg int, now time.Time, cfg config.TrackerConfig) (int, session.Verdict) {
	if !prev.HasTTG {
		return 1, session.VerdictFirst
	}

	elapsed := now.Sub(prev.LastSeen).Seconds()
	if elapsed >= float64(cfg.GapResyncSeconds) {
		return 1, session.VerdictGapResync
	}

	deltaTTG := float64(prev.LastTTG - ttg)
	offBy := math.Abs(deltaTTG - elapsed)
	if offBy <= float64(cfg.ToleranceSeconds) {
		return min(cfg.RequiredConsistentSamples, prev.Confidence+1), session.VerdictConsistent
	}
	return 1, session.VerdictInconsistent
}

// IsRealtimeTrusted reports whether s has enough consecutive consistent
// samples to be treated as a live feed.
func IsRealtimeTrusted(s session.Session, cfg config.TrackerConfig) bool {
	return s.Confidence >= cfg.RequiredConsistentSamples
}
