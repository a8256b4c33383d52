package tracker

import (
	"github.com/faoswatch/faoswatch/listener/internal/config"
	"github.com/faoswatch/faoswatch/listener/internal/session"
)

// Decide reports whether the scored session s should fire its alert for a
// sample with ttg.
func Decide(s session.Session, ttg int, cfg config.TrackerConfig) bool {
	if !IsRealtimeTrusted(s, cfg) {
		return false
	}
	if ttg > cfg.AlertThresholdSeconds {
		return false
	}
	return !cfg.OncePerPass || !s.Alerted
}
