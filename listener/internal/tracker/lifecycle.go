package tracker

import (
	"github.com/faoswatch/faoswatch/listener/internal/config"
	"github.com/faoswatch/faoswatch/listener/internal/session"
)

// IsNewPass reports whether a sample with ttg belongs to a new pass of prev's
// source. TTG counts down within a pass, so a jump upward by more than the
// configured threshold means the previous countdown finished.
func IsNewPass(prev session.Session, ttg int, cfg config.TrackerConfig) bool {
	return prev.HasTTG && ttg > prev.LastTTG+cfg.NewPassJumpSeconds
}

// startPass returns the fresh session that replaces prev at a pass boundary.
func startPass(prev session.Session) session.Session {
	return session.New(prev.Name)
}
