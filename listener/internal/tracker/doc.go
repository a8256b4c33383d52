// Package tracker decides, per source, whether a FAOS countdown is live and
// when to fire the single alert for the current pass.
//
// lifecycle.go detects the end of a pass: an upward TTG jump larger than
// NewPassJumpSeconds resets the session before the sample is scored.
//
// score.go is the consistency scorer. Each sample's claimed TTG decrement is
// compared with the measured wall-clock time since the previous sample; a
// disagreement within ToleranceSeconds raises confidence by one (capped at
// RequiredConsistentSamples), anything else drops it back to one. After a
// silence of GapResyncSeconds the next sample restarts trust at one. A burst
// of queued packets arrives with near-zero elapsed time and a wide TTG
// spread, so it never accumulates confidence.
//
// gate.go fires when the session is realtime-trusted, TTG is at or below
// AlertThresholdSeconds and, with OncePerPass, no alert has fired yet.
//
// engine.go runs the three in that order against the session store.
// Engine.Process takes the receive time explicitly so tests control the clock.
package tracker
