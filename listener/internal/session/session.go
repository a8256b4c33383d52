package session

import "time"

// State is the position of a session in the pass state machine.
type State string

// States of the per-source pass state machine.
const (
	StateFresh    State = "fresh"    // no accepted sample yet
	StateTracking State = "tracking" // confidence below the required count
	StateSynced   State = "synced"   // realtime-trusted
	StateAlerted  State = "alerted"  // synced and already alerted this pass
)

// Verdict records how the most recent sample was scored.
type Verdict string

// Scoring verdicts.
const (
	VerdictNone         Verdict = ""
	VerdictFirst        Verdict = "first"
	VerdictConsistent   Verdict = "consistent"
	VerdictInconsistent Verdict = "inconsistent"
	VerdictGapResync    Verdict = "gap_resync"
)

// Session is the tracking state of one named source for its current pass.
type Session struct {
	Name string

	// LastTTG is the TTG of the most recently accepted sample; valid only
	// when HasTTG is true.
	LastTTG int
	HasTTG  bool

	// LastSeen is the wall-clock time of the most recently accepted sample.
	LastSeen time.Time

	// Confidence counts consecutive time-consistent samples, capped at the
	// tracker's required count.
	Confidence int

	// Alerted is set once an alert fired for the current pass.
	Alerted   bool
	AlertedAt time.Time

	Azimuth float64
	Verdict Verdict

	// Samples counts accepted samples in the current pass.
	Samples int
}

// New returns the default session for name.
func New(name string) Session {
	return Session{Name: name}
}

// State derives the state machine position given the required confidence.
func (s Session) State(required int) State {
	switch {
	case !s.HasTTG:
		return StateFresh
	case s.Confidence < required:
		return StateTracking
	case s.Alerted:
		return StateAlerted
	default:
		return StateSynced
	}
}

// Status is State without the alerted refinement: fresh, tracking or synced.
func (s Session) Status(required int) State {
	if st := s.State(required); st != StateAlerted {
		return st
	}
	return StateSynced
}
