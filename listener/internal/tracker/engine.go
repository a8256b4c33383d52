package tracker

import (
	"time"

	"github.com/google/uuid"

	"github.com/faoswatch/faoswatch/listener/internal/config"
	"github.com/faoswatch/faoswatch/listener/internal/session"
	"github.com/faoswatch/faoswatch/pkg/faos"
)

// AlertEvent is emitted once per fired alert.
type AlertEvent struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	TTG     int       `json:"ttg"`
	Azimuth float64   `json:"azimuth"`
	FiredAt time.Time `json:"fired_at"`
}

// Result is the outcome of processing one sample.
type Result struct {
	ShouldAlert bool
	Status      session.State // fresh | tracking | synced
	Session     session.Session
	NewPass     bool
	Event       *AlertEvent // non-nil iff ShouldAlert
}

// Engine applies the pass lifecycle, consistency scorer and alert gate to
// samples, keeping per-source state in a session store.
//
// Process is safe for concurrent use; each call is applied atomically to its
// session.
type Engine struct {
	cfg   config.TrackerConfig
	store *session.Store
	newID func() string
}

// New creates an Engine backed by st.
func New(cfg config.TrackerConfig, st *session.Store) *Engine {
	return &Engine{cfg: cfg, store: st, newID: uuid.NewString}
}

// Config returns the tracker parameters the engine runs with.
func (e *Engine) Config() config.TrackerConfig {
	return e.cfg
}

// Process runs sample s, received at now, through the pipeline and returns
// the decision together with a snapshot of the updated session.
//
// Order matters: a pass reset is applied before scoring so the new pass is
// never measured against the previous pass's baseline, and the baseline is
// only overwritten after scoring.
func (e *Engine) Process(s faos.Sample, now time.Time) Result {
	var res Result

	sess := e.store.Update(s.Name, func(sess *session.Session) {
		if IsNewPass(*sess, s.TTG, e.cfg) {
			*sess = startPass(*sess)
			res.NewPass = true
		}

		sess.Confidence, sess.Verdict = Score(*sess, s.TTG, now, e.cfg)
		sess.LastTTG = s.TTG
		sess.HasTTG = true
		sess.LastSeen = now
		sess.Azimuth = s.Azimuth
		sess.Samples++

		if Decide(*sess, s.TTG, e.cfg) {
			sess.Alerted = true
			sess.AlertedAt = now
			res.ShouldAlert = true
		}
	})

	res.Session = sess
	res.Status = sess.Status(e.cfg.RequiredConsistentSamples)
	if res.ShouldAlert {
		res.Event = &AlertEvent{
			ID:      e.newID(),
			Name:    sess.Name,
			TTG:     s.TTG,
			Azimuth: s.Azimuth,
			FiredAt: now,
		}
	}
	return res
}
