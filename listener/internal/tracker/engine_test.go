package tracker

import (
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/faoswatch/faoswatch/listener/internal/config"
	"github.com/faoswatch/faoswatch/listener/internal/session"
	"github.com/faoswatch/faoswatch/pkg/faos"
)

func newEngine(cfg config.TrackerConfig) (*Engine, *session.Store) {
	st := session.NewStore(0)
	e := New(cfg, st)
	n := 0
	e.newID = func() string {
		n++
		return "alert-" + strconv.Itoa(n)
	}
	return e, st
}

func sample(name string, ttg int) faos.Sample {
	return faos.Sample{Name: name, Azimuth: 151.1, TTG: ttg}
}

// --- First sample ---

func TestEngine_FirstSample(t *testing.T) {
	e, _ := newEngine(defaults())

	for _, ttg := range []int{500, 30} {
		name := "SAT-" + strconv.Itoa(ttg)
		res := e.Process(sample(name, ttg), at(0))
		if res.Session.Confidence != 1 {
			t.Errorf("%s: confidence got %d, want 1", name, res.Session.Confidence)
		}
		if res.Status != session.StateTracking {
			t.Errorf("%s: status got %q, want tracking", name, res.Status)
		}
		if res.ShouldAlert || res.Event != nil {
			t.Errorf("%s: first sample must never alert", name)
		}
		if res.Session.Verdict != session.VerdictFirst {
			t.Errorf("%s: verdict got %q", name, res.Session.Verdict)
		}
	}
}

// --- Consistency acceptance ---

func TestEngine_ConsistentSampleSyncs(t *testing.T) {
	e, st := newEngine(defaults())
	e.Process(sample("RS-44", 50), at(0))

	res := e.Process(sample("RS-44", 48), at(2))
	if res.Session.Confidence != 2 || res.Status != session.StateSynced {
		t.Errorf("got confidence %d status %q, want 2 synced", res.Session.Confidence, res.Status)
	}

	stored, _ := st.Get("RS-44")
	want := session.Session{
		Name:     "RS-44",
		LastTTG:  48,
		HasTTG:   true,
		LastSeen: at(2),
		// Trusted and below threshold: the alert fires on this sample.
		Confidence: 2,
		Alerted:    true,
		AlertedAt:  at(2),
		Azimuth:    151.1,
		Verdict:    session.VerdictConsistent,
		Samples:    2,
	}
	if diff := cmp.Diff(want, stored); diff != "" {
		t.Errorf("stored session mismatch (-want +got):\n%s", diff)
	}
}

// --- Burst rejection ---

func TestEngine_BurstNeverTrusted(t *testing.T) {
	e, _ := newEngine(defaults())

	for i, ttg := range []int{50, 10, 90, 5, 70} {
		now := baseTime.Add(time.Duration(i) * 100 * time.Millisecond)
		res := e.Process(sample("ISS", ttg), now)
		if res.Session.Confidence != 1 {
			t.Errorf("step %d (ttg=%d): confidence got %d, want 1", i, ttg, res.Session.Confidence)
		}
		if res.ShouldAlert {
			t.Errorf("step %d (ttg=%d): burst sample must not alert", i, ttg)
		}
		if i > 0 && res.Session.Verdict != session.VerdictInconsistent {
			t.Errorf("step %d: verdict got %q, want inconsistent", i, res.Session.Verdict)
		}
	}
}

// --- New pass ---

func TestEngine_NewPassResets(t *testing.T) {
	e, _ := newEngine(defaults())

	e.Process(sample("SO-50", 50), at(0))
	res := e.Process(sample("SO-50", 45), at(5))
	if !res.ShouldAlert {
		t.Fatal("second consistent sample under threshold should alert")
	}

	res = e.Process(sample("SO-50", 200), at(10))
	if !res.NewPass {
		t.Error("200 > 45+120: expected a new pass")
	}
	if res.Session.Alerted {
		t.Error("alerted must be cleared by the new pass")
	}
	if res.Session.Confidence != 1 || res.Session.Verdict != session.VerdictFirst {
		t.Errorf("new pass should score as first sample, got confidence %d verdict %q",
			res.Session.Confidence, res.Session.Verdict)
	}
	if res.Session.Samples != 1 {
		t.Errorf("Samples in new pass: got %d, want 1", res.Session.Samples)
	}
}

func TestEngine_NewPassRearmsAlert(t *testing.T) {
	e, _ := newEngine(defaults())

	e.Process(sample("SO-50", 50), at(0))
	if res := e.Process(sample("SO-50", 40), at(10)); !res.ShouldAlert {
		t.Fatal("first pass should alert")
	}

	// Next pass starts 90 minutes later at ttg=2000 and counts down.
	start := 5400.0
	e.Process(sample("SO-50", 2000), at(start))
	e.Process(sample("SO-50", 1000), at(start+1000))
	res := e.Process(sample("SO-50", 55), at(start+1945))
	if res.ShouldAlert {
		t.Fatal("gap of 945s should force resync, not alert")
	}
	res = e.Process(sample("SO-50", 50), at(start+1950))
	if !res.ShouldAlert {
		t.Errorf("second pass should re-arm and alert, got %+v", res.Session)
	}
}

// --- Gap resync ---

func TestEngine_GapResync(t *testing.T) {
	e, _ := newEngine(defaults())

	e.Process(sample("AO-91", 1000), at(0))
	e.Process(sample("AO-91", 990), at(10))

	res := e.Process(sample("AO-91", 590), at(410))
	if res.Session.Confidence != 1 {
		t.Errorf("400s gap: confidence got %d, want 1", res.Session.Confidence)
	}
	if res.Session.Verdict != session.VerdictGapResync {
		t.Errorf("verdict: got %q, want gap_resync", res.Session.Verdict)
	}
	if res.Session.LastTTG != 590 || !res.Session.LastSeen.Equal(at(410)) {
		t.Error("gap sample must still update the baseline")
	}
}

// --- Alert once ---

func TestEngine_AlertOncePerPass(t *testing.T) {
	e, _ := newEngine(defaults())

	e.Process(sample("FO-29", 60), at(0))
	first := e.Process(sample("FO-29", 58), at(2))
	if !first.ShouldAlert {
		t.Fatal("expected first alert")
	}
	for i, ttg := range []int{56, 54, 52} {
		res := e.Process(sample("FO-29", ttg), at(float64(4+2*i)))
		if res.Status != session.StateSynced {
			t.Errorf("ttg=%d: status got %q, want synced", ttg, res.Status)
		}
		if res.ShouldAlert {
			t.Errorf("ttg=%d: second alert in the same pass", ttg)
		}
	}
}

func TestEngine_RepeatAlertsWhenNotOncePerPass(t *testing.T) {
	cfg := defaults()
	cfg.OncePerPass = false
	e, _ := newEngine(cfg)

	e.Process(sample("FO-29", 60), at(0))
	fired := 0
	for i, ttg := range []int{58, 56, 54} {
		if e.Process(sample("FO-29", ttg), at(float64(2+2*i))).ShouldAlert {
			fired++
		}
	}
	if fired != 3 {
		t.Errorf("alerts fired: got %d, want 3", fired)
	}
}

// --- End to end ---

func TestEngine_EndToEnd(t *testing.T) {
	e, _ := newEngine(defaults())

	steps := []struct {
		t      float64
		ttg    int
		conf   int
		status session.State
		alert  bool
	}{
		{0, 65, 1, session.StateTracking, false},
		{2, 63, 2, session.StateSynced, false},
		{4, 61, 2, session.StateSynced, false},
		{6, 59, 2, session.StateSynced, true},
		{8, 57, 2, session.StateSynced, false},
	}
	for _, st := range steps {
		res := e.Process(sample("RS-44", st.ttg), at(st.t))
		if res.Session.Confidence != st.conf || res.Status != st.status || res.ShouldAlert != st.alert {
			t.Errorf("t=%v ttg=%d: got conf=%d status=%q alert=%v, want conf=%d status=%q alert=%v",
				st.t, st.ttg, res.Session.Confidence, res.Status, res.ShouldAlert,
				st.conf, st.status, st.alert)
		}
		if st.alert {
			want := &AlertEvent{ID: "alert-1", Name: "RS-44", TTG: 59, Azimuth: 151.1, FiredAt: at(6)}
			if diff := cmp.Diff(want, res.Event); diff != "" {
				t.Errorf("alert event mismatch (-want +got):\n%s", diff)
			}
			if !res.Session.Alerted {
				t.Error("session.Alerted should be true after firing")
			}
		}
	}
}

// --- Independence and invariants ---

func TestEngine_SourcesIndependent(t *testing.T) {
	e, st := newEngine(defaults())

	e.Process(sample("RS-44", 50), at(0))
	e.Process(sample("ISS", 500), at(1))
	e.Process(sample("RS-44", 48), at(2))

	rs, _ := st.Get("RS-44")
	iss, _ := st.Get("ISS")
	if rs.Confidence != 2 {
		t.Errorf("RS-44 confidence: got %d, want 2", rs.Confidence)
	}
	if iss.Confidence != 1 || iss.LastTTG != 500 {
		t.Errorf("ISS must not be affected by RS-44 samples: %+v", iss)
	}
	if st.Count() != 2 {
		t.Errorf("sessions: got %d, want 2", st.Count())
	}
}

func TestEngine_ConfidenceAlwaysInRange(t *testing.T) {
	e, st := newEngine(defaults())

	// Pseudo-random walk over TTG values and arrival times.
	ttg, now := 1000, 0.0
	seed := uint32(7)
	for i := 0; i < 500; i++ {
		seed = seed*1664525 + 1013904223
		switch seed % 5 {
		case 0:
			ttg -= 2
			now += 2
		case 1:
			ttg -= 60
			now += 0.01
		case 2:
			ttg += 300
			now += 1
		case 3:
			now += 400
		default:
			ttg -= 10
			now += 10
		}
		res := e.Process(sample("RND", ttg), at(now))
		c := res.Session.Confidence
		if c < 0 || c > 2 {
			t.Fatalf("step %d: confidence %d out of [0,2]", i, c)
		}
		if res.Session.Alerted && !res.Session.HasTTG {
			t.Fatalf("step %d: alerted without a TTG", i)
		}
	}
	if st.Count() != 1 {
		t.Errorf("sessions: got %d, want 1", st.Count())
	}
}
