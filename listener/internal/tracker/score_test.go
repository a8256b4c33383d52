package tracker

import (
	"testing"
	"time"

	"github.com/faoswatch/faoswatch/listener/internal/config"
	"github.com/faoswatch/faoswatch/listener/internal/session"
)

// baseTime is a fixed reference point so all test timings are deterministic.
var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// at returns baseTime advanced by n seconds.
func at(n float64) time.Time {
	return baseTime.Add(time.Duration(n * float64(time.Second)))
}

func defaults() config.TrackerConfig {
	return config.Default().Tracker
}

func prevAt(ttg, confidence int, seen time.Time) session.Session {
	return session.Session{Name: "RS-44", LastTTG: ttg, HasTTG: true, LastSeen: seen, Confidence: confidence}
}

func TestScore(t *testing.T) {
	cfg := defaults()
	tests := []struct {
		name     string
		prev     session.Session
		ttg      int
		now      time.Time
		wantConf int
		wantV    session.Verdict
	}{
		{"first sample", session.New("RS-44"), 500, at(0), 1, session.VerdictFirst},
		{"exact match", prevAt(50, 1, at(0)), 48, at(2), 2, session.VerdictConsistent},
		{"capped at required", prevAt(50, 2, at(0)), 48, at(2), 2, session.VerdictConsistent},
		{"within tolerance", prevAt(100, 1, at(0)), 100, at(15), 2, session.VerdictConsistent},
		{"just outside tolerance", prevAt(100, 2, at(0)), 100, at(15.5), 1, session.VerdictInconsistent},
		{"minute cadence", prevAt(600, 1, at(0)), 540, at(61), 2, session.VerdictConsistent},
		{"burst: big drop no time", prevAt(50, 2, at(0)), 10, at(0.01), 1, session.VerdictInconsistent},
		{"burst: rise no time", prevAt(10, 1, at(0)), 90, at(0.01), 1, session.VerdictInconsistent},
		{"gap resync even if consistent", prevAt(500, 2, at(0)), 100, at(400), 1, session.VerdictGapResync},
		{"gap boundary inclusive", prevAt(500, 2, at(0)), 200, at(300), 1, session.VerdictGapResync},
		{"just under gap", prevAt(500, 1, at(0)), 201, at(299), 2, session.VerdictConsistent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotConf, gotV := Score(tc.prev, tc.ttg, tc.now, cfg)
			if gotConf != tc.wantConf {
				t.Errorf("confidence: got %d, want %d", gotConf, tc.wantConf)
			}
			if gotV != tc.wantV {
				t.Errorf("verdict: got %q, want %q", gotV, tc.wantV)
			}
		})
	}
}

func TestScore_RequiredThree(t *testing.T) {
	cfg := defaults()
	cfg.RequiredConsistentSamples = 3

	conf, _ := Score(prevAt(50, 1, at(0)), 48, at(2), cfg)
	if conf != 2 {
		t.Fatalf("confidence: got %d, want 2", conf)
	}
	conf, _ = Score(prevAt(48, conf, at(2)), 46, at(4), cfg)
	if conf != 3 {
		t.Fatalf("confidence: got %d, want 3", conf)
	}
	conf, _ = Score(prevAt(46, conf, at(4)), 44, at(6), cfg)
	if conf != 3 {
		t.Errorf("confidence must stay capped at 3, got %d", conf)
	}
}

func TestIsRealtimeTrusted(t *testing.T) {
	cfg := defaults()
	for conf, want := range map[int]bool{0: false, 1: false, 2: true} {
		s := session.Session{HasTTG: true, Confidence: conf}
		if got := IsRealtimeTrusted(s, cfg); got != want {
			t.Errorf("confidence %d: got %v, want %v", conf, got, want)
		}
	}
}

func TestIsNewPass(t *testing.T) {
	cfg := defaults()
	tests := []struct {
		name string
		prev session.Session
		ttg  int
		want bool
	}{
		{"first sample never resets", session.New("ISS"), 5000, false},
		{"countdown", prevAt(45, 2, at(0)), 40, false},
		{"small rise", prevAt(45, 2, at(0)), 100, false},
		{"rise at threshold", prevAt(45, 2, at(0)), 165, false},
		{"rise past threshold", prevAt(45, 2, at(0)), 166, true},
		{"new pass", prevAt(45, 2, at(0)), 200, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsNewPass(tc.prev, tc.ttg, cfg); got != tc.want {
				t.Errorf("IsNewPass: got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	cfg := defaults()
	synced := session.Session{HasTTG: true, Confidence: 2}
	alerted := session.Session{HasTTG: true, Confidence: 2, Alerted: true}
	tracking := session.Session{HasTTG: true, Confidence: 1}

	tests := []struct {
		name string
		s    session.Session
		ttg  int
		once bool
		want bool
	}{
		{"synced under threshold", synced, 59, true, true},
		{"synced at threshold", synced, 60, true, true},
		{"synced over threshold", synced, 61, true, false},
		{"untrusted under threshold", tracking, 10, true, false},
		{"already alerted", alerted, 30, true, false},
		{"already alerted, repeat allowed", alerted, 30, false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := cfg
			c.OncePerPass = tc.once
			if got := Decide(tc.s, tc.ttg, c); got != tc.want {
				t.Errorf("Decide: got %v, want %v", got, tc.want)
			}
		})
	}
}
