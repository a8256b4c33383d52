package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/faoswatch/faoswatch/listener/internal/config"
	"github.com/faoswatch/faoswatch/listener/internal/tracker"
)

// recorder captures argv for each command the dispatcher would run.
type recorder struct {
	mu    sync.Mutex
	calls [][]string
	fail  map[string]error // argv[0] -> error
}

func (r *recorder) run(_ context.Context, argv []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, argv)
	return r.fail[argv[0]]
}

func newTestDispatcher(cfg config.AlertsConfig) (*Dispatcher, *recorder) {
	rec := &recorder{fail: map[string]error{}}
	d := New(cfg)
	d.run = rec.run
	return d, rec
}

func event() tracker.AlertEvent {
	return tracker.AlertEvent{
		ID:      "alert-1",
		Name:    "RS-44",
		TTG:     59,
		Azimuth: 151.1,
		FiredAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFormatMMSS(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0:00"},
		{9, "0:09"},
		{59, "0:59"},
		{60, "1:00"},
		{75, "1:15"},
		{600, "10:00"},
		{-5, "0:00"},
	}
	for _, tc := range cases {
		if got := FormatMMSS(tc.in); got != tc.want {
			t.Errorf("FormatMMSS(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMessages(t *testing.T) {
	if got := Title("RS-44"); got != "RS-44 Rising" {
		t.Errorf("Title: got %q", got)
	}
	if got := PopupMessage("RS-44", 59); got != "RS-44 Rising in 0:59" {
		t.Errorf("PopupMessage: got %q", got)
	}
	if got := VoiceText("RS-44", 59); got != "RS-44 rising in 59 seconds." {
		t.Errorf("VoiceText: got %q", got)
	}
}

func TestDispatch_RunsVoiceThenPopup(t *testing.T) {
	cfg := config.Default().Alerts
	d, rec := newTestDispatcher(cfg)

	if errs := d.Dispatch(context.Background(), event()); len(errs) != 0 {
		t.Fatalf("Dispatch: unexpected errors %v", errs)
	}

	want := [][]string{
		{"espeak", "RS-44 rising in 59 seconds."},
		{"notify-send", "-t", "10000", "RS-44 Rising", "RS-44 Rising in 0:59"},
	}
	if diff := cmp.Diff(want, rec.calls); diff != "" {
		t.Errorf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestDispatch_DisabledSurfacesSkipped(t *testing.T) {
	cfg := config.Default().Alerts
	cfg.Voice.Enabled = false
	cfg.Popup.Enabled = false
	d, rec := newTestDispatcher(cfg)

	if errs := d.Dispatch(context.Background(), event()); len(errs) != 0 {
		t.Fatalf("Dispatch: unexpected errors %v", errs)
	}
	if len(rec.calls) != 0 {
		t.Errorf("expected no commands, got %v", rec.calls)
	}
	if d.History().Len() != 1 {
		t.Errorf("history: got %d entries, want 1", d.History().Len())
	}
}

func TestDispatch_VoiceFailureStillShowsPopup(t *testing.T) {
	cfg := config.Default().Alerts
	d, rec := newTestDispatcher(cfg)
	boom := errors.New("no audio device")
	rec.fail["espeak"] = boom

	errs := d.Dispatch(context.Background(), event())
	if len(errs) != 1 {
		t.Fatalf("errors: got %d, want 1: %v", len(errs), errs)
	}
	if errs[0].Kind != KindVoice {
		t.Errorf("Kind: got %q, want voice", errs[0].Kind)
	}
	if !errors.Is(errs[0], boom) {
		t.Errorf("errors.Is(cause) = false for %v", errs[0])
	}
	if len(rec.calls) != 2 {
		t.Errorf("expected popup to run after voice failure, calls=%v", rec.calls)
	}
}

func TestDispatch_EmptyCommand(t *testing.T) {
	cfg := config.Default().Alerts
	cfg.Popup.Command = nil
	d, _ := newTestDispatcher(cfg)

	errs := d.Dispatch(context.Background(), event())
	if len(errs) != 1 || errs[0].Kind != KindPopup {
		t.Fatalf("expected one popup error, got %v", errs)
	}
}

func TestShowPopup_TimeoutPlaceholders(t *testing.T) {
	cfg := config.Default().Alerts
	cfg.Popup.Command = []string{"zenity", "--timeout={timeout_s}", "--title={title}", "--text={message}"}
	d, rec := newTestDispatcher(cfg)

	if err := d.ShowPopup(context.Background(), "T", "M", 7*time.Second); err != nil {
		t.Fatalf("ShowPopup: %v", err)
	}
	want := []string{"zenity", "--timeout=7", "--title=T", "--text=M"}
	if diff := cmp.Diff(want, rec.calls[0]); diff != "" {
		t.Errorf("argv mismatch (-want +got):\n%s", diff)
	}
}

func TestSetConfig_AppliesToNextDispatch(t *testing.T) {
	cfg := config.Default().Alerts
	d, rec := newTestDispatcher(cfg)

	cfg.Voice.Enabled = false
	d.SetConfig(cfg)
	d.Dispatch(context.Background(), event())

	if len(rec.calls) != 1 || rec.calls[0][0] != "notify-send" {
		t.Errorf("expected popup only after SetConfig, got %v", rec.calls)
	}
}

func TestCommandTimeoutApplied(t *testing.T) {
	cfg := config.Default().Alerts
	cfg.CommandTimeout = 20 * time.Millisecond
	cfg.Popup.Enabled = false
	d := New(cfg)
	d.run = func(ctx context.Context, _ []string) error {
		<-ctx.Done()
		return ctx.Err()
	}

	start := time.Now()
	errs := d.Dispatch(context.Background(), event())
	if len(errs) != 1 || !errors.Is(errs[0], context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", errs)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("command timeout not enforced")
	}
}

func TestWebhook_Payloads(t *testing.T) {
	var mu sync.Mutex
	bodies := map[string]map[string]interface{}{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var m map[string]interface{}
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Errorf("invalid JSON body: %v", err)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type: got %q", ct)
		}
		mu.Lock()
		bodies[strings.TrimPrefix(r.URL.Path, "/")] = m
		mu.Unlock()
	}))
	defer srv.Close()

	t.Setenv("TEST_SLACK_URL", srv.URL+"/slack")
	t.Setenv("TEST_TEAMS_URL", srv.URL+"/teams")
	t.Setenv("TEST_HTTP_URL", srv.URL+"/http")

	cfg := config.Default().Alerts
	cfg.Voice.Enabled = false
	cfg.Popup.Enabled = false
	cfg.Webhooks = []config.WebhookConfig{
		{Type: "slack", URLEnv: "TEST_SLACK_URL"},
		{Type: "teams", URLEnv: "TEST_TEAMS_URL"},
		{Type: "http", URLEnv: "TEST_HTTP_URL"},
		{Type: "http", URLEnv: "TEST_UNSET_URL"},
	}
	d, _ := newTestDispatcher(cfg)

	if errs := d.Dispatch(context.Background(), event()); len(errs) != 0 {
		t.Fatalf("Dispatch: unexpected errors %v", errs)
	}

	if len(bodies) != 3 {
		t.Fatalf("webhook calls: got %d, want 3", len(bodies))
	}
	if text, _ := bodies["slack"]["text"].(string); !strings.Contains(text, "RS-44 Rising in 0:59") {
		t.Errorf("slack text: got %q", text)
	}
	if bodies["teams"]["@type"] != "MessageCard" {
		t.Errorf("teams @type: got %v", bodies["teams"]["@type"])
	}
	alert, ok := bodies["http"]["alert"].(map[string]interface{})
	if !ok {
		t.Fatalf("http body: missing alert object: %v", bodies["http"])
	}
	if alert["name"] != "RS-44" || alert["id"] != "alert-1" {
		t.Errorf("http alert: got %v", alert)
	}
}

func TestWebhook_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	t.Setenv("TEST_HTTP_URL", srv.URL)

	cfg := config.Default().Alerts
	cfg.Voice.Enabled = false
	cfg.Popup.Enabled = false
	cfg.Webhooks = []config.WebhookConfig{{Type: "http", URLEnv: "TEST_HTTP_URL"}}
	d, _ := newTestDispatcher(cfg)

	errs := d.Dispatch(context.Background(), event())
	if len(errs) != 1 {
		t.Fatalf("errors: got %d, want 1", len(errs))
	}
	if errs[0].Kind != KindWebhook || errs[0].Target != "http" {
		t.Errorf("error: got %+v", errs[0])
	}
	if !strings.Contains(errs[0].Error(), "HTTP 502") {
		t.Errorf("message: got %q", errs[0].Error())
	}
}

func TestHistory_NewestFirstAndBounded(t *testing.T) {
	h := NewHistory(3)
	for _, id := range []string{"a", "b", "c", "d"} {
		h.Add(tracker.AlertEvent{ID: id})
	}
	var got []string
	for _, ev := range h.Recent() {
		got = append(got, ev.ID)
	}
	if diff := cmp.Diff([]string{"d", "c", "b"}, got); diff != "" {
		t.Errorf("Recent mismatch (-want +got):\n%s", diff)
	}
}
