package alerts

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/faoswatch/faoswatch/listener/internal/config"
	"github.com/faoswatch/faoswatch/listener/internal/tracker"
)

// Kind identifies the delivery surface that failed.
type Kind string

// Delivery surfaces.
const (
	KindVoice   Kind = "voice"
	KindPopup   Kind = "popup"
	KindWebhook Kind = "webhook"
)

// DispatchError reports one failed delivery.
type DispatchError struct {
	Kind   Kind
	Target string // webhook type, or the command name for voice/popup
	Cause  error
}

func (e DispatchError) Error() string {
	return fmt.Sprintf("alerts: %s delivery via %s failed: %v", e.Kind, e.Target, e.Cause)
}

func (e DispatchError) Unwrap() error { return e.Cause }

// runFunc executes an external command. Abstracted so tests can capture argv
// instead of spawning processes.
type runFunc func(ctx context.Context, argv []string) error

// Dispatcher delivers AlertEvents to the configured surfaces.
//
// Dispatcher is safe for concurrent use; SetConfig swaps the delivery
// settings for subsequent calls.
type Dispatcher struct {
	mu  sync.RWMutex
	cfg config.AlertsConfig

	history *History
	client  *http.Client
	run     runFunc
}

// New creates a Dispatcher from the alert configuration.
func New(cfg config.AlertsConfig) *Dispatcher {
	return &Dispatcher{
		cfg:     cfg,
		history: NewHistory(cfg.HistorySize),
		client:  &http.Client{Timeout: 10 * time.Second},
		run:     runCommand,
	}
}

// SetConfig replaces the delivery settings. The history is kept.
func (d *Dispatcher) SetConfig(cfg config.AlertsConfig) {
	d.mu.Lock()
	d.cfg = cfg
	d.mu.Unlock()
}

func (d *Dispatcher) config() config.AlertsConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// History returns the record of dispatched alerts.
func (d *Dispatcher) History() *History {
	return d.history
}

// Dispatch records ev and delivers it to every enabled surface in turn:
// voice, popup, then webhooks. It returns one DispatchError per failed
// surface; an empty result means everything that was enabled succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, ev tracker.AlertEvent) []DispatchError {
	cfg := d.config()
	d.history.Add(ev)

	var errs []DispatchError
	if cfg.Voice.Enabled {
		if err := d.Speak(ctx, VoiceText(ev.Name, ev.TTG)); err != nil {
			errs = append(errs, DispatchError{Kind: KindVoice, Target: commandName(cfg.Voice.Command), Cause: err})
		}
	}
	if cfg.Popup.Enabled {
		if err := d.ShowPopup(ctx, Title(ev.Name), PopupMessage(ev.Name, ev.TTG), cfg.Popup.Timeout); err != nil {
			errs = append(errs, DispatchError{Kind: KindPopup, Target: commandName(cfg.Popup.Command), Cause: err})
		}
	}
	errs = append(errs, d.deliverWebhooks(ctx, cfg.Webhooks, ev)...)

	for _, e := range errs {
		slog.Warn("alerts: delivery failed",
			"kind", e.Kind, "target", e.Target, "name", ev.Name, "err", e.Cause)
	}
	return errs
}

// Speak runs the voice command with text substituted for "{text}".
func (d *Dispatcher) Speak(ctx context.Context, text string) error {
	cfg := d.config()
	argv := expand(cfg.Voice.Command, strings.NewReplacer("{text}", text))
	return d.exec(ctx, cfg.CommandTimeout, argv)
}

// ShowPopup runs the popup command. The popup is expected to close on its
// own after timeout; the command itself is bounded by the command timeout.
func (d *Dispatcher) ShowPopup(ctx context.Context, title, message string, timeout time.Duration) error {
	cfg := d.config()
	r := strings.NewReplacer(
		"{title}", title,
		"{message}", message,
		"{timeout_ms}", strconv.FormatInt(timeout.Milliseconds(), 10),
		"{timeout_s}", strconv.Itoa(int(timeout.Seconds())),
	)
	return d.exec(ctx, cfg.CommandTimeout, expand(cfg.Popup.Command, r))
}

func (d *Dispatcher) exec(ctx context.Context, timeout time.Duration, argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("no command configured")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return d.run(ctx, argv)
}

// runCommand executes argv without a shell and folds its output into the error.
func runCommand(ctx context.Context, argv []string) error {
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(bytes.ToValidUTF8(out, nil))); msg != "" {
			return fmt.Errorf("%s: %w: %s", argv[0], err, msg)
		}
		return fmt.Errorf("%s: %w", argv[0], err)
	}
	return nil
}

func expand(tmpl []string, r *strings.Replacer) []string {
	out := make([]string, len(tmpl))
	for i, a := range tmpl {
		out[i] = r.Replace(a)
	}
	return out
}

func commandName(argv []string) string {
	if len(argv) == 0 {
		return ""
	}
	return argv[0]
}
