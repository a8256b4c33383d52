package receiver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/faoswatch/faoswatch/listener/internal/alerts"
	"github.com/faoswatch/faoswatch/listener/internal/config"
	"github.com/faoswatch/faoswatch/listener/internal/metrics"
	"github.com/faoswatch/faoswatch/listener/internal/session"
	"github.com/faoswatch/faoswatch/listener/internal/tracker"
	"github.com/faoswatch/faoswatch/pkg/faos"
)

// ErrQuit is returned when a termination sentinel arrives.
var ErrQuit = errors.New("receiver: termination sentinel received")

// Alerter delivers a fired alert.
type Alerter interface {
	Dispatch(ctx context.Context, ev tracker.AlertEvent) []alerts.DispatchError
}

// AlertPublisher fans fired alerts out to live clients.
type AlertPublisher interface {
	PublishAlert(ev tracker.AlertEvent)
}

// StatusReporter is told whether the socket is currently bound.
type StatusReporter interface {
	SetServing(serving bool)
}

// Options wires a Receiver to its collaborators. Engine and Alerter are
// required; the rest may be nil.
type Options struct {
	Listener  config.ListenerConfig
	Engine    *tracker.Engine
	Alerter   Alerter
	Publisher AlertPublisher
	Status    StatusReporter
	Metrics   *metrics.Metrics
}

// Receiver reads FAOS datagrams and drives the tracker engine.
type Receiver struct {
	cfg atomic.Pointer[config.ListenerConfig]

	engine *tracker.Engine
	alert  Alerter
	pub    AlertPublisher
	status StatusReporter
	m      *metrics.Metrics

	now    func() time.Time
	listen func(network, addr string) (net.PacketConn, error)
}

// New creates a Receiver from opts.
func New(opts Options) *Receiver {
	r := &Receiver{
		engine: opts.Engine,
		alert:  opts.Alerter,
		pub:    opts.Publisher,
		status: opts.Status,
		m:      opts.Metrics,
		now:    time.Now,
		listen: net.ListenPacket,
	}
	lc := opts.Listener
	r.cfg.Store(&lc)
	return r
}

// SetListenerConfig swaps the listener settings. The allow-list applies to
// the next datagram; the bind address and the socket settings apply from the
// next (re)start of the socket.
func (r *Receiver) SetListenerConfig(lc config.ListenerConfig) {
	r.cfg.Store(&lc)
}

func (r *Receiver) listenerConfig() config.ListenerConfig {
	return *r.cfg.Load()
}

// Supervise runs the socket until ctx is cancelled or a termination sentinel
// arrives. Socket errors restart the listener after the configured delay
// when restart_on_error is set; otherwise they are returned.
//
// It returns nil on cancellation and ErrQuit on a remote quit.
func (r *Receiver) Supervise(ctx context.Context) error {
	for {
		err := r.Run(ctx)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrQuit):
			return ErrQuit
		}

		lc := r.listenerConfig()
		if !lc.RestartOnError {
			return err
		}
		slog.Error("receiver: listener failed, restarting",
			"err", err, "delay", lc.RestartDelay)
		if r.m != nil {
			r.m.Restarts.Inc()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(lc.RestartDelay):
		}
	}
}

// Run binds the socket and serves it until ctx is cancelled, a sentinel
// arrives or the socket fails.
func (r *Receiver) Run(ctx context.Context) error {
	lc := r.listenerConfig()

	conn, err := r.listen("udp", lc.Bind)
	if err != nil {
		return fmt.Errorf("receiver: listen %s: %w", lc.Bind, err)
	}
	defer conn.Close()

	if udp, ok := conn.(*net.UDPConn); ok && lc.SocketBuffer > 0 {
		if err := udp.SetReadBuffer(lc.SocketBuffer); err != nil {
			slog.Warn("receiver: set socket buffer", "size", lc.SocketBuffer, "err", err)
		}
	}

	slog.Info("receiver: listening", "addr", conn.LocalAddr().String())
	r.setServing(true)
	defer r.setServing(false)

	return r.Serve(ctx, conn)
}

// Serve reads datagrams from conn until ctx is cancelled, a sentinel arrives
// or a read fails. conn is not closed.
func (r *Receiver) Serve(ctx context.Context, conn net.PacketConn) error {
	lc := r.listenerConfig()
	buf := make([]byte, lc.BufferSize)

	for {
		if ctx.Err() != nil {
			slog.Info("receiver: stopping")
			return nil
		}

		if err := conn.SetReadDeadline(time.Now().Add(lc.ReadTimeout)); err != nil {
			return fmt.Errorf("receiver: set read deadline: %w", err)
		}
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receiver: read: %w", err)
		}

		if err := r.handle(ctx, buf[:n], addr); err != nil {
			return err
		}
	}
}

// handle processes one datagram. Only ErrQuit is returned; every other
// problem with a datagram drops it.
func (r *Receiver) handle(ctx context.Context, data []byte, from net.Addr) error {
	if r.m != nil {
		r.m.PacketsReceived.Inc()
	}
	raw := strings.ToValidUTF8(string(data), "")

	if faos.IsTerminationSentinel(raw) {
		slog.Info("receiver: termination sentinel received", "from", addrString(from))
		return ErrQuit
	}

	sample, err := faos.ParseSample(raw)
	if err != nil {
		if r.m != nil {
			r.m.PacketsMalformed.Inc()
		}
		slog.Debug("receiver: dropped datagram", "from", addrString(from), "err", err)
		return nil
	}

	if !r.listenerConfig().Allows(sample.Name) {
		if r.m != nil {
			r.m.PacketsFiltered.Inc()
		}
		slog.Debug("receiver: filtered", "name", sample.Name)
		return nil
	}

	now := r.now()
	sample.ReceivedAt = now
	res := r.engine.Process(sample, now)
	r.observe(res)

	slog.Info("receiver: sample",
		"name", sample.Name,
		"az", sample.Azimuth,
		"ttg", sample.TTG,
		"status", res.Status,
		"sync", syncLabel(res.Session, r.engine.Config()),
	)

	if res.ShouldAlert && res.Event != nil {
		r.fire(ctx, *res.Event)
	}
	return nil
}

func (r *Receiver) fire(ctx context.Context, ev tracker.AlertEvent) {
	slog.Info("receiver: alert fired", "id", ev.ID, "name", ev.Name, "ttg", ev.TTG, "az", ev.Azimuth)
	if r.m != nil {
		r.m.AlertsFired.Inc()
	}

	if r.pub != nil {
		r.pub.PublishAlert(ev)
	}

	for _, e := range r.alert.Dispatch(ctx, ev) {
		if r.m != nil {
			r.m.DispatchFailures.WithLabelValues(string(e.Kind)).Inc()
		}
	}
}

func (r *Receiver) observe(res tracker.Result) {
	if r.m == nil {
		return
	}
	r.m.Samples.WithLabelValues(string(res.Session.Verdict)).Inc()
	if res.NewPass {
		r.m.NewPasses.Inc()
	}
}

func (r *Receiver) setServing(serving bool) {
	if r.status != nil {
		r.status.SetServing(serving)
	}
}

// syncLabel renders the per-sample trust marker: "realtime=OK" once the
// session is trusted, otherwise "SYNC(c/N)".
func syncLabel(s session.Session, cfg config.TrackerConfig) string {
	if tracker.IsRealtimeTrusted(s, cfg) {
		return "realtime=OK"
	}
	return fmt.Sprintf("SYNC(%d/%d)", s.Confidence, cfg.RequiredConsistentSamples)
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
