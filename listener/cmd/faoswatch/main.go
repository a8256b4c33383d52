package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/faoswatch/faoswatch/listener/internal/alerts"
	"github.com/faoswatch/faoswatch/listener/internal/api"
	"github.com/faoswatch/faoswatch/listener/internal/auth"
	"github.com/faoswatch/faoswatch/listener/internal/config"
	"github.com/faoswatch/faoswatch/listener/internal/health"
	"github.com/faoswatch/faoswatch/listener/internal/metrics"
	"github.com/faoswatch/faoswatch/listener/internal/receiver"
	"github.com/faoswatch/faoswatch/listener/internal/session"
	"github.com/faoswatch/faoswatch/listener/internal/tracker"
	"github.com/faoswatch/faoswatch/listener/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "path to config file; empty uses built-in defaults")
	console := flag.Bool("console", true, "quit when q, Q or Ctrl-Q is entered on stdin")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	slog.Info("faoswatch starting",
		"config", *configPath,
		"bind", cfg.Listener.Bind,
		"allowed_sats", cfg.Listener.AllowedSats,
		"alert_threshold_s", cfg.Tracker.AlertThresholdSeconds,
		"required_samples", cfg.Tracker.RequiredConsistentSamples,
		"voice", cfg.Alerts.Voice.Enabled,
		"popup", cfg.Alerts.Popup.Enabled,
		"webhooks", len(cfg.Alerts.Webhooks),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *console {
		go watchConsole(ctx, os.Stdin, cancel)
	}

	st := session.NewStore(cfg.Tracker.SessionTTL)
	go st.Run(ctx)

	engine := tracker.New(cfg.Tracker, st)
	dispatcher := alerts.New(cfg.Alerts)
	m := metrics.New()
	m.TrackSessions(st)
	hs := health.New()

	apiHandler := api.New(st, dispatcher.History(), cfg.Tracker)
	hub := ws.New(apiHandler, cfg.Server.BroadcastInterval)
	go hub.Run(ctx)

	rcv := receiver.New(receiver.Options{
		Listener:  cfg.Listener,
		Engine:    engine,
		Alerter:   dispatcher,
		Publisher: hub,
		Status:    hs,
		Metrics:   m,
	})

	if *configPath != "" {
		go func() {
			err := config.Watch(ctx, *configPath, func(next *config.Config) {
				rcv.SetListenerConfig(next.Listener)
				dispatcher.SetConfig(next.Alerts)
				slog.Info("config reloaded",
					"allowed_sats", next.Listener.AllowedSats,
					"voice", next.Alerts.Voice.Enabled,
					"popup", next.Alerts.Popup.Enabled,
				)
			})
			if err != nil {
				slog.Warn("config watch stopped", "err", err)
			}
		}()
	}

	if cfg.Server.GRPCPort > 0 {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
		if err != nil {
			slog.Error("failed to listen on gRPC port", "port", cfg.Server.GRPCPort, "err", err)
			os.Exit(1)
		}
		go func() {
			if err := hs.Serve(ctx, lis, auth.NewChecker(cfg.Server.Auth)); err != nil {
				slog.Error("gRPC server stopped", "err", err)
			}
		}()
	}

	var httpSrv *http.Server
	if cfg.Server.HTTPPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/api/", apiHandler)
		mux.Handle("/metrics", m.Handler())
		mux.Handle("/ws/stream", hub)

		httpSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.HTTPPort),
			Handler: mux,
		}
		go func() {
			slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("HTTP server stopped", "err", err)
			}
		}()
	}

	err = rcv.Supervise(ctx)
	cancel()

	slog.Info("faoswatch shutting down", "sessions", st.Count(), "alerts", dispatcher.History().Len())
	if httpSrv != nil {
		httpSrv.Shutdown(context.Background()) //nolint:errcheck
	}

	if err != nil && !errors.Is(err, receiver.ErrQuit) {
		slog.Error("listener stopped", "err", err)
		os.Exit(1)
	}
}
