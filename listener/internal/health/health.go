// Package health serves the standard gRPC health protocol for the listener.
// Service "faoswatch.Listener" is SERVING while the UDP socket is bound.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/faoswatch/faoswatch/listener/internal/auth"
)

// Service is the health service name clients should query.
const Service = "faoswatch.Listener"

// DefaultStopTimeout bounds the graceful stop before open streams are cut.
const DefaultStopTimeout = 5 * time.Second

// Server tracks listener readiness and exposes it over gRPC.
type Server struct {
	hs          *health.Server
	stopTimeout time.Duration
}

// New creates a Server reporting NOT_SERVING until SetServing(true).
func New() *Server {
	hs := health.NewServer()
	hs.SetServingStatus(Service, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{hs: hs, stopTimeout: DefaultStopTimeout}
}

// SetServing records whether the UDP socket is bound.
func (s *Server) SetServing(serving bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.hs.SetServingStatus(Service, st)
}

// Serve runs a gRPC server on lis until ctx is cancelled. chk guards every
// call; pass a Checker built from a disabled config to allow all.
//
// On cancellation in-flight calls get DefaultStopTimeout to finish. Watch
// streams never finish on their own, so any still open after that are closed.
func (s *Server) Serve(ctx context.Context, lis net.Listener, chk *auth.Checker) error {
	srv := grpc.NewServer(
		grpc.UnaryInterceptor(chk.Unary()),
		grpc.StreamInterceptor(chk.Stream()),
	)
	healthpb.RegisterHealthServer(srv, s.hs)

	go func() {
		<-ctx.Done()
		s.hs.Shutdown()
		s.stop(srv)
	}()

	slog.Info("health: gRPC listening", "addr", lis.Addr().String(), "auth", chk.Enabled())
	if err := srv.Serve(lis); err != nil {
		return fmt.Errorf("health: serve: %w", err)
	}
	return nil
}

func (s *Server) stop(srv *grpc.Server) {
	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()

	t := time.NewTimer(s.stopTimeout)
	defer t.Stop()
	select {
	case <-stopped:
	case <-t.C:
		slog.Warn("health: graceful stop timed out, closing open streams", "timeout", s.stopTimeout)
		srv.Stop()
	}
}
