package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/faoswatch/faoswatch/listener/internal/config"
)

// Checker validates the API key in incoming gRPC metadata.
type Checker struct {
	header string
	key    string
}

// NewChecker builds a Checker from cfg, resolving the key from its env var.
// The returned Checker passes everything when auth is not in effect.
func NewChecker(cfg config.AuthConfig) *Checker {
	c := &Checker{header: strings.ToLower(cfg.EffectiveHeader())}
	if cfg.Mode == "apikey" {
		c.key = cfg.Key()
	}
	return c
}

// Enabled reports whether calls are actually checked.
func (c *Checker) Enabled() bool {
	return c.key != ""
}

func (c *Checker) check(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get(c.header)
	if len(vals) == 0 || subtle.ConstantTimeCompare([]byte(vals[0]), []byte(c.key)) != 1 {
		return status.Error(codes.Unauthenticated, "invalid api key")
	}
	return nil
}

// Unary returns the unary server interceptor.
func (c *Checker) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := c.check(ctx); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// Stream returns the stream server interceptor, used by Health.Watch.
func (c *Checker) Stream() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := c.check(ss.Context()); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}
