// Package shipper delivers FAOS payloads to a listener over UDP.
//
// Ship is non-blocking; when the buffer is full the oldest payload is
// evicted. Run drains the buffer and redials with truncated exponential
// backoff when a write fails. Close ends the stream: Run returns once every
// buffered payload has been written.
package shipper

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"time"
)

const (
	backoffInitial    = 1 * time.Second
	backoffMax        = 60 * time.Second
	backoffMultiplier = 2.0
	writeTimeout      = 5 * time.Second
)

// Options configures a Shipper.
type Options struct {
	Addr       string // host:port of the listener
	BufferSize int
}

// Shipper buffers payloads and writes them to the listener.
type Shipper struct {
	addr   string
	buf    chan string
	dialFn dialFunc // injectable for tests
}

// dialFunc opens a datagram connection to addr.
type dialFunc func(ctx context.Context, addr string) (net.Conn, error)

// New creates a Shipper for opts.
func New(opts Options) *Shipper {
	size := opts.BufferSize
	if size <= 0 {
		size = 64
	}
	return &Shipper{
		addr:   opts.Addr,
		buf:    make(chan string, size),
		dialFn: defaultDial,
	}
}

// Ship enqueues payload. If the buffer is full the oldest entry is evicted.
// Ship must not be called after Close.
func (s *Shipper) Ship(payload string) {
	select {
	case s.buf <- payload:
	default:
		select {
		case old := <-s.buf:
			slog.Warn("shipper: buffer full, evicted oldest payload",
				"payload", old, "buffer_cap", cap(s.buf))
		default:
		}
		s.buf <- payload
	}
}

// Close marks the end of the stream.
func (s *Shipper) Close() {
	close(s.buf)
}

// Run drains the buffer until ctx is cancelled or, after Close, the buffer
// is empty.
func (s *Shipper) Run(ctx context.Context) {
	bo := newBackoff()
	var pending *string // payload whose write failed, resent first

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dialFn(ctx, s.addr)
		if err != nil {
			wait := bo.next()
			slog.Error("shipper: dial failed, will retry", "addr", s.addr, "err", err, "retry_in", wait)
			if !sleep(ctx, wait) {
				return
			}
			continue
		}

		slog.Info("shipper: connected", "addr", s.addr)
		bo.reset()

		done, err := s.drain(ctx, conn, &pending)
		conn.Close()
		if done || ctx.Err() != nil {
			return
		}

		wait := bo.next()
		slog.Warn("shipper: write failed, will reconnect", "addr", s.addr, "err", err, "retry_in", wait)
		if !sleep(ctx, wait) {
			return
		}
	}
}

// drain writes buffered payloads to conn. It reports done when the buffer
// was closed and emptied; otherwise it returns the write error that ended it.
func (s *Shipper) drain(ctx context.Context, conn net.Conn, pending **string) (bool, error) {
	for {
		var payload string
		if *pending != nil {
			payload = **pending
		} else {
			select {
			case <-ctx.Done():
				return false, nil
			case p, ok := <-s.buf:
				if !ok {
					return true, nil
				}
				payload = p
			}
		}

		conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
		if _, err := conn.Write([]byte(payload)); err != nil {
			*pending = &payload
			return false, fmt.Errorf("write: %w", err)
		}
		*pending = nil
		slog.Debug("shipper: payload sent", "payload", payload)
	}
}

func defaultDial(ctx context.Context, addr string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "udp", addr)
}

func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	current time.Duration
}

func newBackoff() *backoff {
	return &backoff{current: backoffInitial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// Apply ±25 % jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > backoffMax {
		b.current = backoffMax
	}
	return d
}

func (b *backoff) reset() {
	b.current = backoffInitial
}
