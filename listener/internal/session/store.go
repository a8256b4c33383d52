package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Store is the in-memory session store, keyed by source name.
//
// It holds Session values; every accessor returns a copy so no caller keeps
// a reference into the map. Update performs a read-modify-write under one
// lock acquisition, which is how the tracker applies a whole sample cycle
// atomically.
//
// When ttl is positive, Run periodically evicts sessions that have not seen a
// sample within ttl. A zero ttl keeps sessions for the process lifetime.
type Store struct {
	mu   sync.RWMutex
	data map[string]Session
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// NewStore creates an empty Store with the given idle TTL.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]Session),
		ttl:  ttl,
		now:  time.Now,
	}
}

// GetOrCreate returns the session for name, inserting a default one first if
// the name has not been seen.
func (s *Store) GetOrCreate(name string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data[name]
	if !ok {
		sess = New(name)
		s.data[name] = sess
	}
	return sess
}

// Get returns the session for name and whether it exists.
func (s *Store) Get(name string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.data[name]
	return sess, ok
}

// Put stores sess under sess.Name, replacing any previous value.
func (s *Store) Put(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sess.Name] = sess
}

// Update applies fn to the session for name (created if absent) and stores
// the result. fn runs with the store locked and must not call back into it.
func (s *Store) Update(name string, fn func(*Session)) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.data[name]
	if !ok {
		sess = New(name)
	}
	fn(&sess)
	sess.Name = name
	s.data[name] = sess
	return sess
}

// List returns all sessions sorted by name.
func (s *Store) List() []Session {
	s.mu.RLock()
	out := make([]Session, 0, len(s.data))
	for _, sess := range s.data {
		out = append(out, sess)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of sessions held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// TTL returns the configured idle TTL.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Evict removes sessions whose LastSeen is older than now minus TTL and
// returns the number removed. Sessions that never accepted a sample are
// kept. With a zero TTL Evict is a no-op.
func (s *Store) Evict(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for name, sess := range s.data {
		if sess.HasTTG && !sess.LastSeen.After(cutoff) {
			delete(s.data, name)
			removed++
		}
	}
	return removed
}

// Run starts the background eviction loop. It ticks at half the TTL (minimum
// 1 second) and blocks until ctx is cancelled. With a zero TTL it returns
// immediately.
func (s *Store) Run(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Evict(s.now()); n > 0 {
				slog.Debug("session: evicted idle sessions", "count", n)
			}
		}
	}
}
