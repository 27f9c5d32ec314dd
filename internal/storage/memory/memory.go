// Package memory implements storage.Store in process memory.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xenking/fish-storefront/internal/storage"
)

var _ storage.Store = (*Store)(nil)

type entry struct {
	value   []byte
	expires time.Time // zero: never
}

// Option configures a Store.
type Option func(*Store)

// WithTTL expires keys that have not been written for ttl. Zero disables
// expiry.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store keeps values in a map guarded by a mutex. Values are copied on the
// way in and out so callers never share backing arrays with the store.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.RWMutex
	values map[string]entry
}

// New returns an empty in-memory Store.
func New(opts ...Option) *Store {
	s := &Store{values: make(map[string]entry), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.values[key]
	if !ok || e.expired(s.now()) {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	e := entry{value: append([]byte(nil), value...)}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = e
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Len reports how many keys are held, including expired keys not yet swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Sweep drops expired keys and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, e := range s.values {
		if e.expired(now) {
			delete(s.values, k)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (s *Store) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			s.Sweep()
		}
	}
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}
