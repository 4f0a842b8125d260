// pkg/memcache/leases.go
package mem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LeaseStore hands out short-lived exclusive leases keyed by name.
type LeaseStore interface {
	// Acquire returns a token and true when the key was free or its lease had
	// expired. It returns false while another holder's lease is live.
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error)

	// Release frees the key only if token still owns it.
	Release(ctx context.Context, key, token string) error
}

type entry struct {
	token     string
	expiresAt time.Time
}

type Leases struct {
	mu   sync.Mutex
	data map[string]entry
	now  func() time.Time
}

func NewLeases() *Leases {
	return &Leases{
		data: make(map[string]entry),
		now:  time.Now,
	}
}

func (s *Leases) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.data[key]; ok && now.Before(e.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	s.data[key] = entry{
		token:     token,
		expiresAt: now.Add(ttl),
	}
	s.sweep(now)
	return token, true, nil
}

func (s *Leases) Release(_ context.Context, key, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.data[key]; ok && e.token == token {
		delete(s.data, key)
	}
	return nil
}

// sweep drops expired leases; caller holds mu.
func (s *Leases) sweep(now time.Time) {
	for k, e := range s.data {
		if now.After(e.expiresAt) {
			delete(s.data, k)
		}
	}
}
