// Package memory provides an in-process lease backend for single-instance
// deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

type entry struct {
	token   uint64
	expires time.Time
}

// LeaseManager implements domain.LeaseManager with a mutex-guarded map.
// Expired entries are reclaimed lazily on the next Acquire for the key.
type LeaseManager struct {
	mu    sync.Mutex
	held  map[string]entry
	next  uint64
	clock func() time.Time
}

var _ domain.LeaseManager = (*LeaseManager)(nil)

// NewLeaseManager creates an empty in-memory lease table.
func NewLeaseManager() *LeaseManager {
	return &LeaseManager{
		held:  make(map[string]entry),
		clock: time.Now,
	}
}

// Acquire takes the lease for key or returns domain.ErrLeaseHeld.
func (m *LeaseManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if e, ok := m.held[key]; ok && now.Before(e.expires) {
		return nil, fmt.Errorf("memory: lease %s: %w", key, domain.ErrLeaseHeld)
	}

	m.next++
	token := m.next
	m.held[key] = entry{token: token, expires: now.Add(ttl)}

	release := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if e, ok := m.held[key]; ok && e.token == token {
			delete(m.held, key)
		}
	}
	return release, nil
}
