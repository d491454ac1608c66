package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

const leasePrefix = "lease:"

// Release only when the stored token is still ours; an expired lease may
// have been re-acquired by another run.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// LeaseManager implements domain.LeaseManager on Redis using SET NX with a
// TTL and a token-checked unlock, so a crashed holder frees the key by
// expiry and an expired holder cannot release a successor's lease.
type LeaseManager struct {
	client *Client
	logger *slog.Logger
}

var _ domain.LeaseManager = (*LeaseManager)(nil)

// NewLeaseManager creates a LeaseManager over an existing client.
func NewLeaseManager(client *Client, logger *slog.Logger) *LeaseManager {
	return &LeaseManager{
		client: client,
		logger: logger.With(slog.String("component", "redis_lease")),
	}
}

// Acquire takes the lease for key or returns domain.ErrLeaseHeld.
func (m *LeaseManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	full := leasePrefix + key

	ok, err := m.client.rdb.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lease %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("redis: lease %s: %w", key, domain.ErrLeaseHeld)
	}
	m.logger.Debug("lease acquired", slog.String("key", key), slog.Duration("ttl", ttl))

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := unlockScript.Run(relCtx, m.client.rdb, []string{full}, token).Err(); err != nil {
			m.logger.Warn("lease release failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	return release, nil
}
