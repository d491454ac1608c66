package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// DecisionStore persists guard decisions.
type DecisionStore interface {
	Insert(ctx context.Context, d Decision) error
	List(ctx context.Context, opts ListOpts) ([]Decision, error)
	ListBefore(ctx context.Context, before time.Time) ([]Decision, error)
}

// ExecutionStore persists placer results.
type ExecutionStore interface {
	Insert(ctx context.Context, r ExecutionResult) error
	List(ctx context.Context, opts ListOpts) ([]ExecutionResult, error)
	ListBefore(ctx context.Context, before time.Time) ([]ExecutionResult, error)
}

// LeaseManager grants single-flight execution leases keyed by run identity.
// Acquire returns an unlock function that must be called to release the
// lease; it is safe to call more than once. ErrLeaseHeld is returned when
// another holder owns the key.
type LeaseManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
