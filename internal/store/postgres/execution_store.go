package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

// ExecutionStore persists ladder results, one row per run. A re-run of the
// same run ID overwrites, which only happens on crash recovery.
type ExecutionStore struct {
	client *Client
}

var _ domain.ExecutionStore = (*ExecutionStore)(nil)

// NewExecutionStore creates a store over an existing client.
func NewExecutionStore(client *Client) *ExecutionStore {
	return &ExecutionStore{client: client}
}

// Insert writes one execution result with its full step trace.
func (s *ExecutionStore) Insert(ctx context.Context, r domain.ExecutionResult) error {
	steps, err := json.Marshal(r.Steps)
	if err != nil {
		return fmt.Errorf("postgres: encode steps: %w", err)
	}
	_, err = s.client.pool.Exec(ctx, `
		INSERT INTO ladder_executions (
			run_id, status, filled_qty, canceled_qty, last_order_id,
			steps, started_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO UPDATE SET
			status = EXCLUDED.status,
			filled_qty = EXCLUDED.filled_qty,
			canceled_qty = EXCLUDED.canceled_qty,
			last_order_id = EXCLUDED.last_order_id,
			steps = EXCLUDED.steps,
			completed_at = EXCLUDED.completed_at`,
		r.RunID, string(r.Status), r.FilledQty, r.CanceledQty, r.LastOrderID,
		steps, r.StartedAt, r.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert execution: %w", err)
	}
	return nil
}

const executionColumns = `run_id, status, filled_qty, canceled_qty, last_order_id,
	steps, started_at, completed_at`

// List returns executions newest first, filtered and paginated by opts.
func (s *ExecutionStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.ExecutionResult, error) {
	q := `SELECT ` + executionColumns + ` FROM ladder_executions WHERE 1=1`
	args := []any{}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		q += fmt.Sprintf(" AND started_at >= $%d", len(args))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		q += fmt.Sprintf(" AND started_at < $%d", len(args))
	}
	q += " ORDER BY started_at DESC"
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		q += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return s.query(ctx, q, args...)
}

// ListBefore returns every execution started before the cutoff, oldest first.
func (s *ExecutionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ExecutionResult, error) {
	q := `SELECT ` + executionColumns + ` FROM ladder_executions WHERE started_at < $1 ORDER BY started_at ASC`
	return s.query(ctx, q, before)
}

func (s *ExecutionStore) query(ctx context.Context, q string, args ...any) ([]domain.ExecutionResult, error) {
	rows, err := s.client.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query executions: %w", err)
	}
	defer rows.Close()

	var out []domain.ExecutionResult
	for rows.Next() {
		var (
			r      domain.ExecutionResult
			status string
			steps  []byte
		)
		if err := rows.Scan(
			&r.RunID, &status, &r.FilledQty, &r.CanceledQty, &r.LastOrderID,
			&steps, &r.StartedAt, &r.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan execution: %w", err)
		}
		r.Status = domain.LadderStatus(status)
		if err := json.Unmarshal(steps, &r.Steps); err != nil {
			return nil, fmt.Errorf("postgres: decode steps: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate executions: %w", err)
	}
	return out, nil
}
