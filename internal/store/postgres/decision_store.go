package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

// DecisionStore persists guard decisions.
type DecisionStore struct {
	client *Client
}

var _ domain.DecisionStore = (*DecisionStore)(nil)

// NewDecisionStore creates a store over an existing client.
func NewDecisionStore(client *Client) *DecisionStore {
	return &DecisionStore{client: client}
}

// Insert writes one decision.
func (s *DecisionStore) Insert(ctx context.Context, d domain.Decision) error {
	legSymbols, err := json.Marshal(d.LegSymbols[:])
	if err != nil {
		return fmt.Errorf("postgres: encode leg symbols: %w", err)
	}
	legQty, err := json.Marshal(d.LegQty[:])
	if err != nil {
		return fmt.Errorf("postgres: encode leg qty: %w", err)
	}

	_, err = s.client.pool.Exec(ctx, `
		INSERT INTO guard_decisions (
			id, run_id, verdict, remaining_qty, open_units, qty_target,
			reason, signal_date, structure, leg_symbols, leg_qty,
			underlying_last, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		d.ID, d.RunID, string(d.Verdict), d.RemainingQty, d.OpenUnits, d.QtyTarget,
		d.Reason, d.SignalDate, string(d.Structure), legSymbols, legQty,
		d.UnderlyingLast, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert decision: %w", err)
	}
	return nil
}

const decisionColumns = `id, run_id, verdict, remaining_qty, open_units, qty_target,
	reason, signal_date, structure, leg_symbols, leg_qty, underlying_last, created_at`

// List returns decisions newest first, filtered and paginated by opts.
func (s *DecisionStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Decision, error) {
	q := `SELECT ` + decisionColumns + ` FROM guard_decisions WHERE 1=1`
	args := []any{}
	if opts.Since != nil {
		args = append(args, *opts.Since)
		q += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if opts.Until != nil {
		args = append(args, *opts.Until)
		q += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	q += " ORDER BY created_at DESC"
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

// ListBefore returns every decision created before the cutoff, oldest first.
// Used by the archiver.
func (s *DecisionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Decision, error) {
	q := `SELECT ` + decisionColumns + ` FROM guard_decisions WHERE created_at < $1 ORDER BY created_at ASC`
	return s.query(ctx, q, before)
}

func (s *DecisionStore) query(ctx context.Context, q string, args ...any) ([]domain.Decision, error) {
	rows, err := s.client.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query decisions: %w", err)
	}
	defer rows.Close()

	var out []domain.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate decisions: %w", err)
	}
	return out, nil
}

func scanDecision(row pgx.Row) (domain.Decision, error) {
	var (
		d          domain.Decision
		verdict    string
		structure  string
		legSymbols []byte
		legQty     []byte
	)
	if err := row.Scan(
		&d.ID, &d.RunID, &verdict, &d.RemainingQty, &d.OpenUnits, &d.QtyTarget,
		&d.Reason, &d.SignalDate, &structure, &legSymbols, &legQty,
		&d.UnderlyingLast, &d.CreatedAt,
	); err != nil {
		return domain.Decision{}, fmt.Errorf("postgres: scan decision: %w", err)
	}
	d.Verdict = domain.Verdict(verdict)
	d.Structure = domain.StructureType(structure)

	var syms []string
	if err := json.Unmarshal(legSymbols, &syms); err == nil {
		copy(d.LegSymbols[:], syms)
	}
	var qtys []float64
	if err := json.Unmarshal(legQty, &qtys); err == nil {
		copy(d.LegQty[:], qtys)
	}
	return d, nil
}
