package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

// Archiver exports decision and execution history older than a cutoff to
// object storage. Export only; rows are never deleted here.
type Archiver struct {
	client     *Client
	decisions  domain.DecisionStore
	executions domain.ExecutionStore
	logger     *slog.Logger
}

// NewArchiver wires an Archiver.
func NewArchiver(client *Client, decisions domain.DecisionStore, executions domain.ExecutionStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		client:     client,
		decisions:  decisions,
		executions: executions,
		logger:     logger.With(slog.String("component", "archiver")),
	}
}

// Archive exports both tables in parallel. Object keys embed the cutoff so
// repeated runs with the same cutoff overwrite rather than accumulate.
func (a *Archiver) Archive(ctx context.Context, before time.Time) error {
	stamp := before.UTC().Format("2006-01-02")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		recs, err := a.decisions.ListBefore(gctx, before)
		if err != nil {
			return fmt.Errorf("list decisions: %w", err)
		}
		return a.putJSONL(gctx, "decisions/"+stamp+".jsonl", asAny(recs))
	})
	g.Go(func() error {
		recs, err := a.executions.ListBefore(gctx, before)
		if err != nil {
			return fmt.Errorf("list executions: %w", err)
		}
		return a.putJSONL(gctx, "executions/"+stamp+".jsonl", asAny(recs))
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("s3: archive: %w", err)
	}
	a.logger.Info("archive complete", slog.String("cutoff", stamp))
	return nil
}

func (a *Archiver) putJSONL(ctx context.Context, name string, records []any) error {
	if len(records) == 0 {
		a.logger.Info("nothing to archive", slog.String("object", name))
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
	}
	if err := a.client.Put(ctx, name, "application/x-ndjson", buf.Bytes()); err != nil {
		return err
	}
	a.logger.Info("archived",
		slog.String("object", name),
		slog.Int("records", len(records)),
	)
	return nil
}

func asAny[T any](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
