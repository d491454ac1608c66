// Package notify fans run milestones out to chat webhooks.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/michaelgebbelay/gammawizzard/internal/domain"
)

// Sender delivers one formatted message to one channel.
type Sender interface {
	Name() string
	Send(ctx context.Context, title, message string) error
}

// Notifier fans messages out to all configured senders. Delivery failures
// are logged and never surfaced to the run.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// New wires a Notifier; a nil or empty sender list is valid and makes every
// notification a no-op.
func New(logger *slog.Logger, senders ...Sender) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notify")),
	}
}

// DecisionMade announces the guard verdict for a run.
func (n *Notifier) DecisionMade(ctx context.Context, dec domain.Decision) {
	title, msg := formatDecision(dec)
	n.send(ctx, title, msg)
}

// LadderDone announces the terminal ladder result for a run.
func (n *Notifier) LadderDone(ctx context.Context, res domain.ExecutionResult) {
	title, msg := formatExecution(res)
	n.send(ctx, title, msg)
}

func (n *Notifier) send(ctx context.Context, title, message string) {
	for _, s := range n.senders {
		sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := s.Send(sendCtx, title, message); err != nil {
			n.logger.Warn("notification failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
}
