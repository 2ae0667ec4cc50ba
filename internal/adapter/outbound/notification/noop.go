package notification

import (
	"context"
	"log/slog"

	"github.com/jonny/kube-actions/internal/domain/port/outbound"
)

// NoopNotifier is a no-op notifier that logs notifications instead of sending them.
// Used in local development when Slack is not configured.
type NoopNotifier struct {
	logger *slog.Logger
}

// NewNoopNotifier creates a new NoopNotifier.
func NewNoopNotifier(logger *slog.Logger) *NoopNotifier {
	return &NoopNotifier{logger: logger}
}

var _ outbound.Notifier = (*NoopNotifier)(nil)

func (n *NoopNotifier) NotifyOutcome(_ context.Context, notification outbound.OutcomeNotification) error {
	n.logger.Info("noop: outcome notification",
		"executionID", notification.ExecutionID,
		"action", notification.Action,
		"namespace", notification.Namespace,
		"status", notification.Status,
		"errorKind", notification.ErrorKind,
	)
	return nil
}
