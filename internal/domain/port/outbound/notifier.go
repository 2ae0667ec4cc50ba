package outbound

import "context"

type OutcomeNotification struct {
	ExecutionID string
	Action      string
	Kind        string
	Namespace   string
	Names       []string
	Status      string
	ErrorKind   string
	Error       string
	Commands    []string
}

// Notifier tells operators about mutations that did not fully succeed.
type Notifier interface {
	NotifyOutcome(ctx context.Context, notification OutcomeNotification) error
}
