package kubernetes

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonny/kube-actions/internal/domain/model"
	"github.com/jonny/kube-actions/internal/domain/port/outbound"
)

// NoopRunner is a dry-run ProcessRunner for local development without a
// cluster or a kubectl binary. Every command "succeeds" with empty output.
// The policy is still enforced so denied requests behave as in production.
type NoopRunner struct {
	policy *Policy
	logger *slog.Logger
}

// NewNoopRunner creates a NoopRunner suitable for local dev mode.
func NewNoopRunner(policy *Policy, logger *slog.Logger) *NoopRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopRunner{policy: policy, logger: logger}
}

var _ outbound.ProcessRunner = (*NoopRunner)(nil)

func (n *NoopRunner) Run(_ context.Context, spec model.CommandSpec, _ time.Duration) (model.ExecutionResult, error) {
	if n.policy != nil {
		if err := n.policy.Check(spec.Args); err != nil {
			return model.ExecutionResult{Command: spec, ExitCode: -1},
				&model.ExecutionError{Kind: model.ErrorKindDenied, Command: spec.String(), Err: err}
		}
	}
	n.logger.Info("dry run: kubectl command skipped", "command", spec.String())
	return model.ExecutionResult{Command: spec}, nil
}

func (n *NoopRunner) HealthCheck(_ context.Context) error {
	return nil
}
