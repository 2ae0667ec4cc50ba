package outbound

import (
	"context"
	"time"

	"github.com/jonny/kube-actions/internal/domain/model"
)

// ProcessRunner runs one external command per call. A non-zero exit code is
// returned in the result, not as an error; errors are *model.ExecutionError.
type ProcessRunner interface {
	Run(ctx context.Context, spec model.CommandSpec, timeout time.Duration) (model.ExecutionResult, error)
	HealthCheck(ctx context.Context) error
}
