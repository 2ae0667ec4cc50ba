package persistence

import (
	"context"
	"fmt"

	"github.com/jonny/kube-actions/internal/domain/model"
	"github.com/jonny/kube-actions/internal/domain/port/outbound"
)

// NoopExecutionRepo discards audit records. Used when audit.enabled is false.
type NoopExecutionRepo struct{}

func NewNoopExecutionRepo() *NoopExecutionRepo {
	return &NoopExecutionRepo{}
}

var _ outbound.ExecutionRepository = (*NoopExecutionRepo)(nil)

func (NoopExecutionRepo) Create(context.Context, model.Execution) error { return nil }

func (NoopExecutionRepo) GetByID(_ context.Context, id string) (model.Execution, error) {
	return model.Execution{}, fmt.Errorf("execution %s %w: audit is disabled", id, outbound.ErrNotFound)
}

func (NoopExecutionRepo) List(_ context.Context, _ outbound.ExecutionFilter, page outbound.PageRequest) (outbound.PageResult[model.Execution], error) {
	return outbound.PageResult[model.Execution]{Items: []model.Execution{}, Page: page.Page, Size: page.Size}, nil
}
