package inbound

import (
	"context"

	"github.com/jonny/kube-actions/internal/domain/model"
	"github.com/jonny/kube-actions/internal/domain/port/outbound"
)

// MutationPort is what the HTTP facade needs from the domain.
type MutationPort interface {
	Execute(ctx context.Context, action model.Action, req model.MutationRequest) model.OrchestrationOutcome
	Apply(ctx context.Context, req model.MutationRequest) (model.OrchestrationOutcome, []model.AppliedResource)
	ListResources(ctx context.Context, kind, namespace string) ([]model.ResourceRef, error)
	GetExecution(ctx context.Context, id string) (model.Execution, error)
	ListExecutions(ctx context.Context, filter outbound.ExecutionFilter, page outbound.PageRequest) (outbound.PageResult[model.Execution], error)
}
