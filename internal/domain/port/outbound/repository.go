package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/jonny/kube-actions/internal/domain/model"
)

// ErrNotFound is wrapped by repositories when a lookup matches nothing.
var ErrNotFound = errors.New("not found")

type PageRequest struct {
	Page    int
	Size    int
	OrderBy string
	Desc    bool
}

type PageResult[T any] struct {
	Items      []T
	TotalCount int64
	Page       int
	Size       int
}

type ExecutionFilter struct {
	Action    string
	Status    string
	Namespace string
	Since     *time.Time
	Until     *time.Time
}

// ExecutionRepository stores the audit trail of orchestrated requests.
type ExecutionRepository interface {
	Create(ctx context.Context, execution model.Execution) error
	GetByID(ctx context.Context, id string) (model.Execution, error)
	List(ctx context.Context, filter ExecutionFilter, page PageRequest) (PageResult[model.Execution], error)
}
