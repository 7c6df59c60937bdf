package returns

import (
	"context"

	"consigna/internal/core/id"
	"consigna/internal/domain"
)

// Repository defines persistence operations for return requests.
type Repository interface {
	Create(ctx context.Context, r *ReturnRequest) error
	Update(ctx context.Context, r *ReturnRequest) error

	GetByID(ctx context.Context, requestID id.ID) (*ReturnRequest, error)
	GetForUpdate(ctx context.Context, requestID id.ID) (*ReturnRequest, error)

	// HasDecision reports whether any request for the sale was approved or
	// declined. The sale orchestrator refuses to cancel such sales.
	HasDecision(ctx context.Context, saleID id.ID) (bool, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*ReturnRequest], error)
}

// ListFilter extends the common filter with return-request criteria.
type ListFilter struct {
	domain.ListFilter

	Status Status
	SaleID *id.ID
}
