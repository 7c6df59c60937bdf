package sale

import (
	"context"
	"time"

	"consigna/internal/core/id"
	"consigna/internal/domain"
)

// Repository defines persistence operations for sales.
type Repository interface {
	Create(ctx context.Context, s *Sale) error
	SaveLines(ctx context.Context, saleID id.ID, lines []Line) error
	Update(ctx context.Context, s *Sale) error

	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)
	GetLines(ctx context.Context, saleID id.ID) ([]Line, error)

	// ListStalePending returns ids of PENDING_PAYMENT sales created at or
	// before the cutoff, for timeout cancellation.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]id.ID, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error)
}

// ReturnChecker reports whether a sale already has a decided return request.
// Implemented by the return-request store; a decided return blocks
// cancellation of the sale.
type ReturnChecker interface {
	HasDecision(ctx context.Context, saleID id.ID) (bool, error)
}

// ListFilter extends the common filter with sale criteria.
type ListFilter struct {
	domain.ListFilter

	Status  Status
	Channel Channel
}
