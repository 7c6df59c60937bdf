package credit

import (
	"context"
	"time"

	"consigna/internal/core/id"
	"consigna/internal/core/types"
	"consigna/internal/domain"
)

// Repository defines persistence operations for the credit ledger.
type Repository interface {
	Create(ctx context.Context, c *Credit) error
	GetByID(ctx context.Context, creditID id.ID) (*Credit, error)
	GetForUpdate(ctx context.Context, creditID id.ID) (*Credit, error)
	Update(ctx context.Context, c *Credit) error

	// ReleaseMatured transitions to RELEASED every PENDING credit whose
	// maturity is at or before asOf and whose originating sale is still
	// confirmed. Returns the number of credits released.
	ReleaseMatured(ctx context.Context, asOf, releasedAt time.Time) (int64, error)

	// SumByStatus totals credit values for a supplier in the given status.
	SumByStatus(ctx context.Context, supplierID id.ID, status Status) (types.Money, error)

	ListBySale(ctx context.Context, saleID id.ID) ([]*Credit, error)
	ListBySupplier(ctx context.Context, supplierID id.ID, filter domain.ListFilter) (domain.ListResult[*Credit], error)
}
