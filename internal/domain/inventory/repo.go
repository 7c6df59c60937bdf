package inventory

import (
	"context"
	"time"

	"consigna/internal/core/id"
	"consigna/internal/domain"
)

// Repository defines persistence operations for products.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetManyForUpdate loads products by id with row locks, in input order.
	// Missing ids are simply absent from the result.
	GetManyForUpdate(ctx context.Context, productIDs []id.ID) ([]*Product, error)

	// UpdateStatus conditionally transitions every listed product from one
	// availability state to another, setting or clearing sold_at, and
	// returns the number of rows that actually changed. A count lower than
	// len(productIDs) means another transaction changed a row first.
	UpdateStatus(ctx context.Context, productIDs []id.ID, from, to Status, soldAt *time.Time) (int64, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Product], error)
}

// ListFilter extends the common filter with availability criteria.
type ListFilter struct {
	domain.ListFilter

	Status     Status
	Ownership  Ownership
	SupplierID *id.ID
}
