package supplier

import (
	"context"

	"consigna/internal/core/id"
	"consigna/internal/domain"
)

// Repository defines persistence operations for suppliers.
type Repository interface {
	Create(ctx context.Context, s *Supplier) error
	Update(ctx context.Context, s *Supplier) error
	GetByID(ctx context.Context, supplierID id.ID) (*Supplier, error)
	List(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Supplier], error)
}

// Reader is the read-only view the credit ledger depends on.
type Reader interface {
	GetByID(ctx context.Context, supplierID id.ID) (*Supplier, error)
}
