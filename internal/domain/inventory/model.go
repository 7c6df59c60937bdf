// Package inventory provides the per-item availability ledger for sellable
// products. Every product is a unique secondhand item; availability moves
// ACTIVE -> SOLD (sale confirmation) and SOLD -> ACTIVE (cancel/refund) only
// through the Ledger, never directly.
package inventory

import (
	"context"
	"time"

	"consigna/internal/core/apperror"
	"consigna/internal/core/entity"
	"consigna/internal/core/id"
	"consigna/internal/core/types"
)

// Ownership distinguishes store-owned stock from consigned goods.
type Ownership string

const (
	OwnershipOwned     Ownership = "OWNED"
	OwnershipConsigned Ownership = "CONSIGNED"
)

// Status is the availability state of a product.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusSold    Status = "SOLD"
	StatusRemoved Status = "REMOVED"
)

// Product is a single sellable unit. A product that has ever been sold is
// never physically deleted.
type Product struct {
	entity.Base

	SKU       string      `db:"sku" json:"sku"`
	Name      string      `db:"name" json:"name"`
	Price     types.Money `db:"price" json:"price"`
	Ownership Ownership   `db:"ownership" json:"ownership"`

	// SupplierID is required iff the product is consigned.
	SupplierID *id.ID `db:"supplier_id" json:"supplierId,omitempty"`

	Status Status     `db:"status" json:"status"`
	SoldAt *time.Time `db:"sold_at" json:"soldAt,omitempty"`
}

// IsConsigned reports whether the product belongs to a supplier.
func (p *Product) IsConsigned() bool {
	return p.Ownership == OwnershipConsigned
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("product name is required").
			WithDetail("field", "name")
	}

	if p.Price.IsNegative() {
		return apperror.NewValidation("price must not be negative").
			WithDetail("field", "price")
	}

	switch p.Ownership {
	case OwnershipOwned:
		if p.SupplierID != nil {
			return apperror.NewValidation("owned products must not reference a supplier").
				WithDetail("field", "supplierId")
		}
	case OwnershipConsigned:
		if p.SupplierID == nil || id.IsNil(*p.SupplierID) {
			return apperror.NewValidation("consigned products require a supplier").
				WithDetail("field", "supplierId")
		}
	default:
		return apperror.NewValidation("unknown ownership kind").
			WithDetail("field", "ownership").
			WithDetail("value", string(p.Ownership))
	}

	return nil
}

var _ entity.Validatable = (*Product)(nil)
