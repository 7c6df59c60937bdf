// Package supplier provides the consignment partner catalog.
package supplier

import (
	"context"

	"github.com/shopspring/decimal"

	"consigna/internal/core/apperror"
	"consigna/internal/core/entity"
	"consigna/internal/core/types"
)

// Supplier is a consignment partner. Consigned products reference a supplier
// and each sold consigned item accrues a credit owed to them.
type Supplier struct {
	entity.Base

	Name string `db:"name" json:"name"`

	// Percentage is the supplier's share of a consigned item's sale price,
	// 0..100. Credits snapshot the value in force at accrual time; changing
	// it here never rewrites existing credits.
	Percentage types.Money `db:"percentage" json:"percentage"`

	Active bool `db:"active" json:"active"`
}

// New creates an active supplier.
func New(name string, percentage types.Money) *Supplier {
	return &Supplier{
		Name:       name,
		Percentage: percentage,
		Active:     true,
	}
}

// Validate implements entity.Validatable.
func (s *Supplier) Validate(ctx context.Context) error {
	if s.Name == "" {
		return apperror.NewValidation("supplier name is required").
			WithDetail("field", "name")
	}

	hundred := decimal.NewFromInt(100)
	if s.Percentage.IsNegative() || s.Percentage.GreaterThan(hundred) {
		return apperror.NewValidation("repayment percentage must be between 0 and 100").
			WithDetail("field", "percentage").
			WithDetail("value", s.Percentage.String())
	}

	return nil
}

var _ entity.Validatable = (*Supplier)(nil)
