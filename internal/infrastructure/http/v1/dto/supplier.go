package dto

import (
	"consigna/internal/domain/supplier"
)

// CreateSupplierRequest registers a consignment partner.
type CreateSupplierRequest struct {
	Name       string `json:"name" binding:"required"`
	Percentage string `json:"percentage" binding:"required"`
}

// ToEntity converts the request into a supplier.
func (r *CreateSupplierRequest) ToEntity() (*supplier.Supplier, error) {
	pct, err := ParseMoney("percentage", r.Percentage)
	if err != nil {
		return nil, err
	}
	return supplier.New(r.Name, pct), nil
}

// UpdateSupplierRequest changes supplier terms. A percentage change applies
// to future accruals only.
type UpdateSupplierRequest struct {
	Name       *string `json:"name,omitempty"`
	Percentage *string `json:"percentage,omitempty"`
	Active     *bool   `json:"active,omitempty"`
}

// ApplyTo patches the existing supplier.
func (r *UpdateSupplierRequest) ApplyTo(s *supplier.Supplier) error {
	if r.Name != nil {
		s.Name = *r.Name
	}
	if r.Percentage != nil {
		pct, err := ParseMoney("percentage", *r.Percentage)
		if err != nil {
			return err
		}
		s.Percentage = pct
	}
	if r.Active != nil {
		s.Active = *r.Active
	}
	return nil
}
