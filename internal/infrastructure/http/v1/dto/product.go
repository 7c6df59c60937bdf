package dto

import (
	"consigna/internal/domain/inventory"
)

// RegisterProductRequest takes a single secondhand item into stock.
type RegisterProductRequest struct {
	Name       string  `json:"name" binding:"required"`
	Price      string  `json:"price" binding:"required"`
	Ownership  string  `json:"ownership" binding:"required"`
	SupplierID *string `json:"supplierId,omitempty"`
}

// ToEntity converts the request into a product.
func (r *RegisterProductRequest) ToEntity() (*inventory.Product, error) {
	price, err := ParseMoney("price", r.Price)
	if err != nil {
		return nil, err
	}
	supplierID, err := ParseOptionalID("supplierId", r.SupplierID)
	if err != nil {
		return nil, err
	}

	return &inventory.Product{
		Name:       r.Name,
		Price:      price,
		Ownership:  inventory.Ownership(r.Ownership),
		SupplierID: supplierID,
	}, nil
}
