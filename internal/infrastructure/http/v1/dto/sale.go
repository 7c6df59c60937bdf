package dto

import (
	"consigna/internal/domain"
	"consigna/internal/domain/sale"
)

// SaleLineRequest is one requested item.
type SaleLineRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Qty       int    `json:"qty" binding:"required,gt=0"`
	Discount  string `json:"discount,omitempty"`
}

// CreateSaleRequest commits a sale.
type CreateSaleRequest struct {
	Channel       string            `json:"channel" binding:"required"`
	PaymentMethod string            `json:"paymentMethod" binding:"required"`
	Lines         []SaleLineRequest `json:"lines" binding:"required,min=1,dive"`
	Discount      string            `json:"discount,omitempty"`
	CreditID      *string           `json:"creditId,omitempty"`
}

// ToInput converts the request into orchestrator input.
func (r *CreateSaleRequest) ToInput(userID string) (sale.CreateInput, error) {
	input := sale.CreateInput{
		Channel:       sale.Channel(r.Channel),
		PaymentMethod: domain.PaymentMethod(r.PaymentMethod),
		UserID:        userID,
	}

	discount, err := ParseMoney("discount", r.Discount)
	if err != nil {
		return input, err
	}
	input.Discount = discount

	input.CreditID, err = ParseOptionalID("creditId", r.CreditID)
	if err != nil {
		return input, err
	}

	for i, line := range r.Lines {
		productID, err := ParseID("lines.productId", line.ProductID)
		if err != nil {
			return input, err
		}
		lineDiscount, err := ParseMoney("lines.discount", line.Discount)
		if err != nil {
			return input, err
		}
		input.Lines = append(input.Lines, sale.LineInput{
			ProductID: productID,
			Qty:       r.Lines[i].Qty,
			Discount:  lineDiscount,
		})
	}

	return input, nil
}

// ConfirmSaleRequest carries the gateway outcome for a pending sale.
type ConfirmSaleRequest struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// ToOutcome converts the request.
func (r *ConfirmSaleRequest) ToOutcome() sale.GatewayOutcome {
	return sale.GatewayOutcome{
		Success:   r.Success,
		Reference: r.Reference,
		Reason:    r.Reason,
	}
}

// CreateSaleResponse is the committed sale plus the unspent credit
// remainder, when any.
type CreateSaleResponse struct {
	Sale            *sale.Sale `json:"sale"`
	CreditRemainder string     `json:"creditRemainder,omitempty"`
}
