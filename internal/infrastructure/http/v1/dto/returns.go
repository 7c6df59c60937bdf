package dto

import (
	"consigna/internal/domain/returns"
)

// CreateReturnRequest files a return or exchange request.
type CreateReturnRequest struct {
	SaleID string `json:"saleId" binding:"required"`
	Kind   string `json:"kind" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// DecideReturnRequest applies the reviewer's verdict.
type DecideReturnRequest struct {
	Approve           bool    `json:"approve"`
	Note              string  `json:"note,omitempty"`
	ReplacementSaleID *string `json:"replacementSaleId,omitempty"`
}

// ToDecision converts the request.
func (r *DecideReturnRequest) ToDecision() (returns.Decision, error) {
	d := returns.Decision{
		Approve: r.Approve,
		Note:    r.Note,
	}
	replacementID, err := ParseOptionalID("replacementSaleId", r.ReplacementSaleID)
	if err != nil {
		return d, err
	}
	d.ReplacementSaleID = replacementID
	return d, nil
}
