// Package returns implements the return/exchange workflow for confirmed
// sales. Requests are reviewed by an operator; an approved refund reverses
// the sale's inventory, an approved exchange only links the replacement.
package returns

import (
	"context"
	"time"

	"consigna/internal/core/apperror"
	"consigna/internal/core/entity"
	"consigna/internal/core/id"
)

// Kind is what the customer asked for.
type Kind string

const (
	KindRefund   Kind = "REFUND"
	KindExchange Kind = "EXCHANGE"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindRefund || k == KindExchange
}

// Status is the review state of a request. APPROVED and DECLINED are
// terminal; a request is decided at most once.
type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusApproved  Status = "APPROVED"
	StatusDeclined  Status = "DECLINED"
)

// Decided reports whether the request has reached a terminal state.
func (s Status) Decided() bool {
	return s == StatusApproved || s == StatusDeclined
}

// ReturnRequest is a customer's return or exchange request against one sale.
type ReturnRequest struct {
	entity.Base

	SaleID id.ID  `db:"sale_id" json:"saleId"`
	Kind   Kind   `db:"kind" json:"kind"`
	Reason string `db:"reason" json:"reason"`

	Status Status `db:"status" json:"status"`

	// DecisionNote is the reviewer's rationale, required on decline.
	DecisionNote string     `db:"decision_note" json:"decisionNote,omitempty"`
	DecidedBy    string     `db:"decided_by" json:"decidedBy,omitempty"`
	DecidedAt    *time.Time `db:"decided_at" json:"decidedAt,omitempty"`

	// ReplacementSaleID links the new sale of an approved exchange.
	ReplacementSaleID *id.ID `db:"replacement_sale_id" json:"replacementSaleId,omitempty"`
}

// Validate implements entity.Validatable.
func (r *ReturnRequest) Validate(ctx context.Context) error {
	if id.IsNil(r.SaleID) {
		return apperror.NewValidation("sale is required").
			WithDetail("field", "saleId")
	}
	if !r.Kind.Valid() {
		return apperror.NewValidation("unknown return kind").
			WithDetail("field", "kind").
			WithDetail("value", string(r.Kind))
	}
	if r.Reason == "" {
		return apperror.NewValidation("reason is required").
			WithDetail("field", "reason")
	}
	return nil
}

var _ entity.Validatable = (*ReturnRequest)(nil)
