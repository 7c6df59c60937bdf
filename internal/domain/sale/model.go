// Package sale provides the sale transaction orchestrator: it composes the
// inventory ledger, credit ledger and till manager to commit a sale as one
// atomic unit.
package sale

import (
	"context"
	"time"

	"consigna/internal/core/apperror"
	"consigna/internal/core/entity"
	"consigna/internal/core/id"
	"consigna/internal/core/types"
	"consigna/internal/domain"
)

// Channel is where the sale happened.
type Channel string

const (
	ChannelOnline   Channel = "ONLINE"
	ChannelInPerson Channel = "IN_PERSON"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c == ChannelOnline || c == ChannelInPerson
}

// Status is the lifecycle state of a sale. A sale is never deleted.
type Status string

const (
	// StatusPendingPayment: online sale awaiting the gateway outcome.
	// Products are reserved but not finalized.
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusConfirmed      Status = "CONFIRMED"
	StatusCancelled      Status = "CANCELLED"
	StatusRefunded       Status = "REFUNDED"
)

// Sale is one committed sale transaction.
type Sale struct {
	entity.Base

	// Number is the human-readable receipt number.
	Number string `db:"number" json:"number"`

	Channel       Channel              `db:"channel" json:"channel"`
	PaymentMethod domain.PaymentMethod `db:"payment_method" json:"paymentMethod"`
	Status        Status               `db:"status" json:"status"`

	Lines []Line `db:"-" json:"lines"`

	Subtotal      types.Money `db:"subtotal" json:"subtotal"`
	Discount      types.Money `db:"discount" json:"discount"`
	CreditApplied types.Money `db:"credit_applied" json:"creditApplied"`

	// Total = Subtotal - Discount - CreditApplied, never negative.
	Total types.Money `db:"total" json:"total"`

	// TillSessionID is set when the sale was recorded on an open drawer.
	TillSessionID *id.ID `db:"till_session_id" json:"tillSessionId,omitempty"`

	// AppliedCreditID is the supplier credit consumed by this sale, if any.
	AppliedCreditID *id.ID `db:"applied_credit_id" json:"appliedCreditId,omitempty"`

	ConfirmedAt *time.Time `db:"confirmed_at" json:"confirmedAt,omitempty"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt,omitempty"`
}

// Line is one sold item.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	SaleID id.ID `db:"sale_id" json:"-"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID       `db:"product_id" json:"productId"`
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
	Qty       int         `db:"qty" json:"qty"`
	Discount  types.Money `db:"discount" json:"discount"`

	// Amount is the line's net value: UnitPrice*Qty - Discount. Consignment
	// credits accrue from it.
	Amount types.Money `db:"amount" json:"amount"`
}

// ProductIDs returns the product of every line, in line order.
func (s *Sale) ProductIDs() []id.ID {
	ids := make([]id.ID, len(s.Lines))
	for i, l := range s.Lines {
		ids[i] = l.ProductID
	}
	return ids
}

// Validate implements entity.Validatable.
func (s *Sale) Validate(ctx context.Context) error {
	if !s.Channel.Valid() {
		return apperror.NewValidation("unknown sale channel").
			WithDetail("field", "channel").
			WithDetail("value", string(s.Channel))
	}

	if !s.PaymentMethod.Valid() {
		return apperror.NewValidation("unknown payment method").
			WithDetail("field", "paymentMethod").
			WithDetail("value", string(s.PaymentMethod))
	}

	if len(s.Lines) == 0 {
		return apperror.NewValidation("sale requires at least one line").
			WithDetail("field", "lines")
	}

	if s.Discount.IsNegative() {
		return apperror.NewValidation("discount must not be negative").
			WithDetail("field", "discount")
	}

	seen := make(map[id.ID]struct{}, len(s.Lines))
	for i, line := range s.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if _, dup := seen[line.ProductID]; dup {
			return apperror.NewValidation("product listed twice").
				WithDetail("field", "lines").
				WithDetail("product_id", line.ProductID.String())
		}
		seen[line.ProductID] = struct{}{}

		if line.Qty <= 0 {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.Discount.IsNegative() {
			return apperror.NewValidation("line discount must not be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

var _ entity.Validatable = (*Sale)(nil)
