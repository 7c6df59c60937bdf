// Package credit provides the consignment credit ledger: money owed to
// suppliers for consigned items sold, with a maturation schedule.
//
// The ledger is append-only and directed: a credit records the sale that
// spawned it and, once spent, the sale that consumed it. Sales never
// back-reference their credits.
package credit

import (
	"time"

	"consigna/internal/core/entity"
	"consigna/internal/core/id"
	"consigna/internal/core/types"
)

// Status is the lifecycle state of a credit.
// PENDING -> RELEASED happens only at/after maturity via the sweep;
// RELEASED -> USED only on explicit application. Nothing else mutates a
// credit and credits are never deleted.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusReleased Status = "RELEASED"
	StatusUsed     Status = "USED"
)

// Credit is one ledger entry owed to a supplier for a sold consigned line.
type Credit struct {
	entity.Base

	SupplierID id.ID `db:"supplier_id" json:"supplierId"`

	// SaleID is the sale that spawned this credit.
	SaleID id.ID `db:"sale_id" json:"saleId"`

	// SaleValue is the net value of the consigned line.
	SaleValue types.Money `db:"sale_value" json:"saleValue"`

	// Percentage is the supplier rate snapshotted at accrual time. Later
	// changes to the supplier's rate never touch it.
	Percentage types.Money `db:"percentage" json:"percentage"`

	// Value = Round2(SaleValue * Percentage / 100), fixed at accrual.
	Value types.Money `db:"value" json:"value"`

	Status Status `db:"status" json:"status"`

	// MaturesAt is accrual time plus the holding period.
	MaturesAt  time.Time  `db:"matures_at" json:"maturesAt"`
	ReleasedAt *time.Time `db:"released_at" json:"releasedAt,omitempty"`

	// ConsumedBySaleID is the sale this credit paid for, once USED.
	ConsumedBySaleID *id.ID `db:"consumed_by_sale_id" json:"consumedBySaleId,omitempty"`
}
