// Package till provides cash-drawer session accounting: a bounded period
// from open to close, accumulating per-method sale totals and manual cash
// movements, reconciled once at close.
package till

import (
	"time"

	"consigna/internal/core/entity"
	"consigna/internal/core/id"
	"consigna/internal/core/types"
	"consigna/internal/domain"
)

// Status is the lifecycle state of a till session.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// MovementKind classifies a manual cash movement during a session.
type MovementKind string

const (
	MovementWithdrawal MovementKind = "WITHDRAWAL"
	MovementDeposit    MovementKind = "DEPOSIT"
	MovementExpense    MovementKind = "EXPENSE"
)

// Valid reports whether k is a known movement kind.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementWithdrawal, MovementDeposit, MovementExpense:
		return true
	}
	return false
}

// Session is one cash-drawer period. At most one session is OPEN at a time;
// closing produces an immutable reconciliation snapshot and a session is
// never reopened.
type Session struct {
	entity.Base

	Status Status `db:"status" json:"status"`

	OpeningBalance types.Money `db:"opening_balance" json:"openingBalance"`
	OpenedBy       string      `db:"opened_by" json:"openedBy"`
	OpenedAt       time.Time   `db:"opened_at" json:"openedAt"`

	// Per-method running sale totals.
	CashTotal    types.Money `db:"cash_total" json:"cashTotal"`
	CardTotal    types.Money `db:"card_total" json:"cardTotal"`
	DigitalTotal types.Money `db:"digital_total" json:"digitalTotal"`

	// Manual movement totals.
	WithdrawalTotal types.Money `db:"withdrawal_total" json:"withdrawalTotal"`
	DepositTotal    types.Money `db:"deposit_total" json:"depositTotal"`
	ExpenseTotal    types.Money `db:"expense_total" json:"expenseTotal"`

	// Reconciliation snapshot, written once at close.
	CountedBalance  types.Money `db:"counted_balance" json:"countedBalance"`
	ExpectedBalance types.Money `db:"expected_balance" json:"expectedBalance"`
	Variance        types.Money `db:"variance" json:"variance"`
	ClosedBy        string      `db:"closed_by" json:"closedBy,omitempty"`
	ClosedAt        *time.Time  `db:"closed_at" json:"closedAt,omitempty"`
}

// ExpectedInDrawer is the cash the drawer should hold right now:
// opening + cash sales - expenses - withdrawals + deposits.
func (s *Session) ExpectedInDrawer() types.Money {
	return s.OpeningBalance.
		Add(s.CashTotal).
		Sub(s.ExpenseTotal).
		Sub(s.WithdrawalTotal).
		Add(s.DepositTotal)
}

// AddSale accumulates a confirmed sale amount into the method's total.
func (s *Session) AddSale(method domain.PaymentMethod, amount types.Money) {
	switch method {
	case domain.PaymentCash:
		s.CashTotal = s.CashTotal.Add(amount)
	case domain.PaymentCard:
		s.CardTotal = s.CardTotal.Add(amount)
	case domain.PaymentDigital:
		s.DigitalTotal = s.DigitalTotal.Add(amount)
	}
}

// Movement is one immutable manual cash movement row. Movements are never
// modified or deleted; corrections are inverse entries.
type Movement struct {
	ID        id.ID        `db:"id" json:"id"`
	SessionID id.ID        `db:"session_id" json:"sessionId"`
	Kind      MovementKind `db:"kind" json:"kind"`
	Amount    types.Money  `db:"amount" json:"amount"`
	Note      string       `db:"note" json:"note,omitempty"`
	CreatedBy string       `db:"created_by" json:"createdBy"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
}
