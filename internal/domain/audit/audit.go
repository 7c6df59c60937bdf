// Package audit defines the contract for the financial audit trail.
// Every sale confirmation/cancellation, till close and return decision is
// recorded; the postgres implementation compresses large payloads.
package audit

import (
	"context"

	"consigna/internal/core/id"
)

// Action identifies the audited operation.
type Action string

const (
	ActionSaleConfirmed Action = "sale_confirmed"
	ActionSaleCancelled Action = "sale_cancelled"
	ActionSaleRefunded  Action = "sale_refunded"
	ActionTillOpened    Action = "till_opened"
	ActionTillClosed    Action = "till_closed"
	ActionReturnDecided Action = "return_decided"
	ActionCreditApplied Action = "credit_applied"
)

// Entry is one audit record.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	UserID     string
	Payload    any // serialized to JSON by the recorder
}

// Recorder persists audit entries. Recording is best-effort from the
// caller's perspective but runs inside the caller's transaction when one
// is active.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// Nop is a Recorder that discards entries (tests, tooling).
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Entry) error { return nil }
