package inventory

import (
	"context"
	"fmt"
	"time"

	"consigna/internal/core/apperror"
	"consigna/internal/core/clock"
	"consigna/internal/core/entity"
	"consigna/internal/core/id"
	"consigna/internal/core/tx"
	"consigna/internal/domain"
	"consigna/internal/domain/supplier"
	"consigna/pkg/logger"
	"consigna/pkg/numerator"
)

// Ledger provides availability-state operations for products.
//
// Reserve, MarkSold and Restore never open their own transaction: they are
// building blocks the sale orchestrator and return workflow call inside
// theirs. Intake operations (Register, Remove) manage their own.
type Ledger struct {
	repo      Repository
	suppliers supplier.Reader
	numerator numerator.Generator
	txManager tx.Manager
	clock     clock.Clock
}

// NewLedger creates a new inventory ledger.
func NewLedger(repo Repository, suppliers supplier.Reader, num numerator.Generator, txManager tx.Manager, clk clock.Clock) *Ledger {
	return &Ledger{
		repo:      repo,
		suppliers: suppliers,
		numerator: num,
		txManager: txManager,
		clock:     clk,
	}
}

// Reserve locks every listed product and checks it is sellable. All-or-
// nothing: the first product that is missing, already sold or removed fails
// the whole call, naming the offending item. On success the locked rows are
// returned so callers can read prices and supplier refs without re-querying.
func (l *Ledger) Reserve(ctx context.Context, productIDs []id.ID) ([]*Product, error) {
	if len(productIDs) == 0 {
		return nil, apperror.NewValidation("no products to reserve")
	}

	products, err := l.repo.GetManyForUpdate(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}

	byID := make(map[id.ID]*Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	ordered := make([]*Product, 0, len(productIDs))
	for _, pid := range productIDs {
		p, ok := byID[pid]
		if !ok {
			return nil, apperror.NewNotFound("product", pid.String())
		}
		switch p.Status {
		case StatusActive:
			// sellable
		case StatusSold:
			return nil, apperror.NewItemUnavailable(pid.String(), "already sold")
		case StatusRemoved:
			return nil, apperror.NewItemUnavailable(pid.String(), "removed from sale")
		default:
			return nil, apperror.NewInternal(fmt.Errorf("product %s has unknown status %q", pid, p.Status))
		}
		ordered = append(ordered, p)
	}

	return ordered, nil
}

// MarkSold transitions the products ACTIVE -> SOLD, stamping sold-at.
// Callable only after a successful Reserve in the same transaction; if a
// row slipped away regardless, the conditional update comes up short and
// the whole operation fails.
func (l *Ledger) MarkSold(ctx context.Context, productIDs []id.ID, ts time.Time) error {
	ts = ts.UTC()
	affected, err := l.repo.UpdateStatus(ctx, productIDs, StatusActive, StatusSold, &ts)
	if err != nil {
		return fmt.Errorf("mark sold: %w", err)
	}
	if affected != int64(len(productIDs)) {
		return apperror.NewConflict(apperror.CodeItemUnavailable, "some products are no longer available").
			WithDetail("expected", len(productIDs)).
			WithDetail("updated", affected)
	}
	return nil
}

// Restore transitions the products SOLD -> ACTIVE and clears sold-at.
// Fails if any product is not currently sold.
func (l *Ledger) Restore(ctx context.Context, productIDs []id.ID) error {
	affected, err := l.repo.UpdateStatus(ctx, productIDs, StatusSold, StatusActive, nil)
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	if affected != int64(len(productIDs)) {
		return apperror.NewBusinessRule(apperror.CodeProductNotSold, "some products are not in sold state").
			WithDetail("expected", len(productIDs)).
			WithDetail("updated", affected)
	}
	return nil
}

// Register takes a product into stock, assigning a SKU. Consigned products
// must reference an existing supplier; a missing supplier row aborts intake.
func (l *Ledger) Register(ctx context.Context, p *Product) error {
	p.Base = entity.NewBase(l.clock.Now())
	p.Status = StatusActive

	if err := p.Validate(ctx); err != nil {
		return err
	}

	if p.IsConsigned() {
		sup, err := l.suppliers.GetByID(ctx, *p.SupplierID)
		if err != nil {
			return err
		}
		if !sup.Active {
			return apperror.NewValidation("supplier is not active").
				WithDetail("supplier_id", sup.ID.String())
		}
	}

	if p.SKU == "" {
		sku, err := l.numerator.Next(ctx, numerator.DefaultConfig("ITM"), l.clock.Now())
		if err != nil {
			return fmt.Errorf("generate sku: %w", err)
		}
		p.SKU = sku
	}

	err := l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return l.repo.Create(ctx, p)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "product registered", "id", p.ID, "sku", p.SKU, "ownership", p.Ownership)
	return nil
}

// Remove pulls an ACTIVE product from sale (ACTIVE -> REMOVED). Sold
// products cannot be removed; their history is permanent.
func (l *Ledger) Remove(ctx context.Context, productID id.ID) error {
	return l.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		affected, err := l.repo.UpdateStatus(ctx, []id.ID{productID}, StatusActive, StatusRemoved, nil)
		if err != nil {
			return fmt.Errorf("remove product: %w", err)
		}
		if affected == 0 {
			return apperror.NewItemUnavailable(productID.String(), "not active")
		}
		return nil
	})
}

// GetByID retrieves a product.
func (l *Ledger) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	return l.repo.GetByID(ctx, productID)
}

// List retrieves products with filtering.
func (l *Ledger) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Product], error) {
	return l.repo.List(ctx, filter)
}
