package credit

import (
	"context"
	"fmt"
	"time"

	"consigna/internal/core/apperror"
	"consigna/internal/core/clock"
	"consigna/internal/core/entity"
	"consigna/internal/core/id"
	"consigna/internal/core/tx"
	"consigna/internal/core/types"
	"consigna/internal/domain"
	"consigna/internal/domain/supplier"
	"consigna/pkg/logger"
)

// DefaultHoldingPeriod is how long a credit stays PENDING before the sweep
// may release it. Covers the statutory return window with margin.
const DefaultHoldingPeriod = 30 * 24 * time.Hour

// Service provides business operations for the consignment credit ledger.
type Service struct {
	repo          Repository
	suppliers     supplier.Reader
	txManager     tx.Manager
	clock         clock.Clock
	holdingPeriod time.Duration
}

// NewService creates a new credit ledger service.
func NewService(repo Repository, suppliers supplier.Reader, txManager tx.Manager, clk clock.Clock, holdingPeriod time.Duration) *Service {
	if holdingPeriod <= 0 {
		holdingPeriod = DefaultHoldingPeriod
	}
	return &Service{
		repo:          repo,
		suppliers:     suppliers,
		txManager:     txManager,
		clock:         clk,
		holdingPeriod: holdingPeriod,
	}
}

// Accrue creates a PENDING credit for a sold consigned line, snapshotting
// the supplier's current repayment percentage. It must run inside the same
// transaction that confirms the sale; it never opens its own.
func (s *Service) Accrue(ctx context.Context, supplierID, saleID id.ID, saleValue types.Money) (*Credit, error) {
	sup, err := s.suppliers.GetByID(ctx, supplierID)
	if err != nil {
		// A consigned product without its supplier row is corrupt data;
		// failing here aborts the enclosing sale transaction.
		return nil, apperror.NewInternal(fmt.Errorf("supplier %s for consigned line: %w", supplierID, err))
	}

	if saleValue.IsNegative() {
		return nil, apperror.NewValidation("sale value must not be negative").
			WithDetail("value", saleValue.String())
	}

	now := s.clock.Now()
	c := &Credit{
		Base:       entity.NewBase(now),
		SupplierID: supplierID,
		SaleID:     saleID,
		SaleValue:  saleValue,
		Percentage: sup.Percentage,
		Value:      types.Percent(saleValue, sup.Percentage),
		Status:     StatusPending,
		MaturesAt:  now.Add(s.holdingPeriod),
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create credit: %w", err)
	}

	logger.Info(ctx, "credit accrued",
		"id", c.ID,
		"supplier_id", supplierID,
		"sale_id", saleID,
		"value", c.Value,
		"matures_at", c.MaturesAt,
	)
	return c, nil
}

// ReleaseMatured transitions every matured PENDING credit to RELEASED.
// Idempotent: a second sweep over the same instant is a no-op. Credits of
// cancelled or refunded sales never release.
func (s *Service) ReleaseMatured(ctx context.Context, asOf time.Time) (int64, error) {
	var released int64
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		released, err = s.repo.ReleaseMatured(ctx, asOf, s.clock.Now())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("release matured: %w", err)
	}

	if released > 0 {
		logger.Info(ctx, "credits released", "count", released, "as_of", asOf)
	}
	return released, nil
}

// GetForApplication loads a credit and verifies it can pay for a sale:
// it must be RELEASED and not yet consumed.
func (s *Service) GetForApplication(ctx context.Context, creditID id.ID) (*Credit, error) {
	c, err := s.repo.GetForUpdate(ctx, creditID)
	if err != nil {
		return nil, err
	}

	switch c.Status {
	case StatusReleased:
		return c, nil
	case StatusPending:
		return nil, apperror.NewBusinessRule(apperror.CodeCreditNotReleased, "credit has not matured yet").
			WithDetail("credit_id", creditID.String()).
			WithDetail("matures_at", c.MaturesAt)
	case StatusUsed:
		return nil, apperror.NewBusinessRule(apperror.CodeCreditAlreadyUsed, "credit was already spent").
			WithDetail("credit_id", creditID.String())
	default:
		return nil, apperror.NewInternal(fmt.Errorf("credit %s has unknown status %q", creditID, c.Status))
	}
}

// Apply marks a RELEASED credit USED, stamping the consuming sale.
func (s *Service) Apply(ctx context.Context, creditID, consumingSaleID id.ID) error {
	c, err := s.GetForApplication(ctx, creditID)
	if err != nil {
		return err
	}

	c.Status = StatusUsed
	c.ConsumedBySaleID = &consumingSaleID
	c.Touch(s.clock.Now())

	if err := s.repo.Update(ctx, c); err != nil {
		return fmt.Errorf("mark credit used: %w", err)
	}

	logger.Info(ctx, "credit applied", "id", creditID, "consuming_sale_id", consumingSaleID)
	return nil
}

// AvailableBalance is the sum of RELEASED (spendable) credits for a supplier.
func (s *Service) AvailableBalance(ctx context.Context, supplierID id.ID) (types.Money, error) {
	return s.repo.SumByStatus(ctx, supplierID, StatusReleased)
}

// PendingBalance is the sum of PENDING (immature) credits for a supplier.
func (s *Service) PendingBalance(ctx context.Context, supplierID id.ID) (types.Money, error) {
	return s.repo.SumByStatus(ctx, supplierID, StatusPending)
}

// ListBySale returns the credits a sale spawned.
func (s *Service) ListBySale(ctx context.Context, saleID id.ID) ([]*Credit, error) {
	return s.repo.ListBySale(ctx, saleID)
}

// Statement lists a supplier's ledger entries.
func (s *Service) Statement(ctx context.Context, supplierID id.ID, filter domain.ListFilter) (domain.ListResult[*Credit], error) {
	return s.repo.ListBySupplier(ctx, supplierID, filter)
}
