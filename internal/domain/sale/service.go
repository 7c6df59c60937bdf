package sale

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"consigna/internal/core/apperror"
	"consigna/internal/core/clock"
	"consigna/internal/core/entity"
	"consigna/internal/core/id"
	"consigna/internal/core/tx"
	"consigna/internal/core/types"
	"consigna/internal/domain"
	"consigna/internal/domain/audit"
	"consigna/internal/domain/credit"
	"consigna/internal/domain/inventory"
	"consigna/internal/domain/till"
	"consigna/pkg/logger"
	"consigna/pkg/numerator"
)

// LineInput is one requested item. Unit prices come from the product
// record, not the caller.
type LineInput struct {
	ProductID id.ID
	Qty       int
	Discount  types.Money
}

// CreateInput is a sale request.
type CreateInput struct {
	Channel       Channel
	PaymentMethod domain.PaymentMethod
	Lines         []LineInput
	Discount      types.Money

	// CreditID optionally pays part of the total with a released supplier
	// credit. In-person sales consume it immediately; online sales verify it
	// here and consume it when the gateway confirms.
	CreditID *id.ID

	UserID string
}

// CreateResult is the committed sale plus the unspent remainder of an
// applied credit, when the credit exceeded the total. The remainder is
// informational: the credit is consumed in full.
type CreateResult struct {
	Sale            *Sale
	CreditRemainder types.Money
}

// GatewayOutcome is the payment gateway's verdict on a pending sale,
// delivered asynchronously by the webhook layer.
type GatewayOutcome struct {
	Success   bool
	Reference string
	Reason    string
}

// Service orchestrates sale commits across the inventory ledger, credit
// ledger and till manager. Every multi-step write runs in one serializable
// transaction; any step failure rolls back all prior steps.
type Service struct {
	repo      Repository
	returns   ReturnChecker
	ledger    *inventory.Ledger
	credits   *credit.Service
	till      *till.Service
	numerator numerator.Generator
	txManager tx.Manager
	clock     clock.Clock
	auditor   audit.Recorder
}

// NewService creates a new sale orchestrator.
func NewService(
	repo Repository,
	returns ReturnChecker,
	ledger *inventory.Ledger,
	credits *credit.Service,
	tillSvc *till.Service,
	num numerator.Generator,
	txManager tx.Manager,
	clk clock.Clock,
	auditor audit.Recorder,
) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		returns:   returns,
		ledger:    ledger,
		credits:   credits,
		till:      tillSvc,
		numerator: num,
		txManager: txManager,
		clock:     clk,
		auditor:   auditor,
	}
}

// Create commits a sale. In-person sales confirm immediately; online sales
// persist as PENDING_PAYMENT with products reserved only for the duration
// of this transaction, and finalize via ConfirmPending.
//
// A cash sale with no open till session is rejected with TILL_NOT_OPEN:
// cash that bypasses the drawer cannot be reconciled at close.
func (s *Service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	now := s.clock.Now()

	sl := &Sale{
		Base:          entity.NewBase(now),
		Channel:       input.Channel,
		PaymentMethod: input.PaymentMethod,
		Discount:      input.Discount,
	}
	for i, li := range input.Lines {
		sl.Lines = append(sl.Lines, Line{
			LineID:    id.New(),
			SaleID:    sl.ID,
			LineNo:    i + 1,
			ProductID: li.ProductID,
			Qty:       li.Qty,
			Discount:  li.Discount,
		})
	}
	if err := sl.Validate(ctx); err != nil {
		return nil, err
	}

	// Receipt number is generated outside the transaction: the sequence
	// upsert must not hold locks across the whole commit.
	number, err := s.numerator.Next(ctx, numerator.DefaultConfig("SALE"), now)
	if err != nil {
		return nil, fmt.Errorf("generate receipt number: %w", err)
	}
	sl.Number = number

	if input.Channel == ChannelInPerson {
		sl.Status = StatusConfirmed
		sl.ConfirmedAt = &now
	} else {
		sl.Status = StatusPendingPayment
	}

	result := &CreateResult{Sale: sl}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		products, err := s.ledger.Reserve(ctx, sl.ProductIDs())
		if err != nil {
			return err
		}

		if err := s.priceLines(sl, products); err != nil {
			return err
		}

		total := sl.Subtotal.Sub(sl.Discount)
		if total.IsNegative() {
			return apperror.NewValidation("discount exceeds subtotal").
				WithDetail("subtotal", sl.Subtotal.String()).
				WithDetail("discount", sl.Discount.String())
		}

		var appliedCredit *credit.Credit
		if input.CreditID != nil {
			appliedCredit, err = s.credits.GetForApplication(ctx, *input.CreditID)
			if err != nil {
				return err
			}
			applied := appliedCredit.Value
			if applied.GreaterThan(total) {
				applied = total
				result.CreditRemainder = appliedCredit.Value.Sub(total)
			}
			sl.CreditApplied = applied
			sl.AppliedCreditID = input.CreditID
			total = total.Sub(applied)
		}
		sl.Total = total

		if sl.Status == StatusConfirmed {
			session, err := s.resolveTillSession(ctx, sl.PaymentMethod, true)
			if err != nil {
				return err
			}
			if session != nil {
				sl.TillSessionID = &session.ID
			}
		}

		if err := s.repo.Create(ctx, sl); err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		if err := s.repo.SaveLines(ctx, sl.ID, sl.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		if sl.Status != StatusConfirmed {
			return nil
		}

		if err := s.finalize(ctx, sl, products, now); err != nil {
			return err
		}

		if appliedCredit != nil {
			if err := s.credits.Apply(ctx, appliedCredit.ID, sl.ID); err != nil {
				return err
			}
			if err := s.auditor.Record(ctx, audit.Entry{
				EntityType: "credit",
				EntityID:   appliedCredit.ID,
				Action:     audit.ActionCreditApplied,
				UserID:     input.UserID,
				Payload:    map[string]any{"sale_id": sl.ID, "applied": sl.CreditApplied},
			}); err != nil {
				return err
			}
		}

		return s.auditor.Record(ctx, audit.Entry{
			EntityType: "sale",
			EntityID:   sl.ID,
			Action:     audit.ActionSaleConfirmed,
			UserID:     input.UserID,
			Payload:    sl,
		})
	})
	if err != nil {
		return nil, err
	}

	if result.CreditRemainder.IsPositive() {
		logger.Warn(ctx, "applied credit exceeded sale total",
			"sale_id", sl.ID,
			"credit_id", input.CreditID,
			"remainder", result.CreditRemainder,
		)
	}

	logger.Info(ctx, "sale created",
		"id", sl.ID,
		"number", sl.Number,
		"channel", sl.Channel,
		"status", sl.Status,
		"total", sl.Total,
	)
	return result, nil
}

// ConfirmPending applies the gateway outcome to a PENDING_PAYMENT sale.
// Success re-reserves the products (they stayed on the floor while payment
// processed), consumes any credit applied at creation and performs the
// confirmation side effects; a gateway decline or a staleness timeout
// cancels the sale.
func (s *Service) ConfirmPending(ctx context.Context, saleID id.ID, outcome GatewayOutcome) error {
	now := s.clock.Now()

	// A reserve conflict must not roll back the cancellation it causes, so
	// it is carried out of the transaction instead of failing it.
	var reserveErr error

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sl, err := s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sl.Status != StatusPendingPayment {
			return apperror.NewConflict(apperror.CodeConflict, "sale is not awaiting payment").
				WithDetail("sale_id", saleID.String()).
				WithDetail("status", string(sl.Status))
		}
		sl.Lines, err = s.repo.GetLines(ctx, saleID)
		if err != nil {
			return fmt.Errorf("load lines: %w", err)
		}

		if !outcome.Success {
			sl.Status = StatusCancelled
			sl.CancelledAt = &now
			sl.Touch(now)
			if err := s.repo.Update(ctx, sl); err != nil {
				return fmt.Errorf("cancel sale: %w", err)
			}
			logger.Info(ctx, "pending sale cancelled", "id", saleID, "reason", outcome.Reason)
			return s.auditor.Record(ctx, audit.Entry{
				EntityType: "sale",
				EntityID:   saleID,
				Action:     audit.ActionSaleCancelled,
				UserID:     "gateway",
				Payload:    map[string]any{"reason": outcome.Reason, "reference": outcome.Reference},
			})
		}

		products, err := s.ledger.Reserve(ctx, sl.ProductIDs())
		if err != nil {
			// An item was sold in person while payment processed. The sale
			// cannot be fulfilled; cancel it and surface the conflict so
			// the gateway layer can refund.
			reserveErr = err
			sl.Status = StatusCancelled
			sl.CancelledAt = &now
			sl.Touch(now)
			if updErr := s.repo.Update(ctx, sl); updErr != nil {
				return fmt.Errorf("cancel unfulfillable sale: %w", updErr)
			}
			return s.auditor.Record(ctx, audit.Entry{
				EntityType: "sale",
				EntityID:   saleID,
				Action:     audit.ActionSaleCancelled,
				UserID:     "gateway",
				Payload:    map[string]any{"reason": "item no longer available"},
			})
		}

		// The credit was only verified at creation; spend it now. Spent in
		// the meantime fails the confirm, and the stale-pending sweep will
		// collect the sale.
		if sl.AppliedCreditID != nil {
			if err := s.credits.Apply(ctx, *sl.AppliedCreditID, sl.ID); err != nil {
				return err
			}
			if err := s.auditor.Record(ctx, audit.Entry{
				EntityType: "credit",
				EntityID:   *sl.AppliedCreditID,
				Action:     audit.ActionCreditApplied,
				UserID:     "gateway",
				Payload:    map[string]any{"sale_id": sl.ID, "applied": sl.CreditApplied},
			}); err != nil {
				return err
			}
		}

		sl.Status = StatusConfirmed
		sl.ConfirmedAt = &now

		session, err := s.resolveTillSession(ctx, sl.PaymentMethod, false)
		if err != nil {
			return err
		}
		if session != nil {
			sl.TillSessionID = &session.ID
		}

		sl.Touch(now)
		if err := s.repo.Update(ctx, sl); err != nil {
			return fmt.Errorf("confirm sale: %w", err)
		}

		if err := s.finalize(ctx, sl, products, now); err != nil {
			return err
		}

		logger.Info(ctx, "pending sale confirmed", "id", saleID, "reference", outcome.Reference)
		return s.auditor.Record(ctx, audit.Entry{
			EntityType: "sale",
			EntityID:   saleID,
			Action:     audit.ActionSaleConfirmed,
			UserID:     "gateway",
			Payload:    sl,
		})
	})
	if err != nil {
		return err
	}
	return reserveErr
}

// CancelStalePending routes every PENDING_PAYMENT sale older than maxAge
// through the failure path of ConfirmPending. Returns how many were
// cancelled.
func (s *Service) CancelStalePending(ctx context.Context, maxAge time.Duration, limit int) (int, error) {
	cutoff := s.clock.Now().Add(-maxAge)
	ids, err := s.repo.ListStalePending(ctx, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("list stale pending: %w", err)
	}

	cancelled := 0
	for _, saleID := range ids {
		err := s.ConfirmPending(ctx, saleID, GatewayOutcome{Success: false, Reason: "payment timeout"})
		if err != nil {
			logger.Error(ctx, "cancel stale pending sale", "sale_id", saleID, "error", err)
			continue
		}
		cancelled++
	}
	return cancelled, nil
}

// Cancel voids a CONFIRMED sale: inventory is restored and the sale marked
// CANCELLED. Refused once any spawned credit has settled (RELEASED or USED)
// or a return decision exists for the sale.
func (s *Service) Cancel(ctx context.Context, saleID id.ID, userID string) error {
	now := s.clock.Now()

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sl, err := s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sl.Status != StatusConfirmed {
			return apperror.NewBusinessRule(apperror.CodeSaleNotConfirmed, "only confirmed sales can be cancelled").
				WithDetail("sale_id", saleID.String()).
				WithDetail("status", string(sl.Status))
		}

		decided, err := s.returns.HasDecision(ctx, saleID)
		if err != nil {
			return fmt.Errorf("check return decisions: %w", err)
		}
		if decided {
			return apperror.NewConflict(apperror.CodeConflict, "sale already has a decided return request").
				WithDetail("sale_id", saleID.String())
		}

		credits, err := s.credits.ListBySale(ctx, saleID)
		if err != nil {
			return fmt.Errorf("load sale credits: %w", err)
		}
		for _, c := range credits {
			if c.Status != credit.StatusPending {
				return apperror.NewBusinessRule(apperror.CodeCreditAlreadySettled,
					"a consignment credit from this sale has already settled").
					WithDetail("credit_id", c.ID.String()).
					WithDetail("status", string(c.Status))
			}
		}

		sl.Lines, err = s.repo.GetLines(ctx, saleID)
		if err != nil {
			return fmt.Errorf("load lines: %w", err)
		}
		if err := s.ledger.Restore(ctx, sl.ProductIDs()); err != nil {
			return err
		}

		sl.Status = StatusCancelled
		sl.CancelledAt = &now
		sl.Touch(now)
		if err := s.repo.Update(ctx, sl); err != nil {
			return fmt.Errorf("update sale: %w", err)
		}

		logger.Info(ctx, "sale cancelled", "id", saleID, "user_id", userID)
		return s.auditor.Record(ctx, audit.Entry{
			EntityType: "sale",
			EntityID:   saleID,
			Action:     audit.ActionSaleCancelled,
			UserID:     userID,
			Payload:    map[string]any{"pending_credits": len(credits)},
		})
	})
}

// GetByID retrieves a sale with lines.
func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	sl, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	sl.Lines, err = s.repo.GetLines(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("load lines: %w", err)
	}
	return sl, nil
}

// List retrieves sales with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	return s.repo.List(ctx, filter)
}

// priceLines fills unit prices from the reserved products and computes the
// per-line amounts and the subtotal. products is in line order (Reserve
// preserves input order). Line discounts may not exceed the line value:
// consignment credits accrue from the net amount and must never go negative.
func (s *Service) priceLines(sl *Sale, products []*inventory.Product) error {
	subtotal := types.Zero()
	for i := range sl.Lines {
		line := &sl.Lines[i]
		line.UnitPrice = products[i].Price
		line.Amount = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty))).Sub(line.Discount)
		if line.Amount.IsNegative() {
			return apperror.NewValidation("line discount exceeds line value").
				WithDetail("field", "lines").
				WithDetail("lineNo", line.LineNo).
				WithDetail("discount", line.Discount.String())
		}
		subtotal = subtotal.Add(line.Amount)
	}
	sl.Subtotal = subtotal
	return nil
}

// resolveTillSession finds the open till session for drawer recording.
// Cash without an open session is a policy error on the synchronous path;
// on the asynchronous confirm path the payment already happened, so the
// recording is skipped and flagged instead.
func (s *Service) resolveTillSession(ctx context.Context, method domain.PaymentMethod, rejectCashWithoutTill bool) (*till.Session, error) {
	session, err := s.till.Current(ctx)
	if err != nil {
		if !apperror.IsNotFound(err) {
			return nil, fmt.Errorf("resolve till session: %w", err)
		}
		if method == domain.PaymentCash {
			if rejectCashWithoutTill {
				return nil, apperror.NewBusinessRule(apperror.CodeTillNotOpen,
					"cash sales require an open till session")
			}
			logger.Warn(ctx, "cash sale confirmed with no open till session; drawer totals will not include it")
		}
		return nil, nil
	}
	return session, nil
}

// finalize performs the confirmation side effects inside the caller's
// transaction: products sold, credits accrued for consigned lines, till
// totals updated.
func (s *Service) finalize(ctx context.Context, sl *Sale, products []*inventory.Product, now time.Time) error {
	if err := s.ledger.MarkSold(ctx, sl.ProductIDs(), now); err != nil {
		return err
	}

	for i, line := range sl.Lines {
		p := products[i]
		if !p.IsConsigned() {
			continue
		}
		if _, err := s.credits.Accrue(ctx, *p.SupplierID, sl.ID, line.Amount); err != nil {
			return err
		}
	}

	if sl.TillSessionID != nil {
		if err := s.till.RecordSale(ctx, *sl.TillSessionID, sl.Total, sl.PaymentMethod); err != nil {
			return err
		}
	}

	return nil
}
