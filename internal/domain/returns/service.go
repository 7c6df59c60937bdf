package returns

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
	"consigna/internal/domain/audit"
	"consigna/internal/domain/inventory"
	"consigna/internal/domain/sale"
	"consigna/pkg/logger"
)

// DefaultRefundWindow is how long after its creation an online sale stays
// refundable.
const DefaultRefundWindow = 7 * 24 * time.Hour

// Decision is a reviewer's verdict on a request.
type Decision struct {
	Approve bool
	Note    string

	// ReplacementSaleID links the already-committed replacement sale when
	// approving an exchange.
	ReplacementSaleID *id.ID
}

// Service reviews return requests. Approving a refund restores the sale's
// products and marks the sale REFUNDED in the same transaction; approving
// an exchange only links the replacement sale, with no inventory reversal.
type Service struct {
	repo         Repository
	sales        sale.Repository
	ledger       *inventory.Ledger
	txManager    tx.Manager
	clock        clock.Clock
	auditor      audit.Recorder
	refundWindow time.Duration
}

// NewService creates a new return workflow service.
func NewService(repo Repository, sales sale.Repository, ledger *inventory.Ledger, txManager tx.Manager, clk clock.Clock, auditor audit.Recorder, refundWindow time.Duration) *Service {
	if auditor == nil {
		auditor = audit.Nop{}
	}
	if refundWindow <= 0 {
		refundWindow = DefaultRefundWindow
	}
	return &Service{
		repo:         repo,
		sales:        sales,
		ledger:       ledger,
		txManager:    txManager,
		clock:        clk,
		auditor:      auditor,
		refundWindow: refundWindow,
	}
}

// Request files a return or exchange request against a confirmed sale.
// Eligibility is not judged here; the refund rules apply at decision time.
func (s *Service) Request(ctx context.Context, saleID id.ID, kind Kind, reason string) (*ReturnRequest, error) {
	now := s.clock.Now()
	req := &ReturnRequest{
		Base:   entity.NewBase(now),
		SaleID: saleID,
		Kind:   kind,
		Reason: reason,
		Status: StatusRequested,
	}
	if err := req.Validate(ctx); err != nil {
		return nil, err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sl, err := s.sales.GetByID(ctx, saleID)
		if err != nil {
			return err
		}
		if sl.Status != sale.StatusConfirmed {
			return apperror.NewBusinessRule(apperror.CodeSaleNotConfirmed, "only confirmed sales can be returned").
				WithDetail("sale_id", saleID.String()).
				WithDetail("status", string(sl.Status))
		}
		return s.repo.Create(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "return requested", "id", req.ID, "sale_id", saleID, "kind", kind)
	return req, nil
}

// Decide applies the reviewer's verdict. A second decision on the same
// request fails with RETURN_ALREADY_DECIDED regardless of the verdict.
//
// Refund approvals enforce the channel policy: in-person sales are final
// (CHANNEL_NOT_ELIGIBLE) and online refunds are only honored within the
// refund window of the sale's creation (RETURN_WINDOW_EXPIRED past it).
// Declines and exchanges carry no eligibility check.
func (s *Service) Decide(ctx context.Context, requestID id.ID, d Decision, userID string) (*ReturnRequest, error) {
	if !d.Approve && d.Note == "" {
		return nil, apperror.NewValidation("declining requires a note").
			WithDetail("field", "note")
	}

	now := s.clock.Now()
	var req *ReturnRequest

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		req, err = s.repo.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status.Decided() {
			return apperror.NewConflict(apperror.CodeReturnAlreadyDecided, "return request was already decided").
				WithDetail("request_id", requestID.String()).
				WithDetail("status", string(req.Status))
		}

		if d.Approve {
			if err := s.approve(ctx, req, d, now); err != nil {
				return err
			}
		} else {
			req.Status = StatusDeclined
		}

		req.DecisionNote = d.Note
		req.DecidedBy = userID
		req.DecidedAt = &now
		req.Touch(now)

		if err := s.repo.Update(ctx, req); err != nil {
			return fmt.Errorf("update request: %w", err)
		}

		return s.auditor.Record(ctx, audit.Entry{
			EntityType: "return_request",
			EntityID:   requestID,
			Action:     audit.ActionReturnDecided,
			UserID:     userID,
			Payload:    req,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "return decided", "id", requestID, "status", req.Status, "user_id", userID)
	return req, nil
}

func (s *Service) approve(ctx context.Context, req *ReturnRequest, d Decision, now time.Time) error {
	sl, err := s.sales.GetForUpdate(ctx, req.SaleID)
	if err != nil {
		return err
	}
	if sl.Status != sale.StatusConfirmed {
		return apperror.NewBusinessRule(apperror.CodeSaleNotConfirmed, "sale is no longer confirmed").
			WithDetail("sale_id", req.SaleID.String()).
			WithDetail("status", string(sl.Status))
	}

	switch req.Kind {
	case KindRefund:
		if sl.Channel != sale.ChannelOnline {
			return apperror.NewBusinessRule(apperror.CodeChannelNotEligible, "in-person sales are final and cannot be refunded").
				WithDetail("sale_id", req.SaleID.String())
		}
		// The window runs from creation: a slow gateway confirmation must
		// not extend it.
		if now.After(sl.CreatedAt.Add(s.refundWindow)) {
			return apperror.NewBusinessRule(apperror.CodeWindowExpired, "refund window has expired").
				WithDetail("sale_id", req.SaleID.String()).
				WithDetail("window", s.refundWindow.String())
		}

		sl.Lines, err = s.sales.GetLines(ctx, req.SaleID)
		if err != nil {
			return fmt.Errorf("load lines: %w", err)
		}
		if err := s.ledger.Restore(ctx, sl.ProductIDs()); err != nil {
			return err
		}

		sl.Status = sale.StatusRefunded
		sl.Touch(now)
		if err := s.sales.Update(ctx, sl); err != nil {
			return fmt.Errorf("refund sale: %w", err)
		}

		if err := s.auditor.Record(ctx, audit.Entry{
			EntityType: "sale",
			EntityID:   sl.ID,
			Action:     audit.ActionSaleRefunded,
			UserID:     req.DecidedBy,
			Payload:    map[string]any{"return_request_id": req.ID},
		}); err != nil {
			return err
		}

	case KindExchange:
		if d.ReplacementSaleID == nil || id.IsNil(*d.ReplacementSaleID) {
			return apperror.NewValidation("approving an exchange requires the replacement sale").
				WithDetail("field", "replacementSaleId")
		}
		if _, err := s.sales.GetByID(ctx, *d.ReplacementSaleID); err != nil {
			return err
		}
		req.ReplacementSaleID = d.ReplacementSaleID
	}

	req.Status = StatusApproved
	return nil
}

// GetByID retrieves a request.
func (s *Service) GetByID(ctx context.Context, requestID id.ID) (*ReturnRequest, error) {
	return s.repo.GetByID(ctx, requestID)
}

// List retrieves requests with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*ReturnRequest], error) {
	return s.repo.List(ctx, filter)
}
