package till

import (
	"context"
	"fmt"

	"consigna/internal/core/apperror"
	"consigna/internal/core/clock"
	"consigna/internal/core/entity"
	"consigna/internal/core/id"
	"consigna/internal/core/tx"
	"consigna/internal/core/types"
	"consigna/internal/domain"
	"consigna/pkg/logger"
)

// Service provides business operations for till sessions.
//
// RecordSale is a building block called by the sale orchestrator inside its
// transaction; Open, RecordMovement and Close manage their own.
type Service struct {
	repo      Repository
	txManager tx.Manager
	clock     clock.Clock
}

// NewService creates a new till service.
func NewService(repo Repository, txManager tx.Manager, clk clock.Clock) *Service {
	return &Service{repo: repo, txManager: txManager, clock: clk}
}

// Open starts a new session with the counted float. Fails with
// TILL_ALREADY_OPEN while another session is open; the uniqueness is
// enforced by the store, so exactly one of two concurrent opens wins.
func (s *Service) Open(ctx context.Context, openingBalance types.Money, userID string) (*Session, error) {
	if openingBalance.IsNegative() {
		return nil, apperror.NewValidation("opening balance must not be negative")
	}
	if userID == "" {
		return nil, apperror.NewValidation("opening user is required")
	}

	now := s.clock.Now()
	session := &Session{
		Base:           entity.NewBase(now),
		Status:         StatusOpen,
		OpeningBalance: openingBalance,
		OpenedBy:       userID,
		OpenedAt:       now,
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "till session opened", "id", session.ID, "opening_balance", openingBalance, "user_id", userID)
	return session, nil
}

// Current returns the OPEN session, if any.
func (s *Service) Current(ctx context.Context) (*Session, error) {
	return s.repo.GetOpen(ctx)
}

// RecordSale accumulates a confirmed sale into the session's method totals.
// Cash amounts also move the expected drawer balance, derived from the cash
// total at close. Must run inside the confirming sale's transaction.
func (s *Service) RecordSale(ctx context.Context, sessionID id.ID, amount types.Money, method domain.PaymentMethod) error {
	if !method.Valid() {
		return apperror.NewValidation("unknown payment method").
			WithDetail("method", string(method))
	}
	if amount.IsNegative() {
		return apperror.NewValidation("sale amount must not be negative")
	}

	session, err := s.repo.GetForUpdate(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.Status != StatusOpen {
		return apperror.NewBusinessRule(apperror.CodeTillAlreadyClosed, "till session is closed").
			WithDetail("session_id", sessionID.String())
	}

	session.AddSale(method, amount)
	session.Touch(s.clock.Now())

	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return fmt.Errorf("record sale: %w", err)
	}
	return nil
}

// RecordMovement appends a manual cash movement (withdrawal, deposit or
// expense) and adjusts the session totals.
func (s *Service) RecordMovement(ctx context.Context, sessionID id.ID, amount types.Money, kind MovementKind, note, userID string) (*Movement, error) {
	if !kind.Valid() {
		return nil, apperror.NewValidation("unknown movement kind").
			WithDetail("kind", string(kind))
	}
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("movement amount must be positive")
	}

	now := s.clock.Now()
	movement := &Movement{
		ID:        id.New(),
		SessionID: sessionID,
		Kind:      kind,
		Amount:    amount,
		Note:      note,
		CreatedBy: userID,
		CreatedAt: now,
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		session, err := s.repo.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status != StatusOpen {
			return apperror.NewBusinessRule(apperror.CodeTillAlreadyClosed, "till session is closed").
				WithDetail("session_id", sessionID.String())
		}

		switch kind {
		case MovementWithdrawal:
			session.WithdrawalTotal = session.WithdrawalTotal.Add(amount)
		case MovementDeposit:
			session.DepositTotal = session.DepositTotal.Add(amount)
		case MovementExpense:
			session.ExpenseTotal = session.ExpenseTotal.Add(amount)
		}
		session.Touch(now)

		if err := s.repo.UpdateSession(ctx, session); err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		return s.repo.CreateMovement(ctx, movement)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "till movement recorded", "session_id", sessionID, "kind", kind, "amount", amount)
	return movement, nil
}

// Close reconciles and terminates the session:
// expected = opening + cash sales - expenses - withdrawals + deposits,
// variance = counted - expected. Closing twice fails TILL_ALREADY_CLOSED;
// there is no reopening.
func (s *Service) Close(ctx context.Context, sessionID id.ID, countedBalance types.Money, userID string) (*Session, error) {
	if countedBalance.IsNegative() {
		return nil, apperror.NewValidation("counted balance must not be negative")
	}
	if userID == "" {
		return nil, apperror.NewValidation("closing user is required")
	}

	var session *Session
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		session, err = s.repo.GetForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.Status != StatusOpen {
			return apperror.NewBusinessRule(apperror.CodeTillAlreadyClosed, "till session was already closed").
				WithDetail("session_id", sessionID.String())
		}

		now := s.clock.Now()
		session.Status = StatusClosed
		session.CountedBalance = countedBalance
		session.ExpectedBalance = session.ExpectedInDrawer()
		session.Variance = countedBalance.Sub(session.ExpectedBalance)
		session.ClosedBy = userID
		session.ClosedAt = &now
		session.Touch(now)

		return s.repo.UpdateSession(ctx, session)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "till session closed",
		"id", session.ID,
		"expected", session.ExpectedBalance,
		"counted", session.CountedBalance,
		"variance", session.Variance,
		"user_id", userID,
	)
	return session, nil
}

// GetByID retrieves a session.
func (s *Service) GetByID(ctx context.Context, sessionID id.ID) (*Session, error) {
	return s.repo.GetByID(ctx, sessionID)
}

// ListMovements lists a session's manual movements.
func (s *Service) ListMovements(ctx context.Context, sessionID id.ID) ([]*Movement, error) {
	return s.repo.ListMovements(ctx, sessionID)
}

// ListSessions lists sessions, newest first by default.
func (s *Service) ListSessions(ctx context.Context, filter domain.ListFilter) (domain.ListResult[*Session], error) {
	return s.repo.ListSessions(ctx, filter)
}
