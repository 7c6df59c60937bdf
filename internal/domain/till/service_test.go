package till

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consigna/internal/core/apperror"
	"consigna/internal/core/clock"
	"consigna/internal/core/id"
	"consigna/internal/core/types"
	"consigna/internal/domain"
)

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	sessions  map[id.ID]*Session
	movements []*Movement
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{sessions: make(map[id.ID]*Session)}
}

func (r *fakeRepo) CreateSession(_ context.Context, s *Session) error {
	for _, existing := range r.sessions {
		if existing.Status == StatusOpen {
			return apperror.NewConflict(apperror.CodeTillAlreadyOpen, "a till session is already open")
		}
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeRepo) GetOpen(_ context.Context) (*Session, error) {
	for _, s := range r.sessions {
		if s.Status == StatusOpen {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("till_session", "open")
}

func (r *fakeRepo) GetByID(_ context.Context, sessionID id.ID) (*Session, error) {
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, apperror.NewNotFound("till_session", sessionID.String())
	}
	cp := *s
	return &cp, nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, sessionID id.ID) (*Session, error) {
	return r.GetByID(ctx, sessionID)
}

func (r *fakeRepo) UpdateSession(_ context.Context, s *Session) error {
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeRepo) CreateMovement(_ context.Context, m *Movement) error {
	cp := *m
	r.movements = append(r.movements, &cp)
	return nil
}

func (r *fakeRepo) ListMovements(_ context.Context, sessionID id.ID) ([]*Movement, error) {
	var out []*Movement
	for _, m := range r.movements {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListSessions(_ context.Context, filter domain.ListFilter) (domain.ListResult[*Session], error) {
	var items []*Session
	for _, s := range r.sessions {
		items = append(items, s)
	}
	return domain.ListResult[*Session]{Items: items, TotalCount: int64(len(items)), Limit: filter.Limit}, nil
}

func newTestService() (*Service, *fakeRepo, *clock.Mock) {
	repo := newFakeRepo()
	clk := clock.NewMock(time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC))
	return NewService(repo, passthroughTx{}, clk), repo, clk
}

func TestOpen(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	session, err := svc.Open(ctx, types.MustMoney("100.00"), "user-1")
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, session.Status)
	assert.True(t, session.OpeningBalance.Equal(types.MustMoney("100.00")))
	assert.Equal(t, "user-1", session.OpenedBy)
}

func TestOpen_SecondSessionRejected(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Open(ctx, types.MustMoney("100.00"), "user-1")
	require.NoError(t, err)

	_, err = svc.Open(ctx, types.MustMoney("50.00"), "user-2")
	assert.True(t, apperror.HasCode(err, apperror.CodeTillAlreadyOpen))
}

func TestOpen_NegativeBalance(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Open(context.Background(), types.MustMoney("-1"), "user-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestRecordSale_AccumulatesByMethod(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	session, err := svc.Open(ctx, types.MustMoney("100.00"), "user-1")
	require.NoError(t, err)

	require.NoError(t, svc.RecordSale(ctx, session.ID, types.MustMoney("150.00"), domain.PaymentCash))
	require.NoError(t, svc.RecordSale(ctx, session.ID, types.MustMoney("100.00"), domain.PaymentCash))
	require.NoError(t, svc.RecordSale(ctx, session.ID, types.MustMoney("75.50"), domain.PaymentCard))

	got := repo.sessions[session.ID]
	assert.True(t, got.CashTotal.Equal(types.MustMoney("250.00")))
	assert.True(t, got.CardTotal.Equal(types.MustMoney("75.50")))
	assert.True(t, got.DigitalTotal.IsZero())
}

func TestRecordMovement(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	session, err := svc.Open(ctx, types.MustMoney("100.00"), "user-1")
	require.NoError(t, err)

	_, err = svc.RecordMovement(ctx, session.ID, types.MustMoney("50.00"), MovementWithdrawal, "bank run", "user-1")
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, session.ID, types.MustMoney("20.00"), MovementDeposit, "change float", "user-1")
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, session.ID, types.MustMoney("30.00"), MovementExpense, "window cleaner", "user-1")
	require.NoError(t, err)

	got := repo.sessions[session.ID]
	assert.True(t, got.WithdrawalTotal.Equal(types.MustMoney("50.00")))
	assert.True(t, got.DepositTotal.Equal(types.MustMoney("20.00")))
	assert.True(t, got.ExpenseTotal.Equal(types.MustMoney("30.00")))

	movements, err := svc.ListMovements(ctx, session.ID)
	require.NoError(t, err)
	assert.Len(t, movements, 3)
}

func TestRecordMovement_Rejections(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	session, err := svc.Open(ctx, types.MustMoney("100.00"), "user-1")
	require.NoError(t, err)

	_, err = svc.RecordMovement(ctx, session.ID, types.MustMoney("0"), MovementDeposit, "", "user-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "zero amount")

	_, err = svc.RecordMovement(ctx, session.ID, types.MustMoney("10.00"), MovementKind("REFUND"), "", "user-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "unknown kind")

	_, err = svc.Close(ctx, session.ID, types.MustMoney("100.00"), "user-1")
	require.NoError(t, err)

	_, err = svc.RecordMovement(ctx, session.ID, types.MustMoney("10.00"), MovementDeposit, "", "user-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeTillAlreadyClosed), "movement after close")
}

func TestClose_Reconciliation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	session, err := svc.Open(ctx, types.MustMoney("100.00"), "user-1")
	require.NoError(t, err)

	require.NoError(t, svc.RecordSale(ctx, session.ID, types.MustMoney("250.00"), domain.PaymentCash))
	_, err = svc.RecordMovement(ctx, session.ID, types.MustMoney("50.00"), MovementWithdrawal, "", "user-1")
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, session.ID, types.MustMoney("20.00"), MovementDeposit, "", "user-1")
	require.NoError(t, err)
	_, err = svc.RecordMovement(ctx, session.ID, types.MustMoney("30.00"), MovementExpense, "", "user-1")
	require.NoError(t, err)

	closed, err := svc.Close(ctx, session.ID, types.MustMoney("285.00"), "user-2")
	require.NoError(t, err)

	// 100 + 250 - 30 - 50 + 20 = 290, counted 285 -> short by 5
	assert.True(t, closed.ExpectedBalance.Equal(types.MustMoney("290.00")), "expected %s", closed.ExpectedBalance)
	assert.True(t, closed.Variance.Equal(types.MustMoney("-5.00")), "variance %s", closed.Variance)
	assert.Equal(t, StatusClosed, closed.Status)
	assert.Equal(t, "user-2", closed.ClosedBy)
	require.NotNil(t, closed.ClosedAt)
}

func TestClose_Twice(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	session, err := svc.Open(ctx, types.MustMoney("100.00"), "user-1")
	require.NoError(t, err)

	_, err = svc.Close(ctx, session.ID, types.MustMoney("100.00"), "user-1")
	require.NoError(t, err)

	_, err = svc.Close(ctx, session.ID, types.MustMoney("100.00"), "user-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeTillAlreadyClosed))
}

func TestCurrent(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Current(ctx)
	assert.True(t, apperror.IsNotFound(err), "no open session yet")

	opened, err := svc.Open(ctx, types.MustMoney("100.00"), "user-1")
	require.NoError(t, err)

	current, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, opened.ID, current.ID)

	_, err = svc.Close(ctx, opened.ID, types.MustMoney("100.00"), "user-1")
	require.NoError(t, err)

	_, err = svc.Current(ctx)
	assert.True(t, apperror.IsNotFound(err), "closed sessions are not current")
}
