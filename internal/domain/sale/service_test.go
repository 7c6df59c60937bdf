package sale

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consigna/internal/core/apperror"
	"consigna/internal/core/clock"
	"consigna/internal/core/entity"
	"consigna/internal/core/id"
	"consigna/internal/core/types"
	"consigna/internal/domain"
	"consigna/internal/domain/credit"
	"consigna/internal/domain/inventory"
	"consigna/internal/domain/supplier"
	"consigna/internal/domain/till"
	"consigna/pkg/numerator"
)

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- sale repository fake ---

type fakeSaleRepo struct {
	sales map[id.ID]*Sale
	lines map[id.ID][]Line
}

func newFakeSaleRepo() *fakeSaleRepo {
	return &fakeSaleRepo{sales: make(map[id.ID]*Sale), lines: make(map[id.ID][]Line)}
}

func (r *fakeSaleRepo) Create(_ context.Context, s *Sale) error {
	cp := *s
	cp.Lines = nil
	r.sales[s.ID] = &cp
	return nil
}

func (r *fakeSaleRepo) SaveLines(_ context.Context, saleID id.ID, lines []Line) error {
	r.lines[saleID] = append([]Line(nil), lines...)
	return nil
}

func (r *fakeSaleRepo) Update(_ context.Context, s *Sale) error {
	cp := *s
	cp.Lines = nil
	r.sales[s.ID] = &cp
	return nil
}

func (r *fakeSaleRepo) GetByID(_ context.Context, saleID id.ID) (*Sale, error) {
	s, ok := r.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error) {
	return r.GetByID(ctx, saleID)
}

func (r *fakeSaleRepo) GetLines(_ context.Context, saleID id.ID) ([]Line, error) {
	return append([]Line(nil), r.lines[saleID]...), nil
}

func (r *fakeSaleRepo) ListStalePending(_ context.Context, cutoff time.Time, limit int) ([]id.ID, error) {
	var out []id.ID
	for _, s := range r.sales {
		if s.Status == StatusPendingPayment && !s.CreatedAt.After(cutoff) {
			out = append(out, s.ID)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeSaleRepo) List(_ context.Context, filter ListFilter) (domain.ListResult[*Sale], error) {
	var items []*Sale
	for _, s := range r.sales {
		items = append(items, s)
	}
	return domain.ListResult[*Sale]{Items: items, TotalCount: int64(len(items)), Limit: filter.Limit}, nil
}

// --- collaborating fakes ---

type fakeReturns struct {
	decided bool
}

func (f *fakeReturns) HasDecision(context.Context, id.ID) (bool, error) {
	return f.decided, nil
}

type fakeProductRepo struct {
	products map[id.ID]*inventory.Product
}

func (r *fakeProductRepo) Create(_ context.Context, p *inventory.Product) error {
	cp := *p
	r.products[p.ID] = &cp
	return nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, productID id.ID) (*inventory.Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProductRepo) GetManyForUpdate(_ context.Context, productIDs []id.ID) ([]*inventory.Product, error) {
	var out []*inventory.Product
	for _, pid := range productIDs {
		if p, ok := r.products[pid]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) UpdateStatus(_ context.Context, productIDs []id.ID, from, to inventory.Status, soldAt *time.Time) (int64, error) {
	var affected int64
	for _, pid := range productIDs {
		p, ok := r.products[pid]
		if !ok || p.Status != from {
			continue
		}
		p.Status = to
		p.SoldAt = soldAt
		affected++
	}
	return affected, nil
}

func (r *fakeProductRepo) List(_ context.Context, filter inventory.ListFilter) (domain.ListResult[*inventory.Product], error) {
	return domain.ListResult[*inventory.Product]{Limit: filter.Limit}, nil
}

type fakeSupplierReader struct {
	suppliers map[id.ID]*supplier.Supplier
}

func (f *fakeSupplierReader) GetByID(_ context.Context, supplierID id.ID) (*supplier.Supplier, error) {
	s, ok := f.suppliers[supplierID]
	if !ok {
		return nil, apperror.NewNotFound("supplier", supplierID.String())
	}
	return s, nil
}

type fakeCreditRepo struct {
	credits map[id.ID]*credit.Credit
}

func (r *fakeCreditRepo) Create(_ context.Context, c *credit.Credit) error {
	cp := *c
	r.credits[c.ID] = &cp
	return nil
}

func (r *fakeCreditRepo) GetByID(_ context.Context, creditID id.ID) (*credit.Credit, error) {
	c, ok := r.credits[creditID]
	if !ok {
		return nil, apperror.NewNotFound("credit", creditID.String())
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCreditRepo) GetForUpdate(ctx context.Context, creditID id.ID) (*credit.Credit, error) {
	return r.GetByID(ctx, creditID)
}

func (r *fakeCreditRepo) Update(_ context.Context, c *credit.Credit) error {
	cp := *c
	r.credits[c.ID] = &cp
	return nil
}

func (r *fakeCreditRepo) ReleaseMatured(context.Context, time.Time, time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeCreditRepo) SumByStatus(_ context.Context, supplierID id.ID, status credit.Status) (types.Money, error) {
	sum := types.Zero()
	for _, c := range r.credits {
		if c.SupplierID == supplierID && c.Status == status {
			sum = sum.Add(c.Value)
		}
	}
	return sum, nil
}

func (r *fakeCreditRepo) ListBySale(_ context.Context, saleID id.ID) ([]*credit.Credit, error) {
	var out []*credit.Credit
	for _, c := range r.credits {
		if c.SaleID == saleID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeCreditRepo) ListBySupplier(_ context.Context, supplierID id.ID, filter domain.ListFilter) (domain.ListResult[*credit.Credit], error) {
	return domain.ListResult[*credit.Credit]{Limit: filter.Limit}, nil
}

type fakeTillRepo struct {
	sessions map[id.ID]*till.Session
}

func (r *fakeTillRepo) CreateSession(_ context.Context, s *till.Session) error {
	for _, existing := range r.sessions {
		if existing.Status == till.StatusOpen {
			return apperror.NewConflict(apperror.CodeTillAlreadyOpen, "a till session is already open")
		}
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeTillRepo) GetOpen(_ context.Context) (*till.Session, error) {
	for _, s := range r.sessions {
		if s.Status == till.StatusOpen {
			cp := *s
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("till_session", "open")
}

func (r *fakeTillRepo) GetByID(_ context.Context, sessionID id.ID) (*till.Session, error) {
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, apperror.NewNotFound("till_session", sessionID.String())
	}
	cp := *s
	return &cp, nil
}

func (r *fakeTillRepo) GetForUpdate(ctx context.Context, sessionID id.ID) (*till.Session, error) {
	return r.GetByID(ctx, sessionID)
}

func (r *fakeTillRepo) UpdateSession(_ context.Context, s *till.Session) error {
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *fakeTillRepo) CreateMovement(context.Context, *till.Movement) error { return nil }

func (r *fakeTillRepo) ListMovements(context.Context, id.ID) ([]*till.Movement, error) {
	return nil, nil
}

func (r *fakeTillRepo) ListSessions(_ context.Context, filter domain.ListFilter) (domain.ListResult[*till.Session], error) {
	return domain.ListResult[*till.Session]{Limit: filter.Limit}, nil
}

// --- harness ---

type harness struct {
	svc        *Service
	saleRepo   *fakeSaleRepo
	returns    *fakeReturns
	products   *fakeProductRepo
	suppliers  *fakeSupplierReader
	creditRepo *fakeCreditRepo
	credits    *credit.Service
	tillRepo   *fakeTillRepo
	tillSvc    *till.Service
	clk        *clock.Mock
}

func newHarness() *harness {
	h := &harness{
		saleRepo:   newFakeSaleRepo(),
		returns:    &fakeReturns{},
		products:   &fakeProductRepo{products: make(map[id.ID]*inventory.Product)},
		suppliers:  &fakeSupplierReader{suppliers: make(map[id.ID]*supplier.Supplier)},
		creditRepo: &fakeCreditRepo{credits: make(map[id.ID]*credit.Credit)},
		tillRepo:   &fakeTillRepo{sessions: make(map[id.ID]*till.Session)},
		clk:        clock.NewMock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)),
	}

	txm := passthroughTx{}
	num := numerator.NewMock()
	ledger := inventory.NewLedger(h.products, h.suppliers, num, txm, h.clk)
	h.credits = credit.NewService(h.creditRepo, h.suppliers, txm, h.clk, credit.DefaultHoldingPeriod)
	h.tillSvc = till.NewService(h.tillRepo, txm, h.clk)
	h.svc = NewService(h.saleRepo, h.returns, ledger, h.credits, h.tillSvc, num, txm, h.clk, nil)
	return h
}

func (h *harness) addSupplier(pct string) *supplier.Supplier {
	sup := supplier.New("Vintage Finds", types.MustMoney(pct))
	sup.Base = entity.NewBase(h.clk.Now())
	h.suppliers.suppliers[sup.ID] = sup
	return sup
}

func (h *harness) addProduct(price string, supplierID *id.ID) *inventory.Product {
	p := &inventory.Product{
		Base:      entity.NewBase(h.clk.Now()),
		SKU:       "ITM-2025-0000" + price[:1],
		Name:      "Item " + price,
		Price:     types.MustMoney(price),
		Ownership: inventory.OwnershipOwned,
		Status:    inventory.StatusActive,
	}
	if supplierID != nil {
		p.Ownership = inventory.OwnershipConsigned
		p.SupplierID = supplierID
	}
	h.products.products[p.ID] = p
	return p
}

func (h *harness) openTill(t *testing.T, opening string) *till.Session {
	t.Helper()
	session, err := h.tillSvc.Open(context.Background(), types.MustMoney(opening), "cashier-1")
	require.NoError(t, err)
	return session
}

func (h *harness) addReleasedCredit(supplierID id.ID, value string) *credit.Credit {
	now := h.clk.Now()
	c := &credit.Credit{
		Base:       entity.NewBase(now),
		SupplierID: supplierID,
		SaleID:     id.New(),
		SaleValue:  types.MustMoney(value),
		Percentage: types.MustMoney("100"),
		Value:      types.MustMoney(value),
		Status:     credit.StatusReleased,
		MaturesAt:  now.Add(-time.Hour),
		ReleasedAt: &now,
	}
	h.creditRepo.credits[c.ID] = c
	return c
}

func lineInputs(products ...*inventory.Product) []LineInput {
	out := make([]LineInput, len(products))
	for i, p := range products {
		out[i] = LineInput{ProductID: p.ID, Qty: 1, Discount: types.Zero()}
	}
	return out
}

// --- tests ---

func TestCreate_InPersonCash(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	sup := h.addSupplier("70")
	consigned := h.addProduct("45.00", &sup.ID)
	owned := h.addProduct("30.00", nil)
	session := h.openTill(t, "100.00")

	result, err := h.svc.Create(ctx, CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCash,
		Lines:         lineInputs(consigned, owned),
		Discount:      types.Zero(),
		UserID:        "cashier-1",
	})
	require.NoError(t, err)

	sl := result.Sale
	assert.Equal(t, StatusConfirmed, sl.Status)
	assert.NotEmpty(t, sl.Number)
	assert.True(t, sl.Total.Equal(types.MustMoney("75.00")), "total %s", sl.Total)
	require.NotNil(t, sl.ConfirmedAt)
	require.NotNil(t, sl.TillSessionID)
	assert.Equal(t, session.ID, *sl.TillSessionID)

	assert.Equal(t, inventory.StatusSold, h.products.products[consigned.ID].Status)
	assert.Equal(t, inventory.StatusSold, h.products.products[owned.ID].Status)

	// One credit, for the consigned line only: 45.00 * 70% = 31.50.
	credits, err := h.credits.ListBySale(ctx, sl.ID)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.Equal(t, credit.StatusPending, credits[0].Status)
	assert.True(t, credits[0].Value.Equal(types.MustMoney("31.50")), "credit %s", credits[0].Value)
	assert.Equal(t, sup.ID, credits[0].SupplierID)

	assert.True(t, h.tillRepo.sessions[session.ID].CashTotal.Equal(types.MustMoney("75.00")))
}

func TestCreate_EmptyCart(t *testing.T) {
	h := newHarness()

	_, err := h.svc.Create(context.Background(), CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCard,
		UserID:        "cashier-1",
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestCreate_UnavailableItem(t *testing.T) {
	h := newHarness()
	p := h.addProduct("45.00", nil)
	h.products.products[p.ID].Status = inventory.StatusSold

	_, err := h.svc.Create(context.Background(), CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		UserID:        "cashier-1",
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeItemUnavailable))
	assert.Empty(t, h.saleRepo.sales, "nothing persisted on rejection")
}

func TestCreate_DiscountExceedsSubtotal(t *testing.T) {
	h := newHarness()
	p := h.addProduct("10.00", nil)

	_, err := h.svc.Create(context.Background(), CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		Discount:      types.MustMoney("15.00"),
		UserID:        "cashier-1",
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestCreate_CashRequiresOpenTill(t *testing.T) {
	h := newHarness()
	p := h.addProduct("10.00", nil)

	_, err := h.svc.Create(context.Background(), CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCash,
		Lines:         lineInputs(p),
		UserID:        "cashier-1",
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeTillNotOpen))
	assert.Equal(t, inventory.StatusActive, h.products.products[p.ID].Status, "reservation rolled back")
}

func TestCreate_CardWithoutTill(t *testing.T) {
	h := newHarness()
	p := h.addProduct("10.00", nil)

	result, err := h.svc.Create(context.Background(), CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		UserID:        "cashier-1",
	})
	require.NoError(t, err)
	assert.Nil(t, result.Sale.TillSessionID)
	assert.Equal(t, StatusConfirmed, result.Sale.Status)
}

func TestCreate_WithCredit(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	sup := h.addSupplier("70")
	p := h.addProduct("30.00", nil)
	c := h.addReleasedCredit(sup.ID, "50.00")

	result, err := h.svc.Create(ctx, CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		CreditID:      &c.ID,
		UserID:        "cashier-1",
	})
	require.NoError(t, err)

	sl := result.Sale
	assert.True(t, sl.CreditApplied.Equal(types.MustMoney("30.00")), "applied %s", sl.CreditApplied)
	assert.True(t, sl.Total.IsZero(), "total %s", sl.Total)
	assert.True(t, result.CreditRemainder.Equal(types.MustMoney("20.00")), "remainder %s", result.CreditRemainder)

	// The credit is consumed in full regardless of the remainder.
	got := h.creditRepo.credits[c.ID]
	assert.Equal(t, credit.StatusUsed, got.Status)
	require.NotNil(t, got.ConsumedBySaleID)
	assert.Equal(t, sl.ID, *got.ConsumedBySaleID)
}

func TestCreate_CreditNotReleased(t *testing.T) {
	h := newHarness()
	sup := h.addSupplier("70")
	p := h.addProduct("30.00", nil)
	c := h.addReleasedCredit(sup.ID, "50.00")
	h.creditRepo.credits[c.ID].Status = credit.StatusPending

	_, err := h.svc.Create(context.Background(), CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		CreditID:      &c.ID,
		UserID:        "cashier-1",
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeCreditNotReleased))
	assert.Equal(t, inventory.StatusActive, h.products.products[p.ID].Status)
}

func TestCreate_OnlineCreditDeferredToConfirm(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	sup := h.addSupplier("70")
	p := h.addProduct("30.00", nil)
	c := h.addReleasedCredit(sup.ID, "20.00")

	result, err := h.svc.Create(ctx, CreateInput{
		Channel:       ChannelOnline,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		CreditID:      &c.ID,
		UserID:        "web",
	})
	require.NoError(t, err)

	sl := result.Sale
	assert.Equal(t, StatusPendingPayment, sl.Status)
	assert.True(t, sl.CreditApplied.Equal(types.MustMoney("20.00")), "applied %s", sl.CreditApplied)
	assert.True(t, sl.Total.Equal(types.MustMoney("10.00")), "total %s", sl.Total)
	require.NotNil(t, sl.AppliedCreditID)

	// Verified but not consumed until the gateway answers.
	assert.Equal(t, credit.StatusReleased, h.creditRepo.credits[c.ID].Status)

	err = h.svc.ConfirmPending(ctx, sl.ID, GatewayOutcome{Success: true, Reference: "pay_789"})
	require.NoError(t, err)

	got := h.creditRepo.credits[c.ID]
	assert.Equal(t, credit.StatusUsed, got.Status)
	require.NotNil(t, got.ConsumedBySaleID)
	assert.Equal(t, sl.ID, *got.ConsumedBySaleID)
}

func TestConfirmPending_CreditSpentMeanwhile(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	sup := h.addSupplier("70")
	p := h.addProduct("30.00", nil)
	c := h.addReleasedCredit(sup.ID, "20.00")

	result, err := h.svc.Create(ctx, CreateInput{
		Channel:       ChannelOnline,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		CreditID:      &c.ID,
		UserID:        "web",
	})
	require.NoError(t, err)

	// An in-person sale spends the credit while payment processes.
	otherSale := id.New()
	h.creditRepo.credits[c.ID].Status = credit.StatusUsed
	h.creditRepo.credits[c.ID].ConsumedBySaleID = &otherSale

	err = h.svc.ConfirmPending(ctx, result.Sale.ID, GatewayOutcome{Success: true, Reference: "pay_790"})
	assert.True(t, apperror.HasCode(err, apperror.CodeCreditAlreadyUsed))

	// The confirm failed whole; the stale-pending sweep collects the sale.
	assert.Equal(t, StatusPendingPayment, h.saleRepo.sales[result.Sale.ID].Status)
	assert.Equal(t, inventory.StatusActive, h.products.products[p.ID].Status)
	assert.Equal(t, &otherSale, h.creditRepo.credits[c.ID].ConsumedBySaleID)
}

func TestCreate_OnlinePending(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	sup := h.addSupplier("70")
	p := h.addProduct("45.00", &sup.ID)

	result, err := h.svc.Create(ctx, CreateInput{
		Channel:       ChannelOnline,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		UserID:        "web",
	})
	require.NoError(t, err)

	sl := result.Sale
	assert.Equal(t, StatusPendingPayment, sl.Status)
	assert.Nil(t, sl.ConfirmedAt)

	// Nothing finalizes until the gateway answers.
	assert.Equal(t, inventory.StatusActive, h.products.products[p.ID].Status)
	credits, err := h.credits.ListBySale(ctx, sl.ID)
	require.NoError(t, err)
	assert.Empty(t, credits)
}

func TestConfirmPending_Success(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	sup := h.addSupplier("70")
	p := h.addProduct("45.00", &sup.ID)

	result, err := h.svc.Create(ctx, CreateInput{
		Channel:       ChannelOnline,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		UserID:        "web",
	})
	require.NoError(t, err)

	err = h.svc.ConfirmPending(ctx, result.Sale.ID, GatewayOutcome{Success: true, Reference: "pay_123"})
	require.NoError(t, err)

	got := h.saleRepo.sales[result.Sale.ID]
	assert.Equal(t, StatusConfirmed, got.Status)
	require.NotNil(t, got.ConfirmedAt)
	assert.Equal(t, inventory.StatusSold, h.products.products[p.ID].Status)

	credits, err := h.credits.ListBySale(ctx, result.Sale.ID)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	assert.True(t, credits[0].Value.Equal(types.MustMoney("31.50")))
}

func TestConfirmPending_Failure(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.addProduct("45.00", nil)

	result, err := h.svc.Create(ctx, CreateInput{
		Channel:       ChannelOnline,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		UserID:        "web",
	})
	require.NoError(t, err)

	err = h.svc.ConfirmPending(ctx, result.Sale.ID, GatewayOutcome{Success: false, Reason: "card declined"})
	require.NoError(t, err)

	got := h.saleRepo.sales[result.Sale.ID]
	assert.Equal(t, StatusCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)
	assert.Equal(t, inventory.StatusActive, h.products.products[p.ID].Status)
}

func TestConfirmPending_ItemSoldMeanwhile(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.addProduct("45.00", nil)

	result, err := h.svc.Create(ctx, CreateInput{
		Channel:       ChannelOnline,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		UserID:        "web",
	})
	require.NoError(t, err)

	// An in-person sale takes the item while payment processes.
	h.products.products[p.ID].Status = inventory.StatusSold

	err = h.svc.ConfirmPending(ctx, result.Sale.ID, GatewayOutcome{Success: true, Reference: "pay_456"})
	assert.True(t, apperror.HasCode(err, apperror.CodeItemUnavailable))

	got := h.saleRepo.sales[result.Sale.ID]
	assert.Equal(t, StatusCancelled, got.Status, "unfulfillable sale is cancelled")
}

func TestConfirmPending_NotPending(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.addProduct("45.00", nil)

	result, err := h.svc.Create(ctx, CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		UserID:        "cashier-1",
	})
	require.NoError(t, err)

	err = h.svc.ConfirmPending(ctx, result.Sale.ID, GatewayOutcome{Success: true})
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
}

func TestCancel(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	sup := h.addSupplier("70")
	p := h.addProduct("45.00", &sup.ID)

	result, err := h.svc.Create(ctx, CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		UserID:        "cashier-1",
	})
	require.NoError(t, err)

	require.NoError(t, h.svc.Cancel(ctx, result.Sale.ID, "manager-1"))

	got := h.saleRepo.sales[result.Sale.ID]
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, inventory.StatusActive, h.products.products[p.ID].Status, "item back on the floor")
}

func TestCancel_SettledCreditBlocks(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	sup := h.addSupplier("70")
	p := h.addProduct("45.00", &sup.ID)

	result, err := h.svc.Create(ctx, CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		UserID:        "cashier-1",
	})
	require.NoError(t, err)

	credits, err := h.credits.ListBySale(ctx, result.Sale.ID)
	require.NoError(t, err)
	require.Len(t, credits, 1)
	h.creditRepo.credits[credits[0].ID].Status = credit.StatusReleased

	err = h.svc.Cancel(ctx, result.Sale.ID, "manager-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeCreditAlreadySettled))
	assert.Equal(t, StatusConfirmed, h.saleRepo.sales[result.Sale.ID].Status)
}

func TestCancel_DecidedReturnBlocks(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.addProduct("45.00", nil)

	result, err := h.svc.Create(ctx, CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		UserID:        "cashier-1",
	})
	require.NoError(t, err)

	h.returns.decided = true

	err = h.svc.Cancel(ctx, result.Sale.ID, "manager-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))
}

func TestCancel_RequiresConfirmed(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.addProduct("45.00", nil)

	result, err := h.svc.Create(ctx, CreateInput{
		Channel:       ChannelOnline,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		UserID:        "web",
	})
	require.NoError(t, err)

	err = h.svc.Cancel(ctx, result.Sale.ID, "manager-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeSaleNotConfirmed))
}

func TestCancelStalePending(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	p := h.addProduct("45.00", nil)

	result, err := h.svc.Create(ctx, CreateInput{
		Channel:       ChannelOnline,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p),
		UserID:        "web",
	})
	require.NoError(t, err)

	h.clk.Advance(time.Hour)

	cancelled, err := h.svc.CancelStalePending(ctx, 30*time.Minute, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)
	assert.Equal(t, StatusCancelled, h.saleRepo.sales[result.Sale.ID].Status)

	// Nothing left to cancel.
	cancelled, err = h.svc.CancelStalePending(ctx, 30*time.Minute, 100)
	require.NoError(t, err)
	assert.Zero(t, cancelled)
}

func TestCreate_LineDiscounts(t *testing.T) {
	h := newHarness()
	p1 := h.addProduct("45.00", nil)
	p2 := h.addProduct("30.00", nil)

	result, err := h.svc.Create(context.Background(), CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCard,
		Lines: []LineInput{
			{ProductID: p1.ID, Qty: 1, Discount: types.MustMoney("5.00")},
			{ProductID: p2.ID, Qty: 1, Discount: types.Zero()},
		},
		Discount: types.MustMoney("10.00"),
		UserID:   "cashier-1",
	})
	require.NoError(t, err)

	sl := result.Sale
	assert.True(t, sl.Subtotal.Equal(types.MustMoney("70.00")), "subtotal %s", sl.Subtotal)
	assert.True(t, sl.Total.Equal(types.MustMoney("60.00")), "total %s", sl.Total)

	lines, err := h.saleRepo.GetLines(context.Background(), sl.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.True(t, lines[0].Amount.Equal(types.MustMoney("40.00")))
	assert.True(t, lines[1].Amount.Equal(types.MustMoney("30.00")))
}

func TestCreate_LineDiscountExceedsLineValue(t *testing.T) {
	h := newHarness()
	sup := h.addSupplier("70")
	p := h.addProduct("40.00", &sup.ID)

	_, err := h.svc.Create(context.Background(), CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCard,
		Lines: []LineInput{
			{ProductID: p.ID, Qty: 1, Discount: types.MustMoney("50.00")},
		},
		UserID: "cashier-1",
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
	assert.Empty(t, h.saleRepo.sales, "nothing persisted on rejection")
}

func TestCreate_DuplicateProduct(t *testing.T) {
	h := newHarness()
	p := h.addProduct("45.00", nil)

	_, err := h.svc.Create(context.Background(), CreateInput{
		Channel:       ChannelInPerson,
		PaymentMethod: domain.PaymentCard,
		Lines:         lineInputs(p, p),
		UserID:        "cashier-1",
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}
