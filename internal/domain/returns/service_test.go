package returns

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
	"consigna/internal/domain/inventory"
	"consigna/internal/domain/sale"
)

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeRepo struct {
	requests map[id.ID]*ReturnRequest
}

func (r *fakeRepo) Create(_ context.Context, req *ReturnRequest) error {
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRepo) Update(_ context.Context, req *ReturnRequest) error {
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, requestID id.ID) (*ReturnRequest, error) {
	req, ok := r.requests[requestID]
	if !ok {
		return nil, apperror.NewNotFound("return_request", requestID.String())
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, requestID id.ID) (*ReturnRequest, error) {
	return r.GetByID(ctx, requestID)
}

func (r *fakeRepo) HasDecision(_ context.Context, saleID id.ID) (bool, error) {
	for _, req := range r.requests {
		if req.SaleID == saleID && req.Status.Decided() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) List(_ context.Context, filter ListFilter) (domain.ListResult[*ReturnRequest], error) {
	var items []*ReturnRequest
	for _, req := range r.requests {
		items = append(items, req)
	}
	return domain.ListResult[*ReturnRequest]{Items: items, TotalCount: int64(len(items)), Limit: filter.Limit}, nil
}

type fakeSaleRepo struct {
	sales map[id.ID]*sale.Sale
	lines map[id.ID][]sale.Line
}

func (r *fakeSaleRepo) Create(_ context.Context, s *sale.Sale) error {
	r.sales[s.ID] = s
	return nil
}

func (r *fakeSaleRepo) SaveLines(_ context.Context, saleID id.ID, lines []sale.Line) error {
	r.lines[saleID] = lines
	return nil
}

func (r *fakeSaleRepo) Update(_ context.Context, s *sale.Sale) error {
	cp := *s
	cp.Lines = nil
	r.sales[s.ID] = &cp
	return nil
}

func (r *fakeSaleRepo) GetByID(_ context.Context, saleID id.ID) (*sale.Sale, error) {
	s, ok := r.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.GetByID(ctx, saleID)
}

func (r *fakeSaleRepo) GetLines(_ context.Context, saleID id.ID) ([]sale.Line, error) {
	return r.lines[saleID], nil
}

func (r *fakeSaleRepo) ListStalePending(context.Context, time.Time, int) ([]id.ID, error) {
	return nil, nil
}

func (r *fakeSaleRepo) List(_ context.Context, filter sale.ListFilter) (domain.ListResult[*sale.Sale], error) {
	return domain.ListResult[*sale.Sale]{Limit: filter.Limit}, nil
}

type fakeProductRepo struct {
	products map[id.ID]*inventory.Product
}

func (r *fakeProductRepo) Create(_ context.Context, p *inventory.Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, productID id.ID) (*inventory.Product, error) {
	p, ok := r.products[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	return p, nil
}

func (r *fakeProductRepo) GetManyForUpdate(_ context.Context, productIDs []id.ID) ([]*inventory.Product, error) {
	var out []*inventory.Product
	for _, pid := range productIDs {
		if p, ok := r.products[pid]; ok {
			out = append(out, p)
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

type harness struct {
	svc      *Service
	repo     *fakeRepo
	sales    *fakeSaleRepo
	products *fakeProductRepo
	clk      *clock.Mock
}

func newHarness() *harness {
	h := &harness{
		repo:     &fakeRepo{requests: make(map[id.ID]*ReturnRequest)},
		sales:    &fakeSaleRepo{sales: make(map[id.ID]*sale.Sale), lines: make(map[id.ID][]sale.Line)},
		products: &fakeProductRepo{products: make(map[id.ID]*inventory.Product)},
		clk:      clock.NewMock(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)),
	}

	txm := passthroughTx{}
	ledger := inventory.NewLedger(h.products, nil, nil, txm, h.clk)
	h.svc = NewService(h.repo, h.sales, ledger, txm, h.clk, nil, DefaultRefundWindow)
	return h
}

// seedSale stores a confirmed sale with one sold product.
func (h *harness) seedSale(channel sale.Channel) *sale.Sale {
	now := h.clk.Now()

	p := &inventory.Product{
		Base:      entity.NewBase(now),
		SKU:       "ITM-2025-00001",
		Name:      "Leather jacket",
		Price:     types.MustMoney("45.00"),
		Ownership: inventory.OwnershipOwned,
		Status:    inventory.StatusSold,
		SoldAt:    &now,
	}
	h.products.products[p.ID] = p

	s := &sale.Sale{
		Base:          entity.NewBase(now),
		Number:        "SALE-2025-00001",
		Channel:       channel,
		PaymentMethod: domain.PaymentCard,
		Status:        sale.StatusConfirmed,
		Subtotal:      types.MustMoney("45.00"),
		Total:         types.MustMoney("45.00"),
		ConfirmedAt:   &now,
	}
	h.sales.sales[s.ID] = s
	h.sales.lines[s.ID] = []sale.Line{{
		LineID:    id.New(),
		SaleID:    s.ID,
		LineNo:    1,
		ProductID: p.ID,
		UnitPrice: p.Price,
		Qty:       1,
		Amount:    p.Price,
	}}
	return s
}

func (h *harness) productOf(s *sale.Sale) *inventory.Product {
	return h.products.products[h.sales.lines[s.ID][0].ProductID]
}

func TestRequest(t *testing.T) {
	h := newHarness()
	s := h.seedSale(sale.ChannelOnline)

	req, err := h.svc.Request(context.Background(), s.ID, KindRefund, "wrong size")
	require.NoError(t, err)
	assert.Equal(t, StatusRequested, req.Status)
	assert.Equal(t, s.ID, req.SaleID)
}

func TestRequest_Rejections(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	s := h.seedSale(sale.ChannelOnline)

	_, err := h.svc.Request(ctx, s.ID, KindRefund, "")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "missing reason")

	_, err = h.svc.Request(ctx, s.ID, Kind("STORE_CREDIT"), "x")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "unknown kind")

	h.sales.sales[s.ID].Status = sale.StatusCancelled
	_, err = h.svc.Request(ctx, s.ID, KindRefund, "wrong size")
	assert.True(t, apperror.HasCode(err, apperror.CodeSaleNotConfirmed), "sale not confirmed")
}

func TestDecide_DeclineRequiresNote(t *testing.T) {
	h := newHarness()
	s := h.seedSale(sale.ChannelOnline)
	req, err := h.svc.Request(context.Background(), s.ID, KindRefund, "wrong size")
	require.NoError(t, err)

	_, err = h.svc.Decide(context.Background(), req.ID, Decision{Approve: false}, "manager-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestDecide_Decline(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	s := h.seedSale(sale.ChannelOnline)
	req, err := h.svc.Request(ctx, s.ID, KindRefund, "wrong size")
	require.NoError(t, err)

	decided, err := h.svc.Decide(ctx, req.ID, Decision{Approve: false, Note: "item shows wear"}, "manager-1")
	require.NoError(t, err)

	assert.Equal(t, StatusDeclined, decided.Status)
	assert.Equal(t, "item shows wear", decided.DecisionNote)
	assert.Equal(t, "manager-1", decided.DecidedBy)
	require.NotNil(t, decided.DecidedAt)

	// Declines leave the sale alone.
	assert.Equal(t, sale.StatusConfirmed, h.sales.sales[s.ID].Status)
	assert.Equal(t, inventory.StatusSold, h.productOf(s).Status)
}

func TestDecide_Twice(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	s := h.seedSale(sale.ChannelOnline)
	req, err := h.svc.Request(ctx, s.ID, KindRefund, "wrong size")
	require.NoError(t, err)

	_, err = h.svc.Decide(ctx, req.ID, Decision{Approve: false, Note: "no"}, "manager-1")
	require.NoError(t, err)

	_, err = h.svc.Decide(ctx, req.ID, Decision{Approve: true}, "manager-2")
	assert.True(t, apperror.HasCode(err, apperror.CodeReturnAlreadyDecided))
}

func TestDecide_RefundWithinWindow(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	s := h.seedSale(sale.ChannelOnline)
	req, err := h.svc.Request(ctx, s.ID, KindRefund, "wrong size")
	require.NoError(t, err)

	h.clk.Advance(6 * 24 * time.Hour)

	decided, err := h.svc.Decide(ctx, req.ID, Decision{Approve: true}, "manager-1")
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, decided.Status)
	assert.Equal(t, sale.StatusRefunded, h.sales.sales[s.ID].Status)
	assert.Equal(t, inventory.StatusActive, h.productOf(s).Status, "item back on the floor")
}

func TestDecide_RefundWindowExpired(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	s := h.seedSale(sale.ChannelOnline)
	req, err := h.svc.Request(ctx, s.ID, KindRefund, "wrong size")
	require.NoError(t, err)

	h.clk.Advance(8 * 24 * time.Hour)

	_, err = h.svc.Decide(ctx, req.ID, Decision{Approve: true}, "manager-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeWindowExpired))
	assert.Equal(t, sale.StatusConfirmed, h.sales.sales[s.ID].Status)
	assert.Equal(t, inventory.StatusSold, h.productOf(s).Status)
}

func TestDecide_RefundWindowRunsFromCreation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	s := h.seedSale(sale.ChannelOnline)

	// The gateway took two days to confirm; that must not stretch the window.
	confirmed := h.clk.Now().Add(2 * 24 * time.Hour)
	h.sales.sales[s.ID].ConfirmedAt = &confirmed

	req, err := h.svc.Request(ctx, s.ID, KindRefund, "wrong size")
	require.NoError(t, err)

	h.clk.Advance(8 * 24 * time.Hour)

	_, err = h.svc.Decide(ctx, req.ID, Decision{Approve: true}, "manager-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeWindowExpired))
	assert.Equal(t, sale.StatusConfirmed, h.sales.sales[s.ID].Status)
	assert.Equal(t, inventory.StatusSold, h.productOf(s).Status)
}

func TestDecide_RefundInPerson(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	s := h.seedSale(sale.ChannelInPerson)
	req, err := h.svc.Request(ctx, s.ID, KindRefund, "changed my mind")
	require.NoError(t, err)

	_, err = h.svc.Decide(ctx, req.ID, Decision{Approve: true}, "manager-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeChannelNotEligible))
}

func TestDecide_Exchange(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	s := h.seedSale(sale.ChannelInPerson)
	replacement := h.seedSale(sale.ChannelInPerson)

	req, err := h.svc.Request(ctx, s.ID, KindExchange, "different colour")
	require.NoError(t, err)

	_, err = h.svc.Decide(ctx, req.ID, Decision{Approve: true}, "manager-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "replacement sale required")

	missing := id.New()
	_, err = h.svc.Decide(ctx, req.ID, Decision{Approve: true, ReplacementSaleID: &missing}, "manager-1")
	assert.True(t, apperror.IsNotFound(err), "replacement must exist")

	decided, err := h.svc.Decide(ctx, req.ID, Decision{Approve: true, ReplacementSaleID: &replacement.ID}, "manager-1")
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, decided.Status)
	require.NotNil(t, decided.ReplacementSaleID)
	assert.Equal(t, replacement.ID, *decided.ReplacementSaleID)

	// Exchanges carry no inventory reversal; both sales stand.
	assert.Equal(t, sale.StatusConfirmed, h.sales.sales[s.ID].Status)
	assert.Equal(t, inventory.StatusSold, h.productOf(s).Status)
}

func TestDecide_ExchangeWorksBothChannels(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	s := h.seedSale(sale.ChannelOnline)
	replacement := h.seedSale(sale.ChannelOnline)

	h.clk.Advance(30 * 24 * time.Hour) // far past the refund window

	req, err := h.svc.Request(ctx, s.ID, KindExchange, "different colour")
	require.NoError(t, err)

	decided, err := h.svc.Decide(ctx, req.ID, Decision{Approve: true, ReplacementSaleID: &replacement.ID}, "manager-1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, decided.Status)
}
