package sales_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/core/numerator"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/audit"
	"lotledger/internal/domain/catalog"
	"lotledger/internal/domain/lots"
	"lotledger/internal/domain/returns"
	"lotledger/internal/domain/sales"
	"lotledger/internal/domain/settings"
	"lotledger/internal/infrastructure/storage/memory"
	"lotledger/internal/ledger"
)

type fixture struct {
	store  *memory.Store
	ledger *ledger.Ledger
	cfg    settings.Settings
	start  time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	return &fixture{
		store:  s,
		ledger: ledger.New(s.Backend(), nil),
		cfg:    settings.Default(),
		start:  time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) product(t *testing.T, name, price string) *catalog.Product {
	t.Helper()
	var p *catalog.Product
	if price == "" {
		p = catalog.NewProduct(name, nil)
	} else {
		m := types.MustMoney(price)
		p = catalog.NewProduct(name, &m)
	}
	require.NoError(t, f.store.Products().Create(context.Background(), p))
	return p
}

func (f *fixture) lot(t *testing.T, p *catalog.Product, qty int64, cost string, day int) *lots.Lot {
	t.Helper()
	l, err := f.ledger.Lots.Receive(context.Background(), lots.NewLot{
		ProductID: p.ID,
		Quantity:  qty,
		UnitCost:  types.MustMoney(cost),
		ArrivedAt: f.start.AddDate(0, 0, day),
	})
	require.NoError(t, err)
	return l
}

func (f *fixture) qty(t *testing.T, lotID id.ID) int64 {
	t.Helper()
	l, err := f.store.Lots().GetByID(context.Background(), lotID)
	require.NoError(t, err)
	return l.CurrentQuantity
}

func request(lines ...sales.LineRequest) sales.Request {
	return sales.Request{
		Channel:       sales.ChannelInStore,
		PaymentMethod: settings.MethodCash,
		Installments:  1,
		Discount:      types.Zero(),
		Lines:         lines,
	}
}

func line(p *catalog.Product, qty int64) sales.LineRequest {
	return sales.LineRequest{ProductID: p.ID, Quantity: qty}
}

func TestCreate_RecordsTrailAndFreezesValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Shampoo", "10.00")
	a := f.lot(t, p, 5, "2.00", 0)
	b := f.lot(t, p, 5, "3.00", 1)

	req := request(line(p, 7))
	req.PaymentMethod = settings.MethodCredit
	req.Installments = 2
	sale, err := f.ledger.Sales.Create(ctx, f.cfg, req)
	require.NoError(t, err)

	assert.Equal(t, sales.StatusCompleted, sale.Status)
	assert.Regexp(t, `^VD-\d{4}-00001$`, sale.Number)
	assert.True(t, sale.FeeRate.Equal(types.MustMoney("4.99")))
	assert.Equal(t, sales.DefaultCustomerName, sale.CustomerName)

	require.Len(t, sale.Lines, 1)
	l := sale.Lines[0]
	assert.True(t, l.UnitPrice.Equal(types.MustMoney("10.00")))
	assert.True(t, l.RegisteredCost.Equal(types.MustMoney("16.00")))
	assert.True(t, l.RegisteredCost.Equal(l.Draws.Cost()))
	assert.Equal(t, l.Quantity, l.Draws.Units())

	assert.Equal(t, int64(0), f.qty(t, a.ID))
	assert.Equal(t, int64(3), f.qty(t, b.ID))

	// A later price change does not touch the frozen line price.
	newPrice := types.MustMoney("99")
	p.SalePrice = &newPrice
	require.NoError(t, f.store.Products().Update(ctx, p))
	stored, err := f.ledger.Sales.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, stored.Lines[0].UnitPrice.Equal(types.MustMoney("10.00")))
	assert.Len(t, stored.Lines[0].Draws, 2)

	assert.Len(t, f.store.Journal().Entries(ctx, audit.EntitySale, sale.ID), 1)
}

func TestCreate_InsufficientStockOnSecondLineRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.product(t, "Soap", "5.00")
	p2 := f.product(t, "Towel", "20.00")
	l1 := f.lot(t, p1, 10, "1.00", 0)
	l2 := f.lot(t, p2, 1, "8.00", 0)

	_, err := f.ledger.Sales.Create(ctx, f.cfg, request(line(p1, 3), line(p2, 2)))
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	assert.Equal(t, int64(10), f.qty(t, l1.ID))
	assert.Equal(t, int64(1), f.qty(t, l2.ID))

	list, err := f.ledger.Sales.List(ctx, sales.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreate_AggregatesLinesOfSameProduct(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Gel", "5.00")
	l := f.lot(t, p, 4, "1.00", 0)

	_, err := f.ledger.Sales.Create(context.Background(), f.cfg, request(line(p, 3), line(p, 2)))
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, int64(5), appErr.Details["requested"])
	assert.Equal(t, int64(4), f.qty(t, l.ID))
}

func TestCreate_ValidationErrors(t *testing.T) {
	f := newFixture(t)
	priced := f.product(t, "Cream", "10.00")
	unpriced := f.product(t, "Sample", "")
	paused := f.product(t, "Old", "4.00")
	paused.Active = false
	require.NoError(t, f.store.Products().Update(context.Background(), paused))
	for _, p := range []*catalog.Product{priced, unpriced, paused} {
		f.lot(t, p, 10, "1.00", 0)
	}

	discounted := request(line(priced, 2))
	discounted.Discount = types.MustMoney("20.01")
	negative := request(line(priced, 1))
	negative.Discount = types.MustMoney("-1")
	badFee := request(line(priced, 1))
	badFee.PaymentMethod = "voucher"
	giftOnlyDiscount := request(sales.LineRequest{ProductID: unpriced.ID, Quantity: 1, Gift: true})
	giftOnlyDiscount.Discount = types.MustMoney("0.01")

	tests := []struct {
		name string
		req  sales.Request
		code string
	}{
		{"no lines", request(), apperror.CodeValidation},
		{"zero quantity", request(line(priced, 0)), apperror.CodeValidation},
		{"unknown product", request(sales.LineRequest{ProductID: id.New(), Quantity: 1}), apperror.CodeProductNotFound},
		{"unpriced", request(line(unpriced, 1)), apperror.CodeProductUnavailable},
		{"inactive", request(line(paused, 1)), apperror.CodeProductUnavailable},
		{"discount above gross", discounted, apperror.CodeInvalidDiscount},
		{"negative discount", negative, apperror.CodeInvalidDiscount},
		{"unknown fee pair", badFee, apperror.CodeValidation},
		{"gifts carry no discountable revenue", giftOnlyDiscount, apperror.CodeInvalidDiscount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.Sales.Create(context.Background(), f.cfg, tt.req)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestCreate_GiftLineConsumesStockAtZeroPrice(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "Keychain", "")
	l := f.lot(t, p, 3, "0.50", 0)

	sale, err := f.ledger.Sales.Create(context.Background(), f.cfg,
		request(sales.LineRequest{ProductID: p.ID, Quantity: 2, Gift: true}))
	require.NoError(t, err)

	assert.True(t, sale.Lines[0].UnitPrice.IsZero())
	assert.True(t, sale.Lines[0].RegisteredCost.Equal(types.MustMoney("1.00")))
	assert.Equal(t, int64(1), f.qty(t, l.ID))
}

func TestCreate_GiftOfPausedProductRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Retired mug", "6.00")
	l := f.lot(t, p, 5, "2.00", 0)
	p.Active = false
	require.NoError(t, f.store.Products().Update(ctx, p))

	_, err := f.ledger.Sales.Create(ctx, f.cfg,
		request(sales.LineRequest{ProductID: p.ID, Quantity: 2, Gift: true}))
	assert.True(t, apperror.HasCode(err, apperror.CodeProductUnavailable), "got %v", err)
	assert.Equal(t, int64(5), f.qty(t, l.ID))
}

func TestCreate_NumberingFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Lotion", "12.00")
	a := f.lot(t, p, 2, "3.00", 0)
	b := f.lot(t, p, 4, "4.00", 1)

	backend := f.store.Backend()
	backend.Numerator = &numerator.MockGenerator{
		NextFunc: func(context.Context, numerator.Config, time.Time) (string, error) {
			return "", errors.New("sequence unavailable")
		},
	}
	l := ledger.New(backend, nil)

	_, err := l.Sales.Create(ctx, f.cfg, request(line(p, 5)))
	require.ErrorContains(t, err, "sequence unavailable")

	assert.Equal(t, int64(2), f.qty(t, a.ID))
	assert.Equal(t, int64(4), f.qty(t, b.ID))
	list, err := l.Sales.List(ctx, sales.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

// lockRecorder records the products whose lots are locked, in call order.
type lockRecorder struct {
	*memory.LotRepo
	mu     sync.Mutex
	locked []id.ID
}

func (r *lockRecorder) ListAvailableForUpdate(ctx context.Context, productID id.ID) ([]*lots.Lot, error) {
	r.mu.Lock()
	r.locked = append(r.locked, productID)
	r.mu.Unlock()
	return r.LotRepo.ListAvailableForUpdate(ctx, productID)
}

func TestCreate_LocksProductsInIDOrder(t *testing.T) {
	f := newFixture(t)
	p1 := f.product(t, "Razor", "7.00")
	p2 := f.product(t, "Blades", "3.00")
	f.lot(t, p1, 5, "2.00", 0)
	f.lot(t, p2, 5, "1.00", 0)

	lo, hi := p1, p2
	if id.Compare(lo.ID, hi.ID) > 0 {
		lo, hi = hi, lo
	}

	backend := f.store.Backend()
	recorder := &lockRecorder{LotRepo: f.store.Lots()}
	backend.Lots = recorder
	l := ledger.New(backend, nil)

	_, err := l.Sales.Create(context.Background(), f.cfg, request(line(hi, 1), line(lo, 2), line(hi, 1)))
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(recorder.locked), 2)
	assert.Equal(t, []id.ID{lo.ID, hi.ID}, recorder.locked[:2])
}

func TestCreateThenDelete_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p1 := f.product(t, "Brush", "9.00")
	p2 := f.product(t, "Comb", "3.00")
	a := f.lot(t, p1, 4, "2.00", 0)
	b := f.lot(t, p1, 4, "2.50", 1)
	c := f.lot(t, p2, 6, "1.00", 0)

	sale, err := f.ledger.Sales.Create(ctx, f.cfg, request(line(p1, 6), line(p2, 6)))
	require.NoError(t, err)
	require.NoError(t, f.ledger.Sales.Delete(ctx, sale.ID))

	assert.Equal(t, int64(4), f.qty(t, a.ID))
	assert.Equal(t, int64(4), f.qty(t, b.ID))
	assert.Equal(t, int64(6), f.qty(t, c.ID))

	_, err = f.ledger.Sales.Get(ctx, sale.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestEdit_SameLinesLeavesNoDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Lotion", "12.00")
	a := f.lot(t, p, 5, "4.00", 0)
	b := f.lot(t, p, 5, "5.00", 1)

	req := request(line(p, 7))
	sale, err := f.ledger.Sales.Create(ctx, f.cfg, req)
	require.NoError(t, err)

	edited, err := f.ledger.Sales.Edit(ctx, f.cfg, sale.ID, req)
	require.NoError(t, err)

	assert.Equal(t, sale.ID, edited.ID)
	assert.Equal(t, sale.Number, edited.Number)
	assert.Equal(t, 2, edited.Version)
	assert.Equal(t, int64(0), f.qty(t, a.ID))
	assert.Equal(t, int64(3), f.qty(t, b.ID))
	assert.True(t, edited.Lines[0].RegisteredCost.Equal(sale.Lines[0].RegisteredCost))
}

func TestEdit_UsesOwnUnitsAndRefreezesFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Mask", "15.00")
	l := f.lot(t, p, 3, "5.00", 0)

	sale, err := f.ledger.Sales.Create(ctx, f.cfg, request(line(p, 3)))
	require.NoError(t, err)
	require.Equal(t, int64(0), f.qty(t, l.ID))

	req := request(line(p, 2))
	req.PaymentMethod = settings.MethodDebit
	req.Channel = sales.ChannelExternal
	req.Discount = types.MustMoney("5")
	edited, err := f.ledger.Sales.Edit(ctx, f.cfg, sale.ID, req)
	require.NoError(t, err)

	assert.Equal(t, int64(1), f.qty(t, l.ID))
	assert.True(t, edited.FeeRate.Equal(types.MustMoney("1.99")))
	assert.Equal(t, sales.ChannelExternal, edited.Channel)
	assert.Equal(t, sale.Date, edited.Date)

	stored, err := f.ledger.Sales.Get(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, int64(2), stored.Lines[0].Quantity)
}

func TestEdit_FailureKeepsOriginalSale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Razor", "8.00")
	l := f.lot(t, p, 4, "2.00", 0)

	sale, err := f.ledger.Sales.Create(ctx, f.cfg, request(line(p, 2)))
	require.NoError(t, err)

	_, err = f.ledger.Sales.Edit(ctx, f.cfg, sale.ID, request(line(p, 5)))
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	assert.Equal(t, int64(2), f.qty(t, l.ID))
	stored, err := f.ledger.Sales.Get(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Lines[0].Quantity)
	assert.Equal(t, 1, stored.Version)
}

func TestSaleWithReturnIsLocked(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Perfume", "50.00")
	f.lot(t, p, 5, "20.00", 0)

	sale, err := f.ledger.Sales.Create(ctx, f.cfg, request(line(p, 2)))
	require.NoError(t, err)
	_, err = f.ledger.Returns.Register(ctx, f.cfg, sale.ID, returns.Request{
		Lines: []returns.LineRequest{{LineItemID: sale.Lines[0].ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.ledger.Sales.Edit(ctx, f.cfg, sale.ID, request(line(p, 1)))
	assert.True(t, apperror.HasCode(err, apperror.CodeSaleLocked))
	assert.True(t, apperror.HasCode(f.ledger.Sales.Delete(ctx, sale.ID), apperror.CodeSaleLocked))
	_, err = f.ledger.Sales.Cancel(ctx, sale.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeSaleLocked))
}

func TestCancel_RestoresStockAndKeepsLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Candle", "6.00")
	l := f.lot(t, p, 5, "2.00", 0)

	sale, err := f.ledger.Sales.Create(ctx, f.cfg, request(line(p, 4)))
	require.NoError(t, err)

	cancelled, err := f.ledger.Sales.Cancel(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sales.StatusCancelled, cancelled.Status)
	assert.Equal(t, int64(5), f.qty(t, l.ID))

	stored, err := f.ledger.Sales.Get(ctx, sale.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Empty(t, stored.Lines[0].Draws)

	_, err = f.ledger.Sales.Cancel(ctx, sale.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeSaleCancelled))
	_, err = f.ledger.Sales.Edit(ctx, f.cfg, sale.ID, request(line(p, 1)))
	assert.True(t, apperror.HasCode(err, apperror.CodeSaleCancelled))

	// Deleting a cancelled sale must not restore the stock a second time.
	require.NoError(t, f.ledger.Sales.Delete(ctx, sale.ID))
	assert.Equal(t, int64(5), f.qty(t, l.ID))
}

func TestDelete_LegacyLineRestoresIntoLatestLot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "Vintage", "30.00")
	f.lot(t, p, 5, "10.00", 0)
	latest := f.lot(t, p, 1, "12.00", 1)

	// A line recorded before trails existed: header and line without draws.
	sale := &sales.Sale{
		ID: id.New(), Number: "VD-2020-00001", Date: f.start, Channel: sales.ChannelInStore,
		Status: sales.StatusCompleted, Discount: types.Zero(), PaymentMethod: "cash", Installments: 1,
		FeeRate: types.Zero(), Version: 1,
	}
	require.NoError(t, f.store.Sales().Create(ctx, sale))
	sale.Lines = []*sales.LineItem{{
		ID: id.New(), SaleID: sale.ID, LineNo: 1, ProductID: p.ID, Quantity: 2,
		UnitPrice: types.MustMoney("30.00"), RegisteredCost: types.MustMoney("20.00"),
	}}
	require.NoError(t, f.store.Sales().SaveLines(ctx, sale))

	require.NoError(t, f.ledger.Sales.Delete(ctx, sale.ID))
	assert.Equal(t, int64(3), f.qty(t, latest.ID))
}
