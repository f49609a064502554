package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/catalog"
	"lotledger/internal/domain/lots"
	"lotledger/internal/domain/reports"
	"lotledger/internal/domain/sales"
	"lotledger/internal/domain/settings"
	"lotledger/internal/infrastructure/storage/memory"
	"lotledger/internal/ledger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	now := time.Date(2026, 3, 15, 18, 30, 0, 0, time.UTC)
	from := day(2026, 3, 1)
	to := day(2026, 3, 3)
	before := day(2026, 2, 1)

	tests := []struct {
		name     string
		filter   reports.PeriodFilter
		wantFrom time.Time
		wantTo   time.Time
		wantErr  bool
	}{
		{name: "default is 30 days", filter: reports.PeriodFilter{}, wantFrom: day(2026, 2, 14), wantTo: day(2026, 3, 16)},
		{name: "week", filter: reports.PeriodFilter{Preset: reports.PresetWeek}, wantFrom: day(2026, 3, 9), wantTo: day(2026, 3, 16)},
		{name: "annual", filter: reports.PeriodFilter{Preset: reports.PresetYear}, wantFrom: day(2025, 3, 16), wantTo: day(2026, 3, 16)},
		{name: "custom includes the end day", filter: reports.PeriodFilter{Preset: reports.PresetCustom, From: &from, To: &to}, wantFrom: from, wantTo: day(2026, 3, 4)},
		{name: "custom without bounds", filter: reports.PeriodFilter{Preset: reports.PresetCustom, From: &from}, wantErr: true},
		{name: "custom reversed", filter: reports.PeriodFilter{Preset: reports.PresetCustom, From: &from, To: &before}, wantErr: true},
		{name: "unknown preset", filter: reports.PeriodFilter{Preset: "fortnight"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := reports.Resolve(tt.filter, now)
			if tt.wantErr {
				assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantFrom, p.From)
			assert.Equal(t, tt.wantTo, p.To)
		})
	}
}

func TestService_Dashboard(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	l := ledger.New(store.Backend(), func() time.Time { return now })
	cfg := settings.Default()

	product := func(name, price string, active bool) *catalog.Product {
		m := types.MustMoney(price)
		p := catalog.NewProduct(name, &m)
		p.Active = active
		require.NoError(t, store.Products().Create(ctx, p))
		return p
	}
	receive := func(p *catalog.Product, qty int64, cost string, arrived time.Time) {
		_, err := l.Lots.Receive(ctx, lots.NewLot{ProductID: p.ID, Quantity: qty, UnitCost: types.MustMoney(cost), ArrivedAt: arrived})
		require.NoError(t, err)
	}
	sell := func(p *catalog.Product, qty int64, ch sales.Channel, at time.Time) *sales.Sale {
		s, err := l.Sales.Create(ctx, cfg, sales.Request{
			Date:          at,
			Channel:       ch,
			PaymentMethod: settings.MethodCash,
			Installments:  1,
			Lines:         []sales.LineRequest{{ProductID: p.ID, Quantity: qty}},
		})
		require.NoError(t, err)
		return s
	}

	a := product("Alpha", "20", true)
	b := product("Beta", "8", true)
	c := product("Gamma", "4", false)
	receive(a, 5, "10", day(2026, 1, 1))
	receive(a, 5, "12", day(2026, 2, 1))
	receive(b, 3, "5", day(2026, 1, 1))
	receive(c, 4, "1", day(2026, 1, 1))

	sell(a, 7, sales.ChannelInStore, day(2026, 3, 10))
	sell(b, 2, sales.ChannelExternal, day(2026, 3, 14))
	sell(b, 1, sales.ChannelInStore, day(2026, 1, 5))
	cancelled := sell(a, 1, sales.ChannelInStore, day(2026, 3, 12))
	_, err := l.Sales.Cancel(ctx, cancelled.ID)
	require.NoError(t, err)

	d, err := l.Reports.Dashboard(ctx, cfg, reports.PeriodFilter{})
	require.NoError(t, err)

	assert.Equal(t, reports.PresetMonth, d.Period.Preset)
	assert.Equal(t, 2, d.SalesCount)
	assert.True(t, d.Revenue.Equal(types.MustMoney("156")), d.Revenue.String())
	assert.True(t, d.NetProfit.Equal(types.MustMoney("39")), "in-store 66/2 plus external 6, got %s", d.NetProfit)
	assert.True(t, d.StockValue.Equal(types.MustMoney("36")), "inactive stock is excluded, got %s", d.StockValue)

	require.Len(t, d.TopSold, 2)
	assert.Equal(t, "Alpha", d.TopSold[0].ProductName)
	assert.Equal(t, int64(7), d.TopSold[0].Quantity)
	require.Len(t, d.TopProfitable, 2)
	assert.True(t, d.TopProfitable[0].Profit.Equal(types.MustMoney("66")))
	assert.True(t, d.TopProfitable[0].MarginPercent.Equal(types.MustMoney("47.14")))
	assert.Equal(t, "Beta", d.TopProfitable[1].ProductName)

	require.Len(t, d.LowStock, 2)
	assert.Equal(t, "Beta", d.LowStock[0].ProductName)
	assert.Equal(t, int64(0), d.LowStock[0].TotalQuantity)
	assert.Equal(t, "Alpha", d.LowStock[1].ProductName)

	require.Len(t, d.Series, 30)
	for _, pt := range d.Series {
		switch pt.Label {
		case "2026-03-10":
			assert.True(t, pt.Revenue.Equal(types.MustMoney("140")))
		case "2026-03-14":
			assert.True(t, pt.NetProfit.Equal(types.MustMoney("6")))
		default:
			assert.True(t, pt.Revenue.IsZero(), pt.Label)
		}
	}
}

func TestService_DashboardMonthlySeries(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	l := ledger.New(memory.New().Backend(), func() time.Time { return now })

	d, err := l.Reports.Dashboard(context.Background(), settings.Default(), reports.PeriodFilter{Preset: reports.PresetYear})
	require.NoError(t, err)
	require.Len(t, d.Series, 13)
	assert.Equal(t, "2025-03", d.Series[0].Label)
	assert.Equal(t, "2026-03", d.Series[12].Label)
	assert.Zero(t, d.SalesCount)
	assert.Empty(t, d.TopSold)
	assert.Empty(t, d.LowStock)
}
