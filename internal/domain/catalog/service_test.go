package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/audit"
	"lotledger/internal/domain/catalog"
	"lotledger/internal/domain/lots"
	"lotledger/internal/domain/sales"
	"lotledger/internal/domain/settings"
	"lotledger/internal/infrastructure/storage/memory"
	"lotledger/internal/ledger"
)

func setup(t *testing.T) (*memory.Store, *ledger.Ledger, *catalog.Product, []*lots.Lot) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	l := ledger.New(store.Backend(), nil)

	price := types.MustMoney("15.00")
	p := catalog.NewProduct("Candle", &price)
	require.NoError(t, store.Products().Create(ctx, p))

	received, err := l.Lots.ReceiveBatch(ctx, []lots.NewLot{
		{ProductID: p.ID, Quantity: 3, UnitCost: types.MustMoney("4.00"), ArrivedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
		{ProductID: p.ID, Quantity: 2, UnitCost: types.MustMoney("5.00"), ArrivedAt: time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	return store, l, p, received
}

func sell(t *testing.T, l *ledger.Ledger, p *catalog.Product, qty int64) *sales.Sale {
	t.Helper()
	sale, err := l.Sales.Create(context.Background(), settings.Default(), sales.Request{
		Channel:       sales.ChannelInStore,
		PaymentMethod: settings.MethodCash,
		Installments:  1,
		Discount:      types.Zero(),
		Lines:         []sales.LineRequest{{ProductID: p.ID, Quantity: qty}},
	})
	require.NoError(t, err)
	return sale
}

func TestService_DeleteCascadesToLots(t *testing.T) {
	store, l, p, received := setup(t)
	ctx := context.Background()

	require.NoError(t, l.Catalog.Delete(ctx, p.ID))

	_, err := store.Products().GetByID(ctx, p.ID)
	assert.True(t, apperror.IsNotFound(err))
	for _, lot := range received {
		_, err := store.Lots().GetByID(ctx, lot.ID)
		assert.True(t, apperror.IsNotFound(err), "lot %s", lot.ID)
	}
	assert.Len(t, store.Journal().Entries(ctx, audit.EntityProduct, p.ID), 1)
}

func TestService_DeleteRefusesSoldProduct(t *testing.T) {
	tests := []struct {
		name   string
		settle func(t *testing.T, l *ledger.Ledger, sale *sales.Sale)
	}{
		{"completed sale", func(*testing.T, *ledger.Ledger, *sales.Sale) {}},
		{"cancelled sale", func(t *testing.T, l *ledger.Ledger, sale *sales.Sale) {
			_, err := l.Sales.Cancel(context.Background(), sale.ID)
			require.NoError(t, err)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, l, p, received := setup(t)
			ctx := context.Background()
			tt.settle(t, l, sell(t, l, p, 4))

			err := l.Catalog.Delete(ctx, p.ID)
			assert.True(t, apperror.HasCode(err, apperror.CodeProductHasSales), "got %v", err)

			_, err = store.Products().GetByID(ctx, p.ID)
			assert.NoError(t, err)
			for _, lot := range received {
				_, err := store.Lots().GetByID(ctx, lot.ID)
				assert.NoError(t, err)
			}
			assert.Empty(t, store.Journal().Entries(ctx, audit.EntityProduct, p.ID))
		})
	}
}

func TestService_DeleteAfterSaleDeleted(t *testing.T) {
	store, l, p, _ := setup(t)
	ctx := context.Background()
	sale := sell(t, l, p, 2)
	require.NoError(t, l.Sales.Delete(ctx, sale.ID))

	require.NoError(t, l.Catalog.Delete(ctx, p.ID))
	lotsLeft, err := store.Lots().ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, lotsLeft)
}

func TestService_DeleteUnknownProduct(t *testing.T) {
	_, l, _, _ := setup(t)

	err := l.Catalog.Delete(context.Background(), id.New())
	assert.True(t, apperror.HasCode(err, apperror.CodeProductNotFound), "got %v", err)
}
