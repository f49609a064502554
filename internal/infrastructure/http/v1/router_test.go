package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/settings"
	"lotledger/internal/infrastructure/storage/memory"
	"lotledger/internal/ledger"
	"lotledger/pkg/logger"
)

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T, health func(ctx context.Context) error) *apiClient {
	t.Helper()
	l := ledger.New(memory.New().Backend(), nil)
	return &apiClient{t: t, router: NewRouter(RouterConfig{
		AppName:  "lotledger-test",
		Ledger:   l,
		Settings: settings.Static{Value: settings.Default()},
		Logger:   logger.Nop(),
		Health:   health,
	})}
}

func (a *apiClient) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Operator", "clerk")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

type saleBody struct {
	ID     id.ID  `json:"id"`
	Status string `json:"status"`
	Lines  []struct {
		ID             id.ID       `json:"id"`
		Quantity       int64       `json:"quantity"`
		RegisteredCost types.Money `json:"registeredCost"`
	} `json:"lines"`
	Figures struct {
		GrossRevenue types.Money `json:"grossRevenue"`
		GrossCost    types.Money `json:"grossCost"`
		GrossProfit  types.Money `json:"grossProfit"`
		NetProfit    types.Money `json:"netProfit"`
	} `json:"figures"`
}

type stockBody struct {
	TotalQuantity       int64       `json:"totalQuantity"`
	WeightedAverageCost types.Money `json:"weightedAverageCost"`
	LotCount            int         `json:"lotCount"`
	LowStock            bool        `json:"lowStock"`
	Lots                []struct {
		CurrentQuantity int64 `json:"currentQuantity"`
	} `json:"lots"`
}

func moneyEq(t *testing.T, want string, got types.Money) {
	t.Helper()
	assert.True(t, types.MustMoney(want).Equal(got), "want %s, got %s", want, got)
}

// seedProduct creates a product priced at 20 with lots 5@10 and 5@12.
func (a *apiClient) seedProduct() id.ID {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/v1/products", map[string]any{"name": "Cable", "salePrice": "20.00"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[struct {
		ID id.ID `json:"id"`
	}](a.t, w)

	for _, lot := range []map[string]any{
		{"quantity": 5, "unitCost": "10.00", "arrivedAt": "2026-01-01T00:00:00Z"},
		{"quantity": 5, "unitCost": "12.00", "arrivedAt": "2026-02-01T00:00:00Z"},
	} {
		w = a.do(http.MethodPost, "/api/v1/products/"+p.ID.String()+"/lots", lot)
		require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	}
	return p.ID
}

func saleRequest(productID id.ID, qty int64) map[string]any {
	return map[string]any{
		"channel":       "in_store",
		"paymentMethod": "cash",
		"lines":         []map[string]any{{"productId": productID.String(), "quantity": qty}},
	}
}

func TestRouter_SaleLifecycle(t *testing.T) {
	api := newAPI(t, nil)
	productID := api.seedProduct()

	w := api.do(http.MethodPost, "/api/v1/sales", saleRequest(productID, 7))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		ID     id.ID  `json:"id"`
		Number string `json:"number"`
	}](t, w)
	assert.NotEmpty(t, created.Number)

	w = api.do(http.MethodGet, "/api/v1/sales/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	sale := decode[saleBody](t, w)
	require.Len(t, sale.Lines, 1)
	moneyEq(t, "74", sale.Lines[0].RegisteredCost)
	moneyEq(t, "140", sale.Figures.GrossRevenue)
	moneyEq(t, "74", sale.Figures.GrossCost)
	moneyEq(t, "66", sale.Figures.GrossProfit)

	w = api.do(http.MethodGet, "/api/v1/products/"+productID.String()+"/stock", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	stock := decode[stockBody](t, w)
	assert.Equal(t, int64(3), stock.TotalQuantity)
	assert.Equal(t, 1, stock.LotCount)
	assert.True(t, stock.LowStock)
	moneyEq(t, "12", stock.WeightedAverageCost)

	w = api.do(http.MethodPost, "/api/v1/sales/"+created.ID.String()+"/returns", map[string]any{
		"reason": "damaged box",
		"lines":  []map[string]any{{"lineItemId": sale.Lines[0].ID.String(), "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ret := decode[struct {
		RestitutedValue types.Money `json:"restitutedValue"`
	}](t, w)
	moneyEq(t, "40", ret.RestitutedValue)

	w = api.do(http.MethodGet, "/api/v1/products/"+productID.String()+"/stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(5), decode[stockBody](t, w).TotalQuantity)

	w = api.do(http.MethodGet, "/api/v1/sales/"+created.ID.String()+"/returns", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Items []json.RawMessage `json:"items"`
	}](t, w)
	assert.Len(t, list.Items, 1)

	// A sale with returns is locked.
	w = api.do(http.MethodPut, "/api/v1/sales/"+created.ID.String(), saleRequest(productID, 1))
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "SALE_LOCKED", decode[errorBody](t, w).Code)

	w = api.do(http.MethodPost, "/api/v1/sales/"+created.ID.String()+"/returns", map[string]any{
		"lines": []map[string]any{{"lineItemId": sale.Lines[0].ID.String(), "quantity": 6}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	assert.Equal(t, "EXCEEDS_RETURNABLE_QUANTITY", decode[errorBody](t, w).Code)
}

func TestRouter_EditDeleteAndCancel(t *testing.T) {
	api := newAPI(t, nil)
	productID := api.seedProduct()

	w := api.do(http.MethodPost, "/api/v1/sales", saleRequest(productID, 3))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	saleID := decode[struct {
		ID id.ID `json:"id"`
	}](t, w).ID

	w = api.do(http.MethodPut, "/api/v1/sales/"+saleID.String(), saleRequest(productID, 6))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	edited := decode[saleBody](t, w)
	require.Len(t, edited.Lines, 1)
	moneyEq(t, "62", edited.Lines[0].RegisteredCost)

	w = api.do(http.MethodPost, "/api/v1/sales/"+saleID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cancelled", decode[saleBody](t, w).Status)

	w = api.do(http.MethodGet, "/api/v1/products/"+productID.String()+"/stock", nil)
	assert.Equal(t, int64(10), decode[stockBody](t, w).TotalQuantity)

	w = api.do(http.MethodDelete, "/api/v1/sales/"+saleID.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/sales/"+saleID.String(), nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = api.do(http.MethodGet, "/api/v1/products/"+productID.String()+"/stock", nil)
	assert.Equal(t, int64(10), decode[stockBody](t, w).TotalQuantity)
}

func TestRouter_DeleteProduct(t *testing.T) {
	api := newAPI(t, nil)
	soldID := api.seedProduct()

	w := api.do(http.MethodPost, "/api/v1/sales", saleRequest(soldID, 2))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(http.MethodDelete, "/api/v1/products/"+soldID.String(), nil)
	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "PRODUCT_HAS_SALES", decode[errorBody](t, w).Code)
	w = api.do(http.MethodGet, "/api/v1/products/"+soldID.String()+"/stock", nil)
	assert.Equal(t, int64(8), decode[stockBody](t, w).TotalQuantity)

	w = api.do(http.MethodPost, "/api/v1/products", map[string]any{"name": "Adapter", "salePrice": "9.00"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	unsoldID := decode[struct {
		ID id.ID `json:"id"`
	}](t, w).ID
	w = api.do(http.MethodPost, "/api/v1/products/"+unsoldID.String()+"/lots",
		map[string]any{"quantity": 4, "unitCost": "3.00"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = api.do(http.MethodDelete, "/api/v1/products/"+unsoldID.String(), nil)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	w = api.do(http.MethodGet, "/api/v1/products/"+unsoldID.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = api.do(http.MethodDelete, "/api/v1/products/"+unsoldID.String(), nil)
	assert.Equal(t, "PRODUCT_NOT_FOUND", decode[errorBody](t, w).Code)

	// Only the unsold product's stock left the valuation.
	w = api.do(http.MethodGet, "/api/v1/reports/dashboard?period=7d", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	moneyEq(t, "90", decode[struct {
		StockValue types.Money `json:"stockValue"`
	}](t, w).StockValue)
}

func TestRouter_DeferredReturn(t *testing.T) {
	api := newAPI(t, nil)
	productID := api.seedProduct()

	w := api.do(http.MethodPost, "/api/v1/sales", saleRequest(productID, 4))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	saleID := decode[struct {
		ID id.ID `json:"id"`
	}](t, w).ID
	sale := decode[saleBody](t, api.do(http.MethodGet, "/api/v1/sales/"+saleID.String(), nil))

	w = api.do(http.MethodPost, "/api/v1/sales/"+saleID.String()+"/returns", map[string]any{
		"deferred": true,
		"lines":    []map[string]any{{"lineItemId": sale.Lines[0].ID.String(), "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	ret := decode[struct {
		Lines []struct {
			ID       id.ID `json:"id"`
			Restored bool  `json:"restored"`
		} `json:"lines"`
	}](t, w)
	require.Len(t, ret.Lines, 1)
	assert.False(t, ret.Lines[0].Restored)

	stock := decode[stockBody](t, api.do(http.MethodGet, "/api/v1/products/"+productID.String()+"/stock", nil))
	assert.Equal(t, int64(6), stock.TotalQuantity)

	path := "/api/v1/returns/lines/" + ret.Lines[0].ID.String() + "/restore"
	w = api.do(http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stock = decode[stockBody](t, api.do(http.MethodGet, "/api/v1/products/"+productID.String()+"/stock", nil))
	assert.Equal(t, int64(7), stock.TotalQuantity)

	w = api.do(http.MethodPost, path, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "ALREADY_RESTORED", decode[errorBody](t, w).Code)
}

func TestRouter_Errors(t *testing.T) {
	api := newAPI(t, nil)
	productID := api.seedProduct()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{
			name:   "insufficient stock",
			method: http.MethodPost, path: "/api/v1/sales",
			body:   saleRequest(productID, 11),
			status: http.StatusUnprocessableEntity, code: "INSUFFICIENT_STOCK",
		},
		{
			name:   "unknown product",
			method: http.MethodPost, path: "/api/v1/sales",
			body:   saleRequest(id.New(), 1),
			status: http.StatusNotFound, code: "PRODUCT_NOT_FOUND",
		},
		{
			name:   "missing channel",
			method: http.MethodPost, path: "/api/v1/sales",
			body:   map[string]any{"paymentMethod": "cash", "lines": []map[string]any{{"productId": productID.String(), "quantity": 1}}},
			status: http.StatusBadRequest, code: "VALIDATION_ERROR",
		},
		{
			name:   "unknown fee schedule",
			method: http.MethodPost, path: "/api/v1/sales",
			body: map[string]any{
				"channel": "in_store", "paymentMethod": "credit", "installments": 12,
				"lines": []map[string]any{{"productId": productID.String(), "quantity": 1}},
			},
			status: http.StatusBadRequest, code: "VALIDATION_ERROR",
		},
		{
			name:   "malformed id",
			method: http.MethodGet, path: "/api/v1/sales/not-a-uuid",
			status: http.StatusBadRequest, code: "VALIDATION_ERROR",
		},
		{
			name:   "missing sale",
			method: http.MethodGet, path: "/api/v1/sales/" + id.New().String(),
			status: http.StatusNotFound, code: "NOT_FOUND",
		},
		{
			name:   "non-positive lot quantity",
			method: http.MethodPost, path: "/api/v1/products/" + productID.String() + "/lots",
			body:   map[string]any{"quantity": 0, "unitCost": "1.00"},
			status: http.StatusBadRequest, code: "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := api.do(tt.method, tt.path, tt.body)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode[errorBody](t, w).Code)
		})
	}

	// Failed sales leave stock untouched.
	stock := decode[stockBody](t, api.do(http.MethodGet, "/api/v1/products/"+productID.String()+"/stock", nil))
	assert.Equal(t, int64(10), stock.TotalQuantity)
}

func TestRouter_ListSales(t *testing.T) {
	api := newAPI(t, nil)
	productID := api.seedProduct()
	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/sales", saleRequest(productID, 1)).Code)
	}

	w := api.do(http.MethodGet, "/api/v1/sales?channel=in_store&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	list := decode[struct {
		Items []json.RawMessage `json:"items"`
		Limit uint64            `json:"limit"`
	}](t, w)
	assert.Len(t, list.Items, 2)
	assert.Equal(t, uint64(2), list.Limit)

	w = api.do(http.MethodGet, "/api/v1/sales?channel=external", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[struct {
		Items []json.RawMessage `json:"items"`
	}](t, w).Items)
}

func TestRouter_ReceiveBatch(t *testing.T) {
	api := newAPI(t, nil)
	productID := api.seedProduct()

	w := api.do(http.MethodPost, "/api/v1/lots/batch", map[string]any{"lots": []map[string]any{
		{"productId": productID.String(), "quantity": 2, "unitCost": "11.00"},
		{"productId": productID.String(), "quantity": 3, "unitCost": "9.00"},
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Len(t, decode[struct {
		Items []json.RawMessage `json:"items"`
	}](t, w).Items, 2)

	stock := decode[stockBody](t, api.do(http.MethodGet, "/api/v1/products/"+productID.String()+"/stock", nil))
	assert.Equal(t, int64(15), stock.TotalQuantity)
	assert.Equal(t, 4, stock.LotCount)

	w = api.do(http.MethodPost, "/api/v1/lots/batch", map[string]any{"lots": []map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Dashboard(t *testing.T) {
	api := newAPI(t, nil)
	productID := api.seedProduct()
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/sales", saleRequest(productID, 7)).Code)

	w := api.do(http.MethodGet, "/api/v1/reports/dashboard?period=7d", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	d := decode[struct {
		SalesCount int         `json:"salesCount"`
		Revenue    types.Money `json:"revenue"`
		StockValue types.Money `json:"stockValue"`
		Series     []struct {
			Label string `json:"label"`
		} `json:"series"`
	}](t, w)
	assert.Equal(t, 1, d.SalesCount)
	moneyEq(t, "140", d.Revenue)
	moneyEq(t, "36", d.StockValue)
	assert.Len(t, d.Series, 7)

	w = api.do(http.MethodGet, "/api/v1/reports/dashboard?period=custom&from=2026-03-02&to=2026-03-01", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode[errorBody](t, w).Code)
}

func TestRouter_Health(t *testing.T) {
	down := errors.New("connection refused")
	api := newAPI(t, func(context.Context) error { return down })

	w := api.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestRouter_PanicIsRendered(t *testing.T) {
	api := newAPI(t, nil)
	api.router.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := api.do(http.MethodGet, "/boom", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", decode[errorBody](t, w).Code)
}
