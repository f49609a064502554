// Package reports provides the period dashboard: revenue, profit, product
// rankings, low stock and the value of stock on hand.
package reports

import (
	"time"

	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/lots"
)

// Preset names a dashboard period ending today.
type Preset string

const (
	PresetWeek   Preset = "7d"
	PresetMonth  Preset = "30d"
	PresetYear   Preset = "annual"
	PresetCustom Preset = "custom"
)

// TopN is the size of each product ranking.
const TopN = 5

// monthlyAfterDays switches the series from daily to monthly buckets.
const monthlyAfterDays = 90

// PeriodFilter selects the dashboard period. From and To are calendar days
// and only used with PresetCustom; both days are included.
type PeriodFilter struct {
	Preset Preset
	From   *time.Time
	To     *time.Time
}

// Period is a resolved half-open range [From, To).
type Period struct {
	Preset Preset    `json:"preset"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

// Days returns the number of calendar days covered.
func (p Period) Days() int {
	return int(p.To.Sub(p.From).Hours() / 24)
}

// ProductSales aggregates the lines of completed sales for one product.
type ProductSales struct {
	ProductID   id.ID       `db:"product_id" json:"productId"`
	ProductName string      `db:"product_name" json:"productName"`
	Quantity    int64       `db:"quantity" json:"quantity"`
	Revenue     types.Money `db:"revenue" json:"revenue"`
	Cost        types.Money `db:"cost" json:"cost"`
}

// ProductRank is one row of a product ranking.
type ProductRank struct {
	ProductSales
	Profit        types.Money `json:"profit"`
	MarginPercent types.Money `json:"marginPercent"`
}

// SeriesPoint is the revenue and net profit of one bucket.
type SeriesPoint struct {
	Label     string      `json:"label"`
	Start     time.Time   `json:"start"`
	Revenue   types.Money `json:"revenue"`
	NetProfit types.Money `json:"netProfit"`
}

// LowStockItem is an active product at or under the low-stock threshold.
type LowStockItem struct {
	lots.Summary
	ProductName string `json:"productName"`
}

// Dashboard is the period report.
type Dashboard struct {
	Period        Period         `json:"period"`
	StockValue    types.Money    `json:"stockValue"`
	SalesCount    int            `json:"salesCount"`
	Revenue       types.Money    `json:"revenue"`
	NetProfit     types.Money    `json:"netProfit"`
	TopSold       []ProductRank  `json:"topSold"`
	TopProfitable []ProductRank  `json:"topProfitable"`
	LowStock      []LowStockItem `json:"lowStock"`
	Series        []SeriesPoint  `json:"series"`
}
