// Package lots provides the lot store: discrete, dated batches of stock per
// product with an immutable unit cost.
package lots

import (
	"time"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
)

// Origin tells how a lot came into existence.
type Origin string

const (
	OriginPurchase   Origin = "purchase"
	OriginAdjustment Origin = "adjustment"
	OriginReturn     Origin = "return"
)

// Valid reports whether o is a known origin.
func (o Origin) Valid() bool {
	switch o {
	case OriginPurchase, OriginAdjustment, OriginReturn:
		return true
	}
	return false
}

// Lot is a batch of units of one product bought at one unit cost.
//
// CurrentQuantity never drops below zero. It has no upper bound: restores
// and returns may push it past InitialQuantity.
type Lot struct {
	ID              id.ID       `db:"id" json:"id"`
	ProductID       id.ID       `db:"product_id" json:"productId"`
	SupplierID      *id.ID      `db:"supplier_id" json:"supplierId,omitempty"`
	InitialQuantity int64       `db:"initial_quantity" json:"initialQuantity"`
	CurrentQuantity int64       `db:"current_quantity" json:"currentQuantity"`
	UnitCost        types.Money `db:"unit_cost" json:"unitCost"`
	ArrivedAt       time.Time   `db:"arrived_at" json:"arrivedAt"`
	Origin          Origin      `db:"origin" json:"origin"`
	CreatedAt       time.Time   `db:"created_at" json:"createdAt"`
}

// NewLot describes a lot to create.
type NewLot struct {
	ProductID  id.ID
	SupplierID *id.ID
	Quantity   int64
	UnitCost   types.Money
	ArrivedAt  time.Time
	Origin     Origin
}

// Validate checks the new lot fields.
func (n NewLot) Validate() error {
	if id.IsNil(n.ProductID) {
		return apperror.NewValidation("product_id is required")
	}
	if n.Quantity < 0 {
		return apperror.NewValidation("lot quantity cannot be negative").WithDetail("quantity", n.Quantity)
	}
	if n.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative")
	}
	if !n.UnitCost.Equal(n.UnitCost.Round(types.CurrencyPlaces)) {
		return apperror.NewValidation("unit cost supports at most two fractional digits").
			WithDetail("unit_cost", n.UnitCost.String())
	}
	if n.Origin != "" && !n.Origin.Valid() {
		return apperror.NewValidation("unknown lot origin").WithDetail("origin", string(n.Origin))
	}
	return nil
}

func (n NewLot) build(now time.Time) *Lot {
	arrived := n.ArrivedAt
	if arrived.IsZero() {
		arrived = now
	}
	origin := n.Origin
	if origin == "" {
		origin = OriginPurchase
	}
	return &Lot{
		ID:              id.New(),
		ProductID:       n.ProductID,
		SupplierID:      n.SupplierID,
		InitialQuantity: n.Quantity,
		CurrentQuantity: n.Quantity,
		UnitCost:        n.UnitCost,
		ArrivedAt:       arrived.UTC(),
		Origin:          origin,
		CreatedAt:       now,
	}
}

// Less orders lots for FIFO consumption: arrival first, id as tie-break.
func Less(a, b *Lot) bool {
	if !a.ArrivedAt.Equal(b.ArrivedAt) {
		return a.ArrivedAt.Before(b.ArrivedAt)
	}
	return id.Compare(a.ID, b.ID) < 0
}

// Summary is the derived stock position of a product.
type Summary struct {
	ProductID           id.ID       `json:"productId"`
	TotalQuantity       int64       `json:"totalQuantity"`
	WeightedAverageCost types.Money `json:"weightedAverageCost"`
	StockValue          types.Money `json:"stockValue"`
	LotCount            int         `json:"lotCount"`
}

// Summarize derives total quantity and weighted-average cost over lots with
// stock. The average is rounded to cents; the stock value is exact.
func Summarize(productID id.ID, lots []*Lot) Summary {
	s := Summary{ProductID: productID, WeightedAverageCost: types.Zero(), StockValue: types.Zero()}
	for _, l := range lots {
		if l.CurrentQuantity <= 0 {
			continue
		}
		s.TotalQuantity += l.CurrentQuantity
		s.StockValue = s.StockValue.Add(types.Times(l.UnitCost, l.CurrentQuantity))
		s.LotCount++
	}
	if s.TotalQuantity > 0 {
		s.WeightedAverageCost = types.RoundCurrency(types.Prorate(s.StockValue, 1, s.TotalQuantity))
	}
	return s
}
