// Package fifo implements first-in-first-out lot consumption and its exact
// reversal through the recorded consumption trail.
package fifo

import (
	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
)

// Draw is one (lot, quantity, unit cost) entry of a consumption trail.
type Draw struct {
	LotID    id.ID       `db:"lot_id" json:"lotId"`
	Quantity int64       `db:"quantity" json:"quantity"`
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`
}

// Cost is Quantity * UnitCost.
func (d Draw) Cost() types.Money {
	return types.Times(d.UnitCost, d.Quantity)
}

// Trail is the record of how a sale line was satisfied. It is either a
// RecordedTrail or a LegacyTrail for lines that predate trail tracking.
type Trail interface {
	// Units is the number of units the trail covers.
	Units() int64

	// Skip drops the first n units, for restoring after earlier partial restores.
	Skip(n int64) Trail

	isTrail()
}

// RecordedTrail lists draws in the order they were taken.
type RecordedTrail []Draw

func (RecordedTrail) isTrail() {}

// Units implements Trail.
func (t RecordedTrail) Units() int64 {
	var n int64
	for _, d := range t {
		n += d.Quantity
	}
	return n
}

// Cost sums draw costs without intermediate rounding.
func (t RecordedTrail) Cost() types.Money {
	total := types.Zero()
	for _, d := range t {
		total = total.Add(d.Cost())
	}
	return total
}

// Skip implements Trail.
func (t RecordedTrail) Skip(n int64) Trail {
	if n <= 0 {
		return t
	}
	out := make(RecordedTrail, 0, len(t))
	for _, d := range t {
		if n >= d.Quantity {
			n -= d.Quantity
			continue
		}
		d.Quantity -= n
		n = 0
		out = append(out, d)
	}
	return out
}

// LegacyTrail stands in for a line without consumption rows. Restores go to
// the product's most recently created lot.
type LegacyTrail struct {
	ProductID id.ID
	Quantity  int64
	// AverageCost prices a replacement lot when the product has none left.
	AverageCost types.Money
}

func (LegacyTrail) isTrail() {}

// Units implements Trail.
func (t LegacyTrail) Units() int64 { return t.Quantity }

// Skip implements Trail.
func (t LegacyTrail) Skip(n int64) Trail {
	if n >= t.Quantity {
		t.Quantity = 0
	} else if n > 0 {
		t.Quantity -= n
	}
	return t
}
