// Package returns registers customer returns against completed sales and
// puts returned units back into the lots the sale drew from.
package returns

import (
	"context"
	"fmt"
	"time"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/fifo"
)

// Return is a return document for one sale.
type Return struct {
	ID         id.ID     `db:"id" json:"id"`
	Number     string    `db:"number" json:"number"`
	SaleID     id.ID     `db:"sale_id" json:"saleId"`
	ReturnedAt time.Time `db:"returned_at" json:"returnedAt"`
	Reason     string    `db:"reason" json:"reason"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`

	Lines []*Line `db:"-" json:"lines"`
}

// Line returns quantity units of one sale line item.
type Line struct {
	ID         id.ID      `db:"id" json:"id"`
	ReturnID   id.ID      `db:"return_id" json:"returnId"`
	SaleID     id.ID      `db:"sale_id" json:"saleId"`
	LineItemID id.ID      `db:"line_item_id" json:"lineItemId"`
	Quantity   int64      `db:"quantity" json:"quantity"`
	Restored   bool       `db:"restored" json:"restored"`
	RestoredAt *time.Time `db:"restored_at" json:"restoredAt,omitempty"`

	// Placement lists the lots the units went back to. Not persisted.
	Placement fifo.RecordedTrail `db:"-" json:"placement,omitempty"`
}

// Totals is the per line item return position.
type Totals struct {
	Returned int64
	Restored int64
}

// Request describes a return to register.
type Request struct {
	ReturnedAt time.Time
	Reason     string
	Lines      []LineRequest
	// Deferred logs the return without putting stock back yet.
	Deferred bool
}

// LineRequest is the quantity to return for one sale line item.
type LineRequest struct {
	LineItemID id.ID
	Quantity   int64
}

// Validate checks request shape.
func (r *Request) Validate() error {
	seen := make(map[id.ID]bool, len(r.Lines))
	for i, l := range r.Lines {
		if id.IsNil(l.LineItemID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: line_item_id is required", i+1))
		}
		if l.Quantity < 0 {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity cannot be negative", i+1)).
				WithDetail("quantity", l.Quantity)
		}
		if seen[l.LineItemID] {
			return apperror.NewValidation("line item listed twice").WithDetail("line_item_id", l.LineItemID.String())
		}
		seen[l.LineItemID] = true
	}
	return nil
}

// Repository is the return persistence contract.
type Repository interface {
	// Create inserts the return header and its lines.
	Create(ctx context.Context, r *Return) error

	// ListBySale returns the sale's returns with lines, oldest first.
	ListBySale(ctx context.Context, saleID id.ID) ([]*Return, error)

	// Totals sums returned and restored units per sale line item.
	Totals(ctx context.Context, saleID id.ID) (map[id.ID]Totals, error)

	HasReturns(ctx context.Context, saleID id.ID) (bool, error)

	// GetLineForUpdate locks one return line, or apperror NotFound.
	GetLineForUpdate(ctx context.Context, lineID id.ID) (*Line, error)

	MarkRestored(ctx context.Context, lineID id.ID, at time.Time) error
}

// RestitutedValue is the amount refunded for the return: returned units at
// the sale's frozen unit prices. priceOf maps a line item to its unit price.
func RestitutedValue(r *Return, priceOf func(lineItemID id.ID) types.Money) types.Money {
	total := types.Zero()
	for _, l := range r.Lines {
		total = total.Add(types.Times(priceOf(l.LineItemID), l.Quantity))
	}
	return types.RoundCurrency(total)
}
