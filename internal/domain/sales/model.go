// Package sales manages sale transactions: creation, editing, deletion and
// cancellation, each consuming or restoring lots through their FIFO trail.
package sales

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/fifo"
)

// Channel tags where a sale happened; it drives the profit split.
type Channel string

const (
	ChannelInStore  Channel = "in_store"
	ChannelExternal Channel = "external"
)

// Status is the sale lifecycle state.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// DefaultCustomerName is used when a sale has no customer.
const DefaultCustomerName = "Anonymous customer"

// Sale is a persisted sale header with its line items.
type Sale struct {
	ID            id.ID       `db:"id" json:"id"`
	Number        string      `db:"number" json:"number"`
	Date          time.Time   `db:"sale_date" json:"date"`
	CustomerName  string      `db:"customer_name" json:"customerName"`
	Channel       Channel     `db:"channel" json:"channel"`
	Status        Status      `db:"status" json:"status"`
	Discount      types.Money `db:"discount" json:"discount"`
	PaymentMethod string      `db:"payment_method" json:"paymentMethod"`
	Installments  int         `db:"installments" json:"installments"`
	// FeeRate is the percentage frozen at the time of sale.
	FeeRate   types.Money `db:"fee_rate" json:"feeRate"`
	Version   int         `db:"version" json:"version"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`

	Lines []*LineItem `db:"-" json:"lines"`
}

// Cancelled reports whether the sale was cancelled.
func (s *Sale) Cancelled() bool {
	return s.Status == StatusCancelled
}

// Line returns the line item with the given id.
func (s *Sale) Line(lineID id.ID) (*LineItem, bool) {
	for _, l := range s.Lines {
		if l.ID == lineID {
			return l, true
		}
	}
	return nil, false
}

// LineItem is one product line of a sale.
type LineItem struct {
	ID        id.ID `db:"id" json:"id"`
	SaleID    id.ID `db:"sale_id" json:"saleId"`
	LineNo    int   `db:"line_no" json:"lineNo"`
	ProductID id.ID `db:"product_id" json:"productId"`
	Quantity  int64 `db:"quantity" json:"quantity"`
	// UnitPrice is frozen at the time of sale; zero for gifts.
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
	// RegisteredCost equals the cost of Draws.
	RegisteredCost types.Money `db:"registered_cost" json:"registeredCost"`
	Gift           bool        `db:"gift" json:"gift"`

	Draws fifo.RecordedTrail `db:"-" json:"draws,omitempty"`
}

// Subtotal is Quantity * UnitPrice.
func (l *LineItem) Subtotal() types.Money {
	return types.Times(l.UnitPrice, l.Quantity)
}

// Trail returns the recorded consumption trail, or a legacy trail when the
// line carries no consumption rows.
func (l *LineItem) Trail() fifo.Trail {
	if len(l.Draws) == 0 {
		return fifo.LegacyTrail{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			AverageCost: types.Prorate(l.RegisteredCost, 1, l.Quantity),
		}
	}
	return l.Draws
}

// Request carries the caller-supplied part of a sale for create and edit.
type Request struct {
	Date          time.Time
	CustomerName  string
	Channel       Channel
	Discount      types.Money
	PaymentMethod string
	Installments  int
	Lines         []LineRequest
}

// LineRequest is one requested line.
type LineRequest struct {
	ProductID id.ID
	Quantity  int64
	Gift      bool
}

// Validate checks request shape. Stock, product and discount rules are
// checked against stored state by the manager.
func (r *Request) Validate() error {
	if len(r.Lines) == 0 {
		return apperror.NewValidation("sale must have at least one line")
	}
	switch r.Channel {
	case ChannelInStore, ChannelExternal:
	default:
		return apperror.NewValidation("unknown sale channel").WithDetail("channel", string(r.Channel))
	}
	if strings.TrimSpace(r.PaymentMethod) == "" {
		return apperror.NewValidation("payment method is required")
	}
	if r.Installments < 1 {
		return apperror.NewValidation("installments must be at least 1").WithDetail("installments", r.Installments)
	}
	if r.Discount.IsNegative() {
		return apperror.NewBusinessRule(apperror.CodeInvalidDiscount, "Discount cannot be negative").
			WithDetail("discount", r.Discount.String())
	}
	for i, l := range r.Lines {
		if id.IsNil(l.ProductID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: product_id is required", i+1))
		}
		if l.Quantity <= 0 {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", i+1)).
				WithDetail("quantity", l.Quantity)
		}
	}
	return nil
}

// quantities aggregates requested units per product. Products come back in
// id order, which is the order their lots get locked in, so two concurrent
// sales over the same products cannot deadlock.
func (r *Request) quantities() ([]id.ID, map[id.ID]int64) {
	order := make([]id.ID, 0, len(r.Lines))
	totals := make(map[id.ID]int64, len(r.Lines))
	for _, l := range r.Lines {
		if _, ok := totals[l.ProductID]; !ok {
			order = append(order, l.ProductID)
		}
		totals[l.ProductID] += l.Quantity
	}
	slices.SortFunc(order, id.Compare)
	return order, totals
}

// ListFilter narrows List results.
type ListFilter struct {
	From    *time.Time
	To      *time.Time
	Channel Channel
	Status  Status
	Limit   uint64
	Offset  uint64
}
