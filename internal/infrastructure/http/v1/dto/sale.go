package dto

import (
	"time"

	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/profit"
	"lotledger/internal/domain/sales"
)

// SaleRequest is the body of POST /sales and PUT /sales/:id.
type SaleRequest struct {
	Date          *time.Time        `json:"date"`
	CustomerName  string            `json:"customerName"`
	Channel       string            `json:"channel" binding:"required"`
	Discount      types.Money       `json:"discount"`
	PaymentMethod string            `json:"paymentMethod" binding:"required"`
	Installments  int               `json:"installments"`
	Lines         []SaleLineRequest `json:"lines" binding:"required,dive"`
}

// SaleLineRequest is one requested line.
type SaleLineRequest struct {
	ProductID id.ID `json:"productId"`
	Quantity  int64 `json:"quantity"`
	Gift      bool  `json:"gift"`
}

// ToDomain converts the body. Installments default to 1.
func (r SaleRequest) ToDomain() sales.Request {
	req := sales.Request{
		CustomerName:  r.CustomerName,
		Channel:       sales.Channel(r.Channel),
		Discount:      r.Discount,
		PaymentMethod: r.PaymentMethod,
		Installments:  r.Installments,
	}
	if r.Date != nil {
		req.Date = *r.Date
	}
	if req.Installments == 0 {
		req.Installments = 1
	}
	for _, l := range r.Lines {
		req.Lines = append(req.Lines, sales.LineRequest{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Gift:      l.Gift,
		})
	}
	return req
}

// SaleResponse is a sale with its profit figures.
type SaleResponse struct {
	*sales.Sale
	Figures profit.Figures `json:"figures"`
}

// SaleListQuery is the query string of GET /sales.
type SaleListQuery struct {
	From    *time.Time `form:"from" time_format:"2006-01-02"`
	To      *time.Time `form:"to" time_format:"2006-01-02"`
	Channel string     `form:"channel"`
	Status  string     `form:"status"`
	Limit   uint64     `form:"limit"`
	Offset  uint64     `form:"offset"`
}

// ToFilter converts the query.
func (q SaleListQuery) ToFilter() sales.ListFilter {
	return sales.ListFilter{
		From:    q.From,
		To:      q.To,
		Channel: sales.Channel(q.Channel),
		Status:  sales.Status(q.Status),
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
}
