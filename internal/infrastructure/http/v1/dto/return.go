package dto

import (
	"time"

	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/returns"
)

// ReturnRequest is the body of POST /sales/:id/returns.
type ReturnRequest struct {
	ReturnedAt *time.Time          `json:"returnedAt"`
	Reason     string              `json:"reason"`
	Deferred   bool                `json:"deferred"`
	Lines      []ReturnLineRequest `json:"lines"`
}

// ReturnLineRequest is the quantity returned for one sale line item.
type ReturnLineRequest struct {
	LineItemID id.ID `json:"lineItemId"`
	Quantity   int64 `json:"quantity"`
}

// ToDomain converts the body.
func (r ReturnRequest) ToDomain() returns.Request {
	req := returns.Request{Reason: r.Reason, Deferred: r.Deferred}
	if r.ReturnedAt != nil {
		req.ReturnedAt = *r.ReturnedAt
	}
	for _, l := range r.Lines {
		req.Lines = append(req.Lines, returns.LineRequest{LineItemID: l.LineItemID, Quantity: l.Quantity})
	}
	return req
}

// ReturnResponse is a return with the amount refunded to the customer.
type ReturnResponse struct {
	*returns.Return
	RestitutedValue types.Money `json:"restitutedValue"`
}
