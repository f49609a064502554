// Package profit derives the financial figures of a sale from its frozen
// prices, registered costs and returns. Nothing here touches storage.
package profit

import (
	"github.com/shopspring/decimal"

	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/returns"
	"lotledger/internal/domain/sales"
)

var half = decimal.NewFromFloat(0.5)

// Figures are the derived amounts of one sale, rounded to cents.
type Figures struct {
	GrossRevenue           types.Money `json:"grossRevenue"`
	NetRevenue             types.Money `json:"netRevenue"`
	GrossCost              types.Money `json:"grossCost"`
	GrossProfit            types.Money `json:"grossProfit"`
	FeeAmount              types.Money `json:"feeAmount"`
	ProfitAfterFee         types.Money `json:"profitAfterFee"`
	ReturnedProfitReversal types.Money `json:"returnedProfitReversal"`
	NetProfit              types.Money `json:"netProfit"`
	RestitutedValue        types.Money `json:"restitutedValue"`
}

// GrossRevenue is the sum of line subtotals. Gift lines contribute zero.
func GrossRevenue(s *sales.Sale) types.Money {
	total := types.Zero()
	for _, l := range s.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// GrossCost is the sum of registered line costs, gifts included.
func GrossCost(s *sales.Sale) types.Money {
	total := types.Zero()
	for _, l := range s.Lines {
		total = total.Add(l.RegisteredCost)
	}
	return total
}

// FeeAmount is netRevenue * rate / 100.
func FeeAmount(netRevenue, rate types.Money) types.Money {
	return types.Percent(netRevenue, rate)
}

// ReturnedProfitReversal is the per-unit profit at original sale economics
// for every returned unit. The fee is not part of it: fees are not refunded.
func ReturnedProfitReversal(s *sales.Sale, rets []*returns.Return) types.Money {
	total := types.Zero()
	for _, r := range rets {
		for _, rl := range r.Lines {
			item, ok := s.Line(rl.LineItemID)
			if !ok {
				continue
			}
			revenue := types.Times(item.UnitPrice, rl.Quantity)
			cost := types.Prorate(item.RegisteredCost, rl.Quantity, item.Quantity)
			total = total.Add(revenue.Sub(cost))
		}
	}
	return total
}

// ShareFor applies the channel profit split: in-store profit is halved,
// external profit is kept whole.
func ShareFor(ch sales.Channel, p types.Money) types.Money {
	if ch == sales.ChannelInStore {
		return p.Mul(half)
	}
	return p
}

// Calculate derives every figure of the sale. Intermediate values stay exact
// and each reported figure is rounded once. A cancelled sale yields zeros.
func Calculate(s *sales.Sale, rets []*returns.Return) Figures {
	zero := types.RoundCurrency(types.Zero())
	if s.Cancelled() {
		return Figures{
			GrossRevenue: zero, NetRevenue: zero, GrossCost: zero, GrossProfit: zero,
			FeeAmount: zero, ProfitAfterFee: zero, ReturnedProfitReversal: zero,
			NetProfit: zero, RestitutedValue: zero,
		}
	}

	gross := GrossRevenue(s)
	net := gross.Sub(s.Discount)
	cost := GrossCost(s)
	grossProfit := net.Sub(cost)
	fee := FeeAmount(net, s.FeeRate)
	afterFee := grossProfit.Sub(fee)
	reversal := ReturnedProfitReversal(s, rets)
	netProfit := ShareFor(s.Channel, afterFee.Sub(reversal))

	restituted := types.Zero()
	for _, r := range rets {
		restituted = restituted.Add(returns.RestitutedValue(r, unitPrice(s)))
	}

	return Figures{
		GrossRevenue:           types.RoundCurrency(gross),
		NetRevenue:             types.RoundCurrency(net),
		GrossCost:              types.RoundCurrency(cost),
		GrossProfit:            types.RoundCurrency(grossProfit),
		FeeAmount:              types.RoundCurrency(fee),
		ProfitAfterFee:         types.RoundCurrency(afterFee),
		ReturnedProfitReversal: types.RoundCurrency(reversal),
		NetProfit:              types.RoundCurrency(netProfit),
		RestitutedValue:        types.RoundCurrency(restituted),
	}
}

func unitPrice(s *sales.Sale) func(id.ID) types.Money {
	return func(lineItemID id.ID) types.Money {
		if item, ok := s.Line(lineItemID); ok {
			return item.UnitPrice
		}
		return types.Zero()
	}
}
