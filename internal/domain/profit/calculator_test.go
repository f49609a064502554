package profit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lotledger/internal/core/id"
	"lotledger/internal/core/types"
	"lotledger/internal/domain/returns"
	"lotledger/internal/domain/sales"
)

func money(s string) types.Money { return types.MustMoney(s) }

func assertMoney(t *testing.T, want string, got types.Money, msg string) {
	t.Helper()
	assert.True(t, got.Equal(money(want)), "%s: want %s, got %s", msg, want, got.String())
}

// saleOf builds a sale with one line of qty units: revenue 100, cost 60, fee 3%.
func saleOf(ch sales.Channel) *sales.Sale {
	return &sales.Sale{
		ID:       id.New(),
		Channel:  ch,
		Status:   sales.StatusCompleted,
		Discount: money("0"),
		FeeRate:  money("3"),
		Lines: []*sales.LineItem{{
			ID:             id.New(),
			Quantity:       10,
			UnitPrice:      money("10.00"),
			RegisteredCost: money("60.00"),
		}},
	}
}

func TestCalculate_ChannelSplit(t *testing.T) {
	tests := []struct {
		channel sales.Channel
		want    string
	}{
		{sales.ChannelInStore, "18.50"},
		{sales.ChannelExternal, "37.00"},
	}
	for _, tt := range tests {
		t.Run(string(tt.channel), func(t *testing.T) {
			f := Calculate(saleOf(tt.channel), nil)
			assertMoney(t, "100", f.GrossRevenue, "gross revenue")
			assertMoney(t, "60", f.GrossCost, "gross cost")
			assertMoney(t, "40", f.GrossProfit, "gross profit")
			assertMoney(t, "3", f.FeeAmount, "fee")
			assertMoney(t, "37", f.ProfitAfterFee, "after fee")
			assertMoney(t, tt.want, f.NetProfit, "net profit")
		})
	}
}

func TestCalculate_DiscountAndGift(t *testing.T) {
	s := saleOf(sales.ChannelExternal)
	s.Discount = money("10")
	s.Lines = append(s.Lines, &sales.LineItem{
		ID:             id.New(),
		Quantity:       1,
		UnitPrice:      money("0"),
		RegisteredCost: money("4.00"),
		Gift:           true,
	})

	f := Calculate(s, nil)
	assertMoney(t, "100", f.GrossRevenue, "gifts add no revenue")
	assertMoney(t, "90", f.NetRevenue, "net revenue")
	assertMoney(t, "64", f.GrossCost, "gifts still cost")
	assertMoney(t, "26", f.GrossProfit, "gross profit")
	assertMoney(t, "2.70", f.FeeAmount, "fee on net revenue")
}

func TestCalculate_ReturnReversal(t *testing.T) {
	s := saleOf(sales.ChannelExternal)
	line := s.Lines[0]
	rets := []*returns.Return{{
		Lines: []*returns.Line{{LineItemID: line.ID, Quantity: 3}},
	}}

	f := Calculate(s, rets)
	// 3 * (10 - 6)
	assertMoney(t, "12", f.ReturnedProfitReversal, "reversal")
	// fee is not refunded
	assertMoney(t, "3", f.FeeAmount, "fee")
	assertMoney(t, "25", f.NetProfit, "net profit")
	assertMoney(t, "30", f.RestitutedValue, "restituted")
}

func TestCalculate_ReversalIsExactBeforeRounding(t *testing.T) {
	s := &sales.Sale{
		Channel:  sales.ChannelExternal,
		Status:   sales.StatusCompleted,
		Discount: money("0"),
		FeeRate:  money("0"),
		Lines: []*sales.LineItem{{
			ID:             id.New(),
			Quantity:       3,
			UnitPrice:      money("1.00"),
			RegisteredCost: money("1.00"),
		}},
	}
	rets := []*returns.Return{
		{Lines: []*returns.Line{{LineItemID: s.Lines[0].ID, Quantity: 1}}},
		{Lines: []*returns.Line{{LineItemID: s.Lines[0].ID, Quantity: 2}}},
	}

	f := Calculate(s, rets)
	assertMoney(t, "2", f.ReturnedProfitReversal, "three thirds of cost")
	assertMoney(t, "0", f.NetProfit, "fully returned")
}

func TestCalculate_Cancelled(t *testing.T) {
	s := saleOf(sales.ChannelInStore)
	s.Status = sales.StatusCancelled
	f := Calculate(s, nil)
	assert.True(t, f.NetProfit.IsZero())
	assert.True(t, f.GrossRevenue.IsZero())
}
