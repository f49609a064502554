// Package settings holds the ledger configuration values that operations
// receive explicitly: fee schedule, stock thresholds and return window.
package settings

import (
	"context"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"lotledger/internal/core/apperror"
	"lotledger/internal/core/types"
)

// Payment methods known to the default fee schedule.
const (
	MethodCash   = "cash"
	MethodPix    = "pix"
	MethodDebit  = "debit"
	MethodCredit = "credit"
)

// FeeRate is the percentage charged by the payment processor for a
// (method, installments) pair.
type FeeRate struct {
	Method       string      `mapstructure:"method" json:"method"`
	Installments int         `mapstructure:"installments" json:"installments"`
	Rate         types.Money `mapstructure:"rate" json:"rate"`
}

// Settings is passed by value into every ledger operation that needs it.
type Settings struct {
	FeeRates           []FeeRate
	LowStockThreshold  int64
	GracePeriodDays    int
	IdealMarginPercent types.Money
}

// Default returns the built-in schedule used when no configuration overrides it.
func Default() Settings {
	s := Settings{
		FeeRates: []FeeRate{
			{Method: MethodCash, Installments: 1, Rate: decimal.Zero},
			{Method: MethodPix, Installments: 1, Rate: decimal.Zero},
			{Method: MethodDebit, Installments: 1, Rate: types.MustMoney("1.99")},
		},
		LowStockThreshold:  10,
		GracePeriodDays:    0,
		IdealMarginPercent: types.MustMoney("30"),
	}
	credit := []string{"3.49", "4.99", "5.99", "6.99", "7.99", "8.99"}
	for i, r := range credit {
		s.FeeRates = append(s.FeeRates, FeeRate{Method: MethodCredit, Installments: i + 1, Rate: types.MustMoney(r)})
	}
	return s
}

// FeeRate looks up the rate for a payment method and installment count.
// An unknown pair is a validation error; there is no implicit zero fee.
func (s Settings) FeeRate(method string, installments int) (types.Money, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	for _, fr := range s.FeeRates {
		if strings.EqualFold(fr.Method, method) && fr.Installments == installments {
			return fr.Rate, nil
		}
	}
	return decimal.Zero, apperror.NewValidation("no fee rate configured for payment method").
		WithDetail("payment_method", method).
		WithDetail("installments", installments)
}

// Validate checks the schedule for negative or duplicate entries.
func (s Settings) Validate() error {
	seen := make(map[string]bool, len(s.FeeRates))
	for _, fr := range s.FeeRates {
		if fr.Method == "" || fr.Installments < 1 {
			return apperror.NewValidation("fee rate entry needs a method and installments >= 1")
		}
		if fr.Rate.IsNegative() {
			return apperror.NewValidation("fee rate cannot be negative").WithDetail("payment_method", fr.Method)
		}
		key := strings.ToLower(fr.Method) + "/" + strconv.Itoa(fr.Installments)
		if seen[key] {
			return apperror.NewValidation("duplicate fee rate entry").WithDetail("entry", key)
		}
		seen[key] = true
	}
	if s.LowStockThreshold < 0 || s.GracePeriodDays < 0 {
		return apperror.NewValidation("thresholds cannot be negative")
	}
	return nil
}

// Provider exposes the current settings. The loaded value is then passed into
// each operation instead of being read from ambient state.
type Provider interface {
	Load(ctx context.Context) (Settings, error)
}

// Static is a Provider returning a fixed value.
type Static struct {
	Value Settings
}

// Load implements Provider.
func (p Static) Load(context.Context) (Settings, error) {
	return p.Value, nil
}
