// Package types provides the money and quantity types shared by the ledger.
package types

import (
	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of fractional digits kept for stored and
// reported money values.
const CurrencyPlaces int32 = 2

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundCurrency rounds half away from zero to CurrencyPlaces.
// Intermediate products stay exact; only reported figures are rounded.
func RoundCurrency(m Money) Money {
	return m.Round(CurrencyPlaces)
}

// Percent returns base * rate / 100 without rounding.
func Percent(base Money, rate Money) Money {
	return base.Mul(rate).Div(decimal.NewFromInt(100))
}

// Quantity counts whole stock units. Lots and sale lines never carry fractions.
type Quantity = int64

// Times multiplies a unit amount by a quantity.
func Times(unit Money, q Quantity) Money {
	return unit.Mul(decimal.NewFromInt(q))
}

// Prorate returns total * part / whole, exact until the final division.
// It returns zero when whole is zero.
func Prorate(total Money, part, whole Quantity) Money {
	if whole == 0 {
		return decimal.Zero
	}
	return total.Mul(decimal.NewFromInt(part)).Div(decimal.NewFromInt(whole))
}
