// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors. All amounts in the
// engine are single-currency with two-decimal presentation.
type Money = decimal.Decimal

// NewMoneyFromString creates a Money value from a string.
// This is the preferred constructor for monetary values.
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

// Round2 rounds to two decimals, half away from zero. This is the single
// rounding rule for the whole engine: consignment credit values are fixed
// with it at accrual time and never recomputed.
func Round2(v Money) Money {
	return v.Round(2)
}

// Percent applies pct (0..100) to v and rounds to two decimals.
func Percent(v Money, pct Money) Money {
	return Round2(v.Mul(pct).Div(decimal.NewFromInt(100)))
}
