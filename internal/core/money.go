// Package core provides money parsing and handling utilities.
//
// Amounts are fixed-point decimals with two fractional digits. Ledger
// stores keep them as text so that no float conversion happens between
// the store and the engine.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountScale is the number of fractional digits every amount is normalised to.
const AmountScale = 2

// ParseAmount converts a decimal string to a normalised amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and an
// optional sign, since balances of liabilities are negative. The value is
// rounded half away from zero to two fractional digits.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("-12,34") -> -12.34, nil
//	ParseAmount("12.345") -> 12.35, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return NormalizeAmount(d), nil
}

// NormalizeAmount rounds d to AmountScale fractional digits.
func NormalizeAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountScale)
}

// FormatAmount renders d with exactly AmountScale fractional digits.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}
