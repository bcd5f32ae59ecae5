// Package money converts between the two-decimal amount strings used on the
// wire ("10.00") and the integer cents used everywhere inside the service.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrBadAmount = errors.New("amount must be a positive number with at most two decimal places")

// ParseCents parses a decimal amount string into cents. Amounts with more
// than two decimal places or a non-positive value are rejected: clients must
// state exact money, not approximations.
func ParseCents(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrBadAmount
	}
	if d.Exponent() < -2 {
		return 0, ErrBadAmount
	}
	if !d.IsPositive() {
		return 0, ErrBadAmount
	}
	return d.Shift(2).IntPart(), nil
}

// FormatCents renders cents as a two-decimal string, e.g. 920 -> "9.20".
func FormatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
