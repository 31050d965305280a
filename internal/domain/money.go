package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var (
	microsFactor = decimal.NewFromInt(1_000_000)
	maxMicros    = decimal.NewFromInt(math.MaxInt64)
	minMicros    = decimal.NewFromInt(math.MinInt64)
)

// ErrAmountNotRepresentable is returned for amounts that do not map exactly
// onto int64 micros.
var ErrAmountNotRepresentable = errors.New("amount not representable in micros")

// Money represents a monetary value in a specific currency.
// Amount is stored as BIGINT micros (10^-6) to avoid floating point errors.
type Money struct {
	Amount   int64  // micros
	Currency string // ISO 4217
}

// NewMoney creates a new Money instance from micros.
func NewMoney(amount int64, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: currency,
	}
}

// MoneyFromDecimal builds Money from a major-unit decimal amount.
func MoneyFromDecimal(d decimal.Decimal, currency string) Money {
	return Money{Amount: FromDecimal(d), Currency: currency}
}

// ToDecimal converts the int64 micros to a shopspring/decimal.Decimal.
func (m Money) ToDecimal() decimal.Decimal {
	return MicrosToDecimal(m.Amount)
}

// MicrosToDecimal converts micros to major units.
func MicrosToDecimal(micros int64) decimal.Decimal {
	return decimal.NewFromInt(micros).Div(microsFactor)
}

// FromDecimal converts a decimal.Decimal to int64 micros, truncating
// sub-micro digits. Use CheckedFromDecimal for external amounts.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(microsFactor).IntPart()
}

// CheckedFromDecimal converts d to micros, rejecting values with more than
// six decimal places or outside the int64 range.
func CheckedFromDecimal(d decimal.Decimal) (int64, error) {
	m := d.Mul(microsFactor)
	if !m.IsInteger() {
		return 0, fmt.Errorf("%w: %s has sub-micro digits", ErrAmountNotRepresentable, d)
	}
	if m.GreaterThan(maxMicros) || m.LessThan(minMicros) {
		return 0, fmt.Errorf("%w: %s out of range", ErrAmountNotRepresentable, d)
	}
	return m.IntPart(), nil
}

// RoundCents rounds half away from zero to two decimal places.
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Convert converts the money to a target currency using a given FX rate,
// rounding the result to cents. The rate should be (Target / Source).
func (m Money) Convert(targetCurrency string, rate decimal.Decimal) Money {
	return MoneyFromDecimal(RoundCents(m.ToDecimal().Mul(rate)), targetCurrency)
}

// IsPositive reports whether the amount is greater than zero.
func (m Money) IsPositive() bool {
	return m.Amount > 0
}

// String returns the string representation of the money.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.ToDecimal().StringFixed(2), m.Currency)
}
