// Package core holds the domain model: the exact-allocation Money type,
// accounts, transactions, budgets, and their validation rules.
//
// All monetary amounts are integers in minor units (cents for EUR) to avoid
// floating-point drift. Two Money values combine only when their currencies
// match; a mismatch is a domain error, never a silent coercion.
package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is an immutable, currency-tagged amount in minor units.
// Every operation returns a new value and leaves its operands untouched.
type Money struct {
	Cents    int64
	Currency string // 3-letter ISO 4217 code
}

// NewMoney builds a Money from minor units.
func NewMoney(cents int64, currency string) Money {
	return Money{Cents: cents, Currency: currency}
}

// MoneyFromDecimal builds a Money from a major-unit decimal value, rounding
// half-away-from-zero to the nearest minor unit (12.345 -> 12.35,
// -12.345 -> -12.35). The rounding mode is pinned by tests.
func MoneyFromDecimal(d decimal.Decimal, currency string) Money {
	return Money{Cents: d.Round(2).Shift(2).IntPart(), Currency: currency}
}

// ParseMajorUnits parses a major-unit decimal string ("12.34") into a Money.
// Returns ErrInvalidAmount for anything decimal cannot parse.
func ParseMajorUnits(s, currency string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return MoneyFromDecimal(d, currency), nil
}

// Validate checks the currency tag: exactly three uppercase ASCII letters.
func (m Money) Validate() error {
	if len(m.Currency) != 3 {
		return ErrInvalidCurrency
	}
	for i := 0; i < 3; i++ {
		c := m.Currency[i]
		if c < 'A' || c > 'Z' {
			return ErrInvalidCurrency
		}
	}
	return nil
}

// Add returns m + other. ErrCurrencyMismatch if the currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Cents: m.Cents + other.Cents, Currency: m.Currency}, nil
}

// Subtract returns m - other. ErrCurrencyMismatch if the currencies differ.
func (m Money) Subtract(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.Currency, other.Currency)
	}
	return Money{Cents: m.Cents - other.Cents, Currency: m.Currency}, nil
}

// Neg returns the negated amount in the same currency.
func (m Money) Neg() Money {
	return Money{Cents: -m.Cents, Currency: m.Currency}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.Cents == 0 }

// Equal reports whether both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.Cents == other.Cents && m.Currency == other.Currency
}

// Allocate splits the amount proportionally across the given ratios so that
// the results sum to the original amount exactly. Each share is the floor of
// amount*ratio/sum(ratios); the leftover minor units go one at a time to the
// earliest entries in input order. Ratios must be positive and non-empty.
func (m Money) Allocate(ratios []int64) ([]Money, error) {
	if len(ratios) == 0 {
		return nil, ErrInvalidRatios
	}
	var sum int64
	for _, r := range ratios {
		if r <= 0 {
			return nil, ErrInvalidRatios
		}
		sum += r
	}

	shares := make([]Money, len(ratios))
	var allocated int64
	for i, r := range ratios {
		c := floorDiv(m.Cents*r, sum)
		shares[i] = Money{Cents: c, Currency: m.Currency}
		allocated += c
	}

	// The floors never exceed the original amount, so the remainder is the
	// number of minor units still to hand out. Negative amounts hand out
	// negative units, same earliest-first order either way.
	remainder := m.Cents - allocated
	step := int64(1)
	if remainder < 0 {
		step = -1
		remainder = -remainder
	}
	for i := int64(0); i < remainder; i++ {
		shares[i].Cents += step
	}
	return shares, nil
}

// floorDiv divides rounding toward negative infinity. Go's integer division
// truncates toward zero, which differs for negative dividends.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// String renders the amount in major units with the currency code, e.g.
// "123.40 EUR". Locale-aware formatting is the presentation layer's job.
func (m Money) String() string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, m.Currency)
}
