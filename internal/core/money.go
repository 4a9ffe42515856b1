// Package core holds the financial domain model: record types, validation,
// money handling and the derived queries computed over a state document.
package core

import (
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyZAR Currency = "ZAR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
)

type (
	Currency string

	// Money is an amount in integer cents. Calculations stay in cents;
	// floating point only appears at display boundaries.
	Money struct {
		Cents int64 `json:"cents"`
	}
)

var centFactor = decimal.NewFromInt(100)

func (c Currency) IsValid() bool {
	switch c {
	case CurrencyUSD, CurrencyEUR, CurrencyZAR, CurrencyGBP, CurrencyJPY:
		return true
	}
	return false
}

// Symbol returns the display symbol for the currency, defaulting to "$".
func (c Currency) Symbol() string {
	switch c {
	case CurrencyEUR:
		return "€"
	case CurrencyZAR:
		return "R"
	case CurrencyGBP:
		return "£"
	case CurrencyJPY:
		return "¥"
	default:
		return "$"
	}
}

// ParseAmount converts a decimal string such as "12.34" or "12,34" to Money.
// Amounts must be positive; the third decimal place is rounded half up.
func ParseAmount(s string) (Money, error) {
	d, err := decimal.NewFromString(normalizeDecimal(s))
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(centFactor).Round(0).IntPart()
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

// ParseLimit is ParseAmount but admits zero, for budget limits.
func ParseLimit(s string) (Money, error) {
	d, err := decimal.NewFromString(normalizeDecimal(s))
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(centFactor).Round(0).IntPart()
	if cents < 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

func normalizeDecimal(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ',':
			out = append(out, '.')
		case ' ', '\t':
		default:
			out = append(out, s[i])
		}
	}
	return string(out)
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Sub returns m - other; the result may be negative.
func (m Money) Sub(other Money) Money {
	return Money{Cents: m.Cents - other.Cents}
}

// Float returns the major-unit value for display purposes only.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// Format renders the amount with a currency symbol, e.g. "$1200.00".
func (m Money) Format(c Currency) string {
	neg := ""
	cents := m.Cents
	if cents < 0 {
		neg = "-"
		cents = -cents
	}
	whole := cents / 100
	frac := cents % 100
	s := strconv.FormatInt(whole, 10)
	f := strconv.FormatInt(frac, 10)
	if len(f) == 1 {
		f = "0" + f
	}
	return neg + c.Symbol() + s + "." + f
}
