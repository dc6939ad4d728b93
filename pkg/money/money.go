// Package money provides the fixed-scale value types used for ledger amounts and exchange rates.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// MilliunitsScale is the number of decimal digits every Milliunits value carries.
	MilliunitsScale int32 = 3
	// ExchangeRateScale is the number of decimal digits every ExchangeRate value carries.
	ExchangeRateScale int32 = 6
)

// CurrencyCode is a three letter ISO 4217 style currency code, always upper case.
type CurrencyCode string

// ParseCurrencyCode validates and normalizes a currency code.
func ParseCurrencyCode(code string) (CurrencyCode, error) {
	if len(code) != 3 {
		return "", fmt.Errorf("invalid currency code: %q", code)
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return "", fmt.Errorf("invalid currency code: %q", code)
		}
	}
	return CurrencyCode(strings.ToUpper(code)), nil
}

// MustParseCurrencyCode is like ParseCurrencyCode but panics on invalid input.
func MustParseCurrencyCode(code string) CurrencyCode {
	c, err := ParseCurrencyCode(code)
	if err != nil {
		panic(err)
	}
	return c
}

func (c CurrencyCode) String() string {
	return string(c)
}

// Milliunits is a monetary amount in thousandths of the currency's major unit.
// The zero value is zero.
type Milliunits struct {
	d decimal.Decimal
}

// Zero is a zero amount.
var Zero = MilliunitsFromInt64(0)

// MilliunitsFromInt64 creates an amount from an integer number of milliunits.
func MilliunitsFromInt64(v int64) Milliunits {
	return Milliunits{decimal.New(v, -MilliunitsScale)}
}

// MilliunitsFromDecimal rescales an arbitrary decimal to milliunits, rounding
// excess digits with banker's rounding.
func MilliunitsFromDecimal(d decimal.Decimal) Milliunits {
	return Milliunits{rescale(d, MilliunitsScale)}
}

// ParseMilliunits parses a decimal string such as "-20.00".
func ParseMilliunits(s string) (Milliunits, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Milliunits{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return MilliunitsFromDecimal(d), nil
}

// Int64 returns the amount as an integer number of milliunits.
func (m Milliunits) Int64() int64 {
	d := m.decimal()
	return d.Coefficient().Int64()
}

// Decimal returns the underlying decimal value.
func (m Milliunits) Decimal() decimal.Decimal {
	return m.decimal()
}

func (m Milliunits) Add(o Milliunits) Milliunits {
	return checked(m.decimal().Add(o.decimal()))
}

func (m Milliunits) Sub(o Milliunits) Milliunits {
	return checked(m.decimal().Sub(o.decimal()))
}

func (m Milliunits) Neg() Milliunits {
	return checked(m.decimal().Neg())
}

func (m Milliunits) Abs() Milliunits {
	return checked(m.decimal().Abs())
}

// IsZero reports whether the amount is zero.
func (m Milliunits) IsZero() bool {
	return m.decimal().IsZero()
}

// Cmp compares m and o and returns -1, 0 or 1.
func (m Milliunits) Cmp(o Milliunits) int {
	return m.decimal().Cmp(o.decimal())
}

// Equal reports whether both amounts are numerically equal.
func (m Milliunits) Equal(o Milliunits) bool {
	return m.Cmp(o) == 0
}

// RoundBank rounds to the given number of decimal digits using banker's
// rounding. The result keeps the milliunits scale.
func (m Milliunits) RoundBank(digits int32) Milliunits {
	if digits < 0 || digits > MilliunitsScale {
		panic(fmt.Sprintf("money: cannot round milliunits to %d digits", digits))
	}
	return Milliunits{rescale(m.decimal().RoundBank(digits), MilliunitsScale)}
}

// Convert converts the amount with the given rate, rounding the product to
// milliunits with banker's rounding.
func (m Milliunits) Convert(rate ExchangeRate) Milliunits {
	return Milliunits{rescale(m.decimal().Mul(rate.decimal()).RoundBank(MilliunitsScale), MilliunitsScale)}
}

// SmallestUnit returns the smallest amount representable with the given number of decimal digits.
func SmallestUnit(digits int32) Milliunits {
	if digits < 0 || digits > MilliunitsScale {
		panic(fmt.Sprintf("money: decimal digits may not exceed %d, got %d", MilliunitsScale, digits))
	}
	return Milliunits{rescale(decimal.New(1, -digits), MilliunitsScale)}
}

func (m Milliunits) String() string {
	return m.decimal().StringFixed(MilliunitsScale)
}

// decimal returns the value, treating the zero struct as zero.
func (m Milliunits) decimal() decimal.Decimal {
	if m.d.Exponent() == 0 && m.d.IsZero() {
		return decimal.New(0, -MilliunitsScale)
	}
	if m.d.Exponent() != -MilliunitsScale {
		panic(fmt.Sprintf("money: milliunits scale should be %d, but is %d", MilliunitsScale, -m.d.Exponent()))
	}
	return m.d
}

func checked(d decimal.Decimal) Milliunits {
	if d.Exponent() != -MilliunitsScale {
		panic(fmt.Sprintf("money: milliunits scale should be %d, but is %d", MilliunitsScale, -d.Exponent()))
	}
	return Milliunits{d}
}

// ExchangeRate is the price of one unit of a foreign currency in the local currency.
type ExchangeRate struct {
	d decimal.Decimal
}

// ExchangeRateFromInt64 creates a rate from an integer number of millionths.
func ExchangeRateFromInt64(v int64) ExchangeRate {
	return ExchangeRate{decimal.New(v, -ExchangeRateScale)}
}

// ExchangeRateFromFloat rounds a provider supplied rate to six decimals, half away from zero.
func ExchangeRateFromFloat(f float64) ExchangeRate {
	return ExchangeRate{rescale(decimal.NewFromFloat(f).Round(ExchangeRateScale), ExchangeRateScale)}
}

// ParseExchangeRate parses a decimal string such as "1.1".
func ParseExchangeRate(s string) (ExchangeRate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ExchangeRate{}, fmt.Errorf("invalid exchange rate %q: %w", s, err)
	}
	return ExchangeRate{rescale(d.Round(ExchangeRateScale), ExchangeRateScale)}, nil
}

// Int64 returns the rate as an integer number of millionths.
func (r ExchangeRate) Int64() int64 {
	return r.decimal().Coefficient().Int64()
}

func (r ExchangeRate) Decimal() decimal.Decimal {
	return r.decimal()
}

func (r ExchangeRate) Equal(o ExchangeRate) bool {
	return r.decimal().Equal(o.decimal())
}

func (r ExchangeRate) String() string {
	return r.decimal().StringFixed(ExchangeRateScale)
}

func (r ExchangeRate) decimal() decimal.Decimal {
	if r.d.Exponent() == 0 && r.d.IsZero() {
		return decimal.New(0, -ExchangeRateScale)
	}
	if r.d.Exponent() != -ExchangeRateScale {
		panic(fmt.Sprintf("money: exchange rate scale should be %d, but is %d", ExchangeRateScale, -r.d.Exponent()))
	}
	return r.d
}

// rescale returns d with exactly scale decimal digits. Excess digits are
// removed with banker's rounding.
func rescale(d decimal.Decimal, scale int32) decimal.Decimal {
	if d.Exponent() < -scale {
		d = d.RoundBank(scale)
	}
	return d.Add(decimal.New(0, -scale))
}
