// Package format renders amounts, rates and dates the way the budget displays them,
// and prints reconciliation changes to the console.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/ynab"
)

// Formatter formats values according to the budget settings.
type Formatter struct {
	currency   ynab.CurrencyFormat
	dateLayout string
}

// NewFormatter creates a formatter for the budget settings.
func NewFormatter(settings ynab.BudgetSettings) *Formatter {
	layout := settings.DateFormat.Format
	if layout == "" {
		layout = "YYYY-MM-DD"
	}
	layout = strings.NewReplacer("YYYY", "2006", "MM", "01", "DD", "02").Replace(layout)

	return &Formatter{
		currency:   settings.CurrencyFormat,
		dateLayout: layout,
	}
}

// DecimalDigits returns the number of decimal digits of the local currency.
func (f *Formatter) DecimalDigits() int32 {
	return f.currency.DecimalDigits
}

// Amount formats a local amount with the budget's currency symbol, e.g. "-$12.35".
func (f *Formatter) Amount(m money.Milliunits) string {
	number := f.number(m.Decimal(), false)
	negative := f.signed(m.Decimal(), number) != number
	if f.currency.DisplaySymbol {
		if f.currency.SymbolFirst {
			number = f.currency.CurrencySymbol + number
		} else {
			number = number + f.currency.CurrencySymbol
		}
	}
	if negative {
		return "-" + number
	}
	return number
}

// Plain formats a local amount without a symbol, e.g. "-22.00".
func (f *Formatter) Plain(m money.Milliunits) string {
	return f.signed(m.Decimal(), f.number(m.Decimal(), false))
}

// AmountWithCode formats an amount followed by its currency code, e.g. "-20.00 EUR".
func (f *Formatter) AmountWithCode(code money.CurrencyCode, m money.Milliunits) string {
	return fmt.Sprintf("%s %s", f.Plain(m), code)
}

// Rate formats an exchange rate with all of its digits.
func (f *Formatter) Rate(r money.ExchangeRate) string {
	return f.signed(r.Decimal(), f.number(r.Decimal(), true))
}

// Date formats a date in the budget's date format.
func (f *Formatter) Date(t time.Time) string {
	return t.Format(f.dateLayout)
}

// Exchange summarizes a conversion, e.g. "-20.00 EUR @1.100000/EUR = -22.00".
func (f *Formatter) Exchange(code money.CurrencyCode, amount money.Milliunits, rate money.ExchangeRate) string {
	return fmt.Sprintf("%s @%s/%s = %s",
		f.AmountWithCode(code, amount),
		f.Rate(rate),
		code,
		f.Plain(amount.Convert(rate)),
	)
}

func (f *Formatter) signed(d decimal.Decimal, number string) string {
	if d.IsNegative() && strings.ContainsAny(number, "123456789") {
		return "-" + number
	}
	return number
}

// number formats the absolute value of d with group and decimal separators.
// Unless allDigits is set, d is rounded half up to the display digits.
func (f *Formatter) number(d decimal.Decimal, allDigits bool) string {
	abs := d.Abs()
	var raw string
	if allDigits {
		raw = abs.StringFixed(-abs.Exponent())
	} else {
		raw = abs.Round(f.currency.DecimalDigits).StringFixed(f.currency.DecimalDigits)
	}

	integer, fraction, _ := strings.Cut(raw, ".")
	grouped := groupDigits(integer, f.currency.GroupSeparator)
	if fraction == "" {
		return grouped
	}
	return grouped + f.currency.DecimalSeparator + fraction
}

func groupDigits(digits, sep string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
