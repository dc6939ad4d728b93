package money

import (
	"testing"
)

func TestParseCurrencyCode(t *testing.T) {
	tests := []struct {
		input    string
		expected CurrencyCode
		wantErr  bool
	}{
		{"EUR", "EUR", false},
		{"usd", "USD", false},
		{"Chf", "CHF", false},
		{"EURO", "", true},
		{"EU", "", true},
		{"E1R", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCurrencyCode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCurrencyCode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("ParseCurrencyCode(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMilliunitsInt64RoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, -1, 12345, -20000, 123456789012345} {
		if got := MilliunitsFromInt64(v).Int64(); got != v {
			t.Errorf("MilliunitsFromInt64(%d).Int64() = %d", v, got)
		}
	}
}

func TestMilliunitsConvert(t *testing.T) {
	tests := []struct {
		amount   int64
		rate     int64
		expected int64
	}{
		{12345, 1234567, 15241},
		{-20000, 1100000, -22000},
		{100000, 1100000, 110000},
		{0, 1234567, 0},
		// 0.001 * 0.5 = 0.0005 rounds to even
		{1, 500000, 0},
		// 0.003 * 0.5 = 0.0015 rounds to even
		{3, 500000, 2},
	}

	for _, tt := range tests {
		got := MilliunitsFromInt64(tt.amount).Convert(ExchangeRateFromInt64(tt.rate))
		if got.Int64() != tt.expected {
			t.Errorf("Convert(%d, %d) = %s, expected %d", tt.amount, tt.rate, got, tt.expected)
		}
		if got.Decimal().Exponent() != -MilliunitsScale {
			t.Errorf("Convert(%d, %d) has exponent %d", tt.amount, tt.rate, got.Decimal().Exponent())
		}
	}
}

func TestMilliunitsRoundBank(t *testing.T) {
	tests := []struct {
		amount   int64
		digits   int32
		expected int64
	}{
		{12345, 2, 12340},
		{12355, 2, 12360},
		{12346, 2, 12350},
		{-12345, 2, -12340},
		{-12355, 2, -12360},
		{2500, 0, 2000},
		{3500, 0, 4000},
		{12345, 3, 12345},
	}

	for _, tt := range tests {
		got := MilliunitsFromInt64(tt.amount).RoundBank(tt.digits)
		if got.Int64() != tt.expected {
			t.Errorf("RoundBank(%d, %d) = %d, expected %d", tt.amount, tt.digits, got.Int64(), tt.expected)
		}
	}
}

func TestMilliunitsArithmeticKeepsScale(t *testing.T) {
	a := MilliunitsFromInt64(12345)
	b := MilliunitsFromInt64(-678)

	results := map[string]Milliunits{
		"add":   a.Add(b),
		"sub":   a.Sub(b),
		"neg":   b.Neg(),
		"abs":   b.Abs(),
		"round": a.RoundBank(1),
		"zero":  Zero.Add(Milliunits{}),
	}
	for name, m := range results {
		if exp := m.Decimal().Exponent(); exp != -MilliunitsScale {
			t.Errorf("%s: exponent = %d, expected %d", name, exp, -MilliunitsScale)
		}
	}

	if got := a.Add(b).Int64(); got != 11667 {
		t.Errorf("Add = %d, expected 11667", got)
	}
	if got := a.Sub(b).Int64(); got != 13023 {
		t.Errorf("Sub = %d, expected 13023", got)
	}
	if got := b.Abs().Int64(); got != 678 {
		t.Errorf("Abs = %d, expected 678", got)
	}
	if !(Milliunits{}).IsZero() {
		t.Error("zero value should be zero")
	}
}

func TestSmallestUnit(t *testing.T) {
	tests := []struct {
		digits   int32
		expected int64
	}{
		{0, 1000},
		{1, 100},
		{2, 10},
		{3, 1},
	}

	for _, tt := range tests {
		if got := SmallestUnit(tt.digits).Int64(); got != tt.expected {
			t.Errorf("SmallestUnit(%d) = %d, expected %d", tt.digits, got, tt.expected)
		}
	}
}

func TestExchangeRateFromFloat(t *testing.T) {
	tests := []struct {
		input    float64
		expected int64
	}{
		{12.345678, 12345678},
		{12.3456785, 12345679},
		{1.1, 1100000},
		{0.000001, 1},
	}

	for _, tt := range tests {
		got := ExchangeRateFromFloat(tt.input)
		if got.Int64() != tt.expected {
			t.Errorf("ExchangeRateFromFloat(%v) = %d, expected %d", tt.input, got.Int64(), tt.expected)
		}
		if got.Decimal().Exponent() != -ExchangeRateScale {
			t.Errorf("ExchangeRateFromFloat(%v) has exponent %d", tt.input, got.Decimal().Exponent())
		}
	}
}

func TestStrings(t *testing.T) {
	if got := MilliunitsFromInt64(-20000).String(); got != "-20.000" {
		t.Errorf("String() = %q", got)
	}
	if got := ExchangeRateFromInt64(1100000).String(); got != "1.100000" {
		t.Errorf("String() = %q", got)
	}
	m, err := ParseMilliunits("-20.00")
	if err != nil {
		t.Fatal(err)
	}
	if m.Int64() != -20000 {
		t.Errorf("ParseMilliunits = %d", m.Int64())
	}
}
