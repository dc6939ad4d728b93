package balance

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
)

var (
	debitEUR    = money.DifferenceKey{Currency: "EUR", Class: money.Debit}
	trackingEUR = money.DifferenceKey{Currency: "EUR", Class: money.Tracking}
	debitGBP    = money.DifferenceKey{Currency: "GBP", Class: money.Debit}
)

func m(v int64) money.Milliunits {
	return money.MilliunitsFromInt64(v)
}

func TestLedgerApply(t *testing.T) {
	l := NewLedger()
	l.AddForeign(debitEUR, m(100000))
	l.AddForeign(debitEUR, m(50000))
	l.AddDifference(debitEUR, m(-1000))
	l.AddForeign(trackingEUR, m(20000))

	l.Apply(debitEUR, nil, m(-2000))
	l.Apply(debitEUR, &trackingEUR, m(500))

	tests := []struct {
		key      money.DifferenceKey
		expected [2]int64
	}{
		{debitEUR, [2]int64{150000, -2500}},
		{trackingEUR, [2]int64{19500, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			b, ok := l.Get(tt.key)
			if !ok {
				t.Fatalf("Get(%s) not found", tt.key)
			}
			got := [2]int64{b.ForeignTotal.Int64(), b.DifferenceBalance.Int64()}
			if got != tt.expected {
				t.Errorf("Get(%s) = %v, expected %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestLedgerApplyUnknownKeyPanics(t *testing.T) {
	l := NewLedger()
	l.AddForeign(debitEUR, m(1))

	defer func() {
		if recover() == nil {
			t.Error("Apply() with unknown transfer key should panic")
		}
	}()
	l.Apply(debitEUR, &debitGBP, m(1))
}

func TestLedgerKeys(t *testing.T) {
	l := NewLedger()
	l.AddDifference(debitGBP, m(0))
	l.AddForeign(trackingEUR, m(0))
	l.AddForeign(debitEUR, m(0))

	want := []money.DifferenceKey{debitEUR, trackingEUR, debitGBP}
	if diff := cmp.Diff(want, l.Keys()); diff != "" {
		t.Errorf("Keys() mismatch (-want +got):\n%s", diff)
	}
}
