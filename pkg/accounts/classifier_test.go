package accounts

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/ynab"
)

const usd = money.CurrencyCode("USD")

var (
	debitEUR    = money.DifferenceKey{Currency: "EUR", Class: money.Debit}
	creditEUR   = money.DifferenceKey{Currency: "EUR", Class: money.Credit}
	trackingGBP = money.DifferenceKey{Currency: "GBP", Class: money.Tracking}
)

func strPtr(s string) *string {
	return &s
}

func account(id, name string, balance int64) ynab.Account {
	return ynab.Account{ID: id, Name: name, Type: ynab.AccountTypeChecking, OnBudget: true, Balance: balance}
}

func TestClassify(t *testing.T) {
	card := account("card", "Visa", -5000)
	card.Type = ynab.AccountTypeCreditCard
	card.Note = strPtr("billed in <eur>")
	cardDiff := account("card-diff", "<EUR-DIFFERENCE> card", 300)
	cardDiff.Type = ynab.AccountTypeCreditCard
	broker := account("broker", "Broker <GBP>", 1000000)
	broker.Type = ynab.AccountTypeOtherAsset
	brokerDiff := account("broker-diff", "Broker <GBP DIFFERENCE>", 0)
	brokerDiff.OnBudget = false
	closed := account("closed", "Old <CHF>", 0)
	closed.Closed = true

	accounts := []ynab.Account{
		account("checking", "Checking", 50000),
		account("savings", "Savings <convert>", 10000),
		account("usd", "Dollar wallet <USD>", 1000),
		account("eur", "Euro account <EUR>", 100000),
		account("eur-diff", "Euro <EUR DIFFERENCE>", -1000),
		card, cardDiff, broker, brokerDiff, closed,
	}

	registry, ledger, err := Classify(accounts, usd)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}

	tests := []struct {
		id       string
		expected Data
	}{
		{"checking", Local{}},
		{"savings", Local{ForceConvert: true}},
		{"usd", Local{}},
		{"eur", Foreign{Key: debitEUR}},
		{"eur-diff", Difference{Key: debitEUR}},
		{"card", Foreign{Key: creditEUR}},
		{"card-diff", Difference{Key: creditEUR}},
		{"broker", Foreign{Key: trackingGBP}},
		{"broker-diff", Difference{Key: trackingGBP}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, ok := registry.Account(tt.id)
			if !ok {
				t.Fatalf("Account(%s) not found", tt.id)
			}
			if diff := cmp.Diff(tt.expected, got); diff != "" {
				t.Errorf("Account(%s) mismatch (-want +got):\n%s", tt.id, diff)
			}
		})
	}

	if _, ok := registry.Account("closed"); ok {
		t.Error("closed account should not be classified")
	}
	if diff := cmp.Diff([]money.CurrencyCode{"EUR", "GBP"}, registry.Currencies()); diff != "" {
		t.Errorf("Currencies() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]money.DifferenceKey{debitEUR, creditEUR, trackingGBP}, registry.DifferenceKeys()); diff != "" {
		t.Errorf("DifferenceKeys() mismatch (-want +got):\n%s", diff)
	}
	if id, _ := registry.DifferenceAccountID(creditEUR); id != "card-diff" {
		t.Errorf("DifferenceAccountID(%s) = %v, expected card-diff", creditEUR, id)
	}
	if got := len(registry.Discoveries()); got != 6 {
		t.Errorf("len(Discoveries()) = %d, expected 6", got)
	}

	b, _ := ledger.Get(debitEUR)
	if b.ForeignTotal.Int64() != 100000 || b.DifferenceBalance.Int64() != -1000 {
		t.Errorf("ledger %s = %v/%v", debitEUR, b.ForeignTotal, b.DifferenceBalance)
	}
	b, _ = ledger.Get(creditEUR)
	if b.ForeignTotal.Int64() != -5000 || b.DifferenceBalance.Int64() != 300 {
		t.Errorf("ledger %s = %v/%v", creditEUR, b.ForeignTotal, b.DifferenceBalance)
	}
}

func TestClassifyErrors(t *testing.T) {
	eur := account("eur", "Euro <EUR>", 0)
	eurDiff := account("eur-diff", "<EUR DIFFERENCE>", 0)

	noteAndName := account("x", "Euro <EUR>", 0)
	noteAndName.Note = strPtr("<GBP>")
	noteTwice := account("x", "Euro", 0)
	noteTwice.Note = strPtr("<EUR> <GBP>")

	tests := []struct {
		name     string
		accounts []ynab.Account
		contains []string
	}{
		{
			name:     "tag in name and note",
			accounts: []ynab.Account{eur, eurDiff, noteAndName},
			contains: []string{"name and note may not both have tags"},
		},
		{
			name:     "multiple tags in name",
			accounts: []ynab.Account{eur, eurDiff, account("x", "<EUR> <GBP>", 0)},
			contains: []string{"name may not have multiple tags"},
		},
		{
			name:     "multiple tags in note",
			accounts: []ynab.Account{eur, eurDiff, noteTwice},
			contains: []string{"note may not have multiple tags"},
		},
		{
			name:     "foreign and difference",
			accounts: []ynab.Account{eur, eurDiff, account("x", "<GBP> <GBP DIFFERENCE>", 0)},
			contains: []string{"both foreign currency and difference account"},
		},
		{
			name:     "local difference",
			accounts: []ynab.Account{eur, eurDiff, account("x", "<USD DIFFERENCE>", 0)},
			contains: []string{"difference account for the local currency"},
		},
		{
			name:     "duplicate difference",
			accounts: []ynab.Account{eur, eurDiff, account("x", "<eur difference>", 0)},
			contains: []string{"more than one difference debit account for EUR"},
		},
		{
			name:     "no foreign accounts",
			accounts: []ynab.Account{account("checking", "Checking", 0)},
			contains: []string{"no foreign currency accounts"},
		},
		{
			name:     "missing difference account",
			accounts: []ynab.Account{eur},
			contains: []string{"no difference debit account for EUR was found"},
		},
		{
			name: "all problems reported",
			accounts: []ynab.Account{
				eur, eurDiff,
				account("x", "<USD DIFFERENCE>", 0),
				account("y", "<EUR> <GBP>", 0),
			},
			contains: []string{"local currency", "multiple tags"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, ledger, err := Classify(tt.accounts, usd)
			if err == nil {
				t.Fatal("Classify() expected error")
			}
			if registry != nil || ledger != nil {
				t.Error("Classify() should not return a registry on error")
			}
			for _, want := range tt.contains {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Classify() error = %v, expected to contain %q", err, want)
				}
			}
			for _, e := range multierr.Errors(err) {
				var validationErr *ValidationError
				if !errors.As(e, &validationErr) {
					t.Errorf("error %v is not a *ValidationError", e)
				}
			}
		})
	}
}

func TestMemoTags(t *testing.T) {
	tests := []struct {
		memo      string
		noConvert bool
		convert   bool
	}{
		{"dinner", false, false},
		{"<NO CONVERT> dinner", true, false},
		{"<no-convert>", true, false},
		{"<NOCONVERT>", true, false},
		{"<convert> please", false, true},
		{"<NO  CONVERT>", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.memo, func(t *testing.T) {
			if got := HasNoConvertTag(tt.memo); got != tt.noConvert {
				t.Errorf("HasNoConvertTag(%q) = %v, expected %v", tt.memo, got, tt.noConvert)
			}
			if got := HasForceConvertTag(tt.memo); got != tt.convert {
				t.Errorf("HasForceConvertTag(%q) = %v, expected %v", tt.memo, got, tt.convert)
			}
		})
	}
}
