// Package balance keeps the running per-bucket totals of foreign and difference accounts.
package balance

import (
	"fmt"
	"sort"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
)

// Balance is the state of one DifferenceKey bucket.
type Balance struct {
	ForeignTotal      money.Milliunits
	DifferenceBalance money.Milliunits
}

// Ledger maps each DifferenceKey to its balance. It is owned by a single
// reconciliation pass and is not safe for concurrent use.
type Ledger struct {
	balances map[money.DifferenceKey]*Balance
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[money.DifferenceKey]*Balance)}
}

func (l *Ledger) entry(key money.DifferenceKey) *Balance {
	b, ok := l.balances[key]
	if !ok {
		b = &Balance{ForeignTotal: money.Zero, DifferenceBalance: money.Zero}
		l.balances[key] = b
	}
	return b
}

// AddForeign seeds the foreign total of key with a foreign account balance.
func (l *Ledger) AddForeign(key money.DifferenceKey, amount money.Milliunits) {
	b := l.entry(key)
	b.ForeignTotal = b.ForeignTotal.Add(amount)
}

// AddDifference seeds the difference balance of key with a difference account balance.
func (l *Ledger) AddDifference(key money.DifferenceKey, amount money.Milliunits) {
	b := l.entry(key)
	b.DifferenceBalance = b.DifferenceBalance.Add(amount)
}

// Apply records a difference delta for key. When the transaction was a
// transfer from another foreign bucket, that bucket's foreign total moves by
// the negated delta. Both keys must already be in the ledger.
func (l *Ledger) Apply(key money.DifferenceKey, transferKey *money.DifferenceKey, delta money.Milliunits) {
	b, ok := l.balances[key]
	if !ok {
		panic(fmt.Sprintf("balance: no entry for %s", key))
	}
	b.DifferenceBalance = b.DifferenceBalance.Add(delta)

	if transferKey == nil {
		return
	}
	t, ok := l.balances[*transferKey]
	if !ok {
		panic(fmt.Sprintf("balance: no entry for transfer %s", *transferKey))
	}
	t.ForeignTotal = t.ForeignTotal.Sub(delta)
}

// Get returns the balance of key.
func (l *Ledger) Get(key money.DifferenceKey) (Balance, bool) {
	b, ok := l.balances[key]
	if !ok {
		return Balance{}, false
	}
	return *b, true
}

// Keys returns all keys ordered by currency, then class.
func (l *Ledger) Keys() []money.DifferenceKey {
	keys := make([]money.DifferenceKey, 0, len(l.balances))
	for k := range l.balances {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Currency != keys[j].Currency {
			return keys[i].Currency < keys[j].Currency
		}
		return keys[i].Class < keys[j].Class
	})
	return keys
}
