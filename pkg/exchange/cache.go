// Package exchange provides a read-through cache of historical exchange rates.
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/currconv"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
)

// Store is the persistent side of the cache.
type Store interface {
	GetExchangeRate(from, to money.CurrencyCode, date time.Time) (*money.ExchangeRate, error)
	GetExchangeRatesForDate(from []money.CurrencyCode, to money.CurrencyCode, date time.Time) (map[money.CurrencyCode]money.ExchangeRate, error)
	SaveExchangeRate(from, to money.CurrencyCode, date time.Time, rate money.ExchangeRate) error
}

// Provider fetches rates remotely.
type Provider interface {
	GetRates(ctx context.Context, date time.Time, pairs []currconv.Pair) (map[currconv.Pair]money.ExchangeRate, error)
}

type memoKey struct {
	currency money.CurrencyCode
	date     string
}

// Cache resolves rates into the local currency from memory, then the store,
// then the provider. A remote fetch always asks for every foreign currency in
// use on that date, so later lookups for the same day stay local.
type Cache struct {
	store      Store
	provider   Provider
	local      money.CurrencyCode
	currencies []money.CurrencyCode
	memo       map[memoKey]money.ExchangeRate
	fetches    int
}

// NewCache creates a cache for rates into local. currencies is the full set
// of foreign currencies in use.
func NewCache(store Store, provider Provider, local money.CurrencyCode, currencies []money.CurrencyCode) *Cache {
	return &Cache{
		store:      store,
		provider:   provider,
		local:      local,
		currencies: currencies,
		memo:       make(map[memoKey]money.ExchangeRate),
	}
}

// GetRate returns the rate of one unit of from in the local currency on date.
func (c *Cache) GetRate(ctx context.Context, from money.CurrencyCode, date time.Time) (money.ExchangeRate, error) {
	if from == c.local {
		panic(fmt.Sprintf("exchange: rate of local currency %s requested", from))
	}

	key := memoKey{currency: from, date: date.Format("2006-01-02")}
	if rate, ok := c.memo[key]; ok {
		return rate, nil
	}

	stored, err := c.store.GetExchangeRate(from, c.local, date)
	if err != nil {
		return money.ExchangeRate{}, err
	}
	if stored != nil {
		c.memo[key] = *stored
		return *stored, nil
	}

	wanted := c.wanted(from)
	known, err := c.store.GetExchangeRatesForDate(wanted, c.local, date)
	if err != nil {
		return money.ExchangeRate{}, err
	}

	var missing []currconv.Pair
	for _, code := range wanted {
		if _, ok := known[code]; !ok {
			missing = append(missing, currconv.Pair{From: code, To: c.local})
		}
	}

	if len(missing) > 0 {
		slog.Info("Fetching exchange rates", "date", key.date, "pairs", len(missing))
		c.fetches++
		fetched, err := c.provider.GetRates(ctx, date, missing)
		if err != nil {
			return money.ExchangeRate{}, fmt.Errorf("failed to get exchange rates for %s: %w", key.date, err)
		}
		for _, pair := range missing {
			rate, ok := fetched[pair]
			if !ok {
				return money.ExchangeRate{}, fmt.Errorf("response is missing exchange rate for currency: %s", pair.From)
			}
			if err := c.store.SaveExchangeRate(pair.From, pair.To, date, rate); err != nil {
				return money.ExchangeRate{}, err
			}
			known[pair.From] = rate
		}
	}

	for code, rate := range known {
		c.memo[memoKey{currency: code, date: key.date}] = rate
	}

	rate, ok := known[from]
	if !ok {
		return money.ExchangeRate{}, fmt.Errorf("response is missing exchange rate for currency: %s", from)
	}
	return rate, nil
}

// RemoteFetches returns how many provider calls the cache made.
func (c *Cache) RemoteFetches() int {
	return c.fetches
}

// wanted is the sorted set of in-use currencies plus from.
func (c *Cache) wanted(from money.CurrencyCode) []money.CurrencyCode {
	set := map[money.CurrencyCode]struct{}{from: {}}
	for _, code := range c.currencies {
		if code != c.local {
			set[code] = struct{}{}
		}
	}
	codes := make([]money.CurrencyCode, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
