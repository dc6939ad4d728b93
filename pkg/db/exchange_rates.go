package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
)

// GetExchangeRate retrieves the rate of one pair on a date, or nil if it was never stored.
func (s *Store) GetExchangeRate(from, to money.CurrencyCode, date time.Time) (*money.ExchangeRate, error) {
	query := `
		SELECT rate_scaled FROM exchange_rates
		WHERE date = ? AND from_currency_code = ? AND to_currency_code = ?
	`

	var scaled int64
	err := s.conn.QueryRow(query, date.Format(DateLayout), from.String(), to.String()).Scan(&scaled)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange rate: %w", err)
	}

	rate := money.ExchangeRateFromInt64(scaled)
	return &rate, nil
}

// GetExchangeRatesForDate retrieves the stored rates into to for every currency in
// from on a date. Currencies without a stored rate are absent from the result.
func (s *Store) GetExchangeRatesForDate(from []money.CurrencyCode, to money.CurrencyCode, date time.Time) (map[money.CurrencyCode]money.ExchangeRate, error) {
	rates := make(map[money.CurrencyCode]money.ExchangeRate)
	if len(from) == 0 {
		return rates, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(from)), ",")
	query := fmt.Sprintf(`
		SELECT from_currency_code, rate_scaled FROM exchange_rates
		WHERE date = ? AND to_currency_code = ? AND from_currency_code IN (%s)
	`, placeholders)

	args := make([]interface{}, 0, len(from)+2)
	args = append(args, date.Format(DateLayout), to.String())
	for _, code := range from {
		args = append(args, code.String())
	}

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange rates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			code   string
			scaled int64
		)
		if err := rows.Scan(&code, &scaled); err != nil {
			return nil, fmt.Errorf("failed to scan exchange rate: %w", err)
		}
		currency, err := money.ParseCurrencyCode(code)
		if err != nil {
			return nil, err
		}
		rates[currency] = money.ExchangeRateFromInt64(scaled)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get exchange rates: %w", err)
	}
	return rates, nil
}

// SaveExchangeRate stores a rate. Storing the same pair and date again replaces the rate.
func (s *Store) SaveExchangeRate(from, to money.CurrencyCode, date time.Time, rate money.ExchangeRate) error {
	query := `
		INSERT INTO exchange_rates (date, from_currency_code, to_currency_code, rate_scaled)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date, from_currency_code, to_currency_code) DO UPDATE SET
			rate_scaled = excluded.rate_scaled,
			fetched_at = CURRENT_TIMESTAMP
	`

	_, err := s.conn.Exec(query, date.Format(DateLayout), from.String(), to.String(), rate.Int64())
	if err != nil {
		return fmt.Errorf("failed to save exchange rate: %w", err)
	}
	return nil
}
