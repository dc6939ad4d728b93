package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
)

// DifferenceRecord links a foreign transaction to its difference transaction.
type DifferenceRecord struct {
	BudgetID                int64
	ForeignTransactionID    string
	DifferenceTransactionID string
	Amount                  money.Milliunits
	Key                     money.DifferenceKey
	TransferKey             *money.DifferenceKey
}

const differenceColumns = `budget_id, foreign_transaction_id, difference_transaction_id, amount_milliunits,
	currency_code, account_class, transfer_currency_code, transfer_account_class`

// GetDifferenceRecord retrieves the record for a foreign transaction, or nil if there is none.
func (s *Store) GetDifferenceRecord(budgetID int64, foreignTransactionID string) (*DifferenceRecord, error) {
	query := `SELECT ` + differenceColumns + `
		FROM difference_transactions
		WHERE budget_id = ? AND foreign_transaction_id = ?
	`

	record, err := scanDifferenceRecord(s.conn.QueryRow(query, budgetID, foreignTransactionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get difference transaction: %w", err)
	}
	return record, nil
}

// ListDifferenceRecords retrieves all records of a budget ordered by foreign transaction id.
func (s *Store) ListDifferenceRecords(budgetID int64) ([]DifferenceRecord, error) {
	query := `SELECT ` + differenceColumns + `
		FROM difference_transactions
		WHERE budget_id = ?
		ORDER BY foreign_transaction_id
	`

	rows, err := s.conn.Query(query, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list difference transactions: %w", err)
	}
	defer rows.Close()

	var records []DifferenceRecord
	for rows.Next() {
		record, err := scanDifferenceRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan difference transaction: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list difference transactions: %w", err)
	}
	return records, nil
}

// InsertDifferenceRecord stores a record for a newly created difference transaction.
func (s *Store) InsertDifferenceRecord(q Querier, record DifferenceRecord) error {
	query := `INSERT INTO difference_transactions (` + differenceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	transferCurrency, transferClass := transferColumns(record.TransferKey)
	_, err := q.Exec(query,
		record.BudgetID,
		record.ForeignTransactionID,
		record.DifferenceTransactionID,
		record.Amount.Int64(),
		record.Key.Currency.String(),
		record.Key.Class.Code(),
		transferCurrency,
		transferClass,
	)
	if err != nil {
		return fmt.Errorf("failed to insert difference transaction for %s: %w", record.ForeignTransactionID, err)
	}
	return nil
}

// UpdateDifferenceRecord updates the record of an existing difference transaction,
// matched by its difference transaction id.
func (s *Store) UpdateDifferenceRecord(q Querier, record DifferenceRecord) error {
	query := `
		UPDATE difference_transactions SET
			amount_milliunits = ?,
			currency_code = ?,
			account_class = ?,
			transfer_currency_code = ?,
			transfer_account_class = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE budget_id = ? AND difference_transaction_id = ?
	`

	transferCurrency, transferClass := transferColumns(record.TransferKey)
	result, err := q.Exec(query,
		record.Amount.Int64(),
		record.Key.Currency.String(),
		record.Key.Class.Code(),
		transferCurrency,
		transferClass,
		record.BudgetID,
		record.DifferenceTransactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update difference transaction %s: %w", record.DifferenceTransactionID, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows != 1 {
		return fmt.Errorf("failed to update difference transaction %s: not found", record.DifferenceTransactionID)
	}
	return nil
}

// DeleteDifferenceRecords removes the records whose foreign or difference
// transaction id is in ids. It returns the number of deleted rows.
func (s *Store) DeleteDifferenceRecords(q Querier, budgetID int64, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := fmt.Sprintf(`DELETE FROM difference_transactions
		WHERE budget_id = ?
		AND (foreign_transaction_id IN (%s) OR difference_transaction_id IN (%s))`, placeholders, placeholders)

	args := make([]interface{}, 0, 2*len(ids)+1)
	args = append(args, budgetID)
	for i := 0; i < 2; i++ {
		for _, id := range ids {
			args = append(args, id)
		}
	}

	result, err := q.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete difference transactions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDifferenceRecord(row rowScanner) (*DifferenceRecord, error) {
	var (
		record           DifferenceRecord
		amount           int64
		currency         string
		class            string
		transferCurrency sql.NullString
		transferClass    sql.NullString
	)
	if err := row.Scan(
		&record.BudgetID,
		&record.ForeignTransactionID,
		&record.DifferenceTransactionID,
		&amount,
		&currency,
		&class,
		&transferCurrency,
		&transferClass,
	); err != nil {
		return nil, err
	}

	record.Amount = money.MilliunitsFromInt64(amount)
	key, err := parseKey(currency, class)
	if err != nil {
		return nil, err
	}
	record.Key = key

	if transferCurrency.Valid && transferClass.Valid {
		transferKey, err := parseKey(transferCurrency.String, transferClass.String)
		if err != nil {
			return nil, err
		}
		record.TransferKey = &transferKey
	}
	return &record, nil
}

func parseKey(currency, class string) (money.DifferenceKey, error) {
	code, err := money.ParseCurrencyCode(currency)
	if err != nil {
		return money.DifferenceKey{}, err
	}
	accountClass, err := money.ParseAccountClass(class)
	if err != nil {
		return money.DifferenceKey{}, err
	}
	return money.DifferenceKey{Currency: code, Class: accountClass}, nil
}

func transferColumns(key *money.DifferenceKey) (sql.NullString, sql.NullString) {
	if key == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: key.Currency.String(), Valid: true},
		sql.NullString{String: key.Class.Code(), Valid: true}
}
