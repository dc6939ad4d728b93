package db

import (
	"database/sql"
	"fmt"
	"time"
)

// DateLayout is the layout of every date column.
const DateLayout = "2006-01-02"

// Budget is the persisted sync cursor of one budget.
type Budget struct {
	ID              int64
	YNABBudgetID    string
	StartDate       time.Time
	ServerKnowledge *int64
	LastRunDate     *time.Time
}

// Store manages budgets, difference transaction records, exchange rates and sync runs.
type Store struct {
	conn *Connection
}

// NewStore creates a new Store instance.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

// Transaction runs fn in a database transaction, see Connection.Transaction.
func (s *Store) Transaction(fn func(*sql.Tx) error) error {
	return s.conn.Transaction(fn)
}

// GetBudget retrieves the budget state, or nil if the budget was never synced.
func (s *Store) GetBudget(ynabBudgetID string) (*Budget, error) {
	query := `
		SELECT id, ynab_budget_id, start_date, server_knowledge, last_run_date
		FROM budgets
		WHERE ynab_budget_id = ?
	`

	var (
		budget    Budget
		startDate string
		knowledge sql.NullInt64
		lastRun   sql.NullString
	)
	err := s.conn.QueryRow(query, ynabBudgetID).Scan(
		&budget.ID,
		&budget.YNABBudgetID,
		&startDate,
		&knowledge,
		&lastRun,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}

	if budget.StartDate, err = time.Parse(DateLayout, startDate); err != nil {
		return nil, fmt.Errorf("invalid start date %q in database: %w", startDate, err)
	}
	if knowledge.Valid {
		budget.ServerKnowledge = &knowledge.Int64
	}
	if lastRun.Valid {
		date, err := time.Parse(DateLayout, lastRun.String)
		if err != nil {
			return nil, fmt.Errorf("invalid last run date %q in database: %w", lastRun.String, err)
		}
		budget.LastRunDate = &date
	}
	return &budget, nil
}

// CreateBudget inserts the budget state for a first run.
func (s *Store) CreateBudget(ynabBudgetID string, startDate time.Time) (*Budget, error) {
	query := `INSERT INTO budgets (ynab_budget_id, start_date) VALUES (?, ?)`

	result, err := s.conn.Exec(query, ynabBudgetID, startDate.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to create budget: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get budget id: %w", err)
	}

	return &Budget{
		ID:           id,
		YNABBudgetID: ynabBudgetID,
		StartDate:    startDate,
	}, nil
}

// UpdateCursor advances the sync cursor of a budget.
func (s *Store) UpdateCursor(q Querier, budgetID int64, serverKnowledge int64, lastRunDate time.Time) error {
	query := `UPDATE budgets SET server_knowledge = ?, last_run_date = ? WHERE id = ?`

	result, err := q.Exec(query, serverKnowledge, lastRunDate.Format(DateLayout), budgetID)
	if err != nil {
		return fmt.Errorf("failed to update sync cursor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows != 1 {
		return fmt.Errorf("failed to update sync cursor: budget %d not found", budgetID)
	}
	return nil
}

// Stats represents sync statistics of one budget.
type Stats struct {
	DifferenceTransactions int
	ExchangeRates          int
	SyncRuns               int
	LastRunDate            sql.NullString
	ServerKnowledge        sql.NullInt64
}

// GetStats retrieves sync statistics for a budget.
func (s *Store) GetStats(budgetID int64) (*Stats, error) {
	var stats Stats

	err := s.conn.QueryRow(`SELECT COUNT(*) FROM difference_transactions WHERE budget_id = ?`, budgetID).Scan(&stats.DifferenceTransactions)
	if err != nil {
		return nil, fmt.Errorf("failed to get difference transaction count: %w", err)
	}

	err = s.conn.QueryRow(`SELECT COUNT(*) FROM exchange_rates`).Scan(&stats.ExchangeRates)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange rate count: %w", err)
	}

	err = s.conn.QueryRow(`SELECT COUNT(*) FROM sync_runs WHERE budget_id = ?`, budgetID).Scan(&stats.SyncRuns)
	if err != nil {
		return nil, fmt.Errorf("failed to get sync run count: %w", err)
	}

	err = s.conn.QueryRow(`SELECT last_run_date, server_knowledge FROM budgets WHERE id = ?`, budgetID).Scan(&stats.LastRunDate, &stats.ServerKnowledge)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get sync cursor: %w", err)
	}

	return &stats, nil
}

// GetMetadata retrieves a metadata value.
func (s *Store) GetMetadata(key string) (string, error) {
	query := `SELECT value FROM sync_metadata WHERE key = ?`

	var value string
	err := s.conn.QueryRow(query, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (s *Store) SetMetadata(key, value string) error {
	query := `
		INSERT INTO sync_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := s.conn.Exec(query, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}

	return nil
}
