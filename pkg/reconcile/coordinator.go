package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/ynab"
)

// Writer sends difference transactions to the ledger.
type Writer interface {
	CreateTransactions(ctx context.Context, transactions []ynab.SaveTransaction) ([]ynab.Transaction, error)
	UpdateTransactions(ctx context.Context, transactions []ynab.UpdateTransaction) ([]ynab.Transaction, error)
}

// Result counts what an applied plan changed.
type Result struct {
	RunID       string
	Creates     int
	Updates     int
	Deletes     int
	Adjustments int
}

// Coordinator applies a plan: creates first, then updates, then one local
// commit of the records and the sync cursor.
type Coordinator struct {
	writer Writer
	store  *db.Store
}

// NewCoordinator creates a coordinator.
func NewCoordinator(writer Writer, store *db.Store) *Coordinator {
	return &Coordinator{writer: writer, store: store}
}

// Apply sends the plan and commits it. The cursor only moves once every
// remote mutation has been confirmed; on any error nothing is committed and
// the next run reprocesses the same batch.
func (c *Coordinator) Apply(ctx context.Context, budget *db.Budget, plan *Plan, knowledge int64, today, startedAt time.Time) (*Result, error) {
	if !plan.HasChanges() {
		return &Result{}, nil
	}

	var records []db.DifferenceRecord

	if len(plan.Creates) > 0 {
		byImportID := make(map[string]CreateIntent, len(plan.Creates))
		save := make([]ynab.SaveTransaction, 0, len(plan.Creates))
		for _, intent := range plan.Creates {
			byImportID[intent.ImportID] = intent
			save = append(save, intent.Transaction)
		}

		created, err := c.writer.CreateTransactions(ctx, save)
		if err != nil {
			return nil, fmt.Errorf("failed to create difference transactions: %w", err)
		}
		if len(created) != len(save) {
			slog.Warn("Not every difference transaction was created", "requested", len(save), "created", len(created))
		}

		for _, t := range created {
			if t.ImportID == nil {
				return nil, fmt.Errorf("created transaction %s has no import id", t.ID)
			}
			intent, ok := byImportID[*t.ImportID]
			if !ok {
				return nil, fmt.Errorf("created transaction %s has unknown import id %s", t.ID, *t.ImportID)
			}
			if intent.Adjustment() {
				continue
			}
			records = append(records, db.DifferenceRecord{
				BudgetID:                budget.ID,
				ForeignTransactionID:    intent.SourceID,
				DifferenceTransactionID: t.ID,
				Amount:                  money.MilliunitsFromInt64(t.Amount),
				Key:                     intent.Key,
				TransferKey:             intent.TransferKey,
			})
		}
	}

	var updates []db.DifferenceRecord
	if len(plan.Updates) > 0 {
		byID := make(map[string]UpdateIntent, len(plan.Updates))
		save := make([]ynab.UpdateTransaction, 0, len(plan.Updates))
		for _, intent := range plan.Updates {
			byID[intent.DifferenceID] = intent
			save = append(save, intent.Transaction)
		}

		updated, err := c.writer.UpdateTransactions(ctx, save)
		if err != nil {
			return nil, fmt.Errorf("failed to update difference transactions: %w", err)
		}

		for _, t := range updated {
			intent, ok := byID[t.ID]
			if !ok {
				return nil, fmt.Errorf("updated transaction %s was not requested", t.ID)
			}
			if intent.Dropped {
				continue
			}
			updates = append(updates, db.DifferenceRecord{
				BudgetID:                budget.ID,
				ForeignTransactionID:    intent.SourceID,
				DifferenceTransactionID: t.ID,
				Amount:                  money.MilliunitsFromInt64(t.Amount),
				Key:                     intent.Key,
				TransferKey:             intent.TransferKey,
			})
		}
	}

	result := &Result{
		RunID:       uuid.New().String(),
		Creates:     len(plan.Creates),
		Updates:     len(plan.Updates),
		Adjustments: plan.Adjustments(),
	}

	err := c.store.Transaction(func(tx *sql.Tx) error {
		deleted, err := c.store.DeleteDifferenceRecords(tx, budget.ID, plan.DeletedIDs())
		if err != nil {
			return err
		}
		result.Deletes = int(deleted)

		for _, record := range records {
			if err := c.store.InsertDifferenceRecord(tx, record); err != nil {
				return err
			}
		}
		for _, record := range updates {
			if err := c.store.UpdateDifferenceRecord(tx, record); err != nil {
				return err
			}
		}

		if err := c.store.InsertSyncRun(tx, db.SyncRun{
			RunID:       result.RunID,
			BudgetID:    budget.ID,
			StartedAt:   startedAt,
			FinishedAt:  time.Now(),
			Creates:     result.Creates,
			Updates:     result.Updates,
			Deletes:     result.Deletes,
			Adjustments: result.Adjustments,
		}); err != nil {
			return err
		}
		return c.store.UpdateCursor(tx, budget.ID, knowledge, today)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save sync state: %w", err)
	}

	slog.Debug("Committed sync run", "run_id", result.RunID, "creates", result.Creates, "updates", result.Updates, "deletes", result.Deletes)
	return result, nil
}
