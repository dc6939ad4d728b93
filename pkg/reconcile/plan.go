package reconcile

import (
	"sort"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/format"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/ynab"
)

// CreateIntent is a difference or adjustment transaction to create.
type CreateIntent struct {
	ImportID string
	// SourceID is the foreign transaction the difference belongs to; empty for adjustments.
	SourceID    string
	Key         money.DifferenceKey
	TransferKey *money.DifferenceKey
	Transaction ynab.SaveTransaction
	Change      format.Change
}

// Adjustment reports whether the intent is an exchange rate adjustment.
func (c CreateIntent) Adjustment() bool {
	return c.SourceID == ""
}

// UpdateIntent rewrites an existing difference transaction.
type UpdateIntent struct {
	DifferenceID string
	SourceID     string
	Key          money.DifferenceKey
	TransferKey  *money.DifferenceKey
	// Dropped is set when the source transaction was deleted; its record
	// is removed instead of updated once the update is sent.
	Dropped     bool
	Transaction ynab.UpdateTransaction
	Change      format.Change
}

// Plan is everything one reconciliation pass wants to change.
type Plan struct {
	Creates []CreateIntent
	Updates []UpdateIntent
	deleted map[string]struct{}
}

func newPlan() *Plan {
	return &Plan{deleted: make(map[string]struct{})}
}

// HasChanges reports whether anything needs to be sent to the ledger.
func (p *Plan) HasChanges() bool {
	return len(p.Creates) > 0 || len(p.Updates) > 0
}

// Adjustments returns the number of adjustment creates.
func (p *Plan) Adjustments() int {
	n := 0
	for _, c := range p.Creates {
		if c.Adjustment() {
			n++
		}
	}
	return n
}

// DeletedIDs returns the sorted ids of transactions deleted in this batch.
// Records referring to them, as source or as difference transaction, are stale.
func (p *Plan) DeletedIDs() []string {
	ids := make([]string, 0, len(p.deleted))
	for id := range p.deleted {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Plan) isDeleted(id string) bool {
	_, ok := p.deleted[id]
	return ok
}

// Changes returns the printable form of every intent: updates, then creates.
func (p *Plan) Changes() []format.Change {
	changes := make([]format.Change, 0, len(p.Updates)+len(p.Creates))
	for _, u := range p.Updates {
		changes = append(changes, u.Change)
	}
	for _, c := range p.Creates {
		changes = append(changes, c.Change)
	}
	return changes
}
