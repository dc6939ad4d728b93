package reconcile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/accounts"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/exchange"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/format"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/ynab"
)

// DefaultLookback is how far back the first run of a budget starts when no
// start date is given.
const DefaultLookback = 30 * 24 * time.Hour

// Client is the part of the ledger API a sync run uses.
type Client interface {
	Writer
	GetBudgetSettings(ctx context.Context) (*ynab.BudgetSettings, error)
	GetAccounts(ctx context.Context) ([]ynab.Account, error)
	GetTransactions(ctx context.Context, sinceDate *time.Time, lastKnowledge *int64) (*ynab.TransactionsResult, error)
}

// Options controls one sync run.
type Options struct {
	BudgetID string
	// StartDate only applies to the first run of a budget.
	StartDate               *time.Time
	Commit                  bool
	AutoApproveTransactions bool
	AutoApproveAdjustments  bool
	Color                   bool
	Now                     func() time.Time
}

// Report describes the outcome of a run.
type Report struct {
	// Plan is nil when the run exited before reconciling.
	Plan *Plan
	// Result is set only when a plan was committed.
	Result *Result
}

// Syncer runs reconciliation passes for a budget.
type Syncer struct {
	client   Client
	store    *db.Store
	provider exchange.Provider
	out      io.Writer
}

// NewSyncer creates a syncer printing progress to out.
func NewSyncer(client Client, store *db.Store, provider exchange.Provider, out io.Writer) *Syncer {
	return &Syncer{client: client, store: store, provider: provider, out: out}
}

type budgetRecords struct {
	store  *db.Store
	budget *db.Budget
}

// Get returns nil when the budget has not been saved yet.
func (r budgetRecords) Get(foreignTransactionID string) (*db.DifferenceRecord, error) {
	if r.budget == nil {
		return nil, nil
	}
	return r.store.GetDifferenceRecord(r.budget.ID, foreignTransactionID)
}

// Run performs one sync: fetch the changed transactions, reconcile them,
// print the changes and, when opts.Commit is set, save them.
func (s *Syncer) Run(ctx context.Context, opts Options) (*Report, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	startedAt := now()
	today := dateOf(startedAt)
	printer := format.NewPrinter(s.out, nil, opts.Color)

	budget, err := s.store.GetBudget(opts.BudgetID)
	if err != nil {
		return nil, err
	}

	var (
		startDate time.Time
		knowledge *int64
	)
	switch {
	case budget != nil:
		if opts.StartDate != nil && !dateOf(*opts.StartDate).Equal(budget.StartDate) {
			return nil, fmt.Errorf("start date %s differs from the start date %s of the first run for this budget",
				opts.StartDate.Format(db.DateLayout), budget.StartDate.Format(db.DateLayout))
		}
		startDate = budget.StartDate
		knowledge = budget.ServerKnowledge
	case opts.StartDate != nil:
		startDate = dateOf(*opts.StartDate)
	default:
		startDate = today.Add(-DefaultLookback)
	}
	if budget == nil && opts.Commit {
		budget, err = s.store.CreateBudget(opts.BudgetID, startDate)
		if err != nil {
			return nil, err
		}
		slog.Info("Registered budget", "budget_id", opts.BudgetID, "start_date", startDate.Format(db.DateLayout))
	}

	printer.Heading("Loading latest transactions...")
	fetched, err := s.client.GetTransactions(ctx, &startDate, knowledge)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	slog.Debug("Fetched transactions", "count", len(fetched.Transactions), "server_knowledge", fetched.ServerKnowledge)

	if len(fetched.Transactions) == 0 && budget != nil && budget.LastRunDate != nil && budget.LastRunDate.Equal(today) {
		printer.Line("No new/updated/deleted transactions; nothing to do!")
		return &Report{}, nil
	}

	settings, err := s.client.GetBudgetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get budget settings: %w", err)
	}
	local, err := money.ParseCurrencyCode(settings.CurrencyFormat.ISOCode)
	if err != nil {
		return nil, fmt.Errorf("invalid budget currency: %w", err)
	}
	formatter := format.NewFormatter(*settings)
	printer.SetFormatter(formatter)

	budgetAccounts, err := s.client.GetAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	registry, ledger, err := accounts.Classify(budgetAccounts, local)
	if err != nil {
		return nil, err
	}

	printer.Heading("Processing latest transactions...")
	for _, d := range registry.Discoveries() {
		printer.Discovery(d.AccountName, d.Difference, d.Key, d.Balance)
	}

	engine, err := NewEngine(EngineConfig{
		Registry:                registry,
		Ledger:                  ledger,
		Rates:                   exchange.NewCache(s.store, s.provider, local, registry.Currencies()),
		Records:                 budgetRecords{store: s.store, budget: budget},
		Formatter:               formatter,
		ImportIDs:               NewImportIDGenerator(startedAt),
		AutoApproveTransactions: opts.AutoApproveTransactions,
		AutoApproveAdjustments:  opts.AutoApproveAdjustments,
	})
	if err != nil {
		return nil, err
	}

	plan, err := engine.Process(ctx, fetched.Transactions)
	if err != nil {
		return nil, err
	}

	printer.Heading("Checking for adjustments...")
	if err := engine.Adjust(ctx, plan, today); err != nil {
		return nil, err
	}

	report := &Report{Plan: plan}
	if !plan.HasChanges() {
		printer.Line("No new/changed difference transactions; nothing to do!")
		return report, nil
	}

	for _, change := range plan.Changes() {
		printer.Change(change)
	}

	if !opts.Commit {
		printer.DryRunNotice()
		return report, nil
	}

	printer.Heading("Saving new transactions...")
	result, err := NewCoordinator(s.client, s.store).Apply(ctx, budget, plan, fetched.ServerKnowledge, today, startedAt)
	if err != nil {
		return nil, err
	}
	report.Result = result
	printer.Heading("Done!")
	return report, nil
}

// dateOf drops the time of day, keeping the calendar date of t.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
