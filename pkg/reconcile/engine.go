// Package reconcile turns foreign currency transactions into difference
// transactions and keeps them, and the difference account balances, in sync.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/accounts"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/balance"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/format"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/ynab"
)

// Memo tags written to difference transactions.
const (
	DeletedTag      = "<DELETED>"
	MovedToLocalTag = "<MOVED TO LOCAL CURRENCY ACCOUNT>"
)

// RateSource resolves the rate of one unit of a foreign currency in the local currency.
type RateSource interface {
	GetRate(ctx context.Context, from money.CurrencyCode, date time.Time) (money.ExchangeRate, error)
}

// Records looks up the difference record of a foreign transaction.
// A nil record means the transaction has no difference transaction yet.
type Records interface {
	Get(foreignTransactionID string) (*db.DifferenceRecord, error)
}

// EngineConfig holds everything one reconciliation pass needs.
type EngineConfig struct {
	Registry                *accounts.Registry
	Ledger                  *balance.Ledger
	Rates                   RateSource
	Records                 Records
	Formatter               *format.Formatter
	ImportIDs               *ImportIDGenerator
	AutoApproveTransactions bool
	AutoApproveAdjustments  bool
}

// Engine computes the plan of one reconciliation pass. It mutates the
// balance ledger as it goes and is not safe for concurrent use.
type Engine struct {
	EngineConfig
	digits int32
}

// NewEngine creates an engine. The budget must use at most three decimal digits.
func NewEngine(config EngineConfig) (*Engine, error) {
	digits := config.Formatter.DecimalDigits()
	if digits < 0 || digits > 3 {
		return nil, fmt.Errorf("unsupported number of currency decimal digits: %d", digits)
	}
	return &Engine{EngineConfig: config, digits: digits}, nil
}

// decision is what happens to one foreign (sub)transaction.
type decision interface {
	isDecision()
}

type softDelete struct{}

type convert struct {
	key money.DifferenceKey
}

type movedToLocal struct{}

func (softDelete) isDecision()   {}
func (convert) isDecision()      {}
func (movedToLocal) isDecision() {}

// item is a transaction or subtransaction flattened for processing.
type item struct {
	id                string
	key               *money.DifferenceKey
	date              time.Time
	amount            money.Milliunits
	memo              *string
	split             string
	cleared           string
	approved          bool
	flagColor         *string
	payeeID           *string
	payeeName         *string
	categoryID        *string
	categoryName      *string
	transferAccountID *string
	matched           bool
	imported          bool
	deleted           bool
}

// Process computes difference creates and updates for a batch of changed
// transactions. Transactions in difference accounts are skipped.
func (e *Engine) Process(ctx context.Context, transactions []ynab.Transaction) (*Plan, error) {
	plan := newPlan()

	for _, t := range transactions {
		if !t.Deleted {
			continue
		}
		plan.deleted[t.ID] = struct{}{}
		for _, sub := range t.Subtransactions {
			plan.deleted[sub.ID] = struct{}{}
		}
	}
	for _, t := range transactions {
		for _, sub := range t.Subtransactions {
			if sub.Deleted {
				plan.deleted[sub.ID] = struct{}{}
			}
		}
	}

	for _, t := range transactions {
		data, ok := e.Registry.Account(t.AccountID)
		if !ok {
			return nil, fmt.Errorf("could not find account %s for transaction %s", t.AccountID, t.ID)
		}

		var key *money.DifferenceKey
		switch d := data.(type) {
		case accounts.Difference:
			continue
		case accounts.Foreign:
			k := d.Key
			key = &k
		case accounts.Local:
		default:
			panic(fmt.Sprintf("reconcile: unknown account data %T", data))
		}

		date, err := time.Parse(db.DateLayout, t.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q of transaction %s: %w", t.Date, t.ID, err)
		}

		parent := item{
			id:                t.ID,
			key:               key,
			date:              date,
			amount:            money.MilliunitsFromInt64(t.Amount),
			memo:              t.Memo,
			cleared:           t.Cleared,
			approved:          t.Approved,
			flagColor:         t.FlagColor,
			payeeID:           t.PayeeID,
			payeeName:         t.PayeeName,
			categoryID:        t.CategoryID,
			categoryName:      t.CategoryName,
			transferAccountID: t.TransferAccountID,
			matched:           t.MatchedTransactionID != nil,
			imported:          t.ImportID != nil,
			deleted:           t.Deleted,
		}

		n := len(t.Subtransactions)
		for i, sub := range t.Subtransactions {
			s := parent
			s.id = sub.ID
			s.amount = money.MilliunitsFromInt64(sub.Amount)
			s.memo = sub.Memo
			s.split = fmt.Sprintf(" (split %d/%d)", i+1, n)
			if sub.PayeeID != nil {
				s.payeeID = sub.PayeeID
				s.payeeName = sub.PayeeName
			}
			s.categoryID = sub.CategoryID
			s.categoryName = sub.CategoryName
			s.transferAccountID = sub.TransferAccountID
			s.deleted = sub.Deleted || t.Deleted
			if err := e.process(ctx, plan, s); err != nil {
				return nil, err
			}
		}

		// A split parent keeps no difference of its own; its splits carry it.
		parent.deleted = t.Deleted || n > 0
		if err := e.process(ctx, plan, parent); err != nil {
			return nil, err
		}
	}

	return plan, nil
}

func (e *Engine) decide(it item) decision {
	memo := ""
	if it.memo != nil {
		memo = *it.memo
	}

	transfer := it.transferAccountID != nil
	convertTransfer := false
	if transfer {
		if data, ok := e.Registry.Account(*it.transferAccountID); ok {
			if local, isLocal := data.(accounts.Local); isLocal {
				convertTransfer = local.ForceConvert
			}
		}
	}

	switch {
	case it.deleted,
		accounts.HasNoConvertTag(memo),
		transfer && !convertTransfer && !accounts.HasForceConvertTag(memo),
		it.matched && it.imported && !it.approved:
		return softDelete{}
	case it.key != nil:
		return convert{key: *it.key}
	default:
		return movedToLocal{}
	}
}

func (e *Engine) process(ctx context.Context, plan *Plan, it item) error {
	suffix := ""
	if it.memo != nil && *it.memo != "" {
		suffix = " " + *it.memo
	}

	var (
		amount money.Milliunits
		memo   string
	)
	switch d := e.decide(it).(type) {
	case softDelete:
		amount = money.Zero
		memo = DeletedTag + it.split + suffix
	case convert:
		rate, err := e.Rates.GetRate(ctx, d.key.Currency, it.date)
		if err != nil {
			return err
		}
		amount = it.amount.Convert(rate).Sub(it.amount).RoundBank(e.digits)
		memo = "<" + e.Formatter.Exchange(d.key.Currency, it.amount, rate) + ">" + it.split + suffix
	case movedToLocal:
		amount = money.Zero
		memo = MovedToLocalTag + it.split + suffix
	default:
		panic(fmt.Sprintf("reconcile: unknown decision %T", d))
	}

	record, err := e.Records.Get(it.id)
	if err != nil {
		return err
	}
	if record != nil && plan.isDeleted(record.DifferenceTransactionID) {
		// The user deleted the difference transaction itself.
		record = nil
	}

	var key *money.DifferenceKey
	switch {
	case it.key != nil:
		key = it.key
	case record != nil:
		k := record.Key
		key = &k
	}

	if key == nil {
		if !amount.IsZero() {
			panic(fmt.Sprintf("reconcile: non-zero difference %s without a foreign account for %s", amount, it.id))
		}
		return nil
	}

	accountID, ok := e.Registry.DifferenceAccountID(*key)
	if !ok {
		return fmt.Errorf("no difference %s for transaction %s", key, it.id)
	}
	transferKey := e.transferKey(it)

	if record != nil {
		if err := e.checkBuckets(record.Key, record.TransferKey); err != nil {
			return fmt.Errorf("transaction %s: %w", it.id, err)
		}
		e.Ledger.Apply(record.Key, record.TransferKey, record.Amount.Neg())
	}
	if err := e.checkBuckets(*key, transferKey); err != nil {
		return fmt.Errorf("transaction %s: %w", it.id, err)
	}

	memoPtr := &memo
	change := format.Change{
		Key:          *key,
		Date:         it.date,
		PayeeName:    it.payeeName,
		CategoryName: it.categoryName,
		Memo:         memo,
		Amount:       amount,
	}

	switch {
	case record != nil:
		change.Kind = format.UpdateDifference
		plan.Updates = append(plan.Updates, UpdateIntent{
			DifferenceID: record.DifferenceTransactionID,
			SourceID:     it.id,
			Key:          *key,
			TransferKey:  transferKey,
			Dropped:      plan.isDeleted(it.id),
			Transaction: ynab.UpdateTransaction{
				ID:         record.DifferenceTransactionID,
				AccountID:  accountID,
				Date:       it.date.Format(db.DateLayout),
				Amount:     amount.Int64(),
				PayeeID:    it.payeeID,
				CategoryID: it.categoryID,
				Memo:       memoPtr,
				Cleared:    it.cleared,
				FlagColor:  it.flagColor,
			},
			Change: change,
		})
	case !amount.IsZero():
		change.Kind = format.CreateDifference
		importID := e.ImportIDs.Next()
		approved := e.AutoApproveTransactions
		plan.Creates = append(plan.Creates, CreateIntent{
			ImportID:    importID,
			SourceID:    it.id,
			Key:         *key,
			TransferKey: transferKey,
			Transaction: ynab.SaveTransaction{
				AccountID:  accountID,
				Date:       it.date.Format(db.DateLayout),
				Amount:     amount.Int64(),
				PayeeID:    it.payeeID,
				CategoryID: it.categoryID,
				Memo:       memoPtr,
				Cleared:    it.cleared,
				Approved:   &approved,
				FlagColor:  it.flagColor,
				ImportID:   &importID,
			},
			Change: change,
		})
	}

	e.Ledger.Apply(*key, transferKey, amount)
	return nil
}

// transferKey is the bucket of the transfer counterpart, if it is a foreign account.
func (e *Engine) transferKey(it item) *money.DifferenceKey {
	if it.transferAccountID == nil {
		return nil
	}
	data, ok := e.Registry.Account(*it.transferAccountID)
	if !ok {
		return nil
	}
	if f, isForeign := data.(accounts.Foreign); isForeign {
		k := f.Key
		return &k
	}
	return nil
}

func (e *Engine) checkBuckets(key money.DifferenceKey, transferKey *money.DifferenceKey) error {
	if _, ok := e.Ledger.Get(key); !ok {
		return fmt.Errorf("no balance for %s", key)
	}
	if transferKey != nil {
		if _, ok := e.Ledger.Get(*transferKey); !ok {
			return fmt.Errorf("no balance for transfer %s", *transferKey)
		}
	}
	return nil
}
