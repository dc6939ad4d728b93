package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/format"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/ynab"
)

// AdjustmentPayee returns the payee name of adjustments for key,
// e.g. "Exchange Rate Adjustment <EUR CREDIT>".
func AdjustmentPayee(key money.DifferenceKey) string {
	switch key.Class {
	case money.Debit:
		return fmt.Sprintf("Exchange Rate Adjustment <%s>", key.Currency)
	case money.Credit:
		return fmt.Sprintf("Exchange Rate Adjustment <%s CREDIT>", key.Currency)
	case money.Tracking:
		return fmt.Sprintf("Exchange Rate Adjustment <%s TRACKING>", key.Currency)
	}
	panic(fmt.Sprintf("reconcile: unknown account class %d", int(key.Class)))
}

// Adjust revalues every bucket that has a difference account at today's rate
// and adds an adjustment for each one that is off by at least the smallest
// currency unit. It must run after Process on the same plan.
func (e *Engine) Adjust(ctx context.Context, plan *Plan, today time.Time) error {
	threshold := money.SmallestUnit(e.digits)

	for _, key := range e.Registry.DifferenceKeys() {
		b, ok := e.Ledger.Get(key)
		if !ok {
			return fmt.Errorf("no balance for %s", key)
		}

		rate, err := e.Rates.GetRate(ctx, key.Currency, today)
		if err != nil {
			return err
		}
		expected := b.ForeignTotal.Convert(rate).Sub(b.ForeignTotal).RoundBank(e.digits)
		adjustment := expected.Sub(b.DifferenceBalance)
		if adjustment.Abs().Cmp(threshold) < 0 {
			continue
		}

		accountID, _ := e.Registry.DifferenceAccountID(key)
		payee := AdjustmentPayee(key)
		memo := "Exchange rate adjustment: " + e.Formatter.Exchange(key.Currency, b.ForeignTotal, rate)
		importID := e.ImportIDs.Next()
		approved := e.AutoApproveAdjustments

		plan.Creates = append(plan.Creates, CreateIntent{
			ImportID: importID,
			Key:      key,
			Transaction: ynab.SaveTransaction{
				AccountID: accountID,
				Date:      today.Format(db.DateLayout),
				Amount:    adjustment.Int64(),
				PayeeName: &payee,
				Memo:      &memo,
				Approved:  &approved,
				ImportID:  &importID,
			},
			Change: format.Change{
				Kind:      format.CreateAdjustment,
				Key:       key,
				Date:      today,
				PayeeName: &payee,
				Memo:      memo,
				Amount:    adjustment,
			},
		})
		e.Ledger.Apply(key, nil, adjustment)
	}
	return nil
}
