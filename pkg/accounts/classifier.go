// Package accounts classifies budget accounts into local, foreign and difference accounts.
package accounts

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/balance"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/ynab"
)

// Data is the role of one account. It is one of Local, Foreign or Difference.
type Data interface {
	isAccountData()
}

// Local is an account held in the local currency.
type Local struct {
	// ForceConvert marks local accounts whose transfers to foreign accounts are converted.
	ForceConvert bool
}

// Foreign is an account held in a foreign currency.
type Foreign struct {
	Key money.DifferenceKey
}

// Difference is the account collecting the exchange differences of Key.
type Difference struct {
	Key money.DifferenceKey
}

func (Local) isAccountData()      {}
func (Foreign) isAccountData()    {}
func (Difference) isAccountData() {}

// ValidationError is a tagging problem of one account.
type ValidationError struct {
	Account string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Account == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Account)
}

// Discovery describes a foreign or difference account found during classification.
type Discovery struct {
	AccountName string
	Difference  bool
	Key         money.DifferenceKey
	Balance     money.Milliunits
}

// Registry holds the classification of every open account.
type Registry struct {
	currencies         map[money.CurrencyCode]struct{}
	accounts           map[string]Data
	differenceAccounts map[money.DifferenceKey]string
	discoveries        []Discovery
}

// ClassOf derives the account class from the account type.
func ClassOf(account ynab.Account) money.AccountClass {
	switch {
	case !account.OnBudget,
		account.Type == ynab.AccountTypeOtherAsset,
		account.Type == ynab.AccountTypeOtherLiability:
		return money.Tracking
	case account.Type == ynab.AccountTypeCreditCard,
		account.Type == ynab.AccountTypeLineOfCredit:
		return money.Credit
	default:
		return money.Debit
	}
}

// Classify builds the registry and seeds the balance ledger from the account
// balances. Every tagging problem is reported, combined into one error.
func Classify(accounts []ynab.Account, local money.CurrencyCode) (*Registry, *balance.Ledger, error) {
	r := &Registry{
		currencies:         make(map[money.CurrencyCode]struct{}),
		accounts:           make(map[string]Data),
		differenceAccounts: make(map[money.DifferenceKey]string),
	}
	ledger := balance.NewLedger()

	var errs error
	for _, account := range accounts {
		if account.Deleted || account.Closed {
			continue
		}
		data, err := classifyAccount(account, local)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if _, dup := r.accounts[account.ID]; dup {
			errs = multierr.Append(errs, &ValidationError{Account: account.Name, Message: "budget should not have same account twice"})
			continue
		}

		amount := money.MilliunitsFromInt64(account.Balance)
		switch d := data.(type) {
		case Foreign:
			r.currencies[d.Key.Currency] = struct{}{}
			ledger.AddForeign(d.Key, amount)
			r.discoveries = append(r.discoveries, Discovery{AccountName: account.Name, Key: d.Key, Balance: amount})
		case Difference:
			if _, dup := r.differenceAccounts[d.Key]; dup {
				errs = multierr.Append(errs, &ValidationError{
					Account: account.Name,
					Message: fmt.Sprintf("budget may not have more than one difference %s", d.Key),
				})
				continue
			}
			r.differenceAccounts[d.Key] = account.ID
			ledger.AddDifference(d.Key, amount)
			r.discoveries = append(r.discoveries, Discovery{AccountName: account.Name, Difference: true, Key: d.Key, Balance: amount})
		}
		r.accounts[account.ID] = data
	}

	if errs != nil {
		return nil, nil, errs
	}

	if len(r.currencies) == 0 {
		return nil, nil, &ValidationError{Message: "no foreign currency accounts were found in the budget"}
	}
	for _, data := range r.accounts {
		if f, ok := data.(Foreign); ok {
			if _, found := r.differenceAccounts[f.Key]; !found {
				errs = multierr.Append(errs, &ValidationError{Message: fmt.Sprintf("no difference %s was found", f.Key)})
			}
		}
	}
	if errs != nil {
		return nil, nil, errs
	}

	return r, ledger, nil
}

func classifyAccount(account ynab.Account, local money.CurrencyCode) (Data, error) {
	foreign, err := tagCurrency(currencyTag, account.Name, account.Note)
	if err != nil {
		return nil, &ValidationError{Account: account.Name, Message: fmt.Sprintf("could not determine foreign currency (%v)", err)}
	}
	difference, err := tagCurrency(differenceTag, account.Name, account.Note)
	if err != nil {
		return nil, &ValidationError{Account: account.Name, Message: fmt.Sprintf("could not determine difference account currency (%v)", err)}
	}

	class := ClassOf(account)
	switch {
	case foreign != "" && difference != "":
		return nil, &ValidationError{Account: account.Name, Message: "one account may not be both foreign currency and difference account"}
	case foreign != "" && foreign != local:
		return Foreign{Key: money.DifferenceKey{Currency: foreign, Class: class}}, nil
	case difference != "":
		if difference == local {
			return nil, &ValidationError{Account: account.Name, Message: "budget may not have a difference account for the local currency"}
		}
		return Difference{Key: money.DifferenceKey{Currency: difference, Class: class}}, nil
	default:
		// Includes accounts tagged with the local currency.
		return Local{ForceConvert: matchesNameOrNote(forceConvertTag, account.Name, account.Note)}, nil
	}
}

// Account returns the classification of an open account.
func (r *Registry) Account(id string) (Data, bool) {
	d, ok := r.accounts[id]
	return d, ok
}

// DifferenceAccountID returns the difference account of key.
func (r *Registry) DifferenceAccountID(key money.DifferenceKey) (string, bool) {
	id, ok := r.differenceAccounts[key]
	return id, ok
}

// DifferenceKeys returns the keys that have a difference account, sorted.
func (r *Registry) DifferenceKeys() []money.DifferenceKey {
	keys := make([]money.DifferenceKey, 0, len(r.differenceAccounts))
	for k := range r.differenceAccounts {
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

// Currencies returns every foreign currency in use, sorted.
func (r *Registry) Currencies() []money.CurrencyCode {
	codes := make([]money.CurrencyCode, 0, len(r.currencies))
	for c := range r.currencies {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Discoveries returns the foreign and difference accounts in budget order.
func (r *Registry) Discoveries() []Discovery {
	return r.discoveries
}
