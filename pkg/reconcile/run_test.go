package reconcile

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/currconv"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/db"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
	"github.com/shunichi-ikebuchi/ledger-fx/pkg/ynab"
)

type storedTransaction struct {
	transaction ynab.Transaction
	knowledge   int64
}

// fakeLedger is an in-memory budget honouring server knowledge.
type fakeLedger struct {
	mu           sync.Mutex
	knowledge    int64
	nextID       int
	accounts     []ynab.Account
	transactions []*storedTransaction
	requests     map[string]int
}

func newFakeLedger(accounts []ynab.Account) *fakeLedger {
	return &fakeLedger{accounts: accounts, requests: make(map[string]int)}
}

func (l *fakeLedger) add(t ynab.Transaction) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.knowledge++
	l.transactions = append(l.transactions, &storedTransaction{transaction: t, knowledge: l.knowledge})
}

func (l *fakeLedger) deleteTransaction(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.knowledge++
	for _, s := range l.transactions {
		if s.transaction.ID == id {
			s.transaction.Deleted = true
			s.knowledge = l.knowledge
		}
	}
}

func (l *fakeLedger) find(id string) *ynab.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range l.transactions {
		if s.transaction.ID == id {
			t := s.transaction
			return &t
		}
	}
	return nil
}

func (l *fakeLedger) inAccount(accountID string) []ynab.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	var result []ynab.Transaction
	for _, s := range l.transactions {
		if s.transaction.AccountID == accountID && !s.transaction.Deleted {
			result = append(result, s.transaction)
		}
	}
	return result
}

func (l *fakeLedger) requestCount(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.requests[name]
}

func (l *fakeLedger) router(t *testing.T) chi.Router {
	r := chi.NewRouter()
	r.Route("/budgets/{budgetID}", func(r chi.Router) {
		r.Get("/settings", func(w http.ResponseWriter, req *http.Request) {
			l.count("settings")
			writeData(w, map[string]interface{}{"settings": usSettings})
		})
		r.Get("/accounts", func(w http.ResponseWriter, req *http.Request) {
			l.count("accounts")
			l.mu.Lock()
			defer l.mu.Unlock()
			accounts := make([]ynab.Account, len(l.accounts))
			for i, a := range l.accounts {
				for _, s := range l.transactions {
					if s.transaction.AccountID == a.ID && !s.transaction.Deleted {
						a.Balance += s.transaction.Amount
					}
				}
				accounts[i] = a
			}
			writeData(w, map[string]interface{}{"accounts": accounts, "server_knowledge": l.knowledge})
		})
		r.Get("/transactions", func(w http.ResponseWriter, req *http.Request) {
			l.count("transactions")
			var last int64
			if v := req.URL.Query().Get("last_knowledge_of_server"); v != "" {
				parsed, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					t.Errorf("last_knowledge_of_server = %q", v)
				}
				last = parsed
			}
			since := req.URL.Query().Get("since_date")

			l.mu.Lock()
			defer l.mu.Unlock()
			transactions := []ynab.Transaction{}
			for _, s := range l.transactions {
				if s.knowledge > last && s.transaction.Date >= since {
					transactions = append(transactions, s.transaction)
				}
			}
			writeData(w, map[string]interface{}{"transactions": transactions, "server_knowledge": l.knowledge})
		})
		r.Post("/transactions", func(w http.ResponseWriter, req *http.Request) {
			l.count("create")
			var body struct {
				Transactions []ynab.SaveTransaction `json:"transactions"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				t.Errorf("decode create: %v", err)
				return
			}

			l.mu.Lock()
			defer l.mu.Unlock()
			created := []ynab.Transaction{}
			for _, s := range body.Transactions {
				l.nextID++
				l.knowledge++
				approved := s.Approved != nil && *s.Approved
				tx := ynab.Transaction{
					ID:         fmt.Sprintf("gen-%d", l.nextID),
					Date:       s.Date,
					Amount:     s.Amount,
					Memo:       s.Memo,
					Cleared:    s.Cleared,
					Approved:   approved,
					AccountID:  s.AccountID,
					PayeeID:    s.PayeeID,
					PayeeName:  s.PayeeName,
					CategoryID: s.CategoryID,
					ImportID:   s.ImportID,
				}
				l.transactions = append(l.transactions, &storedTransaction{transaction: tx, knowledge: l.knowledge})
				created = append(created, tx)
			}
			writeData(w, map[string]interface{}{"transactions": created, "server_knowledge": l.knowledge})
		})
		r.Patch("/transactions", func(w http.ResponseWriter, req *http.Request) {
			l.count("update")
			var body struct {
				Transactions []ynab.UpdateTransaction `json:"transactions"`
			}
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				t.Errorf("decode update: %v", err)
				return
			}

			l.mu.Lock()
			defer l.mu.Unlock()
			updated := []ynab.Transaction{}
			for _, u := range body.Transactions {
				for _, s := range l.transactions {
					if s.transaction.ID != u.ID {
						continue
					}
					l.knowledge++
					s.knowledge = l.knowledge
					s.transaction.AccountID = u.AccountID
					s.transaction.Date = u.Date
					s.transaction.Amount = u.Amount
					s.transaction.Memo = u.Memo
					updated = append(updated, s.transaction)
				}
			}
			writeData(w, map[string]interface{}{"transactions": updated, "server_knowledge": l.knowledge})
		})
	})
	return r
}

func (l *fakeLedger) count(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests[name]++
}

func writeData(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
}

type staticProvider map[money.CurrencyCode]int64

func (p staticProvider) GetRates(_ context.Context, _ time.Time, pairs []currconv.Pair) (map[currconv.Pair]money.ExchangeRate, error) {
	result := make(map[currconv.Pair]money.ExchangeRate)
	for _, pair := range pairs {
		result[pair] = money.ExchangeRateFromInt64(p[pair.From])
	}
	return result, nil
}

type syncFixture struct {
	ledger *fakeLedger
	store  *db.Store
	syncer *Syncer
	out    *bytes.Buffer
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	ledger := newFakeLedger([]ynab.Account{
		{ID: "checking", Name: "Checking", Type: ynab.AccountTypeChecking, OnBudget: true},
		{ID: "eur", Name: "Euro <EUR>", Type: ynab.AccountTypeChecking, OnBudget: true, Balance: 120000},
		{ID: "eur-diff", Name: "Euro <EUR DIFFERENCE>", Type: ynab.AccountTypeChecking, OnBudget: true},
	})
	server := httptest.NewServer(ledger.router(t))
	t.Cleanup(server.Close)

	conn, err := db.Open(filepath.Join(t.TempDir(), "data.sqlite3"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	store := db.NewStore(conn)

	client := ynab.NewClient(ynab.ClientConfig{APIURL: server.URL, AccessToken: "token", BudgetID: "budget-1"})
	out := &bytes.Buffer{}
	return &syncFixture{
		ledger: ledger,
		store:  store,
		syncer: NewSyncer(client, store, staticProvider{eur: 1100000}, out),
		out:    out,
	}
}

func (f *syncFixture) run(t *testing.T, commit bool, now time.Time) *Report {
	t.Helper()
	f.out.Reset()
	report, err := f.syncer.Run(context.Background(), Options{
		BudgetID: "budget-1",
		Commit:   commit,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("Run() error = %v\noutput:\n%s", err, f.out)
	}
	return report
}

var firstDay = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

func TestRunCommitsDifferencesAndAdjustments(t *testing.T) {
	f := newSyncFixture(t)
	f.ledger.add(ynab.Transaction{ID: "t1", Date: "2024-01-01", Amount: -20000, AccountID: "eur", Approved: true, Cleared: ynab.ClearedCleared})

	report := f.run(t, true, firstDay)
	if report.Result == nil {
		t.Fatalf("Run() did not commit\noutput:\n%s", f.out)
	}
	if report.Result.Creates != 2 || report.Result.Adjustments != 1 || report.Result.Updates != 0 {
		t.Errorf("Result = %+v, expected 2 creates with 1 adjustment", report.Result)
	}
	for _, line := range []string{"Loading latest transactions...", "Found foreign debit account for EUR", "Checking for adjustments...", "Done!"} {
		if !strings.Contains(f.out.String(), line) {
			t.Errorf("output does not contain %q:\n%s", line, f.out)
		}
	}

	differences := f.ledger.inAccount("eur-diff")
	if len(differences) != 2 {
		t.Fatalf("difference account has %d transactions, expected 2", len(differences))
	}
	if differences[0].Amount != -2000 || *differences[0].Memo != "<-20.00 EUR @1.100000/EUR = -22.00>" {
		t.Errorf("difference = %d %q", differences[0].Amount, *differences[0].Memo)
	}
	// 100.00 EUR at 1.10 must be carried as 10.00 in total.
	if differences[1].Amount != 12000 || *differences[1].PayeeName != "Exchange Rate Adjustment <EUR>" {
		t.Errorf("adjustment = %d %v", differences[1].Amount, differences[1].PayeeName)
	}

	budget, err := f.store.GetBudget("budget-1")
	if err != nil || budget == nil {
		t.Fatalf("GetBudget() = %v, %v", budget, err)
	}
	if budget.LastRunDate == nil || budget.LastRunDate.Format(db.DateLayout) != "2024-01-02" {
		t.Errorf("LastRunDate = %v, expected 2024-01-02", budget.LastRunDate)
	}
	if budget.ServerKnowledge == nil || *budget.ServerKnowledge != 1 {
		t.Errorf("ServerKnowledge = %v, expected 1", budget.ServerKnowledge)
	}
	if budget.StartDate.Format(db.DateLayout) != "2023-12-03" {
		t.Errorf("StartDate = %v, expected 30 days before the first run", budget.StartDate)
	}

	record, err := f.store.GetDifferenceRecord(budget.ID, "t1")
	if err != nil || record == nil {
		t.Fatalf("GetDifferenceRecord() = %v, %v", record, err)
	}
	if record.DifferenceTransactionID != differences[0].ID || record.Amount.Int64() != -2000 {
		t.Errorf("record = %+v", record)
	}

	runs, err := f.store.ListSyncRuns(budget.ID, 10)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListSyncRuns() = %v, %v", runs, err)
	}

	// Nothing changed: the second run sees only its own transactions.
	report = f.run(t, true, firstDay)
	if report.Plan == nil || report.Plan.HasChanges() || report.Result != nil {
		t.Errorf("second Run() = %+v, expected no changes", report)
	}
	if !strings.Contains(f.out.String(), "No new/changed difference transactions; nothing to do!") {
		t.Errorf("output:\n%s", f.out)
	}
	if got := f.ledger.requestCount("create"); got != 1 {
		t.Errorf("create requests = %d, expected 1", got)
	}
}

func TestRunDeletedTransaction(t *testing.T) {
	f := newSyncFixture(t)
	f.ledger.add(ynab.Transaction{ID: "t1", Date: "2024-01-01", Amount: -20000, AccountID: "eur", Approved: true})
	f.run(t, true, firstDay)

	f.ledger.deleteTransaction("t1")
	report := f.run(t, true, firstDay.AddDate(0, 0, 1))
	if report.Result == nil || report.Result.Updates != 1 || report.Result.Deletes != 1 || report.Result.Creates != 0 {
		t.Fatalf("Result = %+v, expected one update and one deleted record\noutput:\n%s", report.Result, f.out)
	}

	budget, err := f.store.GetBudget("budget-1")
	if err != nil {
		t.Fatal(err)
	}
	record, err := f.store.GetDifferenceRecord(budget.ID, "t1")
	if err != nil || record != nil {
		t.Errorf("GetDifferenceRecord() = %v, %v, expected nil", record, err)
	}

	difference := f.ledger.find("gen-1")
	if difference == nil || difference.Amount != 0 || *difference.Memo != DeletedTag {
		t.Errorf("difference after delete = %+v", difference)
	}
}

func TestRunDryRun(t *testing.T) {
	f := newSyncFixture(t)
	f.ledger.add(ynab.Transaction{ID: "t1", Date: "2024-01-01", Amount: -20000, AccountID: "eur", Approved: true})

	report := f.run(t, false, firstDay)
	if report.Plan == nil || len(report.Plan.Creates) != 2 || report.Result != nil {
		t.Fatalf("Run() = %+v, expected an uncommitted plan", report)
	}
	if !strings.Contains(f.out.String(), "NOTE: No transactions were actually saved.") {
		t.Errorf("output:\n%s", f.out)
	}
	if got := f.ledger.requestCount("create"); got != 0 {
		t.Errorf("create requests = %d, expected 0", got)
	}

	budget, err := f.store.GetBudget("budget-1")
	if err != nil || budget != nil {
		t.Errorf("GetBudget() = %v, %v, expected no budget after a dry run", budget, err)
	}
}

func TestRunStartDate(t *testing.T) {
	f := newSyncFixture(t)
	f.ledger.add(ynab.Transaction{ID: "t1", Date: "2024-01-01", Amount: -20000, AccountID: "eur", Approved: true})

	start := time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)
	if _, err := f.syncer.Run(context.Background(), Options{BudgetID: "budget-1", Commit: true, StartDate: &start, Now: func() time.Time { return firstDay }}); err != nil {
		t.Fatal(err)
	}

	// Repeating the same start date is fine, a different one is not.
	if _, err := f.syncer.Run(context.Background(), Options{BudgetID: "budget-1", StartDate: &start, Now: func() time.Time { return firstDay }}); err != nil {
		t.Errorf("Run() with the same start date error = %v", err)
	}
	other := start.AddDate(0, 0, 1)
	if _, err := f.syncer.Run(context.Background(), Options{BudgetID: "budget-1", StartDate: &other, Now: func() time.Time { return firstDay }}); err == nil {
		t.Error("Run() with a different start date expected error")
	}
}

func TestRunNothingToDo(t *testing.T) {
	f := newSyncFixture(t)
	budget, err := f.store.CreateBudget("budget-1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	err = f.store.Transaction(func(tx *sql.Tx) error {
		return f.store.UpdateCursor(tx, budget.ID, 0, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC))
	})
	if err != nil {
		t.Fatal(err)
	}

	report := f.run(t, true, firstDay)
	if report.Plan != nil {
		t.Errorf("Run() = %+v, expected an early exit", report)
	}
	if !strings.Contains(f.out.String(), "No new/updated/deleted transactions; nothing to do!") {
		t.Errorf("output:\n%s", f.out)
	}
	if got := f.ledger.requestCount("settings"); got != 0 {
		t.Errorf("settings requests = %d, expected 0", got)
	}
}
