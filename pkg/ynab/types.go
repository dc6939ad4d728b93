// Package ynab provides a YNAB API client and types.
package ynab

// Account types as reported by the API.
const (
	AccountTypeChecking       = "checking"
	AccountTypeSavings        = "savings"
	AccountTypeCash           = "cash"
	AccountTypeCreditCard     = "creditCard"
	AccountTypeLineOfCredit   = "lineOfCredit"
	AccountTypeOtherAsset     = "otherAsset"
	AccountTypeOtherLiability = "otherLiability"
)

// Cleared states.
const (
	ClearedCleared    = "cleared"
	ClearedUncleared  = "uncleared"
	ClearedReconciled = "reconciled"
)

// Account represents an account in a budget.
type Account struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	OnBudget bool    `json:"on_budget"`
	Closed   bool    `json:"closed"`
	Note     *string `json:"note,omitempty"`
	Balance  int64   `json:"balance"` // milliunits
	Deleted  bool    `json:"deleted"`
}

// Transaction represents a transaction with its subtransactions (splits).
type Transaction struct {
	ID                   string           `json:"id"`
	Date                 string           `json:"date"` // YYYY-MM-DD
	Amount               int64            `json:"amount"`
	Memo                 *string          `json:"memo,omitempty"`
	Cleared              string           `json:"cleared"`
	Approved             bool             `json:"approved"`
	FlagColor            *string          `json:"flag_color,omitempty"`
	AccountID            string           `json:"account_id"`
	AccountName          string           `json:"account_name,omitempty"`
	PayeeID              *string          `json:"payee_id,omitempty"`
	PayeeName            *string          `json:"payee_name,omitempty"`
	CategoryID           *string          `json:"category_id,omitempty"`
	CategoryName         *string          `json:"category_name,omitempty"`
	TransferAccountID    *string          `json:"transfer_account_id,omitempty"`
	ImportID             *string          `json:"import_id,omitempty"`
	MatchedTransactionID *string          `json:"matched_transaction_id,omitempty"`
	Deleted              bool             `json:"deleted"`
	Subtransactions      []SubTransaction `json:"subtransactions,omitempty"`
}

// SubTransaction represents one split of a transaction.
type SubTransaction struct {
	ID                string  `json:"id"`
	TransactionID     string  `json:"transaction_id"`
	Amount            int64   `json:"amount"`
	Memo              *string `json:"memo,omitempty"`
	PayeeID           *string `json:"payee_id,omitempty"`
	PayeeName         *string `json:"payee_name,omitempty"`
	CategoryID        *string `json:"category_id,omitempty"`
	CategoryName      *string `json:"category_name,omitempty"`
	TransferAccountID *string `json:"transfer_account_id,omitempty"`
	Deleted           bool    `json:"deleted"`
}

// SaveTransaction is the body of a transaction create request.
type SaveTransaction struct {
	AccountID  string  `json:"account_id"`
	Date       string  `json:"date"`
	Amount     int64   `json:"amount"`
	PayeeID    *string `json:"payee_id,omitempty"`
	PayeeName  *string `json:"payee_name,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
	Memo       *string `json:"memo,omitempty"`
	Cleared    string  `json:"cleared,omitempty"`
	Approved   *bool   `json:"approved,omitempty"`
	FlagColor  *string `json:"flag_color,omitempty"`
	ImportID   *string `json:"import_id,omitempty"`
}

// UpdateTransaction is one element of a bulk update request.
type UpdateTransaction struct {
	ID         string  `json:"id"`
	AccountID  string  `json:"account_id"`
	Date       string  `json:"date"`
	Amount     int64   `json:"amount"`
	PayeeID    *string `json:"payee_id,omitempty"`
	PayeeName  *string `json:"payee_name,omitempty"`
	CategoryID *string `json:"category_id,omitempty"`
	Memo       *string `json:"memo,omitempty"`
	Cleared    string  `json:"cleared,omitempty"`
	Approved   *bool   `json:"approved,omitempty"`
	FlagColor  *string `json:"flag_color,omitempty"`
}

// CurrencyFormat describes how the budget displays amounts.
type CurrencyFormat struct {
	ISOCode          string `json:"iso_code"`
	ExampleFormat    string `json:"example_format"`
	DecimalDigits    int32  `json:"decimal_digits"`
	DecimalSeparator string `json:"decimal_separator"`
	SymbolFirst      bool   `json:"symbol_first"`
	GroupSeparator   string `json:"group_separator"`
	CurrencySymbol   string `json:"currency_symbol"`
	DisplaySymbol    bool   `json:"display_symbol"`
}

// DateFormat describes how the budget displays dates, e.g. "MM/DD/YYYY".
type DateFormat struct {
	Format string `json:"format"`
}

// BudgetSettings holds the budget's currency and date settings.
type BudgetSettings struct {
	DateFormat     DateFormat     `json:"date_format"`
	CurrencyFormat CurrencyFormat `json:"currency_format"`
}

// TransactionsResult is the result of an incremental transactions fetch.
type TransactionsResult struct {
	Transactions    []Transaction
	ServerKnowledge int64
}

// AccountsResponse represents the response from the accounts endpoint.
type AccountsResponse struct {
	Data struct {
		Accounts        []Account `json:"accounts"`
		ServerKnowledge int64     `json:"server_knowledge"`
	} `json:"data"`
}

// TransactionsResponse represents the response from the transactions list endpoint.
type TransactionsResponse struct {
	Data struct {
		Transactions    []Transaction `json:"transactions"`
		ServerKnowledge int64         `json:"server_knowledge"`
	} `json:"data"`
}

// SaveTransactionsResponse represents the response from create and bulk update requests.
type SaveTransactionsResponse struct {
	Data struct {
		TransactionIDs     []string      `json:"transaction_ids"`
		Transactions       []Transaction `json:"transactions"`
		DuplicateImportIDs []string      `json:"duplicate_import_ids,omitempty"`
		ServerKnowledge    int64         `json:"server_knowledge"`
	} `json:"data"`
}

// BudgetSettingsResponse represents the response from the settings endpoint.
type BudgetSettingsResponse struct {
	Data struct {
		Settings BudgetSettings `json:"settings"`
	} `json:"data"`
}

// ErrorResponse represents an error response from the API.
type ErrorResponse struct {
	Error struct {
		ID     string `json:"id"`
		Name   string `json:"name"`
		Detail string `json:"detail"`
	} `json:"error"`
}
