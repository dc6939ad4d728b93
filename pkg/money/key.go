package money

import "fmt"

// AccountClass separates on-budget debit and credit accounts from off-budget tracking accounts.
type AccountClass int

const (
	Debit AccountClass = iota
	Credit
	Tracking
)

// Code returns the single letter used to persist the class.
func (c AccountClass) Code() string {
	switch c {
	case Debit:
		return "D"
	case Credit:
		return "C"
	case Tracking:
		return "T"
	}
	panic(fmt.Sprintf("money: unknown account class %d", int(c)))
}

// ParseAccountClass is the inverse of Code.
func ParseAccountClass(code string) (AccountClass, error) {
	switch code {
	case "D":
		return Debit, nil
	case "C":
		return Credit, nil
	case "T":
		return Tracking, nil
	}
	return 0, fmt.Errorf("invalid account class: %q", code)
}

func (c AccountClass) String() string {
	switch c {
	case Debit:
		return "debit"
	case Credit:
		return "credit"
	case Tracking:
		return "tracking"
	}
	return fmt.Sprintf("AccountClass(%d)", int(c))
}

// DifferenceKey identifies one balance bucket and its difference account.
type DifferenceKey struct {
	Currency CurrencyCode
	Class    AccountClass
}

func (k DifferenceKey) String() string {
	return fmt.Sprintf("%s account for %s", k.Class, k.Currency)
}
