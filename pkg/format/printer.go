package format

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/shunichi-ikebuchi/ledger-fx/pkg/money"
)

// ChangeKind is the kind of change applied to a difference account.
type ChangeKind int

const (
	CreateDifference ChangeKind = iota
	UpdateDifference
	CreateAdjustment
)

func (k ChangeKind) String() string {
	switch k {
	case CreateDifference:
		return "Create difference"
	case UpdateDifference:
		return "Update difference"
	case CreateAdjustment:
		return "Create adjustment"
	}
	return fmt.Sprintf("ChangeKind(%d)", int(k))
}

// Change is a printable create or update of a difference transaction.
type Change struct {
	Kind         ChangeKind
	Key          money.DifferenceKey
	Date         time.Time
	PayeeName    *string
	CategoryName *string
	Memo         string
	Amount       money.Milliunits
}

// Printer writes human readable progress and changes.
type Printer struct {
	w         io.Writer
	f         *Formatter
	heading   *color.Color
	create    *color.Color
	update    *color.Color
	highlight *color.Color
}

// NewPrinter creates a printer writing to w. Colors are used only if enableColor is set.
func NewPrinter(w io.Writer, f *Formatter, enableColor bool) *Printer {
	p := &Printer{
		w:         w,
		f:         f,
		heading:   color.New(color.Bold),
		create:    color.New(color.FgGreen),
		update:    color.New(color.FgYellow),
		highlight: color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{p.heading, p.create, p.update, p.highlight} {
		if enableColor {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// SetFormatter replaces the formatter once the budget settings are known.
func (p *Printer) SetFormatter(f *Formatter) {
	p.f = f
}

// Heading prints a progress line.
func (p *Printer) Heading(format string, args ...interface{}) {
	p.heading.Fprintf(p.w, format, args...)
	fmt.Fprintln(p.w)
}

// Line prints a plain line.
func (p *Printer) Line(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
	fmt.Fprintln(p.w)
}

// Discovery prints one foreign or difference account found in the budget.
func (p *Printer) Discovery(name string, difference bool, key money.DifferenceKey, balance money.Milliunits) {
	role := "foreign"
	if difference {
		role = "difference"
	}
	fmt.Fprintf(p.w, "  Found %s %s: ", role, key)
	p.highlight.Fprint(p.w, name)
	fmt.Fprintf(p.w, " (%s)\n", p.f.Amount(balance))
}

// Change prints one intended change.
func (p *Printer) Change(c Change) {
	kind := p.create
	if c.Kind == UpdateDifference {
		kind = p.update
	}
	fmt.Fprint(p.w, "  ")
	kind.Fprintf(p.w, "%s transaction:", c.Kind)
	fmt.Fprintln(p.w)
	fmt.Fprintf(p.w, "     Account: Difference %s\n", c.Key)
	fmt.Fprintf(p.w, "        Date: %s\n", p.f.Date(c.Date))
	if c.PayeeName != nil {
		fmt.Fprintf(p.w, "       Payee: %s\n", *c.PayeeName)
	}
	if c.CategoryName != nil {
		fmt.Fprintf(p.w, "    Category: %s\n", *c.CategoryName)
	}
	fmt.Fprintf(p.w, "        Memo: %s\n", c.Memo)
	fmt.Fprintf(p.w, "      Amount: %s\n", p.f.Amount(c.Amount))
}

// DryRunNotice tells the user that nothing was saved.
func (p *Printer) DryRunNotice() {
	fmt.Fprintln(p.w)
	p.heading.Fprint(p.w, "NOTE: No transactions were actually saved.")
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, "Re-run with '--yes' to save the changes to YNAB.")
}
