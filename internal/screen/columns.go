package screen

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/view"
)

// Column is one table column of a ledger screen.
type Column struct {
	Key   string
	Title string
	Width int

	text   func(ledger.Entry) string
	amount func(view.Line[ledger.Entry]) decimal.Decimal
}

// Numeric reports whether the column holds an amount.
func (c Column) Numeric() bool { return c.amount != nil }

// Cell renders the column for a line. Amounts go through format; a nil
// format writes plain two-decimal numbers.
func (c Column) Cell(l view.Line[ledger.Entry], format func(decimal.Decimal) string) string {
	if c.amount != nil {
		if format == nil {
			return c.amount(l).StringFixed(2)
		}
		return format(c.amount(l))
	}
	return c.text(l.Entry)
}

var (
	colDate        = Column{Key: view.KeyDate, Title: "Date", Width: 10, text: func(e ledger.Entry) string { return e.Date.String() }}
	colParticulars = Column{Key: "particulars", Title: "Particulars", Width: 28, text: func(e ledger.Entry) string { return e.Particulars }}
	colVoucherType = Column{Key: "voucher_type", Title: "Voucher Type", Width: 12, text: func(e ledger.Entry) string { return e.VoucherType }}
	colVoucherNo   = Column{Key: "voucher_no", Title: "Voucher No", Width: 12, text: func(e ledger.Entry) string { return e.VoucherNo }}
	colClient      = Column{Key: "party", Title: "Client", Width: 16, text: func(e ledger.Entry) string { return e.Party }}
	colVendor      = Column{Key: "party", Title: "Vendor", Width: 16, text: func(e ledger.Entry) string { return e.Party }}
	colEntryType   = Column{Key: "entry_type", Title: "Type", Width: 10, text: func(e ledger.Entry) string { return e.EntryType }}
	colCategory    = Column{Key: "category", Title: "Expense Type", Width: 14, text: func(e ledger.Entry) string { return e.Category }}
	colSource      = Column{Key: "source", Title: "Source", Width: 8, text: func(e ledger.Entry) string { return e.Source }}
	colDebit       = Column{Key: "debit", Title: "Debit", Width: 14, amount: func(l view.Line[ledger.Entry]) decimal.Decimal { return l.Entry.Debit }}
	colCredit      = Column{Key: "credit", Title: "Credit", Width: 14, amount: func(l view.Line[ledger.Entry]) decimal.Decimal { return l.Entry.Credit }}
	colBalance     = Column{Key: view.KeyBalance, Title: "Balance", Width: 15, amount: func(l view.Line[ledger.Entry]) decimal.Decimal { return l.RunningBalance }}
)

// ColumnsFor returns the table layout of a ledger screen.
func ColumnsFor(l ledger.Ledger) []Column {
	switch l {
	case ledger.LedgerCompany:
		return []Column{colDate, colParticulars, colClient, colVoucherType, colVoucherNo, colDebit, colCredit, colBalance}
	case ledger.LedgerVendor:
		return []Column{colDate, colEntryType, colParticulars, colVendor, colVoucherNo, colDebit, colCredit, colBalance}
	case ledger.LedgerExpense:
		return []Column{colDate, colParticulars, colCategory, colVoucherNo, colDebit, colCredit, colBalance}
	default:
		return []Column{colDate, colParticulars, colVoucherType, colVoucherNo, colSource, colDebit, colCredit, colBalance}
	}
}

// sortColumns builds the reducer comparators for a layout. Date and balance
// are built into the reducer.
func sortColumns(cols []Column) view.Columns[ledger.Entry] {
	out := make(view.Columns[ledger.Entry], len(cols))
	for _, c := range cols {
		switch {
		case c.Key == view.KeyDate || c.Key == view.KeyBalance:
		case c.amount != nil:
			amount := c.amount
			out[c.Key] = func(a, b ledger.Entry) int {
				return amount(view.Line[ledger.Entry]{Entry: a}).Cmp(amount(view.Line[ledger.Entry]{Entry: b}))
			}
		default:
			text := c.text
			out[c.Key] = func(a, b ledger.Entry) int {
				return strings.Compare(strings.ToLower(text(a)), strings.ToLower(text(b)))
			}
		}
	}
	return out
}
