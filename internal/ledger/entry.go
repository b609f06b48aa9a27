package ledger

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the wire and display format of entry dates.
const DateFormat = "2006-01-02"

// Ledger names one of the backend ledger collections.
type Ledger string

const (
	LedgerCompany Ledger = "company"
	LedgerVendor  Ledger = "vendor"
	LedgerExpense Ledger = "expense"
	LedgerBank    Ledger = "bank"
)

var AllLedgers = []Ledger{LedgerCompany, LedgerVendor, LedgerExpense, LedgerBank}

// ValidLedger checks if a ledger name is known.
func ValidLedger(l Ledger) bool {
	for _, v := range AllLedgers {
		if v == l {
			return true
		}
	}
	return false
}

// LedgerLabel returns a human-readable label for a ledger.
func LedgerLabel(l Ledger) string {
	switch l {
	case LedgerCompany:
		return "Company"
	case LedgerVendor:
		return "Vendor"
	case LedgerExpense:
		return "Expense"
	case LedgerBank:
		return "Bank"
	default:
		return string(l)
	}
}

// Vendor entry types. They share one backend collection.
const (
	EntryTypeService    = "service"
	EntryTypePayment    = "payment"
	EntryTypeAdjustment = "adjustment"
)

// Date is a calendar day. The zero value means the date is unknown.
type Date struct {
	t time.Time
}

// NewDate returns the date for year, month, day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD date. An empty string or "-" is the zero date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return Date{}, nil
	}
	if len(s) > len(DateFormat) {
		// tolerate full timestamps from older clients
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return NewDate(t.Year(), t.Month(), t.Day()), nil
		}
	}
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

func (d Date) IsZero() bool    { return d.t.IsZero() }
func (d Date) Time() time.Time { return d.t }

// String formats the date, or "-" when unknown.
func (d Date) String() string {
	if d.IsZero() {
		return "-"
	}
	return d.t.Format(DateFormat)
}

func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.t.Format(DateFormat))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidDate, string(data))
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Entry is one bookkeeping row. The running balance is not part of it; it is
// derived by the view package for a given ordering.
type Entry struct {
	ID          string          `json:"id"`
	Ledger      Ledger          `json:"ledger"`
	EntryType   string          `json:"entry_type,omitempty"`
	Date        Date            `json:"date"`
	Particulars string          `json:"particulars"`
	VoucherType string          `json:"voucher_type,omitempty"`
	VoucherNo   string          `json:"voucher_no,omitempty"`
	Party       string          `json:"party,omitempty"`
	Category    string          `json:"category,omitempty"`
	Source      string          `json:"source,omitempty"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
}

// EntryDate, DebitAmount, CreditAmount and SearchText let the view reducer
// work on entries without knowing their shape.
func (e Entry) EntryDate() (time.Time, bool) {
	return e.Date.Time(), !e.Date.IsZero()
}

func (e Entry) DebitAmount() decimal.Decimal  { return e.Debit }
func (e Entry) CreditAmount() decimal.Decimal { return e.Credit }

func (e Entry) SearchText() []string {
	return []string{e.Particulars, e.VoucherNo, e.ID, e.VoucherType, e.Party, e.Category}
}

// Net is debit minus credit.
func (e Entry) Net() decimal.Decimal {
	return e.Debit.Sub(e.Credit)
}

// IsExpenseSourced reports whether a bank row was mirrored from the expense ledger.
func (e Entry) IsExpenseSourced() bool {
	return e.Source == string(LedgerExpense)
}

// Validate checks the invariants the backend enforces on new entries.
func (e *Entry) Validate() error {
	if !ValidLedger(e.Ledger) {
		return fmt.Errorf("%w: %q", ErrUnknownLedger, e.Ledger)
	}
	if strings.TrimSpace(e.Particulars) == "" {
		return ErrEmptyParticulars
	}
	if e.Debit.IsNegative() || e.Credit.IsNegative() {
		return ErrNegativeAmount
	}
	if e.Ledger == LedgerVendor {
		switch e.EntryType {
		case EntryTypeService, EntryTypePayment, EntryTypeAdjustment:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidEntryType, e.EntryType)
		}
	}
	return nil
}
