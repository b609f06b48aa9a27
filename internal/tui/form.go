package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/syncsignal"
)

type entryCreatedMsg struct {
	entry *ledger.Entry
	err   error
}

type formField int

const (
	fieldDate formField = iota
	fieldParticulars
	fieldVoucherType
	fieldVoucherNo
	fieldParty
	fieldCategory
	fieldDebit
	fieldCredit
)

var fieldLabels = map[formField]string{
	fieldDate:        "Date:",
	fieldParticulars: "Particulars:",
	fieldVoucherType: "Voucher Type:",
	fieldVoucherNo:   "Voucher No:",
	fieldParty:       "Party:",
	fieldCategory:    "Expense Type:",
	fieldDebit:       "Debit:",
	fieldCredit:      "Credit:",
}

var vendorEntryTypes = []string{ledger.EntryTypeService, ledger.EntryTypePayment, ledger.EntryTypeAdjustment}

// formModel collects a new entry for one ledger.
type formModel struct {
	ledger    ledger.Ledger
	fields    []formField
	inputs    map[formField]*textinput.Model
	focus     int
	entryType int
	// onType is true while the vendor entry type row has focus.
	onType bool

	submitting bool
	err        error
	done       bool
	cancelled  bool
	statusMsg  string
	width      int
}

func fieldsFor(l ledger.Ledger) []formField {
	switch l {
	case ledger.LedgerCompany:
		return []formField{fieldDate, fieldParticulars, fieldParty, fieldVoucherType, fieldVoucherNo, fieldDebit, fieldCredit}
	case ledger.LedgerVendor:
		return []formField{fieldDate, fieldParticulars, fieldParty, fieldVoucherNo, fieldDebit, fieldCredit}
	case ledger.LedgerExpense:
		return []formField{fieldDate, fieldParticulars, fieldCategory, fieldVoucherNo, fieldDebit, fieldCredit}
	default:
		return []formField{fieldDate, fieldParticulars, fieldVoucherType, fieldVoucherNo, fieldDebit, fieldCredit}
	}
}

func newForm(l ledger.Ledger, today time.Time) formModel {
	m := formModel{
		ledger: l,
		fields: fieldsFor(l),
		inputs: make(map[formField]*textinput.Model),
		onType: l == ledger.LedgerVendor,
	}
	for _, f := range m.fields {
		in := textinput.New()
		in.CharLimit = 80
		switch f {
		case fieldDate:
			in.Placeholder = ledger.DateFormat
			in.SetValue(today.Format(ledger.DateFormat))
			in.CharLimit = 10
		case fieldParticulars:
			in.Placeholder = "e.g. Invoice 1042"
		case fieldDebit, fieldCredit:
			in.Placeholder = "0.00"
			in.CharLimit = 20
		}
		m.inputs[f] = &in
	}
	if !m.onType {
		m.inputs[m.fields[0]].Focus()
	}
	return m
}

func (m formModel) update(msg tea.Msg, backend Backend, signals *syncsignal.Channel) (formModel, tea.Cmd) {
	switch msg := msg.(type) {
	case entryCreatedMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.done = true
		m.statusMsg = fmt.Sprintf("Entry %q added to the %s ledger", msg.entry.Particulars, strings.ToLower(ledger.LedgerLabel(m.ledger)))
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Escape) {
			m.cancelled = true
			return m, nil
		}
		if m.submitting {
			return m, nil
		}
		if m.onType {
			return m.updateType(msg), nil
		}

		switch {
		case msg.String() == "up", msg.String() == "shift+tab":
			m.move(-1)
			return m, nil
		case key.Matches(msg, keys.Enter), msg.String() == "tab", msg.String() == "down":
			if m.focus == len(m.fields)-1 && key.Matches(msg, keys.Enter) {
				return m.submit(backend, signals)
			}
			m.move(1)
			return m, nil
		}

		var cmd tea.Cmd
		in := m.inputs[m.fields[m.focus]]
		*in, cmd = in.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m formModel) updateType(msg tea.KeyMsg) formModel {
	switch msg.String() {
	case "left", "h", "up", "k":
		m.entryType = (m.entryType - 1 + len(vendorEntryTypes)) % len(vendorEntryTypes)
	case "right", "l", "down", "j":
		m.entryType = (m.entryType + 1) % len(vendorEntryTypes)
	case "enter", "tab":
		m.onType = false
		m.focus = 0
		m.inputs[m.fields[0]].Focus()
	}
	return m
}

func (m *formModel) move(delta int) {
	m.inputs[m.fields[m.focus]].Blur()
	next := m.focus + delta
	if next < 0 {
		if m.ledger == ledger.LedgerVendor {
			m.onType = true
			return
		}
		next = 0
	}
	m.focus = min(next, len(m.fields)-1)
	m.inputs[m.fields[m.focus]].Focus()
}

func (m *formModel) value(f formField) string {
	if in, ok := m.inputs[f]; ok {
		return strings.TrimSpace(in.Value())
	}
	return ""
}

// entry builds the entry from the inputs.
func (m *formModel) entry() (*ledger.Entry, error) {
	date, err := ledger.ParseDate(m.value(fieldDate))
	if err != nil {
		return nil, err
	}
	debit, err := ledger.ParseAmount(m.value(fieldDebit))
	if err != nil {
		return nil, fmt.Errorf("debit: %w", err)
	}
	credit, err := ledger.ParseAmount(m.value(fieldCredit))
	if err != nil {
		return nil, fmt.Errorf("credit: %w", err)
	}
	e := &ledger.Entry{
		Ledger:      m.ledger,
		Date:        date,
		Particulars: m.value(fieldParticulars),
		VoucherType: m.value(fieldVoucherType),
		VoucherNo:   m.value(fieldVoucherNo),
		Party:       m.value(fieldParty),
		Category:    m.value(fieldCategory),
		Debit:       debit,
		Credit:      credit,
	}
	if m.ledger == ledger.LedgerVendor {
		e.EntryType = vendorEntryTypes[m.entryType]
	}
	if m.ledger == ledger.LedgerExpense && e.VoucherType == "" {
		e.VoucherType = "Expense"
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (m formModel) submit(backend Backend, signals *syncsignal.Channel) (formModel, tea.Cmd) {
	e, err := m.entry()
	if err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.submitting = true
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		created, err := backend.CreateEntry(ctx, e)
		if err != nil {
			return entryCreatedMsg{err: err}
		}
		signals.Trigger(ctx, ledger.SyncKey(created.Ledger))
		return entryCreatedMsg{entry: created}
	}
}

func (m *formModel) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("New " + ledger.LedgerLabel(m.ledger) + " Entry"))
	b.WriteString("\n")

	if m.ledger == ledger.LedgerVendor {
		var opts []string
		for i, t := range vendorEntryTypes {
			if i == m.entryType {
				opts = append(opts, selectedStyle.Render("["+t+"]"))
			} else {
				opts = append(opts, dimStyle.Render(" "+t+" "))
			}
		}
		marker := "  "
		if m.onType {
			marker = "> "
		}
		b.WriteString(marker + labelStyle.Render("Entry Type:") + " " + strings.Join(opts, " ") + "\n")
	}

	for i, f := range m.fields {
		marker := "  "
		if !m.onType && i == m.focus {
			marker = "> "
		}
		b.WriteString(marker + labelStyle.Render(fieldLabels[f]) + " " + m.inputs[f].View() + "\n")
	}

	b.WriteString("\n")
	switch {
	case m.submitting:
		b.WriteString(dimStyle.Render("  Saving..."))
	case m.err != nil:
		b.WriteString(errorStyle.Render("  Error: " + m.err.Error()))
	default:
		b.WriteString(dimStyle.Render("  enter: next field / save on last  up: previous  esc: cancel"))
	}
	return boxStyle.Render(b.String())
}
