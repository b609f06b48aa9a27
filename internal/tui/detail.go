package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
)

type entryDetailLoadedMsg struct {
	entry *ledger.Entry
	err   error
}

type entryDetailModel struct {
	entry    *ledger.Entry
	currency string
	loading  bool
	err      error
	width    int
}

// init shows e right away and refreshes it from the server.
func (m *entryDetailModel) init(backend Backend, e ledger.Entry) tea.Cmd {
	m.entry = &e
	m.loading = true
	m.err = nil
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		fresh, err := backend.GetEntry(ctx, e.Ledger, e.ID)
		return entryDetailLoadedMsg{entry: fresh, err: err}
	}
}

func (m entryDetailModel) update(msg tea.Msg) (entryDetailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case entryDetailLoadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.entry != nil {
			m.entry = msg.entry
		}
	}
	return m, nil
}

func (m *entryDetailModel) view() string {
	if m.entry == nil {
		return ""
	}
	e := m.entry

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s Entry: %s", ledger.LedgerLabel(e.Ledger), e.ID)))
	b.WriteString("\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(label), value))
	}
	row("Date:", e.Date.String())
	row("Particulars:", e.Particulars)
	row("Entry Type:", e.EntryType)
	row("Voucher Type:", e.VoucherType)
	row("Voucher No:", e.VoucherNo)
	row("Party:", e.Party)
	row("Expense Type:", e.Category)
	if e.IsExpenseSourced() {
		row("Source:", "expense ledger")
	}
	b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Debit:"), debitStyle.Render(ledger.FormatAmount(e.Debit, m.currency))))
	b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Credit:"), creditStyle.Render(ledger.FormatAmount(e.Credit, m.currency))))
	if !e.CreatedAt.IsZero() {
		row("Recorded:", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}

	switch {
	case m.loading:
		b.WriteString("\n" + dimStyle.Render("  Refreshing..."))
	case errors.Is(m.err, ledger.ErrEntryNotFound):
		b.WriteString("\n" + errorStyle.Render("  This entry no longer exists on the server."))
	case m.err != nil:
		b.WriteString("\n" + errorStyle.Render("  Error: "+m.err.Error()))
	}

	b.WriteString("\n" + dimStyle.Render("  Press ESC to go back"))
	return b.String()
}
