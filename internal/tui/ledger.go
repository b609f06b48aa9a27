package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/sushantshinde2401/bookkeeper/internal/client"
	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/mutation"
	"github.com/sushantshinde2401/bookkeeper/internal/screen"
	"github.com/sushantshinde2401/bookkeeper/internal/view"
)

const requestTimeout = 15 * time.Second

type entriesLoadedMsg struct {
	ledger  ledger.Ledger
	filter  client.ListFilter
	entries []ledger.Entry
	err     error
}

// deleteSettledMsg carries the server's answer to an optimistic delete back
// to the update loop.
type deleteSettledMsg struct {
	ledger  ledger.Ledger
	pending *mutation.Pending
	result  mutation.Result
}

type exportedMsg struct {
	ledger ledger.Ledger
	path   string
	rows   int
	err    error
}

type ledgerModel struct {
	ctrl      *screen.Controller
	backend   Backend
	currency  string
	exportDir string

	cursor   int
	loading  bool
	loaded   bool
	err      error
	notice   string
	inFlight int
	width    int
	height   int

	confirmDelete bool
	deleteTarget  ledger.Entry

	searching   bool
	search      textinput.Model
	filtering   bool
	filterInput textinput.Model
}

func newLedgerModel(ctrl *screen.Controller, backend Backend, currency, exportDir string) ledgerModel {
	search := textinput.New()
	search.Placeholder = "particulars, voucher no, party..."
	search.CharLimit = 60
	search.Prompt = "/ "

	filter := textinput.New()
	filter.Placeholder = "from:2024-04-01 to:2025-03-31 party:acme"
	filter.CharLimit = 80
	filter.Prompt = "filter: "

	return ledgerModel{
		ctrl:        ctrl,
		backend:     backend,
		currency:    currency,
		exportDir:   exportDir,
		search:      search,
		filterInput: filter,
	}
}

// capturing reports whether the model wants every key, e.g. while typing.
func (m *ledgerModel) capturing() bool {
	return m.searching || m.filtering || m.confirmDelete
}

func (m *ledgerModel) load(filter client.ListFilter) tea.Cmd {
	m.loading = true
	l := m.ctrl.Ledger()
	backend := m.backend
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		entries, err := backend.ListEntries(ctx, l, filter)
		return entriesLoadedMsg{ledger: l, filter: filter, entries: entries, err: err}
	}
}

func (m *ledgerModel) reload() tea.Cmd {
	return m.load(m.ctrl.Filter())
}

func (m ledgerModel) update(msg tea.Msg) (ledgerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case entriesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.loaded = true
		m.ctrl.Replace(msg.filter, msg.entries)
		m.clampCursor()

	case deleteSettledMsg:
		m.inFlight--
		m.ctrl.FinishDelete(msg.pending, msg.result)
		switch msg.result.Outcome {
		case mutation.Committed:
			m.err = nil
			m.notice = "Entry deleted"
		case mutation.Reconciling:
			m.notice = "Entry was already deleted, reloading"
			return m, m.reload()
		case mutation.RolledBack:
			m.notice = ""
			m.err = fmt.Errorf("%s", msg.result.Message())
		}
		m.clampCursor()

	case exportedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.notice = fmt.Sprintf("Exported %d rows to %s", msg.rows, msg.path)
		}

	case tea.KeyMsg:
		switch {
		case m.confirmDelete:
			return m.updateConfirm(msg)
		case m.searching:
			return m.updateSearch(msg)
		case m.filtering:
			return m.updateFilter(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m ledgerModel) updateKeys(msg tea.KeyMsg) (ledgerModel, tea.Cmd) {
	pv := m.ctrl.Current()
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(pv.Lines)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.NextPage):
		m.ctrl.Page(pv.Page + 1)
		m.cursor = 0
	case key.Matches(msg, keys.PrevPage):
		m.ctrl.Page(pv.Page - 1)
		m.cursor = 0
	case key.Matches(msg, keys.Search):
		m.searching = true
		m.search.SetValue(m.ctrl.Search())
		return m, m.search.Focus()
	case key.Matches(msg, keys.Filter):
		m.filtering = true
		m.filterInput.SetValue(formatFilter(m.ctrl.Filter()))
		return m, m.filterInput.Focus()
	case key.Matches(msg, keys.Sort):
		idx := int(msg.Runes[0] - '1')
		cols := m.ctrl.Columns()
		if idx >= 0 && idx < len(cols) {
			m.ctrl.ToggleSort(cols[idx].Key)
			m.cursor = 0
		}
	case key.Matches(msg, keys.ExpenseOnly):
		if m.ctrl.Ledger() == ledger.LedgerBank {
			if m.ctrl.ToggleExpenseSourced() {
				m.notice = "Showing expense entries only"
			} else {
				m.notice = "Showing all entries"
			}
			m.cursor = 0
		}
	case key.Matches(msg, keys.Refresh):
		m.notice = ""
		return m, m.reload()
	case key.Matches(msg, keys.Export):
		return m, m.export()
	case key.Matches(msg, keys.Delete):
		if e, ok := m.selected(); ok {
			m.confirmDelete = true
			m.deleteTarget = e
			m.err = nil
			m.notice = ""
		}
	}
	return m, nil
}

func (m ledgerModel) updateConfirm(msg tea.KeyMsg) (ledgerModel, tea.Cmd) {
	target := m.deleteTarget
	m.confirmDelete = false
	m.deleteTarget = ledger.Entry{}
	switch msg.String() {
	case "y", "Y":
	default:
		return m, nil
	}

	// The row leaves the table here, before the request is sent.
	p, err := m.ctrl.BeginDelete(target)
	if err != nil {
		m.err = err
		return m, nil
	}
	m.inFlight++
	m.clampCursor()
	l := m.ctrl.Ledger()
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return deleteSettledMsg{ledger: l, pending: p, result: p.Commit(ctx)}
	}
}

func (m ledgerModel) updateSearch(msg tea.KeyMsg) (ledgerModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Enter):
		m.searching = false
		m.search.Blur()
		return m, nil
	case key.Matches(msg, keys.Escape):
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.ctrl.SetSearch("")
		m.cursor = 0
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.ctrl.SetSearch(m.search.Value())
	m.cursor = 0
	return m, cmd
}

func (m ledgerModel) updateFilter(msg tea.KeyMsg) (ledgerModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Enter):
		filter, err := parseFilter(m.filterInput.Value())
		if err != nil {
			m.err = err
			return m, nil
		}
		m.filtering = false
		m.filterInput.Blur()
		m.err = nil
		m.cursor = 0
		return m, m.load(filter)
	case key.Matches(msg, keys.Escape):
		m.filtering = false
		m.filterInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

func (m *ledgerModel) export() tea.Cmd {
	ctrl := m.ctrl
	dir := m.exportDir
	return func() tea.Msg {
		path := filepath.Join(dir, ctrl.ExportName(time.Now()))
		f, err := os.Create(path)
		if err != nil {
			return exportedMsg{ledger: ctrl.Ledger(), err: fmt.Errorf("export: %w", err)}
		}
		defer f.Close()
		if err := ctrl.ExportCSV(f); err != nil {
			return exportedMsg{ledger: ctrl.Ledger(), err: fmt.Errorf("export: %w", err)}
		}
		return exportedMsg{ledger: ctrl.Ledger(), path: path, rows: len(ctrl.Lines())}
	}
}

func (m *ledgerModel) selected() (ledger.Entry, bool) {
	pv := m.ctrl.Current()
	if m.cursor >= 0 && m.cursor < len(pv.Lines) {
		return pv.Lines[m.cursor].Entry, true
	}
	return ledger.Entry{}, false
}

func (m *ledgerModel) clampCursor() {
	n := len(m.ctrl.Current().Lines)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *ledgerModel) view() string {
	if m.loading && !m.loaded {
		return fmt.Sprintf("Loading %s ledger...", strings.ToLower(ledger.LedgerLabel(m.ctrl.Ledger())))
	}

	var b strings.Builder
	title := ledger.LedgerLabel(m.ctrl.Ledger()) + " Ledger"
	if m.ctrl.FilterActive(screen.FilterExpenseSourced) {
		title += " (expense entries)"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	if desc := describeFilter(m.ctrl.Filter(), m.ctrl.Search()); desc != "" {
		b.WriteString(subtitleStyle.Render(desc) + "\n")
	}

	cols := m.ctrl.Columns()
	sort := m.ctrl.Sort()
	header := make([]string, len(cols))
	for i, c := range cols {
		label := fmt.Sprintf("%d %s", i+1, c.Title)
		if c.Key == sort.Key {
			if sort.Dir == view.Asc {
				label += " ▲"
			} else {
				label += " ▼"
			}
		}
		header[i] = fit(label, c.Width, c.Numeric())
	}
	b.WriteString(headerStyle.Render("  " + strings.Join(header, " ")))
	b.WriteString("\n")

	pv := m.ctrl.Current()
	if len(pv.Lines) == 0 {
		b.WriteString(dimStyle.Render("  No entries found. Press 'n' to add one."))
		b.WriteString("\n")
	}

	maxRows := m.height - 8
	if maxRows < 1 {
		maxRows = 10
	}
	start := 0
	if m.cursor >= maxRows {
		start = m.cursor - maxRows + 1
	}

	format := func(d decimal.Decimal) string {
		if d.IsZero() {
			return ""
		}
		return ledger.FormatAmount(d, m.currency)
	}
	for i := start; i < len(pv.Lines) && i < start+maxRows; i++ {
		line := pv.Lines[i]
		cells := make([]string, len(cols))
		for j, c := range cols {
			text := c.Cell(line, format)
			if c.Key == view.KeyBalance {
				text = ledger.FormatAmount(line.RunningBalance, m.currency)
			}
			cells[j] = fit(text, c.Width, c.Numeric())
		}
		row := strings.Join(cells, " ")
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> " + row))
		} else {
			b.WriteString("  " + row)
		}
		b.WriteString("\n")
	}

	s := pv.Summary
	b.WriteString("\n")
	closing := balanceStyle(s.Closing).Render(ledger.FormatAmount(s.Closing, m.currency))
	b.WriteString(fmt.Sprintf("  %d entries  debit %s  credit %s  balance %s",
		s.Count, ledger.FormatAmount(s.Debit, m.currency), ledger.FormatAmount(s.Credit, m.currency), closing))
	if pv.Pages > 1 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  page %d/%d", pv.Page+1, pv.Pages)))
	}
	if m.loading {
		b.WriteString(dimStyle.Render("  refreshing..."))
	}
	if m.inFlight > 0 {
		b.WriteString("  " + deletingStyle.Render(fmt.Sprintf("deleting %d...", m.inFlight)))
	}
	b.WriteString("\n")

	switch {
	case m.confirmDelete:
		b.WriteString("\n" + errorStyle.Render(fmt.Sprintf("  Delete %q (%s)? (y/n)", m.deleteTarget.Particulars, m.deleteTarget.Date)))
	case m.searching:
		b.WriteString("\n  " + m.search.View())
	case m.filtering:
		b.WriteString("\n  " + m.filterInput.View())
	case m.err != nil:
		b.WriteString("\n" + errorStyle.Render("  Error: "+m.err.Error()))
	case m.notice != "":
		b.WriteString("\n" + successStyle.Render("  "+m.notice))
	}
	return b.String()
}

// fit pads or truncates s to width runes.
func fit(s string, width int, right bool) string {
	if n := utf8.RuneCountInString(s); n > width {
		r := []rune(s)
		s = string(r[:max(width-1, 0)]) + "…"
	}
	if right {
		return fmt.Sprintf("%*s", width, s)
	}
	return fmt.Sprintf("%-*s", width, s)
}

// parseFilter reads "from:DATE to:DATE party:NAME". Unknown words are
// taken as part of the party name.
func parseFilter(s string) (client.ListFilter, error) {
	var f client.ListFilter
	var party []string
	for _, field := range strings.Fields(s) {
		name, value, ok := strings.Cut(field, ":")
		if !ok {
			party = append(party, field)
			continue
		}
		switch strings.ToLower(name) {
		case "from":
			d, err := ledger.ParseDate(value)
			if err != nil {
				return client.ListFilter{}, err
			}
			f.From = d
		case "to":
			d, err := ledger.ParseDate(value)
			if err != nil {
				return client.ListFilter{}, err
			}
			f.To = d
		case "party":
			party = append(party, value)
		default:
			party = append(party, field)
		}
	}
	f.Party = strings.Join(party, " ")
	return f, nil
}

func formatFilter(f client.ListFilter) string {
	var parts []string
	if !f.From.IsZero() {
		parts = append(parts, "from:"+f.From.String())
	}
	if !f.To.IsZero() {
		parts = append(parts, "to:"+f.To.String())
	}
	if f.Party != "" {
		parts = append(parts, "party:"+f.Party)
	}
	return strings.Join(parts, " ")
}

func describeFilter(f client.ListFilter, search string) string {
	desc := formatFilter(f)
	if search != "" {
		if desc != "" {
			desc += "  "
		}
		desc += fmt.Sprintf("search:%q", search)
	}
	return desc
}
