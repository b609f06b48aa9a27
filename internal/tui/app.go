// Package tui is the terminal front end: one tab per ledger, each backed by
// a screen controller, kept in sync with other sessions through sync
// signals.
package tui

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/sushantshinde2401/bookkeeper/internal/client"
	"github.com/sushantshinde2401/bookkeeper/internal/ledger"
	"github.com/sushantshinde2401/bookkeeper/internal/mutation"
	"github.com/sushantshinde2401/bookkeeper/internal/screen"
	"github.com/sushantshinde2401/bookkeeper/internal/syncsignal"
)

// Backend is the part of the REST client the screens use.
type Backend interface {
	ListEntries(ctx context.Context, l ledger.Ledger, filter client.ListFilter) ([]ledger.Entry, error)
	GetEntry(ctx context.Context, l ledger.Ledger, id string) (*ledger.Entry, error)
	CreateEntry(ctx context.Context, e *ledger.Entry) (*ledger.Entry, error)
	DeleteEntry(ctx context.Context, kind ledger.Kind, id string) error
}

// Options configures the app.
type Options struct {
	Backend Backend
	Signals *syncsignal.Channel
	Logger  *zap.Logger

	PollInterval    time.Duration
	RefreshInterval time.Duration
	PageSize        int
	Currency        string
	ExportDir       string
	StartLedger     ledger.Ledger
}

type mode int

const (
	modeLedger mode = iota
	modeDetail
	modeForm
	modeHelp
)

// syncSignalMsg arrives from a subscription goroutine through Program.Send.
type syncSignalMsg struct {
	key string
}

type refreshTickMsg struct{}

type App struct {
	backend Backend
	signals *syncsignal.Channel
	logger  *zap.Logger
	opts    Options

	mode          mode
	tabIndex      int
	width, height int
	statusMsg     string

	ledgers []ledgerModel
	detail  entryDetailModel
	form    formModel
	help    helpModel
}

func NewApp(opts Options) *App {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Currency == "" {
		opts.Currency = ledger.DefaultCurrency
	}
	if opts.ExportDir == "" {
		opts.ExportDir, _ = os.Getwd()
	}

	coord := mutation.New(opts.Backend, opts.Signals, opts.Logger)
	app := &App{
		backend: opts.Backend,
		signals: opts.Signals,
		logger:  opts.Logger,
		opts:    opts,
		help:    newHelpModel(),
	}
	for i, l := range ledger.AllLedgers {
		ctrl := screen.New(l, screen.Options{
			Source:      opts.Backend,
			Coordinator: coord,
			Signals:     opts.Signals,
			Logger:      opts.Logger,
			PageSize:    opts.PageSize,
		})
		app.ledgers = append(app.ledgers, newLedgerModel(ctrl, opts.Backend, opts.Currency, opts.ExportDir))
		if l == opts.StartLedger {
			app.tabIndex = i
		}
	}
	app.detail.currency = opts.Currency
	return app
}

// Subscribe starts one sync subscription per signal key. Each change is
// delivered to the program as a message. Close the returned subscriptions
// when the program exits.
func (a *App) Subscribe(ctx context.Context, send func(tea.Msg)) []*syncsignal.Subscription {
	seen := map[string]bool{}
	var subs []*syncsignal.Subscription
	for _, m := range a.ledgers {
		k := ledger.SyncKey(m.ctrl.Ledger())
		if seen[k] {
			continue
		}
		seen[k] = true
		subs = append(subs, m.ctrl.Subscribe(ctx, func() { send(syncSignalMsg{key: k}) }, a.opts.PollInterval))
	}
	return subs
}

func (a *App) Init() tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(a.ledgers)+1)
	for i := range a.ledgers {
		cmds = append(cmds, a.ledgers[i].load(client.ListFilter{}))
	}
	cmds = append(cmds, a.tick())
	return tea.Batch(cmds...)
}

func (a *App) tick() tea.Cmd {
	if a.opts.RefreshInterval <= 0 {
		return nil
	}
	return tea.Tick(a.opts.RefreshInterval, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

func (a *App) active() *ledgerModel {
	return &a.ledgers[a.tabIndex]
}

func (a *App) ledgerIndex(l ledger.Ledger) int {
	for i := range a.ledgers {
		if a.ledgers[i].ctrl.Ledger() == l {
			return i
		}
	}
	return -1
}

// routeToLedger hands msg to the tab owning l, whichever tab is showing.
func (a *App) routeToLedger(l ledger.Ledger, msg tea.Msg) tea.Cmd {
	i := a.ledgerIndex(l)
	if i < 0 {
		return nil
	}
	var cmd tea.Cmd
	a.ledgers[i], cmd = a.ledgers[i].update(msg)
	return cmd
}

// reloadFamily reloads every ledger sharing the signal key.
func (a *App) reloadFamily(k string) tea.Cmd {
	var cmds []tea.Cmd
	for i := range a.ledgers {
		if ledger.SyncKey(a.ledgers[i].ctrl.Ledger()) == k {
			cmds = append(cmds, a.ledgers[i].reload())
		}
	}
	return tea.Batch(cmds...)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		for i := range a.ledgers {
			a.ledgers[i].width = msg.Width
			a.ledgers[i].height = msg.Height - 6
		}
		a.detail.width = msg.Width
		a.form.width = msg.Width
		a.help.width = msg.Width
		return a, nil

	// Data messages go to the owning tab regardless of the active mode.
	case entriesLoadedMsg:
		return a, a.routeToLedger(msg.ledger, msg)
	case deleteSettledMsg:
		return a, a.routeToLedger(msg.ledger, msg)
	case exportedMsg:
		return a, a.routeToLedger(msg.ledger, msg)
	case entryDetailLoadedMsg:
		a.detail, _ = a.detail.update(msg)
		return a, nil

	case syncSignalMsg:
		a.logger.Debug("sync signal", zap.String("key", msg.key))
		return a, a.reloadFamily(msg.key)

	case refreshTickMsg:
		return a, tea.Batch(a.active().reload(), a.tick())

	case entryCreatedMsg:
		var cmd tea.Cmd
		a.form, cmd = a.form.update(msg, a.backend, a.signals)
		if a.form.done {
			a.mode = modeLedger
			a.statusMsg = a.form.statusMsg
			return a, a.reloadFamily(ledger.SyncKey(a.form.ledger))
		}
		return a, cmd
	}

	if a.mode == modeForm {
		var cmd tea.Cmd
		a.form, cmd = a.form.update(msg, a.backend, a.signals)
		if a.form.cancelled {
			a.mode = modeLedger
			a.statusMsg = "Entry cancelled"
		}
		return a, cmd
	}

	// Typing into search or filter, or answering a delete prompt.
	if m := a.active(); a.mode == modeLedger && m.capturing() {
		var cmd tea.Cmd
		*m, cmd = m.update(msg)
		return a, cmd
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit

		case key.Matches(msg, keys.Tab):
			a.switchTab(1)
			return a, nil

		case key.Matches(msg, keys.ShiftTab):
			a.switchTab(-1)
			return a, nil

		case key.Matches(msg, keys.Escape):
			if a.mode != modeLedger {
				a.mode = modeLedger
			}
			return a, nil

		case key.Matches(msg, keys.Help):
			if a.mode == modeHelp {
				a.mode = modeLedger
			} else {
				a.mode = modeHelp
			}
			return a, nil

		case key.Matches(msg, keys.New):
			if a.mode == modeLedger {
				a.mode = modeForm
				a.form = newForm(a.active().ctrl.Ledger(), time.Now())
				a.form.width = a.width
				a.statusMsg = ""
				return a, nil
			}

		case key.Matches(msg, keys.Enter):
			if a.mode == modeLedger {
				if e, ok := a.active().selected(); ok {
					a.mode = modeDetail
					return a, a.detail.init(a.backend, e)
				}
				return a, nil
			}
		}
	}

	if a.mode != modeLedger {
		return a, nil
	}
	var cmd tea.Cmd
	m := a.active()
	*m, cmd = m.update(msg)
	return a, cmd
}

func (a *App) switchTab(delta int) {
	a.tabIndex = (a.tabIndex + delta + len(a.ledgers)) % len(a.ledgers)
	a.mode = modeLedger
	a.statusMsg = ""
}

func (a *App) View() string {
	// Tab bar
	tabs := ""
	for i := range a.ledgers {
		label := ledger.LedgerLabel(a.ledgers[i].ctrl.Ledger())
		if i == a.tabIndex && a.mode != modeForm {
			tabs += activeTabStyle.Render(label)
		} else {
			tabs += inactiveTabStyle.Render(label)
		}
		if i < len(a.ledgers)-1 {
			tabs += " "
		}
	}

	var content string
	switch a.mode {
	case modeLedger:
		content = a.active().view()
	case modeDetail:
		content = a.detail.view()
	case modeForm:
		content = a.form.view()
	case modeHelp:
		content = a.help.view()
	}

	status := ""
	if a.statusMsg != "" {
		status = successStyle.Render(a.statusMsg)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		tabs,
		"",
		content,
		"",
		status,
		dimStyle.Render(shortHelp(a.width)),
	)
}

// Run starts the app on the terminal and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	app := NewApp(opts)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	subs := app.Subscribe(ctx, p.Send)
	defer func() {
		for _, s := range subs {
			s.Close()
		}
	}()

	_, err := p.Run()
	return err
}
