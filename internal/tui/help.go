package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
)

const helpNotes = `Deletes take effect on screen at once. If the server refuses one, the
entry comes back in its place and the reason is shown; if the server no
longer has it, the ledger is reloaded.

Every terminal or browser tab on the same server stays in sync: a change
in one tab makes the others reload the affected ledger. Expense and bank
ledgers reload together.

Balances run in date order whatever column the table is sorted by.`

type helpModel struct {
	help  help.Model
	width int
}

func newHelpModel() helpModel {
	h := help.New()
	h.ShowAll = true
	return helpModel{help: h}
}

func (m *helpModel) view() string {
	m.help.Width = m.width
	var b strings.Builder
	b.WriteString(titleStyle.Render("Keys"))
	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	b.WriteString("\n\n")
	b.WriteString(titleStyle.Render("How screens stay consistent"))
	b.WriteString("\n")
	b.WriteString(noteStyle.Render(helpNotes))
	b.WriteString("\n\n" + dimStyle.Render("  Press ESC to go back"))
	return boxStyle.Render(b.String())
}

// shortHelp is the one-line key summary under every screen.
func shortHelp(width int) string {
	h := help.New()
	h.Width = width
	return h.ShortHelpView(keys.ShortHelp())
}
