package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

// 256-colour palette shared by every screen.
const (
	colorAccent = lipgloss.Color("99")
	colorText   = lipgloss.Color("252")
	colorMuted  = lipgloss.Color("241")
	colorFaint  = lipgloss.Color("240")
	colorTabBg  = lipgloss.Color("236")
	colorTabFg  = lipgloss.Color("245")
	colorGood   = lipgloss.Color("82")
	colorBad    = lipgloss.Color("196")
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginBottom(1)
	subtitleStyle = lipgloss.NewStyle().Foreground(colorMuted)

	activeTabStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Background(colorTabBg).Padding(0, 2)
	inactiveTabStyle = lipgloss.NewStyle().Foreground(colorTabFg).Padding(0, 2)

	errorStyle   = lipgloss.NewStyle().Foreground(colorBad)
	successStyle = lipgloss.NewStyle().Foreground(colorGood)

	// Debit raises a ledger's balance, credit lowers it.
	debitStyle  = lipgloss.NewStyle().Foreground(colorGood)
	creditStyle = lipgloss.NewStyle().Foreground(colorBad)

	labelStyle    = lipgloss.NewStyle().Bold(true).Width(16)
	selectedStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	dimStyle      = lipgloss.NewStyle().Foreground(colorFaint)

	// deletingStyle marks the pending-delete counter while the server has
	// not answered yet.
	deletingStyle = lipgloss.NewStyle().Foreground(colorFaint).Strikethrough(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			BorderBottom(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(colorFaint)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorFaint).
			Padding(1, 2)

	noteStyle = lipgloss.NewStyle().Foreground(colorText)
)

// balanceStyle colours a balance by sign.
func balanceStyle(d decimal.Decimal) lipgloss.Style {
	if d.IsNegative() {
		return creditStyle
	}
	return debitStyle
}
