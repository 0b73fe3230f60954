package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorBrand   = lipgloss.Color("#2DB682")
	colorSubtle  = lipgloss.Color("#64748B")
	colorText    = lipgloss.Color("#E2E8F0")
	colorWarning = lipgloss.Color("#F59E0B")
	colorDanger  = lipgloss.Color("#FF0055")

	titleStyle  = lipgloss.NewStyle().Foreground(colorBrand).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(colorSubtle).Bold(true).Width(11)
	valueStyle  = lipgloss.NewStyle().Foreground(colorText)
	activeStyle = lipgloss.NewStyle().Foreground(colorBrand).Bold(true)
	subtleStyle = lipgloss.NewStyle().Foreground(colorSubtle)
	warnStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	errStyle    = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)

	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBrand).
			Padding(1, 2)
)
