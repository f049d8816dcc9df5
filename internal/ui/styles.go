package ui

import "github.com/charmbracelet/lipgloss"

// Palette. Teal is the brand color; the rest signal state.
var (
	Primary   = lipgloss.Color("37")  // teal
	Secondary = lipgloss.Color("111") // light blue
	Success   = lipgloss.Color("78")
	Warning   = lipgloss.Color("214")
	Error     = lipgloss.Color("203")
	Subtle    = lipgloss.Color("241")
	Surface   = lipgloss.Color("236")
	Text      = lipgloss.Color("252")
	TextDim   = lipgloss.Color("245")
)

var (
	SidebarStyle = lipgloss.NewStyle().
			Width(20).
			BorderStyle(lipgloss.NormalBorder()).
			BorderRight(true).
			BorderTop(false).
			BorderBottom(false).
			BorderLeft(false).
			BorderForeground(Surface).
			Padding(1, 1)

	SidebarItemStyle   = lipgloss.NewStyle().Foreground(TextDim).PaddingLeft(1)
	SidebarActiveStyle = lipgloss.NewStyle().Foreground(Primary).Bold(true).PaddingLeft(1)

	ContentStyle = lipgloss.NewStyle().Padding(1, 2)

	// The target bar and the status bar share one surface.
	StatusBarStyle    = lipgloss.NewStyle().Foreground(TextDim).Background(Surface).Padding(0, 1)
	StatusBarKeyStyle = lipgloss.NewStyle().Foreground(Text).Background(Surface).Bold(true)
	TargetLabelStyle  = lipgloss.NewStyle().Foreground(TextDim).Background(Surface)
	TargetValueStyle  = lipgloss.NewStyle().Foreground(Text).Background(Surface).Bold(true)

	TitleStyle = lipgloss.NewStyle().Foreground(Primary).Bold(true).MarginBottom(1)

	BoldStyle   = lipgloss.NewStyle().Bold(true)
	DimStyle    = lipgloss.NewStyle().Foreground(TextDim)
	ErrorStyle  = lipgloss.NewStyle().Foreground(Error)
	CursorStyle = lipgloss.NewStyle().Foreground(Primary).Bold(true)
)
