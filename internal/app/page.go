package app

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/boardbridge/internal/device"
)

// PageID identifies each page in the application.
type PageID int

const (
	PortsPage PageID = iota
	CoresPage
	UploadPage
	MonitorPage
	HistoryPage
	SettingsPage
)

var PageOrder = []PageID{
	PortsPage,
	CoresPage,
	UploadPage,
	MonitorPage,
	HistoryPage,
	SettingsPage,
}

// Page is the interface every page in the application implements.
type Page interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Page, tea.Cmd)
	View() string
	Name() string
	ShortHelp() []key.Binding
	SetSize(width, height int)
}

// InputCapturer is an optional interface for pages with text inputs.
// When InputCaptured returns true, the app forwards all keys directly
// to the page instead of processing shortcuts like q, ?, left, etc.
type InputCapturer interface {
	InputCaptured() bool
}

// PortSelectedMsg is broadcast to all pages when a serial port is selected.
type PortSelectedMsg struct {
	Path string
}

// BoardSelectedMsg is broadcast to all pages when a board is selected.
type BoardSelectedMsg struct {
	FQBN string
}

// AdapterChangedMsg is broadcast after re-detection replaced the adapter.
type AdapterChangedMsg struct {
	Adapter device.Adapter
}

// RedetectMsg asks the app to re-run adapter detection.
type RedetectMsg struct{}

// BoardsLoadedMsg carries the boards offered by the board picker.
type BoardsLoadedMsg struct {
	Boards []device.BoardInfo
}
