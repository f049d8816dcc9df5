package pages

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/boardbridge/internal/app"
	"github.com/buckleypaul/boardbridge/internal/store"
	"github.com/buckleypaul/boardbridge/internal/ui"
)

type historyTab int

const (
	tabUploads historyTab = iota
	tabCompiles
	tabInstalls
	tabSerialLogs
	tabCount
)

var historyTabNames = [tabCount]string{"Uploads", "Compiles", "Installs", "Serial"}

const timeLayout = "2006-01-02 15:04:05"

type HistoryPage struct {
	store     *store.Store
	activeTab historyTab
	width     int
	height    int
}

func NewHistoryPage(s *store.Store) *HistoryPage {
	return &HistoryPage{store: s}
}

func (p *HistoryPage) Init() tea.Cmd { return nil }

func (p *HistoryPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "]":
			p.activeTab = (p.activeTab + 1) % tabCount
		case "[":
			p.activeTab = (p.activeTab - 1 + tabCount) % tabCount
		}
	}
	return p, nil
}

func (p *HistoryPage) View() string {
	var b strings.Builder
	for i, name := range historyTabNames {
		if historyTab(i) == p.activeTab {
			b.WriteString(ui.CursorStyle.Render("[" + name + "]"))
		} else {
			b.WriteString(ui.DimStyle.Render(" " + name + " "))
		}
		b.WriteString(" ")
	}
	b.WriteString("\n\n")

	var (
		lines []string
		err   error
	)
	switch p.activeTab {
	case tabUploads:
		lines, err = p.uploadLines()
	case tabCompiles:
		lines, err = p.compileLines()
	case tabInstalls:
		lines, err = p.installLines()
	case tabSerialLogs:
		lines, err = p.serialLines()
	}

	switch {
	case err != nil:
		b.WriteString(ui.ErrorStyle.Render("Could not read history: " + err.Error()))
	case len(lines) == 0:
		b.WriteString(ui.DimStyle.Render("Nothing recorded yet."))
	default:
		limit := p.height - 6
		if limit > 0 && len(lines) > limit {
			lines = lines[len(lines)-limit:]
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	return ui.Panel("History", b.String(), p.width, 0, false)
}

func (p *HistoryPage) uploadLines() ([]string, error) {
	recs, err := p.store.Uploads()
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, r := range recs {
		text := fmt.Sprintf("%s  %-20s %-14s %s", r.Timestamp.Format(timeLayout), r.Board, r.Port, r.Duration)
		if !r.Success {
			text += "  " + r.Stage + ": " + r.Error
		}
		lines = append(lines, ui.ResultLine(r.Success, text))
	}
	return lines, nil
}

func (p *HistoryPage) compileLines() ([]string, error) {
	recs, err := p.store.Compiles()
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, r := range recs {
		text := fmt.Sprintf("%s  %-20s %s", r.Timestamp.Format(timeLayout), r.Board, r.Duration)
		if !r.Success {
			text += "  " + r.Error
		}
		lines = append(lines, ui.ResultLine(r.Success, text))
	}
	return lines, nil
}

func (p *HistoryPage) installLines() ([]string, error) {
	recs, err := p.store.Installs()
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, r := range recs {
		text := fmt.Sprintf("%s  %-20s %s", r.Timestamp.Format(timeLayout), r.CoreID, r.Duration)
		if !r.Success {
			text += "  " + r.Error
		}
		lines = append(lines, ui.ResultLine(r.Success, text))
	}
	return lines, nil
}

func (p *HistoryPage) serialLines() ([]string, error) {
	recs, err := p.store.SerialLogs()
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, r := range recs {
		lines = append(lines, fmt.Sprintf("%s  %-14s %6d  %s", r.Timestamp.Format(timeLayout), r.Port, r.BaudRate, r.LogFile))
	}
	return lines, nil
}

func (p *HistoryPage) Name() string { return "History" }

func (p *HistoryPage) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("[", "]"), key.WithHelp("[/]", "switch tab")),
	}
}

func (p *HistoryPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}
