package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/boardbridge/internal/app"
	"github.com/buckleypaul/boardbridge/internal/device"
	"github.com/buckleypaul/boardbridge/internal/ui"
)

// PortsLoadedMsg carries a port listing.
type PortsLoadedMsg struct {
	Ports []device.SerialPort
}

func listPorts(a device.Adapter) tea.Cmd {
	return func() tea.Msg {
		return PortsLoadedMsg{Ports: a.ListPorts(context.Background())}
	}
}

type PortsPage struct {
	adapter       device.Adapter
	ports         []device.SerialPort
	cursor        int
	selected      string
	loading       bool
	width, height int
}

func NewPortsPage(a device.Adapter, selected string) *PortsPage {
	return &PortsPage{adapter: a, selected: selected}
}

func (p *PortsPage) Init() tea.Cmd {
	if !p.adapter.Capabilities().CanListPorts {
		return nil
	}
	p.loading = true
	return listPorts(p.adapter)
}

func (p *PortsPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case app.AdapterChangedMsg:
		p.adapter = msg.Adapter
		p.ports = nil
		p.cursor = 0
		return p, p.Init()

	case app.PortSelectedMsg:
		p.selected = msg.Path
		return p, nil

	case PortsLoadedMsg:
		p.loading = false
		p.ports = msg.Ports
		if p.cursor >= len(p.ports) {
			p.cursor = 0
		}
		return p, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			return p, p.Init()
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down":
			if p.cursor < len(p.ports)-1 {
				p.cursor++
			}
		case "enter":
			if p.cursor < len(p.ports) {
				path := p.ports[p.cursor].Path
				return p, func() tea.Msg { return app.PortSelectedMsg{Path: path} }
			}
		}
	}
	return p, nil
}

func (p *PortsPage) View() string {
	var b strings.Builder

	if !p.adapter.Capabilities().CanListPorts {
		b.WriteString("Serial ports cannot be listed on this host.\n")
		b.WriteString(ui.DimStyle.Render("Start the companion or enable serial_enumeration in settings."))
		return ui.Panel("Ports", b.String(), p.width, 0, false)
	}

	if p.loading {
		b.WriteString("Scanning...\n")
	} else if len(p.ports) == 0 {
		b.WriteString("No serial ports found. Plug in a board and press r.\n")
	}

	for i, port := range p.ports {
		cursor := "  "
		if i == p.cursor {
			cursor = ui.CursorStyle.Render("> ")
		}
		line := fmt.Sprintf("%s%-24s", cursor, port.Path)
		if port.Manufacturer != "" {
			line += " " + port.Manufacturer
		}
		if port.VendorID != "" {
			line += ui.DimStyle.Render(fmt.Sprintf("  %s:%s", port.VendorID, port.ProductID))
		}
		if port.Path == p.selected {
			line += " " + ui.SuccessBadge("selected")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return ui.Panel("Ports", b.String(), p.width, 0, false)
}

func (p *PortsPage) Name() string { return "Ports" }

func (p *PortsPage) ShortHelp() []key.Binding {
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
	}
}

func (p *PortsPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}
