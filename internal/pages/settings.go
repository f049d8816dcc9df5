package pages

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/boardbridge/internal/app"
	"github.com/buckleypaul/boardbridge/internal/config"
	"github.com/buckleypaul/boardbridge/internal/ui"
)

type settingField struct {
	label string
	key   string
}

var settingFields = []settingField{
	{"Companion URL", "companion_url"},
	{"Default Board", "default_board"},
	{"Serial Port", "serial_port"},
	{"Serial Baud Rate", "serial_baud_rate"},
	{"Export Directory", "export_dir"},
	{"Port Enumeration", "serial_enumeration"},
	{"Upload Timeout", "upload_timeout"},
	{"Log Level", "log_level"},
}

type SettingsPage struct {
	cfg           *config.Config
	projectRoot   string
	cursor        int
	editing       bool
	input         textinput.Model
	width, height int
	message       string
}

func NewSettingsPage(cfg *config.Config, projectRoot string) *SettingsPage {
	ti := textinput.New()
	ti.CharLimit = 256
	return &SettingsPage{
		cfg:         cfg,
		projectRoot: projectRoot,
		input:       ti,
	}
}

func (p *SettingsPage) Init() tea.Cmd { return nil }

func (p *SettingsPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case app.AdapterChangedMsg:
		p.message = fmt.Sprintf("Detected %s adapter", msg.Adapter.Platform())
		return p, nil

	case tea.KeyMsg:
		if p.editing {
			switch msg.String() {
			case "enter":
				p.applyValue(p.input.Value())
				p.editing = false
				p.input.Blur()
				return p, nil
			case "esc":
				p.editing = false
				p.input.Blur()
				return p, nil
			}
			var cmd tea.Cmd
			p.input, cmd = p.input.Update(msg)
			return p, cmd
		}

		switch msg.String() {
		case "down":
			if p.cursor < len(settingFields)-1 {
				p.cursor++
			}
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
		case "enter", "e":
			p.editing = true
			p.input.SetValue(p.getValue(p.cursor))
			return p, p.input.Focus()
		case "s":
			if err := config.Save(*p.cfg, p.projectRoot, false); err != nil {
				p.message = fmt.Sprintf("Error saving: %v", err)
			} else {
				p.message = "Settings saved to project"
			}
		case "S":
			if err := config.Save(*p.cfg, p.projectRoot, true); err != nil {
				p.message = fmt.Sprintf("Error saving: %v", err)
			} else {
				p.message = "Settings saved globally"
			}
		case "r":
			p.message = "Detecting..."
			return p, func() tea.Msg { return app.RedetectMsg{} }
		}
	}
	return p, nil
}

func (p *SettingsPage) View() string {
	var inner strings.Builder

	for i, f := range settingFields {
		cursor := "  "
		if i == p.cursor {
			cursor = ui.BoldStyle.Render("> ")
		}

		val := p.getValue(i)
		if val == "" {
			val = ui.DimStyle.Render("(not set)")
		}

		inner.WriteString(fmt.Sprintf("%s%-20s %s\n", cursor, f.label, val))
	}

	if p.editing {
		inner.WriteString("\n")
		inner.WriteString(fmt.Sprintf("  Edit %s:\n", settingFields[p.cursor].label))
		inner.WriteString("  " + p.input.View())
		inner.WriteString("\n")
	}

	if p.message != "" {
		inner.WriteString("\n  " + p.message)
	}

	return ui.Panel("Settings", inner.String(), p.width, 0, false)
}

func (p *SettingsPage) Name() string { return "Settings" }

func (p *SettingsPage) ShortHelp() []key.Binding {
	if p.editing {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "edit")),
		key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "save global")),
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "redetect")),
	}
}

func (p *SettingsPage) InputCaptured() bool {
	return p.editing
}

func (p *SettingsPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}

func (p *SettingsPage) getValue(idx int) string {
	switch settingFields[idx].key {
	case "companion_url":
		return p.cfg.CompanionURL
	case "default_board":
		return p.cfg.DefaultBoard
	case "serial_port":
		return p.cfg.SerialPort
	case "serial_baud_rate":
		return strconv.Itoa(p.cfg.SerialBaudRate)
	case "export_dir":
		return p.cfg.ExportDir
	case "serial_enumeration":
		return strconv.FormatBool(p.cfg.SerialEnumerationEnabled())
	case "upload_timeout":
		if p.cfg.UploadTimeout == 0 {
			return ""
		}
		return time.Duration(p.cfg.UploadTimeout).String()
	case "log_level":
		return p.cfg.LogLevel
	}
	return ""
}

func (p *SettingsPage) applyValue(val string) {
	field := settingFields[p.cursor]
	switch field.key {
	case "companion_url":
		p.cfg.CompanionURL = val
	case "default_board":
		p.cfg.DefaultBoard = val
	case "serial_port":
		p.cfg.SerialPort = val
	case "serial_baud_rate":
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			p.message = fmt.Sprintf("Invalid baud rate %q", val)
			return
		}
		p.cfg.SerialBaudRate = n
	case "export_dir":
		p.cfg.ExportDir = val
	case "serial_enumeration":
		b, err := strconv.ParseBool(val)
		if err != nil {
			p.message = fmt.Sprintf("Expected true or false, got %q", val)
			return
		}
		p.cfg.SerialEnumeration = &b
	case "upload_timeout":
		if val == "" {
			p.cfg.UploadTimeout = 0
			break
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			p.message = fmt.Sprintf("Invalid duration %q", val)
			return
		}
		p.cfg.UploadTimeout = config.Duration(d)
	case "log_level":
		p.cfg.LogLevel = val
	}
	p.message = fmt.Sprintf("%s updated", field.label)
}
