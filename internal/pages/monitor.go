package pages

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/buckleypaul/boardbridge/internal/app"
	"github.com/buckleypaul/boardbridge/internal/serial"
	"github.com/buckleypaul/boardbridge/internal/store"
	"github.com/buckleypaul/boardbridge/internal/ui"
)

const maxMonitorBytes = 64 * 1024

type serialDataMsg struct {
	data string
}

// SerialSession is what the monitor page needs from a serial connection.
// *serial.Monitor satisfies it.
type SerialSession interface {
	Connect(port string, baudRate int) error
	Disconnect()
	Connected() bool
	Write(data []byte) error
	Record(w io.Writer)
	DataChan() <-chan string
}

var _ SerialSession = (*serial.Monitor)(nil)

func waitForSerial(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		return serialDataMsg{data: <-ch}
	}
}

type MonitorPage struct {
	session  SerialSession
	store    *store.Store
	baudRate int
	port     string
	log      zerolog.Logger

	logFile   *os.File
	listening bool
	output    strings.Builder
	viewport  viewport.Model
	input     textinput.Model
	sending   bool
	message   string

	width, height int
}

func NewMonitorPage(session SerialSession, s *store.Store, port string, baudRate int, log zerolog.Logger) *MonitorPage {
	ti := textinput.New()
	ti.Placeholder = "text to send"
	ti.CharLimit = 256
	ti.Prompt = "> "

	return &MonitorPage{
		session:  session,
		store:    s,
		port:     port,
		baudRate: baudRate,
		log:      log,
		viewport: viewport.New(0, 0),
		input:    ti,
	}
}

func (p *MonitorPage) Init() tea.Cmd { return nil }

func (p *MonitorPage) connect() tea.Cmd {
	if p.port == "" {
		p.message = "Select a port on the Ports page first"
		return nil
	}
	if err := p.session.Connect(p.port, p.baudRate); err != nil {
		p.message = ui.ResultLine(false, err.Error())
		return nil
	}
	p.message = fmt.Sprintf("Connected to %s at %d baud", p.port, p.baudRate)
	p.startLog()

	if p.listening {
		return nil
	}
	p.listening = true
	return waitForSerial(p.session.DataChan())
}

// startLog opens a session log under the store's logs directory and records
// the session in history.
func (p *MonitorPage) startLog() {
	if p.store == nil {
		return
	}
	dir, err := p.store.LogsDir()
	if err != nil {
		p.log.Warn().Err(err).Msg("No logs directory")
		return
	}
	now := time.Now()
	name := fmt.Sprintf("serial-%s-%s.log", sanitizePort(p.port), now.Format("20060102-150405"))
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		p.log.Warn().Err(err).Msg("Could not open session log")
		return
	}
	p.logFile = f
	p.session.Record(f)
	if err := p.store.AddSerialLog(store.SerialLog{
		Port:      p.port,
		BaudRate:  p.baudRate,
		Timestamp: now,
		LogFile:   f.Name(),
	}); err != nil {
		p.log.Warn().Err(err).Msg("Could not record serial session")
	}
}

func (p *MonitorPage) stopLog() {
	p.session.Record(nil)
	if p.logFile != nil {
		p.logFile.Close()
		p.logFile = nil
	}
}

func sanitizePort(port string) string {
	return strings.Trim(strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '.':
			return '_'
		}
		return r
	}, port), "_")
}

func (p *MonitorPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case app.PortSelectedMsg:
		p.port = msg.Path
		return p, nil

	case serialDataMsg:
		p.output.WriteString(msg.data)
		if p.output.Len() > maxMonitorBytes {
			trimmed := p.output.String()[p.output.Len()-maxMonitorBytes/2:]
			p.output.Reset()
			p.output.WriteString(trimmed)
		}
		p.viewport.SetContent(ui.Fit(p.output.String(), p.viewport.Width))
		p.viewport.GotoBottom()
		return p, waitForSerial(p.session.DataChan())

	case tea.KeyMsg:
		if p.sending {
			switch msg.String() {
			case "enter":
				line := p.input.Value() + "\n"
				p.input.SetValue("")
				if err := p.session.Write([]byte(line)); err != nil {
					p.message = ui.ResultLine(false, "send: "+err.Error())
				}
				return p, nil
			case "esc":
				p.sending = false
				p.input.Blur()
				return p, nil
			}
			var cmd tea.Cmd
			p.input, cmd = p.input.Update(msg)
			return p, cmd
		}

		switch msg.String() {
		case "c":
			return p, p.connect()
		case "d":
			p.session.Disconnect()
			p.stopLog()
			p.message = "Disconnected"
			return p, nil
		case "w":
			if !p.session.Connected() {
				p.message = "Not connected"
				return p, nil
			}
			p.sending = true
			return p, p.input.Focus()
		case "x":
			p.output.Reset()
			p.viewport.SetContent("")
			return p, nil
		}
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *MonitorPage) View() string {
	var b strings.Builder
	status := ui.ErrorBadge("disconnected")
	if p.session.Connected() {
		status = ui.SuccessBadge("connected")
	}
	b.WriteString(fmt.Sprintf("%s  %s @ %d\n", status, orNone(p.port), p.baudRate))
	if p.message != "" {
		b.WriteString(p.message + "\n")
	}
	b.WriteString("\n" + p.viewport.View())
	if p.sending {
		b.WriteString("\n" + p.input.View())
	}
	return ui.Panel("Monitor", b.String(), p.width, 0, false)
}

func (p *MonitorPage) Name() string { return "Monitor" }

func (p *MonitorPage) ShortHelp() []key.Binding {
	if p.sending {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "stop typing")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect")),
		key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "disconnect")),
		key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "write")),
		key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear")),
	}
}

func (p *MonitorPage) InputCaptured() bool {
	return p.sending
}

func (p *MonitorPage) SetSize(w, h int) {
	p.width = w
	p.height = h
	vpHeight := h - 8
	if vpHeight < 3 {
		vpHeight = 3
	}
	p.viewport.Width = w - 4
	p.viewport.Height = vpHeight
}
