package pages

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/buckleypaul/boardbridge/internal/app"
	"github.com/buckleypaul/boardbridge/internal/cores"
	"github.com/buckleypaul/boardbridge/internal/device"
	"github.com/buckleypaul/boardbridge/internal/ui"
)

type coresRefreshedMsg struct{ err error }

type coreInstalledMsg struct {
	coreID string
	ok     bool
}

type coreSearchMsg struct {
	query   string
	results []device.CoreInfo
}

type coreStatusMsg struct {
	fqbn   string
	status device.CoreStatus
}

type CoresPage struct {
	manager *cores.Manager
	history cores.History
	log     zerolog.Logger

	board    string
	status   *device.CoreStatus
	search   textinput.Model
	searchOn bool
	query    string
	cursor   int
	busy     bool
	spinner  spinner.Model
	message  string

	width, height int
}

func NewCoresPage(a device.Adapter, history cores.History, board string, log zerolog.Logger) *CoresPage {
	ti := textinput.New()
	ti.Placeholder = "esp32, avr, rp2040..."
	ti.CharLimit = 64
	ti.Prompt = "/ "

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &CoresPage{
		manager: cores.New(a, history, log),
		history: history,
		log:     log,
		board:   board,
		search:  ti,
		spinner: sp,
	}
}

func (p *CoresPage) refresh() tea.Cmd {
	m := p.manager
	p.busy = true
	return tea.Batch(p.spinner.Tick, func() tea.Msg {
		return coresRefreshedMsg{err: m.Refresh(context.Background())}
	})
}

func (p *CoresPage) checkStatus() tea.Cmd {
	if p.board == "" {
		return nil
	}
	m, fqbn := p.manager, p.board
	return func() tea.Msg {
		return coreStatusMsg{fqbn: fqbn, status: m.CheckCoreStatus(context.Background(), fqbn)}
	}
}

func (p *CoresPage) Init() tea.Cmd {
	return tea.Batch(p.refresh(), p.checkStatus())
}

func (p *CoresPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case app.AdapterChangedMsg:
		p.manager = cores.New(msg.Adapter, p.history, p.log)
		p.status = nil
		p.message = ""
		return p, p.Init()

	case app.BoardSelectedMsg:
		p.board = msg.FQBN
		p.status = nil
		return p, p.checkStatus()

	case coresRefreshedMsg:
		p.busy = p.manager.Installing()
		return p, nil

	case coreStatusMsg:
		if msg.fqbn == p.board {
			s := msg.status
			p.status = &s
		}
		return p, nil

	case coreSearchMsg:
		p.query = msg.query
		p.cursor = 0
		if len(msg.results) == 0 {
			p.message = fmt.Sprintf("No cores match %q", msg.query)
		} else {
			p.message = ""
		}
		return p, nil

	case coreInstalledMsg:
		p.busy = false
		if msg.ok {
			p.message = "Installed " + msg.coreID
		} else {
			p.message = "Install failed: " + p.manager.State().Err
		}
		return p, p.checkStatus()

	case spinner.TickMsg:
		if !p.busy {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case tea.KeyMsg:
		if p.searchOn {
			return p.handleSearchKey(msg)
		}
		switch msg.String() {
		case "r":
			return p, p.refresh()
		case "/":
			p.searchOn = true
			return p, p.search.Focus()
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
		case "down":
			if p.cursor < len(p.manager.State().SearchResults)-1 {
				p.cursor++
			}
		case "i":
			return p, p.installSelected()
		case "I":
			if p.status != nil && p.status.CoreID != "" && !p.status.Installed {
				return p, p.install(p.status.CoreID)
			}
		}
	}
	return p, nil
}

func (p *CoresPage) handleSearchKey(msg tea.KeyMsg) (app.Page, tea.Cmd) {
	switch msg.String() {
	case "esc":
		p.searchOn = false
		p.search.Blur()
		return p, nil
	case "enter":
		p.searchOn = false
		p.search.Blur()
		query := strings.TrimSpace(p.search.Value())
		m := p.manager
		return p, func() tea.Msg {
			return coreSearchMsg{query: query, results: m.Search(context.Background(), query)}
		}
	}
	var cmd tea.Cmd
	p.search, cmd = p.search.Update(msg)
	return p, cmd
}

func (p *CoresPage) installSelected() tea.Cmd {
	results := p.manager.State().SearchResults
	if p.cursor >= len(results) {
		return nil
	}
	return p.install(results[p.cursor].ID)
}

func (p *CoresPage) install(coreID string) tea.Cmd {
	if p.manager.Installing() {
		p.message = cores.ErrInstallInProgress.Error()
		return nil
	}
	m := p.manager
	p.busy = true
	p.message = "Installing " + coreID + "..."
	return tea.Batch(p.spinner.Tick, func() tea.Msg {
		return coreInstalledMsg{coreID: coreID, ok: m.InstallCore(context.Background(), coreID)}
	})
}

func (p *CoresPage) View() string {
	s := p.manager.State()
	var b strings.Builder

	switch {
	case s.Loading:
		b.WriteString(p.spinner.View() + " Loading toolchain state...\n")
	case s.CLIAvailable:
		b.WriteString(ui.SuccessBadge("arduino-cli " + s.CLIVersion) + "\n")
	case s.Err == "":
		b.WriteString(ui.WarningBadge("arduino-cli missing") + "\n")
	}
	if s.Err != "" {
		b.WriteString(ui.ErrorStyle.Render(s.Err) + "\n")
	}

	if p.board != "" {
		b.WriteString("\n" + ui.BoldStyle.Render("Board ") + p.board + "\n")
		if st := p.status; st != nil && st.CoreID != "" {
			b.WriteString(fmt.Sprintf("  core %s %s", st.CoreID, ui.CoreBadges(st.Installed, st.Bundled)))
			if !st.Installed {
				b.WriteString(ui.DimStyle.Render("  I:install"))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n" + ui.BoldStyle.Render("Installed cores") + "\n")
	if len(s.InstalledCores) == 0 {
		b.WriteString(ui.DimStyle.Render("  none") + "\n")
	}
	for _, c := range s.InstalledCores {
		line := fmt.Sprintf("  %-20s %-10s", c.ID, c.InstalledVersion)
		if c.LatestVersion != "" && c.LatestVersion != c.InstalledVersion {
			line += ui.DimStyle.Render(" latest " + c.LatestVersion)
		}
		if p.manager.IsBundled(c.ID) {
			line += " " + ui.CoreBadges(false, true)
		}
		b.WriteString(line + "\n")
	}

	if n := len(s.InstalledBoards); n > 0 {
		b.WriteString(ui.DimStyle.Render(fmt.Sprintf("  %d boards available", n)) + "\n")
	}

	if p.searchOn || p.query != "" {
		b.WriteString("\n" + ui.BoldStyle.Render("Search") + "\n")
		if p.searchOn {
			b.WriteString(p.search.View() + "\n")
		}
		for i, c := range s.SearchResults {
			cursor := "  "
			if i == p.cursor {
				cursor = ui.CursorStyle.Render("> ")
			}
			line := fmt.Sprintf("%s%-20s %s", cursor, c.ID, c.Name)
			badges := ui.CoreBadges(p.manager.IsInstalled(c.ID), p.manager.IsBundled(c.ID))
			if badges != "" {
				line += " " + badges
			}
			b.WriteString(line + "\n")
		}
	}

	if s.Installing {
		b.WriteString("\n" + p.spinner.View() + " Installing " + s.InstallingCore + "\n")
	} else if p.message != "" {
		b.WriteString("\n" + p.message + "\n")
	}

	return ui.Panel("Cores", b.String(), p.width, 0, false)
}

func (p *CoresPage) Name() string { return "Cores" }

func (p *CoresPage) ShortHelp() []key.Binding {
	if p.searchOn {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search")),
			key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "install")),
	}
}

func (p *CoresPage) InputCaptured() bool {
	return p.searchOn
}

func (p *CoresPage) SetSize(w, h int) {
	p.width = w
	p.height = h
}
