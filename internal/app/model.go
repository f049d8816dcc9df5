package app

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/buckleypaul/boardbridge/internal/config"
	"github.com/buckleypaul/boardbridge/internal/device"
	"github.com/buckleypaul/boardbridge/internal/ui"
)

type FocusArea int

const (
	FocusSidebar FocusArea = iota
	FocusContent
)

// AdapterSource hands out the active adapter. *detect.Context satisfies it.
type AdapterSource interface {
	Adapter(ctx context.Context) device.Adapter
	Redetect(ctx context.Context) device.Adapter
}

type Model struct {
	pages        map[PageID]Page
	activePage   PageID
	focus        FocusArea
	width        int
	height       int
	showHelp     bool
	selectedPort string
	selectedFQBN string
	platform     device.Platform
	picker       *Picker
	source       AdapterSource
	cfg          *config.Config
	root         string
	log          zerolog.Logger
}

func New(pages map[PageID]Page, source AdapterSource, cfg *config.Config, root string, log zerolog.Logger) Model {
	return Model{
		pages:        pages,
		source:       source,
		cfg:          cfg,
		root:         root,
		log:          log,
		selectedPort: cfg.SerialPort,
		selectedFQBN: cfg.DefaultBoard,
		platform:     source.Adapter(context.Background()).Platform(),
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, p := range m.pages {
		if cmd := p.Init(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

func (m Model) loadBoards() tea.Cmd {
	a := m.source.Adapter(context.Background())
	return func() tea.Msg {
		return BoardsLoadedMsg{Boards: a.ListInstalledBoards(context.Background())}
	}
}

func (m Model) redetect() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		return AdapterChangedMsg{Adapter: source.Redetect(context.Background())}
	}
}

func (m Model) broadcast(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	for id, page := range m.pages {
		newPage, cmd := page.Update(msg)
		m.pages[id] = newPage
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) persist() {
	if err := config.Save(*m.cfg, m.root, false); err != nil {
		m.log.Warn().Err(err).Msg("Saving selection failed")
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentWidth := m.width - sidebarWidth
		contentHeight := m.height - 2 - 1 // status bar + target bar
		for _, p := range m.pages {
			p.SetSize(contentWidth, contentHeight)
		}
		return m, nil

	case BoardsLoadedMsg:
		if m.picker == nil {
			return m, nil
		}
		m.picker.SetItems(BoardItems(msg.Boards))
		return m, nil

	case PickerSelectedMsg:
		m.picker = nil
		return m, func() tea.Msg { return BoardSelectedMsg{FQBN: msg.Value} }

	case PickerClosedMsg:
		m.picker = nil
		return m, nil

	case BoardSelectedMsg:
		m.selectedFQBN = msg.FQBN
		m.cfg.DefaultBoard = msg.FQBN
		m.persist()
		return m.broadcast(msg)

	case PortSelectedMsg:
		m.selectedPort = msg.Path
		m.cfg.SerialPort = msg.Path
		m.persist()
		return m.broadcast(msg)

	case RedetectMsg:
		return m, m.redetect()

	case AdapterChangedMsg:
		m.platform = msg.Adapter.Platform()
		m.log.Info().Str("platform", string(m.platform)).Msg("Adapter re-detected")
		return m.broadcast(msg)

	case tea.KeyMsg:
		if m.picker != nil {
			var cmd tea.Cmd
			m.picker, cmd = m.picker.Update(msg)
			return m, cmd
		}

		// When a page has an active text input, forward all keys
		// directly to the page; only ctrl+c still quits.
		if m.focus == FocusContent {
			if ic, ok := m.pages[m.activePage].(InputCapturer); ok && ic.InputCaptured() {
				if msg.String() == "ctrl+c" {
					return m, tea.Quit
				}
				page := m.pages[m.activePage]
				newPage, cmd := page.Update(msg)
				m.pages[m.activePage] = newPage
				return m, cmd
			}
		}

		switch {
		case key.Matches(msg, GlobalKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, GlobalKeys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, GlobalKeys.ToggleFocus):
			if m.focus == FocusSidebar {
				m.focus = FocusContent
				return m, nil
			}
		}

		if m.focus == FocusSidebar {
			if key.Matches(msg, GlobalKeys.BoardPicker) {
				m.picker = NewPicker("Select Board", m.selectedFQBN)
				m.picker.SetSize(m.width-sidebarWidth, m.height-2-1)
				return m, m.loadBoards()
			}
			switch msg.String() {
			case "up":
				m.prevPage()
				return m, nil
			case "down":
				m.nextPage()
				return m, nil
			case "enter", "right":
				m.focus = FocusContent
				return m, nil
			}
			return m, nil
		}

		if msg.String() == "left" {
			m.focus = FocusSidebar
			return m, nil
		}
		page := m.pages[m.activePage]
		newPage, cmd := page.Update(msg)
		m.pages[m.activePage] = newPage
		return m, cmd
	}

	// Non-key messages (command results, etc.): forward to all pages
	// so responses reach the page that initiated the command
	return m.broadcast(msg)
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	contentWidth := m.width - sidebarWidth
	contentHeight := m.height - 2 - 1

	page := m.pages[m.activePage]

	targetBar := renderTargetBar(m.platform, m.selectedPort, m.selectedFQBN, m.width, m.focus == FocusSidebar)
	sidebar := renderSidebar(PageOrder, m.activePage, m.pages, contentHeight, m.focus == FocusSidebar)

	body := page.View()
	if m.showHelp {
		body = renderHelp(page.ShortHelp())
	}
	content := ui.ContentStyle.
		Width(contentWidth).
		Height(contentHeight).
		Render(body)

	if m.picker != nil {
		m.picker.SetSize(contentWidth, contentHeight)
		content = lipgloss.Place(
			contentWidth, contentHeight,
			lipgloss.Center, lipgloss.Center,
			m.picker.View(),
		)
	}

	statusBar := renderStatusBar(page.ShortHelp(), m.width, m.focus)

	return renderLayout(targetBar, sidebar, content, statusBar)
}

func (m *Model) nextPage() {
	for i, id := range PageOrder {
		if id == m.activePage {
			m.activePage = PageOrder[(i+1)%len(PageOrder)]
			return
		}
	}
}

func (m *Model) prevPage() {
	for i, id := range PageOrder {
		if id == m.activePage {
			m.activePage = PageOrder[(i-1+len(PageOrder))%len(PageOrder)]
			return
		}
	}
}
