package pages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/buckleypaul/boardbridge/internal/app"
	"github.com/buckleypaul/boardbridge/internal/device"
	"github.com/buckleypaul/boardbridge/internal/ui"
	"github.com/buckleypaul/boardbridge/internal/upload"
)

type pipelineUpdateMsg struct {
	update upload.Update
	ch     <-chan upload.Update
}

type pipelineClosedMsg struct{}

type projectExportedMsg struct {
	name string
	err  error
}

type projectImportedMsg struct {
	file *device.ProjectFile
	err  error
}

func waitForUpdate(ch <-chan upload.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return pipelineClosedMsg{}
		}
		return pipelineUpdateMsg{update: u, ch: ch}
	}
}

// UploadOptions configures the upload page.
type UploadOptions struct {
	History   upload.History
	Timeout   time.Duration
	Chooser   *Chooser
	ExportDir string
	Port      string
	Board     string
}

type UploadPage struct {
	adapter  device.Adapter
	pipeline *upload.Pipeline
	opts     UploadOptions
	log      zerolog.Logger

	source   textinput.Model
	editing  bool
	imported *device.ProjectFile

	running  bool
	state    upload.State
	percent  int
	bar      progress.Model
	output   strings.Builder
	viewport viewport.Model
	prompt   *filePrompt
	message  string

	width, height int
}

func NewUploadPage(a device.Adapter, opts UploadOptions, log zerolog.Logger) *UploadPage {
	src := textinput.New()
	src.Placeholder = "path to sketch (.ino)"
	src.CharLimit = 512
	src.Prompt = ""

	return &UploadPage{
		adapter:  a,
		pipeline: upload.New(a, opts.History, opts.Timeout, log),
		opts:     opts,
		log:      log,
		source:   src,
		state:    upload.Idle,
		bar:      progress.New(progress.WithDefaultGradient()),
		viewport: viewport.New(0, 0),
	}
}

func (p *UploadPage) Init() tea.Cmd {
	return p.opts.Chooser.wait()
}

func (p *UploadPage) appendOutput(line string) {
	p.output.WriteString(line)
	p.output.WriteString("\n")
	p.viewport.SetContent(ui.Fit(p.output.String(), p.viewport.Width))
	p.viewport.GotoBottom()
}

// code returns the program to send: the file named in the source field, or
// the last imported project when the field is empty.
func (p *UploadPage) code() (string, string, error) {
	path := strings.TrimSpace(p.source.Value())
	if path == "" {
		if p.imported != nil {
			return p.imported.Name, p.imported.Content, nil
		}
		return "", "", fmt.Errorf("no source: enter a sketch path or import a project")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	return filepath.Base(path), string(data), nil
}

func (p *UploadPage) start(compileOnly bool) tea.Cmd {
	if p.running {
		p.message = upload.ErrBusy.Error()
		return nil
	}
	if p.opts.Board == "" {
		p.message = "Select a board first (b on the sidebar)"
		return nil
	}
	if !compileOnly && p.opts.Port == "" {
		p.message = "Select a port on the Ports page first"
		return nil
	}
	_, code, err := p.code()
	if err != nil {
		p.message = err.Error()
		return nil
	}

	p.running = true
	p.message = ""
	p.percent = 0
	p.output.Reset()

	ch := make(chan upload.Update, 32)
	pl, port, board := p.pipeline, p.opts.Port, p.opts.Board
	run := func() tea.Msg {
		defer close(ch)
		send := func(u upload.Update) { ch <- u }
		if compileOnly {
			pl.Compile(context.Background(), code, board, send)
		} else {
			pl.Run(context.Background(), port, code, board, send)
		}
		return nil
	}
	verb := "Uploading to " + port
	if compileOnly {
		verb = "Compiling"
	}
	p.appendOutput(fmt.Sprintf("%s (%s)...", verb, board))
	return tea.Batch(run, waitForUpdate(ch))
}

func (p *UploadPage) Update(msg tea.Msg) (app.Page, tea.Cmd) {
	var promptCmd tea.Cmd
	if p.prompt != nil {
		done, cmd := p.prompt.update(msg)
		promptCmd = cmd
		if done {
			p.prompt = nil
			promptCmd = tea.Batch(cmd, p.opts.Chooser.wait())
		}
		if _, isKey := msg.(tea.KeyMsg); isKey {
			return p, promptCmd
		}
	}
	page, cmd := p.handle(msg)
	return page, tea.Batch(promptCmd, cmd)
}

func (p *UploadPage) handle(msg tea.Msg) (app.Page, tea.Cmd) {
	switch msg := msg.(type) {
	case app.AdapterChangedMsg:
		p.adapter = msg.Adapter
		p.pipeline = upload.New(msg.Adapter, p.opts.History, p.opts.Timeout, p.log)
		return p, nil

	case app.PortSelectedMsg:
		p.opts.Port = msg.Path
		return p, nil

	case app.BoardSelectedMsg:
		p.opts.Board = msg.FQBN
		return p, nil

	case chooseRequestMsg:
		var cmd tea.Cmd
		p.prompt, cmd = newFilePrompt(p.opts.ExportDir, p.pickerHeight(), msg.reply)
		return p, cmd

	case pipelineUpdateMsg:
		u := msg.update
		p.state = u.State
		p.percent = u.Percent
		if u.Message != "" {
			p.appendOutput(u.Message)
		}
		if u.Result != nil {
			p.running = false
			p.message = ui.ResultLine(u.Result.Success, resultText(*u.Result))
		}
		return p, waitForUpdate(msg.ch)

	case pipelineClosedMsg:
		p.running = false
		return p, nil

	case projectExportedMsg:
		if msg.err != nil {
			p.message = ui.ResultLine(false, "Export failed: "+msg.err.Error())
		} else {
			p.message = ui.ResultLine(true, "Exported "+msg.name)
		}
		return p, nil

	case projectImportedMsg:
		switch {
		case msg.err != nil:
			p.message = ui.ResultLine(false, "Import failed: "+msg.err.Error())
		case msg.file == nil:
			p.message = "Import cancelled"
		default:
			p.imported = msg.file
			p.source.SetValue("")
			p.message = ui.ResultLine(true, fmt.Sprintf("Imported %s (%d bytes)", msg.file.Name, len(msg.file.Content)))
		}
		return p, nil

	case tea.KeyMsg:
		if p.editing {
			switch msg.String() {
			case "enter", "esc":
				p.editing = false
				p.source.Blur()
				return p, nil
			}
			var cmd tea.Cmd
			p.source, cmd = p.source.Update(msg)
			return p, cmd
		}

		switch msg.String() {
		case "s":
			p.editing = true
			return p, p.source.Focus()
		case "c":
			return p, p.start(true)
		case "u":
			return p, p.start(false)
		case "e":
			return p, p.export()
		case "o":
			a := p.adapter
			return p, func() tea.Msg {
				file, err := a.ImportProject(context.Background())
				return projectImportedMsg{file: file, err: err}
			}
		}
	}

	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *UploadPage) export() tea.Cmd {
	name, code, err := p.code()
	if err != nil {
		p.message = err.Error()
		return nil
	}
	name = strings.TrimSuffix(name, filepath.Ext(name))
	a := p.adapter
	return func() tea.Msg {
		return projectExportedMsg{name: name, err: a.ExportProject(context.Background(), name, code)}
	}
}

func resultText(r device.UploadResult) string {
	if r.Success {
		return r.Message
	}
	return fmt.Sprintf("%s failed: %s", r.Stage, r.Error)
}

func (p *UploadPage) View() string {
	if p.prompt != nil {
		return ui.Panel("Import project", p.prompt.view(), p.width, 0, true)
	}

	var b strings.Builder
	caps := p.adapter.Capabilities()

	src := p.source.View()
	if !p.editing && p.source.Value() == "" && p.imported != nil {
		src = p.imported.Name + ui.DimStyle.Render(" (imported)")
	}
	b.WriteString(fmt.Sprintf("%-8s %s\n", "Source", src))
	b.WriteString(fmt.Sprintf("%-8s %s\n", "Board", orNone(p.opts.Board)))
	b.WriteString(fmt.Sprintf("%-8s %s\n", "Port", orNone(p.opts.Port)))

	if !caps.CanUpload {
		b.WriteString("\n" + ui.WarningBadge("no companion") + ui.DimStyle.Render(" compile and upload need the desktop companion") + "\n")
	}

	if p.running || p.state.Terminal() {
		b.WriteString("\n" + string(p.state) + "\n")
		if caps.SupportsProgress {
			b.WriteString(p.bar.ViewAs(float64(p.percent)/100) + "\n")
		}
	}

	if p.message != "" {
		b.WriteString("\n" + p.message + "\n")
	}

	if p.output.Len() > 0 {
		b.WriteString("\n" + p.viewport.View())
	}

	return ui.Panel("Upload", b.String(), p.width, 0, false)
}

func orNone(s string) string {
	if s == "" {
		return ui.DimStyle.Render("(none)")
	}
	return s
}

func (p *UploadPage) Name() string { return "Upload" }

func (p *UploadPage) ShortHelp() []key.Binding {
	if p.editing {
		return []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "done")),
		}
	}
	return []key.Binding{
		key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "source")),
		key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "compile")),
		key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
		key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "import")),
	}
}

func (p *UploadPage) InputCaptured() bool {
	return p.editing || p.prompt != nil
}

func (p *UploadPage) pickerHeight() int {
	h := p.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

func (p *UploadPage) SetSize(w, h int) {
	p.width = w
	p.height = h
	p.bar.Width = w - 8
	vpHeight := h - 14
	if vpHeight < 3 {
		vpHeight = 3
	}
	p.viewport.Width = w - 4
	p.viewport.Height = vpHeight
}
