package pages

import (
	"context"

	"github.com/charmbracelet/bubbles/filepicker"
	tea "github.com/charmbracelet/bubbletea"
)

type choice struct {
	path string
	ok   bool
}

// chooseRequestMsg asks the UI to show the file picker and answer on reply.
type chooseRequestMsg struct {
	reply chan<- choice
}

// Chooser lets the standalone adapter borrow the TUI's file picker. A
// ChooseFile call blocks until the page showing the picker answers.
type Chooser struct {
	reqs chan chan<- choice
}

func NewChooser() *Chooser {
	return &Chooser{reqs: make(chan chan<- choice)}
}

// ChooseFile implements standalone.FileChooser.
func (c *Chooser) ChooseFile(ctx context.Context) (string, bool, error) {
	reply := make(chan choice, 1)
	select {
	case c.reqs <- reply:
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.path, r.ok, nil
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
}

// wait returns a command that delivers the next chooser request.
func (c *Chooser) wait() tea.Cmd {
	if c == nil {
		return nil
	}
	return func() tea.Msg {
		return chooseRequestMsg{reply: <-c.reqs}
	}
}

// filePrompt is the picker overlay state for one pending request.
type filePrompt struct {
	picker filepicker.Model
	reply  chan<- choice
}

func newFilePrompt(dir string, height int, reply chan<- choice) (*filePrompt, tea.Cmd) {
	fp := filepicker.New()
	if dir != "" {
		fp.CurrentDirectory = dir
	}
	fp.AllowedTypes = []string{".json", ".ino", ".txt", ".blocks"}
	fp.AutoHeight = false
	fp.Height = height
	return &filePrompt{picker: fp, reply: reply}, fp.Init()
}

// update feeds msg to the picker. done reports that the prompt answered.
func (f *filePrompt) update(msg tea.Msg) (done bool, cmd tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		f.reply <- choice{}
		return true, nil
	}
	f.picker, cmd = f.picker.Update(msg)
	if ok, path := f.picker.DidSelectFile(msg); ok {
		f.reply <- choice{path: path, ok: true}
		return true, cmd
	}
	return false, cmd
}

func (f *filePrompt) view() string {
	return f.picker.View()
}
