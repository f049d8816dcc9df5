package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/buckleypaul/boardbridge/internal/device"
	"github.com/buckleypaul/boardbridge/internal/ui"
)

// PickerItem is one board offered by the picker.
type PickerItem struct {
	Label string // board name
	Value string // FQBN
	Group string // owning core
}

// PickerSelectedMsg is sent when the user selects an item.
type PickerSelectedMsg struct {
	Value string
}

// PickerClosedMsg is sent when the user closes the picker without selecting.
type PickerClosedMsg struct{}

// Picker is the board selection overlay. Items are grouped by core and
// filtered as the user types.
type Picker struct {
	title    string
	current  string
	items    []PickerItem
	filtered []PickerItem
	input    textinput.Model
	cursor   int
	width    int
	height   int
}

const maxPickerRows = 14

// NewPicker creates a picker. current is the FQBN already selected, if any;
// it is marked in the list and preselected once items arrive.
func NewPicker(title, current string) *Picker {
	ti := textinput.New()
	ti.Placeholder = "name or fqbn"
	ti.Prompt = "> "
	ti.Focus()
	ti.CharLimit = 128

	return &Picker{
		title:   title,
		current: current,
		input:   ti,
	}
}

// BoardItems turns installed boards into picker items ordered by core, then
// by name.
func BoardItems(boards []device.BoardInfo) []PickerItem {
	items := make([]PickerItem, 0, len(boards))
	for _, b := range boards {
		items = append(items, PickerItem{
			Label: b.Name,
			Value: b.FQBN,
			Group: device.CoreIDFromFQBN(b.FQBN),
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Group != items[j].Group {
			return items[i].Group < items[j].Group
		}
		return items[i].Label < items[j].Label
	})
	return items
}

func (p *Picker) SetItems(items []PickerItem) {
	p.items = items
	p.filter()
	for i, it := range p.filtered {
		if it.Value == p.current {
			p.cursor = i
			break
		}
	}
}

func (p *Picker) SetSize(w, h int) {
	p.width = w
	p.height = h
}

func (p *Picker) Update(msg tea.Msg) (*Picker, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "esc":
			return p, func() tea.Msg { return PickerClosedMsg{} }
		case "enter":
			if p.cursor < len(p.filtered) {
				value := p.filtered[p.cursor].Value
				return p, func() tea.Msg { return PickerSelectedMsg{Value: value} }
			}
			return p, nil
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
			return p, nil
		case "down":
			if p.cursor < len(p.filtered)-1 {
				p.cursor++
			}
			return p, nil
		}
	}

	before := p.input.Value()
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	if p.input.Value() != before {
		p.cursor = 0
		p.filter()
	}
	return p, cmd
}

func (p *Picker) View() string {
	boxWidth := min(max(p.width-4, 30), 72)
	innerWidth := boxWidth - 4

	var b strings.Builder
	p.input.Width = innerWidth - 3
	b.WriteString(p.input.View())
	b.WriteString("\n\n")

	rows := min(maxPickerRows, len(p.filtered))
	start := 0
	if p.cursor >= rows {
		start = p.cursor - rows + 1
	}

	group := ""
	for i := start; i < start+rows; i++ {
		item := p.filtered[i]
		if item.Group != group {
			group = item.Group
			b.WriteString(ui.DimStyle.Render(group) + "\n")
		}

		marker := "  "
		if i == p.cursor {
			marker = ui.CursorStyle.Render("> ")
		}
		line := item.Label
		if item.Value == p.current {
			line += " " + ui.CursorStyle.Render("•")
		}
		if fqbn := ui.DimStyle.Render("  " + item.Value); lipgloss.Width(line+fqbn) <= innerWidth-2 {
			line += fqbn
		}
		b.WriteString(marker + line + "\n")
	}

	if len(p.filtered) == 0 {
		if len(p.items) == 0 {
			b.WriteString(ui.DimStyle.Render("  Loading boards..."))
		} else {
			b.WriteString(ui.DimStyle.Render("  No matches"))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(ui.DimStyle.Render(fmt.Sprintf("%d of %d boards  enter:select esc:close", len(p.filtered), len(p.items))))

	return ui.Panel(p.title, b.String(), boxWidth, 0, true)
}

// Cursor returns the FQBN under the cursor, if any.
func (p *Picker) Cursor() (string, bool) {
	if p.cursor < len(p.filtered) {
		return p.filtered[p.cursor].Value, true
	}
	return "", false
}

// filter keeps the items matching the query. Items whose FQBN starts with
// the query come first, then name matches, each in catalogue order.
func (p *Picker) filter() {
	query := strings.ToLower(strings.TrimSpace(p.input.Value()))
	if query == "" {
		p.filtered = p.items
		p.clampCursor()
		return
	}

	var prefix, rest []PickerItem
	for _, item := range p.items {
		value := strings.ToLower(item.Value)
		switch {
		case strings.HasPrefix(value, query):
			prefix = append(prefix, item)
		case strings.Contains(value, query) || fuzzyMatch(strings.ToLower(item.Label), query):
			rest = append(rest, item)
		}
	}
	p.filtered = append(prefix, rest...)
	p.clampCursor()
}

func (p *Picker) clampCursor() {
	if p.cursor >= len(p.filtered) {
		p.cursor = len(p.filtered) - 1
	}
	if p.cursor < 0 {
		p.cursor = 0
	}
}

// fuzzyMatch reports whether the runes of query appear in s in order.
func fuzzyMatch(s, query string) bool {
	q := []rune(query)
	if len(q) == 0 {
		return true
	}
	i := 0
	for _, r := range s {
		if r == q[i] {
			i++
			if i == len(q) {
				return true
			}
		}
	}
	return false
}
