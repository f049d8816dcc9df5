package app

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/boardbridge/internal/device"
)

var testBoards = []device.BoardInfo{
	{Name: "ESP32 Dev Module", FQBN: "esp32:esp32:esp32"},
	{Name: "Arduino Uno", FQBN: "arduino:avr:uno"},
	{Name: "Arduino Nano", FQBN: "arduino:avr:nano"},
	{Name: "Arduino Nano ESP32", FQBN: "arduino:esp32:nano_nora"},
}

func TestBoardItemsGroupByCore(t *testing.T) {
	items := BoardItems(testBoards)
	want := []string{"arduino:avr:nano", "arduino:avr:uno", "arduino:esp32:nano_nora", "esp32:esp32:esp32"}
	for i, w := range want {
		if items[i].Value != w {
			t.Fatalf("item %d: got %s, want %s", i, items[i].Value, w)
		}
	}
	if items[0].Group != "arduino:avr" {
		t.Fatalf("unexpected group %q", items[0].Group)
	}
}

func TestPickerPreselectsCurrent(t *testing.T) {
	p := NewPicker("Select Board", "arduino:avr:uno")
	p.SetItems(BoardItems(testBoards))
	if v, ok := p.Cursor(); !ok || v != "arduino:avr:uno" {
		t.Fatalf("expected current board under cursor, got %q", v)
	}
}

func TestPickerFilterRanksFQBNPrefix(t *testing.T) {
	p := NewPicker("Select Board", "")
	p.SetItems(BoardItems(testBoards))

	for _, r := range "esp32" {
		p.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	if len(p.filtered) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(p.filtered))
	}
	if p.filtered[0].Value != "esp32:esp32:esp32" {
		t.Fatalf("expected prefix match first, got %s", p.filtered[0].Value)
	}
}

func TestPickerEnterAndEsc(t *testing.T) {
	p := NewPicker("Select Board", "")
	p.SetItems(BoardItems(testBoards))

	_, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	sel, ok := cmd().(PickerSelectedMsg)
	if !ok || sel.Value != "arduino:avr:nano" {
		t.Fatalf("unexpected selection %+v", sel)
	}

	_, cmd = p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if _, ok := cmd().(PickerClosedMsg); !ok {
		t.Fatal("expected close message")
	}
}

func TestFuzzyMatch(t *testing.T) {
	cases := []struct {
		s, q string
		want bool
	}{
		{"arduino uno", "uno", true},
		{"arduino uno", "adu", true},
		{"arduino uno", "xyz", false},
		{"nano", "", true},
	}
	for _, c := range cases {
		if got := fuzzyMatch(c.s, c.q); got != c.want {
			t.Errorf("fuzzyMatch(%q, %q) = %v, want %v", c.s, c.q, got, c.want)
		}
	}
}
