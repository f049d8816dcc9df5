package pages

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/buckleypaul/boardbridge/internal/app"
	"github.com/buckleypaul/boardbridge/internal/config"
)

func cursorTo(t *testing.T, p *SettingsPage, field string) {
	t.Helper()
	for i, f := range settingFields {
		if f.key == field {
			for p.cursor < i {
				p.Update(tea.KeyMsg{Type: tea.KeyDown})
			}
			return
		}
	}
	t.Fatalf("unknown field %s", field)
}

func TestSettingsArrowKeyNavigation(t *testing.T) {
	cfg := config.Defaults()
	p := NewSettingsPage(&cfg, t.TempDir())

	p.Update(tea.KeyMsg{Type: tea.KeyDown})
	if p.cursor != 1 {
		t.Fatalf("expected cursor=1 after down, got %d", p.cursor)
	}

	for i := 0; i < len(settingFields)+2; i++ {
		p.Update(tea.KeyMsg{Type: tea.KeyDown})
	}
	if p.cursor != len(settingFields)-1 {
		t.Fatalf("expected cursor to clamp at %d, got %d", len(settingFields)-1, p.cursor)
	}

	p.cursor = 0
	p.Update(tea.KeyMsg{Type: tea.KeyUp})
	if p.cursor != 0 {
		t.Fatalf("expected cursor to clamp at 0, got %d", p.cursor)
	}
}

func TestSettingsEnterEditMode(t *testing.T) {
	cfg := config.Defaults()
	p := NewSettingsPage(&cfg, t.TempDir())

	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !p.editing || !p.InputCaptured() {
		t.Fatal("expected editing after Enter")
	}
	p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if p.editing {
		t.Fatal("expected editing=false after Esc")
	}
}

func TestSettingsApplyValues(t *testing.T) {
	cfg := config.Defaults()
	p := NewSettingsPage(&cfg, t.TempDir())

	cursorTo(t, p, "serial_baud_rate")
	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p.input.SetValue("9600")
	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cfg.SerialBaudRate != 9600 {
		t.Fatalf("expected SerialBaudRate=9600, got %d", cfg.SerialBaudRate)
	}

	cursorTo(t, p, "upload_timeout")
	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p.input.SetValue("90s")
	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if time.Duration(cfg.UploadTimeout) != 90*time.Second {
		t.Fatalf("expected 90s timeout, got %s", time.Duration(cfg.UploadTimeout))
	}
}

func TestSettingsRejectsInvalidInput(t *testing.T) {
	cfg := config.Defaults()
	p := NewSettingsPage(&cfg, t.TempDir())

	cursorTo(t, p, "serial_baud_rate")
	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p.input.SetValue("not-a-number")
	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cfg.SerialBaudRate != config.DefaultBaudRate {
		t.Fatalf("expected baud rate unchanged, got %d", cfg.SerialBaudRate)
	}
	if p.editing {
		t.Fatal("expected editing to end")
	}

	cursorTo(t, p, "serial_enumeration")
	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	p.input.SetValue("maybe")
	p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !cfg.SerialEnumerationEnabled() {
		t.Fatal("expected enumeration unchanged")
	}
}

func TestSettingsSaveWritesProjectConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.CompanionURLEnv, "")
	root := t.TempDir()
	cfg := config.Defaults()
	cfg.CompanionURL = "ws://localhost:7070/ws"
	p := NewSettingsPage(&cfg, root)

	p.Update(keyRune('s'))
	if _, err := os.Stat(filepath.Join(root, ".boardbridge", "config.json")); err != nil {
		t.Fatalf("expected project config to be written: %v", err)
	}
	if loaded := config.Load(root); loaded.CompanionURL != "ws://localhost:7070/ws" {
		t.Fatalf("unexpected companion url %q", loaded.CompanionURL)
	}
}

func TestSettingsRedetect(t *testing.T) {
	cfg := config.Defaults()
	p := NewSettingsPage(&cfg, t.TempDir())

	_, cmd := p.Update(keyRune('r'))
	msgs := runCmd(cmd)
	if len(msgs) != 1 {
		t.Fatalf("expected one message, got %v", msgs)
	}
	if _, ok := msgs[0].(app.RedetectMsg); !ok {
		t.Fatalf("expected RedetectMsg, got %T", msgs[0])
	}
}
