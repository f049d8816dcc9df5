package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/buckleypaul/boardbridge/internal/device"
	"github.com/buckleypaul/boardbridge/internal/ui"
)

const sidebarWidth = 22 // 20 content + 2 border/padding

func renderTargetBar(platform device.Platform, port, board string, width int, sidebarFocused bool) string {
	parts := []string{
		ui.PlatformBadge(platform == device.PlatformNative),
		ui.TargetField("port", port),
		ui.TargetField("board", board),
	}
	if sidebarFocused {
		parts = append(parts, ui.TargetLabelStyle.Render("[b] change board"))
	}
	return ui.StatusBarStyle.Width(width).Render(strings.Join(parts, ui.TargetLabelStyle.Render("  ")))
}

func renderSidebar(pages []PageID, active PageID, pageMap map[PageID]Page, height int, focused bool) string {
	var b strings.Builder
	if focused {
		b.WriteString(ui.BoldStyle.Render("boardbridge *"))
	} else {
		b.WriteString(ui.TitleStyle.Render("boardbridge"))
	}
	b.WriteString("\n\n")

	for _, id := range pages {
		p := pageMap[id]
		if p == nil {
			continue
		}
		if id == active {
			b.WriteString(ui.SidebarActiveStyle.Render("▸ " + p.Name()))
		} else {
			b.WriteString(ui.SidebarItemStyle.Render("  " + p.Name()))
		}
		b.WriteString("\n")
	}

	style := ui.SidebarStyle.Height(height)
	if focused {
		style = style.BorderForeground(ui.Primary)
	}
	return style.Render(b.String())
}

func renderStatusBar(pageHelp []key.Binding, width int, focus FocusArea) string {
	var parts []string

	if focus == FocusSidebar {
		parts = append(parts,
			ui.StatusKey("↑/↓", "navigate"),
			ui.StatusKey("enter", "select"),
			ui.StatusKey("b", "board"),
		)
	} else {
		for _, kb := range pageHelp {
			if kb.Enabled() {
				parts = append(parts, ui.StatusKey(kb.Help().Key, kb.Help().Desc))
			}
		}
	}

	parts = append(parts,
		ui.StatusKey("tab", "focus"),
		ui.StatusKey("?", "help"),
		ui.StatusKey("q", "quit"),
	)

	return ui.StatusBarStyle.Width(width).Render(strings.Join(parts, "  "))
}

func renderHelp(pageHelp []key.Binding) string {
	var b strings.Builder
	b.WriteString(ui.Title("Keys"))
	b.WriteString("\n")
	all := append([]key.Binding{GlobalKeys.ToggleFocus, GlobalKeys.BoardPicker, GlobalKeys.Help, GlobalKeys.Quit}, pageHelp...)
	for _, kb := range all {
		h := kb.Help()
		b.WriteString(fmt.Sprintf("  %-8s %s\n", h.Key, h.Desc))
	}
	return b.String()
}

func renderLayout(targetBar, sidebar, content, statusBar string) string {
	main := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, content)
	return lipgloss.JoinVertical(lipgloss.Left, targetBar, main, statusBar)
}
