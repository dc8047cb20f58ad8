package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/teedee/internal/logging"
)

func loadLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logging.Tail(path, logOverlayLines)
		return logLinesMsg{lines: lines, err: err}
	}
}

// renderLogs shows the tail of the log file, newest lines at the bottom.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render("Log"))
	b.WriteString("  ")
	b.WriteString(styles.MutedText.Render(m.logPath))
	b.WriteString("\n\n")

	lines := m.logLines
	if rows := m.height - 6; rows > 0 && len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}
	if len(lines) == 0 {
		b.WriteString(styles.FaintText.Render("(empty)"))
	} else {
		b.WriteString(styles.Text.Render(strings.Join(lines, "\n")))
	}
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("r reload · esc back"))

	panel := styles.Panel.BorderForeground(lipgloss.Color(m.theme.BorderFocus))
	if m.width > 4 {
		panel = panel.Width(m.width - 4)
	}
	return panel.Render(b.String())
}
