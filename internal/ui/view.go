package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/teedee/internal/todoapi"
)

// renderMain renders header, body and footer.
func (m Model) renderMain() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if line := m.renderStatusLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch m.mode {
	case modeForm:
		b.WriteString(m.form.view(m.theme.Styles(), m.width))
	case modeConfirmDelete:
		b.WriteString(m.renderConfirm())
	default:
		b.WriteString(m.renderList())
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	done, pending := m.snapshot.Counts()

	parts := []string{
		styles.AccentText.Bold(true).Render("teedee"),
		styles.SuccessText.Render("✔") + fmt.Sprintf(" %d", done),
		styles.WarningText.Render("•") + fmt.Sprintf(" %d", pending),
	}
	if m.prefs.HideCompleted {
		parts = append(parts, styles.FaintText.Render("(completed hidden)"))
	}
	if m.baseURL != "" {
		parts = append(parts, styles.MutedText.Render(m.baseURL))
	}

	header := styles.Header
	if m.width > 0 {
		header = header.Width(m.width)
	}
	return header.Render(strings.Join(parts, "  "))
}

// renderStatusLine shows loading, error, offline and notice state.
func (m Model) renderStatusLine() string {
	styles := m.theme.Styles()
	snap := m.snapshot

	var parts []string
	switch {
	case snap.Loading:
		parts = append(parts, m.spinner.View()+" "+styles.StatusStyle("saving").Render("working"))
	case snap.HasError():
		parts = append(parts,
			styles.StatusStyle("error").Render(snap.Error),
			styles.MutedText.Render("press r to try again"))
	}
	if snap.IsOffline() {
		parts = append(parts, styles.DangerText.Render("backend unreachable"))
	}
	if m.notice != "" {
		parts = append(parts, styles.WarningText.Render(m.notice))
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderList() string {
	styles := m.theme.Styles()
	visible := m.visibleTodos()

	if len(visible) == 0 {
		switch {
		case m.snapshot.Loading:
			return styles.MutedText.Render(m.spinner.View() + " Loading todos...")
		case m.snapshot.HasError() && len(m.snapshot.Todos) == 0:
			return styles.MutedText.Render("Nothing to show. Press r to try again.")
		case len(m.snapshot.Todos) > 0:
			return styles.MutedText.Render("Everything is done. Press h to show completed todos.")
		default:
			return styles.MutedText.Render("No todos yet. Press a to add one.")
		}
	}

	start, end := m.listWindow(len(visible))
	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderRow(visible[i], i == m.selected))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderRow(t todoapi.Todo, selected bool) string {
	styles := m.theme.Styles()

	box := "[ ]"
	title := styles.Text.Render(t.Title)
	if t.Completed {
		box = styles.SuccessText.Render("[x]")
		title = styles.Done.Render(t.Title)
	}
	row := box + " " + title
	if t.Description != "" {
		row += "  " + styles.FaintText.Render(truncate(t.Description, m.descriptionWidth(t.Title)))
	}

	cursor := "  "
	if selected {
		cursor = styles.AccentText.Render("> ")
		if m.width > 0 {
			return cursor + styles.Selected.Width(max(m.width-2, 0)).Render(row)
		}
		return cursor + styles.Selected.Render(row)
	}
	return cursor + row
}

// listWindow returns the slice of rows that fits the terminal, keeping the
// selection visible.
func (m Model) listWindow(n int) (start, end int) {
	// header, status, gap, gap, footer
	rows := m.height - 5
	if rows <= 0 || n <= rows {
		return 0, n
	}
	start = m.selected - rows/2
	if start < 0 {
		start = 0
	}
	if start+rows > n {
		start = n - rows
	}
	return start, start + rows
}

func (m Model) descriptionWidth(title string) int {
	if m.width <= 0 {
		return 60
	}
	return max(m.width-lipgloss.Width(title)-10, 10)
}

func (m Model) renderConfirm() string {
	styles := m.theme.Styles()
	body := fmt.Sprintf("Delete %q?\n\n%s",
		m.pendingDelete.Title,
		styles.FaintText.Render("y delete · n cancel"))

	panel := styles.FocusPanel.BorderForeground(lipgloss.Color(m.theme.Danger))
	return panel.Render(body)
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	bindings := m.keys.ShortHelp()
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, styles.AccentText.Render(h.Key)+" "+h.Desc)
	}
	footer := styles.Footer
	if m.width > 0 {
		footer = footer.Width(m.width)
	}
	return footer.Render(strings.Join(parts, "  "))
}

func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}
