package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Row is one session's sidebar row data, the UI App's projection of a
// model.SessionView (the widgets package stays free of model's import so
// it can be unit tested with plain structs, as the teacher's CardData does
// for its ui package).
type Row struct {
	Name        string
	Agent       string // "Claude", "Codex", "Gemini"
	Status      string // "Idle", "Running", "Exited"
	LastMessage string
	Uptime      string
}

// RenderSidebar groups rows by status with explicit header rows, in Idle,
// then Running, then Exited order, generalizing the teacher's 3-column
// kanban board (ui/board.go) to a single scrollable list sized to the
// sidebar's width.
func RenderSidebar(rows []Row, selected int, width int) string {
	var running, idle, exited []int
	for i, r := range rows {
		switch r.Status {
		case "Running":
			running = append(running, i)
		case "Idle":
			idle = append(idle, i)
		default:
			exited = append(exited, i)
		}
	}

	var b strings.Builder
	b.WriteString(renderGroup("IDLE", ColorIdle, idle, rows, selected, width))
	b.WriteString(renderGroup("RUNNING", ColorRunning, running, rows, selected, width))
	b.WriteString(renderGroup("EXITED", ColorExited, exited, rows, selected, width))
	return strings.TrimRight(b.String(), "\n")
}

func renderGroup(label string, color lipgloss.Color, indices []int, rows []Row, selected, width int) string {
	if len(indices) == 0 {
		return ""
	}
	var b strings.Builder
	header := SectionHeader.Foreground(color).Render(fmt.Sprintf("%s [%d]", label, len(indices)))
	b.WriteString(header)
	b.WriteString("\n")
	for _, idx := range indices {
		b.WriteString(renderRow(rows[idx], idx == selected, width))
		b.WriteString("\n")
	}
	return b.String()
}

func renderRow(r Row, selected bool, width int) string {
	dot := StatusDot(r.Status)
	line := fmt.Sprintf("%s %s", dot, AgentName.Render(r.Name))
	if r.LastMessage != "" {
		msg := r.LastMessage
		if lipgloss.Width(msg) > width-12 && width > 12 {
			msg = msg[:width-15] + "..."
		}
		line += "  " + DimText.Render(msg)
	}
	style := RowNormal
	if selected {
		style = RowSelected
	}
	return style.Width(width).Render(line)
}

// RenderTitle renders the top title bar, adapted from the teacher's
// RenderTitle to show the session count instead of a column-mode
// indicator.
func RenderTitle(width int, sessionCount int) string {
	title := TitleBar.Render("Hydra")
	count := DimText.Render(fmt.Sprintf("%d sessions", sessionCount))

	gap := width - lipgloss.Width(title) - lipgloss.Width(count) - 2
	if gap < 1 {
		gap = 1
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, title, strings.Repeat(" ", gap), count)
}

// RenderFooter renders the keybinding help footer for a given Mode name.
func RenderFooter(width int, mode string) string {
	var keys string
	switch mode {
	case "Compose":
		keys = "[Enter]Send  [Esc]Cancel"
	case "NewSessionAgent":
		keys = "[↑/↓]Choose agent  [Enter]Create  [Esc]Cancel"
	case "ConfirmDelete":
		keys = "[Y]es  [N]o"
	case "CopyMode":
		keys = "[Esc]Exit"
	default:
		keys = "[↑/↓]Nav  [N]ew  [Enter]Compose  [D]elete  [C]opy-mode  [Q]uit"
	}
	return FooterStyle.Width(width).Render(HelpStyle.Render(keys))
}
