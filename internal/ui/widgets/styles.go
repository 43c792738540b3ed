// Package widgets holds the bubbletea/lipgloss rendering helpers for
// Hydra's sidebar and preview pane, adapted from the teacher's ui/board.go,
// ui/card.go and ui/styles.go — the teacher's 3-column kanban board
// (RUNNING/IDLE/DONE) becomes a grouped sidebar list (Idle/Running/Exited)
// plus a single live preview pane, matching spec.md §4.6's "sidebar +
// preview" layout rather than a multi-column board.
package widgets

import "github.com/charmbracelet/lipgloss"

var (
	ColorRunning = lipgloss.Color("#22c55e")
	ColorIdle    = lipgloss.Color("#f97316")
	ColorExited  = lipgloss.Color("#6b7280")
	ColorAccent  = lipgloss.Color("#06b6d4")
	ColorDim     = lipgloss.Color("#4b5563")
	ColorWhite   = lipgloss.Color("#f9fafb")
	ColorBorder  = lipgloss.Color("#374151")

	SectionHeader = lipgloss.NewStyle().Bold(true).Padding(0, 1)

	RowSelected = lipgloss.NewStyle().
			Background(lipgloss.Color("#1f2937")).
			Foreground(ColorWhite).
			Padding(0, 1)

	RowNormal = lipgloss.NewStyle().Padding(0, 1)

	TitleBar = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent).Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().Foreground(ColorDim)

	FooterStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	DimText = lipgloss.NewStyle().Foreground(ColorDim)

	AgentName = lipgloss.NewStyle().Bold(true).Foreground(ColorWhite)

	PreviewPane = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	ComposeBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Padding(0, 1)
)

// StatusDot renders a one-glyph status indicator, as the teacher's
// StatusDot does for its 4-state AgentStatus, generalized to Hydra's
// 3-state SessionStatus.
func StatusDot(status string) string {
	switch status {
	case "Running":
		return lipgloss.NewStyle().Foreground(ColorRunning).Render("●")
	case "Idle":
		return lipgloss.NewStyle().Foreground(ColorIdle).Render("○")
	case "Exited":
		return lipgloss.NewStyle().Foreground(ColorExited).Render("✓")
	default:
		return "·"
	}
}

func StatusColor(status string) lipgloss.Color {
	switch status {
	case "Running":
		return ColorRunning
	case "Idle":
		return ColorIdle
	default:
		return ColorExited
	}
}
