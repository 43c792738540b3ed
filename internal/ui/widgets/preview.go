package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderPreview frames a session's rendered conversation/raw-capture text
// in a bordered pane, adapted from the teacher's RenderCard body-rendering
// (ui/card.go) generalized from a fixed-height kanban card to a
// full-height single preview pane.
func RenderPreview(title, body string, width, height int) string {
	inner := PreviewPane.Width(width - 2).Height(height - 2)
	header := AgentName.Render(title)
	content := lipgloss.JoinVertical(lipgloss.Left, header, "", body)
	return inner.Render(content)
}

// RenderCompose frames the compose textbox below the preview pane.
func RenderCompose(draft string, width int) string {
	if draft == "" {
		draft = DimText.Render("type a message, Enter to send")
	}
	return ComposeBox.Width(width - 2).Render(draft)
}

// WrapLines wraps a long single string of text to width, the way the
// teacher's card body rendering does before handing lines to lipgloss.
func WrapLines(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	var out []string
	for _, paragraph := range strings.Split(text, "\n") {
		if lipgloss.Width(paragraph) <= width {
			out = append(out, paragraph)
			continue
		}
		words := strings.Fields(paragraph)
		line := ""
		for _, w := range words {
			if lipgloss.Width(line)+1+lipgloss.Width(w) > width {
				out = append(out, line)
				line = w
				continue
			}
			if line == "" {
				line = w
			} else {
				line += " " + w
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
