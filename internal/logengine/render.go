package logengine

import (
	"github.com/charmbracelet/glamour"
)

// Renderer turns assistant markdown text into ANSI-styled terminal output
// via glamour (chroma under the hood for code-block syntax highlighting).
// Owned by the UI App, not the Backend: only the UI knows the preview
// pane's current width, and rebuilding a TermRenderer is cheap enough to do
// on every resize. ConversationEntry structs travel from the Backend
// un-rendered; the UI decides layout and calls Render per assistant entry
// at display time (spec.md §1's "thin collaborator" rule).
type Renderer struct {
	r *glamour.TermRenderer
}

// NewRenderer builds a renderer wrapped to the given terminal width.
func NewRenderer(wordWrap int) (*Renderer, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{r: r}, nil
}

// Render converts markdown to ANSI text, falling back to the raw input if
// glamour can't parse it (malformed markdown must never crash the preview
// pane).
func (rd *Renderer) Render(markdown string) string {
	out, err := rd.r.Render(markdown)
	if err != nil {
		return markdown
	}
	return out
}
