package logengine

import "testing"

func TestRendererProducesNonEmptyOutput(t *testing.T) {
	r, err := NewRenderer(80)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	out := r.Render("# hello\n\nsome **bold** text")
	if out == "" {
		t.Fatalf("Render returned empty output")
	}
}

func TestRendererHandlesEmptyInput(t *testing.T) {
	r, err := NewRenderer(80)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	// Degenerate input must never panic or error out of Render.
	out := r.Render("")
	_ = out
}
