package logengine

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/rencryptofish/hydra/internal/model"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestGlobalStatsWalkerFoldsClaudeUsage(t *testing.T) {
	base := t.TempDir()
	projDir := filepath.Join(base, ".claude", "projects", "-home-user-project")
	if err := os.MkdirAll(projDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	line := `{"type":"assistant","message":{"role":"assistant","model":"claude-sonnet-4","content":[{"type":"text","text":"hi"}],"usage":{"input_tokens":20,"output_tokens":10}}}` + "\n"
	if err := os.WriteFile(filepath.Join(projDir, "sess.jsonl"), []byte(line), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w := NewGlobalStatsWalker(newTestLogger())
	w.Walk(base)

	snap := w.Snapshot()
	totals, ok := snap.Totals[model.AgentClaude]
	if !ok {
		t.Fatalf("expected Claude totals after walk, got %+v", snap.Totals)
	}
	if totals.Tokens != 30 {
		t.Fatalf("Tokens = %d, want 30", totals.Tokens)
	}
	if totals.CostUSD <= 0 {
		t.Fatalf("expected positive cost, got %v", totals.CostUSD)
	}
}

func TestGlobalStatsWalkerSkipsUnchangedFile(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, ".codex", "sessions")
	os.MkdirAll(dir, 0o755)
	path := filepath.Join(dir, "rollout.jsonl")
	line := `{"type":"usage","model":"default","usage":{"input_tokens":5,"output_tokens":5}}` + "\n"
	os.WriteFile(path, []byte(line), 0o644)

	w := NewGlobalStatsWalker(newTestLogger())
	w.Walk(base)
	first := w.Snapshot().Totals[model.AgentCodex]

	// Second walk over the same, unmodified file must not double-count.
	w.Walk(base)
	second := w.Snapshot().Totals[model.AgentCodex]

	if first.Tokens != second.Tokens || first.CostUSD != second.CostUSD {
		t.Fatalf("unchanged file was re-folded: first=%+v second=%+v", first, second)
	}
}

func TestGlobalStatsWalkerMissingProviderRootIsNotAnError(t *testing.T) {
	base := t.TempDir() // none of the three provider dirs exist
	w := NewGlobalStatsWalker(newTestLogger())
	w.Walk(base) // must not panic

	snap := w.Snapshot()
	if len(snap.Totals) != 0 {
		t.Fatalf("expected no totals from an empty base dir, got %+v", snap.Totals)
	}
}
