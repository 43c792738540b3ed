package logengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rencryptofish/hydra/internal/model"
)

func TestClaudeParserIncrementalByteOffsetMatchesSingleShot(t *testing.T) {
	line1 := `{"type":"user","message":{"role":"user","content":[{"type":"text","text":"hi"}]}}` + "\n"
	line2 := `{"type":"assistant","message":{"role":"assistant","model":"claude-sonnet-4","content":[{"type":"text","text":"hello back"}],"usage":{"input_tokens":10,"output_tokens":5}}}` + "\n"

	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(line1), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	p := NewClaudeParser()
	first, err := p.Parse(model.NewSessionStats(), path)
	if err != nil {
		t.Fatalf("Parse first: %v", err)
	}
	if len(first.Entries) != 1 || first.Entries[0].Kind != model.EntryUser {
		t.Fatalf("first parse = %+v, want one user entry", first.Entries)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString(line2); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	second, err := p.Parse(first.Stats, path)
	if err != nil {
		t.Fatalf("Parse second: %v", err)
	}
	if len(second.Entries) != 1 || second.Entries[0].Kind != model.EntryAssistant {
		t.Fatalf("incremental parse = %+v, want only the newly appended assistant entry", second.Entries)
	}
	if second.Stats.InputTokens != 10 || second.Stats.OutputTokens != 5 {
		t.Fatalf("token stats = %+v, want 10/5", second.Stats)
	}

	// Single-shot parse of the whole file from offset 0 must produce the
	// same cumulative token totals as the two incremental passes combined.
	singleShot, err := NewClaudeParser().Parse(model.NewSessionStats(), path)
	if err != nil {
		t.Fatalf("Parse single-shot: %v", err)
	}
	if singleShot.Stats.InputTokens != second.Stats.InputTokens ||
		singleShot.Stats.OutputTokens != second.Stats.OutputTokens {
		t.Fatalf("single-shot stats %+v != incremental cumulative stats %+v", singleShot.Stats, second.Stats)
	}
}

func TestClaudeParserSuppressesHookProgress(t *testing.T) {
	line := `{"type":"progress","progressType":"hook_progress","content":"noise"}` + "\n"
	path := filepath.Join(t.TempDir(), "session.jsonl")
	os.WriteFile(path, []byte(line), 0o644)

	res, err := NewClaudeParser().Parse(model.NewSessionStats(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Entries) != 0 {
		t.Fatalf("hook_progress must be suppressed, got %+v", res.Entries)
	}
	if res.Stats.Offset == 0 {
		t.Fatalf("offset must still advance past a suppressed line")
	}
}

func TestClaudeParserRendersApiError(t *testing.T) {
	line := `{"type":"system","subtype":"api_error","content":"rate limited"}` + "\n"
	path := filepath.Join(t.TempDir(), "session.jsonl")
	os.WriteFile(path, []byte(line), 0o644)

	res, err := NewClaudeParser().Parse(model.NewSessionStats(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].Kind != model.EntrySystem || res.Entries[0].SystemKind != "api_error" {
		t.Fatalf("api_error should render as a System entry, got %+v", res.Entries)
	}
}

func TestClaudeParserFileHistorySnapshotTracksFiles(t *testing.T) {
	line := `{"type":"file-history-snapshot","snapshot":{"trackedFileBackups":{"a.go":"x","b.go":"y"}}}` + "\n"
	path := filepath.Join(t.TempDir(), "session.jsonl")
	os.WriteFile(path, []byte(line), 0o644)

	res, err := NewClaudeParser().Parse(model.NewSessionStats(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Entries) != 1 || res.Entries[0].TrackedCount != 2 {
		t.Fatalf("expected one FileSnapshot entry tracking 2 files, got %+v", res.Entries)
	}
	if res.Stats.FileCount() != 2 {
		t.Fatalf("stats.FileCount() = %d, want 2", res.Stats.FileCount())
	}
}

func TestClaudeParserShrunkFileRestartsAtZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jsonl")
	longLine := `{"type":"user","message":{"role":"user","content":[{"type":"text","text":"first session, a much longer line of content here"}]}}` + "\n"
	os.WriteFile(path, []byte(longLine), 0o644)

	prev := model.NewSessionStats()
	prev.Offset = int64(len(longLine)) + 1000 // stale offset past a shrunk file

	res, err := NewClaudeParser().Parse(prev, path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("expected file-shrink restart to reparse from 0, got %+v", res.Entries)
	}
}

func TestClaudeParserTaskSubagentLifecycle(t *testing.T) {
	spawn := `{"type":"assistant","message":{"role":"assistant","model":"claude-sonnet-4","content":[{"type":"tool_use","id":"toolu_1","name":"Task","input":{}}]}}` + "\n"
	path := filepath.Join(t.TempDir(), "session.jsonl")
	if err := os.WriteFile(path, []byte(spawn), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	p := NewClaudeParser()
	first, err := p.Parse(model.NewSessionStats(), path)
	if err != nil {
		t.Fatalf("Parse spawn: %v", err)
	}
	if first.Stats.ActiveSubagents != 1 {
		t.Fatalf("ActiveSubagents = %d after Task spawn, want 1", first.Stats.ActiveSubagents)
	}

	retire := `{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"done"}]}}` + "\n"
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString(retire); err != nil {
		t.Fatalf("append: %v", err)
	}
	f.Close()

	second, err := p.Parse(first.Stats, path)
	if err != nil {
		t.Fatalf("Parse retire: %v", err)
	}
	if second.Stats.ActiveSubagents != 0 {
		t.Fatalf("ActiveSubagents = %d after tool_result, want 0", second.Stats.ActiveSubagents)
	}
}

func TestEscapeCwdAndClaudeLogPath(t *testing.T) {
	if got := EscapeCwd("/home/user/project"); got != "-home-user-project" {
		t.Fatalf("EscapeCwd = %q", got)
	}
	got := ClaudeLogPath("/home/user", "/home/user/project", "abc-123")
	want := "/home/user/.claude/projects/-home-user-project/abc-123.jsonl"
	if got != want {
		t.Fatalf("ClaudeLogPath = %q, want %q", got, want)
	}
}
