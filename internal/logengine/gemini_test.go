package logengine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rencryptofish/hydra/internal/model"
)

func writeGeminiDoc(t *testing.T, path, json string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(json), 0o644); err != nil {
		t.Fatalf("write doc: %v", err)
	}
}

func TestGeminiParserIncrementalByMessageIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	writeGeminiDoc(t, path, `{"messages":[
		{"role":"user","text":"hello"},
		{"role":"model","text":"hi there","model":"gemini-1.5-flash","outputTokens":5}
	]}`)

	p := NewGeminiParser()
	res, err := p.Parse(model.NewSessionStats(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Stats.Offset != 2 {
		t.Fatalf("Offset = %d, want 2", res.Stats.Offset)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(res.Entries))
	}

	// Rewrite with one more message appended; re-parsing from the stored
	// offset must only yield the new message, not reprocess the first two.
	writeGeminiDoc(t, path, `{"messages":[
		{"role":"user","text":"hello"},
		{"role":"model","text":"hi there","model":"gemini-1.5-flash","outputTokens":5},
		{"role":"user","text":"how are you"}
	]}`)
	res2, err := p.Parse(res.Stats, path)
	if err != nil {
		t.Fatalf("Parse incremental: %v", err)
	}
	if len(res2.Entries) != 1 || res2.Entries[0].Text != "how are you" {
		t.Fatalf("incremental parse got %+v, want only the new message", res2.Entries)
	}
	if res2.Stats.Offset != 3 {
		t.Fatalf("Offset after incremental parse = %d, want 3", res2.Stats.Offset)
	}
}

func TestGeminiParserRolloverResetsStats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	prev := model.NewSessionStats()
	prev.Offset = 10 // stale offset from a now-discarded longer document
	prev.ActiveSubagents = 3
	prev.TouchFile("old/file.go")

	writeGeminiDoc(t, path, `{"messages":[{"role":"user","text":"fresh start"}]}`)

	p := NewGeminiParser()
	res, err := p.Parse(prev, path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Stats.ActiveSubagents != 0 {
		t.Fatalf("rollover must clear ActiveSubagents, got %d", res.Stats.ActiveSubagents)
	}
	if res.Stats.FileCount() != 0 {
		t.Fatalf("rollover must clear UniqueFiles, got %d entries", res.Stats.FileCount())
	}
	if len(res.Entries) != 1 || res.Entries[0].Text != "fresh start" {
		t.Fatalf("rollover should reparse from index 0, got %+v", res.Entries)
	}
	if res.Stats.Offset != 1 {
		t.Fatalf("Offset after rollover = %d, want 1", res.Stats.Offset)
	}
}

func TestGeminiParserToolCallEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	writeGeminiDoc(t, path, `{"messages":[
		{"role":"model","text":"","model":"gemini-1.5-pro","toolCalls":[
			{"name":"edit","args":{"path":"a.go"},"result":{"ok":true}}
		]}
	]}`)

	p := NewGeminiParser()
	res, err := p.Parse(model.NewSessionStats(), path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if res.Stats.EditCount != 1 {
		t.Fatalf("EditCount = %d, want 1", res.Stats.EditCount)
	}
	var sawUse, sawResult bool
	for _, e := range res.Entries {
		if e.Kind == model.EntryToolUse && e.ToolName == "edit" {
			sawUse = true
		}
		if e.Kind == model.EntryToolResult && e.ToolName == "edit" {
			sawResult = true
		}
	}
	if !sawUse || !sawResult {
		t.Fatalf("expected paired ToolUse/ToolResult entries, got %+v", res.Entries)
	}
}
