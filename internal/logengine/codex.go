package logengine

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rencryptofish/hydra/internal/model"
)

// CodexLogPath returns the session log Codex appends turn objects to.
// Codex lays sessions out by rollout date, so there is no deterministic
// path; this just joins a caller-supplied relative path under the sessions
// root. The Backend itself picks the newest-mtime regular file directly
// inside ~/.codex/sessions, without recursing into subdirectories or
// matching the working directory.
func CodexLogPath(homeDir, relPath string) string {
	return filepath.Join(homeDir, ".codex", "sessions", relPath)
}

// codexTurn is one line of a Codex session's jsonl turn log.
type codexTurn struct {
	Type  string `json:"type"`
	Role  string `json:"role"`
	Model string `json:"model"`
	Text  string `json:"text"`
	Tool  struct {
		Name   string          `json:"name"`
		Args   json.RawMessage `json:"args"`
		Result json.RawMessage `json:"result"`
	} `json:"tool"`
	Usage struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

// CodexParser implements Parser for Codex's append-only jsonl turn log,
// using the same incremental byte-offset strategy as ClaudeParser.
type CodexParser struct{}

func NewCodexParser() *CodexParser { return &CodexParser{} }

func (p *CodexParser) Parse(prev model.SessionStats, path string) (ParseResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ParseResult{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return ParseResult{}, err
	}
	if info.Size() < prev.Offset {
		prev.Offset = 0
	}
	if _, err := f.Seek(prev.Offset, 0); err != nil {
		return ParseResult{}, err
	}

	stats := prev
	if stats.UniqueFiles == nil {
		stats.UniqueFiles = make(map[string]struct{})
	}
	var entries []model.ConversationEntry
	var totalCost float64

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	var consumed int64
	for scanner.Scan() {
		line := scanner.Bytes()
		consumed += int64(len(line)) + 1
		if len(line) == 0 {
			continue
		}
		var turn codexTurn
		if err := json.Unmarshal(line, &turn); err != nil {
			continue
		}

		switch turn.Type {
		case "message":
			if turn.Text == "" {
				continue
			}
			if turn.Role == "user" {
				stats.Turns++
				entries = append(entries, model.ConversationEntry{Kind: model.EntryUser, Text: turn.Text})
			} else {
				entries = append(entries, model.ConversationEntry{Kind: model.EntryAssistant, Text: turn.Text})
			}
		case "tool_call":
			if turn.Tool.Name == "apply_patch" || turn.Tool.Name == "edit_file" {
				stats.EditCount++
			}
			if turn.Tool.Name == "shell" || turn.Tool.Name == "bash" {
				stats.BashCommandCount++
			}
			entries = append(entries, model.ConversationEntry{
				Kind: model.EntryToolUse, ToolName: turn.Tool.Name, ArgsSummary: summarizeJSON(turn.Tool.Args),
			})
		case "tool_result":
			entries = append(entries, model.ConversationEntry{
				Kind: model.EntryToolResult, ToolName: turn.Tool.Name, ResultSummary: summarizeJSON(turn.Tool.Result),
			})
		case "usage":
			stats.InputTokens += turn.Usage.InputTokens
			stats.OutputTokens += turn.Usage.OutputTokens
			totalCost += costUSD(model.AgentCodex, turn.Model, turn.Usage.InputTokens, turn.Usage.OutputTokens, 0, 0)
		}
	}
	stats.Offset = prev.Offset + consumed
	return ParseResult{Entries: entries, Stats: stats, CostUSD: totalCost}, scanner.Err()
}
