package logengine

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rencryptofish/hydra/internal/model"
)

// GeminiLogPath returns the monolithic session file Gemini CLI rewrites in
// place for a given project directory name.
func GeminiLogPath(homeDir, projectDir, sessionFile string) string {
	return filepath.Join(homeDir, ".gemini", "tmp", projectDir, "chats", sessionFile)
}

type geminiToolCall struct {
	Name   string          `json:"name"`
	Args   json.RawMessage `json:"args"`
	Result json.RawMessage `json:"result"`
}

type geminiMessage struct {
	Role       string           `json:"role"`
	Text       string           `json:"text"`
	Model      string           `json:"model"`
	ToolCalls  []geminiToolCall `json:"toolCalls"`
	InputTok   int64            `json:"inputTokens"`
	OutputTok  int64            `json:"outputTokens"`
}

type geminiDocument struct {
	Messages []geminiMessage `json:"messages"`
}

// GeminiParser implements Parser for Gemini CLI's rewritten-in-place
// session file. Because the whole file is replaced on every write, byte
// offsets are meaningless; prev.Offset here is a *message index* — the
// count of messages[] already folded into prev — not a byte count.
type GeminiParser struct{}

func NewGeminiParser() *GeminiParser { return &GeminiParser{} }

func (p *GeminiParser) Parse(prev model.SessionStats, path string) (ParseResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ParseResult{}, err
	}
	var doc geminiDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return ParseResult{}, err
	}

	startIdx := prev.Offset
	// Rollover: the file was truncated or rotated out from under the
	// stored offset. Restart from the beginning rather than erroring, and
	// treat this pass as a stats replacement (see below).
	rolledOver := startIdx > int64(len(doc.Messages))
	if rolledOver {
		startIdx = 0
	}

	stats := prev
	if rolledOver || stats.UniqueFiles == nil {
		// Stats replacement: clear file tracking and active-subagent count
		// before applying the fresh snapshot so a rollover can't carry
		// over state from a now-discarded prior document (spec.md §4.4).
		stats.UniqueFiles = make(map[string]struct{})
		stats.ActiveSubagents = 0
	}

	var entries []model.ConversationEntry
	var totalCost float64

	for i := startIdx; i < int64(len(doc.Messages)); i++ {
		msg := doc.Messages[i]
		if msg.Text != "" {
			if msg.Role == "user" {
				stats.Turns++
				entries = append(entries, model.ConversationEntry{Kind: model.EntryUser, Text: msg.Text})
			} else {
				entries = append(entries, model.ConversationEntry{Kind: model.EntryAssistant, Text: msg.Text})
			}
		}
		if msg.Role != "user" {
			stats.InputTokens += msg.InputTok
			stats.OutputTokens += msg.OutputTok
			totalCost += costUSD(model.AgentGemini, msg.Model, msg.InputTok, msg.OutputTok, 0, 0)
		}

		for _, tc := range msg.ToolCalls {
			entries = append(entries, model.ConversationEntry{
				Kind: model.EntryToolUse, ToolName: tc.Name, ArgsSummary: summarizeJSON(tc.Args),
			})
			entries = append(entries, model.ConversationEntry{
				Kind: model.EntryToolResult, ToolName: tc.Name, ResultSummary: summarizeJSON(tc.Result),
			})
			if tc.Name == "edit" || tc.Name == "write_file" {
				stats.EditCount++
			}
			if tc.Name == "run_shell_command" {
				stats.BashCommandCount++
			}
		}
	}

	stats.Offset = int64(len(doc.Messages))
	return ParseResult{Entries: entries, Stats: stats, CostUSD: totalCost}, nil
}
