// Package model holds the data types shared between the Backend actor and
// the UI App: sessions, their status, stats, manifest records and the two
// channel payloads (StateSnapshot, PreviewUpdate) that connect them.
package model

import "time"

// AgentKind identifies which provider CLI a session runs.
type AgentKind string

const (
	AgentClaude AgentKind = "claude"
	AgentCodex  AgentKind = "codex"
	AgentGemini AgentKind = "gemini"
)

// String implements fmt.Stringer for display.
func (k AgentKind) String() string {
	switch k {
	case AgentClaude:
		return "Claude"
	case AgentCodex:
		return "Codex"
	case AgentGemini:
		return "Gemini"
	default:
		return string(k)
	}
}

// SpawnCommand returns the shell invocation used to start this agent kind.
func (k AgentKind) SpawnCommand() string {
	switch k {
	case AgentClaude:
		return "claude --dangerously-skip-permissions"
	case AgentCodex:
		return "codex -c check_for_update_on_startup=false --yolo"
	case AgentGemini:
		return "gemini --yolo"
	default:
		return ""
	}
}

// ResumeCommand returns the shell invocation used to revive a session with
// its prior conversation, given the record's resume handle (empty for
// agents with no handle, e.g. Codex/Gemini).
func (k AgentKind) ResumeCommand(handle string) string {
	switch k {
	case AgentClaude:
		if handle == "" {
			return k.SpawnCommand()
		}
		return "claude --dangerously-skip-permissions --resume " + handle
	case AgentCodex:
		return "codex -c check_for_update_on_startup=false --yolo resume --last"
	case AgentGemini:
		return "gemini --yolo --resume"
	default:
		return ""
	}
}

// SessionStatus is ordered Idle < Running < Exited so sidebar grouping can
// sort sessions by status using plain integer comparison.
type SessionStatus int

const (
	StatusIdle SessionStatus = iota
	StatusRunning
	StatusExited
)

func (s SessionStatus) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusRunning:
		return "Running"
	case StatusExited:
		return "Exited"
	default:
		return "Unknown"
	}
}

// Session is the Backend's in-memory view of one agent's tmux session.
type Session struct {
	Name        string // NATO phonetic name, or "agent-N" once exhausted
	TmuxName    string // "hydra-<hex8>-<name>"
	Agent       AgentKind
	CreatedAt   time.Time
	Status      SessionStatus
	StatusSince time.Time
	LastMessage string // most recent assistant text, for the sidebar
	Stats       SessionStats
	Discovered  bool // adopted via discovery rather than created by Hydra
}

// MaxFailedAttempts is the number of consecutive revival failures a
// manifest record tolerates before it is pruned.
const MaxFailedAttempts uint8 = 3

// SessionRecord is one manifest entry — what's persisted to sessions.json.
type SessionRecord struct {
	Name           string    `json:"name"`
	Agent          AgentKind `json:"agent"`
	TmuxName       string    `json:"tmux_name"`
	ResumeHandle   string    `json:"resume_handle,omitempty"`
	FailedAttempts uint8     `json:"failed_attempts"`
}

// ConversationEntryKind tags the variant carried by a ConversationEntry.
type ConversationEntryKind string

const (
	EntryUser         ConversationEntryKind = "user"
	EntryAssistant    ConversationEntryKind = "assistant"
	EntryToolUse      ConversationEntryKind = "tool_use"
	EntryToolResult   ConversationEntryKind = "tool_result"
	EntryProgress     ConversationEntryKind = "progress"
	EntrySystem       ConversationEntryKind = "system"
	EntryFileSnapshot ConversationEntryKind = "file_snapshot"
)

// ConversationEntry is one rendered unit in a session's preview buffer.
// Only the fields relevant to Kind are populated; this mirrors the
// teacher's tagged-message shape (agent.go PaneInfo / hook status) but
// generalized to the seven variants spec.md §3 names.
type ConversationEntry struct {
	Kind ConversationEntryKind

	Text string // User, Assistant, Progress, System

	ToolName      string // ToolUse, ToolResult
	ArgsSummary   string // ToolUse
	ResultSummary string // ToolResult

	ProgressKind string // Progress sub-kind: waiting_for_task, query_update, ...
	SystemKind   string // System sub-kind: api_error, compact_boundary, ...

	TrackedCount int      // FileSnapshot
	SamplePaths  []string // FileSnapshot
}

// MaxConversationEntries bounds a session's preview buffer; oldest entries
// are dropped once the buffer would exceed this size.
const MaxConversationEntries = 500

// SessionStats accumulates per-session token/tool usage. Offset is either a
// JSONL byte offset (Claude/Codex) or a message-index offset (Gemini),
// whichever the provider's parser uses for incremental resumption.
type SessionStats struct {
	Turns int

	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64

	EditCount       int
	BashCommandCount int

	UniqueFiles     map[string]struct{}
	ActiveSubagents int

	// PendingSubagents tracks each in-flight Task tool_use_id so its
	// matching tool_result can decrement ActiveSubagents exactly once,
	// across incremental parses.
	PendingSubagents map[string]struct{}

	Offset int64
}

// NewSessionStats returns a zero-value SessionStats with its set initialized.
func NewSessionStats() SessionStats {
	return SessionStats{UniqueFiles: make(map[string]struct{}), PendingSubagents: make(map[string]struct{})}
}

// StartSubagent records a newly-spawned Task subagent by its tool_use_id
// and bumps ActiveSubagents.
func (s *SessionStats) StartSubagent(toolUseID string) {
	if s.PendingSubagents == nil {
		s.PendingSubagents = make(map[string]struct{})
	}
	if toolUseID == "" {
		s.ActiveSubagents++
		return
	}
	if _, dup := s.PendingSubagents[toolUseID]; dup {
		return
	}
	s.PendingSubagents[toolUseID] = struct{}{}
	s.ActiveSubagents++
}

// FinishSubagent retires a Task subagent by its tool_use_id once its
// tool_result arrives, decrementing ActiveSubagents exactly once.
func (s *SessionStats) FinishSubagent(toolUseID string) {
	if toolUseID == "" {
		return
	}
	if _, pending := s.PendingSubagents[toolUseID]; !pending {
		return
	}
	delete(s.PendingSubagents, toolUseID)
	if s.ActiveSubagents > 0 {
		s.ActiveSubagents--
	}
}

// TouchFile records a file path as touched this session (dedup via set).
func (s *SessionStats) TouchFile(path string) {
	if s.UniqueFiles == nil {
		s.UniqueFiles = make(map[string]struct{})
	}
	s.UniqueFiles[path] = struct{}{}
}

// FileCount returns the number of unique files touched.
func (s *SessionStats) FileCount() int {
	return len(s.UniqueFiles)
}

// ProviderDayTotals is one provider's accumulated cost/tokens for a single
// calendar day.
type ProviderDayTotals struct {
	CostUSD float64
	Tokens  int64
}

// GlobalStats holds per-provider daily totals, keyed by provider. The
// totals reset whenever Date no longer matches the local calendar date.
type GlobalStats struct {
	Date   string // "2006-01-02", local time
	Totals map[AgentKind]ProviderDayTotals
}

// NewGlobalStats returns an empty GlobalStats stamped with today's date.
func NewGlobalStats(today string) GlobalStats {
	return GlobalStats{Date: today, Totals: make(map[AgentKind]ProviderDayTotals)}
}

// RolloverIfNeeded zeroes the accumulator when the local calendar date has
// advanced since the last update.
func (g *GlobalStats) RolloverIfNeeded(today string) {
	if g.Date == today {
		return
	}
	g.Date = today
	g.Totals = make(map[AgentKind]ProviderDayTotals)
}

// Add accumulates cost/tokens for a provider into today's totals.
func (g *GlobalStats) Add(agent AgentKind, costUSD float64, tokens int64) {
	if g.Totals == nil {
		g.Totals = make(map[AgentKind]ProviderDayTotals)
	}
	t := g.Totals[agent]
	t.CostUSD += costUSD
	t.Tokens += tokens
	g.Totals[agent] = t
}

// DiffStat summarizes one file's `git diff --numstat` line.
type DiffStat struct {
	Path      string
	Additions int
	Deletions int
}

// SessionView is the read-only projection of a Session sent to the UI
// inside a StateSnapshot.
type SessionView struct {
	Session
}

// StateSnapshot is the Backend → UI latest-value payload: a full picture of
// all sessions plus global stats and the working tree's diff, published
// once per session-refresh tick.
type StateSnapshot struct {
	Sessions []SessionView
	Global   GlobalStats
	Diff     []DiffStat
}

// PreviewPayloadKind tags a PreviewUpdate's payload.
type PreviewPayloadKind int

const (
	PreviewParsedConversation PreviewPayloadKind = iota
	PreviewRawCapture
)

// PreviewUpdate is the Backend → UI bounded-queue payload carrying a fresh
// preview for one session.
type PreviewUpdate struct {
	SessionName string
	Kind        PreviewPayloadKind
	Entries     []ConversationEntry // when Kind == PreviewParsedConversation
	Raw         string              // when Kind == PreviewRawCapture
}
