package logengine

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rencryptofish/hydra/internal/model"
)

// uuidResolveCooldown bounds how often a session without a resolved UUID
// pays the O(process-tree) + fd-scan cost again — spec.md §4.4: "~30s,
// ≈6 refresh cycles".
const uuidResolveCooldown = 30 * time.Second

// UUIDResolver caches Claude session-UUID resolutions per tmux pane PID, so
// repeated refresh cycles don't repeatedly walk /proc for agents that never
// expose their UUID (e.g. still starting up).
type UUIDResolver struct {
	mu    sync.Mutex
	cache map[int]resolveEntry
}

type resolveEntry struct {
	uuid       string
	ok         bool
	lastTried  time.Time
}

func NewUUIDResolver() *UUIDResolver {
	return &UUIDResolver{cache: make(map[int]resolveEntry)}
}

// Resolve returns the Claude session UUID for the process whose root PID is
// panePID (the tmux pane's leader process), using the process-tree scan
// first and the open-fd scan as fallback, both cached with a cooldown.
func (r *UUIDResolver) Resolve(panePID int) (string, bool) {
	r.mu.Lock()
	if e, ok := r.cache[panePID]; ok {
		if e.ok || time.Since(e.lastTried) < uuidResolveCooldown {
			r.mu.Unlock()
			return e.uuid, e.ok
		}
	}
	r.mu.Unlock()

	id, ok := findSessionIDInProcessTree(panePID)
	if !ok {
		id, ok = findSessionIDByFDScan(panePID)
	}

	r.mu.Lock()
	r.cache[panePID] = resolveEntry{uuid: id, ok: ok, lastTried: time.Now()}
	r.mu.Unlock()
	return id, ok
}

// Forget drops a cached resolution, e.g. once its tmux session is gone.
func (r *UUIDResolver) Forget(panePID int) {
	r.mu.Lock()
	delete(r.cache, panePID)
	r.mu.Unlock()
}

var sessionIDFlagRe = regexp.MustCompile(`--session-id[= ]([0-9a-fA-F-]{36})`)

// findSessionIDInProcessTree inspects every descendant of rootPID's command
// line for a `--session-id <uuid>` argument, using `ps` (portable across
// the /proc-less platforms that also run Claude Code).
func findSessionIDInProcessTree(rootPID int) (string, bool) {
	out, err := exec.Command("ps", "-eo", "pid,ppid,command").Output()
	if err != nil {
		return "", false
	}

	type proc struct {
		pid, ppid int
		cmd       string
	}
	var procs []proc
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		pid, err1 := strconv.Atoi(fields[0])
		ppid, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			continue
		}
		procs = append(procs, proc{pid: pid, ppid: ppid, cmd: strings.Join(fields[2:], " ")})
	}

	descendants := map[int]bool{rootPID: true}
	changed := true
	for changed {
		changed = false
		for _, p := range procs {
			if descendants[p.ppid] && !descendants[p.pid] {
				descendants[p.pid] = true
				changed = true
			}
		}
	}

	for _, p := range procs {
		if !descendants[p.pid] {
			continue
		}
		if m := sessionIDFlagRe.FindStringSubmatch(p.cmd); m != nil {
			if _, err := uuid.Parse(m[1]); err == nil {
				return m[1], true
			}
		}
	}
	return "", false
}

// findSessionIDByFDScan falls back to scanning rootPID's own open file
// descriptors for a path containing ".claude", extracting the UUID from the
// jsonl filename. Descendant processes' descriptors are not scanned.
func findSessionIDByFDScan(rootPID int) (string, bool) {
	fdDir := fmt.Sprintf("/proc/%d/fd", rootPID)
	entries, err := os.ReadDir(fdDir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		target, err := os.Readlink(filepath.Join(fdDir, e.Name()))
		if err != nil {
			continue
		}
		if !strings.Contains(target, ".claude") {
			continue
		}
		base := filepath.Base(target)
		id := strings.TrimSuffix(base, filepath.Ext(base))
		if _, err := uuid.Parse(id); err == nil {
			return id, true
		}
	}
	return "", false
}

// EscapeCwd turns a working directory into Claude's project-log directory
// component: every "/" becomes "-".
func EscapeCwd(cwd string) string {
	return strings.ReplaceAll(cwd, "/", "-")
}

// ClaudeLogPath returns the jsonl path Claude Code appends to for a given
// project cwd and resolved session UUID.
func ClaudeLogPath(homeDir, cwd, sessionUUID string) string {
	return filepath.Join(homeDir, ".claude", "projects", EscapeCwd(cwd), sessionUUID+".jsonl")
}

// claudeEnvelope is the outermost shape of every Claude jsonl line; Type
// dispatches to the richer per-kind struct.
type claudeEnvelope struct {
	Type    string          `json:"type"`
	Message json.RawMessage `json:"message"`

	// progress / system / file-history-snapshot specific fields, all
	// optional depending on Type.
	ProgressType string `json:"progressType"`
	SystemType   string `json:"subtype"`
	Content      string `json:"content"`

	ToolUseID string          `json:"tool_use_id"`
	ToolName  string          `json:"name"`
	Input     json.RawMessage `json:"input"`

	Snapshot struct {
		TrackedFileBackups map[string]string `json:"trackedFileBackups"`
	} `json:"snapshot"`
}

type claudeMessage struct {
	Role    string `json:"role"`
	Model   string `json:"model"`
	Content []struct {
		Type      string          `json:"type"`
		Text      string          `json:"text"`
		Name      string          `json:"name"`
		ID        string          `json:"id"`
		ToolUseID string          `json:"tool_use_id"`
		Input     json.RawMessage `json:"input"`
		Content   json.RawMessage `json:"content"`
	} `json:"content"`
	Usage struct {
		InputTokens              int64 `json:"input_tokens"`
		OutputTokens             int64 `json:"output_tokens"`
		CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
		CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	} `json:"usage"`
}

// suppressedProgress lists progress sub-kinds that are never rendered, and
// renderedSystem lists the system sub-kinds that are rendered
// unconditionally (stop_hook_summary is handled separately). A line that is
// not rendered still advances the byte offset.
var (
	suppressedProgress = map[string]bool{"hook_progress": true, "agent_progress": true}
	renderedSystem     = map[string]bool{
		"api_error": true, "local_command": true,
		"compact_boundary": true, "microcompact_boundary": true,
	}
)

// ClaudeParser implements Parser for Claude Code's append-only jsonl
// conversation log.
type ClaudeParser struct{}

func NewClaudeParser() *ClaudeParser { return &ClaudeParser{} }

// Parse reads path starting at prev.Offset (a byte offset into the
// append-only file) and folds newly observed lines into stats.
func (p *ClaudeParser) Parse(prev model.SessionStats, path string) (ParseResult, error) {
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
		// File shrank/rotated under us; restart from the top rather than
		// seeking past the new end.
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
		var env claudeEnvelope
		if err := json.Unmarshal(line, &env); err != nil {
			continue // malformed line; skip, byte offset still advances
		}

		entry, cost, ok := p.parseLine(&env, &stats)
		if ok {
			entries = append(entries, entry)
		}
		totalCost += cost
	}
	stats.Offset = prev.Offset + consumed
	return ParseResult{Entries: entries, Stats: stats, CostUSD: totalCost}, scanner.Err()
}

func (p *ClaudeParser) parseLine(env *claudeEnvelope, stats *model.SessionStats) (model.ConversationEntry, float64, bool) {
	switch env.Type {
	case "user":
		var msg claudeMessage
		_ = json.Unmarshal(env.Message, &msg)
		for _, c := range msg.Content {
			if c.Type == "tool_result" {
				stats.FinishSubagent(c.ToolUseID)
			}
		}
		text := flattenText(msg.Content)
		if text == "" {
			return model.ConversationEntry{}, 0, false
		}
		stats.Turns++
		return model.ConversationEntry{Kind: model.EntryUser, Text: text}, 0, true

	case "assistant":
		var msg claudeMessage
		_ = json.Unmarshal(env.Message, &msg)
		stats.InputTokens += msg.Usage.InputTokens
		stats.OutputTokens += msg.Usage.OutputTokens
		stats.CacheReadTokens += msg.Usage.CacheReadInputTokens
		stats.CacheWriteTokens += msg.Usage.CacheCreationInputTokens
		cost := costUSD(model.AgentClaude, msg.Model,
			msg.Usage.InputTokens, msg.Usage.OutputTokens,
			msg.Usage.CacheReadInputTokens, msg.Usage.CacheCreationInputTokens)

		var toolEntries []string
		text := flattenText(msg.Content)
		for _, c := range msg.Content {
			if c.Type == "tool_use" {
				trackToolUse(c.Name, c.ID, stats)
				toolEntries = append(toolEntries, c.Name)
			}
		}
		if text == "" && len(toolEntries) == 0 {
			return model.ConversationEntry{}, cost, false
		}
		if text != "" {
			return model.ConversationEntry{Kind: model.EntryAssistant, Text: text}, cost, true
		}
		return model.ConversationEntry{Kind: model.EntryToolUse, ToolName: toolEntries[0]}, cost, true

	case "tool_use":
		trackToolUse(env.ToolName, env.ToolUseID, stats)
		return model.ConversationEntry{Kind: model.EntryToolUse, ToolName: env.ToolName, ArgsSummary: summarizeJSON(env.Input)}, 0, true

	case "tool_result":
		stats.FinishSubagent(env.ToolUseID)
		return model.ConversationEntry{Kind: model.EntryToolResult, ToolName: env.ToolName, ResultSummary: summarizeJSON(env.Input)}, 0, true

	case "progress":
		kind := env.ProgressType
		if suppressedProgress[kind] {
			return model.ConversationEntry{}, 0, false
		}
		switch kind {
		case "waiting_for_task", "search_results_received", "query_update", "mcp_progress":
			return model.ConversationEntry{Kind: model.EntryProgress, ProgressKind: kind, Text: env.Content}, 0, true
		case "bash_progress":
			if strings.TrimSpace(env.Content) == "" {
				return model.ConversationEntry{}, 0, false
			}
			return model.ConversationEntry{Kind: model.EntryProgress, ProgressKind: kind, Text: env.Content}, 0, true
		default:
			return model.ConversationEntry{}, 0, false
		}

	case "system":
		kind := env.SystemType
		if kind == "turn_duration" {
			return model.ConversationEntry{}, 0, false
		}
		if kind == "stop_hook_summary" {
			if strings.TrimSpace(env.Content) == "" {
				return model.ConversationEntry{}, 0, false
			}
			return model.ConversationEntry{Kind: model.EntrySystem, SystemKind: kind, Text: env.Content}, 0, true
		}
		if renderedSystem[kind] {
			return model.ConversationEntry{Kind: model.EntrySystem, SystemKind: kind, Text: env.Content}, 0, true
		}
		return model.ConversationEntry{}, 0, false

	case "file-history-snapshot":
		if len(env.Snapshot.TrackedFileBackups) == 0 {
			return model.ConversationEntry{}, 0, false
		}
		var samples []string
		for path := range env.Snapshot.TrackedFileBackups {
			stats.TouchFile(path)
			if len(samples) < 5 {
				samples = append(samples, path)
			}
		}
		return model.ConversationEntry{
			Kind:         model.EntryFileSnapshot,
			TrackedCount: len(env.Snapshot.TrackedFileBackups),
			SamplePaths:  samples,
		}, 0, true

	default:
		return model.ConversationEntry{}, 0, false
	}
}

func trackToolUse(name, toolUseID string, stats *model.SessionStats) {
	switch name {
	case "Edit", "MultiEdit", "Write", "NotebookEdit":
		stats.EditCount++
	case "Bash":
		stats.BashCommandCount++
	case "Task":
		stats.StartSubagent(toolUseID)
	}
}

func flattenText(content []struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Name      string          `json:"name"`
	ID        string          `json:"id"`
	ToolUseID string          `json:"tool_use_id"`
	Input     json.RawMessage `json:"input"`
	Content   json.RawMessage `json:"content"`
}) string {
	var parts []string
	for _, c := range content {
		if c.Type == "text" && c.Text != "" {
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func summarizeJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	const maxLen = 200
	s := string(raw)
	if len(s) > maxLen {
		return s[:maxLen] + "…"
	}
	return s
}
