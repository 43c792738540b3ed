// Package ui implements the UI App (C6): pure bubbletea state that drains
// StateSnapshot/PreviewUpdate from the Backend and turns key/mouse events
// into BackendCommands. Grounded on the teacher's model.go (the Model
// struct, its dialog sub-states), generalized from a 4-status kanban board
// to a grouped sidebar + single preview pane over Hydra's 3-status
// sessions, and from synchronous AgentManager calls to non-blocking sends
// on a Backend command channel. Unlike the teacher, there is no separate
// tickCmd redraw timer: every StateSnapshot (published on the Backend's
// 500ms refresh tick) already drives a redraw, and elapsed-time display is
// computed from wall-clock time at View() time rather than accumulated
// tick-by-tick.
package ui

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rencryptofish/hydra/internal/backend"
	"github.com/rencryptofish/hydra/internal/logengine"
	"github.com/rencryptofish/hydra/internal/model"
	"github.com/rencryptofish/hydra/internal/ui/widgets"
)

// sgrMouseRe matches SGR mouse escape sequences that can arrive as literal
// runes when bubbletea's mouse parsing doesn't catch them — carried over
// verbatim from the teacher's model.go, since terminal quirks don't change
// with the domain.
var sgrMouseRe = regexp.MustCompile(`<(\d+);\d+;\d+[Mm]`)

// Mode is the UI's exhaustive state machine, per spec.md §4.6.
type Mode int

const (
	ModeBrowse Mode = iota
	ModeCompose
	ModeNewSessionAgent
	ModeConfirmDelete
	ModeCopyMode
)

func (m Mode) String() string {
	switch m {
	case ModeCompose:
		return "Compose"
	case ModeNewSessionAgent:
		return "NewSessionAgent"
	case ModeConfirmDelete:
		return "ConfirmDelete"
	case ModeCopyMode:
		return "CopyMode"
	default:
		return "Browse"
	}
}

// taskTimer tracks one session's elapsed-time display: starts on Running,
// freezes on Idle, clears after 5s of continued Idle (spec.md §4.6).
type taskTimer struct {
	startedAt time.Time
	frozenAt  time.Time // zero while running
	idleSince time.Time
}

// PreviewState is UI-owned (never touched by the Backend): the parsed
// conversation buffer and raw-capture fallback per session, plus scroll
// offsets. Spec.md §3: "The UI owns PreviewState, ComposeState, Mode,
// selected index, and a cached frame model."
type PreviewState struct {
	Entries      []model.ConversationEntry
	Raw          string
	ScrollOffset int
}

// Model is the bubbletea application model. All fields here are read
// freely by View(); only Update ever mutates them, and never by awaiting
// I/O — every Backend interaction goes through a try-send on cmdCh.
type Model struct {
	cmdCh chan<- backend.Command

	sessions []model.SessionView
	global   model.GlobalStats

	selected int
	mode     Mode

	previews map[string]*PreviewState
	timers   map[string]*taskTimer

	renderer      *logengine.Renderer // rebuilt on resize; nil until the first WindowSizeMsg
	rendererWidth int

	composeInput textinput.Model
	newAgentIdx  int // index into {Claude, Codex, Gemini} in NewSessionAgent mode

	copyModeActive bool // mouse capture disabled

	width, height int

	statusMsg     string
	statusExpires time.Time
}

// New builds an initial Model wired to send commands on cmdCh.
func New(cmdCh chan<- backend.Command) Model {
	input := textinput.New()
	input.Placeholder = "message"
	input.CharLimit = 4000
	input.Width = 60

	return Model{
		cmdCh:        cmdCh,
		previews:     make(map[string]*PreviewState),
		timers:       make(map[string]*taskTimer),
		composeInput: input,
		width:        120,
		height:       40,
	}
}

func (m Model) Init() tea.Cmd { return nil }

// ensureRenderer (re)builds the glamour-backed markdown renderer to match
// the current preview pane width, so assistant text wraps at the right
// column instead of the wrap width glamour picked on the first resize.
func (m *Model) ensureRenderer() {
	width := m.width - m.width/3
	if width <= 0 {
		width = m.width
	}
	if m.renderer != nil && m.rendererWidth == width {
		return
	}
	r, err := logengine.NewRenderer(width)
	if err != nil {
		return
	}
	m.renderer = r
	m.rendererWidth = width
}

// SnapshotMsg and PreviewMsg wrap Backend channel values as tea.Msg so
// they flow through bubbletea's normal Update dispatch; a small external
// pump goroutine (wired in cmd/hydra) forwards from the Backend's
// channels into tea.Program.Send.
type SnapshotMsg model.StateSnapshot
type PreviewMsg model.PreviewUpdate

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ensureRenderer()
		return m, nil

	case SnapshotMsg:
		m.applySnapshot(model.StateSnapshot(msg))
		return m, nil

	case PreviewMsg:
		m.applyPreview(model.PreviewUpdate(msg))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m *Model) applySnapshot(s model.StateSnapshot) {
	m.sessions = s.Sessions
	m.global = s.Global
	sort.Slice(m.sessions, func(i, j int) bool {
		return m.sessions[i].Name < m.sessions[j].Name
	})

	now := time.Now()
	for _, sv := range m.sessions {
		t, ok := m.timers[sv.Name]
		if !ok {
			t = &taskTimer{}
			m.timers[sv.Name] = t
		}
		switch sv.Status {
		case model.StatusRunning:
			if t.startedAt.IsZero() || !t.frozenAt.IsZero() {
				t.startedAt = now
			}
			t.frozenAt = time.Time{}
			t.idleSince = time.Time{}
		case model.StatusIdle:
			if t.frozenAt.IsZero() {
				t.frozenAt = now
				t.idleSince = now
			} else if now.Sub(t.idleSince) > 5*time.Second {
				t.startedAt = time.Time{}
				t.frozenAt = time.Time{}
			}
		}
	}
}

func (m *Model) applyPreview(u model.PreviewUpdate) {
	p, ok := m.previews[u.SessionName]
	if !ok {
		p = &PreviewState{}
		m.previews[u.SessionName] = p
	}
	switch u.Kind {
	case model.PreviewParsedConversation:
		p.Entries = append(p.Entries, u.Entries...)
		if over := len(p.Entries) - model.MaxConversationEntries; over > 0 {
			p.Entries = p.Entries[over:]
		}
	case model.PreviewRawCapture:
		p.Raw = u.Raw
	}
}

// Elapsed returns a session's task-elapsed duration under the freeze/clear
// rule: running sessions tick live, idle sessions freeze at the moment
// they went idle, and the timer clears (returns 0, false) once idle has
// persisted more than 5s.
func (m *Model) Elapsed(name string, now time.Time) (time.Duration, bool) {
	t, ok := m.timers[name]
	if !ok || t.startedAt.IsZero() {
		return 0, false
	}
	if !t.frozenAt.IsZero() {
		if now.Sub(t.idleSince) > 5*time.Second {
			return 0, false
		}
		return t.frozenAt.Sub(t.startedAt), true
	}
	return now.Sub(t.startedAt), true
}

// trySend is the one and only way Update reaches the Backend: a
// non-blocking channel send, silently dropped if the queue is full, since
// spec.md §4.6 requires idempotent retry on the next keypress rather than
// ever blocking handle_key.
func (m *Model) trySend(cmd backend.Command) {
	select {
	case m.cmdCh <- cmd:
	default:
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeCompose:
		return m.handleComposeKey(msg)
	case ModeNewSessionAgent:
		return m.handleNewSessionKey(msg)
	case ModeConfirmDelete:
		return m.handleConfirmDeleteKey(msg)
	case ModeCopyMode:
		return m.handleCopyModeKey(msg)
	default:
		return m.handleBrowseKey(msg)
	}
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.trySend(backend.Shutdown())
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.sessions)-1 {
			m.selected++
		}
	case "n":
		m.mode = ModeNewSessionAgent
		m.newAgentIdx = 0
	case "enter":
		m.mode = ModeCompose
		m.composeInput.SetValue("")
		m.composeInput.Focus()
	case "d":
		if len(m.sessions) > 0 {
			m.mode = ModeConfirmDelete
		}
	case "c":
		m.mode = ModeCopyMode
		m.copyModeActive = true
	}
	return m, nil
}

func (m Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeBrowse
		m.composeInput.Blur()
		return m, nil
	case "enter":
		if name, ok := m.selectedName(); ok {
			text := stripSGR(m.composeInput.Value())
			if text != "" {
				m.trySend(backend.Compose(name, text, backend.ComposeSubmit))
			}
		}
		m.composeInput.SetValue("")
		m.mode = ModeBrowse
		m.composeInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.composeInput, cmd = m.composeInput.Update(msg)
	return m, cmd
}

var agentChoices = []model.AgentKind{model.AgentClaude, model.AgentCodex, model.AgentGemini}

func (m Model) handleNewSessionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeBrowse
	case "up", "k":
		if m.newAgentIdx > 0 {
			m.newAgentIdx--
		}
	case "down", "j":
		if m.newAgentIdx < len(agentChoices)-1 {
			m.newAgentIdx++
		}
	case "enter":
		agent := agentChoices[m.newAgentIdx]
		existing := make(map[string]struct{}, len(m.sessions))
		for _, sv := range m.sessions {
			existing[sv.Name] = struct{}{}
		}
		name := model.GenerateName(existing)
		m.trySend(backend.CreateSession(name, agent))
		m.mode = ModeBrowse
	}
	return m, nil
}

func (m Model) handleConfirmDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch strings.ToLower(msg.String()) {
	case "y":
		if name, ok := m.selectedName(); ok {
			m.trySend(backend.DeleteSession(name))
		}
		m.mode = ModeBrowse
	case "n", "esc":
		m.mode = ModeBrowse
	}
	return m, nil
}

// handleCopyModeKey: copy mode disables mouse capture so the terminal's
// native text selection works; Esc returns to Browse.
func (m Model) handleCopyModeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.mode = ModeBrowse
		m.copyModeActive = false
	}
	return m, nil
}

// handleMouse implements spec.md §4.6's click rules: SGR sequences never
// forward to agent panes, a left-click in Compose on the preview resets
// scroll to 0, and a left-click outside the preview while composing exits
// Compose. Other buttons and mouse actions are ignored.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.copyModeActive {
		return m, nil // native selection; we don't touch mouse events at all
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	inPreview := msg.X > m.width/3 // sidebar occupies the left third

	if m.mode == ModeCompose {
		if name, ok := m.selectedName(); ok {
			if inPreview {
				if p, ok := m.previews[name]; ok {
					p.ScrollOffset = 0
				}
			} else {
				m.mode = ModeBrowse
				m.composeInput.Blur()
			}
		}
		return m, nil
	}
	return m, nil
}

// stripSGR removes a literal SGR mouse escape that bubbletea failed to
// parse, so it's never handed to an agent pane as garbage text (spec.md
// §4.6). Applied to the compose text before it is submitted to the
// Backend.
func stripSGR(s string) string {
	return sgrMouseRe.ReplaceAllString(s, "")
}

func (m Model) selectedName() (string, bool) {
	if m.selected < 0 || m.selected >= len(m.sessions) {
		return "", false
	}
	return m.sessions[m.selected].Name, true
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(widgets.RenderTitle(m.width, len(m.sessions)))
	b.WriteString("\n")

	sidebarWidth := m.width / 3
	rows := make([]widgets.Row, 0, len(m.sessions))
	now := time.Now()
	for _, sv := range m.sessions {
		elapsed, running := m.Elapsed(sv.Name, now)
		uptime := ""
		if running {
			uptime = elapsed.Truncate(time.Second).String()
		}
		rows = append(rows, widgets.Row{
			Name:        sv.Name,
			Agent:       sv.Agent.String(),
			Status:      sv.Status.String(),
			LastMessage: sv.LastMessage,
			Uptime:      uptime,
		})
	}
	sidebar := widgets.RenderSidebar(rows, m.selected, sidebarWidth)

	previewWidth := m.width - sidebarWidth
	previewBody := "no session selected"
	title := ""
	if name, ok := m.selectedName(); ok {
		title = name
		if p, ok := m.previews[name]; ok {
			previewBody = renderEntries(p.Entries, p.Raw, m.renderer)
		}
	}
	preview := widgets.RenderPreview(title, previewBody, previewWidth, m.height-4)

	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, preview)
	b.WriteString(body)
	b.WriteString("\n")

	if m.mode == ModeCompose {
		b.WriteString(widgets.RenderCompose(m.composeInput.View(), m.width))
		b.WriteString("\n")
	}

	b.WriteString(widgets.RenderFooter(m.width, m.mode.String()))
	return b.String()
}

func renderEntries(entries []model.ConversationEntry, raw string, rd *logengine.Renderer) string {
	if len(entries) == 0 {
		return raw
	}
	var lines []string
	for _, e := range entries {
		switch e.Kind {
		case model.EntryUser:
			lines = append(lines, "> "+e.Text)
		case model.EntryAssistant:
			lines = append(lines, renderMarkdown(rd, e.Text))
		case model.EntryToolUse:
			lines = append(lines, "  ["+e.ToolName+"]")
		case model.EntryToolResult:
			lines = append(lines, "  -> "+e.ResultSummary)
		case model.EntryProgress:
			lines = append(lines, "… "+e.Text)
		case model.EntrySystem:
			lines = append(lines, "* "+e.Text)
		case model.EntryFileSnapshot:
			lines = append(lines, fmt.Sprintf("[%d files tracked]", e.TrackedCount))
		}
	}
	return strings.Join(lines, "\n")
}

// renderMarkdown runs assistant text through glamour when a renderer is
// available, falling back to the raw markdown before the first resize.
func renderMarkdown(rd *logengine.Renderer, text string) string {
	if rd == nil {
		return text
	}
	return strings.TrimRight(rd.Render(text), "\n")
}
