// Package backend implements the Backend actor (spec.md §4.3 / C5): the
// single goroutine that owns every I/O-touching subsystem (Session
// Manager, Control Connection, Log Engine, Manifest Store) and exposes
// them to the UI exclusively through two channels — a latest-value
// StateSnapshot and a bounded-queue PreviewUpdate — plus an inbound
// Command channel. Grounded on the teacher's AgentManager (agent.go) as
// the "one goroutine holds the map of live sessions" idiom, generalized
// into an explicit actor with its own select loop instead of being called
// synchronously from bubbletea's Update.
package backend

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rencryptofish/hydra/internal/config"
	"github.com/rencryptofish/hydra/internal/logengine"
	"github.com/rencryptofish/hydra/internal/manifest"
	"github.com/rencryptofish/hydra/internal/model"
	"github.com/rencryptofish/hydra/internal/tmuxmgr"
)

const (
	sessionRefreshInterval    = 500 * time.Millisecond
	backgroundRefreshInterval = 50 * time.Millisecond
	backgroundRefreshCadence  = 2 * time.Second
	capturesPerTickBudget     = 4 // K in spec.md §4.3's PreviewRuntime budget
)

// entry is one live session's full Backend-side bookkeeping.
type entry struct {
	session *model.Session
	runtime *SessionRuntime

	logPath        string // resolved provider log file, "" until known
	lastBackground time.Time

	resumeHandle string // Claude session UUID once resolved; "" until then
	paneID       string // tmux pane_id, "" until resolved
}

// Backend is the actor. Construct with New, then run its loop with Run in
// its own goroutine.
type Backend struct {
	mgr       tmuxmgr.SessionManager
	notifyCh  <-chan tmuxmgr.Notification // nil if mgr is a SubprocessManager
	manifest  *manifest.Store
	walker    *logengine.GlobalStatsWalker
	uuidRes   *logengine.UUIDResolver
	claudeP   *logengine.ClaudeParser
	codexP    *logengine.CodexParser
	geminiP   *logengine.GeminiParser
	detector  *OutputDetector
	watcher   *logengine.Watcher // nil if fsnotify setup failed; poll cadence still covers us

	projectID     string
	projectPrefix string
	workDir       string
	baseDir       string
	homeDir       string

	log *slog.Logger

	sessions  map[string]*entry // keyed by Session.Name
	paneIndex map[string]string // tmux pane_id -> Session.Name, for %output attribution

	cmdCh      chan Command
	snapshotCh SnapshotChan
	previewCh  PreviewChan

	observerInterest map[string]bool // sessions the UI currently wants captures for
}

// New constructs a Backend. notifyCh should be non-nil when mgr is backed
// by a shared ControlConnection, so the actor can fuse %output events into
// its SessionRuntimes; it's nil for SubprocessManager, which has no
// standing notification stream.
func New(
	mgr tmuxmgr.SessionManager,
	notifyCh <-chan tmuxmgr.Notification,
	manifestStore *manifest.Store,
	walker *logengine.GlobalStatsWalker,
	watcher *logengine.Watcher,
	workDir, baseDir string,
	log *slog.Logger,
) *Backend {
	projectID := config.ProjectID(workDir)
	return &Backend{
		mgr:           mgr,
		notifyCh:      notifyCh,
		manifest:      manifestStore,
		walker:        walker,
		uuidRes:       logengine.NewUUIDResolver(),
		claudeP:       logengine.NewClaudeParser(),
		codexP:        logengine.NewCodexParser(),
		geminiP:       logengine.NewGeminiParser(),
		detector:      NewOutputDetector(),
		watcher:       watcher,
		projectID:     projectID,
		projectPrefix: "hydra-" + projectID,
		workDir:       workDir,
		baseDir:       baseDir,
		homeDir:       config.HomeDir(),
		log:           log,
		sessions:      make(map[string]*entry),
		paneIndex:     make(map[string]string),
		cmdCh:         make(chan Command, 32),
		snapshotCh:    NewSnapshotChan(),
		previewCh:     NewPreviewChan(),
		observerInterest: make(map[string]bool),
	}
}

// Commands returns the channel the UI sends Command values to.
func (b *Backend) Commands() chan<- Command { return b.cmdCh }

// Snapshots returns the latest-value StateSnapshot channel.
func (b *Backend) Snapshots() <-chan model.StateSnapshot { return b.snapshotCh }

// Previews returns the bounded-queue PreviewUpdate channel.
func (b *Backend) Previews() <-chan model.PreviewUpdate { return b.previewCh }

// SetObserverInterest tells the Backend which sessions the UI is currently
// rendering a preview for, so capture budgeting (K per tick) favors them.
func (b *Backend) SetObserverInterest(names []string) {
	interest := make(map[string]bool, len(names))
	for _, n := range names {
		interest[n] = true
	}
	b.observerInterest = interest
}

// Run is the actor's main loop. It blocks until ctx is cancelled or a
// Shutdown command is received.
func (b *Backend) Run(ctx context.Context) {
	b.reviveAtStartup(ctx)

	sessionTicker := time.NewTicker(sessionRefreshInterval)
	defer sessionTicker.Stop()
	backgroundTicker := time.NewTicker(backgroundRefreshInterval)
	defer backgroundTicker.Stop()

	var watchWake <-chan struct{}
	if b.watcher != nil {
		watchWake = b.watcher.Wake()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-b.cmdCh:
			if b.dispatch(ctx, cmd) {
				return // Shutdown
			}

		case n, ok := <-b.notifyCh:
			if !ok {
				b.notifyCh = nil
				continue
			}
			b.handleNotification(n)

		case <-sessionTicker.C:
			b.sessionRefreshTick(ctx)

		case <-backgroundTicker.C:
			b.backgroundRefreshTick(ctx)

		case <-watchWake:
			// fsnotify saw a provider log directory change; fold it into an
			// early background tick instead of waiting out the cadence gate.
			b.backgroundRefreshTick(ctx)
		}
	}
}

func (b *Backend) reviveAtStartup(ctx context.Context) {
	reviver := manifest.NewReviver(b.manifest, b.mgr, func(tmuxName string) string {
		return b.workDir
	})
	records, err := reviver.Revive(ctx, b.projectPrefix)
	if err != nil {
		b.log.Warn("backend: startup revival failed", "err", err)
		return
	}
	for _, rec := range records {
		if _, exists := b.sessions[rec.Name]; exists {
			continue
		}
		sess := &model.Session{
			Name:      rec.Name,
			TmuxName:  rec.TmuxName,
			Agent:     rec.Agent,
			CreatedAt: time.Now(),
			Status:    model.StatusRunning,
			Stats:     model.NewSessionStats(),
		}
		e := &entry{session: sess, runtime: NewSessionRuntime(rec.Agent), resumeHandle: rec.ResumeHandle}
		b.sessions[rec.Name] = e
		b.indexPaneID(ctx, e)
	}
	b.log.Info("backend: revival complete", "sessions", len(records))
}

// dispatch handles one Command; returns true if the actor should stop.
func (b *Backend) dispatch(ctx context.Context, cmd Command) bool {
	switch cmd.Kind {
	case CmdCreateSession:
		b.createSession(ctx, cmd.Name, cmd.Agent)
	case CmdDeleteSession:
		b.deleteSession(ctx, cmd.Name)
	case CmdSendKeys:
		if e, ok := b.sessions[cmd.Name]; ok {
			if err := b.mgr.SendKeys(ctx, e.session.TmuxName, cmd.Keys); err != nil {
				b.log.Warn("backend: send_keys failed", "session", cmd.Name, "err", err)
			}
		}
	case CmdCompose:
		b.compose(ctx, cmd)
	case CmdForceCapture:
		if e, ok := b.sessions[cmd.Name]; ok {
			b.capturePreview(ctx, cmd.Name, e)
		}
	case CmdShutdown:
		return true
	}
	return false
}

func (b *Backend) compose(ctx context.Context, cmd Command) {
	e, ok := b.sessions[cmd.Name]
	if !ok {
		return
	}
	var err error
	switch cmd.Mode {
	case ComposeSubmit:
		err = b.mgr.SendTextEnter(ctx, e.session.TmuxName, cmd.Text)
	case ComposeDraft:
		err = b.mgr.SendKeysLiteral(ctx, e.session.TmuxName, cmd.Text)
	}
	if err != nil {
		b.log.Warn("backend: compose failed", "session", cmd.Name, "err", err)
	}
}

func (b *Backend) createSession(ctx context.Context, name string, agent model.AgentKind) {
	if _, exists := b.sessions[name]; exists {
		return
	}
	tmuxName := b.projectPrefix + "-" + name
	if err := b.mgr.CreateSession(ctx, tmuxName, b.workDir, agent.SpawnCommand()); err != nil {
		b.log.Warn("backend: create_session failed", "session", name, "err", err)
		return
	}
	sess := &model.Session{
		Name:      name,
		TmuxName:  tmuxName,
		Agent:     agent,
		CreatedAt: time.Now(),
		Status:    model.StatusRunning,
		Stats:     model.NewSessionStats(),
	}
	e := &entry{session: sess, runtime: NewSessionRuntime(agent)}
	b.sessions[name] = e
	b.indexPaneID(ctx, e)

	if err := b.manifest.Put(ctx, model.SessionRecord{Name: name, Agent: agent, TmuxName: tmuxName}); err != nil {
		b.log.Warn("backend: manifest put failed", "session", name, "err", err)
	}
}

// indexPaneID resolves and caches a session's tmux pane_id so a shared
// Control Connection's %output notifications can be attributed back to
// the one session they belong to, instead of being treated as "some
// session is active" (spec.md §4.3).
func (b *Backend) indexPaneID(ctx context.Context, e *entry) {
	id, err := b.mgr.PaneID(ctx, e.session.TmuxName)
	if err != nil || id == "" {
		return
	}
	e.paneID = id
	b.paneIndex[id] = e.session.Name
}

// persistResumeHandle writes a newly-resolved Claude session UUID onto the
// manifest record so a later restart's Reviver.Revive can pass it to
// ResumeCommand instead of always resuming with an empty handle. Only
// writes once per session (the UUID never changes after the first
// resolution), to keep this off the hot background-refresh path.
func (b *Backend) persistResumeHandle(ctx context.Context, e *entry, claudeUUID string) {
	handle := manifest.DeriveResumeHandle(e.session.Agent, claudeUUID)
	if handle == "" || handle == e.resumeHandle {
		return
	}
	e.resumeHandle = handle
	rec := model.SessionRecord{
		Name:         e.session.Name,
		Agent:        e.session.Agent,
		TmuxName:     e.session.TmuxName,
		ResumeHandle: handle,
	}
	if err := b.manifest.Put(ctx, rec); err != nil {
		b.log.Warn("backend: manifest resume-handle update failed", "session", e.session.Name, "err", err)
	}
}

func (b *Backend) deleteSession(ctx context.Context, name string) {
	e, ok := b.sessions[name]
	if !ok {
		return
	}
	if err := b.mgr.KillSession(ctx, e.session.TmuxName); err != nil {
		b.log.Warn("backend: kill_session failed", "session", name, "err", err)
	}
	if e.paneID != "" {
		delete(b.paneIndex, e.paneID)
	}
	delete(b.sessions, name)
	b.detector.Forget(name)
	if err := b.manifest.Delete(ctx, name); err != nil {
		b.log.Warn("backend: manifest delete failed", "session", name, "err", err)
	}
}

// handleNotification feeds one control-connection notification into the
// relevant session's OutputDetector/SessionRuntime. %output is attributed
// to exactly the session owning that pane_id (via paneIndex) and gated
// through OutputDetector.Changed so an unchanged/repeated chunk of output
// never resets consecutive_dead_ticks or flips a session back to Running.
func (b *Backend) handleNotification(n tmuxmgr.Notification) {
	switch n.Type {
	case "output":
		name, ok := b.paneIndex[n.PaneID]
		if !ok {
			return
		}
		e, ok := b.sessions[name]
		if !ok {
			return
		}
		if !b.detector.Changed("notif:"+name, n.Data) {
			return
		}
		e.runtime.NoteOutput(time.Now())
	case "lagged":
		b.log.Debug("backend: notification subscriber lagged, resyncing from poll")
	}
}

// sessionRefreshTick is the 500ms tick: batch pane status, run debouncers,
// reconcile SessionStatus, and publish a fresh StateSnapshot.
func (b *Backend) sessionRefreshTick(ctx context.Context) {
	statuses, err := b.mgr.BatchPaneStatus(ctx)
	if err != nil {
		b.log.Debug("backend: batch_pane_status failed", "err", err)
	}

	now := time.Now()
	for _, e := range b.sessions {
		st, known := statuses[e.session.TmuxName]
		dead := known && st.Dead
		if known && !st.Dead {
			e.runtime.NoteOutput(st.ActivityTS)
		}
		e.runtime.ActiveSubagents = e.session.Stats.ActiveSubagents

		next := e.runtime.Observe(now, dead)
		if next != e.session.Status {
			e.session.Status = next
			e.session.StatusSince = now
		}
	}

	b.publishSnapshot()
}

// publishSnapshot composes and publishes the latest StateSnapshot.
func (b *Backend) publishSnapshot() {
	views := make([]model.SessionView, 0, len(b.sessions))
	for _, e := range b.sessions {
		views = append(views, model.SessionView{Session: *e.session})
	}
	snapshot := model.StateSnapshot{
		Sessions: views,
		Global:   b.walker.Snapshot(),
		Diff:     diffTree(b.workDir),
	}
	Publish(b.snapshotCh, snapshot)
}

// backgroundRefreshTick is the 50ms tick, cadence-gated per session to
// ~2s: re-reads provider logs, refreshes last-message/stats, and captures
// previews for up to capturesPerTickBudget sessions with observer interest.
func (b *Backend) backgroundRefreshTick(ctx context.Context) {
	now := time.Now()
	captured := 0

	for name, e := range b.sessions {
		if now.Sub(e.lastBackground) < backgroundRefreshCadence {
			continue
		}
		if primary := e.runtime.PrimarySignalTime(); !primary.IsZero() &&
			now.Sub(primary) > backgroundRefreshCadence && !b.observerInterest[name] {
			// This session's preferred activity signal hasn't moved and
			// nobody's watching it — defer the log re-read/capture rather
			// than paying for it every cadence window regardless of
			// whether there's anything new to find.
			continue
		}
		e.lastBackground = now

		b.refreshLog(ctx, e)

		if b.observerInterest[name] && captured < capturesPerTickBudget {
			b.capturePreview(ctx, name, e)
			captured++
		}
	}

	b.walker.Walk(b.baseDir)
}

// refreshLog resolves (if needed) and incrementally re-parses a session's
// provider log, folding new entries into its preview queue and stats.
func (b *Backend) refreshLog(ctx context.Context, e *entry) {
	path, ok := b.resolveLogPath(ctx, e)
	if !ok {
		return
	}

	var result logengine.ParseResult
	var err error
	switch e.session.Agent {
	case model.AgentClaude:
		result, err = b.claudeP.Parse(e.session.Stats, path)
	case model.AgentCodex:
		result, err = b.codexP.Parse(e.session.Stats, path)
	case model.AgentGemini:
		result, err = b.geminiP.Parse(e.session.Stats, path)
	}
	if err != nil {
		b.log.Debug("backend: log parse failed", "session", e.session.Name, "path", path, "err", err)
		return
	}
	if len(result.Entries) == 0 {
		return
	}

	e.session.Stats = result.Stats
	e.runtime.NoteJSONLActivity(time.Now())
	if text := lastAssistantText(result.Entries); text != "" {
		e.session.LastMessage = text
	}

	entries := result.Entries
	if over := len(entries) - model.MaxConversationEntries; over > 0 {
		entries = entries[over:]
	}
	Enqueue(b.previewCh, model.PreviewUpdate{
		SessionName: e.session.Name,
		Kind:        model.PreviewParsedConversation,
		Entries:     entries,
	})
}

func lastAssistantText(entries []model.ConversationEntry) string {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Kind == model.EntryAssistant {
			return entries[i].Text
		}
	}
	return ""
}

// resolveLogPath finds (caching once resolved) the provider log file path
// for a session.
func (b *Backend) resolveLogPath(ctx context.Context, e *entry) (string, bool) {
	if e.logPath != "" {
		if _, err := os.Stat(e.logPath); err == nil {
			return e.logPath, true
		}
	}

	switch e.session.Agent {
	case model.AgentClaude:
		pid, ok := b.paneLeaderPID(ctx, e)
		if !ok {
			return "", false
		}
		id, ok := b.uuidRes.Resolve(pid)
		if !ok {
			return "", false
		}
		e.logPath = logengine.ClaudeLogPath(b.homeDir, b.workDir, id)
		b.persistResumeHandle(ctx, e, id)
		return e.logPath, true

	case model.AgentCodex:
		dir := filepath.Join(b.homeDir, ".codex", "sessions")
		p, ok := newestMatchingFile(dir)
		if !ok {
			return "", false
		}
		e.logPath = p
		return e.logPath, true

	case model.AgentGemini:
		dir := filepath.Join(b.homeDir, ".gemini", "tmp", logengine.EscapeCwd(b.workDir), "chats")
		p, ok := newestMatchingFile(dir)
		if !ok {
			return "", false
		}
		e.logPath = p
		return e.logPath, true
	}
	return "", false
}

// paneLeaderPID fetches the tmux pane's leader PID via SessionManager,
// feeding the Claude UUID resolver's process-tree/fd-scan lookup.
func (b *Backend) paneLeaderPID(ctx context.Context, e *entry) (int, bool) {
	pid, err := b.mgr.PanePID(ctx, e.session.TmuxName)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func newestMatchingFile(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	var best string
	var bestMod time.Time
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(bestMod) {
			bestMod = info.ModTime()
			best = filepath.Join(dir, de.Name())
		}
	}
	return best, best != ""
}

// capturePreview captures and deduplicates a session's raw pane content,
// enqueuing a RawCapture PreviewUpdate only when it actually changed.
func (b *Backend) capturePreview(ctx context.Context, name string, e *entry) {
	raw, err := b.mgr.CapturePane(ctx, e.session.TmuxName)
	if err != nil {
		return
	}
	if !b.detector.Changed(name, raw) {
		return
	}
	Enqueue(b.previewCh, model.PreviewUpdate{
		SessionName: name,
		Kind:        model.PreviewRawCapture,
		Raw:         raw,
	})
}
