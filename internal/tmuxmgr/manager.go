// Package tmuxmgr implements the Session Manager (tmux operations) and the
// persistent tmux control-mode connection. Two SessionManager
// implementations are provided — Subprocess (one tmux child per call) and
// Control (one long-lived "tmux -C" child, see control.go) — plus a Mock
// for tests. Grounded on the teacher's tmux.go, generalized from a single
// hardcoded agent invocation to the capability set spec.md §4.1 names.
package tmuxmgr

import (
	"context"
	"time"
)

// ListedSession is one row of ListSessions' result.
type ListedSession struct {
	Name    string
	Created time.Time
	Dead    bool
}

// PaneStatus is one row of BatchPaneStatus' result.
type PaneStatus struct {
	Dead       bool
	ActivityTS time.Time
}

// SessionManager is the capability set the Backend actor consumes for all
// tmux I/O. Every method is fallible; callers treat errors as the
// "transient I/O" taxonomy entry from spec §7 and retry on the next tick.
type SessionManager interface {
	// ListSessions returns every live tmux session whose name carries
	// projectPrefix.
	ListSessions(ctx context.Context, projectPrefix string) ([]ListedSession, error)

	// CreateSession starts a detached tmux session running cmd in cwd,
	// with CLAUDECODE / CLAUDE_CODE_ENTRYPOINT stripped from its
	// environment and remain-on-exit enabled so a dead pane can still be
	// captured once more before cleanup.
	CreateSession(ctx context.Context, name, cwd, cmd string) error

	KillSession(ctx context.Context, name string) error

	// SendKeys maps UI key events to tmux key names (e.g. "Enter", "C-c")
	// and sends them as-is — no literal flag, no trailing Enter appended.
	SendKeys(ctx context.Context, name string, keys []string) error

	// SendKeysLiteral sends text as raw bytes (tmux send-keys -l). The
	// base SubprocessManager/ControlManager implement this for real;
	// a manager that cannot (none currently) may no-op.
	SendKeysLiteral(ctx context.Context, name, text string) error

	// SendTextEnter sends literal text, waits at least 80ms, then sends
	// Enter as a separate command. Several agent CLIs drop Enter if it
	// arrives in the same write as the preceding text.
	SendTextEnter(ctx context.Context, name, text string) error

	CapturePane(ctx context.Context, name string) (string, error)
	CapturePaneScrollback(ctx context.Context, name string, lines int) (string, error)

	// BatchPaneStatus returns liveness/activity for every known pane in
	// one call, rather than one call per session.
	BatchPaneStatus(ctx context.Context) (map[string]PaneStatus, error)

	// GetAgentType reads the HYDRA_AGENT_TYPE variable from the session's
	// tmux environment. CreateSession does not set this variable.
	GetAgentType(ctx context.Context, name string) (string, error)

	// PanePID returns the pane's leader process PID (tmux's #{pane_pid}),
	// used by the Claude log parser to resolve a session's JSONL path via
	// process-tree/fd scan.
	PanePID(ctx context.Context, name string) (int, error)

	// PaneID returns the pane's tmux-assigned identifier (#{pane_id}, e.g.
	// "%3"), used by the Backend actor to attribute a shared Control
	// Connection's %output notifications to the one session they belong
	// to instead of crediting every live session.
	PaneID(ctx context.Context, name string) (string, error)

	// Close releases any held resources (e.g. the control connection).
	Close() error
}

// EnterDelay is the minimum pause SendTextEnter waits between writing text
// and sending Enter.
const EnterDelay = 80 * time.Millisecond
