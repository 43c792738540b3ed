package tmuxmgr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ControlManager implements SessionManager over a single shared
// ControlConnection, avoiding the per-call subprocess spawn cost of
// SubprocessManager. It is the connection's one "command issuer" holder;
// the Backend separately subscribes to the same connection's notification
// stream (spec §3: the connection is shared/refcounted between the two).
type ControlManager struct {
	conn *ControlConnection

	agentTypeMu sync.Mutex
	agentTypes  map[string]string
}

// NewControlManager wraps an already-connected ControlConnection.
func NewControlManager(conn *ControlConnection) *ControlManager {
	return &ControlManager{conn: conn, agentTypes: make(map[string]string)}
}

// Connection exposes the shared connection so the Backend can subscribe to
// notifications independently of issuing commands.
func (m *ControlManager) Connection() *ControlConnection { return m.conn }

func (m *ControlManager) ListSessions(ctx context.Context, projectPrefix string) ([]ListedSession, error) {
	lines, err := m.conn.Submit(ctx, []string{"list-sessions", "-F", "#{session_name}|#{session_created}"})
	if err != nil {
		return nil, nil
	}
	var sessions []ListedSession
	for _, line := range lines {
		parts := strings.SplitN(line, "|", 2)
		if len(parts) != 2 || !strings.HasPrefix(parts[0], projectPrefix) {
			continue
		}
		ts, _ := strconv.ParseInt(parts[1], 10, 64)
		sessions = append(sessions, ListedSession{Name: parts[0], Created: time.Unix(ts, 0)})
	}
	return sessions, nil
}

func (m *ControlManager) CreateSession(ctx context.Context, name, cwd, cmd string) error {
	wrapped := fmt.Sprintf("unset CLAUDECODE CLAUDE_CODE_ENTRYPOINT; exec %s", cmd)
	if _, err := m.conn.Submit(ctx, []string{"new-session", "-d", "-s", name, "-x", "200", "-y", "50", "-c", cwd, wrapped}); err != nil {
		return err
	}
	_, _ = m.conn.Submit(ctx, []string{"set-option", "-t", name, "remain-on-exit", "on"})
	_, _ = m.conn.Submit(ctx, []string{"set-environment", "-t", name, "-r", "CLAUDECODE"})
	_, _ = m.conn.Submit(ctx, []string{"set-environment", "-t", name, "-r", "CLAUDE_CODE_ENTRYPOINT"})
	return nil
}

func (m *ControlManager) KillSession(ctx context.Context, name string) error {
	_, err := m.conn.Submit(ctx, []string{"kill-session", "-t", name})
	return err
}

func (m *ControlManager) SendKeys(ctx context.Context, name string, keys []string) error {
	_, err := m.conn.Submit(ctx, append([]string{"send-keys", "-t", name}, keys...))
	return err
}

func (m *ControlManager) SendKeysLiteral(ctx context.Context, name, text string) error {
	_, err := m.conn.Submit(ctx, []string{"send-keys", "-t", name, "-l", text})
	return err
}

func (m *ControlManager) SendTextEnter(ctx context.Context, name, text string) error {
	if err := m.SendKeysLiteral(ctx, name, text); err != nil {
		return err
	}
	time.Sleep(EnterDelay)
	return m.SendKeys(ctx, name, []string{"Enter"})
}

func (m *ControlManager) CapturePane(ctx context.Context, name string) (string, error) {
	lines, err := m.conn.Submit(ctx, []string{"capture-pane", "-p", "-e", "-t", name})
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

func (m *ControlManager) CapturePaneScrollback(ctx context.Context, name string, lines int) (string, error) {
	if lines <= 0 {
		lines = 5000
	}
	out, err := m.conn.Submit(ctx, []string{"capture-pane", "-p", "-e", "-t", name, "-S", fmt.Sprintf("-%d", lines)})
	if err != nil {
		return "", err
	}
	return strings.Join(out, "\n"), nil
}

func (m *ControlManager) BatchPaneStatus(ctx context.Context) (map[string]PaneStatus, error) {
	lines, err := m.conn.Submit(ctx, []string{"list-panes", "-a", "-F", "#{session_name}|#{pane_dead}|#{pane_activity}"})
	if err != nil {
		return nil, nil
	}
	result := make(map[string]PaneStatus)
	for _, line := range lines {
		parts := strings.SplitN(line, "|", 3)
		if len(parts) != 3 {
			continue
		}
		dead := parts[1] == "1"
		ts, _ := strconv.ParseInt(parts[2], 10, 64)
		result[parts[0]] = PaneStatus{Dead: dead, ActivityTS: time.Unix(ts, 0)}
	}
	return result, nil
}

func (m *ControlManager) GetAgentType(ctx context.Context, name string) (string, error) {
	m.agentTypeMu.Lock()
	if v, ok := m.agentTypes[name]; ok {
		m.agentTypeMu.Unlock()
		return v, nil
	}
	m.agentTypeMu.Unlock()

	lines, err := m.conn.Submit(ctx, []string{"show-environment", "-t", name, "HYDRA_AGENT_TYPE"})
	if err != nil {
		return "", err
	}
	val := ""
	if len(lines) > 0 {
		val = strings.TrimPrefix(lines[0], "HYDRA_AGENT_TYPE=")
	}
	m.agentTypeMu.Lock()
	m.agentTypes[name] = val
	m.agentTypeMu.Unlock()
	return val, nil
}

func (m *ControlManager) PanePID(ctx context.Context, name string) (int, error) {
	lines, err := m.conn.Submit(ctx, []string{"display-message", "-p", "-t", name, "#{pane_pid}"})
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, fmt.Errorf("tmuxmgr: no pane_pid response for %q", name)
	}
	return strconv.Atoi(strings.TrimSpace(lines[0]))
}

func (m *ControlManager) PaneID(ctx context.Context, name string) (string, error) {
	lines, err := m.conn.Submit(ctx, []string{"display-message", "-p", "-t", name, "#{pane_id}"})
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("tmuxmgr: no pane_id response for %q", name)
	}
	return strings.TrimSpace(lines[0]), nil
}

// Close releases the shared ControlConnection. The Backend's notification
// subscription is independent (its own Subscribe/unsubscribe pair), so
// closing here is safe once both holders are done — spec §9's cyclic-
// ownership note.
func (m *ControlManager) Close() error {
	return m.conn.Close()
}
