package tmuxmgr

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MockManager is a canned-data SessionManager for tests, implementing the
// same capability set as SubprocessManager/ControlManager (spec §9 "a test
// provider (mock) implements the same capability set").
type MockManager struct {
	mu sync.Mutex

	Sessions    map[string]*MockSession
	AgentTypes  map[string]string
	CreateErr   error
	SentKeys    []MockSentKeys
}

// MockSession is one fake session's recorded state.
type MockSession struct {
	Name     string
	Cwd      string
	Cmd      string
	Dead     bool
	Killed   bool
	Pane     string // capture-pane content to return
	Activity time.Time
	PanePID  int
	PaneID   string
}

// MockSentKeys records one SendKeys/SendKeysLiteral/SendTextEnter call.
type MockSentKeys struct {
	Session   string
	Keys      []string
	Literal   string
	IsLiteral bool
}

func NewMockManager() *MockManager {
	return &MockManager{
		Sessions:   make(map[string]*MockSession),
		AgentTypes: make(map[string]string),
	}
}

func (m *MockManager) ListSessions(ctx context.Context, projectPrefix string) ([]ListedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ListedSession
	for name, s := range m.Sessions {
		if s.Killed || !strings.HasPrefix(name, projectPrefix) {
			continue
		}
		out = append(out, ListedSession{Name: name, Dead: s.Dead})
	}
	return out, nil
}

func (m *MockManager) CreateSession(ctx context.Context, name, cwd, cmd string) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sessions[name] = &MockSession{Name: name, Cwd: cwd, Cmd: cmd, Activity: time.Now()}
	return nil
}

func (m *MockManager) KillSession(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Sessions[name]; ok {
		s.Killed = true
	}
	return nil
}

func (m *MockManager) SendKeys(ctx context.Context, name string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentKeys = append(m.SentKeys, MockSentKeys{Session: name, Keys: keys})
	return nil
}

func (m *MockManager) SendKeysLiteral(ctx context.Context, name, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentKeys = append(m.SentKeys, MockSentKeys{Session: name, Literal: text, IsLiteral: true})
	return nil
}

func (m *MockManager) SendTextEnter(ctx context.Context, name, text string) error {
	if err := m.SendKeysLiteral(ctx, name, text); err != nil {
		return err
	}
	return m.SendKeys(ctx, name, []string{"Enter"})
}

func (m *MockManager) CapturePane(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Sessions[name]; ok {
		return s.Pane, nil
	}
	return "", nil
}

func (m *MockManager) CapturePaneScrollback(ctx context.Context, name string, lines int) (string, error) {
	return m.CapturePane(ctx, name)
}

func (m *MockManager) BatchPaneStatus(ctx context.Context) (map[string]PaneStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]PaneStatus)
	for name, s := range m.Sessions {
		if s.Killed {
			continue
		}
		out[name] = PaneStatus{Dead: s.Dead, ActivityTS: s.Activity}
	}
	return out, nil
}

func (m *MockManager) GetAgentType(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.AgentTypes[name], nil
}

func (m *MockManager) PanePID(ctx context.Context, name string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Sessions[name]; ok {
		return s.PanePID, nil
	}
	return 0, nil
}

func (m *MockManager) PaneID(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Sessions[name]; ok {
		return s.PaneID, nil
	}
	return "", nil
}

func (m *MockManager) Close() error { return nil }

// SetDead marks a mock session dead (for debounce scenario tests).
func (m *MockManager) SetDead(name string, dead bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Sessions[name]; ok {
		s.Dead = dead
		if !dead {
			s.Activity = time.Now()
		}
	}
}

// SetPane sets the capture-pane content a mock session returns.
func (m *MockManager) SetPane(name, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Sessions[name]; ok {
		s.Pane = content
	}
}
