package backend

import (
	"time"

	"github.com/rencryptofish/hydra/internal/model"
)

// deadTickThreshold is the normal consecutive-dead-tick count required
// before a session flips to Exited (spec.md §4.3).
const deadTickThreshold = 3

// deadTickThresholdSubagents is the longer threshold used while a session
// reports active subagents — orchestrator CLIs briefly lose their pane
// during subagent hand-off, and the shorter threshold would flicker
// Exited on every hand-off.
const deadTickThresholdSubagents = 15

// outputActivityWindow and jsonlActivityWindow are the recency windows
// that count as "active" for the Running/Idle decision in step 2.
const (
	outputActivityWindow = 800 * time.Millisecond
	jsonlActivityWindow  = 2 * time.Second
)

// activityStrategy picks which signal PrimarySignalTime reports for a
// session kind: orchestrator CLIs (Claude, Codex) use their JSONL log
// cadence, since their tmux pane can go quiet mid-tool-call while still
// working; Gemini uses its tmux %output events, since its log file is
// rewritten wholesale rather than appended incrementally. Observe's
// Running/Idle decision does not consult the strategy: either signal
// within its window counts as activity.
type activityStrategy int

const (
	strategyJSONLPreferred activityStrategy = iota
	strategyOutputPreferred
)

func strategyFor(agent model.AgentKind) activityStrategy {
	switch agent {
	case model.AgentGemini:
		return strategyOutputPreferred
	default:
		return strategyJSONLPreferred
	}
}

// SessionRuntime holds one session's debounce state across refresh ticks.
// Exclusively owned by the Backend (spec.md §3 ownership rule) — nothing
// outside this package ever mutates it.
type SessionRuntime struct {
	Agent model.AgentKind

	LastOutputTS         time.Time
	LastJSONLModTime     time.Time
	ConsecutiveDeadTicks int
	ActiveSubagents      int

	strategy activityStrategy
}

// NewSessionRuntime starts a runtime with its strategy fixed at creation —
// an agent kind never changes over a session's life.
func NewSessionRuntime(agent model.AgentKind) *SessionRuntime {
	return &SessionRuntime{Agent: agent, strategy: strategyFor(agent)}
}

// Observe folds one refresh tick's pane-dead flag into the runtime and
// returns the resulting status, applying spec.md §4.3's three-step
// decision rule. now is passed in (not time.Now()) so tests can drive the
// debounce thresholds deterministically.
func (r *SessionRuntime) Observe(now time.Time, dead bool) model.SessionStatus {
	threshold := deadTickThreshold
	if r.ActiveSubagents > 0 {
		threshold = deadTickThresholdSubagents
	}

	if dead {
		r.ConsecutiveDeadTicks++
		if r.ConsecutiveDeadTicks >= threshold {
			return model.StatusExited
		}
		// Not yet debounced past threshold; keep reporting on the
		// activity signal below rather than flipping early.
	} else {
		r.ConsecutiveDeadTicks = 0
	}

	active := now.Sub(r.LastOutputTS) <= outputActivityWindow ||
		now.Sub(r.LastJSONLModTime) <= jsonlActivityWindow

	if active {
		return model.StatusRunning
	}
	return model.StatusIdle
}

// NoteOutput records a fresh %output notification's arrival time.
func (r *SessionRuntime) NoteOutput(ts time.Time) {
	r.LastOutputTS = ts
}

// NoteJSONLActivity records the provider log file's mtime advancing.
func (r *SessionRuntime) NoteJSONLActivity(ts time.Time) {
	r.LastJSONLModTime = ts
}

// PrimarySignalTime returns whichever timestamp this runtime's strategy
// treats as primary, for cadence-gating decisions that prefer one signal.
func (r *SessionRuntime) PrimarySignalTime() time.Time {
	if r.strategy == strategyOutputPreferred {
		return r.LastOutputTS
	}
	return r.LastJSONLModTime
}
