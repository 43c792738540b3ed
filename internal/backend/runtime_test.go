package backend

import (
	"testing"
	"time"

	"github.com/rencryptofish/hydra/internal/model"
)

func TestObserveRequiresThreeDeadTicksBeforeExited(t *testing.T) {
	r := NewSessionRuntime(model.AgentClaude)
	now := time.Unix(1000, 0)

	for i := 0; i < deadTickThreshold-1; i++ {
		status := r.Observe(now, true)
		if status == model.StatusExited {
			t.Fatalf("flipped to Exited after only %d dead ticks, want %d", i+1, deadTickThreshold)
		}
	}
	status := r.Observe(now, true)
	if status != model.StatusExited {
		t.Fatalf("Observe after %d consecutive dead ticks = %v, want Exited", deadTickThreshold, status)
	}
}

func TestObserveUsesLongerThresholdWithActiveSubagents(t *testing.T) {
	r := NewSessionRuntime(model.AgentClaude)
	r.ActiveSubagents = 1
	now := time.Unix(2000, 0)

	for i := 0; i < deadTickThresholdSubagents-1; i++ {
		if status := r.Observe(now, true); status == model.StatusExited {
			t.Fatalf("flipped to Exited after only %d dead ticks with active subagents, want %d", i+1, deadTickThresholdSubagents)
		}
	}
	if status := r.Observe(now, true); status != model.StatusExited {
		t.Fatalf("Observe after %d dead ticks with active subagents = %v, want Exited", deadTickThresholdSubagents, status)
	}
}

func TestObserveRunningWithinOutputWindow(t *testing.T) {
	r := NewSessionRuntime(model.AgentClaude)
	base := time.Unix(3000, 0)
	r.NoteOutput(base)

	status := r.Observe(base.Add(500*time.Millisecond), false)
	if status != model.StatusRunning {
		t.Fatalf("Observe within output window = %v, want Running", status)
	}
}

func TestObserveIdleAfterActivityWindowsExpire(t *testing.T) {
	r := NewSessionRuntime(model.AgentGemini)
	base := time.Unix(4000, 0)
	r.NoteOutput(base)

	status := r.Observe(base.Add(2*time.Second), false)
	if status != model.StatusIdle {
		t.Fatalf("Observe after both windows expired = %v, want Idle", status)
	}
}

func TestObserveDeadTickResetsOnAlivePane(t *testing.T) {
	r := NewSessionRuntime(model.AgentCodex)
	now := time.Unix(5000, 0)

	r.Observe(now, true)
	r.Observe(now, true)
	r.Observe(now, false) // pane alive again, should reset the counter
	if r.ConsecutiveDeadTicks != 0 {
		t.Fatalf("ConsecutiveDeadTicks = %d after alive observation, want 0", r.ConsecutiveDeadTicks)
	}

	for i := 0; i < deadTickThreshold-1; i++ {
		if status := r.Observe(now, true); status == model.StatusExited {
			t.Fatalf("exited too early after reset, at tick %d", i+1)
		}
	}
	if status := r.Observe(now, true); status != model.StatusExited {
		t.Fatalf("expected Exited once threshold reached after reset, got %v", status)
	}
}

func TestStrategyForAgent(t *testing.T) {
	if strategyFor(model.AgentGemini) != strategyOutputPreferred {
		t.Fatalf("Gemini should prefer output signal")
	}
	if strategyFor(model.AgentClaude) != strategyJSONLPreferred {
		t.Fatalf("Claude should prefer JSONL signal")
	}
	if strategyFor(model.AgentCodex) != strategyJSONLPreferred {
		t.Fatalf("Codex should prefer JSONL signal")
	}
}
