package manifest

import (
	"context"
	"testing"

	"github.com/rencryptofish/hydra/internal/model"
	"github.com/rencryptofish/hydra/internal/tmuxmgr"
)

func TestReviveKeepsLiveSessionUntouched(t *testing.T) {
	dir := t.TempDir()
	store, _ := Open(dir)
	ctx := context.Background()

	rec := model.SessionRecord{Name: "alpha", Agent: model.AgentClaude, TmuxName: "hydra-aaaa-alpha"}
	store.Put(ctx, rec)

	mgr := tmuxmgr.NewMockManager()
	mgr.Sessions[rec.TmuxName] = &tmuxmgr.MockSession{Name: rec.TmuxName}

	reviver := NewReviver(store, mgr, func(string) string { return "/work" })
	got, err := reviver.Revive(ctx, "hydra-aaaa")
	if err != nil {
		t.Fatalf("Revive: %v", err)
	}
	if len(got) != 1 || got[0].TmuxName != rec.TmuxName {
		t.Fatalf("Revive() = %+v, want the live record untouched", got)
	}
}

func TestReviveRecreatesDeadSession(t *testing.T) {
	dir := t.TempDir()
	store, _ := Open(dir)
	ctx := context.Background()

	rec := model.SessionRecord{Name: "bravo", Agent: model.AgentCodex, TmuxName: "hydra-bbbb-bravo"}
	store.Put(ctx, rec)

	mgr := tmuxmgr.NewMockManager() // no live session named hydra-bbbb-bravo

	reviver := NewReviver(store, mgr, func(string) string { return "/work" })
	got, err := reviver.Revive(ctx, "hydra-bbbb")
	if err != nil {
		t.Fatalf("Revive: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the session to be recreated and kept, got %+v", got)
	}
	if _, ok := mgr.Sessions[rec.TmuxName]; !ok {
		t.Fatalf("Revive did not call CreateSession for the dead record")
	}
}

func TestRevivePrunesAfterMaxFailedAttempts(t *testing.T) {
	dir := t.TempDir()
	store, _ := Open(dir)
	ctx := context.Background()

	rec := model.SessionRecord{
		Name: "charlie", Agent: model.AgentGemini, TmuxName: "hydra-cccc-charlie",
		FailedAttempts: model.MaxFailedAttempts - 1,
	}
	store.Put(ctx, rec)

	mgr := tmuxmgr.NewMockManager()
	mgr.CreateErr = errAlwaysFails

	reviver := NewReviver(store, mgr, func(string) string { return "/work" })
	got, err := reviver.Revive(ctx, "hydra-cccc")
	if err != nil {
		t.Fatalf("Revive: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected record pruned after reaching MaxFailedAttempts, got %+v", got)
	}

	persisted, _ := store.Load(ctx)
	if len(persisted) != 0 {
		t.Fatalf("pruned record must also be gone from disk, got %+v", persisted)
	}
}

func TestDeriveResumeHandleOnlyForClaude(t *testing.T) {
	if h := DeriveResumeHandle(model.AgentClaude, " some-uuid "); h != "some-uuid" {
		t.Errorf("DeriveResumeHandle(Claude) = %q, want trimmed uuid", h)
	}
	if h := DeriveResumeHandle(model.AgentCodex, "some-uuid"); h != "" {
		t.Errorf("DeriveResumeHandle(Codex) = %q, want empty", h)
	}
	if h := DeriveResumeHandle(model.AgentGemini, "some-uuid"); h != "" {
		t.Errorf("DeriveResumeHandle(Gemini) = %q, want empty", h)
	}
}

var errAlwaysFails = &mockCreateError{}

type mockCreateError struct{}

func (*mockCreateError) Error() string { return "mock: create always fails" }
