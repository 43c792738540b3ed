package manifest

import (
	"context"
	"testing"

	"github.com/rencryptofish/hydra/internal/model"
)

func TestStorePutLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	rec := model.SessionRecord{Name: "alpha", Agent: model.AgentClaude, TmuxName: "hydra-deadbeef-alpha"}
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Reopening must see the same persisted record, proving the write is
	// durable rather than only cached in-process.
	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	records, err := reopened.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 1 || records[0] != rec {
		t.Fatalf("Load() = %+v, want [%+v]", records, rec)
	}
}

func TestStorePutUpsertsByName(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)
	ctx := context.Background()

	first := model.SessionRecord{Name: "bravo", Agent: model.AgentCodex, TmuxName: "hydra-x-bravo"}
	s.Put(ctx, first)

	updated := first
	updated.FailedAttempts = 2
	if err := s.Put(ctx, updated); err != nil {
		t.Fatalf("Put update: %v", err)
	}

	records, _ := s.Load(ctx)
	if len(records) != 1 {
		t.Fatalf("expected one record after upsert, got %d", len(records))
	}
	if records[0].FailedAttempts != 2 {
		t.Fatalf("Put did not update existing record: %+v", records[0])
	}
}

func TestStoreDeleteRemovesRecord(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)
	ctx := context.Background()

	s.Put(ctx, model.SessionRecord{Name: "charlie", Agent: model.AgentGemini})
	s.Put(ctx, model.SessionRecord{Name: "delta", Agent: model.AgentGemini})

	if err := s.Delete(ctx, "charlie"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	records, _ := s.Load(ctx)
	if len(records) != 1 || records[0].Name != "delta" {
		t.Fatalf("Delete left unexpected records: %+v", records)
	}
}

func TestStoreLoadEmptyWhenNoFile(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)
	records, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load on fresh store: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected no records, got %+v", records)
	}
}

func TestStoreReplaceOverwritesWholeSet(t *testing.T) {
	dir := t.TempDir()
	s, _ := Open(dir)
	ctx := context.Background()

	s.Put(ctx, model.SessionRecord{Name: "echo", Agent: model.AgentClaude})
	if err := s.Replace(ctx, []model.SessionRecord{{Name: "foxtrot", Agent: model.AgentCodex}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	records, _ := s.Load(ctx)
	if len(records) != 1 || records[0].Name != "foxtrot" {
		t.Fatalf("Replace did not overwrite, got %+v", records)
	}
}
