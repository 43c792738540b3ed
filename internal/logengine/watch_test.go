package logengine

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherWakesOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(newTestLogger(), dir)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "x.jsonl"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case <-w.Wake():
	case <-time.After(2 * time.Second):
		t.Fatal("expected a wake signal after a write to a watched dir")
	}
}

func TestWatcherSkipsMissingDirsWithoutError(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "does-not-exist")
	w, err := NewWatcher(newTestLogger(), missing)
	if err != nil {
		t.Fatalf("NewWatcher must tolerate a missing dir, got err: %v", err)
	}
	defer w.Close()
}
