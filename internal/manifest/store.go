// Package manifest persists the set of sessions Hydra knows about to
// ~/.hydra/<project_id>/sessions.json, and implements the startup revival
// algorithm that reattaches or respawns sessions whose tmux counterpart is
// gone. Grounded on the teacher's state.go Store (mutex-guarded in-memory
// slice, marshal-to-temp-then-rename persistence), generalized with a
// cross-process advisory lock since Hydra's CLI surface means more than
// one process can touch the same manifest concurrently.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/rencryptofish/hydra/internal/model"
)

// file is the on-disk shape of sessions.json.
type file struct {
	Records []model.SessionRecord `json:"records"`
}

// Store guards one project's manifest file. Open takes an explicit
// directory so tests run against a temp directory rather than the real
// home directory (spec.md §4.5 "tests use a temp dir").
type Store struct {
	mu   sync.Mutex
	path string
	lock *flock.Flock
}

// Open returns a Store backed by "<dir>/sessions.json", where dir is
// already the resolved per-project hydra directory (config.HydraDir's
// return value), creating it if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create manifest dir: %w", err)
	}
	path := filepath.Join(dir, "sessions.json")
	return &Store{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// withLock runs fn while holding both the in-process mutex (fast path for
// same-process callers) and the cross-process advisory flock (so a
// concurrent `hydra new` invocation in another terminal can't interleave
// its read-modify-write with the running TUI's and lose a record).
func (s *Store) withLock(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire manifest lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("manifest lock busy: %s", s.path)
	}
	defer s.lock.Unlock()

	return fn()
}

func (s *Store) readLocked() ([]model.SessionRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return f.Records, nil
}

func (s *Store) writeLocked(records []model.SessionRecord) error {
	data, err := json.MarshalIndent(file{Records: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".sessions-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp manifest: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp manifest: %w", err)
	}
	return nil
}

// Load returns every record currently persisted.
func (s *Store) Load(ctx context.Context) ([]model.SessionRecord, error) {
	var out []model.SessionRecord
	err := s.withLock(ctx, func() error {
		var err error
		out, err = s.readLocked()
		return err
	})
	return out, err
}

// Put upserts one record by Name and persists atomically.
func (s *Store) Put(ctx context.Context, rec model.SessionRecord) error {
	return s.withLock(ctx, func() error {
		records, err := s.readLocked()
		if err != nil {
			return err
		}
		replaced := false
		for i, r := range records {
			if r.Name == rec.Name {
				records[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			records = append(records, rec)
		}
		return s.writeLocked(records)
	})
}

// Delete removes one record by Name, if present.
func (s *Store) Delete(ctx context.Context, name string) error {
	return s.withLock(ctx, func() error {
		records, err := s.readLocked()
		if err != nil {
			return err
		}
		kept := records[:0]
		for _, r := range records {
			if r.Name != name {
				kept = append(kept, r)
			}
		}
		return s.writeLocked(kept)
	})
}

// Replace overwrites the whole record set (used by the revival algorithm
// after pruning/updating failed_attempts in one pass).
func (s *Store) Replace(ctx context.Context, records []model.SessionRecord) error {
	return s.withLock(ctx, func() error {
		return s.writeLocked(records)
	})
}
