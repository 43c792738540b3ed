package manifest

import (
	"context"
	"strings"

	"github.com/rencryptofish/hydra/internal/model"
	"github.com/rencryptofish/hydra/internal/tmuxmgr"
)

// Reviver runs the startup revival algorithm (spec.md §4.5): reconcile the
// manifest against tmux's live sessions, recreate anything missing using
// its agent's resume command, and prune records that fail too often.
type Reviver struct {
	store   *Store
	mgr     tmuxmgr.SessionManager
	cwd     func(sessionName string) string // working directory to recreate a session in
}

// NewReviver wires a Store and SessionManager together. cwdFor resolves the
// working directory a given (now-dead) tmux session name should be
// recreated in; callers typically close over the manifest record's stored
// directory if they track one, or fall back to the process cwd.
func NewReviver(store *Store, mgr tmuxmgr.SessionManager, cwdFor func(sessionName string) string) *Reviver {
	return &Reviver{store: store, mgr: mgr, cwd: cwdFor}
}

// Revive performs steps 1-4 of spec.md §4.5's revival algorithm and
// returns the final, persisted record set.
func (r *Reviver) Revive(ctx context.Context, projectPrefix string) ([]model.SessionRecord, error) {
	records, err := r.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	live, err := r.mgr.ListSessions(ctx, projectPrefix)
	if err != nil {
		return nil, err
	}
	liveSet := make(map[string]bool, len(live))
	for _, l := range live {
		if !l.Dead {
			liveSet[l.Name] = true
		}
	}

	var kept []model.SessionRecord
	for _, rec := range records {
		if liveSet[rec.TmuxName] {
			rec.FailedAttempts = 0
			kept = append(kept, rec)
			continue
		}

		cmd := rec.Agent.ResumeCommand(rec.ResumeHandle)
		cwd := r.cwd(rec.TmuxName)
		if err := r.mgr.CreateSession(ctx, rec.TmuxName, cwd, cmd); err != nil {
			rec.FailedAttempts++
			if rec.FailedAttempts >= model.MaxFailedAttempts {
				continue // dropped: reached MAX_FAILED_ATTEMPTS
			}
			kept = append(kept, rec)
			continue
		}

		rec.FailedAttempts = 0
		kept = append(kept, rec)
	}

	if err := r.store.Replace(ctx, kept); err != nil {
		return nil, err
	}
	return kept, nil
}

// DeriveResumeHandle extracts whatever the Claude backend needs to pass to
// `--resume` from a resolved session UUID; for Codex/Gemini the manifest
// record's ResumeHandle stays empty since their resume commands take no
// argument.
func DeriveResumeHandle(agent model.AgentKind, claudeUUID string) string {
	if agent != model.AgentClaude {
		return ""
	}
	return strings.TrimSpace(claudeUUID)
}
