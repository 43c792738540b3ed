// Package config resolves the HOME-derived paths Hydra persists to and sets
// up structured logging. Every function here takes an explicit base_dir (or
// derives one from HOME once, at the call site) so tests can redirect
// storage to a temp directory — see spec §9 "avoid global state / singletons".
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ProjectID returns the first 8 hex characters of SHA-256(cwd), giving
// project isolation for tmux session names and manifest paths without
// requiring a registry.
func ProjectID(cwd string) string {
	sum := sha256.Sum256([]byte(cwd))
	return hex.EncodeToString(sum[:])[:8]
}

// TmuxSessionName builds "hydra-<hex8>-<user>" for a given project id and
// OS user name.
func TmuxSessionName(projectID, user string) string {
	return fmt.Sprintf("hydra-%s-%s", projectID, user)
}

// HydraDir returns "<baseDir>/.hydra/<project_id>", creating it if absent.
func HydraDir(baseDir, projectID string) (string, error) {
	dir := filepath.Join(baseDir, ".hydra", projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create hydra dir: %w", err)
	}
	return dir, nil
}

// ManifestPath returns "<baseDir>/.hydra/<project_id>/sessions.json".
func ManifestPath(baseDir, projectID string) string {
	return filepath.Join(baseDir, ".hydra", projectID, "sessions.json")
}

// CurrentUser returns $USER, falling back to "hydra" if unset (matches the
// teacher's habit of never hard-failing on an absent env var).
func CurrentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "hydra"
}

// HomeDir returns $HOME, the base_dir every on-disk layout in spec §4.4/§4.5
// is rooted at by default.
func HomeDir() string {
	return os.Getenv("HOME")
}

// NewLogger opens (creating if absent) "<baseDir>/.hydra/<project_id>/hydra.log"
// and returns a slog.Logger writing text-formatted records to it. No example
// repo in the retrieval pack imports a structured-logging library (zerolog,
// zap, logrus); the standard library's log/slog is the only ecosystem-
// neutral choice available, so this one ambient concern stays on stdlib —
// see DESIGN.md.
func NewLogger(baseDir, projectID string) (*slog.Logger, func(), error) {
	dir, err := HydraDir(baseDir, projectID)
	if err != nil {
		return nil, func() {}, err
	}
	f, err := os.OpenFile(filepath.Join(dir, "hydra.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, func() {}, fmt.Errorf("open log file: %w", err)
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), func() { _ = f.Close() }, nil
}
