package logengine

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rencryptofish/hydra/internal/model"
)

// fileState is one tracked log file's cached parse progress.
type fileState struct {
	mtime  time.Time
	offset int64 // byte offset (Claude/Codex) or message index (Gemini)
}

// GlobalStatsWalker implements `update_global_stats_inner(base_dir)`
// (spec.md §4.4): it walks the three provider log roots under a
// (test-injectable) base_dir, incrementally re-parsing only files whose
// mtime advanced since the last walk, and folds per-provider cost/tokens
// into a GlobalStats accumulator that zeroes on local-date rollover.
type GlobalStatsWalker struct {
	mu      sync.Mutex
	cache   map[string]fileState
	global  model.GlobalStats
	claude  *ClaudeParser
	codex   *CodexParser
	gemini  *GeminiParser
	log     *slog.Logger
	nowFunc func() time.Time
}

// NewGlobalStatsWalker returns a walker with today's date already stamped.
func NewGlobalStatsWalker(log *slog.Logger) *GlobalStatsWalker {
	now := time.Now()
	return &GlobalStatsWalker{
		cache:   make(map[string]fileState),
		global:  model.NewGlobalStats(now.Format("2006-01-02")),
		claude:  NewClaudeParser(),
		codex:   NewCodexParser(),
		gemini:  NewGeminiParser(),
		log:     log,
		nowFunc: time.Now,
	}
}

// Snapshot returns a copy of the current GlobalStats.
func (w *GlobalStatsWalker) Snapshot() model.GlobalStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := model.GlobalStats{Date: w.global.Date, Totals: make(map[model.AgentKind]model.ProviderDayTotals, len(w.global.Totals))}
	for k, v := range w.global.Totals {
		cp.Totals[k] = v
	}
	return cp
}

// Walk scans baseDir's three provider roots and folds newly-written bytes
// into the daily accumulator, rolling it over first if the local calendar
// date advanced since the previous walk.
func (w *GlobalStatsWalker) Walk(baseDir string) {
	w.mu.Lock()
	w.global.RolloverIfNeeded(w.nowFunc().Format("2006-01-02"))
	w.mu.Unlock()

	w.walkProvider(filepath.Join(baseDir, ".claude", "projects"), model.AgentClaude, w.claude.Parse)
	w.walkProvider(filepath.Join(baseDir, ".codex", "sessions"), model.AgentCodex, w.codex.Parse)
	w.walkProvider(filepath.Join(baseDir, ".gemini", "tmp"), model.AgentGemini, w.geminiParseByMessageIndex)
}

type incrementalParseFn func(prev model.SessionStats, path string) (ParseResult, error)

// geminiParseByMessageIndex adapts GeminiParser.Parse so the walker's
// generic file-state cache can treat it the same as the byte-offset
// parsers; prev.Offset here is already a message index, which is what
// fileState.offset stores for Gemini entries.
func (w *GlobalStatsWalker) geminiParseByMessageIndex(prev model.SessionStats, path string) (ParseResult, error) {
	return w.gemini.Parse(prev, path)
}

func (w *GlobalStatsWalker) walkProvider(root string, agent model.AgentKind, parse incrementalParseFn) {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // missing provider root, or transient stat error; skip
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".jsonl") && !strings.HasSuffix(path, ".json") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		w.mu.Lock()
		prevState, seen := w.cache[path]
		w.mu.Unlock()
		if seen && !info.ModTime().After(prevState.mtime) {
			return nil
		}

		prevStats := model.NewSessionStats()
		prevStats.Offset = prevState.offset
		result, perr := parse(prevStats, path)
		if perr != nil {
			w.log.Debug("logengine: walk parse error", "path", path, "err", perr)
			return nil
		}

		tokens := result.Stats.InputTokens + result.Stats.OutputTokens +
			result.Stats.CacheReadTokens + result.Stats.CacheWriteTokens

		w.mu.Lock()
		w.global.Add(agent, result.CostUSD, tokens)
		w.cache[path] = fileState{mtime: info.ModTime(), offset: result.Stats.Offset}
		w.mu.Unlock()
		return nil
	})
	if err != nil {
		w.log.Debug("logengine: walk root error", "root", root, "err", err)
	}
}

// Scheduler runs GlobalStatsWalker.Walk on a cron cadence so the daily
// accumulator rolls over even during stretches with no active session
// triggering a walk from the Backend's own tick.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler registers walker.Walk(baseDir) to run once a minute (each
// walk still stats every log file, but files whose mtime has not advanced
// are not re-parsed) plus explicitly at local midnight, and starts the
// schedule.
func NewScheduler(walker *GlobalStatsWalker, baseDir string) *Scheduler {
	c := cron.New()
	_, _ = c.AddFunc("@every 1m", func() { walker.Walk(baseDir) })
	_, _ = c.AddFunc("0 0 * * *", func() { walker.Walk(baseDir) })
	c.Start()
	return &Scheduler{cron: c}
}

func (s *Scheduler) Stop() { s.cron.Stop() }
