// Package logengine implements the three provider log parsers (Claude,
// Codex, Gemini) and the global-stats walker described in spec.md §4.4.
// Each parser is incremental: given a prior SessionStats (carrying the
// provider's resumption offset) and the log file's current bytes, it
// returns fresh entries and an updated SessionStats, without re-deriving
// totals already folded in.
package logengine

import "github.com/rencryptofish/hydra/internal/model"

// ParseResult is one incremental parse pass's output: new entries to
// append to the session's preview buffer, and the stats snapshot to store
// back onto the session (already carrying the new offset).
type ParseResult struct {
	Entries []model.ConversationEntry
	Stats   model.SessionStats
	CostUSD float64 // incremental cost attributable to this pass, for GlobalStats.Add
}

// Parser is implemented by each provider's incremental log reader.
type Parser interface {
	// Parse reads the session's log file starting from prev.Offset and
	// returns only the newly observed entries plus updated stats.
	Parse(prev model.SessionStats, path string) (ParseResult, error)
}
