package backend

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// OutputDetector deduplicates pane captures per session so an unchanged
// capture (the common case when an agent is simply waiting) never causes
// a PreviewUpdate re-render or a wasted NormalizeCapture/StripANSI pass.
// Grounded on the Session Manager's capture_pane capability (spec.md
// §4.1) plus the observer-interest budgeting of §4.3's PreviewRuntime.
type OutputDetector struct {
	mu     sync.Mutex
	hashes map[string]uint64
}

func NewOutputDetector() *OutputDetector {
	return &OutputDetector{hashes: make(map[string]uint64)}
}

// Changed reports whether capture differs from the last capture recorded
// for name, and records the new hash either way.
func (d *OutputDetector) Changed(name, capture string) bool {
	h := xxhash.Sum64String(capture)
	d.mu.Lock()
	defer d.mu.Unlock()
	prev, ok := d.hashes[name]
	d.hashes[name] = h
	return !ok || prev != h
}

// Forget drops a session's recorded hash, e.g. once it's deleted.
func (d *OutputDetector) Forget(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.hashes, name)
}
