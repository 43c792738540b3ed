package logengine

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher wraps fsnotify to push a wakeup (not the event itself — the
// Backend re-polls on wakeup rather than trusting the event payload) into
// wake whenever an entry directly inside a watched provider log directory
// changes. fsnotify watches are not recursive, so writes inside
// subdirectories of those directories do not wake. This is a latency
// optimization layered on top of the cadence-gated poll, never a
// replacement for it: fsnotify is unreliable on some filesystems/
// containers (spec.md §4.4 discussion), so polling remains the
// correctness baseline.
type Watcher struct {
	fsw  *fsnotify.Watcher
	wake chan struct{}
	log  *slog.Logger
}

// NewWatcher starts watching dirs themselves, not their subdirectories
// (provider log roots that exist; missing ones are skipped rather than
// erroring, since not every provider is in use on a given machine).
func NewWatcher(log *slog.Logger, dirs ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fsw: fsw, wake: make(chan struct{}, 1), log: log}
	for _, d := range dirs {
		if err := fsw.Add(d); err != nil {
			log.Debug("logengine: skip watch dir", "dir", d, "err", err)
			continue
		}
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case _, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			select {
			case w.wake <- struct{}{}:
			default:
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("logengine: watch error", "err", err)
		}
	}
}

// Wake is a single-slot signal the Backend's select loop can fold into its
// background-refresh tick.
func (w *Watcher) Wake() <-chan struct{} { return w.wake }

func (w *Watcher) Close() error { return w.fsw.Close() }
