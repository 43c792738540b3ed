package backend

import "github.com/rencryptofish/hydra/internal/model"

// SnapshotChan is a single-slot "latest value" channel: publishing always
// succeeds immediately by discarding whatever was previously queued and
// never seen, since only the newest StateSnapshot matters to the UI
// (spec.md §4.3 "Snapshot publication").
type SnapshotChan chan model.StateSnapshot

func NewSnapshotChan() SnapshotChan { return make(SnapshotChan, 1) }

// Publish overwrites the channel's pending value with snapshot.
func Publish(ch SnapshotChan, snapshot model.StateSnapshot) {
	for {
		select {
		case ch <- snapshot:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}

// PreviewChan is a bounded FIFO: once full, the oldest queued update is
// dropped to make room for the newest, rather than blocking the Backend's
// select loop on a slow UI consumer (spec.md §3 PreviewUpdate "queued").
type PreviewChan chan model.PreviewUpdate

const previewChanCapacity = 64

func NewPreviewChan() PreviewChan { return make(PreviewChan, previewChanCapacity) }

// Enqueue pushes update, dropping the oldest pending update if the queue
// is already full.
func Enqueue(ch PreviewChan, update model.PreviewUpdate) {
	for {
		select {
		case ch <- update:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
