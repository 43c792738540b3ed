package backend

import (
	"testing"

	"github.com/rencryptofish/hydra/internal/model"
)

func TestPublishOverwritesLatestValue(t *testing.T) {
	ch := NewSnapshotChan()
	Publish(ch, model.StateSnapshot{Diff: []model.DiffStat{{Path: "a"}}})
	Publish(ch, model.StateSnapshot{Diff: []model.DiffStat{{Path: "b"}}})

	got := <-ch
	if len(got.Diff) != 1 || got.Diff[0].Path != "b" {
		t.Fatalf("Publish did not overwrite to the latest value, got %+v", got)
	}
	select {
	case extra := <-ch:
		t.Fatalf("expected only one queued snapshot, got extra %+v", extra)
	default:
	}
}

func TestEnqueueDropsOldestWhenFull(t *testing.T) {
	ch := NewPreviewChan()
	for i := 0; i < previewChanCapacity+5; i++ {
		Enqueue(ch, model.PreviewUpdate{SessionName: "s", Raw: "x"})
	}
	count := 0
	for {
		select {
		case <-ch:
			count++
			continue
		default:
		}
		break
	}
	if count != previewChanCapacity {
		t.Fatalf("queue holds %d entries, want bounded at capacity %d", count, previewChanCapacity)
	}
}
