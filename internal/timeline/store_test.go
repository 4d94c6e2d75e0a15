package timeline

import (
	"testing"
	"time"

	"sova-grid/internal/model"
)

func sceneWith(frames ...int) model.Scene {
	s := model.Scene{}
	for _, n := range frames {
		l := model.NewLine()
		for i := 0; i < n; i++ {
			l.Frames = append(l.Frames, model.NewFrame(1))
		}
		s.Lines = append(s.Lines, l)
	}
	s.Renumber()
	return s
}

func TestStore_ReplaceIsWholesaleAndCopied(t *testing.T) {
	t.Parallel()

	st := New()
	sc := sceneWith(2, 1)
	snap := st.Replace(sc)
	if snap.Revision != 1 {
		t.Fatalf("expected revision 1, got %d", snap.Revision)
	}

	// Mutating the caller's scene or a snapshot must not leak into the store.
	sc.Lines[0].Frames[0].Duration = 7
	snap.Scene.Lines[0].Frames = nil
	got := st.Scene()
	if got.Lines[0].Frames[0].Duration != 1 || len(got.Lines[0].Frames) != 2 {
		t.Fatalf("store aliasing detected: %#v", got.Lines[0])
	}
}

func TestStore_ReplaceInvalidatesDerivedCaches(t *testing.T) {
	t.Parallel()

	st := New()
	st.Replace(sceneWith(2))
	p := model.Pos{Line: 0, Frame: 1}

	st.PutScript(p, model.Script{Lang: "bali", Content: "(n 60)"})
	st.SetPlayback(0, 1, 0.5)
	if _, ok := st.ScriptAt(p); !ok {
		t.Fatalf("expected fetched script to be resident")
	}
	if prog, ok := st.Progress(p); !ok || prog != 0.5 {
		t.Fatalf("expected progress 0.5, got %v %v", prog, ok)
	}

	st.Replace(sceneWith(2))
	if _, ok := st.ScriptAt(p); ok {
		t.Fatalf("script cache must be cleared on Replace")
	}
	if _, ok := st.Progress(p); ok {
		t.Fatalf("progress cache must be cleared on Replace")
	}
}

func TestStore_StalePositionsAreIgnored(t *testing.T) {
	t.Parallel()

	st := New()
	st.Replace(sceneWith(1))
	st.PutScript(model.Pos{Line: 3, Frame: 0}, model.Script{Content: "x"})
	st.SetPlayback(9, 0, 1)
	if _, ok := st.ScriptAt(model.Pos{Line: 3, Frame: 0}); ok {
		t.Fatalf("stale script position must be dropped")
	}
	if len(st.Playheads()) != 0 {
		t.Fatalf("stale playback line must be dropped")
	}
	if _, ok := st.Frame(model.Pos{Line: 0, Frame: 4}); ok {
		t.Fatalf("expected missing frame")
	}
}

func TestStore_SubscribeDeliversLatest(t *testing.T) {
	t.Parallel()

	st := New()
	ch, cancel := st.Subscribe()
	defer cancel()

	st.Replace(sceneWith(1))
	st.Replace(sceneWith(1, 1))
	st.Replace(sceneWith(1, 1, 1))

	select {
	case snap := <-ch:
		if snap.Revision != 3 || len(snap.Scene.Lines) != 3 {
			t.Fatalf("expected only the latest snapshot, got rev=%d lines=%d", snap.Revision, len(snap.Scene.Lines))
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}

	cancel()
	cancel() // idempotent
	st.Replace(sceneWith(1))
}
