package reconcile

import (
	"testing"

	"sova-grid/internal/grid"
	"sova-grid/internal/model"
	"sova-grid/internal/protocol"
	"sova-grid/internal/timeline"
)

func twoByTwo() model.Scene {
	sc := model.Scene{}
	for i := 0; i < 2; i++ {
		l := model.NewLine()
		l.Frames = []model.Frame{model.NewFrame(1), model.NewFrame(2)}
		sc.Lines = append(sc.Lines, l)
	}
	sc.Renumber()
	return sc
}

func setup(t *testing.T) (*Reconciler, *timeline.Store, *UI) {
	t.Helper()
	st := timeline.New()
	r := New(st, nil)
	ui := &UI{}
	r.Apply(ui, protocol.SceneEvent(twoByTwo()))
	return r, st, ui
}

func TestApply_SceneReplacesStoreAndCancelsStaleDrag(t *testing.T) {
	t.Parallel()

	r, st, ui := setup(t)
	ui.Drag.Begin(model.Pos{Line: 1, Frame: 1}, model.NewFrame(2), grid.Point{}, true)

	shrunk := twoByTwo()
	shrunk.Lines = shrunk.Lines[:1]
	r.Apply(ui, protocol.SceneEvent(shrunk))

	if st.Scene().LineCount() != 1 {
		t.Fatalf("store not replaced")
	}
	if ui.Drag.State() != grid.DragIdle {
		t.Fatalf("drag with vanished source must be cancelled")
	}
}

func TestApply_CompileEvents(t *testing.T) {
	t.Parallel()

	r, _, ui := setup(t)
	sel := model.Pos{Line: 0, Frame: 1}
	other := model.Pos{Line: 1, Frame: 0}
	ui.Selection.Reset(sel.Cell())

	r.Apply(ui, protocol.Event{Kind: protocol.EvCompileError, Pos: other, Message: "boom"})
	if ui.Focus.Error == nil || ui.Focus.Error.Pos != other {
		t.Fatalf("compile error must attach even when not selected: %#v", ui.Focus.Error)
	}

	r.Apply(ui, protocol.Event{Kind: protocol.EvFrameCompiled, Pos: other})
	if ui.Focus.Error == nil {
		t.Fatalf("success for an unselected frame must not clear the error")
	}

	r.Apply(ui, protocol.Event{Kind: protocol.EvFrameCompiled, Pos: sel})
	if ui.Focus.Error != nil {
		t.Fatalf("success for the selected frame must clear the error")
	}
}

func TestApply_ScriptContentFillsCache(t *testing.T) {
	t.Parallel()

	r, st, ui := setup(t)
	p := model.Pos{Line: 1, Frame: 1}
	r.Apply(ui, protocol.Event{Kind: protocol.EvScriptContent, Pos: p, Script: &model.Script{Lang: "bali", Content: "x"}})
	if sc, ok := st.ScriptAt(p); !ok || sc.Content != "x" {
		t.Fatalf("script not cached: %#v %v", sc, ok)
	}
}

func TestApply_PeersAreDisplayOnly(t *testing.T) {
	t.Parallel()

	r, _, ui := setup(t)
	ui.Selection.Reset(model.Cell{Row: 1, Col: 1})
	before := ui.Selection

	r.Apply(ui, protocol.Event{Kind: protocol.EvPeerSelection, Peer: "bo", Selection: &protocol.PeerSelection{Cursor: model.Cell{}}})
	r.Apply(ui, protocol.Event{Kind: protocol.EvPeerEditing, Peer: "bo", Pos: model.Pos{}, Editing: true})
	if ui.Selection != before {
		t.Fatalf("peer event moved the local selection")
	}
	peers := ui.Peers.List()
	if len(peers) != 1 || peers[0].Selection == nil || peers[0].Editing == nil {
		t.Fatalf("peer table wrong: %#v", peers)
	}
	r.Apply(ui, protocol.Event{Kind: protocol.EvPeerLeft, Peer: "bo"})
	if len(ui.Peers.List()) != 0 {
		t.Fatalf("peer not removed")
	}
}

func TestApply_DisconnectClearsClipboard(t *testing.T) {
	t.Parallel()

	r, _, ui := setup(t)
	ui.Clipboard.Store(model.Pos{}, model.NewFrame(1))
	r.Apply(ui, protocol.Event{Kind: protocol.EvConnection, Connected: true})
	if !ui.Connected || !ui.Clipboard.HasContent() {
		t.Fatalf("connect must not touch the clipboard")
	}
	r.Apply(ui, protocol.Event{Kind: protocol.EvConnection, Connected: false, Message: "eof"})
	if ui.Connected || ui.Clipboard.HasContent() || ui.Status != "disconnected: eof" {
		t.Fatalf("unexpected state after disconnect: %#v", ui)
	}
}

func TestApply_PlaybackAndUnknown(t *testing.T) {
	t.Parallel()

	r, st, ui := setup(t)
	r.Apply(ui, protocol.Event{Kind: protocol.EvPlayback, Playback: &protocol.Playback{Line: 1, Frame: 1, Progress: 0.25}})
	if p, ok := st.Progress(model.Pos{Line: 1, Frame: 1}); !ok || p != 0.25 {
		t.Fatalf("playback not recorded: %v %v", p, ok)
	}
	if r.Apply(ui, protocol.Event{Kind: "mystery"}) {
		t.Fatalf("unknown events must be ignored")
	}
}
