// Package reconcile applies server events to local state. It is the only writer of the
// timeline store.
package reconcile

import (
	"log/slog"
	"time"

	"sova-grid/internal/grid"
	"sova-grid/internal/model"
	"sova-grid/internal/protocol"
	"sova-grid/internal/timeline"
)

// UI is the interaction state owned by one session. Callers serialize access to it; the
// reconciler never locks.
type UI struct {
	Selection grid.Selection
	Drag      grid.Drag
	Clipboard grid.Clipboard
	Focus     grid.Focus
	Peers     grid.Peers

	Connected bool
	Status    string
}

// SelectedFrame is the frame under the cursor, if the cursor points at one.
func (u *UI) SelectedFrame(scene model.Scene) (model.Pos, bool) {
	p := u.Selection.Cursor.Pos()
	return p, scene.Has(p)
}

type Reconciler struct {
	store *timeline.Store
	log   *slog.Logger
	now   func() time.Time
}

func New(store *timeline.Store, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{store: store, log: log, now: time.Now}
}

// Apply folds one event into the store and ui. It reports whether anything visible changed.
func (r *Reconciler) Apply(ui *UI, ev protocol.Event) bool {
	switch ev.Kind {
	case protocol.EvScene:
		if ev.Scene == nil {
			r.log.Warn("scene event without scene")
			return false
		}
		snap := r.store.Replace(*ev.Scene)
		if ui.Drag.Revalidate(snap.Scene) {
			r.log.Debug("drag cancelled: source vanished", "revision", snap.Revision)
		}
		return true

	case protocol.EvFrameCompiled:
		sel, ok := ui.SelectedFrame(r.store.Scene())
		if ok && sel == ev.Pos {
			ui.Focus.ClearError()
			return true
		}
		return false

	case protocol.EvCompileError:
		ui.Focus.SetError(grid.CompileError{Pos: ev.Pos, Message: ev.Message})
		ui.Status = "compile error at " + ev.Pos.String()
		return true

	case protocol.EvScriptContent:
		if ev.Script == nil {
			return false
		}
		r.store.PutScript(ev.Pos, *ev.Script)
		return false

	case protocol.EvPeerSelection:
		if ev.Peer == "" || ev.Selection == nil {
			return false
		}
		ui.Peers.SetSelection(ev.Peer, grid.Selection{Anchor: ev.Selection.Anchor, Cursor: ev.Selection.Cursor}, r.now())
		return true

	case protocol.EvPeerEditing:
		if ev.Peer == "" {
			return false
		}
		ui.Peers.SetEditing(ev.Peer, ev.Pos, ev.Editing, r.now())
		return true

	case protocol.EvPeerLeft:
		ui.Peers.Remove(ev.Peer)
		return true

	case protocol.EvPlayback:
		if ev.Playback == nil {
			return false
		}
		r.store.SetPlayback(ev.Playback.Line, ev.Playback.Frame, ev.Playback.Progress)
		return true

	case protocol.EvConnection:
		ui.Connected = ev.Connected
		if ev.Connected {
			ui.Status = "connected"
			return true
		}
		ui.Clipboard.Clear()
		ui.Drag.Cancel()
		ui.Status = "disconnected"
		if ev.Message != "" {
			ui.Status += ": " + ev.Message
		}
		return true

	default:
		r.log.Debug("ignoring event", "kind", ev.Kind)
		return false
	}
}
