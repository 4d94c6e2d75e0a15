// Package tui is the interactive terminal grid: keyboard navigation, mouse drag and drop,
// inline prompts and live playback decorations over an engine session.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"sova-grid/internal/engine"
	"sova-grid/internal/store"
)

// Run blocks until the user quits. The selection is restored from and saved to the UI state
// file when it belongs to the same server.
func Run(sess *engine.Session, opts Options) error {
	applyGlyphPreference(opts.Glyphs)
	applyColorProfile(opts.Profile)

	showPeers := restoreSelection(sess, opts)
	m := newAppModel(sess, opts)
	m.showPeers = showPeers
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	if fm, ok := final.(appModel); ok {
		saveSelection(fm, opts)
	}
	return err
}

// CopyToClipboard writes s to the system clipboard, falling back to an OSC 52 sequence.
func CopyToClipboard(s string) error {
	return copyToClipboard(s)
}

// restoreSelection reports whether peer markers should be shown.
func restoreSelection(sess *engine.Session, opts Options) bool {
	st, err := store.LoadUIState()
	if err != nil || st == nil {
		return true
	}
	if st.Server != "" && st.Server == opts.Server {
		sess.SelectCell(st.Anchor)
		sess.ExtendSelection(st.Cursor)
	}
	return !st.HidePeers
}

func saveSelection(m appModel, opts Options) {
	sel := m.sess.State().Selection
	st := &store.UIState{
		Server:    opts.Server,
		Anchor:    sel.Anchor,
		Cursor:    sel.Cursor,
		HidePeers: !m.showPeers,
	}
	if err := store.SaveUIState(st); err != nil && opts.Logger != nil {
		opts.Logger.Warn("saving ui state failed", "err", err)
	}
}
