package tui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Up, Down, Left, Right                       key.Binding
	ExtUp, ExtDown, ExtLeft, ExtRight           key.Binding
	Copy, Paste                                 key.Binding
	Longer, Shorter                             key.Binding
	Rename, Reps, Script                        key.Binding
	Toggle, Delete                              key.Binding
	FrameUp, FrameDown                          key.Binding
	LineInsert, LineRemove, LineLeft, LineRight key.Binding
	Peers                                       key.Binding
	Help, Cancel, Quit                          key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "line left")),
		Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "line right")),

		ExtUp:    key.NewBinding(key.WithKeys("shift+up"), key.WithHelp("shift+↑", "extend")),
		ExtDown:  key.NewBinding(key.WithKeys("shift+down"), key.WithHelp("shift+↓", "extend")),
		ExtLeft:  key.NewBinding(key.WithKeys("shift+left"), key.WithHelp("shift+←", "extend")),
		ExtRight: key.NewBinding(key.WithKeys("shift+right"), key.WithHelp("shift+→", "extend")),

		Copy:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy")),
		Paste: key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "paste below")),

		Longer:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "longer")),
		Shorter: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "shorter")),

		Rename: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rename")),
		Reps:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "repetitions")),
		Script: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit script")),

		Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "enable/disable")),
		Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),

		FrameUp:   key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "move frame up")),
		FrameDown: key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "move frame down")),

		LineInsert: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "insert line")),
		LineRemove: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "remove line")),
		LineLeft:   key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "line left")),
		LineRight:  key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "line right")),

		Peers: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "peer markers")),

		Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp is the one-line hint bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Copy, k.Paste, k.Longer, k.Shorter, k.Rename, k.Toggle, k.Delete, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.ExtUp, k.ExtDown, k.ExtLeft, k.ExtRight},
		{k.Copy, k.Paste, k.Longer, k.Shorter},
		{k.Rename, k.Reps, k.Script, k.Toggle, k.Delete},
		{k.FrameUp, k.FrameDown, k.LineInsert, k.LineRemove, k.LineLeft, k.LineRight},
		{k.Peers, k.Help, k.Cancel, k.Quit},
	}
}
