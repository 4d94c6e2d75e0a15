package grid

import "sova-grid/internal/model"

// Clipboard holds one copied frame by value plus where it came from.
// Pasting never clears it; only a new copy or Clear does.
type Clipboard struct {
	hasContent bool
	snapshot   model.Frame
	source     model.Pos
}

// ClipboardView is the read-only clipboard state.
type ClipboardView struct {
	HasContent bool        `json:"hasContent"`
	Snapshot   model.Frame `json:"frameSnapshot"`
	Source     model.Pos   `json:"source"`
}

func (c *Clipboard) Store(src model.Pos, f model.Frame) {
	c.hasContent = true
	c.snapshot = f.Clone()
	c.source = src
}

func (c *Clipboard) Clear() {
	*c = Clipboard{}
}

func (c *Clipboard) HasContent() bool { return c.hasContent }

func (c *Clipboard) Content() (model.Frame, bool) {
	if !c.hasContent {
		return model.Frame{}, false
	}
	return c.snapshot.Clone(), true
}

func (c *Clipboard) View() ClipboardView {
	return ClipboardView{HasContent: c.hasContent, Snapshot: c.snapshot.Clone(), Source: c.source}
}
