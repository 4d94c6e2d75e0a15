package grid

import (
	"sort"
	"time"

	"sova-grid/internal/model"
)

// CompileError is a server-reported script error for one frame.
type CompileError struct {
	Pos     model.Pos `json:"pos"`
	Message string    `json:"message"`
}

// Focus is the editing focus: which frame's script is being worked on, and the last
// compile error reported for it. An error stays visible until superseded or cleared by a
// successful compile of the selected frame.
type Focus struct {
	Pos     model.Pos     `json:"pos"`
	Editing bool          `json:"editing"`
	Error   *CompileError `json:"error,omitempty"`
}

func (f *Focus) SetError(e CompileError) {
	f.Error = &e
}

func (f *Focus) ClearError() {
	f.Error = nil
}

// Peer is a remote collaborator's last known focus.
type Peer struct {
	Name      string     `json:"name"`
	Selection *Selection `json:"selection,omitempty"`
	Editing   *model.Pos `json:"editing,omitempty"`
	SeenAt    time.Time  `json:"seenAt"`
}

// Peers is a display-only side table of collaborators. It never touches the local selection.
type Peers struct {
	byName map[string]Peer
}

func (p *Peers) ensure() {
	if p.byName == nil {
		p.byName = map[string]Peer{}
	}
}

func (p *Peers) SetSelection(name string, sel Selection, now time.Time) {
	p.ensure()
	cur := p.byName[name]
	cur.Name = name
	cur.Selection = &sel
	cur.SeenAt = now
	p.byName[name] = cur
}

// SetEditing records (editing=true) or clears the frame a peer is editing.
func (p *Peers) SetEditing(name string, pos model.Pos, editing bool, now time.Time) {
	p.ensure()
	cur := p.byName[name]
	cur.Name = name
	if editing {
		cur.Editing = &pos
	} else {
		cur.Editing = nil
	}
	cur.SeenAt = now
	p.byName[name] = cur
}

func (p *Peers) Remove(name string) {
	delete(p.byName, name)
}

// List returns peers sorted by name.
func (p *Peers) List() []Peer {
	out := make([]Peer, 0, len(p.byName))
	for _, v := range p.byName {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
