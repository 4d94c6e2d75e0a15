package protocol

import (
	"fmt"

	"sova-grid/internal/model"
)

type EventKind string

const (
	EvScene         EventKind = "scene"
	EvFrameCompiled EventKind = "frame_compiled"
	EvCompileError  EventKind = "compile_error"
	EvScriptContent EventKind = "script_content"
	EvPeerSelection EventKind = "peer_selection"
	EvPeerEditing   EventKind = "peer_editing"
	EvPeerLeft      EventKind = "peer_left"
	EvPlayback      EventKind = "playback"
	// EvConnection is synthesized locally by the client on connect/disconnect.
	EvConnection EventKind = "connection"
)

// PeerSelection is a collaborator's selection rectangle.
type PeerSelection struct {
	Anchor model.Cell `json:"anchor"`
	Cursor model.Cell `json:"cursor"`
}

// Playback reports the playing frame of one line and how far into it playback is.
type Playback struct {
	Line     int     `json:"line"`
	Frame    int     `json:"frame"`
	Progress float64 `json:"progress"`
}

type Event struct {
	Kind      EventKind      `json:"kind"`
	Scene     *model.Scene   `json:"scene,omitempty"`
	Pos       model.Pos      `json:"pos"`
	Message   string         `json:"message,omitempty"`
	Script    *model.Script  `json:"script,omitempty"`
	Peer      string         `json:"peer,omitempty"`
	Selection *PeerSelection `json:"selection,omitempty"`
	Editing   bool           `json:"editing,omitempty"`
	Playback  *Playback      `json:"playback,omitempty"`
	Connected bool           `json:"connected,omitempty"`
}

func SceneEvent(s model.Scene) Event {
	c := s.Clone()
	return Event{Kind: EvScene, Scene: &c}
}

func (e Event) Describe() string {
	switch e.Kind {
	case EvScene:
		n := 0
		if e.Scene != nil {
			n = len(e.Scene.Lines)
		}
		return fmt.Sprintf("scene lines=%d", n)
	case EvFrameCompiled:
		return fmt.Sprintf("frame_compiled %d:%d", e.Pos.Line, e.Pos.Frame)
	case EvCompileError:
		return fmt.Sprintf("compile_error %d:%d %q", e.Pos.Line, e.Pos.Frame, e.Message)
	case EvScriptContent:
		return fmt.Sprintf("script_content %d:%d", e.Pos.Line, e.Pos.Frame)
	case EvPeerSelection, EvPeerEditing, EvPeerLeft:
		return fmt.Sprintf("%s peer=%q", e.Kind, e.Peer)
	case EvConnection:
		return fmt.Sprintf("connection connected=%v", e.Connected)
	default:
		return string(e.Kind)
	}
}
