package model

import "strconv"

// Script is the source text of a frame plus the language it is written in.
type Script struct {
	Lang    string `json:"lang"`
	Content string `json:"content"`
}

// Frame is one timeline cell. Frames have no identity beyond their position,
// so moving or copying one always means carrying its full value.
type Frame struct {
	Duration float64 `json:"duration"`
	Enabled  bool    `json:"enabled"`
	// Name is nil for unnamed frames (never an empty string).
	Name *string `json:"name,omitempty"`
	// Script is nil when the server did not ship the body with the snapshot.
	Script      *Script `json:"script,omitempty"`
	Repetitions int     `json:"repetitions"`
}

type Line struct {
	Index       int      `json:"index"`
	Frames      []Frame  `json:"frames"`
	SpeedFactor float64  `json:"speedFactor"`
	Length      *float64 `json:"length,omitempty"`
	StartFrame  *int     `json:"startFrame,omitempty"`
	EndFrame    *int     `json:"endFrame,omitempty"`
}

type Scene struct {
	Lines []Line `json:"lines"`
}

// Pos addresses a frame by line and frame index.
type Pos struct {
	Line  int `json:"lineIndex"`
	Frame int `json:"frameIndex"`
}

// Cell is a selection coordinate: Row is the frame slot, Col the line.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) Pos() Pos { return Pos{Line: c.Col, Frame: c.Row} }

func (p Pos) Cell() Cell { return Cell{Row: p.Frame, Col: p.Line} }

// String renders p as "line:frame".
func (p Pos) String() string { return strconv.Itoa(p.Line) + ":" + strconv.Itoa(p.Frame) }

// NewFrame returns a frame with the server-side defaults for the given duration.
func NewFrame(duration float64) Frame {
	return Frame{
		Duration:    ClampDuration(duration),
		Enabled:     true,
		Repetitions: MinRepetitions,
	}
}

func (f Frame) Clone() Frame {
	out := f
	if f.Name != nil {
		n := *f.Name
		out.Name = &n
	}
	if f.Script != nil {
		s := *f.Script
		out.Script = &s
	}
	return out
}

// DisplayName returns the frame name or "" when unnamed.
func (f Frame) DisplayName() string {
	if f.Name == nil {
		return ""
	}
	return *f.Name
}

// ScriptContent returns the resident script body, or "" when not loaded.
func (f Frame) ScriptContent() string {
	if f.Script == nil {
		return ""
	}
	return f.Script.Content
}

func (l Line) Clone() Line {
	out := l
	out.Frames = make([]Frame, len(l.Frames))
	for i, f := range l.Frames {
		out.Frames[i] = f.Clone()
	}
	if l.Length != nil {
		v := *l.Length
		out.Length = &v
	}
	if l.StartFrame != nil {
		v := *l.StartFrame
		out.StartFrame = &v
	}
	if l.EndFrame != nil {
		v := *l.EndFrame
		out.EndFrame = &v
	}
	return out
}

// NewLine returns an empty line with a unit speed factor.
func NewLine() Line {
	return Line{Frames: []Frame{}, SpeedFactor: 1}
}
