package model

import "errors"

var ErrLineOutOfRange = errors.New("line index out of range")

func (s Scene) Clone() Scene {
	out := Scene{Lines: make([]Line, len(s.Lines))}
	for i, l := range s.Lines {
		out.Lines[i] = l.Clone()
	}
	return out
}

// Renumber restores the invariant Lines[i].Index == i.
func (s *Scene) Renumber() {
	for i := range s.Lines {
		s.Lines[i].Index = i
	}
}

func (s Scene) LineCount() int { return len(s.Lines) }

// FrameCount returns the number of frames in line, or 0 for an unknown line.
func (s Scene) FrameCount(line int) int {
	if line < 0 || line >= len(s.Lines) {
		return 0
	}
	return len(s.Lines[line].Frames)
}

// MaxFrames returns the longest line's frame count.
func (s Scene) MaxFrames() int {
	n := 0
	for _, l := range s.Lines {
		if len(l.Frames) > n {
			n = len(l.Frames)
		}
	}
	return n
}

// FrameAt returns the frame at p. Stale positions report false instead of panicking.
func (s Scene) FrameAt(p Pos) (Frame, bool) {
	if p.Line < 0 || p.Line >= len(s.Lines) {
		return Frame{}, false
	}
	frames := s.Lines[p.Line].Frames
	if p.Frame < 0 || p.Frame >= len(frames) {
		return Frame{}, false
	}
	return frames[p.Frame], true
}

func (s Scene) Has(p Pos) bool {
	_, ok := s.FrameAt(p)
	return ok
}

// InsertLine returns a renumbered copy of s with line inserted at index at.
// at is clamped to [0, len(Lines)].
func (s Scene) InsertLine(at int, line Line) Scene {
	out := s.Clone()
	if at < 0 {
		at = 0
	}
	if at > len(out.Lines) {
		at = len(out.Lines)
	}
	if line.Frames == nil {
		line.Frames = []Frame{}
	}
	out.Lines = append(out.Lines, Line{})
	copy(out.Lines[at+1:], out.Lines[at:])
	out.Lines[at] = line.Clone()
	out.Renumber()
	return out
}

// RemoveLine returns a renumbered copy of s without the line at index at.
func (s Scene) RemoveLine(at int) (Scene, error) {
	if at < 0 || at >= len(s.Lines) {
		return Scene{}, ErrLineOutOfRange
	}
	out := s.Clone()
	out.Lines = append(out.Lines[:at], out.Lines[at+1:]...)
	out.Renumber()
	return out, nil
}

// MoveLine returns a renumbered copy of s with the line at from relocated so it ends up at index to.
func (s Scene) MoveLine(from, to int) (Scene, error) {
	if from < 0 || from >= len(s.Lines) || to < 0 || to >= len(s.Lines) {
		return Scene{}, ErrLineOutOfRange
	}
	out := s.Clone()
	if from == to {
		return out, nil
	}
	moved := out.Lines[from]
	out.Lines = append(out.Lines[:from], out.Lines[from+1:]...)
	out.Lines = append(out.Lines, Line{})
	copy(out.Lines[to+1:], out.Lines[to:])
	out.Lines[to] = moved
	out.Renumber()
	return out, nil
}
