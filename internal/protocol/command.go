package protocol

import (
	"errors"
	"fmt"

	"sova-grid/internal/model"
)

// Timing qualifies when the server applies a command.
type Timing string

const (
	TimingImmediate Timing = "immediate"
	// TimingBoundary defers the change to the next scheduled boundary (end of the current frame).
	TimingBoundary Timing = "boundary"
)

func ParseTiming(s string) (Timing, error) {
	switch Timing(s) {
	case "", TimingImmediate:
		return TimingImmediate, nil
	case TimingBoundary:
		return TimingBoundary, nil
	default:
		return "", fmt.Errorf("unknown timing: %q (expected immediate|boundary)", s)
	}
}

type CommandKind string

const (
	CmdInsertFrame    CommandKind = "insert_frame"
	CmdRemoveFrame    CommandKind = "remove_frame"
	CmdSetDuration    CommandKind = "set_duration"
	CmdSetName        CommandKind = "set_name"
	CmdSetScript      CommandKind = "set_script"
	CmdSetEnabled     CommandKind = "set_enabled"
	CmdSetRepetitions CommandKind = "set_repetitions"
	CmdReplaceScene   CommandKind = "replace_scene"
	CmdGetScript      CommandKind = "get_script"
)

// Command is one primitive request understood by the performance server.
// Only the fields relevant to Kind are set.
type Command struct {
	Kind        CommandKind   `json:"kind"`
	Line        int           `json:"line"`
	Frame       int           `json:"frame"`
	Frames      []int         `json:"frames,omitempty"`
	Duration    float64       `json:"duration,omitempty"`
	Name        *string       `json:"name"`
	Script      *model.Script `json:"script,omitempty"`
	Enabled     bool          `json:"enabled,omitempty"`
	Repetitions int           `json:"repetitions,omitempty"`
	Scene       *model.Scene  `json:"scene,omitempty"`
	Timing      Timing        `json:"timing,omitempty"`
}

func InsertFrame(line, index int, duration float64, timing Timing) Command {
	return Command{Kind: CmdInsertFrame, Line: line, Frame: index, Duration: model.ClampDuration(duration), Timing: timing}
}

func RemoveFrame(line, index int, timing Timing) Command {
	return Command{Kind: CmdRemoveFrame, Line: line, Frame: index, Timing: timing}
}

func SetDuration(p model.Pos, duration float64, timing Timing) Command {
	return Command{Kind: CmdSetDuration, Line: p.Line, Frame: p.Frame, Duration: duration, Timing: timing}
}

func SetName(p model.Pos, name *string, timing Timing) Command {
	return Command{Kind: CmdSetName, Line: p.Line, Frame: p.Frame, Name: name, Timing: timing}
}

func SetScript(p model.Pos, script model.Script, timing Timing) Command {
	s := script
	return Command{Kind: CmdSetScript, Line: p.Line, Frame: p.Frame, Script: &s, Timing: timing}
}

func SetEnabled(line int, frames []int, enabled bool, timing Timing) Command {
	fs := append([]int(nil), frames...)
	return Command{Kind: CmdSetEnabled, Line: line, Frames: fs, Enabled: enabled, Timing: timing}
}

func SetRepetitions(p model.Pos, n int, timing Timing) Command {
	return Command{Kind: CmdSetRepetitions, Line: p.Line, Frame: p.Frame, Repetitions: n, Timing: timing}
}

func ReplaceScene(scene model.Scene, timing Timing) Command {
	s := scene.Clone()
	return Command{Kind: CmdReplaceScene, Scene: &s, Timing: timing}
}

func GetScript(p model.Pos) Command {
	return Command{Kind: CmdGetScript, Line: p.Line, Frame: p.Frame}
}

func (c Command) Pos() model.Pos { return model.Pos{Line: c.Line, Frame: c.Frame} }

// Describe renders the command compactly for logs and the journal.
func (c Command) Describe() string {
	switch c.Kind {
	case CmdInsertFrame:
		return fmt.Sprintf("insert_frame line=%d at=%d duration=%g", c.Line, c.Frame, c.Duration)
	case CmdRemoveFrame:
		return fmt.Sprintf("remove_frame line=%d at=%d", c.Line, c.Frame)
	case CmdSetDuration:
		return fmt.Sprintf("set_duration %d:%d duration=%g", c.Line, c.Frame, c.Duration)
	case CmdSetName:
		if c.Name == nil {
			return fmt.Sprintf("set_name %d:%d name=nil", c.Line, c.Frame)
		}
		return fmt.Sprintf("set_name %d:%d name=%q", c.Line, c.Frame, *c.Name)
	case CmdSetScript:
		n := 0
		lang := ""
		if c.Script != nil {
			n = len(c.Script.Content)
			lang = c.Script.Lang
		}
		return fmt.Sprintf("set_script %d:%d lang=%s bytes=%d", c.Line, c.Frame, lang, n)
	case CmdSetEnabled:
		return fmt.Sprintf("set_enabled line=%d frames=%v enabled=%v", c.Line, c.Frames, c.Enabled)
	case CmdSetRepetitions:
		return fmt.Sprintf("set_repetitions %d:%d n=%d", c.Line, c.Frame, c.Repetitions)
	case CmdReplaceScene:
		n := 0
		if c.Scene != nil {
			n = len(c.Scene.Lines)
		}
		return fmt.Sprintf("replace_scene lines=%d", n)
	case CmdGetScript:
		return fmt.Sprintf("get_script %d:%d", c.Line, c.Frame)
	default:
		return string(c.Kind)
	}
}

// Validate rejects structurally invalid commands before they are sent.
func (c Command) Validate() error {
	switch c.Kind {
	case CmdInsertFrame, CmdRemoveFrame, CmdSetDuration, CmdSetName, CmdSetScript, CmdSetRepetitions, CmdGetScript:
		if c.Line < 0 || c.Frame < 0 {
			return fmt.Errorf("%s: negative position %d:%d", c.Kind, c.Line, c.Frame)
		}
	case CmdSetEnabled:
		if c.Line < 0 {
			return fmt.Errorf("%s: negative line %d", c.Kind, c.Line)
		}
		if len(c.Frames) == 0 {
			return fmt.Errorf("%s: no frames", c.Kind)
		}
	case CmdReplaceScene:
		if c.Scene == nil {
			return errors.New("replace_scene: missing scene")
		}
		for i, l := range c.Scene.Lines {
			if l.Index != i {
				return fmt.Errorf("replace_scene: line %d carries index %d", i, l.Index)
			}
		}
	default:
		return fmt.Errorf("unknown command kind: %q", c.Kind)
	}
	switch c.Kind {
	case CmdInsertFrame, CmdSetDuration:
		if c.Duration < model.MinDuration || c.Duration > model.MaxDuration {
			return fmt.Errorf("%s: duration %g out of range", c.Kind, c.Duration)
		}
	case CmdSetRepetitions:
		if !model.RepetitionsInRange(c.Repetitions) {
			return fmt.Errorf("%s: repetitions %d out of range", c.Kind, c.Repetitions)
		}
	case CmdSetScript:
		if c.Script == nil {
			return fmt.Errorf("%s: missing script", c.Kind)
		}
	}
	return nil
}
