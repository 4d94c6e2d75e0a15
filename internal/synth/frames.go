package synth

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"

	"sova-grid/internal/grid"
	"sova-grid/internal/model"
	"sova-grid/internal/protocol"
)

// MoveResult says where the moved frame ended up once the sequence completed.
type MoveResult struct {
	Final    model.Pos
	Commands int
}

// Move relocates the frame at src into dst. snapshot is the value captured when the gesture
// started; its script is fetched if it was not resident then.
//
// Order: insert a copy at the destination (duration baked in), fill in its fields, then remove
// the original at its adjusted index. A failure after the insert leaves a duplicate, never a loss.
func (s *Synthesizer) Move(ctx context.Context, src model.Pos, snapshot model.Frame, dst grid.DropZone) (MoveResult, error) {
	if grid.IsNoOp(src, dst) {
		return MoveResult{Final: src}, nil
	}
	sc := s.scene.Scene()
	if !sc.Has(src) {
		return MoveResult{}, ErrStale
	}
	if dst.Line < 0 || dst.Line >= sc.LineCount() || dst.Insert < 0 || dst.Insert > sc.FrameCount(dst.Line) {
		return MoveResult{}, ErrStale
	}

	q := s.begin(ctx, "move")
	script := model.Script{}
	if snapshot.Script != nil {
		script = *snapshot.Script
	} else {
		var ok bool
		// The original is removed below, so an unknown script must abort the move.
		if script, ok = s.ResolveScript(ctx, src); !ok {
			return MoveResult{}, &SequenceError{Op: q.op, Step: "fetch", Err: fmt.Errorf("script for %s unavailable", src)}
		}
	}

	inserted := model.Pos{Line: dst.Line, Frame: dst.Insert}
	if err := q.send("insert", protocol.InsertFrame(dst.Line, dst.Insert, snapshot.Duration, s.timing)); err != nil {
		return MoveResult{Commands: q.done}, err
	}
	if snapshot.Name != nil {
		if err := q.send("name", protocol.SetName(inserted, snapshot.Name, s.timing)); err != nil {
			return MoveResult{Commands: q.done}, err
		}
	}
	if script.Content != "" {
		if err := q.send("script", protocol.SetScript(inserted, script, s.timing)); err != nil {
			return MoveResult{Commands: q.done}, err
		}
	}
	if !snapshot.Enabled {
		if err := q.send("enabled", protocol.SetEnabled(inserted.Line, []int{inserted.Frame}, false, s.timing)); err != nil {
			return MoveResult{Commands: q.done}, err
		}
	}
	if snapshot.Repetitions > 1 {
		if err := q.send("repetitions", protocol.SetRepetitions(inserted, model.ClampRepetitions(snapshot.Repetitions), s.timing)); err != nil {
			return MoveResult{Commands: q.done}, err
		}
	}

	removeAt := AdjustedSourceIndex(src, dst)
	if err := q.send("remove", protocol.RemoveFrame(src.Line, removeAt, s.timing)); err != nil {
		return MoveResult{Commands: q.done}, err
	}

	final := inserted
	if dst.Line == src.Line && dst.Insert > src.Frame {
		final.Frame--
	}
	return MoveResult{Final: final, Commands: q.done}, nil
}

// AdjustedSourceIndex is where the original frame sits once the copy has been inserted:
// an insertion in the same line at or before it shifts it right by one.
func AdjustedSourceIndex(src model.Pos, dst grid.DropZone) int {
	if dst.Line == src.Line && dst.Insert <= src.Frame {
		return src.Frame + 1
	}
	return src.Frame
}

// Paste inserts a copy of frame at index in line and returns the new frame's position.
// index is clamped to the line's current bounds. Script goes last since it triggers a compile.
func (s *Synthesizer) Paste(ctx context.Context, frame model.Frame, line, index int) (model.Pos, error) {
	sc := s.scene.Scene()
	if line < 0 || line >= sc.LineCount() {
		return model.Pos{}, ErrStale
	}
	index = max(0, min(index, sc.FrameCount(line)))
	at := model.Pos{Line: line, Frame: index}

	q := s.begin(ctx, "paste")
	if err := q.send("insert", protocol.InsertFrame(line, index, frame.Duration, s.timing)); err != nil {
		return at, err
	}
	if frame.Name != nil {
		if err := q.send("name", protocol.SetName(at, frame.Name, s.timing)); err != nil {
			return at, err
		}
	}
	if frame.Repetitions != model.MinRepetitions && frame.Repetitions != 0 {
		if err := q.send("repetitions", protocol.SetRepetitions(at, model.ClampRepetitions(frame.Repetitions), s.timing)); err != nil {
			return at, err
		}
	}
	if !frame.Enabled {
		if err := q.send("enabled", protocol.SetEnabled(line, []int{index}, false, s.timing)); err != nil {
			return at, err
		}
	}
	if frame.Script != nil && frame.Script.Content != "" {
		if err := q.send("script", protocol.SetScript(at, *frame.Script, s.timing)); err != nil {
			return at, err
		}
	}
	return at, nil
}

// Resize sets the frame duration. The value is clamped; nothing is sent when it differs from
// the current duration by no more than model.DurationEpsilon.
func (s *Synthesizer) Resize(ctx context.Context, p model.Pos, duration float64) (bool, error) {
	if math.IsNaN(duration) || math.IsInf(duration, 0) {
		return false, ValidationError{Field: "duration", Value: fmt.Sprint(duration), Reason: "not a number"}
	}
	f, ok := s.scene.Frame(p)
	if !ok {
		return false, ErrStale
	}
	next := model.ClampDuration(duration)
	if !model.DurationChanged(f.Duration, next) {
		return false, nil
	}
	if err := s.begin(ctx, "resize").send("duration", protocol.SetDuration(p, next, s.timing)); err != nil {
		return false, err
	}
	return true, nil
}

// Rename sets the frame name; blank input clears it.
func (s *Synthesizer) Rename(ctx context.Context, p model.Pos, input string) error {
	if _, ok := s.scene.Frame(p); !ok {
		return ErrStale
	}
	return s.begin(ctx, "rename").send("name", protocol.SetName(p, model.NormalizeName(input), s.timing))
}

// SetRepetitions rejects values outside [1,16] without sending anything.
func (s *Synthesizer) SetRepetitions(ctx context.Context, p model.Pos, n int) error {
	if !model.RepetitionsInRange(n) {
		return ValidationError{
			Field:  "repetitions",
			Value:  strconv.Itoa(n),
			Reason: fmt.Sprintf("must be between %d and %d", model.MinRepetitions, model.MaxRepetitions),
		}
	}
	if _, ok := s.scene.Frame(p); !ok {
		return ErrStale
	}
	return s.begin(ctx, "repetitions").send("repetitions", protocol.SetRepetitions(p, n, s.timing))
}

// SetScript assigns new source text to a frame.
func (s *Synthesizer) SetScript(ctx context.Context, p model.Pos, script model.Script) error {
	if _, ok := s.scene.Frame(p); !ok {
		return ErrStale
	}
	if script.Lang == "" {
		script.Lang = s.lang
	}
	return s.begin(ctx, "script").send("script", protocol.SetScript(p, script, s.timing))
}

// SetEnabled enables or disables the listed frames of one line. Missing frames are skipped.
func (s *Synthesizer) SetEnabled(ctx context.Context, line int, frames []int, enabled bool) error {
	sc := s.scene.Scene()
	var keep []int
	for _, f := range uniqueSorted(frames) {
		if sc.Has(model.Pos{Line: line, Frame: f}) {
			keep = append(keep, f)
		}
	}
	if len(keep) == 0 {
		return ErrStale
	}
	return s.begin(ctx, "enable").send("enabled", protocol.SetEnabled(line, keep, enabled, s.timing))
}

// DeleteFrames removes frames of one line, highest index first so earlier removals do not
// shift later ones.
func (s *Synthesizer) DeleteFrames(ctx context.Context, line int, frames []int) (int, error) {
	sc := s.scene.Scene()
	idx := uniqueSorted(frames)
	sort.Sort(sort.Reverse(sort.IntSlice(idx)))
	q := s.begin(ctx, "delete")
	for _, f := range idx {
		if !sc.Has(model.Pos{Line: line, Frame: f}) {
			continue
		}
		if err := q.send("remove", protocol.RemoveFrame(line, f, s.timing)); err != nil {
			return q.done, err
		}
	}
	if q.done == 0 {
		return 0, ErrStale
	}
	return q.done, nil
}

func uniqueSorted(in []int) []int {
	seen := map[int]bool{}
	out := make([]int, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
