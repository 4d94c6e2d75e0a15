package synth

import (
	"context"
	"fmt"

	"sova-grid/internal/model"
	"sova-grid/internal/protocol"
)

// Line-level structure changes are sent as a whole-scene replace: the line array is spliced
// and renumbered on a local copy. Scripts that were not shipped with the snapshot are
// fetched first so that sending the copy cannot erase them.

func (s *Synthesizer) InsertLine(ctx context.Context, at int) (int, error) {
	q := s.begin(ctx, "insert-line")
	cur, err := s.hydrated(q)
	if err != nil {
		return at, err
	}
	at = max(0, min(at, cur.LineCount()))
	next := cur.InsertLine(at, model.NewLine())
	return at, q.send("replace", protocol.ReplaceScene(next, s.timing))
}

func (s *Synthesizer) RemoveLine(ctx context.Context, at int) error {
	if at < 0 || at >= s.scene.Scene().LineCount() {
		return ErrStale
	}
	q := s.begin(ctx, "remove-line")
	cur, err := s.hydrated(q)
	if err != nil {
		return err
	}
	next, err := cur.RemoveLine(at)
	if err != nil {
		return ErrStale
	}
	return q.send("replace", protocol.ReplaceScene(next, s.timing))
}

func (s *Synthesizer) MoveLine(ctx context.Context, from, to int) error {
	if from == to {
		return nil
	}
	n := s.scene.Scene().LineCount()
	if from < 0 || from >= n || to < 0 || to >= n {
		return ErrStale
	}
	q := s.begin(ctx, "move-line")
	cur, err := s.hydrated(q)
	if err != nil {
		return err
	}
	next, err := cur.MoveLine(from, to)
	if err != nil {
		return ErrStale
	}
	return q.send("replace", protocol.ReplaceScene(next, s.timing))
}

// hydrated returns the current scene with every frame script filled in.
func (s *Synthesizer) hydrated(q *sequence) (model.Scene, error) {
	cur := s.scene.Scene()
	for li := range cur.Lines {
		for fi := range cur.Lines[li].Frames {
			f := &cur.Lines[li].Frames[fi]
			if f.Script != nil {
				continue
			}
			sc, ok := s.ResolveScript(q.ctx, model.Pos{Line: li, Frame: fi})
			if !ok {
				return cur, &SequenceError{Op: q.op, Step: "hydrate", Err: fmt.Errorf("script for %d:%d unavailable", li, fi)}
			}
			f.Script = &sc
		}
	}
	return cur, nil
}
