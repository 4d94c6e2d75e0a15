package grid

import (
	"math"

	"sova-grid/internal/model"
)

// DragThreshold is how far (in pointer units) the pointer must travel from the origin
// before an armed gesture becomes a drag.
const DragThreshold = 5.0

type DragState int

const (
	DragIdle DragState = iota
	DragArmed
	DragDragging
	DragDropped
	DragCancelled
)

func (s DragState) String() string {
	switch s {
	case DragIdle:
		return "idle"
	case DragArmed:
		return "armed"
	case DragDragging:
		return "dragging"
	case DragDropped:
		return "dropped"
	case DragCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

type dragEvent int

const (
	evArm dragEvent = iota
	evPastThreshold
	evReleaseOnTarget
	evReleaseNoTarget
	evEscape
	evStale
)

// dragTransitions is the complete transition table; events missing for a state are ignored.
// Dropped and Cancelled are transient: the machine is reset to Idle right after reaching them.
var dragTransitions = map[DragState]map[dragEvent]DragState{
	DragIdle: {
		evArm: DragArmed,
	},
	DragArmed: {
		evPastThreshold:   DragDragging,
		evReleaseNoTarget: DragIdle,
		evEscape:          DragCancelled,
		evStale:           DragCancelled,
	},
	DragDragging: {
		evReleaseOnTarget: DragDropped,
		evReleaseNoTarget: DragCancelled,
		evEscape:          DragCancelled,
		evStale:           DragCancelled,
	},
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// DropZone is an insertion slot: Insert is the index the moved frame will occupy in Line
// before the source is removed.
type DropZone struct {
	Line   int `json:"lineIndex"`
	Insert int `json:"insertIndex"`
}

type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	// OutcomeClick is a gesture that never crossed the threshold; treat it as a selection click.
	OutcomeClick
	OutcomeDrop
	OutcomeCancel
)

// Outcome is what a finished gesture resolved to.
type Outcome struct {
	Kind     OutcomeKind
	Final    DragState
	Source   model.Pos
	Snapshot model.Frame
	Target   DropZone
}

// DragView is the read-only drag state handed to renderers.
type DragView struct {
	State      DragState
	IsDragging bool
	Source     model.Pos
	Snapshot   model.Frame
	Target     *DropZone
	Origin     Point
}

// Drag is the frame relocation gesture state machine. It never blocks: only the
// Drop outcome leads to remote work, and that is the caller's business.
type Drag struct {
	state    DragState
	source   model.Pos
	snapshot model.Frame
	origin   Point
	target   *DropZone
}

func (d *Drag) State() DragState { return d.state }

func (d *Drag) View() DragView {
	v := DragView{
		State:      d.state,
		IsDragging: d.state == DragDragging,
		Source:     d.source,
		Snapshot:   d.snapshot.Clone(),
		Origin:     d.origin,
	}
	if d.target != nil {
		t := *d.target
		v.Target = &t
	}
	return v
}

func (d *Drag) fire(ev dragEvent) bool {
	next, ok := dragTransitions[d.state][ev]
	if !ok {
		return false
	}
	d.state = next
	return true
}

// Begin arms a gesture on src. Without the drag modifier the pointer-down is an ordinary
// click and the machine stays Idle.
func (d *Drag) Begin(src model.Pos, snapshot model.Frame, origin Point, modifier bool) bool {
	if !modifier || d.state != DragIdle {
		return false
	}
	if !d.fire(evArm) {
		return false
	}
	d.source = src
	d.snapshot = snapshot.Clone()
	d.origin = origin
	d.target = nil
	return true
}

// Move reports whether the gesture is (now) a drag.
func (d *Drag) Move(p Point) bool {
	if d.state == DragArmed && p.dist(d.origin) > DragThreshold {
		d.fire(evPastThreshold)
	}
	return d.state == DragDragging
}

// SetTarget records the candidate drop zone. Ignored unless dragging; nil clears it.
func (d *Drag) SetTarget(z *DropZone) {
	if d.state != DragDragging {
		return
	}
	if z == nil {
		d.target = nil
		return
	}
	t := *z
	d.target = &t
}

// Release ends the gesture on pointer-up.
func (d *Drag) Release() Outcome {
	switch d.state {
	case DragArmed:
		return d.end(evReleaseNoTarget, OutcomeClick)
	case DragDragging:
		if d.target != nil && !IsNoOp(d.source, *d.target) {
			return d.end(evReleaseOnTarget, OutcomeDrop)
		}
		return d.end(evReleaseNoTarget, OutcomeCancel)
	default:
		return d.end(evReleaseNoTarget, OutcomeNone)
	}
}

// Cancel aborts the gesture (Escape).
func (d *Drag) Cancel() Outcome {
	if d.state == DragIdle {
		return d.end(evEscape, OutcomeNone)
	}
	return d.end(evEscape, OutcomeCancel)
}

// Revalidate cancels an in-flight gesture whose source no longer exists in scene.
func (d *Drag) Revalidate(scene model.Scene) bool {
	if d.state == DragIdle || scene.Has(d.source) {
		return false
	}
	d.end(evStale, OutcomeCancel)
	return true
}

// end is the single exit path: whatever happened, the machine is Idle afterwards.
func (d *Drag) end(ev dragEvent, kind OutcomeKind) Outcome {
	defer d.reset()
	d.fire(ev)
	out := Outcome{Kind: kind, Final: d.state, Source: d.source, Snapshot: d.snapshot.Clone()}
	if d.target != nil {
		out.Target = *d.target
	}
	return out
}

func (d *Drag) reset() {
	*d = Drag{}
}

// IsNoOp reports whether dropping src into z would leave the line unchanged.
func IsNoOp(src model.Pos, z DropZone) bool {
	return z.Line == src.Line && (z.Insert == src.Frame || z.Insert == src.Frame+1)
}

// DropZones enumerates every valid insertion slot: one before the first frame of each line
// and one after every frame.
func DropZones(scene model.Scene) []DropZone {
	var out []DropZone
	for li, l := range scene.Lines {
		for i := 0; i <= len(l.Frames); i++ {
			out = append(out, DropZone{Line: li, Insert: i})
		}
	}
	return out
}

// ZoneAt maps a pointer over line at a fractional frame slot (0.0 = top edge of the first frame)
// to the nearest drop zone. Returns nil outside the scene.
func ZoneAt(scene model.Scene, line int, slot float64) *DropZone {
	if line < 0 || line >= scene.LineCount() || math.IsNaN(slot) {
		return nil
	}
	n := scene.FrameCount(line)
	insert := int(math.Floor(slot + 0.5))
	insert = clampInt(insert, 0, n)
	return &DropZone{Line: line, Insert: insert}
}
