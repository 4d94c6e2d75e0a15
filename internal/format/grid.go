package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"sova-grid/internal/model"
)

// CellWidth is the column width of the plain-text grid.
const CellWidth = 16

// SceneGrid renders sc as a text table: one column per line, one row per frame slot.
// Disabled frames are parenthesized; playing frames (line -> frame) get a leading '>'.
func SceneGrid(sc model.Scene, playing map[int]int) string {
	if sc.LineCount() == 0 {
		return "(empty scene)\n"
	}
	var sb strings.Builder
	row := func(cells []string) {
		var line strings.Builder
		for _, c := range cells {
			line.WriteString(pad(c, CellWidth))
		}
		sb.WriteString(strings.TrimRight(line.String(), " "))
		sb.WriteByte('\n')
	}

	head := make([]string, sc.LineCount())
	for li := range sc.Lines {
		head[li] = fmt.Sprintf("L%d x%g", li, speed(sc.Lines[li]))
	}
	row(head)
	sb.WriteString(strings.Repeat("-", CellWidth*sc.LineCount()))
	sb.WriteByte('\n')
	for r := 0; r < sc.MaxFrames(); r++ {
		cells := make([]string, sc.LineCount())
		for li := range sc.Lines {
			f, ok := sc.FrameAt(model.Pos{Line: li, Frame: r})
			if !ok {
				continue
			}
			mark := " "
			if fr, ok := playing[li]; ok && fr == r {
				mark = ">"
			}
			cells[li] = mark + FrameLabel(f)
		}
		row(cells)
	}
	return sb.String()
}

// FrameLabel is the short text for one frame, e.g. "kick 1x4" or "(2)".
func FrameLabel(f model.Frame) string {
	label := fmt.Sprintf("%g", f.Duration)
	if f.Repetitions > 1 {
		label += fmt.Sprintf("x%d", f.Repetitions)
	}
	if n := f.DisplayName(); n != "" {
		label = n + " " + label
	}
	if !f.Enabled {
		label = "(" + label + ")"
	}
	return label
}

func speed(l model.Line) float64 {
	if l.SpeedFactor == 0 {
		return 1
	}
	return l.SpeedFactor
}

// pad truncates or space-pads s to exactly w cells, leaving one cell of gutter.
func pad(s string, w int) string {
	s = ansi.Truncate(s, w-1, "…")
	return s + strings.Repeat(" ", w-ansi.StringWidth(s))
}
