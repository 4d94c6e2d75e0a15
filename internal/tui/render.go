package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"sova-grid/internal/engine"
	"sova-grid/internal/format"
	"sova-grid/internal/grid"
	"sova-grid/internal/model"
)

// Grid geometry, in terminal cells. Each frame slot is two rows tall: the label row and a
// detail row (playback progress, peers).
const (
	gutterW   = 4
	cellW     = 18
	slotRows  = 2
	gridTop   = 3

	// Pointer units per terminal cell, roughly the pixel size of a cell. The drag threshold
	// is expressed in these units.
	pxPerCol = 8
	pxPerRow = 16
)

// viewport is the visible window over the grid.
type viewport struct {
	width, height int
	top, left     int
}

func (vp viewport) cols() int {
	return max((vp.width-gutterW)/cellW, 1)
}

// slots is how many frame slots fit between the header and the footer.
func (vp viewport) slots(footer int) int {
	return max((vp.height-gridTop-footer)/slotRows, 1)
}

// follow scrolls just enough to keep c visible.
func (vp viewport) follow(c model.Cell, footer int) viewport {
	if c.Row < vp.top {
		vp.top = c.Row
	}
	if n := vp.slots(footer); c.Row >= vp.top+n {
		vp.top = c.Row - n + 1
	}
	if c.Col < vp.left {
		vp.left = c.Col
	}
	if n := vp.cols(); c.Col >= vp.left+n {
		vp.left = c.Col - n + 1
	}
	vp.top = max(vp.top, 0)
	vp.left = max(vp.left, 0)
	return vp
}

// hit maps a terminal position to a line and a fractional frame slot. ok is false outside
// the grid body.
func (vp viewport) hit(x, y int) (line int, slot float64, ok bool) {
	if x < gutterW || y < gridTop {
		return 0, 0, false
	}
	line = vp.left + (x-gutterW)/cellW
	slot = float64(vp.top) + float64(y-gridTop)/slotRows
	return line, slot, true
}

func pointer(x, y int) grid.Point {
	return grid.Point{X: float64(x * pxPerCol), Y: float64(y * pxPerRow)}
}

// renderGrid draws the visible part of the scene with selection, drag, playback, peer and
// error decorations.
func renderGrid(v engine.View, vp viewport, footer int, st gridStyles) string {
	sc := v.Scene
	var sb strings.Builder

	if sc.LineCount() == 0 {
		sb.WriteString(st.status.Render("(no lines; press L to add one)"))
		sb.WriteByte('\n')
		return sb.String()
	}

	firstCol := min(vp.left, sc.LineCount()-1)
	lastCol := min(firstCol+vp.cols(), sc.LineCount())

	// Header and rule.
	sb.WriteString(strings.Repeat(" ", gutterW))
	for li := firstCol; li < lastCol; li++ {
		l := sc.Lines[li]
		speed := l.SpeedFactor
		if speed == 0 {
			speed = 1
		}
		sb.WriteString(fit(st.header.Render(fmt.Sprintf("L%d x%g", li, speed)), cellW))
	}
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat(" ", gutterW))
	sb.WriteString(st.gutter.Render(strings.Repeat(glyphHRule(), cellW*(lastCol-firstCol))))
	sb.WriteByte('\n')

	box := v.Selection.BoundingBox()
	cursor := v.Selection.Cursor
	peers := peerMarks(v.Peers)

	rows := sc.MaxFrames() + 1 // one extra slot for dropping after the last frame
	n := vp.slots(footer)
	for r := vp.top; r < min(vp.top+n, rows); r++ {
		label := strings.Builder{}
		detail := strings.Builder{}
		label.WriteString(st.gutter.Render(fmt.Sprintf("%3d ", r)))
		detail.WriteString(strings.Repeat(" ", gutterW))

		for li := firstCol; li < lastCol; li++ {
			pos := model.Pos{Line: li, Frame: r}
			c := pos.Cell()
			marker := v.Drag.IsDragging && v.Drag.Target != nil && *v.Drag.Target == (grid.DropZone{Line: li, Insert: r})

			f, ok := sc.FrameAt(pos)
			if !ok {
				txt := ""
				if marker {
					txt = st.marker.Render(glyphInsert())
				}
				label.WriteString(fit(txt, cellW))
				detail.WriteString(fit("", cellW))
				continue
			}

			text := format.FrameLabel(f)
			playing := false
			if ph, ok := v.Playheads[li]; ok && ph == r {
				playing = true
				text = glyphPlayhead() + " " + text
			}
			if marker {
				text = glyphInsert() + " " + text
			}
			text = xansi.Truncate(text, cellW-1, "…")
			text += strings.Repeat(" ", cellW-1-xansi.StringWidth(text))

			style := st.frame
			switch {
			case v.Focus.Error != nil && v.Focus.Error.Pos == pos:
				style = st.errCell
			case c == cursor:
				style = st.cursor
			case box.Contains(c):
				style = st.selected
			case v.Drag.State != grid.DragIdle && v.Drag.Source == pos:
				style = st.source
			case !f.Enabled:
				style = st.disabled
			case playing:
				style = st.playing.Inherit(st.frame)
			}
			label.WriteString(style.Render(text) + " ")

			var info string
			if playing {
				info = st.playing.Render(progressBar(v.Progress[pos], 8))
			}
			if names := peers[pos]; names != "" {
				if info != "" {
					info += " "
				}
				info += st.peer.Render(names)
			}
			detail.WriteString(fit(info, cellW))
		}
		sb.WriteString(strings.TrimRight(label.String(), " "))
		sb.WriteByte('\n')
		sb.WriteString(strings.TrimRight(detail.String(), " "))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// peerMarks renders "@name" markers for every peer cursor, keyed by frame position.
func peerMarks(peers []grid.Peer) map[model.Pos]string {
	out := map[model.Pos]string{}
	for _, p := range peers {
		var at model.Pos
		switch {
		case p.Editing != nil:
			at = *p.Editing
		case p.Selection != nil:
			at = p.Selection.Cursor.Pos()
		default:
			continue
		}
		mark := "@" + p.Name
		if p.Editing != nil {
			mark += "*"
		}
		if cur := out[at]; cur != "" {
			mark = cur + " " + mark
		}
		out[at] = mark
	}
	return out
}

// fit pads or truncates s (ANSI-aware) to exactly w cells.
func fit(s string, w int) string {
	if xansi.StringWidth(s) > w {
		s = xansi.Truncate(s, w, "")
	}
	return s + strings.Repeat(" ", w-xansi.StringWidth(s))
}

func renderTitle(v engine.View, server, peer string, st gridStyles) string {
	conn := st.offline.Render("offline")
	if v.Connected {
		conn = st.playing.Render("live")
	}
	parts := []string{st.title.Render("sovagrid"), server, peer, conn}
	if v.Busy > 0 {
		parts = append(parts, st.status.Render("sending…"))
	}
	if v.Clipboard.HasContent {
		parts = append(parts, st.status.Render("clip "+v.Clipboard.Source.String()))
	}
	return strings.Join(parts, " "+glyphDot()+" ")
}

func renderStatus(v engine.View, st gridStyles) string {
	var lines []string
	if v.Focus.Error != nil {
		e := v.Focus.Error
		lines = append(lines, st.errLine.Render(fmt.Sprintf("compile error at %s: %s", e.Pos, e.Message)))
	}
	if v.Status != "" {
		lines = append(lines, st.status.Render(v.Status))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
