package grid

import "sova-grid/internal/model"

// Selection is an anchor/cursor pair over the (row=frame slot, col=line) grid.
// It is never validated against the scene; out-of-range cells are clamped at render time.
type Selection struct {
	Anchor model.Cell `json:"anchor"`
	Cursor model.Cell `json:"cursor"`
}

// Box is an inclusive rectangle of cells.
type Box struct {
	MinRow, MinCol, MaxRow, MaxCol int
}

func SingleCell(c model.Cell) Selection {
	return Selection{Anchor: c, Cursor: c}
}

// Set replaces the selection unconditionally.
func (s *Selection) Set(anchor, cursor model.Cell) {
	s.Anchor = anchor
	s.Cursor = cursor
}

// Reset collapses the selection to c (click).
func (s *Selection) Reset(c model.Cell) {
	s.Set(c, c)
}

// Extend moves the cursor and keeps the anchor (shift-navigation).
func (s *Selection) Extend(c model.Cell) {
	s.Cursor = c
}

func (s Selection) BoundingBox() Box {
	return Box{
		MinRow: min(s.Anchor.Row, s.Cursor.Row),
		MinCol: min(s.Anchor.Col, s.Cursor.Col),
		MaxRow: max(s.Anchor.Row, s.Cursor.Row),
		MaxCol: max(s.Anchor.Col, s.Cursor.Col),
	}
}

func (s Selection) IsSingleCell() bool {
	return s.Anchor == s.Cursor
}

func (b Box) Contains(c model.Cell) bool {
	return c.Row >= b.MinRow && c.Row <= b.MaxRow && c.Col >= b.MinCol && c.Col <= b.MaxCol
}

// Navigate moves the cursor by (dRow, dCol) under the grid clamping policy:
// first a global clamp (rows to the longest line, cols to the line count), then a
// line-local clamp to the destination line's own frame count.
// When extend is false the anchor follows the cursor.
func Navigate(sel Selection, scene model.Scene, dRow, dCol int, extend bool) Selection {
	lines := scene.LineCount()
	if lines == 0 {
		return sel
	}
	maxRows := scene.MaxFrames()

	row := sel.Cursor.Row + dRow
	col := sel.Cursor.Col + dCol

	col = clampInt(col, 0, lines-1)
	row = clampInt(row, 0, max(maxRows-1, 0))
	if n := scene.FrameCount(col); row > n-1 {
		row = max(n-1, 0)
	}

	next := model.Cell{Row: row, Col: col}
	if extend {
		sel.Extend(next)
		return sel
	}
	sel.Reset(next)
	return sel
}

// Clamp returns sel with both corners pulled inside scene. Used by renderers only.
func (s Selection) Clamp(scene model.Scene) Selection {
	return Selection{Anchor: clampCell(s.Anchor, scene), Cursor: clampCell(s.Cursor, scene)}
}

// Positions lists the existing frames inside the selection, grouped by line in ascending order.
func (s Selection) Positions(scene model.Scene) map[int][]int {
	b := s.BoundingBox()
	out := map[int][]int{}
	for col := max(b.MinCol, 0); col <= b.MaxCol && col < scene.LineCount(); col++ {
		n := scene.FrameCount(col)
		for row := max(b.MinRow, 0); row <= b.MaxRow && row < n; row++ {
			out[col] = append(out[col], row)
		}
	}
	return out
}

func clampCell(c model.Cell, scene model.Scene) model.Cell {
	if scene.LineCount() == 0 {
		return model.Cell{}
	}
	c.Col = clampInt(c.Col, 0, scene.LineCount()-1)
	c.Row = clampInt(c.Row, 0, max(scene.FrameCount(c.Col)-1, 0))
	return c
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
