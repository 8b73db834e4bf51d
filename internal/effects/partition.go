package effects

import (
	"math"

	"github.com/ivlev/choreo/internal/scene"
)

// cell is one clip region in the target's local coordinates.
type cell struct {
	X, Y, W, H float64
	Col, Row   int
	Cols, Rows int
}

func (c cell) center() (float64, float64) {
	return c.X + c.W/2, c.Y + c.H/2
}

// gridCells partitions w x h into n cells in row-major order. The grid is
// ceil(sqrt(n)) columns wide; when n does not fill it, the last row holds the
// remaining pieces stretched to the full width, so no piece is dropped.
func gridCells(n int, w, h float64) []cell {
	if n <= 0 {
		return nil
	}
	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := (n + cols - 1) / cols
	out := make([]cell, 0, n)
	ch := h / float64(rows)
	for r := 0; r < rows; r++ {
		inRow := cols
		if r == rows-1 {
			inRow = n - (rows-1)*cols
		}
		cw := w / float64(inRow)
		for c := 0; c < inRow; c++ {
			out = append(out, cell{X: float64(c) * cw, Y: float64(r) * ch, W: cw, H: ch, Col: c, Row: r, Cols: inRow, Rows: rows})
		}
	}
	return out
}

// stripCells cuts n full-length strips, stacked rows or side by side columns.
func stripCells(n int, w, h float64, rows bool) []cell {
	out := make([]cell, n)
	for i := range out {
		if rows {
			sh := h / float64(n)
			out[i] = cell{Y: float64(i) * sh, W: w, H: sh, Row: i, Rows: n, Cols: 1}
		} else {
			sw := w / float64(n)
			out[i] = cell{X: float64(i) * sw, W: sw, H: h, Col: i, Cols: n, Rows: 1}
		}
	}
	return out
}

func (c cell) clip() scene.Properties {
	return scene.Properties{
		scene.ClipShape: scene.Str(scene.ShapeRect),
		scene.ClipX:     scene.Num(c.X),
		scene.ClipY:     scene.Num(c.Y),
		scene.ClipW:     scene.Num(c.W),
		scene.ClipH:     scene.Num(c.H),
	}
}

// wedgeClip is slice i of n around the center, angles in degrees clockwise
// from 12 o'clock.
func wedgeClip(i, n int) scene.Properties {
	step := 360 / float64(n)
	return scene.Properties{
		scene.ClipShape:  scene.Str(scene.ShapeWedge),
		scene.ClipFrom:   scene.Num(float64(i) * step),
		scene.ClipTo:     scene.Num(float64(i+1) * step),
		scene.ClipRadius: scene.Num(100),
	}
}

// wedgeDirection is the unit vector along the bisector of wedge i of n.
func wedgeDirection(i, n int) (float64, float64) {
	a := (float64(i) + 0.5) * 2 * math.Pi / float64(n)
	return math.Sin(a), -math.Cos(a)
}

// origin names the anchor of a cell from its grid position.
func origin(c cell) string {
	v := edge(c.Row, c.Rows, "top", "bottom")
	h := edge(c.Col, c.Cols, "left", "right")
	switch {
	case v == "center" && h == "center":
		return "center"
	case v == "center":
		return h
	case h == "center":
		return v
	}
	return v + "-" + h
}

func edge(i, n int, first, last string) string {
	switch {
	case n <= 1:
		return "center"
	case i == 0:
		return first
	case i == n-1:
		return last
	}
	return "center"
}

// outward returns the unit vector from (cx, cy) to (x, y), or a random
// direction from angle when the points coincide.
func outward(cx, cy, x, y, angle float64) (float64, float64) {
	dx, dy := x-cx, y-cy
	l := math.Hypot(dx, dy)
	if l < 1e-9 {
		return math.Cos(angle), math.Sin(angle)
	}
	return dx / l, dy / l
}
