package geometry

import (
	"fmt"
	"math"
)

// Rect is an integer rectangle in output-local logical coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRect creates a rectangle from position and size.
func NewRect(x, y, width, height int) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Area returns Width*Height.
func (r Rect) Area() int { return r.Width * r.Height }

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Overlaps reports whether r and o share any area.
func (r Rect) Overlaps(o Rect) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// String returns "(x,y,w,h)".
func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", r.X, r.Y, r.Width, r.Height)
}

// Frame is a rectangle with float64 edges. X1 >= X0 and Y1 >= Y0.
type Frame struct {
	X0, Y0, X1, Y1 float64
}

// FrameOf converts an integer rectangle to a frame.
func FrameOf(r Rect) Frame {
	return Frame{
		X0: float64(r.X),
		Y0: float64(r.Y),
		X1: float64(r.X + max(r.Width, 0)),
		Y1: float64(r.Y + max(r.Height, 0)),
	}
}

// Width returns X1-X0.
func (f Frame) Width() float64 { return f.X1 - f.X0 }

// Height returns Y1-Y0.
func (f Frame) Height() float64 { return f.Y1 - f.Y0 }

// Rect rounds each edge to the nearest integer.
func (f Frame) Rect() Rect {
	x0, y0 := math.Round(f.X0), math.Round(f.Y0)
	x1, y1 := math.Round(f.X1), math.Round(f.Y1)
	return Rect{X: int(x0), Y: int(y0), Width: int(x1 - x0), Height: int(y1 - y0)}
}

// inset removes the given amounts from each side. Opposing insets that
// exceed the extent collapse that axis to zero width at the clamped edge.
func (f Frame) inset(left, right, top, bottom float64) Frame {
	out := Frame{X0: f.X0 + left, Y0: f.Y0 + top, X1: f.X1 - right, Y1: f.Y1 - bottom}
	if out.X0 > f.X1 {
		out.X0 = f.X1
	}
	if out.X1 < out.X0 {
		out.X1 = out.X0
	}
	if out.Y0 > f.Y1 {
		out.Y0 = f.Y1
	}
	if out.Y1 < out.Y0 {
		out.Y1 = out.Y0
	}
	return out
}
