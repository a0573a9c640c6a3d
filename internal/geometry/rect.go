// internal/geometry/rect.go
package geometry

import "fmt"

// Rect is an integer rectangle in pixel (or dip) space. X and Y locate the
// top-left corner; Width and Height extend right and down.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRect builds a rectangle from its corner and size.
func NewRect(x, y, width, height int) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Left returns the left edge.
func (r Rect) Left() int { return r.X }

// Top returns the top edge.
func (r Rect) Top() int { return r.Y }

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Contains reports whether other lies entirely inside r. An empty r contains
// nothing, matching the semantics hosts use for hit regions.
func (r Rect) Contains(other Rect) bool {
	if r.Empty() {
		return false
	}
	return r.Left() <= other.Left() &&
		r.Top() <= other.Top() &&
		r.Right() >= other.Right() &&
		r.Bottom() >= other.Bottom()
}

// ContainsPoint reports whether the point (x, y) lies inside r.
func (r Rect) ContainsPoint(x, y int) bool {
	return x >= r.Left() && x < r.Right() && y >= r.Top() && y < r.Bottom()
}

// OffsetTo moves the rectangle so its top-left corner sits at (x, y) while
// keeping its size.
func (r Rect) OffsetTo(x, y int) Rect {
	r.X = x
	r.Y = y
	return r
}

// Offset translates the rectangle by (dx, dy).
func (r Rect) Offset(dx, dy int) Rect {
	r.X += dx
	r.Y += dy
	return r
}

// ClampInto moves r so that it lies within bounds without changing its size.
// When r is larger than bounds along an axis the result is anchored to the
// bounds' leading edge on that axis.
func (r Rect) ClampInto(bounds Rect) Rect {
	x := Clamp(bounds.Left(), r.X, bounds.Right()-r.Width)
	y := Clamp(bounds.Top(), r.Y, bounds.Bottom()-r.Height)
	return r.OffsetTo(x, y)
}

// Clamp limits target to the range [lo, hi]. If hi < lo, lo wins.
func Clamp(lo, target, hi int) int {
	return max(lo, min(target, hi))
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}
