// internal/geometry/close_region.go
package geometry

import "fmt"

// ClosePosition anchors the close region inside the ad rectangle.
type ClosePosition int

const (
	TopLeft ClosePosition = iota
	TopCenter
	TopRight
	Center
	BottomLeft
	BottomCenter
	BottomRight
)

// DefaultClosePosition is used when a creative does not request one.
const DefaultClosePosition = TopRight

// DefaultCloseRegionDips is the edge length of the square close region.
const DefaultCloseRegionDips = 50

var closePositionNames = map[ClosePosition]string{
	TopLeft:      "top-left",
	TopCenter:    "top-center",
	TopRight:     "top-right",
	Center:       "center",
	BottomLeft:   "bottom-left",
	BottomCenter: "bottom-center",
	BottomRight:  "bottom-right",
}

func (p ClosePosition) String() string {
	if name, ok := closePositionNames[p]; ok {
		return name
	}
	return fmt.Sprintf("ClosePosition(%d)", int(p))
}

// ParseClosePosition maps the protocol spelling ("top-right", ...) to a
// ClosePosition.
func ParseClosePosition(s string) (ClosePosition, error) {
	for pos, name := range closePositionNames {
		if name == s {
			return pos, nil
		}
	}
	return 0, fmt.Errorf("invalid close position: %q", s)
}

type alignment int

const (
	alignStart alignment = iota
	alignCenter
	alignEnd
)

func (p ClosePosition) alignments() (horizontal, vertical alignment) {
	switch p {
	case TopLeft:
		return alignStart, alignStart
	case TopCenter:
		return alignCenter, alignStart
	case TopRight:
		return alignEnd, alignStart
	case Center:
		return alignCenter, alignCenter
	case BottomLeft:
		return alignStart, alignEnd
	case BottomCenter:
		return alignCenter, alignEnd
	case BottomRight:
		return alignEnd, alignEnd
	}
	return alignEnd, alignStart
}

func align(a alignment, start, extent, size int) int {
	switch a {
	case alignCenter:
		return start + (extent-size)/2
	case alignEnd:
		return start + extent - size
	}
	return start
}

// CloseRegion returns the size x size square anchored at position inside
// bounds. The result may extend past bounds when bounds is smaller than the
// region; callers validate containment.
func CloseRegion(position ClosePosition, bounds Rect, size int) Rect {
	h, v := position.alignments()
	return Rect{
		X:      align(h, bounds.X, bounds.Width, size),
		Y:      align(v, bounds.Y, bounds.Height, size),
		Width:  size,
		Height: size,
	}
}
