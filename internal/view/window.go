// internal/view/window.go
package view

import (
	"github.com/xkilldash9x/mraidhost/internal/geometry"
	"github.com/xkilldash9x/mraidhost/internal/loop"
)

// Window owns a root group and runs layout passes on the loop. Mutations
// anywhere in the attached tree coalesce into a single pending pass.
type Window struct {
	sched  loop.Scheduler
	root   *Group
	bounds geometry.Rect

	layoutPosted bool
	passes       int
	shown        map[*Node]View
}

// NewWindow creates a window whose root occupies bounds in screen coordinates.
func NewWindow(sched loop.Scheduler, bounds geometry.Rect) *Window {
	w := &Window{
		sched:  sched,
		root:   NewGroup(),
		bounds: bounds,
		shown:  make(map[*Node]View),
	}
	w.root.window = w
	w.root.params = MatchParentParams()
	w.RequestLayout()
	return w
}

// Root returns the top-level group of the window.
func (w *Window) Root() *Group { return w.root }

// Bounds returns the root's screen rectangle.
func (w *Window) Bounds() geometry.Rect { return w.bounds }

// SetBounds resizes the root, e.g. after a rotation, and schedules a pass.
func (w *Window) SetBounds(r geometry.Rect) {
	if w.bounds == r {
		return
	}
	w.bounds = r
	w.RequestLayout()
}

// Passes returns the number of completed layout passes.
func (w *Window) Passes() int { return w.passes }

// RequestLayout schedules a layout pass on the loop unless one is pending.
func (w *Window) RequestLayout() {
	if w.layoutPosted {
		return
	}
	w.layoutPosted = true
	w.sched.Post(w.performLayout)
}

type frameChange struct {
	node  *Node
	frame geometry.Rect
}

func (w *Window) performLayout() {
	w.layoutPosted = false

	var (
		changes   []frameChange
		observers []*layoutObserver
	)
	nowShown := make(map[*Node]View)

	var walk func(v View, frame geometry.Rect, parentShown bool)
	walk = func(v View, frame geometry.Rect, parentShown bool) {
		n := v.viewNode()
		if n.frame != frame {
			n.frame = frame
			changes = append(changes, frameChange{node: n, frame: frame})
		}
		isShown := parentShown && n.visibility == Visible && !frame.Empty()
		if isShown {
			nowShown[n] = v
		}
		observers = append(observers, n.takeObservers()...)

		holder, ok := v.(groupHolder)
		if !ok {
			return
		}
		for _, child := range holder.group().children {
			cn := child.viewNode()
			if cn.visibility == Gone {
				walk(child, geometry.Rect{X: frame.X, Y: frame.Y}, false)
				continue
			}
			walk(child, childFrame(frame, cn.params), isShown)
		}
	}
	walk(w.root, w.bounds, true)
	w.passes++

	for _, c := range changes {
		if c.node.onFrameChange != nil {
			c.node.onFrameChange(c.frame)
		}
	}

	previous := w.shown
	w.shown = nowShown
	for n := range previous {
		if _, still := nowShown[n]; !still {
			n.setShown(false)
		}
	}
	for n := range nowShown {
		if _, was := previous[n]; !was {
			n.setShown(true)
		}
	}

	for _, obs := range observers {
		if !obs.removed {
			obs.removed = true
			obs.fn()
		}
	}
}

func (n *Node) setShown(shown bool) {
	if n.shown == shown {
		return
	}
	n.shown = shown
	if n.onShownChange != nil {
		n.onShownChange(shown)
	}
}

func childFrame(parent geometry.Rect, p LayoutParams) geometry.Rect {
	width := p.Width
	if width == MatchParent {
		width = parent.Width - p.LeftMargin
	}
	height := p.Height
	if height == MatchParent {
		height = parent.Height - p.TopMargin
	}
	return geometry.Rect{
		X:      parent.X + p.LeftMargin,
		Y:      parent.Y + p.TopMargin,
		Width:  max(width, 0),
		Height: max(height, 0),
	}
}
