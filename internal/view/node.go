// internal/view/node.go
//
// Package view is a small retained model of the host's view hierarchy: the
// containers the ad moves between, the rendering surfaces inside them, and the
// layout passes that give them on-screen rectangles. It is not a renderer;
// it only tracks geometry, visibility and layout completion.
package view

import "github.com/xkilldash9x/mraidhost/internal/geometry"

// MatchParent makes a child as large as its parent along that axis.
const MatchParent = -1

// Visibility mirrors the three host visibility modes.
type Visibility int

const (
	// Visible views are laid out and drawn.
	Visible Visibility = iota
	// Invisible views are laid out but not drawn.
	Invisible
	// Gone views take no space.
	Gone
)

func (v Visibility) String() string {
	switch v {
	case Visible:
		return "visible"
	case Invisible:
		return "invisible"
	case Gone:
		return "gone"
	}
	return "unknown"
}

// LayoutParams position a child inside its parent. Margins are relative to the
// parent's top-left corner.
type LayoutParams struct {
	Width      int
	Height     int
	LeftMargin int
	TopMargin  int
}

// MatchParentParams fills the parent.
func MatchParentParams() LayoutParams {
	return LayoutParams{Width: MatchParent, Height: MatchParent}
}

// FrameParams sizes a child to r, positioned relative to the parent origin.
func FrameParams(r geometry.Rect) LayoutParams {
	return LayoutParams{Width: r.Width, Height: r.Height, LeftMargin: r.X, TopMargin: r.Y}
}

// View is anything that can live in the tree. Types become views by embedding
// Node (or Group).
type View interface {
	viewNode() *Node
}

type layoutObserver struct {
	fn      func()
	removed bool
}

// Node is the base of every view. The zero value is a detached, visible view
// with no size.
type Node struct {
	parent     *Group
	window     *Window // set only on a window's root
	params     LayoutParams
	frame      geometry.Rect
	visibility Visibility
	shown      bool

	observers     []*layoutObserver
	onFrameChange func(geometry.Rect)
	onShownChange func(bool)
}

// NewNode returns a standalone leaf view.
func NewNode() *Node {
	return &Node{}
}

func (n *Node) viewNode() *Node { return n }

// Frame returns the last laid-out rectangle in screen coordinates.
func (n *Node) Frame() geometry.Rect { return n.frame }

// Width returns the measured width, zero before the first layout.
func (n *Node) Width() int { return n.frame.Width }

// Height returns the measured height, zero before the first layout.
func (n *Node) Height() int { return n.frame.Height }

// LocationOnScreen returns the top-left corner in screen coordinates.
func (n *Node) LocationOnScreen() (x, y int) { return n.frame.X, n.frame.Y }

// Parent returns the containing group, or nil.
func (n *Node) Parent() *Group { return n.parent }

// Visibility returns the node's own visibility flag.
func (n *Node) Visibility() Visibility { return n.visibility }

// SetVisibility changes the node's visibility and schedules a layout pass.
func (n *Node) SetVisibility(v Visibility) {
	if n.visibility == v {
		return
	}
	n.visibility = v
	n.requestLayout()
}

// LayoutParams returns the params the parent lays this node out with.
func (n *Node) LayoutParams() LayoutParams { return n.params }

// SetLayoutParams replaces the params and schedules a layout pass.
func (n *Node) SetLayoutParams(p LayoutParams) {
	n.params = p
	n.requestLayout()
}

// RemoveFromParent detaches the node from its parent, if any.
func (n *Node) RemoveFromParent() {
	if n.parent != nil {
		n.parent.removeNode(n)
	}
}

// Window returns the window the node is attached to, or nil when detached.
func (n *Node) Window() *Window {
	for cur := n; cur != nil; {
		if cur.window != nil {
			return cur.window
		}
		if cur.parent == nil {
			return nil
		}
		cur = &cur.parent.Node
	}
	return nil
}

// IsAttached reports whether the node is reachable from a window root.
func (n *Node) IsAttached() bool { return n.Window() != nil }

// IsShown reports the result of the last layout pass: attached, visible along
// the whole ancestor chain, and non-empty.
func (n *Node) IsShown() bool { return n.shown }

// AddLayoutObserver registers fn to run once, after the next completed layout
// pass that includes this node. Registering requests a pass. The returned
// function unregisters fn if it has not run yet.
func (n *Node) AddLayoutObserver(fn func()) (remove func()) {
	obs := &layoutObserver{fn: fn}
	n.observers = append(n.observers, obs)
	n.requestLayout()
	return func() {
		obs.removed = true
	}
}

// OnFrameChange installs a hook called after a layout pass changes the
// node's frame. Passing nil clears it.
func (n *Node) OnFrameChange(fn func(geometry.Rect)) { n.onFrameChange = fn }

// OnShownChange installs a hook called when IsShown flips. Passing nil clears it.
func (n *Node) OnShownChange(fn func(bool)) { n.onShownChange = fn }

func (n *Node) requestLayout() {
	if w := n.Window(); w != nil {
		w.RequestLayout()
	}
}

func (n *Node) takeObservers() []*layoutObserver {
	obs := n.observers
	n.observers = nil
	return obs
}
