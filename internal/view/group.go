package view

// Group is a container view. Children are stacked in insertion order and laid
// out independently, each positioned by its own LayoutParams.
type Group struct {
	Node
	children []View
}

// groupHolder is satisfied by *Group and by any type embedding Group.
type groupHolder interface {
	group() *Group
}

func (g *Group) group() *Group { return g }

// NewGroup returns an empty, detached group.
func NewGroup() *Group {
	return &Group{}
}

// AddView appends child with the given params. A child that already has a
// parent is moved.
func (g *Group) AddView(child View, params LayoutParams) {
	n := child.viewNode()
	if n == &g.Node {
		return
	}
	if n.parent != nil {
		n.parent.removeNode(n)
	}
	n.parent = g
	n.params = params
	g.children = append(g.children, child)
	g.requestLayout()
}

// RemoveView detaches child and reports whether it was a child of g.
func (g *Group) RemoveView(child View) bool {
	return g.removeNode(child.viewNode())
}

// Contains reports whether child is a direct child of g.
func (g *Group) Contains(child View) bool {
	n := child.viewNode()
	for _, c := range g.children {
		if c.viewNode() == n {
			return true
		}
	}
	return false
}

// Children returns a copy of the child list.
func (g *Group) Children() []View {
	out := make([]View, len(g.children))
	copy(out, g.children)
	return out
}

// ChildCount returns the number of direct children.
func (g *Group) ChildCount() int { return len(g.children) }

func (g *Group) removeNode(n *Node) bool {
	for i, c := range g.children {
		if c.viewNode() != n {
			continue
		}
		// Request while still attached so the window reconciles the removal.
		g.requestLayout()
		g.children = append(g.children[:i], g.children[i+1:]...)
		n.parent = nil
		return true
	}
	return false
}
