package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/mraidhost/internal/geometry"
	"github.com/xkilldash9x/mraidhost/internal/loop"
)

func setupWindow(t *testing.T) (*loop.Queue, *Window) {
	t.Helper()
	q := loop.NewQueue()
	w := NewWindow(q, geometry.NewRect(0, 0, 1080, 1920))
	require.NoError(t, q.RunUntilIdle())
	return q, w
}

func TestLayoutMatchParentAndMargins(t *testing.T) {
	q, w := setupWindow(t)

	outer := NewGroup()
	w.Root().AddView(outer, LayoutParams{Width: MatchParent, Height: MatchParent, TopMargin: 100})
	leaf := NewNode()
	outer.AddView(leaf, FrameParams(geometry.NewRect(10, 20, 300, 250)))

	assert.Zero(t, leaf.Width(), "frames are only assigned by a layout pass")
	require.NoError(t, q.RunUntilIdle())

	assert.Equal(t, geometry.NewRect(0, 100, 1080, 1820), outer.Frame())
	assert.Equal(t, geometry.NewRect(10, 120, 300, 250), leaf.Frame())
	x, y := leaf.LocationOnScreen()
	assert.Equal(t, 10, x)
	assert.Equal(t, 120, y)
}

func TestLayoutRequestsCoalesce(t *testing.T) {
	q, w := setupWindow(t)
	before := w.Passes()

	for i := 0; i < 5; i++ {
		w.Root().AddView(NewNode(), MatchParentParams())
	}
	require.NoError(t, q.RunUntilIdle())
	assert.Equal(t, before+1, w.Passes())
}

func TestLayoutObserverRunsOnceAfterPass(t *testing.T) {
	q, w := setupWindow(t)
	leaf := NewNode()
	w.Root().AddView(leaf, FrameParams(geometry.NewRect(0, 0, 50, 50)))

	calls := 0
	var seen geometry.Rect
	leaf.AddLayoutObserver(func() {
		calls++
		seen = leaf.Frame()
	})
	require.NoError(t, q.RunUntilIdle())
	assert.Equal(t, 1, calls)
	assert.Equal(t, geometry.NewRect(0, 0, 50, 50), seen)

	w.RequestLayout()
	require.NoError(t, q.RunUntilIdle())
	assert.Equal(t, 1, calls, "observers are one-shot")
}

func TestLayoutObserverRemoved(t *testing.T) {
	q, w := setupWindow(t)
	leaf := NewNode()
	w.Root().AddView(leaf, MatchParentParams())

	called := false
	remove := leaf.AddLayoutObserver(func() { called = true })
	remove()
	require.NoError(t, q.RunUntilIdle())
	assert.False(t, called)
}

func TestLayoutObserverOnDetachedNodeWaitsForAttach(t *testing.T) {
	q, w := setupWindow(t)
	leaf := NewNode()

	called := false
	leaf.AddLayoutObserver(func() { called = true })
	require.NoError(t, q.RunUntilIdle())
	assert.False(t, called)

	w.Root().AddView(leaf, MatchParentParams())
	require.NoError(t, q.RunUntilIdle())
	assert.True(t, called)
}

func TestShownTracksVisibilityAndAttachment(t *testing.T) {
	q, w := setupWindow(t)
	parent := NewGroup()
	leaf := NewNode()
	parent.AddView(leaf, MatchParentParams())

	var changes []bool
	leaf.OnShownChange(func(shown bool) { changes = append(changes, shown) })

	w.Root().AddView(parent, FrameParams(geometry.NewRect(0, 0, 320, 50)))
	require.NoError(t, q.RunUntilIdle())
	assert.True(t, leaf.IsShown())
	assert.True(t, leaf.IsAttached())

	parent.SetVisibility(Invisible)
	require.NoError(t, q.RunUntilIdle())
	assert.False(t, leaf.IsShown(), "an invisible ancestor hides the subtree")

	parent.SetVisibility(Visible)
	require.NoError(t, q.RunUntilIdle())
	assert.True(t, leaf.IsShown())

	parent.RemoveFromParent()
	require.NoError(t, q.RunUntilIdle())
	assert.False(t, leaf.IsShown())
	assert.False(t, leaf.IsAttached())

	assert.Equal(t, []bool{true, false, true, false}, changes)
}

func TestGoneChildTakesNoSpace(t *testing.T) {
	q, w := setupWindow(t)
	leaf := NewNode()
	w.Root().AddView(leaf, FrameParams(geometry.NewRect(5, 5, 100, 100)))
	leaf.SetVisibility(Gone)
	require.NoError(t, q.RunUntilIdle())

	assert.Zero(t, leaf.Width())
	assert.Zero(t, leaf.Height())
	assert.False(t, leaf.IsShown())
}

func TestFrameChangeHookAndBounds(t *testing.T) {
	q, w := setupWindow(t)
	leaf := NewNode()
	var frames []geometry.Rect
	leaf.OnFrameChange(func(r geometry.Rect) { frames = append(frames, r) })
	w.Root().AddView(leaf, MatchParentParams())
	require.NoError(t, q.RunUntilIdle())

	w.SetBounds(geometry.NewRect(0, 0, 1920, 1080))
	require.NoError(t, q.RunUntilIdle())

	assert.Equal(t, []geometry.Rect{
		geometry.NewRect(0, 0, 1080, 1920),
		geometry.NewRect(0, 0, 1920, 1080),
	}, frames)
}

func TestAddViewMovesChild(t *testing.T) {
	a, b := NewGroup(), NewGroup()
	leaf := NewNode()

	a.AddView(leaf, MatchParentParams())
	b.AddView(leaf, MatchParentParams())

	assert.False(t, a.Contains(leaf))
	assert.True(t, b.Contains(leaf))
	assert.Same(t, b, leaf.Parent())
	assert.Equal(t, 0, a.ChildCount())
	assert.False(t, a.RemoveView(leaf))
	assert.True(t, b.RemoveView(leaf))
	assert.Nil(t, leaf.Parent())
}
