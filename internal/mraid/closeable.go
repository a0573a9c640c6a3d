// internal/mraid/closeable.go
package mraid

import (
	"github.com/xkilldash9x/mraidhost/internal/geometry"
	"github.com/xkilldash9x/mraidhost/internal/view"
)

// CloseableContainer holds the ad while it is resized or expanded. A
// full-size dimming view swallows input behind the ad, and a square close
// region anchored by ClosePosition closes the ad when tapped. The host draws
// a close button in that region only while the close button is visible; the
// region itself stays tappable either way.
type CloseableContainer struct {
	view.Group

	dimming      *view.Node
	closeVisible bool
	position     geometry.ClosePosition
	regionSize   int
	onClose      func()
}

// NewCloseableContainer creates a detached container with a close region of
// regionPx pixels per side.
func NewCloseableContainer(regionPx int) *CloseableContainer {
	c := &CloseableContainer{
		dimming:      view.NewNode(),
		closeVisible: true,
		position:     geometry.DefaultClosePosition,
		regionSize:   regionPx,
	}
	c.AddView(c.dimming, view.MatchParentParams())
	return c
}

// SetOnClose installs the handler run by a tap inside the close region.
func (c *CloseableContainer) SetOnClose(fn func()) { c.onClose = fn }

// SetCloseVisible shows or hides the host-drawn close button.
func (c *CloseableContainer) SetCloseVisible(visible bool) { c.closeVisible = visible }

// IsCloseVisible reports whether the host-drawn close button is shown.
func (c *CloseableContainer) IsCloseVisible() bool { return c.closeVisible }

// SetClosePosition moves the close region.
func (c *CloseableContainer) SetClosePosition(p geometry.ClosePosition) { c.position = p }

// ClosePosition returns the current anchor.
func (c *CloseableContainer) ClosePosition() geometry.ClosePosition { return c.position }

// CloseRegionSize returns the edge length of the close region in pixels.
func (c *CloseableContainer) CloseRegionSize() int { return c.regionSize }

// CloseRegionBounds computes where the close region would sit for an ad
// occupying bounds.
func (c *CloseableContainer) CloseRegionBounds(position geometry.ClosePosition, bounds geometry.Rect) geometry.Rect {
	return geometry.CloseRegion(position, bounds, c.regionSize)
}

// CloseRegion returns the close region for the container's current frame.
func (c *CloseableContainer) CloseRegion() geometry.Rect {
	return c.CloseRegionBounds(c.position, c.Frame())
}

// Tap delivers a tap at screen coordinates. It reports whether the tap hit
// the close region and ran the close handler. Taps elsewhere in the container
// are absorbed by the ad or the dimming view.
func (c *CloseableContainer) Tap(x, y int) bool {
	if !c.IsShown() || !c.CloseRegion().ContainsPoint(x, y) {
		return false
	}
	if c.onClose != nil {
		c.onClose()
	}
	return true
}
