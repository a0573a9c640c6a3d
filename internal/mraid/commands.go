// internal/mraid/commands.go
package mraid

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/mraidhost/internal/geometry"
	"github.com/xkilldash9x/mraidhost/internal/view"
)

// -- Resize --

// handleResize validates the requested rectangle and its close region
// completely before touching the view tree.
func (c *Controller) handleResize(p ResizeParams) error {
	if c.surface == nil {
		return &CommandError{Command: CommandResize.String(), Message: "Unable to resize after the surface is destroyed", Err: ErrSurfaceDestroyed}
	}

	// Resizing while loading or hidden has no effect; from expanded it is an
	// error.
	switch c.state {
	case ViewStateLoading, ViewStateHidden:
		return nil
	case ViewStateExpanded:
		return commandErrorf("Not allowed to resize from an already expanded ad")
	}
	if c.placement == PlacementInterstitial {
		return commandErrorf("Not allowed to resize from an interstitial ad")
	}

	density := c.ctx.DisplayMetrics().Density
	width := density.DipsToPixels(p.Width)
	height := density.DipsToPixels(p.Height)
	offsetX := density.DipsToPixels(p.OffsetX)
	offsetY := density.DipsToPixels(p.OffsetY)

	def := c.metrics.DefaultAd
	resizeRect := geometry.NewRect(def.X+offsetX, def.Y+offsetY, width, height)
	bounds := c.metrics.RootView
	maxDips := c.metrics.RootViewDips()

	if !p.AllowOffscreen {
		if resizeRect.Width > bounds.Width || resizeRect.Height > bounds.Height {
			return commandErrorf("resizeProperties specified a size (%d, %d) and offset (%d, %d) "+
				"that doesn't allow the ad to appear within the max allowed size (%d, %d)",
				p.Width, p.Height, p.OffsetX, p.OffsetY, maxDips.Width, maxDips.Height)
		}
		resizeRect = resizeRect.ClampInto(bounds)
	}

	closeRect := c.closeable.CloseRegionBounds(p.ClosePosition, resizeRect)
	if !bounds.Contains(closeRect) {
		return commandErrorf("resizeProperties specified a size (%d, %d) and offset (%d, %d) "+
			"that doesn't allow the close region to appear within the max allowed size (%d, %d)",
			p.Width, p.Height, p.OffsetX, p.OffsetY, maxDips.Width, maxDips.Height)
	}
	if !resizeRect.Contains(closeRect) {
		return commandErrorf("resizeProperties specified a size (%d, %d) and offset (%d, %d) "+
			"that don't allow the close region to appear within the resized ad (max allowed size (%d, %d))",
			p.Width, p.Height, p.OffsetX, p.OffsetY, maxDips.Width, maxDips.Height)
	}

	// The creative supplies its own close button while resized.
	c.closeable.SetCloseVisible(false)
	c.closeable.SetClosePosition(p.ClosePosition)

	params := view.LayoutParams{
		Width:      resizeRect.Width,
		Height:     resizeRect.Height,
		LeftMargin: resizeRect.X - bounds.X,
		TopMargin:  resizeRect.Y - bounds.Y,
	}
	switch c.state {
	case ViewStateDefault:
		c.defaultContainer.RemoveView(c.surface)
		c.defaultContainer.SetVisibility(view.Invisible)
		c.closeable.AddView(c.surface, view.MatchParentParams())
		c.getAndMemoizeRootView().AddView(c.closeable, params)
	case ViewStateResized:
		c.closeable.SetLayoutParams(params)
	}

	c.logger.Debug("Ad resized.", zap.Stringer("rect", resizeRect), zap.Stringer("close_position", p.ClosePosition))
	c.setViewState(ViewStateResized)
	return nil
}

// -- Expand --

func (c *Controller) handleExpand(p ExpandParams) error {
	if c.surface == nil {
		return &CommandError{Command: CommandExpand.String(), Message: "Unable to expand after the surface is destroyed", Err: ErrSurfaceDestroyed}
	}
	if c.placement == PlacementInterstitial {
		return nil
	}
	if c.state != ViewStateDefault && c.state != ViewStateResized {
		return nil
	}

	isTwoPart := p.URL != ""
	var twoPart Surface
	if isTwoPart {
		s, err := c.surfaces.NewSurface(c.ctx)
		if err != nil {
			return &CommandError{Message: "Unable to create a surface for the expanded ad", Err: err}
		}
		twoPart = s
	}

	if err := c.applyOrientation(); err != nil {
		if twoPart != nil {
			twoPart.Destroy()
		}
		return err
	}

	if isTwoPart {
		// Starts out loading; its own page load promotes it to the current state.
		c.twoPartSurface = twoPart
		c.twoPartBridge.Attach(twoPart)
		if err := c.twoPartBridge.SetContentURL(p.URL); err != nil {
			c.logger.Warn("Two-part creative failed to start loading.", zap.String("url", p.URL), zap.Error(err))
		}
	}

	full := view.MatchParentParams()
	switch c.state {
	case ViewStateDefault:
		if isTwoPart {
			c.closeable.AddView(c.twoPartSurface, full)
		} else {
			c.defaultContainer.RemoveView(c.surface)
			c.defaultContainer.SetVisibility(view.Invisible)
			c.closeable.AddView(c.surface, full)
		}
		c.getAndMemoizeRootView().AddView(c.closeable, full)
	case ViewStateResized:
		if isTwoPart {
			// Return the primary surface to the default container so a later
			// close restores it in place.
			c.closeable.RemoveView(c.surface)
			c.defaultContainer.AddView(c.surface, full)
			c.defaultContainer.SetVisibility(view.Invisible)
			c.closeable.AddView(c.twoPartSurface, full)
		}
	}
	c.closeable.SetLayoutParams(full)
	c.handleCustomClose(p.UseCustomClose)

	c.setViewState(ViewStateExpanded)
	return nil
}

// -- Close --

func (c *Controller) handleClose() {
	if c.surface == nil {
		return
	}
	if c.state == ViewStateLoading || c.state == ViewStateHidden {
		return
	}

	// Release the lock before the view hierarchy changes.
	if c.state == ViewStateExpanded || c.placement == PlacementInterstitial {
		c.unApplyOrientation()
	}

	switch c.state {
	case ViewStateResized, ViewStateExpanded:
		if c.twoPartBridge.IsAttached() && c.twoPartSurface != nil {
			twoPart := c.twoPartSurface
			c.detachTwoPart()
			c.closeable.RemoveView(twoPart)
		} else {
			c.closeable.RemoveView(c.surface)
			c.defaultContainer.AddView(c.surface, view.MatchParentParams())
		}
		c.defaultContainer.SetVisibility(view.Visible)
		c.closeable.RemoveFromParent()
		c.setViewState(ViewStateDefault)
	case ViewStateDefault:
		c.defaultContainer.SetVisibility(view.Invisible)
		c.setViewState(ViewStateHidden)
	}
}

// -- Custom close --

func (c *Controller) handleCustomClose(useCustomClose bool) {
	if useCustomClose == c.isUsingCustomClose() {
		return
	}
	c.closeable.SetCloseVisible(!useCustomClose)
	if c.customCloseListener != nil {
		c.customCloseListener.UseCustomCloseChanged(useCustomClose)
	}
}

func (c *Controller) isUsingCustomClose() bool {
	return !c.closeable.IsCloseVisible()
}

// -- Leaving the ad --

func (c *Controller) handleOpen(url string) {
	if c.listener != nil {
		c.listener.OnOpen()
	}
	if c.opener == nil {
		c.logger.Warn("No URL opener configured, dropping click-through.", zap.String("url", url))
		return
	}
	if err := c.opener.OpenURL(url); err != nil {
		c.logger.Warn("Failed to open URL.", zap.String("url", url), zap.Error(err))
	}
}

func (c *Controller) handleShowVideo(url string) {
	if c.video == nil {
		c.logger.Warn("No video launcher configured, dropping playVideo.", zap.String("url", url))
		return
	}
	if err := c.video.PlayVideo(url); err != nil {
		c.logger.Warn("Failed to start video playback.", zap.String("url", url), zap.Error(err))
	}
}

// -- Direct command entry points --

// Resize runs a resize command as if issued by the primary surface.
func (c *Controller) Resize(p ResizeParams) error { return c.handleResize(p) }

// Expand runs an expand command as if issued by the primary surface.
func (c *Controller) Expand(p ExpandParams) error { return c.handleExpand(p) }

// Close runs a close command.
func (c *Controller) Close() { c.handleClose() }

// UseCustomClose toggles the host-drawn close button.
func (c *Controller) UseCustomClose(useCustomClose bool) { c.handleCustomClose(useCustomClose) }

// SetOrientationProperties runs a setOrientationProperties command.
func (c *Controller) SetOrientationProperties(p OrientationProperties) error {
	return c.handleSetOrientationProperties(p)
}
