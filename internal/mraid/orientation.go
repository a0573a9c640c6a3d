// internal/mraid/orientation.go
package mraid

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/mraidhost/internal/host"
)

// OrientationProperties returns the properties last accepted from the
// creative.
func (c *Controller) OrientationProperties() OrientationProperties {
	return OrientationProperties{
		AllowOrientationChange: c.allowOrientationChange,
		ForceOrientation:       c.forceOrientation,
	}
}

// OriginalOrientation returns the requested orientation saved by the first
// lock, if a lock is in place.
func (c *Controller) OriginalOrientation() (host.ScreenOrientation, bool) {
	return c.originalOrientation, c.hasOriginalOrientation
}

func (c *Controller) handleSetOrientationProperties(p OrientationProperties) error {
	if !c.shouldAllowForceOrientation(p.ForceOrientation) {
		return commandErrorf("Unable to force orientation to %s", p.ForceOrientation)
	}

	c.allowOrientationChange = p.AllowOrientationChange
	c.forceOrientation = p.ForceOrientation

	if c.state == ViewStateExpanded || (c.placement == PlacementInterstitial && !c.paused) {
		return c.applyOrientation()
	}
	return nil
}

// applyOrientation enforces the current orientation properties. With no
// forced orientation the lock is either released or, when changes are not
// allowed, pinned to whatever the screen shows now.
func (c *Controller) applyOrientation() error {
	if c.forceOrientation != ForceNone {
		return c.lockOrientation(c.forceOrientation.ScreenOrientation())
	}
	if c.allowOrientationChange {
		c.unApplyOrientation()
		return nil
	}
	if _, ok := c.activity.Resolve(); !ok {
		return commandErrorf("Unable to set MRAID expand orientation to 'none'; expected an activity")
	}
	return c.lockOrientation(host.CurrentOrientation(c.ctx))
}

// lockOrientation saves the activity's requested orientation on the first
// lock only, so a sequence of locks restores to the pre-lock value.
func (c *Controller) lockOrientation(o host.ScreenOrientation) error {
	activity, ok := c.activity.Resolve()
	if !ok || !c.shouldAllowForceOrientation(c.forceOrientation) {
		return commandErrorf("Attempted to lock orientation to unsupported value: %s", c.forceOrientation)
	}

	if !c.hasOriginalOrientation {
		c.originalOrientation = activity.RequestedOrientation()
		c.hasOriginalOrientation = true
	}
	c.logger.Debug("Locking orientation.", zap.Stringer("orientation", o))
	activity.SetRequestedOrientation(o)
	return nil
}

// unApplyOrientation restores the saved orientation, if any. Calling it
// again is a no-op.
func (c *Controller) unApplyOrientation() {
	if activity, ok := c.activity.Resolve(); ok && c.hasOriginalOrientation {
		c.logger.Debug("Restoring orientation.", zap.Stringer("orientation", c.originalOrientation))
		activity.SetRequestedOrientation(c.originalOrientation)
	}
	c.originalOrientation = host.OrientationUnspecified
	c.hasOriginalOrientation = false
}

// shouldAllowForceOrientation reports whether the activity can be locked to
// o without being torn down: either it declares exactly that orientation, or
// it declares no orientation and handles both orientation and screen size
// changes itself.
func (c *Controller) shouldAllowForceOrientation(o ForceOrientation) bool {
	if o == ForceNone {
		return true
	}
	activity, ok := c.activity.Resolve()
	if !ok {
		return false
	}
	info, err := activity.ActivityInfo()
	if err != nil {
		c.logger.Debug("Activity info lookup failed.", zap.Error(err))
		return false
	}
	if info.ScreenOrientation != host.OrientationUnspecified {
		return info.ScreenOrientation == o.ScreenOrientation()
	}
	return info.ConfigChanges.Has(host.ConfigOrientation | host.ConfigScreenSize)
}
