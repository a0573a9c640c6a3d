// internal/mraid/controller.go
package mraid

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/mraidhost/internal/geometry"
	"github.com/xkilldash9x/mraidhost/internal/host"
	"github.com/xkilldash9x/mraidhost/internal/loop"
	"github.com/xkilldash9x/mraidhost/internal/view"
)

// Options configures a Controller. Context, Scheduler and Surfaces are
// required.
type Options struct {
	Context   host.Context
	Activity  host.ActivityRef // nil when created outside an activity
	Placement PlacementType
	Scheduler loop.Scheduler
	Surfaces  SurfaceFactory
	Rotation  host.RotationSource
	Opener    host.URLOpener
	Video     host.VideoLauncher

	// CloseRegionDips is the edge of the close region. Zero means
	// geometry.DefaultCloseRegionDips.
	CloseRegionDips int
	Logger          *zap.Logger
}

// Controller owns an ad unit: its primary and two-part bridges, the default
// and closeable containers, and the view state machine the creative drives.
// All methods must be called on the Scheduler's loop.
type Controller struct {
	logger    *zap.Logger
	sessionID string

	ctx       host.Context
	activity  host.ActivityRef
	placement PlacementType
	sched     loop.Scheduler
	surfaces  SurfaceFactory
	rotation  host.RotationSource
	opener    host.URLOpener
	video     host.VideoLauncher

	defaultContainer *view.Group
	closeable        *CloseableContainer
	rootView         *view.Group

	waiter  *ScreenMetricsWaiter
	metrics ScreenMetrics
	state   ViewState

	listener            Listener
	customCloseListener UseCustomCloseListener
	debugListener       DebugListener

	surface        Surface
	twoPartSurface Surface
	bridge         *Bridge
	twoPartBridge  *Bridge

	rotationObserver *rotationObserver

	// Requested orientation before the first lock; valid while hasOriginal.
	originalOrientation    host.ScreenOrientation
	hasOriginalOrientation bool
	allowOrientationChange bool
	forceOrientation       ForceOrientation

	paused bool
}

// New creates a controller in the loading state and registers it for
// rotation broadcasts.
func New(opts Options) (*Controller, error) {
	if opts.Context == nil {
		return nil, errors.New("mraid: options must include a host context")
	}
	if opts.Scheduler == nil {
		return nil, errors.New("mraid: options must include a scheduler")
	}
	if opts.Surfaces == nil {
		return nil, errors.New("mraid: options must include a surface factory")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	activity := opts.Activity
	if activity == nil {
		activity = host.Detached()
	}
	regionDips := opts.CloseRegionDips
	if regionDips <= 0 {
		regionDips = geometry.DefaultCloseRegionDips
	}

	sessionID := uuid.NewString()
	logger = logger.Named("mraid_controller").With(zap.String("ad_session", sessionID))
	density := opts.Context.DisplayMetrics().Density

	c := &Controller{
		logger:                 logger,
		sessionID:              sessionID,
		ctx:                    opts.Context,
		activity:               activity,
		placement:              opts.Placement,
		sched:                  opts.Scheduler,
		surfaces:               opts.Surfaces,
		rotation:               opts.Rotation,
		opener:                 opts.Opener,
		video:                  opts.Video,
		defaultContainer:       view.NewGroup(),
		closeable:              NewCloseableContainer(density.DipsToPixels(regionDips)),
		waiter:                 NewScreenMetricsWaiter(opts.Scheduler),
		metrics:                NewScreenMetrics(density),
		state:                  ViewStateLoading,
		bridge:                 NewBridge(logger, "primary", opts.Placement),
		twoPartBridge:          NewBridge(logger, "two_part", PlacementInterstitial),
		allowOrientationChange: true,
		forceOrientation:       ForceNone,
		paused:                 true,
	}
	c.closeable.SetOnClose(c.handleClose)
	c.bridge.SetListener(&bridgeListener{c: c, overrides: primaryOverrides})
	c.twoPartBridge.SetListener(&bridgeListener{c: c, overrides: twoPartOverrides})

	if c.rotation != nil {
		c.rotationObserver = &rotationObserver{c: c, lastRotation: -1}
		c.rotation.Register(c.rotationObserver)
	}
	return c, nil
}

// SetListener installs the lifecycle listener.
func (c *Controller) SetListener(l Listener) { c.listener = l }

// SetUseCustomCloseListener installs the custom close listener.
func (c *Controller) SetUseCustomCloseListener(l UseCustomCloseListener) { c.customCloseListener = l }

// SetDebugListener installs the console and alert interceptor.
func (c *Controller) SetDebugListener(l DebugListener) { c.debugListener = l }

// SessionID identifies this ad in logs.
func (c *Controller) SessionID() string { return c.sessionID }

// ViewState returns the current state.
func (c *Controller) ViewState() ViewState { return c.state }

// Placement returns the placement fixed at construction.
func (c *Controller) Placement() PlacementType { return c.placement }

// AdContainer returns the default container the host embeds in its layout.
func (c *Controller) AdContainer() *view.Group { return c.defaultContainer }

// CloseableContainer returns the container used while resized or expanded.
func (c *Controller) CloseableContainer() *CloseableContainer { return c.closeable }

// ScreenMetrics returns the last completed measurement.
func (c *Controller) ScreenMetrics() ScreenMetrics { return c.metrics }

// PrimarySurface returns the surface the creative was loaded into, or nil
// after Destroy.
func (c *Controller) PrimarySurface() Surface { return c.surface }

// TwoPartSurface returns the surface of a two-part expand, or nil.
func (c *Controller) TwoPartSurface() Surface { return c.twoPartSurface }

// CurrentSurface returns the two-part surface while its bridge is attached,
// else the primary surface.
func (c *Controller) CurrentSurface() Surface {
	if c.twoPartBridge.IsAttached() {
		return c.twoPartSurface
	}
	return c.surface
}

// -- Content --

// FillContent creates the primary surface, places it in the default
// container and loads html into it. onReady, if set, sees the surface before
// loading starts.
func (c *Controller) FillContent(html string, onReady func(Surface)) error {
	s, err := c.surfaces.NewSurface(c.ctx)
	if err != nil {
		return fmt.Errorf("creating primary surface: %w", err)
	}
	c.surface = s
	if onReady != nil {
		onReady(s)
	}
	c.bridge.Attach(s)
	c.defaultContainer.AddView(s, view.MatchParentParams())
	return c.bridge.SetContentHTML(html)
}

// OnPreloadFinished adopts a surface that has already loaded the creative and
// runs the page load sequence immediately.
func (c *Controller) OnPreloadFinished(s Surface) {
	c.surface = s
	c.bridge.Attach(s)
	c.defaultContainer.AddView(s, view.MatchParentParams())
	c.handlePageLoad()
}

// LoadJavaScript evaluates js in the primary surface.
func (c *Controller) LoadJavaScript(js string) {
	c.bridge.InjectJavaScript(js)
}

// PrimaryBridge exposes the bridge of the primary surface.
func (c *Controller) PrimaryBridge() *Bridge { return c.bridge }

// TwoPartBridge exposes the bridge of the two-part surface.
func (c *Controller) TwoPartBridge() *Bridge { return c.twoPartBridge }

// -- Lifecycle --

// OnShow is called when the ad is about to be shown in activity. The
// orientation policy is applied on a best-effort basis.
func (c *Controller) OnShow(activity host.ActivityRef) {
	if activity == nil {
		activity = host.Detached()
	}
	c.activity = activity
	if c.customCloseListener != nil {
		c.customCloseListener.UseCustomCloseChanged(c.isUsingCustomClose())
	}
	if err := c.applyOrientation(); err != nil {
		c.logger.Debug("Failed to apply orientation.", zap.Error(err))
	}
}

// Pause pauses both surfaces.
func (c *Controller) Pause(finishing bool) {
	c.paused = true
	if c.surface != nil {
		c.surface.Pause(finishing)
	}
	if c.twoPartSurface != nil {
		c.twoPartSurface.Pause(finishing)
	}
}

// Resume resumes both surfaces.
func (c *Controller) Resume() {
	c.paused = false
	if c.surface != nil {
		c.surface.Resume()
	}
	if c.twoPartSurface != nil {
		c.twoPartSurface.Resume()
	}
}

// IsPaused reports whether the controller is paused. A new controller starts
// paused.
func (c *Controller) IsPaused() bool { return c.paused }

// Destroy tears the controller down: the pending metrics wait is cancelled,
// the rotation observer unregistered, both surfaces detached and any
// orientation lock released. Teardown always runs to completion; an
// unexpected unregister failure is returned afterwards.
func (c *Controller) Destroy() error {
	c.waiter.CancelLastRequest()

	var err error
	if c.rotation != nil && c.rotationObserver != nil {
		if uerr := c.rotation.Unregister(c.rotationObserver); uerr != nil {
			if errors.Is(uerr, host.ErrNotRegistered) {
				c.logger.Debug("Rotation observer was already unregistered.")
			} else {
				err = fmt.Errorf("unregistering rotation observer: %w", uerr)
			}
		}
		c.rotationObserver = nil
	}

	if !c.paused {
		c.Pause(true)
	}
	c.closeable.RemoveFromParent()

	c.detachPrimary()
	c.detachTwoPart()
	c.unApplyOrientation()
	c.logger.Debug("Controller destroyed.")
	return err
}

func (c *Controller) detachPrimary() {
	c.bridge.Detach()
	c.surface = nil
}

func (c *Controller) detachTwoPart() {
	c.twoPartBridge.Detach()
	c.twoPartSurface = nil
}

// -- Page load --

func (c *Controller) notifySupports(b *Bridge) {
	caps := c.ctx.Capabilities()
	b.NotifySupports(caps.SMS, caps.Tel, caps.Calendar, caps.StorePicture, c.isInlineVideoAvailable())
}

func (c *Controller) handlePageLoad() {
	c.notifySupports(c.bridge)
	c.bridge.NotifyPlacementType(c.placement)
	c.bridge.NotifyViewability(c.bridge.IsViewable())
	c.bridge.NotifyScreenMetrics(c.metrics)
	c.setViewState(ViewStateDefault)
	c.bridge.NotifyReady()
}

func (c *Controller) handleTwoPartPageLoad() {
	c.updateScreenMetricsAsync(func() {
		c.notifySupports(c.twoPartBridge)
		c.twoPartBridge.NotifyViewState(c.state)
		c.twoPartBridge.NotifyPlacementType(c.placement)
		c.twoPartBridge.NotifyViewability(c.twoPartBridge.IsViewable())
		c.twoPartBridge.NotifyReady()
	})
}

// isInlineVideoAvailable is always true for interstitials, which run
// hardware accelerated. Inline ads depend on the host.
func (c *Controller) isInlineVideoAvailable() bool {
	if _, ok := c.activity.Resolve(); !ok || c.CurrentSurface() == nil {
		return false
	}
	if c.placement != PlacementInline {
		return true
	}
	return c.ctx.Capabilities().HardwareAccelerated
}

func (c *Controller) handleConsoleMessage(msg ConsoleMessage) bool {
	if c.debugListener != nil {
		return c.debugListener.OnConsoleMessage(msg)
	}
	return true
}

func (c *Controller) handleJsAlert(message string, result JsResult) bool {
	if c.debugListener != nil {
		return c.debugListener.OnJsAlert(message, result)
	}
	result.Confirm()
	return true
}

// -- State --

// setViewState commits next and notifies both bridges in the same loop turn.
// Metrics follow asynchronously.
func (c *Controller) setViewState(next ViewState) {
	previous := c.state
	c.state = next
	c.logger.Debug("MRAID state set.", zap.Stringer("from", previous), zap.Stringer("to", next))

	c.bridge.NotifyViewState(next)
	if c.twoPartBridge.IsLoaded() {
		c.twoPartBridge.NotifyViewState(next)
	}
	if c.listener != nil {
		notifyTransition(c.listener, previous, next)
	}
	c.updateScreenMetricsAsync(nil)
}

// -- Screen metrics --

// updateScreenMetricsAsync measures after the next layout pass of the default
// container and the current surface, then pushes the result to the attached
// bridges and runs then. Only the latest request completes.
func (c *Controller) updateScreenMetricsAsync(then func()) {
	c.waiter.CancelLastRequest()

	current := c.CurrentSurface()
	if current == nil {
		return
	}

	c.waiter.WaitFor(c.defaultContainer, current).Start(func() {
		dm := c.ctx.DisplayMetrics()
		root := c.getRootView()
		c.metrics = ScreenMetrics{
			Density:   dm.Density,
			Screen:    geometry.NewRect(0, 0, dm.WidthPixels, dm.HeightPixels),
			RootView:  root.Frame(),
			DefaultAd: c.defaultContainer.Frame(),
			CurrentAd: current.Frame(),
		}

		c.bridge.NotifyScreenMetrics(c.metrics)
		if c.twoPartBridge.IsAttached() {
			c.twoPartBridge.NotifyScreenMetrics(c.metrics)
		}
		if then != nil {
			then()
		}
	})
}

func (c *Controller) handleOrientationChange(rotation int) {
	c.logger.Debug("Display rotation changed.", zap.Int("rotation", rotation))
	c.updateScreenMetricsAsync(nil)
}

// rotationObserver remembers the last rotation it acted on and ignores
// broadcasts that do not change it.
type rotationObserver struct {
	c            *Controller
	lastRotation int // -1 until the first broadcast
}

// OnRotationChanged may be called from any goroutine; the work hops onto the
// loop.
func (o *rotationObserver) OnRotationChanged(int) {
	o.c.sched.Post(func() {
		if o.c.rotationObserver != o {
			return
		}
		rotation := o.c.ctx.Rotation()
		if rotation != o.lastRotation {
			o.lastRotation = rotation
			o.c.handleOrientationChange(rotation)
		}
	})
}

// -- Root view --

// getRootView is used for measurement only. It prefers the memoized root,
// then the activity's content root, then the topmost ancestor of the default
// container.
func (c *Controller) getRootView() *view.Group {
	if c.rootView != nil {
		return c.rootView
	}
	if a, ok := c.activity.Resolve(); ok {
		if root := a.RootView(); root != nil {
			return root
		}
	}
	top := c.defaultContainer
	for top.Parent() != nil {
		top = top.Parent()
	}
	return top
}

// getAndMemoizeRootView pins the root the closeable container is added to,
// so later removals target the same group.
func (c *Controller) getAndMemoizeRootView() *view.Group {
	if c.rootView == nil {
		c.rootView = c.getRootView()
	}
	return c.rootView
}
