// Package simulator hosts an ad unit in a simulated device: a display, an
// activity whose window tracks rotation, the controller, and a rendering
// surface. Scenarios drive it step by step and a Transcript records what the
// embedding application would have observed.
package simulator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/mraidhost/internal/config"
	"github.com/xkilldash9x/mraidhost/internal/geometry"
	"github.com/xkilldash9x/mraidhost/internal/host"
	"github.com/xkilldash9x/mraidhost/internal/loop"
	"github.com/xkilldash9x/mraidhost/internal/mraid"
	"github.com/xkilldash9x/mraidhost/internal/surface/scripted"
	"github.com/xkilldash9x/mraidhost/internal/view"
)

// Environment is one hosted ad unit and everything around it. Methods other
// than constructors must run on the scheduler's loop.
type Environment struct {
	cfg    config.Interface
	logger *zap.Logger

	Scheduler  loop.Scheduler
	Device     *host.Device
	Window     *view.Window
	Activity   *host.VirtualActivity
	Handle     *host.Handle
	Controller *mraid.Controller
	Transcript *Transcript

	lastState mraid.ViewState
	destroyed bool
}

// NewEnvironment builds the device, window and activity described by cfg and
// creates a controller that renders through surfaces.
func NewEnvironment(cfg config.Interface, sched loop.Scheduler, surfaces mraid.SurfaceFactory, logger *zap.Logger) (*Environment, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("simulator")

	dev := cfg.Device()
	device := host.NewDevice(logger, host.DisplayMetrics{
		WidthPixels:  dev.WidthPx,
		HeightPixels: dev.HeightPx,
		Density:      geometry.Density(dev.Density),
	}, host.Capabilities{
		SMS:                 dev.Supports.SMS,
		Tel:                 dev.Supports.Tel,
		Calendar:            dev.Supports.Calendar,
		StorePicture:        dev.Supports.StorePicture,
		HardwareAccelerated: dev.HardwareAccelerated,
	})
	if dev.Rotation != 0 {
		if err := device.Rotate(dev.Rotation); err != nil {
			return nil, err
		}
	}

	info, err := activityInfo(cfg.Activity())
	if err != nil {
		return nil, err
	}
	placement, err := mraid.ParsePlacementType(cfg.Ad().Placement)
	if err != nil {
		return nil, err
	}

	e := &Environment{
		cfg:        cfg,
		logger:     logger,
		Scheduler:  sched,
		Device:     device,
		Transcript: NewTranscript(),
		lastState:  mraid.ViewStateLoading,
	}
	e.Window = view.NewWindow(sched, e.windowBounds())
	e.Activity = host.NewVirtualActivity(info, e.Window)
	e.Handle = host.NewHandle(e.Activity)

	controller, err := mraid.New(mraid.Options{
		Context:         device,
		Activity:        e.Handle,
		Placement:       placement,
		Scheduler:       sched,
		Surfaces:        surfaces,
		Rotation:        device,
		Opener:          e.Transcript,
		Video:           e.Transcript,
		CloseRegionDips: cfg.Ad().CloseRegionDips,
		Logger:          logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating controller: %w", err)
	}
	controller.SetListener(e.Transcript)
	controller.SetUseCustomCloseListener(e.Transcript)
	controller.SetDebugListener(e.Transcript)
	e.Controller = controller

	e.placeAdContainer(placement)
	return e, nil
}

func activityInfo(a config.ActivityConfig) (host.ActivityInfo, error) {
	info := host.ActivityInfo{}
	if a.ScreenOrientation != "" {
		o, err := host.ParseScreenOrientation(a.ScreenOrientation)
		if err != nil {
			return info, err
		}
		info.ScreenOrientation = o
	}
	if a.HandlesOrientation {
		info.ConfigChanges |= host.ConfigOrientation
	}
	if a.HandlesScreenSize {
		info.ConfigChanges |= host.ConfigScreenSize
	}
	return info, nil
}

// windowBounds is the display below the status bar.
func (e *Environment) windowBounds() geometry.Rect {
	m := e.Device.DisplayMetrics()
	statusBar := e.cfg.Device().StatusBarPx
	return geometry.NewRect(0, statusBar, m.WidthPixels, m.HeightPixels-statusBar)
}

// placeAdContainer embeds the default container: interstitials fill the
// window, inline ads occupy the configured slot.
func (e *Environment) placeAdContainer(placement mraid.PlacementType) {
	container := e.Controller.AdContainer()
	if placement == mraid.PlacementInterstitial {
		e.Window.Root().AddView(container, view.MatchParentParams())
		return
	}
	slot := e.cfg.Ad().Slot
	d := e.Device.DisplayMetrics().Density
	frame := geometry.NewRect(
		d.DipsToPixels(slot.X),
		d.DipsToPixels(slot.Y),
		d.DipsToPixels(slot.Width),
		d.DipsToPixels(slot.Height),
	)
	e.Window.Root().AddView(container, view.FrameParams(frame))
}

// Load fills the controller with markup and shows the ad.
func (e *Environment) Load(markup string) error {
	e.Transcript.Record(KindHost, "load", fmt.Sprintf("%d bytes", len(markup)))
	if err := e.Controller.FillContent(markup, nil); err != nil {
		return err
	}
	e.Controller.OnShow(e.Handle)
	e.Controller.Resume()
	return nil
}

// LoadCreative reads a creative from a path or URL and loads it.
func (e *Environment) LoadCreative(ctx context.Context, location string, fetcher scripted.Fetcher) error {
	if fetcher == nil {
		fetcher = scripted.DefaultFetcher()
	}
	markup, err := fetcher.Fetch(ctx, location)
	if err != nil {
		return fmt.Errorf("reading creative %s: %w", location, err)
	}
	return e.Load(markup)
}

// Rotate turns the display and resizes the window to match.
func (e *Environment) Rotate(rotation int) error {
	if err := e.Device.Rotate(rotation); err != nil {
		return err
	}
	e.Window.SetBounds(e.windowBounds())
	e.Transcript.Record(KindHost, "rotate", fmt.Sprintf("%d -> %s", rotation, host.CurrentOrientation(e.Device)))
	return nil
}

// Tap delivers a tap at screen coordinates in dips. Only the close region
// reacts; other taps land on the creative.
func (e *Environment) Tap(xDips, yDips int) bool {
	d := e.Device.DisplayMetrics().Density
	hit := e.Controller.CloseableContainer().Tap(d.DipsToPixels(xDips), d.DipsToPixels(yDips))
	e.Transcript.Record(KindHost, "tap", fmt.Sprintf("(%d,%d) close=%t", xDips, yDips, hit))
	return hit
}

// TapClose taps the center of the close region.
func (e *Environment) TapClose() bool {
	region := e.Controller.CloseableContainer().CloseRegion()
	hit := e.Controller.CloseableContainer().Tap(region.X+region.Width/2, region.Y+region.Height/2)
	e.Transcript.Record(KindHost, "tap_close", fmt.Sprintf("close=%t", hit))
	return hit
}

// Back emulates the system back button: a visible closeable container
// closes, otherwise nothing happens.
func (e *Environment) Back() {
	handled := e.Controller.CloseableContainer().IsShown()
	if handled {
		e.Controller.Close()
	}
	e.Transcript.Record(KindHost, "back", fmt.Sprintf("handled=%t", handled))
}

// Eval runs js in a surface: "primary", "two_part", or "" for the surface
// currently receiving commands.
func (e *Environment) Eval(surface, js string) error {
	var s mraid.Surface
	switch strings.ToLower(surface) {
	case "", "current":
		s = e.Controller.CurrentSurface()
	case "primary":
		s = e.Controller.PrimarySurface()
	case "two_part", "two-part":
		s = e.Controller.TwoPartSurface()
	default:
		return fmt.Errorf("unknown surface %q", surface)
	}
	if s == nil {
		return fmt.Errorf("no %s surface", defaultString(surface, "current"))
	}
	s.InjectJavaScript(js)
	return nil
}

// Pause and Resume forward the host lifecycle.
func (e *Environment) Pause(finishing bool) {
	e.Controller.Pause(finishing)
	e.Transcript.Record(KindHost, "pause", fmt.Sprintf("finishing=%t", finishing))
}

func (e *Environment) Resume() {
	e.Controller.Resume()
	e.Transcript.Record(KindHost, "resume", "")
}

// Destroy tears the controller down and releases the activity. Later calls
// do nothing.
func (e *Environment) Destroy() error {
	if e.destroyed {
		return nil
	}
	e.destroyed = true
	err := e.Controller.Destroy()
	e.Handle.Release()
	e.Transcript.Record(KindHost, "destroy", "")
	return err
}

// SyncState records a state entry if the view state moved since the last
// call. Scenarios call it after every step.
func (e *Environment) SyncState() {
	state := e.Controller.ViewState()
	if state == e.lastState {
		return
	}
	e.Transcript.Record(KindState, state.String(), "from "+e.lastState.String())
	e.lastState = state
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
