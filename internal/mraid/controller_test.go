package mraid

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/mraidhost/internal/geometry"
	"github.com/xkilldash9x/mraidhost/internal/host"
	"github.com/xkilldash9x/mraidhost/internal/view"
)

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestPageLoadSequence(t *testing.T) {
	h := newHarness(t, harnessConfig{caps: host.Capabilities{Tel: true, HardwareAccelerated: true}})
	s := h.load()

	assert.Equal(t, ViewStateDefault, h.c.ViewState())
	assert.Equal(t, []string{"loaded"}, h.listener.events)
	assert.Equal(t, "<html><body>ad</body></html>", s.html)
	assert.Same(t, h.c.AdContainer(), s.Parent())

	require.NotEmpty(t, s.injected)
	assert.Equal(t, `window.mraidbridge.setSupports(false,true,false,false,true)`, s.injected[0])
	assert.Equal(t, []string{`window.mraidbridge.setPlacementType("inline")`}, s.calls("setPlacementType"))
	assert.Equal(t, []string{`window.mraidbridge.setState("default")`}, s.calls("setState"))
	assert.Len(t, s.calls("notifyReadyEvent"), 1)

	want := ScreenMetrics{
		Density:   1,
		Screen:    geometry.NewRect(0, 0, 1080, 1920),
		RootView:  geometry.NewRect(0, 0, 1080, 1920),
		DefaultAd: geometry.NewRect(0, 0, 1080, 1920),
		CurrentAd: geometry.NewRect(0, 0, 1080, 1920),
	}
	if diff := cmp.Diff(want, h.c.ScreenMetrics()); diff != "" {
		t.Errorf("screen metrics mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, s.calls("setMaxSize"), `window.mraidbridge.setMaxSize(1080,1920)`)
}

func TestPreloadFinishedRunsPageLoadImmediately(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	s := &fakeSurface{id: "preloaded"}
	h.c.OnPreloadFinished(s)

	assert.Equal(t, ViewStateDefault, h.c.ViewState())
	assert.Same(t, h.c.AdContainer(), s.Parent())
	assert.Empty(t, h.listener.events, "preloaded content is not reported as a fresh load")
	assert.Len(t, s.calls("notifyReadyEvent"), 1)
}

func TestTransitionEvents(t *testing.T) {
	tests := []struct {
		name     string
		previous ViewState
		next     ViewState
		method   string
		args     []interface{}
	}{
		{"default to expanded", ViewStateDefault, ViewStateExpanded, "OnExpand", nil},
		{"resized to expanded", ViewStateResized, ViewStateExpanded, "OnExpand", nil},
		{"expanded to default", ViewStateExpanded, ViewStateDefault, "OnClose", nil},
		{"default to hidden", ViewStateDefault, ViewStateHidden, "OnClose", nil},
		{"resized to default", ViewStateResized, ViewStateDefault, "OnResize", []interface{}{true}},
		{"default to resized", ViewStateDefault, ViewStateResized, "OnResize", []interface{}{false}},
		{"resized to resized", ViewStateResized, ViewStateResized, "OnResize", []interface{}{false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockListener{}
			m.On(tt.method, tt.args...).Return().Once()
			notifyTransition(m, tt.previous, tt.next)
			m.AssertExpectations(t)
			assert.Len(t, m.Calls, 1)
		})
	}

	t.Run("loading to default fires nothing", func(t *testing.T) {
		m := &mockListener{}
		notifyTransition(m, ViewStateLoading, ViewStateDefault)
		assert.Empty(t, m.Calls)
	})
}

// -- Resize --

func TestResizeFromDefault(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	s := h.load()
	h.listener.reset()

	err := h.c.Resize(ResizeParams{Width: 300, Height: 250, ClosePosition: geometry.TopRight})
	require.NoError(t, err)
	h.idle()

	assert.Equal(t, ViewStateResized, h.c.ViewState())
	assert.Equal(t, []string{"resize(false)"}, h.listener.events)

	cc := h.c.CloseableContainer()
	assert.Same(t, &cc.Group, s.Parent())
	assert.Same(t, h.window.Root(), cc.Parent())
	assert.Equal(t, geometry.NewRect(0, 0, 300, 250), cc.Frame())
	assert.Equal(t, geometry.NewRect(0, 0, 300, 250), h.c.ScreenMetrics().CurrentAd)
	assert.Equal(t, geometry.NewRect(250, 0, 50, 50), cc.CloseRegion())
	assert.False(t, cc.IsCloseVisible(), "resized ads rely on the creative's close button")
	assert.Equal(t, view.Invisible, h.c.AdContainer().Visibility())
}

func TestResizeClampsOnScreen(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	h.load()

	err := h.c.Resize(ResizeParams{Width: 300, Height: 250, OffsetX: 900, OffsetY: 1800, ClosePosition: geometry.TopRight})
	require.NoError(t, err)
	h.idle()

	frame := h.c.CloseableContainer().Frame()
	assert.Equal(t, geometry.NewRect(780, 1670, 300, 250), frame)
	assert.True(t, h.window.Bounds().Contains(frame))
}

func TestResizeAgainOnlyMovesContainer(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	h.load()
	require.NoError(t, h.c.Resize(ResizeParams{Width: 300, Height: 250, ClosePosition: geometry.TopRight}))
	h.idle()
	h.listener.reset()

	require.NoError(t, h.c.Resize(ResizeParams{Width: 320, Height: 480, OffsetX: 10, OffsetY: 20, ClosePosition: geometry.BottomLeft, AllowOffscreen: true}))
	h.idle()

	cc := h.c.CloseableContainer()
	assert.Equal(t, geometry.NewRect(10, 20, 320, 480), cc.Frame())
	assert.Equal(t, geometry.BottomLeft, cc.ClosePosition())
	assert.Equal(t, []string{"resize(false)"}, h.listener.events)
}

func TestResizeRejectsInvalidGeometry(t *testing.T) {
	tests := []struct {
		name    string
		params  ResizeParams
		message string
	}{
		{
			name:    "larger than the root view",
			params:  ResizeParams{Width: 1200, Height: 250, ClosePosition: geometry.TopRight},
			message: "resizeProperties specified a size (1200, 250) and offset (0, 0) that doesn't allow the ad to appear within the max allowed size (1080, 1920)",
		},
		{
			name:    "close region off screen",
			params:  ResizeParams{Width: 300, Height: 250, OffsetX: -100, ClosePosition: geometry.TopLeft, AllowOffscreen: true},
			message: "that doesn't allow the close region to appear within the max allowed size (1080, 1920)",
		},
		{
			name:    "close region outside the ad",
			params:  ResizeParams{Width: 40, Height: 40, OffsetX: 100, OffsetY: 100, ClosePosition: geometry.TopRight, AllowOffscreen: true},
			message: "within the resized ad",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, harnessConfig{})
			s := h.load()
			h.listener.reset()

			err := h.c.Resize(tt.params)
			require.Error(t, err)
			assert.True(t, IsCommandError(err))
			assert.Contains(t, err.Error(), tt.message)

			h.idle()
			assert.Equal(t, ViewStateDefault, h.c.ViewState())
			assert.Same(t, h.c.AdContainer(), s.Parent(), "validation happens before any mutation")
			assert.Nil(t, h.c.CloseableContainer().Parent())
			assert.Equal(t, view.Visible, h.c.AdContainer().Visibility())
			assert.Empty(t, h.listener.events)
		})
	}
}

func TestResizeIgnoredWhileLoadingOrHidden(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	require.NoError(t, h.c.FillContent("<html></html>", nil))

	assert.NoError(t, h.c.Resize(ResizeParams{Width: 300, Height: 250}))
	assert.Equal(t, ViewStateLoading, h.c.ViewState())

	h.primary().client.OnPageFinished()
	h.idle()
	h.c.Close()
	require.Equal(t, ViewStateHidden, h.c.ViewState())

	assert.NoError(t, h.c.Resize(ResizeParams{Width: 300, Height: 250}))
	assert.Equal(t, ViewStateHidden, h.c.ViewState())
}

func TestResizeIllegalFromExpandedAndInterstitial(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	h.load()
	require.NoError(t, h.c.Expand(ExpandParams{}))

	err := h.c.Resize(ResizeParams{Width: 300, Height: 250})
	assert.True(t, IsCommandError(err))
	assert.Equal(t, ViewStateExpanded, h.c.ViewState())

	hi := newHarness(t, harnessConfig{placement: PlacementInterstitial})
	hi.load()
	err = hi.c.Resize(ResizeParams{Width: 300, Height: 250})
	assert.True(t, IsCommandError(err))
	assert.Contains(t, err.Error(), "interstitial")
}

func TestCommandsAfterDestroy(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	h.load()
	require.NoError(t, h.c.Destroy())

	err := h.c.Resize(ResizeParams{Width: 300, Height: 250})
	assert.ErrorIs(t, err, ErrSurfaceDestroyed)
	err = h.c.Expand(ExpandParams{})
	assert.ErrorIs(t, err, ErrSurfaceDestroyed)
	h.c.Close()
}

// -- Expand --

func TestExpandWithCustomClose(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	s := h.load()
	h.listener.reset()

	require.NoError(t, h.c.Expand(ExpandParams{UseCustomClose: true}))
	h.idle()

	cc := h.c.CloseableContainer()
	assert.Equal(t, ViewStateExpanded, h.c.ViewState())
	assert.Equal(t, []string{"expand"}, h.listener.events)
	assert.False(t, cc.IsCloseVisible())
	assert.Equal(t, []bool{true}, h.customClose.values)
	assert.Len(t, h.factory.created, 1, "no two-part surface")
	assert.Nil(t, h.c.TwoPartSurface())
	assert.Same(t, &cc.Group, s.Parent())
	assert.Equal(t, h.window.Bounds(), cc.Frame())
	assert.Equal(t, view.Invisible, h.c.AdContainer().Visibility())
}

func TestExpandIgnored(t *testing.T) {
	hi := newHarness(t, harnessConfig{placement: PlacementInterstitial})
	hi.load()
	assert.NoError(t, hi.c.Expand(ExpandParams{}))
	assert.Equal(t, ViewStateDefault, hi.c.ViewState())

	h := newHarness(t, harnessConfig{})
	require.NoError(t, h.c.FillContent("<html></html>", nil))
	assert.NoError(t, h.c.Expand(ExpandParams{}))
	assert.Equal(t, ViewStateLoading, h.c.ViewState())
}

func TestExpandFromResized(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	s := h.load()
	require.NoError(t, h.c.Resize(ResizeParams{Width: 300, Height: 250, ClosePosition: geometry.TopRight}))
	h.idle()

	require.NoError(t, h.c.Expand(ExpandParams{}))
	h.idle()

	cc := h.c.CloseableContainer()
	assert.Equal(t, ViewStateExpanded, h.c.ViewState())
	assert.Same(t, &cc.Group, s.Parent())
	assert.Equal(t, h.window.Bounds(), cc.Frame())
	assert.True(t, cc.IsCloseVisible(), "expanding without custom close restores the host close button")
}

func TestTwoPartExpandAndClose(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	primary := h.load()

	require.NoError(t, h.c.Expand(ExpandParams{URL: "https://ads.example.com/part2.html"}))
	require.Len(t, h.factory.created, 2)
	twoPart := h.factory.created[1]

	assert.Equal(t, "https://ads.example.com/part2.html", twoPart.url)
	assert.True(t, h.c.TwoPartBridge().IsAttached())
	assert.Same(t, twoPart, h.c.CurrentSurface())
	assert.Same(t, h.c.AdContainer(), primary.Parent(), "primary stays in place")
	assert.Same(t, &h.c.CloseableContainer().Group, twoPart.Parent())

	h.idle()
	assert.Empty(t, twoPart.calls("setState"), "the two-part bridge is not notified before it loads")

	twoPart.client.OnPageFinished()
	h.idle()
	assert.Equal(t, []string{`window.mraidbridge.setState("expanded")`}, twoPart.calls("setState"))
	assert.Len(t, twoPart.calls("notifyReadyEvent"), 1)
	assert.NotEmpty(t, twoPart.calls("setScreenSize"))

	h.listener.reset()
	h.c.Close()
	h.idle()

	assert.Equal(t, ViewStateDefault, h.c.ViewState())
	assert.True(t, twoPart.destroyed)
	assert.False(t, h.c.TwoPartBridge().IsAttached())
	assert.Nil(t, h.c.CloseableContainer().Parent())
	assert.Same(t, h.c.AdContainer(), primary.Parent())
	assert.False(t, primary.destroyed)
	assert.Equal(t, []string{"close"}, h.listener.events)
}

func TestTwoPartReadyIsDroppedWhenMetricsRefreshIsSuperseded(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	h.load()
	require.NoError(t, h.c.Expand(ExpandParams{URL: "https://ads.example.com/part2.html"}))
	h.idle()
	twoPart := h.factory.created[1]
	twoPart.injected = nil

	// A rotation lands after the page finishes but before the layout pass
	// that would have delivered ready.
	twoPart.client.OnPageFinished()
	h.c.handleOrientationChange(1)
	h.idle()

	assert.Empty(t, twoPart.calls("notifyReadyEvent"), "only the latest metrics request completes")
	assert.Empty(t, twoPart.calls("setState"))
	assert.NotEmpty(t, twoPart.calls("setScreenSize"), "the superseding request still refreshes metrics")
	assert.Equal(t, ViewStateExpanded, h.c.ViewState())
}

func TestTwoPartExpandFromResizedRestoresDefaultContainer(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	primary := h.load()
	require.NoError(t, h.c.Resize(ResizeParams{Width: 300, Height: 250, ClosePosition: geometry.TopRight}))
	h.idle()

	require.NoError(t, h.c.Expand(ExpandParams{URL: "https://ads.example.com/part2.html"}))
	h.idle()
	assert.Same(t, h.c.AdContainer(), primary.Parent())
	assert.Equal(t, view.Invisible, h.c.AdContainer().Visibility())

	h.c.Close()
	h.idle()
	assert.Equal(t, view.Visible, h.c.AdContainer().Visibility())
	assert.True(t, primary.IsShown())
}

func TestTwoPartSurfaceFactoryFailure(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	h.load()
	h.factory.err = errors.New("out of renderers")

	err := h.c.Expand(ExpandParams{URL: "https://ads.example.com/part2.html"})
	require.Error(t, err)
	assert.True(t, IsCommandError(err))
	assert.Equal(t, ViewStateDefault, h.c.ViewState())
	assert.Empty(t, h.activity.OrientationHistory())
}

func TestTwoPartBridgeOverrides(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	primary := h.load()
	require.NoError(t, h.c.Expand(ExpandParams{URL: "https://ads.example.com/part2.html"}))
	twoPart := h.factory.created[1]
	twoPart.client.OnPageFinished()
	h.idle()
	h.listener.reset()

	// Resize from the two-part surface is an error reported to that surface.
	assert.True(t, twoPart.client.OnNavigate("mraid://resize?width=300&height=250&offsetX=0&offsetY=0"))
	assert.Equal(t,
		[]string{`window.mraidbridge.notifyErrorEvent("Not allowed to resize from an expanded state","resize")`},
		twoPart.calls("notifyErrorEvent"))
	assert.Equal(t, []string{`window.mraidbridge.nativeCallComplete("resize")`}, twoPart.calls("nativeCallComplete"))

	// Expand from the two-part surface is silently ignored.
	assert.True(t, twoPart.client.OnNavigate("mraid://expand"))
	assert.Len(t, twoPart.calls("notifyErrorEvent"), 1)
	assert.Len(t, h.factory.created, 2)

	// Failed loads of the two-part surface never reach the listener.
	twoPart.client.OnPageFailed(errors.New("net::ERR_FAILED"))
	assert.Empty(t, h.listener.events)

	// While the two-part surface is attached it drives viewability for both.
	primary.injected = nil
	primary.client.OnVisibilityChanged(false)
	assert.Empty(t, primary.calls("setIsViewable"))
	twoPart.client.OnVisibilityChanged(true)
	assert.Equal(t, []string{`window.mraidbridge.setIsViewable(true)`}, primary.calls("setIsViewable"))
	assert.Contains(t, twoPart.calls("setIsViewable"), `window.mraidbridge.setIsViewable(true)`)

	// Close from the two-part surface closes the expanded ad.
	assert.True(t, twoPart.client.OnNavigate("mraid://close"))
	assert.Equal(t, ViewStateDefault, h.c.ViewState())
}

// -- Close --

func TestCloseFromExpanded(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	s := h.load()
	require.NoError(t, h.c.Expand(ExpandParams{}))
	h.idle()
	h.listener.reset()

	h.c.Close()
	h.idle()

	assert.Equal(t, ViewStateDefault, h.c.ViewState())
	assert.Same(t, h.c.AdContainer(), s.Parent())
	assert.Equal(t, view.Visible, h.c.AdContainer().Visibility())
	assert.Nil(t, h.c.CloseableContainer().Parent())
	assert.True(t, s.IsShown())
	assert.Equal(t, []string{"close"}, h.listener.events)
}

func TestCloseFromResizedAndDefault(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	s := h.load()
	require.NoError(t, h.c.Resize(ResizeParams{Width: 300, Height: 250, ClosePosition: geometry.TopRight}))
	h.idle()
	h.listener.reset()

	h.c.Close()
	h.idle()
	assert.Equal(t, ViewStateDefault, h.c.ViewState())
	assert.Equal(t, geometry.NewRect(0, 0, 1080, 1920), s.Frame())
	assert.Equal(t, []string{"resize(true)"}, h.listener.events)

	h.listener.reset()
	h.c.Close()
	h.idle()
	assert.Equal(t, ViewStateHidden, h.c.ViewState())
	assert.Equal(t, view.Invisible, h.c.AdContainer().Visibility())
	assert.Equal(t, []string{"close"}, h.listener.events)

	h.listener.reset()
	h.c.Close()
	assert.Equal(t, ViewStateHidden, h.c.ViewState())
	assert.Empty(t, h.listener.events)
}

func TestCloseRegionTap(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	h.load()
	require.NoError(t, h.c.Expand(ExpandParams{UseCustomClose: true}))
	h.idle()

	cc := h.c.CloseableContainer()
	assert.False(t, cc.Tap(500, 900))
	assert.Equal(t, ViewStateExpanded, h.c.ViewState())

	assert.True(t, cc.Tap(1060, 10), "the close region stays tappable with a custom close button")
	assert.Equal(t, ViewStateDefault, h.c.ViewState())
}

// -- Custom close --

func TestUseCustomCloseIsIdempotent(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	h.load()

	h.c.UseCustomClose(false)
	assert.Empty(t, h.customClose.values)

	h.c.UseCustomClose(true)
	h.c.UseCustomClose(true)
	assert.Equal(t, []bool{true}, h.customClose.values)
	assert.False(t, h.c.CloseableContainer().IsCloseVisible())

	h.c.UseCustomClose(false)
	assert.Equal(t, []bool{true, false}, h.customClose.values)
}

// -- Metrics --

func TestLatestMetricsRequestWins(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	s := h.load()
	s.injected = nil

	// Expand then close within the same loop turn: only the refresh issued by
	// close completes.
	require.NoError(t, h.c.Expand(ExpandParams{}))
	h.c.Close()
	h.idle()

	assert.Len(t, s.calls("setScreenSize"), 1)
	assert.Equal(t, geometry.NewRect(0, 0, 1080, 1920), h.c.ScreenMetrics().CurrentAd)
}

func TestRotationRefreshesMetricsOnce(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	s := h.load()
	s.injected = nil

	require.NoError(t, h.device.Rotate(1))
	h.window.SetBounds(geometry.NewRect(0, 0, 1920, 1080))
	h.idle()

	assert.Len(t, s.calls("setScreenSize"), 1)
	assert.Equal(t, geometry.NewRect(0, 0, 1920, 1080), h.c.ScreenMetrics().Screen)
	assert.Equal(t, geometry.NewRect(0, 0, 1920, 1080), h.c.ScreenMetrics().RootView)

	require.NoError(t, h.device.Rotate(1))
	h.idle()
	assert.Len(t, s.calls("setScreenSize"), 1, "an unchanged rotation does not refresh")
}

// -- Lifecycle --

func TestPauseResume(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	s := h.load()
	assert.True(t, h.c.IsPaused())

	h.c.Resume()
	assert.False(t, h.c.IsPaused())
	assert.False(t, s.paused)

	h.c.Pause(false)
	assert.True(t, s.paused)
	assert.False(t, s.finishing)
}

func TestDestroy(t *testing.T) {
	h := newHarness(t, harnessConfig{info: host.ActivityInfo{ScreenOrientation: host.OrientationLandscape}})
	s := h.load()
	h.c.Resume()
	require.NoError(t, h.c.SetOrientationProperties(OrientationProperties{ForceOrientation: ForceLandscape}))
	require.NoError(t, h.c.Expand(ExpandParams{}))
	h.idle()

	require.NoError(t, h.c.Destroy())
	assert.True(t, s.destroyed)
	assert.True(t, s.paused)
	assert.True(t, s.finishing)
	assert.Nil(t, h.c.PrimarySurface())
	assert.Nil(t, h.c.CloseableContainer().Parent())
	assert.Equal(t, []host.ScreenOrientation{host.OrientationLandscape, host.OrientationUnspecified}, h.activity.OrientationHistory())

	require.NoError(t, h.device.Rotate(1))
	h.idle()
}

func TestDestroyToleratesUnregisteredObserver(t *testing.T) {
	src := &stubRotationSource{unregisterErr: host.ErrNotRegistered}
	h := newHarness(t, harnessConfig{rotation: src})
	h.load()
	require.Len(t, src.registered, 1)

	assert.NoError(t, h.c.Destroy())
}

func TestDestroyReturnsUnexpectedUnregisterError(t *testing.T) {
	boom := errors.New("receiver table corrupted")
	src := &stubRotationSource{unregisterErr: boom}
	h := newHarness(t, harnessConfig{rotation: src})
	s := h.load()

	err := h.c.Destroy()
	assert.ErrorIs(t, err, boom)
	assert.True(t, s.destroyed, "teardown continues after the error")
}

// -- Open, video and debug --

func TestOpenAndPlayVideo(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	s := h.load()
	h.listener.reset()

	assert.True(t, s.client.OnNavigate("mraid://open?url=https%3A%2F%2Fexample.com%2Flanding"))
	assert.True(t, s.client.OnNavigate("mraid://playVideo?uri=https%3A%2F%2Fcdn.example.com%2Fv.mp4"))
	assert.True(t, s.client.OnNavigate("https://example.com/clicked"))

	assert.Equal(t, []string{"open", "open"}, h.listener.events)
	assert.Equal(t, []string{
		"https://example.com/landing",
		"video:https://cdn.example.com/v.mp4",
		"https://example.com/clicked",
	}, h.opener.urls)
}

type debugRecorder struct {
	console []string
	alerts  []string
}

func (d *debugRecorder) OnConsoleMessage(msg ConsoleMessage) bool {
	d.console = append(d.console, msg.Message)
	return false
}

func (d *debugRecorder) OnJsAlert(message string, result JsResult) bool {
	d.alerts = append(d.alerts, message)
	result.Cancel()
	return true
}

func TestConsoleAndAlerts(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	s := h.load()

	res := &fakeJsResult{}
	assert.True(t, s.client.OnJsAlert("hello", res))
	assert.True(t, res.confirmed, "alerts are confirmed without a debug listener")
	assert.True(t, s.client.OnConsoleMessage(ConsoleMessage{Level: "log", Message: "hi"}))

	dbg := &debugRecorder{}
	h.c.SetDebugListener(dbg)
	res = &fakeJsResult{}
	assert.True(t, s.client.OnJsAlert("again", res))
	assert.True(t, res.cancelled)
	assert.False(t, s.client.OnConsoleMessage(ConsoleMessage{Message: "routed"}))
	assert.Equal(t, []string{"routed"}, dbg.console)
	assert.Equal(t, []string{"again"}, dbg.alerts)
}

func TestFailLoadReportedForInlineOnly(t *testing.T) {
	h := newHarness(t, harnessConfig{})
	require.NoError(t, h.c.FillContent("<html></html>", nil))
	assert.True(t, h.primary().client.OnNavigate("mopub://failLoad"))
	assert.Equal(t, []string{"failed"}, h.listener.events)

	hi := newHarness(t, harnessConfig{placement: PlacementInterstitial})
	require.NoError(t, hi.c.FillContent("<html></html>", nil))
	assert.True(t, hi.primary().client.OnNavigate("mopub://failLoad"))
	assert.Empty(t, hi.listener.events)
}

func TestInlineVideoAvailability(t *testing.T) {
	h := newHarness(t, harnessConfig{caps: host.Capabilities{HardwareAccelerated: false}})
	assert.False(t, h.c.isInlineVideoAvailable(), "no surface yet")
	h.load()
	assert.False(t, h.c.isInlineVideoAvailable())

	hi := newHarness(t, harnessConfig{placement: PlacementInterstitial})
	hi.load()
	assert.True(t, hi.c.isInlineVideoAvailable())

	hi.handle.Release()
	assert.False(t, hi.c.isInlineVideoAvailable())
}
