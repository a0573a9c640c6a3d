package mraid

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/mraidhost/internal/geometry"
	"github.com/xkilldash9x/mraidhost/internal/host"
	"github.com/xkilldash9x/mraidhost/internal/loop"
	"github.com/xkilldash9x/mraidhost/internal/view"
)

// -- Surface fakes --

type fakeSurface struct {
	view.Node
	id        string
	client    SurfaceClient
	html      string
	url       string
	injected  []string
	viewable  bool
	paused    bool
	finishing bool
	destroyed bool
}

var _ Surface = (*fakeSurface)(nil)

func (s *fakeSurface) ID() string                 { return s.id }
func (s *fakeSurface) SetClient(c SurfaceClient)  { s.client = c }
func (s *fakeSurface) LoadHTML(html string) error { s.html = html; return nil }
func (s *fakeSurface) LoadURL(url string) error   { s.url = url; return nil }
func (s *fakeSurface) InjectJavaScript(js string) { s.injected = append(s.injected, js) }
func (s *fakeSurface) IsViewable() bool           { return s.viewable }
func (s *fakeSurface) Resume()                    { s.paused = false }
func (s *fakeSurface) Destroy()                   { s.destroyed = true }
func (s *fakeSurface) Pause(finishing bool)       { s.paused = true; s.finishing = finishing }

// calls returns the injected scripts that invoke mraidbridge.fn.
func (s *fakeSurface) calls(fn string) []string {
	var out []string
	for _, js := range s.injected {
		if strings.HasPrefix(js, "window.mraidbridge."+fn+"(") {
			out = append(out, js)
		}
	}
	return out
}

type fakeFactory struct {
	created []*fakeSurface
	err     error
}

func (f *fakeFactory) NewSurface(host.Context) (Surface, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := &fakeSurface{id: fmt.Sprintf("surface-%d", len(f.created)+1)}
	f.created = append(f.created, s)
	return s, nil
}

type fakeJsResult struct {
	confirmed bool
	cancelled bool
}

func (r *fakeJsResult) Confirm() { r.confirmed = true }
func (r *fakeJsResult) Cancel()  { r.cancelled = true }

// -- Listener fakes --

// recordingListener logs every callback by name.
type recordingListener struct {
	events []string
}

func (l *recordingListener) OnLoaded(view.View) { l.events = append(l.events, "loaded") }
func (l *recordingListener) OnFailedToLoad()    { l.events = append(l.events, "failed") }
func (l *recordingListener) OnExpand()          { l.events = append(l.events, "expand") }
func (l *recordingListener) OnOpen()            { l.events = append(l.events, "open") }
func (l *recordingListener) OnClose()           { l.events = append(l.events, "close") }
func (l *recordingListener) OnResize(toOriginalSize bool) {
	l.events = append(l.events, fmt.Sprintf("resize(%t)", toOriginalSize))
}

func (l *recordingListener) reset() { l.events = nil }

// mockListener is a testify mock of Listener.
type mockListener struct {
	mock.Mock
}

func (m *mockListener) OnLoaded(v view.View)         { m.Called(v) }
func (m *mockListener) OnFailedToLoad()              { m.Called() }
func (m *mockListener) OnExpand()                    { m.Called() }
func (m *mockListener) OnResize(toOriginalSize bool) { m.Called(toOriginalSize) }
func (m *mockListener) OnOpen()                      { m.Called() }
func (m *mockListener) OnClose()                     { m.Called() }

type customCloseRecorder struct {
	values []bool
}

func (r *customCloseRecorder) UseCustomCloseChanged(v bool) { r.values = append(r.values, v) }

type recordingOpener struct {
	urls []string
}

func (o *recordingOpener) OpenURL(url string) error {
	o.urls = append(o.urls, url)
	return nil
}

func (o *recordingOpener) PlayVideo(url string) error {
	o.urls = append(o.urls, "video:"+url)
	return nil
}

type stubRotationSource struct {
	registered    []host.RotationObserver
	unregisterErr error
}

func (s *stubRotationSource) Register(o host.RotationObserver) { s.registered = append(s.registered, o) }
func (s *stubRotationSource) Unregister(host.RotationObserver) error {
	return s.unregisterErr
}

// -- Harness --

type harness struct {
	t           *testing.T
	q           *loop.Queue
	window      *view.Window
	device      *host.Device
	activity    *host.VirtualActivity
	handle      *host.Handle
	factory     *fakeFactory
	listener    *recordingListener
	customClose *customCloseRecorder
	opener      *recordingOpener
	c           *Controller
}

type harnessConfig struct {
	placement PlacementType
	info      host.ActivityInfo
	caps      host.Capabilities
	rotation  host.RotationSource
}

func newHarness(t *testing.T, cfg harnessConfig) *harness {
	t.Helper()
	q := loop.NewQueue()
	logger := zaptest.NewLogger(t)
	device := host.NewDevice(logger, host.DisplayMetrics{WidthPixels: 1080, HeightPixels: 1920, Density: 1}, cfg.caps)
	window := view.NewWindow(q, geometry.NewRect(0, 0, 1080, 1920))
	activity := host.NewVirtualActivity(cfg.info, window)
	handle := host.NewHandle(activity)

	var rotation host.RotationSource = device
	if cfg.rotation != nil {
		rotation = cfg.rotation
	}

	h := &harness{
		t:           t,
		q:           q,
		window:      window,
		device:      device,
		activity:    activity,
		handle:      handle,
		factory:     &fakeFactory{},
		listener:    &recordingListener{},
		customClose: &customCloseRecorder{},
		opener:      &recordingOpener{},
	}

	c, err := New(Options{
		Context:   device,
		Activity:  handle,
		Placement: cfg.placement,
		Scheduler: q,
		Surfaces:  h.factory,
		Rotation:  rotation,
		Opener:    h.opener,
		Video:     h.opener,
		Logger:    logger,
	})
	require.NoError(t, err)
	c.SetListener(h.listener)
	c.SetUseCustomCloseListener(h.customClose)
	h.c = c

	window.Root().AddView(c.AdContainer(), view.MatchParentParams())
	return h
}

// load fills content, finishes the page load and drains the loop.
func (h *harness) load() *fakeSurface {
	h.t.Helper()
	require.NoError(h.t, h.c.FillContent("<html><body>ad</body></html>", nil))
	s := h.primary()
	s.client.OnPageFinished()
	h.idle()
	return s
}

func (h *harness) idle() {
	h.t.Helper()
	require.NoError(h.t, h.q.RunUntilIdle())
}

func (h *harness) primary() *fakeSurface {
	return h.factory.created[0]
}
