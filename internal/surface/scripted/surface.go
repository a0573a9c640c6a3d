// internal/surface/scripted/surface.go
//
// Package scripted is a headless rendering surface. Creative markup is parsed
// with htmlquery, the inline scripts run in a goja runtime owned by the
// surface, and the small set of browser globals an MRAID creative needs
// (window, console, alert, timers, location) is provided natively. There is
// no DOM rendering; geometry comes from the view tree the surface lives in.
package scripted

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/mraidhost/internal/geometry"
	"github.com/xkilldash9x/mraidhost/internal/host"
	"github.com/xkilldash9x/mraidhost/internal/loop"
	"github.com/xkilldash9x/mraidhost/internal/mraid"
	"github.com/xkilldash9x/mraidhost/internal/mraid/mraidjs"
	"github.com/xkilldash9x/mraidhost/internal/view"
)

var (
	// ErrDestroyed is returned by content operations after Destroy.
	ErrDestroyed = errors.New("scripted: surface destroyed")
	// ErrScriptTimeout interrupts a script that runs longer than the
	// configured timeout.
	ErrScriptTimeout = errors.New("scripted: script timed out")
)

// DefaultScriptTimeout bounds a single script or callback.
const DefaultScriptTimeout = 5 * time.Second

// Options tune a surface.
type Options struct {
	// ScriptTimeout bounds every script evaluation. Zero means
	// DefaultScriptTimeout.
	ScriptTimeout time.Duration
	// Fetcher loads LoadURL documents and external <script src> references.
	// Nil means DefaultFetcher.
	Fetcher Fetcher
}

// Surface implements mraid.Surface on a goja runtime. Every method must be
// called on the loop the surface was created with.
type Surface struct {
	view.Node

	id      string
	ctx     host.Context
	sched   loop.Scheduler
	logger  *zap.Logger
	timeout time.Duration
	fetcher Fetcher

	client mraid.SurfaceClient
	vm     *goja.Runtime
	url    string
	// loadGen retires callbacks that belong to a previous page.
	loadGen uint64

	timers      map[int64]func()
	nextTimerID int64
	paused      bool
	deferred    []func()
	destroyed   bool
}

var _ mraid.Surface = (*Surface)(nil)

// New creates a blank surface. It has no runtime until the first load.
func New(ctx host.Context, sched loop.Scheduler, logger *zap.Logger, opts Options) *Surface {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ScriptTimeout <= 0 {
		opts.ScriptTimeout = DefaultScriptTimeout
	}
	if opts.Fetcher == nil {
		opts.Fetcher = DefaultFetcher()
	}
	id := uuid.NewString()
	s := &Surface{
		id:      id,
		ctx:     ctx,
		sched:   sched,
		logger:  logger.Named("scripted_surface").With(zap.String("surface_id", id)),
		timeout: opts.ScriptTimeout,
		fetcher: opts.Fetcher,
		timers:  make(map[int64]func()),
		url:     "about:blank",
	}
	s.OnShownChange(s.onShownChange)
	return s
}

// ID implements mraid.Surface.
func (s *Surface) ID() string { return s.id }

// URL returns the address of the current page. Markup loaded with LoadHTML
// reports about:blank.
func (s *Surface) URL() string { return s.url }

// SetClient implements mraid.Surface.
func (s *Surface) SetClient(c mraid.SurfaceClient) { s.client = c }

// IsViewable implements mraid.Surface.
func (s *Surface) IsViewable() bool { return !s.destroyed && s.IsShown() }

func (s *Surface) onShownChange(shown bool) {
	if s.client != nil && !s.destroyed {
		s.client.OnVisibilityChanged(shown)
	}
}

// -- Loading --

// LoadHTML implements mraid.Surface. The page runs on a later loop turn.
func (s *Surface) LoadHTML(markup string) error {
	if s.destroyed {
		return ErrDestroyed
	}
	gen := s.beginLoad()
	p, err := parsePage(markup)
	if err != nil {
		return fmt.Errorf("parsing creative markup: %w", err)
	}
	if len(p.external()) > 0 {
		loop.Go(s.sched, func() { s.prepareAndRun(gen, "about:blank", p) })
		return nil
	}
	s.sched.Post(func() { s.runPage(gen, "about:blank", p) })
	return nil
}

// LoadURL implements mraid.Surface. The document is fetched off the loop and
// run on it once it arrives. On a Queue the fetch holds the queue, so a drain
// does not finish before the page has run.
func (s *Surface) LoadURL(rawURL string) error {
	if s.destroyed {
		return ErrDestroyed
	}
	gen := s.beginLoad()
	loop.Go(s.sched, func() {
		markup, err := s.fetcher.Fetch(context.Background(), rawURL)
		if err != nil {
			s.sched.Post(func() { s.failLoad(gen, fmt.Errorf("fetching %s: %w", rawURL, err)) })
			return
		}
		p, err := parsePage(markup)
		if err != nil {
			s.sched.Post(func() { s.failLoad(gen, fmt.Errorf("parsing %s: %w", rawURL, err)) })
			return
		}
		s.prepareAndRun(gen, rawURL, p)
	})
	return nil
}

// beginLoad retires the current page: its timers are cancelled and any
// callback it scheduled is ignored.
func (s *Surface) beginLoad() uint64 {
	s.loadGen++
	s.cancelTimers()
	s.deferred = nil
	return s.loadGen
}

// prepareAndRun fetches external scripts, then posts the page run. It runs
// off the loop.
func (s *Surface) prepareAndRun(gen uint64, base string, p *page) {
	for _, sc := range p.external() {
		src, err := s.fetcher.Fetch(context.Background(), resolveRef(base, sc.src))
		if err != nil {
			sc.err = err
			continue
		}
		sc.body = src
	}
	s.sched.Post(func() { s.runPage(gen, base, p) })
}

func (s *Surface) current(gen uint64) bool {
	return !s.destroyed && gen == s.loadGen
}

func (s *Surface) failLoad(gen uint64, err error) {
	if !s.current(gen) {
		return
	}
	s.logger.Warn("Page failed to load.", zap.Error(err))
	if s.client != nil {
		s.client.OnPageFailed(err)
	}
}

func (s *Surface) runPage(gen uint64, pageURL string, p *page) {
	if !s.current(gen) {
		return
	}
	s.url = pageURL
	s.vm = s.newRuntime(gen)
	s.runScript("mraid.js", mraidjs.Source)

	for i, sc := range p.scripts {
		if !s.current(gen) {
			return
		}
		if sc.builtin {
			continue
		}
		name := sc.name(i)
		if sc.err != nil {
			s.reportConsole("error", fmt.Sprintf("Failed to load resource: %s", sc.src), name, 0)
			continue
		}
		s.runScript(name, sc.body)
	}

	if s.current(gen) && s.client != nil {
		s.logger.Debug("Page finished.",
			zap.String("url", pageURL),
			zap.String("title", p.title()),
			zap.Int("scripts", len(p.scripts)))
		s.client.OnPageFinished()
	}
}

// InjectJavaScript implements mraid.Surface. It evaluates synchronously;
// errors go to the page console.
func (s *Surface) InjectJavaScript(js string) {
	if s.destroyed || s.vm == nil {
		return
	}
	s.runScript("injected", js)
}

// Evaluate runs js in the current page and exports its result.
func (s *Surface) Evaluate(js string) (any, error) {
	if s.destroyed {
		return nil, ErrDestroyed
	}
	if s.vm == nil {
		return nil, errors.New("scripted: no page loaded")
	}
	v, err := s.guard(s.vm, func(vm *goja.Runtime) (goja.Value, error) {
		return vm.RunString(js)
	})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	return v.Export(), nil
}

// -- Lifecycle --

// Pause implements mraid.Surface. Timers that come due while paused run on
// Resume; a finishing pause drops them.
func (s *Surface) Pause(finishing bool) {
	s.paused = true
	if finishing {
		s.cancelTimers()
		s.deferred = nil
	}
}

// Resume implements mraid.Surface.
func (s *Surface) Resume() {
	s.paused = false
	deferred := s.deferred
	s.deferred = nil
	for _, fn := range deferred {
		s.sched.Post(fn)
	}
}

// Destroy implements mraid.Surface.
func (s *Surface) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.loadGen++
	s.cancelTimers()
	s.deferred = nil
	s.client = nil
	s.vm = nil
	s.OnShownChange(nil)
	s.RemoveFromParent()
	s.logger.Debug("Surface destroyed.")
}

func (s *Surface) cancelTimers() {
	for id, cancel := range s.timers {
		cancel()
		delete(s.timers, id)
	}
}

// -- Script execution --

// guard runs fn on vm with the script timeout armed.
func (s *Surface) guard(vm *goja.Runtime, fn func(*goja.Runtime) (goja.Value, error)) (goja.Value, error) {
	timer := time.AfterFunc(s.timeout, func() { vm.Interrupt(ErrScriptTimeout) })
	v, err := fn(vm)
	timer.Stop()
	vm.ClearInterrupt()
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("javascript execution interrupted: %w", ErrScriptTimeout)
		}
		var ex *goja.Exception
		if errors.As(err, &ex) {
			return nil, fmt.Errorf("javascript exception: %s", ex.Error())
		}
		return nil, fmt.Errorf("javascript error: %w", err)
	}
	return v, nil
}

func (s *Surface) runScript(name, src string) {
	if s.vm == nil {
		return
	}
	if _, err := s.guard(s.vm, func(vm *goja.Runtime) (goja.Value, error) {
		return vm.RunScript(name, src)
	}); err != nil {
		s.reportConsole("error", "Uncaught "+strings.TrimPrefix(err.Error(), "javascript exception: "), name, 0)
	}
}

func (s *Surface) invoke(fn goja.Callable, args []goja.Value) {
	if s.vm == nil {
		return
	}
	if _, err := s.guard(s.vm, func(*goja.Runtime) (goja.Value, error) {
		return fn(goja.Undefined(), args...)
	}); err != nil {
		s.reportConsole("error", "Uncaught "+strings.TrimPrefix(err.Error(), "javascript exception: "), "timer", 0)
	}
}

func (s *Surface) reportConsole(level, message, source string, line int) {
	msg := mraid.ConsoleMessage{Level: level, Message: message, Source: source, Line: line}
	if s.client != nil && s.client.OnConsoleMessage(msg) {
		return
	}
	lvl := zap.InfoLevel
	switch level {
	case "error":
		lvl = zap.ErrorLevel
	case "warn":
		lvl = zap.WarnLevel
	case "debug":
		lvl = zap.DebugLevel
	}
	s.logger.Log(lvl, "[JS Console]", zap.String("message", message), zap.String("source", source))
}

// navigate offers url to the client on a later turn. Unconsumed http(s)
// navigations load the page into this surface.
func (s *Surface) navigate(gen uint64, target string) {
	s.sched.Post(func() {
		if !s.current(gen) {
			return
		}
		if s.client != nil && s.client.OnNavigate(target) {
			return
		}
		if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
			if err := s.LoadURL(target); err != nil {
				s.logger.Debug("Navigation dropped.", zap.String("url", target), zap.Error(err))
			}
		}
	})
}

// frameDips is the surface's current frame in density-independent pixels.
func (s *Surface) frameDips() geometry.Rect {
	d := geometry.DefaultDensity
	if s.ctx != nil {
		d = s.ctx.DisplayMetrics().Density
	}
	return d.RectToDips(s.Frame())
}

// -- Factory --

// Factory creates scripted surfaces for a controller.
type Factory struct {
	sched  loop.Scheduler
	logger *zap.Logger
	opts   Options

	created []*Surface
}

var _ mraid.SurfaceFactory = (*Factory)(nil)

// NewFactory returns a factory whose surfaces run on sched.
func NewFactory(sched loop.Scheduler, logger *zap.Logger, opts Options) *Factory {
	return &Factory{sched: sched, logger: logger, opts: opts}
}

// NewSurface implements mraid.SurfaceFactory.
func (f *Factory) NewSurface(ctx host.Context) (mraid.Surface, error) {
	s := New(ctx, f.sched, f.logger, f.opts)
	f.created = append(f.created, s)
	return s, nil
}

// Surfaces returns every surface the factory has created, oldest first.
func (f *Factory) Surfaces() []*Surface {
	out := make([]*Surface, len(f.created))
	copy(out, f.created)
	return out
}
