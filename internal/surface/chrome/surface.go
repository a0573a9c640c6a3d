// internal/surface/chrome/surface.go
package chrome

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/mraidhost/internal/geometry"
	"github.com/xkilldash9x/mraidhost/internal/host"
	"github.com/xkilldash9x/mraidhost/internal/loop"
	"github.com/xkilldash9x/mraidhost/internal/mraid"
	"github.com/xkilldash9x/mraidhost/internal/mraid/mraidjs"
	"github.com/xkilldash9x/mraidhost/internal/view"
)

// ErrDestroyed is returned by content operations after Destroy.
var ErrDestroyed = errors.New("chrome: surface destroyed")

const (
	// DefaultLoadTimeout bounds a single navigation.
	DefaultLoadTimeout = 30 * time.Second
	// DefaultScriptTimeout bounds a single evaluation in the page.
	DefaultScriptTimeout = 10 * time.Second
)

// openBinding receives window.open targets from the page.
const openBinding = "mraidhostOpen"

const openShim = `(function () {
  var notify = window.` + openBinding + `;
  window.open = function (url) { notify(String(url)); return null; };
})();`

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SurfaceOptions tune a surface.
type SurfaceOptions struct {
	// LoadTimeout bounds each navigation. Zero means DefaultLoadTimeout.
	LoadTimeout time.Duration
	// ScriptTimeout bounds each injected script or evaluation. Zero means
	// DefaultScriptTimeout.
	ScriptTimeout time.Duration
}

// Surface implements mraid.Surface on a browser tab. Every exported method
// must be called on the loop; DevTools traffic runs on a per-surface worker
// goroutine in the order it was requested, and results are posted back to
// the loop.
type Surface struct {
	view.Node

	id            string
	hctx          host.Context
	sched         loop.Scheduler
	logger        *zap.Logger
	loadTimeout   time.Duration
	scriptTimeout time.Duration

	tabCtx context.Context
	cancel context.CancelFunc
	ops    *opQueue
	done   chan struct{}

	// Loop-only state.
	client    mraid.SurfaceClient
	url       string
	loadGen   uint64
	paused    bool
	destroyed bool
}

var _ mraid.Surface = (*Surface)(nil)

// NewSurface opens a tab on b and prepares it for MRAID content.
func NewSurface(b *Browser, hctx host.Context, sched loop.Scheduler, logger *zap.Logger, opts SurfaceOptions) (*Surface, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = DefaultLoadTimeout
	}
	if opts.ScriptTimeout <= 0 {
		opts.ScriptTimeout = DefaultScriptTimeout
	}
	tabCtx, cancel, err := b.newTab()
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	s := &Surface{
		id:            id,
		hctx:          hctx,
		sched:         sched,
		logger:        logger.Named("chrome_surface").With(zap.String("surface_id", id)),
		loadTimeout:   opts.LoadTimeout,
		scriptTimeout: opts.ScriptTimeout,
		tabCtx:        tabCtx,
		cancel:        cancel,
		ops:           newOpQueue(),
		done:          make(chan struct{}),
		url:           "about:blank",
	}
	s.OnShownChange(s.onShownChange)
	s.OnFrameChange(s.onFrameChange)

	chromedp.ListenTarget(tabCtx, s.onTargetEvent)
	go s.work()

	initErr := make(chan error, 1)
	s.ops.put(func(ctx context.Context) {
		initErr <- chromedp.Run(ctx,
			runtime.Enable(),
			page.Enable(),
			runtime.AddBinding(mraidjs.NativeCallFunction),
			runtime.AddBinding(openBinding),
			addScript(openShim),
			addScript(mraidjs.Source),
		)
	})
	if err := <-initErr; err != nil {
		cancel()
		s.ops.close()
		return nil, fmt.Errorf("preparing tab: %w", err)
	}
	return s, nil
}

func addScript(src string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(src).Do(ctx)
		return err
	})
}

func (s *Surface) work() {
	defer close(s.done)
	for {
		op, ok := s.ops.take()
		if !ok {
			return
		}
		op(s.tabCtx)
	}
}

// enqueue hands op to the worker without blocking. Loop-only.
func (s *Surface) enqueue(op func(context.Context)) {
	if s.destroyed {
		return
	}
	s.ops.put(op)
}

// ID implements mraid.Surface.
func (s *Surface) ID() string { return s.id }

// URL returns the address of the current page.
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

// onFrameChange keeps the tab's viewport equal to the surface frame.
func (s *Surface) onFrameChange(frame geometry.Rect) {
	if frame.Width <= 0 || frame.Height <= 0 {
		return
	}
	d := geometry.DefaultDensity
	if s.hctx != nil {
		d = s.hctx.DisplayMetrics().Density
	}
	dips := d.RectToDips(frame)
	s.enqueue(func(ctx context.Context) {
		err := chromedp.Run(ctx, emulation.SetDeviceMetricsOverride(int64(dips.Width), int64(dips.Height), float64(d), true))
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("Failed to resize viewport.", zap.Error(err))
		}
	})
}

// -- Loading --

// LoadHTML implements mraid.Surface. The markup is served from a data URL.
func (s *Surface) LoadHTML(markup string) error {
	if s.destroyed {
		return ErrDestroyed
	}
	s.url = "about:blank"
	s.load("data:text/html;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(markup)))
	return nil
}

// LoadURL implements mraid.Surface.
func (s *Surface) LoadURL(rawURL string) error {
	if s.destroyed {
		return ErrDestroyed
	}
	s.url = rawURL
	s.load(rawURL)
	return nil
}

func (s *Surface) load(target string) {
	s.loadGen++
	gen := s.loadGen
	timeout := s.loadTimeout
	s.enqueue(func(ctx context.Context) {
		navCtx, cancel := context.WithTimeout(ctx, timeout)
		err := chromedp.Run(navCtx, chromedp.Navigate(target))
		cancel()
		s.sched.Post(func() { s.finishLoad(gen, err) })
	})
}

func (s *Surface) finishLoad(gen uint64, err error) {
	if s.destroyed || gen != s.loadGen || s.client == nil {
		return
	}
	if err != nil {
		s.logger.Warn("Page failed to load.", zap.Error(err))
		s.client.OnPageFailed(err)
		return
	}
	s.logger.Debug("Page finished.", zap.String("url", s.url))
	s.client.OnPageFinished()
}

// InjectJavaScript implements mraid.Surface. A script that does not finish
// within the script timeout, such as one stuck behind an unanswered dialog,
// is abandoned so later requests still run.
func (s *Surface) InjectJavaScript(js string) {
	timeout := s.scriptTimeout
	s.enqueue(func(tab context.Context) {
		ctx, cancel := context.WithTimeout(tab, timeout)
		defer cancel()
		if err := chromedp.Run(ctx, chromedp.Evaluate(js, nil)); err != nil && tab.Err() == nil {
			msg := err.Error()
			s.sched.Post(func() { s.reportConsole("error", "Uncaught "+msg, "injected", 0) })
		}
	})
}

// Evaluate runs js in the page and unmarshals its result into res. It blocks
// until the worker has run every earlier request.
func (s *Surface) Evaluate(ctx context.Context, js string, res any) error {
	if s.destroyed {
		return ErrDestroyed
	}
	errc := make(chan error, 1)
	timeout := s.scriptTimeout
	s.enqueue(func(tab context.Context) {
		evalCtx, cancel := context.WithTimeout(tab, timeout)
		defer cancel()
		errc <- chromedp.Run(evalCtx, chromedp.Evaluate(js, res))
	})
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// -- Lifecycle --

// Pause implements mraid.Surface. The page is frozen; a finishing pause also
// stops any load in flight.
func (s *Surface) Pause(finishing bool) {
	if s.paused && !finishing {
		return
	}
	s.paused = true
	s.enqueue(func(ctx context.Context) {
		actions := []chromedp.Action{page.SetWebLifecycleState(page.SetWebLifecycleStateStateFrozen)}
		if finishing {
			actions = append([]chromedp.Action{page.StopLoading()}, actions...)
		}
		if err := chromedp.Run(ctx, actions...); err != nil && ctx.Err() == nil {
			s.logger.Debug("Failed to freeze page.", zap.Error(err))
		}
	})
}

// Resume implements mraid.Surface.
func (s *Surface) Resume() {
	if !s.paused {
		return
	}
	s.paused = false
	s.enqueue(func(ctx context.Context) {
		if err := chromedp.Run(ctx, page.SetWebLifecycleState(page.SetWebLifecycleStateStateActive)); err != nil && ctx.Err() == nil {
			s.logger.Debug("Failed to resume page.", zap.Error(err))
		}
	})
}

// Destroy implements mraid.Surface. The tab is closed; queued requests are
// abandoned.
func (s *Surface) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.loadGen++
	s.client = nil
	s.OnShownChange(nil)
	s.OnFrameChange(nil)
	s.RemoveFromParent()

	s.cancel()
	s.ops.close()
	s.logger.Debug("Surface destroyed.")
}

// Done is closed once the worker has drained after Destroy.
func (s *Surface) Done() <-chan struct{} { return s.done }

// -- Page events --

// onTargetEvent runs on the DevTools reader goroutine and must not block.
func (s *Surface) onTargetEvent(ev any) {
	switch ev := ev.(type) {
	case *runtime.EventBindingCalled:
		switch ev.Name {
		case mraidjs.NativeCallFunction:
			target := ev.Payload
			s.sched.Post(func() { s.offerNavigation(target, false) })
		case openBinding:
			target := ev.Payload
			s.sched.Post(func() { s.offerNavigation(target, true) })
		}

	case *page.EventFrameRequestedNavigation:
		target := ev.URL
		s.sched.Post(func() { s.offerNavigation(target, false) })

	case *runtime.EventConsoleAPICalled:
		level, message := consoleText(ev)
		source, line := "", 0
		if ev.StackTrace != nil && len(ev.StackTrace.CallFrames) > 0 {
			frame := ev.StackTrace.CallFrames[0]
			source, line = frame.URL, int(frame.LineNumber)+1
		}
		s.sched.Post(func() { s.reportConsole(level, message, source, line) })

	case *runtime.EventExceptionThrown:
		details := ev.ExceptionDetails
		if details == nil {
			return
		}
		message := details.Text
		if details.Exception != nil && details.Exception.Description != "" {
			message = details.Text + " " + details.Exception.Description
		}
		source, line := details.URL, int(details.LineNumber)+1
		s.sched.Post(func() { s.reportConsole("error", message, source, line) })

	case *page.EventJavascriptDialogOpening:
		message, kind := ev.Message, ev.Type
		s.sched.Post(func() { s.openDialog(message, kind) })
	}
}

// offerNavigation gives the client a chance to consume target. window.open
// targets that are not consumed load in this tab.
func (s *Surface) offerNavigation(target string, fromOpen bool) {
	if s.destroyed {
		return
	}
	if s.client != nil && s.client.OnNavigate(target) {
		return
	}
	if fromOpen && (strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://")) {
		if err := s.LoadURL(target); err != nil {
			s.logger.Debug("Navigation dropped.", zap.String("url", target), zap.Error(err))
		}
	}
}

func (s *Surface) reportConsole(level, message, source string, line int) {
	if s.destroyed {
		return
	}
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
	s.logger.Log(lvl, "[JS Console]", zap.String("message", message), zap.String("source", source), zap.Int("line", line))
}

// openDialog routes a script dialog to the client. Unhandled dialogs are
// accepted so the page never stays blocked.
func (s *Surface) openDialog(message string, kind page.DialogType) {
	result := &dialogResult{tab: s.tabCtx, logger: s.logger}
	if s.destroyed {
		return
	}
	if s.client != nil && s.client.OnJsAlert(message, result) {
		return
	}
	s.logger.Info("[JS Alert]", zap.String("message", message), zap.String("type", string(kind)))
	result.Confirm()
}

// dialogResult answers the open dialog. The answer is sent off the loop and
// off the event reader, both of which the browser may be waiting on.
type dialogResult struct {
	tab      context.Context
	logger   *zap.Logger
	answered bool
}

func (r *dialogResult) Confirm() { r.answer(true) }
func (r *dialogResult) Cancel()  { r.answer(false) }

func (r *dialogResult) answer(accept bool) {
	if r.answered {
		return
	}
	r.answered = true
	go func() {
		if err := chromedp.Run(r.tab, page.HandleJavaScriptDialog(accept)); err != nil && r.tab.Err() == nil {
			r.logger.Debug("Failed to answer dialog.", zap.Error(err))
		}
	}()
}

// consoleText flattens a console call the way a browser console prints it.
func consoleText(ev *runtime.EventConsoleAPICalled) (level, message string) {
	switch ev.Type {
	case runtime.APITypeWarning:
		level = "warn"
	case runtime.APITypeError, runtime.APITypeAssert:
		level = "error"
	case runtime.APITypeDebug:
		level = "debug"
	case runtime.APITypeInfo:
		level = "info"
	default:
		level = "log"
	}
	parts := make([]string, 0, len(ev.Args))
	for _, arg := range ev.Args {
		parts = append(parts, remoteText(arg))
	}
	return level, strings.Join(parts, " ")
}

func remoteText(arg *runtime.RemoteObject) string {
	if arg == nil {
		return ""
	}
	if len(arg.Value) > 0 {
		if arg.Type == runtime.TypeString {
			var str string
			if err := json.Unmarshal([]byte(arg.Value), &str); err == nil {
				return str
			}
		}
		return string(arg.Value)
	}
	if arg.UnserializableValue != "" {
		return string(arg.UnserializableValue)
	}
	if arg.Description != "" {
		return arg.Description
	}
	return string(arg.Type)
}

// -- Factory --

// Factory opens one tab per surface on a shared browser.
type Factory struct {
	browser *Browser
	sched   loop.Scheduler
	logger  *zap.Logger
	opts    SurfaceOptions
	created []*Surface
}

var _ mraid.SurfaceFactory = (*Factory)(nil)

// NewFactory returns a factory whose surfaces run on sched.
func NewFactory(b *Browser, sched loop.Scheduler, logger *zap.Logger, opts SurfaceOptions) *Factory {
	return &Factory{browser: b, sched: sched, logger: logger, opts: opts}
}

// NewSurface implements mraid.SurfaceFactory.
func (f *Factory) NewSurface(hctx host.Context) (mraid.Surface, error) {
	s, err := NewSurface(f.browser, hctx, f.sched, f.logger, f.opts)
	if err != nil {
		return nil, err
	}
	f.created = append(f.created, s)
	return s, nil
}

// Surfaces returns every surface the factory has created, oldest first.
func (f *Factory) Surfaces() []*Surface {
	out := make([]*Surface, len(f.created))
	copy(out, f.created)
	return out
}
