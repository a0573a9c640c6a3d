// internal/mraid/bridge.go
package mraid

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNotAttached is returned by content operations on a detached bridge.
var ErrNotAttached = errors.New("mraid: bridge has no surface attached")

// BridgeListener receives the typed callbacks a Bridge decodes from its
// surface. Command callbacks return a CommandError to have it reported back
// to the creative.
type BridgeListener interface {
	OnPageLoaded()
	OnPageFailedToLoad()
	OnVisibilityChanged(visible bool)
	OnJsAlert(message string, result JsResult) bool
	OnConsoleMessage(msg ConsoleMessage) bool

	OnClose()
	OnResize(p ResizeParams) error
	OnExpand(p ExpandParams) error
	OnUseCustomClose(useCustomClose bool)
	OnSetOrientationProperties(p OrientationProperties) error
	OnOpen(url string)
	OnPlayVideo(url string)
}

// Bridge connects one surface to the controller. Inbound, it turns command
// URLs into BridgeListener calls; outbound, it pushes state into the page
// through the mraidbridge object that mraid.js installs.
type Bridge struct {
	logger    *zap.Logger
	placement PlacementType
	listener  BridgeListener
	surface   Surface
	loaded    bool
}

var _ SurfaceClient = (*Bridge)(nil)

// NewBridge creates a detached bridge. name distinguishes it in logs.
func NewBridge(logger *zap.Logger, name string, placement PlacementType) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bridge{
		logger:    logger.Named("bridge").With(zap.String("bridge", name)),
		placement: placement,
	}
}

// SetListener installs the receiver of decoded callbacks.
func (b *Bridge) SetListener(l BridgeListener) { b.listener = l }

// Attach makes s the bridge's surface. Any previous surface is left alone;
// callers detach first.
func (b *Bridge) Attach(s Surface) {
	b.surface = s
	b.loaded = false
	s.SetClient(b)
	b.logger.Debug("Surface attached.", zap.String("surface_id", s.ID()))
}

// Detach destroys the attached surface, if any.
func (b *Bridge) Detach() {
	if b.surface == nil {
		return
	}
	s := b.surface
	b.surface = nil
	b.loaded = false
	s.SetClient(nil)
	s.Destroy()
	b.logger.Debug("Surface detached.", zap.String("surface_id", s.ID()))
}

// IsAttached reports whether a surface is attached.
func (b *Bridge) IsAttached() bool { return b.surface != nil }

// IsLoaded reports whether the attached surface finished its first page load.
func (b *Bridge) IsLoaded() bool { return b.loaded }

// IsViewable reports whether the attached surface is visible to the user.
func (b *Bridge) IsViewable() bool { return b.surface != nil && b.surface.IsViewable() }

// SetContentHTML loads markup into the attached surface.
func (b *Bridge) SetContentHTML(html string) error {
	if b.surface == nil {
		b.logger.Debug("MRAID bridge called setContentHtml before surface was attached.")
		return ErrNotAttached
	}
	b.loaded = false
	if err := b.surface.LoadHTML(html); err != nil {
		return fmt.Errorf("loading creative markup: %w", err)
	}
	return nil
}

// SetContentURL navigates the attached surface to rawURL.
func (b *Bridge) SetContentURL(rawURL string) error {
	if b.surface == nil {
		b.logger.Debug("MRAID bridge called setContentURL before surface was attached.")
		return ErrNotAttached
	}
	b.loaded = false
	if err := b.surface.LoadURL(rawURL); err != nil {
		return fmt.Errorf("loading creative url: %w", err)
	}
	return nil
}

// InjectJavaScript evaluates js in the attached surface. It is dropped, with
// a debug log, when nothing is attached.
func (b *Bridge) InjectJavaScript(js string) {
	if b.surface == nil {
		b.logger.Debug("Attempted to inject Javascript into MRAID surface while it was not attached.",
			zap.String("js", js))
		return
	}
	b.logger.Debug("Injecting Javascript into MRAID surface.", zap.String("js", js))
	b.surface.InjectJavaScript(js)
}

// -- Outbound notifications --

func (b *Bridge) call(fn string, args ...any) {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = jsLiteral(a)
	}
	b.InjectJavaScript("window.mraidbridge." + fn + "(" + strings.Join(parts, ",") + ")")
}

func jsLiteral(v any) string {
	s, err := json.MarshalToString(v)
	if err != nil {
		return "null"
	}
	return s
}

// NotifySupports reports which optional features the host provides.
func (b *Bridge) NotifySupports(sms, tel, calendar, storePicture, inlineVideo bool) {
	b.call("setSupports", sms, tel, calendar, storePicture, inlineVideo)
}

// NotifyPlacementType reports the placement.
func (b *Bridge) NotifyPlacementType(p PlacementType) {
	b.call("setPlacementType", p.String())
}

// NotifyViewability reports whether the ad is visible to the user.
func (b *Bridge) NotifyViewability(viewable bool) {
	b.call("setIsViewable", viewable)
}

// NotifyViewState reports a state change.
func (b *Bridge) NotifyViewState(s ViewState) {
	b.call("setState", s.String())
}

// NotifyReady fires the creative's ready event.
func (b *Bridge) NotifyReady() {
	b.call("notifyReadyEvent")
}

// NotifyScreenMetrics pushes every measured rectangle, in dips, followed by a
// size change event for the current ad size.
func (b *Bridge) NotifyScreenMetrics(m ScreenMetrics) {
	screen := m.ScreenDips()
	root := m.RootViewDips()
	current := m.CurrentAdDips()
	def := m.DefaultAdDips()

	b.call("setScreenSize", screen.Width, screen.Height)
	b.call("setMaxSize", root.Width, root.Height)
	b.call("setCurrentPosition", current.X, current.Y, current.Width, current.Height)
	b.call("setDefaultPosition", def.X, def.Y, def.Width, def.Height)
	b.call("notifySizeChangeEvent", current.Width, current.Height)
}

func (b *Bridge) notifyCommandComplete(name CommandName) {
	b.call("nativeCallComplete", name.String())
}

func (b *Bridge) notifyError(name CommandName, message string) {
	b.call("notifyErrorEvent", message, name.String())
}

// -- SurfaceClient --

// OnPageFinished implements SurfaceClient. Only the first load counts.
func (b *Bridge) OnPageFinished() {
	if b.loaded {
		return
	}
	b.loaded = true
	if b.listener != nil {
		b.listener.OnPageLoaded()
	}
}

// OnPageFailed implements SurfaceClient.
func (b *Bridge) OnPageFailed(err error) {
	b.logger.Warn("Creative failed to load.", zap.Error(err))
	if b.listener != nil {
		b.listener.OnPageFailedToLoad()
	}
}

// OnVisibilityChanged implements SurfaceClient.
func (b *Bridge) OnVisibilityChanged(visible bool) {
	if b.listener != nil {
		b.listener.OnVisibilityChanged(visible)
	}
}

// OnConsoleMessage implements SurfaceClient.
func (b *Bridge) OnConsoleMessage(msg ConsoleMessage) bool {
	if b.listener != nil {
		return b.listener.OnConsoleMessage(msg)
	}
	return false
}

// OnJsAlert implements SurfaceClient.
func (b *Bridge) OnJsAlert(message string, result JsResult) bool {
	if b.listener != nil {
		return b.listener.OnJsAlert(message, result)
	}
	return false
}

// OnNavigate implements SurfaceClient. mraid:// URLs are commands, the
// mopub://failLoad URL reports a failed load and any other http(s) URL the
// page navigates to is a click-through.
func (b *Bridge) OnNavigate(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		b.logger.Warn("Invalid navigation URL.", zap.String("url", rawURL), zap.Error(err))
		return false
	}

	switch u.Scheme {
	case SchemeMoPub:
		if u.Host == hostFailLoad && b.placement == PlacementInline && b.listener != nil {
			b.listener.OnPageFailedToLoad()
		}
		return true
	case SchemeMRAID:
		cmd, err := ParseCommandURL(rawURL)
		if err == nil {
			err = b.runCommand(cmd)
		}
		if err != nil {
			b.reportCommandError(cmd.Name, err)
		}
		b.notifyCommandComplete(cmd.Name)
		return true
	case "http", "https":
		if b.listener != nil {
			b.listener.OnOpen(rawURL)
		}
		return true
	}
	return false
}

// HandleCommand runs an mraid:// URL as if the page had navigated to it.
func (b *Bridge) HandleCommand(rawURL string) bool {
	return b.OnNavigate(rawURL)
}

func (b *Bridge) runCommand(cmd Command) error {
	if b.listener == nil {
		return commandErrorf("Invalid state to execute this command")
	}
	if b.surface == nil {
		return &CommandError{Message: "The current surface is being destroyed", Err: ErrSurfaceDestroyed}
	}

	switch cmd.Name {
	case CommandClose:
		b.listener.OnClose()
	case CommandResize:
		return b.listener.OnResize(cmd.Resize)
	case CommandExpand:
		return b.listener.OnExpand(cmd.Expand)
	case CommandUseCustomClose:
		b.listener.OnUseCustomClose(cmd.UseCustomClose)
	case CommandOpen:
		b.listener.OnOpen(cmd.URL)
	case CommandSetOrientationProperties:
		return b.listener.OnSetOrientationProperties(cmd.Orientation)
	case CommandPlayVideo:
		b.listener.OnPlayVideo(cmd.URL)
	}
	return nil
}

func (b *Bridge) reportCommandError(name CommandName, err error) {
	message := err.Error()
	var ce *CommandError
	if errors.As(err, &ce) {
		if ce.Command == "" {
			ce.Command = name.String()
		}
		message = ce.Message
	}
	b.logger.Warn("MRAID command failed.", zap.Stringer("command", name), zap.Error(err))
	b.notifyError(name, message)
}
