// internal/mraid/bridge_listener.go
package mraid

// listenerOverrides is where the primary and two-part bridge listeners
// differ. Everything else is shared dispatch into the controller.
type listenerOverrides struct {
	twoPart bool
	// resizeError, when set, rejects resize with this message.
	resizeError      string
	ignoreExpand     bool
	ignoreFailedLoad bool
}

var (
	primaryOverrides = listenerOverrides{}
	twoPartOverrides = listenerOverrides{
		twoPart:          true,
		resizeError:      "Not allowed to resize from an expanded state",
		ignoreExpand:     true,
		ignoreFailedLoad: true,
	}
)

type bridgeListener struct {
	c         *Controller
	overrides listenerOverrides
}

var _ BridgeListener = (*bridgeListener)(nil)

func (l *bridgeListener) OnPageLoaded() {
	if l.overrides.twoPart {
		l.c.handleTwoPartPageLoad()
		return
	}
	l.c.handlePageLoad()
	if l.c.listener != nil {
		l.c.listener.OnLoaded(l.c.defaultContainer)
	}
}

func (l *bridgeListener) OnPageFailedToLoad() {
	if l.overrides.ignoreFailedLoad {
		return
	}
	if l.c.listener != nil {
		l.c.listener.OnFailedToLoad()
	}
}

// OnVisibilityChanged: while a two-part surface is attached it covers the
// primary one and is the only source of viewability for both bridges.
func (l *bridgeListener) OnVisibilityChanged(visible bool) {
	if l.overrides.twoPart {
		l.c.bridge.NotifyViewability(visible)
		l.c.twoPartBridge.NotifyViewability(visible)
		return
	}
	if !l.c.twoPartBridge.IsAttached() {
		l.c.bridge.NotifyViewability(visible)
	}
}

func (l *bridgeListener) OnJsAlert(message string, result JsResult) bool {
	return l.c.handleJsAlert(message, result)
}

func (l *bridgeListener) OnConsoleMessage(msg ConsoleMessage) bool {
	return l.c.handleConsoleMessage(msg)
}

func (l *bridgeListener) OnClose() { l.c.handleClose() }

func (l *bridgeListener) OnResize(p ResizeParams) error {
	if l.overrides.resizeError != "" {
		return commandErrorf("%s", l.overrides.resizeError)
	}
	return l.c.handleResize(p)
}

func (l *bridgeListener) OnExpand(p ExpandParams) error {
	if l.overrides.ignoreExpand {
		return nil
	}
	return l.c.handleExpand(p)
}

func (l *bridgeListener) OnUseCustomClose(useCustomClose bool) {
	l.c.handleCustomClose(useCustomClose)
}

func (l *bridgeListener) OnSetOrientationProperties(p OrientationProperties) error {
	return l.c.handleSetOrientationProperties(p)
}

func (l *bridgeListener) OnOpen(url string) { l.c.handleOpen(url) }

func (l *bridgeListener) OnPlayVideo(url string) { l.c.handleShowVideo(url) }
