// internal/mraid/listener.go
package mraid

import "github.com/xkilldash9x/mraidhost/internal/view"

// Listener receives the ad lifecycle events the embedding application cares
// about. At most one of OnExpand, OnClose and OnResize fires per state change.
type Listener interface {
	// OnLoaded hands over the default container once the creative is ready.
	OnLoaded(container view.View)
	OnFailedToLoad()
	OnExpand()
	OnResize(toOriginalSize bool)
	OnOpen()
	OnClose()
}

// UseCustomCloseListener is told when the creative takes over (or gives
// back) the close affordance.
type UseCustomCloseListener interface {
	UseCustomCloseChanged(useCustomClose bool)
}

// DebugListener intercepts console output and script alerts. Returning true
// marks the event handled.
type DebugListener interface {
	OnConsoleMessage(msg ConsoleMessage) bool
	OnJsAlert(message string, result JsResult) bool
}

// notifyTransition fires the single listener event derived from a state
// change. Rules are checked in order and the first match wins.
func notifyTransition(l Listener, previous, next ViewState) {
	switch {
	case next == ViewStateExpanded:
		l.OnExpand()
	case previous == ViewStateExpanded && next == ViewStateDefault:
		l.OnClose()
	case next == ViewStateHidden:
		l.OnClose()
	case previous == ViewStateResized && next == ViewStateDefault:
		l.OnResize(true)
	case next == ViewStateResized:
		l.OnResize(false)
	}
}
