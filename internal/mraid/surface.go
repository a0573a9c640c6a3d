// internal/mraid/surface.go
package mraid

import (
	"github.com/xkilldash9x/mraidhost/internal/geometry"
	"github.com/xkilldash9x/mraidhost/internal/host"
	"github.com/xkilldash9x/mraidhost/internal/view"
)

// ConsoleMessage is a line the creative wrote to its console.
type ConsoleMessage struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
	Line    int    `json:"line,omitempty"`
}

// JsResult answers a blocking script dialog. Exactly one of Confirm or Cancel
// should be called.
type JsResult interface {
	Confirm()
	Cancel()
}

// SurfaceClient receives a surface's callbacks. Every method is invoked on
// the loop.
type SurfaceClient interface {
	OnPageFinished()
	OnPageFailed(err error)
	// OnNavigate is offered every navigation, including protocol command
	// URLs. It reports whether the navigation was consumed.
	OnNavigate(url string) bool
	OnConsoleMessage(msg ConsoleMessage) bool
	OnJsAlert(message string, result JsResult) bool
	OnVisibilityChanged(visible bool)
}

// Surface renders creative markup and runs its scripts. Implementations embed
// view.Node so the surface can be moved between containers.
type Surface interface {
	view.View
	LayoutTarget
	Frame() geometry.Rect

	// ID is stable for the lifetime of the surface.
	ID() string
	// SetClient installs the callback receiver; nil detaches it.
	SetClient(c SurfaceClient)
	LoadHTML(html string) error
	LoadURL(url string) error
	// InjectJavaScript evaluates js in the page. Errors are reported to the
	// creative's console, not to the caller.
	InjectJavaScript(js string)
	// IsViewable reports whether the surface is currently visible to the user.
	IsViewable() bool
	Pause(finishing bool)
	Resume()
	Destroy()
}

// SurfaceFactory creates surfaces bound to a host context.
type SurfaceFactory interface {
	NewSurface(ctx host.Context) (Surface, error)
}

// SurfaceFactoryFunc adapts a function to SurfaceFactory.
type SurfaceFactoryFunc func(ctx host.Context) (Surface, error)

// NewSurface implements SurfaceFactory.
func (f SurfaceFactoryFunc) NewSurface(ctx host.Context) (Surface, error) { return f(ctx) }
