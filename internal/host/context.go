// internal/host/context.go
//
// Package host describes the collaborators an ad controller consumes from the
// application embedding it: display metrics, the hosting activity, rotation
// broadcasts, and the delegates that leave the ad (browser, video player).
// Device and VirtualActivity are in-process implementations used by the
// simulator and by tests.
package host

import (
	"errors"

	"github.com/xkilldash9x/mraidhost/internal/geometry"
)

// ErrNotRegistered is returned when unregistering an observer that is not
// (or no longer) registered.
var ErrNotRegistered = errors.New("host: observer not registered")

// DisplayMetrics is the physical display size and density.
type DisplayMetrics struct {
	WidthPixels  int
	HeightPixels int
	Density      geometry.Density
}

// Capabilities lists the device features the ad may query.
type Capabilities struct {
	SMS                 bool
	Tel                 bool
	Calendar            bool
	StorePicture        bool
	HardwareAccelerated bool
}

// Context is the application-level environment a controller is created in.
// Unlike Activity it outlives configuration changes.
type Context interface {
	DisplayMetrics() DisplayMetrics
	// Rotation returns the display rotation in quarter turns (0..3).
	Rotation() int
	Capabilities() Capabilities
}

// RotationObserver is notified after the display rotation changes.
// Implementations must be comparable; sources identify them by equality.
type RotationObserver interface {
	OnRotationChanged(rotation int)
}

// RotationSource delivers rotation broadcasts.
type RotationSource interface {
	Register(o RotationObserver)
	// Unregister returns ErrNotRegistered when o is unknown.
	Unregister(o RotationObserver) error
}

// URLOpener hands a URL to the platform browser or deep-link handler.
type URLOpener interface {
	OpenURL(url string) error
}

// VideoLauncher starts full-screen playback of a video URL.
type VideoLauncher interface {
	PlayVideo(url string) error
}
