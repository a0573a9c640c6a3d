// internal/host/device.go
package host

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/mraidhost/internal/view"
)

// -- Device --

// Device is an in-process Context and RotationSource. Rotating by an odd
// number of quarter turns swaps the display width and height.
type Device struct {
	logger *zap.Logger

	mu        sync.Mutex
	metrics   DisplayMetrics
	rotation  int
	caps      Capabilities
	observers []RotationObserver
}

var (
	_ Context        = (*Device)(nil)
	_ RotationSource = (*Device)(nil)
)

// NewDevice creates a device in its natural rotation.
func NewDevice(logger *zap.Logger, metrics DisplayMetrics, caps Capabilities) *Device {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Device{
		logger:  logger.Named("device"),
		metrics: metrics,
		caps:    caps,
	}
}

// DisplayMetrics implements Context.
func (d *Device) DisplayMetrics() DisplayMetrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metrics
}

// Rotation implements Context.
func (d *Device) Rotation() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rotation
}

// Capabilities implements Context.
func (d *Device) Capabilities() Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.caps
}

// Register implements RotationSource.
func (d *Device) Register(o RotationObserver) {
	d.mu.Lock()
	d.observers = append(d.observers, o)
	d.mu.Unlock()
}

// Unregister implements RotationSource.
func (d *Device) Unregister(o RotationObserver) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, cur := range d.observers {
		if cur == o {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			return nil
		}
	}
	return ErrNotRegistered
}

// Rotate sets the rotation (0..3 quarter turns) and broadcasts it to every
// registered observer in registration order. Broadcasts happen even when the
// value is unchanged, as on the host platform.
func (d *Device) Rotate(rotation int) error {
	if rotation < 0 || rotation > 3 {
		return fmt.Errorf("host: rotation %d out of range [0,3]", rotation)
	}

	d.mu.Lock()
	if (d.rotation+rotation)%2 == 1 {
		d.metrics.WidthPixels, d.metrics.HeightPixels = d.metrics.HeightPixels, d.metrics.WidthPixels
	}
	d.rotation = rotation
	observers := make([]RotationObserver, len(d.observers))
	copy(observers, d.observers)
	d.mu.Unlock()

	d.logger.Debug("Display rotated", zap.Int("rotation", rotation), zap.Int("observers", len(observers)))
	for _, o := range observers {
		o.OnRotationChanged(rotation)
	}
	return nil
}

// CurrentOrientation derives the screen orientation from the display shape
// and rotation.
func CurrentOrientation(c Context) ScreenOrientation {
	m := c.DisplayMetrics()
	rotation := c.Rotation()
	if m.HeightPixels >= m.WidthPixels {
		if rotation == 1 || rotation == 2 {
			return OrientationReversePortrait
		}
		return OrientationPortrait
	}
	if rotation == 2 || rotation == 3 {
		return OrientationReverseLandscape
	}
	return OrientationLandscape
}

// -- VirtualActivity --

// VirtualActivity is an Activity whose root view is a window's root group.
type VirtualActivity struct {
	mu        sync.Mutex
	requested ScreenOrientation
	history   []ScreenOrientation
	info      ActivityInfo
	infoErr   error
	window    *view.Window

	// OnOrientationRequest, when set, runs after every SetRequestedOrientation.
	OnOrientationRequest func(ScreenOrientation)
}

var _ Activity = (*VirtualActivity)(nil)

// NewVirtualActivity creates an activity with the given static declaration.
// window may be nil for an activity that has not been attached yet.
func NewVirtualActivity(info ActivityInfo, window *view.Window) *VirtualActivity {
	return &VirtualActivity{
		requested: OrientationUnspecified,
		info:      info,
		window:    window,
	}
}

// RequestedOrientation implements Activity.
func (a *VirtualActivity) RequestedOrientation() ScreenOrientation {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.requested
}

// SetRequestedOrientation implements Activity.
func (a *VirtualActivity) SetRequestedOrientation(o ScreenOrientation) {
	a.mu.Lock()
	a.requested = o
	a.history = append(a.history, o)
	hook := a.OnOrientationRequest
	a.mu.Unlock()

	if hook != nil {
		hook(o)
	}
}

// OrientationHistory returns every value passed to SetRequestedOrientation.
func (a *VirtualActivity) OrientationHistory() []ScreenOrientation {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ScreenOrientation, len(a.history))
	copy(out, a.history)
	return out
}

// ActivityInfo implements Activity.
func (a *VirtualActivity) ActivityInfo() (ActivityInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.infoErr != nil {
		return ActivityInfo{}, a.infoErr
	}
	return a.info, nil
}

// FailInfoLookup makes ActivityInfo return err until called with nil.
func (a *VirtualActivity) FailInfoLookup(err error) {
	a.mu.Lock()
	a.infoErr = err
	a.mu.Unlock()
}

// RootView implements Activity.
func (a *VirtualActivity) RootView() *view.Group {
	if a.window == nil {
		return nil
	}
	return a.window.Root()
}
