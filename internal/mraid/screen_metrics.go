// internal/mraid/screen_metrics.go
package mraid

import "github.com/xkilldash9x/mraidhost/internal/geometry"

// ScreenMetrics is one measurement of the screen, the root view, the default
// ad container and the view currently showing the ad. Rectangles are stored in
// pixels in screen coordinates; the Dips accessors convert on read.
//
// A ScreenMetrics value is always replaced as a whole.
type ScreenMetrics struct {
	Density   geometry.Density `json:"density"`
	Screen    geometry.Rect    `json:"screen"`
	RootView  geometry.Rect    `json:"root_view"`
	DefaultAd geometry.Rect    `json:"default_ad"`
	CurrentAd geometry.Rect    `json:"current_ad"`
}

// NewScreenMetrics returns metrics with a known density and nothing measured.
func NewScreenMetrics(density geometry.Density) ScreenMetrics {
	return ScreenMetrics{Density: density}
}

func (m ScreenMetrics) ScreenDips() geometry.Rect    { return m.Density.RectToDips(m.Screen) }
func (m ScreenMetrics) RootViewDips() geometry.Rect  { return m.Density.RectToDips(m.RootView) }
func (m ScreenMetrics) DefaultAdDips() geometry.Rect { return m.Density.RectToDips(m.DefaultAd) }
func (m ScreenMetrics) CurrentAdDips() geometry.Rect { return m.Density.RectToDips(m.CurrentAd) }
