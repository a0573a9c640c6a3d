package geometry

// Density is the ratio of physical pixels to density-independent pixels.
type Density float64

// DefaultDensity is used when a host reports a non-positive density.
const DefaultDensity Density = 1.0

func (d Density) value() float64 {
	if d <= 0 {
		return float64(DefaultDensity)
	}
	return float64(d)
}

// DipsToPixels converts a length in dips to whole pixels, rounding half up.
func (d Density) DipsToPixels(dips int) int {
	return roundHalfUp(float64(dips) * d.value())
}

// PixelsToDips converts a pixel length to whole dips, rounding half up.
func (d Density) PixelsToDips(px int) int {
	return roundHalfUp(float64(px) / d.value())
}

// RectToDips converts every component of a pixel rectangle to dips.
func (d Density) RectToDips(r Rect) Rect {
	return Rect{
		X:      d.PixelsToDips(r.X),
		Y:      d.PixelsToDips(r.Y),
		Width:  d.PixelsToDips(r.Width),
		Height: d.PixelsToDips(r.Height),
	}
}

// truncation toward zero after adding 0.5, the conversion hosts use for
// layout lengths.
func roundHalfUp(v float64) int {
	return int(v + 0.5)
}
