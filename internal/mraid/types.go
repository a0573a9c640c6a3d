// internal/mraid/types.go
//
// Package mraid hosts a rich-media ad unit: it drives the view state machine
// behind the MRAID content protocol, routes commands from the ad's primary
// and two-part surfaces, validates resize and expand geometry against the
// measured screen, and locks the host orientation on the ad's behalf.
//
// Everything in this package runs on a single loop.Scheduler and is not safe
// for concurrent use.
package mraid

import (
	"fmt"

	"github.com/xkilldash9x/mraidhost/internal/host"
)

// ViewState is the presentation state reported to the creative.
type ViewState int

const (
	ViewStateLoading ViewState = iota
	ViewStateDefault
	ViewStateResized
	ViewStateExpanded
	ViewStateHidden
)

// String returns the protocol spelling.
func (s ViewState) String() string {
	switch s {
	case ViewStateLoading:
		return "loading"
	case ViewStateDefault:
		return "default"
	case ViewStateResized:
		return "resized"
	case ViewStateExpanded:
		return "expanded"
	case ViewStateHidden:
		return "hidden"
	}
	return fmt.Sprintf("ViewState(%d)", int(s))
}

// PlacementType is fixed when a controller is created.
type PlacementType int

const (
	PlacementInline PlacementType = iota
	PlacementInterstitial
)

func (p PlacementType) String() string {
	if p == PlacementInterstitial {
		return "interstitial"
	}
	return "inline"
}

// ParsePlacementType accepts "inline" and "interstitial".
func ParsePlacementType(s string) (PlacementType, error) {
	switch s {
	case "inline":
		return PlacementInline, nil
	case "interstitial":
		return PlacementInterstitial, nil
	}
	return PlacementInline, fmt.Errorf("invalid placement type: %q", s)
}

// ForceOrientation is the orientation a creative asks the host to lock to.
type ForceOrientation int

const (
	ForceNone ForceOrientation = iota
	ForcePortrait
	ForceLandscape
)

func (o ForceOrientation) String() string {
	switch o {
	case ForcePortrait:
		return "portrait"
	case ForceLandscape:
		return "landscape"
	}
	return "none"
}

// ScreenOrientation maps the forced orientation onto the host's requested
// orientation value. ForceNone maps to unspecified.
func (o ForceOrientation) ScreenOrientation() host.ScreenOrientation {
	switch o {
	case ForcePortrait:
		return host.OrientationPortrait
	case ForceLandscape:
		return host.OrientationLandscape
	}
	return host.OrientationUnspecified
}

// ParseForceOrientation accepts "portrait", "landscape" and "none".
func ParseForceOrientation(s string) (ForceOrientation, error) {
	switch s {
	case "portrait":
		return ForcePortrait, nil
	case "landscape":
		return ForceLandscape, nil
	case "none":
		return ForceNone, nil
	}
	return ForceNone, fmt.Errorf("invalid orientation: %q", s)
}
