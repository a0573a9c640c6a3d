// internal/host/activity.go
package host

import (
	"fmt"
	"sync"
	"weak"

	"github.com/xkilldash9x/mraidhost/internal/view"
)

// ScreenOrientation values follow the host platform's requested-orientation
// constants.
type ScreenOrientation int

const (
	OrientationUnspecified ScreenOrientation = iota
	OrientationPortrait
	OrientationLandscape
	OrientationReversePortrait
	OrientationReverseLandscape
)

var orientationNames = map[ScreenOrientation]string{
	OrientationUnspecified:      "unspecified",
	OrientationPortrait:         "portrait",
	OrientationLandscape:        "landscape",
	OrientationReversePortrait:  "reverse_portrait",
	OrientationReverseLandscape: "reverse_landscape",
}

func (o ScreenOrientation) String() string {
	if s, ok := orientationNames[o]; ok {
		return s
	}
	return "unknown"
}

// ParseScreenOrientation accepts the names produced by String.
func ParseScreenOrientation(s string) (ScreenOrientation, error) {
	for o, name := range orientationNames {
		if name == s {
			return o, nil
		}
	}
	return OrientationUnspecified, fmt.Errorf("host: unknown screen orientation %q", s)
}

// ConfigChanges is a bit set of configuration changes an activity declares it
// handles itself instead of being recreated.
type ConfigChanges uint

const (
	ConfigOrientation ConfigChanges = 1 << iota
	ConfigScreenSize
)

// Has reports whether every bit in flags is set.
func (c ConfigChanges) Has(flags ConfigChanges) bool { return c&flags == flags }

// ActivityInfo is the activity's static manifest declaration.
type ActivityInfo struct {
	ScreenOrientation ScreenOrientation
	ConfigChanges     ConfigChanges
}

// Activity is the screen hosting the ad.
type Activity interface {
	RequestedOrientation() ScreenOrientation
	SetRequestedOrientation(o ScreenOrientation)
	// ActivityInfo looks up the static declaration. It fails when the
	// declaration cannot be read.
	ActivityInfo() (ActivityInfo, error)
	// RootView returns the top-level content group, or nil before the
	// activity has a window.
	RootView() *view.Group
}

// ActivityRef is a non-owning reference to an Activity. Resolve reports false
// once the activity is gone.
type ActivityRef interface {
	Resolve() (Activity, bool)
}

type weakRef[T any, PT interface {
	*T
	Activity
}] struct {
	p weak.Pointer[T]
}

func (r weakRef[T, PT]) Resolve() (Activity, bool) {
	ptr := r.p.Value()
	if ptr == nil {
		return nil, false
	}
	return PT(ptr), true
}

// Weak returns a reference that resolves only while a is otherwise reachable.
func Weak[T any, PT interface {
	*T
	Activity
}](a PT) ActivityRef {
	ptr := (*T)(a)
	if ptr == nil {
		return Detached()
	}
	return weakRef[T, PT]{p: weak.Make(ptr)}
}

// Handle is an ActivityRef that the host invalidates explicitly, typically
// when the activity is destroyed.
type Handle struct {
	mu       sync.Mutex
	activity Activity
}

// NewHandle returns a handle that resolves to a until Release is called.
func NewHandle(a Activity) *Handle {
	return &Handle{activity: a}
}

// Resolve implements ActivityRef.
func (h *Handle) Resolve() (Activity, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.activity, h.activity != nil
}

// Release drops the activity. Subsequent Resolve calls report false.
func (h *Handle) Release() {
	h.mu.Lock()
	h.activity = nil
	h.mu.Unlock()
}

type detached struct{}

func (detached) Resolve() (Activity, bool) { return nil, false }

// Detached returns a reference that never resolves.
func Detached() ActivityRef { return detached{} }
