// Package mraidjs embeds the creative-side MRAID library. Surfaces inject it
// before any creative script runs. It defines window.mraid for the creative
// and window.mraidbridge for the host, and sends commands through a global
// mraidNativeCall(url) function that each surface must provide.
package mraidjs

import _ "embed"

//go:embed mraid.js
var Source string

// NativeCallFunction is the global the library calls with each command URL.
const NativeCallFunction = "mraidNativeCall"
