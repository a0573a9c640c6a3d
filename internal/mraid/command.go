// internal/mraid/command.go
package mraid

import (
	"net/url"
	"strconv"

	"github.com/xkilldash9x/mraidhost/internal/geometry"
)

// CommandName is the host part of an mraid:// command URL.
type CommandName string

const (
	CommandClose                    CommandName = "close"
	CommandExpand                   CommandName = "expand"
	CommandUseCustomClose           CommandName = "usecustomclose"
	CommandOpen                     CommandName = "open"
	CommandResize                   CommandName = "resize"
	CommandSetOrientationProperties CommandName = "setOrientationProperties"
	CommandPlayVideo                CommandName = "playVideo"
	CommandStorePicture             CommandName = "storePicture"
	CommandCreateCalendarEvent      CommandName = "createCalendarEvent"
	CommandUnspecified              CommandName = ""
)

var knownCommands = map[CommandName]bool{
	CommandClose:                    true,
	CommandExpand:                   true,
	CommandUseCustomClose:           true,
	CommandOpen:                     true,
	CommandResize:                   true,
	CommandSetOrientationProperties: true,
	CommandPlayVideo:                true,
	CommandStorePicture:             true,
	CommandCreateCalendarEvent:      true,
}

const (
	// URL schemes recognised on navigation.
	SchemeMRAID = "mraid"
	SchemeMoPub = "mopub"

	hostFailLoad = "failLoad"

	maxSizeDips   = 100000
	maxOffsetDips = 100000
)

// ResizeParams are the arguments of a resize command, in dips.
type ResizeParams struct {
	Width          int
	Height         int
	OffsetX        int
	OffsetY        int
	ClosePosition  geometry.ClosePosition
	AllowOffscreen bool
}

// ExpandParams are the arguments of an expand command. A non-empty URL
// requests a two-part expand.
type ExpandParams struct {
	URL            string
	UseCustomClose bool
}

// OrientationProperties are the arguments of setOrientationProperties.
type OrientationProperties struct {
	AllowOrientationChange bool
	ForceOrientation       ForceOrientation
}

// Command is a parsed mraid:// URL. Only the fields for Name are set.
type Command struct {
	Name           CommandName
	Resize         ResizeParams
	Expand         ExpandParams
	Orientation    OrientationProperties
	UseCustomClose bool
	URL            string
}

// ParseCommandURL parses an mraid://<command>?<params> URL. The returned name
// is set whenever the command part could be read, even if parameter
// validation fails, so callers can attribute the error.
func ParseCommandURL(raw string) (Command, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Command{}, &CommandError{Message: "Invalid MRAID URL", Err: err}
	}
	if u.Scheme != SchemeMRAID {
		return Command{}, commandErrorf("not an MRAID URL: %s", raw)
	}
	name := CommandName(u.Host)
	if !knownCommands[name] {
		name = CommandUnspecified
	}
	cmd := Command{Name: name}
	q := u.Query()
	p := params{q: q}

	switch name {
	case CommandClose:
	case CommandResize:
		cmd.Resize = ResizeParams{
			Width:          p.size("width", 0, maxSizeDips),
			Height:         p.size("height", 0, maxSizeDips),
			OffsetX:        p.size("offsetX", -maxOffsetDips, maxOffsetDips),
			OffsetY:        p.size("offsetY", -maxOffsetDips, maxOffsetDips),
			ClosePosition:  p.closePosition("customClosePosition", geometry.DefaultClosePosition),
			AllowOffscreen: p.boolean("allowOffscreen", true),
		}
	case CommandExpand:
		cmd.Expand = ExpandParams{
			URL:            p.optionalURL("url"),
			UseCustomClose: p.boolean("shouldUseCustomClose", false),
		}
	case CommandUseCustomClose:
		cmd.UseCustomClose = p.boolean("shouldUseCustomClose", false)
	case CommandOpen:
		cmd.URL = p.requiredURL("url")
	case CommandSetOrientationProperties:
		cmd.Orientation = OrientationProperties{
			AllowOrientationChange: p.requiredBoolean("allowOrientationChange"),
			ForceOrientation:       p.orientation("forceOrientation"),
		}
	case CommandPlayVideo:
		cmd.URL = p.requiredURL("uri")
	case CommandStorePicture, CommandCreateCalendarEvent:
		return cmd, commandErrorf("Unsupported MRAID Javascript command")
	default:
		return cmd, commandErrorf("Unspecified MRAID Javascript command")
	}
	if p.err != nil {
		return cmd, p.err
	}
	return cmd, nil
}

// params records the first parsing failure and returns zero values after it.
type params struct {
	q   url.Values
	err error
}

func (p *params) fail(format string, args ...any) {
	if p.err == nil {
		p.err = commandErrorf(format, args...)
	}
}

func (p *params) size(key string, lo, hi int) int {
	raw := p.q.Get(key)
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		p.fail("Invalid numeric parameter: %s", raw)
		return 0
	}
	v := int(f)
	if v < lo || v > hi {
		p.fail("Integer parameter out of range: %d", v)
		return 0
	}
	return v
}

func (p *params) boolean(key string, def bool) bool {
	if !p.q.Has(key) || p.q.Get(key) == "" {
		return def
	}
	return p.requiredBoolean(key)
}

func (p *params) requiredBoolean(key string) bool {
	switch raw := p.q.Get(key); raw {
	case "true":
		return true
	case "false":
		return false
	default:
		p.fail("Invalid boolean parameter: %s", raw)
		return false
	}
}

func (p *params) closePosition(key string, def geometry.ClosePosition) geometry.ClosePosition {
	raw := p.q.Get(key)
	if raw == "" {
		return def
	}
	pos, err := geometry.ParseClosePosition(raw)
	if err != nil {
		p.fail("Invalid close position: %s", raw)
		return def
	}
	return pos
}

func (p *params) orientation(key string) ForceOrientation {
	raw := p.q.Get(key)
	o, err := ParseForceOrientation(raw)
	if err != nil {
		p.fail("Invalid orientation: %s", raw)
	}
	return o
}

func (p *params) optionalURL(key string) string {
	raw := p.q.Get(key)
	if raw == "" {
		return ""
	}
	return p.checkURL(raw)
}

func (p *params) requiredURL(key string) string {
	raw := p.q.Get(key)
	if raw == "" {
		p.fail("Parameter cannot be null")
		return ""
	}
	return p.checkURL(raw)
}

func (p *params) checkURL(raw string) string {
	if _, err := url.Parse(raw); err != nil {
		p.fail("Invalid URL parameter: %s", raw)
		return ""
	}
	return raw
}

// EncodeCommandURL is the inverse of ParseCommandURL for name and raw params.
// mraid.js builds the same form.
func EncodeCommandURL(name CommandName, values url.Values) string {
	u := url.URL{Scheme: SchemeMRAID, Host: string(name), RawQuery: values.Encode()}
	return u.String()
}

func (n CommandName) String() string {
	if n == CommandUnspecified {
		return "unspecified"
	}
	return string(n)
}
